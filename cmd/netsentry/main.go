package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulnverified/netsentry/internal/engine"
	"github.com/vulnverified/netsentry/internal/output"
	"github.com/vulnverified/netsentry/internal/recon"
	"github.com/vulnverified/netsentry/pkg/ports"
)

// Set via ldflags at build time.
var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	jsonOutput  bool
	timeout     time.Duration
	concurrency int
	noColor     bool
	silent      bool
	verbose     bool
}

// portFlags select the port set for host and range scans.
type portFlags struct {
	list      string
	portRange string
	full      bool
	top100    bool
	noUDP     bool
	udpProbes bool
}

// keyFlags carry provider API keys.
type keyFlags struct {
	virusTotal string
	abuseIPDB  string
}

func main() {
	output.Version = version

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "netsentry",
		Short: "Network exposure and IP reputation scanner",
		Long:  "Probe hosts and local ranges for open TCP/UDP ports, and score IP reputation from VirusTotal and AbuseIPDB.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Respect NO_COLOR env var.
			if _, ok := os.LookupEnv("NO_COLOR"); ok {
				g.noColor = true
			}
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&g.jsonOutput, "json", false, "Output structured JSON to stdout")
	pf.DurationVar(&g.timeout, "timeout", engine.DefaultTimeout, "Per-probe timeout (100ms-30s)")
	pf.IntVar(&g.concurrency, "concurrency", engine.DefaultConcurrency, "Max concurrent socket operations (1-500)")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable terminal colors")
	pf.BoolVar(&g.silent, "silent", false, "Results only, no progress")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Verbose progress and detailed results")

	rootCmd.AddCommand(
		newHostCmd(g),
		newScanCmd(g),
		newIntelCmd(g),
		newServeCmd(g),
	)

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("netsentry {{.Version}}\n")
	return rootCmd
}

func (g *globalFlags) progress() *output.Progress {
	return output.NewProgress(os.Stderr, g.verbose, g.jsonOutput || g.silent)
}

func (g *globalFlags) showProgress() bool {
	return !g.jsonOutput && !g.silent
}

func (g *globalFlags) coordinator(pf *portFlags, progress engine.ProgressReporter) (*engine.Coordinator, error) {
	cfg := engine.Config{Timeout: g.timeout, Concurrency: g.concurrency}
	return engine.New(cfg, recon.ScanStages(pf.noUDP, pf.udpProbes), progress)
}

func (p *portFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&p.list, "ports", "", "Comma-separated ports or ranges (default: common ports)")
	f.StringVar(&p.portRange, "port-range", "", "Scan a port range, e.g. 1-65535")
	f.BoolVar(&p.full, "full", false, "Scan common ports plus all of 1-1024")
	f.BoolVar(&p.top100, "top100", false, "Scan the top 100 ports")
	f.BoolVar(&p.noUDP, "no-udp", false, "Disable the UDP fallback for DNS, NTP and SNMP")
	f.BoolVar(&p.udpProbes, "udp-payloads", false, "Send DNS/NTP requests instead of empty UDP datagrams")
	cmd.MarkFlagsMutuallyExclusive("ports", "port-range", "full", "top100")
}

// selectPorts resolves the port flags to a concrete list.
func (p *portFlags) selectPorts() ([]int, error) {
	switch {
	case p.list != "":
		parsed, err := ports.Parse(p.list)
		if err != nil {
			return nil, fmt.Errorf("invalid --ports: %w", err)
		}
		return parsed, nil
	case p.portRange != "":
		start, end, err := ports.ParseRange(p.portRange)
		if err != nil {
			return nil, fmt.Errorf("invalid --port-range: %w", err)
		}
		return ports.Range(start, end), nil
	case p.full:
		return ports.WellKnown(), nil
	case p.top100:
		return append([]int(nil), ports.Top100...), nil
	}
	return append([]int(nil), ports.Common...), nil
}

func (k *keyFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&k.virusTotal, "virustotal-key", "", "VirusTotal API key (default: $VIRUSTOTAL_API_KEY)")
	f.StringVar(&k.abuseIPDB, "abuseipdb-key", "", "AbuseIPDB API key (default: $ABUSEIPDB_API_KEY)")
}

func (k *keyFlags) resolve() recon.Keys {
	return recon.Keys{
		VirusTotal: firstNonEmpty(k.virusTotal, os.Getenv("VIRUSTOTAL_API_KEY")),
		AbuseIPDB:  firstNonEmpty(k.abuseIPDB, os.Getenv("ABUSEIPDB_API_KEY")),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// signalContext returns a context cancelled on the first interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
