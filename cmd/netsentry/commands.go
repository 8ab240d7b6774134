package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulnverified/netsentry/internal/engine"
	"github.com/vulnverified/netsentry/internal/intel"
	"github.com/vulnverified/netsentry/internal/output"
	"github.com/vulnverified/netsentry/internal/recon"
	"github.com/vulnverified/netsentry/internal/server"
)

func newHostCmd(g *globalFlags) *cobra.Command {
	pf := &portFlags{}
	var bannerOnly bool

	cmd := &cobra.Command{
		Use:   "host <ip>",
		Short: "Scan the ports of a single host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ip := strings.TrimSpace(args[0])
			if !engine.IsValidIP(ip) {
				return fmt.Errorf("%w: %q is not a valid IPv4 address", engine.ErrInvalidTarget, ip)
			}
			scanPorts, err := pf.selectPorts()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if bannerOnly {
				return grabBanners(ctx, cmd, g, ip, scanPorts)
			}

			progress := g.progress()
			coord, err := g.coordinator(pf, progress)
			if err != nil {
				return err
			}

			if g.showProgress() {
				output.WriteHeader(os.Stderr, g.noColor)
				progress.Stage(1, 1, fmt.Sprintf("Scanning %s, %d ports...", ip, len(scanPorts)))
			}

			results, err := coord.ScanHost(ctx, ip, scanPorts)
			if err != nil {
				return err
			}
			engine.SortResults(results)

			if g.showProgress() {
				progress.Complete()
			}

			if g.jsonOutput {
				return output.WriteJSON(cmd.OutOrStdout(), results)
			}
			output.WritePortTable(cmd.OutOrStdout(), results, g.verbose, g.noColor)
			output.WriteSummary(cmd.OutOrStdout(), ip, hostCount(results), engine.Stats(results), ctx.Err() != nil, g.noColor)
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().BoolVar(&bannerOnly, "banner-only", false, "Only grab banners from the selected ports")
	return cmd
}

func grabBanners(ctx context.Context, cmd *cobra.Command, g *globalFlags, ip string, scanPorts []int) error {
	banners := make(map[int]string)
	for _, port := range scanPorts {
		if ctx.Err() != nil {
			break
		}
		banner, err := recon.GrabBanner(ctx, ip, port, g.timeout)
		if err != nil {
			continue
		}
		banners[port] = banner
		if !g.jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%d %s\n", ip, port, banner)
		}
	}
	if g.jsonOutput {
		return output.WriteJSON(cmd.OutOrStdout(), banners)
	}
	return nil
}

func newScanCmd(g *globalFlags) *cobra.Command {
	pf := &portFlags{}
	var start, end int

	cmd := &cobra.Command{
		Use:   "scan [prefix]",
		Short: "Scan a /24 range, e.g. 192.168.1.",
		Long:  "Scan prefix+start through prefix+end. Without a prefix the local network is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := recon.LocalNetworkPrefix()
			if len(args) == 1 {
				prefix = strings.TrimSpace(args[0])
			}
			scanPorts, err := pf.selectPorts()
			if err != nil {
				return err
			}

			progress := g.progress()
			coord, err := g.coordinator(pf, progress)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if g.showProgress() {
				output.WriteHeader(os.Stderr, g.noColor)
			}

			result, err := coord.ScanRange(ctx, prefix, start, end, scanPorts)
			if err != nil {
				return err
			}

			if g.showProgress() {
				progress.Complete()
			}

			if g.jsonOutput {
				return output.WriteJSON(cmd.OutOrStdout(), result)
			}
			all := engine.Flatten(result.Hosts)
			output.WritePortTable(cmd.OutOrStdout(), all, g.verbose, g.noColor)
			target := fmt.Sprintf("%s%d-%d", result.Prefix, result.Start, result.End)
			output.WriteSummary(cmd.OutOrStdout(), target, len(result.Hosts), engine.Stats(all), result.Cancelled, g.noColor)
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&start, "start", 1, "First host octet (1-254)")
	cmd.Flags().IntVar(&end, "end", 254, "Last host octet (1-255)")
	return cmd
}

func newIntelCmd(g *globalFlags) *cobra.Command {
	kf := &keyFlags{}

	cmd := &cobra.Command{
		Use:   "intel <ip> [ip...]",
		Short: "Look up IP reputation on VirusTotal and AbuseIPDB",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := g.progress()
			agg, err := newAggregator(kf, progress)
			if err != nil {
				return err
			}
			defer agg.Close()

			ctx, cancel := signalContext()
			defer cancel()

			reports := make([]intel.ThreatReport, 0, len(args))
			for i, ip := range args {
				if g.showProgress() {
					progress.Stage(i+1, len(args), fmt.Sprintf("Looking up %s...", ip))
				}
				reports = append(reports, agg.GetThreatIntelligence(ctx, strings.TrimSpace(ip)))
			}

			if g.jsonOutput {
				if len(reports) == 1 {
					return output.WriteJSON(cmd.OutOrStdout(), reports[0])
				}
				return output.WriteJSON(cmd.OutOrStdout(), reports)
			}
			for _, r := range reports {
				output.WriteThreatReport(cmd.OutOrStdout(), r, g.noColor)
			}
			return nil
		},
	}
	kf.register(cmd)
	return cmd
}

func newServeCmd(g *globalFlags) *cobra.Command {
	kf := &keyFlags{}
	pf := &portFlags{}
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve threat lookups and host scans over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := output.NewProgress(os.Stderr, g.verbose, g.silent)
			agg, err := newAggregator(kf, progress)
			if err != nil {
				return err
			}
			coord, err := g.coordinator(pf, progress)
			if err != nil {
				return err
			}

			agg.Start()
			defer agg.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(agg, coord).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, cancel := signalContext()
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				progress.Stage(1, 1, fmt.Sprintf("Listening on %s", addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		},
	}
	kf.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().BoolVar(&pf.noUDP, "no-udp", false, "Disable the UDP fallback for DNS, NTP and SNMP")
	return cmd
}

func newAggregator(kf *keyFlags, progress engine.ProgressReporter) (*intel.Aggregator, error) {
	keys := kf.resolve()
	vt, abuse := recon.Providers(keys, output.UserAgent(), progress)
	if !vt.Configured() {
		progress.Warn("virustotal: no API key, using mock data")
	}
	if !abuse.Configured() {
		progress.Warn("abuseipdb: no API key, using mock data")
	}
	return intel.NewAggregator(intel.Config{
		Malware:  vt,
		Abuse:    abuse,
		Progress: progress,
	})
}

func hostCount(results []engine.PortScanResult) int {
	if len(results) == 0 {
		return 0
	}
	return 1
}
