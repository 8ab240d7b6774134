package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vulnverified/netsentry/pkg/ports"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 100

	MinTimeout     = 100 * time.Millisecond
	MaxTimeout     = 30 * time.Second
	MaxConcurrency = 500

	// joinGrace is how long past the unit timeout a join keeps waiting for
	// a prober that is unwinding its socket.
	joinGrace = 100 * time.Millisecond
)

// Config holds the immutable settings for a Coordinator.
type Config struct {
	Timeout     time.Duration
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// Validate checks that timeout and concurrency are within operator limits.
func (c Config) Validate() error {
	if c.Timeout < MinTimeout || c.Timeout > MaxTimeout {
		return fmt.Errorf("%w: timeout %s out of range (%s-%s)", ErrInvalidConfig, c.Timeout, MinTimeout, MaxTimeout)
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: concurrency %d out of range (1-%d)", ErrInvalidConfig, c.Concurrency, MaxConcurrency)
	}
	return nil
}

// Stages holds the injectable stage implementations.
type Stages struct {
	Liveness LivenessChecker // nil treats every host as alive
	Prober   PortProber
}

// Coordinator fans liveness checks and port probes out across a bounded
// budget of concurrent socket operations.
type Coordinator struct {
	cfg      Config
	stages   Stages
	progress ProgressReporter
}

// New returns a Coordinator. Zero Timeout and Concurrency take the defaults.
func New(cfg Config, stages Stages, progress ProgressReporter) (*Coordinator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stages.Prober == nil {
		return nil, fmt.Errorf("%w: port prober is required", ErrInvalidConfig)
	}
	if progress == nil {
		progress = NopProgress()
	}
	return &Coordinator{cfg: cfg, stages: stages, progress: progress}, nil
}

// Config returns the coordinator's effective configuration.
func (c *Coordinator) Config() Config { return c.cfg }

// ScanHost checks that ip is alive and probes every port in ports.
// A dead host or a host with no open ports yields an empty slice.
// The only errors are for invalid input.
func (c *Coordinator) ScanHost(ctx context.Context, ip string, ports []int) ([]PortScanResult, error) {
	target, err := NewScanTarget(ip, ports)
	if err != nil {
		return nil, err
	}
	sem := semaphore.NewWeighted(int64(c.cfg.Concurrency))
	return c.scanHost(ctx, sem, target), nil
}

// ScanRange scans prefix+start through prefix+end. Hosts with no open ports
// are omitted. Cancelling ctx stops scheduling and returns what was already
// collected with Cancelled set.
func (c *Coordinator) ScanRange(ctx context.Context, prefix string, start, end int, ports []int) (*RangeResult, error) {
	prefix, err := NormalizePrefix(prefix)
	if err != nil {
		return nil, err
	}
	if start < 1 || start > 254 {
		return nil, fmt.Errorf("%w: start octet %d out of range (1-254)", ErrInvalidTarget, start)
	}
	if end < 1 || end > 255 {
		return nil, fmt.Errorf("%w: end octet %d out of range (1-255)", ErrInvalidTarget, end)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start octet %d greater than end octet %d", ErrInvalidTarget, start, end)
	}

	targets := make([]ScanTarget, 0, end-start+1)
	for i := start; i <= end; i++ {
		t, err := NewScanTarget(prefix+strconv.Itoa(i), ports)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	result := &RangeResult{
		Prefix:    prefix,
		Start:     start,
		End:       end,
		Hosts:     make(map[string][]PortScanResult),
		StartedAt: time.Now(),
	}

	c.progress.Stage(1, 1, fmt.Sprintf("Scanning %d hosts (%s%d-%d), %d ports each...",
		len(targets), prefix, start, end, len(ports)))

	// One budget for every socket operation in this call. Host goroutines
	// never hold a token while waiting on their ports.
	sem := semaphore.NewWeighted(int64(c.cfg.Concurrency))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.cfg.Concurrency)

	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		t := t
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			found := c.scanHost(ctx, sem, t)

			mu.Lock()
			result.HostsScanned++
			if len(found) > 0 {
				result.Hosts[t.IP()] = found
			}
			mu.Unlock()

			if len(found) > 0 {
				c.progress.Detail(fmt.Sprintf("%s: %d open ports", t.IP(), len(found)))
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Cancelled = ctx.Err() != nil
	if result.Cancelled {
		c.progress.Warn(fmt.Sprintf("Scan cancelled after %d of %d hosts", result.HostsScanned, len(targets)))
	}
	result.CompletedAt = time.Now()
	result.DurationSecs = result.CompletedAt.Sub(result.StartedAt).Seconds()
	return result, nil
}

func (c *Coordinator) scanHost(ctx context.Context, sem *semaphore.Weighted, target ScanTarget) []PortScanResult {
	results := []PortScanResult{}
	if !c.alive(ctx, sem, target.ip) {
		return results
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, port := range target.ports {
		// Acquire may succeed on a done context when tokens are free.
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		port := port
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := c.probeUnit(ctx, sem, target.ip, port)
			if r == nil {
				return
			}
			mu.Lock()
			results = append(results, *r)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (c *Coordinator) alive(ctx context.Context, sem *semaphore.Weighted, ip string) bool {
	if c.stages.Liveness == nil {
		return ctx.Err() == nil
	}
	if ctx.Err() != nil {
		return false
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer sem.Release(1)
	return c.stages.Liveness.IsAlive(ctx, ip, c.cfg.Timeout)
}

// probeUnit runs one probe. The caller has already acquired a token from sem;
// it is released when the probe itself returns, which may be after the join
// has given up on it.
func (c *Coordinator) probeUnit(ctx context.Context, sem *semaphore.Weighted, ip string, port int) *PortScanResult {
	unitCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	done := make(chan *PortScanResult, 1)

	go func() {
		defer sem.Release(1)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				c.progress.Warn(fmt.Sprintf("probe %s:%d panicked: %v", ip, port, r))
				done <- nil
			}
		}()
		done <- c.stages.Prober.Probe(unitCtx, ip, port, c.cfg.Timeout)
	}()

	timer := time.NewTimer(c.cfg.Timeout + joinGrace)
	defer timer.Stop()

	select {
	case r := <-done:
		if r == nil {
			return nil
		}
		return finalize(*r, ip, port)
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}
}

func finalize(r PortScanResult, ip string, port int) *PortScanResult {
	r.IP = ip
	r.Port = port
	r.State = StateOpen
	if r.Protocol == "" {
		r.Protocol = TCP
	}
	if r.Service == "" {
		r.Service = ports.Service(port)
	}
	r.Banner = strings.TrimSpace(r.Banner)
	if r.CapturedAt.IsZero() {
		r.CapturedAt = time.Now()
	}
	return &r
}
