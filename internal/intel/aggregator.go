package intel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vulnverified/netsentry/internal/engine"
)

// DefaultProviderTimeout bounds each provider lookup.
const DefaultProviderTimeout = 10 * time.Second

// Config holds the aggregator's collaborators.
type Config struct {
	Malware         MalwareProvider
	Abuse           AbuseProvider
	Cache           *Cache // nil creates one with default TTL
	ProviderTimeout time.Duration
	Progress        engine.ProgressReporter
}

// Aggregator fans a lookup out to both providers and caches the scored result.
type Aggregator struct {
	malware  MalwareProvider
	abuse    AbuseProvider
	cache    *Cache
	timeout  time.Duration
	progress engine.ProgressReporter
	now      func() time.Time
}

// NewAggregator returns an Aggregator. Both providers are required.
func NewAggregator(cfg Config) (*Aggregator, error) {
	if cfg.Malware == nil || cfg.Abuse == nil {
		return nil, fmt.Errorf("%w: both reputation providers are required", engine.ErrInvalidConfig)
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCache(DefaultTTL, DefaultSweepInterval)
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	if cfg.Progress == nil {
		cfg.Progress = engine.NopProgress()
	}
	return &Aggregator{
		malware:  cfg.Malware,
		abuse:    cfg.Abuse,
		cache:    cfg.Cache,
		timeout:  cfg.ProviderTimeout,
		progress: cfg.Progress,
		now:      time.Now,
	}, nil
}

// Cache returns the aggregator's cache.
func (a *Aggregator) Cache() *Cache { return a.cache }

// Start begins the cache's periodic sweep.
func (a *Aggregator) Start() { a.cache.Start() }

// Close stops the cache's periodic sweep.
func (a *Aggregator) Close() { a.cache.Stop() }

// GetThreatIntelligence returns the aggregated report for ip, from cache when
// a live entry exists. Provider failures degrade to mock records. An invalid
// address or a cancelled ctx yields an ERROR report that is not cached.
func (a *Aggregator) GetThreatIntelligence(ctx context.Context, ip string) ThreatReport {
	if !engine.IsValidIP(ip) {
		return a.errorReport(ip, fmt.Errorf("%w: %q is not a valid IPv4 address", engine.ErrInvalidTarget, ip))
	}

	if cached, ok := a.cache.Get(ip); ok {
		cached.Cached = true
		return cached
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	vtCh := make(chan MalwareRecord, 1)
	abuseCh := make(chan AbuseRecord, 1)

	go func() {
		defer a.recoverTo(a.malware.Name(), func() { vtCh <- MockMalwareRecord() })
		vtCh <- a.malware.LookupMalware(lookupCtx, ip)
	}()
	go func() {
		defer a.recoverTo(a.abuse.Name(), func() { abuseCh <- MockAbuseRecord() })
		abuseCh <- a.abuse.LookupAbuse(lookupCtx, ip)
	}()

	vt, vtErr := await(lookupCtx, vtCh, MockMalwareRecord())
	abuse, abuseErr := await(lookupCtx, abuseCh, MockAbuseRecord())

	if err := ctx.Err(); err != nil {
		return a.errorReport(ip, fmt.Errorf("threat lookup for %s: %w", ip, err))
	}
	if vtErr != nil {
		a.progress.Warn(fmt.Sprintf("%s: %s, using mock record", a.malware.Name(), vtErr))
	}
	if abuseErr != nil {
		a.progress.Warn(fmt.Sprintf("%s: %s, using mock record", a.abuse.Name(), abuseErr))
	}

	now := a.now()
	score := Score(vt, abuse)
	report := ThreatReport{
		IP:                  ip,
		Timestamp:           now,
		VirusTotal:          vt,
		AbuseIPDB:           abuse,
		CombinedThreatScore: score,
		Verdict:             VerdictFor(score),
		CacheTime:           now,
	}
	a.cache.Put(ip, report)
	return report
}

func (a *Aggregator) errorReport(ip string, err error) ThreatReport {
	return ThreatReport{
		IP:         ip,
		Timestamp:  a.now(),
		VirusTotal: MockMalwareRecord(),
		AbuseIPDB:  MockAbuseRecord(),
		Verdict:    Error,
		Error:      err.Error(),
	}
}

func (a *Aggregator) recoverTo(provider string, fallback func()) {
	if r := recover(); r != nil {
		a.progress.Warn(fmt.Sprintf("%s: lookup panicked: %v", provider, r))
		fallback()
	}
}

var errDeadline = errors.New("provider deadline exceeded")

// await waits for a provider result until ctx is done, then returns fallback.
func await[T any](ctx context.Context, ch <-chan T, fallback T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		// A result that landed together with the deadline still counts.
		select {
		case v := <-ch:
			return v, nil
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fallback, errDeadline
		}
		return fallback, ctx.Err()
	}
}
