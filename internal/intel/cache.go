package intel

import (
	"sync"
	"time"
)

const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = time.Hour
)

// Cache maps IP to the last aggregated report. Expired entries read as
// misses but stay in memory until the next sweep removes them.
type Cache struct {
	ttl   time.Duration
	every time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[string]ThreatReport

	lifeMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}
}

// NewCache returns a cache. Zero durations take DefaultTTL and
// DefaultSweepInterval. The background sweep does not run until Start.
func NewCache(ttl, sweepEvery time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepEvery <= 0 {
		sweepEvery = DefaultSweepInterval
	}
	return &Cache{
		ttl:     ttl,
		every:   sweepEvery,
		now:     time.Now,
		entries: make(map[string]ThreatReport),
	}
}

// TTL returns the maximum age of a live entry.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the report for ip if one exists and has not expired.
func (c *Cache) Get(ip string) (ThreatReport, bool) {
	c.mu.RLock()
	r, ok := c.entries[ip]
	c.mu.RUnlock()
	if !ok || c.expired(r, c.now()) {
		return ThreatReport{}, false
	}
	return r, true
}

// Put stores report under ip, replacing any previous entry.
func (c *Cache) Put(ip string, report ThreatReport) {
	c.mu.Lock()
	c.entries[ip] = report
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for ip, r := range c.entries {
		if c.expired(r, now) {
			delete(c.entries, ip)
			removed++
		}
	}
	return removed
}

// Start launches the periodic sweep. Calling Start on a running cache is a no-op.
func (c *Cache) Start() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.sweepLoop(c.stop, c.done)
}

// Stop halts the periodic sweep and waits for it to exit.
func (c *Cache) Stop() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}

func (c *Cache) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *Cache) expired(r ThreatReport, now time.Time) bool {
	if r.CacheTime.IsZero() {
		return true
	}
	return now.Sub(r.CacheTime) > c.ttl
}
