package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cache configuration constants
const (
	DefaultMaxEntries      = 1000
	DefaultTTL             = 30 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// Entry wraps a cached value with its insertion timestamp.
type Entry struct {
	Data        interface{}
	InsertedAt  int64 // Unix nano for atomic compare
	AccessCount int64 // Atomic counter
	Key         string
}

// DetectionCache is a TTL and size bounded cache for derived detection
// values: feature bundles, per-matcher match results, and verdicts. It
// is lock-free on the hot path via sync.Map. Each matcher and the
// detector own a private instance; instances are never shared across
// components.
type DetectionCache struct {
	entries sync.Map // map[string]*Entry

	// Configuration (maxEntries read-only after creation, ttlNanos
	// adjustable via UpdateTTL)
	maxEntries int
	ttlNanos   int64

	// Atomic counters
	hits          int64
	misses        int64
	evictions     int64
	totalRequests int64

	// Approximate entry count (exact after CleanExpired)
	entryCount int64

	createdAt   time.Time
	lastCleanup int64

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// Config defines cache construction options.
type Config struct {
	MaxEntries      int
	TTL             time.Duration
	AutoCleanup     bool
	CleanupInterval time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxEntries:      DefaultMaxEntries,
		TTL:             DefaultTTL,
		AutoCleanup:     true,
		CleanupInterval: DefaultCleanupInterval,
	}
}

// New creates a detection cache. When AutoCleanup is set a janitor
// goroutine sweeps expired entries until Close is called.
func New(config Config) *DetectionCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCleanupInterval
	}

	c := &DetectionCache{
		maxEntries:  config.MaxEntries,
		ttlNanos:    config.TTL.Nanoseconds(),
		createdAt:   time.Now(),
		lastCleanup: time.Now().UnixNano(),
		stopCleanup: make(chan struct{}),
	}

	if config.AutoCleanup {
		go c.runCleanup(config.CleanupInterval)
	}

	return c
}

// Get retrieves a cached value. Expired entries are deleted lazily and
// reported as misses.
func (c *DetectionCache) Get(key string) (interface{}, bool) {
	atomic.AddInt64(&c.totalRequests, 1)
	now := time.Now().UnixNano()

	if val, ok := c.entries.Load(key); ok {
		entry := val.(*Entry)
		if now-atomic.LoadInt64(&entry.InsertedAt) <= atomic.LoadInt64(&c.ttlNanos) {
			atomic.AddInt64(&entry.AccessCount, 1)
			atomic.AddInt64(&c.hits, 1)
			return entry.Data, true
		}
		// Expired - delete lazily
		c.entries.Delete(key)
		atomic.AddInt64(&c.entryCount, -1)
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, false
}

// Put stores a value. When the entry count exceeds the cap the
// oldest-inserted entry is evicted.
func (c *DetectionCache) Put(key string, data interface{}) {
	entry := &Entry{
		Data:        data,
		InsertedAt:  time.Now().UnixNano(),
		AccessCount: 1,
		Key:         key,
	}

	if _, loaded := c.entries.Swap(key, entry); loaded {
		// Replaced in place, count unchanged
		return
	}
	count := atomic.AddInt64(&c.entryCount, 1)
	if count > int64(c.maxEntries) {
		c.evictOldest()
	}
}

// evictOldest removes the entry with the smallest insertion timestamp.
func (c *DetectionCache) evictOldest() {
	var oldestKey interface{}
	var oldestTime int64 = time.Now().UnixNano()

	c.entries.Range(func(key, value interface{}) bool {
		entry := value.(*Entry)
		insertedAt := atomic.LoadInt64(&entry.InsertedAt)
		if insertedAt < oldestTime {
			oldestTime = insertedAt
			oldestKey = key
		}
		return true
	})

	if oldestKey != nil {
		c.entries.Delete(oldestKey)
		atomic.AddInt64(&c.entryCount, -1)
		atomic.AddInt64(&c.evictions, 1)
	}
}

// CleanExpired removes expired entries and resyncs the entry count.
func (c *DetectionCache) CleanExpired() int {
	now := time.Now().UnixNano()
	ttl := atomic.LoadInt64(&c.ttlNanos)
	cleaned := int64(0)
	remaining := int64(0)

	c.entries.Range(func(key, value interface{}) bool {
		entry := value.(*Entry)
		if now-atomic.LoadInt64(&entry.InsertedAt) > ttl {
			c.entries.Delete(key)
			cleaned++
		} else {
			remaining++
		}
		return true
	})
	atomic.StoreInt64(&c.entryCount, remaining)

	atomic.AddInt64(&c.evictions, cleaned)
	atomic.StoreInt64(&c.lastCleanup, now)
	return int(cleaned)
}

// runCleanup sweeps expired entries until Close.
func (c *DetectionCache) runCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the janitor goroutine. Safe to call multiple times and
// on caches constructed without AutoCleanup.
func (c *DetectionCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

// Clear removes all entries and resets statistics.
func (c *DetectionCache) Clear() {
	c.entries.Range(func(key, _ interface{}) bool {
		c.entries.Delete(key)
		return true
	})

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
	atomic.StoreInt64(&c.totalRequests, 0)
	atomic.StoreInt64(&c.entryCount, 0)
	atomic.StoreInt64(&c.lastCleanup, time.Now().UnixNano())
}

// UpdateTTL updates the TTL and sweeps entries expired under the new
// value.
func (c *DetectionCache) UpdateTTL(ttl time.Duration) {
	atomic.StoreInt64(&c.ttlNanos, ttl.Nanoseconds())
	c.CleanExpired()
}

// Len returns the approximate entry count.
func (c *DetectionCache) Len() int {
	return int(atomic.LoadInt64(&c.entryCount))
}

// Stats returns cache statistics.
func (c *DetectionCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	totalRequests := atomic.LoadInt64(&c.totalRequests)

	hitRate := float64(0)
	if totalRequests > 0 {
		hitRate = float64(hits) / float64(totalRequests)
	}

	return Stats{
		Hits:          hits,
		Misses:        misses,
		Evictions:     atomic.LoadInt64(&c.evictions),
		TotalRequests: totalRequests,
		HitRate:       hitRate,
		Entries:       int(atomic.LoadInt64(&c.entryCount)),
		MaxEntries:    c.maxEntries,
		TTL:           time.Duration(atomic.LoadInt64(&c.ttlNanos)),
		CreatedAt:     c.createdAt,
		LastCleanup:   time.Unix(0, atomic.LoadInt64(&c.lastCleanup)),
		Uptime:        time.Since(c.createdAt),
		Status:        healthStatus(hitRate),
	}
}

// Stats holds cache statistics.
type Stats struct {
	Hits          int64         `json:"hits"`
	Misses        int64         `json:"misses"`
	Evictions     int64         `json:"evictions"`
	TotalRequests int64         `json:"total_requests"`
	HitRate       float64       `json:"hit_rate"`
	Entries       int           `json:"entries"`
	MaxEntries    int           `json:"max_entries"`
	TTL           time.Duration `json:"ttl"`
	CreatedAt     time.Time     `json:"created_at"`
	LastCleanup   time.Time     `json:"last_cleanup"`
	Uptime        time.Duration `json:"uptime"`
	Status        string        `json:"status"`
}

func healthStatus(hitRate float64) string {
	switch {
	case hitRate >= 0.95:
		return "excellent"
	case hitRate >= 0.85:
		return "good"
	case hitRate >= 0.70:
		return "fair"
	default:
		return "poor"
	}
}
