package detector

import (
	"fmt"
	"time"

	"github.com/quailbyte/ruledup/internal/cache"
)

// DetectorStats is a point-in-time snapshot of the detector's
// counters, pool composition, and cache health.
type DetectorStats struct {
	PoolSize       int                     `json:"pool_size"`
	Categories     map[string]int          `json:"categories,omitempty"`
	Checks         int64                   `json:"checks"`
	Duplicates     int64                   `json:"duplicates"`
	Degraded       int64                   `json:"degraded"`
	StrategyFires  map[string]int64        `json:"strategy_fires,omitempty"`
	ResultCache    *cache.Stats            `json:"result_cache,omitempty"`
	StrategyCaches map[string]*cache.Stats `json:"strategy_caches,omitempty"`
	Uptime         time.Duration           `json:"uptime"`
}

// cacheStatser is satisfied by strategies that expose their cache.
type cacheStatser interface {
	CacheStats() *cache.Stats
}

// Stats snapshots the detector. Counters and cache statistics are read
// under their own locks, so the snapshot is consistent per field but
// not across fields.
func (d *Detector) Stats() DetectorStats {
	d.mu.RLock()
	strategies := d.strategies
	results := d.results
	d.mu.RUnlock()

	pool := d.pool.Load()

	d.statsMu.Lock()
	fires := make(map[string]int64, len(d.fires))
	for name, n := range d.fires {
		fires[string(name)] = n
	}
	stats := DetectorStats{
		PoolSize:      pool.size,
		Categories:    pool.categoryCounts(),
		Checks:        d.checks,
		Duplicates:    d.duplicates,
		Degraded:      d.degraded,
		StrategyFires: fires,
		Uptime:        time.Since(d.created),
	}
	d.statsMu.Unlock()

	if results != nil {
		s := results.Stats()
		stats.ResultCache = &s
	}

	strategyCaches := make(map[string]*cache.Stats)
	for _, strat := range strategies {
		if cs, ok := strat.(cacheStatser); ok {
			if s := cs.CacheStats(); s != nil {
				strategyCaches[string(strat.Name())] = s
			}
		}
	}
	if len(strategyCaches) > 0 {
		stats.StrategyCaches = strategyCaches
	}

	return stats
}

// HealthStatus summarizes whether the detector can usefully answer
// detection requests.
type HealthStatus struct {
	Status   string   `json:"status"`
	PoolSize int      `json:"pool_size"`
	Issues   []string `json:"issues,omitempty"`
}

const (
	// StatusHealthy means rules are loaded and checks are succeeding.
	StatusHealthy = "healthy"
	// StatusDegraded means detection answers but with reduced value,
	// for example against an empty pool.
	StatusDegraded = "degraded"
)

// HealthCheck reports detector readiness. An empty pool degrades the
// status rather than failing it: detection still answers, it just
// cannot find duplicates.
func (d *Detector) HealthCheck() HealthStatus {
	pool := d.pool.Load()

	h := HealthStatus{Status: StatusHealthy, PoolSize: pool.size}
	if pool.size == 0 {
		h.Status = StatusDegraded
		h.Issues = append(h.Issues, "no rules loaded")
	}

	d.statsMu.Lock()
	checks, degraded := d.checks, d.degraded
	d.statsMu.Unlock()

	// One-off panics are tolerable; a fifth of all traffic is not.
	if checks > 0 && degraded*5 > checks {
		h.Status = StatusDegraded
		h.Issues = append(h.Issues, fmt.Sprintf("%d of %d checks returned degraded results", degraded, checks))
	}

	return h
}
