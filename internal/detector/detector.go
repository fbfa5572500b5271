// Package detector orchestrates the duplicate detection strategies.
//
// A Detector holds the loaded rule pool and runs each incoming rule
// through the strategy waterfall: exact, semantic, structural, then
// content. The first strategy that produces at least one surviving
// match decides the verdict; later strategies never run. A rule that
// survives every strategy is not a duplicate.
package detector

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quailbyte/ruledup/internal/cache"
	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/debug"
	ruleduperrors "github.com/quailbyte/ruledup/internal/errors"
	"github.com/quailbyte/ruledup/internal/matcher"
	"github.com/quailbyte/ruledup/internal/textutil"
	"github.com/quailbyte/ruledup/internal/types"
)

// maxMatchedRules caps how many matched rules a verdict reports.
const maxMatchedRules = 10

// Detector runs the strategy waterfall over a loaded rule pool.
type Detector struct {
	mu         sync.RWMutex
	cfg        *config.Config
	strategies []matcher.Strategy
	results    *cache.DetectionCache

	pool atomic.Pointer[rulePool]

	statsMu    sync.Mutex
	checks     int64
	duplicates int64
	degraded   int64
	fires      map[types.StrategyName]int64

	created time.Time
}

// New builds a detector from the given configuration. A nil config
// falls back to the defaults; an invalid one is rejected.
func New(cfg *config.Config) (*Detector, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		cfg:        cfg,
		strategies: buildStrategies(cfg),
		results:    buildResultCache(cfg.Detector),
		fires:      make(map[types.StrategyName]int64),
		created:    time.Now(),
	}
	d.pool.Store(emptyPool())

	return d, nil
}

// buildStrategies constructs the waterfall in evaluation order. Each
// feature-extracting strategy gets its own cache so clearing one
// never disturbs another.
func buildStrategies(cfg *config.Config) []matcher.Strategy {
	return []matcher.Strategy{
		matcher.NewExactMatcher(cfg.Exact),
		matcher.NewSemanticMatcher(cfg.Semantic, buildFeatureCache(cfg.Detector)),
		matcher.NewStructuralMatcher(cfg.Structural, buildFeatureCache(cfg.Detector)),
		matcher.NewContentMatcher(cfg.Content, buildFeatureCache(cfg.Detector)),
	}
}

func buildFeatureCache(cfg config.Detector) *cache.DetectionCache {
	if cfg.FeatureCacheMaxEntries <= 0 {
		return nil
	}
	return cache.New(cache.Config{
		MaxEntries:  cfg.FeatureCacheMaxEntries,
		TTL:         time.Duration(cfg.FeatureCacheTTLMinutes) * time.Minute,
		AutoCleanup: true,
	})
}

func buildResultCache(cfg config.Detector) *cache.DetectionCache {
	if cfg.CacheMaxEntries <= 0 {
		return nil
	}
	return cache.New(cache.Config{
		MaxEntries:  cfg.CacheMaxEntries,
		TTL:         time.Duration(cfg.CacheTTLMinutes) * time.Minute,
		AutoCleanup: true,
	})
}

// resultKey identifies a detection verdict by the rule's id, title,
// and category. Editing any of those invalidates the cached verdict;
// LoadExistingRules clears the cache wholesale.
func resultKey(rule *types.Rule) string {
	return rule.ID + ":" + textutil.FingerprintKey(rule.Title, string(rule.Category))
}

// CheckDuplicate reports whether the rule duplicates one already in
// the pool. A panic inside a strategy degrades the verdict instead of
// crossing the API boundary.
func (d *Detector) CheckDuplicate(rule types.Rule) (result types.DuplicateResult) {
	defer func() {
		if r := recover(); r != nil {
			debug.LogDetect("detection panicked for rule %s: %v\n", rule.ID, r)
			d.statsMu.Lock()
			d.degraded++
			d.statsMu.Unlock()
			result = types.DegradedResult(fmt.Sprintf("%v", r))
		}
	}()

	d.mu.RLock()
	strategies := d.strategies
	results := d.results
	warning := d.cfg.Detector.WarningThreshold
	maxText := d.cfg.Detector.MaxTextLength
	d.mu.RUnlock()

	d.statsMu.Lock()
	d.checks++
	d.statsMu.Unlock()

	rule = rule.Truncated(maxText)
	rule.Category = types.ParseCategory(string(rule.Category))

	key := resultKey(&rule)
	if results != nil {
		if cached, ok := results.Get(key); ok {
			if res, ok := cached.(types.DuplicateResult); ok {
				return res
			}
		}
	}

	candidates := d.pool.Load().candidates(rule.Category)
	if len(candidates) == 0 {
		res := types.NotDuplicate("no existing rules in category " + string(rule.Category))
		storeResult(results, key, res)
		return res
	}

	for _, strat := range strategies {
		matches := strat.Match(&rule, candidates)
		if len(matches) == 0 {
			continue
		}
		res := d.verdict(strat.Name(), matches, warning)
		storeResult(results, key, res)
		return res
	}

	res := types.NotDuplicate("no similar rules found")
	storeResult(results, key, res)
	return res
}

// verdict turns a strategy's surviving matches into the final result.
// The best match is the first one; strategies sort by similarity with
// rule id as the tie-break, so verdicts are deterministic.
func (d *Detector) verdict(strategy types.StrategyName, matches []types.MatchResult, warning float64) types.DuplicateResult {
	best := matches[0]
	isDup := best.Similarity >= warning

	d.statsMu.Lock()
	d.fires[strategy]++
	if isDup {
		d.duplicates++
	}
	d.statsMu.Unlock()

	limit := len(matches)
	if limit > maxMatchedRules {
		limit = maxMatchedRules
	}
	pool := d.pool.Load()
	refs := make([]types.RuleRef, 0, limit)
	for _, m := range matches[:limit] {
		refs = append(refs, pool.ref(m))
	}

	reason := fmt.Sprintf("closest %s match %q scored %.2f, below the warning threshold", strategy, best.RuleTitle, best.Similarity)
	if isDup {
		reason = fmt.Sprintf("%s match with rule %q: %s", strategy, best.RuleTitle, best.Explanation)
	}

	return types.DuplicateResult{
		IsDuplicate:   isDup,
		Similarity:    best.Similarity,
		DuplicateType: types.ForStrategy(strategy),
		Reason:        reason,
		Confidence:    math.Min(best.Similarity+0.1, 1.0),
		MatchedRules:  refs,
		MatchDetails:  map[types.StrategyName][]types.MatchResult{strategy: matches},
	}
}

func storeResult(results *cache.DetectionCache, key string, res types.DuplicateResult) {
	if results != nil {
		results.Put(key, res)
	}
}

// LoadExistingRules replaces the rule pool. The previous pool stays
// visible to in-flight checks until they finish; caches are cleared
// because every cached verdict and feature bundle may now be stale.
func (d *Detector) LoadExistingRules(rules []types.Rule) {
	d.mu.RLock()
	maxText := d.cfg.Detector.MaxTextLength
	strategies := d.strategies
	results := d.results
	d.mu.RUnlock()

	pool := newRulePool(rules, maxText)
	d.pool.Store(pool)

	if results != nil {
		results.Clear()
	}
	for _, strat := range strategies {
		strat.ClearCache()
	}

	debug.LogPool("loaded %d rules across %d categories\n", pool.size, len(pool.byCategory))
}

// ClearCache drops all cached verdicts and feature bundles. The rule
// pool is untouched.
func (d *Detector) ClearCache() {
	d.mu.RLock()
	strategies := d.strategies
	results := d.results
	d.mu.RUnlock()

	if results != nil {
		results.Clear()
	}
	for _, strat := range strategies {
		strat.ClearCache()
	}
}

// UpdateConfig validates the new configuration and swaps it in along
// with freshly built strategies. The pool is kept; rules do not need
// reloading for a threshold change.
func (d *Detector) UpdateConfig(cfg *config.Config) error {
	if cfg == nil {
		return ruleduperrors.NewConfigError("config", "", errors.New("nil configuration"))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	oldStrategies := d.strategies
	oldResults := d.results
	d.cfg = cfg
	d.strategies = buildStrategies(cfg)
	d.results = buildResultCache(cfg.Detector)
	d.mu.Unlock()

	// In-flight checks may still hold the old strategies. Close only
	// stops cache janitors; a closed cache still serves Get and Put.
	for _, strat := range oldStrategies {
		strat.Close()
	}
	if oldResults != nil {
		oldResults.Close()
	}

	return nil
}

// Close releases every strategy and cache. The detector must not be
// used afterwards.
func (d *Detector) Close() {
	d.mu.RLock()
	strategies := d.strategies
	results := d.results
	d.mu.RUnlock()

	for _, strat := range strategies {
		strat.Close()
	}
	if results != nil {
		results.Close()
	}
}
