// Package matcher implements the four similarity strategies the
// detection waterfall runs in order: exact field comparison, semantic
// concept overlap, structural shape comparison, and deep content
// analysis. Each strategy owns its feature extraction and caching and
// applies its own result filter; the orchestrator only sees the
// filtered matches.
package matcher

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/quailbyte/ruledup/internal/debug"
	ruleduperrors "github.com/quailbyte/ruledup/internal/errors"
	"github.com/quailbyte/ruledup/internal/textutil"
	"github.com/quailbyte/ruledup/internal/types"
)

// Strategy scores one source rule against a slice of pool candidates.
// Match returns only candidates that pass the strategy's own filter,
// best match first. Implementations must be safe for concurrent use
// and must never panic across the Match boundary: a candidate whose
// scoring fails is logged and skipped.
type Strategy interface {
	Name() types.StrategyName
	Match(rule *types.Rule, candidates []*types.Rule) []types.MatchResult

	// ClearCache drops cached features and results. The detector calls
	// this whenever the candidate pool is replaced.
	ClearCache()

	// Close releases the strategy's caches. Idempotent.
	Close()
}

// maxDetailItems caps list-valued entries in MatchDetails so a rule
// with hundreds of shared tokens cannot bloat the diagnostic payload.
const maxDetailItems = 8

// recoverCandidate converts a panic during one candidate's scoring
// into a logged skip. Every strategy defers this around per-candidate
// work so a single bad candidate never aborts the batch.
func recoverCandidate(strategy types.StrategyName, cand *types.Rule, ok *bool) {
	r := recover()
	if r == nil {
		return
	}
	id := ""
	if cand != nil {
		id = cand.ID
	}
	err := ruleduperrors.NewExtractionError(strategy, "candidate scoring", fmt.Errorf("%v", r)).WithRule(id)
	debug.LogMatch("skipping candidate: %v\n", err)
	*ok = false
}

// sortResults orders matches by similarity descending, rule ID
// ascending on ties, so the first element is always the strategy's
// best match and output is deterministic.
func sortResults(results []types.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].RuleID < results[j].RuleID
	})
}

// featureKey builds the cache key for a rule's derived feature bundle:
// the rule ID plus a fingerprint of every field that feeds extraction.
// Editing a rule's text without changing its ID changes the key, so a
// stale bundle can never be served.
func featureKey(rule *types.Rule) string {
	return rule.ID + ":" + textutil.FingerprintKey(
		rule.Title,
		rule.Description,
		rule.SQLPattern,
		string(rule.Category),
		string(rule.Severity),
	)
}

// isLatinToken reports whether the token contains no CJK runes.
func isLatinToken(tok string) bool {
	for _, r := range tok {
		if textutil.IsCJK(r) {
			return false
		}
	}
	return true
}

func formatFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", f), "0"), ".")
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// mean averages a slice, returning 0 for an empty one.
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// joinList joins up to max entries, marking how many were dropped.
func joinList(items []string, max int) string {
	if max <= 0 || len(items) <= max {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:max], ", ") + fmt.Sprintf(" (+%d more)", len(items)-max)
}
