package matcher

import (
	"fmt"
	"strconv"

	"github.com/quailbyte/ruledup/internal/cache"
	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/textutil"
	"github.com/quailbyte/ruledup/internal/types"
)

// ExactMatcher scores lexical similarity over rule fields: normalized
// edit distance per field plus token-overlap bonuses, combined by a
// weighted sum. It is the cheapest and most precise strategy and runs
// first in the waterfall.
type ExactMatcher struct {
	cfg     config.Exact
	results *cache.DetectionCache
}

// NewExactMatcher builds the matcher. When cfg.CacheEnabled it keeps a
// result cache keyed by the source rule's content fingerprint; cached
// entries are only valid against a fixed candidate pool, so the
// detector clears this cache whenever the pool reloads.
func NewExactMatcher(cfg config.Exact) *ExactMatcher {
	m := &ExactMatcher{cfg: cfg}
	if cfg.CacheEnabled {
		m.results = cache.New(cache.Config{
			MaxEntries: cfg.CacheMaxEntries,
			TTL:        cache.DefaultTTL,
		})
	}
	return m
}

func (m *ExactMatcher) Name() types.StrategyName { return types.StrategyExact }

// Match scores every candidate and returns those clearing both the
// overall threshold and the minimum matched-field count, best first.
func (m *ExactMatcher) Match(rule *types.Rule, candidates []*types.Rule) []types.MatchResult {
	if rule == nil || len(candidates) == 0 {
		return nil
	}

	var cacheKey string
	if m.results != nil {
		cacheKey = featureKey(rule)
		if v, ok := m.results.Get(cacheKey); ok {
			if cached, ok := v.([]types.MatchResult); ok {
				return cached
			}
		}
	}

	src := normalizeFields(rule)
	results := make([]types.MatchResult, 0, 4)
	for _, cand := range candidates {
		if res, ok := m.scoreCandidate(rule, src, cand); ok {
			results = append(results, res)
		}
	}
	sortResults(results)

	if m.results != nil {
		m.results.Put(cacheKey, results)
	}
	return results
}

// ClearCache drops cached match results.
func (m *ExactMatcher) ClearCache() {
	if m.results != nil {
		m.results.Clear()
	}
}

// Close stops the result cache. Idempotent.
func (m *ExactMatcher) Close() {
	if m.results != nil {
		m.results.Close()
	}
}

// CacheStats returns result-cache statistics, or nil when caching is
// disabled.
func (m *ExactMatcher) CacheStats() *cache.Stats {
	if m.results == nil {
		return nil
	}
	s := m.results.Stats()
	return &s
}

// exactFields holds a rule's normalized comparable fields.
type exactFields struct {
	title string
	desc  string
	sql   string
}

func normalizeFields(r *types.Rule) exactFields {
	return exactFields{
		title: textutil.Normalize(r.Title),
		desc:  textutil.Normalize(r.Description),
		sql:   textutil.Normalize(r.SQLPattern),
	}
}

func (m *ExactMatcher) scoreCandidate(rule *types.Rule, src exactFields, cand *types.Rule) (result types.MatchResult, ok bool) {
	defer recoverCandidate(types.StrategyExact, cand, &ok)

	if cand == nil || cand.ID == rule.ID {
		return result, false
	}
	tgt := normalizeFields(cand)
	if !m.prefilter(rule, cand, src, tgt) {
		return result, false
	}

	titleSim := fieldSimilarity(src.title, tgt.title)
	descSim := fieldSimilarity(src.desc, tgt.desc)
	sqlSim := fieldSimilarity(src.sql, tgt.sql)
	categoryMatch := rule.Category == cand.Category
	severityMatch := rule.Severity == cand.Severity

	overall := titleSim*m.cfg.TitleWeight +
		descSim*m.cfg.DescriptionWeight +
		sqlSim*m.cfg.SQLPatternWeight
	if categoryMatch {
		overall += m.cfg.CategoryWeight
	}
	if severityMatch {
		overall += m.cfg.SeverityWeight
	}

	// A field with content on neither side compares equal in the
	// weighted sum but is no evidence, so it never counts as matched.
	var matched []string
	if (src.title != "" || tgt.title != "") && titleSim >= m.cfg.TitleThreshold {
		matched = append(matched, "title")
	}
	if (src.desc != "" || tgt.desc != "") && descSim >= m.cfg.DescriptionThreshold {
		matched = append(matched, "description")
	}
	if (src.sql != "" || tgt.sql != "") && sqlSim >= m.cfg.SQLPatternThreshold {
		matched = append(matched, "sql_pattern")
	}
	if categoryMatch {
		matched = append(matched, "category")
	}
	if severityMatch {
		matched = append(matched, "severity")
	}

	if overall < m.cfg.OverallThreshold || len(matched) < m.cfg.MinMatchedFields {
		return result, false
	}

	strength := matchStrength(overall, len(matched))
	confidence := overall + 0.02*float64(len(matched))
	if overall >= 0.9 {
		confidence += 0.05
	}
	confidence = textutil.Clamp(confidence, 0, 0.99)

	result = types.MatchResult{
		RuleID:      cand.ID,
		RuleTitle:   cand.Title,
		Similarity:  textutil.Clamp01(overall),
		Confidence:  confidence,
		Explanation: fmt.Sprintf("Field-level match (%s) on %s", strength, joinList(matched, maxDetailItems)),
		MatchDetails: map[string]string{
			"match_strength":         string(strength),
			"matched_fields":         joinList(matched, maxDetailItems),
			"matched_field_count":    formatInt(len(matched)),
			"title_similarity":       formatFloat(titleSim),
			"description_similarity": formatFloat(descSim),
			"sql_similarity":         formatFloat(sqlSim),
			"category_match":         strconv.FormatBool(categoryMatch),
			"severity_match":         strconv.FormatBool(severityMatch),
		},
	}
	return result, true
}

// prefilter cheaply rejects candidates before the edit-distance pass:
// keep only candidates sharing category or severity, or whose title
// clears a Jaro-Winkler screen.
func (m *ExactMatcher) prefilter(rule, cand *types.Rule, src, tgt exactFields) bool {
	if rule.Category == cand.Category || rule.Severity == cand.Severity {
		return true
	}
	return textutil.JaroWinklerSimilarity(src.title, tgt.title) >= m.cfg.PrefilterTitleSim
}

// fieldSimilarity scores two normalized field values: edit-distance
// similarity plus a surface-agreement bonus. Two absent values compare
// equal; one absent value scores zero.
func fieldSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return textutil.Clamp01(textutil.EditSimilarity(a, b) + similarityBonus(a, b))
}

// similarityBonus rewards surface agreement that raw edit distance
// underweights: a shared leading token, vocabulary overlap, and close
// lengths. Capped at 0.2 so the bonus nudges borderline pairs but
// never carries a field on its own.
func similarityBonus(a, b string) float64 {
	ta, tb := textutil.Tokenize(a), textutil.Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	bonus := 0.0
	if ta[0] == tb[0] {
		bonus += 0.08
	}
	bonus += 0.08 * textutil.JaccardStrings(ta, tb)
	bonus += 0.04 * textutil.RatioSimilarity(float64(textutil.RuneLen(a)), float64(textutil.RuneLen(b)))
	return bonus
}

// matchStrength buckets a result by similarity and field agreement.
func matchStrength(similarity float64, matchedFields int) types.MatchStrength {
	switch {
	case similarity >= 0.9 && matchedFields >= 4:
		return types.StrengthVeryStrong
	case similarity >= 0.8 && matchedFields >= 3:
		return types.StrengthStrong
	case similarity >= 0.6 && matchedFields >= 2:
		return types.StrengthModerate
	default:
		return types.StrengthWeak
	}
}
