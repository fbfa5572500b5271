package matcher

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/quailbyte/ruledup/internal/cache"
	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/textutil"
	"github.com/quailbyte/ruledup/internal/types"
)

// StructuralMatcher scores document shape: length and complexity
// statistics, format features, and metadata agreement, independent of
// exact wording. Runs third in the waterfall, for rules whose wording
// differs but whose shape does not.
type StructuralMatcher struct {
	cfg   config.Structural
	feats *cache.DetectionCache
}

// NewStructuralMatcher builds the matcher. feats caches extracted
// feature bundles and may be nil to disable caching; the matcher owns
// the cache once injected.
func NewStructuralMatcher(cfg config.Structural, feats *cache.DetectionCache) *StructuralMatcher {
	return &StructuralMatcher{cfg: cfg, feats: feats}
}

func (m *StructuralMatcher) Name() types.StrategyName { return types.StrategyStructural }

// Match returns candidates clearing the overall threshold, best first.
func (m *StructuralMatcher) Match(rule *types.Rule, candidates []*types.Rule) []types.MatchResult {
	if rule == nil || len(candidates) == 0 {
		return nil
	}
	src := m.features(rule)
	results := make([]types.MatchResult, 0, 4)
	for _, cand := range candidates {
		if res, ok := m.scoreCandidate(rule, src, cand); ok {
			results = append(results, res)
		}
	}
	sortResults(results)
	return results
}

// ClearCache drops cached feature bundles.
func (m *StructuralMatcher) ClearCache() {
	if m.feats != nil {
		m.feats.Clear()
	}
}

// Close stops the feature cache. Idempotent.
func (m *StructuralMatcher) Close() {
	if m.feats != nil {
		m.feats.Close()
	}
}

// CacheStats returns feature-cache statistics, or nil when caching is
// disabled.
func (m *StructuralMatcher) CacheStats() *cache.Stats {
	if m.feats == nil {
		return nil
	}
	s := m.feats.Stats()
	return &s
}

// structuralFeatures is one rule's shape statistics. Pure value; the
// tag slice is copied so the bundle holds no reference into the
// caller's rule.
type structuralFeatures struct {
	titleChars    int
	descChars     int
	totalChars    int
	wordCount     int
	sentenceCount int

	avgWordLen     float64
	avgSentenceLen float64
	richness       float64
	readability    float64

	hasCode     bool
	hasLinks    bool
	hasBullets  bool
	hasExamples bool

	category types.Category
	severity types.Severity
	tags     []string
	hasMeta  bool
	created  time.Time
}

func (m *StructuralMatcher) features(rule *types.Rule) *structuralFeatures {
	var key string
	if m.feats != nil {
		key = featureKey(rule)
		if v, ok := m.feats.Get(key); ok {
			if f, ok := v.(*structuralFeatures); ok {
				return f
			}
		}
	}
	f := m.extract(rule)
	if m.feats != nil {
		m.feats.Put(key, f)
	}
	return f
}

func (m *StructuralMatcher) extract(rule *types.Rule) *structuralFeatures {
	text := rule.Text()
	words := textutil.Words(text)
	sentences := textutil.SplitSentences(text)
	shape := textutil.MeasureShape(rule.Description)

	f := &structuralFeatures{
		titleChars:    textutil.RuneLen(rule.Title),
		descChars:     textutil.RuneLen(rule.Description),
		totalChars:    textutil.RuneLen(text),
		wordCount:     len(words),
		sentenceCount: len(sentences),

		hasCode:     strings.Contains(rule.Description, "`") || rule.SQLPattern != "",
		hasLinks:    shape.Links > 0,
		hasBullets:  shape.BulletLines > 0,
		hasExamples: rule.Examples.Count() > 0,

		category: rule.Category,
		severity: rule.Severity,
		tags:     append([]string(nil), rule.Tags...),
		hasMeta:  len(rule.Metadata) > 0,
		created:  rule.CreatedAt,
	}

	if len(words) > 0 {
		totalRunes := 0
		uniq := make(map[string]struct{}, len(words))
		for _, w := range words {
			totalRunes += textutil.RuneLen(w)
			uniq[w] = struct{}{}
		}
		f.avgWordLen = float64(totalRunes) / float64(len(words))
		f.richness = float64(len(uniq)) / float64(len(words))
	}
	if len(sentences) > 0 {
		f.avgSentenceLen = float64(len(words)) / float64(len(sentences))
	}
	f.readability = textutil.Clamp(100-(2*f.avgSentenceLen+f.avgWordLen), 0, 100)
	return f
}

func (m *StructuralMatcher) scoreCandidate(rule *types.Rule, src *structuralFeatures, cand *types.Rule) (result types.MatchResult, ok bool) {
	defer recoverCandidate(types.StrategyStructural, cand, &ok)

	if cand == nil || cand.ID == rule.ID {
		return result, false
	}
	tgt := m.features(cand)

	lengthSim := (textutil.RatioSimilarity(float64(src.titleChars), float64(tgt.titleChars)) +
		textutil.RatioSimilarity(float64(src.descChars), float64(tgt.descChars)) +
		textutil.RatioSimilarity(float64(src.totalChars), float64(tgt.totalChars)) +
		textutil.RatioSimilarity(float64(src.wordCount), float64(tgt.wordCount)) +
		textutil.RatioSimilarity(float64(src.sentenceCount), float64(tgt.sentenceCount))) / 5

	complexitySim := (textutil.RatioSimilarity(src.avgWordLen, tgt.avgWordLen) +
		textutil.RatioSimilarity(src.avgSentenceLen, tgt.avgSentenceLen) +
		textutil.Closeness(src.richness, tgt.richness, 1) +
		textutil.Closeness(src.readability, tgt.readability, 100)) / 4

	formatSim := boolAgreement(
		src.hasCode == tgt.hasCode,
		src.hasLinks == tgt.hasLinks,
		src.hasBullets == tgt.hasBullets,
		src.hasExamples == tgt.hasExamples,
	)

	metadataSim := m.metadataSimilarity(src, tgt)

	overall := lengthSim*m.cfg.LengthWeight +
		complexitySim*m.cfg.ComplexityWeight +
		formatSim*m.cfg.FormatWeight +
		metadataSim*m.cfg.MetadataWeight

	if overall < m.cfg.OverallThreshold {
		return result, false
	}

	pattern := similarityPattern(overall)
	result = types.MatchResult{
		RuleID:     cand.ID,
		RuleTitle:  cand.Title,
		Similarity: textutil.Clamp01(overall),
		// Shape evidence is circumstantial; it is never reported with
		// high confidence.
		Confidence:  textutil.Clamp(overall, 0, 0.9),
		Explanation: fmt.Sprintf("Document shape is %s (length %.2f, format %.2f, metadata %.2f)", pattern, lengthSim, formatSim, metadataSim),
		MatchDetails: map[string]string{
			"similarity_pattern":    pattern,
			"length_similarity":     formatFloat(lengthSim),
			"complexity_similarity": formatFloat(complexitySim),
			"format_similarity":     formatFloat(formatSim),
			"metadata_similarity":   formatFloat(metadataSim),
		},
	}
	return result, true
}

// metadataSimilarity blends category, severity, tag overlap, recency,
// and free-form metadata presence.
func (m *StructuralMatcher) metadataSimilarity(a, b *structuralFeatures) float64 {
	sim := 0.0
	if a.category == b.category {
		sim += 0.3
	}
	if a.severity == b.severity {
		sim += 0.2
	}
	sim += 0.2 * textutil.JaccardStrings(a.tags, b.tags)
	sim += 0.2 * m.recencySimilarity(a.created, b.created)
	if a.hasMeta == b.hasMeta {
		sim += 0.1
	}
	return sim
}

// recencySimilarity compares creation times on the configured decay
// window. Two unknown timestamps compare equal; one unknown scores
// half.
func (m *StructuralMatcher) recencySimilarity(a, b time.Time) float64 {
	switch {
	case a.IsZero() && b.IsZero():
		return 1.0
	case a.IsZero() || b.IsZero():
		return 0.5
	}
	days := math.Abs(a.Sub(b).Hours()) / 24
	decay := float64(m.cfg.RecencyDecayDays)
	if decay <= 0 {
		decay = 365
	}
	return textutil.Closeness(0, days, decay)
}

func boolAgreement(agreements ...bool) float64 {
	if len(agreements) == 0 {
		return 0
	}
	n := 0
	for _, a := range agreements {
		if a {
			n++
		}
	}
	return float64(n) / float64(len(agreements))
}

// similarityPattern buckets a structural score qualitatively.
func similarityPattern(overall float64) string {
	switch {
	case overall >= 0.9:
		return "identical"
	case overall >= 0.7:
		return "very_similar"
	case overall >= 0.5:
		return "similar"
	default:
		return "different"
	}
}
