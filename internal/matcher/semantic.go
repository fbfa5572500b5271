package matcher

import (
	"sort"
	"strconv"

	"github.com/quailbyte/ruledup/internal/cache"
	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/textutil"
	"github.com/quailbyte/ruledup/internal/types"
	"github.com/quailbyte/ruledup/internal/vocab"
	"github.com/surgebase/porter2"
)

// SemanticMatcher scores concept, keyword, and domain overlap using
// the curated bilingual vocabulary. Dictionary-based on purpose:
// deterministic and auditable, with no model dependency. Runs second
// in the waterfall, when exact field comparison found nothing.
type SemanticMatcher struct {
	cfg   config.Semantic
	vocab *vocab.Vocabulary
	feats *cache.DetectionCache
}

// NewSemanticMatcher builds the matcher. feats caches extracted
// feature bundles and may be nil to disable caching; the matcher owns
// the cache once injected.
func NewSemanticMatcher(cfg config.Semantic, feats *cache.DetectionCache) *SemanticMatcher {
	return &SemanticMatcher{
		cfg:   cfg,
		vocab: vocab.Default(),
		feats: feats,
	}
}

func (m *SemanticMatcher) Name() types.StrategyName { return types.StrategySemantic }

// Match returns candidates clearing the overall threshold, the concept
// overlap floor, and sharing at least one concept, best first.
func (m *SemanticMatcher) Match(rule *types.Rule, candidates []*types.Rule) []types.MatchResult {
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
func (m *SemanticMatcher) ClearCache() {
	if m.feats != nil {
		m.feats.Clear()
	}
}

// Close stops the feature cache. Idempotent.
func (m *SemanticMatcher) Close() {
	if m.feats != nil {
		m.feats.Close()
	}
}

// CacheStats returns feature-cache statistics, or nil when caching is
// disabled.
func (m *SemanticMatcher) CacheStats() *cache.Stats {
	if m.feats == nil {
		return nil
	}
	s := m.feats.Stats()
	return &s
}

// semanticFeatures is one rule's derived concept bundle. Pure value,
// no back-reference to the source rule.
type semanticFeatures struct {
	concepts  map[string]struct{}
	keywords  map[string]struct{}
	domains   map[string]struct{}
	technical map[string]struct{}
	actions   map[string]struct{}
	objects   map[string]struct{}
	sentiment vocab.Sentiment
}

func (m *SemanticMatcher) features(rule *types.Rule) *semanticFeatures {
	var key string
	if m.feats != nil {
		key = featureKey(rule)
		if v, ok := m.feats.Get(key); ok {
			if f, ok := v.(*semanticFeatures); ok {
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

func (m *SemanticMatcher) extract(rule *types.Rule) *semanticFeatures {
	text := rule.Text()
	norm := textutil.Normalize(text)
	tokens := textutil.Tokenize(text)
	tokenSet := textutil.ToSet(tokens)

	f := &semanticFeatures{
		concepts:  textutil.ToSet(m.vocab.ConceptsIn(norm, tokenSet)),
		keywords:  textutil.ToSet(m.topKeywords(tokens)),
		domains:   textutil.ToSet(m.vocab.DomainsIn(norm, tokenSet)),
		technical: textutil.ToSet(m.vocab.TechnicalTermsIn(norm, tokenSet)),
		actions:   textutil.ToSet(m.vocab.ActionsIn(norm, tokenSet)),
		objects:   textutil.ToSet(m.vocab.ObjectsIn(norm, tokenSet)),
	}
	f.sentiment, _ = m.vocab.SentimentOf(norm, tokenSet)
	return f
}

// topKeywords selects the rule's most frequent content words after
// stop-word removal. Latin tokens are grouped by Porter2 stem so
// inflected forms count as one keyword, represented by their most
// frequent surface form. CJK bigrams pass through ungrouped.
func (m *SemanticMatcher) topKeywords(tokens []string) []string {
	type group struct {
		total    int
		surfaces map[string]int
	}
	groups := make(map[string]*group)
	for _, tok := range m.vocab.FilterStopWords(tokens) {
		key := tok
		if isLatinToken(tok) && len(tok) >= 3 {
			key = porter2.Stem(tok)
		}
		g := groups[key]
		if g == nil {
			g = &group{surfaces: make(map[string]int)}
			groups[key] = g
		}
		g.total++
		g.surfaces[tok]++
	}
	if len(groups) == 0 {
		return nil
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if groups[keys[i]].total != groups[keys[j]].total {
			return groups[keys[i]].total > groups[keys[j]].total
		}
		return keys[i] < keys[j]
	})
	if n := m.cfg.TopKeywords; n > 0 && len(keys) > n {
		keys = keys[:n]
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, topSurface(groups[k].surfaces))
	}
	sort.Strings(out)
	return out
}

func topSurface(surfaces map[string]int) string {
	best, bestN := "", -1
	for s, n := range surfaces {
		if n > bestN || (n == bestN && s < best) {
			best, bestN = s, n
		}
	}
	return best
}

func (m *SemanticMatcher) scoreCandidate(rule *types.Rule, src *semanticFeatures, cand *types.Rule) (result types.MatchResult, ok bool) {
	defer recoverCandidate(types.StrategySemantic, cand, &ok)

	if cand == nil || cand.ID == rule.ID {
		return result, false
	}
	tgt := m.features(cand)

	conceptSim := textutil.Jaccard(src.concepts, tgt.concepts)
	keywordSim := textutil.Jaccard(src.keywords, tgt.keywords)
	domainSim := textutil.Jaccard(src.domains, tgt.domains)
	technicalSim := textutil.Jaccard(src.technical, tgt.technical)
	actionSim := textutil.Jaccard(src.actions, tgt.actions)
	objectSim := textutil.Jaccard(src.objects, tgt.objects)
	contextual := (sentimentAgreement(src.sentiment, tgt.sentiment) + actionSim + objectSim) / 3

	overall := conceptSim*m.cfg.ConceptWeight +
		keywordSim*m.cfg.KeywordWeight +
		domainSim*m.cfg.DomainWeight +
		contextual*m.cfg.ContextualWeight +
		technicalSim*m.cfg.TechnicalWeight

	// The shared-concept requirement keeps two vocabulary-free rules
	// from matching on agreeing absence.
	sharedConcepts := textutil.Intersection(src.concepts, tgt.concepts)
	if overall < m.cfg.OverallThreshold || conceptSim < m.cfg.MinConceptOverlap || len(sharedConcepts) == 0 {
		return result, false
	}

	sharedKeywords := textutil.Intersection(src.keywords, tgt.keywords)
	confidence := textutil.Clamp(overall+0.1*conceptSim, 0, 0.95)

	result = types.MatchResult{
		RuleID:      cand.ID,
		RuleTitle:   cand.Title,
		Similarity:  textutil.Clamp01(overall),
		Confidence:  confidence,
		Explanation: "Shares concepts: " + joinList(sharedConcepts, maxDetailItems),
		MatchDetails: map[string]string{
			"shared_concepts":   joinList(sharedConcepts, maxDetailItems),
			"shared_keywords":   joinList(sharedKeywords, maxDetailItems),
			"concept_overlap":   formatFloat(conceptSim),
			"keyword_overlap":   formatFloat(keywordSim),
			"topic_match":       strconv.FormatBool(domainSim >= 0.6),
			"intent_similarity": formatFloat(actionSim),
			"domain_similarity": formatFloat(domainSim),
		},
	}
	return result, true
}

// sentimentAgreement scores prescriptive polarity: same label is full
// agreement, one neutral side is half, opposite polarity is none.
func sentimentAgreement(a, b vocab.Sentiment) float64 {
	switch {
	case a == b:
		return 1.0
	case a == vocab.SentimentNeutral || b == vocab.SentimentNeutral:
		return 0.5
	default:
		return 0.0
	}
}
