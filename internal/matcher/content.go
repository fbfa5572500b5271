package matcher

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/quailbyte/ruledup/internal/cache"
	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/textutil"
	"github.com/quailbyte/ruledup/internal/types"
	"github.com/quailbyte/ruledup/internal/vocab"
	"golang.org/x/sync/errgroup"
)

// Scales for closeness comparisons over small ratios.
const (
	specialRatioScale = 0.25
	techDensityScale  = 0.5
	topicWordCount    = 12
)

// evidenceFloor is the shared-content level at which style and layout
// agreement earn full credit.
const evidenceFloor = 0.15

// ContentMatcher runs the deepest analysis: character and word
// distributions, n-gram patterns, linguistic style, and document
// structure. Last and most expensive strategy in the waterfall, with
// the lowest filter bar.
type ContentMatcher struct {
	cfg   config.Content
	vocab *vocab.Vocabulary
	feats *cache.DetectionCache
}

// NewContentMatcher builds the matcher. feats caches extracted feature
// bundles and may be nil to disable caching; the matcher owns the
// cache once injected.
func NewContentMatcher(cfg config.Content, feats *cache.DetectionCache) *ContentMatcher {
	return &ContentMatcher{
		cfg:   cfg,
		vocab: vocab.Default(),
		feats: feats,
	}
}

func (m *ContentMatcher) Name() types.StrategyName { return types.StrategyContent }

// Match scores candidates in bounded concurrent batches and returns
// those clearing the overall threshold, best first. Batching bounds
// peak extraction cost; it is a throughput knob, not a correctness
// requirement.
func (m *ContentMatcher) Match(rule *types.Rule, candidates []*types.Rule) []types.MatchResult {
	if rule == nil || len(candidates) == 0 {
		return nil
	}
	if strings.TrimSpace(rule.Text()) == "" {
		// An empty rule matches nothing, rather than matching every
		// equally empty candidate.
		return nil
	}
	src := m.features(rule)

	limit := m.cfg.BatchSize
	if limit < 1 {
		limit = 1
	}
	scored := make([]types.MatchResult, len(candidates))
	kept := make([]bool, len(candidates))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, cand := range candidates {
		g.Go(func() error {
			if res, ok := m.scoreCandidate(rule, src, cand); ok {
				scored[i], kept[i] = res, true
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]types.MatchResult, 0, 4)
	for i, keep := range kept {
		if keep {
			results = append(results, scored[i])
		}
	}
	sortResults(results)
	return results
}

// ClearCache drops cached feature bundles.
func (m *ContentMatcher) ClearCache() {
	if m.feats != nil {
		m.feats.Clear()
	}
}

// Close stops the feature cache. Idempotent.
func (m *ContentMatcher) Close() {
	if m.feats != nil {
		m.feats.Close()
	}
}

// CacheStats returns feature-cache statistics, or nil when caching is
// disabled.
func (m *ContentMatcher) CacheStats() *cache.Stats {
	if m.feats == nil {
		return nil
	}
	s := m.feats.Stats()
	return &s
}

// contentFeatures is one rule's full content profile across the four
// sub-bundles: textual, linguistic, semantic, and structural.
type contentFeatures struct {
	charFreq     map[string]int
	wordFreq     map[string]int
	ngrams       map[string]int
	punct        map[string]int
	specialRatio float64
	wordCount    int

	language     string
	formality    vocab.Formality
	styleBucket  string
	techDensity  float64
	acronymRatio float64

	topics    map[string]struct{}
	domains   map[string]struct{}
	actions   map[string]struct{}
	concepts  map[string]struct{}
	sentiment float64

	shape        textutil.Shape
	codeExamples int
}

func (m *ContentMatcher) features(rule *types.Rule) *contentFeatures {
	var key string
	if m.feats != nil {
		key = featureKey(rule)
		if v, ok := m.feats.Get(key); ok {
			if f, ok := v.(*contentFeatures); ok {
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

func (m *ContentMatcher) extract(rule *types.Rule) *contentFeatures {
	text := rule.Text()
	norm := textutil.Normalize(text)
	tokens := textutil.Tokenize(text)
	tokenSet := textutil.ToSet(tokens)
	classes := textutil.CountCharClasses(text)

	f := &contentFeatures{
		charFreq:  textutil.CharFreq(text),
		wordFreq:  textutil.WordFreq(text),
		ngrams:    textutil.PruneMinFreq(textutil.CharNGrams(text, m.cfg.NGramSize), m.cfg.NGramMinFreq),
		punct:     punctuationSignature(text),
		wordCount: len(textutil.Words(text)),

		language:  classifyLanguage(classes),
		formality: m.vocab.FormalityOf(norm, tokenSet),

		topics:   textutil.ToSet(m.topicWords(tokens)),
		domains:  textutil.ToSet(m.vocab.DomainsIn(norm, tokenSet)),
		actions:  textutil.ToSet(m.vocab.ActionsIn(norm, tokenSet)),
		concepts: textutil.ToSet(m.vocab.ConceptsIn(norm, tokenSet)),

		shape: textutil.MeasureShape(rule.Description),
	}
	if classes.Total > 0 {
		f.specialRatio = float64(classes.Punct) / float64(classes.Total)
	}
	f.styleBucket = styleBucket(avgSentenceLength(text))
	_, f.sentiment = m.vocab.SentimentOf(norm, tokenSet)
	f.techDensity, f.acronymRatio = m.terminology(tokens)

	f.codeExamples = rule.Examples.Count() + f.shape.CodeFences
	if rule.SQLPattern != "" {
		f.codeExamples++
	}
	return f
}

func (m *ContentMatcher) scoreCandidate(rule *types.Rule, src *contentFeatures, cand *types.Rule) (result types.MatchResult, ok bool) {
	defer recoverCandidate(types.StrategyContent, cand, &ok)

	if cand == nil || cand.ID == rule.ID {
		return result, false
	}
	tgt := m.features(cand)

	// Textual: overlap of word, n-gram, and punctuation distributions.
	// Signals absent from both documents fall back to word overlap so
	// an empty dimension neither inflates nor deflates the score.
	wordSim := textutil.FreqJaccard(src.wordFreq, tgt.wordFreq)
	ngramSim := textutil.FreqJaccard(src.ngrams, tgt.ngrams)
	if len(src.ngrams) == 0 && len(tgt.ngrams) == 0 {
		ngramSim = wordSim
	}
	punctSim := textutil.FreqJaccard(src.punct, tgt.punct)
	if len(src.punct) == 0 && len(tgt.punct) == 0 {
		punctSim = wordSim
	}
	specialSim := textutil.Closeness(src.specialRatio, tgt.specialRatio, specialRatioScale)
	textualSim := 0.4*wordSim + 0.3*ngramSim + 0.2*punctSim + 0.1*specialSim

	conceptSim := textutil.OverlapStrict(src.concepts, tgt.concepts)
	gate := evidenceGate(wordSim, ngramSim, conceptSim)

	// Linguistic: how the rules are written. Gated by shared content;
	// same language and register is the base rate for one corpus, not
	// duplication evidence on its own.
	langSim := languageAgreement(src.language, tgt.language)
	formalitySim := formalityAgreement(src.formality, tgt.formality)
	styleSim := styleAgreement(src.styleBucket, tgt.styleBucket)
	termSim := (textutil.Closeness(src.techDensity, tgt.techDensity, techDensityScale) +
		textutil.RatioSimilarity(src.acronymRatio, tgt.acronymRatio)) / 2
	linguisticSim := gate * (0.3*langSim + 0.3*formalitySim + 0.2*styleSim + 0.2*termSim)

	// Semantic: set overlaps averaged over the dimensions with any
	// evidence; a dimension empty on both sides contributes nothing.
	semParts := make([]float64, 0, 5)
	if len(src.topics) > 0 || len(tgt.topics) > 0 {
		semParts = append(semParts, textutil.OverlapStrict(src.topics, tgt.topics))
	}
	if len(src.domains) > 0 || len(tgt.domains) > 0 {
		semParts = append(semParts, textutil.OverlapStrict(src.domains, tgt.domains))
	}
	if len(src.actions) > 0 || len(tgt.actions) > 0 {
		semParts = append(semParts, textutil.OverlapStrict(src.actions, tgt.actions))
	}
	if len(src.concepts) > 0 || len(tgt.concepts) > 0 {
		semParts = append(semParts, conceptSim)
	}
	if src.sentiment != 0 || tgt.sentiment != 0 {
		semParts = append(semParts, gate*textutil.Closeness(src.sentiment, tgt.sentiment, 2))
	}
	semanticSim := mean(semParts)

	structuralSim := m.shapeSimilarity(src, tgt, wordSim, gate)

	overall := textualSim*m.cfg.TextualWeight +
		linguisticSim*m.cfg.LinguisticWeight +
		semanticSim*m.cfg.SemanticWeight +
		structuralSim*m.cfg.StructuralWeight

	if overall < m.cfg.OverallThreshold {
		return result, false
	}

	simType := similarityType(overall)
	sims, diffs := m.keyFindings(src, tgt, wordSim, ngramSim, formalitySim, styleSim)

	// Confidence stays conservative; this is the last-resort strategy.
	result = types.MatchResult{
		RuleID:       cand.ID,
		RuleTitle:    cand.Title,
		Similarity:   textutil.Clamp01(overall),
		Confidence:   textutil.Clamp(overall, 0, 0.85),
		Explanation:  fmt.Sprintf("Content is %s (textual %.2f, semantic %.2f)", strings.ReplaceAll(simType, "_", " "), textualSim, semanticSim),
		MatchDetails: map[string]string{
			"similarity_type":       simType,
			"textual_similarity":    formatFloat(textualSim),
			"linguistic_similarity": formatFloat(linguisticSim),
			"semantic_similarity":   formatFloat(semanticSim),
			"structural_similarity": formatFloat(structuralSim),
			"key_similarities":      strings.Join(sims, "; "),
			"key_differences":       strings.Join(diffs, "; "),
		},
	}
	return result, true
}

// shapeSimilarity compares document layout. Two plain single-paragraph
// documents have no layout to compare, so lexical word overlap stands
// in; otherwise layout agreement is scaled by the evidence gate like
// the other style components.
func (m *ContentMatcher) shapeSimilarity(a, b *contentFeatures, wordSim, gate float64) float64 {
	if a.shape.Plain() && b.shape.Plain() && a.codeExamples == 0 && b.codeExamples == 0 {
		return wordSim
	}
	sim := (textutil.RatioSimilarity(float64(a.shape.Paragraphs), float64(b.shape.Paragraphs)) +
		textutil.RatioSimilarity(a.shape.AvgParaLen, b.shape.AvgParaLen) +
		textutil.Closeness(a.shape.BulletRatio(), b.shape.BulletRatio(), 1) +
		textutil.RatioSimilarity(float64(a.codeExamples), float64(b.codeExamples)) +
		textutil.RatioSimilarity(float64(a.shape.Links), float64(b.shape.Links))) / 5
	return gate * sim
}

// keyFindings derives the human-readable similarity and difference
// lists, best-effort, capped at the configured size.
func (m *ContentMatcher) keyFindings(src, tgt *contentFeatures, wordSim, ngramSim, formalitySim, styleSim float64) (sims, diffs []string) {
	if wordSim >= 0.7 {
		sims = append(sims, "largely shared vocabulary")
	} else if wordSim < 0.3 {
		diffs = append(diffs, "little shared vocabulary")
	}
	if ngramSim >= 0.7 {
		sims = append(sims, "matching phrasing patterns")
	}
	if textutil.FreqJaccard(src.charFreq, tgt.charFreq) >= 0.8 {
		sims = append(sims, "near-identical character distribution")
	}
	if src.language == tgt.language && src.language != "none" {
		sims = append(sims, "same language ("+src.language+")")
	} else if src.language != tgt.language {
		diffs = append(diffs, "different languages ("+src.language+" vs "+tgt.language+")")
	}
	if src.formality == tgt.formality && src.formality != vocab.FormalityNeutral {
		sims = append(sims, "same register")
	} else if formalitySim == 0 {
		diffs = append(diffs, "different register")
	}
	if styleSim == 0 && src.styleBucket != tgt.styleBucket {
		diffs = append(diffs, "different sentence rhythm")
	}
	if shared := textutil.Intersection(src.concepts, tgt.concepts); len(shared) > 0 {
		sims = append(sims, "shared concepts: "+joinList(shared, 3))
	} else if len(src.concepts) > 0 && len(tgt.concepts) > 0 {
		diffs = append(diffs, "no shared concepts")
	}
	if src.codeExamples > 0 && tgt.codeExamples > 0 {
		sims = append(sims, "both include code examples")
	} else if (src.codeExamples > 0) != (tgt.codeExamples > 0) {
		diffs = append(diffs, "only one rule includes code examples")
	}
	if textutil.RatioSimilarity(float64(src.wordCount), float64(tgt.wordCount)) < 0.5 {
		diffs = append(diffs, "very different lengths")
	}

	if max := m.cfg.MaxKeyItems; max > 0 {
		if len(sims) > max {
			sims = sims[:max]
		}
		if len(diffs) > max {
			diffs = diffs[:max]
		}
	}
	return sims, diffs
}

// topicWords selects the highest-frequency content words as topic
// markers. Plain frequency filtering stands in for TF-IDF; a single
// document has no corpus to weight against.
func (m *ContentMatcher) topicWords(tokens []string) []string {
	content := m.vocab.FilterStopWords(tokens)
	freq := make(map[string]int, len(content))
	for _, tok := range content {
		freq[tok]++
	}
	return textutil.TopKByFreq(freq, topicWordCount)
}

// terminology measures technical-word fraction over content tokens and
// acronym usage over latin tokens.
func (m *ContentMatcher) terminology(tokens []string) (techDensity, acronymRatio float64) {
	content := m.vocab.FilterStopWords(tokens)
	if len(content) == 0 {
		return 0, 0
	}
	tech, acronyms, latin := 0, 0, 0
	for _, tok := range content {
		if m.vocab.IsTechnicalTerm(tok) {
			tech++
		}
		if isLatinToken(tok) {
			latin++
			if m.vocab.IsAcronym(tok) {
				acronyms++
			}
		}
	}
	techDensity = float64(tech) / float64(len(content))
	if latin > 0 {
		acronymRatio = float64(acronyms) / float64(latin)
	}
	return techDensity, acronymRatio
}

// evidenceGate scales style and layout agreement by shared content.
// Language, register, rhythm, and paragraph shape agree for most pairs
// of short rules in one corpus; without shared vocabulary or concepts
// that agreement is base rate, not duplication evidence.
func evidenceGate(wordSim, ngramSim, conceptSim float64) float64 {
	e := wordSim
	if ngramSim > e {
		e = ngramSim
	}
	if conceptSim > e {
		e = conceptSim
	}
	return textutil.Clamp01(e / evidenceFloor)
}

// punctuationSignature is a frequency census of punctuation and symbol
// runes in the raw text.
func punctuationSignature(s string) map[string]int {
	sig := make(map[string]int)
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			sig[string(r)]++
		}
	}
	return sig
}

// classifyLanguage buckets text by the Han share of its letters.
func classifyLanguage(c textutil.CharClasses) string {
	letters := c.Han + c.Latin
	if letters == 0 {
		return "none"
	}
	hanRatio := float64(c.Han) / float64(letters)
	switch {
	case hanRatio >= 0.7:
		return "chinese"
	case hanRatio <= 0.3:
		return "english"
	default:
		return "mixed"
	}
}

func languageAgreement(a, b string) float64 {
	switch {
	case a == b:
		return 1.0
	case a == "mixed" || b == "mixed":
		return 0.5
	default:
		return 0.0
	}
}

func formalityAgreement(a, b vocab.Formality) float64 {
	switch {
	case a == b:
		return 1.0
	case a == vocab.FormalityNeutral || b == vocab.FormalityNeutral:
		return 0.5
	default:
		return 0.0
	}
}

func avgSentenceLength(text string) float64 {
	sentences := textutil.SplitSentences(text)
	if len(sentences) == 0 {
		return 0
	}
	return float64(len(textutil.Words(text))) / float64(len(sentences))
}

// styleBucket classifies writing rhythm by average sentence length in
// words. CJK characters each count as one word, so both sides of a
// comparison are measured on the same scale.
func styleBucket(avgSentenceLen float64) string {
	switch {
	case avgSentenceLen <= 0:
		return "empty"
	case avgSentenceLen < 10:
		return "concise"
	case avgSentenceLen <= 25:
		return "moderate"
	default:
		return "detailed"
	}
}

var styleOrder = map[string]int{"concise": 0, "moderate": 1, "detailed": 2}

// styleAgreement scores rhythm buckets: same is full, adjacent is
// half.
func styleAgreement(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ia, okA := styleOrder[a]
	ib, okB := styleOrder[b]
	if !okA || !okB {
		return 0.0
	}
	if ia-ib == 1 || ib-ia == 1 {
		return 0.5
	}
	return 0.0
}

// similarityType buckets a content score qualitatively.
func similarityType(overall float64) string {
	switch {
	case overall >= 0.9:
		return "identical"
	case overall >= 0.7:
		return "very_similar"
	case overall >= 0.5:
		return "similar"
	case overall >= 0.3:
		return "related"
	default:
		return "different"
	}
}
