// Package vocab holds the curated bilingual dictionaries the similarity
// strategies draw on: SQL/database concepts, technical terms, action
// verbs, rule objects, domain triggers, sentiment and formality word
// lists, and stop words. The default vocabulary is built once and shared
// read-only across all matcher instances.
package vocab

import (
	"sort"
	"strings"
	"sync"

	"github.com/quailbyte/ruledup/internal/textutil"
)

// Sentiment is the prescriptive polarity of rule text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Formality is the register bucket of rule text.
type Formality string

const (
	FormalityFormal   Formality = "formal"
	FormalityInformal Formality = "informal"
	FormalityNeutral  Formality = "neutral"
)

// Vocabulary is an immutable set of curated term tables. Methods take the
// normalized text plus its token set so callers tokenize once per rule,
// not once per lookup.
type Vocabulary struct {
	concepts       map[string][]string
	technicalTerms []string
	actions        []string
	objects        []string
	domainTriggers map[string][]string
	positive       []string
	negative       []string
	formal         []string
	informal       []string
	stopWords      map[string]struct{}
	acronyms       map[string]struct{}

	// Sorted concept and domain names, computed once so extraction
	// output order never depends on map iteration.
	conceptNames []string
	domainNames  []string

	technicalSet map[string]struct{}
}

var (
	defaultVocab     *Vocabulary
	defaultVocabOnce sync.Once
)

// Default returns the built-in vocabulary. The build runs once; every
// matcher shares the same instance without synchronization because the
// tables are never written after construction.
func Default() *Vocabulary {
	defaultVocabOnce.Do(func() {
		defaultVocab = build()
	})
	return defaultVocab
}

func build() *Vocabulary {
	v := &Vocabulary{
		concepts:       defaultConcepts,
		technicalTerms: defaultTechnicalTerms,
		actions:        defaultActions,
		objects:        defaultObjects,
		domainTriggers: defaultDomainTriggers,
		positive:       defaultPositiveWords,
		negative:       defaultNegativeWords,
		formal:         defaultFormalWords,
		informal:       defaultInformalWords,
		stopWords:      textutil.ToSet(defaultStopWords),
		acronyms:       textutil.ToSet(defaultAcronyms),
	}
	v.conceptNames = make([]string, 0, len(v.concepts))
	for name := range v.concepts {
		v.conceptNames = append(v.conceptNames, name)
	}
	sort.Strings(v.conceptNames)

	v.domainNames = make([]string, 0, len(v.domainTriggers))
	for name := range v.domainTriggers {
		v.domainNames = append(v.domainNames, name)
	}
	sort.Strings(v.domainNames)

	v.technicalSet = textutil.ToSet(v.technicalTerms)
	return v
}

// termPresent reports whether a dictionary term occurs in the rule text.
// Terms containing CJK runes or spaces match by substring containment on
// the normalized text; plain latin terms match the token set, so "scan"
// does not fire inside "scanner".
func termPresent(term, norm string, tokens map[string]struct{}) bool {
	if strings.ContainsRune(term, ' ') || containsCJK(term) {
		return strings.Contains(norm, term)
	}
	_, ok := tokens[term]
	return ok
}

func containsCJK(s string) bool {
	for _, r := range s {
		if textutil.IsCJK(r) {
			return true
		}
	}
	return false
}

// IsStopWord reports whether a token is a stop word.
func (v *Vocabulary) IsStopWord(token string) bool {
	_, ok := v.stopWords[token]
	return ok
}

// FilterStopWords returns tokens with stop words removed, preserving order.
func (v *Vocabulary) FilterStopWords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !v.IsStopWord(t) {
			out = append(out, t)
		}
	}
	return out
}

// ConceptsIn returns the sorted canonical concepts whose trigger terms
// occur in the text.
func (v *Vocabulary) ConceptsIn(norm string, tokens map[string]struct{}) []string {
	var out []string
	for _, name := range v.conceptNames {
		for _, term := range v.concepts[name] {
			if termPresent(term, norm, tokens) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// TechnicalTermsIn returns the sorted SQL syntax terms present in the text.
func (v *Vocabulary) TechnicalTermsIn(norm string, tokens map[string]struct{}) []string {
	return matchSorted(v.technicalTerms, norm, tokens)
}

// ActionsIn returns the sorted action verbs present in the text.
func (v *Vocabulary) ActionsIn(norm string, tokens map[string]struct{}) []string {
	return matchSorted(v.actions, norm, tokens)
}

// ObjectsIn returns the sorted rule objects present in the text.
func (v *Vocabulary) ObjectsIn(norm string, tokens map[string]struct{}) []string {
	return matchSorted(v.objects, norm, tokens)
}

func matchSorted(terms []string, norm string, tokens map[string]struct{}) []string {
	var out []string
	for _, term := range terms {
		if termPresent(term, norm, tokens) {
			out = append(out, term)
		}
	}
	sort.Strings(out)
	return out
}

// DomainsIn classifies the text into coarse domains by trigger terms,
// sorted for deterministic output.
func (v *Vocabulary) DomainsIn(norm string, tokens map[string]struct{}) []string {
	var out []string
	for _, name := range v.domainNames {
		for _, term := range v.domainTriggers[name] {
			if termPresent(term, norm, tokens) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// SentimentOf labels the text's prescriptive polarity and returns a score
// in [-1,1]: +1 purely encouraging, -1 purely prohibiting, 0 balanced or
// no signal.
func (v *Vocabulary) SentimentOf(norm string, tokens map[string]struct{}) (Sentiment, float64) {
	pos := countPresent(v.positive, norm, tokens)
	neg := countPresent(v.negative, norm, tokens)
	if pos == 0 && neg == 0 {
		return SentimentNeutral, 0
	}
	score := float64(pos-neg) / float64(pos+neg)
	switch {
	case pos > neg:
		return SentimentPositive, score
	case neg > pos:
		return SentimentNegative, score
	default:
		return SentimentNeutral, score
	}
}

// FormalityOf labels the text's register.
func (v *Vocabulary) FormalityOf(norm string, tokens map[string]struct{}) Formality {
	formal := countPresent(v.formal, norm, tokens)
	informal := countPresent(v.informal, norm, tokens)
	switch {
	case formal > informal:
		return FormalityFormal
	case informal > formal:
		return FormalityInformal
	default:
		return FormalityNeutral
	}
}

func countPresent(terms []string, norm string, tokens map[string]struct{}) int {
	n := 0
	for _, term := range terms {
		if termPresent(term, norm, tokens) {
			n++
		}
	}
	return n
}

// IsTechnicalTerm reports whether a single token is in the technical
// term table. Multi-word terms never match one token.
func (v *Vocabulary) IsTechnicalTerm(token string) bool {
	_, ok := v.technicalSet[token]
	return ok
}

// IsAcronym reports whether a token is a known technical acronym.
func (v *Vocabulary) IsAcronym(token string) bool {
	_, ok := v.acronyms[strings.ToLower(token)]
	return ok
}

// ConceptCount returns the size of the concept table, for stats output.
func (v *Vocabulary) ConceptCount() int { return len(v.concepts) }
