// Package textutil provides the shared text primitives the similarity
// strategies build on: normalization, Chinese/English tokenization,
// n-gram and frequency maps, set similarity, and edit-distance wrappers.
// Everything here is pure and allocation-conscious; matchers call these
// functions on every candidate comparison.
package textutil

import (
	"strings"
	"unicode"
)

// minLatinToken drops one-letter latin fragments ("a", "x") that carry no
// signal for set similarity.
const minLatinToken = 2

// IsCJK reports whether r belongs to the CJK ranges the tokenizer treats
// as Chinese text. Han covers the vast majority of rule text; the
// punctuation blocks are excluded on purpose.
func IsCJK(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

func isLatinWordRune(r rune) bool {
	return r == '_' || unicode.IsDigit(r) ||
		(unicode.IsLetter(r) && !IsCJK(r))
}

// Normalize lowercases, strips punctuation except CJK and alphanumerics,
// and collapses whitespace runs to single spaces.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	wrote := false
	for _, r := range strings.ToLower(s) {
		switch {
		case isLatinWordRune(r) || IsCJK(r):
			if pendingSpace && wrote {
				b.WriteByte(' ')
			}
			pendingSpace = false
			wrote = true
			b.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// Tokenize returns similarity tokens for mixed Chinese/English text:
// lowercase latin word runs (length >= 2) and overlapping CJK character
// bigrams. Bigrams are the standard shingling heuristic for unsegmented
// Chinese; multi-character dictionary terms are matched separately by
// containment, not through this tokenizer.
func Tokenize(s string) []string {
	var tokens []string
	var latin, cjk []rune

	flushLatin := func() {
		if len(latin) >= minLatinToken {
			tokens = append(tokens, string(latin))
		}
		latin = latin[:0]
	}
	flushCJK := func() {
		switch {
		case len(cjk) == 1:
			tokens = append(tokens, string(cjk))
		case len(cjk) > 1:
			for i := 0; i+1 < len(cjk); i++ {
				tokens = append(tokens, string(cjk[i:i+2]))
			}
		}
		cjk = cjk[:0]
	}

	for _, r := range strings.ToLower(s) {
		switch {
		case IsCJK(r):
			flushLatin()
			cjk = append(cjk, r)
		case isLatinWordRune(r):
			flushCJK()
			latin = append(latin, r)
		default:
			flushLatin()
			flushCJK()
		}
	}
	flushLatin()
	flushCJK()
	return tokens
}

// Words returns counting units for length statistics: each latin run is
// one word, each CJK character is one word. Unlike Tokenize it never
// merges or drops anything, so word counts stay stable for readability
// and richness metrics.
func Words(s string) []string {
	var words []string
	var latin []rune

	flushLatin := func() {
		if len(latin) > 0 {
			words = append(words, string(latin))
		}
		latin = latin[:0]
	}

	for _, r := range strings.ToLower(s) {
		switch {
		case IsCJK(r):
			flushLatin()
			words = append(words, string(r))
		case isLatinWordRune(r):
			latin = append(latin, r)
		default:
			flushLatin()
		}
	}
	flushLatin()
	return words
}

// sentenceEnders terminate a sentence in either language.
const sentenceEnders = ".!?。！？"

// SplitSentences splits text on terminal punctuation (both ASCII and
// fullwidth), treating runs of enders as one boundary. Returned sentences
// are trimmed and non-empty.
func SplitSentences(s string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}
	for _, r := range s {
		if strings.ContainsRune(sentenceEnders, r) {
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return out
}

// CharClasses is a character-class census of a string, used for language
// classification and special-character ratios.
type CharClasses struct {
	Han   int
	Latin int
	Digit int
	Space int
	Punct int
	Other int
	Total int
}

// CountCharClasses tallies runes by class.
func CountCharClasses(s string) CharClasses {
	var c CharClasses
	for _, r := range s {
		c.Total++
		switch {
		case IsCJK(r):
			c.Han++
		case unicode.IsLetter(r):
			c.Latin++
		case unicode.IsDigit(r):
			c.Digit++
		case unicode.IsSpace(r):
			c.Space++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			c.Punct++
		default:
			c.Other++
		}
	}
	return c
}

// RuneLen returns the rune count of s.
func RuneLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
