package textutil

import "strings"

// Shape is a layout census of rule text: paragraphs, bullet lines,
// fenced code blocks, and link references. Structural and content
// comparisons consume it; the extraction walks the text once.
type Shape struct {
	Paragraphs  int
	Lines       int // non-blank lines
	BulletLines int
	CodeFences  int // paired ``` fences
	Links       int
	AvgParaLen  float64 // mean words per paragraph, fenced code excluded
}

// BulletRatio returns the fraction of non-blank lines that are bullets.
func (s Shape) BulletRatio() float64 {
	if s.Lines == 0 {
		return 0
	}
	return float64(s.BulletLines) / float64(s.Lines)
}

// Plain reports whether the text has no layout features beyond a single
// paragraph. Comparing the shape of two plain documents carries no
// signal, so callers fall back to lexical overlap for them.
func (s Shape) Plain() bool {
	return s.Paragraphs <= 1 && s.BulletLines == 0 && s.CodeFences == 0 && s.Links == 0
}

// MeasureShape walks the text line by line. Paragraphs are runs of
// non-blank lines; fenced code lines count toward Lines but not toward
// bullets or paragraph word totals.
func MeasureShape(s string) Shape {
	var sh Shape
	fenceMarkers := 0
	inFence := false
	paraWords := 0
	totalParaWords := 0

	closePara := func() {
		if paraWords > 0 {
			sh.Paragraphs++
			totalParaWords += paraWords
			paraWords = 0
		}
	}

	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			closePara()
			continue
		}
		sh.Lines++
		if strings.HasPrefix(trimmed, "```") {
			fenceMarkers++
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if isBulletLine(trimmed) {
			sh.BulletLines++
		}
		paraWords += len(Words(trimmed))
	}
	closePara()

	sh.CodeFences = fenceMarkers / 2
	if sh.Paragraphs > 0 {
		sh.AvgParaLen = float64(totalParaWords) / float64(sh.Paragraphs)
	}
	sh.Links = countLinks(s)
	return sh
}

var bulletPrefixes = []string{"- ", "* ", "+ ", "• "}

func isBulletLine(line string) bool {
	for _, p := range bulletPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	// Numbered list markers: "1. " or "1) " with up to three digits.
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i > 3 || i+1 >= len(line) {
		return false
	}
	return (line[i] == '.' || line[i] == ')') && line[i+1] == ' '
}

// countLinks counts link references: markdown link bodies and bare
// URLs. Taking the max avoids double-counting "[t](https://x)" which
// contains both markers.
func countLinks(s string) int {
	md := strings.Count(s, "](")
	bare := strings.Count(s, "http://") + strings.Count(s, "https://")
	if bare > md {
		return bare
	}
	return md
}
