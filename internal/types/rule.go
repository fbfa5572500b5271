package types

import (
	"strings"
	"time"
)

// Input size limits applied before feature extraction
const (
	// DefaultMaxTextLength caps title/description length (in runes) before
	// any matcher sees the text. Edit distance is quadratic; unbounded
	// input would let a single pathological rule stall a detection call.
	DefaultMaxTextLength = 10000

	// DefaultMaxTags caps the number of tags considered per rule.
	DefaultMaxTags = 64
)

// Category is the rule's topical bucket. The set is open: unknown values
// pass through verbatim and form their own pool bucket.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
	CategoryStandards   Category = "standards"
	CategoryReliability Category = "reliability"
	CategoryDesign      Category = "design"
	CategoryGeneral     Category = "general"
)

// ParseCategory normalizes a raw category string. Unrecognized values are
// preserved lowercase so equality comparisons stay meaningful.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CategoryGeneral
	}
	return c
}

func (c Category) String() string { return string(c) }

// Severity is the rule's impact level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ParseSeverity normalizes a raw severity string, defaulting to medium.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

func (s Severity) String() string { return string(s) }

// Rank orders severities for display: critical=0 .. low=3, unknown=4.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Examples holds worked bad/good snippets attached to a rule.
type Examples struct {
	Bad  []string `json:"bad,omitempty"`
	Good []string `json:"good,omitempty"`
}

// Count returns the total number of examples.
func (e Examples) Count() int { return len(e.Bad) + len(e.Good) }

// Rule is an immutable textual rule supplied by the caller. ID is unique
// within a pool. Title and Description may be empty but are never
// semantically absent; Go zero values already guarantee that.
type Rule struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    Category       `json:"category"`
	Severity    Severity       `json:"severity"`
	SQLPattern  string         `json:"sql_pattern,omitempty"`
	Examples    Examples       `json:"examples,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Text returns the rule's full comparable text: title, description and SQL
// pattern joined by newlines. Matchers that only need one field read it
// directly; this is for whole-rule statistics.
func (r Rule) Text() string {
	var b strings.Builder
	b.Grow(len(r.Title) + len(r.Description) + len(r.SQLPattern) + 2)
	b.WriteString(r.Title)
	if r.Description != "" {
		b.WriteByte('\n')
		b.WriteString(r.Description)
	}
	if r.SQLPattern != "" {
		b.WriteByte('\n')
		b.WriteString(r.SQLPattern)
	}
	return b.String()
}

// Truncated returns a copy with text fields capped at maxRunes runes.
// Feature extraction runs on the truncated copy so adversarially long
// input cannot trigger quadratic blow-ups downstream.
func (r Rule) Truncated(maxRunes int) Rule {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxTextLength
	}
	r.Title = truncateRunes(r.Title, maxRunes)
	r.Description = truncateRunes(r.Description, maxRunes)
	r.SQLPattern = truncateRunes(r.SQLPattern, maxRunes)
	if len(r.Tags) > DefaultMaxTags {
		r.Tags = r.Tags[:DefaultMaxTags]
	}
	return r
}

func truncateRunes(s string, maxRunes int) string {
	if len(s) <= maxRunes {
		// Byte length bounds rune length, cheap fast path.
		return s
	}
	runes := 0
	for i := range s {
		if runes == maxRunes {
			return s[:i]
		}
		runes++
	}
	return s
}

// RuleRef is the lightweight reference to a matched pool rule carried in
// DuplicateResult.
type RuleRef struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Category   Category `json:"category"`
	Similarity float64  `json:"similarity"`
}
