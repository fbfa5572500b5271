// Package testhelpers provides shared fixtures for tests: fluent
// builders for rules, rule documents, and configurations.
package testhelpers

import (
	"fmt"
	"strings"
	"time"

	"github.com/quailbyte/ruledup/internal/types"
)

// RuleBuilder assembles a Rule, or a whole rule document, without
// repeating every field in every test.
type RuleBuilder struct {
	rule types.Rule
}

// NewRule starts a builder for the given rule id. Other fields stay
// zero until set, so documents rendered from a sparse builder still
// exercise the parser's path-derived defaults.
func NewRule(id string) *RuleBuilder {
	return &RuleBuilder{rule: types.Rule{ID: id}}
}

func (b *RuleBuilder) Title(title string) *RuleBuilder {
	b.rule.Title = title
	return b
}

func (b *RuleBuilder) Description(desc string) *RuleBuilder {
	b.rule.Description = desc
	return b
}

func (b *RuleBuilder) Category(c types.Category) *RuleBuilder {
	b.rule.Category = c
	return b
}

func (b *RuleBuilder) Severity(s types.Severity) *RuleBuilder {
	b.rule.Severity = s
	return b
}

func (b *RuleBuilder) SQLPattern(pattern string) *RuleBuilder {
	b.rule.SQLPattern = pattern
	return b
}

func (b *RuleBuilder) Tags(tags ...string) *RuleBuilder {
	b.rule.Tags = append([]string{}, tags...)
	return b
}

func (b *RuleBuilder) CreatedAt(ts time.Time) *RuleBuilder {
	b.rule.CreatedAt = ts
	return b
}

func (b *RuleBuilder) BadExample(code string) *RuleBuilder {
	b.rule.Examples.Bad = append(b.rule.Examples.Bad, code)
	return b
}

func (b *RuleBuilder) GoodExample(code string) *RuleBuilder {
	b.rule.Examples.Good = append(b.rule.Examples.Good, code)
	return b
}

// Build returns the assembled rule. Slices are copied so the builder
// can keep being chained after Build.
func (b *RuleBuilder) Build() types.Rule {
	rule := b.rule
	rule.Tags = append([]string{}, b.rule.Tags...)
	rule.Examples.Bad = append([]string{}, b.rule.Examples.Bad...)
	rule.Examples.Good = append([]string{}, b.rule.Examples.Good...)
	return rule
}

// Document renders the rule as a markdown document with TOML front
// matter, ready to drop into a pool directory. Unset fields are left
// out so path-derived defaults still apply when the document is parsed
// back.
func (b *RuleBuilder) Document() string {
	var sb strings.Builder

	sb.WriteString("+++\n")
	if b.rule.ID != "" {
		fmt.Fprintf(&sb, "id = %q\n", b.rule.ID)
	}
	if b.rule.Title != "" {
		fmt.Fprintf(&sb, "title = %q\n", b.rule.Title)
	}
	if b.rule.Category != "" {
		fmt.Fprintf(&sb, "category = %q\n", b.rule.Category)
	}
	if b.rule.Severity != "" {
		fmt.Fprintf(&sb, "severity = %q\n", b.rule.Severity)
	}
	if len(b.rule.Tags) > 0 {
		quoted := make([]string, len(b.rule.Tags))
		for i, tag := range b.rule.Tags {
			quoted[i] = fmt.Sprintf("%q", tag)
		}
		fmt.Fprintf(&sb, "tags = [%s]\n", strings.Join(quoted, ", "))
	}
	if !b.rule.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "created = %s\n", b.rule.CreatedAt.UTC().Format(time.RFC3339))
	}
	sb.WriteString("+++\n\n")

	if b.rule.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", b.rule.Title)
	}
	if b.rule.Description != "" {
		sb.WriteString(b.rule.Description)
		sb.WriteString("\n")
	}
	if b.rule.SQLPattern != "" {
		fmt.Fprintf(&sb, "\n```sql\n%s\n```\n", b.rule.SQLPattern)
	}
	if len(b.rule.Examples.Bad) > 0 {
		sb.WriteString("\n## 反例\n")
		for _, code := range b.rule.Examples.Bad {
			fmt.Fprintf(&sb, "\n```sql\n%s\n```\n", code)
		}
	}
	if len(b.rule.Examples.Good) > 0 {
		sb.WriteString("\n## 正例\n")
		for _, code := range b.rule.Examples.Good {
			fmt.Fprintf(&sb, "\n```sql\n%s\n```\n", code)
		}
	}

	return sb.String()
}
