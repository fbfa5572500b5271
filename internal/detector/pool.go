package detector

import (
	"github.com/quailbyte/ruledup/internal/debug"
	"github.com/quailbyte/ruledup/internal/types"
)

// rulePool holds the loaded rules bucketed by category. Pools are
// immutable after construction; LoadExistingRules swaps in a fresh one.
type rulePool struct {
	byCategory map[types.Category][]*types.Rule
	byID       map[string]*types.Rule
	size       int
}

func emptyPool() *rulePool {
	return &rulePool{
		byCategory: map[types.Category][]*types.Rule{},
		byID:       map[string]*types.Rule{},
	}
}

// newRulePool copies the given rules into category buckets. Rules
// without an ID and rules repeating an already-seen ID are skipped,
// categories are normalized, and text fields are truncated to maxText
// runes before any matcher sees them.
func newRulePool(rules []types.Rule, maxText int) *rulePool {
	p := emptyPool()

	for i := range rules {
		if rules[i].ID == "" {
			debug.LogPool("skipping rule without id (title %q)\n", rules[i].Title)
			continue
		}
		if _, seen := p.byID[rules[i].ID]; seen {
			debug.LogPool("skipping duplicate rule id %s\n", rules[i].ID)
			continue
		}
		r := rules[i].Truncated(maxText)
		r.Category = types.ParseCategory(string(r.Category))
		p.byCategory[r.Category] = append(p.byCategory[r.Category], &r)
		p.byID[r.ID] = &r
		p.size++
	}

	return p
}

// candidates returns the pool's rules in the given category. Matching
// never crosses category boundaries; a rule in an unknown category is
// compared only against that same category.
func (p *rulePool) candidates(cat types.Category) []*types.Rule {
	return p.byCategory[cat]
}

// ref resolves a match back to the stored rule so the reference
// carries the pool's category, not whatever the match retained.
func (p *rulePool) ref(m types.MatchResult) types.RuleRef {
	if r, ok := p.byID[m.RuleID]; ok {
		return types.RuleRef{ID: r.ID, Title: r.Title, Category: r.Category, Similarity: m.Similarity}
	}
	return types.RuleRef{ID: m.RuleID, Title: m.RuleTitle, Similarity: m.Similarity}
}

// categoryCounts reports the number of loaded rules per category.
func (p *rulePool) categoryCounts() map[string]int {
	counts := make(map[string]int, len(p.byCategory))
	for cat, rules := range p.byCategory {
		counts[string(cat)] = len(rules)
	}
	return counts
}
