package detector

import (
	"testing"
	"time"

	"github.com/quailbyte/ruledup/internal/types"
)

// Fixtures modeled on database review guidelines, mirroring the pairs
// the matcher tests use: an index rule, a near-identical clone, and an
// unrelated backup rule.

func sqlIndexRule() types.Rule {
	return types.Rule{
		ID:          "rule-idx-001",
		Title:       "SQL查询性能优化规则",
		Description: "为经常查询的字段建立索引，避免全表扫描，提升查询性能。",
		Category:    types.CategoryPerformance,
		Severity:    types.SeverityHigh,
		SQLPattern:  "CREATE INDEX",
		Tags:        []string{"index", "performance"},
		CreatedAt:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func dbBackupRule() types.Rule {
	return types.Rule{
		ID:          "rule-bak-001",
		Title:       "数据库备份策略",
		Description: "定期备份数据库，备份文件至少保留30天。",
		Category:    types.CategoryReliability,
		Severity:    types.SeverityMedium,
		Tags:        []string{"backup"},
		CreatedAt:   time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC),
	}
}

func selectStarRule() types.Rule {
	return types.Rule{
		ID:          "rule-sel-001",
		Title:       "避免使用SELECT *查询",
		Description: "使用SELECT *会读取不需要的列，应明确指定需要的字段。",
		Category:    types.CategoryPerformance,
		Severity:    types.SeverityHigh,
		SQLPattern:  "SELECT \\*",
		Tags:        []string{"select", "performance"},
		CreatedAt:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewRulePool_BucketsByCategory(t *testing.T) {
	pool := newRulePool([]types.Rule{
		sqlIndexRule(),
		selectStarRule(),
		dbBackupRule(),
	}, types.DefaultMaxTextLength)

	if pool.size != 3 {
		t.Fatalf("size = %d, want 3", pool.size)
	}
	if got := len(pool.candidates(types.CategoryPerformance)); got != 2 {
		t.Errorf("performance candidates = %d, want 2", got)
	}
	if got := len(pool.candidates(types.CategoryReliability)); got != 1 {
		t.Errorf("reliability candidates = %d, want 1", got)
	}
	if got := len(pool.candidates(types.CategorySecurity)); got != 0 {
		t.Errorf("security candidates = %d, want 0", got)
	}
}

func TestNewRulePool_SkipsMissingAndDuplicateIDs(t *testing.T) {
	noID := sqlIndexRule()
	noID.ID = ""
	repeat := selectStarRule()
	repeat.ID = dbBackupRule().ID

	pool := newRulePool([]types.Rule{dbBackupRule(), noID, repeat}, types.DefaultMaxTextLength)

	if pool.size != 1 {
		t.Fatalf("size = %d, want 1", pool.size)
	}
	if got := pool.byID["rule-bak-001"]; got == nil || got.Title != "数据库备份策略" {
		t.Errorf("first rule with the id must win, got %+v", got)
	}
}

func TestNewRulePool_NormalizesCategory(t *testing.T) {
	raw := sqlIndexRule()
	raw.Category = " Performance "
	blank := dbBackupRule()
	blank.Category = ""

	pool := newRulePool([]types.Rule{raw, blank}, types.DefaultMaxTextLength)

	if got := len(pool.candidates(types.CategoryPerformance)); got != 1 {
		t.Errorf("mixed-case category not normalized, performance bucket = %d", got)
	}
	if got := len(pool.candidates(types.CategoryGeneral)); got != 1 {
		t.Errorf("empty category not defaulted, general bucket = %d", got)
	}
}

func TestNewRulePool_TruncatesText(t *testing.T) {
	long := sqlIndexRule()
	for len(long.Description) < 4000 {
		long.Description += long.Description
	}

	pool := newRulePool([]types.Rule{long}, 100)

	stored := pool.byID[long.ID]
	if stored == nil {
		t.Fatal("rule not stored")
	}
	if n := len([]rune(stored.Description)); n > 100 {
		t.Errorf("description kept %d runes, want <= 100", n)
	}
}

func TestNewRulePool_CopiesRules(t *testing.T) {
	rules := []types.Rule{sqlIndexRule()}
	pool := newRulePool(rules, types.DefaultMaxTextLength)

	rules[0].Title = "mutated"

	if got := pool.byID["rule-idx-001"].Title; got != "SQL查询性能优化规则" {
		t.Errorf("pool shares memory with caller slice, title = %q", got)
	}
}

func TestRulePool_Ref(t *testing.T) {
	pool := newRulePool([]types.Rule{sqlIndexRule()}, types.DefaultMaxTextLength)

	known := pool.ref(types.MatchResult{RuleID: "rule-idx-001", Similarity: 0.8})
	if known.Category != types.CategoryPerformance || known.Title == "" {
		t.Errorf("ref for known id missing pool fields: %+v", known)
	}
	if known.Similarity != 0.8 {
		t.Errorf("ref similarity = %v, want 0.8", known.Similarity)
	}

	unknown := pool.ref(types.MatchResult{RuleID: "ghost", RuleTitle: "gone", Similarity: 0.5})
	if unknown.ID != "ghost" || unknown.Title != "gone" {
		t.Errorf("ref for unknown id should echo the match: %+v", unknown)
	}
}
