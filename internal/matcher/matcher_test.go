package matcher

import (
	"math"
	"testing"
	"time"

	"github.com/quailbyte/ruledup/internal/types"
)

// Fixture rules modeled on database review guidelines. The index pair
// is near-identical, the paraphrase shares meaning but little exact
// phrasing, and the backup rule shares nothing with the query rules
// beyond language.

func indexRule() *types.Rule {
	return &types.Rule{
		ID:          "rule-idx-001",
		Title:       "优化SQL查询性能",
		Description: "为经常查询的字段建立索引，避免全表扫描，提升查询性能。",
		Category:    types.CategoryPerformance,
		Severity:    types.SeverityHigh,
		SQLPattern:  "CREATE INDEX",
		Tags:        []string{"index", "performance"},
		CreatedAt:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func indexRuleClone(id string) *types.Rule {
	r := indexRule()
	r.ID = id
	return r
}

func indexParaphraseRule() *types.Rule {
	return &types.Rule{
		ID:          "rule-idx-002",
		Title:       "为常用查询字段建立索引",
		Description: "频繁查询的字段应当建立索引，防止全表扫描影响查询性能。",
		Category:    types.CategoryPerformance,
		Severity:    types.SeverityHigh,
		Tags:        []string{"index"},
		CreatedAt:   time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
	}
}

func selectStarRule() *types.Rule {
	return &types.Rule{
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

func backupRule() *types.Rule {
	return &types.Rule{
		ID:          "rule-bak-001",
		Title:       "数据库备份策略",
		Description: "定期备份数据库，备份文件至少保留30天。",
		Category:    types.CategoryReliability,
		Severity:    types.SeverityMedium,
		Tags:        []string{"backup"},
		CreatedAt:   time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC),
	}
}

func bulletedRule() *types.Rule {
	return &types.Rule{
		ID:    "rule-fmt-001",
		Title: "事务使用规范",
		Description: "长事务会放大锁竞争，遵循以下约定：\n\n" +
			"- 事务内禁止远程调用\n" +
			"- 单个事务影响行数不超过1000\n" +
			"- 必须显式设置隔离级别\n\n" +
			"示例：\n\n" +
			"```sql\nSET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED;\n```\n\n" +
			"参考 https://example.com/tx-guide 获取完整说明。",
		Category:  types.CategoryReliability,
		Severity:  types.SeverityHigh,
		Tags:      []string{"transaction", "lock"},
		CreatedAt: time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC),
	}
}

func namingRule() *types.Rule {
	return &types.Rule{
		ID:          "rule-std-001",
		Title:       "Use snake_case for table names",
		Description: "Table and column names must use lowercase snake_case so generated queries stay portable.",
		Category:    types.CategoryStandards,
		Severity:    types.SeverityLow,
		Tags:        []string{"naming"},
		CreatedAt:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSortResults_Deterministic(t *testing.T) {
	results := []types.MatchResult{
		{RuleID: "b", Similarity: 0.8},
		{RuleID: "a", Similarity: 0.8},
		{RuleID: "c", Similarity: 0.9},
	}
	sortResults(results)

	want := []string{"c", "a", "b"}
	for i, id := range want {
		if results[i].RuleID != id {
			t.Fatalf("position %d: got %s, want %s", i, results[i].RuleID, id)
		}
	}
}

func TestFeatureKey_TracksContent(t *testing.T) {
	a := indexRule()
	b := indexRule()
	if featureKey(a) != featureKey(b) {
		t.Error("identical rules must share a feature key")
	}

	b.Description += " 附加说明"
	if featureKey(a) == featureKey(b) {
		t.Error("editing rule text must change the feature key")
	}

	c := indexRuleClone("rule-idx-099")
	if featureKey(a) == featureKey(c) {
		t.Error("different ids must not share a feature key")
	}
}

func TestRecoverCandidate_SwallowsPanic(t *testing.T) {
	ok := true
	func() {
		defer recoverCandidate(types.StrategyExact, indexRule(), &ok)
		panic("extraction blew up")
	}()
	if ok {
		t.Error("recovered candidate must report ok=false")
	}
}

func TestJoinList(t *testing.T) {
	if got := joinList([]string{"a", "b", "c", "d"}, 2); got != "a, b (+2 more)" {
		t.Errorf("joinList = %q", got)
	}
	if got := joinList([]string{"a", "b"}, 3); got != "a, b" {
		t.Errorf("joinList below cap = %q", got)
	}
	if joinList(nil, 3) != "" {
		t.Error("empty list renders empty")
	}
}

func TestMean(t *testing.T) {
	if mean(nil) != 0 {
		t.Error("mean of nothing is 0")
	}
	if got := mean([]float64{0.2, 0.4}); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("mean = %v", got)
	}
}

func TestIsLatinToken(t *testing.T) {
	if !isLatinToken("select") || isLatinToken("查询") || isLatinToken("sql查询") {
		t.Error("latin token classification is wrong")
	}
}
