package ruledoc

import (
	"errors"
	"strings"
	"testing"
	"time"

	ruleduperrors "github.com/quailbyte/ruledup/internal/errors"
	"github.com/quailbyte/ruledup/internal/types"
)

const fullDoc = "+++\n" +
	"id = \"rule-idx-001\"\n" +
	"title = \"SQL查询性能优化规则\"\n" +
	"category = \"performance\"\n" +
	"severity = \"high\"\n" +
	"tags = [\"index\", \"performance\"]\n" +
	"created = 2025-03-10T08:00:00Z\n" +
	"updated = 2025-03-12T08:00:00Z\n" +
	"\n" +
	"[metadata]\n" +
	"author = \"dba-team\"\n" +
	"+++\n" +
	"\n" +
	"# SQL查询性能优化规则\n" +
	"\n" +
	"为经常查询的字段建立索引，避免全表扫描，提升查询性能。\n" +
	"\n" +
	"```sql\n" +
	"CREATE INDEX idx_user_name ON users(name);\n" +
	"```\n" +
	"\n" +
	"## Bad\n" +
	"\n" +
	"```sql\n" +
	"SELECT * FROM users WHERE name = 'x';\n" +
	"```\n" +
	"\n" +
	"## Good\n" +
	"\n" +
	"```sql\n" +
	"SELECT id, name FROM users WHERE name = 'x';\n" +
	"```\n"

func TestParse_FullDocument(t *testing.T) {
	rule, err := Parse("performance/rule-idx-001.md", []byte(fullDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rule.ID != "rule-idx-001" {
		t.Errorf("ID = %q", rule.ID)
	}
	if rule.Title != "SQL查询性能优化规则" {
		t.Errorf("Title = %q", rule.Title)
	}
	if rule.Category != types.CategoryPerformance {
		t.Errorf("Category = %q", rule.Category)
	}
	if rule.Severity != types.SeverityHigh {
		t.Errorf("Severity = %q", rule.Severity)
	}
	if rule.Description != "为经常查询的字段建立索引，避免全表扫描，提升查询性能。" {
		t.Errorf("Description = %q", rule.Description)
	}
	if rule.SQLPattern != "CREATE INDEX idx_user_name ON users(name);" {
		t.Errorf("SQLPattern = %q", rule.SQLPattern)
	}
	if len(rule.Examples.Bad) != 1 || !strings.Contains(rule.Examples.Bad[0], "SELECT *") {
		t.Errorf("Examples.Bad = %v", rule.Examples.Bad)
	}
	if len(rule.Examples.Good) != 1 || !strings.Contains(rule.Examples.Good[0], "id, name") {
		t.Errorf("Examples.Good = %v", rule.Examples.Good)
	}
	if len(rule.Tags) != 2 || rule.Tags[0] != "index" {
		t.Errorf("Tags = %v", rule.Tags)
	}
	wantCreated := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	if !rule.CreatedAt.Equal(wantCreated) {
		t.Errorf("CreatedAt = %v, want %v", rule.CreatedAt, wantCreated)
	}
	if rule.Metadata["author"] != "dba-team" {
		t.Errorf("Metadata = %v", rule.Metadata)
	}
}

func TestParse_DefaultsWithoutFrontMatter(t *testing.T) {
	doc := "# 数据库备份策略\n\n定期备份数据库，备份文件至少保留30天。\n"
	rule, err := Parse("reliability/backup-policy.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rule.ID != "backup-policy" {
		t.Errorf("ID = %q, want backup-policy", rule.ID)
	}
	if rule.Title != "数据库备份策略" {
		t.Errorf("Title = %q", rule.Title)
	}
	if rule.Category != types.CategoryReliability {
		t.Errorf("Category = %q", rule.Category)
	}
	if rule.Severity != types.SeverityMedium {
		t.Errorf("Severity = %q", rule.Severity)
	}
	if rule.Description != "定期备份数据库，备份文件至少保留30天。" {
		t.Errorf("Description = %q", rule.Description)
	}
	if !rule.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, want zero", rule.CreatedAt)
	}
}

func TestParse_RootDocumentFallsBackToGeneral(t *testing.T) {
	rule, err := Parse("note.md", []byte("# 备注\n\n内容。\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rule.Category != types.CategoryGeneral {
		t.Errorf("Category = %q, want general", rule.Category)
	}
	if rule.ID != "note" {
		t.Errorf("ID = %q, want note", rule.ID)
	}
}

func TestParse_FrontMatterOverridesPathAndHeading(t *testing.T) {
	doc := "+++\n" +
		"title = \"真正的标题\"\n" +
		"category = \"security\"\n" +
		"+++\n" +
		"# 正文里的标题\n\n描述。\n"
	rule, err := Parse("design/whatever.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rule.Title != "真正的标题" {
		t.Errorf("Title = %q", rule.Title)
	}
	if rule.Category != types.CategorySecurity {
		t.Errorf("Category = %q", rule.Category)
	}
	// The h1 is scaffolding either way and never counts as description.
	if strings.Contains(rule.Description, "正文里的标题") {
		t.Errorf("Description kept the heading: %q", rule.Description)
	}
}

func TestParse_UnterminatedFrontMatter(t *testing.T) {
	_, err := Parse("broken.md", []byte("+++\nid = \"x\"\n"))
	var perr *ruleduperrors.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if perr.Path != "broken.md" {
		t.Errorf("Path = %q", perr.Path)
	}
}

func TestParse_MalformedTOML(t *testing.T) {
	doc := "+++\nid = [unclosed\n+++\n\n正文。\n"
	_, err := Parse("bad-toml.md", []byte(doc))
	var perr *ruleduperrors.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if perr.Path != "bad-toml.md" || perr.Line == 0 {
		t.Errorf("Path = %q, Line = %d", perr.Path, perr.Line)
	}
}

func TestParse_DelimiterWithoutNewlineIsBody(t *testing.T) {
	rule, err := Parse("odd.md", []byte("+++inline text\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rule.Description != "+++inline text" {
		t.Errorf("Description = %q", rule.Description)
	}
}

func TestParse_FrontMatterOnly(t *testing.T) {
	rule, err := Parse("bare.md", []byte("+++\nid = \"rule-bare\"\n+++"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rule.ID != "rule-bare" {
		t.Errorf("ID = %q", rule.ID)
	}
	if rule.Description != "" || rule.Title != "" {
		t.Errorf("body fields populated: title %q, description %q", rule.Title, rule.Description)
	}
}

func TestParse_UnmarkedFenceStaysInDescription(t *testing.T) {
	doc := "说明文字。\n\n```\nplain block\n```\n"
	rule, err := Parse("general/misc.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rule.SQLPattern != "" {
		t.Errorf("SQLPattern = %q, want empty", rule.SQLPattern)
	}
	if !strings.Contains(rule.Description, "plain block") || !strings.Contains(rule.Description, "```") {
		t.Errorf("Description = %q", rule.Description)
	}
}

func TestParse_SecondSQLFenceStaysInDescription(t *testing.T) {
	doc := "```sql\nSELECT 1;\n```\n\n补充说明。\n\n```sql\nSELECT 2;\n```\n"
	rule, err := Parse("general/two-fences.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rule.SQLPattern != "SELECT 1;" {
		t.Errorf("SQLPattern = %q, want first fence", rule.SQLPattern)
	}
	if !strings.Contains(rule.Description, "SELECT 2;") {
		t.Errorf("Description = %q, want second fence kept", rule.Description)
	}
}

func TestParse_ChineseExampleHeadings(t *testing.T) {
	doc := "规则描述。\n\n" +
		"## 反例\n\n```sql\nSELECT * FROM t;\n```\n\n" +
		"## 正例\n\n```sql\nSELECT id FROM t;\n```\n"
	rule, err := Parse("standards/cn.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rule.Examples.Bad) != 1 || rule.Examples.Bad[0] != "SELECT * FROM t;" {
		t.Errorf("Examples.Bad = %v", rule.Examples.Bad)
	}
	if len(rule.Examples.Good) != 1 || rule.Examples.Good[0] != "SELECT id FROM t;" {
		t.Errorf("Examples.Good = %v", rule.Examples.Good)
	}
	// Example fences never double as the SQL pattern.
	if rule.SQLPattern != "" {
		t.Errorf("SQLPattern = %q, want empty", rule.SQLPattern)
	}
}

func TestParse_ExampleSectionEndsAtNextHeading(t *testing.T) {
	doc := "描述。\n\n" +
		"## Bad\n\n这段话只是点评。\n\n```sql\nSELECT *;\n```\n\n" +
		"## 适用范围\n\n所有OLTP库。\n"
	rule, err := Parse("performance/scoped.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rule.Examples.Bad) != 1 {
		t.Fatalf("Examples.Bad = %v", rule.Examples.Bad)
	}
	if strings.Contains(rule.Description, "点评") {
		t.Errorf("Description kept example commentary: %q", rule.Description)
	}
	if !strings.Contains(rule.Description, "适用范围") || !strings.Contains(rule.Description, "所有OLTP库。") {
		t.Errorf("Description lost the following section: %q", rule.Description)
	}
}

func TestParse_UnterminatedFenceDegrades(t *testing.T) {
	doc := "前文。\n```sql\nSELECT 1;\n"
	rule, err := Parse("general/open-fence.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rule.SQLPattern != "" {
		t.Errorf("SQLPattern = %q, want empty", rule.SQLPattern)
	}
	if !strings.Contains(rule.Description, "SELECT 1;") {
		t.Errorf("Description = %q", rule.Description)
	}
}
