package matcher

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/quailbyte/ruledup/internal/cache"
	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/textutil"
	"github.com/quailbyte/ruledup/internal/types"
)

func newContentForTest() *ContentMatcher {
	return NewContentMatcher(config.Default().Content, nil)
}

func TestContentMatcher_IdenticalRule(t *testing.T) {
	m := newContentForTest()

	results := m.Match(indexRule(), []*types.Rule{indexRuleClone("rule-idx-copy")})
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}

	r := results[0]
	if r.Similarity < 0.9 {
		t.Errorf("identical content must land in the identical band, got %v", r.Similarity)
	}
	if r.MatchDetails["similarity_type"] != "identical" {
		t.Errorf("expected identical, got %s", r.MatchDetails["similarity_type"])
	}
	if r.Confidence > 0.85 {
		t.Errorf("content confidence is capped at 0.85, got %v", r.Confidence)
	}
}

// Unrelated rules in the same language score under the related band:
// shared language, register and paragraph shape alone are base rate,
// not evidence.
func TestContentMatcher_UnrelatedStaysLow(t *testing.T) {
	cfg := config.Default().Content
	cfg.OverallThreshold = 0
	m := NewContentMatcher(cfg, nil)

	results := m.Match(selectStarRule(), []*types.Rule{backupRule()})
	if len(results) != 1 {
		t.Fatalf("zero threshold must keep the candidate, got %d", len(results))
	}
	if sim := results[0].Similarity; sim >= 0.3 {
		t.Errorf("unrelated rules scored %v, want < 0.3", sim)
	}

	// At the default threshold the pair is filtered outright.
	if results := newContentForTest().Match(selectStarRule(), []*types.Rule{backupRule()}); len(results) != 0 {
		t.Errorf("unrelated rules must not clear the default filter, got %+v", results)
	}
}

func TestContentMatcher_ParaphraseSimilar(t *testing.T) {
	m := newContentForTest()

	results := m.Match(indexRule(), []*types.Rule{indexParaphraseRule()})
	if len(results) != 1 {
		t.Fatalf("paraphrased rule should clear the content filter, got %d results", len(results))
	}

	r := results[0]
	if r.Similarity < 0.5 {
		t.Errorf("paraphrase scored %v, want >= 0.5", r.Similarity)
	}
	simType := r.MatchDetails["similarity_type"]
	if simType != "similar" && simType != "very_similar" {
		t.Errorf("expected a mid-band similarity type, got %s", simType)
	}
	if !strings.Contains(r.MatchDetails["key_differences"], "only one rule includes code examples") {
		t.Errorf("one-sided SQL pattern should surface as a difference: %s", r.MatchDetails["key_differences"])
	}
}

func TestContentMatcher_KeyFindings(t *testing.T) {
	cfg := config.Default().Content
	cfg.OverallThreshold = 0
	m := NewContentMatcher(cfg, nil)

	// Both sides pure Chinese.
	results := m.Match(indexParaphraseRule(), []*types.Rule{backupRule()})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !strings.Contains(results[0].MatchDetails["key_similarities"], "same language (chinese)") {
		t.Errorf("shared language should be reported: %s", results[0].MatchDetails["key_similarities"])
	}

	// Mixed-script rule against an English one.
	results = m.Match(indexRule(), []*types.Rule{namingRule()})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !strings.Contains(results[0].MatchDetails["key_differences"], "different languages") {
		t.Errorf("language mismatch should be reported: %s", results[0].MatchDetails["key_differences"])
	}
}

func TestContentMatcher_KeyItemCap(t *testing.T) {
	cfg := config.Default().Content
	cfg.OverallThreshold = 0
	cfg.MaxKeyItems = 1
	m := NewContentMatcher(cfg, nil)

	results := m.Match(bulletedRule(), []*types.Rule{namingRule()})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	diffs := results[0].MatchDetails["key_differences"]
	if strings.Contains(diffs, ";") {
		t.Errorf("key items must be capped at 1, got %q", diffs)
	}
}

func TestContentMatcher_EmptyRule(t *testing.T) {
	m := newContentForTest()

	if results := m.Match(&types.Rule{ID: "rule-empty"}, []*types.Rule{backupRule()}); results != nil {
		t.Errorf("an empty rule matches nothing, got %+v", results)
	}
	if results := m.Match(backupRule(), []*types.Rule{{ID: "rule-empty"}}); len(results) != 0 {
		t.Errorf("an empty candidate never clears the filter, got %+v", results)
	}
}

// Batched and sequential scoring must produce identical ordered output.
func TestContentMatcher_BatchDeterminism(t *testing.T) {
	pool := []*types.Rule{
		indexRuleClone("rule-idx-copy"),
		indexParaphraseRule(),
		selectStarRule(),
		backupRule(),
		namingRule(),
		bulletedRule(),
	}

	cfg := config.Default().Content
	cfg.OverallThreshold = 0

	seqCfg := cfg
	seqCfg.BatchSize = 1
	batchCfg := cfg
	batchCfg.BatchSize = 8

	seq := NewContentMatcher(seqCfg, nil).Match(indexRule(), pool)
	batch := NewContentMatcher(batchCfg, nil).Match(indexRule(), pool)

	if len(seq) != len(pool) || len(batch) != len(pool) {
		t.Fatalf("zero threshold must keep all candidates: %d and %d", len(seq), len(batch))
	}
	for i := range seq {
		if seq[i].RuleID != batch[i].RuleID || seq[i].Similarity != batch[i].Similarity {
			t.Fatalf("batching changed result %d: %s/%v vs %s/%v",
				i, seq[i].RuleID, seq[i].Similarity, batch[i].RuleID, batch[i].Similarity)
		}
	}
}

func TestContentMatcher_FeatureCache(t *testing.T) {
	feats := cache.New(cache.Config{MaxEntries: 64, TTL: time.Minute})
	m := NewContentMatcher(config.Default().Content, feats)
	defer m.Close()

	pool := []*types.Rule{indexRuleClone("rule-idx-copy")}
	m.Match(indexRule(), pool)
	m.Match(indexRule(), pool)

	stats := m.CacheStats()
	if stats == nil || stats.Hits < 2 {
		t.Errorf("second call should reuse cached feature bundles, stats %+v", stats)
	}
}

func TestEvidenceGate(t *testing.T) {
	tests := []struct {
		word, ngram, concept float64
		want                 float64
	}{
		{0, 0, 0, 0},
		{evidenceFloor, 0, 0, 1},
		{0, evidenceFloor / 2, 0, 0.5},
		{0, 0, 1, 1},
		{1, 1, 1, 1},
	}
	for _, tt := range tests {
		if got := evidenceGate(tt.word, tt.ngram, tt.concept); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("evidenceGate(%v, %v, %v) = %v, want %v", tt.word, tt.ngram, tt.concept, got, tt.want)
		}
	}
}

func TestClassifyLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"数据库备份策略", "chinese"},
		{"create index on users", "english"},
		{"优化sql查询性能", "mixed"},
		{"123 !!", "none"},
		{"", "none"},
	}
	for _, tt := range tests {
		if got := classifyLanguage(textutil.CountCharClasses(tt.text)); got != tt.want {
			t.Errorf("classifyLanguage(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestStyleBuckets(t *testing.T) {
	buckets := map[float64]string{
		0:  "empty",
		5:  "concise",
		15: "moderate",
		30: "detailed",
	}
	for avg, want := range buckets {
		if got := styleBucket(avg); got != want {
			t.Errorf("styleBucket(%v) = %s, want %s", avg, got, want)
		}
	}

	if styleAgreement("concise", "concise") != 1.0 {
		t.Error("same bucket is full agreement")
	}
	if styleAgreement("concise", "moderate") != 0.5 {
		t.Error("adjacent buckets are half agreement")
	}
	if styleAgreement("concise", "detailed") != 0.0 {
		t.Error("distant buckets do not agree")
	}
	if styleAgreement("empty", "concise") != 0.0 {
		t.Error("empty text does not agree with prose")
	}
}

func TestPunctuationSignature(t *testing.T) {
	sig := punctuationSignature("避免使用SELECT *，应指定字段。")
	if sig["，"] != 1 || sig["。"] != 1 || sig["*"] != 1 {
		t.Errorf("signature missed expected marks: %+v", sig)
	}
	if len(punctuationSignature("无标点")) != 0 {
		t.Error("text without punctuation has an empty signature")
	}
}
