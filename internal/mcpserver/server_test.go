package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/detector"
	"github.com/quailbyte/ruledup/internal/types"
	"github.com/quailbyte/ruledup/testhelpers"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	det, err := detector.New(nil)
	require.NoError(t, err)
	t.Cleanup(det.Close)
	srv, err := NewServer(det, config.Default())
	require.NoError(t, err)
	return srv
}

func indexRule() types.Rule {
	return testhelpers.NewRule("rule-idx-001").
		Title("SQL查询性能优化规则").
		Description("为经常查询的字段建立索引，避免全表扫描，提升查询性能。").
		Category(types.CategoryPerformance).
		Severity(types.SeverityHigh).
		SQLPattern("CREATE INDEX").
		Tags("index", "performance").
		Build()
}

func callRequest(t *testing.T, args any) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content should be text")
	require.NoError(t, json.Unmarshal([]byte(text.Text), out))
}

func mustWriteDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.Error(t, err, "nil detector must be rejected")

	det, err := detector.New(nil)
	require.NoError(t, err)
	t.Cleanup(det.Close)

	srv, err := NewServer(det, nil)
	require.NoError(t, err)
	require.NotNil(t, srv)
	assert.NotNil(t, srv.server, "Server should create an MCP server")
	assert.NotNil(t, srv.cfg, "nil config should fall back to defaults")
}

func TestHandleCheckDuplicate_ExactMatch(t *testing.T) {
	srv := newTestServer(t)
	srv.det.LoadExistingRules([]types.Rule{indexRule()})

	probe := indexRule()
	req := callRequest(t, checkDuplicateParams{
		ID:          "rule-idx-900",
		Title:       probe.Title,
		Description: probe.Description,
		Category:    string(probe.Category),
		Severity:    string(probe.Severity),
		SQLPattern:  probe.SQLPattern,
		Tags:        probe.Tags,
	})
	res, err := srv.handleCheckDuplicate(context.TODO(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)

	var verdict types.DuplicateResult
	decodeResult(t, res, &verdict)
	assert.True(t, verdict.IsDuplicate)
	assert.Equal(t, types.DuplicateExact, verdict.DuplicateType)
	assert.Greater(t, verdict.Similarity, 0.9)
	require.Len(t, verdict.MatchedRules, 1)
	assert.Equal(t, "rule-idx-001", verdict.MatchedRules[0].ID)
}

func TestHandleCheckDuplicate_MissingTitle(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleCheckDuplicate(context.TODO(), callRequest(t, map[string]any{"id": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	var payload map[string]any
	decodeResult(t, res, &payload)
	assert.Equal(t, false, payload["success"])
	assert.Contains(t, payload["error"], "title")
}

func TestHandleCheckDuplicate_MalformedArguments(t *testing.T) {
	srv := newTestServer(t)

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
		Arguments: json.RawMessage(`{"title": 42}`),
	}}
	res, err := srv.handleCheckDuplicate(context.TODO(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleLoadRules(t *testing.T) {
	srv := newTestServer(t)

	root := t.TempDir()
	mustWriteDoc(t, root, "performance/idx.md",
		testhelpers.NewRule("rule-1").Title("索引优化").Description("为高频查询字段建立索引。").Document())
	mustWriteDoc(t, root, "reliability/backup.md",
		testhelpers.NewRule("rule-2").Title("备份策略").Description("定期备份并保留30天。").Document())

	res, err := srv.handleLoadRules(context.TODO(), callRequest(t, loadRulesParams{Path: root}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var payload map[string]any
	decodeResult(t, res, &payload)
	assert.Equal(t, true, payload["success"])
	assert.EqualValues(t, 2, payload["loaded"])
	assert.Equal(t, 2, srv.det.Stats().PoolSize)
}

func TestHandleLoadRules_PartialFailures(t *testing.T) {
	srv := newTestServer(t)

	root := t.TempDir()
	mustWriteDoc(t, root, "good.md",
		testhelpers.NewRule("rule-ok").Title("正常规则").Description("内容。").Document())
	mustWriteDoc(t, root, "broken.md", "+++\nid = \"never-closed\"\n")

	res, err := srv.handleLoadRules(context.TODO(), callRequest(t, loadRulesParams{Path: root}))
	require.NoError(t, err)
	// Partial success still loads the parseable documents.
	require.False(t, res.IsError)

	var payload map[string]any
	decodeResult(t, res, &payload)
	assert.Equal(t, true, payload["success"])
	assert.EqualValues(t, 1, payload["loaded"])
	skipped, ok := payload["skipped"].([]any)
	require.True(t, ok, "skipped list should be present")
	assert.Len(t, skipped, 1)
}

func TestHandleLoadRules_MissingRoot(t *testing.T) {
	srv := newTestServer(t)

	absent := filepath.Join(t.TempDir(), "absent")
	res, err := srv.handleLoadRules(context.TODO(), callRequest(t, loadRulesParams{Path: absent}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleLoadRules_NoPathConfigured(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.Pool.Root = ""

	res, err := srv.handleLoadRules(context.TODO(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleGetStats(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleGetStats(context.TODO(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var payload struct {
		Stats  detector.DetectorStats `json:"stats"`
		Health detector.HealthStatus  `json:"health"`
	}
	decodeResult(t, res, &payload)
	assert.Equal(t, 0, payload.Stats.PoolSize)
	// An empty pool reports itself as degraded.
	assert.Equal(t, detector.StatusDegraded, payload.Health.Status)

	srv.det.LoadExistingRules([]types.Rule{indexRule()})
	res, err = srv.handleGetStats(context.TODO(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}})
	require.NoError(t, err)
	decodeResult(t, res, &payload)
	assert.Equal(t, 1, payload.Stats.PoolSize)
	assert.Equal(t, detector.StatusHealthy, payload.Health.Status)
}

func TestHandleClearCache(t *testing.T) {
	srv := newTestServer(t)
	srv.det.LoadExistingRules([]types.Rule{indexRule()})
	srv.det.CheckDuplicate(indexRule())

	res, err := srv.handleClearCache(context.TODO(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var payload map[string]any
	decodeResult(t, res, &payload)
	assert.Equal(t, true, payload["success"])
	if rc := srv.det.Stats().ResultCache; rc != nil {
		assert.Equal(t, 0, rc.Entries)
	}
}
