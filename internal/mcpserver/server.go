// Package mcpserver exposes the duplicate detector over the Model
// Context Protocol. Four tools cover the engine surface: check a
// candidate rule, reload the pool, read statistics, clear caches. All
// responses are JSON text content so clients can post-process verdicts.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/debug"
	"github.com/quailbyte/ruledup/internal/detector"
	ruleduperrors "github.com/quailbyte/ruledup/internal/errors"
	"github.com/quailbyte/ruledup/internal/ruledoc"
	"github.com/quailbyte/ruledup/internal/types"
	"github.com/quailbyte/ruledup/internal/version"
)

// Server wires a shared Detector behind an MCP server.
type Server struct {
	det    *detector.Detector
	cfg    *config.Config
	server *mcp.Server
}

// NewServer builds the tool surface over det. The caller owns the
// detector's lifecycle and should Close it after Start returns.
func NewServer(det *detector.Detector, cfg *config.Config) (*Server, error) {
	if det == nil {
		return nil, fmt.Errorf("mcpserver: nil detector")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		det: det,
		cfg: cfg,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "ruledup-mcp-server",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s, nil
}

// Start serves MCP over stdio until ctx is cancelled. Debug output is
// forced off stdio for the duration; the transport owns stdout.
func (s *Server) Start(ctx context.Context) error {
	debug.SetMCPMode(true)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "check_duplicate",
		Description: "Check a candidate rule against the loaded pool. Returns the duplicate verdict with similarity, confidence, matched rules, and per-strategy match details.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"id": {
					Type:        "string",
					Description: "Rule id (optional for probe checks)",
				},
				"title": {
					Type:        "string",
					Description: "Rule title",
				},
				"description": {
					Type:        "string",
					Description: "Rule description text",
				},
				"category": {
					Type:        "string",
					Description: "performance, security, standards, reliability, design or general",
				},
				"severity": {
					Type:        "string",
					Description: "critical, high, medium or low",
				},
				"sql_pattern": {
					Type:        "string",
					Description: "Representative SQL fragment for the rule",
				},
				"tags": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Free-form tags",
				},
			},
			Required: []string{"title"},
		},
	}, s.handleCheckDuplicate)

	s.server.AddTool(&mcp.Tool{
		Name:        "load_rules",
		Description: "Scan a rules directory and replace the detector's pool with its documents. Defaults to the configured pool root.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "Pool directory (defaults to pool.root from configuration)",
				},
			},
		},
	}, s.handleLoadRules)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_stats",
		Description: "Detector statistics: pool size per category, check counters, strategy fire counts, cache hit rates, and health status.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleGetStats)

	s.server.AddTool(&mcp.Tool{
		Name:        "clear_cache",
		Description: "Drop all cached verdicts and feature bundles. The rule pool itself is kept.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleClearCache)
}

// checkDuplicateParams mirrors the rule fields a client submits.
type checkDuplicateParams struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Severity    string   `json:"severity"`
	SQLPattern  string   `json:"sql_pattern"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleCheckDuplicate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params checkDuplicateParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult("check_duplicate", fmt.Errorf("invalid parameters: %w", err))
		}
	}
	if strings.TrimSpace(params.Title) == "" {
		return errorResult("check_duplicate", errors.New("title is required"))
	}

	rule := types.Rule{
		ID:          params.ID,
		Title:       params.Title,
		Description: params.Description,
		Category:    types.ParseCategory(params.Category),
		Severity:    types.ParseSeverity(params.Severity),
		SQLPattern:  params.SQLPattern,
		Tags:        params.Tags,
	}
	res := s.det.CheckDuplicate(rule)
	debug.LogMCP("check_duplicate %q -> %s %.2f\n", rule.Title, res.DuplicateType, res.Similarity)
	return jsonResult(res)
}

type loadRulesParams struct {
	Path string `json:"path"`
}

func (s *Server) handleLoadRules(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params loadRulesParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult("load_rules", fmt.Errorf("invalid parameters: %w", err))
		}
	}
	root := strings.TrimSpace(params.Path)
	if root == "" {
		root = s.cfg.Pool.Root
	}
	if root == "" {
		return errorResult("load_rules", errors.New("no path given and pool.root is not configured"))
	}

	start := time.Now()
	rules, scanErr := ruledoc.Scan(root, ruledoc.OptionsFromConfig(s.cfg))
	var merr *ruleduperrors.MultiError
	if scanErr != nil && !errors.As(scanErr, &merr) {
		return errorResult("load_rules", scanErr)
	}
	s.det.LoadExistingRules(rules)

	stats := s.det.Stats()
	payload := map[string]any{
		"success":    true,
		"root":       root,
		"loaded":     stats.PoolSize,
		"categories": stats.Categories,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}
	if merr != nil && merr.HasErrors() {
		skipped := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			skipped = append(skipped, e.Error())
		}
		payload["skipped"] = skipped
	}
	debug.LogMCP("load_rules %s -> %d rules\n", root, stats.PoolSize)
	return jsonResult(payload)
}

func (s *Server) handleGetStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"stats":  s.det.Stats(),
		"health": s.det.HealthCheck(),
	})
}

func (s *Server) handleClearCache(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.det.ClearCache()
	debug.LogMCP("clear_cache\n")
	return jsonResult(map[string]any{
		"success": true,
		"message": "verdict and feature caches cleared",
	})
}
