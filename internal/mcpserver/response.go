package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// jsonResult wraps data as a single JSON text content block.
func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// errorResult reports a tool failure inside the result object with
// IsError set, per the MCP convention that keeps failures visible to
// the calling model instead of surfacing as protocol errors.
func errorResult(operation string, err error) (*mcp.CallToolResult, error) {
	res, merr := jsonResult(map[string]any{
		"success":   false,
		"operation": operation,
		"error":     err.Error(),
	})
	if merr != nil {
		return nil, merr
	}
	res.IsError = true
	return res, nil
}
