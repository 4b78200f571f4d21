// Package mcpserver exposes the tool registry as an MCP server.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"agentsmith/internal/agent"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New registers every tool of registry on a new MCP server. Calls go through
// Registry.Invoke, so argument validation matches agent runs.
func New(registry *agent.Registry, version string) (*server.MCPServer, error) {
	s := server.NewMCPServer("agentsmith", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, spec := range registry.Specs() {
		schema, err := json.Marshal(spec.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encoding schema of %s: %w", spec.Name, err)
		}
		tool := mcp.NewToolWithRawSchema(spec.Name, spec.Description, schema)
		s.AddTool(tool, callTool(registry, spec.Name))
	}
	return s, nil
}

// ServeStdio serves MCP over the given streams until ctx is cancelled or in
// is closed.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// callTool returns tool failures as error results so the client model can
// see them. Only unknown tools are protocol errors.
func callTool(registry *agent.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("arguments are not valid JSON"), nil
		}

		out, err := registry.Invoke(ctx, name, raw)
		if err != nil {
			var unknown *agent.UnknownToolError
			if errors.As(err, &unknown) {
				return nil, err
			}
			slog.Info("mcpserver: tool returned error", "tool", name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}
