package toolkit

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes a function registry as MCP tools, so the same functions
// an agent advertises to its chat backend are callable by MCP clients.
type MCPServer struct {
	mcpServer *server.MCPServer
}

// NewMCPServer creates an MCP server publishing every function currently
// registered. Functions registered afterwards are not picked up.
func NewMCPServer(name, version string, registry *Registry) *MCPServer {
	s := &MCPServer{
		mcpServer: server.NewMCPServer(name, version),
	}
	for _, decl := range registry.Advertised() {
		fn, ok := registry.Lookup(decl.Function.Name)
		if !ok {
			continue
		}
		tool := mcp.NewToolWithRawSchema(fn.Name, fn.Description, json.RawMessage(fn.Schema))
		s.mcpServer.AddTool(tool, toolHandler(fn))
	}
	return s
}

// toolHandler adapts a registered function to the MCP tool-call contract:
// arguments are re-encoded to the JSON document actions expect, and action
// failures surface as tool errors, not protocol errors.
func toolHandler(fn Function) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		encoded, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := fn.Action(ctx, fn.Name, string(encoded))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

// ServeStdio starts the server on Stdio.
func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
