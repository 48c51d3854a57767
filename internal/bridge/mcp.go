// Package bridge connects an adapter to MCP tool servers. The protocol
// itself is the client library's problem; this package only exposes the
// two-operation surface the adapters consume.
package bridge

import (
	"context"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/domain"
	"github.com/stagehand-dev/stagehand/internal/ports"
)

// mcpClient is the slice of the MCP client the bridge uses. Narrowed so
// tests can substitute a fake without a live tool server.
type mcpClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// MCPBridge satisfies ports.ToolBridge over one MCP connection.
type MCPBridge struct {
	client mcpClient
}

// New connects and handshakes a bridge from configuration: a command
// spawns a stdio tool server, a URL subscribes to an SSE one.
func New(ctx context.Context, cfg *config.BridgeConfig) (*MCPBridge, error) {
	var c mcpClient
	if cfg.Command != "" {
		stdio, err := client.NewStdioMCPClient(cfg.Command, os.Environ(), cfg.Args...)
		if err != nil {
			return nil, domain.WrapErr(domain.FailEnvironment, "connecting tool bridge", err)
		}
		c = stdio
	} else {
		sse, err := client.NewSSEMCPClient(cfg.URL)
		if err != nil {
			return nil, domain.WrapErr(domain.FailEnvironment, "connecting tool bridge", err)
		}
		if err := sse.Start(ctx); err != nil {
			sse.Close()
			return nil, domain.WrapErr(domain.FailEnvironment, "connecting tool bridge", err)
		}
		c = sse
	}

	bridge := &MCPBridge{client: c}
	if err := bridge.handshake(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return bridge, nil
}

func (b *MCPBridge) handshake(ctx context.Context) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    "stagehand",
		Version: "0.1.0",
	}
	if _, err := b.client.Initialize(ctx, req); err != nil {
		return domain.WrapErr(domain.FailEnvironment, "initializing tool bridge", err)
	}
	return nil
}

// ListTools returns the qualified names the bridge can execute.
func (b *MCPBridge) ListTools(ctx context.Context) ([]string, error) {
	result, err := b.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, domain.WrapErr(domain.FailTransport, "listing bridge tools", err)
	}

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	return names, nil
}

// CallTool executes one qualified tool operation and returns the
// concatenated text content of the result.
func (b *MCPBridge) CallTool(ctx context.Context, qualifiedName string, params map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = qualifiedName
	req.Params.Arguments = params

	result, err := b.client.CallTool(ctx, req)
	if err != nil {
		return "", domain.WrapErr(domain.FailTransport, "calling bridge tool "+qualifiedName, err)
	}
	if result.IsError {
		return "", domain.Errorf(domain.FailTransport, "calling bridge tool "+qualifiedName,
			"tool reported an error: %s", textContent(result))
	}
	return textContent(result), nil
}

func (b *MCPBridge) Close() error {
	return b.client.Close()
}

func textContent(result *mcp.CallToolResult) string {
	var b strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

var _ ports.ToolBridge = (*MCPBridge)(nil)
