package ports

import "context"

// ToolBridge executes qualified tool operations ("<tool>.<operation>")
// directly, bypassing the backend, when it advertises them. The adapter
// consumes only this two-operation surface plus Close.
type ToolBridge interface {
	ListTools(ctx context.Context) ([]string, error)
	CallTool(ctx context.Context, qualifiedName string, params map[string]any) (string, error)
	Close() error
}
