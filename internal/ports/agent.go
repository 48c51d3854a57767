package ports

import (
	"context"

	"github.com/stagehand-dev/stagehand/internal/domain"
)

// Agent is the uniform capability surface a workflow step invokes,
// regardless of which backend sits behind it.
//
// ExecuteStep is the containment boundary: it always returns a
// StepResult and never an error. The direct operations (Analyze,
// Generate, GenerateStream, CallTool) propagate failures to their
// caller instead.
//
// An agent does not serialize overlapping calls. Subprocess-mode calls
// each own an independent process; server-mode calls share one session,
// so ordering of overlapping requests is determined by the server.
// Callers needing strict ordering must serialize themselves.
type Agent interface {
	Name() string
	Capabilities() domain.Capabilities

	// Initialize is idempotent; a failed attempt leaves the agent
	// uninitialized so the caller may retry after fixing the environment.
	Initialize(ctx context.Context) error

	ExecuteStep(ctx context.Context, step *domain.Step, ec domain.Context) *domain.StepResult

	Analyze(ctx context.Context, prompt string, schema map[string]any) (any, error)
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStream yields text fragments. Backends without streaming
	// yield exactly one fragment holding the full result, so callers can
	// always iterate.
	GenerateStream(ctx context.Context, prompt string) (<-chan string, error)
	CallTool(ctx context.Context, tool, operation string, params map[string]any) (any, error)

	// Cleanup releases the session, any adapter-owned server process and
	// the tool bridge. Safe after a partially failed initialization.
	Cleanup(ctx context.Context) error
}
