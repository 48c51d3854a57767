package agent

import "github.com/stagehand-dev/stagehand/internal/domain"

// Profile describes one backend: its capabilities, how to invoke its
// CLI, and whether it speaks the server protocol. The adapter core is
// backend-agnostic; profiles carry everything backend-specific.
type Profile struct {
	Name          string
	Capabilities  domain.Capabilities
	DefaultBinary string
	InstallHint   string

	// RunArgs builds the argv (after the binary) for one non-interactive
	// CLI invocation. jsonFormat is set when structured output was
	// requested; backends without a format flag ignore it.
	RunArgs func(model, prompt string, jsonFormat bool) []string

	// Server protocol support. Zero values mean CLI-only.
	ServerSupported  bool
	DefaultServerURL string
	// ServeArgs builds the argv (after the binary) that starts the
	// server on the given port.
	ServeArgs func(port string) []string
	// StartHint is the exact command named in the error when the server
	// is unreachable and autostart is disabled.
	StartHint func(binary, port string) string
}
