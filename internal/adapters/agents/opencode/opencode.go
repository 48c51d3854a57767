// Package opencode profiles the OpenCode backend, which speaks both a
// non-interactive CLI (`opencode run`) and a session server with SSE
// streaming (`opencode serve`). Model and provider configuration is
// delegated entirely to the user's OpenCode config.
package opencode

import (
	"fmt"

	"github.com/stagehand-dev/stagehand/internal/agent"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/domain"
)

const (
	Name             = "opencode"
	defaultServerURL = "http://localhost:4096"
)

func Profile() agent.Profile {
	return agent.Profile{
		Name:          Name,
		DefaultBinary: "opencode",
		InstallHint:   "https://github.com/opencode-ai/opencode",
		Capabilities: domain.Capabilities{
			Name:              Name,
			Version:           "0.1.0",
			Provider:          "open_source",
			ToolCalling:       domain.ToolCallingBridged,
			Reasoning:         domain.ReasoningModelDependent,
			Streaming:         true, // server mode only
			CodeExecution:     true,
			FileCreation:      true,
			MCP:               domain.MCPBoth,
			ExtendedReasoning: false,
			MultiTurn:         true,
			ContextWindow:     100000, // model dependent
			WebSearch:         false,
		},
		RunArgs: func(model, prompt string, jsonFormat bool) []string {
			args := []string{"run", prompt}
			if model != "" {
				args = append(args, "--model", model)
			}
			if jsonFormat {
				args = append(args, "--format", "json")
			}
			return args
		},
		ServerSupported:  true,
		DefaultServerURL: defaultServerURL,
		ServeArgs: func(port string) []string {
			return []string{"serve", "--port", port, "--print-logs"}
		},
		StartHint: func(binary, port string) string {
			return fmt.Sprintf("%s serve --port %s", binary, port)
		},
	}
}

// New builds an OpenCode adapter.
func New(cfg config.AgentConfig, deps agent.Deps) *agent.Adapter {
	return agent.New(Profile(), cfg, deps)
}
