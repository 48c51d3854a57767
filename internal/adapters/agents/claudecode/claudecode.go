// Package claudecode profiles the Claude Code CLI backend.
//
// Claude Code runs non-interactively via `claude -p <prompt>`, reads
// file context from its working directory, and carries native tool
// calling and MCP support. It speaks no server protocol, so the
// adapter always drives it as an ephemeral subprocess per call.
package claudecode

import (
	"github.com/stagehand-dev/stagehand/internal/agent"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/domain"
)

const Name = "claude-code"

func Profile() agent.Profile {
	return agent.Profile{
		Name:          Name,
		DefaultBinary: "claude",
		InstallHint:   "https://github.com/anthropics/claude-code",
		Capabilities: domain.Capabilities{
			Name:              Name,
			Version:           "0.1.0",
			Provider:          "anthropic",
			ToolCalling:       domain.ToolCallingNative,
			Reasoning:         domain.ReasoningAdvanced,
			Streaming:         true,
			CodeExecution:     true,
			FileCreation:      true,
			MCP:               domain.MCPNative,
			ExtendedReasoning: true,
			MultiTurn:         true,
			ContextWindow:     200000,
			WebSearch:         false,
		},
		RunArgs: func(model, prompt string, jsonFormat bool) []string {
			args := []string{"-p", prompt}
			if model != "" {
				args = append(args, "--model", model)
			}
			// Claude Code has no output-format flag for structured
			// replies; the schema instruction in the prompt does the work.
			return args
		},
	}
}

// New builds a Claude Code adapter.
func New(cfg config.AgentConfig, deps agent.Deps) *agent.Adapter {
	return agent.New(Profile(), cfg, deps)
}
