package agents_test

import (
	"testing"

	"github.com/stagehand-dev/stagehand/internal/adapters/agents"
	"github.com/stagehand-dev/stagehand/internal/agent"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_KnownBackends(t *testing.T) {
	for _, name := range []string{"claude-code", "opencode"} {
		ag, err := agents.New(name, config.AgentConfig{}, agent.Deps{})
		require.NoError(t, err, name)
		assert.Equal(t, name, ag.Name())
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := agents.New("copilot", config.AgentConfig{}, agent.Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown agent "copilot"`)
	assert.Contains(t, err.Error(), "claude-code, opencode")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"claude-code", "opencode"}, agents.Names())
}
