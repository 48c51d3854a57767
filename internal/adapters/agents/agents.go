// Package agents registers the known backend profiles behind a factory.
package agents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stagehand-dev/stagehand/internal/adapters/agents/claudecode"
	"github.com/stagehand-dev/stagehand/internal/adapters/agents/opencode"
	"github.com/stagehand-dev/stagehand/internal/agent"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/ports"
)

var profiles = map[string]func() agent.Profile{
	claudecode.Name: claudecode.Profile,
	opencode.Name:   opencode.Profile,
}

// New builds the named backend's adapter.
func New(name string, cfg config.AgentConfig, deps agent.Deps) (ports.Agent, error) {
	profile, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return agent.New(profile(), cfg, deps), nil
}

// Names lists the registered backends.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
