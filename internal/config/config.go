package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Execution modes. Auto probes the server once and falls back to CLI.
const (
	ModeAuto   = "auto"
	ModeCLI    = "cli"
	ModeServer = "server"
)

// BridgeConfig configures the optional MCP tool bridge. Either Command
// (stdio transport) or URL (SSE transport) must be set, not both.
type BridgeConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	URL     string   `toml:"url"`
}

func (b *BridgeConfig) validate(agent string) error {
	if b.Command == "" && b.URL == "" {
		return fmt.Errorf("agent %q: tool_bridge needs either command or url", agent)
	}
	if b.Command != "" && b.URL != "" {
		return fmt.Errorf("agent %q: tool_bridge command and url are mutually exclusive", agent)
	}
	return nil
}

// AgentConfig holds the per-backend settings. Every field is named and
// has a documented default; unknown keys in the file are rejected at load.
type AgentConfig struct {
	// Mode selects the transport: auto, cli or server. Default auto.
	Mode string `toml:"mode"`
	// Binary overrides the backend executable looked up on PATH.
	Binary string `toml:"binary"`
	// Model passed to the backend when it accepts one.
	Model string `toml:"model"`
	// TimeoutSeconds bounds one subprocess call and the HTTP client.
	// Default 300.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// WorkingDir is the subprocess working directory, for backends that
	// read file context from it. Default: the current directory.
	WorkingDir string `toml:"working_dir"`
	// ServerURL is the base URL of a running backend server.
	ServerURL string `toml:"server_url"`
	// ServerAutostart spawns the server when unreachable in server mode.
	ServerAutostart bool `toml:"server_autostart"`

	ToolBridge *BridgeConfig `toml:"tool_bridge"`
}

// Timeout returns the per-call timeout with the default applied.
func (a AgentConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type Config struct {
	DefaultAgent string                 `toml:"default_agent"`
	Agents       map[string]AgentConfig `toml:"agents"`
}

func defaults() Config {
	return Config{
		DefaultAgent: "opencode",
		Agents:       map[string]AgentConfig{},
	}
}

// Agent returns the named agent's configuration, defaulted when the
// file carries no block for it.
func (c *Config) Agent(name string) AgentConfig {
	cfg := c.Agents[name]
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	return cfg
}

// Load reads a TOML configuration file. A missing file yields defaults.
// Keys the schema does not recognize are an error, never silently kept.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("parsing %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for name, agent := range c.Agents {
		switch agent.Mode {
		case "", ModeAuto, ModeCLI, ModeServer:
		default:
			return fmt.Errorf("agent %q: invalid mode %q (want auto, cli or server)", name, agent.Mode)
		}
		if agent.TimeoutSeconds < 0 {
			return fmt.Errorf("agent %q: timeout_seconds must not be negative", name)
		}
		if agent.ToolBridge != nil {
			if err := agent.ToolBridge.validate(name); err != nil {
				return err
			}
		}
	}
	return nil
}
