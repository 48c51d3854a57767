package domain

// ToolCalling describes how a backend executes tool calls.
type ToolCalling string

const (
	ToolCallingNative  ToolCalling = "native"
	ToolCallingBridged ToolCalling = "bridged"
	ToolCallingNone    ToolCalling = "none"
)

// Reasoning is the backend's reasoning tier.
type Reasoning string

const (
	ReasoningAdvanced       Reasoning = "advanced"
	ReasoningModelDependent Reasoning = "model_dependent"
	ReasoningBasic          Reasoning = "basic"
)

// MCPSupport describes how a backend reaches MCP tool servers.
type MCPSupport string

const (
	MCPNative MCPSupport = "native"
	MCPBridge MCPSupport = "bridge"
	MCPBoth   MCPSupport = "both"
	MCPNone   MCPSupport = "none"
)

// Capabilities is an immutable descriptor of what a backend supports.
// Constructed once per backend profile and never mutated afterwards.
type Capabilities struct {
	Name              string      `json:"name"`
	Version           string      `json:"version"`
	Provider          string      `json:"provider"`
	ToolCalling       ToolCalling `json:"tool_calling"`
	Reasoning         Reasoning   `json:"reasoning"`
	Streaming         bool        `json:"streaming"`
	CodeExecution     bool        `json:"code_execution"`
	FileCreation      bool        `json:"file_creation"`
	MCP               MCPSupport  `json:"mcp"`
	ExtendedReasoning bool        `json:"extended_reasoning"`
	MultiTurn         bool        `json:"multi_turn"`
	ContextWindow     int         `json:"context_window"`
	WebSearch         bool        `json:"web_search"`
}

// Supports answers feature-lookup queries by name.
func (c Capabilities) Supports(feature string) bool {
	switch feature {
	case "tool_calling":
		return c.ToolCalling != ToolCallingNone
	case "streaming":
		return c.Streaming
	case "code_execution":
		return c.CodeExecution
	case "file_creation":
		return c.FileCreation
	case "mcp":
		return c.MCP != MCPNone
	case "extended_reasoning":
		return c.ExtendedReasoning
	case "multi_turn":
		return c.MultiTurn
	case "web_search":
		return c.WebSearch
	default:
		return false
	}
}
