package domain

import "strings"

// OpKind enumerates the closed set of step operations. Dispatch switches
// over this type exhaustively; an action string naming anything else is
// rejected when the operation is parsed, not deep inside dispatch.
type OpKind int

const (
	OpAnalyze OpKind = iota
	OpGenerateResponse
	OpGenerateReport
	OpToolCall
)

// Operation is the parsed form of a step's action string.
// Agent-level actions use the "agent." prefix; anything else is a tool
// invocation of the form "<tool>.<operation>".
type Operation struct {
	Kind   OpKind
	Tool   string // OpToolCall only
	ToolOp string // OpToolCall only
}

// ParseAction parses an action string into an Operation.
func ParseAction(action string) (Operation, error) {
	prefix, rest, ok := strings.Cut(action, ".")
	if !ok || prefix == "" || rest == "" {
		return Operation{}, Errorf(FailUnknownOperation, "",
			"malformed action %q: want \"agent.<operation>\" or \"<tool>.<operation>\"", action)
	}

	if prefix != "agent" {
		return Operation{Kind: OpToolCall, Tool: prefix, ToolOp: rest}, nil
	}

	switch rest {
	case "analyze":
		return Operation{Kind: OpAnalyze}, nil
	case "generate_response":
		return Operation{Kind: OpGenerateResponse}, nil
	case "generate_report":
		return Operation{Kind: OpGenerateReport}, nil
	default:
		return Operation{}, Errorf(FailUnknownOperation, "", "unknown agent operation: %s", rest)
	}
}
