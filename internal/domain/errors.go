package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an operation failed. It survives the
// conversion into a StepResult so callers can distinguish a missing
// backend binary from a timed-out subprocess without parsing messages.
type FailureKind string

const (
	// FailEnvironment covers fatal setup problems: binary not on the
	// search path, server unreachable with autostart disabled.
	FailEnvironment FailureKind = "environment"
	// FailTransport covers non-zero exits and HTTP error statuses.
	FailTransport FailureKind = "transport"
	// FailTimeout covers wall-clock timeouts; the underlying process is
	// always reaped before a timeout failure surfaces.
	FailTimeout FailureKind = "timeout"
	// FailUnknownOperation covers steps whose action names no known
	// operation. Fatal to that single step only.
	FailUnknownOperation FailureKind = "unknown_operation"
	// FailInternal is the fallback for errors raised outside the taxonomy.
	FailInternal FailureKind = "internal"
)

// AgentError is a classified failure from an adapter or transport.
type AgentError struct {
	Kind FailureKind
	Op   string // operation that failed, e.g. "run claude", "create session"
	Err  error
}

func (e *AgentError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// Errorf builds a classified error from a format string.
func Errorf(kind FailureKind, op, format string, args ...any) *AgentError {
	return &AgentError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WrapErr classifies an existing error, preserving it for errors.Is/As.
func WrapErr(kind FailureKind, op string, err error) *AgentError {
	return &AgentError{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the failure kind from an error chain. Errors raised
// outside the taxonomy report FailInternal.
func KindOf(err error) FailureKind {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return FailInternal
}
