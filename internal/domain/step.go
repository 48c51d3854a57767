package domain

import "time"

// Step is one unit of work a workflow engine hands to an adapter.
// The adapter treats it as an opaque data provider: an action string
// plus an input mapping.
type Step struct {
	ID     string
	Action string
	Inputs map[string]any
}

// Operation parses the step's action string.
func (s *Step) Operation() (Operation, error) {
	return ParseAction(s.Action)
}

// InputString returns a string-typed input, or "" when absent.
func (s *Step) InputString(key string) string {
	v, _ := s.Inputs[key].(string)
	return v
}

type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepResult correlates a step with its outcome. Created once per
// ExecuteStep call and never mutated after return. Timestamps are
// populated regardless of outcome.
type StepResult struct {
	StepID      string
	Status      StepStatus
	Output      any
	Error       string
	ErrorKind   FailureKind
	StartedAt   time.Time
	CompletedAt time.Time
}

func (r *StepResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
