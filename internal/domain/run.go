package domain

import "time"

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run groups the step results of one workflow invocation.
type Run struct {
	ID          string
	Agent       string
	Workflow    string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt time.Time
}

func NewRun(id, agent, workflow string) *Run {
	return &Run{
		ID:        id,
		Agent:     agent,
		Workflow:  workflow,
		Status:    RunRunning,
		StartedAt: time.Now(),
	}
}

func (r *Run) Complete(status RunStatus) {
	r.Status = status
	r.CompletedAt = time.Now()
}
