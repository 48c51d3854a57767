package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stagehand-dev/stagehand/internal/domain"
	"github.com/stagehand-dev/stagehand/internal/ports"
)

// Runner drives a workflow through an agent, step by step. Store and
// Status are optional; without them the runner just executes.
type Runner struct {
	Agent  ports.Agent
	Store  ports.ResultStore
	Status *StatusWriter

	// NewID mints run identifiers; defaults to random UUIDs.
	NewID func() string
}

// RunResult is the full outcome of one workflow invocation.
type RunResult struct {
	Run     *domain.Run
	Results []*domain.StepResult
}

// Run executes the workflow's steps in order and stops at the first
// failure. The returned error covers runner-level problems (persistence,
// cancellation); a failed step is reported through the run status, not
// as an error.
func (r *Runner) Run(ctx context.Context, wf *Workflow) (*RunResult, error) {
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	run := domain.NewRun(newID(), r.Agent.Name(), wf.Name)
	if r.Store != nil {
		if err := r.Store.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
	}
	if r.Status != nil {
		r.Status.RunStarted(run.ID)
	}

	outputs := domain.MapContext{}
	outcome := &RunResult{Run: run}
	status := domain.RunSucceeded

	for _, ws := range wf.Steps {
		if err := ctx.Err(); err != nil {
			status = domain.RunFailed
			break
		}

		if r.Status != nil {
			r.Status.StepStarted(run.ID, ws.ID)
		}

		step := &domain.Step{ID: ws.ID, Action: ws.Action, Inputs: ws.Inputs}
		result := r.Agent.ExecuteStep(ctx, step, outputs)
		outcome.Results = append(outcome.Results, result)

		if r.Store != nil {
			if err := r.Store.RecordStepResult(ctx, run.ID, result); err != nil {
				return nil, fmt.Errorf("recording step %s: %w", ws.ID, err)
			}
		}
		if r.Status != nil {
			r.Status.StepFinished(run.ID, result)
		}

		if result.Status == domain.StepFailed {
			status = domain.RunFailed
			break
		}
		outputs["steps."+ws.ID+".output"] = outputText(result.Output)
	}

	run.Complete(status)
	if r.Store != nil {
		if err := r.Store.CompleteRun(ctx, run); err != nil {
			return nil, fmt.Errorf("completing run: %w", err)
		}
	}
	if r.Status != nil {
		r.Status.RunCompleted(run.ID, run.Status)
	}
	return outcome, nil
}

// outputText flattens a step output for template substitution. Text
// stays as-is; structured results become compact JSON.
func outputText(output any) string {
	switch v := output.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
