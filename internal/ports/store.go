package ports

import (
	"context"

	"github.com/stagehand-dev/stagehand/internal/domain"
)

// ResultStore persists runs and their step results for post-hoc
// inspection. The runner works fine without one.
type ResultStore interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	CompleteRun(ctx context.Context, run *domain.Run) error
	RecordStepResult(ctx context.Context, runID string, result *domain.StepResult) error
	ListStepResults(ctx context.Context, runID string) ([]*domain.StepResult, error)
	Close() error
}
