package promptkit_test

import (
	"testing"

	"github.com/stagehand-dev/stagehand/internal/domain"
	"github.com/stagehand-dev/stagehand/internal/promptkit"
	"github.com/stretchr/testify/assert"
)

func TestBuildAnalysis_TemplateShortCircuits(t *testing.T) {
	step := &domain.Step{
		Action: "agent.analyze",
		Inputs: map[string]any{
			"prompt_template": "Classify: ${steps.fetch.output}",
			"context":         "ignored when a template exists",
		},
	}
	ec := domain.MapContext{"steps.fetch.output": "crash on startup"}

	got := promptkit.BuildAnalysis(step, ec)
	assert.Equal(t, "Classify: crash on startup", got)
}

func TestBuildAnalysis_CategoriesSortedDeterministically(t *testing.T) {
	step := &domain.Step{
		Action: "agent.analyze",
		Inputs: map[string]any{
			"context": "Triage this issue.",
			"categories": map[string]any{
				"bug":      "defect reports",
				"feature":  "enhancement requests",
				"question": "usage questions",
			},
		},
	}

	got := promptkit.BuildAnalysis(step, domain.NoContext)
	assert.Contains(t, got, "Triage this issue.")
	assert.Contains(t, got, "Categories:\n- bug: defect reports\n- feature: enhancement requests\n- question: usage questions")
	assert.Contains(t, got, "Provide a clear, structured response.")
}

func TestBuildGeneration(t *testing.T) {
	step := &domain.Step{
		Action: "agent.generate_response",
		Inputs: map[string]any{
			"context":      "Reply to the user.",
			"tone":         "friendly",
			"requirements": []any{"short", "no jargon"},
		},
	}

	got := promptkit.BuildGeneration(step, domain.NoContext)
	assert.Contains(t, got, "Reply to the user.")
	assert.Contains(t, got, "Use this tone: friendly")
	assert.Contains(t, got, "Requirements:\n- short\n- no jargon")
}

func TestBuildReport(t *testing.T) {
	step := &domain.Step{
		Action: "agent.generate_report",
		Inputs: map[string]any{"include": []any{"summary", "failures"}},
	}

	got := promptkit.BuildReport(step, domain.NoContext)
	assert.Contains(t, got, "Generate an execution report.")
	assert.Contains(t, got, "Include:\n- summary\n- failures")
	assert.Contains(t, got, "Format as markdown.")
}

func TestWithSchema(t *testing.T) {
	schema := map[string]any{"type": "object"}
	got := promptkit.WithSchema("Classify this.", schema)
	assert.Contains(t, got, "Classify this.")
	assert.Contains(t, got, "Respond with valid JSON matching this schema:")
	assert.Contains(t, got, `"type": "object"`)

	assert.Equal(t, "as is", promptkit.WithSchema("as is", nil))
}

func TestToolDelegation_Deterministic(t *testing.T) {
	params := map[string]any{"path": "a.txt", "encoding": "utf-8"}
	first := promptkit.ToolDelegation("files", "read", params)
	second := promptkit.ToolDelegation("files", "read", params)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Execute the files tool with operation 'read'.")
	assert.Contains(t, first, `"path": "a.txt"`)
	assert.Contains(t, first, "Return the result of executing this tool operation.")
}
