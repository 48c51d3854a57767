// Package runner executes workflow files against an agent adapter,
// one step at a time, threading each step's output into the inputs of
// the steps after it.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/stagehand-dev/stagehand/internal/domain"
	"gopkg.in/yaml.v3"
)

// Workflow is the parsed form of a workflow file.
type Workflow struct {
	Name  string         `yaml:"name"`
	Agent string         `yaml:"agent"`
	Steps []WorkflowStep `yaml:"steps"`
}

type WorkflowStep struct {
	ID     string         `yaml:"id"`
	Action string         `yaml:"action"`
	Inputs map[string]any `yaml:"inputs"`
}

// LoadWorkflow reads and validates a workflow file.
func LoadWorkflow(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow: %w", err)
	}
	return ParseWorkflow(data)
}

// ParseWorkflow decodes workflow YAML. Unknown fields are rejected so
// a typo fails loudly instead of silently dropping a setting.
func ParseWorkflow(data []byte) (*Workflow, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var wf Workflow
	if err := dec.Decode(&wf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("workflow file is empty")
		}
		return nil, fmt.Errorf("parsing workflow: %w", err)
	}
	if err := wf.validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

func (wf *Workflow) validate() error {
	if wf.Name == "" {
		return fmt.Errorf("workflow needs a name")
	}
	if len(wf.Steps) == 0 {
		return fmt.Errorf("workflow %q has no steps", wf.Name)
	}

	seen := make(map[string]bool, len(wf.Steps))
	for i, step := range wf.Steps {
		if step.ID == "" {
			return fmt.Errorf("workflow %q: step %d has no id", wf.Name, i+1)
		}
		if seen[step.ID] {
			return fmt.Errorf("workflow %q: duplicate step id %q", wf.Name, step.ID)
		}
		seen[step.ID] = true
		if _, err := domain.ParseAction(step.Action); err != nil {
			return fmt.Errorf("workflow %q: step %q: %w", wf.Name, step.ID, err)
		}
	}
	return nil
}
