// Package promptkit assembles the prompts the adapters send to their
// backends. Assembly is pure string work; the interesting behavior the
// adapters own starts after these prompts leave the process.
package promptkit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/stagehand-dev/stagehand/internal/domain"
)

// BuildAnalysis builds the prompt for an analyze step. A prompt_template
// input short-circuits everything else.
func BuildAnalysis(step *domain.Step, ec domain.Context) string {
	if tmpl := step.InputString("prompt_template"); tmpl != "" {
		return ec.ResolveTemplate(tmpl)
	}

	var parts []string
	if c := step.InputString("context"); c != "" {
		parts = append(parts, ec.ResolveTemplate(c))
	}
	if categories, ok := step.Inputs["categories"].(map[string]any); ok && len(categories) > 0 {
		lines := []string{"\nCategories:"}
		for _, name := range sortedKeys(categories) {
			lines = append(lines, fmt.Sprintf("- %s: %v", name, categories[name]))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	parts = append(parts, "\nProvide a clear, structured response.")

	return strings.Join(parts, "\n")
}

// BuildGeneration builds the prompt for a generate_response step.
func BuildGeneration(step *domain.Step, ec domain.Context) string {
	var parts []string
	if c := step.InputString("context"); c != "" {
		parts = append(parts, ec.ResolveTemplate(c))
	}
	if tone := step.InputString("tone"); tone != "" {
		parts = append(parts, fmt.Sprintf("\nUse this tone: %s", tone))
	}
	if reqs, ok := step.Inputs["requirements"].([]any); ok && len(reqs) > 0 {
		lines := []string{"\nRequirements:"}
		for _, req := range reqs {
			lines = append(lines, fmt.Sprintf("- %v", req))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n")
}

// BuildReport builds the prompt for a generate_report step.
func BuildReport(step *domain.Step, ec domain.Context) string {
	parts := []string{"Generate an execution report.\n"}
	if include, ok := step.Inputs["include"].([]any); ok && len(include) > 0 {
		lines := []string{"Include:"}
		for _, section := range include {
			lines = append(lines, fmt.Sprintf("- %v", section))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	parts = append(parts, "\nFormat as markdown.")

	return strings.Join(parts, "\n")
}

// WithSchema appends the structured-output instruction so the backend
// sees the expected shape before it answers.
func WithSchema(prompt string, schema map[string]any) string {
	if len(schema) == 0 {
		return prompt
	}
	encoded, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return prompt
	}
	return prompt + "\n\nRespond with valid JSON matching this schema:\n" + string(encoded)
}

// ToolDelegation phrases a tool call as a natural-language instruction
// for backends that execute tools themselves. Parameters are serialized
// deterministically (JSON with sorted keys) so the same call always
// produces the same prompt.
func ToolDelegation(tool, operation string, params map[string]any) string {
	encoded, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		encoded = []byte("{}")
	}
	return fmt.Sprintf(`Execute the %s tool with operation '%s'.

Parameters:
%s

Return the result of executing this tool operation.`, tool, operation, encoded)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
