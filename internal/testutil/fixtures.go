package testutil

import (
	"fmt"
	"strings"

	"github.com/goalmesh/goalmesh/core"
)

// PlanJSON renders a planner response containing the given task specs.
func PlanJSON(intent, priority string, specs ...core.TaskSpec) string {
	var tasks []string
	for _, s := range specs {
		deps := ""
		if len(s.DependsOn) > 0 {
			parts := make([]string, len(s.DependsOn))
			for i, d := range s.DependsOn {
				parts[i] = fmt.Sprintf("%d", d)
			}
			deps = fmt.Sprintf(`, "depends_on": [%s]`, strings.Join(parts, ", "))
		}
		tasks = append(tasks, fmt.Sprintf(`{"agent": %q, "instructions": %q%s}`, s.Agent, s.Instructions, deps))
	}
	return fmt.Sprintf(`{"intent": %q, "priority": %q, "tasks": [%s]}`,
		intent, priority, strings.Join(tasks, ", "))
}

// OutputJSON renders an agent response with a summary and one output per
// title. Every output is a post with a fixed body.
func OutputJSON(summary string, titles ...string) string {
	var outputs []string
	for _, t := range titles {
		outputs = append(outputs, fmt.Sprintf(`{"type": "post", "title": %q, "content": "Body of %s"}`, t, t))
	}
	return fmt.Sprintf(`{"summary": %q, "outputs": [%s]}`, summary, strings.Join(outputs, ", "))
}

// VerdictJSON renders a verifier response scoring every dimension at the
// given value.
func VerdictJSON(score float64, feedback string) string {
	var dims []string
	for _, d := range core.Dimensions() {
		dims = append(dims, fmt.Sprintf(`%q: %g`, d, score))
	}
	return fmt.Sprintf(`{"scores": {%s}, "overall": %g, "feedback": %q}`,
		strings.Join(dims, ", "), score, feedback)
}
