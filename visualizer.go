package clinicflow

import (
	"fmt"
	"strings"
)

type Visualizer struct{}

func NewVisualizer() *Visualizer {
	return &Visualizer{}
}

// RenderTree renders the task tree of workflow.
func (v *Visualizer) RenderTree(workflow *Workflow) string {
	var output strings.Builder
	fmt.Fprintf(&output, "Workflow: %s\n", workflow.Name())
	output.WriteString("======================================\n\n")

	for _, task := range workflow.Children() {
		v.renderTask(&output, task, 0)
	}

	return output.String()
}

func (v *Visualizer) renderTask(output *strings.Builder, task Task, indent int) {
	flags := ""
	if !task.IsRequired() {
		flags = " (optional)"
	}

	switch t := task.(type) {
	case *Workflow:
		fmt.Fprintf(output, "%s🔁 %s [workflow]%s\n", v.indent(indent), t.Name(), flags)
		for _, child := range t.Children() {
			v.renderTask(output, child, indent+1)
		}
	case *Tasks:
		fmt.Fprintf(output, "%s📦 %s [group]%s\n", v.indent(indent), t.Name(), flags)
		if !t.IsRequired() {
			fmt.Fprintf(output, "%s  ⚡ on absorb: %s\n", v.indent(indent), t.AbsorbPolicy())
		}
		for _, child := range t.Children() {
			v.renderTask(output, child, indent+1)
		}
	case *ConditionalTask:
		fmt.Fprintf(output, "%s❓ %s [condition]%s\n", v.indent(indent), t.Condition().Name(), flags)
		v.renderTask(output, t.Then(), indent+1)
		if t.Else() != nil {
			fmt.Fprintf(output, "%s  ↳ else:\n", v.indent(indent))
			v.renderTask(output, t.Else(), indent+2)
		}
	case *TimeoutTask:
		fmt.Fprintf(output, "%s⏱ %s [timeout %s]%s\n", v.indent(indent), t.Name(), t.Timeout(), flags)
		v.renderTask(output, t.Unwrap(), indent+1)
	default:
		fmt.Fprintf(output, "%s⚙ %s [task]%s\n", v.indent(indent), task.Name(), flags)
	}
}

// RenderHistory renders the task records of the workflow's current or last
// run grouped by status.
func (v *Visualizer) RenderHistory(workflow *Workflow) string {
	instance := workflow.Instance()

	var output strings.Builder
	fmt.Fprintf(&output, "Workflow Instance: %s\n", instance.ID)
	fmt.Fprintf(&output, "Status: %s\n", instance.Status)
	fmt.Fprintf(&output, "Workflow: %s\n", instance.Name)
	output.WriteString("======================================\n\n")

	statusGroups := make(map[TaskStatus][]TaskRecord)
	for _, record := range workflow.History() {
		statusGroups[record.Status] = append(statusGroups[record.Status], record)
	}

	statusOrder := []TaskStatus{
		TaskStatusCompleted,
		TaskStatusRunning,
		TaskStatusSkipped,
		TaskStatusCancelled,
		TaskStatusFailed,
	}

	for _, status := range statusOrder {
		records, exists := statusGroups[status]
		if !exists {
			continue
		}

		fmt.Fprintf(&output, "%s %s (%d tasks):\n", v.getStatusSymbol(status), status, len(records))
		for _, record := range records {
			fmt.Fprintf(&output, "  %s", record.Path)
			if record.Error != "" && status == TaskStatusFailed {
				fmt.Fprintf(&output, " ❌ %s", firstLine(record.Error))
			}
			output.WriteString("\n")
		}
		output.WriteString("\n")
	}

	return output.String()
}

func (v *Visualizer) getStatusSymbol(status TaskStatus) string {
	switch status {
	case TaskStatusCompleted:
		return "✅"
	case TaskStatusRunning:
		return "🔄"
	case TaskStatusSkipped:
		return "⏭"
	case TaskStatusCancelled:
		return "↩"
	case TaskStatusFailed:
		return "❌"
	default:
		return "❓"
	}
}

func (v *Visualizer) indent(level int) string {
	return strings.Repeat("  ", level)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}
