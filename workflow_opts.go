package clinicflow

import (
	"log/slog"

	"github.com/benbjohnson/clock"
)

type WorkflowOption func(workflow *Workflow)

func WithWorkflowLogger(logger *slog.Logger) WorkflowOption {
	return func(workflow *Workflow) {
		workflow.logger = logger
	}
}

func WithWorkflowClock(clk clock.Clock) WorkflowOption {
	return func(workflow *Workflow) {
		workflow.clock = clk
	}
}

func WithWorkflowPluginManager(pluginManager *PluginManager) WorkflowOption {
	return func(workflow *Workflow) {
		workflow.pluginManager = pluginManager
	}
}

// WithWorkflowExternalContext sets the context Run seeds new task contexts
// from.
func WithWorkflowExternalContext(ext ExternalContext) WorkflowOption {
	return func(workflow *Workflow) {
		workflow.external = ext
	}
}

func WithWorkflowRequired(required bool) WorkflowOption {
	return func(workflow *Workflow) {
		workflow.SetRequired(required)
	}
}
