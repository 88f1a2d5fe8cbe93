// Package workflows holds what the practice workflows share. The workflows
// themselves live in the payment, checkout and checkin subpackages.
package workflows

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
	"github.com/rom8726/clinicflow/imtasks"
)

// Deps are the collaborators a workflow is built against.
type Deps struct {
	Service archetype.Service
	Dialogs dialog.Dialogs
	Printer imtasks.Printer
	Clock   clock.Clock
	Logger  *slog.Logger
	Plugins *clinicflow.PluginManager
	// AbsorbPolicy applies to the optional groups of a workflow.
	AbsorbPolicy clinicflow.AbsorbPolicy
}

// WithDefaults fills unset fields.
func (d Deps) WithDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Printer == nil {
		d.Printer = imtasks.PrinterFunc(func(_ context.Context, obj *archetype.IMObject) error {
			d.Logger.Info("[clinicflow] print", "object", obj.Ref().String())

			return nil
		})
	}

	return d
}

// BuilderOptions returns the builder options shared by top-level workflows.
func (d Deps) BuilderOptions(ext clinicflow.ExternalContext) []clinicflow.BuilderOption {
	workflowOpts := []clinicflow.WorkflowOption{
		clinicflow.WithWorkflowClock(d.Clock),
		clinicflow.WithWorkflowLogger(d.Logger),
	}
	if d.Plugins != nil {
		workflowOpts = append(workflowOpts, clinicflow.WithWorkflowPluginManager(d.Plugins))
	}
	if ext != nil {
		workflowOpts = append(workflowOpts, clinicflow.WithWorkflowExternalContext(ext))
	}

	return []clinicflow.BuilderOption{
		clinicflow.WithBuilderWorkflowOptions(workflowOpts...),
		clinicflow.WithBuilderAbsorbPolicy(d.AbsorbPolicy),
	}
}
