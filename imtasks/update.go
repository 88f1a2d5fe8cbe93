package imtasks

import (
	"context"
	"fmt"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

var _ clinicflow.Task = (*UpdateIMObjectTask)(nil)

// UpdateIMObjectTask applies properties to the context object of a short
// name and saves it. Properties are evaluated when the task runs.
type UpdateIMObjectTask struct {
	clinicflow.BaseTask
	service   archetype.Service
	dialogs   dialog.Dialogs
	shortName string
	props     *clinicflow.TaskProperties
}

func NewUpdateIMObjectTask(
	service archetype.Service,
	dialogs dialog.Dialogs,
	shortName string,
	props *clinicflow.TaskProperties,
) *UpdateIMObjectTask {
	return &UpdateIMObjectTask{
		BaseTask:  clinicflow.NewBaseTask("update " + shortName),
		service:   service,
		dialogs:   dialogs,
		shortName: shortName,
		props:     props,
	}
}

func (task *UpdateIMObjectTask) Start(ctx context.Context, tc *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	obj := tc.Object(task.shortName)
	if obj == nil {
		fail(&task.BaseTask, task.dialogs, "Update failed", notFound(task.shortName))

		return nil
	}

	working := obj.Clone()
	if err := task.props.Apply(ctx, tc, working); err != nil {
		fail(&task.BaseTask, task.dialogs, "Update failed", fmt.Errorf("update %s: %w", obj.Ref(), err))

		return nil
	}
	if err := task.service.Save(ctx, working); err != nil {
		fail(&task.BaseTask, task.dialogs, "Save failed", fmt.Errorf("save %s: %w", obj.Ref(), err))

		return nil
	}

	commit(obj, working)
	task.NotifyCompleted()

	return nil
}
