package imtasks

import (
	"context"
	"fmt"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

var (
	_ clinicflow.Task = (*CreateIMObjectTask)(nil)
	_ clinicflow.Task = (*ConditionalCreateTask)(nil)
)

// CreateIMObjectTask creates an object, applies properties, adds it to the
// context and, when save is set, persists it.
type CreateIMObjectTask struct {
	clinicflow.BaseTask
	service   archetype.Service
	dialogs   dialog.Dialogs
	shortName string
	props     *clinicflow.TaskProperties
	save      bool
}

func NewCreateIMObjectTask(
	service archetype.Service,
	dialogs dialog.Dialogs,
	shortName string,
	props *clinicflow.TaskProperties,
	save bool,
) *CreateIMObjectTask {
	return &CreateIMObjectTask{
		BaseTask:  clinicflow.NewBaseTask("create " + shortName),
		service:   service,
		dialogs:   dialogs,
		shortName: shortName,
		props:     props,
		save:      save,
	}
}

func (task *CreateIMObjectTask) Start(ctx context.Context, tc *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}
	task.create(ctx, tc)

	return nil
}

func (task *CreateIMObjectTask) create(ctx context.Context, tc *clinicflow.TaskContext) {
	obj, err := task.service.Create(ctx, task.shortName)
	if err != nil {
		fail(&task.BaseTask, task.dialogs, "Create failed", fmt.Errorf("create %s: %w", task.shortName, err))

		return
	}
	if err := task.props.Apply(ctx, tc, obj); err != nil {
		fail(&task.BaseTask, task.dialogs, "Create failed", fmt.Errorf("create %s: %w", task.shortName, err))

		return
	}
	if task.save {
		if err := task.service.Save(ctx, obj); err != nil {
			fail(&task.BaseTask, task.dialogs, "Save failed", fmt.Errorf("save %s: %w", obj.Ref(), err))

			return
		}
	}

	tc.AddObject(obj)
	task.NotifyCompleted()
}

// ConditionalCreateTask creates the object only if the context holds none
// of that short name.
type ConditionalCreateTask struct {
	*CreateIMObjectTask
}

func NewConditionalCreateTask(
	service archetype.Service,
	dialogs dialog.Dialogs,
	shortName string,
	props *clinicflow.TaskProperties,
	save bool,
) *ConditionalCreateTask {
	create := NewCreateIMObjectTask(service, dialogs, shortName, props, save)
	create.BaseTask = clinicflow.NewBaseTask("create " + shortName + " if absent")

	return &ConditionalCreateTask{CreateIMObjectTask: create}
}

func (task *ConditionalCreateTask) Start(ctx context.Context, tc *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}
	if tc.Object(task.shortName) != nil {
		task.NotifyCompleted()

		return nil
	}
	task.create(ctx, tc)

	return nil
}
