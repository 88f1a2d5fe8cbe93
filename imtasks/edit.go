package imtasks

import (
	"context"
	"fmt"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

var (
	_ clinicflow.Task      = (*EditIMObjectTask)(nil)
	_ clinicflow.Canceller = (*EditIMObjectTask)(nil)
)

// Validator checks an edited object before it is saved.
type Validator func(obj *archetype.IMObject) error

type EditOption func(task *EditIMObjectTask)

// WithEditSkip lets the user skip the editor.
func WithEditSkip() EditOption {
	return func(task *EditIMObjectTask) {
		task.skippable = true
	}
}

func WithEditValidator(validate Validator) EditOption {
	return func(task *EditIMObjectTask) {
		task.validate = validate
	}
}

func WithEditTitle(title string) EditOption {
	return func(task *EditIMObjectTask) {
		task.title = title
	}
}

// EditIMObjectTask opens an editor over the context object of a short name.
// A save persists the changes and completes the task; dismissing the editor
// cancels it.
type EditIMObjectTask struct {
	clinicflow.BaseTask
	service   archetype.Service
	dialogs   dialog.Dialogs
	shortName string
	title     string
	skippable bool
	validate  Validator

	handle dialog.Handle
}

func NewEditIMObjectTask(
	service archetype.Service,
	dialogs dialog.Dialogs,
	shortName string,
	opts ...EditOption,
) *EditIMObjectTask {
	task := &EditIMObjectTask{
		BaseTask:  clinicflow.NewBaseTask("edit " + shortName),
		service:   service,
		dialogs:   dialogs,
		shortName: shortName,
		title:     "Edit " + shortName,
	}
	for _, opt := range opts {
		opt(task)
	}

	return task
}

func (task *EditIMObjectTask) Start(ctx context.Context, tc *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	obj := tc.Object(task.shortName)
	if obj == nil {
		fail(&task.BaseTask, task.dialogs, "Edit failed", notFound(task.shortName))

		return nil
	}

	req := dialog.EditRequest{Title: task.title, Object: obj.Clone(), Skippable: task.skippable}
	task.handle = task.dialogs.Edit(req, func(result dialog.EditResult) {
		task.handle = nil
		task.onClose(ctx, obj, req.Object, result)
	})
	if !task.IsRunning() {
		task.handle = nil
	}

	return nil
}

func (task *EditIMObjectTask) onClose(ctx context.Context, obj, working *archetype.IMObject, result dialog.EditResult) {
	switch result.Action {
	case dialog.ActionSaved:
		if err := task.save(ctx, working, result.Changes); err != nil {
			fail(&task.BaseTask, task.dialogs, "Save failed", err)

			return
		}
		commit(obj, working)
		task.NotifyCompleted()
	case dialog.ActionSkipped:
		task.NotifySkipped()
	default:
		task.NotifyCancelled()
	}
}

func (task *EditIMObjectTask) save(ctx context.Context, working *archetype.IMObject, changes map[string]any) error {
	for node, value := range changes {
		if err := working.Set(node, value); err != nil {
			return fmt.Errorf("edit %s: %w", working.Ref(), err)
		}
	}
	if task.validate != nil {
		if err := task.validate(working); err != nil {
			return fmt.Errorf("validate %s: %w", working.Ref(), err)
		}
	}
	if err := task.service.Save(ctx, working); err != nil {
		return fmt.Errorf("save %s: %w", working.Ref(), err)
	}

	return nil
}

// Cancel closes the editor, discarding unsaved changes.
func (task *EditIMObjectTask) Cancel() {
	if task.handle != nil {
		task.handle.Close()
		task.handle = nil
	}
	task.NotifyCancelled()
}
