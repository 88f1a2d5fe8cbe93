package imtasks

import (
	"context"
	"fmt"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

var (
	_ clinicflow.Task      = (*SelectIMObjectTask)(nil)
	_ clinicflow.Canceller = (*SelectIMObjectTask)(nil)
)

// QueryFunc builds a query from the current context.
type QueryFunc func(tc *clinicflow.TaskContext) *archetype.Query

// SelectIMObjectTask lets the user pick one of the query results. The
// selection goes into the context under role, or as an object when role is
// empty.
type SelectIMObjectTask struct {
	clinicflow.BaseTask
	service   archetype.Service
	dialogs   dialog.Dialogs
	title     string
	query     QueryFunc
	role      string
	skippable bool

	handle dialog.Handle
}

func NewSelectIMObjectTask(
	service archetype.Service,
	dialogs dialog.Dialogs,
	title string,
	query QueryFunc,
) *SelectIMObjectTask {
	return &SelectIMObjectTask{
		BaseTask: clinicflow.NewBaseTask("select " + title),
		service:  service,
		dialogs:  dialogs,
		title:    title,
		query:    query,
	}
}

// AsRole stores the selection in a context role, e.g. clinicflow.RoleClinician.
func (task *SelectIMObjectTask) AsRole(role string) *SelectIMObjectTask {
	task.role = role

	return task
}

func (task *SelectIMObjectTask) Skippable() *SelectIMObjectTask {
	task.skippable = true

	return task
}

func (task *SelectIMObjectTask) Start(ctx context.Context, tc *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	query := task.query(tc)
	options, err := task.service.Query(ctx, query)
	if err != nil {
		fail(&task.BaseTask, task.dialogs, task.title, fmt.Errorf("query %v: %w", query.ShortNames, err))

		return nil
	}
	if len(options) == 0 {
		fail(&task.BaseTask, task.dialogs, task.title, fmt.Errorf("%w: no %v to select", ErrObjectNotFound, query.ShortNames))

		return nil
	}

	req := dialog.SelectRequest{Title: task.title, Options: options, Skippable: task.skippable}
	task.handle = task.dialogs.Select(req, func(result dialog.SelectResult) {
		task.handle = nil
		task.onClose(tc, result)
	})
	if !task.IsRunning() {
		task.handle = nil
	}

	return nil
}

func (task *SelectIMObjectTask) onClose(tc *clinicflow.TaskContext, result dialog.SelectResult) {
	switch result.Action {
	case dialog.ActionSelected:
		if task.role != "" {
			tc.SetRole(task.role, result.Selected)
		} else {
			tc.AddObject(result.Selected)
		}
		task.NotifyCompleted()
	case dialog.ActionSkipped:
		task.NotifySkipped()
	default:
		task.NotifyCancelled()
	}
}

func (task *SelectIMObjectTask) Cancel() {
	if task.handle != nil {
		task.handle.Close()
		task.handle = nil
	}
	task.NotifyCancelled()
}
