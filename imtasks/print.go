package imtasks

import (
	"context"
	"fmt"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/dialog"
)

var (
	_ clinicflow.Task      = (*PrintIMObjectTask)(nil)
	_ clinicflow.Canceller = (*PrintIMObjectTask)(nil)
)

// PrintIMObjectTask prints the context object of a short name. In
// interactive mode the user confirms first and may skip or cancel.
type PrintIMObjectTask struct {
	clinicflow.BaseTask
	dialogs     dialog.Dialogs
	printer     Printer
	shortName   string
	interactive bool

	handle dialog.Handle
}

func NewPrintIMObjectTask(
	dialogs dialog.Dialogs,
	printer Printer,
	shortName string,
	interactive bool,
) *PrintIMObjectTask {
	return &PrintIMObjectTask{
		BaseTask:    clinicflow.NewBaseTask("print " + shortName),
		dialogs:     dialogs,
		printer:     printer,
		shortName:   shortName,
		interactive: interactive,
	}
}

func (task *PrintIMObjectTask) Start(ctx context.Context, tc *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	obj := tc.Object(task.shortName)
	if obj == nil {
		fail(&task.BaseTask, task.dialogs, "Print failed", notFound(task.shortName))

		return nil
	}

	if !task.interactive {
		task.print(ctx, tc)

		return nil
	}

	req := dialog.ConfirmRequest{
		Title:   "Print " + obj.ShortName,
		Message: fmt.Sprintf("Print %s?", obj.Ref()),
		Buttons: []dialog.Button{dialog.ButtonOK, dialog.ButtonSkip, dialog.ButtonCancel},
	}
	task.handle = task.dialogs.Confirm(req, func(button dialog.Button) {
		task.handle = nil
		switch button {
		case dialog.ButtonOK, dialog.ButtonYes:
			task.print(ctx, tc)
		case dialog.ButtonSkip:
			task.NotifySkipped()
		default:
			task.NotifyCancelled()
		}
	})
	if !task.IsRunning() {
		task.handle = nil
	}

	return nil
}

func (task *PrintIMObjectTask) print(ctx context.Context, tc *clinicflow.TaskContext) {
	obj := tc.Object(task.shortName)
	if obj == nil {
		fail(&task.BaseTask, task.dialogs, "Print failed", notFound(task.shortName))

		return
	}
	if err := task.printer.Print(ctx, obj); err != nil {
		fail(&task.BaseTask, task.dialogs, "Print failed", fmt.Errorf("print %s: %w", obj.Ref(), err))

		return
	}
	task.NotifyCompleted()
}

func (task *PrintIMObjectTask) Cancel() {
	if task.handle != nil {
		task.handle.Close()
		task.handle = nil
	}
	task.NotifyCancelled()
}
