package imtasks

import (
	"context"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/dialog"
)

var (
	_ clinicflow.EvalTask[bool] = (*ConfirmationTask)(nil)
	_ clinicflow.Canceller      = (*ConfirmationTask)(nil)
)

// ConfirmationTask asks a question and yields true for Yes or OK and false
// for No. Cancel cancels the task and Skip skips it.
type ConfirmationTask struct {
	clinicflow.BaseEvalTask[bool]
	dialogs dialog.Dialogs
	title   string
	message string
	buttons []dialog.Button

	handle dialog.Handle
}

// NewConfirmationTask creates a confirmation with the given buttons, or
// Yes/No/Cancel when none are given.
func NewConfirmationTask(dialogs dialog.Dialogs, title, message string, buttons ...dialog.Button) *ConfirmationTask {
	if len(buttons) == 0 {
		buttons = dialog.YesNoCancel
	}

	return &ConfirmationTask{
		BaseEvalTask: clinicflow.NewBaseEvalTask[bool]("confirm " + title),
		dialogs:      dialogs,
		title:        title,
		message:      message,
		buttons:      buttons,
	}
}

func (task *ConfirmationTask) Start(_ context.Context, _ *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	req := dialog.ConfirmRequest{Title: task.title, Message: task.message, Buttons: task.buttons}
	task.handle = task.dialogs.Confirm(req, func(button dialog.Button) {
		task.handle = nil
		task.onClose(button)
	})
	if !task.IsRunning() {
		task.handle = nil
	}

	return nil
}

func (task *ConfirmationTask) onClose(button dialog.Button) {
	switch button {
	case dialog.ButtonYes, dialog.ButtonOK:
		task.NotifyValue(true)
	case dialog.ButtonNo:
		task.NotifyValue(false)
	case dialog.ButtonSkip:
		task.NotifySkipped()
	default:
		task.NotifyCancelled()
	}
}

func (task *ConfirmationTask) Cancel() {
	if task.handle != nil {
		task.handle.Close()
		task.handle = nil
	}
	task.NotifyCancelled()
}
