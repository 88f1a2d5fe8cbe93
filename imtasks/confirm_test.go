package imtasks

import (
	"log/slog"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/dialog"
)

func TestConfirmationTask(t *testing.T) {
	tests := []struct {
		button   dialog.Button
		expected clinicflow.OutcomeKind
		value    bool
	}{
		{dialog.ButtonYes, clinicflow.OutcomeCompleted, true},
		{dialog.ButtonOK, clinicflow.OutcomeCompleted, true},
		{dialog.ButtonNo, clinicflow.OutcomeCompleted, false},
		{dialog.ButtonCancel, clinicflow.OutcomeCancelled, false},
		{dialog.ButtonSkip, clinicflow.OutcomeSkipped, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.button), func(t *testing.T) {
			queue := dialog.NewQueue(clock.NewMock())
			task := NewConfirmationTask(queue, "Post invoice", "Post the invoice?",
				dialog.ButtonYes, dialog.ButtonOK, dialog.ButtonNo, dialog.ButtonCancel, dialog.ButtonSkip)

			recorded := start(t, task, clinicflow.NewTaskContext())
			prompt, ok := queue.Next()
			require.True(t, ok)
			assert.Equal(t, "Post the invoice?", prompt.Message)

			require.NoError(t, queue.Press(prompt.ID, tt.button))

			require.Len(t, recorded.got, 1)
			assert.Equal(t, tt.expected, recorded.last().Kind)
			assert.Equal(t, tt.value, task.Value())
		})
	}
}

func TestConfirmationTask_DefaultButtons(t *testing.T) {
	queue := dialog.NewQueue(clock.NewMock())
	start(t, NewConfirmationTask(queue, "Post invoice", ""), clinicflow.NewTaskContext())

	prompt, _ := queue.Next()
	assert.Equal(t, dialog.YesNoCancel, prompt.Buttons)
}

func TestConfirmationTask_Scripted(t *testing.T) {
	script := dialog.NewScript(slog.New(slog.DiscardHandler)).On("Post invoice", dialog.Press(dialog.ButtonYes))
	task := NewConfirmationTask(script, "Post invoice", "")

	recorded := start(t, task, clinicflow.NewTaskContext())

	require.True(t, recorded.last().IsCompleted())
	assert.True(t, task.Value())
	assert.False(t, task.IsRunning())
}

func TestConfirmationTask_Cancel(t *testing.T) {
	queue := dialog.NewQueue(clock.NewMock())
	task := NewConfirmationTask(queue, "Post invoice", "")

	recorded := start(t, task, clinicflow.NewTaskContext())
	task.Cancel()
	task.Cancel()

	assert.Empty(t, queue.Pending())
	require.Len(t, recorded.got, 1)
	assert.True(t, recorded.last().IsCancelled())
}
