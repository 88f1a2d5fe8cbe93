package imtasks

import (
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

func TestEditIMObjectTask(t *testing.T) {
	errNegative := errors.New("amount must not be negative")
	validate := func(obj *archetype.IMObject) error {
		if obj.GetFloat(archetype.NodeAmount) < 0 {
			return errNegative
		}

		return nil
	}

	tests := []struct {
		name      string
		service   archetype.Service
		reply     func(q *dialog.Queue, id string) error
		expected  clinicflow.OutcomeKind
		expectErr error
		amount    float64
	}{
		{
			name:     "save",
			service:  archetype.NewMemoryService(),
			reply:    func(q *dialog.Queue, id string) error { return q.SaveEdit(id, map[string]any{"amount": 42.5}) },
			expected: clinicflow.OutcomeCompleted,
			amount:   42.5,
		},
		{
			name:     "dismiss",
			service:  archetype.NewMemoryService(),
			reply:    (*dialog.Queue).Dismiss,
			expected: clinicflow.OutcomeCancelled,
			amount:   10,
		},
		{
			name:     "skip",
			service:  archetype.NewMemoryService(),
			reply:    (*dialog.Queue).Skip,
			expected: clinicflow.OutcomeSkipped,
			amount:   10,
		},
		{
			name:      "validation error",
			service:   archetype.NewMemoryService(),
			reply:     func(q *dialog.Queue, id string) error { return q.SaveEdit(id, map[string]any{"amount": -1.0}) },
			expected:  clinicflow.OutcomeFailed,
			expectErr: errNegative,
			amount:    10,
		},
		{
			name:     "unsupported value",
			service:  archetype.NewMemoryService(),
			reply:    func(q *dialog.Queue, id string) error { return q.SaveEdit(id, map[string]any{"amount": []int{1}}) },
			expected: clinicflow.OutcomeFailed,
			amount:   10,
		},
		{
			name:      "save error",
			service:   newFailingService("save"),
			reply:     func(q *dialog.Queue, id string) error { return q.SaveEdit(id, map[string]any{"amount": 1.0}) },
			expected:  clinicflow.OutcomeFailed,
			expectErr: errBackend,
			amount:    10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := dialog.NewQueue(clock.NewMock())
			invoice := archetype.NewIMObject(archetype.Invoice, "i1").MustSet(archetype.NodeAmount, 10.0)
			tc := clinicflow.NewTaskContext()
			tc.AddObject(invoice)

			task := NewEditIMObjectTask(tt.service, queue, archetype.Invoice,
				WithEditSkip(), WithEditValidator(validate), WithEditTitle("Edit invoice"))
			recorded := start(t, task, tc)
			assert.Empty(t, recorded.got)

			prompt, ok := queue.Next()
			require.True(t, ok)
			assert.Equal(t, "Edit invoice", prompt.Title)
			assert.NotSame(t, invoice, prompt.Object)

			require.NoError(t, tt.reply(queue, prompt.ID))

			require.Len(t, recorded.got, 1)
			assert.Equal(t, tt.expected, recorded.last().Kind)
			if tt.expected == clinicflow.OutcomeFailed {
				assert.Len(t, queue.Errors(), 1)
			}
			if tt.expectErr != nil {
				assert.ErrorIs(t, recorded.last().Err, tt.expectErr)
			}
			assert.InDelta(t, tt.amount, invoice.GetFloat(archetype.NodeAmount), 0.001)
		})
	}
}

func TestEditIMObjectTask_Cancel(t *testing.T) {
	queue := dialog.NewQueue(clock.NewMock())
	tc := clinicflow.NewTaskContext()
	tc.AddObject(archetype.NewIMObject(archetype.Invoice, "i1"))

	task := NewEditIMObjectTask(archetype.NewMemoryService(), queue, archetype.Invoice)
	recorded := start(t, task, tc)
	require.Len(t, queue.Pending(), 1)

	task.Cancel()

	assert.Empty(t, queue.Pending())
	require.Len(t, recorded.got, 1)
	assert.True(t, recorded.last().IsCancelled())
}

func TestEditIMObjectTask_NotSkippable(t *testing.T) {
	queue := dialog.NewQueue(clock.NewMock())
	tc := clinicflow.NewTaskContext()
	tc.AddObject(archetype.NewIMObject(archetype.Invoice, "i1"))

	start(t, NewEditIMObjectTask(archetype.NewMemoryService(), queue, archetype.Invoice), tc)
	prompt, _ := queue.Next()

	require.ErrorIs(t, queue.Skip(prompt.ID), dialog.ErrInvalidReply)
}

func TestEditIMObjectTask_MissingObject(t *testing.T) {
	queue := dialog.NewQueue(clock.NewMock())

	recorded := start(t, NewEditIMObjectTask(archetype.NewMemoryService(), queue, archetype.Invoice),
		clinicflow.NewTaskContext())

	require.True(t, recorded.last().IsFailed())
	assert.ErrorIs(t, recorded.last().Err, ErrObjectNotFound)
	assert.Empty(t, queue.Pending())
}
