package imtasks

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

func TestSelectIMObjectTask(t *testing.T) {
	service := archetype.NewMemoryService()
	saved(t, service,
		archetype.NewIMObject(archetype.User, "u1").MustSet(archetype.NodeName, "Dr. Adams"),
		archetype.NewIMObject(archetype.User, "u2").MustSet(archetype.NodeName, "Dr. Brown"),
	)
	clinicians := func(*clinicflow.TaskContext) *archetype.Query {
		return archetype.NewQuery(archetype.User).OrderBy(archetype.NodeName, false)
	}

	t.Run("selection as role", func(t *testing.T) {
		queue := dialog.NewQueue(clock.NewMock())
		tc := clinicflow.NewTaskContext()
		task := NewSelectIMObjectTask(service, queue, "Select clinician", clinicians).AsRole(clinicflow.RoleClinician)

		recorded := start(t, task, tc)
		prompt, ok := queue.Next()
		require.True(t, ok)
		require.Len(t, prompt.Options, 2)

		require.NoError(t, queue.Choose(prompt.ID, 1))

		require.True(t, recorded.last().IsCompleted())
		require.NotNil(t, tc.Clinician())
		assert.Equal(t, "u2", tc.Clinician().ID)
	})

	t.Run("selection as object", func(t *testing.T) {
		queue := dialog.NewQueue(clock.NewMock())
		tc := clinicflow.NewTaskContext()

		start(t, NewSelectIMObjectTask(service, queue, "Select user", clinicians), tc)
		prompt, _ := queue.Next()
		require.NoError(t, queue.Choose(prompt.ID, 0))

		require.NotNil(t, tc.Object(archetype.User))
		assert.Equal(t, "u1", tc.Object(archetype.User).ID)
	})

	t.Run("skip and dismiss", func(t *testing.T) {
		queue := dialog.NewQueue(clock.NewMock())

		skipped := start(t, NewSelectIMObjectTask(service, queue, "a", clinicians).Skippable(), clinicflow.NewTaskContext())
		prompt, _ := queue.Next()
		require.NoError(t, queue.Skip(prompt.ID))
		assert.True(t, skipped.last().IsSkipped())

		dismissed := start(t, NewSelectIMObjectTask(service, queue, "b", clinicians), clinicflow.NewTaskContext())
		prompt, _ = queue.Next()
		require.NoError(t, queue.Dismiss(prompt.ID))
		assert.True(t, dismissed.last().IsCancelled())
	})

	t.Run("nothing to select", func(t *testing.T) {
		queue := dialog.NewQueue(clock.NewMock())
		none := func(*clinicflow.TaskContext) *archetype.Query { return archetype.NewQuery(archetype.Till) }

		recorded := start(t, NewSelectIMObjectTask(service, queue, "Select till", none), clinicflow.NewTaskContext())

		require.True(t, recorded.last().IsFailed())
		assert.ErrorIs(t, recorded.last().Err, ErrObjectNotFound)
		assert.Empty(t, queue.Pending())
		assert.Len(t, queue.Errors(), 1)
	})

	t.Run("cancel", func(t *testing.T) {
		queue := dialog.NewQueue(clock.NewMock())
		task := NewSelectIMObjectTask(service, queue, "Select clinician", clinicians)

		recorded := start(t, task, clinicflow.NewTaskContext())
		task.Cancel()

		assert.True(t, recorded.last().IsCancelled())
		assert.Empty(t, queue.Pending())
	})
}
