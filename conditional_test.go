package clinicflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(value bool) *FuncEvalTask[bool] {
	return NewPredicateTask("constant", func(context.Context, *TaskContext) (bool, error) {
		return value, nil
	})
}

func TestConditionalTask(t *testing.T) {
	t.Run("true runs then", func(t *testing.T) {
		var log []string
		task := NewConditionalTask(constant(true), trace("then", &log))

		recorder := startTask(t, context.Background(), task, NewTaskContext())

		assert.Equal(t, []string{"then"}, log)
		require.Len(t, recorder.outcomes, 1)
		assert.True(t, recorder.outcomes[0].IsCompleted())
	})

	t.Run("false completes without running then", func(t *testing.T) {
		var log []string
		task := NewConditionalTask(constant(false), trace("then", &log))

		recorder := startTask(t, context.Background(), task, NewTaskContext())

		assert.Empty(t, log)
		require.Len(t, recorder.outcomes, 1)
		assert.True(t, recorder.outcomes[0].IsCompleted())
	})

	t.Run("false runs else", func(t *testing.T) {
		var log []string
		task := NewConditionalElseTask(constant(false), trace("then", &log), trace("else", &log))

		startTask(t, context.Background(), task, NewTaskContext())

		assert.Equal(t, []string{"else"}, log)
	})

	t.Run("branch outcome is the task outcome", func(t *testing.T) {
		var log []string
		boom := errors.New("boom")
		task := NewConditionalTask(constant(true), outcomeTask("then", Failed(boom), &log))

		recorder := startTask(t, context.Background(), task, NewTaskContext())

		require.Len(t, recorder.outcomes, 1)
		assert.ErrorIs(t, recorder.outcomes[0].Err, boom)
	})

	t.Run("cancelled or skipped condition completes", func(t *testing.T) {
		for _, outcome := range []Outcome{Cancelled(), Skipped()} {
			var log []string
			condition := newAsyncCondition("confirm")
			task := NewConditionalElseTask(condition, trace("then", &log), trace("else", &log))

			recorder := startTask(t, context.Background(), task, NewTaskContext())
			condition.Notify(outcome)

			assert.Empty(t, log)
			require.Len(t, recorder.outcomes, 1)
			assert.True(t, recorder.outcomes[0].IsCompleted(), outcome.String())
		}
	})

	t.Run("failed condition fails", func(t *testing.T) {
		var log []string
		boom := errors.New("boom")
		condition := NewPredicateTask("broken", func(context.Context, *TaskContext) (bool, error) {
			return false, boom
		})
		task := NewConditionalTask(condition, trace("then", &log))

		recorder := startTask(t, context.Background(), task, NewTaskContext())

		assert.Empty(t, log)
		require.Len(t, recorder.outcomes, 1)
		assert.ErrorIs(t, recorder.outcomes[0].Err, boom)
	})

	t.Run("async condition", func(t *testing.T) {
		var log []string
		condition := newAsyncCondition("confirm")
		task := NewConditionalTask(condition, trace("then", &log))

		recorder := startTask(t, context.Background(), task, NewTaskContext())
		assert.Empty(t, recorder.outcomes)

		condition.NotifyValue(true)

		assert.Equal(t, []string{"then"}, log)
		assert.Len(t, recorder.outcomes, 1)
	})

	t.Run("context cancelled while condition pending skips branch", func(t *testing.T) {
		var log []string
		ctx, cancel := context.WithCancel(context.Background())
		condition := newAsyncCondition("post invoice")
		task := NewConditionalElseTask(condition, trace("post", &log), trace("keep", &log))

		recorder := startTask(t, ctx, task, NewTaskContext())
		cancel()
		condition.NotifyValue(true)

		assert.Empty(t, log)
		require.Len(t, recorder.outcomes, 1)
		assert.True(t, recorder.outcomes[0].IsCancelled())
	})

	t.Run("cancel dismisses running branch", func(t *testing.T) {
		branch := newAsyncTask("edit")
		task := NewConditionalTask(constant(true), branch)

		recorder := startTask(t, context.Background(), task, NewTaskContext())
		require.Equal(t, 1, branch.starts)

		task.Cancel()

		assert.Equal(t, 1, branch.cancels)
		require.Len(t, recorder.outcomes, 1)
		assert.True(t, recorder.outcomes[0].IsCancelled())
	})

	t.Run("name and children", func(t *testing.T) {
		condition := constant(true)
		then := newAsyncTask("then")
		task := NewConditionalTask(condition, then)

		assert.Equal(t, "if constant", task.Name())
		assert.Equal(t, []Task{condition, then}, task.Children())
	})
}
