package clinicflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// asyncTask stays in flight until the test resolves it.
type asyncTask struct {
	BaseTask
	starts  int
	cancels int
	onStart func(tc *TaskContext)
}

func newAsyncTask(name string) *asyncTask {
	return &asyncTask{BaseTask: NewBaseTask(name)}
}

func (task *asyncTask) Start(_ context.Context, tc *TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}
	task.starts++
	if task.onStart != nil {
		task.onStart(tc)
	}

	return nil
}

func (task *asyncTask) Resolve(outcome Outcome) { task.Notify(outcome) }

func (task *asyncTask) Cancel() {
	task.cancels++
	task.NotifyCancelled()
}

// pendingTask stays in flight until resolved and cannot be cancelled.
type pendingTask struct {
	BaseTask
	starts int
}

func newPendingTask(name string) *pendingTask {
	return &pendingTask{BaseTask: NewBaseTask(name)}
}

func (task *pendingTask) Start(context.Context, *TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}
	task.starts++

	return nil
}

func (task *pendingTask) Resolve(outcome Outcome) { task.Notify(outcome) }

// asyncCondition is a boolean EvalTask resolved by the test.
type asyncCondition struct {
	BaseEvalTask[bool]
	starts int
}

func newAsyncCondition(name string) *asyncCondition {
	return &asyncCondition{BaseEvalTask: NewBaseEvalTask[bool](name)}
}

func (task *asyncCondition) Start(context.Context, *TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}
	task.starts++

	return nil
}

// rogueTask has no notify guard and can deliver duplicate callbacks.
type rogueTask struct {
	name      string
	optional  bool
	starts    int
	listeners []TaskListener
}

func (task *rogueTask) Name() string              { return task.name }
func (task *rogueTask) SetRequired(required bool) { task.optional = !required }
func (task *rogueTask) IsRequired() bool          { return !task.optional }

func (task *rogueTask) AddTaskListener(listener TaskListener) {
	task.listeners = append(task.listeners, listener)
}

func (task *rogueTask) RemoveTaskListener(listener TaskListener) {
	for i, l := range task.listeners {
		if l == listener {
			task.listeners = append(task.listeners[:i], task.listeners[i+1:]...)

			return
		}
	}
}

func (task *rogueTask) Start(context.Context, *TaskContext) error {
	task.starts++

	return nil
}

func (task *rogueTask) fire(outcome Outcome) {
	for _, listener := range append([]TaskListener(nil), task.listeners...) {
		listener.OnTaskEvent(TaskEvent{TaskName: task.name, Outcome: outcome})
	}
}

type outcomeRecorder struct {
	outcomes []Outcome
}

func (recorder *outcomeRecorder) OnTaskEvent(event TaskEvent) {
	recorder.outcomes = append(recorder.outcomes, event.Outcome)
}

func (recorder *outcomeRecorder) last() Outcome {
	if len(recorder.outcomes) == 0 {
		return Outcome{}
	}

	return recorder.outcomes[len(recorder.outcomes)-1]
}

// startTask starts task with a recorder attached.
func startTask(t *testing.T, ctx context.Context, task Task, tc *TaskContext) *outcomeRecorder {
	t.Helper()

	recorder := &outcomeRecorder{}
	task.AddTaskListener(recorder)
	require.NoError(t, task.Start(ctx, tc))

	return recorder
}

// trace returns a synchronous task that appends its name to *log.
func trace(name string, log *[]string) *SyncTask {
	return NewSyncTask(name, func(context.Context, *TaskContext) error {
		*log = append(*log, name)

		return nil
	})
}

// outcomeTask returns a synchronous task reporting outcome.
func outcomeTask(name string, outcome Outcome, log *[]string) *SyncTask {
	return NewSyncTask(name, func(context.Context, *TaskContext) error {
		*log = append(*log, name)
		switch outcome.Kind {
		case OutcomeSkipped:
			return ErrSkipTask
		case OutcomeCancelled:
			return ErrCancelTask
		case OutcomeFailed:
			return outcome.Err
		default:
			return nil
		}
	})
}
