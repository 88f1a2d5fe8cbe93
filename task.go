package clinicflow

import (
	"context"
	"errors"
)

// Task is a single resumable step. Every successful Start is followed by
// exactly one outcome delivered to the registered listeners, either before
// Start returns or later from a dialog callback. Start returns an error only
// when the task could not be started at all.
type Task interface {
	Name() string
	Start(ctx context.Context, tc *TaskContext) error
	SetRequired(required bool)
	IsRequired() bool
	AddTaskListener(listener TaskListener)
	RemoveTaskListener(listener TaskListener)
}

// Canceller is implemented by tasks that can abandon an in-flight run,
// e.g. by dismissing an open dialog. A task that holds an external callback
// should implement it, otherwise a late callback may resolve a later run.
type Canceller interface {
	Cancel()
}

// detach abandons an in-flight child. A Canceller is cancelled; any other
// task embedding BaseTask is reported Cancelled so that it can start again.
func detach(task Task) {
	switch t := task.(type) {
	case nil:
	case Canceller:
		t.Cancel()
	case interface{ NotifyCancelled() }:
		t.NotifyCancelled()
	}
}

type TaskEvent struct {
	TaskName string
	Outcome  Outcome
}

// TaskListener observes task outcomes. Listeners are compared by identity on
// removal, so implementations should be pointers.
type TaskListener interface {
	OnTaskEvent(event TaskEvent)
}

type funcListener struct {
	fn func(TaskEvent)
}

func (listener *funcListener) OnTaskEvent(event TaskEvent) {
	listener.fn(event)
}

// ListenerFunc adapts fn to a TaskListener.
func ListenerFunc(fn func(event TaskEvent)) TaskListener {
	return &funcListener{fn: fn}
}

// BaseTask carries the listener registry, the required flag and the one-shot
// notify guard. Concrete tasks embed it, call Begin at the top of Start and
// one of the Notify methods exactly once afterwards.
type BaseTask struct {
	name      string
	optional  bool
	running   bool
	listeners []TaskListener
}

func NewBaseTask(name string) BaseTask {
	return BaseTask{name: name}
}

func (task *BaseTask) Name() string { return task.name }

func (task *BaseTask) SetRequired(required bool) { task.optional = !required }

// IsRequired defaults to true.
func (task *BaseTask) IsRequired() bool { return !task.optional }

// IsRunning reports whether the task has started and not yet notified.
func (task *BaseTask) IsRunning() bool { return task.running }

func (task *BaseTask) AddTaskListener(listener TaskListener) {
	if listener == nil {
		return
	}
	for _, l := range task.listeners {
		if l == listener {
			return
		}
	}

	task.listeners = append(task.listeners, listener)
}

func (task *BaseTask) RemoveTaskListener(listener TaskListener) {
	for i, l := range task.listeners {
		if l == listener {
			task.listeners = append(task.listeners[:i], task.listeners[i+1:]...)

			return
		}
	}
}

// Begin marks the task as running.
func (task *BaseTask) Begin() error {
	if task.running {
		return ErrTaskAlreadyStarted
	}
	task.running = true

	return nil
}

func (task *BaseTask) NotifyCompleted()       { task.Notify(Completed()) }
func (task *BaseTask) NotifySkipped()         { task.Notify(Skipped()) }
func (task *BaseTask) NotifyCancelled()       { task.Notify(Cancelled()) }
func (task *BaseTask) NotifyFailed(err error) { task.Notify(Failed(err)) }
func (task *BaseTask) NotifyError(err error)  { task.Notify(outcomeFromError(err)) }

// Notify delivers outcome to the current listeners and clears them. Calls
// on a task that is not running are ignored.
func (task *BaseTask) Notify(outcome Outcome) {
	if !task.running {
		return
	}
	task.running = false

	listeners := task.listeners
	task.listeners = nil

	event := TaskEvent{TaskName: task.name, Outcome: outcome}
	for _, listener := range listeners {
		listener.OnTaskEvent(event)
	}
}

func outcomeFromError(err error) Outcome {
	switch {
	case err == nil:
		return Completed()
	case errors.Is(err, ErrSkipTask):
		return Skipped()
	case errors.Is(err, ErrCancelTask):
		return Cancelled()
	default:
		return Failed(err)
	}
}
