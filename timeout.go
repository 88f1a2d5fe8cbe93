package clinicflow

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

var (
	_ Task      = (*TimeoutTask)(nil)
	_ Canceller = (*TimeoutTask)(nil)
)

// TimeoutTask bounds how long the wrapped task may stay in flight. The engine
// never reads timers itself: the owner's event loop calls Check, and an
// expired task is cancelled and reported as Failed(ErrTaskTimeout).
type TimeoutTask struct {
	BaseTask
	task    Task
	timeout time.Duration
	clock   clock.Clock

	timer      *clock.Timer
	generation int
}

func WithTimeout(task Task, timeout time.Duration, clk clock.Clock) *TimeoutTask {
	if clk == nil {
		clk = clock.New()
	}

	return &TimeoutTask{
		BaseTask: NewBaseTask(task.Name()),
		task:     task,
		timeout:  timeout,
		clock:    clk,
	}
}

func (task *TimeoutTask) Unwrap() Task { return task.task }

func (task *TimeoutTask) Children() []Task { return []Task{task.task} }

func (task *TimeoutTask) Timeout() time.Duration { return task.timeout }

// SetRequired applies to the wrapped task too, so the composite sees a
// consistent flag whichever of the two it inspects.
func (task *TimeoutTask) SetRequired(required bool) {
	task.BaseTask.SetRequired(required)
	task.task.SetRequired(required)
}

func (task *TimeoutTask) Start(ctx context.Context, tc *TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	task.generation++
	generation := task.generation
	task.timer = task.clock.Timer(task.timeout)

	listener := &childListener{fn: func(event TaskEvent) {
		if generation != task.generation {
			return
		}
		task.stopTimer()
		task.Notify(event.Outcome)
	}}
	task.task.AddTaskListener(listener)
	if err := task.task.Start(ctx, tc); err != nil {
		task.task.RemoveTaskListener(listener)
		listener.OnTaskEvent(TaskEvent{TaskName: task.Name(), Outcome: Failed(err)})
	}

	return nil
}

// Check expires the task when its deadline has passed and reports whether it
// did.
func (task *TimeoutTask) Check() bool {
	if !task.IsRunning() || task.timer == nil {
		return false
	}

	select {
	case <-task.timer.C:
		task.expire(Failed(ErrTaskTimeout))

		return true
	default:
		return false
	}
}

// Cancel cancels the wrapped task and reports Cancelled.
func (task *TimeoutTask) Cancel() {
	if !task.IsRunning() {
		return
	}
	task.expire(Cancelled())
}

func (task *TimeoutTask) expire(outcome Outcome) {
	task.generation++
	task.stopTimer()
	detach(task.task)
	task.Notify(outcome)
}

func (task *TimeoutTask) stopTimer() {
	if task.timer != nil {
		task.timer.Stop()
		task.timer = nil
	}
}
