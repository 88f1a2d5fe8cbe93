package clinicflow

import (
	"context"
	"fmt"
	"runtime/debug"
)

// SyncFunc is the body of a synchronous task. Returning ErrSkipTask or
// ErrCancelTask reports Skipped or Cancelled; any other error reports Failed.
type SyncFunc func(ctx context.Context, tc *TaskContext) error

var _ Task = (*SyncTask)(nil)

// SyncTask notifies its outcome before Start returns.
type SyncTask struct {
	BaseTask
	fn SyncFunc
}

func NewSyncTask(name string, fn SyncFunc) *SyncTask {
	return &SyncTask{BaseTask: NewBaseTask(name), fn: fn}
}

func (task *SyncTask) Start(ctx context.Context, tc *TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	task.NotifyError(runNoPanic(task.Name(), func() error { return task.fn(ctx, tc) }))

	return nil
}

func runNoPanic(name string, fn func() error) (errRes error) {
	defer func() {
		if r := recover(); r != nil {
			errRes = fmt.Errorf("panic in task %q: %v\n%s", name, r, debug.Stack())
		}
	}()

	return fn()
}
