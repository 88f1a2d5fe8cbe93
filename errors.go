package clinicflow

import (
	"errors"
)

var (
	ErrTaskAlreadyStarted = errors.New("task already started")
	ErrTaskFailed         = errors.New("task failed")
	ErrTaskSkipped        = errors.New("task skipped")
	ErrTaskCancelled      = errors.New("task cancelled")
	ErrTaskTimeout        = errors.New("task timed out")
	ErrWorkflowStarted    = errors.New("workflow already started")
	ErrEmptyWorkflow      = errors.New("workflow has no tasks")

	// ErrSkipTask and ErrCancelTask may be returned from synchronous task
	// bodies to report Skipped or Cancelled instead of Failed.
	ErrSkipTask   = errors.New("skip task")
	ErrCancelTask = errors.New("cancel task")
)
