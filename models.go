package clinicflow

import (
	"fmt"
	"time"
)

type OutcomeKind uint8

const (
	OutcomeCompleted OutcomeKind = iota + 1
	OutcomeSkipped
	OutcomeCancelled
	OutcomeFailed
)

func (kind OutcomeKind) String() string {
	switch kind {
	case OutcomeCompleted:
		return "completed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a single task run. Err is set only
// for OutcomeFailed.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

func Completed() Outcome { return Outcome{Kind: OutcomeCompleted} }
func Skipped() Outcome   { return Outcome{Kind: OutcomeSkipped} }
func Cancelled() Outcome { return Outcome{Kind: OutcomeCancelled} }

func Failed(err error) Outcome {
	if err == nil {
		err = ErrTaskFailed
	}

	return Outcome{Kind: OutcomeFailed, Err: err}
}

func (o Outcome) IsCompleted() bool { return o.Kind == OutcomeCompleted }
func (o Outcome) IsSkipped() bool   { return o.Kind == OutcomeSkipped }
func (o Outcome) IsCancelled() bool { return o.Kind == OutcomeCancelled }
func (o Outcome) IsFailed() bool    { return o.Kind == OutcomeFailed }

// IsZero reports whether no outcome has been produced yet.
func (o Outcome) IsZero() bool { return o.Kind == 0 }

func (o Outcome) String() string {
	if o.Kind == OutcomeFailed {
		return fmt.Sprintf("failed: %v", o.Err)
	}

	return o.Kind.String()
}

// Error converts a non-completed outcome into an error for hooks and logs.
func (o Outcome) Error() error {
	switch o.Kind {
	case OutcomeCompleted:
		return nil
	case OutcomeSkipped:
		return ErrTaskSkipped
	case OutcomeCancelled:
		return ErrTaskCancelled
	case OutcomeFailed:
		return o.Err
	default:
		return nil
	}
}

type WorkflowStatus string

const (
	StatusPending   WorkflowStatus = "pending"
	StatusRunning   WorkflowStatus = "running"
	StatusCompleted WorkflowStatus = "completed"
	StatusSkipped   WorkflowStatus = "skipped"
	StatusCancelled WorkflowStatus = "cancelled"
	StatusFailed    WorkflowStatus = "failed"
)

type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusSkipped   TaskStatus = "skipped"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusFailed    TaskStatus = "failed"
)

func taskStatusOf(outcome Outcome) TaskStatus {
	switch outcome.Kind {
	case OutcomeCompleted:
		return TaskStatusCompleted
	case OutcomeSkipped:
		return TaskStatusSkipped
	case OutcomeCancelled:
		return TaskStatusCancelled
	default:
		return TaskStatusFailed
	}
}

func workflowStatusOf(outcome Outcome) WorkflowStatus {
	switch outcome.Kind {
	case OutcomeCompleted:
		return StatusCompleted
	case OutcomeSkipped:
		return StatusSkipped
	case OutcomeCancelled:
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// WorkflowInstance describes one run of a Workflow.
type WorkflowInstance struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     WorkflowStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	// ParentID and ParentTaskPath locate the task that started a nested
	// workflow in its enclosing run. Both are empty for a top-level run.
	ParentID       string `json:"parent_id,omitempty"`
	ParentTaskPath string `json:"parent_task_path,omitempty"`
}

// TaskRecord describes one task run inside a workflow instance. Path joins
// the names of the enclosing composites with '/'.
type TaskRecord struct {
	InstanceID string     `json:"instance_id"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Depth      int        `json:"depth"`
	Required   bool       `json:"required"`
	Status     TaskStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (record *TaskRecord) Duration() time.Duration {
	if record.FinishedAt == nil {
		return 0
	}

	return record.FinishedAt.Sub(record.StartedAt)
}
