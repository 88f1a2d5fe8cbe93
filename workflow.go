package clinicflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

var (
	_ Task      = (*Workflow)(nil)
	_ Canceller = (*Workflow)(nil)
)

// Workflow is the top-level engine. It runs an ordered chain of tasks
// against one TaskContext and produces exactly one outcome per run.
//
// A Workflow is itself a Task: started inside another composite it shares the
// parent's TaskContext and reports to the parent like any other child.
// Nothing in the engine starts goroutines; asynchronous tasks resume it from
// the caller's event loop.
type Workflow struct {
	BaseTask
	root          *Tasks
	external      ExternalContext
	logger        *slog.Logger
	pluginManager *PluginManager
	clock         clock.Clock

	generation int
	run        *run
	tc         *TaskContext
	done       chan struct{}
	outcome    Outcome
}

func NewWorkflow(name string, tasks []Task, opts ...WorkflowOption) *Workflow {
	workflow := &Workflow{
		BaseTask: NewBaseTask(name),
		root:     NewTasks(name, tasks),
	}
	for _, opt := range opts {
		opt(workflow)
	}

	return workflow
}

func (workflow *Workflow) Children() []Task { return workflow.root.Children() }

// Root returns the composite holding the workflow's tasks.
func (workflow *Workflow) Root() *Tasks { return workflow.root }

// Run starts a top-level run with a TaskContext seeded from the external
// context, if one was configured.
func (workflow *Workflow) Run(ctx context.Context) error {
	return workflow.Start(ctx, SeedTaskContext(workflow.external))
}

func (workflow *Workflow) Start(ctx context.Context, tc *TaskContext) error {
	if len(workflow.root.Children()) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyWorkflow, workflow.Name())
	}
	if err := workflow.Begin(); err != nil {
		return fmt.Errorf("%w: %s", ErrWorkflowStarted, workflow.Name())
	}

	parent := runFromContext(ctx)
	r := &run{
		plugins: workflow.pluginManager,
		logger:  workflow.logger,
		clock:   workflow.clock,
	}
	if parent != nil {
		if r.plugins == nil {
			r.plugins = parent.plugins
		}
		if r.logger == nil {
			r.logger = parent.logger
		}
		if r.clock == nil {
			r.clock = parent.clock
		}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.clock == nil {
		r.clock = clock.New()
	}
	r.instance = &WorkflowInstance{
		ID:        uuid.NewString(),
		Name:      workflow.Name(),
		Status:    StatusRunning,
		StartedAt: r.clock.Now(),
	}
	if parent != nil {
		r.instance.ParentID = parent.instance.ID
		r.instance.ParentTaskPath = TaskPath(ctx)
	}

	workflow.generation++
	generation := workflow.generation
	workflow.run = r
	workflow.tc = tc
	workflow.done = make(chan struct{})
	workflow.outcome = Outcome{}

	runCtx := contextWithPath(contextWithRun(ctx, r), workflow.Name())

	r.logger.Info(EventWorkflowStarted,
		KeyWorkflowID, r.instance.ID,
		KeyWorkflowName, workflow.Name(),
	)

	if err := r.plugins.ExecuteWorkflowStart(runCtx, r.instance); err != nil {
		workflow.finish(runCtx, Failed(err))

		return nil
	}

	listener := &childListener{fn: func(event TaskEvent) {
		if generation != workflow.generation {
			return
		}
		workflow.finish(runCtx, event.Outcome)
	}}
	workflow.root.AddTaskListener(listener)
	if err := workflow.root.Start(runCtx, tc); err != nil {
		workflow.root.RemoveTaskListener(listener)
		workflow.finish(runCtx, Failed(err))
	}

	return nil
}

func (workflow *Workflow) finish(ctx context.Context, outcome Outcome) {
	r := workflow.run
	now := r.clock.Now()

	r.instance.Status = workflowStatusOf(outcome)
	r.instance.FinishedAt = &now
	if err := outcome.Error(); err != nil {
		r.instance.Error = err.Error()
	}
	workflow.outcome = outcome
	workflow.generation++

	attrs := []any{
		KeyWorkflowID, r.instance.ID,
		KeyWorkflowName, workflow.Name(),
		KeyStatus, string(r.instance.Status),
		KeyDuration, now.Sub(r.instance.StartedAt),
	}
	switch outcome.Kind {
	case OutcomeCompleted, OutcomeSkipped:
		r.logger.Info(EventWorkflowFinished, attrs...)
		r.plugins.ExecuteWorkflowComplete(ctx, r.instance)
	case OutcomeCancelled:
		r.logger.Info(EventWorkflowFinished, attrs...)
		r.plugins.ExecuteWorkflowFailed(ctx, r.instance)
	default:
		r.logger.Error(EventWorkflowFinished, append(attrs, KeyError, outcome.Err)...)
		r.plugins.ExecuteWorkflowFailed(ctx, r.instance)
	}

	close(workflow.done)
	workflow.Notify(outcome)
}

// Cancel halts forward progress. The in-flight task is detached, dismissed if
// it implements Canceller, and the workflow reports Cancelled.
func (workflow *Workflow) Cancel() {
	if !workflow.IsRunning() {
		return
	}

	if workflow.root.IsRunning() {
		workflow.root.Cancel()

		return
	}
	workflow.finish(contextWithRun(context.Background(), workflow.run), Cancelled())
}

// Done is closed when the current run finishes. It is nil before the first
// Start.
func (workflow *Workflow) Done() <-chan struct{} { return workflow.done }

// Outcome returns the outcome of the last finished run, or the zero Outcome
// while running.
func (workflow *Workflow) Outcome() Outcome { return workflow.outcome }

// TaskContext returns the context of the current or last run.
func (workflow *Workflow) TaskContext() *TaskContext { return workflow.tc }

// Instance returns a snapshot of the current or last run.
func (workflow *Workflow) Instance() WorkflowInstance {
	if workflow.run == nil {
		return WorkflowInstance{Name: workflow.Name(), Status: StatusPending}
	}

	return *workflow.run.instance
}

// History returns the task records of the current or last run in start
// order.
func (workflow *Workflow) History() []TaskRecord {
	if workflow.run == nil {
		return nil
	}

	history := make([]TaskRecord, len(workflow.run.records))
	for i, record := range workflow.run.records {
		history[i] = *record
	}

	return history
}
