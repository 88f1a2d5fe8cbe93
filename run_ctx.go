package clinicflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/benbjohnson/clock"
)

// run is the per-instance state a Workflow threads through the context to
// every task it starts, directly or through composites.
type run struct {
	instance *WorkflowInstance
	plugins  *PluginManager
	logger   *slog.Logger
	clock    clock.Clock
	records  []*TaskRecord
}

type runKey struct{}

type pathKey struct{}

func runFromContext(ctx context.Context) *run {
	if r, ok := ctx.Value(runKey{}).(*run); ok {
		return r
	}

	return nil
}

func contextWithRun(ctx context.Context, r *run) context.Context {
	return context.WithValue(ctx, runKey{}, r)
}

// TaskPath returns the '/'-joined names of the composites enclosing the
// task started with ctx.
func TaskPath(ctx context.Context) string {
	if path, ok := ctx.Value(pathKey{}).(string); ok {
		return path
	}

	return ""
}

func contextWithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, pathKey{}, path)
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}

	return parent + "/" + name
}

// InstanceID returns the id of the workflow instance running ctx, or "".
func InstanceID(ctx context.Context) string {
	if r := runFromContext(ctx); r != nil {
		return r.instance.ID
	}

	return ""
}

func (r *run) taskStarting(ctx context.Context, task Task, path string) (*TaskRecord, error) {
	if r == nil {
		return nil, nil
	}

	record := &TaskRecord{
		InstanceID: r.instance.ID,
		Name:       task.Name(),
		Path:       path,
		Depth:      strings.Count(path, "/"),
		Required:   task.IsRequired(),
		Status:     TaskStatusRunning,
		StartedAt:  r.clock.Now(),
	}
	r.records = append(r.records, record)

	r.logger.Debug(EventTaskStarted,
		KeyWorkflowID, r.instance.ID,
		KeyTaskPath, path,
		KeyRequired, record.Required,
	)

	return record, r.plugins.ExecuteTaskStart(ctx, r.instance, record)
}

func (r *run) taskFinished(ctx context.Context, record *TaskRecord, outcome Outcome) {
	if r == nil || record == nil {
		return
	}

	now := r.clock.Now()
	record.FinishedAt = &now
	record.Status = taskStatusOf(outcome)
	if err := outcome.Error(); err != nil {
		record.Error = err.Error()
	}

	r.logger.Debug(EventTaskFinished,
		KeyWorkflowID, r.instance.ID,
		KeyTaskPath, record.Path,
		KeyOutcome, outcome.Kind.String(),
		KeyDuration, record.Duration(),
	)

	switch outcome.Kind {
	case OutcomeCompleted, OutcomeSkipped:
		r.plugins.ExecuteTaskComplete(ctx, r.instance, record)
	default:
		r.plugins.ExecuteTaskFailed(ctx, r.instance, record, outcome.Error())
	}
}

type childListener struct {
	fired bool
	fn    func(event TaskEvent)
}

func (listener *childListener) OnTaskEvent(event TaskEvent) {
	if listener.fired {
		return
	}
	listener.fired = true
	listener.fn(event)
}

// startChild starts child on behalf of a composite and reports its outcome to
// onDone exactly once. A child that cannot be started, or whose start is
// vetoed by a plugin, reports Failed.
func startChild(ctx context.Context, tc *TaskContext, child Task, onDone func(outcome Outcome)) {
	r := runFromContext(ctx)
	path := joinPath(TaskPath(ctx), child.Name())

	record, err := r.taskStarting(ctx, child, path)
	if err != nil {
		r.taskFinished(ctx, record, Failed(err))
		onDone(Failed(err))

		return
	}

	listener := &childListener{fn: func(event TaskEvent) {
		r.taskFinished(ctx, record, event.Outcome)
		onDone(event.Outcome)
	}}
	child.AddTaskListener(listener)

	if err := child.Start(contextWithPath(ctx, path), tc); err != nil {
		child.RemoveTaskListener(listener)
		listener.OnTaskEvent(TaskEvent{TaskName: child.Name(), Outcome: Failed(err)})
	}
}
