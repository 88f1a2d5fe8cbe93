package clinicflow

import (
	"context"
	"log/slog"
)

// AbsorbPolicy decides what a non-required composite does after absorbing
// the non-completion of one of its required children.
type AbsorbPolicy uint8

const (
	// StopOnAbsorb completes the composite without running the remaining
	// children.
	StopOnAbsorb AbsorbPolicy = iota
	// ContinueOnAbsorb moves on to the next child.
	ContinueOnAbsorb
)

func (policy AbsorbPolicy) String() string {
	if policy == ContinueOnAbsorb {
		return "continue"
	}

	return "stop"
}

// ParseAbsorbPolicy accepts "stop" and "continue".
func ParseAbsorbPolicy(s string) (AbsorbPolicy, bool) {
	switch s {
	case "stop", "":
		return StopOnAbsorb, true
	case "continue":
		return ContinueOnAbsorb, true
	default:
		return StopOnAbsorb, false
	}
}

var (
	_ Task      = (*Tasks)(nil)
	_ Canceller = (*Tasks)(nil)
)

// Tasks runs its children in order against the same TaskContext.
//
// When a child does not complete:
//   - a non-required child is ignored and the next child runs;
//   - a required child's outcome is propagated when the composite is
//     itself required;
//   - otherwise the outcome is absorbed and the AbsorbPolicy applies.
//
// Synchronous children are driven from a loop rather than by recursion, so
// long chains do not grow the stack.
type Tasks struct {
	BaseTask
	children []Task
	policy   AbsorbPolicy
	logger   *slog.Logger

	ctx        context.Context
	tc         *TaskContext
	generation int
	index      int
	stepping   bool
	again      bool
}

type TasksOption func(tasks *Tasks)

func WithTasksAbsorbPolicy(policy AbsorbPolicy) TasksOption {
	return func(tasks *Tasks) {
		tasks.policy = policy
	}
}

func WithTasksRequired(required bool) TasksOption {
	return func(tasks *Tasks) {
		tasks.SetRequired(required)
	}
}

func WithTasksLogger(logger *slog.Logger) TasksOption {
	return func(tasks *Tasks) {
		tasks.logger = logger
	}
}

func NewTasks(name string, children []Task, opts ...TasksOption) *Tasks {
	tasks := &Tasks{
		BaseTask: NewBaseTask(name),
		children: append([]Task(nil), children...),
		policy:   StopOnAbsorb,
		index:    -1,
	}
	for _, opt := range opts {
		opt(tasks)
	}

	return tasks
}

// Add appends children. It must not be called while the composite runs.
func (tasks *Tasks) Add(children ...Task) *Tasks {
	tasks.children = append(tasks.children, children...)

	return tasks
}

func (tasks *Tasks) Children() []Task { return tasks.children }

func (tasks *Tasks) AbsorbPolicy() AbsorbPolicy { return tasks.policy }

func (tasks *Tasks) Start(ctx context.Context, tc *TaskContext) error {
	if err := tasks.Begin(); err != nil {
		return err
	}

	tasks.ctx = ctx
	tasks.tc = tc
	tasks.generation++
	tasks.index = -1
	tasks.advance()

	return nil
}

func (tasks *Tasks) log() *slog.Logger {
	if tasks.logger != nil {
		return tasks.logger
	}
	if r := runFromContext(tasks.ctx); r != nil {
		return r.logger
	}

	return slog.Default()
}

// advance runs the next child. Re-entrant calls made while a synchronous
// child is completing are folded into the running loop.
func (tasks *Tasks) advance() {
	if tasks.stepping {
		tasks.again = true

		return
	}

	tasks.stepping = true
	defer func() { tasks.stepping = false }()

	for {
		tasks.again = false
		tasks.step()
		if !tasks.again {
			return
		}
	}
}

func (tasks *Tasks) step() {
	if !tasks.IsRunning() {
		return
	}

	if err := tasks.ctx.Err(); err != nil {
		tasks.finish(Cancelled())

		return
	}

	tasks.index++
	if tasks.index >= len(tasks.children) {
		tasks.finish(Completed())

		return
	}

	generation, index := tasks.generation, tasks.index
	child := tasks.children[index]
	startChild(tasks.ctx, tasks.tc, child, func(outcome Outcome) {
		tasks.onChild(generation, index, child, outcome)
	})
}

func (tasks *Tasks) onChild(generation, index int, child Task, outcome Outcome) {
	if generation != tasks.generation || index != tasks.index || !tasks.IsRunning() {
		tasks.log().Debug(EventTaskIgnored,
			KeyTaskName, child.Name(),
			KeyIndex, index,
			KeyOutcome, outcome.Kind.String(),
		)

		return
	}
	// a second callback for this index must not advance again
	tasks.generation++

	if outcome.IsCompleted() {
		tasks.advance()

		return
	}

	switch {
	case !child.IsRequired():
		tasks.log().Debug(EventTaskAbsorbed,
			KeyTaskName, child.Name(),
			KeyOutcome, outcome.String(),
		)
		tasks.advance()
	case tasks.IsRequired():
		tasks.finish(outcome)
	default:
		tasks.log().Debug(EventTaskAbsorbed,
			KeyTaskName, child.Name(),
			KeyOutcome, outcome.String(),
			KeyPolicy, tasks.policy.String(),
		)
		if tasks.policy == ContinueOnAbsorb {
			tasks.advance()

			return
		}
		tasks.finish(Completed())
	}
}

func (tasks *Tasks) finish(outcome Outcome) {
	tasks.generation++
	tasks.Notify(outcome)
}

// Cancel stops forward progress, detaches the running child and reports
// Cancelled.
func (tasks *Tasks) Cancel() {
	if !tasks.IsRunning() {
		return
	}

	var active Task
	if tasks.index >= 0 && tasks.index < len(tasks.children) {
		active = tasks.children[tasks.index]
	}
	tasks.generation++
	detach(active)
	tasks.finish(Cancelled())
}
