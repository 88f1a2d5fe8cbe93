package clinicflow

import (
	"context"
)

var (
	_ Task      = (*ConditionalTask)(nil)
	_ Canceller = (*ConditionalTask)(nil)
)

// ConditionalTask runs then when the condition evaluates to true and the
// optional else task when it evaluates to false. A false, skipped or
// cancelled condition with no else branch completes the task; a failed
// condition fails it. The branch outcome becomes the task's outcome.
type ConditionalTask struct {
	BaseTask
	condition EvalTask[bool]
	then      Task
	otherwise Task

	generation int
	active     Task
}

func NewConditionalTask(condition EvalTask[bool], then Task) *ConditionalTask {
	return NewConditionalElseTask(condition, then, nil)
}

func NewConditionalElseTask(condition EvalTask[bool], then, otherwise Task) *ConditionalTask {
	return &ConditionalTask{
		BaseTask:  NewBaseTask("if " + condition.Name()),
		condition: condition,
		then:      then,
		otherwise: otherwise,
	}
}

func (task *ConditionalTask) Condition() EvalTask[bool] { return task.condition }
func (task *ConditionalTask) Then() Task                { return task.then }
func (task *ConditionalTask) Else() Task                { return task.otherwise }

func (task *ConditionalTask) Children() []Task {
	children := []Task{task.condition, task.then}
	if task.otherwise != nil {
		children = append(children, task.otherwise)
	}

	return children
}

func (task *ConditionalTask) Start(ctx context.Context, tc *TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	task.generation++
	generation := task.generation
	task.active = task.condition
	startChild(ctx, tc, task.condition, func(outcome Outcome) {
		if generation != task.generation {
			return
		}
		task.onCondition(ctx, tc, outcome)
	})

	return nil
}

func (task *ConditionalTask) onCondition(ctx context.Context, tc *TaskContext, outcome Outcome) {
	switch outcome.Kind {
	case OutcomeCompleted:
	case OutcomeFailed:
		task.finish(outcome)

		return
	default:
		task.finish(Completed())

		return
	}

	if err := ctx.Err(); err != nil {
		task.finish(Cancelled())

		return
	}

	branch := task.otherwise
	if task.condition.Value() {
		branch = task.then
	}
	if branch == nil {
		task.finish(Completed())

		return
	}

	generation := task.generation
	task.active = branch
	startChild(ctx, tc, branch, func(outcome Outcome) {
		if generation != task.generation {
			return
		}
		task.finish(outcome)
	})
}

func (task *ConditionalTask) finish(outcome Outcome) {
	task.active = nil
	task.Notify(outcome)
}

// Cancel detaches from the running branch and reports Cancelled.
func (task *ConditionalTask) Cancel() {
	if !task.IsRunning() {
		return
	}

	active := task.active
	task.generation++
	task.active = nil
	detach(active)
	task.NotifyCancelled()
}
