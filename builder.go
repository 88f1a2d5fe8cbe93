package clinicflow

import (
	"errors"
	"fmt"
)

// Builder assembles a Workflow. Tasks run in the order they are added.
type Builder struct {
	name          string
	tasks         []Task
	workflowOpts  []WorkflowOption
	defaultPolicy AbsorbPolicy
	err           error
}

func NewBuilder(name string, opts ...BuilderOption) *Builder {
	builder := &Builder{name: name}
	for _, opt := range opts {
		opt(builder)
	}

	return builder
}

func (builder *Builder) Then(tasks ...Task) *Builder {
	for _, task := range tasks {
		if task == nil {
			builder.fail(fmt.Errorf("builder %q: nil task at position %d", builder.name, len(builder.tasks)))

			continue
		}
		builder.tasks = append(builder.tasks, task)
	}

	return builder
}

// Optional adds task with its required flag cleared.
func (builder *Builder) Optional(task Task) *Builder {
	if task != nil {
		task.SetRequired(false)
	}

	return builder.Then(task)
}

// If runs then only when condition evaluates to true.
func (builder *Builder) If(condition EvalTask[bool], then Task) *Builder {
	if condition == nil || then == nil {
		builder.fail(fmt.Errorf("builder %q: If requires a condition and a task", builder.name))

		return builder
	}

	return builder.Then(NewConditionalTask(condition, then))
}

func (builder *Builder) IfElse(condition EvalTask[bool], then, otherwise Task) *Builder {
	if condition == nil || then == nil || otherwise == nil {
		builder.fail(fmt.Errorf("builder %q: IfElse requires a condition and two tasks", builder.name))

		return builder
	}

	return builder.Then(NewConditionalElseTask(condition, then, otherwise))
}

// Group adds a nested composite built by fn. Groups take the builder's
// default absorb policy unless opts override it.
func (builder *Builder) Group(name string, fn func(group *Builder), opts ...TasksOption) *Builder {
	sub := &Builder{name: name, defaultPolicy: builder.defaultPolicy}
	fn(sub)
	if sub.err != nil {
		builder.fail(sub.err)

		return builder
	}
	if len(sub.tasks) == 0 {
		builder.fail(fmt.Errorf("builder %q: group %q has no tasks", builder.name, name))

		return builder
	}

	opts = append([]TasksOption{WithTasksAbsorbPolicy(builder.defaultPolicy)}, opts...)

	return builder.Then(NewTasks(name, sub.tasks, opts...))
}

// OptionalGroup is Group with the composite marked not required.
func (builder *Builder) OptionalGroup(name string, fn func(group *Builder), opts ...TasksOption) *Builder {
	return builder.Group(name, fn, append(opts, WithTasksRequired(false))...)
}

func (builder *Builder) fail(err error) {
	builder.err = errors.Join(builder.err, err)
}

func (builder *Builder) Build() (*Workflow, error) {
	if builder.name == "" {
		return nil, errors.New("workflow name is required")
	}
	if builder.err != nil {
		return nil, builder.err
	}
	if len(builder.tasks) == 0 {
		return nil, fmt.Errorf("builder %q: %w", builder.name, ErrEmptyWorkflow)
	}

	if err := builder.validate(); err != nil {
		return nil, err
	}

	return NewWorkflow(builder.name, builder.tasks, builder.workflowOpts...), nil
}

// validate rejects task instances that appear twice in the tree, since a
// task cannot run twice at once.
func (builder *Builder) validate() error {
	seen := make(map[Task]string)

	var walk func(path string, tasks []Task) error
	walk = func(path string, tasks []Task) error {
		for _, task := range tasks {
			taskPath := joinPath(path, task.Name())
			if prev, ok := seen[task]; ok {
				return fmt.Errorf("builder %q: task %q used twice (%s, %s)",
					builder.name, task.Name(), prev, taskPath)
			}
			seen[task] = taskPath

			if parent, ok := task.(interface{ Children() []Task }); ok {
				if err := walk(taskPath, parent.Children()); err != nil {
					return err
				}
			}
		}

		return nil
	}

	return walk(builder.name, builder.tasks)
}
