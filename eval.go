package clinicflow

import (
	"context"
	"fmt"

	"github.com/rom8726/clinicflow/archetype"
)

// EvalTask is a task that produces a value on completion.
type EvalTask[T any] interface {
	Task
	Value() T
}

// BaseEvalTask is BaseTask plus the produced value. The value is reset to
// the zero value on every Begin.
type BaseEvalTask[T any] struct {
	BaseTask
	value T
}

func NewBaseEvalTask[T any](name string) BaseEvalTask[T] {
	return BaseEvalTask[T]{BaseTask: NewBaseTask(name)}
}

func (task *BaseEvalTask[T]) Begin() error {
	if err := task.BaseTask.Begin(); err != nil {
		return err
	}
	var zero T
	task.value = zero

	return nil
}

func (task *BaseEvalTask[T]) Value() T { return task.value }

func (task *BaseEvalTask[T]) SetValue(value T) { task.value = value }

// NotifyValue sets value and reports Completed.
func (task *BaseEvalTask[T]) NotifyValue(value T) {
	task.value = value
	task.NotifyCompleted()
}

// EvalFunc computes a value from the current context.
type EvalFunc[T any] func(ctx context.Context, tc *TaskContext) (T, error)

// FuncEvalTask evaluates a function synchronously.
type FuncEvalTask[T any] struct {
	BaseEvalTask[T]
	fn EvalFunc[T]
}

func NewEvalTask[T any](name string, fn EvalFunc[T]) *FuncEvalTask[T] {
	return &FuncEvalTask[T]{BaseEvalTask: NewBaseEvalTask[T](name), fn: fn}
}

// NewPredicateTask returns a boolean EvalTask over fn.
func NewPredicateTask(name string, fn EvalFunc[bool]) *FuncEvalTask[bool] {
	return NewEvalTask(name, fn)
}

func (task *FuncEvalTask[T]) Start(ctx context.Context, tc *TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	var value T
	err := runNoPanic(task.Name(), func() error {
		var err error
		value, err = task.fn(ctx, tc)

		return err
	})
	if err != nil {
		task.NotifyError(err)

		return nil
	}
	task.NotifyValue(value)

	return nil
}

// NewExpressionTask evaluates a text/template expression against
// TaskContext.Data, e.g. `{{ ne (index .objects "act.customerAccountChargesInvoice" "status") "POSTED" }}`.
// The template must render "true" or "false".
func NewExpressionTask(name, expr string) *FuncEvalTask[bool] {
	return NewEvalTask(name, func(_ context.Context, tc *TaskContext) (bool, error) {
		return evaluateCondition(expr, tc.Data())
	})
}

var (
	_ EvalTask[bool] = (*NodeConditionTask[string])(nil)
	_ EvalTask[bool] = (*FuncEvalTask[bool])(nil)
)

// NodeConditionTask compares a node of a context object against an expected
// value. A missing object or node compares as nil.
type NodeConditionTask[T comparable] struct {
	BaseEvalTask[bool]
	shortName string
	node      string
	expected  T
	equal     bool
}

// NewNodeEquals evaluates to true when node of the shortName context object
// equals value.
func NewNodeEquals[T comparable](shortName, node string, value T) *NodeConditionTask[T] {
	return newNodeCondition(shortName, node, value, true)
}

// NewNodeNotEquals evaluates to true when node of the shortName context
// object differs from value.
func NewNodeNotEquals[T comparable](shortName, node string, value T) *NodeConditionTask[T] {
	return newNodeCondition(shortName, node, value, false)
}

func newNodeCondition[T comparable](shortName, node string, value T, equal bool) *NodeConditionTask[T] {
	op := "=="
	if !equal {
		op = "!="
	}

	return &NodeConditionTask[T]{
		BaseEvalTask: NewBaseEvalTask[bool](fmt.Sprintf("%s.%s %s %v", shortName, node, op, value)),
		shortName:    shortName,
		node:         node,
		expected:     value,
		equal:        equal,
	}
}

func (task *NodeConditionTask[T]) Start(_ context.Context, tc *TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	expected, err := archetype.Normalize(task.expected)
	if err != nil {
		task.NotifyFailed(fmt.Errorf("node condition %q: %w", task.Name(), err))

		return nil
	}

	var actual any
	if obj := tc.Object(task.shortName); obj != nil {
		actual = obj.Get(task.node)
	}

	task.NotifyValue(archetype.Equal(actual, expected) == task.equal)

	return nil
}
