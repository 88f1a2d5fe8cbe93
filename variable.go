package clinicflow

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/rom8726/clinicflow/archetype"
)

// Variable is a value computed when the properties are applied, not when the
// workflow is built.
type Variable func(ctx context.Context, tc *TaskContext) (any, error)

// NowVariable returns the clock's current time.
func NowVariable(clk clock.Clock) Variable {
	return func(context.Context, *TaskContext) (any, error) {
		return clk.Now(), nil
	}
}

// ObjectVariable returns a reference to the context object matching
// shortName, or nil when there is none.
func ObjectVariable(shortName string) Variable {
	return func(_ context.Context, tc *TaskContext) (any, error) {
		if obj := tc.Object(shortName); obj != nil {
			return obj.Ref(), nil
		}

		return nil, nil
	}
}

// RoleVariable returns a reference to the object in the context role, or nil
// when the role is empty.
func RoleVariable(role string) Variable {
	return func(_ context.Context, tc *TaskContext) (any, error) {
		if obj := tc.Role(role); obj != nil {
			return obj.Ref(), nil
		}

		return nil, nil
	}
}

// ValueVariable returns the named context value.
func ValueVariable(key string) Variable {
	return func(_ context.Context, tc *TaskContext) (any, error) {
		return tc.Value(key), nil
	}
}

type property struct {
	name     string
	value    any
	variable Variable
}

// TaskProperties is an ordered set of node assignments applied to an object
// right before a mutating task saves it.
type TaskProperties struct {
	props []property
}

func NewTaskProperties() *TaskProperties {
	return &TaskProperties{}
}

// Add assigns a fixed value. A later assignment to the same node wins.
func (p *TaskProperties) Add(name string, value any) *TaskProperties {
	p.props = append(p.props, property{name: name, value: value})

	return p
}

func (p *TaskProperties) AddVariable(name string, variable Variable) *TaskProperties {
	p.props = append(p.props, property{name: name, variable: variable})

	return p
}

func (p *TaskProperties) Len() int {
	if p == nil {
		return 0
	}

	return len(p.props)
}

func (p *TaskProperties) Names() []string {
	if p == nil {
		return nil
	}

	names := make([]string, len(p.props))
	for i, prop := range p.props {
		names[i] = prop.name
	}

	return names
}

// Apply evaluates variables and sets every property on obj in order.
func (p *TaskProperties) Apply(ctx context.Context, tc *TaskContext, obj *archetype.IMObject) error {
	if p == nil {
		return nil
	}

	for _, prop := range p.props {
		value := prop.value
		if prop.variable != nil {
			v, err := prop.variable(ctx, tc)
			if err != nil {
				return fmt.Errorf("evaluate %q: %w", prop.name, err)
			}
			value = v
		}

		if err := obj.Set(prop.name, value); err != nil {
			return fmt.Errorf("set %q on %s: %w", prop.name, obj.Ref(), err)
		}
	}

	return nil
}
