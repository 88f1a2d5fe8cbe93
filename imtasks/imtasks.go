// Package imtasks holds the leaf tasks that read and write domain objects
// through an archetype.Service and talk to the user through dialog.Dialogs.
//
// Every task reports service and validation errors to the user with
// Dialogs.Error before it fails.
package imtasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

var ErrObjectNotFound = errors.New("object not found in context")

// Printer prints a domain object, typically through a document template.
type Printer interface {
	Print(ctx context.Context, obj *archetype.IMObject) error
}

// PrinterFunc adapts a function to Printer.
type PrinterFunc func(ctx context.Context, obj *archetype.IMObject) error

func (fn PrinterFunc) Print(ctx context.Context, obj *archetype.IMObject) error {
	return fn(ctx, obj)
}

// fail shows err and reports Failed.
func fail(task *clinicflow.BaseTask, dialogs dialog.Dialogs, title string, err error) {
	if dialogs != nil {
		dialogs.Error(title, err)
	}
	task.NotifyFailed(err)
}

func notFound(shortName string) error {
	return fmt.Errorf("%w: %s", ErrObjectNotFound, shortName)
}

// commit copies a saved working copy back into the context object, so every
// holder of the context pointer sees the update.
func commit(target, saved *archetype.IMObject) {
	*target = *saved
}
