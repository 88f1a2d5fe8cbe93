// Package payment builds the payment workflow: ask whether the customer pays
// now, then create, edit and post a payment for the context invoice.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/imtasks"
	"github.com/rom8726/clinicflow/workflows"
)

const (
	Name = "payment"

	TitlePay  = "Pay account"
	TitleEdit = "Edit payment"
)

var ErrInvalidAmount = errors.New("payment amount must be positive")

// New builds the payment workflow. Run inside another workflow it shares the
// parent's TaskContext, logger, clock and plugins.
func New(deps workflows.Deps, opts ...clinicflow.WorkflowOption) (*clinicflow.Workflow, error) {
	deps = deps.WithDefaults()

	props := clinicflow.NewTaskProperties().
		Add(archetype.NodeStatus, archetype.StatusInProgress).
		AddVariable(archetype.NodeStartTime, clinicflow.NowVariable(deps.Clock)).
		AddVariable(archetype.NodeCustomer, clinicflow.ObjectVariable(archetype.Customer)).
		AddVariable(archetype.NodeTill, clinicflow.ObjectVariable(archetype.Till)).
		AddVariable(archetype.NodeSourceAct, clinicflow.ObjectVariable(archetype.Invoice)).
		AddVariable(archetype.NodeAmount, InvoiceBalance)
	post := clinicflow.NewTaskProperties().
		Add(archetype.NodeStatus, archetype.StatusPosted).
		AddVariable(archetype.NodeStartTime, clinicflow.NowVariable(deps.Clock))

	pay := imtasks.NewConfirmationTask(deps.Dialogs, TitlePay, "Pay the account now?")

	return clinicflow.NewBuilder(Name, clinicflow.WithBuilderWorkflowOptions(opts...)).
		If(pay, clinicflow.NewTasks("take payment", []clinicflow.Task{
			imtasks.NewCreateIMObjectTask(deps.Service, deps.Dialogs, archetype.Payment, props, false),
			imtasks.NewEditIMObjectTask(deps.Service, deps.Dialogs, archetype.Payment,
				imtasks.WithEditTitle(TitleEdit), imtasks.WithEditValidator(validateAmount)),
			imtasks.NewUpdateIMObjectTask(deps.Service, deps.Dialogs, archetype.Payment, post),
		})).
		Build()
}

// InvoiceBalance is the amount of the context invoice, or zero without one.
func InvoiceBalance(_ context.Context, tc *clinicflow.TaskContext) (any, error) {
	invoice := tc.Object(archetype.Invoice)
	if invoice == nil {
		return 0.0, nil
	}

	return invoice.GetFloat(archetype.NodeAmount), nil
}

func validateAmount(payment *archetype.IMObject) error {
	if amount := payment.GetFloat(archetype.NodeAmount); amount <= 0 {
		return fmt.Errorf("%w: %.2f", ErrInvalidAmount, amount)
	}

	return nil
}
