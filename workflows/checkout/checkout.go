// Package checkout builds the check-out workflow for an appointment or a
// customer task: invoice, post, pay, print, complete the act and copy the
// participants back to the caller's context.
package checkout

import (
	"fmt"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/imtasks"
	"github.com/rom8726/clinicflow/workflows"
	"github.com/rom8726/clinicflow/workflows/payment"
)

const (
	Name = "check-out"

	TitlePost = "Post invoice"
)

type Options struct {
	// EditInvoice opens the invoice editor before posting.
	EditInvoice bool
	// PrintInvoice offers to print the invoice once it is posted.
	PrintInvoice bool
}

// New builds the check-out workflow for act. The task context is seeded from
// ext and the participants are copied back to it at the end.
func New(
	deps workflows.Deps,
	ext clinicflow.ExternalContext,
	act archetype.Reference,
	options Options,
) (*clinicflow.Workflow, error) {
	deps = deps.WithDefaults()

	pay, err := payment.New(deps)
	if err != nil {
		return nil, fmt.Errorf("build payment: %w", err)
	}

	invoice := clinicflow.NewTaskProperties().
		Add(archetype.NodeStatus, archetype.StatusInProgress).
		Add(archetype.NodeAmount, 0.0).
		AddVariable(archetype.NodeStartTime, clinicflow.NowVariable(deps.Clock)).
		AddVariable(archetype.NodeCustomer, clinicflow.ObjectVariable(archetype.Customer)).
		AddVariable(archetype.NodePatient, clinicflow.ObjectVariable(archetype.Patient))
	posted := clinicflow.NewTaskProperties().
		Add(archetype.NodeStatus, archetype.StatusPosted).
		AddVariable(archetype.NodeStartTime, clinicflow.NowVariable(deps.Clock))
	completed := clinicflow.NewTaskProperties().
		Add(archetype.NodeStatus, archetype.StatusCompleted).
		AddVariable(archetype.NodeEndTime, clinicflow.NowVariable(deps.Clock))

	builder := clinicflow.NewBuilder(Name, deps.BuilderOptions(ext)...).
		Then(
			imtasks.NewLoadActTask(deps.Service, deps.Dialogs, act),
			imtasks.NewGetInvoiceTask(deps.Service, deps.Dialogs),
			imtasks.NewConditionalCreateTask(deps.Service, deps.Dialogs, archetype.Invoice, invoice, true),
		)

	if options.EditInvoice {
		builder.If(isUnposted(),
			imtasks.NewEditIMObjectTask(deps.Service, deps.Dialogs, archetype.Invoice, imtasks.WithEditSkip()))
	}

	builder.OptionalGroup("post invoice", func(group *clinicflow.Builder) {
		group.If(isUnposted(), clinicflow.NewConditionalTask(
			imtasks.NewConfirmationTask(deps.Dialogs, TitlePost, "Post the invoice?"),
			imtasks.NewUpdateIMObjectTask(deps.Service, deps.Dialogs, archetype.Invoice, posted),
		))
	})

	// Abandoning the payment leaves the invoice posted and check-out goes on.
	builder.Optional(clinicflow.NewConditionalTask(isPosted(), pay))

	if options.PrintInvoice {
		builder.OptionalGroup("print", func(group *clinicflow.Builder) {
			group.If(isPosted(), imtasks.NewPrintIMObjectTask(deps.Dialogs, deps.Printer, archetype.Invoice, true))
		})
	}

	builder.Then(imtasks.NewUpdateIMObjectTask(deps.Service, deps.Dialogs, act.ShortName, completed))
	if ext != nil {
		builder.Then(clinicflow.NewSynchronizeContextTask(ext))
	}

	return builder.Build()
}

func isPosted() *clinicflow.NodeConditionTask[string] {
	return clinicflow.NewNodeEquals(archetype.Invoice, archetype.NodeStatus, archetype.StatusPosted)
}

func isUnposted() *clinicflow.NodeConditionTask[string] {
	return clinicflow.NewNodeNotEquals(archetype.Invoice, archetype.NodeStatus, archetype.StatusPosted)
}
