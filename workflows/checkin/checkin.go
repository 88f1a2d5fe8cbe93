// Package checkin builds the check-in workflow for an appointment: resolve
// the patient and clinician, optionally queue a customer task, record a
// weight, open the clinical event and mark the appointment checked in.
package checkin

import (
	"context"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/imtasks"
	"github.com/rom8726/clinicflow/workflows"
)

const (
	Name = "check-in"

	TitlePatient   = "Select patient"
	TitleClinician = "Select clinician"
	TitleWeight    = "Record weight"
)

type Options struct {
	// CreateTask queues a customer task for the appointment on a work list.
	CreateTask bool
}

func New(
	deps workflows.Deps,
	ext clinicflow.ExternalContext,
	appointment archetype.Reference,
	options Options,
) (*clinicflow.Workflow, error) {
	deps = deps.WithDefaults()

	now := clinicflow.NowVariable(deps.Clock)
	customerTask := clinicflow.NewTaskProperties().
		Add(archetype.NodeStatus, archetype.StatusPending).
		AddVariable(archetype.NodeStartTime, now).
		AddVariable(archetype.NodeCustomer, clinicflow.ObjectVariable(archetype.Customer)).
		AddVariable(archetype.NodePatient, clinicflow.ObjectVariable(archetype.Patient)).
		AddVariable(archetype.NodeClinician, clinicflow.RoleVariable(clinicflow.RoleClinician)).
		AddVariable(archetype.NodeSourceAct, clinicflow.ObjectVariable(archetype.Appointment))
	weight := clinicflow.NewTaskProperties().
		AddVariable(archetype.NodeStartTime, now).
		AddVariable(archetype.NodePatient, clinicflow.ObjectVariable(archetype.Patient))
	checkedIn := clinicflow.NewTaskProperties().
		Add(archetype.NodeStatus, archetype.StatusCheckedIn).
		AddVariable(archetype.NodeArrival, now)

	builder := clinicflow.NewBuilder(Name, deps.BuilderOptions(ext)...).
		Then(imtasks.NewLoadActTask(deps.Service, deps.Dialogs, appointment)).
		If(missing(clinicflow.RolePatient),
			imtasks.NewSelectIMObjectTask(deps.Service, deps.Dialogs, TitlePatient, customerPatients).
				AsRole(clinicflow.RolePatient)).
		Optional(clinicflow.NewConditionalTask(missing(clinicflow.RoleClinician),
			imtasks.NewSelectIMObjectTask(deps.Service, deps.Dialogs, TitleClinician, clinicians).
				AsRole(clinicflow.RoleClinician).
				Skippable()))

	if options.CreateTask {
		builder.Optional(imtasks.NewCreateIMObjectTask(deps.Service, deps.Dialogs, archetype.CustomerTask, customerTask, true))
	}

	return builder.
		OptionalGroup("weight", func(group *clinicflow.Builder) {
			group.Then(
				imtasks.NewCreateIMObjectTask(deps.Service, deps.Dialogs, archetype.PatientWeight, weight, false),
				imtasks.NewEditIMObjectTask(deps.Service, deps.Dialogs, archetype.PatientWeight,
					imtasks.WithEditTitle(TitleWeight), imtasks.WithEditSkip()),
			)
		}).
		Then(
			imtasks.NewGetClinicalEventTask(deps.Service, deps.Dialogs, deps.Clock, true),
			imtasks.NewUpdateIMObjectTask(deps.Service, deps.Dialogs, appointment.ShortName, checkedIn),
		).
		Then(synchronize(ext)...).
		Build()
}

func synchronize(ext clinicflow.ExternalContext) []clinicflow.Task {
	if ext == nil {
		return nil
	}

	return []clinicflow.Task{clinicflow.NewSynchronizeContextTask(ext)}
}

// missing is true while the context role is empty.
func missing(role string) *clinicflow.FuncEvalTask[bool] {
	return clinicflow.NewPredicateTask("no "+role, func(_ context.Context, tc *clinicflow.TaskContext) (bool, error) {
		return tc.Role(role) == nil, nil
	})
}

func customerPatients(tc *clinicflow.TaskContext) *archetype.Query {
	query := archetype.NewQuery(archetype.Patient).OrderBy(archetype.NodeName, false)
	if customer := tc.Customer(); customer != nil {
		query.Eq(archetype.NodeOwner, customer.Ref())
	}

	return query
}

func clinicians(*clinicflow.TaskContext) *archetype.Query {
	return archetype.NewQuery(archetype.User).OrderBy(archetype.NodeName, false)
}
