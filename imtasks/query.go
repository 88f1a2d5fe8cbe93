package imtasks

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

var (
	_ clinicflow.Task = (*GetClinicalEventTask)(nil)
	_ clinicflow.Task = (*GetInvoiceTask)(nil)
)

// GetClinicalEventTask puts the latest clinical event of the context patient
// into the context. With create set, a missing event is created IN_PROGRESS
// and saved.
type GetClinicalEventTask struct {
	clinicflow.BaseTask
	service archetype.Service
	dialogs dialog.Dialogs
	clock   clock.Clock
	create  bool
}

func NewGetClinicalEventTask(
	service archetype.Service,
	dialogs dialog.Dialogs,
	clk clock.Clock,
	create bool,
) *GetClinicalEventTask {
	if clk == nil {
		clk = clock.New()
	}

	return &GetClinicalEventTask{
		BaseTask: clinicflow.NewBaseTask("get clinical event"),
		service:  service,
		dialogs:  dialogs,
		clock:    clk,
		create:   create,
	}
}

func (task *GetClinicalEventTask) Start(ctx context.Context, tc *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	patient := tc.Patient()
	if patient == nil {
		fail(&task.BaseTask, task.dialogs, "Clinical event", notFound(archetype.Patient))

		return nil
	}

	event, err := task.find(ctx, patient)
	if err != nil {
		fail(&task.BaseTask, task.dialogs, "Clinical event", err)

		return nil
	}
	if event == nil {
		if !task.create {
			fail(&task.BaseTask, task.dialogs, "Clinical event", notFound(archetype.ClinicalEvent))

			return nil
		}
		if event, err = task.newEvent(ctx, tc, patient); err != nil {
			fail(&task.BaseTask, task.dialogs, "Clinical event", err)

			return nil
		}
	}

	tc.AddObject(event)
	task.NotifyCompleted()

	return nil
}

func (task *GetClinicalEventTask) find(ctx context.Context, patient *archetype.IMObject) (*archetype.IMObject, error) {
	query := archetype.NewQuery(archetype.ClinicalEvent).
		Eq(archetype.NodePatient, patient.Ref()).
		OrderBy(archetype.NodeStartTime, true).
		WithLimit(1)

	events, err := task.service.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query clinical events: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	return events[0], nil
}

func (task *GetClinicalEventTask) newEvent(
	ctx context.Context,
	tc *clinicflow.TaskContext,
	patient *archetype.IMObject,
) (*archetype.IMObject, error) {
	event, err := task.service.Create(ctx, archetype.ClinicalEvent)
	if err != nil {
		return nil, fmt.Errorf("create clinical event: %w", err)
	}

	event.MustSet(archetype.NodePatient, patient.Ref()).
		MustSet(archetype.NodeStatus, archetype.StatusInProgress).
		MustSet(archetype.NodeStartTime, task.clock.Now())
	if clinician := tc.Clinician(); clinician != nil {
		event.MustSet(archetype.NodeClinician, clinician.Ref())
	}

	if err := task.service.Save(ctx, event); err != nil {
		return nil, fmt.Errorf("save clinical event: %w", err)
	}

	return event, nil
}

// GetInvoiceTask puts the customer's current invoice into the context: the
// newest unposted one, or else the newest of any status. Finding none is
// not an error; the context is left without an invoice.
type GetInvoiceTask struct {
	clinicflow.BaseTask
	service archetype.Service
	dialogs dialog.Dialogs
}

func NewGetInvoiceTask(service archetype.Service, dialogs dialog.Dialogs) *GetInvoiceTask {
	return &GetInvoiceTask{
		BaseTask: clinicflow.NewBaseTask("get invoice"),
		service:  service,
		dialogs:  dialogs,
	}
}

func (task *GetInvoiceTask) Start(ctx context.Context, tc *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	customer := tc.Customer()
	if customer == nil {
		fail(&task.BaseTask, task.dialogs, "Invoice", notFound(archetype.Customer))

		return nil
	}

	unposted := archetype.NewQuery(archetype.Invoice).
		Eq(archetype.NodeCustomer, customer.Ref()).
		Ne(archetype.NodeStatus, archetype.StatusPosted).
		OrderBy(archetype.NodeStartTime, true).
		WithLimit(1)
	latest := archetype.NewQuery(archetype.Invoice).
		Eq(archetype.NodeCustomer, customer.Ref()).
		OrderBy(archetype.NodeStartTime, true).
		WithLimit(1)

	for _, query := range []*archetype.Query{unposted, latest} {
		invoices, err := task.service.Query(ctx, query)
		if err != nil {
			fail(&task.BaseTask, task.dialogs, "Invoice", fmt.Errorf("query invoices: %w", err))

			return nil
		}
		if len(invoices) > 0 {
			tc.AddObject(invoices[0])

			break
		}
	}

	task.NotifyCompleted()

	return nil
}
