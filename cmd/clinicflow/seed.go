package main

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/rom8726/clinicflow/archetype"
)

type demo struct {
	customer    *archetype.IMObject
	patient     *archetype.IMObject
	clinician   *archetype.IMObject
	till        *archetype.IMObject
	appointment *archetype.IMObject
}

// seed saves a customer with one pet booked in with a vet, plus a till to
// take the payment at.
func seed(ctx context.Context, service archetype.Service, clk clock.Clock) (*demo, error) {
	now := clk.Now()

	d := &demo{
		customer: archetype.NewIMObject(archetype.Customer, uuid.NewString()).
			MustSet(archetype.NodeName, "Jo Bloggs"),
		clinician: archetype.NewIMObject(archetype.User, uuid.NewString()).
			MustSet(archetype.NodeName, "Dr Vet"),
		till: archetype.NewIMObject(archetype.Till, uuid.NewString()).
			MustSet(archetype.NodeName, "Front desk"),
	}
	d.patient = archetype.NewIMObject(archetype.Patient, uuid.NewString()).
		MustSet(archetype.NodeName, "Fido").
		MustSet(archetype.NodeOwner, d.customer)
	d.appointment = archetype.NewIMObject(archetype.Appointment, uuid.NewString()).
		MustSet(archetype.NodeStatus, archetype.StatusPending).
		MustSet(archetype.NodeStartTime, now).
		MustSet(archetype.NodeReason, "Vaccination").
		MustSet(archetype.NodeCustomer, d.customer).
		MustSet(archetype.NodePatient, d.patient).
		MustSet(archetype.NodeClinician, d.clinician)
	invoice := archetype.NewIMObject(archetype.Invoice, uuid.NewString()).
		MustSet(archetype.NodeStatus, archetype.StatusInProgress).
		MustSet(archetype.NodeStartTime, now).
		MustSet(archetype.NodeAmount, 85.0).
		MustSet(archetype.NodeCustomer, d.customer).
		MustSet(archetype.NodePatient, d.patient)

	if err := service.Save(ctx, d.customer, d.clinician, d.till, d.patient, d.appointment, invoice); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	return d, nil
}
