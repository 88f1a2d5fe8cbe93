package imtasks

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

func TestUpdateIMObjectTask(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC))

	service := archetype.NewMemoryService()
	appointment := archetype.NewIMObject(archetype.Appointment, "a1").
		MustSet(archetype.NodeStatus, archetype.StatusInProgress)
	saved(t, service, appointment)

	tc := clinicflow.NewTaskContext()
	tc.AddObject(appointment)

	props := clinicflow.NewTaskProperties().
		Add(archetype.NodeStatus, archetype.StatusCompleted).
		AddVariable(archetype.NodeEndTime, clinicflow.NowVariable(mock))
	task := NewUpdateIMObjectTask(service, dialog.NewQueue(mock), archetype.Appointment, props)

	mock.Add(time.Minute)
	recorded := start(t, task, tc)

	require.True(t, recorded.last().IsCompleted())
	assert.Equal(t, archetype.StatusCompleted, appointment.GetString(archetype.NodeStatus))
	assert.True(t, appointment.GetTime(archetype.NodeEndTime).Equal(mock.Now()))
	assert.Equal(t, int64(2), appointment.Version)

	stored := load(t, service, appointment.Ref())
	assert.Equal(t, archetype.StatusCompleted, stored.GetString(archetype.NodeStatus))
}

func TestUpdateIMObjectTask_Failures(t *testing.T) {
	tests := []struct {
		name      string
		service   archetype.Service
		addObject bool
		expectErr error
	}{
		{
			name:      "object not in context",
			service:   archetype.NewMemoryService(),
			expectErr: ErrObjectNotFound,
		},
		{
			name:      "save fails",
			service:   newFailingService("save"),
			addObject: true,
			expectErr: errBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := dialog.NewQueue(clock.NewMock())
			obj := archetype.NewIMObject(archetype.Appointment, "a1").
				MustSet(archetype.NodeStatus, archetype.StatusInProgress)

			tc := clinicflow.NewTaskContext()
			if tt.addObject {
				tc.AddObject(obj)
			}

			props := clinicflow.NewTaskProperties().Add(archetype.NodeStatus, archetype.StatusCompleted)
			recorded := start(t, NewUpdateIMObjectTask(tt.service, queue, archetype.Appointment, props), tc)

			require.True(t, recorded.last().IsFailed())
			assert.ErrorIs(t, recorded.last().Err, tt.expectErr)
			assert.Len(t, queue.Errors(), 1)
			assert.Equal(t, archetype.StatusInProgress, obj.GetString(archetype.NodeStatus))
		})
	}
}

func TestCreateIMObjectTask(t *testing.T) {
	service := archetype.NewMemoryService()
	queue := dialog.NewQueue(clock.NewMock())

	customer := archetype.NewIMObject(archetype.Customer, "c1")
	tc := clinicflow.NewTaskContext()
	tc.SetCustomer(customer)

	props := clinicflow.NewTaskProperties().
		Add(archetype.NodeStatus, archetype.StatusInProgress).
		AddVariable(archetype.NodeCustomer, clinicflow.ObjectVariable(archetype.Customer))

	t.Run("unsaved", func(t *testing.T) {
		recorded := start(t, NewCreateIMObjectTask(service, queue, archetype.Invoice, props, false), tc)

		require.True(t, recorded.last().IsCompleted())
		invoice := tc.Object(archetype.Invoice)
		require.NotNil(t, invoice)
		assert.True(t, invoice.IsNew())
		assert.Equal(t, customer.Ref(), invoice.GetReference(archetype.NodeCustomer))
		assert.Equal(t, 0, service.Len())
	})

	t.Run("saved", func(t *testing.T) {
		recorded := start(t, NewCreateIMObjectTask(service, queue, archetype.Invoice, props, true), tc)

		require.True(t, recorded.last().IsCompleted())
		assert.False(t, tc.Object(archetype.Invoice).IsNew())
		assert.Equal(t, 1, service.Len())
	})

	t.Run("create fails", func(t *testing.T) {
		recorded := start(t, NewCreateIMObjectTask(newFailingService("create"), queue, archetype.Invoice, props, true), tc)

		require.True(t, recorded.last().IsFailed())
		assert.ErrorIs(t, recorded.last().Err, errBackend)
	})
}

func TestConditionalCreateTask(t *testing.T) {
	service := archetype.NewMemoryService()
	queue := dialog.NewQueue(clock.NewMock())
	existing := archetype.NewIMObject(archetype.Invoice, "i1")

	t.Run("present", func(t *testing.T) {
		tc := clinicflow.NewTaskContext()
		tc.AddObject(existing)

		task := NewConditionalCreateTask(service, queue, archetype.Invoice, nil, true)
		recorded := start(t, task, tc)

		require.True(t, recorded.last().IsCompleted())
		assert.Same(t, existing, tc.Object(archetype.Invoice))
		assert.Equal(t, 0, service.Len())
	})

	t.Run("absent", func(t *testing.T) {
		tc := clinicflow.NewTaskContext()

		task := NewConditionalCreateTask(service, queue, archetype.Invoice, nil, true)
		recorded := start(t, task, tc)

		require.True(t, recorded.last().IsCompleted())
		require.NotNil(t, tc.Object(archetype.Invoice))
		assert.Equal(t, 1, service.Len())
		assert.Equal(t, "create act.customerAccountChargesInvoice if absent", task.Name())
	})
}
