// Package archetypetest is a conformance suite for archetype.Service
// backends.
package archetypetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rom8726/clinicflow/archetype"
)

// TestService runs the suite against the service returned by newService.
// Each subtest gets a fresh service.
func TestService(t *testing.T, newService func(t *testing.T) archetype.Service) {
	ctx := context.Background()

	t.Run("create is not persisted", func(t *testing.T) {
		s := newService(t)

		obj, err := s.Create(ctx, archetype.Invoice)
		require.NoError(t, err)
		assert.True(t, obj.IsNew())
		assert.NotEmpty(t, obj.ID)

		_, err = s.Get(ctx, obj.Ref())
		assert.ErrorIs(t, err, archetype.ErrNotFound)
	})

	t.Run("save and get round trip", func(t *testing.T) {
		s := newService(t)

		when := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
		customer := archetype.Reference{ShortName: archetype.Customer, ID: "c1"}

		obj, err := s.Create(ctx, archetype.Invoice)
		require.NoError(t, err)
		obj.MustSet(archetype.NodeName, "Invoice 1").
			MustSet(archetype.NodeStatus, archetype.StatusInProgress).
			MustSet(archetype.NodeStartTime, when).
			MustSet(archetype.NodeCustomer, customer).
			MustSet(archetype.NodeAmount, 125.5).
			MustSet("lines", 3).
			MustSet("printed", false)

		require.NoError(t, s.Save(ctx, obj))
		assert.Equal(t, int64(1), obj.Version)

		got, err := s.Get(ctx, obj.Ref())
		require.NoError(t, err)
		assert.Equal(t, "Invoice 1", got.Name)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, archetype.StatusInProgress, got.GetString(archetype.NodeStatus))
		assert.True(t, when.Equal(got.GetTime(archetype.NodeStartTime)))
		assert.Equal(t, customer, got.GetReference(archetype.NodeCustomer))
		assert.InDelta(t, 125.5, got.GetFloat(archetype.NodeAmount), 0.0001)
		assert.Equal(t, int64(3), got.GetInt64("lines"))
		assert.True(t, got.Has("printed"))
		assert.False(t, got.GetBool("printed"))
	})

	t.Run("unsaved edits do not leak", func(t *testing.T) {
		s := newService(t)

		obj, err := s.Create(ctx, archetype.Appointment)
		require.NoError(t, err)
		obj.MustSet(archetype.NodeStatus, archetype.StatusPending)
		require.NoError(t, s.Save(ctx, obj))

		obj.MustSet(archetype.NodeStatus, archetype.StatusCompleted)

		got, err := s.Get(ctx, obj.Ref())
		require.NoError(t, err)
		assert.Equal(t, archetype.StatusPending, got.GetString(archetype.NodeStatus))
	})

	t.Run("stale save is rejected", func(t *testing.T) {
		s := newService(t)

		obj, err := s.Create(ctx, archetype.Invoice)
		require.NoError(t, err)
		require.NoError(t, s.Save(ctx, obj))

		first, err := s.Get(ctx, obj.Ref())
		require.NoError(t, err)
		second, err := s.Get(ctx, obj.Ref())
		require.NoError(t, err)

		first.MustSet(archetype.NodeStatus, archetype.StatusPosted)
		require.NoError(t, s.Save(ctx, first))

		second.MustSet(archetype.NodeStatus, archetype.StatusOnHold)
		err = s.Save(ctx, second)
		assert.ErrorIs(t, err, archetype.ErrStale)
		assert.Equal(t, int64(1), second.Version)
	})

	t.Run("query filters sorts and limits", func(t *testing.T) {
		s := newService(t)

		customer := archetype.Reference{ShortName: archetype.Customer, ID: "c1"}
		other := archetype.Reference{ShortName: archetype.Customer, ID: "c2"}
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		for i, inv := range []struct {
			customer archetype.Reference
			status   string
		}{
			{customer, archetype.StatusPosted},
			{customer, archetype.StatusInProgress},
			{other, archetype.StatusInProgress},
			{customer, archetype.StatusOnHold},
		} {
			obj, err := s.Create(ctx, archetype.Invoice)
			require.NoError(t, err)
			obj.MustSet(archetype.NodeCustomer, inv.customer).
				MustSet(archetype.NodeStatus, inv.status).
				MustSet(archetype.NodeStartTime, base.Add(time.Duration(i)*time.Hour))
			require.NoError(t, s.Save(ctx, obj))
		}
		payment, err := s.Create(ctx, archetype.Payment)
		require.NoError(t, err)
		payment.MustSet(archetype.NodeCustomer, customer)
		require.NoError(t, s.Save(ctx, payment))

		invoices, err := s.Query(ctx, archetype.NewQuery(archetype.Invoice).
			Eq(archetype.NodeCustomer, customer).
			Ne(archetype.NodeStatus, archetype.StatusPosted).
			OrderBy(archetype.NodeStartTime, true))
		require.NoError(t, err)
		require.Len(t, invoices, 2)
		assert.Equal(t, archetype.StatusOnHold, invoices[0].GetString(archetype.NodeStatus))
		assert.Equal(t, archetype.StatusInProgress, invoices[1].GetString(archetype.NodeStatus))

		charges, err := s.Query(ctx, archetype.NewQuery("act.customerAccount*").
			Eq(archetype.NodeCustomer, customer))
		require.NoError(t, err)
		assert.Len(t, charges, 4)

		limited, err := s.Query(ctx, archetype.NewQuery(archetype.Invoice).
			OrderBy(archetype.NodeStartTime, false).
			WithLimit(1))
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, archetype.StatusPosted, limited[0].GetString(archetype.NodeStatus))
	})

	t.Run("remove", func(t *testing.T) {
		s := newService(t)

		obj, err := s.Create(ctx, archetype.ClinicalEvent)
		require.NoError(t, err)
		require.NoError(t, s.Save(ctx, obj))

		require.NoError(t, s.Remove(ctx, obj.Ref()))
		_, err = s.Get(ctx, obj.Ref())
		assert.ErrorIs(t, err, archetype.ErrNotFound)
		assert.ErrorIs(t, s.Remove(ctx, obj.Ref()), archetype.ErrNotFound)
	})
}
