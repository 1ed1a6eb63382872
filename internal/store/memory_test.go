package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botmesh/bot-engine/internal/model"
)

func TestConversationRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	// Unknown conversations read back empty at revision 0.
	conv, rev, err := m.GetConversation(ctx, "t1", "+5215550001")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), rev)
	assert.Equal(t, "t1", conv.TenantID)

	conv.SchedulingState = model.SchedAskDate
	conv.PendingAppointment = &model.AppointmentDraft{Service: "Consulta General"}
	require.NoError(t, m.PutConversation(ctx, conv, rev))

	got, rev2, err := m.GetConversation(ctx, "t1", "+5215550001")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev2)
	assert.Equal(t, model.SchedAskDate, got.SchedulingState)
	require.NotNil(t, got.PendingAppointment)
	assert.Equal(t, "Consulta General", got.PendingAppointment.Service)
}

func TestConversationWriteConflict(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	conv, rev, err := m.GetConversation(ctx, "t1", "user")
	require.NoError(t, err)
	require.NoError(t, m.PutConversation(ctx, conv, rev))

	// A second writer still holding revision 0 loses the race.
	err = m.PutConversation(ctx, conv, rev)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAppointmentLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.CreateAppointment(ctx, "t1", &model.Appointment{
		Service: "Consulta General",
		Date:    "2026-03-02",
		Time:    "10:00",
		Status:  "confirmed",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	now := time.Now()
	require.NoError(t, m.ConfirmAppointment(ctx, "t1", id, now))

	a, err := m.GetAppointment(ctx, "t1", id)
	require.NoError(t, err)
	assert.True(t, a.Confirmed)

	require.NoError(t, m.CancelAppointment(ctx, "t1", id, now))
	a, err = m.GetAppointment(ctx, "t1", id)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", a.Status)

	err = m.ConfirmAppointment(ctx, "t1", "missing", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTenantAndServiceLookup(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.GetTenant(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	m.PutTenant(&model.Tenant{ID: "t1", PurchasedBots: []string{"scheduling"}})
	m.PutService(&model.Service{ID: "s1", TenantID: "t1", Type: model.TypeScheduling, Active: true})

	ten, err := m.GetTenant(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ten.HasPurchased(model.TypeScheduling))

	svc, err := m.GetService(ctx, "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, model.TypeScheduling, svc.Type)

	_, err = m.GetService(ctx, "t1", "other")
	assert.ErrorIs(t, err, ErrNotFound)
}
