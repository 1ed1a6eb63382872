package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/botmesh/bot-engine/internal/bot"
	"github.com/botmesh/bot-engine/internal/entitlement"
	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
)

func newDispatcherFixture(t *testing.T) (*Dispatcher, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	log := logger.NewNop()
	deps := bot.Deps{
		Store:  mem,
		Logger: log,
		Now:    func() time.Time { return time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC) },
	}
	d := New(mem, entitlement.NewGate(mem, log), bot.NewRegistry(deps), log)
	return d, mem
}

func seedService(mem *store.Memory, svcType model.ServiceType, active bool) {
	mem.PutTenant(&model.Tenant{
		ID:            "tn-1",
		PurchasedBots: []string{"rules", "scheduling", "lead", "faq"},
	})
	mem.PutService(&model.Service{
		ID:       "svc-1",
		TenantID: "tn-1",
		Type:     svcType,
		Active:   active,
		Settings: map[string]any{"mode": "support"},
	})
}

func event() *model.IncomingEvent {
	return &model.IncomingEvent{
		TenantID:  "tn-1",
		ServiceID: "svc-1",
		From:      "+5215500011122",
		Text:      "hola",
	}
}

func TestDispatchServiceNotFound(t *testing.T) {
	d, _ := newDispatcherFixture(t)

	env := d.Dispatch(context.Background(), event())
	assert.False(t, env.Success)
	assert.Equal(t, "service not found", env.Error)
	assert.Empty(t, env.ReplyText)
	assert.Equal(t, "+5215500011122", env.To)
}

func TestDispatchInactiveService(t *testing.T) {
	d, mem := newDispatcherFixture(t)
	seedService(mem, model.TypeRules, false)

	env := d.Dispatch(context.Background(), event())
	assert.False(t, env.Success)
	assert.Equal(t, "service disabled", env.Error)
}

func TestDispatchAccessDeniedIsSoft(t *testing.T) {
	d, mem := newDispatcherFixture(t)
	mem.PutTenant(&model.Tenant{ID: "tn-1", PurchasedBots: []string{"rules"}})
	mem.PutService(&model.Service{
		ID: "svc-1", TenantID: "tn-1", Type: model.TypeScheduling, Active: true,
	})

	env := d.Dispatch(context.Background(), event())
	assert.False(t, env.Success)
	assert.Equal(t, "access denied", env.Error)
	assert.Equal(t, "Bot no activo en su plan.", env.ReplyText)
}

func TestDispatchUnknownType(t *testing.T) {
	d, mem := newDispatcherFixture(t)
	mem.PutTenant(&model.Tenant{ID: "tn-1", PurchasedBots: []string{"rules"}})
	mem.PutService(&model.Service{
		ID: "svc-1", TenantID: "tn-1", Type: "telepathy", Active: true,
	})

	env := d.Dispatch(context.Background(), event())
	assert.False(t, env.Success)
	assert.Equal(t, "unknown type", env.Error)
}

func TestDispatchMissingTypeDefaultsToRules(t *testing.T) {
	d, mem := newDispatcherFixture(t)
	mem.PutTenant(&model.Tenant{ID: "tn-1"})
	mem.PutService(&model.Service{
		ID: "svc-1", TenantID: "tn-1", Active: true,
		Settings: map[string]any{"mode": "support"},
	})

	env := d.Dispatch(context.Background(), event())
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.ReplyText)
	assert.Equal(t, "rules_bot", env.Meta["handler"])
}

func TestDispatchSuccessEnvelope(t *testing.T) {
	d, mem := newDispatcherFixture(t)
	seedService(mem, model.TypeRules, true)

	env := d.Dispatch(context.Background(), event())
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
	assert.Equal(t, "tn-1", env.TenantID)
	assert.Equal(t, "svc-1", env.ServiceID)
	assert.NotEmpty(t, env.ReplyText)
}

// panicHandler always panics, standing in for a buggy behavior.
type panicHandler struct{}

func (panicHandler) Kind() model.ServiceType { return model.TypeFAQ }
func (panicHandler) Handle(context.Context, *model.IncomingEvent, *model.Service) (*bot.Result, error) {
	panic("boom")
}

func TestDispatchCapturesPanic(t *testing.T) {
	mem := store.NewMemory()
	log := logger.NewNop()
	seedService(mem, model.TypeFAQ, true)

	d := New(mem, entitlement.NewGate(mem, log), bot.Registry{model.TypeFAQ: panicHandler{}}, log)

	env := d.Dispatch(context.Background(), event())
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "behavior panic")
}

// conflictHandler fails with a write conflict once, then succeeds.
type conflictHandler struct{ calls int }

func (h *conflictHandler) Kind() model.ServiceType { return model.TypeRules }
func (h *conflictHandler) Handle(context.Context, *model.IncomingEvent, *model.Service) (*bot.Result, error) {
	h.calls++
	if h.calls == 1 {
		return nil, store.ErrConflict
	}
	return &bot.Result{Reply: "listo"}, nil
}

func TestDispatchRetriesConflictOnce(t *testing.T) {
	mem := store.NewMemory()
	log := logger.NewNop()
	seedService(mem, model.TypeRules, true)

	h := &conflictHandler{}
	d := New(mem, entitlement.NewGate(mem, log), bot.Registry{model.TypeRules: h}, log)

	env := d.Dispatch(context.Background(), event())
	assert.True(t, env.Success)
	assert.Equal(t, "listo", env.ReplyText)
	assert.Equal(t, 2, h.calls)
}

func TestDispatchConflictOnRetrySurfaces(t *testing.T) {
	mem := store.NewMemory()
	log := logger.NewNop()
	seedService(mem, model.TypeRules, true)

	always := &alwaysConflict{}
	d := New(mem, entitlement.NewGate(mem, log), bot.Registry{model.TypeRules: always}, log)

	env := d.Dispatch(context.Background(), event())
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "conflict")
	assert.Equal(t, 2, always.calls)
}

type alwaysConflict struct{ calls int }

func (h *alwaysConflict) Kind() model.ServiceType { return model.TypeRules }
func (h *alwaysConflict) Handle(context.Context, *model.IncomingEvent, *model.Service) (*bot.Result, error) {
	h.calls++
	return nil, store.ErrConflict
}
