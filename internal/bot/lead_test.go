package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
)

func newLeadFixture(t *testing.T) (*Lead, *store.Memory, *model.Service) {
	t.Helper()
	mem := store.NewMemory()
	svc := &model.Service{
		ID:       "svc-1",
		TenantID: "tn-1",
		Type:     model.TypeLead,
		Active:   true,
		Settings: map[string]any{"business_name": "Agencia Delta"},
	}
	b := NewLead(Deps{
		Store:  mem,
		Logger: logger.NewNop(),
		Now:    func() time.Time { return time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC) },
	})
	return b, mem, svc
}

func leadEvent(text string) *model.IncomingEvent {
	return &model.IncomingEvent{
		TenantID:  "tn-1",
		ServiceID: "svc-1",
		From:      "+5215598765432",
		Text:      text,
	}
}

func leadConv(t *testing.T, mem *store.Memory) *model.Conversation {
	t.Helper()
	conv, _, err := mem.GetConversation(context.Background(), "tn-1", "+5215598765432")
	require.NoError(t, err)
	return conv
}

func TestLeadFullQualificationFlow(t *testing.T) {
	b, mem, svc := newLeadFixture(t)
	ctx := context.Background()

	res, err := b.Handle(ctx, leadEvent("hola"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Agencia Delta")
	assert.Contains(t, res.Reply, "1. Salud y Bienestar")
	assert.Equal(t, model.LeadAskIndustry, leadConv(t, mem).LeadState)

	// Tecnologia is option 4.
	res, err = b.Handle(ctx, leadEvent("4"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Tecnologia")
	assert.Contains(t, res.Reply, "empleados")

	// 51-200 empleados is option 3.
	res, err = b.Handle(ctx, leadEvent("3"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "51-200 empleados")
	assert.Contains(t, res.Reply, "presupuesto")

	// Mas de $2000/mes is option 4.
	res, err = b.Handle(ctx, leadEvent("4"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "nombre")

	res, err = b.Handle(ctx, leadEvent("ana torres"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Ana Torres")
	assert.Contains(t, res.Reply, "correo")

	res, err = b.Handle(ctx, leadEvent("Ana@Empresa.com"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "telefono")

	res, err = b.Handle(ctx, leadEvent("+52 11 2345 6789 0"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Ana Torres")
	assert.Contains(t, res.Reply, "Tecnologia")

	conv := leadConv(t, mem)
	assert.Equal(t, model.LeadCompleted, conv.LeadState)
	assert.Nil(t, conv.LeadDraft)
	require.NotEmpty(t, conv.LastLeadID)

	lead, err := mem.GetLead(ctx, "tn-1", conv.LastLeadID)
	require.NoError(t, err)
	assert.Equal(t, "Tecnologia", lead.Industry)
	assert.Equal(t, "51-200 empleados", lead.CompanySize)
	assert.Equal(t, "Mas de $2000/mes", lead.Budget)
	assert.Equal(t, "ana@empresa.com", lead.Email)
	assert.Equal(t, "+5211234567890", lead.Phone)
	assert.Equal(t, 90, lead.Score)
	assert.Equal(t, "HOT", lead.Priority)
	assert.Equal(t, "new", lead.Status)
	assert.Equal(t, "+5215598765432", lead.WhatsApp)
}

func TestLeadIndustryFallsBackToCatchAll(t *testing.T) {
	b, mem, svc := newLeadFixture(t)
	ctx := context.Background()

	_, err := b.Handle(ctx, leadEvent("hola"), svc)
	require.NoError(t, err)

	res, err := b.Handle(ctx, leadEvent("99"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Otro")
	assert.Equal(t, "Otro", leadConv(t, mem).LeadDraft.Industry)
}

func TestLeadIndustrySubstringMatch(t *testing.T) {
	b, mem, svc := newLeadFixture(t)
	ctx := context.Background()

	_, err := b.Handle(ctx, leadEvent("hola"), svc)
	require.NoError(t, err)

	_, err = b.Handle(ctx, leadEvent("salud"), svc)
	require.NoError(t, err)
	assert.Equal(t, "Salud y Bienestar", leadConv(t, mem).LeadDraft.Industry)
}

func TestLeadTierFallsBackToFirst(t *testing.T) {
	b, mem, svc := newLeadFixture(t)
	ctx := context.Background()

	_, err := b.Handle(ctx, leadEvent("hola"), svc)
	require.NoError(t, err)
	_, err = b.Handle(ctx, leadEvent("1"), svc)
	require.NoError(t, err)

	// Non-numeric text in the size step always takes the first tier.
	_, err = b.Handle(ctx, leadEvent("grande"), svc)
	require.NoError(t, err)
	assert.Equal(t, "1-10 empleados", leadConv(t, mem).LeadDraft.CompanySize)
}

func TestLeadEmailValidation(t *testing.T) {
	b, mem, svc := newLeadFixture(t)
	ctx := context.Background()

	for _, msg := range []string{"hola", "1", "1", "1", "Ana"} {
		_, err := b.Handle(ctx, leadEvent(msg), svc)
		require.NoError(t, err)
	}

	res, err := b.Handle(ctx, leadEvent("not-an-email"), svc)
	require.NoError(t, err)
	assert.Equal(t, "invalid_email", res.Meta["error"])
	assert.Equal(t, model.LeadAskEmail, leadConv(t, mem).LeadState)

	_, err = b.Handle(ctx, leadEvent("user.name+tag@sub.example.co"), svc)
	require.NoError(t, err)
	assert.Equal(t, model.LeadAskPhone, leadConv(t, mem).LeadState)
}

func TestLeadPhoneSkipUsesSender(t *testing.T) {
	b, mem, svc := newLeadFixture(t)
	ctx := context.Background()

	for _, msg := range []string{"hola", "1", "1", "1", "Ana", "ana@x.co"} {
		_, err := b.Handle(ctx, leadEvent(msg), svc)
		require.NoError(t, err)
	}

	res, err := b.Handle(ctx, leadEvent("omitir"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Listo")

	conv := leadConv(t, mem)
	lead, err := mem.GetLead(ctx, "tn-1", conv.LastLeadID)
	require.NoError(t, err)
	assert.Equal(t, "+5215598765432", lead.Phone)
}

func TestLeadPhoneValidation(t *testing.T) {
	b, mem, svc := newLeadFixture(t)
	ctx := context.Background()

	for _, msg := range []string{"hola", "1", "1", "1", "Ana", "ana@x.co"} {
		_, err := b.Handle(ctx, leadEvent(msg), svc)
		require.NoError(t, err)
	}

	res, err := b.Handle(ctx, leadEvent("12345"), svc)
	require.NoError(t, err)
	assert.Equal(t, "invalid_phone", res.Meta["error"])
	assert.Equal(t, model.LeadAskPhone, leadConv(t, mem).LeadState)
}

func TestLeadResetKeyword(t *testing.T) {
	b, mem, svc := newLeadFixture(t)
	ctx := context.Background()

	_, err := b.Handle(ctx, leadEvent("hola"), svc)
	require.NoError(t, err)
	_, err = b.Handle(ctx, leadEvent("1"), svc)
	require.NoError(t, err)

	res, err := b.Handle(ctx, leadEvent("cancelar"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "cancelado")

	conv := leadConv(t, mem)
	assert.Equal(t, model.LeadIdle, conv.LeadState)
	assert.Nil(t, conv.LeadDraft)
}

func TestLeadCompletedResetsToIdle(t *testing.T) {
	b, mem, svc := newLeadFixture(t)
	ctx := context.Background()

	for _, msg := range []string{"hola", "1", "1", "1", "Ana", "ana@x.co", "omitir"} {
		_, err := b.Handle(ctx, leadEvent(msg), svc)
		require.NoError(t, err)
	}
	require.Equal(t, model.LeadCompleted, leadConv(t, mem).LeadState)

	res, err := b.Handle(ctx, leadEvent("hola de nuevo"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Ya registramos tu informacion")
	conv := leadConv(t, mem)
	assert.Equal(t, model.LeadIdle, conv.LeadState)
	assert.Nil(t, conv.LeadDraft)

	// The turn after the reset starts a fresh flow.
	res, err = b.Handle(ctx, leadEvent("hola"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "industria")
	assert.Equal(t, model.LeadAskIndustry, leadConv(t, mem).LeadState)
}
