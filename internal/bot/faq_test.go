package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botmesh/bot-engine/internal/llm"
	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
)

// fakeLLM returns a canned reply or error and records the last request.
type fakeLLM struct {
	reply   string
	err     error
	lastReq *llm.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.reply}, nil
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return nil }

func newFAQFixture(t *testing.T, chat llm.Client, settings map[string]any) (*FAQ, *store.Memory, *model.Service) {
	t.Helper()
	mem := store.NewMemory()
	if settings == nil {
		settings = map[string]any{}
	}
	svc := &model.Service{
		ID:       "svc-1",
		TenantID: "tn-1",
		Type:     model.TypeFAQ,
		Active:   true,
		Settings: settings,
	}
	b := NewFAQ(Deps{
		Store:  mem,
		Chat:   chat,
		Logger: logger.NewNop(),
		Now:    func() time.Time { return time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC) },
	})
	return b, mem, svc
}

func faqEvent(text string) *model.IncomingEvent {
	return &model.IncomingEvent{
		TenantID:  "tn-1",
		ServiceID: "svc-1",
		From:      "+5215544455566",
		Text:      text,
	}
}

func TestFAQEscalationKeyword(t *testing.T) {
	b, mem, svc := newFAQFixture(t, nil, map[string]any{"support_hours": "9:00 - 14:00"})
	ctx := context.Background()

	res, err := b.Handle(ctx, faqEvent("quiero hablar con un agente"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Un agente te contactara pronto")
	assert.Contains(t, res.Reply, "9:00 - 14:00")
	assert.Equal(t, true, res.Meta["escalated"])

	conv, _, err := mem.GetConversation(ctx, "tn-1", "+5215544455566")
	require.NoError(t, err)
	assert.True(t, conv.Escalated)
	require.NotNil(t, conv.EscalatedAt)
}

func TestFAQKeywordFallback(t *testing.T) {
	b, mem, svc := newFAQFixture(t, nil, nil)
	ctx := context.Background()

	res, err := b.Handle(ctx, faqEvent("cual es su horario de atencion?"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Lunes a Viernes: 9:00 - 18:00")
	assert.Contains(t, res.Reply, "Te fue util esta respuesta?")
	assert.Equal(t, "knowledge_base", res.Meta["source"])

	conv, _, err := mem.GetConversation(ctx, "tn-1", "+5215544455566")
	require.NoError(t, err)
	assert.True(t, conv.AwaitingFeedback)
	assert.Equal(t, "cual es su horario de atencion?", conv.LastQuestion)
}

func TestFAQHighestKeywordCountWins(t *testing.T) {
	b, _, svc := newFAQFixture(t, nil, nil)

	// Two pricing keywords beat one schedule keyword.
	res, err := b.Handle(context.Background(), faqEvent("cuanto cuesta, que precio tiene la hora"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "cotizacion")
}

func TestFAQNoMatchListsTopics(t *testing.T) {
	b, mem, svc := newFAQFixture(t, nil, nil)
	ctx := context.Background()

	res, err := b.Handle(ctx, faqEvent("xyzzy"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "No encontre informacion")
	assert.Contains(t, res.Reply, "- Horarios")
	// Only five topics are listed; the sixth is cut.
	assert.NotContains(t, res.Reply, "- Pago")
	assert.Equal(t, "no_match", res.Meta["action"])

	conv, _, err := mem.GetConversation(ctx, "tn-1", "+5215544455566")
	require.NoError(t, err)
	assert.False(t, conv.AwaitingFeedback)
}

func TestFAQCustomKnowledgeBase(t *testing.T) {
	b, _, svc := newFAQFixture(t, nil, map[string]any{
		"knowledge_base": []any{
			map[string]any{
				"topic":    "envios",
				"keywords": []any{"envio", "enviar", "paqueteria"},
				"answer":   "Enviamos a todo el pais en 48 horas.",
			},
		},
	})

	res, err := b.Handle(context.Background(), faqEvent("hacen envio a provincia?"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "48 horas")
}

func TestFAQLLMAnswer(t *testing.T) {
	fake := &fakeLLM{reply: "Claro, abrimos a las 9."}
	b, _, svc := newFAQFixture(t, fake, map[string]any{
		"business_context": "Barberia El Clasico, cortes y afeitado",
	})

	res, err := b.Handle(context.Background(), faqEvent("a que hora abren?"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Claro, abrimos a las 9.")
	assert.Equal(t, "llm", res.Meta["source"])
	assert.Equal(t, true, res.Meta["ai_used"])

	require.NotNil(t, fake.lastReq)
	assert.Equal(t, "system", fake.lastReq.Messages[0].Role)
	assert.Contains(t, fake.lastReq.Messages[0].Content, "Barberia El Clasico")
	assert.Equal(t, "a que hora abren?", fake.lastReq.Messages[1].Content)
}

func TestFAQLLMFailureFallsBackToKeywords(t *testing.T) {
	fake := &fakeLLM{err: errors.New("provider unavailable")}
	b, _, svc := newFAQFixture(t, fake, nil)

	res, err := b.Handle(context.Background(), faqEvent("donde estan ubicados?"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Av. Principal 123")
	assert.Equal(t, "knowledge_base", res.Meta["source"])
}

func TestFAQAIDisabledSkipsLLM(t *testing.T) {
	fake := &fakeLLM{reply: "should not be used"}
	b, _, svc := newFAQFixture(t, fake, map[string]any{"ai_enabled": false})

	res, err := b.Handle(context.Background(), faqEvent("que precio tiene?"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "cotizacion")
	assert.Nil(t, fake.lastReq)
}

func TestFAQFeedbackFlow(t *testing.T) {
	b, mem, svc := newFAQFixture(t, nil, nil)
	ctx := context.Background()

	_, err := b.Handle(ctx, faqEvent("horario?"), svc)
	require.NoError(t, err)

	res, err := b.Handle(ctx, faqEvent("1"), svc)
	require.NoError(t, err)
	assert.Equal(t, "feedback_positive", res.Meta["action"])

	conv, _, err := mem.GetConversation(ctx, "tn-1", "+5215544455566")
	require.NoError(t, err)
	assert.False(t, conv.AwaitingFeedback)
}

func TestFAQFeedbackNegative(t *testing.T) {
	b, _, svc := newFAQFixture(t, nil, nil)
	ctx := context.Background()

	_, err := b.Handle(ctx, faqEvent("horario?"), svc)
	require.NoError(t, err)

	res, err := b.Handle(ctx, faqEvent("no"), svc)
	require.NoError(t, err)
	assert.Equal(t, "feedback_negative", res.Meta["action"])
	assert.Contains(t, res.Reply, "agente")
}

func TestFAQFeedbackFallThroughReprocessesMessage(t *testing.T) {
	b, mem, svc := newFAQFixture(t, nil, nil)
	ctx := context.Background()

	_, err := b.Handle(ctx, faqEvent("horario?"), svc)
	require.NoError(t, err)

	// Not a 1/2 answer: the flag clears and the same message is answered
	// as a fresh question.
	res, err := b.Handle(ctx, faqEvent("y donde estan ubicados?"), svc)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Av. Principal 123")

	conv, _, err := mem.GetConversation(ctx, "tn-1", "+5215544455566")
	require.NoError(t, err)
	assert.True(t, conv.AwaitingFeedback) // armed again by the new answer
}
