package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/botmesh/bot-engine/internal/llm"
	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
	"github.com/botmesh/bot-engine/pkg/metrics"
)

var escalationKeywords = []string{"agente", "humano", "persona", "hablar con"}

var positiveFeedbackTokens = []string{"1", "si", "yes"}

var negativeFeedbackTokens = []string{"2", "no"}

// defaultKnowledge is the built-in answer set used when a tenant has not
// configured its own knowledge base.
var defaultKnowledge = []model.KnowledgeEntry{
	{
		Topic:    "horarios",
		Keywords: []string{"horario", "hora", "abierto", "cerrado", "atencion", "abren", "cierran"},
		Answer:   "Nuestro horario de atencion es:\n\nLunes a Viernes: 9:00 - 18:00\nSabados: 9:00 - 13:00\nDomingos: Cerrado",
	},
	{
		Topic:    "ubicacion",
		Keywords: []string{"donde", "ubicacion", "direccion", "llegar", "mapa", "ubicados"},
		Answer:   "Nos encontramos en:\n\nAv. Principal 123\nCiudad, Pais\n\nTe esperamos!",
	},
	{
		Topic:    "precios",
		Keywords: []string{"precio", "costo", "cuanto", "vale", "cobran", "tarifa"},
		Answer:   "Nuestros precios varian segun el servicio.\n\nContactanos para una cotizacion personalizada.",
	},
	{
		Topic:    "contacto",
		Keywords: []string{"telefono", "email", "correo", "contacto", "llamar", "whatsapp"},
		Answer:   "Puedes contactarnos:\n\nWhatsApp: Este mismo chat\nEmail: info@empresa.com",
	},
	{
		Topic:    "servicios",
		Keywords: []string{"servicio", "ofrecen", "hacen", "productos", "catalogo"},
		Answer:   "Ofrecemos una variedad de servicios.\n\nEscribe 'menu' para ver las opciones disponibles.",
	},
	{
		Topic:    "pago",
		Keywords: []string{"pago", "pagar", "transferencia", "efectivo", "tarjeta", "metodo"},
		Answer:   "Aceptamos:\n\n- Efectivo\n- Tarjeta de credito/debito\n- Transferencia bancaria",
	},
}

// FAQ answers questions with an LLM when one is configured, falling back to
// keyword matching against the knowledge base. Escalation keywords hand the
// conversation to a human agent.
type FAQ struct {
	store  store.Store
	chat   llm.Client
	logger *logger.Logger
	now    func() time.Time
}

// NewFAQ creates the FAQ behavior.
func NewFAQ(d Deps) *FAQ {
	return &FAQ{store: d.Store, chat: d.Chat, logger: d.Logger, now: d.Now}
}

func (b *FAQ) Kind() model.ServiceType { return model.TypeFAQ }

func (b *FAQ) Handle(ctx context.Context, ev *model.IncomingEvent, svc *model.Service) (*Result, error) {
	text := strings.TrimSpace(ev.Text)
	lower := strings.ToLower(text)
	businessName := svc.SettingString("business_name", "Nuestro Negocio")

	conv, rev, err := b.store.GetConversation(ctx, ev.TenantID, ev.From)
	if err != nil {
		return nil, err
	}
	conv.ClaimFor(model.KindFAQ)

	if containsKeyword(lower, escalationKeywords) {
		hours := svc.SettingString("support_hours", "Lunes a Viernes 9:00 - 18:00")
		at := b.now().UTC()
		conv.Escalated = true
		conv.EscalatedAt = &at
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: fmt.Sprintf(
				"Entiendo que necesitas hablar con alguien.\n\n"+
					"Un agente te contactara pronto.\n"+
					"Horario de atencion: %s", hours),
			Meta: meta("faq_bot", "action", "escalate", "escalated", true),
		}, nil
	}

	if conv.AwaitingFeedback {
		// The flag clears whether or not the message is a 1/2 answer. A
		// non-answer falls through and is treated as a fresh question.
		conv.AwaitingFeedback = false
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		conv, rev, err = b.store.GetConversation(ctx, ev.TenantID, ev.From)
		if err != nil {
			return nil, err
		}

		if containsExact(positiveFeedbackTokens, lower) {
			return &Result{
				Reply: "Me alegra haberte ayudado! Algo mas en lo que pueda ayudarte?",
				Meta:  meta("faq_bot", "action", "feedback_positive"),
			}, nil
		}
		if containsExact(negativeFeedbackTokens, lower) {
			return &Result{
				Reply: "Lamento no poder ayudarte mejor.\n\nEscribe 'agente' para hablar con una persona.",
				Meta:  meta("faq_bot", "action", "feedback_negative"),
			}, nil
		}
	}

	kb := svc.KnowledgeBase()
	if len(kb) == 0 {
		kb = defaultKnowledge
	}

	var answer, source string
	if svc.SettingBool("ai_enabled", true) && b.chat != nil {
		answer = b.askLLM(ctx, svc, businessName, text)
		if answer != "" {
			source = "llm"
		}
	}

	if answer == "" {
		if match, ok := bestMatch(lower, kb); ok {
			answer = match.Answer
			source = "knowledge_base"
		}
	}

	if answer == "" {
		return &Result{
			Reply: fmt.Sprintf(
				"No encontre informacion sobre eso.\n\n"+
					"Puedo ayudarte con:\n%s\n\n"+
					"O escribe 'agente' para hablar con una persona.", topicList(kb, 5)),
			Meta: meta("faq_bot", "action", "no_match", "source", "none"),
		}, nil
	}

	conv.AwaitingFeedback = true
	conv.LastQuestion = text
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, err
	}

	return &Result{
		Reply: answer + "\n\nTe fue util esta respuesta?\n1. Si\n2. No, necesito mas ayuda",
		Meta:  meta("faq_bot", "action", "answer", "source", source, "ai_used", source == "llm"),
	}, nil
}

// askLLM answers with the configured chat client. Failures degrade to the
// keyword fallback, never to the caller.
func (b *FAQ) askLLM(ctx context.Context, svc *model.Service, businessName, question string) string {
	businessContext := svc.SettingString("business_context", businessName+" - Empresa de servicios")
	system := "Eres un asistente de atencion al cliente amable y profesional. " +
		"Responde de forma concisa en espanol. " +
		"Si no sabes algo, sugiere contactar a un agente humano.\n\n" +
		"Contexto del negocio:\n" + businessContext

	start := time.Now()
	resp, err := b.chat.Complete(ctx, &llm.CompletionRequest{
		Model: svc.SettingString("model", ""),
		Messages: []llm.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: question},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		metrics.RecordLLM(b.chat.Name(), "error", time.Since(start).Seconds(), 0, 0)
		b.logger.Warn("faq llm call failed", zap.Error(err))
		return ""
	}
	metrics.RecordLLM(b.chat.Name(), "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return strings.TrimSpace(resp.Content)
}

// bestMatch scores each entry by how many of its keywords occur in the
// message; only a strictly higher count displaces an earlier entry.
func bestMatch(lower string, kb []model.KnowledgeEntry) (*model.KnowledgeEntry, bool) {
	var best *model.KnowledgeEntry
	bestScore := 0
	for i := range kb {
		score := 0
		for _, kw := range kb[i].Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = &kb[i]
		}
	}
	return best, best != nil
}

func topicList(kb []model.KnowledgeEntry, limit int) string {
	if len(kb) > limit {
		kb = kb[:limit]
	}
	var sb strings.Builder
	for i := range kb {
		fmt.Fprintf(&sb, "- %s", titleCaser.String(kb[i].Topic))
		if i < len(kb)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
