package bot

import (
	"context"
	"encoding/json"
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

// historyLimit caps the persisted turn history sent to the provider.
const historyLimit = 20

// sofiaPrompt is the structured-extraction system prompt for the deepseek
// category. The provider is asked for a strict JSON object reply.
const sofiaPrompt = `Eres Sofía, una asistente virtual inteligente y amable para agendar citas.
Tu objetivo es ayudar al usuario a agendar una cita o responder sus dudas.

Si el usuario quiere agendar, debes extraer:
1. Intención: "schedule"
2. Fecha (date)
3. Hora (time)
4. Motivo (summary)

Responde SIEMPRE en formato JSON estricto con la siguiente estructura:
{
    "reply": "Texto de respuesta para el usuario",
    "intent": "chat" | "schedule" | "confirm_schedule",
    "data": {
        "date": "YYYY-MM-DD" (si aplica, sino null),
        "time": "HH:MM" (si aplica, sino null),
        "summary": "texto" (si aplica)
    }
}

Si faltan datos para agendar, tu "intent" debe ser "chat" y en "reply" pides el dato faltante.
Se breve, cordial y profesional. Habla español latinoamericano.`

// structuredReply is the JSON object the deepseek category expects back.
type structuredReply struct {
	Reply  string `json:"reply"`
	Intent string `json:"intent"`
	Data   struct {
		Date    string `json:"date"`
		Time    string `json:"time"`
		Summary string `json:"summary"`
	} `json:"data"`
}

// AI delegates the whole turn to an LLM, carrying the recent conversation
// history. The deepseek variant requests a structured JSON reply and parses
// the intent out of it. Without a configured client both degrade to a
// keyword responder.
type AI struct {
	kind   model.ServiceType
	store  store.Store
	client llm.Client
	logger *logger.Logger
	now    func() time.Time
}

// NewAI creates the AI-backed behavior for the given category.
func NewAI(d Deps, kind model.ServiceType, client llm.Client) *AI {
	return &AI{kind: kind, store: d.Store, client: client, logger: d.Logger, now: d.Now}
}

func (b *AI) Kind() model.ServiceType { return b.kind }

func (b *AI) Handle(ctx context.Context, ev *model.IncomingEvent, svc *model.Service) (*Result, error) {
	businessName := svc.SettingString("business_name", "Negocio")

	if b.client == nil {
		return keywordFallback(strings.ToLower(ev.Text), businessName), nil
	}

	conv, rev, err := b.store.GetConversation(ctx, ev.TenantID, ev.From)
	if err != nil {
		return nil, err
	}
	conv.ClaimFor(model.KindAI)

	messages := b.assembleMessages(svc, conv, ev.Text, businessName)

	req := &llm.CompletionRequest{
		Model:       svc.SettingString("model", ""),
		Messages:    messages,
		MaxTokens:   500,
		Temperature: 0.7,
		JSONObject:  b.kind == model.TypeDeepSeek,
	}

	start := time.Now()
	resp, err := b.client.Complete(ctx, req)
	if err != nil {
		metrics.RecordLLM(b.client.Name(), "error", time.Since(start).Seconds(), 0, 0)
		b.logger.Warn("ai completion failed",
			zap.String("tenant_id", ev.TenantID),
			zap.String("type", string(b.kind)),
			zap.Error(err))
		return &Result{
			Reply: "Lo siento, tuve un problema procesando tu mensaje.",
			Meta:  meta(string(b.kind)+"_bot", "error", "llm_failure"),
		}, nil
	}
	metrics.RecordLLM(b.client.Name(), "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	reply := strings.TrimSpace(resp.Content)
	result := &Result{
		Reply: reply,
		Meta:  meta(string(b.kind)+"_bot", "intent", "chat"),
	}

	if b.kind == model.TypeDeepSeek {
		var sr structuredReply
		if err := json.Unmarshal([]byte(reply), &sr); err == nil && sr.Reply != "" {
			result.Reply = sr.Reply
			result.Meta["intent"] = sr.Intent
			if sr.Data.Date != "" {
				result.Meta["date"] = sr.Data.Date
			}
			if sr.Data.Time != "" {
				result.Meta["time"] = sr.Data.Time
			}
			if sr.Data.Summary != "" {
				result.Meta["summary"] = sr.Data.Summary
			}
		}
		// An unparseable reply is used verbatim with the chat intent.
	}

	conv.History = appendTurns(conv.History,
		model.ChatTurn{Role: "user", Content: ev.Text},
		model.ChatTurn{Role: "assistant", Content: result.Reply})
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, err
	}

	return result, nil
}

func (b *AI) assembleMessages(svc *model.Service, conv *model.Conversation, text, businessName string) []llm.ChatMessage {
	var system string
	if b.kind == model.TypeDeepSeek {
		system = sofiaPrompt
	} else {
		businessContext := svc.SettingString("business_context", "")
		system = fmt.Sprintf(
			"Eres el asistente virtual de %s. Responde de forma breve, cordial y en espanol.",
			businessName)
		if businessContext != "" {
			system += "\n\nContexto del negocio:\n" + businessContext
		}
	}

	messages := make([]llm.ChatMessage, 0, len(conv.History)+2)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: system})
	for _, turn := range conv.History {
		messages = append(messages, llm.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: "user", Content: text})
	return messages
}

// keywordFallback is the degraded mode used when no provider credential is
// configured.
func keywordFallback(text, businessName string) *Result {
	switch {
	case strings.Contains(text, "cita") || strings.Contains(text, "agendar"):
		return &Result{
			Reply: fmt.Sprintf("Claro, soy la IA de %s. Para que dia te gustaria agendar?", businessName),
			Meta:  meta("ai_bot", "intent", "schedule_request"),
		}
	case strings.Contains(text, "precio") || strings.Contains(text, "costo"):
		return &Result{
			Reply: fmt.Sprintf("Nuestros precios varian segun el servicio. Que servicio te interesa de %s?", businessName),
			Meta:  meta("ai_bot", "intent", "pricing_query"),
		}
	}
	return &Result{
		Reply: fmt.Sprintf("Soy la IA de %s. Puedo ayudarte con citas o precios. Que necesitas?", businessName),
		Meta:  meta("ai_bot", "intent", "unknown"),
	}
}

// appendTurns keeps the history bounded to the most recent turns.
func appendTurns(history []model.ChatTurn, turns ...model.ChatTurn) []model.ChatTurn {
	history = append(history, turns...)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	return history
}
