// Package bot implements the per-category conversation behaviors. Each
// behavior is a state machine over the persisted conversation document:
// it consumes one inbound message plus the service configuration, advances
// the state, and produces a reply and any side-effect records.
package bot

import (
	"context"
	"time"

	"github.com/botmesh/bot-engine/internal/llm"
	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
)

// Result is a behavior's output before envelope normalization.
type Result struct {
	Reply string
	Meta  map[string]any
}

// Handler is one bot behavior.
type Handler interface {
	// Kind returns the service type this behavior serves.
	Kind() model.ServiceType

	// Handle processes one inbound message.
	Handle(ctx context.Context, ev *model.IncomingEvent, svc *model.Service) (*Result, error)
}

// Registry routes service types to behaviors. The category set is closed:
// routing is an explicit table, never reflection.
type Registry map[model.ServiceType]Handler

// Deps carries the collaborators shared by the behaviors. Chat is the LLM
// client used by the faq and ai categories, Structured the JSON-mode client
// used by deepseek; either may be nil, in which case those behaviors
// degrade to their keyword fallbacks.
type Deps struct {
	Store      store.Store
	Chat       llm.Client
	Structured llm.Client
	Logger     *logger.Logger
	Now        func() time.Time
}

// NewRegistry builds the routing table for all bot categories.
func NewRegistry(d Deps) Registry {
	if d.Now == nil {
		d.Now = time.Now
	}
	return Registry{
		model.TypeRules:        NewRules(d),
		model.TypeScheduling:   NewScheduling(d),
		model.TypeLead:         NewLead(d),
		model.TypeNotification: NewNotification(d),
		model.TypeFAQ:          NewFAQ(d),
		model.TypeAI:           NewAI(d, model.TypeAI, d.Chat),
		model.TypeDeepSeek:     NewAI(d, model.TypeDeepSeek, d.Structured),
	}
}

// saveConversation stamps and writes the document under the revision from
// the preceding read. A store.ErrConflict propagates so the dispatcher can
// retry the turn.
func saveConversation(ctx context.Context, s store.Store, conv *model.Conversation, rev uint64) error {
	conv.UpdatedAt = time.Now().UTC()
	return s.PutConversation(ctx, conv, rev)
}

func meta(handler string, kv ...any) map[string]any {
	m := map[string]any{"handler": handler}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			m[k] = kv[i+1]
		}
	}
	return m
}
