package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/parse"
	"github.com/botmesh/bot-engine/internal/score"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
	"github.com/botmesh/bot-engine/pkg/metrics"
)

var leadResetKeywords = []string{"cancelar", "reiniciar", "salir"}

var skipPhoneTokens = []string{"omitir", "skip", "no"}

// Lead qualifies prospects through a linear flow: industry, company size,
// budget, name, email, phone. Completion scores the draft and appends a
// lead record.
type Lead struct {
	store  store.Store
	logger *logger.Logger
	now    func() time.Time
}

// NewLead creates the lead qualification behavior.
func NewLead(d Deps) *Lead {
	return &Lead{store: d.Store, logger: d.Logger, now: d.Now}
}

func (b *Lead) Kind() model.ServiceType { return model.TypeLead }

func (b *Lead) Handle(ctx context.Context, ev *model.IncomingEvent, svc *model.Service) (*Result, error) {
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	businessName := svc.SettingString("business_name", "Nuestro Negocio")

	conv, rev, err := b.store.GetConversation(ctx, ev.TenantID, ev.From)
	if err != nil {
		return nil, err
	}
	conv.ClaimFor(model.KindLead)

	state := conv.LeadState
	if state == "" {
		state = model.LeadIdle
	}
	draft := conv.LeadDraft
	if draft == nil {
		draft = &model.LeadDraft{}
	}

	if containsExact(leadResetKeywords, text) {
		conv.LeadState = model.LeadIdle
		conv.LeadDraft = nil
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: "Proceso cancelado. Escribe cualquier mensaje para comenzar de nuevo.",
			Meta:  meta("lead_bot", "state", "idle", "action", "reset"),
		}, nil
	}

	switch state {
	case model.LeadCompleted:
		conv.LeadState = model.LeadIdle
		conv.LeadDraft = nil
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: "Ya registramos tu informacion anteriormente. Un asesor te contactara pronto!",
			Meta:  meta("lead_bot", "state", "idle"),
		}, nil

	case model.LeadIdle:
		conv.LeadState = model.LeadAskIndustry
		conv.LeadDraft = &model.LeadDraft{StartedAt: b.now().UTC().Format(time.RFC3339)}
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: fmt.Sprintf(
				"Hola! Gracias por tu interes en *%s*.\n\n"+
					"Te hare unas preguntas rapidas para atenderte mejor.\n\n"+
					"En que industria esta tu negocio?\n\n%s\n\n"+
					"Responde con el numero.", businessName, numberedList(score.Industries)),
			Meta: meta("lead_bot", "state", "ask_industry"),
		}, nil

	case model.LeadAskIndustry:
		draft.Industry = pickIndustry(text)
		conv.LeadState = model.LeadAskSize
		conv.LeadDraft = draft
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: fmt.Sprintf(
				"Industria: *%s*\n\nCuantos empleados tiene tu empresa?\n\n%s",
				draft.Industry, numberedList(score.CompanySizes)),
			Meta: meta("lead_bot", "state", "ask_size"),
		}, nil

	case model.LeadAskSize:
		draft.CompanySize = pickTier(text, score.CompanySizes)
		conv.LeadState = model.LeadAskBudget
		conv.LeadDraft = draft
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: fmt.Sprintf(
				"Tamano: *%s*\n\nCual es tu presupuesto mensual aproximado?\n\n%s",
				draft.CompanySize, numberedList(score.Budgets)),
			Meta: meta("lead_bot", "state", "ask_budget"),
		}, nil

	case model.LeadAskBudget:
		draft.Budget = pickTier(text, score.Budgets)
		conv.LeadState = model.LeadAskName
		conv.LeadDraft = draft
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: "Perfecto. Cual es tu nombre completo?",
			Meta:  meta("lead_bot", "state", "ask_name"),
		}, nil

	case model.LeadAskName:
		draft.Name = titleCaser.String(strings.TrimSpace(ev.Text))
		conv.LeadState = model.LeadAskEmail
		conv.LeadDraft = draft
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: fmt.Sprintf("Gracias %s! Cual es tu correo electronico?", draft.Name),
			Meta:  meta("lead_bot", "state", "ask_email"),
		}, nil

	case model.LeadAskEmail:
		email := strings.TrimSpace(ev.Text)
		if !parse.ValidEmail(email) {
			return &Result{
				Reply: "Ese correo no parece valido. Intenta de nuevo (ejemplo: nombre@empresa.com).",
				Meta:  meta("lead_bot", "state", "ask_email", "error", "invalid_email"),
			}, nil
		}
		draft.Email = strings.ToLower(email)
		conv.LeadState = model.LeadAskPhone
		conv.LeadDraft = draft
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: "Ultimo paso: cual es tu telefono de contacto?\n\nEscribe 'omitir' para usar este numero.",
			Meta:  meta("lead_bot", "state", "ask_phone"),
		}, nil

	case model.LeadAskPhone:
		phone := ev.From
		if !containsExact(skipPhoneTokens, text) {
			cleaned, ok := parse.Phone(ev.Text)
			if !ok {
				return &Result{
					Reply: "Ese telefono no parece valido. Escribe 10 a 15 digitos, o 'omitir'.",
					Meta:  meta("lead_bot", "state", "ask_phone", "error", "invalid_phone"),
				}, nil
			}
			phone = cleaned
		}
		draft.Phone = phone
		return b.complete(ctx, ev, conv, rev, draft)
	}

	return &Result{
		Reply: "Escribe cualquier mensaje para comenzar.",
		Meta:  meta("lead_bot", "state", string(state), "action", "fallback"),
	}, nil
}

func (b *Lead) complete(ctx context.Context, ev *model.IncomingEvent, conv *model.Conversation, rev uint64, draft *model.LeadDraft) (*Result, error) {
	s := score.Lead(draft)
	priority := score.Priority(s)

	lead := &model.Lead{
		Industry:    draft.Industry,
		CompanySize: draft.CompanySize,
		Budget:      draft.Budget,
		Name:        draft.Name,
		Email:       draft.Email,
		Phone:       draft.Phone,
		WhatsApp:    ev.From,
		Score:       s,
		Priority:    priority,
		Status:      "new",
		StartedAt:   draft.StartedAt,
		CompletedAt: b.now().UTC(),
	}
	id, err := b.store.CreateLead(ctx, ev.TenantID, lead)
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	metrics.RecordsCreated.WithLabelValues(ev.TenantID, "lead").Inc()
	b.logger.Info("lead qualified",
		zap.String("tenant_id", ev.TenantID),
		zap.String("lead_id", id),
		zap.Int("score", s),
		zap.String("priority", priority))

	conv.LeadState = model.LeadCompleted
	conv.LeadDraft = nil
	conv.LastLeadID = id
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, err
	}

	return &Result{
		Reply: fmt.Sprintf(
			"*Listo, %s!* Registramos tu informacion:\n\n"+
				"Industria: %s\n"+
				"Empresa: %s\n"+
				"Correo: %s\n"+
				"Folio: #%s\n\n"+
				"Un asesor te contactara muy pronto. Gracias!",
			draft.Name, draft.Industry, draft.CompanySize, draft.Email, shortID(id)),
		Meta: meta("lead_bot", "state", "completed", "lead_id", id, "priority", priority),
	}, nil
}

// pickIndustry resolves an industry selection. Numeric input indexes the
// list with out-of-range falling back to the catch-all last entry;
// free text tries a substring match and also falls back to the catch-all.
func pickIndustry(text string) string {
	opts := score.Industries
	if idx, inRange, ok := parse.Index1(text, len(opts)); ok {
		if !inRange {
			return opts[len(opts)-1]
		}
		return opts[idx]
	}
	if matched, ok := parse.MatchOption(text, opts); ok {
		return matched
	}
	return opts[len(opts)-1]
}

// pickTier resolves a size or budget selection. Only an in-range numeric
// index selects; everything else falls back to the first option.
func pickTier(text string, opts []string) string {
	if idx, inRange, ok := parse.Index1(text, len(opts)); ok && inRange {
		return opts[idx]
	}
	return opts[0]
}
