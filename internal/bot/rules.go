package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
)

// Rules is the free-tier bot: a stateless support menu or a minimal
// unvalidated appointment flow, selected by settings.mode.
type Rules struct {
	store  store.Store
	logger *logger.Logger
}

// NewRules creates the rules behavior.
func NewRules(d Deps) *Rules {
	return &Rules{store: d.Store, logger: d.Logger}
}

func (b *Rules) Kind() model.ServiceType { return model.TypeRules }

func (b *Rules) Handle(ctx context.Context, ev *model.IncomingEvent, svc *model.Service) (*Result, error) {
	text := strings.TrimSpace(ev.Text)

	switch svc.SettingString("mode", "support") {
	case "support":
		return b.support(text, svc), nil
	case "appointments":
		return b.appointments(ctx, ev, text)
	}
	return &Result{
		Reply: "Configuración de bot inválida.",
		Meta:  meta("rules_bot", "error", "invalid_mode"),
	}, nil
}

func (b *Rules) support(text string, svc *model.Service) *Result {
	switch text {
	case "1":
		hours := svc.SettingString("opening_hours", "9am - 6pm")
		return &Result{
			Reply: fmt.Sprintf("Nuestros horarios son:\n%s", hours),
			Meta:  meta("rules_bot", "mode", "support"),
		}
	case "2":
		addr := svc.SettingString("address", "Calle Falsa 123")
		return &Result{
			Reply: fmt.Sprintf("Estamos ubicados en:\n%s", addr),
			Meta:  meta("rules_bot", "mode", "support"),
		}
	}
	return &Result{
		Reply: "Bienvenido. Elige una opción:\n1) Horarios\n2) Ubicación",
		Meta:  meta("rules_bot", "mode", "support"),
	}
}

func (b *Rules) appointments(ctx context.Context, ev *model.IncomingEvent, text string) (*Result, error) {
	conv, rev, err := b.store.GetConversation(ctx, ev.TenantID, ev.From)
	if err != nil {
		return nil, err
	}
	conv.ClaimFor(model.KindRules)

	state := conv.RulesState
	if state == "" {
		state = model.RulesInit
	}
	draft := conv.RulesDraft
	if draft == nil {
		draft = &model.RulesDraft{}
	}

	var reply string
	next := state

	switch state {
	case model.RulesInit:
		reply = "Hola. ¿Para qué fecha quieres reservar? (Ej: 2026-02-20)"
		next = model.RulesAskDate

	case model.RulesAskDate:
		draft.Date = text // stored verbatim, this tier does not validate
		reply = "Perfecto. ¿A qué hora? (Ej: 15:00)"
		next = model.RulesAskTime

	case model.RulesAskTime:
		draft.Time = text
		reply = fmt.Sprintf("Confirmada tu cita para el %s a las %s.", draft.Date, draft.Time)
		next = model.RulesConfirmed

	case model.RulesConfirmed:
		reply = "Ya tienes una cita confirmada. Escribe 'cancelar' para empezar de nuevo."
		if strings.EqualFold(text, "cancelar") {
			next = model.RulesInit
			draft = &model.RulesDraft{}
			reply = "Cita cancelada. ¿Para cuándo quieres reservar?"
		}
	}

	conv.RulesState = next
	conv.RulesDraft = draft
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, err
	}

	return &Result{
		Reply: reply,
		Meta:  meta("rules_bot", "mode", "appointments", "state", string(next)),
	}, nil
}
