package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/parse"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
	"github.com/botmesh/bot-engine/pkg/metrics"
)

var (
	resetKeywords   = []string{"cancelar", "reiniciar", "menu", "inicio", "salir"}
	bookKeywords    = []string{"cita", "agendar", "reservar", "turno", "1"}
	spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	spanishMonths   = [...]string{"", "enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

const maxShownSlots = 8

var titleCaser = cases.Title(language.Spanish)

// Scheduling books appointments through a guided flow: service, date, time,
// name. Dates and times accept the shared Spanish grammar.
type Scheduling struct {
	store  store.Store
	logger *logger.Logger
	now    func() time.Time
}

// NewScheduling creates the scheduling behavior.
func NewScheduling(d Deps) *Scheduling {
	return &Scheduling{store: d.Store, logger: d.Logger, now: d.Now}
}

func (b *Scheduling) Kind() model.ServiceType { return model.TypeScheduling }

func (b *Scheduling) Handle(ctx context.Context, ev *model.IncomingEvent, svc *model.Service) (*Result, error) {
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	businessName := svc.SettingString("business_name", "Nuestro Negocio")
	services := svc.SettingStrings("services")
	if len(services) == 0 {
		services = []string{"Consulta General"}
	}

	conv, rev, err := b.store.GetConversation(ctx, ev.TenantID, ev.From)
	if err != nil {
		return nil, err
	}
	conv.ClaimFor(model.KindScheduling)

	state := conv.SchedulingState
	if state == "" {
		state = model.SchedIdle
	}
	draft := conv.PendingAppointment
	if draft == nil {
		draft = &model.AppointmentDraft{}
	}

	// Reset keywords win from any state.
	if containsExact(resetKeywords, text) {
		conv.SchedulingState = model.SchedIdle
		conv.PendingAppointment = nil
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: fmt.Sprintf(
				"Hola! Soy el asistente de citas de *%s*.\n\n"+
					"Puedo ayudarte a:\n"+
					"1. Agendar una cita\n"+
					"2. Ver mis citas\n"+
					"3. Cancelar cita\n\n"+
					"Que deseas hacer?", businessName),
			Meta: meta("scheduling_bot", "state", "idle", "action", "reset"),
		}, nil
	}

	switch state {
	case model.SchedIdle:
		return b.idle(ctx, conv, rev, text, businessName, services)
	case model.SchedAskService:
		return b.askService(ctx, conv, rev, text, services, draft)
	case model.SchedAskDate:
		return b.askDate(ctx, conv, rev, ev.Text, draft)
	case model.SchedAskTime:
		return b.askTime(ctx, conv, rev, ev.Text, draft)
	case model.SchedAskName:
		return b.askName(ctx, conv, rev, ev, businessName, draft)
	case model.SchedConfirmed:
		conv.SchedulingState = model.SchedIdle
		conv.PendingAppointment = nil
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: "Escribe *'cita'* para agendar otra cita.",
			Meta:  meta("scheduling_bot", "state", "idle"),
		}, nil
	}

	return &Result{
		Reply: "Escribe *'menu'* para ver las opciones.",
		Meta:  meta("scheduling_bot", "state", string(state), "action", "fallback"),
	}, nil
}

func (b *Scheduling) idle(ctx context.Context, conv *model.Conversation, rev uint64, text, businessName string, services []string) (*Result, error) {
	// "mis citas" contains "cita", so the view branch runs first and
	// matches exact tokens plus the "mis citas" phrase.
	switch {
	case text == "ver" || text == "2" || strings.Contains(text, "mis citas"):
		return &Result{
			Reply: "Esta funcion estara disponible pronto.\n\nEscribe 'cita' para agendar.",
			Meta:  meta("scheduling_bot", "action", "view_appointments"),
		}, nil

	case containsKeyword(text, bookKeywords):
		if len(services) > 1 {
			conv.SchedulingState = model.SchedAskService
			conv.PendingAppointment = &model.AppointmentDraft{}
			if err := saveConversation(ctx, b.store, conv, rev); err != nil {
				return nil, err
			}
			return &Result{
				Reply: fmt.Sprintf("Que servicio necesitas?\n\n%s", numberedList(services)),
				Meta:  meta("scheduling_bot", "state", "ask_service"),
			}, nil
		}

		// A single configured service skips straight to the date.
		conv.SchedulingState = model.SchedAskDate
		conv.PendingAppointment = &model.AppointmentDraft{Service: services[0]}
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, err
		}
		return &Result{
			Reply: fmt.Sprintf(
				"Perfecto! Vamos a agendar tu *%s*.\n\n"+
					"Para que dia te gustaria?\n\n"+
					"Ejemplos: 'manana', 'lunes', '15 de febrero'", services[0]),
			Meta: meta("scheduling_bot", "state", "ask_date"),
		}, nil
	}

	return &Result{
		Reply: fmt.Sprintf(
			"Hola! Soy el asistente de citas de *%s*.\n\n"+
				"Escribe *'cita'* para agendar o *'menu'* para ver opciones.", businessName),
		Meta: meta("scheduling_bot", "state", "idle"),
	}, nil
}

func (b *Scheduling) askService(ctx context.Context, conv *model.Conversation, rev uint64, text string, services []string, draft *model.AppointmentDraft) (*Result, error) {
	if idx, inRange, ok := parse.Index1(text, len(services)); ok {
		if !inRange {
			idx = 0
		}
		draft.Service = services[idx]
	} else if matched, ok := parse.MatchOption(text, services); ok {
		draft.Service = matched
	} else {
		draft.Service = services[0]
	}

	conv.SchedulingState = model.SchedAskDate
	conv.PendingAppointment = draft
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, err
	}
	return &Result{
		Reply: fmt.Sprintf(
			"Servicio: *%s*\n\n"+
				"Para que dia te gustaria?\n\n"+
				"Ejemplos: 'manana', 'lunes', '15 de febrero'", draft.Service),
		Meta: meta("scheduling_bot", "state", "ask_date"),
	}, nil
}

func (b *Scheduling) askDate(ctx context.Context, conv *model.Conversation, rev uint64, rawText string, draft *model.AppointmentDraft) (*Result, error) {
	now := b.now()
	date, ok := parse.Date(rawText, now)
	if !ok {
		return &Result{
			Reply: "No entendi la fecha. Intenta con:\n- 'manana'\n- 'lunes'\n- '15 de febrero'",
			Meta:  meta("scheduling_bot", "state", "ask_date", "error", "invalid_date"),
		}, nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return &Result{
			Reply: "Esa fecha ya paso. Por favor elige una fecha futura.",
			Meta:  meta("scheduling_bot", "state", "ask_date", "error", "past_date"),
		}, nil
	}

	display := displayDate(date)
	slots := GenerateSlots(date, nil) // booked slots come from the calendar integration, none yet
	if len(slots) == 0 {
		return &Result{
			Reply: fmt.Sprintf("No hay horarios disponibles el %s. Quieres probar otro dia?", display),
			Meta:  meta("scheduling_bot", "state", "ask_date", "error", "no_slots"),
		}, nil
	}
	if len(slots) > maxShownSlots {
		slots = slots[:maxShownSlots]
	}

	draft.Date = date.Format("2006-01-02")
	draft.DateDisplay = display
	draft.AvailableSlots = slots

	conv.SchedulingState = model.SchedAskTime
	conv.PendingAppointment = draft
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, err
	}

	return &Result{
		Reply: fmt.Sprintf(
			"Disponibilidad para el *%s*:\n\n%s\n\nCual horario prefieres?",
			display, dashedList(slots)),
		Meta: meta("scheduling_bot", "state", "ask_time"),
	}, nil
}

func (b *Scheduling) askTime(ctx context.Context, conv *model.Conversation, rev uint64, rawText string, draft *model.AppointmentDraft) (*Result, error) {
	t, ok := parse.Clock(rawText)
	if !ok {
		return &Result{
			Reply: "No entendi la hora. Escribe algo como '10:00' o '3pm'.",
			Meta:  meta("scheduling_bot", "state", "ask_time", "error", "invalid_time"),
		}, nil
	}

	draft.Time = t
	conv.SchedulingState = model.SchedAskName
	conv.PendingAppointment = draft
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, err
	}

	return &Result{
		Reply: fmt.Sprintf("*%s* a las *%s*\n\nA nombre de quien sera la cita?", draft.DateDisplay, t),
		Meta:  meta("scheduling_bot", "state", "ask_name"),
	}, nil
}

func (b *Scheduling) askName(ctx context.Context, conv *model.Conversation, rev uint64, ev *model.IncomingEvent, businessName string, draft *model.AppointmentDraft) (*Result, error) {
	name := titleCaser.String(strings.TrimSpace(ev.Text))

	appt := &model.Appointment{
		Service:     draft.Service,
		Date:        draft.Date,
		DateDisplay: draft.DateDisplay,
		Time:        draft.Time,
		Name:        name,
		Phone:       ev.From,
		Status:      "confirmed",
		CreatedAt:   b.now().UTC(),
	}
	id, err := b.store.CreateAppointment(ctx, ev.TenantID, appt)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	metrics.RecordsCreated.WithLabelValues(ev.TenantID, "appointment").Inc()

	displayID := shortID(id)

	conv.SchedulingState = model.SchedConfirmed
	conv.PendingAppointment = nil
	conv.LastAppointmentID = id
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, err
	}

	return &Result{
		Reply: fmt.Sprintf(
			"*Cita confirmada!*\n\n"+
				"Nombre: %s\n"+
				"Servicio: %s\n"+
				"Fecha: %s\n"+
				"Hora: %s\n"+
				"ID: #%s\n\n"+
				"Te esperamos en *%s*!\n\n"+
				"Para cancelar, escribe 'cancelar'",
			name, appt.Service, appt.DateDisplay, appt.Time, displayID, businessName),
		Meta: meta("scheduling_bot", "state", "confirmed", "appointment_id", displayID),
	}, nil
}

// shortID derives the user-facing booking code from a record identity.
func shortID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// displayDate renders "jueves 19 de febrero".
func displayDate(d time.Time) string {
	return fmt.Sprintf("%s %d de %s", spanishWeekdays[d.Weekday()], d.Day(), spanishMonths[d.Month()])
}

func containsExact(keywords []string, text string) bool {
	for _, kw := range keywords {
		if text == kw {
			return true
		}
	}
	return false
}

func containsKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func numberedList(items []string) string {
	var sb strings.Builder
	for i, it := range items {
		fmt.Fprintf(&sb, "%d. %s", i+1, it)
		if i < len(items)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func dashedList(items []string) string {
	var sb strings.Builder
	for i, it := range items {
		fmt.Fprintf(&sb, "- %s", it)
		if i < len(items)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
