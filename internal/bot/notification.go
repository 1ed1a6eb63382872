package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
)

var (
	confirmTokens = []string{"1", "si", "confirmo", "confirmar"}
	declineTokens = []string{"2", "no", "cancelar"}
	paymentTokens = []string{"si", "confirmo", "recibido", "ok"}
)

// Notification handles replies to previously sent notifications. The
// conversation carries a pending action naming the record the counterparty
// is expected to respond about. Input that matches no token for the active
// action deliberately falls through to the generic info message.
type Notification struct {
	store  store.Store
	logger *logger.Logger
	now    func() time.Time
}

// NewNotification creates the notification response behavior.
func NewNotification(d Deps) *Notification {
	return &Notification{store: d.Store, logger: d.Logger, now: d.Now}
}

func (b *Notification) Kind() model.ServiceType { return model.TypeNotification }

func (b *Notification) Handle(ctx context.Context, ev *model.IncomingEvent, svc *model.Service) (*Result, error) {
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	businessName := svc.SettingString("business_name", "Nuestro Negocio")

	conv, rev, err := b.store.GetConversation(ctx, ev.TenantID, ev.From)
	if err != nil {
		return nil, err
	}
	conv.ClaimFor(model.KindNotification)

	switch conv.PendingAction {
	case model.ActionConfirmAppointment:
		if res, handled, err := b.confirmAppointment(ctx, ev, conv, rev, text); handled || err != nil {
			return res, err
		}
	case model.ActionRateOrder:
		return b.rateOrder(ctx, ev, conv, rev, text, businessName)
	case model.ActionConfirmPayment:
		if res, handled, err := b.confirmPayment(ctx, ev, conv, rev, text, businessName); handled || err != nil {
			return res, err
		}
	}

	return &Result{
		Reply: fmt.Sprintf(
			"Este es el canal de notificaciones de *%s*.\n\n"+
				"Por aqui recibiras recordatorios de citas, actualizaciones "+
				"de pedidos y avisos de pago.", businessName),
		Meta: meta("notification_bot", "action", "info"),
	}, nil
}

func (b *Notification) confirmAppointment(ctx context.Context, ev *model.IncomingEvent, conv *model.Conversation, rev uint64, text string) (*Result, bool, error) {
	nctx := conv.NotificationContext

	switch {
	case containsExact(confirmTokens, text):
		if nctx != nil && nctx.AppointmentID != "" {
			if err := b.store.ConfirmAppointment(ctx, ev.TenantID, nctx.AppointmentID, b.now().UTC()); err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, true, fmt.Errorf("confirm appointment: %w", err)
			}
		}
		conv.PendingAction = model.ActionNone
		conv.NotificationContext = nil
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, true, err
		}
		return &Result{
			Reply: "Tu cita quedo *confirmada*. Te esperamos!",
			Meta:  meta("notification_bot", "action", "appointment_confirmed"),
		}, true, nil

	case containsExact(declineTokens, text):
		if nctx != nil && nctx.AppointmentID != "" {
			if err := b.store.CancelAppointment(ctx, ev.TenantID, nctx.AppointmentID, b.now().UTC()); err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, true, fmt.Errorf("cancel appointment: %w", err)
			}
		}
		conv.PendingAction = model.ActionNone
		conv.NotificationContext = nil
		if err := saveConversation(ctx, b.store, conv, rev); err != nil {
			return nil, true, err
		}
		return &Result{
			Reply: "Tu cita fue *cancelada*. Escribe 'cita' cuando quieras reagendar.",
			Meta:  meta("notification_bot", "action", "appointment_cancelled"),
		}, true, nil
	}

	return nil, false, nil
}

func (b *Notification) rateOrder(ctx context.Context, ev *model.IncomingEvent, conv *model.Conversation, rev uint64, text, businessName string) (*Result, error) {
	rating, err := strconv.Atoi(text)
	if err != nil || rating < 1 || rating > 5 {
		return &Result{
			Reply: "Por favor califica del 1 al 5.",
			Meta:  meta("notification_bot", "action", "rate_order", "error", "invalid_rating"),
		}, nil
	}

	if nctx := conv.NotificationContext; nctx != nil && nctx.OrderID != "" {
		if err := b.store.RateOrder(ctx, ev.TenantID, nctx.OrderID, rating, b.now().UTC()); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("rate order: %w", err)
		}
	}
	conv.PendingAction = model.ActionNone
	conv.NotificationContext = nil
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, err
	}

	if rating >= 4 {
		return &Result{
			Reply: fmt.Sprintf("Gracias por tu calificacion de %d estrellas! Nos alegra que tu pedido llegara bien.", rating),
			Meta:  meta("notification_bot", "action", "order_rated", "rating", rating),
		}, nil
	}
	return &Result{
		Reply: fmt.Sprintf(
			"Lamentamos que tu experiencia no fuera la mejor (%d/5).\n\n"+
				"Un agente de *%s* te contactara para ayudarte.", rating, businessName),
		Meta: meta("notification_bot", "action", "order_rated", "rating", rating, "escalated", true),
	}, nil
}

func (b *Notification) confirmPayment(ctx context.Context, ev *model.IncomingEvent, conv *model.Conversation, rev uint64, text, businessName string) (*Result, bool, error) {
	if !containsExact(paymentTokens, text) {
		return nil, false, nil
	}

	conv.PendingAction = model.ActionNone
	conv.NotificationContext = nil
	if err := saveConversation(ctx, b.store, conv, rev); err != nil {
		return nil, true, err
	}
	return &Result{
		Reply: fmt.Sprintf("Gracias! Hemos registrado la confirmacion de tu pago con *%s*.", businessName),
		Meta:  meta("notification_bot", "action", "payment_confirmed"),
	}, true, nil
}

// BuildAppointmentReminder produces the outbound reminder for an
// appointment. A 24-hour reminder asks for confirmation and arms the
// confirm action; a 1-hour reminder is informational only.
func BuildAppointmentReminder(appt *model.Appointment, businessName string, hoursAhead int) *model.OutboundNotification {
	n := &model.OutboundNotification{
		To: appt.Phone,
		Context: &model.NotificationContext{
			AppointmentID: appt.ID,
			Date:          appt.Date,
			Time:          appt.Time,
		},
	}

	if hoursAhead <= 1 {
		n.NotificationType = "reminder_1h"
		n.Text = fmt.Sprintf(
			"%s, tu cita de *%s* en *%s* es en 1 hora (%s).\n\nTe esperamos!",
			appt.Name, appt.Service, businessName, appt.Time)
		return n
	}

	n.NotificationType = "reminder_24h"
	n.PendingAction = model.ActionConfirmAppointment
	n.Text = fmt.Sprintf(
		"Hola %s! Te recordamos tu cita de *%s* en *%s*.\n\n"+
			"Fecha: %s\nHora: %s\n\n"+
			"1. Confirmar\n2. Cancelar",
		appt.Name, appt.Service, businessName, appt.DateDisplay, appt.Time)
	return n
}

// BuildOrderUpdate produces the outbound status notice for an order.
// A delivered notice asks for a 1-5 rating and arms the rate action.
func BuildOrderUpdate(order *model.Order, businessName, status string) *model.OutboundNotification {
	n := &model.OutboundNotification{
		To:      order.Phone,
		Context: &model.NotificationContext{OrderID: order.ID},
	}

	if status == "delivered" {
		n.NotificationType = "order_delivered"
		n.PendingAction = model.ActionRateOrder
		n.Text = fmt.Sprintf(
			"Tu pedido de *%s* fue entregado!\n\n"+
				"Como calificarias tu experiencia? Responde del 1 al 5.", businessName)
		return n
	}

	n.NotificationType = "order_shipped"
	n.Text = fmt.Sprintf(
		"Tu pedido de *%s* va en camino.\n\nGuia: %s\nEntrega estimada: %s",
		businessName, order.Tracking, order.ETA)
	if order.TrackingURL != "" {
		n.Text += "\nSeguimiento: " + order.TrackingURL
	}
	return n
}

// BuildPaymentNotice produces the outbound payment message. kind is
// "received" for an acknowledgment or "due" for a reminder that arms the
// payment confirmation action.
func BuildPaymentNotice(p *model.Payment, businessName, kind string) *model.OutboundNotification {
	n := &model.OutboundNotification{
		To:      p.Phone,
		Context: &model.NotificationContext{PaymentID: p.ID},
	}

	if kind == "received" {
		n.NotificationType = "payment_received"
		n.Text = fmt.Sprintf(
			"Recibimos tu pago de $%.2f en *%s*.\n\nReferencia: %s\nGracias!",
			p.Amount, businessName, p.Reference)
		return n
	}

	n.NotificationType = "payment_due"
	n.PendingAction = model.ActionConfirmPayment
	n.Text = fmt.Sprintf(
		"Tienes un pago pendiente de $%.2f con *%s*.\n\n"+
			"Vence: %s\nReferencia: %s\n\n"+
			"Responde 'si' cuando lo hayas realizado.",
		p.Amount, businessName, p.DueDate, p.Reference)
	if p.PaymentURL != "" {
		n.Text += "\nPagar en linea: " + p.PaymentURL
	}
	return n
}
