package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/botmesh/bot-engine/internal/bot"
	"github.com/botmesh/bot-engine/internal/middleware"
	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
)

// NotificationHandler builds outbound notifications from stored records and
// arms the matching pending action on the recipient's conversation.
type NotificationHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(s store.Store, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{store: s, logger: log}
}

type notificationRequest struct {
	Kind          string `json:"kind"` // appointment_reminder, order_update, payment_notice
	BusinessName  string `json:"business_name"`
	AppointmentID string `json:"appointment_id,omitempty"`
	HoursAhead    int    `json:"hours_ahead,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	OrderStatus   string `json:"order_status,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
	PaymentKind   string `json:"payment_kind,omitempty"` // received or due
}

// Create handles POST /api/v1/tenants/{tenantID}/notifications
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenantID")

	if !middleware.CanActFor(ctx, tenantID) {
		writeError(w, http.StatusForbidden, "token not valid for tenant")
		return
	}

	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessName == "" {
		req.BusinessName = "Nuestro Negocio"
	}

	var (
		out *model.OutboundNotification
		err error
	)
	switch req.Kind {
	case "appointment_reminder":
		var appt *model.Appointment
		appt, err = h.store.GetAppointment(ctx, tenantID, req.AppointmentID)
		if err == nil {
			out = bot.BuildAppointmentReminder(appt, req.BusinessName, req.HoursAhead)
		}
	case "order_update":
		var order *model.Order
		order, err = h.store.GetOrder(ctx, tenantID, req.OrderID)
		if err == nil {
			out = bot.BuildOrderUpdate(order, req.BusinessName, req.OrderStatus)
		}
	case "payment_notice":
		var payment *model.Payment
		payment, err = h.store.GetPayment(ctx, tenantID, req.PaymentID)
		if err == nil {
			out = bot.BuildPaymentNotice(payment, req.BusinessName, req.PaymentKind)
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown notification kind")
		return
	}

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "record lookup failed")
		return
	}
	if out.To == "" {
		writeError(w, http.StatusUnprocessableEntity, "record has no destination")
		return
	}

	if out.PendingAction != model.ActionNone {
		if err := h.armPendingAction(ctx, tenantID, out); err != nil {
			writeError(w, http.StatusInternalServerError, "could not arm pending action")
			return
		}
	}

	h.logger.Info("notification built",
		zap.String("tenant_id", tenantID),
		zap.String("kind", req.Kind),
		zap.String("to", out.To),
		zap.String("pending_action", string(out.PendingAction)))
	writeJSON(w, http.StatusCreated, out)
}

// armPendingAction stores the expected response on the recipient's
// conversation so the notification bot can resolve the next inbound
// message. Retried once on a concurrent write.
func (h *NotificationHandler) armPendingAction(ctx context.Context, tenantID string, out *model.OutboundNotification) error {
	for attempt := 0; attempt < 2; attempt++ {
		conv, rev, err := h.store.GetConversation(ctx, tenantID, out.To)
		if err != nil {
			return err
		}
		conv.ClaimFor(model.KindNotification)
		conv.PendingAction = out.PendingAction
		conv.NotificationContext = out.Context
		conv.UpdatedAt = time.Now().UTC()

		err = h.store.PutConversation(ctx, conv, rev)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) || attempt == 1 {
			return err
		}
	}
	return nil
}
