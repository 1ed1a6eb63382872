package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/botmesh/bot-engine/internal/dispatch"
	"github.com/botmesh/bot-engine/internal/middleware"
	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/pkg/logger"
)

// EventHandler accepts inbound chat events and returns reply envelopes.
type EventHandler struct {
	dispatcher *dispatch.Dispatcher
	logger     *logger.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(d *dispatch.Dispatcher, log *logger.Logger) *EventHandler {
	return &EventHandler{dispatcher: d, logger: log}
}

// Dispatch handles POST /api/v1/events
func (h *EventHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var ev model.IncomingEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev.TenantID = strings.TrimSpace(ev.TenantID)
	ev.ServiceID = strings.TrimSpace(ev.ServiceID)
	ev.From = strings.TrimSpace(ev.From)
	if ev.TenantID == "" || ev.ServiceID == "" || ev.From == "" {
		writeError(w, http.StatusBadRequest, "tenantId, serviceId and from are required")
		return
	}
	if ev.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}

	if !middleware.CanActFor(ctx, ev.TenantID) {
		h.logger.Warn("cross-tenant event rejected",
			zap.String("subject", middleware.GetUserID(ctx)),
			zap.String("tenant_id", ev.TenantID))
		writeError(w, http.StatusForbidden, "token not valid for tenant")
		return
	}

	env := h.dispatcher.Dispatch(ctx, &ev)
	writeJSON(w, http.StatusOK, env)
}
