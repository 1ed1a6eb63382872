// Package dispatch routes inbound events to bot behaviors and normalizes
// their output into reply envelopes. Every path yields an envelope; behavior
// failures are captured, never propagated.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/botmesh/bot-engine/internal/bot"
	"github.com/botmesh/bot-engine/internal/entitlement"
	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
	"github.com/botmesh/bot-engine/pkg/metrics"
)

// Dispatcher resolves an event's service to a behavior and runs one turn.
type Dispatcher struct {
	store    store.Store
	gate     *entitlement.Gate
	registry bot.Registry
	logger   *logger.Logger
}

// New creates a dispatcher.
func New(s store.Store, gate *entitlement.Gate, registry bot.Registry, log *logger.Logger) *Dispatcher {
	return &Dispatcher{store: s, gate: gate, registry: registry, logger: log}
}

// Dispatch handles one inbound event end to end and always returns an
// envelope addressed back to the sender.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *model.IncomingEvent) *model.ReplyEnvelope {
	env := &model.ReplyEnvelope{
		TenantID:  ev.TenantID,
		ServiceID: ev.ServiceID,
		To:        ev.From,
	}
	start := time.Now()
	botType := "unknown"
	defer func() {
		status := "error"
		if env.Success {
			status = "ok"
		}
		metrics.RecordDispatch(ev.TenantID, botType, status, time.Since(start).Seconds())
	}()

	svc, err := d.store.GetService(ctx, ev.TenantID, ev.ServiceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			env.Error = "service not found"
			return env
		}
		env.Error = fmt.Sprintf("service lookup: %v", err)
		return env
	}

	svcType := svc.Type
	if svcType == "" {
		svcType = model.TypeRules
	}
	botType = string(svcType)

	if !svc.Active {
		env.Error = "service disabled"
		return env
	}

	if !d.gate.Allowed(ctx, ev.TenantID, svcType) {
		env.ReplyText = "Bot no activo en su plan."
		env.Error = "access denied"
		return env
	}

	handler, ok := d.registry[svcType]
	if !ok {
		env.Error = "unknown type"
		return env
	}

	res, err := d.runBehavior(ctx, handler, ev, svc)
	if err != nil {
		metrics.BotErrors.WithLabelValues(ev.TenantID, string(svcType)).Inc()
		d.logger.Error("behavior failed",
			zap.String("tenant_id", ev.TenantID),
			zap.String("type", string(svcType)),
			zap.Error(err))
		env.Error = err.Error()
		return env
	}

	env.Success = true
	env.ReplyText = res.Reply
	env.Meta = res.Meta
	return env
}

// runBehavior invokes the handler, converting panics into errors and
// retrying the turn once when an optimistic write lost its race.
func (d *Dispatcher) runBehavior(ctx context.Context, h bot.Handler, ev *model.IncomingEvent, svc *model.Service) (res *bot.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("behavior panic: %v", r)
		}
	}()

	res, err = h.Handle(ctx, ev, svc)
	if errors.Is(err, store.ErrConflict) {
		metrics.ConversationConflicts.Inc()
		d.logger.Warn("conversation write conflict, retrying turn",
			zap.String("tenant_id", ev.TenantID),
			zap.String("from", ev.From))
		res, err = h.Handle(ctx, ev, svc)
	}
	return res, err
}
