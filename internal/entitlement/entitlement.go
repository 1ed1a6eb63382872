// Package entitlement checks whether a tenant may use a bot category.
package entitlement

import (
	"context"

	"go.uber.org/zap"

	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
)

// Gate resolves tenant entitlements against the document store. Lookup
// failures deny access rather than erroring; a broken tenant read must not
// grant paid categories.
type Gate struct {
	store  store.Store
	logger *logger.Logger
}

// NewGate creates an entitlement gate.
func NewGate(s store.Store, log *logger.Logger) *Gate {
	return &Gate{store: s, logger: log}
}

// Allowed reports whether the tenant may use the given category. The rules
// category is the free tier and is always allowed.
func (g *Gate) Allowed(ctx context.Context, tenantID string, serviceType model.ServiceType) bool {
	if serviceType == model.TypeRules {
		return true
	}

	tenant, err := g.store.GetTenant(ctx, tenantID)
	if err != nil {
		g.logger.Warn("entitlement check failed, denying",
			zap.String("tenant_id", tenantID),
			zap.String("type", string(serviceType)),
			zap.Error(err),
		)
		return false
	}

	return tenant.HasPurchased(serviceType)
}
