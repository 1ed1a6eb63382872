package entitlement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/botmesh/bot-engine/internal/model"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
)

func TestAllowed(t *testing.T) {
	m := store.NewMemory()
	m.PutTenant(&model.Tenant{ID: "t1", PurchasedBots: []string{"rules"}})
	g := NewGate(m, logger.NewNop())
	ctx := context.Background()

	assert.True(t, g.Allowed(ctx, "t1", model.TypeRules))
	assert.False(t, g.Allowed(ctx, "t1", model.TypeScheduling))
}

func TestAllowedPurchased(t *testing.T) {
	m := store.NewMemory()
	m.PutTenant(&model.Tenant{ID: "t1", PurchasedBots: []string{"scheduling", "faq"}})
	g := NewGate(m, logger.NewNop())
	ctx := context.Background()

	assert.True(t, g.Allowed(ctx, "t1", model.TypeScheduling))
	assert.True(t, g.Allowed(ctx, "t1", model.TypeFAQ))
	assert.False(t, g.Allowed(ctx, "t1", model.TypeDeepSeek))
}

func TestMissingTenantDeniesWithoutError(t *testing.T) {
	g := NewGate(store.NewMemory(), logger.NewNop())
	ctx := context.Background()

	// Fail closed: a missing tenant is denied, not an error.
	assert.False(t, g.Allowed(ctx, "ghost", model.TypeScheduling))
	// The free tier stays available even for unknown tenants.
	assert.True(t, g.Allowed(ctx, "ghost", model.TypeRules))
}
