package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/botmesh/bot-engine/internal/model"
)

// Memory is an in-process Store used by tests and local development. It
// implements the same compare-and-swap semantics as the KV backend.
type Memory struct {
	mu            sync.RWMutex
	tenants       map[string]*model.Tenant
	services      map[string]*model.Service
	conversations map[string]memoryDoc
	appointments  map[string]*model.Appointment
	leads         map[string]*model.Lead
	orders        map[string]*model.Order
	payments      map[string]*model.Payment
}

type memoryDoc struct {
	data     []byte
	revision uint64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tenants:       make(map[string]*model.Tenant),
		services:      make(map[string]*model.Service),
		conversations: make(map[string]memoryDoc),
		appointments:  make(map[string]*model.Appointment),
		leads:         make(map[string]*model.Lead),
		orders:        make(map[string]*model.Order),
		payments:      make(map[string]*model.Payment),
	}
}

func key(parts ...string) string {
	k := parts[0]
	for _, p := range parts[1:] {
		k += "/" + p
	}
	return k
}

// PutTenant seeds a tenant document.
func (m *Memory) PutTenant(t *model.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
}

// PutService seeds a service document.
func (m *Memory) PutService(s *model.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[key(s.TenantID, s.ID)] = s
}

// PutOrder seeds an order record.
func (m *Memory) PutOrder(tenantID string, o *model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[key(tenantID, o.ID)] = o
}

// PutPayment seeds a payment record.
func (m *Memory) PutPayment(tenantID string, p *model.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[key(tenantID, p.ID)] = p
}

func (m *Memory) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (m *Memory) GetService(ctx context.Context, tenantID, serviceID string) (*model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[key(tenantID, serviceID)]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Memory) GetConversation(ctx context.Context, tenantID, counterparty string) (*model.Conversation, uint64, error) {
	m.mu.RLock()
	doc, ok := m.conversations[key(tenantID, counterparty)]
	m.mu.RUnlock()

	if !ok {
		return &model.Conversation{TenantID: tenantID, Counterparty: counterparty}, 0, nil
	}

	var conv model.Conversation
	if err := json.Unmarshal(doc.data, &conv); err != nil {
		return nil, 0, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, doc.revision, nil
}

func (m *Memory) PutConversation(ctx context.Context, conv *model.Conversation, revision uint64) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(conv.TenantID, conv.Counterparty)
	current, exists := m.conversations[k]
	if exists && current.revision != revision {
		return ErrConflict
	}
	if !exists && revision != 0 {
		return ErrConflict
	}
	m.conversations[k] = memoryDoc{data: data, revision: revision + 1}
	return nil
}

func (m *Memory) CreateLead(ctx context.Context, tenantID string, lead *model.Lead) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	lead.ID = id
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[key(tenantID, id)] = lead
	return id, nil
}

// GetLead reads back a stored lead record.
func (m *Memory) GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leads[key(tenantID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return l, nil
}

func (m *Memory) CreateAppointment(ctx context.Context, tenantID string, appt *model.Appointment) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	appt.ID = id
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[key(tenantID, id)] = appt
	return id, nil
}

func (m *Memory) GetAppointment(ctx context.Context, tenantID, id string) (*model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[key(tenantID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *Memory) ConfirmAppointment(ctx context.Context, tenantID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[key(tenantID, id)]
	if !ok {
		return ErrNotFound
	}
	a.Confirmed = true
	a.ConfirmedAt = &at
	return nil
}

func (m *Memory) CancelAppointment(ctx context.Context, tenantID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[key(tenantID, id)]
	if !ok {
		return ErrNotFound
	}
	a.Status = "cancelled"
	a.CancelledAt = &at
	return nil
}

func (m *Memory) GetOrder(ctx context.Context, tenantID, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[key(tenantID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *Memory) RateOrder(ctx context.Context, tenantID, id string, rating int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[key(tenantID, id)]
	if !ok {
		return ErrNotFound
	}
	o.Rating = rating
	o.RatedAt = &at
	return nil
}

func (m *Memory) GetPayment(ctx context.Context, tenantID, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[key(tenantID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

var _ Store = (*Memory)(nil)
