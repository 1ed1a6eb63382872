// Package store defines the document-store boundary: tenant and service
// configuration reads, conversation state reads/writes, and append-only
// side-effect records. It is the only point of contention in the engine;
// conversation writes are optimistic and fail with ErrConflict when a
// concurrent turn won the race.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/botmesh/bot-engine/internal/model"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conversation write loses an
	// optimistic-concurrency race. Callers retry the turn.
	ErrConflict = errors.New("revision conflict")
)

// Store is the conversation state store adapter.
type Store interface {
	// GetTenant reads a tenant document.
	GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error)

	// GetService reads one service configuration.
	GetService(ctx context.Context, tenantID, serviceID string) (*model.Service, error)

	// GetConversation reads the conversation document for a counterparty,
	// returning a zero-value document with revision 0 when none exists.
	GetConversation(ctx context.Context, tenantID, counterparty string) (*model.Conversation, uint64, error)

	// PutConversation writes the document as a single atomic replace,
	// guarded by the revision from the preceding read.
	PutConversation(ctx context.Context, conv *model.Conversation, revision uint64) error

	// CreateLead appends a lead record and returns its assigned identity.
	CreateLead(ctx context.Context, tenantID string, lead *model.Lead) (string, error)

	// CreateAppointment appends an appointment record and returns its
	// assigned identity.
	CreateAppointment(ctx context.Context, tenantID string, appt *model.Appointment) (string, error)

	// GetAppointment reads an appointment record.
	GetAppointment(ctx context.Context, tenantID, id string) (*model.Appointment, error)

	// ConfirmAppointment marks an appointment confirmed.
	ConfirmAppointment(ctx context.Context, tenantID, id string, at time.Time) error

	// CancelAppointment marks an appointment cancelled.
	CancelAppointment(ctx context.Context, tenantID, id string, at time.Time) error

	// GetOrder reads an order record.
	GetOrder(ctx context.Context, tenantID, id string) (*model.Order, error)

	// RateOrder patches an order with a 1-5 rating.
	RateOrder(ctx context.Context, tenantID, id string, rating int, at time.Time) error

	// GetPayment reads a payment record.
	GetPayment(ctx context.Context, tenantID, id string) (*model.Payment, error)
}
