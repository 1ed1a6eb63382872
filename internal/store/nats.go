package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/botmesh/bot-engine/internal/model"
	natsclient "github.com/botmesh/bot-engine/internal/nats"
)

// KV bucket names, one per document collection.
const (
	BucketTenants       = "tenants"
	BucketServices      = "services"
	BucketConversations = "conversations"
	BucketLeads         = "leads"
	BucketAppointments  = "appointments"
	BucketOrders        = "orders"
	BucketPayments      = "payments"
)

var keyCharRe = regexp.MustCompile(`[^-/_=.a-zA-Z0-9]`)

// NATSStore is a Store backed by JetStream key-value buckets. Conversation
// writes use KV revision guards, so concurrent turns on the same
// conversation surface as ErrConflict rather than lost updates.
type NATSStore struct {
	client  *natsclient.Client
	buckets map[string]jetstream.KeyValue
}

// NewNATS opens (creating if needed) all KV buckets.
func NewNATS(ctx context.Context, client *natsclient.Client) (*NATSStore, error) {
	s := &NATSStore{
		client:  client,
		buckets: make(map[string]jetstream.KeyValue),
	}

	js := client.JetStream()
	for _, name := range []string{
		BucketTenants, BucketServices, BucketConversations,
		BucketLeads, BucketAppointments, BucketOrders, BucketPayments,
	} {
		kv, err := js.KeyValue(ctx, name)
		if errors.Is(err, jetstream.ErrBucketNotFound) {
			kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
				Bucket:  name,
				History: 1,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open bucket %s: %w", name, err)
		}
		s.buckets[name] = kv
	}

	return s, nil
}

// docKey builds a bucket key from id parts, replacing characters JetStream
// rejects (sender addresses may contain '+').
func docKey(parts ...string) string {
	k := parts[0]
	for _, p := range parts[1:] {
		k += "." + p
	}
	return keyCharRe.ReplaceAllString(k, "_")
}

func (s *NATSStore) get(ctx context.Context, bucket, key string, out any) (uint64, error) {
	entry, err := s.buckets[bucket].Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("kv get %s/%s: %w", bucket, key, err)
	}
	if err := json.Unmarshal(entry.Value(), out); err != nil {
		return 0, fmt.Errorf("decode %s/%s: %w", bucket, key, err)
	}
	return entry.Revision(), nil
}

func (s *NATSStore) put(ctx context.Context, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", bucket, key, err)
	}
	if _, err := s.buckets[bucket].Put(ctx, key, data); err != nil {
		return fmt.Errorf("kv put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *NATSStore) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var t model.Tenant
	if _, err := s.get(ctx, BucketTenants, docKey(tenantID), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *NATSStore) GetService(ctx context.Context, tenantID, serviceID string) (*model.Service, error) {
	var svc model.Service
	if _, err := s.get(ctx, BucketServices, docKey(tenantID, serviceID), &svc); err != nil {
		return nil, err
	}
	svc.TenantID = tenantID
	svc.ID = serviceID
	return &svc, nil
}

func (s *NATSStore) GetConversation(ctx context.Context, tenantID, counterparty string) (*model.Conversation, uint64, error) {
	var conv model.Conversation
	rev, err := s.get(ctx, BucketConversations, docKey(tenantID, counterparty), &conv)
	if errors.Is(err, ErrNotFound) {
		return &model.Conversation{TenantID: tenantID, Counterparty: counterparty}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return &conv, rev, nil
}

func (s *NATSStore) PutConversation(ctx context.Context, conv *model.Conversation, revision uint64) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	kv := s.buckets[BucketConversations]
	k := docKey(conv.TenantID, conv.Counterparty)

	if revision == 0 {
		_, err = kv.Create(ctx, k, data)
		if errors.Is(err, jetstream.ErrKeyExists) {
			return ErrConflict
		}
	} else {
		_, err = kv.Update(ctx, k, data, revision)
		if isWrongRevision(err) {
			return ErrConflict
		}
	}
	if err != nil {
		return fmt.Errorf("kv write conversation %s: %w", k, err)
	}
	return nil
}

func isWrongRevision(err error) bool {
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

func (s *NATSStore) CreateLead(ctx context.Context, tenantID string, lead *model.Lead) (string, error) {
	lead.ID = uuid.Must(uuid.NewV7()).String()
	if err := s.put(ctx, BucketLeads, docKey(tenantID, lead.ID), lead); err != nil {
		return "", err
	}
	return lead.ID, nil
}

func (s *NATSStore) CreateAppointment(ctx context.Context, tenantID string, appt *model.Appointment) (string, error) {
	appt.ID = uuid.Must(uuid.NewV7()).String()
	if err := s.put(ctx, BucketAppointments, docKey(tenantID, appt.ID), appt); err != nil {
		return "", err
	}
	return appt.ID, nil
}

func (s *NATSStore) GetAppointment(ctx context.Context, tenantID, id string) (*model.Appointment, error) {
	var a model.Appointment
	if _, err := s.get(ctx, BucketAppointments, docKey(tenantID, id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *NATSStore) ConfirmAppointment(ctx context.Context, tenantID, id string, at time.Time) error {
	a, err := s.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return err
	}
	a.Confirmed = true
	a.ConfirmedAt = &at
	return s.put(ctx, BucketAppointments, docKey(tenantID, id), a)
}

func (s *NATSStore) CancelAppointment(ctx context.Context, tenantID, id string, at time.Time) error {
	a, err := s.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return err
	}
	a.Status = "cancelled"
	a.CancelledAt = &at
	return s.put(ctx, BucketAppointments, docKey(tenantID, id), a)
}

func (s *NATSStore) GetOrder(ctx context.Context, tenantID, id string) (*model.Order, error) {
	var o model.Order
	if _, err := s.get(ctx, BucketOrders, docKey(tenantID, id), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *NATSStore) RateOrder(ctx context.Context, tenantID, id string, rating int, at time.Time) error {
	o, err := s.GetOrder(ctx, tenantID, id)
	if err != nil {
		return err
	}
	o.Rating = rating
	o.RatedAt = &at
	return s.put(ctx, BucketOrders, docKey(tenantID, id), o)
}

func (s *NATSStore) GetPayment(ctx context.Context, tenantID, id string) (*model.Payment, error) {
	var p model.Payment
	if _, err := s.get(ctx, BucketPayments, docKey(tenantID, id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ Store = (*NATSStore)(nil)
