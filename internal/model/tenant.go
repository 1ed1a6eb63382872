// Package model defines data structures for the bot engine.
package model

import "time"

// ServiceType is the bot category of a configured service.
type ServiceType string

const (
	TypeRules        ServiceType = "rules"
	TypeScheduling   ServiceType = "scheduling"
	TypeLead         ServiceType = "lead"
	TypeNotification ServiceType = "notification"
	TypeFAQ          ServiceType = "faq"
	TypeAI           ServiceType = "ai"
	TypeDeepSeek     ServiceType = "deepseek"
)

// Tenant is a customer organization. Created by provisioning, read-only here.
type Tenant struct {
	ID            string      `json:"id"`
	Name          string      `json:"name,omitempty"`
	PurchasedBots []string    `json:"purchased_bots"`
	CreatedAt     time.Time   `json:"created_at,omitempty"`
}

// HasPurchased reports whether the tenant's plan includes the given category.
func (t *Tenant) HasPurchased(st ServiceType) bool {
	for _, b := range t.PurchasedBots {
		if b == string(st) {
			return true
		}
	}
	return false
}

// Service is one configured bot instance belonging to a tenant.
type Service struct {
	ID       string         `json:"id"`
	TenantID string         `json:"tenant_id"`
	Type     ServiceType    `json:"type"`
	Active   bool           `json:"active"`
	Settings map[string]any `json:"settings,omitempty"`
}

// SettingString returns a string setting or the default when absent.
func (s *Service) SettingString(key, def string) string {
	if v, ok := s.Settings[key].(string); ok && v != "" {
		return v
	}
	return def
}

// SettingBool returns a bool setting or the default when absent.
func (s *Service) SettingBool(key string, def bool) bool {
	if v, ok := s.Settings[key].(bool); ok {
		return v
	}
	return def
}

// SettingStrings returns a string-list setting. JSON decoding yields
// []any, so both representations are accepted.
func (s *Service) SettingStrings(key string) []string {
	switch v := s.Settings[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// KnowledgeEntry is one FAQ topic: keywords matched against the message and
// the pre-written answer.
type KnowledgeEntry struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
	Answer   string   `json:"answer"`
}

// KnowledgeBase returns the tenant-custom knowledge base configured under
// settings.knowledge_base, an ordered array of {topic, keywords, answer}.
// Returns nil when not configured.
func (s *Service) KnowledgeBase() []KnowledgeEntry {
	raw, ok := s.Settings["knowledge_base"].([]any)
	if !ok {
		return nil
	}
	var entries []KnowledgeEntry
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		entry := KnowledgeEntry{}
		if t, ok := m["topic"].(string); ok {
			entry.Topic = t
		}
		if a, ok := m["answer"].(string); ok {
			entry.Answer = a
		}
		if kws, ok := m["keywords"].([]any); ok {
			for _, kw := range kws {
				if str, ok := kw.(string); ok {
					entry.Keywords = append(entry.Keywords, str)
				}
			}
		}
		if entry.Topic != "" && entry.Answer != "" {
			entries = append(entries, entry)
		}
	}
	return entries
}
