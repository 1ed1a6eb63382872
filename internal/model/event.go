package model

// IncomingEvent is one inbound message from the messaging gateway. It exists
// only for the duration of a single dispatch call.
type IncomingEvent struct {
	TenantID  string `json:"tenantId"`
	ServiceID string `json:"serviceId"`
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	MessageID string `json:"messageId,omitempty"`
}

// ReplyEnvelope is the uniform response returned to the hosting runtime.
// It is never persisted.
type ReplyEnvelope struct {
	Success   bool           `json:"success"`
	ReplyText string         `json:"reply_text,omitempty"`
	TenantID  string         `json:"tenantId"`
	ServiceID string         `json:"serviceId"`
	To        string         `json:"to"`
	Meta      map[string]any `json:"meta,omitempty"`
	Error     string         `json:"error,omitempty"`
}
