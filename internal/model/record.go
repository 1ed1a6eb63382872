package model

import "time"

// Lead is a qualified lead produced by the lead bot. Immutable once written.
type Lead struct {
	ID          string    `json:"id"`
	Industry    string    `json:"industry"`
	CompanySize string    `json:"company_size"`
	Budget      string    `json:"budget"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	WhatsApp    string    `json:"whatsapp"`
	Score       int       `json:"score"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	StartedAt   string    `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Appointment is a booking produced by the scheduling bot. Status fields may
// be patched by later notification responses.
type Appointment struct {
	ID          string     `json:"id"`
	Service     string     `json:"service"`
	Date        string     `json:"date"`
	DateDisplay string     `json:"date_display"`
	Time        string     `json:"time"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Location    string     `json:"location,omitempty"`
	Status      string     `json:"status"`
	Confirmed   bool       `json:"confirmed,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Order is an external order record; only rating fields are patched here.
type Order struct {
	ID          string     `json:"id"`
	Phone       string     `json:"phone"`
	Tracking    string     `json:"tracking,omitempty"`
	TrackingURL string     `json:"tracking_url,omitempty"`
	ETA         string     `json:"eta,omitempty"`
	Rating      int        `json:"rating,omitempty"`
	RatedAt     *time.Time `json:"rated_at,omitempty"`
}

// Payment is an external payment record referenced by payment notices.
type Payment struct {
	ID         string  `json:"id"`
	Phone      string  `json:"phone"`
	Amount     float64 `json:"amount"`
	Reference  string  `json:"reference,omitempty"`
	DueDate    string  `json:"due_date,omitempty"`
	PaymentURL string  `json:"payment_url,omitempty"`
}

// OutboundNotification is the tuple handed to the external sender: the
// message to deliver plus the pending action stored on the conversation.
type OutboundNotification struct {
	To               string               `json:"to"`
	Text             string               `json:"text"`
	NotificationType string               `json:"notification_type"`
	Context          *NotificationContext `json:"context,omitempty"`
	PendingAction    NotificationAction   `json:"pending_action,omitempty"`
}
