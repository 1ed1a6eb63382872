package model

import "time"

// RulesState is the rules bot appointments-mode state.
type RulesState string

const (
	RulesInit      RulesState = "INIT"
	RulesAskDate   RulesState = "ASK_DATE"
	RulesAskTime   RulesState = "ASK_TIME"
	RulesConfirmed RulesState = "CONFIRMED"
)

// SchedulingState is the scheduling bot flow state.
type SchedulingState string

const (
	SchedIdle       SchedulingState = "idle"
	SchedAskService SchedulingState = "ask_service"
	SchedAskDate    SchedulingState = "ask_date"
	SchedAskTime    SchedulingState = "ask_time"
	SchedAskName    SchedulingState = "ask_name"
	SchedConfirming SchedulingState = "confirming" // terminal alias, unused
	SchedConfirmed  SchedulingState = "confirmed"
)

// LeadState is the lead qualification flow state.
type LeadState string

const (
	LeadIdle        LeadState = "idle"
	LeadAskIndustry LeadState = "ask_industry"
	LeadAskSize     LeadState = "ask_size"
	LeadAskBudget   LeadState = "ask_budget"
	LeadAskName     LeadState = "ask_name"
	LeadAskEmail    LeadState = "ask_email"
	LeadAskPhone    LeadState = "ask_phone"
	LeadCompleted   LeadState = "completed"
)

// NotificationAction is a pending response expected from the counterparty.
type NotificationAction string

const (
	ActionNone               NotificationAction = ""
	ActionConfirmAppointment NotificationAction = "confirm_appointment"
	ActionRateOrder          NotificationAction = "rate_order"
	ActionConfirmPayment     NotificationAction = "confirm_payment"
)

// RulesDraft holds the rules bot appointment fields, stored verbatim.
type RulesDraft struct {
	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
}

// AppointmentDraft is the scheduling bot's in-progress booking.
type AppointmentDraft struct {
	Service        string   `json:"service,omitempty"`
	Date           string   `json:"date,omitempty"`         // YYYY-MM-DD, always parsed once ASK_TIME is reached
	DateDisplay    string   `json:"date_display,omitempty"`
	Time           string   `json:"time,omitempty"` // HH:MM
	AvailableSlots []string `json:"available_slots,omitempty"`
}

// LeadDraft is the lead bot's in-progress qualification data.
type LeadDraft struct {
	Industry    string `json:"industry,omitempty"`
	CompanySize string `json:"company_size,omitempty"`
	Budget      string `json:"budget,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
}

// NotificationContext references the record a pending action applies to.
type NotificationContext struct {
	AppointmentID string `json:"appointment_id,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
}

// ChatTurn is one turn of AI conversation history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the persisted per-tenant, per-counterparty document. At
// most one state machine owns its state at a time: a behavior claiming the
// conversation clears the fields of every other behavior first.
type Conversation struct {
	TenantID     string `json:"tenant_id"`
	Counterparty string `json:"counterparty"`

	// Rules bot (appointments mode)
	RulesState RulesState  `json:"state,omitempty"`
	RulesDraft *RulesDraft `json:"data,omitempty"`

	// Scheduling bot
	SchedulingState    SchedulingState   `json:"scheduling_state,omitempty"`
	PendingAppointment *AppointmentDraft `json:"pending_appointment,omitempty"`
	LastAppointmentID  string            `json:"last_appointment_id,omitempty"`

	// Lead bot
	LeadState  LeadState  `json:"lead_state,omitempty"`
	LeadDraft  *LeadDraft `json:"lead_data,omitempty"`
	LastLeadID string     `json:"last_lead_id,omitempty"`

	// Notification bot
	PendingAction       NotificationAction   `json:"pending_notification_action,omitempty"`
	NotificationContext *NotificationContext `json:"notification_context,omitempty"`

	// FAQ bot
	Escalated        bool       `json:"escalated,omitempty"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`
	AwaitingFeedback bool       `json:"awaiting_feedback,omitempty"`
	LastQuestion     string     `json:"last_question,omitempty"`

	// AI bots
	History []ChatTurn `json:"history,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// BotKind identifies which behavior family owns the conversation state.
type BotKind string

const (
	KindRules        BotKind = "rules"
	KindScheduling   BotKind = "scheduling"
	KindLead         BotKind = "lead"
	KindNotification BotKind = "notification"
	KindFAQ          BotKind = "faq"
	KindAI           BotKind = "ai"
)

// ClaimFor clears all state owned by behaviors other than kind, preserving
// the single-owner invariant across category switches.
func (c *Conversation) ClaimFor(kind BotKind) {
	if kind != KindRules {
		c.RulesState = ""
		c.RulesDraft = nil
	}
	if kind != KindScheduling {
		c.SchedulingState = ""
		c.PendingAppointment = nil
	}
	if kind != KindLead {
		c.LeadState = ""
		c.LeadDraft = nil
	}
	if kind != KindNotification {
		c.PendingAction = ActionNone
		c.NotificationContext = nil
	}
	if kind != KindFAQ {
		c.AwaitingFeedback = false
		c.LastQuestion = ""
	}
	if kind != KindAI {
		c.History = nil
	}
}
