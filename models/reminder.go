package models

import (
	"time"

	"gorm.io/gorm"
)

// Reminder status lifecycle. Sent and cancelled are terminal: a reminder
// in either state is never transitioned again. Approved is a holding
// state for reminders scheduled with an approval gate; the worker only
// processes pending ones.
const (
	ReminderStatusPending   = "pending"
	ReminderStatusApproved  = "approved"
	ReminderStatusSent      = "sent"
	ReminderStatusCancelled = "cancelled"
)

// Reminder is a scheduled, template-driven nudge email tied to one
// invoice. Exactly one successful send ever sets SentAt.
type Reminder struct {
	gorm.Model
	InvoiceID  uint `gorm:"not null;index" json:"invoice_id"`
	TemplateID uint `gorm:"not null;index" json:"template_id"`

	ScheduledAt time.Time  `gorm:"not null;index" json:"scheduled_at"`
	Status      string     `gorm:"not null;default:'pending';index" json:"status"` // pending, approved, sent, cancelled
	SentAt      *time.Time `json:"sent_at,omitempty"`

	// Outbound Message-ID recorded on send, for correlating replies.
	MessageID string `json:"message_id,omitempty"`

	// Relations
	Invoice  Invoice         `json:"invoice,omitempty"`
	Template MessageTemplate `json:"template,omitempty"`
}

// IsTerminal reports whether the reminder can never transition again.
func (r *Reminder) IsTerminal() bool {
	return r.Status == ReminderStatusSent || r.Status == ReminderStatusCancelled
}
