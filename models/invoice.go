package models

import (
	"time"

	"gorm.io/gorm"
)

// Invoice status lifecycle. Transitions happen through explicit user
// actions (send, mark paid) plus the automatic sent -> overdue flip when
// the due date passes. Paid is absorbing: no reminder ever fires for a
// paid invoice.
const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusSent          = "sent"
	InvoiceStatusPartiallyPaid = "partially_paid"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusOverdue       = "overdue"
)

// Invoice represents a bill issued to a client.
type Invoice struct {
	gorm.Model
	UserID   uint `gorm:"not null;index" json:"user_id"`
	ClientID uint `gorm:"not null;index" json:"client_id"`

	Number    string    `gorm:"not null;index" json:"number"`
	IssueDate time.Time `gorm:"not null" json:"issue_date"`
	DueDate   time.Time `gorm:"not null;index" json:"due_date"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"not null;default:'USD'" json:"currency"`
	Status    string    `gorm:"not null;default:'draft';index" json:"status"` // draft, sent, partially_paid, paid, overdue
	Notes     string    `gorm:"type:text" json:"notes"`

	// Stripe payment collection
	StripePaymentIntentID string     `gorm:"index" json:"stripe_payment_intent_id,omitempty"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`

	// Relations
	Client    Client     `json:"client,omitempty"`
	Reminders []Reminder `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"reminders,omitempty"`
}

// IsPastDue reports whether the due date is strictly in the past.
func (i *Invoice) IsPastDue(now time.Time) bool {
	return now.After(i.DueDate)
}
