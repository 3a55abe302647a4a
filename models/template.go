package models

import (
	"gorm.io/gorm"
)

// MessageTemplate holds the subject and body of a reminder email with
// placeholder tokens ({invoice_number}, {amount}, {due_date},
// {days_overdue}, {client_name}). A nil UserID marks a shared system
// template visible to every user. Templates referenced by a sent
// reminder are immutable by convention; the renderer never mutates one.
type MessageTemplate struct {
	gorm.Model
	UserID *uint `gorm:"index" json:"user_id,omitempty"`

	Name    string `gorm:"not null" json:"name"`
	Subject string `gorm:"not null" json:"subject"`
	Body    string `gorm:"not null;type:text" json:"body"`

	// Severity orders escalation: lower values are gentler, later
	// reminders pick higher ones.
	Severity int `gorm:"not null;default:1" json:"severity"`
}
