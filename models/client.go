package models

import (
	"gorm.io/gorm"
)

// Client represents a billable customer of a user.
type Client struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name    string `gorm:"not null" json:"name"`
	Email   string `gorm:"not null;index" json:"email"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Address string `gorm:"type:text" json:"address"`
	Notes   string `gorm:"type:text" json:"notes"`

	// Relations. Deletion of a client is blocked while invoices
	// reference it; the guard lives in the client controller.
	Invoices []Invoice `gorm:"foreignKey:ClientID" json:"invoices,omitempty"`
}
