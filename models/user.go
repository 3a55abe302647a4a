package models

import (
	"gorm.io/gorm"
)

// User represents an account that owns clients, invoices and reminders.
// There is no login flow here; requests are scoped by API key and the
// record only personalizes outgoing reminder mail (from-name, reply-to).
type User struct {
	gorm.Model

	Email  string `gorm:"uniqueIndex;not null" json:"email"`
	APIKey string `gorm:"uniqueIndex;not null" json:"-"`

	// Profile information
	FullName *string `json:"full_name,omitempty"`
	Company  *string `json:"company,omitempty"`
	Timezone string  `gorm:"default:'UTC'" json:"timezone"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Clients  []Client  `gorm:"foreignKey:UserID" json:"clients,omitempty"`
	Invoices []Invoice `gorm:"foreignKey:UserID" json:"invoices,omitempty"`
}

// FromName returns the display name used on outgoing reminder mail,
// empty when the profile has none.
func (u *User) FromName() string {
	if u.FullName != nil {
		return *u.FullName
	}
	return ""
}
