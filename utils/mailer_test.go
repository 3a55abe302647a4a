package utils

import (
	"testing"

	"duechaser/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailerRejectsMissingConfiguration(t *testing.T) {
	_, err := NewMailer(config.SMTPConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewMailer(config.SMTPConfig{Host: "smtp.example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewMailer(config.SMTPConfig{FromEmail: "billing@example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewMailerWithValidConfiguration(t *testing.T) {
	m, err := NewMailer(config.SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		FromEmail: "billing@example.com",
		FromName:  "Billing",
	})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
