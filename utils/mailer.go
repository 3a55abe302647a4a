package utils

import (
	"fmt"

	"duechaser/config"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// Email is one outbound message. FromName, FromEmail and ReplyTo are
// optional; the mailer fills them from its configured defaults.
type Email struct {
	To        string
	Subject   string
	Body      string
	FromName  string
	FromEmail string
	ReplyTo   string
}

// MailSender is the transport boundary the reminder worker sends
// through. Implementations return an error instead of panicking so the
// caller can decide per-message continuation.
type MailSender interface {
	Send(email Email) (messageID string, err error)
}

// Mailer sends mail over SMTP via gomail.
type Mailer struct {
	dialer    *gomail.Dialer
	fromEmail string
	fromName  string
}

// NewMailer builds a Mailer from SMTP settings. It fails with
// ErrNotConfigured when host or sender address are missing, so a
// misconfigured transport is caught at process start rather than on the
// first send.
func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	if cfg.Host == "" || cfg.FromEmail == "" {
		return nil, ErrNotConfigured
	}

	return &Mailer{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}, nil
}

// Send delivers one message and returns its Message-ID. Defaults:
// FromEmail falls back to the configured sender, FromName to the
// configured product name, ReplyTo to the effective from address.
func (m *Mailer) Send(email Email) (string, error) {
	fromEmail := email.FromEmail
	if fromEmail == "" {
		fromEmail = m.fromEmail
	}
	fromName := email.FromName
	if fromName == "" {
		fromName = m.fromName
	}
	replyTo := email.ReplyTo
	if replyTo == "" {
		replyTo = fromEmail
	}

	messageID := fmt.Sprintf("<%s@duechaser>", uuid.New().String())

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(fromEmail, fromName))
	msg.SetHeader("To", email.To)
	msg.SetHeader("Reply-To", replyTo)
	msg.SetHeader("Message-ID", messageID)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/html", email.Body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return "", fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}

	return messageID, nil
}
