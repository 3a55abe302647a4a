package utils

import (
	"fmt"
	"strings"
	"time"

	"duechaser/models"
)

// RenderedMessage is the outcome of substituting a template against an
// invoice: a subject line and an HTML-ready body.
type RenderedMessage struct {
	Subject string
	Body    string
}

// RenderTemplate substitutes the placeholder tokens of a message
// template against an invoice and its client, evaluated at now. It is
// pure: inputs are never mutated and identical inputs render
// identically. Tokens with no known value are left untouched.
//
// Supported tokens: {invoice_number}, {amount}, {due_date},
// {days_overdue}, {client_name}. {user_name} and {company_name} are
// reserved and currently render as empty strings.
func RenderTemplate(tmpl models.MessageTemplate, invoice models.Invoice, now time.Time) (RenderedMessage, error) {
	if invoice.ID == 0 || invoice.Client.ID == 0 {
		return RenderedMessage{}, ErrMissingContext
	}

	replacer := strings.NewReplacer(
		"{invoice_number}", invoice.Number,
		"{amount}", fmt.Sprintf("%s %.2f", invoice.Currency, invoice.Amount),
		"{due_date}", invoice.DueDate.Format("January 2, 2006"),
		"{days_overdue}", fmt.Sprintf("%d", daysOverdue(invoice.DueDate, now)),
		"{client_name}", invoice.Client.Name,
		"{user_name}", "",
		"{company_name}", "",
	)

	body := replacer.Replace(tmpl.Body)
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "<br/>")

	return RenderedMessage{
		Subject: replacer.Replace(tmpl.Subject),
		Body:    body,
	}, nil
}

// daysOverdue counts whole days past the due date, never negative.
func daysOverdue(dueDate, now time.Time) int {
	days := int(now.Sub(dueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
