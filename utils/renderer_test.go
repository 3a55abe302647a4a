package utils

import (
	"testing"
	"time"

	"duechaser/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvoice() models.Invoice {
	inv := models.Invoice{
		Number:   "INV-001",
		Amount:   150.00,
		Currency: "USD",
		DueDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Client:   models.Client{Name: "Acme", Email: "billing@acme.test"},
	}
	inv.ID = 1
	inv.Client.ID = 1
	return inv
}

func TestRenderTemplateSubstitutesAllTokens(t *testing.T) {
	tmpl := models.MessageTemplate{
		Subject: "Invoice {invoice_number} is overdue",
		Body:    "{client_name}, invoice {invoice_number} for {amount} was due {due_date} ({days_overdue} days overdue)",
	}
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	msg, err := RenderTemplate(tmpl, testInvoice(), now)
	require.NoError(t, err)

	assert.Equal(t, "Invoice INV-001 is overdue", msg.Subject)
	assert.Equal(t, "Acme, invoice INV-001 for USD 150.00 was due January 1, 2025 (9 days overdue)", msg.Body)
}

func TestRenderTemplateDaysOverdueNeverNegative(t *testing.T) {
	tmpl := models.MessageTemplate{Subject: "s", Body: "{days_overdue}"}
	now := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC) // well before due date

	msg, err := RenderTemplate(tmpl, testInvoice(), now)
	require.NoError(t, err)
	assert.Equal(t, "0", msg.Body)
}

func TestRenderTemplateIsDeterministic(t *testing.T) {
	tmpl := models.MessageTemplate{
		Subject: "Reminder for {client_name}",
		Body:    "{invoice_number}: {amount}",
	}
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	first, err := RenderTemplate(tmpl, testInvoice(), now)
	require.NoError(t, err)
	second, err := RenderTemplate(tmpl, testInvoice(), now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderTemplateLeavesUnknownTokensUntouched(t *testing.T) {
	tmpl := models.MessageTemplate{Subject: "s", Body: "Hello {nonexistent_token}"}

	msg, err := RenderTemplate(tmpl, testInvoice(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Hello {nonexistent_token}", msg.Body)
}

func TestRenderTemplateReservedTokensRenderEmpty(t *testing.T) {
	tmpl := models.MessageTemplate{Subject: "s", Body: "[{user_name}][{company_name}]"}

	msg, err := RenderTemplate(tmpl, testInvoice(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "[][]", msg.Body)
}

func TestRenderTemplateConvertsBodyLineBreaksOnly(t *testing.T) {
	tmpl := models.MessageTemplate{
		Subject: "line\nbreak",
		Body:    "first\nsecond\r\nthird",
	}

	msg, err := RenderTemplate(tmpl, testInvoice(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "first<br/>second<br/>third", msg.Body)
	assert.Equal(t, "line\nbreak", msg.Subject)
}

func TestRenderTemplateDoesNotMutateInputs(t *testing.T) {
	tmpl := models.MessageTemplate{
		Subject: "Invoice {invoice_number}",
		Body:    "{client_name}\n{amount}",
	}
	invoice := testInvoice()

	_, err := RenderTemplate(tmpl, invoice, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "Invoice {invoice_number}", tmpl.Subject)
	assert.Equal(t, "{client_name}\n{amount}", tmpl.Body)
	assert.Equal(t, "Acme", invoice.Client.Name)
}

func TestRenderTemplateRejectsMissingContext(t *testing.T) {
	tmpl := models.MessageTemplate{Subject: "s", Body: "b"}

	_, err := RenderTemplate(tmpl, models.Invoice{}, time.Now())
	assert.ErrorIs(t, err, ErrMissingContext)

	noClient := testInvoice()
	noClient.Client = models.Client{}
	_, err = RenderTemplate(tmpl, noClient, time.Now())
	assert.ErrorIs(t, err, ErrMissingContext)
}
