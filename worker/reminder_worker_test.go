package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"duechaser/models"
	"duechaser/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeMailer struct {
	sent []utils.Email
	fail bool
}

func (f *fakeMailer) Send(email utils.Email) (string, error) {
	if f.fail {
		return "", errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, email)
	return fmt.Sprintf("<%d@test>", len(f.sent)), nil
}

type fixture struct {
	db     *gorm.DB
	mailer *fakeMailer
	worker *ReminderWorker

	user     models.User
	client   models.Client
	template models.MessageTemplate
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Client{}, &models.Invoice{},
		&models.MessageTemplate{}, &models.Reminder{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		db:     db,
		mailer: &fakeMailer{},
	}
	f.worker = NewReminderWorker(db, f.mailer, nil, log.WithField("component", "test"))

	f.user = models.User{
		Email:    "owner@studio.test",
		APIKey:   "test-key",
		FullName: utils.Pointer("Jordan Blake"),
	}
	require.NoError(t, db.Create(&f.user).Error)

	f.client = models.Client{UserID: f.user.ID, Name: "Acme", Email: "billing@acme.test"}
	require.NoError(t, db.Create(&f.client).Error)

	f.template = models.MessageTemplate{
		Name:    "gentle",
		Subject: "Invoice {invoice_number}",
		Body:    "{client_name}, {amount} was due {due_date}",
	}
	require.NoError(t, db.Create(&f.template).Error)

	return f
}

func (f *fixture) createInvoice(t *testing.T, status string) models.Invoice {
	t.Helper()
	invoice := models.Invoice{
		UserID:    f.user.ID,
		ClientID:  f.client.ID,
		Number:    fmt.Sprintf("INV-%d", time.Now().UnixNano()),
		IssueDate: time.Now().AddDate(0, 0, -30),
		DueDate:   time.Now().AddDate(0, 0, -5),
		Amount:    150,
		Currency:  "USD",
		Status:    status,
	}
	require.NoError(t, f.db.Create(&invoice).Error)
	return invoice
}

func (f *fixture) createReminder(t *testing.T, invoiceID uint, status string, scheduledAt time.Time) models.Reminder {
	t.Helper()
	reminder := models.Reminder{
		InvoiceID:   invoiceID,
		TemplateID:  f.template.ID,
		ScheduledAt: scheduledAt,
		Status:      status,
	}
	require.NoError(t, f.db.Create(&reminder).Error)
	return reminder
}

func (f *fixture) reload(t *testing.T, id uint) models.Reminder {
	t.Helper()
	var reminder models.Reminder
	require.NoError(t, f.db.First(&reminder, id).Error)
	return reminder
}

func TestProcessDueRemindersSendsAndRecords(t *testing.T) {
	f := setupFixture(t)
	invoice := f.createInvoice(t, models.InvoiceStatusSent)
	reminder := f.createReminder(t, invoice.ID, models.ReminderStatusPending, time.Now().Add(-time.Hour))

	now := time.Now()
	require.NoError(t, f.worker.ProcessDueReminders(now))

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	assert.Equal(t, "billing@acme.test", sent.To)
	assert.Equal(t, "Invoice "+invoice.Number, sent.Subject)
	assert.Equal(t, "Jordan Blake", sent.FromName)
	assert.Equal(t, "owner@studio.test", sent.ReplyTo)

	stored := f.reload(t, reminder.ID)
	assert.Equal(t, models.ReminderStatusSent, stored.Status)
	require.NotNil(t, stored.SentAt)
	assert.WithinDuration(t, now, *stored.SentAt, time.Second)
	assert.NotEmpty(t, stored.MessageID)
}

func TestProcessDueRemindersCancelsForPaidInvoice(t *testing.T) {
	f := setupFixture(t)
	invoice := f.createInvoice(t, models.InvoiceStatusPaid)
	reminder := f.createReminder(t, invoice.ID, models.ReminderStatusPending, time.Now().Add(-time.Hour))

	require.NoError(t, f.worker.ProcessDueReminders(time.Now()))

	assert.Empty(t, f.mailer.sent)
	stored := f.reload(t, reminder.ID)
	assert.Equal(t, models.ReminderStatusCancelled, stored.Status)
	assert.Nil(t, stored.SentAt)
}

func TestProcessDueRemindersLeavesNonDueUntouched(t *testing.T) {
	f := setupFixture(t)
	invoice := f.createInvoice(t, models.InvoiceStatusSent)

	future := f.createReminder(t, invoice.ID, models.ReminderStatusPending, time.Now().Add(24*time.Hour))
	held := f.createReminder(t, invoice.ID, models.ReminderStatusApproved, time.Now().Add(-time.Hour))
	cancelled := f.createReminder(t, invoice.ID, models.ReminderStatusCancelled, time.Now().Add(-time.Hour))

	require.NoError(t, f.worker.ProcessDueReminders(time.Now()))

	assert.Empty(t, f.mailer.sent)
	assert.Equal(t, models.ReminderStatusPending, f.reload(t, future.ID).Status)
	assert.Equal(t, models.ReminderStatusApproved, f.reload(t, held.ID).Status)
	assert.Equal(t, models.ReminderStatusCancelled, f.reload(t, cancelled.ID).Status)
}

func TestProcessDueRemindersTransportFailureRetries(t *testing.T) {
	f := setupFixture(t)
	invoice := f.createInvoice(t, models.InvoiceStatusSent)
	reminder := f.createReminder(t, invoice.ID, models.ReminderStatusPending, time.Now().Add(-time.Hour))

	f.mailer.fail = true
	require.NoError(t, f.worker.ProcessDueReminders(time.Now()))

	stored := f.reload(t, reminder.ID)
	assert.Equal(t, models.ReminderStatusPending, stored.Status)
	assert.Nil(t, stored.SentAt)

	// The reminder stays in the due set and goes out on the next run
	f.mailer.fail = false
	require.NoError(t, f.worker.ProcessDueReminders(time.Now()))

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, models.ReminderStatusSent, f.reload(t, reminder.ID).Status)
}

func TestProcessDueRemindersMixedBatch(t *testing.T) {
	f := setupFixture(t)
	paidInvoice := f.createInvoice(t, models.InvoiceStatusPaid)
	openInvoice := f.createInvoice(t, models.InvoiceStatusOverdue)

	paidReminder := f.createReminder(t, paidInvoice.ID, models.ReminderStatusPending, time.Now().Add(-time.Hour))
	openReminder := f.createReminder(t, openInvoice.ID, models.ReminderStatusPending, time.Now().Add(-time.Hour))

	require.NoError(t, f.worker.ProcessDueReminders(time.Now()))

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, models.ReminderStatusCancelled, f.reload(t, paidReminder.ID).Status)
	assert.Equal(t, models.ReminderStatusSent, f.reload(t, openReminder.ID).Status)
}

func TestProcessDueRemindersDanglingInvoiceStaysPending(t *testing.T) {
	f := setupFixture(t)
	reminder := f.createReminder(t, 9999, models.ReminderStatusPending, time.Now().Add(-time.Hour))

	require.NoError(t, f.worker.ProcessDueReminders(time.Now()))

	assert.Empty(t, f.mailer.sent)
	stored := f.reload(t, reminder.ID)
	assert.Equal(t, models.ReminderStatusPending, stored.Status)
	assert.Nil(t, stored.SentAt)
}

func TestProcessDueRemindersMissingOwnerFallsBackToDefaults(t *testing.T) {
	f := setupFixture(t)
	invoice := f.createInvoice(t, models.InvoiceStatusSent)
	f.createReminder(t, invoice.ID, models.ReminderStatusPending, time.Now().Add(-time.Hour))

	// Owner record gone; transport defaults take over
	require.NoError(t, f.db.Unscoped().Delete(&f.user).Error)

	require.NoError(t, f.worker.ProcessDueReminders(time.Now()))

	require.Len(t, f.mailer.sent, 1)
	assert.Empty(t, f.mailer.sent[0].FromName)
	assert.Empty(t, f.mailer.sent[0].ReplyTo)
}

func TestProcessDueRemindersFetchFailureIsFatal(t *testing.T) {
	f := setupFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&models.Reminder{}))

	err := f.worker.ProcessDueReminders(time.Now())
	assert.Error(t, err)
}

func TestStartReturnsPromptlyWhenContextCancelled(t *testing.T) {
	f := setupFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		f.worker.Start(ctx, time.Minute)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not shut down during its startup delay")
	}
}
