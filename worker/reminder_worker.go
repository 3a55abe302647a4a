package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duechaser/models"
	"duechaser/utils"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReminderWorker runs the due-reminder pipeline: fetch pending reminders
// whose scheduled time has passed, skip or cancel the ones whose invoice
// is settled, render the template, send the mail and record the send.
// Failures are isolated per reminder; a reminder that could not be
// processed stays pending and is retried on the next run.
type ReminderWorker struct {
	DB     *gorm.DB
	Mailer utils.MailSender
	Lock   *RunLock
	Logger *logrus.Entry
}

func NewReminderWorker(db *gorm.DB, mailer utils.MailSender, lock *RunLock, logger *logrus.Entry) *ReminderWorker {
	return &ReminderWorker{
		DB:     db,
		Mailer: mailer,
		Lock:   lock,
		Logger: logger,
	}
}

// Start runs the pipeline on a fixed cadence until the context is
// cancelled.
func (rw *ReminderWorker) Start(ctx context.Context, interval time.Duration) {
	// Initial delay to let the server start up
	select {
	case <-ctx.Done():
		return
	case <-time.After(10 * time.Second):
	}

	rw.Logger.Info("reminder worker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Info("reminder worker shutting down")
			return
		case <-ticker.C:
			if err := rw.Run(ctx, time.Now()); err != nil {
				rw.report(err, logrus.Fields{})
			}
		}
	}
}

// Run executes one processing pass. When a run lock is configured it
// claims it first; a pass already in flight elsewhere makes this one a
// quiet no-op. Without a lock the external trigger must keep
// invocations serial.
func (rw *ReminderWorker) Run(ctx context.Context, now time.Time) error {
	if rw.Lock != nil {
		acquired, err := rw.Lock.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquiring run lock: %w", err)
		}
		if !acquired {
			rw.Logger.Debug("another reminder run is in flight, skipping")
			return nil
		}
		defer rw.Lock.Release(ctx)
	}

	return rw.ProcessDueReminders(now)
}

// ProcessDueReminders fetches every pending reminder due at now and
// processes each independently. Only a failure of the initial fetch is
// fatal for the invocation; per-reminder outcomes are observable through
// the persisted rows and the logs.
func (rw *ReminderWorker) ProcessDueReminders(now time.Time) error {
	var due []models.Reminder
	err := rw.DB.
		Where("status = ? AND scheduled_at <= ?", models.ReminderStatusPending, now).
		Preload("Invoice").
		Preload("Invoice.Client").
		Preload("Template").
		Find(&due).Error
	if err != nil {
		return fmt.Errorf("fetching due reminders: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	rw.Logger.WithField("count", len(due)).Info("processing due reminders")

	for i := range due {
		rw.processReminder(&due[i], now)
	}
	return nil
}

// processReminder handles a single due reminder. Errors are reported
// here and never escape, so one bad reminder cannot abort the batch.
func (rw *ReminderWorker) processReminder(rem *models.Reminder, now time.Time) {
	fields := logrus.Fields{"reminder_id": rem.ID, "invoice_id": rem.InvoiceID}

	// A dangling join (invoice, client or template deleted since
	// scheduling) is unprocessable: report and leave the reminder
	// pending rather than dropping it silently.
	switch {
	case rem.Invoice.ID == 0:
		rw.report(fmt.Errorf("reminder %d references a missing invoice", rem.ID), fields)
		return
	case rem.Invoice.Client.ID == 0:
		rw.report(fmt.Errorf("reminder %d references invoice %d with a missing client", rem.ID, rem.InvoiceID), fields)
		return
	case rem.Template.ID == 0:
		rw.report(fmt.Errorf("reminder %d references a missing template", rem.ID), fields)
		return
	}

	// No nudge for settled invoices. Paid is absorbing.
	if rem.Invoice.Status == models.InvoiceStatusPaid {
		if err := rw.cancelReminder(rem.ID); err != nil {
			rw.report(fmt.Errorf("cancelling reminder %d for paid invoice: %w", rem.ID, err), fields)
		}
		return
	}

	rendered, err := utils.RenderTemplate(rem.Template, rem.Invoice, now)
	if err != nil {
		rw.report(fmt.Errorf("rendering reminder %d: %w", rem.ID, err), fields)
		return
	}

	// Personalize from-name and reply-to from the invoice owner.
	// A missing user record just falls back to transport defaults.
	var owner models.User
	if err := rw.DB.First(&owner, rem.Invoice.UserID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		rw.Logger.WithError(err).WithFields(fields).Warn("could not load invoice owner, using transport defaults")
	}

	messageID, err := rw.Mailer.Send(utils.Email{
		To:       rem.Invoice.Client.Email,
		Subject:  rendered.Subject,
		Body:     rendered.Body,
		FromName: owner.FromName(),
		ReplyTo:  owner.Email,
	})
	if err != nil {
		// Leave the reminder pending; the next run retries it.
		rw.report(fmt.Errorf("sending reminder %d: %w", rem.ID, err), fields)
		return
	}

	err = rw.DB.Model(&models.Reminder{}).
		Where("id = ? AND status = ?", rem.ID, models.ReminderStatusPending).
		Updates(map[string]interface{}{
			"status":     models.ReminderStatusSent,
			"sent_at":    now,
			"message_id": messageID,
		}).Error
	if err != nil {
		// The email already went out, so this must be loud: a retry
		// on the next run would double-send.
		rw.report(fmt.Errorf("recording sent reminder %d after delivery: %w", rem.ID, err), fields)
		return
	}

	rw.Logger.WithFields(fields).Info("reminder sent")
}

// cancelReminder moves a still-pending reminder to cancelled. The
// status guard keeps terminal reminders untouched.
func (rw *ReminderWorker) cancelReminder(reminderID uint) error {
	return rw.DB.Model(&models.Reminder{}).
		Where("id = ? AND status = ?", reminderID, models.ReminderStatusPending).
		Update("status", models.ReminderStatusCancelled).Error
}

func (rw *ReminderWorker) report(err error, fields logrus.Fields) {
	rw.Logger.WithFields(fields).WithError(err).Error("reminder processing failure")
	sentry.CaptureException(err)
}
