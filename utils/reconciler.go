package utils

import (
	"time"

	"duechaser/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InvoiceReconciler lazily flips sent invoices past their due date to
// overdue whenever invoices are read. The caller always gets the
// corrected status; the matching write is dispatched in the background
// and its outcome only logged. A failed write just means the next read
// re-attempts the same idempotent update.
type InvoiceReconciler struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewInvoiceReconciler(db *gorm.DB, logger *logrus.Entry) *InvoiceReconciler {
	return &InvoiceReconciler{
		DB:     db,
		Logger: logger,
	}
}

// Reconcile corrects a freshly fetched invoice collection in place.
func (ir *InvoiceReconciler) Reconcile(invoices []models.Invoice, now time.Time) {
	for i := range invoices {
		ir.ReconcileOne(&invoices[i], now)
	}
}

// ReconcileOne corrects a single fetched invoice.
func (ir *InvoiceReconciler) ReconcileOne(invoice *models.Invoice, now time.Time) {
	if invoice.Status != models.InvoiceStatusSent || !invoice.IsPastDue(now) {
		return
	}

	invoice.Status = models.InvoiceStatusOverdue
	go ir.persistOverdue(invoice.ID)
}

// persistOverdue is best-effort: the guarded status condition keeps the
// write idempotent across repeated reads.
func (ir *InvoiceReconciler) persistOverdue(invoiceID uint) {
	err := ir.DB.Model(&models.Invoice{}).
		Where("id = ? AND status = ?", invoiceID, models.InvoiceStatusSent).
		Update("status", models.InvoiceStatusOverdue).Error
	if err != nil {
		ir.Logger.WithError(err).WithField("invoice_id", invoiceID).
			Warn("failed to persist overdue status")
	}
}
