package controller

import (
	"strings"
	"time"

	"duechaser/models"
	"duechaser/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type InvoiceController struct {
	DB         *gorm.DB
	Reconciler *utils.InvoiceReconciler
	Logger     *logrus.Entry
}

func NewInvoiceController(db *gorm.DB, reconciler *utils.InvoiceReconciler, logger *logrus.Entry) *InvoiceController {
	return &InvoiceController{
		DB:         db,
		Reconciler: reconciler,
		Logger:     logger,
	}
}

type invoiceInput struct {
	ClientID  uint    `json:"client_id" validate:"required"`
	Number    string  `json:"number" validate:"omitempty,max=50"`
	IssueDate string  `json:"issue_date" validate:"required"`
	DueDate   string  `json:"due_date" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Currency  string  `json:"currency" validate:"omitempty,len=3"`
	Notes     string  `json:"notes"`
}

// CreateInvoice creates a draft invoice for one of the user's clients
func (ic *InvoiceController) CreateInvoice(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input invoiceInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var client models.Client
	if err := ic.DB.Where("id = ? AND user_id = ?", input.ClientID, user.ID).First(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
	}

	issueDate, err := time.Parse("2006-01-02", input.IssueDate)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid issue_date, expected YYYY-MM-DD", err)
	}
	dueDate, err := time.Parse("2006-01-02", input.DueDate)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid due_date, expected YYYY-MM-DD", err)
	}
	if dueDate.Before(issueDate) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "due_date cannot precede issue_date", nil)
	}

	number := input.Number
	if number == "" {
		number = "INV-" + strings.ToUpper(uuid.New().String()[:8])
	}
	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = "USD"
	}

	invoice := models.Invoice{
		UserID:    user.ID,
		ClientID:  client.ID,
		Number:    number,
		IssueDate: issueDate,
		DueDate:   dueDate,
		Amount:    input.Amount,
		Currency:  currency,
		Status:    models.InvoiceStatusDraft,
		Notes:     input.Notes,
	}

	if err := ic.DB.Create(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create invoice", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(invoice))
}

// GetInvoices lists the user's invoices with reconciled statuses
func (ic *InvoiceController) GetInvoices(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := ic.DB.Where("user_id = ?", user.ID).Preload("Client")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", utils.ParseUint(clientID))
	}

	var invoices []models.Invoice
	if err := query.Order("due_date").Find(&invoices).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch invoices", err)
	}

	ic.Reconciler.Reconcile(invoices, time.Now())

	return c.JSON(utils.SuccessResponse(invoices))
}

// GetInvoice fetches a single invoice with reconciled status
func (ic *InvoiceController) GetInvoice(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invoice models.Invoice
	err := ic.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		Preload("Client").Preload("Reminders").First(&invoice).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", nil)
	}

	ic.Reconciler.ReconcileOne(&invoice, time.Now())

	return c.JSON(utils.SuccessResponse(invoice))
}

// UpdateInvoice edits a draft invoice. Invoices past draft keep their
// issued numbers and amounts; only notes stay editable.
func (ic *InvoiceController) UpdateInvoice(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invoice models.Invoice
	if err := ic.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", nil)
	}

	var input invoiceInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if invoice.Status != models.InvoiceStatusDraft {
		invoice.Notes = input.Notes
		if err := ic.DB.Save(&invoice).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update invoice", err)
		}
		return c.JSON(utils.SuccessResponse(invoice))
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	issueDate, err := time.Parse("2006-01-02", input.IssueDate)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid issue_date, expected YYYY-MM-DD", err)
	}
	dueDate, err := time.Parse("2006-01-02", input.DueDate)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid due_date, expected YYYY-MM-DD", err)
	}
	if dueDate.Before(issueDate) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "due_date cannot precede issue_date", nil)
	}

	if input.Number != "" {
		invoice.Number = input.Number
	}
	invoice.IssueDate = issueDate
	invoice.DueDate = dueDate
	invoice.Amount = input.Amount
	if input.Currency != "" {
		invoice.Currency = strings.ToUpper(input.Currency)
	}
	invoice.Notes = input.Notes

	if err := ic.DB.Save(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update invoice", err)
	}

	return c.JSON(utils.SuccessResponse(invoice))
}

// SendInvoice flips a draft invoice to sent
func (ic *InvoiceController) SendInvoice(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invoice models.Invoice
	if err := ic.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", nil)
	}

	if invoice.Status != models.InvoiceStatusDraft {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only draft invoices can be sent", nil)
	}

	invoice.Status = models.InvoiceStatusSent
	if err := ic.DB.Save(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send invoice", err)
	}

	return c.JSON(utils.SuccessResponse(invoice))
}

// MarkInvoicePaid settles an invoice and cancels its pending reminders
func (ic *InvoiceController) MarkInvoicePaid(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invoice models.Invoice
	if err := ic.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", nil)
	}

	if invoice.Status == models.InvoiceStatusPaid {
		return c.JSON(utils.SuccessResponse(invoice))
	}

	invoice.Status = models.InvoiceStatusPaid
	invoice.PaidAt = utils.Pointer(time.Now())
	if err := ic.DB.Save(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to mark invoice paid", err)
	}

	if err := cancelPendingReminders(ic.DB, invoice.ID); err != nil {
		// The invoice is settled either way; the worker also refuses to
		// send for paid invoices, so only log this.
		ic.Logger.WithError(err).WithField("invoice_id", invoice.ID).
			Warn("failed to cancel pending reminders for paid invoice")
	}

	return c.JSON(utils.SuccessResponse(invoice))
}

// DeleteInvoice removes an invoice and its reminders
func (ic *InvoiceController) DeleteInvoice(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invoice models.Invoice
	if err := ic.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", nil)
	}

	// Reminders are exclusively owned by their invoice
	if err := ic.DB.Where("invoice_id = ?", invoice.ID).Delete(&models.Reminder{}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete invoice reminders", err)
	}
	if err := ic.DB.Delete(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete invoice", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": invoice.ID}))
}

// cancelPendingReminders cancels every still-pending reminder of an
// invoice. The status guard leaves terminal reminders untouched.
func cancelPendingReminders(db *gorm.DB, invoiceID uint) error {
	return db.Model(&models.Reminder{}).
		Where("invoice_id = ? AND status IN ?", invoiceID,
			[]string{models.ReminderStatusPending, models.ReminderStatusApproved}).
		Update("status", models.ReminderStatusCancelled).Error
}
