package controller

import (
	"time"

	"duechaser/models"
	"duechaser/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ReminderController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewReminderController(db *gorm.DB, logger *logrus.Entry) *ReminderController {
	return &ReminderController{
		DB:     db,
		Logger: logger,
	}
}

type reminderInput struct {
	InvoiceID        uint   `json:"invoice_id" validate:"required"`
	TemplateID       uint   `json:"template_id" validate:"required"`
	ScheduledAt      string `json:"scheduled_at" validate:"required"`
	RequiresApproval bool   `json:"requires_approval"`
}

// ScheduleReminder schedules a nudge email for one of the user's
// invoices. With requires_approval it starts in the approved-gate state
// and is skipped by the worker until approved.
func (rc *ReminderController) ScheduleReminder(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input reminderInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var invoice models.Invoice
	if err := rc.DB.Where("id = ? AND user_id = ?", input.InvoiceID, user.ID).First(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", nil)
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invoice is already paid", nil)
	}

	var tmpl models.MessageTemplate
	err := rc.DB.Where("id = ? AND (user_id = ? OR user_id IS NULL)", input.TemplateID, user.ID).
		First(&tmpl).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}

	scheduledAt, err := time.Parse(time.RFC3339, input.ScheduledAt)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid scheduled_at, expected RFC3339", err)
	}

	status := models.ReminderStatusPending
	if input.RequiresApproval {
		status = models.ReminderStatusApproved
	}

	reminder := models.Reminder{
		InvoiceID:   invoice.ID,
		TemplateID:  tmpl.ID,
		ScheduledAt: scheduledAt,
		Status:      status,
	}

	if err := rc.DB.Create(&reminder).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to schedule reminder", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(reminder))
}

// GetReminders lists reminders across the user's invoices
func (rc *ReminderController) GetReminders(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := rc.DB.
		Joins("JOIN invoices ON invoices.id = reminders.invoice_id").
		Where("invoices.user_id = ?", user.ID).
		Preload("Template")
	if status := c.Query("status"); status != "" {
		query = query.Where("reminders.status = ?", status)
	}
	if invoiceID := c.Query("invoice_id"); invoiceID != "" {
		query = query.Where("reminders.invoice_id = ?", utils.ParseUint(invoiceID))
	}

	var reminders []models.Reminder
	if err := query.Order("reminders.scheduled_at").Find(&reminders).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch reminders", err)
	}

	return c.JSON(utils.SuccessResponse(reminders))
}

// ApproveReminder releases a held reminder into the pending queue
func (rc *ReminderController) ApproveReminder(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	reminder, err := rc.ownedReminder(c.Params("id"), user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Reminder not found", nil)
	}

	if reminder.Status != models.ReminderStatusApproved {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Reminder is not awaiting approval", nil)
	}

	reminder.Status = models.ReminderStatusPending
	if err := rc.DB.Save(reminder).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to approve reminder", err)
	}

	return c.JSON(utils.SuccessResponse(reminder))
}

// CancelReminder cancels a reminder that has not reached a terminal
// state
func (rc *ReminderController) CancelReminder(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	reminder, err := rc.ownedReminder(c.Params("id"), user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Reminder not found", nil)
	}

	if reminder.IsTerminal() {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Reminder is already "+reminder.Status, nil)
	}

	reminder.Status = models.ReminderStatusCancelled
	if err := rc.DB.Save(reminder).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel reminder", err)
	}

	return c.JSON(utils.SuccessResponse(reminder))
}

// ownedReminder loads a reminder and verifies it belongs to one of the
// user's invoices.
func (rc *ReminderController) ownedReminder(id string, userID uint) (*models.Reminder, error) {
	var reminder models.Reminder
	err := rc.DB.
		Joins("JOIN invoices ON invoices.id = reminders.invoice_id").
		Where("reminders.id = ? AND invoices.user_id = ?", id, userID).
		First(&reminder).Error
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}
