package controller

import (
	"time"

	"duechaser/models"
	"duechaser/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewDashboardController(db *gorm.DB, logger *logrus.Entry) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
	}
}

// GetDashboardStats aggregates invoice and reminder counts for the
// user's overview screen.
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}

	var invoiceCounts []statusCount
	err := dc.DB.Model(&models.Invoice{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", user.ID).
		Group("status").
		Scan(&invoiceCounts).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate invoices", err)
	}

	var outstanding float64
	err = dc.DB.Model(&models.Invoice{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status IN ?", user.ID, []string{
			models.InvoiceStatusSent,
			models.InvoiceStatusPartiallyPaid,
			models.InvoiceStatusOverdue,
		}).
		Scan(&outstanding).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to sum outstanding amount", err)
	}

	var remindersSent30d int64
	err = dc.DB.Model(&models.Reminder{}).
		Joins("JOIN invoices ON invoices.id = reminders.invoice_id").
		Where("invoices.user_id = ? AND reminders.status = ? AND reminders.sent_at >= ?",
			user.ID, models.ReminderStatusSent, time.Now().AddDate(0, 0, -30)).
		Count(&remindersSent30d).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count sent reminders", err)
	}

	var pendingReminders int64
	err = dc.DB.Model(&models.Reminder{}).
		Joins("JOIN invoices ON invoices.id = reminders.invoice_id").
		Where("invoices.user_id = ? AND reminders.status = ?", user.ID, models.ReminderStatusPending).
		Count(&pendingReminders).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count pending reminders", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"invoices_by_status": invoiceCounts,
		"outstanding_amount": outstanding,
		"reminders_sent_30d": remindersSent30d,
		"reminders_pending":  pendingReminders,
	}))
}
