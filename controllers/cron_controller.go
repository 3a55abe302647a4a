package controller

import (
	"time"

	"duechaser/utils"
	"duechaser/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// CronController exposes the on-demand trigger for the reminder
// pipeline. The same pipeline also runs on the worker's internal
// ticker; this endpoint exists for external schedulers and manual runs.
type CronController struct {
	Worker *worker.ReminderWorker
	Logger *logrus.Entry
}

func NewCronController(w *worker.ReminderWorker, logger *logrus.Entry) *CronController {
	return &CronController{
		Worker: w,
		Logger: logger,
	}
}

// RunReminders executes one due-reminder processing pass. Per-reminder
// outcomes are not part of the response; only a failure to fetch the
// due set fails the invocation.
func (cr *CronController) RunReminders(c *fiber.Ctx) error {
	if err := cr.Worker.Run(c.Context(), time.Now()); err != nil {
		cr.Logger.WithError(err).Error("triggered reminder run failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Reminder processing failed", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"triggered": true}))
}
