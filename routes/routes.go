package routes

import (
	"duechaser/config"
	controller "duechaser/controllers"
	"duechaser/middleware"
	"duechaser/utils"
	"duechaser/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRoutes wires every controller into the fiber app.
func SetupRoutes(app *fiber.App, db *gorm.DB, reminderWorker *worker.ReminderWorker, log *logrus.Logger) {
	reconciler := utils.NewInvoiceReconciler(db, log.WithField("component", "reconciler"))

	clientController := controller.NewClientController(db, log.WithField("component", "clients"))
	invoiceController := controller.NewInvoiceController(db, reconciler, log.WithField("component", "invoices"))
	templateController := controller.NewTemplateController(db, log.WithField("component", "templates"))
	reminderController := controller.NewReminderController(db, log.WithField("component", "reminders"))
	paymentController := controller.NewPaymentController(db, log.WithField("component", "payments"))
	dashboardController := controller.NewDashboardController(db, log.WithField("component", "dashboard"))
	cronController := controller.NewCronController(reminderWorker, log.WithField("component", "cron"))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(db), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Client routes
	clients := api.Group("/clients")
	clients.Post("/", clientController.CreateClient)
	clients.Get("/", clientController.GetClients)
	clients.Get("/:id", clientController.GetClient)
	clients.Put("/:id", clientController.UpdateClient)
	clients.Delete("/:id", clientController.DeleteClient)

	// Invoice routes
	invoices := api.Group("/invoices")
	invoices.Post("/", invoiceController.CreateInvoice)
	invoices.Get("/", invoiceController.GetInvoices)
	invoices.Get("/:id", invoiceController.GetInvoice)
	invoices.Put("/:id", invoiceController.UpdateInvoice)
	invoices.Delete("/:id", invoiceController.DeleteInvoice)
	invoices.Post("/:id/send", invoiceController.SendInvoice)
	invoices.Post("/:id/mark-paid", invoiceController.MarkInvoicePaid)
	invoices.Post("/:id/payment-intent", paymentController.CreatePaymentIntent)

	// Template routes
	templates := api.Group("/templates")
	templates.Post("/", templateController.CreateTemplate)
	templates.Get("/", templateController.GetTemplates)
	templates.Get("/:id", templateController.GetTemplate)
	templates.Put("/:id", templateController.UpdateTemplate)
	templates.Delete("/:id", templateController.DeleteTemplate)

	// Reminder routes
	reminders := api.Group("/reminders")
	reminders.Post("/", reminderController.ScheduleReminder)
	reminders.Get("/", reminderController.GetReminders)
	reminders.Post("/:id/approve", reminderController.ApproveReminder)
	reminders.Post("/:id/cancel", reminderController.CancelReminder)

	// Dashboard routes
	api.Get("/dashboard/stats", dashboardController.GetDashboardStats)

	// Stripe webhook (signature-verified, no API key)
	app.Post("/webhooks/stripe", paymentController.HandlePaymentWebhook)

	// On-demand reminder trigger for external schedulers
	app.Post("/cron/reminders",
		middleware.CronProtected(config.AppConfig.CronSecret),
		cronController.RunReminders)
}
