package main

import (
	"context"
	"time"

	"duechaser/config"
	controller "duechaser/controllers"
	"duechaser/middleware"
	"duechaser/routes"
	"duechaser/utils"
	"duechaser/worker"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Error reporting
	if config.AppConfig.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		})
		if err != nil {
			log.Fatalf("Failed to initialize sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Mail transport misconfiguration is fatal here, never per send
	mailer, err := utils.NewMailer(config.AppConfig.SMTP)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}

	controller.InitStripe()

	// Optional Redis claim keeping concurrent reminder runs apart
	var runLock *worker.RunLock
	if config.AppConfig.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
		runLock = worker.NewRunLock(rdb, log.WithField("component", "runlock"))
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	// Initialize and start the reminder worker
	reminderWorker := worker.NewReminderWorker(config.DB, mailer, runLock,
		log.WithField("component", "reminder-worker"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reminderWorker.Start(ctx, time.Duration(config.AppConfig.ReminderInterval)*time.Minute)

	// Reply watcher cancels reminders once a client writes back
	if config.AppConfig.IMAP.Enabled {
		replyWorker := worker.NewReplyWorker(config.DB, config.AppConfig.IMAP,
			log.WithField("component", "reply-worker"))
		go replyWorker.Start(ctx)
	}

	// Setup routes
	routes.SetupRoutes(app, config.DB, reminderWorker, log)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	log.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
