package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"taskhive/clients"
	"taskhive/config"
	controller "taskhive/controllers"
	"taskhive/messaging"
	"taskhive/middleware"
	"taskhive/routes"
	"taskhive/services"
	"taskhive/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Fatalf("Failed to initialize sentry: %v", err)
		}
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Initialize broker connection and declare the notification topology
	if err := config.ConnectRabbit(); err != nil {
		logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	if err := messaging.DeclareTopology(config.Rabbit); err != nil {
		logger.Fatalf("Failed to declare broker topology: %v", err)
	}

	publisher := messaging.NewRabbitPublisher(config.Rabbit)
	directory := clients.NewHTTPDirectory(config.AppConfig.UserServiceURL)

	orgService := services.NewOrganizationService(config.DB, directory, publisher, logger)
	memberService := services.NewMemberService(config.DB, directory, publisher, logger)
	projectService := services.NewProjectService(config.DB, memberService, directory, publisher, logger)
	projectMemberService := services.NewProjectMemberService(config.DB, directory, publisher, logger)

	// Start the notification consumer in the background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerLogger := log.New(os.Stdout, "NOTIFY: ", log.Ldate|log.Ltime|log.Lshortfile)
	consumer := messaging.NewConsumer(config.Rabbit, messaging.DefaultRetryPolicy(), 3, workerLogger)
	mailer := worker.NewSMTPMailer(config.AppConfig.SMTP)
	notifier := worker.NewNotificationWorker(consumer, mailer, workerLogger)
	if err := notifier.Start(ctx); err != nil {
		logger.Fatalf("Failed to start notification worker: %v", err)
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	routes.SetupRoutes(app, routes.Controllers{
		Organizations:  controller.NewOrganizationController(orgService),
		Members:        controller.NewMemberController(memberService),
		Invitations:    controller.NewInvitationController(memberService),
		Projects:       controller.NewProjectController(projectService),
		ProjectMembers: controller.NewProjectMemberController(projectMemberService),
	})

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
