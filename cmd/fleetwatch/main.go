package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/fleetwatch/fleetwatch/internal/changes"
	"github.com/fleetwatch/fleetwatch/internal/config"
	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/handlers"
	"github.com/fleetwatch/fleetwatch/internal/jobs"
	"github.com/fleetwatch/fleetwatch/internal/mail"
	"github.com/fleetwatch/fleetwatch/internal/middleware"
	"github.com/fleetwatch/fleetwatch/internal/notify"
	"github.com/fleetwatch/fleetwatch/internal/push"
	"github.com/fleetwatch/fleetwatch/internal/secrets"
	"github.com/fleetwatch/fleetwatch/internal/webhooks"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Fleetwatch...")

	// Initialize JWT authentication middleware
	if cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is not set")
	}

	// Hash the admin password
	passwordHash, err := middleware.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	jwtAuthMiddleware := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           true,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/auth/login",
		},
	})
	log.Printf("JWT authentication enabled for user: %s", cfg.AdminUsername)

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize default database records
	if err := database.InitializeDefaults(cfg.AdminUsername, passwordHash, cfg.AdminEmail); err != nil {
		log.Fatalf("Failed to initialize database defaults: %v", err)
	}

	db := database.GetDB()

	// Outbound mail; without SMTP_HOST the email handler and the change
	// summary digests are disabled
	var mailer notify.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
		log.Printf("SMTP sender initialized for %s:%d", cfg.SMTPHost, cfg.SMTPPort)
	} else {
		log.Printf("SMTP_HOST not set, e-mail delivery disabled")
	}

	// Push notifiers: websocket hub always, Slack DMs when configured
	hub := push.NewHub()
	notifiers := push.Multi{hub}
	if cfg.SlackBotToken != "" {
		slackNotifier := push.NewSlackNotifier(cfg.SlackBotToken, func(username string) (string, error) {
			u, err := database.GetUserByUsername(db, username)
			if err != nil {
				return "", err
			}
			return u.Email, nil
		})
		notifiers = append(notifiers, slackNotifier)
		log.Printf("Slack push notifications enabled")
	}

	// The dispatch engine and its handlers
	detector := changes.NewDetector(database.NewStatRecorder(db))
	engine := notify.NewEngine(db, detector, universalActions(cfg.UniversalActions), cfg.DebounceSeconds)

	emailHandler := notify.NewEmailHandler(db, mailer)
	webhookHandler := notify.NewWebHookHandler(db, webhooks.NewFirer())
	runEventHandler := notify.NewRunEventHandler(db)

	engine.RegisterHandler(notify.TypeEmail, emailHandler)
	engine.RegisterHandler(notify.TypeWebHook, webhookHandler)
	engine.RegisterHandler(notify.TypeRunEvent, runEventHandler)
	engine.RegisterHandler(notify.TypeSnapshot, notify.NewSnapshotHandler(db))
	engine.RegisterHandler(notify.TypePlugin, notify.NewPluginHandler(db, secrets.NewProvider(db)))
	engine.RegisterHandler(notify.TypeChannel,
		notify.NewChannelHandler(db, emailHandler, webhookHandler, runEventHandler, notifiers, notify.NewAntiflood()))
	log.Printf("Dispatch engine initialized with %d universal action(s), debounce %ds",
		len(cfg.UniversalActions), cfg.DebounceSeconds)

	// Debounce flush pipelines
	flusher := jobs.NewFlusher(db, engine, mailer)
	engine.SetTicketFlush(flusher.FlushTicket)
	engine.SetAlertFlush(flusher.FlushAlert)

	// Scheduler drives the debounce buffers
	stop := make(chan struct{})
	scheduler := jobs.NewScheduler(engine, time.Second)
	go scheduler.Start(stop)

	// Initialize handlers
	httpHandler := handlers.NewHTTPHandler(hub)
	authHandler := handlers.NewAuthHandler(jwtAuthMiddleware)
	ticketHandler := handlers.NewTicketHandler(db, engine)
	alertHandler := handlers.NewAlertHandler(db, engine)

	// Set up HTTP server routes
	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)
	authHandler.SetupRoutes(mux)
	ticketHandler.SetupRoutes(mux)
	alertHandler.SetupRoutes(mux)

	// Wrap all routes: request id, then CORS, then JWT authentication
	corsMiddleware := middleware.NewCORSMiddleware() // Allow all origins
	handler := middleware.RequestIDMiddleware(corsMiddleware.Wrap(jwtAuthMiddleware.Wrap(mux)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Handle shutdown in a goroutine
	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal, cleaning up...")

		close(stop)

		log.Println("Shutting down HTTP server...")
		if err := httpServer.Close(); err != nil {
			log.Printf("Error shutting down HTTP server: %v", err)
		}

		if err := database.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}

		log.Println("Shutdown complete")
		os.Exit(0)
	}()

	log.Println("Fleetwatch is running! Press Ctrl+C to exit.")
	log.Printf("Alert ingest endpoint: http://localhost:%d/api/alerts/ingest", cfg.HTTPPort)
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)

	// Keep the main goroutine alive
	for {
		time.Sleep(time.Hour)
	}
}

// universalActions converts configured actions to engine actions
func universalActions(configs []config.ActionConfig) []*notify.Action {
	var actions []*notify.Action
	for _, c := range configs {
		actions = append(actions, &notify.Action{
			Type:      c.Type,
			Enabled:   c.Enabled == nil || *c.Enabled,
			Condition: c.Condition,
			Email:     c.Email,
			Users:     c.Users,
			WebHook:   c.WebHook,
			EventID:   c.EventID,
			ChannelID: c.ChannelID,
			PluginID:  c.PluginID,
			Params:    c.Params,
		})
	}
	return actions
}
