package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/theftwatch/theftwatch/internal/audio"
	"github.com/theftwatch/theftwatch/internal/config"
	"github.com/theftwatch/theftwatch/internal/events"
	"github.com/theftwatch/theftwatch/internal/handlers"
	"github.com/theftwatch/theftwatch/internal/intake"
	"github.com/theftwatch/theftwatch/internal/journal"
	"github.com/theftwatch/theftwatch/internal/middleware"
	"github.com/theftwatch/theftwatch/internal/notify"
	"github.com/theftwatch/theftwatch/internal/store"
	"github.com/theftwatch/theftwatch/internal/transport"
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

	log.Printf("Starting TheftWatch console...")

	// Initialize JWT authentication middleware
	if cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is not set")
	}

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

	// Open the audit journal
	j, err := journal.Open(cfg.JournalDSN, logger.Warn, log.Default())
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer j.Close()
	log.Printf("Journal ready at %s", cfg.JournalDSN)

	// Local alert sound
	var player store.Player = audio.NopPlayer{}
	if cfg.AlertSoundPath != "" {
		p, err := audio.NewExecPlayer(cfg.AlertSoundPath)
		if err != nil {
			log.Printf("Warning: Audio playback disabled: %v", err)
		} else {
			player = p
		}
	}

	// Slack mirror for critical alerts
	notifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, log.Default())
	if notifier.Enabled() {
		log.Printf("Slack alert mirror ENABLED (channel %s)", cfg.SlackChannel)
	} else {
		log.Printf("Slack alert mirror DISABLED (configure SLACK_BOT_TOKEN and SLACK_CHANNEL)")
	}

	// Transport client to the detection backend
	client := transport.NewClient(cfg.BackendURL, transport.DefaultOptions(), log.Default())

	// State store and detection intake
	st := store.New(client, player, notifier, j, log.Default())
	in := intake.New(client, st, st.CooldownDuration, log.Default())

	// Backend push subscriptions. The intake owns the live alert event;
	// everything else reconciles the store directly.
	client.On(events.EventAlertLogs, func(data json.RawMessage) {
		entries, err := events.DecodeAlertLogs(data)
		if err != nil {
			log.Printf("Dropping malformed alert_logs batch: %v", err)
			return
		}
		st.BulkReplayAlerts(entries)
	})
	client.On(events.EventNotificationStatus, func(data json.RawMessage) {
		snapshot, err := events.DecodeNotificationStatus(data)
		if err != nil {
			log.Printf("Dropping malformed notification_status snapshot: %v", err)
			return
		}
		st.ApplySettingsSnapshot(snapshot)
	})
	client.On(events.EventFrame, func(data json.RawMessage) {
		var frame events.FramePayload
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		st.SetLatestFrame(frame.Image)
	})
	client.On(events.EventSnapshot, func(data json.RawMessage) {
		var snap events.SnapshotPayload
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Printf("Dropping malformed snapshot notice: %v", err)
			return
		}
		j.Record("snapshot_saved", snap.FilePath)
	})
	client.On(events.EventSourceUpdated, func(data json.RawMessage) {
		st.SetDetectionActive(true)
	})
	client.On(events.EventSourceError, func(data json.RawMessage) {
		st.SetDetectionActive(false)
	})

	in.Start()
	in.SetEnabled(true)
	client.Connect()
	log.Printf("Connecting to detection backend at %s", cfg.BackendURL)

	// HTTP handlers
	httpHandler := handlers.NewHTTPHandler()
	consoleHandler := handlers.NewConsoleHandler(st, in, client, j)
	authHandler := handlers.NewAuthHandler(jwtAuthMiddleware)

	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)
	consoleHandler.SetupRoutes(mux)
	authHandler.SetupRoutes(mux)

	// CORS outermost, then request IDs, then JWT authentication.
	corsMiddleware := middleware.NewCORSMiddleware() // Allow all origins
	handler := corsMiddleware.Wrap(middleware.RequestIDMiddleware(jwtAuthMiddleware.Wrap(mux)))

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

	log.Printf("Console is running! Press Ctrl+C to exit.")
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	in.Stop()
	client.Disconnect()
	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	log.Println("Shutdown complete")
}
