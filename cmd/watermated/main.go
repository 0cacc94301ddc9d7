package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watermate-backend/config"
	"watermate-backend/internal/api"
	"watermate-backend/internal/auth"
	"watermate-backend/internal/db"
	"watermate-backend/internal/geo"
	"watermate-backend/internal/notification"
	"watermate-backend/internal/schedule"
	"watermate-backend/internal/store"
	"watermate-backend/internal/upload"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "watermate ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.SecretKey == "" {
		logger.Fatalf("auth.secret_key (or SECRET_KEY) must be configured")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	engine := schedule.NewEngine(gormDB, cfg.Schedule.DefaultSnoozeDays)
	tokens := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	geocoder := geo.NewClient(&cfg.Geocoder)

	var uploads upload.Store = upload.NoopStore{}
	if cfg.Uploads.Enabled {
		s3Store, err := upload.NewS3Store(ctx, &cfg.Uploads)
		if err != nil {
			logger.Fatalf("failed to initialize image storage: %v", err)
		}
		uploads = s3Store
	} else {
		logger.Println("image uploads are disabled")
	}

	// Run the watering reminder service in the background
	reminderSvc := notification.NewService(cfg, appStore)
	go reminderSvc.Run(ctx)

	// Initialize router
	handler := api.NewHandler(appStore, engine, tokens, geocoder, uploads, &webpushOptions)
	router := api.NewRouter(&cfg.Server, handler, tokens)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
