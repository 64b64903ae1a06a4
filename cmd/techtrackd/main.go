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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"techtrack-backend/config"
	"techtrack-backend/internal/api"
	"techtrack-backend/internal/auth"
	"techtrack-backend/internal/events"
	"techtrack-backend/internal/inventory"
	"techtrack-backend/internal/labels"
	"techtrack-backend/internal/notify"
	"techtrack-backend/internal/record"
	"techtrack-backend/internal/roster"
	"techtrack-backend/internal/tabular"
	"techtrack-backend/internal/triage"
)

func main() {
	logger := log.New(os.Stdout, "techtrackd ", log.LstdFlags)

	// Secrets referenced from the config file as ${VAR} may live in a .env.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded from %s", configPath)

	if cfg.Auth.JWTSecret == "" {
		logger.Fatalf("auth.jwt_secret must be configured")
	}

	// Push is optional: without VAPID keys the service runs, watchers just
	// get no pushes.
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := tabular.NewClient(cfg.Upstream)
	store := record.NewStore(client)

	// Warm the remote tables before serving: headers written, demo roster
	// seeded if asked. A dead upstream should fail the boot, not the first
	// request.
	bootCtx, bootCancel := context.WithTimeout(ctx, 30*time.Second)
	defer bootCancel()
	if err := store.EnsureTables(bootCtx); err != nil {
		logger.Fatalf("failed to ensure upstream tables: %v", err)
	}
	people := roster.New(store)
	if cfg.Seed.DemoUsers {
		added, err := people.SeedDemo(bootCtx)
		if err != nil {
			logger.Fatalf("failed to seed demo users: %v", err)
		}
		if added > 0 {
			logger.Printf("seeded %d demo users", added)
		}
	}
	logger.Println("upstream store ready")

	archive, err := labels.New(ctx, cfg.Labels)
	if err != nil {
		logger.Fatalf("failed to initialize label archive: %v", err)
	}
	logger.Printf("label archive ready (driver %s)", archive.Driver())

	hub := events.NewHub(logger)
	go hub.Run(ctx)

	pool := notify.NewWorkerPool(cfg.WorkerPool.Size, store, webpushOptions, logger)
	pool.Start(ctx)

	router := api.NewRouter(cfg, api.Deps{
		Logger:  logger,
		Store:   store,
		Items:   inventory.NewEngine(store),
		Reports: triage.NewEngine(store),
		Roster:  people,
		Tokens:  auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Labels:  archive,
		Hub:     hub,
		Pool:    pool,
		Webpush: webpushOptions,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
