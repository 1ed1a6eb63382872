// Package main is the entry point for the bot engine API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/botmesh/bot-engine/internal/bot"
	"github.com/botmesh/bot-engine/internal/config"
	"github.com/botmesh/bot-engine/internal/dispatch"
	"github.com/botmesh/bot-engine/internal/entitlement"
	"github.com/botmesh/bot-engine/internal/handler"
	"github.com/botmesh/bot-engine/internal/llm"
	"github.com/botmesh/bot-engine/internal/middleware"
	natsclient "github.com/botmesh/bot-engine/internal/nats"
	"github.com/botmesh/bot-engine/internal/store"
	"github.com/botmesh/bot-engine/pkg/logger"
	"github.com/botmesh/bot-engine/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting bot engine")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "bot-engine", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the document store
	var (
		st         store.Store
		natsClient *natsclient.Client
	)
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory store, documents will not survive a restart")
		st = store.NewMemory()
	default:
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		st, err = store.NewNATS(ctx, natsClient)
		if err != nil {
			log.Error("failed to open KV buckets", zap.Error(err))
			os.Exit(1)
		}
	}

	// Chat client for the faq and ai categories
	var chatClient llm.Client
	switch {
	case cfg.ChatProvider == "openai" && cfg.OpenAIAPIKey != "":
		chatClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		chatClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		chatClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	if err != nil {
		log.Warn("failed to create chat client, degrading to keyword fallbacks", zap.Error(err))
		chatClient = nil
	}

	// Structured client for the deepseek category
	var structuredClient llm.Client
	if cfg.DeepSeekAPIKey != "" {
		structuredClient, err = llm.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL)
		if err != nil {
			log.Warn("failed to create deepseek client", zap.Error(err))
			structuredClient = nil
		}
	}

	// Wire the dispatch pipeline
	registry := bot.NewRegistry(bot.Deps{
		Store:      st,
		Chat:       chatClient,
		Structured: structuredClient,
		Logger:     log,
		Now:        time.Now,
	})
	gate := entitlement.NewGate(st, log)
	dispatcher := dispatch.New(st, gate, registry, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	eventHandler := handler.NewEventHandler(dispatcher, log)
	notificationHandler := handler.NewNotificationHandler(st, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.DispatchTimeout))
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Use(middleware.ValidateJSON)

		r.Post("/events", eventHandler.Dispatch)

		// Outbound notifications are triggered by schedulers and backoffice
		// tools, not end users, and need an explicit grant.
		r.With(middleware.RequireScope("notifications:send")).
			Post("/tenants/{tenantID}/notifications", notificationHandler.Create)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
