// Coachpad - live conversation coaching server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/coachpad/internal/api"
	"github.com/ashureev/coachpad/internal/config"
	"github.com/ashureev/coachpad/internal/identity"
	"github.com/ashureev/coachpad/internal/middleware"
	"github.com/ashureev/coachpad/internal/retention"
	"github.com/ashureev/coachpad/internal/session"
	"github.com/ashureev/coachpad/internal/store"
	"github.com/ashureev/coachpad/internal/suggest"
	"github.com/ashureev/coachpad/internal/telemetry"
	"github.com/ashureev/coachpad/internal/transport"
	"github.com/ashureev/coachpad/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	var repo store.Repository
	if cfg.ArchiveEnabled() {
		sqliteRepo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := sqliteRepo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()
		if err := sqliteRepo.Ping(ctx); err != nil {
			slog.Error("Database health check failed", "error", err)
			os.Exit(1)
		}
		repo = sqliteRepo
		slog.Info("Call archive connected", "path", cfg.DBPath)
	} else {
		slog.Info("Call archive disabled (DB_PATH empty)")
	}

	var recorder telemetry.Recorder = telemetry.NewNoop()
	if cfg.Telemetry.Enabled {
		otlp, err := telemetry.NewOTLP(ctx, telemetry.Config{
			Endpoint: cfg.Telemetry.Endpoint,
			Enabled:  cfg.Telemetry.Enabled,
			Insecure: cfg.Telemetry.Insecure,
		})
		if err != nil {
			slog.Warn("Failed to initialize OTLP metrics, continuing without", "error", err)
		} else {
			recorder = otlp
			slog.Info("OTLP metrics enabled", "endpoint", cfg.Telemetry.Endpoint)
		}
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := recorder.Close(closeCtx); err != nil {
			slog.Warn("Failed to flush metrics", "error", err)
		}
	}()

	collabs, err := buildCollaborators(ctx, cfg.Collab, logger)
	if err != nil {
		slog.Error("Failed to initialize collaborators", "error", err)
		os.Exit(1)
	}
	defer collabs.Close()

	// Initialize services.
	pipeline := suggest.NewPipeline(suggest.Config{
		Retriever: collabs.retriever,
		Generator: collabs.generator,
		Reranker:  collabs.reranker,
		TopK:      cfg.Session.TopK,
		Timeout:   cfg.Collab.Timeout,
		Logger:    logger,
	})

	sessions := session.NewRegistry(ctx, session.RegistryConfig{
		Session: session.Options{
			MaxHistory:    cfg.Session.MaxHistory,
			RankCapacity:  cfg.Session.RankTableCapacity,
			Suggester:     pipeline,
			Vision:        collabs.vision,
			VisionTimeout: cfg.Collab.Timeout,
		},
		PushInterval: cfg.Session.PushInterval,
		SendTimeout:  cfg.Session.ObserverSendTimeout,
		Recorder:     recorder,
		Logger:       logger,
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(sessions, repo, logger)
	coachHandler := api.NewCoachHandler(baseHandler)
	checks := map[string]api.Pinger{}
	if repo != nil {
		checks["database"] = repo
	}
	if collabs.sidecar != nil {
		checks["model_sidecar"] = collabs.sidecar
	}
	healthHandler := api.NewHealthHandler(baseHandler, checks, 5*time.Second)
	wsHandler := transport.NewHandler(sessions, transport.Config{
		AllowedOrigin: cfg.FrontendURL,
		IsDev:         cfg.IsDevelopment(),
		MaxFrameBytes: cfg.Session.MaxFrameBytes,
		Speech:        collabs.speech,
		Logger:        logger,
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware)

	// Public routes.
	healthHandler.RegisterHealth(r)
	coachHandler.RegisterRoutes(r)

	// WebSocket endpoints.
	wsHandler.RegisterRoutes(r)

	// Serve embedded observer dashboard.
	r.Handle("/*", web.SPAHandler())

	// No WriteTimeout: websocket connections are long-lived.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start retention worker.
	retention.NewWorker(sessions, repo, retention.Config{
		Interval:        cfg.Retention.SweepInterval,
		SessionIdleTTL:  cfg.Retention.SessionIdleTTL,
		RecordRetention: cfg.Retention.RecordRetention,
		Logger:          logger,
	}).Start(ctx)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
