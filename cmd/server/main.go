// yieldchat - conversational crop yield prediction server
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

	"github.com/ashureev/yieldchat/internal/api"
	"github.com/ashureev/yieldchat/internal/app"
	"github.com/ashureev/yieldchat/internal/config"
	"github.com/ashureev/yieldchat/internal/conversation"
	"github.com/ashureev/yieldchat/internal/convlog"
	"github.com/ashureev/yieldchat/internal/identity"
	"github.com/ashureev/yieldchat/internal/middleware"
	"github.com/ashureev/yieldchat/internal/store"
	"github.com/ashureev/yieldchat/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	model, err := app.LoadModel(cfg, logger)
	if err != nil {
		slog.Error("Failed to load model", "error", err)
		os.Exit(1)
	}
	defer model.Close()

	sessions, closeSessions, err := app.SessionStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize session store", "backend", cfg.Session.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := closeSessions(); closeErr != nil {
			slog.Warn("Failed to close session store", "error", closeErr)
		}
	}()
	slog.Info("Session store ready", "backend", cfg.Session.Backend, "ttl", cfg.Session.TTL)

	conversationLogger, err := convlog.NewConversationLogger(convlog.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Warn("Failed to close conversation logger", "error", closeErr)
		}
	}()

	engine := app.NewEngine(cfg, model, sessions, logger)
	controller := conversation.NewController(engine, repo, conversationLogger, logger)

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Close()

	handler := api.NewHandler(api.Deps{
		Controller:      controller,
		Repo:            repo,
		Schema:          model.Schema,
		Predictor:       model.Predictor,
		PredictorHealth: model.Health,
		Limiter:         limiter,
		MaxBodyBytes:    cfg.MaxRequestBodyBytes,
		AllowedOrigin:   cfg.FrontendURL,
		IsDev:           cfg.IsDevelopment(),
	})

	allowedOrigins := []string{"*"}
	if !cfg.IsDevelopment() {
		allowedOrigins = []string{cfg.FrontendURL}
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins, identity.SessionHeaderName))

	// Public routes.
	handler.RegisterHealth(r)

	// Everything else runs with an anonymous identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		handler.RegisterRoutes(r)

		// Serve the embedded chat page.
		r.Handle("/*", web.Handler())
	})

	// WebSocket chats are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	store.StartRetentionWorker(ctx, repo, cfg.HistoryRetention)

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

	slog.Info("Shutting down gracefully...", "open_sockets", handler.Sockets().Count())
	handler.Sockets().CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
