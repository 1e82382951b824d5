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

	"github.com/msomdec/coursewatch/internal/config"
	"github.com/msomdec/coursewatch/internal/handler"
	"github.com/msomdec/coursewatch/internal/repository/sqlite"
	"github.com/msomdec/coursewatch/internal/service"
)

func main() {
	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	registry := service.NewSessionRegistry(cfg.SessionIdleTTL)
	defer registry.Close()
	eventLimiter := service.NewTokenBucket(cfg.EventRate, cfg.EventBurst)
	defer eventLimiter.Close()

	authService := service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.BcryptCost)
	validationService := service.NewValidationService(db.Analytics(), db.Validations(), registry, cfg.Thresholds)
	statsService := service.NewStatsService(db.Analytics())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Services{
		Auth:         authService,
		Validations:  validationService,
		Stats:        statsService,
		EventLimiter: eventLimiter,
		DB:           db.SqlDB,
		CookieSecure: cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr,
			"skip_threshold", cfg.Thresholds.SkipThreshold,
			"time_requirement_ratio", cfg.Thresholds.TimeRequirementRatio,
			"min_cheat_score", cfg.Thresholds.MinCheatScore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	// Flush live sessions after the last request has drained.
	validationService.Shutdown(shutdownCtx)
	slog.Info("server stopped")
}
