package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/localtv/localtv/internal/config"
	"github.com/localtv/localtv/internal/database"
	"github.com/localtv/localtv/internal/email"
	"github.com/localtv/localtv/internal/logging"
	"github.com/localtv/localtv/internal/moderation"
	"github.com/localtv/localtv/internal/notification"
	"github.com/localtv/localtv/internal/server"
	"github.com/localtv/localtv/internal/storage"
	"github.com/localtv/localtv/internal/submit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	logger, logFile := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logFile.Close()
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("localtv exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	slog.Info("database migrations applied")

	store, err := storage.New(ctx, storage.Config{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		Bucket:         cfg.S3Bucket,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Region:         cfg.S3Region,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("storage bucket check failed: %w", err)
	}
	slog.Info("storage bucket ready", "bucket", cfg.S3Bucket)

	emailClient := email.New(email.Config{
		BaseURL:    cfg.EmailURL,
		Username:   cfg.EmailUser,
		Password:   cfg.EmailPassword,
		From:       cfg.EmailFrom,
		TemplateID: cfg.EmailTemplateID,
	})

	storageEndpoint := cfg.S3PublicEndpoint
	if storageEndpoint == "" {
		storageEndpoint = cfg.S3Endpoint
	}

	srv := server.New(server.Config{
		DB:                      db.Pool,
		Pinger:                  db,
		Storage:                 store,
		Remote:                  submit.NewFetcher(),
		JWTSecret:               cfg.JWTSecret,
		BaseURL:                 cfg.BaseURL,
		SiteDomain:              cfg.SiteDomain,
		StorageEndpoint:         storageEndpoint,
		SecureCookies:           cfg.SecureCookies(),
		ApprovalNotifier:        approvalNotifier(cfg, notification.NewPreferences(db.Pool), emailClient),
		SubmissionRequiresLogin: cfg.SubmissionRequiresLogin,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("localtv listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-shutdownCh:
	}
	slog.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	slog.Info("shutdown complete")
	return nil
}

// approvalNotifier returns nil unless notifications are enabled and an email
// backend is configured.
func approvalNotifier(cfg *config.Config, prefs notification.PreferenceChecker, mailer notification.Mailer) moderation.ApprovalNotifier {
	if !cfg.NotificationsEnabled {
		slog.Info("approval notifications disabled")
		return nil
	}
	if !cfg.EmailConfigured() {
		slog.Warn("approval notifications enabled but EMAIL_URL is not set")
		return nil
	}
	return notification.NewApprovalNotifier(prefs, mailer, cfg.BaseURL)
}
