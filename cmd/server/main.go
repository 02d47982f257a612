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

	"github.com/lmittmann/tint"

	"github.com/mixelka/mailsync/internal/api"
	"github.com/mixelka/mailsync/internal/api/handlers"
	"github.com/mixelka/mailsync/internal/config"
	"github.com/mixelka/mailsync/internal/database"
	"github.com/mixelka/mailsync/internal/email"
	"github.com/mixelka/mailsync/internal/filestore"
	"github.com/mixelka/mailsync/internal/intercom"
	"github.com/mixelka/mailsync/internal/processor"
	"github.com/mixelka/mailsync/internal/secret"
	"github.com/mixelka/mailsync/internal/store"
	"github.com/mixelka/mailsync/internal/telegram"
	"github.com/mixelka/mailsync/pkg/models"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting mail sync server", "storage", cfg.StorageEngine)

	ctx := context.Background()

	st, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer st.close()

	cipher, err := secret.New(cfg.SettingsSecret)
	if err != nil {
		logger.Error("failed to set up settings encryption", "error", err)
		os.Exit(1)
	}
	if !cipher.Enabled() {
		logger.Warn("SETTINGS_SECRET not set, sensitive settings are stored in plaintext")
	}

	// Create components
	settings := store.NewSettingsStore(st.backend, cipher, logger)
	emails := store.NewEmailStore(st.backend, logger)

	intercomClient := intercom.NewClient(intercom.Config{
		BaseURL: cfg.IntercomURL,
		Token:   cfg.IntercomToken,
		TokenFunc: func(ctx context.Context) string {
			token, _ := settings.Get(ctx, models.CategoryIntercom, models.KeyIntercomToken)
			return token
		},
	})

	deps := processor.Deps{
		Settings:  settings,
		Emails:    emails,
		Forwarder: intercomClient,
		Logger:    logger,
	}

	// Create Telegram notifier (optional)
	if cfg.TelegramEnabled() {
		notifier, err := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Error("failed to create telegram notifier", "error", err)
			os.Exit(1)
		}
		deps.Notifier = notifier
		logger.Info("telegram notifications enabled", "chat_id", cfg.TelegramChatID)
	}

	fetcher := email.NewFetcher(settings, cfg.IMAP, logger)

	router := api.NewRouter(&api.RouterConfig{
		Settings:       settings,
		Emails:         emails,
		Fetcher:        fetcher,
		Processor:      processor.New(deps),
		Intercom:       intercomClient,
		DB:             st.db,
		StorageEngine:  st.engine,
		FetchCount:     cfg.FetchCount,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		logger.Info("server is running", "addr", addr)
		if err := router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server", "error", err)
	}

	logger.Info("server stopped")
}

// storage is the opened persistence engine. db is nil for the file engine.
type storage struct {
	backend store.Backend
	db      handlers.Pinger
	engine  string
	close   func()
}

// openBackend opens the configured storage engine. A SQLite database that
// cannot be opened or migrated falls back to the JSON files in DATA_DIR.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.StorageEngine == config.EngineSQLite {
		db, err := openSQLite(ctx, cfg.DatabasePath)
		if err == nil {
			logger.Info("database migrations completed", "path", cfg.DatabasePath)
			return &storage{backend: db, db: db, engine: config.EngineSQLite, close: func() { db.Close() }}, nil
		}
		logger.Warn("sqlite unavailable, falling back to JSON file storage", "path", cfg.DatabasePath, "error", err)
	}

	fs, err := filestore.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("using JSON file storage", "dir", fs.Dir())
	return &storage{backend: fs, engine: config.EngineJSON, close: func() {}}, nil
}

func openSQLite(ctx context.Context, path string) (*database.DB, error) {
	db, err := database.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
