package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/mixelka/mailsync/internal/api/handlers"
	"github.com/mixelka/mailsync/internal/api/middleware"
	"github.com/mixelka/mailsync/internal/metrics"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	Settings  handlers.SettingsStore
	Emails    handlers.EmailStore
	Fetcher   handlers.Fetcher
	Processor handlers.Processor
	Intercom  handlers.IntercomClient
	DB        handlers.Pinger // nil for the JSON file engine

	StorageEngine  string
	FetchCount     int
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS(cfg.AllowedOrigins))
	e.Use(middleware.RequestLogger(cfg.Logger))
	e.Use(middleware.BodyLimit("5M"))

	healthHandler := handlers.NewHealthHandler(cfg.StorageEngine, cfg.DB)
	settingsHandler := handlers.NewSettingsHandler(cfg.Settings)
	emailHandler := handlers.NewEmailHandler(cfg.Emails)
	imapHandler := handlers.NewIMAPHandler(cfg.Fetcher, cfg.Emails, cfg.Settings, cfg.FetchCount, cfg.Logger)
	processHandler := handlers.NewProcessHandler(cfg.Processor, cfg.Intercom, cfg.Logger)

	e.GET("/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api")

	// Settings routes
	settings := api.Group("/settings")
	settings.GET("", settingsHandler.List)
	settings.POST("", settingsHandler.Save)
	settings.GET("/:category", settingsHandler.List)
	settings.POST("/:category", settingsHandler.Save)
	settings.GET("/:category/object", settingsHandler.Object)
	settings.POST("/:category/bulk", settingsHandler.Bulk)

	// Stored email routes
	api.GET("/stored-emails", emailHandler.List)
	api.POST("/stored-emails", emailHandler.List)
	api.POST("/stored-emails/bulk", emailHandler.Bulk)

	// Mailbox routes
	api.POST("/fetch-emails", imapHandler.FetchEmails)
	api.POST("/fetch-email-message", imapHandler.FetchEmailMessage)
	api.POST("/fetch-email-messages", imapHandler.FetchEmailMessages)
	api.POST("/test-imap-connection", imapHandler.TestConnection)

	// Processing routes
	api.POST("/process-email", processHandler.ProcessEmail)
	api.POST("/mark-processed", processHandler.MarkProcessed)
	api.POST("/test-intercom-connection", processHandler.TestIntercomConnection)

	return e
}
