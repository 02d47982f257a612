package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage engines
const (
	EngineJSON   = "json"
	EngineSQLite = "sqlite"
)

// Config application configuration
type Config struct {
	// HTTP
	Port           int      `env:"PORT" envDefault:"4000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Storage
	StorageEngine string `env:"STORAGE_ENGINE" envDefault:"json"`
	DataDir       string `env:"DATA_DIR" envDefault:"./data"`
	DatabasePath  string `env:"DATABASE_PATH" envDefault:"./data/mailsync.db"`

	// Security (optional, settings are stored in plaintext without it)
	SettingsSecret string `env:"SETTINGS_SECRET"`

	// Email
	IMAP       IMAPConfig `envPrefix:"IMAP_"`
	FetchCount int        `env:"FETCH_COUNT" envDefault:"5"`

	// Intercom
	IntercomURL   string `env:"INTERCOM_URL" envDefault:"https://api.intercom.io"`
	IntercomToken string `env:"INTERCOM_TOKEN"`

	// Telegram notifications (optional)
	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// IMAPConfig is the fallback mailbox used when the imap settings
// category does not name one
type IMAPConfig struct {
	Host        string        `env:"HOST"`
	Port        int           `env:"PORT" envDefault:"993"`
	User        string        `env:"USER"`
	Password    string        `env:"PASSWORD"`
	Secure      bool          `env:"SECURE" envDefault:"true"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"30s"`
}

// TelegramEnabled returns true if Telegram notifications are configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	return Parse()
}

// Parse reads configuration from the process environment only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	switch cfg.StorageEngine {
	case EngineJSON, EngineSQLite:
	default:
		return nil, fmt.Errorf("STORAGE_ENGINE must be %q or %q, got %q", EngineJSON, EngineSQLite, cfg.StorageEngine)
	}

	if cfg.FetchCount <= 0 {
		return nil, fmt.Errorf("FETCH_COUNT must be positive, got %d", cfg.FetchCount)
	}

	return cfg, nil
}
