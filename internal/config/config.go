// Package config loads and validates verihub configuration from verihub.yaml
// with environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all verihub configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	DataDir string `yaml:"data_dir"`

	// Dashboard HTTP API
	Server ServerConfig `yaml:"server"`

	// SQLite storage
	Database DatabaseConfig `yaml:"database"`

	// Remote verification service endpoints
	SheerID SheerIDConfig `yaml:"sheerid"`

	// Headless browser used for document rendering
	Browser BrowserConfig `yaml:"browser"`

	// Telegram front end
	Telegram TelegramConfig `yaml:"telegram"`

	// Token economy amounts
	Economy EconomyConfig `yaml:"economy"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the dashboard API listener.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite repository.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SheerIDConfig configures the remote verification service.
type SheerIDConfig struct {
	ServicesURL string `yaml:"services_url"`
	StatusURL   string `yaml:"status_url"`
}

// BrowserConfig configures the rod-driven Chromium used for rendering
// verification documents.
type BrowserConfig struct {
	Bin            string `yaml:"bin"` // empty = rod's own lookup/download
	Headless       bool   `yaml:"headless"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	RenderDelayMs  int    `yaml:"render_delay_ms"`
}

// TelegramConfig configures the chat bot front end.
type TelegramConfig struct {
	Token         string `yaml:"token"` // VERIHUB_BOT_TOKEN overrides
	AdminUsername string `yaml:"admin_username"`
	ChannelID     string `yaml:"channel_id"`
}

// EconomyConfig sets the token amounts for the ledger.
type EconomyConfig struct {
	VerificationCost int `yaml:"verification_cost"`
	JoinReward       int `yaml:"join_reward"`
	DailyReward      int `yaml:"daily_reward"`
	ReferralReward   int `yaml:"referral_reward"`
}

// LoggingConfig mirrors logging.Settings in YAML form.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Name:    "verihub",
		DataDir: ".verihub",
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},
		Database: DatabaseConfig{
			Path: ".verihub/verihub.db",
		},
		SheerID: SheerIDConfig{
			ServicesURL: "https://services.sheerid.com",
			StatusURL:   "https://my.sheerid.com",
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  850,
			ViewportHeight: 1100,
			RenderDelayMs:  300,
		},
		Telegram: TelegramConfig{
			AdminUsername: "",
			ChannelID:     "",
		},
		Economy: EconomyConfig{
			VerificationCost: 50,
			JoinReward:       20,
			DailyReward:      5,
			ReferralReward:   10,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads the config file at path, applies env overrides, and validates.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv overlays secrets and deployment-specific values from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("VERIHUB_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("VERIHUB_ADMIN_USERNAME"); v != "" {
		c.Telegram.AdminUsername = v
	}
	if v := os.Getenv("VERIHUB_CHANNEL_ID"); v != "" {
		c.Telegram.ChannelID = v
	}
	if v := os.Getenv("VERIHUB_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("VERIHUB_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" && c.Browser.Bin == "" {
		c.Browser.Bin = v
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Economy.VerificationCost <= 0 {
		return fmt.Errorf("economy.verification_cost must be positive")
	}
	if c.SheerID.ServicesURL == "" || c.SheerID.StatusURL == "" {
		return fmt.Errorf("sheerid endpoints are required")
	}
	return nil
}

// LogsDir returns the directory for category log files.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ShutdownTimeout parses the configured server shutdown grace period.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
