// Package config handles loading and parsing of CopyPasta configuration.
// Configuration can come from an INI file and/or environment variables.
// Environment variables take precedence, following the 12-factor app
// methodology.
//
// The configuration is organized into sections:
//   - [main]: HTTP server settings (name, host, port)
//   - [session]: Cookie name, signing secret, Secure flag
//   - [clipboard]: History limit, poll timeouts, content size limits
//   - [model]: Storage backend configuration
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/ini.v1"
)

// Config holds all application configuration organized by section.
type Config struct {
	Main      MainConfig
	Session   SessionConfig
	Clipboard ClipboardConfig
	Model     ModelConfig
}

// MainConfig contains core HTTP server settings.
type MainConfig struct {
	// Name is the application title used in log lines
	Name string

	// Host is the address to bind the HTTP server to (default: 0.0.0.0)
	Host string

	// Port is the HTTP server port (default: 8080)
	Port int
}

// SessionConfig controls session cookie behavior.
type SessionConfig struct {
	// CookieName is the name of the session cookie
	CookieName string

	// Secret is the HMAC key used to sign session cookies.
	// When empty, a random per-process key is generated at startup.
	Secret string

	// Secure marks session cookies Secure; set when serving over TLS
	Secure bool
}

// ClipboardConfig controls clipboard retention and long-poll behavior.
type ClipboardConfig struct {
	// HistoryLimit is the maximum number of entries kept per user.
	// Older entries are evicted in the same transaction as the insert.
	HistoryLimit int

	// PollMaxTimeout is the upper clamp on the poll timeout parameter,
	// in seconds
	PollMaxTimeout int

	// PollDefaultTimeout is the poll timeout used when the client
	// doesn't supply one, in seconds
	PollDefaultTimeout int

	// RichSizeLimit is the maximum byte length for rich (HTML) content
	RichSizeLimit int64
}

// ModelConfig defines the storage backend settings.
type ModelConfig struct {
	// Driver is the database driver: sqlite3, postgres, or mysql
	Driver string

	// DSN is the Data Source Name for the database connection
	DSN string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Main: MainConfig{
			Name: "CopyPasta",
			Host: "0.0.0.0",
			Port: 8080,
		},
		Session: SessionConfig{
			CookieName: "copypasta_session",
			Secret:     "",
			Secure:     false,
		},
		Clipboard: ClipboardConfig{
			HistoryLimit:       50,
			PollMaxTimeout:     60,
			PollDefaultTimeout: 30,
			RichSizeLimit:      10 * 1024 * 1024, // 10 MiB
		},
		Model: ModelConfig{
			Driver: "sqlite3",
			DSN:    "copypasta.db",
		},
	}
}

// Load reads configuration from an INI file and environment variables.
// Environment variables override file settings. If the config file doesn't
// exist, default values are used.
//
// Environment variable format: COPYPASTA_SECTION_KEY
// Example: COPYPASTA_MAIN_PORT=9090
//
// The deployment shorthand variables SECRET_KEY, HISTORY_LIMIT and
// POLL_MAX_TIMEOUT are also honored.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from INI file if it exists
	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Override with environment variables
	cfg.loadFromEnv()

	// Validate the final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile parses an INI configuration file.
func (c *Config) loadFromFile(path string) error {
	iniFile, err := ini.Load(path)
	if err != nil {
		return err
	}

	// [main] section
	if sec, err := iniFile.GetSection("main"); err == nil {
		c.Main.Name = sec.Key("name").MustString(c.Main.Name)
		c.Main.Host = sec.Key("host").MustString(c.Main.Host)
		c.Main.Port = sec.Key("port").MustInt(c.Main.Port)
	}

	// [session] section
	if sec, err := iniFile.GetSection("session"); err == nil {
		c.Session.CookieName = sec.Key("cookiename").MustString(c.Session.CookieName)
		c.Session.Secret = sec.Key("secret").MustString(c.Session.Secret)
		c.Session.Secure = sec.Key("secure").MustBool(c.Session.Secure)
	}

	// [clipboard] section
	if sec, err := iniFile.GetSection("clipboard"); err == nil {
		c.Clipboard.HistoryLimit = sec.Key("historylimit").MustInt(c.Clipboard.HistoryLimit)
		c.Clipboard.PollMaxTimeout = sec.Key("pollmaxtimeout").MustInt(c.Clipboard.PollMaxTimeout)
		c.Clipboard.PollDefaultTimeout = sec.Key("polldefaulttimeout").MustInt(c.Clipboard.PollDefaultTimeout)
		c.Clipboard.RichSizeLimit = sec.Key("richsizelimit").MustInt64(c.Clipboard.RichSizeLimit)
	}

	// [model] section
	if sec, err := iniFile.GetSection("model"); err == nil {
		c.Model.Driver = sec.Key("driver").MustString(c.Model.Driver)
		c.Model.DSN = sec.Key("dsn").MustString(c.Model.DSN)
	}

	return nil
}

// loadFromEnv overrides configuration with environment variables.
// Format: COPYPASTA_SECTION_KEY (e.g., COPYPASTA_MAIN_PORT), plus the
// deployment shorthand names from the wire contract.
func (c *Config) loadFromEnv() {
	// Main section
	if v := os.Getenv("COPYPASTA_MAIN_NAME"); v != "" {
		c.Main.Name = v
	}
	if v := os.Getenv("COPYPASTA_MAIN_HOST"); v != "" {
		c.Main.Host = v
	}
	if v := os.Getenv("COPYPASTA_MAIN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Main.Port = port
		}
	}

	// Session section
	if v := os.Getenv("COPYPASTA_SESSION_COOKIENAME"); v != "" {
		c.Session.CookieName = v
	}
	if v := os.Getenv("COPYPASTA_SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("COPYPASTA_SESSION_SECURE"); v != "" {
		if secure, err := strconv.ParseBool(v); err == nil {
			c.Session.Secure = secure
		}
	}

	// Clipboard section
	if v := os.Getenv("COPYPASTA_CLIPBOARD_HISTORYLIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			c.Clipboard.HistoryLimit = limit
		}
	}
	if v := os.Getenv("COPYPASTA_CLIPBOARD_POLLMAXTIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			c.Clipboard.PollMaxTimeout = timeout
		}
	}
	if v := os.Getenv("COPYPASTA_CLIPBOARD_RICHSIZELIMIT"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Clipboard.RichSizeLimit = size
		}
	}

	// Model section (storage backend)
	if v := os.Getenv("COPYPASTA_MODEL_DRIVER"); v != "" {
		c.Model.Driver = v
	}
	if v := os.Getenv("COPYPASTA_MODEL_DSN"); v != "" {
		c.Model.DSN = v
	}

	// Shorthand environment variables for deployment compatibility
	if v := os.Getenv("SECRET_KEY"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			c.Clipboard.HistoryLimit = limit
		}
	}
	if v := os.Getenv("POLL_MAX_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			c.Clipboard.PollMaxTimeout = timeout
		}
	}
}

// Validate checks that the configuration is valid and consistent.
func (c *Config) Validate() error {
	// Port must be in valid range
	if c.Main.Port < 1 || c.Main.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Main.Port)
	}

	// History limit must be positive
	if c.Clipboard.HistoryLimit < 1 {
		return fmt.Errorf("historylimit must be positive, got %d", c.Clipboard.HistoryLimit)
	}

	// Poll timeouts must be sane
	if c.Clipboard.PollMaxTimeout < 1 {
		return fmt.Errorf("pollmaxtimeout must be positive, got %d", c.Clipboard.PollMaxTimeout)
	}
	if c.Clipboard.PollDefaultTimeout < 1 || c.Clipboard.PollDefaultTimeout > c.Clipboard.PollMaxTimeout {
		return fmt.Errorf("polldefaulttimeout must be between 1 and %d, got %d",
			c.Clipboard.PollMaxTimeout, c.Clipboard.PollDefaultTimeout)
	}

	// Size limit must be positive
	if c.Clipboard.RichSizeLimit <= 0 {
		return fmt.Errorf("richsizelimit must be positive, got %d", c.Clipboard.RichSizeLimit)
	}

	// Database driver must be valid
	switch c.Model.Driver {
	case "sqlite3", "postgres", "mysql":
		// Valid
	default:
		return fmt.Errorf("database driver must be 'sqlite3', 'postgres', or 'mysql', got %q", c.Model.Driver)
	}

	return nil
}
