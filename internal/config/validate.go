package config

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/text/language"
)

// Validate checks that the configuration is usable.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// Store
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.URL == "" {
			add("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
		if c.Store.MaxConns <= 0 {
			add("DB_MAX_CONNS must be positive")
		}
		if c.Store.MinConns < 0 {
			add("DB_MIN_CONNS must be non-negative")
		}
		if c.Store.MaxConns < c.Store.MinConns {
			add("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Store.MaxConns, c.Store.MinConns)
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			add("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	case DriverMemory:
	default:
		add("STORE_DRIVER (%q) must be one of: postgres, sqlite, memory", c.Store.Driver)
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		add("SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		add("SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Upload
	if c.Upload.MaxFileSize <= 0 {
		add("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		add("UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		add("UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.Timeout <= 0 {
		add("UPLOAD_TIMEOUT must be positive")
	}

	// History
	if c.History.Limit <= 0 {
		add("HISTORY_LIMIT must be positive")
	}
	if c.History.IdleTimeout <= 0 {
		add("HISTORY_IDLE_TIMEOUT must be positive")
	}
	if c.History.ReapInterval <= 0 {
		add("HISTORY_REAP_INTERVAL must be positive")
	}

	// Session
	switch c.Session.Driver {
	case SessionMemory:
	case SessionRedis:
		if c.Session.RedisAddr == "" {
			add("REDIS_ADDR is required when SESSION_DRIVER=redis")
		}
	default:
		add("SESSION_DRIVER (%q) must be one of: memory, redis", c.Session.Driver)
	}
	if c.Session.TTL <= 0 {
		add("SESSION_TTL must be positive")
	}
	if c.Session.CookieName == "" {
		add("SESSION_COOKIE_NAME must not be empty")
	}

	// Archive and events
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			add("ARCHIVE_ENDPOINT is required when ARCHIVE_ENABLED=true")
		}
		if c.Archive.Bucket == "" {
			add("ARCHIVE_BUCKET is required when ARCHIVE_ENABLED=true")
		}
	}
	if c.Events.Enabled && c.Events.URL == "" {
		add("RABBITMQ_URL is required when EVENTS_ENABLED=true")
	}

	// Rate limiting
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		add("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		add("RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	// Security
	for _, cidr := range c.Security.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			add("TRUSTED_PROXIES entry %q is not a valid CIDR", cidr)
		}
	}
	if len(c.Security.APIKeys) == 0 {
		add("API_KEYS is empty; configure at least one key so users can sign in")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		add("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		add("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	// View and report
	if _, err := language.Parse(c.View.Locale); err != nil {
		add("VIEW_LOCALE (%q) is not a valid language tag", c.View.Locale)
	}
	if c.Report.MaxRows <= 0 {
		add("REPORT_MAX_ROWS must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a representation of the config that is safe to log.
// Connection strings, passwords and keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Store: {Driver: %q, URL: %s, SQLitePath: %q}, ",
		c.Store.Driver, mask(c.Store.URL), c.Store.SQLitePath)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "History: {Limit: %d}, ", c.History.Limit)
	fmt.Fprintf(&b, "Session: {Driver: %q, RedisAddr: %q, RedisPassword: %s}, ",
		c.Session.Driver, c.Session.RedisAddr, mask(c.Session.RedisPassword))
	fmt.Fprintf(&b, "Archive: {Enabled: %v, Endpoint: %q, Bucket: %q, SecretKey: %s}, ",
		c.Archive.Enabled, c.Archive.Endpoint, c.Archive.Bucket, mask(c.Archive.SecretKey))
	fmt.Fprintf(&b, "Events: {Enabled: %v, URL: %s}, ", c.Events.Enabled, mask(c.Events.URL))
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {APIKeys: %d}, ", len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return `""`
	}
	return "[MASKED]"
}
