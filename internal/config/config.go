// Package config loads application settings from environment variables.
// Every setting has a default except where noted; Validate reports all
// problems at once so a misconfigured deployment fails on startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Upload   UploadConfig
	History  HistoryConfig
	Session  SessionConfig
	Archive  ArchiveConfig
	Events   EventsConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	View     ViewConfig
	Report   ReportConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware deadline applied to every request.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	// Driver is postgres, sqlite or memory (default: postgres)
	Driver string `env:"STORE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// DB_URL is accepted for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `env:"SQLITE_PATH" default:"equipview.db"`

	// Migrate applies the schema on startup (default: true)
	Migrate bool `env:"STORE_MIGRATE" default:"true"`
}

// UploadConfig holds CSV upload settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted file in bytes (default: 5MB)
	MaxFileSize   int64         `env:"UPLOAD_MAX_FILE_SIZE" default:"5242880"`
	MaxConcurrent int           `env:"UPLOAD_MAX_CONCURRENT" default:"5"`
	MaxWaitTime   time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
	Timeout       time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// HistoryConfig controls the per-session dataset history.
type HistoryConfig struct {
	// Limit is how many recent datasets a session keeps (default: 5)
	Limit int `env:"HISTORY_LIMIT" default:"5"`

	// IdleTimeout drops a session's in-memory state after inactivity (default: 30m)
	IdleTimeout time.Duration `env:"HISTORY_IDLE_TIMEOUT" default:"30m"`

	// ReapInterval is how often idle sessions are scanned for (default: 5m)
	ReapInterval time.Duration `env:"HISTORY_REAP_INTERVAL" default:"5m"`
}

// Session drivers.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// SessionConfig configures session storage.
type SessionConfig struct {
	Driver       string        `env:"SESSION_DRIVER" default:"memory"`
	TTL          time.Duration `env:"SESSION_TTL" default:"12h"`
	CookieName   string        `env:"SESSION_COOKIE_NAME" default:"equipview_session"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" default:"false"`

	RedisAddr     string `env:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" default:"0"`
	RedisPrefix   string `env:"REDIS_SESSION_PREFIX" default:"equipview:session:"`
}

// ArchiveConfig configures the raw upload archive in S3-compatible storage.
type ArchiveConfig struct {
	Enabled   bool   `env:"ARCHIVE_ENABLED" default:"false"`
	Endpoint  string `env:"ARCHIVE_ENDPOINT"`
	AccessKey string `env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"ARCHIVE_SECRET_KEY"`
	Bucket    string `env:"ARCHIVE_BUCKET" default:"equipview-uploads"`
	UseSSL    bool   `env:"ARCHIVE_USE_SSL" default:"false"`
	Region    string `env:"ARCHIVE_REGION"`
}

// EventsConfig configures lifecycle event publishing.
type EventsConfig struct {
	Enabled  bool   `env:"EVENTS_ENABLED" default:"false"`
	URL      string `env:"RABBITMQ_URL" envAlt:"AMQP_URL"`
	Exchange string `env:"EVENTS_EXCHANGE" default:"equipview.datasets"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit applies to upload and preview endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// APIKeys are the login keys, "key:owner" pairs. A bare key logs in as
	// an owner named after the key.
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ViewConfig controls table presentation.
type ViewConfig struct {
	// Locale is the BCP 47 tag used to collate name and type columns.
	Locale string `env:"VIEW_LOCALE" default:"en"`
}

// ReportConfig controls the printable report.
type ReportConfig struct {
	MaxRows int `env:"REPORT_MAX_ROWS" default:"50"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
