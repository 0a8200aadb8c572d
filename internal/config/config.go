// Package config loads the map server configuration from environment
// variables, applies defaults, and validates everything at startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Render   RenderConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds each request via middleware (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds the Postgres pool settings for saved maps.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	// DB_URL is accepted as an alternative name.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RedisConfig holds the render cache settings. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" default:"0"`
	TTL      time.Duration `env:"REDIS_TTL" default:"10m"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// RenderConfig holds render pipeline guards.
type RenderConfig struct {
	// MaxDatasetBytes caps series.data (default: 5MB)
	MaxDatasetBytes int64 `env:"RENDER_MAX_DATASET_BYTES" default:"5242880"`

	// MaxDatasetRows caps the number of parsed rows (default: 50000)
	MaxDatasetRows int `env:"RENDER_MAX_DATASET_ROWS" default:"50000"`

	// MountPoint is the element ID the page renders into
	MountPoint string `env:"RENDER_MOUNT_POINT" default:"map_container"`
}

// ImportConfig holds spreadsheet import settings.
type ImportConfig struct {
	// MaxFileSize is the largest accepted workbook in bytes (default: 20MB)
	MaxFileSize   int64         `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`
	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" default:"4"`
	MaxWaitTime   time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// ImportLimit applies to the import endpoint (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Forwarded-For headers are honoured
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the write endpoints with X-API-Key
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
