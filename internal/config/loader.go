package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc returns the value of a configuration variable and whether it is set.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with an explicit variable source.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := populate(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MapLookup adapts a map to a LookupFunc.
func MapLookup(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

// fieldTags is the parsed env/envAlt/default/required tag set of one field.
type fieldTags struct {
	names    []string
	fallback string
	required bool
}

func tagsOf(f reflect.StructField) (fieldTags, bool) {
	env := f.Tag.Get("env")
	if env == "" {
		return fieldTags{}, false
	}
	tags := fieldTags{
		names:    []string{env},
		fallback: f.Tag.Get("default"),
		required: f.Tag.Get("required") == "true",
	}
	if alt := f.Tag.Get("envAlt"); alt != "" {
		tags.names = append(tags.names, alt)
	}
	return tags, true
}

// resolve returns the first non-empty variable, then the default.
func (t fieldTags) resolve(lookup LookupFunc) (string, error) {
	for _, name := range t.names {
		if v, ok := lookup(name); ok && v != "" {
			return v, nil
		}
	}
	if t.required {
		return "", fmt.Errorf("required environment variable %s is not set", t.names[0])
	}
	return t.fallback, nil
}

// populate fills tagged fields of v, descending into nested sections.
// Every missing or malformed variable is reported, not just the first.
func populate(v reflect.Value, lookup LookupFunc) error {
	var errs []error

	for i := 0; i < v.NumField(); i++ {
		field, sf := v.Field(i), v.Type().Field(i)
		if !field.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			if err := populate(field, lookup); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		tags, ok := tagsOf(sf)
		if !ok {
			continue
		}
		raw, err := tags.resolve(lookup)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if raw == "" {
			continue
		}
		if err := assign(field, raw); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", tags.names[0], raw, err))
		}
	}

	return errors.Join(errs...)
}

var durationType = reflect.TypeOf(time.Duration(0))

// assign parses raw into field according to its type.
func assign(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(strings.ReplaceAll(raw, "_", ""), 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(raw)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Redis
	if c.Redis.Enabled() && c.Redis.TTL <= 0 {
		errs = append(errs, "REDIS_TTL must be positive when REDIS_ADDR is set")
	}
	if c.Redis.DB < 0 {
		errs = append(errs, "REDIS_DB must be non-negative")
	}

	// Render
	if c.Render.MaxDatasetBytes < 0 {
		errs = append(errs, "RENDER_MAX_DATASET_BYTES must be non-negative")
	}
	if c.Render.MaxDatasetRows < 0 {
		errs = append(errs, "RENDER_MAX_DATASET_ROWS must be non-negative")
	}
	if strings.TrimSpace(c.Render.MountPoint) == "" {
		errs = append(errs, "RENDER_MOUNT_POINT must not be empty")
	}

	// Import
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}

	// Rate limits
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ImportLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	// Security
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns the config for logging with secrets masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	redisPassword := ""
	if c.Redis.Password != "" {
		redisPassword = "[MASKED]"
	}
	fmt.Fprintf(&b, "Redis: {Addr: %q, Password: %q, DB: %d, TTL: %s}, ",
		c.Redis.Addr, redisPassword, c.Redis.DB, c.Redis.TTL)
	fmt.Fprintf(&b, "Render: {MaxDatasetBytes: %d, MaxDatasetRows: %d, MountPoint: %q}, ",
		c.Render.MaxDatasetBytes, c.Render.MaxDatasetRows, c.Render.MountPoint)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
