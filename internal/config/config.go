package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	TrustedProxies     []string
	ShutdownTimeout    time.Duration

	// Database
	DBDriver     string
	SQLiteDBPath string
	DatabaseURL  string

	// Authentication
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// User cache
	RedisURL      string
	UserCacheSize int
	UserCacheTTL  time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Spreadsheet mirror
	MirrorBackend         string
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string
	OAuthRedirectPort     string

	// Logging
	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"PORT":                  "8081",
	"CORS_ALLOWED_ORIGINS":  "*",
	"RATE_LIMIT_PER_MINUTE": 120,
	"SHUTDOWN_TIMEOUT":      "30s",
	"DB_DRIVER":             "sqlite",
	"SQLITE_DB_PATH":        "./data/ledger.db",
	"USER_CACHE_SIZE":       1000,
	"USER_CACHE_TTL":        "5m",
	"AMQP_EXCHANGE":         "ledger",
	"AMQP_QUEUE":            "transaction_events",
	"MIRROR_BACKEND":        "memory",
	"GOOGLE_SHEET_NAME":     "Transactions",
	"OAUTH_REDIRECT_PORT":   "8085",
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "text",
}

// Load reads configuration from the environment. When LEDGER_CONFIG names a
// YAML file its keys (same names as the variables) fill in whatever the
// environment leaves unset.
func Load() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path := os.Getenv("LEDGER_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:               v.GetString("PORT"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMinute: getInt(v, "RATE_LIMIT_PER_MINUTE"),
		TrustedProxies:     splitList(v.GetString("TRUSTED_PROXIES")),
		ShutdownTimeout:    getDuration(v, "SHUTDOWN_TIMEOUT"),

		DBDriver:     strings.ToLower(v.GetString("DB_DRIVER")),
		SQLiteDBPath: v.GetString("SQLITE_DB_PATH"),
		DatabaseURL:  v.GetString("DATABASE_URL"),

		JWTSecret:   v.GetString("JWT_SECRET"),
		JWTIssuer:   v.GetString("JWT_ISSUER"),
		JWTAudience: v.GetString("JWT_AUDIENCE"),

		RedisURL:      v.GetString("REDIS_URL"),
		UserCacheSize: getInt(v, "USER_CACHE_SIZE"),
		UserCacheTTL:  getDuration(v, "USER_CACHE_TTL"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		MirrorBackend:         v.GetString("MIRROR_BACKEND"),
		GoogleSpreadsheetID:   v.GetString("GOOGLE_SPREADSHEET_ID"),
		GoogleSheetName:       v.GetString("GOOGLE_SHEET_NAME"),
		GoogleOAuthClientFile: v.GetString("GOOGLE_OAUTH_CLIENT_FILE"),
		GoogleOAuthTokenFile:  v.GetString("GOOGLE_OAUTH_TOKEN_FILE"),
		GoogleOAuthClientJSON: v.GetString("GOOGLE_OAUTH_CLIENT_JSON"),
		GoogleOAuthTokenJSON:  v.GetString("GOOGLE_OAUTH_TOKEN_JSON"),
		OAuthRedirectPort:     v.GetString("OAUTH_REDIRECT_PORT"),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
	}
	return cfg, nil
}

// Validate checks the settings shared by every binary.
func (c *Config) Validate() error {
	return joinErrors(c.commonErrors())
}

// ValidateServer adds the checks only the API server needs.
func (c *Config) ValidateServer() error {
	errs := c.commonErrors()

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}
	if len(c.CORSAllowedOrigins) == 0 {
		errs = append(errs, "CORS_ALLOWED_ORIGINS must list at least one origin or *")
	}
	if c.UserCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid user cache size %d: must be at least 1", c.UserCacheSize))
	}
	if c.UserCacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid user cache ttl %v: must be at least 1 second", c.UserCacheTTL))
	}
	if c.RedisURL != "" {
		if _, err := url.Parse(c.RedisURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid REDIS_URL '%s': %v", c.RedisURL, err))
		}
	}
	return joinErrors(errs)
}

// ValidateWorker adds the checks the mirror worker needs.
func (c *Config) ValidateWorker() error {
	errs := c.commonErrors()
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the worker")
	}

	validBackends := []string{"memory", "sheets"}
	if !slices.Contains(validBackends, c.MirrorBackend) {
		errs = append(errs, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validBackends))
	}
	if c.MirrorBackend == "sheets" {
		errs = append(errs, c.sheetsErrors()...)
	}
	return joinErrors(errs)
}

func (c *Config) commonErrors() []string {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using the sqlite driver")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid database driver '%s': must be one of [sqlite postgres]", c.DBDriver))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}
	if c.ShutdownTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}
	return errs
}

func (c *Config) sheetsErrors() []string {
	var errs []string
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleSheetName == "" {
		errs = append(errs, "Google Sheet name is required when using sheets backend")
	}

	hasClientFile := c.GoogleOAuthClientFile != ""
	if !hasClientFile && c.GoogleOAuthClientJSON == "" {
		errs = append(errs, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for sheets backend")
	}
	hasTokenFile := c.GoogleOAuthTokenFile != ""
	if !hasTokenFile && c.GoogleOAuthTokenJSON == "" {
		errs = append(errs, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for sheets backend")
	}

	if hasClientFile {
		if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
		}
	}
	if hasTokenFile {
		if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
		}
	}
	return errs
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// getInt falls back to the registered default when the value does not parse.
func getInt(v *viper.Viper, key string) int {
	if i, err := strconv.Atoi(strings.TrimSpace(v.GetString(key))); err == nil {
		return i
	}
	i, _ := defaults[key].(int)
	return i
}

func getDuration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key))); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fmt.Sprint(defaults[key]))
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
