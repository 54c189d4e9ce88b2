// Package config provides application configuration loaded from environment
// variables (and an optional YAML file) with defaults and validation. It
// centralizes server timeouts, logging, storage, the settings cache, the
// chat-platform connection, relay tuning, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-modmail")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RedisConfig configures the optional settings cache. Empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// DiscordConfig holds chat-platform connection settings.
type DiscordConfig struct {
	Token        string // DISCORD_TOKEN
	LogChannelID string // LOG_CHANNEL_ID, moderation log for held messages
}

// RelayConfig tunes the inbound pipeline.
type RelayConfig struct {
	CommandPrefix     string        // staff command prefix inside thread channels
	MinWords          int           // first-contact minimum token count
	QueueIdleTimeout  time.Duration // per-user queue eviction window
	SelectionTimeout  time.Duration // guild selection idle timeout
	SelectionPageSize int           // guilds per selection page
	UnarchiveInterval time.Duration // archive-prevention sweep interval
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // postgres DSN

	Redis   RedisConfig
	Discord DiscordConfig
	Relay   RelayConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// maxSelectionPageSize leaves room for the two navigation options in a
// 25-option select menu.
const maxSelectionPageSize = 23

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables and, when CONFIG_FILE
// names a file, from that file as a fallback layer. Environment wins.
func Load() (Config, error) {
	src, err := newSource()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		// Server
		Port:              src.getenv("PORT", "8080"),
		ReadTimeout:       src.getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: src.getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      src.getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       src.getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    src.getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(src.getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(src.getenv("LOG_LEVEL", "info")),
		LogPretty:      src.getbool("LOG_PRETTY", false),
		SwaggerEnabled: src.getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(src.getenv("API_BASE_PATH", "/modmail/v1")),

		// Storage
		DBDriver:    strings.ToLower(src.getenv("DB_DRIVER", "sqlite")),
		DBPath:      src.getenv("DB_PATH", "modmail.db"),
		DatabaseURL: src.getenv("DATABASE_URL", ""),

		Redis: RedisConfig{
			Addr:     src.getenv("REDIS_ADDR", ""),
			Password: src.getenv("REDIS_PASSWORD", ""),
			DB:       src.getint("REDIS_DB", 0),
			TTL:      src.getdur("SETTINGS_CACHE_TTL", 5*time.Minute),
		},
		Discord: DiscordConfig{
			Token:        src.getenv("DISCORD_TOKEN", ""),
			LogChannelID: src.getenv("LOG_CHANNEL_ID", ""),
		},
		Relay: RelayConfig{
			CommandPrefix:     src.getenv("COMMAND_PREFIX", "="),
			MinWords:          src.getint("MIN_FIRST_MESSAGE_WORDS", 5),
			QueueIdleTimeout:  src.getdur("QUEUE_IDLE_TIMEOUT", 10*time.Minute),
			SelectionTimeout:  src.getdur("SELECTION_TIMEOUT", 30*time.Second),
			SelectionPageSize: src.getint("SELECTION_PAGE_SIZE", 10),
			UnarchiveInterval: src.getdur("UNARCHIVE_INTERVAL", time.Hour),
		},

		// Rate limiting
		RateRPS:   src.getfloat("RATE_RPS", 5.0),
		RateBurst: src.getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(src.getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: src.getbool("ENABLE_HSTS", false),
			HSTSMaxAge: src.getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     src.getbool("OTEL_ENABLED", false),
			Endpoint:    src.getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    src.getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: src.getenv("OTEL_SERVICE_NAME", "go-modmail"),
			SampleRatio: src.getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.Redis.TTL <= 0 {
		return cfg, errors.New("SETTINGS_CACHE_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.Relay.CommandPrefix) == "" {
		return cfg, errors.New("COMMAND_PREFIX must not be empty")
	}
	if cfg.Relay.MinWords < 0 {
		return cfg, errors.New("MIN_FIRST_MESSAGE_WORDS must be >= 0")
	}
	if cfg.Relay.QueueIdleTimeout <= 0 || cfg.Relay.SelectionTimeout <= 0 || cfg.Relay.UnarchiveInterval <= 0 {
		return cfg, errors.New("relay timeouts must be positive durations")
	}
	if cfg.Relay.SelectionPageSize < 1 || cfg.Relay.SelectionPageSize > maxSelectionPageSize {
		return cfg, fmt.Errorf("SELECTION_PAGE_SIZE must be in [1,%d]", maxSelectionPageSize)
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- source helpers ----

// source resolves keys from the environment first, then the optional file.
type source struct {
	v *viper.Viper
}

func newSource() (source, error) {
	v := viper.New()
	v.AutomaticEnv()
	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return source{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return source{v: v}, nil
}

// raw returns the trimmed string value for k and whether it was set.
func (s source) raw(k string) (string, bool) {
	if s.v == nil || !s.v.IsSet(k) {
		return "", false
	}
	v := strings.TrimSpace(s.v.GetString(k))
	return v, v != ""
}

func (s source) getenv(k, def string) string {
	if v, ok := s.raw(k); ok {
		return v
	}
	return def
}

func (s source) getfloat(k string, def float64) float64 {
	if v, ok := s.raw(k); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (s source) getint(k string, def int) int {
	if v, ok := s.raw(k); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s source) getbool(k string, def bool) bool {
	if v, ok := s.raw(k); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func (s source) getdur(k string, def time.Duration) time.Duration {
	if v, ok := s.raw(k); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
