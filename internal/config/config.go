// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the database connection, pool lifecycle
// policy, reminder scheduling, and the WhatsApp (Green API) integration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/remindly/go-reminder-backend/internal/sysutil"
)

// Canonical log level names accepted in LOG_LEVEL. Matching is
// case-insensitive; anything else falls back to LevelInfo.
const (
	LevelDebug    = "DEBUG"
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-reminder-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// PoolConfig holds the database connection lifecycle policy. Connections are
// pre-pinged before every handout, recycled once they exceed ConnMaxAge, and
// acquisition blocks with a bounded wait when the pool is exhausted.
type PoolConfig struct {
	Size           int           // POOL_SIZE: base number of pooled connections
	Overflow       int           // POOL_OVERFLOW: extra connections allowed under burst
	AcquireTimeout time.Duration // POOL_ACQUIRE_TIMEOUT: max wait for a free connection
	ConnMaxAge     time.Duration // CONN_MAX_AGE: recycle interval (age-based discard)
	PingRetries    int           // PING_RETRIES: liveness probe attempts per acquisition
}

// GreenAPIConfig holds the WhatsApp messaging (Green API) credentials.
type GreenAPIConfig struct {
	BaseURL    string // GREEN_API_BASE_URL
	InstanceID string // GREEN_API_INSTANCE_ID
	Token      string // GREEN_API_TOKEN (never logged)
}

// Validate reports whether the Green API credentials are present.
func (g GreenAPIConfig) Validate() error {
	if strings.TrimSpace(g.InstanceID) == "" {
		return errors.New("GREEN_API_INSTANCE_ID must not be empty")
	}
	if strings.TrimSpace(g.Token) == "" {
		return errors.New("GREEN_API_TOKEN must not be empty")
	}
	return nil
}

// ReminderConfig tunes the background reminder dispatcher.
type ReminderConfig struct {
	Interval         time.Duration // REMINDER_INTERVAL: dispatcher cycle period
	Lookahead        time.Duration // REMINDER_LOOKAHEAD: initial reminder window
	EscalationWindow time.Duration // ESCALATION_WINDOW: how far back follow-ups reach
	MaxMessages      int           // REMINDER_MAX_MESSAGES: cap per event (initial + follow-ups)
	InstanceHorizon  time.Duration // INSTANCE_HORIZON: how far ahead recurring instances are materialized
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
	LogLevel       string // DEBUG|INFO|WARNING|ERROR|CRITICAL (canonical, upper-case)
	LogPretty      bool   // fixed-template text lines instead of JSON
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Database
	MySQLURL string // MYSQL_URL (or DATABASE_URL): mysql:// URL or raw DSN; empty → SQLite fallback
	DBPath   string // DB_PATH: SQLite path used when MYSQL_URL is unset
	Pool     PoolConfig

	// Messaging
	GreenAPI     GreenAPIConfig
	WebhookURL   string // WEBHOOK_URL: public URL registered with Green API
	WebhookToken string // WEBHOOK_TOKEN: shared secret checked on inbound webhooks

	// Reminders
	Reminder ReminderConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Webhook dedup
	ReceiptTTL time.Duration // how long a processed webhook receipt is remembered

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       NormalizeLogLevel(getenv("LOG_LEVEL", LevelInfo)),
		LogPretty:      getbool("LOG_PRETTY", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Database
		MySQLURL: sysutil.FirstNonEmpty(os.Getenv("MYSQL_URL"), os.Getenv("DATABASE_URL")),
		DBPath:   getenv("DB_PATH", "reminder.db"),
		Pool: PoolConfig{
			Size:           getint("POOL_SIZE", 10),
			Overflow:       getint("POOL_OVERFLOW", 5),
			AcquireTimeout: getdur("POOL_ACQUIRE_TIMEOUT", 30*time.Second),
			ConnMaxAge:     getdur("CONN_MAX_AGE", time.Hour),
			PingRetries:    getint("PING_RETRIES", 3),
		},

		// Messaging
		GreenAPI: GreenAPIConfig{
			BaseURL:    getenv("GREEN_API_BASE_URL", "https://api.green-api.com"),
			InstanceID: getenv("GREEN_API_INSTANCE_ID", ""),
			Token:      getenv("GREEN_API_TOKEN", ""),
		},
		WebhookURL:   getenv("WEBHOOK_URL", ""),
		WebhookToken: getenv("WEBHOOK_TOKEN", ""),

		// Reminders
		Reminder: ReminderConfig{
			Interval:         getdur("REMINDER_INTERVAL", 30*time.Minute),
			Lookahead:        getdur("REMINDER_LOOKAHEAD", 30*time.Minute),
			EscalationWindow: getdur("ESCALATION_WINDOW", 2*time.Hour),
			MaxMessages:      getint("REMINDER_MAX_MESSAGES", 5),
			InstanceHorizon:  getdur("INSTANCE_HORIZON", 7*24*time.Hour),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Webhook dedup
		ReceiptTTL: getdur("RECEIPT_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-reminder-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MySQLURL == "" && strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty when MYSQL_URL is unset")
	}
	if cfg.Pool.Size < 1 {
		return cfg, errors.New("POOL_SIZE must be >= 1")
	}
	if cfg.Pool.Overflow < 0 {
		return cfg, errors.New("POOL_OVERFLOW must be >= 0")
	}
	if cfg.Pool.AcquireTimeout <= 0 {
		return cfg, errors.New("POOL_ACQUIRE_TIMEOUT must be > 0")
	}
	if cfg.Pool.ConnMaxAge <= 0 {
		return cfg, errors.New("CONN_MAX_AGE must be > 0")
	}
	if cfg.Pool.PingRetries < 1 {
		return cfg, errors.New("PING_RETRIES must be >= 1")
	}
	if cfg.Reminder.Interval <= 0 || cfg.Reminder.Lookahead <= 0 || cfg.Reminder.EscalationWindow <= 0 {
		return cfg, errors.New("reminder durations must be positive")
	}
	if cfg.Reminder.MaxMessages < 1 {
		return cfg, errors.New("REMINDER_MAX_MESSAGES must be >= 1")
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
	if cfg.ReceiptTTL <= 0 {
		return cfg, errors.New("RECEIPT_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// NormalizeLogLevel maps an arbitrary string to one of the five canonical
// level names. Matching is case-insensitive; "WARN" is accepted as an alias
// for WARNING. Unrecognized or empty input yields LevelInfo — a bad LOG_LEVEL
// must never fail startup.
func NormalizeLogLevel(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case LevelDebug:
		return LevelDebug
	case LevelInfo:
		return LevelInfo
	case LevelWarning, "WARN":
		return LevelWarning
	case LevelError:
		return LevelError
	case LevelCritical:
		return LevelCritical
	default:
		return LevelInfo
	}
}

// MySQLDSN translates MySQLURL into a go-sql-driver DSN. The hosting platform
// hands out mysql:// URLs; a raw "user:pass@tcp(host)/db" DSN is passed
// through untouched. Returns "" when MYSQL_URL is unset.
func (c Config) MySQLDSN() (string, error) {
	raw := strings.TrimSpace(c.MySQLURL)
	if raw == "" {
		return "", nil
	}
	if !strings.Contains(raw, "://") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse MYSQL_URL: %w", err)
	}
	if u.Scheme != "mysql" {
		return "", fmt.Errorf("unsupported MYSQL_URL scheme %q", u.Scheme)
	}
	pass, _ := u.User.Password()
	host := u.Host
	if u.Port() == "" {
		host += ":3306"
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC", u.User.Username(), pass, host, dbName)
	return dsn, nil
}

// UseMySQL reports whether a MySQL connection string is configured.
func (c Config) UseMySQL() bool { return strings.TrimSpace(c.MySQLURL) != "" }

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no", "n", "off":
			return false
		}
		if sysutil.IsTruthy(v) {
			return true
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
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
