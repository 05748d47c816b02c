// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the settings of both
// processes in this repository: the quote store HTTP service (server timeouts,
// database, API key, rate limiting) and the broadcaster (store address, cycle
// interval, SMS provider credentials, delivery queue backend).
//
// A Config is built once at startup and passed explicitly to every component
// that needs it; nothing in this package keeps global mutable state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "quote-store")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StoreConfig holds the persistence settings of the quote store.
type StoreConfig struct {
	Driver      string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // postgres DSN, required when Driver == "postgres"
	APIKey      string // value expected in the api-key request header
}

// ProviderConfig holds the outbound SMS provider credentials.
type ProviderConfig struct {
	AccountSID string        // TWILIO_ACCOUNT_SID
	AuthToken  string        // TWILIO_AUTH_TOKEN
	FromNumber string        // TWILIO_FROM_PHONENUMBER, origin identity of every message
	Endpoint   string        // TWILIO_ENDPOINT, derived from AccountSID when empty
	Timeout    time.Duration // SEND_TIMEOUT, per message
	RatePerSec float64       // SEND_RATE_PER_SEC, 0 disables pacing
}

// QueueConfig selects the delivery queue backend.
type QueueConfig struct {
	Backend  string // memory|redis
	RedisURL string // REDIS_URL
	Key      string // QUEUE_KEY prefix; an instance id is appended at runtime
}

// BroadcastConfig holds the settings of the broadcast loop process.
type BroadcastConfig struct {
	StoreAddress string        // STORE_ADDRESS, base URL of the quote store
	StoreAPIKey  string        // STORE_API_KEY
	StoreTimeout time.Duration // STORE_TIMEOUT, per store request
	PageSize     int           // STORE_PAGE_SIZE, listener page size used by the cursor
	Interval     time.Duration // BROADCAST_INTERVAL, sleep between cycles
	MetricsAddr  string        // METRICS_ADDR, empty disables the metrics listener

	Provider ProviderConfig
	Queue    QueueConfig
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

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	LogFile     string // optional rotating log file
	APIBasePath string // base path for API routes

	// Store
	Store StoreConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Broadcaster
	Broadcast BroadcastConfig

	// Observability
	OTEL OTELConfig
}

// twilioEndpointFormat is the provider's message creation endpoint.
const twilioEndpointFormat = "https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json"

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
//
// Broadcaster-only settings (provider credentials, store address) are not
// validated here; ValidateBroadcast checks them so the store process can run
// without them.
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

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		LogFile:     getenv("LOG_FILE", ""),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/")),

		// Store
		Store: StoreConfig{
			Driver:      strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DBPath:      getenv("DB_PATH", "quotes.db"),
			DatabaseURL: getenv("DATABASE_URL", ""),
			APIKey:      getenv("API_KEY", ""),
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

		// Broadcaster
		Broadcast: BroadcastConfig{
			StoreAddress: strings.TrimRight(getenv("STORE_ADDRESS", "http://localhost:8080"), "/"),
			StoreAPIKey:  getenv("STORE_API_KEY", ""),
			StoreTimeout: getdur("STORE_TIMEOUT", 2*time.Second),
			PageSize:     getint("STORE_PAGE_SIZE", 10),
			Interval:     getdur("BROADCAST_INTERVAL", 10*time.Second),
			MetricsAddr:  getenv("METRICS_ADDR", ""),
			Provider: ProviderConfig{
				AccountSID: getenv("TWILIO_ACCOUNT_SID", ""),
				AuthToken:  getenv("TWILIO_AUTH_TOKEN", ""),
				FromNumber: getenv("TWILIO_FROM_PHONENUMBER", ""),
				Endpoint:   getenv("TWILIO_ENDPOINT", ""),
				Timeout:    getdur("SEND_TIMEOUT", time.Second),
				RatePerSec: getfloat("SEND_RATE_PER_SEC", 0),
			},
			Queue: QueueConfig{
				Backend:  strings.ToLower(getenv("QUEUE_BACKEND", "memory")),
				RedisURL: getenv("REDIS_URL", ""),
				Key:      getenv("QUEUE_KEY", "broadcast:outbound"),
			},
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "quote-broadcaster"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
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
	if cfg.Broadcast.Provider.Endpoint == "" && cfg.Broadcast.Provider.AccountSID != "" {
		cfg.Broadcast.Provider.Endpoint = fmt.Sprintf(twilioEndpointFormat, cfg.Broadcast.Provider.AccountSID)
	}

	return cfg, cfg.validate()
}

// problems accumulates validation failures; err joins them.
type problems []error

func (p *problems) check(ok bool, msg string) {
	if !ok {
		*p = append(*p, errors.New(msg))
	}
}

func (p problems) err() error { return errors.Join(p...) }

func (c Config) validate() error {
	var p problems
	p.check(oneOf(c.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"),
		"LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	p.check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	p.check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	p.check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	switch c.Store.Driver {
	case "sqlite":
		p.check(strings.TrimSpace(c.Store.DBPath) != "", "DB_PATH must not be empty")
	case "postgres":
		p.check(strings.TrimSpace(c.Store.DatabaseURL) != "", "DATABASE_URL must be set when DB_DRIVER=postgres")
	default:
		p.check(false, "DB_DRIVER must be one of: sqlite, postgres")
	}
	p.check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	p.check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	p.check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	p.check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	b := c.Broadcast
	p.check(b.PageSize >= 1 && b.PageSize <= 100, "STORE_PAGE_SIZE must be between 1 and 100")
	p.check(b.Interval > 0 && b.StoreTimeout > 0 && b.Provider.Timeout > 0,
		"BROADCAST_INTERVAL, STORE_TIMEOUT and SEND_TIMEOUT must be positive durations")
	p.check(b.Provider.RatePerSec >= 0, "SEND_RATE_PER_SEC must be >= 0")
	p.check(oneOf(b.Queue.Backend, "memory", "redis"), "QUEUE_BACKEND must be one of: memory, redis")
	return p.err()
}

// ValidateBroadcast checks the settings only the broadcaster needs.
func (c Config) ValidateBroadcast() error {
	b := c.Broadcast
	var p problems
	p.check(strings.TrimSpace(b.StoreAddress) != "", "STORE_ADDRESS must not be empty")
	p.check(strings.TrimSpace(b.Provider.FromNumber) != "", "TWILIO_FROM_PHONENUMBER must not be empty")
	p.check(strings.TrimSpace(b.Provider.Endpoint) != "", "TWILIO_ACCOUNT_SID or TWILIO_ENDPOINT must be set")
	p.check(b.Queue.Backend != "redis" || strings.TrimSpace(b.Queue.RedisURL) != "",
		"REDIS_URL must be set when QUEUE_BACKEND=redis")
	return p.err()
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

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
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
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
	if p == "" {
		return "/"
	}
	return p
}
