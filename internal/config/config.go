// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the persistence connection, the outbound mail channel, the
// post-response task runner, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported persistence drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported mail transports.
const (
	TransportSMTP = "smtp"
	TransportSES  = "ses"
	TransportLog  = "log"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
// An empty AllowedOrigins list means any origin is allowed.
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
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and addresses the status-check store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite file)
	URL    string // DB_URL (postgres connection string)
	Name   string // DB_NAME (postgres database name)
	Trace  bool   // mirrors OTEL.Enabled; set by Load
}

// MailConfig describes the outbound notification channel.
type MailConfig struct {
	Transport string        // MAIL_TRANSPORT: smtp|ses|log
	From      string        // GMAIL_EMAIL (also the SMTP username)
	Password  string        // GMAIL_APP_PASSWORD
	Recipient string        // RECIPIENT_EMAIL
	SMTPHost  string        // SMTP_HOST
	SMTPPort  int           // SMTP_PORT (implicit TLS)
	Timeout   time.Duration // MAIL_TIMEOUT
	SESRegion string        // SES_REGION
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // HTTP drain + background tasks
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DB          DBConfig
	CatalogPath string // optional JSON override of the embedded catalog
	Mail        MailConfig

	// Post-response tasks
	TaskConcurrency int

	// Rate limiting on the contact form
	ContactRPS   float64 // tokens per second (>= 0)
	ContactBurst int     // bucket size (>= 1)

	// Web protection
	CORS           CORSConfig
	Security       SecurityConfig
	TrustedProxies []string // TRUSTED_PROXIES: IPs/CIDRs allowed to set X-Forwarded-For; empty trusts none

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
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 15*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// App
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
			Path:   getenv("DB_PATH", "app.db"),
			URL:    getenv("DB_URL", ""),
			Name:   getenv("DB_NAME", ""),
		},
		CatalogPath: getenv("CATALOG_PATH", ""),
		Mail: MailConfig{
			Transport: strings.ToLower(getenv("MAIL_TRANSPORT", TransportSMTP)),
			From:      strings.TrimSpace(getenv("GMAIL_EMAIL", "")),
			Password:  getenv("GMAIL_APP_PASSWORD", ""),
			Recipient: strings.TrimSpace(getenv("RECIPIENT_EMAIL", "")),
			SMTPHost:  getenv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:  getint("SMTP_PORT", 465),
			Timeout:   getdur("MAIL_TIMEOUT", 30*time.Second),
			SESRegion: getenv("SES_REGION", "eu-central-1"),
		},

		TaskConcurrency: getint("TASKS_MAX_CONCURRENCY", 8),

		ContactRPS:   getfloat("CONTACT_RATE_RPS", 0.2),
		ContactBurst: getint("CONTACT_RATE_BURST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		TrustedProxies: splitCSV(getenv("TRUSTED_PROXIES", "")),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "site-backend"),
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
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = DriverPostgres
	}
	cfg.DB.Trace = cfg.OTEL.Enabled

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if err := validateDB(cfg.DB); err != nil {
		return cfg, err
	}
	if err := validateMail(cfg.Mail); err != nil {
		return cfg, err
	}
	if cfg.TaskConcurrency < 1 {
		return cfg, errors.New("TASKS_MAX_CONCURRENCY must be >= 1")
	}
	if cfg.ContactRPS < 0 {
		return cfg, errors.New("CONTACT_RATE_RPS must be >= 0")
	}
	if cfg.ContactBurst < 1 {
		return cfg, errors.New("CONTACT_RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	for _, p := range cfg.TrustedProxies {
		if !validProxy(p) {
			return cfg, fmt.Errorf("TRUSTED_PROXIES: %q is not an IP address or CIDR", p)
		}
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func validateDB(db DBConfig) error {
	switch db.Driver {
	case DriverSQLite:
		if strings.TrimSpace(db.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case DriverPostgres:
		if strings.TrimSpace(db.URL) == "" {
			return errors.New("DB_URL is required for the postgres driver")
		}
		if strings.TrimSpace(db.Name) == "" {
			return errors.New("DB_NAME is required for the postgres driver")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	return nil
}

func validateMail(m MailConfig) error {
	switch m.Transport {
	case TransportSMTP:
		if m.From == "" || m.Password == "" || m.Recipient == "" {
			return errors.New("GMAIL_EMAIL, GMAIL_APP_PASSWORD and RECIPIENT_EMAIL are required for the smtp transport")
		}
		if strings.TrimSpace(m.SMTPHost) == "" {
			return errors.New("SMTP_HOST must not be empty")
		}
		if m.SMTPPort < 1 || m.SMTPPort > 65535 {
			return errors.New("SMTP_PORT must be between 1 and 65535")
		}
	case TransportSES:
		if m.From == "" || m.Recipient == "" {
			return errors.New("GMAIL_EMAIL and RECIPIENT_EMAIL are required for the ses transport")
		}
		if strings.TrimSpace(m.SESRegion) == "" {
			return errors.New("SES_REGION must not be empty")
		}
	case TransportLog:
	default:
		return errors.New("MAIL_TRANSPORT must be one of: smtp, ses, log")
	}
	if m.Timeout <= 0 {
		return errors.New("MAIL_TIMEOUT must be a positive duration")
	}
	return nil
}

// ---- helpers (no external deps) ----

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

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
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
