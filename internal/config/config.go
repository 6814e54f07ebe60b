package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/taxrate"
	pkgconfig "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/config"
)

// Config holds all configuration for the back-office service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"backoffice"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"backoffice_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"backoffice"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis (cart sessions, checkout and consumer idempotency)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Sales tax. TaxSettingsURL, when set, is polled for the live rate and
	// TaxRate becomes the fallback.
	TaxRate            string `env:"TAX_RATE" envDefault:"0.0825"`
	TaxSettingsURL     string `env:"TAX_SETTINGS_URL"`
	TaxCacheTTLSeconds int    `env:"TAX_CACHE_TTL_SECONDS" envDefault:"300"`

	// Session and idempotency lifetimes
	CartTTLMinutes        int `env:"CART_TTL_MINUTES" envDefault:"720"`
	IdempotencyTTLMinutes int `env:"IDEMPOTENCY_TTL_MINUTES" envDefault:"1440"`

	// Deadline of each /api/v1 request.
	RequestTimeoutSeconds int `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"30"`

	// Order IDs and payment dates use the store's local calendar.
	StoreTimezone string `env:"STORE_TIMEZONE" envDefault:"America/Chicago"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Browser origins of the dashboard and register UIs; empty disables CORS.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Per-client API throttle; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	taxRate  decimal.Decimal
	location *time.Location
}

// Load reads configuration from environment variables.
func Load(opts ...pkgconfig.Option) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("load backoffice config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants and resolves derived values.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0, got %f", c.RateLimitRPS)
	}

	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return fmt.Errorf("TAX_RATE must be a decimal, got %q", c.TaxRate)
	}
	if err := taxrate.Validate(rate); err != nil {
		return fmt.Errorf("TAX_RATE: %w", err)
	}
	c.taxRate = rate

	if c.TaxCacheTTLSeconds <= 0 {
		return fmt.Errorf("TAX_CACHE_TTL_SECONDS must be > 0, got %d", c.TaxCacheTTLSeconds)
	}
	if c.CartTTLMinutes <= 0 {
		return fmt.Errorf("CART_TTL_MINUTES must be > 0, got %d", c.CartTTLMinutes)
	}
	if c.IdempotencyTTLMinutes <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL_MINUTES must be > 0, got %d", c.IdempotencyTTLMinutes)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be > 0, got %d", c.RequestTimeoutSeconds)
	}

	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return fmt.Errorf("STORE_TIMEZONE: %w", err)
	}
	c.location = loc
	return nil
}

// SalesTaxRate is the parsed TAX_RATE.
func (c *Config) SalesTaxRate() decimal.Decimal { return c.taxRate }

// Location is the parsed STORE_TIMEZONE.
func (c *Config) Location() *time.Location { return c.location }

// CartTTL is how long an idle register cart is kept.
func (c *Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLMinutes) * time.Minute
}

// IdempotencyTTL is how long a checkout idempotency key is remembered.
func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLMinutes) * time.Minute
}

// RequestTimeout is the deadline of each API request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// pendingCheckoutMargin covers the gap between a request's deadline and the
// moment its transaction is certain to have ended.
const pendingCheckoutMargin = 30 * time.Second

// PendingCheckoutTTL is how long an in-flight checkout holds its idempotency
// key. It outlives the request deadline, so a retry cannot start a second
// sale while the first may still commit.
func (c *Config) PendingCheckoutTTL() time.Duration {
	return c.RequestTimeout() + pendingCheckoutMargin
}

// TaxCacheTTL is how long a fetched tax rate is reused.
func (c *Config) TaxCacheTTL() time.Duration {
	return time.Duration(c.TaxCacheTTLSeconds) * time.Second
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
