package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	CurrencyCode  string
	BillPrefix    string
	VoucherPrefix string
	ReceiptPrefix string
	ReturnPrefix  string

	LowStockThreshold int64

	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	RefreshCookieName     string
	RefreshCookieDomain   string
	RefreshCookieSecure   bool
	RefreshCookieSameSite http.SameSite

	IdempotencyTTL  time.Duration
	CatalogCacheTTL time.Duration
	ReportCacheTTL  time.Duration
	ReturnLockTTL   time.Duration

	CatalogDefaultLimit int
	CatalogMaxLimit     int
	ListDefaultLimit    int

	RateLimitPerMinute int64

	DBTimeout       time.Duration
	WebhookSecret   string
	WebhookEnabled  bool
	WebhookTimeout  time.Duration
	WorkerQueueName string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CurrencyCode:  valueOrDefault(k.String("CURRENCY_CODE"), "INR"),
		BillPrefix:    valueOrDefault(k.String("BILL_NUMBER_PREFIX"), "INV"),
		VoucherPrefix: valueOrDefault(k.String("VOUCHER_NUMBER_PREFIX"), "PUR"),
		ReceiptPrefix: valueOrDefault(k.String("RECEIPT_NUMBER_PREFIX"), "RCP"),
		ReturnPrefix:  valueOrDefault(k.String("RETURN_NUMBER_PREFIX"), "RET"),

		LowStockThreshold: int64(k.Int("LOW_STOCK_THRESHOLD")),

		AccessTokenTTL:        parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		RefreshTokenTTL:       parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),
		RefreshCookieName:     valueOrDefault(k.String("REFRESH_COOKIE_NAME"), "kasir_refresh"),
		RefreshCookieDomain:   strings.TrimSpace(k.String("REFRESH_COOKIE_DOMAIN")),
		RefreshCookieSecure:   parseBool(k.String("REFRESH_COOKIE_SECURE")),
		RefreshCookieSameSite: parseSameSite(k.String("REFRESH_COOKIE_SAMESITE")),

		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		ReportCacheTTL:  parseDuration(k.String("REPORT_CACHE_TTL"), "10m"),
		ReturnLockTTL:   parseDuration(k.String("RETURN_LOCK_TTL"), "15s"),

		CatalogDefaultLimit: intOrDefault(k.Int("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     intOrDefault(k.Int("CATALOG_MAX_LIMIT"), 100),
		ListDefaultLimit:    intOrDefault(k.Int("LIST_DEFAULT_LIMIT"), 20),

		RateLimitPerMinute: int64(intOrDefault(k.Int("RATE_LIMIT_PER_MINUTE"), 300)),

		DBTimeout:       parseDuration(k.String("DB_TIMEOUT"), "5s"),
		WebhookSecret:   k.String("WEBHOOK_SECRET"),
		WebhookEnabled:  parseBool(k.String("WEBHOOK_DELIVERY_ENABLED")),
		WebhookTimeout:  parseDuration(k.String("WEBHOOK_REQUEST_TIMEOUT"), "10s"),
		WorkerQueueName: valueOrDefault(k.String("WORKER_QUEUE_NAME"), "default"),
	}

	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = 5
	}
	if cfg.RefreshCookieSameSite == http.SameSiteDefaultMode {
		cfg.RefreshCookieSameSite = http.SameSiteLaxMode
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
