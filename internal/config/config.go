package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	quotifystripe "github.com/quotify/api/internal/stripe"
)

type Config struct {
	Env     string // "development" or "production"
	Port    int
	BaseURL string

	Stripe   StripeConfig
	Checkout CheckoutConfig
	Snapshot SnapshotConfig
	S3       S3Config

	ValidationMode string // "permissive" or "strict"

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

// StripeConfig holds the Stripe credentials.
type StripeConfig struct {
	SecretKey     string
	PublicKey     string
	WebhookSecret string
	PriceID       string
}

// CheckoutConfig selects how the payment step behaves.
type CheckoutConfig struct {
	Mode       string // "embedded" or "redirect"
	AmountMode string // "fixed" or "quote"
	ServiceFee decimal.Decimal
	Currency   string
}

// SnapshotConfig selects where the quote snapshot lives.
type SnapshotConfig struct {
	Backend  string // "local", "s3" or "redis"
	Path     string // local-only: directory
	RedisURL string
	TTL      time.Duration // redis-only; 0 keeps the key forever
}

// S3Config holds settings for S3-compatible object storage (CEPH, MinIO, AWS).
type S3Config struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	Bucket         string
	Prefix         string
}

// Production reports whether the service runs with production safeguards.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// LoadEnvFile reads KEY=value pairs from the given .env files into the
// process environment. Variables that are already set win. Missing files
// are ignored.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from the environment. In production a Stripe
// secret key and a real webhook secret are required; all problems are
// reported together.
func Load() (*Config, error) {
	cfg := load()

	var errs []error
	if cfg.Production() {
		if cfg.Stripe.SecretKey == "" {
			errs = append(errs, fmt.Errorf("STRIPE_SECRET_KEY is required in production"))
		}
		if !quotifystripe.SecretConfigured(cfg.Stripe.WebhookSecret) {
			errs = append(errs, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production"))
		}
	}
	if !oneOf(cfg.Checkout.Mode, "embedded", "redirect") {
		errs = append(errs, fmt.Errorf("CHECKOUT_MODE must be embedded or redirect, got %q", cfg.Checkout.Mode))
	}
	if !oneOf(cfg.Checkout.AmountMode, "fixed", "quote") {
		errs = append(errs, fmt.Errorf("CHECKOUT_AMOUNT_MODE must be fixed or quote, got %q", cfg.Checkout.AmountMode))
	}
	if !cfg.Checkout.ServiceFee.IsPositive() {
		errs = append(errs, fmt.Errorf("CHECKOUT_SERVICE_FEE must be positive"))
	}
	switch cfg.Snapshot.Backend {
	case "local":
	case "s3":
		if cfg.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("S3_BUCKET is required for the s3 snapshot backend"))
		}
	case "redis":
		if cfg.Snapshot.RedisURL == "" {
			errs = append(errs, fmt.Errorf("REDIS_URL is required for the redis snapshot backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("SNAPSHOT_BACKEND must be local, s3 or redis, got %q", cfg.Snapshot.Backend))
	}
	if !oneOf(cfg.ValidationMode, "permissive", "strict") {
		errs = append(errs, fmt.Errorf("VALIDATION_MODE must be permissive or strict, got %q", cfg.ValidationMode))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// LoadDev loads config with development defaults (no required fields).
func LoadDev() *Config {
	cfg, err := Load()
	if err != nil {
		// In dev mode, use sensible defaults for missing or invalid fields
		cfg = load()
		cfg.Stripe.SecretKey = getEnv("STRIPE_SECRET_KEY", "sk_test_fake")
		cfg.Stripe.PublicKey = getEnv("STRIPE_PUBLIC_KEY", "pk_test_fake")
		if !oneOf(cfg.Checkout.Mode, "embedded", "redirect") {
			cfg.Checkout.Mode = "embedded"
		}
		if !oneOf(cfg.Checkout.AmountMode, "fixed", "quote") {
			cfg.Checkout.AmountMode = "fixed"
		}
		if !cfg.Checkout.ServiceFee.IsPositive() {
			cfg.Checkout.ServiceFee = defaultServiceFee
		}
		if !oneOf(cfg.Snapshot.Backend, "local", "s3", "redis") ||
			(cfg.Snapshot.Backend == "s3" && cfg.S3.Bucket == "") ||
			(cfg.Snapshot.Backend == "redis" && cfg.Snapshot.RedisURL == "") {
			cfg.Snapshot.Backend = "local"
		}
		if !oneOf(cfg.ValidationMode, "permissive", "strict") {
			cfg.ValidationMode = "permissive"
		}
	}
	return cfg
}

var defaultServiceFee = decimal.RequireFromString("0.50")

func load() *Config {
	return &Config{
		Env:     strings.ToLower(getEnv("APP_ENV", "development")),
		Port:    getEnvInt("PORT", 8080),
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			PublicKey:     getEnv("STRIPE_PUBLIC_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceID:       getEnv("STRIPE_PRICE_ID", ""),
		},

		Checkout: CheckoutConfig{
			Mode:       strings.ToLower(getEnv("CHECKOUT_MODE", "embedded")),
			AmountMode: strings.ToLower(getEnv("CHECKOUT_AMOUNT_MODE", "fixed")),
			ServiceFee: getEnvDecimal("CHECKOUT_SERVICE_FEE", defaultServiceFee),
			Currency:   strings.ToUpper(getEnv("CHECKOUT_CURRENCY", "EUR")),
		},

		Snapshot: SnapshotConfig{
			Backend:  strings.ToLower(getEnv("SNAPSHOT_BACKEND", "local")),
			Path:     getEnv("SNAPSHOT_PATH", "./data"),
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      getEnvDuration("SNAPSHOT_TTL", 0),
		},

		S3: S3Config{
			Endpoint:       getEnv("S3_ENDPOINT", ""),
			Region:         getEnv("S3_REGION", "us-east-1"),
			AccessKey:      getEnv("S3_ACCESS_KEY_ID", ""),
			SecretKey:      getEnv("S3_SECRET_ACCESS_KEY", ""),
			ForcePathStyle: getEnvBool("S3_FORCE_PATH_STYLE", true),
			Bucket:         getEnv("S3_BUCKET", ""),
			Prefix:         getEnv("S3_PREFIX", "quotify"),
		},

		ValidationMode: strings.ToLower(getEnv("VALIDATION_MODE", "permissive")),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),
		CORSOrigins:    getEnvList("CORS_ORIGINS", nil),
	}
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
