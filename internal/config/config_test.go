package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	quotifystripe "github.com/quotify/api/internal/stripe"
)

// clearEnv unsets every variable the loader reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "BASE_URL",
		"STRIPE_SECRET_KEY", "STRIPE_PUBLIC_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_PRICE_ID",
		"CHECKOUT_MODE", "CHECKOUT_AMOUNT_MODE", "CHECKOUT_SERVICE_FEE", "CHECKOUT_CURRENCY",
		"SNAPSHOT_BACKEND", "SNAPSHOT_PATH", "REDIS_URL", "SNAPSHOT_TTL",
		"S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
		"S3_FORCE_PATH_STYLE", "S3_BUCKET", "S3_PREFIX",
		"VALIDATION_MODE", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ORIGINS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Production() {
		t.Error("default env should be development")
	}
	if cfg.Port != 8080 {
		t.Errorf("Port: want 8080, got %d", cfg.Port)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL: got %q", cfg.BaseURL)
	}
	if cfg.Checkout.Mode != "embedded" || cfg.Checkout.AmountMode != "fixed" || cfg.Checkout.Currency != "EUR" {
		t.Errorf("Checkout: got %+v", cfg.Checkout)
	}
	if !cfg.Checkout.ServiceFee.Equal(decimal.RequireFromString("0.50")) {
		t.Errorf("ServiceFee: want 0.50, got %s", cfg.Checkout.ServiceFee)
	}
	if cfg.Snapshot.Backend != "local" || cfg.Snapshot.Path != "./data" || cfg.Snapshot.TTL != 0 {
		t.Errorf("Snapshot: got %+v", cfg.Snapshot)
	}
	if cfg.ValidationMode != "permissive" {
		t.Errorf("ValidationMode: got %q", cfg.ValidationMode)
	}
	if cfg.RateLimitRPS != 20 || cfg.RateLimitBurst != 40 {
		t.Errorf("RateLimit: got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHECKOUT_MODE", "Redirect")
	t.Setenv("CHECKOUT_AMOUNT_MODE", "quote")
	t.Setenv("CHECKOUT_SERVICE_FEE", "1.25")
	t.Setenv("SNAPSHOT_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SNAPSHOT_TTL", "72h")
	t.Setenv("VALIDATION_MODE", "strict")
	t.Setenv("CORS_ORIGINS", "https://a.test, ,https://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Checkout.Mode != "redirect" || cfg.Checkout.AmountMode != "quote" {
		t.Errorf("Checkout: got %+v", cfg.Checkout)
	}
	if !cfg.Checkout.ServiceFee.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("ServiceFee: got %s", cfg.Checkout.ServiceFee)
	}
	if cfg.Snapshot.Backend != "redis" || cfg.Snapshot.TTL != 72*time.Hour {
		t.Errorf("Snapshot: got %+v", cfg.Snapshot)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.test" {
		t.Errorf("CORSOrigins: got %v", cfg.CORSOrigins)
	}
}

func TestLoad_ProductionRequiresStripeSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing Stripe secrets in production")
	}
	for _, want := range []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	t.Setenv("STRIPE_SECRET_KEY", "sk_live_x")
	t.Setenv("STRIPE_WEBHOOK_SECRET", quotifystripe.PlaceholderWebhookSecret)
	if _, err := Load(); err == nil {
		t.Fatal("placeholder webhook secret accepted in production")
	}

	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_real")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Production() {
		t.Error("expected production")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"checkout mode", map[string]string{"CHECKOUT_MODE": "popup"}, "CHECKOUT_MODE"},
		{"amount mode", map[string]string{"CHECKOUT_AMOUNT_MODE": "free"}, "CHECKOUT_AMOUNT_MODE"},
		{"negative fee", map[string]string{"CHECKOUT_SERVICE_FEE": "-1"}, "CHECKOUT_SERVICE_FEE"},
		{"backend", map[string]string{"SNAPSHOT_BACKEND": "ftp"}, "SNAPSHOT_BACKEND"},
		{"s3 without bucket", map[string]string{"SNAPSHOT_BACKEND": "s3"}, "S3_BUCKET"},
		{"redis without url", map[string]string{"SNAPSHOT_BACKEND": "redis"}, "REDIS_URL"},
		{"validation mode", map[string]string{"VALIDATION_MODE": "lenient"}, "VALIDATION_MODE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoadDev_RepairsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHECKOUT_MODE", "popup")
	t.Setenv("SNAPSHOT_BACKEND", "s3")

	cfg := LoadDev()
	if cfg == nil {
		t.Fatal("LoadDev returned nil")
	}
	if cfg.Checkout.Mode != "embedded" {
		t.Errorf("Checkout.Mode: got %q", cfg.Checkout.Mode)
	}
	if cfg.Snapshot.Backend != "local" {
		t.Errorf("Snapshot.Backend: got %q", cfg.Snapshot.Backend)
	}
	if cfg.Stripe.SecretKey != "sk_test_fake" {
		t.Errorf("Stripe.SecretKey: got %q", cfg.Stripe.SecretKey)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")

	path := filepath.Join(t.TempDir(), ".env")
	content := "PORT=7000\nCHECKOUT_CURRENCY=usd\n# comment\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CHECKOUT_CURRENCY") })

	if err := LoadEnvFile(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	cfg := LoadDev()
	if cfg.Port != 9999 {
		t.Errorf("existing env should win: Port = %d", cfg.Port)
	}
	if cfg.Checkout.Currency != "USD" {
		t.Errorf("Currency from .env: got %q", cfg.Checkout.Currency)
	}
}

func TestGetEnv(t *testing.T) {
	key := "QUOTIFY_TEST_ENV_VAR"
	os.Unsetenv(key)

	// Fallback when env var is not set.
	got := getEnv(key, "fallback-value")
	if got != "fallback-value" {
		t.Errorf("expected fallback, got %q", got)
	}

	// Uses env var when set.
	os.Setenv(key, "actual-value")
	defer os.Unsetenv(key)

	got = getEnv(key, "fallback-value")
	if got != "actual-value" {
		t.Errorf("expected 'actual-value', got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	key := "QUOTIFY_TEST_INT_VAR"
	os.Unsetenv(key)

	// Fallback.
	got := getEnvInt(key, 42)
	if got != 42 {
		t.Errorf("expected fallback 42, got %d", got)
	}

	// Valid integer.
	os.Setenv(key, "100")
	defer os.Unsetenv(key)
	got = getEnvInt(key, 42)
	if got != 100 {
		t.Errorf("expected 100, got %d", got)
	}

	// Invalid integer uses fallback.
	os.Setenv(key, "not-a-number")
	got = getEnvInt(key, 42)
	if got != 42 {
		t.Errorf("expected fallback 42 for invalid int, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	key := "QUOTIFY_TEST_BOOL_VAR"
	os.Unsetenv(key)

	// Fallback.
	got := getEnvBool(key, true)
	if !got {
		t.Error("expected fallback true")
	}

	// Valid true.
	os.Setenv(key, "true")
	defer os.Unsetenv(key)
	got = getEnvBool(key, false)
	if !got {
		t.Error("expected true")
	}

	// Valid false.
	os.Setenv(key, "false")
	got = getEnvBool(key, true)
	if got {
		t.Error("expected false")
	}

	// Invalid uses fallback.
	os.Setenv(key, "maybe")
	got = getEnvBool(key, true)
	if !got {
		t.Error("expected fallback true for invalid bool")
	}
}

func TestGetEnvDuration(t *testing.T) {
	key := "QUOTIFY_TEST_DUR_VAR"
	os.Unsetenv(key)

	// Fallback.
	got := getEnvDuration(key, 5*time.Second)
	if got != 5*time.Second {
		t.Errorf("expected fallback 5s, got %v", got)
	}

	// Valid duration.
	os.Setenv(key, "30s")
	defer os.Unsetenv(key)
	got = getEnvDuration(key, 5*time.Second)
	if got != 30*time.Second {
		t.Errorf("expected 30s, got %v", got)
	}

	// Invalid uses fallback.
	os.Setenv(key, "not-a-duration")
	got = getEnvDuration(key, 5*time.Second)
	if got != 5*time.Second {
		t.Errorf("expected fallback 5s for invalid duration, got %v", got)
	}
}
