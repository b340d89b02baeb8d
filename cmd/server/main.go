package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/quotify/api/internal/checkout"
	"github.com/quotify/api/internal/config"
	"github.com/quotify/api/internal/editor"
	apihandlers "github.com/quotify/api/internal/handlers/api"
	"github.com/quotify/api/internal/metrics"
	"github.com/quotify/api/internal/middleware"
	"github.com/quotify/api/internal/snapshot"
	"github.com/quotify/api/internal/storage"
	quotifystripe "github.com/quotify/api/internal/stripe"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := config.LoadEnvFile(".env"); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		if os.Getenv("APP_ENV") == "production" {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
		slog.Warn("configuration incomplete, using development defaults", "error", err)
		cfg = config.LoadDev()
	}

	ctx := context.Background()

	// Snapshot store
	store, closeStore, err := newSnapshotStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open snapshot store", "backend", cfg.Snapshot.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("snapshot store ready", "backend", cfg.Snapshot.Backend)

	// Metrics
	m := metrics.New("quotify", prometheus.NewRegistry())

	// Core
	ed := editor.New(ctx, editor.Options{
		Store:    store,
		Logger:   logger,
		Policy:   editor.ParsePolicy(cfg.ValidationMode),
		Observer: m,
	})

	stripeSvc := quotifystripe.NewService(cfg.Stripe.SecretKey, logger)
	if !quotifystripe.SecretConfigured(cfg.Stripe.WebhookSecret) {
		slog.Warn("stripe webhook secret not configured",
			"unverified_events_allowed", quotifystripe.UnverifiedEventsAllowed,
		)
	}

	orch := checkout.New(stripeSvc, ed, checkout.Config{
		Mode:       quotifystripe.Mode(cfg.Checkout.Mode),
		AmountMode: checkout.AmountMode(cfg.Checkout.AmountMode),
		ServiceFee: cfg.Checkout.ServiceFee,
		Currency:   cfg.Checkout.Currency,
		PriceID:    cfg.Stripe.PriceID,
		BaseURL:    cfg.BaseURL,
	}, m, logger)

	// Handlers
	exportHandler := apihandlers.NewExportHandler(ed, m, logger)
	quoteHandler := apihandlers.NewQuoteHandler(ed, logger)
	checkoutHandler := apihandlers.NewCheckoutHandler(orch, exportHandler, ed, cfg.Stripe.PublicKey, logger)
	webhookHandler := apihandlers.NewWebhookHandler(stripeSvc, m, logger, cfg.Stripe.WebhookSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	mux.Handle("GET /metrics", m.Handler())

	// The payment cancel URL lands here.
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/preview", http.StatusSeeOther)
	})

	quoteHandler.RegisterRoutes(mux)
	exportHandler.RegisterRoutes(mux)
	checkoutHandler.RegisterRoutes(mux)
	webhookHandler.RegisterRoutes(mux)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{cfg.BaseURL}
	}
	handler := middleware.Chain(mux,
		middleware.RequestLogger(logger),
		middleware.Recover(logger),
		middleware.CORS(origins...),
		middleware.RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		middleware.SecurityHeaders,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"checkout_mode", cfg.Checkout.Mode,
			"amount_mode", cfg.Checkout.AmountMode,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// newSnapshotStore opens the configured snapshot backend. The returned
// function releases it.
func newSnapshotStore(ctx context.Context, cfg *config.Config) (snapshot.Store, func(), error) {
	noop := func() {}

	switch cfg.Snapshot.Backend {
	case "s3":
		blob, err := storage.NewS3(ctx, storage.S3Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Bucket:         cfg.S3.Bucket,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("opening s3 bucket: %w", err)
		}
		return snapshot.NewBlobStore(blob), noop, nil

	case "redis":
		opts, err := redis.ParseURL(cfg.Snapshot.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("pinging redis: %w", err)
		}
		return snapshot.NewRedisStore(client, cfg.Snapshot.TTL), func() { client.Close() }, nil

	default:
		return snapshot.NewBlobStore(storage.NewLocal(cfg.Snapshot.Path)), noop, nil
	}
}
