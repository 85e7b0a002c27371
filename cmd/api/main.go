package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/chuckycastle/mealtogether/backend/config"
	"github.com/chuckycastle/mealtogether/backend/internal/api"
	"github.com/chuckycastle/mealtogether/backend/internal/database"
	"github.com/chuckycastle/mealtogether/backend/internal/extract"
	"github.com/chuckycastle/mealtogether/backend/internal/fetch"
	"github.com/chuckycastle/mealtogether/backend/internal/middleware"
	"github.com/chuckycastle/mealtogether/backend/internal/safeurl"
	"github.com/chuckycastle/mealtogether/backend/internal/server"
	"github.com/chuckycastle/mealtogether/backend/internal/service"
	"github.com/chuckycastle/mealtogether/backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	kv, circuitStore, limiter, err := buildStores(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize storage")
	}

	breaker := service.NewCircuitBreaker(circuitStore, cfg.CircuitThreshold, cfg.CircuitCooldown, log)
	cache := service.NewImportCache(kv, cfg.CacheTTL, log)

	var providers []service.Provider
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, service.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicAPIURL, cfg.AnthropicModel, cfg.LLMTimeout))
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, service.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIAPIURL, cfg.OpenAIModel, cfg.LLMTimeout))
	}
	if len(providers) == 0 {
		log.Warn("no normalization providers configured, imports will use extraction output directly")
	}

	fetcher := fetch.NewFetcher(safeurl.NewValidator(), fetch.Options{
		Timeout:      cfg.FetchTimeout,
		MaxBytes:     cfg.MaxResponseBytes,
		MaxRedirects: cfg.MaxRedirects,
	}, log)

	extractor := extract.NewExtractor(extract.Limits{
		MaxIngredients:     cfg.MaxIngredients,
		MaxSteps:           cfg.MaxSteps,
		MaxIngredientChars: cfg.MaxIngredientChars,
		MaxStepChars:       cfg.MaxStepChars,
	}, log)

	normalizer := service.NewNormalizer(providers, breaker, cfg.LLMTimeout, log)
	importer := service.NewImportService(cache, fetcher, extractor, normalizer, log)

	srv := server.New(cfg,
		api.NewImportHandler(importer, log),
		api.NewHealthHandler(breaker),
		limiter,
		log,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.WithError(err).Fatal("server error")
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		log.WithError(err).Fatal("shutdown error")
	}
	log.Info("server stopped")
}

// buildStores picks the persistence backend for the import cache and circuit
// state. Redis also backs the rate limiter when available; with the postgres
// backend the limiter is disabled.
func buildStores(cfg *config.Config, log *logrus.Logger) (store.KV, store.CircuitStore, *middleware.RateLimiter, error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		gs, err := store.NewGormStore(db)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("using postgres import store")
		return gs, gs, middleware.NewImportRateLimiter(nil, cfg.ImportRateLimit, cfg.ImportRateWindow), nil
	default:
		client, err := database.NewRedisClient(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		rs := store.NewRedisStore(client)
		log.Info("using redis import store")
		return rs, rs, middleware.NewImportRateLimiter(client, cfg.ImportRateLimit, cfg.ImportRateWindow), nil
	}
}
