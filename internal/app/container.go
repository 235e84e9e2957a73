// Package app assembles the long-lived services shared by every entry point.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"productstudio/internal/cache"
	"productstudio/internal/domain"
	"productstudio/internal/generation"
	"productstudio/internal/infra"
	"productstudio/internal/infra/credentials"
	"productstudio/internal/infra/redis"
	"productstudio/internal/metrics"
	"productstudio/internal/providers/genai"
	"productstudio/internal/resilience"
	"productstudio/internal/storage"
	"productstudio/internal/storage/memory"
	"productstudio/internal/storage/postgres"
	"productstudio/internal/storage/sqlite"
)

// Container owns the process-wide services. The circuit breakers and the
// analysis cache live here so every request shares the same instances.
type Container struct {
	Config   *infra.Config
	Logger   infra.Logger
	Provider *genai.Client
	Store    *storage.TaskStore
	Cache    *cache.AnalysisCache
	// Credentials is nil for the memory store backend.
	Credentials  *credentials.Store
	Orchestrator *generation.Orchestrator
	DefaultModel domain.ModelTier

	closers []func() error
}

// New wires every service from cfg. Call Close when done.
func New(ctx context.Context, cfg *infra.Config, logger infra.Logger) (c *Container, err error) {
	c = &Container{Config: cfg, Logger: logger, DefaultModel: domain.ParseModelTier(cfg.DefaultModelTier)}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	repo, kv, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	storeLogger := infra.Component(logger, "store")
	c.Store = storage.NewTaskStore(repo, storage.TaskStoreOptions{Logger: &storeLogger})

	cacheStore, err := c.openCacheStore(ctx, kv)
	if err != nil {
		return nil, err
	}
	cacheLogger := infra.Component(logger, "cache")
	c.Cache = cache.New(cache.Options{
		Store:    cacheStore,
		Logger:   &cacheLogger,
		OnLookup: metrics.CacheLookup,
	})
	if err := c.Cache.Load(ctx); err != nil {
		return nil, fmt.Errorf("load analysis cache: %w", err)
	}

	apiKey := cfg.GeminiAPIKey
	if kv != nil {
		c.Credentials = credentials.NewStore(kv)
		if apiKey, err = c.Credentials.Resolve(ctx, credentials.ProviderGemini, apiKey); err != nil {
			return nil, fmt.Errorf("resolve gemini api key: %w", err)
		}
	}

	genaiLogger := infra.Component(logger, "genai")
	c.Provider = genai.NewClient(genai.Options{
		APIKey:        apiKey,
		BaseURL:       cfg.GeminiBaseURL,
		AnalysisModel: cfg.GeminiModel,
		ProModel:      cfg.GeminiProModel,
		ImageModel:    cfg.GeminiImageModel,
		Logger:        &genaiLogger,
	})
	if c.Provider.Synthetic() {
		logger.Warn().Msg("app: GEMINI_API_KEY not set, serving synthetic analysis and images")
	}

	genLogger := infra.Component(logger, "generation")
	c.Orchestrator, err = generation.New(generation.Options{
		Analyzer:          c.Provider,
		Generator:         c.Provider,
		Store:             c.Store,
		Cache:             c.Cache,
		AnalysisBreaker:   c.newBreaker("analysis"),
		ImageBreaker:      c.newBreaker("image"),
		Retry:             resilience.Policy{MaxAttempts: cfg.RetryMaxAttempts},
		Logger:            &genLogger,
		StorageQuality:    cfg.JPEGQuality,
		DefaultImageCount: cfg.DefaultImageCount,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// openStore returns the task repository and, for database backends, the
// same database as a key-value store.
func (c *Container) openStore(ctx context.Context) (domain.TaskRepository, domain.KeyValueStore, error) {
	switch c.Config.StoreBackend {
	case "memory":
		return memory.NewRepository(), nil, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, c.Config.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		c.closers = append(c.closers, db.Close)
		repo := sqlite.NewRepository(db)
		return repo, repo, nil
	case "postgres":
		if err := postgres.Migrate(ctx, c.Config.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pool, err := infra.NewDBPool(ctx, c.Config)
		if err != nil {
			return nil, nil, err
		}
		c.closers = append(c.closers, func() error { pool.Close(); return nil })
		repo := postgres.NewRepository(infra.NewSQLRunner(pool, infra.Component(c.Logger, "sql")))
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", c.Config.StoreBackend)
	}
}

func (c *Container) openCacheStore(ctx context.Context, kv domain.KeyValueStore) (domain.KeyValueStore, error) {
	switch c.Config.CacheBackend {
	case "memory":
		return cache.NewMemoryStore(), nil
	case "file":
		return storage.NewFileStore(afero.NewOsFs(), c.Config.CachePath)
	case "redis":
		store, closeFn, err := redis.NewStore(ctx, redis.Config{URL: c.Config.RedisURL, TTL: cache.DefaultTTL})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, closeFn)
		return store, nil
	case "db":
		if kv == nil {
			return nil, errors.New("db cache backend needs a database store")
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", c.Config.CacheBackend)
	}
}

func (c *Container) newBreaker(name string) *resilience.CircuitBreaker {
	metrics.BreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(string(resilience.StateClosed)))
	return resilience.NewCircuitBreaker(resilience.BreakerOptions{
		Name:      name,
		Threshold: c.Config.BreakerThreshold,
		Timeout:   c.Config.BreakerTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			metrics.BreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(string(to)))
			c.Logger.Warn().Str("endpoint", name).Str("from", string(from)).Str("to", string(to)).Msg("app: circuit breaker transition")
		},
	})
}

// Close releases every opened resource in reverse order.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
