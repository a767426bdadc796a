// Package app provides application-level dependency container and initialization.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"tutorhub-backend/internal/application/invalidation"
	"tutorhub-backend/internal/application/reconcile"
	"tutorhub-backend/internal/config"
	"tutorhub-backend/internal/domain"
	"tutorhub-backend/internal/handlers"
	"tutorhub-backend/internal/infrastructure/cache"
	"tutorhub-backend/internal/infrastructure/events"
	"tutorhub-backend/internal/infrastructure/persistence/sqlite"
	"tutorhub-backend/internal/infrastructure/tracing"
	"tutorhub-backend/internal/repository"
)

// Container holds all application dependencies.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry

	DB          *bun.DB
	RedisClient *redis.Client
	Repos       repository.Repositories
	TxManager   repository.TransactionManager

	ListingCache  *cache.ListCache
	FeaturedCache *cache.ListCache

	Bus          *events.Bus
	Orchestrator *invalidation.Orchestrator

	CompletionJob *reconcile.CompletionJob
	RolloverJob   *reconcile.RolloverJob

	Router http.Handler

	tracer *tracing.Provider
}

// NewContainer wires the full dependency graph from configuration. Both the
// API server and the reconciliation worker build the same graph; they differ
// only in which parts they run.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	if cfg.Tracing.Enabled {
		tp, err := tracing.Init("tutorhub-backend", cfg.Environment, cfg.Tracing.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		c.tracer = tp
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.DB = db
	if err := sqlite.CreateSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	c.Repos = sqlite.NewRepositories(db)
	c.TxManager = sqlite.NewTxManager(db)

	c.RedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cacheMetrics := cache.NewMetrics(c.Registry)

	var store cache.Store = cache.NewRedisStore(c.RedisClient, logger)
	store = cache.NewBreakerStore(store, "redis", logger)

	c.ListingCache = cache.NewListCache(store, nil, cache.ListCacheConfig{
		Feature: "course",
		TTL:     cfg.Cache.ListTTL,
		LockTTL: cfg.Cache.LockTTL,
	}, cacheMetrics, logger)

	c.FeaturedCache = cache.NewListCache(store, cache.NewLocalCache(), cache.ListCacheConfig{
		Feature: "teacher",
		TTL:     cfg.Cache.ListTTL,
		LockTTL: cfg.Cache.LockTTL,
	}, cacheMetrics, logger)

	c.Bus = events.NewBus(events.BusConfig{
		QueueSize: cfg.Events.QueueSize,
		Workers:   cfg.Events.Workers,
	}, logger)

	courseHandler := handlers.NewCourseHandler(
		c.ListingCache, c.FeaturedCache,
		c.Repos.Courses, c.Repos.Teachers,
		cfg.Cache.FeaturedLimit, logger,
	)

	c.Orchestrator = invalidation.NewOrchestrator(logger)
	c.Orchestrator.Route(c.ListingCache, []string{"subject", "grade"},
		domain.EntityCourse, domain.EntitySubject, domain.EntityGrade,
		domain.EntityProgram, domain.EntitySchedule)
	c.Orchestrator.Route(c.FeaturedCache, []string{"teacher"},
		domain.EntityTeacher)
	if cfg.Cache.WarmFeatured {
		c.Orchestrator.WarmAfter("teacher", func(ctx context.Context) error {
			if err := c.FeaturedCache.InvalidateHot(ctx, "featured"); err != nil {
				return err
			}
			_, err := c.FeaturedCache.GetHot(ctx, "featured",
				[]domain.Dimension{domain.All("teacher")}, courseHandler.ComputeFeatured)
			return err
		})
	}
	c.Bus.Subscribe(c.Orchestrator.Handle)

	jobMetrics := reconcile.NewMetrics(c.Registry)
	c.CompletionJob = reconcile.NewCompletionJob(c.Repos.Schedules, c.TxManager, c.Bus, jobMetrics, logger)
	c.RolloverJob = reconcile.NewRolloverJob(c.TxManager, cfg.Jobs.AdjustmentQuota, jobMetrics, logger)

	c.Router = handlers.NewRouter(courseHandler, c.Registry, logger)

	return c, nil
}

// SetCacheTTL applies hot-reloaded TTL settings to both feature caches.
func (c *Container) SetCacheTTL(cfg config.CacheConfig) {
	c.ListingCache.SetTTL(cfg.ListTTL)
	c.FeaturedCache.SetTTL(cfg.ListTTL)
}

// Close releases the container's resources in reverse dependency order.
func (c *Container) Close(ctx context.Context) {
	if c.Bus != nil {
		c.Bus.Close()
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("database close failed", zap.Error(err))
		}
	}
	if c.tracer != nil {
		if err := c.tracer.Shutdown(ctx); err != nil {
			c.Logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
}
