package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/cache"
	"github.com/kailas-cloud/findex/internal/config"
	dbRedis "github.com/kailas-cloud/findex/internal/db/redis"
	logpkg "github.com/kailas-cloud/findex/internal/logger"
	"github.com/kailas-cloud/findex/internal/metrics"
	"github.com/kailas-cloud/findex/internal/nlquery"
	"github.com/kailas-cloud/findex/internal/optimizer"
	"github.com/kailas-cloud/findex/internal/rank"
	"github.com/kailas-cloud/findex/internal/repository/embcache"
	"github.com/kailas-cloud/findex/internal/repository/postgres"
	"github.com/kailas-cloud/findex/internal/resilience"
	chiTransport "github.com/kailas-cloud/findex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/findex/internal/transport/openai"
	"github.com/kailas-cloud/findex/internal/transport/semantic"
	healthuc "github.com/kailas-cloud/findex/internal/usecase/health"
	"github.com/kailas-cloud/findex/internal/usecase/orchestrator"
	"github.com/kailas-cloud/findex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting findex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	ctx := context.Background()

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Redis backs the persistent cache tier
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create redis store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Redis not ready", zap.Error(err))
	}
	logger.Info("Connected to redis")

	// Postgres is the document store behind the database strategies
	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, postgres.PoolConfig{
		MaxConns: cfg.Postgres.MaxConns,
		MinConns: cfg.Postgres.MinConns,
	})
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)
	logger.Info("Connected to postgres")

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	// Cache query embeddings so repeated queries skip the provider.
	cachedEmbedder := embcache.New(embedder, store, 24*time.Hour, logger)

	// Rolling in-memory call log shared by both resilient callers
	callLog := metrics.NewCallLog(256)

	semanticCaller := resilience.NewCaller("semantic_endpoint",
		callerConfig(cfg.Resilience.Semantic, float64(cfg.Semantic.RatePerSec)), callLog, logger)
	dbCaller := resilience.NewCaller("database_search",
		callerConfig(cfg.Resilience.Database, 0), callLog, logger)

	normalizer := nlquery.NewHeuristic()

	multiCache := cache.New(cache.Config{
		MemoryMaxEntries:     cfg.Cache.MemoryMaxEntries,
		MemoryMaxBytes:       cfg.Cache.MemoryMaxBytes,
		MemoryTTL:            time.Duration(cfg.Cache.MemoryTTLSec) * time.Second,
		PersistentTTL:        time.Duration(cfg.Cache.PersistentTTLSec) * time.Second,
		PredictiveMaxEntries: cfg.Cache.PredictiveMaxEntries,
		PredictiveTTL:        time.Duration(cfg.Cache.PredictiveTTLSec) * time.Second,
		CompressThreshold:    cfg.Cache.CompressThreshold,
		KeyPrefix:            cfg.Cache.KeyPrefix,
		Eviction:             cache.EvictionWeights(cfg.Cache.Eviction),
	}, store, normalizer, logger)

	var semanticClient orchestrator.SemanticSearcher
	if !cfg.Semantic.Disabled {
		semanticClient = semantic.NewClient(semantic.Config{
			BaseURL: cfg.Semantic.BaseURL,
			APIKey:  cfg.Semantic.APIKey,
			Timeout: time.Duration(cfg.Semantic.TimeoutMS) * time.Millisecond,
			Logger:  logger,
		})
	}

	orchestratorSvc := orchestrator.New(
		orchestrator.Config{
			RaceWindow:         time.Duration(cfg.Orchestrator.RaceWindowMS) * time.Millisecond,
			RelaxFactor:        cfg.Orchestrator.RelaxFactor,
			PrefetchCandidates: cfg.Orchestrator.PrefetchCandidates,
		},
		optimizer.New(normalizer, logger),
		multiCache,
		rank.New(rank.Config{}),
		normalizer,
		semanticClient,
		repo,
		cachedEmbedder,
		semanticCaller, dbCaller,
		logger,
	)

	healthDeps := []healthuc.Dependency{
		{Name: "redis", Pinger: store},
		{Name: "postgres", Pinger: repo},
	}
	if pinger, ok := semanticClient.(healthuc.Pinger); ok {
		healthDeps = append(healthDeps, healthuc.Dependency{Name: "semantic_endpoint", Pinger: pinger})
	}
	healthSvc := healthuc.New(healthDeps, embedder)

	server := chiTransport.NewServer(orchestratorSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// callerConfig maps a dependency's YAML settings onto a resilient caller config.
func callerConfig(d config.DependencyConfig, ratePerSec float64) resilience.CallerConfig {
	return resilience.CallerConfig{
		Timeout:       time.Duration(d.TimeoutMS) * time.Millisecond,
		MaxConcurrent: int64(d.MaxConcurrent),
		RatePerSec:    ratePerSec,
		Retry: resilience.Policy{
			MaxAttempts: d.RetryAttempts,
		},
		Breaker: resilience.BreakerConfig{
			FailureThreshold: d.FailureThreshold,
			Cooldown:         time.Duration(d.CooldownSec) * time.Second,
		},
	}
}
