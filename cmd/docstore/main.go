// Command docstore runs the document store HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstore/internal/config"
	dbredis "github.com/kailas-cloud/docstore/internal/db/redis"
	"github.com/kailas-cloud/docstore/internal/domain"
	logpkg "github.com/kailas-cloud/docstore/internal/logger"
	"github.com/kailas-cloud/docstore/internal/metrics"
	budgetrepo "github.com/kailas-cloud/docstore/internal/repository/budget"
	documentrepo "github.com/kailas-cloud/docstore/internal/repository/document"
	"github.com/kailas-cloud/docstore/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/docstore/internal/repository/search"
	chitransport "github.com/kailas-cloud/docstore/internal/transport/chi"
	openaitransport "github.com/kailas-cloud/docstore/internal/transport/openai"
	embedinguc "github.com/kailas-cloud/docstore/internal/usecase/embedding"
	evaldatauc "github.com/kailas-cloud/docstore/internal/usecase/evaldata"
	healthuc "github.com/kailas-cloud/docstore/internal/usecase/health"
	rerankuc "github.com/kailas-cloud/docstore/internal/usecase/rerank"
	storeuc "github.com/kailas-cloud/docstore/internal/usecase/store"
	"github.com/kailas-cloud/docstore/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "docstore: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting docstore",
		zap.String("env", env),
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
	)

	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterServiceMetrics()

	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()

	readinessTimeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(context.Background(), readinessTimeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("database ready", zap.Strings("addrs", cfg.Database.Addrs))

	indexSchema, err := cfg.Index.Schema()
	if err != nil {
		return fmt.Errorf("build index schema: %w", err)
	}

	docRepo := documentrepo.New(store, indexSchema, logger)
	searchRepo := searchrepo.New(store, indexSchema)
	storeSvc := storeuc.New(docRepo, searchRepo, cfg.Index.Name, logger)

	if err := storeSvc.EnsureIndex(context.Background(), cfg.Index.Name); err != nil {
		return fmt.Errorf("ensure index %q: %w", cfg.Index.Name, err)
	}

	evaldataSvc := evaldatauc.New(docRepo, logger)

	var (
		reranker       chitransport.Reranker
		embeddingCheck healthuc.EmbeddingChecker
	)
	if cfg.Embedding.Enabled() {
		base := openaitransport.NewEmbedder(&openaitransport.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			User:       cfg.Embedding.User,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
		embeddingCheck = base

		var budget embedinguc.BudgetChecker
		if cfg.Embedding.BudgetDailyTokens > 0 || cfg.Embedding.BudgetMonthlyTokens > 0 {
			budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
			budget = embedinguc.NewBudgetTracker(
				cfg.Embedding.Provider,
				cfg.Embedding.BudgetDailyTokens,
				cfg.Embedding.BudgetMonthlyTokens,
				embedinguc.BudgetAction(cfg.Embedding.BudgetAction),
				logger,
			).WithStore(context.Background(), budgetStore)
		}

		var embedder domain.BatchEmbedder = embedinguc.NewGuardedEmbedder(
			base, cfg.Embedding.Provider, cfg.Embedding.Model, budget, logger,
		)
		if cfg.Embedding.Instruction != "" {
			embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.Instruction)
		}
		if cfg.Embedding.CacheEnabled {
			embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
		}

		reranker = rerankuc.New(embedder, logger)
		logger.Info("embedding provider configured",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Bool("cache", cfg.Embedding.CacheEnabled),
		)
	} else {
		logger.Info("embedding provider not configured, rerank disabled")
	}

	healthSvc := healthuc.New(store, embeddingCheck)

	server := chitransport.NewServer(storeSvc, reranker, evaldataSvc, healthSvc, logger)
	router := server.Routes(cfg.Auth.APIKeys)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.HTTP.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second,
	)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("stopped")
	return nil
}
