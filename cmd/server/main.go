package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentalsearch/internal/cache"
	"rentalsearch/internal/config"
	"rentalsearch/internal/handler"
	"rentalsearch/internal/logger"
	"rentalsearch/internal/metrics"
	"rentalsearch/internal/model"
	"rentalsearch/internal/repository"
	"rentalsearch/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	zl.Info("starting rental search",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	gin.SetMode(cfg.Server.GinMode)
	metrics.Register()

	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()
	zl.Info("connected to PostgreSQL")

	llm := service.LLMConfig{BaseURL: cfg.OpenAI.APIBase, Timeout: cfg.OpenAI.Timeout}
	creds := service.StaticCredentials(cfg.OpenAI.APIKey)

	var (
		intent   service.IntentAnalyzer
		embedder service.Embedder
	)
	if cfg.OpenAI.Enabled {
		intent = service.NewIntentExtractor(service.IntentExtractorConfig{
			LLM:         llm,
			ChatModel:   cfg.OpenAI.ChatModel,
			Temperature: cfg.OpenAI.ChatTemperature,
			MaxTokens:   cfg.OpenAI.ChatMaxTokens,
		}, zl.Named("intent"))

		openaiEmbedder := service.NewOpenAIEmbedder(service.EmbedderConfig{
			LLM:        llm,
			Model:      cfg.OpenAI.EmbeddingModel,
			Dimensions: cfg.OpenAI.EmbeddingDimensions,
		}, zl.Named("embedder"))
		embedder = openaiEmbedder

		if cfg.Redis.Addr != "" {
			store, err := cache.NewRedisStore(cache.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				TTL:      cfg.Redis.EmbeddingCacheTTL,
			})
			if err != nil {
				zl.Warn("embedding cache disabled", zap.Error(err))
			} else {
				defer store.Close()
				embedder = service.NewCachedEmbedder(openaiEmbedder, store, openaiEmbedder.Model(), zl.Named("embedding_cache"))
				zl.Info("embedding cache enabled", zap.String("addr", cfg.Redis.Addr))
			}
		}

		zl.Info("language model enabled",
			zap.String("api_base", cfg.OpenAI.APIBase),
			zap.String("chat_model", cfg.OpenAI.ChatModel),
			zap.String("embedding_model", cfg.OpenAI.EmbeddingModel))
	} else {
		zl.Warn("OPENAI_API_KEY not set, searches use plain lexical matching only")
	}

	searchService := service.NewSearchService(repo, creds, intent, embedder, service.SearchConfig{
		Defaults: model.SearchDefaults{
			Limit:         cfg.Search.DefaultLimit,
			MaxLimit:      cfg.Search.MaxLimit,
			MinSimilarity: cfg.Search.DefaultMinSimilarity,
		},
		CandidatePoolSize: cfg.Search.CandidatePoolSize,
	}, zl.Named("search"))
	indexer := service.NewIndexer(repo, embedder, creds, service.IndexerConfig{
		Dimensions:        cfg.OpenAI.EmbeddingDimensions,
		Concurrency:       cfg.Backfill.Concurrency,
		RequestsPerSecond: cfg.Backfill.RequestsPerSecond,
	}, zl.Named("indexer"))

	router := handler.NewRouter(handler.RouterDeps{
		Search:    handler.NewSearchHandler(searchService),
		Embedding: handler.NewEmbeddingHandler(indexer),
		Health:    handler.NewHealthHandler(repo, handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}),
		CORS: handler.CORSConfig{
			AllowOrigins: cfg.Server.AllowedOrigins,
			AllowMethods: cfg.Server.AllowedMethods,
			AllowHeaders: cfg.Server.AllowedHeaders,
		},
		Logger: zl.Named("http"),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case sig := <-quit:
		zl.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	zl.Info("server stopped")
	return nil
}
