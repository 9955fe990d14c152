package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/config"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/db/postgres"
	dbRedis "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/db/redis"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/catalog"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/metrics"
	chunkrepo "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/repository/chunk"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/repository/embcache"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/transport/callback"
	openaiTransport "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/transport/openai"
	chatbotuc "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/chatbot"
	embeddinguc "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/embedding"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/grounding"
	healthuc "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/health"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/planner"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/semantic"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/structured"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/synth"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/worker"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *dbRedis.Store
	pg       *postgres.Client
	chunks   *chunkrepo.Repo
	docEmbed domain.Embedder
	pool     *worker.Pool
	chatbot  *chatbotuc.Service
	health   *healthuc.Service
}

// buildApp is the composition root. The vector store must be reachable;
// Postgres is connected on first query.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterChatbotMetrics()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Vector.Addrs,
		Password: cfg.Vector.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Vector.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("Connected to vector store", zap.Strings("addrs", cfg.Vector.Addrs))

	chunks := chunkrepo.New(store, cfg.Vector.KeyPrefix, chunkrepo.HNSWConfig{
		M:           cfg.Vector.HNSWM,
		EFConstruct: cfg.Vector.HNSWEFConstruct,
	})
	if err := chunks.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure chunk index: %w", err)
	}

	embedCfg := &openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	}
	baseEmbedder := openaiTransport.NewEmbedder(embedCfg)
	docEmbed := buildEmbedder(cfg, baseEmbedder, store, logger)
	queryEmbed := domain.NewInstructionEmbedder(docEmbed, cfg.Embedding.QueryInstruction)

	gen := openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:   cfg.Generation.APIKey,
		BaseURL:  cfg.Generation.BaseURL,
		Provider: cfg.Embedding.Provider,
		Timeout:  time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:   logger,
	})

	pg := postgres.New(postgres.Config{
		DSN:          cfg.Postgres.DSN,
		Schema:       cfg.Postgres.Schema,
		MaxConns:     cfg.Postgres.MaxConns,
		QueryTimeout: time.Duration(cfg.Postgres.QueryTimeoutSec) * time.Second,
	})

	closeAll := func() {
		pg.Close()
		store.Close()
	}

	plannerSvc, err := planner.New(gen, planner.Config{
		Model:       cfg.Generation.QueryModel,
		DefaultTopK: cfg.Retrieval.DefaultTopK,
		MaxTopK:     cfg.Retrieval.MaxTopK,
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	suggester, err := synth.NewSuggester(gen, cfg.Generation.QueryModel)
	if err != nil {
		closeAll()
		return nil, err
	}

	structuredSvc := structured.New(gen, pg, pg, structured.Config{
		Model:    cfg.Generation.QueryModel,
		MaxLimit: cfg.Guard.MaxLimit,
		Catalog:  catalogOptions(cfg.Guard),
	})

	pool, err := worker.New(worker.Config{
		Size:           cfg.Worker.Size,
		ExpiryDuration: time.Duration(cfg.Worker.ExpirySec) * time.Second,
	}, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	metrics.RegisterWorkerPoolMetrics(pool.Running, pool.Cap)

	chatbot := chatbotuc.New(chatbotuc.Deps{
		Planner:    plannerSvc,
		Structured: structuredSvc,
		Semantic:   semantic.New(chunks, queryEmbed, cfg.Retrieval.SemanticConcurrency),
		Assembler:  grounding.New(cfg.Retrieval.MaxPreviewRows),
		Synth: synth.New(gen, synth.Config{
			Model:       cfg.Generation.AnswerModel,
			Temperature: cfg.Generation.AnswerTemperature,
		}),
		Suggester: suggester,
		Sinks: callback.New(callback.Config{
			Timeout:     time.Duration(cfg.Callback.TimeoutSec) * time.Second,
			RetryDelays: cfg.Callback.RetryDelays(),
			Logger:      logger,
		}),
		Pool: pool,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pg:       pg,
		chunks:   chunks,
		docEmbed: docEmbed,
		pool:     pool,
		chatbot:  chatbot,
		health:   healthuc.New(pg, store, baseEmbedder),
	}, nil
}

// Close drains background runs, then closes the stores.
func (a *app) Close() {
	timeout := time.Duration(a.cfg.Worker.ShutdownTimeoutSec) * time.Second
	if err := a.pool.Release(timeout); err != nil {
		a.logger.Warn("Worker pool did not drain", zap.Error(err))
	}
	a.pg.Close()
	a.store.Close()
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The query instruction is applied outside so cached document vectors stay reusable.
func buildEmbedder(
	cfg config.Config,
	base *openaiTransport.Embedder,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	cached := embcache.New(base, store, embcache.Options{
		Prefix: cfg.Vector.KeyPrefix,
		Model:  cfg.Embedding.Model,
		TTL:    time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
	}, metrics.EmbeddingCacheTotal, logger)

	return embeddinguc.NewInstrumentedEmbedder(cached, cfg.Embedding.Provider, cfg.Embedding.Model, logger)
}

// catalogOptions overlays the guard config on the built-in groupware schema.
func catalogOptions(g config.GuardConfig) catalog.Options {
	opts := catalog.DefaultOptions()
	if len(g.AllowedTables) > 0 {
		opts.AllowedTables = g.AllowedTables
	}
	if len(g.PersonalTables) > 0 {
		opts.PersonalTables = g.PersonalTables
	}
	if g.TenantColumn != "" {
		opts.TenantColumn = g.TenantColumn
	}
	if g.AskerColumn != "" {
		opts.AskerColumn = g.AskerColumn
	}
	if g.SensitiveTable != "" {
		opts.SensitiveTable = g.SensitiveTable
	}
	if len(g.SensitiveColumns) > 0 {
		opts.SensitiveColumns = g.SensitiveColumns
	}
	return opts
}
