// Package app builds the service components from configuration. Both the
// HTTP server and the CLI wire through it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zaidmukaddam/scira/pkg/cache"
	"github.com/zaidmukaddam/scira/pkg/clients"
	"github.com/zaidmukaddam/scira/pkg/config"
	"github.com/zaidmukaddam/scira/pkg/database"
	"github.com/zaidmukaddam/scira/pkg/embeddings"
	"github.com/zaidmukaddam/scira/pkg/library"
	"github.com/zaidmukaddam/scira/pkg/research"
	"github.com/zaidmukaddam/scira/pkg/research/tools"
	"github.com/zaidmukaddam/scira/pkg/vectorstore"
	"github.com/zaidmukaddam/scira/pkg/wrapped"
)

const embeddingDimensions = 1536

// NewSearch returns Exa, with research papers routed to arXiv when configured.
func NewSearch(cfg *config.Config, logger *slog.Logger) (research.SearchProvider, *tools.ExaClient) {
	exa := tools.NewExaClient(cfg.ExaApiKey)
	exa.Logger = logger

	if cfg.PaperSearch != "arxiv" {
		return exa, exa
	}
	arxiv := tools.NewArxivSearch()
	arxiv.Logger = logger
	return &tools.CategoryRouter{
		Default: exa,
		Routes:  map[string]research.SearchProvider{"research paper": arxiv},
	}, exa
}

// NewFetcher reads pages through Exa, falling back to direct HTTP, and PDFs
// through Mistral OCR when a key is set.
func NewFetcher(cfg *config.Config, exa *tools.ExaClient, logger *slog.Logger) *tools.FetchChain {
	pages := tools.NewPageFetcher()
	pages.Logger = logger

	chain := &tools.FetchChain{
		Primary:     exa,
		Fallback:    pages,
		Concurrency: 4,
		Logger:      logger,
	}
	if cfg.MistralApiKey != "" {
		pdf := tools.NewPDFFetcher(cfg.MistralApiKey)
		pdf.Logger = logger
		chain.PDF = pdf
	}
	return chain
}

// NewCodeExecutor returns nil when no sandbox is configured; the agent then
// reports codeRunner calls as failed.
func NewCodeExecutor(cfg *config.Config, logger *slog.Logger) research.CodeExecutor {
	if cfg.DaytonaApiKey == "" {
		logger.Warn("DAYTONA_API_KEY is not set, code execution disabled")
		return nil
	}
	sandbox := tools.NewDaytonaClient(cfg.DaytonaApiKey, cfg.DaytonaApiURL)
	sandbox.Logger = logger
	runner := tools.NewCodeRunner(sandbox)
	runner.Logger = logger
	return runner
}

func NewResearchEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*research.Engine, error) {
	reasoning, err := clients.GoogleAi(ctx, cfg.GoogleApiKey, clients.ModelType(cfg.ReasoningModel))
	if err != nil {
		return nil, err
	}
	fast, err := clients.GoogleAi(ctx, cfg.GoogleApiKey, clients.ModelType(cfg.FastModel))
	if err != nil {
		return nil, err
	}

	search, exa := NewSearch(cfg, logger)
	planner := research.NewPlanner(fast)
	planner.Logger = logger

	engine := research.NewEngine(planner, reasoning, search, NewFetcher(cfg, exa, logger), NewCodeExecutor(cfg, logger))
	engine.Logger = logger
	engine.PacingDelay = cfg.PacingDelay
	return engine, nil
}

func NewCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*cache.Cache, error) {
	c, err := cache.New(cache.Options{URL: cfg.RedisURL, TTL: cfg.WrappedCacheTTL})
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		logger.Warn("Redis is unreachable, X-Wrapped results will not be cached", "error", err)
	}
	return c, nil
}

func NewWrappedBuilder(cfg *config.Config, c wrapped.Cache, logger *slog.Logger) (*wrapped.Builder, error) {
	llm, err := clients.XAI(cfg.XAIApiKey, cfg.XAIModel)
	if err != nil {
		return nil, err
	}

	search := wrapped.NewXAISearch(cfg.XAIApiKey, cfg.XAIModel)
	search.Logger = logger

	builder := wrapped.NewBuilder(c, search, wrapped.NewXClient(cfg.XBearerToken), llm)
	builder.Logger = logger
	return builder, nil
}

// NewLibrary prepares the pgvector collection and returns a library over it.
func NewLibrary(ctx context.Context, cfg *config.Config, db *database.PostgresDB, logger *slog.Logger) (*library.Library, error) {
	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.GoogleApiKey, cfg.EmbeddingModel, embeddingDimensions)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureVectorExtension(ctx); err != nil {
		return nil, err
	}
	if err := db.CreateEmbeddingsTable(ctx, cfg.CollectionName, embedder.Dimensions()); err != nil {
		return nil, err
	}

	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}

	lib := library.New(store, embedder, cfg.ChunkSize, cfg.ChunkOverlap)
	lib.Logger = logger
	return lib, nil
}
