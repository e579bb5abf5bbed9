// Command supportd runs the Support Knowledge Assistant, serving ticket
// resolution over HTTP or as an MCP stdio server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openaisdk "github.com/openai/openai-go/v3"

	"github.com/sweetpotato0/support-assistant/config"
	auditmongo "github.com/sweetpotato0/support-assistant/contrib/audit/mongo"
	cacheredis "github.com/sweetpotato0/support-assistant/contrib/cache/redis"
	openaiemb "github.com/sweetpotato0/support-assistant/contrib/embedder/openai"
	indexmem "github.com/sweetpotato0/support-assistant/contrib/index/inmemory"
	indexpg "github.com/sweetpotato0/support-assistant/contrib/index/pg"
	"github.com/sweetpotato0/support-assistant/contrib/provider/claude"
	"github.com/sweetpotato0/support-assistant/contrib/provider/gemini"
	"github.com/sweetpotato0/support-assistant/contrib/provider/openai"
	"github.com/sweetpotato0/support-assistant/contrib/scorer/cohere"
	"github.com/sweetpotato0/support-assistant/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/support-assistant/ingest"
	"github.com/sweetpotato0/support-assistant/llm"
	"github.com/sweetpotato0/support-assistant/pkg/logging"
	"github.com/sweetpotato0/support-assistant/pkg/telemetry"
	"github.com/sweetpotato0/support-assistant/rag/action"
	"github.com/sweetpotato0/support-assistant/rag/generate"
	"github.com/sweetpotato0/support-assistant/rag/pipeline"
	"github.com/sweetpotato0/support-assistant/rag/retrieve"
	"github.com/sweetpotato0/support-assistant/rag/rewrite"
	"github.com/sweetpotato0/support-assistant/server"
	servermcp "github.com/sweetpotato0/support-assistant/server/mcp"
	"github.com/sweetpotato0/support-assistant/vector"
)

func main() {
	mode := flag.String("mode", "http", "serving mode: http or mcp")
	flag.Parse()

	logger := logging.WithComponent("supportd")
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Pipeline.CohereAPIKey == "" {
		logger.Error("COHERE_API_KEY is required for reranking")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "support-assistant",
		ServiceVersion: "1.0.0",
	})
	if err != nil {
		logger.Error("tracing init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	client, err := buildLLMClient(ctx, cfg)
	if err != nil {
		logger.Error("llm provider init failed", "error", err)
		os.Exit(1)
	}

	embedder := openaiemb.New(cfg.Embedding.APIKey, cfg.Embedding.BaseURL,
		openaisdk.EmbeddingModel(cfg.Embedding.Model), cfg.Embedding.Dimension)

	index, err := buildIndex(ctx, cfg, embedder, logger)
	if err != nil {
		logger.Error("index init failed", "error", err)
		os.Exit(1)
	}

	resolver, err := buildResolver(ctx, cfg, client, embedder, index)
	if err != nil {
		logger.Error("pipeline init failed", "error", err)
		os.Exit(1)
	}

	if *mode == "mcp" {
		logger.Info("serving MCP over stdio")
		if err := servermcp.Serve(ctx, "support-assistant", resolver); err != nil {
			logger.Error("mcp server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	var opts []server.Option
	if cfg.Redis.Enabled {
		cache := cacheredis.New(&cacheredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err := cache.Ping(ctx); err != nil {
			logger.Error("redis unreachable", "error", err)
			os.Exit(1)
		}
		opts = append(opts, server.WithCache(cache))
	}
	if cfg.Mongo.Enabled {
		audit, err := auditmongo.New(&auditmongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			logger.Error("mongo unreachable", "error", err)
			os.Exit(1)
		}
		opts = append(opts, server.WithAuditor(audit))
	}

	srv := server.New(cfg.ListenAddr, resolver, opts...)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}

func buildLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	var base llm.Client
	switch cfg.LLM.Provider {
	case config.ProviderClaude:
		base = claude.New(&claude.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   int64(cfg.LLM.MaxTokens),
			Temperature: cfg.LLM.Temperature,
		})
	case config.ProviderGemini:
		client, err := gemini.New(ctx, &gemini.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   int32(cfg.LLM.MaxTokens),
			Temperature: float32(cfg.LLM.Temperature),
		})
		if err != nil {
			return nil, err
		}
		base = client
	default:
		base = openai.New(&openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   int64(cfg.LLM.MaxTokens),
			Temperature: cfg.LLM.Temperature,
		})
	}

	return llm.Chain(base,
		llm.WithMaxInFlight(cfg.LLM.MaxInFlight),
		llm.WithLogging(logging.WithComponent("llm")),
		llm.WithRetry(cfg.LLM.Retries, time.Second),
	), nil
}

func buildIndex(ctx context.Context, cfg *config.Config, embedder vector.Embedder, logger *slog.Logger) (retrieve.SearchIndex, error) {
	if cfg.IndexBackend == config.IndexPostgres {
		return indexpg.New(embedder, &indexpg.Config{
			Host:      cfg.Postgres.Host,
			Port:      cfg.Postgres.Port,
			User:      cfg.Postgres.User,
			Password:  cfg.Postgres.Password,
			DBName:    cfg.Postgres.DBName,
			SSLMode:   cfg.Postgres.SSLMode,
			Dimension: cfg.Embedding.Dimension,
			TableName: cfg.Postgres.Table,
		})
	}

	// In-memory backend loads the knowledge base at startup.
	index, err := indexmem.New(embedder)
	if err != nil {
		return nil, err
	}
	stats, err := ingest.NewLoader().Load(ctx, cfg.KnowledgeDir, index)
	if err != nil {
		return nil, err
	}
	logger.Info("knowledge base indexed", "files", stats.Files, "chunks", stats.Chunks)
	return index, nil
}

func buildResolver(ctx context.Context, cfg *config.Config, client llm.Client, embedder vector.Embedder, index retrieve.SearchIndex) (*pipeline.Resolver, error) {
	rewriter := rewrite.New(client)
	retriever := retrieve.NewRetriever(index, retrieve.WithInitialK(cfg.Pipeline.InitialK))
	reranker := retrieve.NewReranker(
		cohere.New(cfg.Pipeline.CohereAPIKey),
		retrieve.WithRerankTopK(cfg.Pipeline.RerankTopK),
	)

	var genOpts []generate.Option
	if cfg.Pipeline.ContextBudget > 0 {
		tok, err := tiktoken.New(cfg.LLM.Model)
		if err != nil {
			return nil, err
		}
		genOpts = append(genOpts, generate.WithContextBudget(tok, cfg.Pipeline.ContextBudget))
	}
	generator := generate.New(client, genOpts...)

	classifier, err := action.NewClassifier(ctx, embedder,
		action.WithThreshold(cfg.Pipeline.ClassifierThreshold))
	if err != nil {
		return nil, err
	}

	return pipeline.NewResolver(rewriter, retriever, reranker, generator, classifier,
		pipeline.WithFinalK(cfg.Pipeline.FinalK)), nil
}
