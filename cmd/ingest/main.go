// Command ingest chunks a knowledge-base directory and loads it into the
// PostgreSQL index for later serving.
package main

import (
	"context"
	"flag"
	"os"

	openaisdk "github.com/openai/openai-go/v3"

	"github.com/sweetpotato0/support-assistant/config"
	openaiemb "github.com/sweetpotato0/support-assistant/contrib/embedder/openai"
	indexpg "github.com/sweetpotato0/support-assistant/contrib/index/pg"
	"github.com/sweetpotato0/support-assistant/ingest"
	"github.com/sweetpotato0/support-assistant/pkg/logging"
)

func main() {
	dir := flag.String("dir", "", "knowledge-base directory (defaults to SUPPORTKB_KNOWLEDGE_DIR)")
	clear := flag.Bool("clear", false, "truncate the index before loading")
	flag.Parse()

	logger := logging.WithComponent("ingest-cli")
	cfg := config.FromEnv()
	if *dir == "" {
		*dir = cfg.KnowledgeDir
	}
	if cfg.Embedding.APIKey == "" {
		logger.Error("embedding API key is required")
		os.Exit(1)
	}

	ctx := context.Background()
	embedder := openaiemb.New(cfg.Embedding.APIKey, cfg.Embedding.BaseURL,
		openaisdk.EmbeddingModel(cfg.Embedding.Model), cfg.Embedding.Dimension)

	index, err := indexpg.New(embedder, &indexpg.Config{
		Host:      cfg.Postgres.Host,
		Port:      cfg.Postgres.Port,
		User:      cfg.Postgres.User,
		Password:  cfg.Postgres.Password,
		DBName:    cfg.Postgres.DBName,
		SSLMode:   cfg.Postgres.SSLMode,
		Dimension: cfg.Embedding.Dimension,
		TableName: cfg.Postgres.Table,
	})
	if err != nil {
		logger.Error("index init failed", "error", err)
		os.Exit(1)
	}
	defer index.Close()

	if *clear {
		if err := index.Clear(ctx); err != nil {
			logger.Error("clear index failed", "error", err)
			os.Exit(1)
		}
	}

	stats, err := ingest.NewLoader().Load(ctx, *dir, index)
	if err != nil {
		logger.Error("ingestion failed", "error", err)
		os.Exit(1)
	}

	total, err := index.Count(ctx)
	if err != nil {
		logger.Error("count failed", "error", err)
		os.Exit(1)
	}
	logger.Info("ingestion complete",
		"files", stats.Files, "chunks", stats.Chunks, "skipped", stats.Skipped, "indexed_total", total)
}
