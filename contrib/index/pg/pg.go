// Package pg implements the hybrid search-index collaborator on PostgreSQL:
// pgvector cosine search fused with full-text ts_rank scoring in one query.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/sweetpotato0/support-assistant/document"
	"github.com/sweetpotato0/support-assistant/vector"
)

// Config holds PostgreSQL index configuration.
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	DBName        string
	SSLMode       string
	Dimension     int
	TableName     string
	VectorWeight  float64
	KeywordWeight float64
}

// DefaultConfig returns default PostgreSQL index configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:          "127.0.0.1",
		Port:          5432,
		User:          "postgres",
		Password:      "postgres",
		DBName:        "support_assistant",
		SSLMode:       "disable",
		Dimension:     1536,
		TableName:     "support_chunks",
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	}
}

func normalizeConfig(cfg *Config) *Config {
	def := DefaultConfig()
	if cfg == nil {
		return def
	}
	out := *cfg
	if out.Host == "" {
		out.Host = def.Host
	}
	if out.Port == 0 {
		out.Port = def.Port
	}
	if out.User == "" {
		out.User = def.User
	}
	if out.DBName == "" {
		out.DBName = def.DBName
	}
	if out.SSLMode == "" {
		out.SSLMode = def.SSLMode
	}
	if out.Dimension <= 0 {
		out.Dimension = def.Dimension
	}
	if out.TableName == "" {
		out.TableName = def.TableName
	}
	// Zero weights would make the hybrid ORDER BY a constant.
	if out.VectorWeight <= 0 && out.KeywordWeight <= 0 {
		out.VectorWeight = def.VectorWeight
		out.KeywordWeight = def.KeywordWeight
	}
	return &out
}

// Index stores embedded knowledge-base chunks in Postgres and serves hybrid
// search over them.
type Index struct {
	db       *sql.DB
	embedder vector.Embedder
	cfg      *Config
}

// New connects to PostgreSQL, ensures the pgvector extension and chunk table
// exist, and returns the index. Unset Config fields fall back to
// DefaultConfig values, so a partial Config keeps the fusion weights intact.
func New(embedder vector.Embedder, cfg *Config) (*Index, error) {
	cfg = normalizeConfig(cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}

	ix := &Index{db: db, embedder: embedder, cfg: cfg}
	if err := ix.setup(context.Background()); err != nil {
		return nil, fmt.Errorf("setup index schema: %w", err)
	}
	return ix, nil
}

func (ix *Index) setup(ctx context.Context) error {
	if _, err := ix.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		source_file TEXT NOT NULL DEFAULT '',
		section TEXT NOT NULL DEFAULT '',
		subsection TEXT NOT NULL DEFAULT '',
		chunk_id INT NOT NULL DEFAULT 0,
		embedding vector(%d) NOT NULL,
		tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, ix.cfg.TableName, ix.cfg.Dimension)

	if _, err := ix.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	indexSQL := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_tsv_idx ON %s USING GIN (tsv)",
		ix.cfg.TableName, ix.cfg.TableName)
	if _, err := ix.db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("create tsvector index: %w", err)
	}
	return nil
}

// Add embeds and stores the given documents.
func (ix *Index) Add(ctx context.Context, docs ...document.Document) error {
	insertSQL := fmt.Sprintf(`
	INSERT INTO %s (content, category, source_file, section, subsection, chunk_id, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`, ix.cfg.TableName)

	for _, doc := range docs {
		vec, err := ix.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embed document: %w", err)
		}

		chunkID := 0
		if raw, ok := doc.Metadata[document.MetaChunkID]; ok {
			switch v := raw.(type) {
			case int:
				chunkID = v
			case float64:
				chunkID = int(v)
			}
		}

		_, err = ix.db.ExecContext(ctx, insertSQL,
			doc.Content,
			doc.MetaString(document.MetaCategory, ""),
			doc.MetaString(document.MetaSourceFile, ""),
			doc.MetaString(document.MetaSection, ""),
			doc.MetaString(document.MetaSubsection, ""),
			chunkID,
			encodeVector(vec),
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return nil
}

// Search implements retrieve.SearchIndex. Dense and sparse signals fuse in
// SQL: cosine similarity from pgvector weighted against normalized ts_rank.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]document.Document, error) {
	if k <= 0 {
		k = 10
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	searchSQL := fmt.Sprintf(`
	SELECT content, category, source_file, section, subsection, chunk_id
	FROM %s
	ORDER BY (1 - (embedding <=> $1)) * $3
		+ ts_rank(tsv, plainto_tsquery('english', $2)) * $4 DESC
	LIMIT $5`, ix.cfg.TableName)

	rows, err := ix.db.QueryContext(ctx, searchSQL,
		encodeVector(queryVec), query, ix.cfg.VectorWeight, ix.cfg.KeywordWeight, k)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var content, category, sourceFile, section, subsection string
		var chunkID int
		if err := rows.Scan(&content, &category, &sourceFile, &section, &subsection, &chunkID); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		doc := document.Document{Content: content}
		if category != "" {
			doc.SetMeta(document.MetaCategory, category)
		}
		if sourceFile != "" {
			doc.SetMeta(document.MetaSourceFile, sourceFile)
		}
		if section != "" {
			doc.SetMeta(document.MetaSection, section)
		}
		if subsection != "" {
			doc.SetMeta(document.MetaSubsection, subsection)
		}
		doc.SetMeta(document.MetaChunkID, chunkID)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Clear removes all indexed chunks.
func (ix *Index) Clear(ctx context.Context) error {
	_, err := ix.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", ix.cfg.TableName))
	return err
}

// Count returns the number of indexed chunks.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var count int
	err := ix.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", ix.cfg.TableName)).Scan(&count)
	return count, err
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// encodeVector renders a float32 slice in pgvector's text format.
func encodeVector(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
