// Package ingest walks a knowledge-base directory, splits markdown and HTML
// files into header-aware chunks, and loads them into a search index.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sweetpotato0/support-assistant/document"
	"github.com/sweetpotato0/support-assistant/pkg/logging"
)

// Indexer receives the chunked documents. Both the in-memory and Postgres
// indexes satisfy it.
type Indexer interface {
	Add(ctx context.Context, docs ...document.Document) error
}

// Loader orchestrates directory discovery, chunking, and indexing.
type Loader struct {
	chunker *Chunker
	logger  *slog.Logger
}

// NewLoader creates a knowledge-base loader.
func NewLoader() *Loader {
	return &Loader{
		chunker: NewChunker(),
		logger:  logging.WithComponent("ingest"),
	}
}

// Stats summarises one ingestion run.
type Stats struct {
	Files   int
	Chunks  int
	Skipped int
}

// Load walks root, chunks every markdown and HTML file, and feeds the
// resulting documents to the indexer. The first path element under root
// becomes the chunk's category; duplicate chunk bodies are indexed once.
func (l *Loader) Load(ctx context.Context, root string, index Indexer) (Stats, error) {
	var stats Stats

	files, err := discoverFiles(root)
	if err != nil {
		return stats, err
	}
	if len(files) == 0 {
		return stats, fmt.Errorf("no markdown or HTML files found under %s", root)
	}

	seen := make(map[string]struct{})
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", path, err)
		}

		markdown := string(raw)
		if isHTML(path) {
			markdown, err = HTMLToMarkdown(markdown)
			if err != nil {
				return stats, fmt.Errorf("reduce %s: %w", path, err)
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return stats, fmt.Errorf("relativize %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)
		category := categoryOf(rel)

		docs := make([]document.Document, 0)
		for i, chunk := range l.chunker.Chunk(markdown) {
			body := strings.TrimSpace(chunk.Content)
			if body == "" {
				continue
			}
			if _, dup := seen[body]; dup {
				stats.Skipped++
				continue
			}
			seen[body] = struct{}{}

			doc := document.Document{Content: body}
			doc.SetMeta(document.MetaCategory, category)
			doc.SetMeta(document.MetaSourceFile, rel)
			doc.SetMeta(document.MetaChunkID, i)
			if section := firstNonEmpty(chunk.H2, chunk.H1); section != "" {
				doc.SetMeta(document.MetaSection, section)
			}
			if chunk.H3 != "" {
				doc.SetMeta(document.MetaSubsection, chunk.H3)
			}
			docs = append(docs, doc)
		}

		if len(docs) > 0 {
			if err := index.Add(ctx, docs...); err != nil {
				return stats, fmt.Errorf("index %s: %w", rel, err)
			}
		}

		stats.Files++
		stats.Chunks += len(docs)
		l.logger.Debug("ingested file", "file", rel, "chunks", len(docs))
	}

	l.logger.Info("knowledge base loaded",
		"files", stats.Files, "chunks", stats.Chunks, "skipped", stats.Skipped)
	return stats, nil
}

// discoverFiles recursively finds markdown and HTML files, sorted for
// deterministic chunk ids across runs.
func discoverFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isMarkdown(path) || isHTML(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// categoryOf infers the category from the first-level folder, e.g.
// "faqs/reset.md" belongs to "faqs". Top-level files have no folder and
// fall back to "unknown".
func categoryOf(rel string) string {
	if idx := strings.IndexByte(rel, '/'); idx > 0 {
		return rel[:idx]
	}
	return "unknown"
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

func isHTML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
