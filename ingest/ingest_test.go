package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sweetpotato0/support-assistant/document"
)

type collectingIndex struct {
	docs []document.Document
}

func (c *collectingIndex) Add(ctx context.Context, docs ...document.Document) error {
	c.docs = append(c.docs, docs...)
	return nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadAttachesMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "faqs/reset.md", "# Account Help\n\n## Password Reset\ncheck your email\n\n### Email Flow\nclick the link\n")

	index := &collectingIndex{}
	stats, err := NewLoader().Load(context.Background(), root, index)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if stats.Files != 1 {
		t.Errorf("files: got %d", stats.Files)
	}
	if len(index.docs) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(index.docs))
	}

	for i, doc := range index.docs {
		if got := doc.MetaString(document.MetaCategory, ""); got != "faqs" {
			t.Errorf("chunk %d category: %q", i, got)
		}
		if got := doc.MetaString(document.MetaSourceFile, ""); got != "faqs/reset.md" {
			t.Errorf("chunk %d source_file: %q", i, got)
		}
		if doc.Metadata[document.MetaChunkID] != i {
			t.Errorf("chunk %d chunk_id: %v", i, doc.Metadata[document.MetaChunkID])
		}
	}

	// h1-only chunk falls back to the h1 for its section.
	if got := index.docs[0].MetaString(document.MetaSection, ""); got != "Account Help" {
		t.Errorf("h1 section fallback: %q", got)
	}
	// h2 chunk prefers the h2.
	if got := index.docs[1].MetaString(document.MetaSection, ""); got != "Password Reset" {
		t.Errorf("h2 section: %q", got)
	}
	if got := index.docs[1].MetaString(document.MetaSubsection, ""); got != "" {
		t.Errorf("h2 chunk must carry no subsection: %q", got)
	}
	// h3 chunk carries the subsection.
	if got := index.docs[2].MetaString(document.MetaSubsection, ""); got != "Email Flow" {
		t.Errorf("h3 subsection: %q", got)
	}
}

func TestLoadDeduplicatesIdenticalBodies(t *testing.T) {
	root := t.TempDir()
	body := "## Shared Section\nidentical body\n"
	writeFile(t, root, "faqs/a.md", body)
	writeFile(t, root, "faqs/b.md", body)

	index := &collectingIndex{}
	stats, err := NewLoader().Load(context.Background(), root, index)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(index.docs) != 1 {
		t.Fatalf("expected 1 unique chunk, got %d", len(index.docs))
	}
	if stats.Skipped != 1 {
		t.Errorf("expected 1 skipped duplicate, got %d", stats.Skipped)
	}
	// Sorted walk means a.md wins.
	if got := index.docs[0].MetaString(document.MetaSourceFile, ""); got != "faqs/a.md" {
		t.Errorf("first seen file must win: %q", got)
	}
}

func TestLoadTopLevelFileFallsBackToUnknownCategory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "readme.md", "## Overview\ntop level file\n")

	index := &collectingIndex{}
	if _, err := NewLoader().Load(context.Background(), root, index); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(index.docs) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(index.docs))
	}
	if got := index.docs[0].MetaString(document.MetaCategory, ""); got != "unknown" {
		t.Errorf("category: %q", got)
	}
}

func TestLoadIngestsHTML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "help/page.html",
		"<html><body><h2>Transfers</h2><p>Unlock the domain first.</p></body></html>")

	index := &collectingIndex{}
	stats, err := NewLoader().Load(context.Background(), root, index)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if stats.Chunks != 1 {
		t.Fatalf("expected 1 chunk, got %d", stats.Chunks)
	}
	if got := index.docs[0].MetaString(document.MetaSection, ""); got != "Transfers" {
		t.Errorf("section from reduced HTML: %q", got)
	}
}

func TestLoadEmptyDirectoryIsAnError(t *testing.T) {
	index := &collectingIndex{}
	if _, err := NewLoader().Load(context.Background(), t.TempDir(), index); err == nil {
		t.Fatal("expected error for directory without knowledge files")
	}
}
