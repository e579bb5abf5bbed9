package ingest

import (
	"strings"
	"testing"
)

const sampleMarkdown = `intro paragraph before any heading

# Getting Started
welcome text

## Password Reset
reset steps here

### Email Flow
email details

## Billing
billing info
`

func TestChunkSplitsByHeadingHierarchy(t *testing.T) {
	chunks := NewChunker().Chunk(sampleMarkdown)
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(chunks))
	}

	// Preamble has no heading context.
	if chunks[0].H1 != "" || chunks[0].H2 != "" || chunks[0].H3 != "" {
		t.Errorf("preamble must carry no hierarchy: %+v", chunks[0])
	}
	if !strings.Contains(chunks[0].Content, "intro paragraph") {
		t.Errorf("preamble content: %q", chunks[0].Content)
	}

	if chunks[1].H1 != "Getting Started" || chunks[1].H2 != "" {
		t.Errorf("h1 chunk hierarchy: %+v", chunks[1])
	}
	if chunks[2].H2 != "Password Reset" || chunks[2].H1 != "Getting Started" || chunks[2].H3 != "" {
		t.Errorf("h2 chunk hierarchy: %+v", chunks[2])
	}
	if chunks[3].H3 != "Email Flow" || chunks[3].H2 != "Password Reset" {
		t.Errorf("h3 chunk hierarchy: %+v", chunks[3])
	}

	// A new h2 clears the previous h3.
	if chunks[4].H2 != "Billing" || chunks[4].H3 != "" {
		t.Errorf("sibling h2 must reset h3: %+v", chunks[4])
	}
}

func TestChunkKeepsHeadingInContent(t *testing.T) {
	chunks := NewChunker().Chunk("## Password Reset\nsteps")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Content, "## Password Reset") {
		t.Errorf("heading line must stay in content: %q", chunks[0].Content)
	}
}

func TestChunkNoHeadings(t *testing.T) {
	chunks := NewChunker().Chunk("just a plain paragraph")
	if len(chunks) != 1 || chunks[0].Content != "just a plain paragraph" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestChunkBlankInput(t *testing.T) {
	if chunks := NewChunker().Chunk("   \n\n "); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %+v", chunks)
	}
}

func TestChunkIgnoresDeepHeadings(t *testing.T) {
	chunks := NewChunker().Chunk("## Section\ntext\n#### Deep Note\nmore text")
	if len(chunks) != 1 {
		t.Fatalf("h4 must not split, got %d chunks", len(chunks))
	}
	if !strings.Contains(chunks[0].Content, "Deep Note") {
		t.Errorf("h4 content must stay in the parent chunk")
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	html := `<html><body>
		<h1>Help Center</h1>
		<h2>Transfers</h2>
		<p>Unlock the domain first.</p>
		<li>Request the auth code</li>
	</body></html>`

	md, err := HTMLToMarkdown(html)
	if err != nil {
		t.Fatalf("HTMLToMarkdown error: %v", err)
	}
	if !strings.Contains(md, "# Help Center") {
		t.Errorf("h1 not converted: %q", md)
	}
	if !strings.Contains(md, "## Transfers") {
		t.Errorf("h2 not converted: %q", md)
	}
	if !strings.Contains(md, "Unlock the domain first.") {
		t.Errorf("paragraph lost: %q", md)
	}
	if !strings.Contains(md, "- Request the auth code") {
		t.Errorf("list item not converted: %q", md)
	}
}
