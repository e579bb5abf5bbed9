package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const maxHeadingLevel = 3

// Chunk is one header-delimited segment of a markdown document. Headings
// stay in the content so generation keeps their grounding; the hierarchy
// fields feed reference metadata.
type Chunk struct {
	Content string
	H1      string
	H2      string
	H3      string
}

// Chunker splits markdown by h1/h2/h3 heading hierarchy using a goldmark
// AST walk.
type Chunker struct {
	parser goldmark.Markdown
}

// NewChunker creates a header-hierarchy markdown chunker.
func NewChunker() *Chunker {
	return &Chunker{parser: goldmark.New()}
}

type headingInfo struct {
	start int
	level int
	title string
}

// Chunk splits the markdown into sections, one per heading of level 1..3,
// plus a headerless preamble section when content precedes the first
// heading. Blank sections are dropped.
func (c *Chunker) Chunk(markdown string) []Chunk {
	source := []byte(markdown)
	reader := text.NewReader(source)
	root := c.parser.Parser().Parse(reader)

	var headings []headingInfo
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Level > maxHeadingLevel {
			return ast.WalkContinue, nil
		}
		lines := heading.Lines()
		if lines == nil || lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		headings = append(headings, headingInfo{
			start: lines.At(0).Start,
			level: heading.Level,
			title: strings.TrimSpace(string(heading.Text(source))),
		})
		return ast.WalkSkipChildren, nil
	})

	if len(headings) == 0 {
		raw := strings.TrimSpace(markdown)
		if raw == "" {
			return nil
		}
		return []Chunk{{Content: raw}}
	}

	var chunks []Chunk
	if intro := strings.TrimSpace(string(source[:headingStart(source, headings[0])])); intro != "" {
		chunks = append(chunks, Chunk{Content: intro})
	}

	// Track the active hierarchy: a heading clears every deeper level.
	var h1, h2, h3 string
	for i, h := range headings {
		switch h.level {
		case 1:
			h1, h2, h3 = h.title, "", ""
		case 2:
			h2, h3 = h.title, ""
		case 3:
			h3 = h.title
		}

		start := headingStart(source, h)
		end := len(source)
		if i+1 < len(headings) {
			end = headingStart(source, headings[i+1])
		}
		raw := strings.TrimSpace(string(source[start:end]))
		if raw == "" {
			continue
		}
		chunks = append(chunks, Chunk{Content: raw, H1: h1, H2: h2, H3: h3})
	}
	return chunks
}

// headingStart rewinds to the "#" markers so the heading line stays inside
// the chunk. goldmark line segments begin after the marker run.
func headingStart(source []byte, h headingInfo) int {
	start := h.start
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	return start
}
