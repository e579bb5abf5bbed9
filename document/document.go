package document

import "math"

// Metadata keys attached to knowledge-base chunks at ingestion time.
const (
	MetaCategory       = "category"
	MetaSourceFile     = "source_file"
	MetaSection        = "section"
	MetaSubsection     = "subsection"
	MetaChunkID        = "chunk_id"
	MetaRelevanceScore = "relevance_score"
)

// Document is one retrieved evidence unit: a chunk of knowledge-base text
// plus its ingestion metadata. Two documents with identical content are the
// same document for deduplication purposes; there is no stable ID.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.Metadata != nil {
		out.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// SetMeta writes a metadata value, allocating the map on first use.
func (d *Document) SetMeta(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]any, 1)
	}
	d.Metadata[key] = value
}

// MetaString returns the named metadata value as a string, or fallback when
// the key is absent, empty, or not a string.
func (d Document) MetaString(key, fallback string) string {
	if d.Metadata == nil {
		return fallback
	}
	if raw, ok := d.Metadata[key]; ok {
		if s, ok := raw.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// Category returns the knowledge-base category, defaulting to "unknown".
func (d Document) Category() string {
	return d.MetaString(MetaCategory, "unknown")
}

// RelevanceScore returns the reranker score attached to the document, or
// negative infinity when the document has not been scored. Documents without
// a score sort after every scored document in the global ranking.
func (d Document) RelevanceScore() float64 {
	if d.Metadata == nil {
		return math.Inf(-1)
	}
	switch v := d.Metadata[MetaRelevanceScore].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return math.Inf(-1)
}
