// Package references formats human-readable citations from retrieved
// document metadata.
package references

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/support-assistant/document"
)

// DefaultTopK is how many references a response carries at most.
const DefaultTopK = 3

// Format renders one stable, human-readable reference string with section
// disambiguation: "{category}: {section}", " | § {subsection}" when the
// chunk has one, then always " | file={source_file}".
func Format(doc document.Document) string {
	category := doc.MetaString(document.MetaCategory, "unknown")
	section := doc.MetaString(document.MetaSection, "Unknown Doc")
	sourceFile := doc.MetaString(document.MetaSourceFile, "unknown_file")

	parts := []string{fmt.Sprintf("%s: %s", category, section)}
	if subsection := doc.MetaString(document.MetaSubsection, ""); subsection != "" {
		parts = append(parts, fmt.Sprintf("§ %s", subsection))
	}
	parts = append(parts, fmt.Sprintf("file=%s", sourceFile))

	return strings.Join(parts, " | ")
}

// Select deterministically formats the first k documents in their given
// order. The result has at most k entries, fewer when fewer documents exist,
// and is never padded.
func Select(docs []document.Document, k int) []string {
	if k <= 0 {
		k = DefaultTopK
	}
	if k > len(docs) {
		k = len(docs)
	}
	refs := make([]string, 0, k)
	for _, doc := range docs[:k] {
		refs = append(refs, Format(doc))
	}
	return refs
}
