package inmemory

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// bm25Index is a minimal Okapi BM25 implementation over indexed document
// bodies. It supplies the sparse half of the hybrid blend.
type bm25Index struct {
	mu        sync.RWMutex
	docFreq   map[string]int
	postings  map[string]map[string]int
	docLength map[string]int
	totalLen  int
	docCount  int
	k1        float64
	b         float64
}

var bm25Regex = regexp.MustCompile(`\p{L}[\p{L}\p{M}]*|\p{N}+`)

func newBM25() *bm25Index {
	return &bm25Index{
		docFreq:   make(map[string]int),
		postings:  make(map[string]map[string]int),
		docLength: make(map[string]int),
		k1:        1.6,
		b:         0.75,
	}
}

func (b *bm25Index) add(id, content string) {
	terms := tokenize(content)
	if len(terms) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docCount++
	b.docLength[id] = len(terms)
	b.totalLen += len(terms)

	seen := make(map[string]struct{})
	for _, term := range terms {
		if _, ok := b.postings[term]; !ok {
			b.postings[term] = make(map[string]int)
		}
		b.postings[term][id]++
		if _, exists := seen[term]; !exists {
			b.docFreq[term]++
			seen[term] = struct{}{}
		}
	}
}

type keywordResult struct {
	ID    string
	Score float32
}

func (b *bm25Index) search(query string, limit int) []keywordResult {
	terms := unique(tokenize(query))
	if len(terms) == 0 {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.docCount == 0 {
		return nil
	}
	avgLen := float64(b.totalLen) / float64(b.docCount)
	scores := make(map[string]float64)
	for _, term := range terms {
		postings := b.postings[term]
		if len(postings) == 0 {
			continue
		}
		df := b.docFreq[term]
		idf := math.Log((float64(b.docCount)-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for id, tf := range postings {
			docLen := float64(b.docLength[id])
			numerator := float64(tf) * (b.k1 + 1)
			denominator := float64(tf) + b.k1*(1-b.b+b.b*(docLen/avgLen))
			scores[id] += idf * (numerator / denominator)
		}
	}
	results := make([]keywordResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, keywordResult{ID: id, Score: float32(score)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func tokenize(content string) []string {
	return bm25Regex.FindAllString(strings.ToLower(content), -1)
}

func unique(tokens []string) []string {
	if len(tokens) == 0 {
		return tokens
	}
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
