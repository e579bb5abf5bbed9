package retrieve

import (
	"math"
	"sort"

	"github.com/sweetpotato0/support-assistant/document"
)

// Quality labels a per-query retrieval outcome. No other label is ever
// produced.
type Quality string

const (
	QualityGood          Quality = "good"
	QualityPartiallyGood Quality = "partially_good"
	QualityPoor          Quality = "poor"
)

// Score thresholds calibrated empirically against the cross-encoder family
// used for reranking; the scorer guarantees no fixed range.
const (
	goodTopScore  = 4.0
	goodScoreGap  = 0.6
	partialTopMin = 3.0
)

// Assessment summarizes how well one query's reranked documents support an
// answer. Numeric fields are rounded to 3 decimals.
type Assessment struct {
	Quality           Quality  `json:"quality"`
	AvgScore          float64  `json:"avg_relevance_score"`
	TopScore          float64  `json:"top_relevance_score"`
	ScoreGap          float64  `json:"score_gap"`
	NumResults        int      `json:"num_results"`
	CategoriesCovered []string `json:"categories_covered"`
	Reason            string   `json:"reason,omitempty"`
}

// Evaluate classifies a retrieval outcome from its descending score list and
// the documents the scores belong to.
func Evaluate(scores []float64, docs []document.Document) Assessment {
	if len(scores) == 0 {
		return Assessment{
			Quality: QualityPoor,
			Reason:  "no_documents_retrieved",
		}
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := sum / float64(len(scores))
	top := scores[0]
	gap := top
	if len(scores) > 1 {
		gap = scores[0] - scores[1]
	}

	quality := QualityPoor
	switch {
	case top > goodTopScore && gap > goodScoreGap:
		quality = QualityGood
	case top > partialTopMin:
		quality = QualityPartiallyGood
	}

	seen := make(map[string]struct{})
	categories := make([]string, 0, len(docs))
	for _, doc := range docs {
		cat := doc.Category()
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	return Assessment{
		Quality:           quality,
		AvgScore:          Round3(avg),
		TopScore:          Round3(top),
		ScoreGap:          Round3(gap),
		NumResults:        len(docs),
		CategoriesCovered: categories,
	}
}

// Round3 rounds to exactly 3 decimal places.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
