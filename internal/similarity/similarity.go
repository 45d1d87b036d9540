// Package similarity provides the scalar similarity measures the dedup
// engine is built on.
package similarity

import (
	"math"
	"strings"
)

// Cosine returns the cosine similarity of two vectors in [-1, 1]. A zero
// vector or a dimension mismatch yields 0.0 rather than an error; the caller
// treats such records as incomparable.
func Cosine(vecA, vecB []float64) float64 {
	if len(vecA) != len(vecB) || len(vecA) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range vecA {
		dot += vecA[i] * vecB[i]
		normA += vecA[i] * vecA[i]
		normB += vecB[i] * vecB[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}

	sim := dot / math.Sqrt(normA*normB)
	// Guard against float drift past the mathematical range.
	if sim > 1.0 {
		return 1.0
	}
	if sim < -1.0 {
		return -1.0
	}
	return sim
}

// Text returns the Jaccard similarity of two texts over their lower-cased,
// whitespace-tokenized word sets. Empty text on either side yields 0.0;
// identical text yields 1.0.
func Text(textA, textB string) float64 {
	wordsA := tokenSet(textA)
	wordsB := tokenSet(textB)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}
