package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("identical vectors: got %v", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: got %v", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{-1, 0}); got != -1 {
		t.Errorf("opposite vectors: got %v", got)
	}
	// Magnitude must not matter.
	if got := CosineSimilarity([]float32{2, 0}, []float32{5, 0}); math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("scaled vectors: got %v", got)
	}
}

func TestCosineSimilarityDegenerate(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("length mismatch: got %v", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	vec := Normalize([]float32{3, 4})
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Errorf("unexpected normalization: %v", vec)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("norm: got %v", norm)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	vec := Normalize([]float32{0, 0})
	if vec[0] != 0 || vec[1] != 0 {
		t.Errorf("zero vector must stay zero: %v", vec)
	}
}

func TestDotEqualsCosineForUnitVectors(t *testing.T) {
	a := Normalize([]float32{1, 2, 3})
	b := Normalize([]float32{3, 2, 1})
	dot := Dot(a, b)
	cos := CosineSimilarity(a, b)
	if math.Abs(float64(dot-cos)) > 1e-6 {
		t.Errorf("dot %v != cosine %v", dot, cos)
	}
}
