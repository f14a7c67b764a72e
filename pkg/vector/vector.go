// Package vector provides small helpers for embedding vectors.
package vector

import "math"

// NormalizeL2 scales v in place to unit length. A zero vector is left unchanged.
func NormalizeL2(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)
	for i := range v {
		v[i] = float32(float64(v[i]) / magnitude)
	}
}
