package index

import "math"

// EuclideanDistance computes the L2 distance between two equal-length
// vectors. It is the hot-path distance kernel shared by every index in
// this package and by the brute-force baselines; dimension mismatches
// are a programmer error and are only checked once at ingestion, never
// inside the search loop.
func EuclideanDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}
