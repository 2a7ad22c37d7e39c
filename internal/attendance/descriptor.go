package attendance

import "math"

// Descriptor is a fixed-length face feature vector.
type Descriptor []float32

// EuclideanDistance returns the L2 distance between two descriptors.
// Descriptors of different (or zero) length are infinitely far apart.
func EuclideanDistance(a, b Descriptor) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
