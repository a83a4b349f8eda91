package utils

import "math"

// Summary : min, mean and max over the finite entries of a distance vector
type Summary struct {
	Count int
	Min   float64
	Mean  float64
	Max   float64
}

// Summarize ignores +Inf entries (frames not yet scored against any center)
func Summarize(distances []float64) Summary {
	var s Summary
	var sum float64

	for _, d := range distances {
		if math.IsInf(d, 0) || math.IsNaN(d) {
			continue
		}
		if s.Count == 0 || d < s.Min {
			s.Min = d
		}
		if s.Count == 0 || d > s.Max {
			s.Max = d
		}
		sum += d
		s.Count++
	}

	if s.Count > 0 {
		s.Mean = sum / float64(s.Count)
	}
	return s
}
