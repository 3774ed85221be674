package experiment

import "math"

// Stats is a four-number summary of per-episode figures.
type Stats struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Synthesize summarizes xs. An empty slice yields all zeros, which is
// what the log reports for updates in which no episode finished.
func Synthesize(xs []float64) Stats {
	if len(xs) == 0 {
		return Stats{}
	}
	s := Stats{Min: xs[0], Max: xs[0]}
	var sum float64
	for _, x := range xs {
		sum += x
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
	}
	s.Mean = sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - s.Mean
		sq += d * d
	}
	s.Std = math.Sqrt(sq / float64(len(xs)))
	return s
}

// SuccessRate is the fraction of episodes with positive return.
func SuccessRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var wins int
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}
