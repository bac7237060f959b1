package kernels

import "math"

// RollingMean returns the trailing mean of window samples at every index.
// Indices before window-1 have no full window and hold NaN; callers must not read them.
// A window that is non-positive or longer than x yields an all-NaN slice.
func RollingMean(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || window > len(x) {
		return out
	}
	var sum float64
	for t := 0; t < len(x); t++ {
		sum += x[t]
		if t >= window {
			sum -= x[t-window]
		}
		if t >= window-1 {
			out[t] = sum / float64(window)
		}
	}
	return out
}

// PopStd returns the population standard deviation of x using a two-pass
// mean-then-variance computation. Empty input returns 0.
func PopStd(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))
	var ss, comp float64
	for _, v := range x {
		d := v - mean
		ss += d * d
		comp += d
	}
	// Second-pass compensation term removes residual error in the mean.
	variance := (ss - comp*comp/float64(len(x))) / float64(len(x))
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
