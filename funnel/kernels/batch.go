package kernels

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PrefixSums returns p with p[0] = 0 and p[i+1] = x[0] + ... + x[i].
// The extra leading zero lets WindowMean address any window without branching.
func PrefixSums(x []float64) []float64 {
	p := make([]float64, len(x)+1)
	floats.CumSum(p[1:], x)
	return p
}

// WindowMean returns the mean of the window samples ending at index t, read
// from prefix sums built by PrefixSums. It returns NaN when t < window-1.
func WindowMean(prefix []float64, window, t int) float64 {
	if window <= 0 || t < window-1 || t+1 >= len(prefix) {
		return math.NaN()
	}
	return (prefix[t+1] - prefix[t+1-window]) / float64(window)
}

// RollingMeanBatch is the batch-path counterpart of RollingMean.
func RollingMeanBatch(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	if window <= 0 || window > len(x) {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	p := PrefixSums(x)
	for t := range out {
		out[t] = WindowMean(p, window, t)
	}
	return out
}

// PopStdBatch returns the population standard deviation of x via gonum, which
// also uses a corrected two-pass algorithm. Empty input returns 0.
func PopStdBatch(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.PopStdDev(x, nil)
}
