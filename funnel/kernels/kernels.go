// Package kernels provides the pure array transforms used by the Stage-0 proxy scorer.
//
// Two execution paths are offered. The batch path leans on gonum's vectorised
// float routines and prefix sums so a rolling mean costs O(1) per index after a
// single O(n) pass. The portable path is plain Go loops with no third-party code.
// The two paths agree to floating-point noise, which is enough for every ranking
// decision built on top of them to come out identical.
package kernels

import (
	"fmt"
	"strings"
)

// Path selects the kernel implementation used by a scorer.
type Path string

const (
	// PathBatch uses prefix sums and gonum routines.
	PathBatch Path = "batch"
	// PathPortable uses plain loops.
	PathPortable Path = "portable"
)

// validPaths maps accepted path strings.
var validPaths = map[Path]bool{
	PathBatch:    true,
	PathPortable: true,
}

// IsValidPath returns true if the given string names a known kernel path.
func IsValidPath(name string) bool {
	return validPaths[Path(name)]
}

// ParsePath converts a user-supplied string to a Path. The empty string maps to PathBatch.
func ParsePath(name string) (Path, error) {
	p := Path(strings.ToLower(strings.TrimSpace(name)))
	if p == "" {
		return PathBatch, nil
	}
	if !validPaths[p] {
		return "", fmt.Errorf("kernels: unknown path %q; valid paths: [batch, portable]", name)
	}
	return p, nil
}

// Diff returns x[t]-x[t-1] for t in 1..n-1. Inputs shorter than two elements yield an empty slice.
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return []float64{}
	}
	out := make([]float64, len(x)-1)
	for t := 1; t < len(x); t++ {
		out[t-1] = x[t] - x[t-1]
	}
	return out
}

// Sign returns -1, 0 or +1. NaN maps to 0 so an undefined comparison never votes.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// ValidWindow reports whether a rolling window of length window is computable
// over n samples and leaves at least one index past warmup.
func ValidWindow(window, n int) bool {
	return window > 0 && window < n
}
