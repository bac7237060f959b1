// Package testutil provides shared test fixtures for the funnel packages:
// deterministic synthetic price series and parameter grids.
package testutil

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gridfunnel/gridfunnel/funnel"
)

// TrendingCloses returns n closes following a drifting sine wave with seeded noise.
// The same (n, seed) always yields the same series.
func TrendingCloses(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	v := 100.0
	for i := range out {
		v += 0.02 + 0.8*math.Sin(float64(i)/17.0) + rng.NormFloat64()*0.3
		out[i] = v
	}
	return out
}

// Prices wraps TrendingCloses into a PriceSeries with derived OHLC and volume.
func Prices(t testing.TB, n int, seed int64) funnel.PriceSeries {
	t.Helper()
	closes := TrendingCloses(n, seed)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	vol := make([]float64, n)
	for i, c := range closes {
		open[i] = c
		if i > 0 {
			open[i] = closes[i-1]
		}
		high[i] = math.Max(open[i], c) + 0.1
		low[i] = math.Min(open[i], c) - 0.1
		vol[i] = 1000 + float64(i%50)
	}
	ps, err := funnel.NewPriceSeries(open, high, low, closes, vol)
	if err != nil {
		t.Fatalf("building fixture prices: %v", err)
	}
	return ps
}

// WindowGrid returns every (fast, slow) pair with fast in fasts and slow in slows
// as a ParameterMatrix, fast-major.
func WindowGrid(t testing.TB, fasts, slows []int) funnel.ParameterMatrix {
	t.Helper()
	rows := make([][]float64, 0, len(fasts)*len(slows))
	for _, f := range fasts {
		for _, s := range slows {
			rows = append(rows, []float64{float64(f), float64(s)})
		}
	}
	m, err := funnel.NewParameterMatrix(rows)
	if err != nil {
		t.Fatalf("building fixture grid: %v", err)
	}
	return m
}

// Range returns lo, lo+step, ... up to and including hi.
func Range(lo, hi, step int) []int {
	var out []int
	for v := lo; v <= hi; v += step {
		out = append(out, v)
	}
	return out
}
