package funnel

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func results(values ...float64) []Stage0Result {
	out := make([]Stage0Result, len(values))
	for i, v := range values {
		out[i] = Stage0Result{ParamID: i, ProxyValue: v, WarmupOK: true}
	}
	return out
}

func TestSelectTopK_OrdersByValueThenID(t *testing.T) {
	// GIVEN ties at 3.0 and 1.0
	res := results(1.0, 3.0, 2.0, 3.0, 1.0)

	// WHEN all are selected
	got := SelectTopK(res, 5)

	// THEN higher value first, equal values by ascending param_id
	assert.Equal(t, []int{1, 3, 2, 0, 4}, got)
}

func TestSelectTopK_Lengths(t *testing.T) {
	res := results(5, 4, 3)
	assert.Empty(t, SelectTopK(res, 0))
	assert.Empty(t, SelectTopK(res, -2))
	assert.Empty(t, SelectTopK(nil, 3))
	assert.Equal(t, []int{0, 1}, SelectTopK(res, 2))
	assert.Equal(t, []int{0, 1, 2}, SelectTopK(res, 3))
	assert.Equal(t, []int{0, 1, 2}, SelectTopK(res, 100), "k beyond population returns the full ordered population")
}

func TestSelectTopK_RejectedAndNaN_RankLast(t *testing.T) {
	res := results(math.NaN(), math.Inf(-1), -5, math.Inf(-1), 2)
	assert.Equal(t, []int{4, 2, 1, 3, 0}, SelectTopK(res, 5))
}

func TestSelectTopK_HeapAndSortPaths_Agree(t *testing.T) {
	// GIVEN a large population with many exact ties
	rng := rand.New(rand.NewSource(3))
	vals := make([]float64, 5000)
	for i := range vals {
		vals[i] = float64(rng.Intn(200)) / 4
		if i%97 == 0 {
			vals[i] = math.Inf(-1)
		}
	}
	res := results(vals...)

	// reference: full sort by the documented key
	ref := make([]int, len(res))
	for i := range ref {
		ref[i] = i
	}
	slices.SortFunc(ref, func(a, b int) int {
		switch {
		case vals[a] > vals[b]:
			return -1
		case vals[a] < vals[b]:
			return 1
		default:
			return a - b
		}
	})

	// WHEN k is small (heap path) and large (sort path)
	for _, k := range []int{1, 10, 100, 1249, 1250, 4000, 5000} {
		// THEN both match the reference prefix
		assert.Equal(t, ref[:k], SelectTopK(res, k), "k=%d", k)
	}
}

func TestSelectTopK_IgnoresWarmupAndMeta(t *testing.T) {
	// GIVEN fixed (proxy, id) pairs
	base := results(0.5, 0.9, 0.9, -0.1, 0.7, 0.3)
	want := SelectTopK(base, 4)

	// WHEN warmup flags and meta are varied arbitrarily
	rng := rand.New(rand.NewSource(99))
	for trial := 0; trial < 50; trial++ {
		varied := make([]Stage0Result, len(base))
		copy(varied, base)
		for i := range varied {
			varied[i].WarmupOK = rng.Intn(2) == 0
			if rng.Intn(2) == 0 {
				varied[i].Meta = &RowMeta{FastLen: rng.Intn(100), SlowLen: rng.Intn(100), ActiveBars: rng.Intn(1000), Path: "x"}
			} else {
				varied[i].Meta = nil
			}
		}

		// THEN the selection never changes
		assert.Equal(t, want, SelectTopK(varied, 4))
	}
}

func TestSelectTopK_InputOrderIrrelevant(t *testing.T) {
	res := results(0.1, 0.4, 0.4, 0.2, 0.9, 0.4)
	want := SelectTopK(res, 4)

	shuffled := make([]Stage0Result, len(res))
	copy(shuffled, res)
	rand.New(rand.NewSource(5)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	assert.Equal(t, want, SelectTopK(shuffled, 4))
}
