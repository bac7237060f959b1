package gate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateBytes_ProductTruncated(t *testing.T) {
	assert.Equal(t, int64(100*50*2*16), EstimateBytes(100, 50, 1, 2, 16))
	assert.Equal(t, int64(12), EstimateBytes(5, 5, 0.5, 1, 1), "12.5 truncates to 12")
	assert.Equal(t, int64(0), EstimateBytes(0, 1000, 1, 1, 1))
}

func TestEstimateBytes_DegenerateInputs_NoPanic(t *testing.T) {
	assert.Equal(t, int64(0), EstimateBytes(-10, 5, 1, 1, 1))
	assert.Equal(t, int64(0), EstimateBytes(10, 5, math.NaN(), 1, 1))
	assert.Equal(t, int64(0), EstimateBytes(0, 5, math.Inf(1), 1, 1))
	assert.Equal(t, int64(math.MaxInt64), EstimateBytes(math.MaxInt64, math.MaxInt64, 1, 1e6, 1e6))
}

func TestEstimateBytes_MonotoneInEachInput(t *testing.T) {
	// GIVEN a base point and a sweep of each input in isolation
	base := [5]float64{1000, 500, 0.5, 2, 8}
	sweep := []float64{-3, 0, 0.01, 0.5, 1, 2, 7.5, 100, 1e4}
	eval := func(v [5]float64) int64 {
		return EstimateBytes(int64(v[0]), int64(v[1]), v[2], v[3], v[4])
	}

	for dim := 0; dim < 5; dim++ {
		prev := int64(math.MinInt64)
		for _, x := range sweep {
			p := base
			p[dim] = x
			got := eval(p)

			// THEN the estimate never decreases as one input grows
			assert.GreaterOrEqualf(t, got, prev, "dim=%d x=%v", dim, x)
			prev = got
		}
	}
}

func TestEffectiveParams_NeverZero(t *testing.T) {
	assert.Equal(t, int64(1), EffectiveParams(1000, 0))
	assert.Equal(t, int64(1), EffectiveParams(1000, 0.0001))
	assert.Equal(t, int64(1), EffectiveParams(0, 1))
	assert.Equal(t, int64(20), EffectiveParams(1000, 0.02))
	assert.Equal(t, int64(333), EffectiveParams(1000, 0.3333))
}

func TestEstimateOps_FormulaAndOverride(t *testing.T) {
	w := Workload{Bars: 200, Params: 1000, SubsampleRate: 0.1, IntentsPerBar: 3}
	assert.Equal(t, int64(200*100*3), EstimateOps(w, nil))

	model := CostModelFunc(func(Workload) int64 { return 7 })
	assert.Equal(t, int64(7), EstimateOps(w, model))

	est := Estimate(w, nil)
	assert.Equal(t, int64(0), est.EstimatedBytes, "zero bytes per intent")
	assert.Equal(t, int64(60_000), est.EstimatedOps)
}
