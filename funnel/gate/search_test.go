package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mbWorkload estimates exactly params MiB at rate 1.
func mbWorkload(params int64, rate float64) Workload {
	return Workload{Bars: 1024, Params: params, SubsampleRate: rate, IntentsPerBar: 1, BytesPerIntent: 1024}
}

func TestDecideAction_FitsAtStart_PassUnchanged(t *testing.T) {
	d := DecideAction(mbWorkload(100, 1.0), 100, true, 0.5, 0.02)
	assert.Equal(t, ActionPass, d.Action)
	assert.Equal(t, 1.0, d.FinalSubsample)
	assert.Equal(t, 0, d.Estimates.Steps)
	assert.Equal(t, int64(100<<20), d.Estimates.EstimatedBytes)
}

func TestDecideAction_AutoDisabled_Block(t *testing.T) {
	d := DecideAction(mbWorkload(200, 1.0), 100, false, 0.5, 0.02)
	assert.Equal(t, ActionBlock, d.Action)
	assert.Equal(t, 1.0, d.FinalSubsample)
	assert.Contains(t, d.Reason, "disabled")
}

func TestDecideAction_StepsDownToFirstFit(t *testing.T) {
	// GIVEN 1000 MiB at full rate and a 300 MiB limit
	d := DecideAction(mbWorkload(1000, 1.0), 300, true, 0.5, 0.02)

	// THEN 1.0 -> 0.5 (500) -> 0.25 (250 fits)
	assert.Equal(t, ActionAutoDownsample, d.Action)
	assert.Equal(t, 0.25, d.FinalSubsample)
	assert.Equal(t, d.FinalSubsample, d.Estimates.FinalSubsample)
	assert.Equal(t, 2, d.Estimates.Steps)
	assert.Equal(t, 1.0, d.Estimates.OriginalSubsample)
	assert.Equal(t, int64(250), d.Estimates.EffectiveParams)
	assert.Equal(t, int64(250<<20), d.Estimates.EstimatedBytes)
	assert.InDelta(t, 250.0, d.Estimates.EstimatedMB, 1e-9)
	assert.InDelta(t, 300.0, d.Estimates.BudgetMB, 1e-9)
}

func TestDecideAction_FloorMiss_BlockAtFloorExactly(t *testing.T) {
	// GIVEN a workload too large even at 2%
	d := DecideAction(mbWorkload(100_000, 1.0), 100, true, 0.5, 0.02)

	// THEN BLOCK carrying the floor estimate
	assert.Equal(t, ActionBlock, d.Action)
	assert.Equal(t, 0.02, d.FinalSubsample)
	assert.Equal(t, 0.02, d.Estimates.FinalSubsample)
	assert.Equal(t, int64(2000<<20), d.Estimates.EstimatedBytes)
	// 0.5, 0.25, 0.125, 0.0625, 0.03125, then clamped to 0.02
	assert.Equal(t, 6, d.Estimates.Steps)
}

func TestDecideAction_FloorItselfFits_AutoDownsampleAtFloor(t *testing.T) {
	d := DecideAction(mbWorkload(1000, 1.0), 20, true, 0.5, 0.02)
	assert.Equal(t, ActionAutoDownsample, d.Action)
	assert.Equal(t, 0.02, d.FinalSubsample)
}

func TestDecideAction_InvalidInput_BlockZeroEstimate(t *testing.T) {
	for _, w := range []Workload{mbWorkload(0, 1), {Bars: 0, Params: 10, SubsampleRate: 1, IntentsPerBar: 1, BytesPerIntent: 1}} {
		d := DecideAction(w, 100, true, 0.5, 0.02)
		assert.Equal(t, ActionBlock, d.Action)
		assert.Equal(t, int64(0), d.Estimates.EstimatedBytes)
	}
}

func TestDecideAction_DefaultsForInvalidStepAndFloor(t *testing.T) {
	// step 0 and floor 0 fall back to 0.5 / 0.02
	d := DecideAction(mbWorkload(100_000, 1.0), 100, true, 0, 0)
	assert.Equal(t, ActionBlock, d.Action)
	assert.Equal(t, DefaultFloor, d.FinalSubsample)

	d = DecideAction(mbWorkload(1000, 1.0), 300, true, 1.5, -1)
	assert.Equal(t, 0.25, d.FinalSubsample)
}

func TestDecideAction_StartBelowFloor_FitsAtRequestedRate(t *testing.T) {
	// GIVEN 1000 MiB at full rate requested at 1%, against a 15 MiB limit
	d := DecideAction(mbWorkload(1000, 0.01), 15, true, 0.5, 0.02)

	// THEN the requested rate fits and passes unchanged, never raised to the floor
	assert.Equal(t, ActionPass, d.Action)
	assert.Equal(t, 0.01, d.FinalSubsample)
	assert.Equal(t, 0.01, d.Estimates.OriginalSubsample)
	assert.Equal(t, int64(10<<20), d.Estimates.EstimatedBytes)
	assert.Equal(t, 0, d.Estimates.Steps)
}

func TestDecideAction_StartBelowFloor_NoFit_BlockAtRequestedRate(t *testing.T) {
	d := DecideAction(mbWorkload(1000, 0.01), 5, true, 0.5, 0.02)
	assert.Equal(t, ActionBlock, d.Action)
	assert.Equal(t, 0.01, d.FinalSubsample)
	assert.Equal(t, 0, d.Estimates.Steps)
}

func TestDecideAction_UnsetStartRate_FullGrid(t *testing.T) {
	for _, rate := range []float64{0, -1, 1.5} {
		d := DecideAction(mbWorkload(100, rate), 100, true, 0.5, 0.02)
		assert.Equal(t, ActionPass, d.Action)
		assert.Equal(t, 1.0, d.FinalSubsample)
	}
}

func TestDecideAction_CallerWorkloadNeverMutated(t *testing.T) {
	// GIVEN a caller-owned workload
	w := mbWorkload(1000, 1.0)
	before := w

	// WHEN the search downsamples it
	d := DecideAction(w, 300, true, 0.5, 0.02)

	// THEN the caller's copy is untouched and Apply carries the decided rate
	assert.Equal(t, before, w)
	applied := d.Apply(w)
	assert.Equal(t, d.FinalSubsample, applied.SubsampleRate)
	assert.Equal(t, before, w)

	// AND re-running at the applied rate passes without further steps
	again := DecideAction(applied, 300, true, 0.5, 0.02)
	assert.Equal(t, ActionPass, again.Action)
	assert.Equal(t, d.FinalSubsample, again.FinalSubsample)
}

func TestDecideAction_NonPositiveLimit_Blocks(t *testing.T) {
	d := DecideAction(mbWorkload(1, 1), 0, true, 0.5, 0.02)
	assert.Equal(t, ActionBlock, d.Action)
}

func TestSearch_CostModelOverride(t *testing.T) {
	calls := 0
	g := Gate{CostModel: CostModelFunc(func(w Workload) int64 {
		calls++
		return int64(w.SubsampleRate * 1000)
	})}
	d := g.Search(mbWorkload(1000, 1.0), SearchConfig{MemLimitMB: 300, AllowAutoDownsample: true})
	require.Equal(t, ActionAutoDownsample, d.Action)
	assert.Equal(t, int64(250), d.Estimates.EstimatedOps)
	assert.Equal(t, "cost_model", d.Estimates.OpsSource)
	assert.Equal(t, 3, calls, "one estimate per evaluated rate")
}
