package gate

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Search defaults.
const (
	DefaultStep  = 0.5
	DefaultFloor = 0.02 // never evaluate less than 2% of the grid
)

// SearchConfig parameterises the iterative downsample search.
type SearchConfig struct {
	MemLimitMB          float64 `yaml:"mem_limit_mb" mapstructure:"mem_limit_mb"`
	AllowAutoDownsample bool    `yaml:"allow_auto_downsample" mapstructure:"allow_auto_downsample"`
	Step                float64 `yaml:"step" mapstructure:"step"`   // multiplier per iteration, in (0, 1); default 0.5
	Floor               float64 `yaml:"floor" mapstructure:"floor"` // lowest rate tried, in (0, 1]; default 0.02
}

// ActionDecision is the outcome of the iterative downsample search.
// FinalSubsample and Estimates.FinalSubsample always hold the same value.
type ActionDecision struct {
	Action         Action    `json:"action"`
	Reason         string    `json:"reason"`
	Estimates      Telemetry `json:"estimates"`
	FinalSubsample float64   `json:"final_subsample"`
}

// Apply returns a copy of w carrying the decided subsample rate.
// The caller's workload is never modified by the gate.
func (d ActionDecision) Apply(w Workload) Workload {
	w.SubsampleRate = d.FinalSubsample
	return w
}

// DecideAction runs the iterative search with the default formula-based Gate.
func DecideAction(w Workload, memLimitMB float64, allowAutoDownsample bool, step, floor float64) ActionDecision {
	return Gate{}.Search(w, SearchConfig{
		MemLimitMB:          memLimitMB,
		AllowAutoDownsample: allowAutoDownsample,
		Step:                step,
		Floor:               floor,
	})
}

// Search finds the largest rate on the geometric ladder start, start×step, ... floor
// whose byte estimate fits within cfg.MemLimitMB.
//
//   - invalid workload (bars or params <= 0): BLOCK with zero estimate
//   - fits at the starting rate: PASS, rate unchanged
//   - does not fit and auto-downsample is off: BLOCK at the starting rate
//   - first fitting rate on the ladder: AUTO_DOWNSAMPLE at that rate
//   - floor does not fit: BLOCK carrying the floor estimate, FinalSubsample == floor
//
// The starting rate is w.SubsampleRate; an unset rate (<= 0, NaN or > 1) means 1.
// The floor only bounds the downsample ladder. A start already below the floor is
// checked as given and never raised; if it does not fit the result is BLOCK at that rate.
// Search is pure: w is passed by value and never written back.
func (g Gate) Search(w Workload, cfg SearchConfig) ActionDecision {
	step := cfg.Step
	if math.IsNaN(step) || step <= 0 || step >= 1 {
		step = DefaultStep
	}
	floor := cfg.Floor
	if math.IsNaN(floor) || floor <= 0 || floor > 1 {
		floor = DefaultFloor
	}
	budget := saturate(cfg.MemLimitMB * bytesPerMB)

	if !w.Valid() {
		return finish(ActionBlock, blockedTelemetry(w, budget),
			fmt.Sprintf("invalid workload: bars=%d params=%d", w.Bars, w.Params))
	}

	rate := normalizeRate(w.SubsampleRate)
	tel := newTelemetry(w, rate, budget, g.CostModel)
	if budget <= 0 {
		return finish(ActionBlock, tel, fmt.Sprintf("non-positive memory limit: %g MB", cfg.MemLimitMB))
	}
	if fits(tel) {
		return finish(ActionPass, tel, fmt.Sprintf("estimated %s fits memory limit %s at subsample %.4f",
			humanize.IBytes(uint64(tel.EstimatedBytes)), humanize.IBytes(uint64(budget)), rate))
	}
	if !cfg.AllowAutoDownsample {
		return finish(ActionBlock, tel, fmt.Sprintf("estimated %s exceeds memory limit %s and auto-downsample is disabled",
			humanize.IBytes(uint64(tel.EstimatedBytes)), humanize.IBytes(uint64(budget))))
	}

	steps := 0
	for rate > floor {
		rate = math.Max(rate*step, floor)
		steps++
		tel = newTelemetry(w, rate, budget, g.CostModel)
		tel.Steps = steps
		if fits(tel) {
			return finish(ActionAutoDownsample, tel, fmt.Sprintf(
				"downsampled %.4f -> %.4f after %d step(s): estimated %s fits memory limit %s (%d of %d params)",
				tel.OriginalSubsample, rate, steps, humanize.IBytes(uint64(tel.EstimatedBytes)),
				humanize.IBytes(uint64(budget)), tel.EffectiveParams, w.Params))
		}
	}
	tel.Steps = steps
	return finish(ActionBlock, tel, fmt.Sprintf("estimated %s exceeds memory limit %s even at subsample %.4f (floor %.4f)",
		humanize.IBytes(uint64(tel.EstimatedBytes)), humanize.IBytes(uint64(budget)), rate, floor))
}

func fits(tel Telemetry) bool {
	return tel.EstimatedBytes <= tel.BudgetBytes
}

func finish(action Action, tel Telemetry, reason string) ActionDecision {
	return ActionDecision{
		Action:         action,
		Reason:         reason,
		Estimates:      tel,
		FinalSubsample: tel.FinalSubsample,
	}
}
