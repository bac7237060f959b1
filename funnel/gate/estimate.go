// Package gate provides the pre-flight resource estimator and admission ("OOM") gate.
//
// Every function here is a pure calculation over a Workload description: no I/O,
// no shared state, no panics on degenerate sizes. Callers validate inputs; the gate
// turns invalid sizes into a BLOCK decision instead of an error.
package gate

import "math"

// Workload describes the sweep the caller intends to run.
type Workload struct {
	Bars           int64   `yaml:"bars" mapstructure:"bars"`
	Params         int64   `yaml:"params" mapstructure:"params"` // rows in the full grid
	SubsampleRate  float64 `yaml:"subsample_rate" mapstructure:"subsample_rate"`
	IntentsPerBar  float64 `yaml:"intents_per_bar" mapstructure:"intents_per_bar"`
	BytesPerIntent float64 `yaml:"bytes_per_intent" mapstructure:"bytes_per_intent"`
}

// Valid reports whether the workload has a positive bar and parameter count.
func (w Workload) Valid() bool {
	return w.Bars > 0 && w.Params > 0
}

// CostModel overrides the built-in operation-count formula.
// Its answer is authoritative: the gate does not reconcile it with the formula.
type CostModel interface {
	EstimateOps(w Workload) int64
}

// CostModelFunc adapts a function to CostModel.
type CostModelFunc func(w Workload) int64

// EstimateOps calls f(w).
func (f CostModelFunc) EstimateOps(w Workload) int64 { return f(w) }

// ResourceEstimate is the estimated footprint of a workload.
type ResourceEstimate struct {
	EstimatedBytes int64
	EstimatedOps   int64
}

// nonNeg clamps negative and NaN factors to zero so every estimate is monotone.
func nonNeg(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// saturate truncates v to int64, pinning values beyond the int64 range at MaxInt64.
// NaN (0 × Inf) maps to 0.
func saturate(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// EstimateBytes returns bars × params × rate × intentsPerBar × bytesPerIntent, truncated.
// Negative factors count as zero, which keeps the result non-decreasing in every input.
func EstimateBytes(bars, params int64, rate, intentsPerBar, bytesPerIntent float64) int64 {
	return saturate(nonNeg(float64(bars)) * nonNeg(float64(params)) * nonNeg(rate) *
		nonNeg(intentsPerBar) * nonNeg(bytesPerIntent))
}

// EffectiveParams returns max(1, floor(total × rate)), never zero so a tiny rate cannot
// produce a zero-cost estimate.
func EffectiveParams(total int64, rate float64) int64 {
	n := saturate(math.Floor(nonNeg(float64(total)) * nonNeg(rate)))
	if n < 1 {
		return 1
	}
	return n
}

// EstimateOps returns bars × EffectiveParams × intentsPerBar, or model.EstimateOps(w)
// when model is non-nil.
func EstimateOps(w Workload, model CostModel) int64 {
	if model != nil {
		return model.EstimateOps(w)
	}
	return saturate(nonNeg(float64(w.Bars)) * float64(EffectiveParams(w.Params, w.SubsampleRate)) * nonNeg(w.IntentsPerBar))
}

// Estimate returns both byte and operation estimates for w.
func Estimate(w Workload, model CostModel) ResourceEstimate {
	return ResourceEstimate{
		EstimatedBytes: EstimateBytes(w.Bars, w.Params, w.SubsampleRate, w.IntentsPerBar, w.BytesPerIntent),
		EstimatedOps:   EstimateOps(w, model),
	}
}
