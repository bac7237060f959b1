package gate

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Decision is the result of the single-shot threshold gate.
type Decision struct {
	Action                   Action    `json:"action"`
	EstimatedBytes           int64     `json:"estimated_bytes"`
	BudgetBytes              int64     `json:"budget_bytes"`
	RecommendedSubsampleRate *float64  `json:"recommended_subsample_rate,omitempty"` // set only for AUTO_DOWNSAMPLE
	Reason                   string    `json:"reason"`
	Telemetry                Telemetry `json:"telemetry"`
}

// Gate evaluates workloads against a budget. The zero value uses the built-in
// operation-count formula. A Gate holds no mutable state.
type Gate struct {
	CostModel CostModel
}

// Classify applies the fixed thresholds to an estimate: PASS at or below
// PassFraction of the budget, BLOCK above BlockFraction, AUTO_DOWNSAMPLE between.
func Classify(estimatedBytes, budgetBytes int64) Action {
	est, budget := float64(estimatedBytes), float64(budgetBytes)
	switch {
	case est <= PassFraction*budget:
		return ActionPass
	case est > BlockFraction*budget:
		return ActionBlock
	default:
		return ActionAutoDownsample
	}
}

// DecideGate runs the threshold gate with the default formula-based Gate.
func DecideGate(w Workload, budgetBytes int64) Decision {
	return Gate{}.Decide(w, budgetBytes)
}

// normalizeRate maps an unset (non-positive or NaN) rate to the full grid and caps at 1.
func normalizeRate(rate float64) float64 {
	if math.IsNaN(rate) || rate <= 0 || rate > 1 {
		return 1
	}
	return rate
}

// Decide classifies w against budgetBytes. Invalid workloads (bars or params <= 0)
// and non-positive budgets are blocked with a zero estimate before any arithmetic.
// For AUTO_DOWNSAMPLE the recommended rate is
// clamp(PassFraction × budget / (bars × params × intentsPerBar × bytesPerIntent), 0, 1).
// Telemetry estimates describe the workload at the rate it was submitted with.
func (g Gate) Decide(w Workload, budgetBytes int64) Decision {
	if !w.Valid() {
		return Decision{
			Action:      ActionBlock,
			BudgetBytes: budgetBytes,
			Reason:      fmt.Sprintf("invalid workload: bars=%d params=%d", w.Bars, w.Params),
			Telemetry:   blockedTelemetry(w, budgetBytes),
		}
	}
	if budgetBytes <= 0 {
		return Decision{
			Action:      ActionBlock,
			BudgetBytes: budgetBytes,
			Reason:      fmt.Sprintf("non-positive budget: %d bytes", budgetBytes),
			Telemetry:   blockedTelemetry(w, budgetBytes),
		}
	}

	rate := normalizeRate(w.SubsampleRate)
	tel := newTelemetry(w, rate, budgetBytes, g.CostModel)
	d := Decision{
		Action:         Classify(tel.EstimatedBytes, budgetBytes),
		EstimatedBytes: tel.EstimatedBytes,
		BudgetBytes:    budgetBytes,
		Telemetry:      tel,
	}

	switch d.Action {
	case ActionPass:
		d.Reason = fmt.Sprintf("estimated %s within %.0f%% of budget %s",
			humanize.IBytes(uint64(d.EstimatedBytes)), PassFraction*100, humanize.IBytes(uint64(budgetBytes)))
	case ActionBlock:
		d.Reason = fmt.Sprintf("estimated %s exceeds %.0f%% of budget %s",
			humanize.IBytes(uint64(d.EstimatedBytes)), BlockFraction*100, humanize.IBytes(uint64(budgetBytes)))
	case ActionAutoDownsample:
		full := nonNeg(float64(w.Bars)) * nonNeg(float64(w.Params)) * nonNeg(w.IntentsPerBar) * nonNeg(w.BytesPerIntent)
		recommended := math.Min(math.Max(PassFraction*float64(budgetBytes)/full, 0), 1)
		d.RecommendedSubsampleRate = &recommended
		d.Telemetry.FinalSubsample = recommended
		d.Telemetry.EffectiveParams = EffectiveParams(w.Params, recommended)
		d.Reason = fmt.Sprintf("estimated %s is between %.0f%% and %.0f%% of budget %s; recommended subsample %.4f",
			humanize.IBytes(uint64(d.EstimatedBytes)), PassFraction*100, BlockFraction*100,
			humanize.IBytes(uint64(budgetBytes)), recommended)
	}
	return d
}
