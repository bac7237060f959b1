package gate

import (
	"fmt"
	"strings"
)

// Action is the outcome of an admission decision.
type Action string

const (
	// ActionPass admits the workload unchanged.
	ActionPass Action = "PASS"
	// ActionBlock rejects the workload: shrink scope or raise the budget.
	ActionBlock Action = "BLOCK"
	// ActionAutoDownsample admits the workload at a reduced subsample rate.
	ActionAutoDownsample Action = "AUTO_DOWNSAMPLE"
)

// IsValid returns true if a is one of the three gate outcomes.
func (a Action) IsValid() bool {
	switch a {
	case ActionPass, ActionBlock, ActionAutoDownsample:
		return true
	default:
		return false
	}
}

// Admits reports whether the workload may run (possibly reduced).
func (a Action) Admits() bool {
	return a == ActionPass || a == ActionAutoDownsample
}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// ParseAction converts a string to an Action, case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("gate: unknown action %q", s)
	}
	return a, nil
}

// Fixed design margins. Admission below PassFraction of the budget leaves headroom for
// allocator overhead; above BlockFraction the run is too close to the ceiling to risk.
const (
	PassFraction  = 0.6
	BlockFraction = 0.9
)

// AssumedOpsPerSecond converts estimated operations into an estimated wall-clock time.
const AssumedOpsPerSecond = 2.5e8

// bytesPerMB is the MiB conversion used for all *MB fields.
const bytesPerMB = 1024 * 1024

// Telemetry is attached to every decision so callers can log what was decided and why.
type Telemetry struct {
	EstimatedBytes    int64   `json:"estimated_bytes"`
	EstimatedMB       float64 `json:"estimated_mb"`
	BudgetBytes       int64   `json:"budget_bytes"`
	BudgetMB          float64 `json:"budget_mb"`
	EstimatedOps      int64   `json:"estimated_ops"`
	EstimatedSeconds  float64 `json:"estimated_seconds"`
	OriginalSubsample float64 `json:"original_subsample"`
	FinalSubsample    float64 `json:"final_subsample"`
	EffectiveParams   int64   `json:"effective_params"`
	OpsSource         string  `json:"ops_source"` // "formula" or "cost_model"
	Steps             int     `json:"steps"`      // downsample iterations; 0 for threshold decisions
}

func newTelemetry(w Workload, rate float64, budgetBytes int64, model CostModel) Telemetry {
	at := w
	at.SubsampleRate = rate
	est := Estimate(at, model)
	source := "formula"
	if model != nil {
		source = "cost_model"
	}
	return Telemetry{
		EstimatedBytes:    est.EstimatedBytes,
		EstimatedMB:       float64(est.EstimatedBytes) / bytesPerMB,
		BudgetBytes:       budgetBytes,
		BudgetMB:          float64(budgetBytes) / bytesPerMB,
		EstimatedOps:      est.EstimatedOps,
		EstimatedSeconds:  float64(est.EstimatedOps) / AssumedOpsPerSecond,
		OriginalSubsample: w.SubsampleRate,
		FinalSubsample:    rate,
		EffectiveParams:   EffectiveParams(w.Params, rate),
		OpsSource:         source,
	}
}

// blockedTelemetry is the zero-estimate telemetry of an invalid workload.
func blockedTelemetry(w Workload, budgetBytes int64) Telemetry {
	return Telemetry{
		BudgetBytes:       budgetBytes,
		BudgetMB:          float64(budgetBytes) / bytesPerMB,
		OriginalSubsample: w.SubsampleRate,
		FinalSubsample:    w.SubsampleRate,
		OpsSource:         "formula",
	}
}
