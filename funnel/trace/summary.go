package trace

// TraceSummary aggregates statistics from a FunnelTrace.
type TraceSummary struct {
	GateDecisions      int
	ActionDistribution map[string]int // action -> count
	MeanFinalSubsample float64
	MinFinalSubsample  float64
	Selections         int
	TotalRowsScored    int
	TotalRejected      int
	RejectedShare      float64 // TotalRejected / TotalRowsScored; 0 when nothing was scored
}

// Summarize computes aggregate statistics from a FunnelTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(ft *FunnelTrace) *TraceSummary {
	summary := &TraceSummary{
		ActionDistribution: make(map[string]int),
	}
	if ft == nil {
		return summary
	}

	summary.GateDecisions = len(ft.Gates)
	if len(ft.Gates) > 0 {
		total := 0.0
		summary.MinFinalSubsample = ft.Gates[0].FinalSubsample
		for _, g := range ft.Gates {
			summary.ActionDistribution[g.Action]++
			total += g.FinalSubsample
			if g.FinalSubsample < summary.MinFinalSubsample {
				summary.MinFinalSubsample = g.FinalSubsample
			}
		}
		summary.MeanFinalSubsample = total / float64(len(ft.Gates))
	}

	summary.Selections = len(ft.Selections)
	for _, s := range ft.Selections {
		summary.TotalRowsScored += s.Rows
		summary.TotalRejected += s.Rejected
	}
	if summary.TotalRowsScored > 0 {
		summary.RejectedShare = float64(summary.TotalRejected) / float64(summary.TotalRowsScored)
	}

	return summary
}
