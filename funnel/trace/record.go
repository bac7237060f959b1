// Package trace provides decision-trace recording for admission and selection analysis.
// It has no dependencies on funnel/ or funnel/gate/ and stores pure data types only.
package trace

// GateRecord captures a single admission gate decision.
type GateRecord struct {
	Workload          string // caller-chosen label, e.g. grid file name
	Action            string // PASS, BLOCK or AUTO_DOWNSAMPLE
	Reason            string
	EstimatedBytes    int64
	BudgetBytes       int64
	OriginalSubsample float64
	FinalSubsample    float64
	EffectiveParams   int64
	Steps             int // downsample iterations taken by the search
}

// SelectionRecord captures one Top-K selection.
type SelectionRecord struct {
	Rows        int
	Rejected    int // rows carrying the hard-reject sentinel
	K           int
	Selected    []int   // param_ids sent to confirmation, best first
	BestProxy   float64 // proxy value of Selected[0]; 0 if none selected
	CutoffProxy float64 // proxy value of the last selected row; 0 if none selected
}
