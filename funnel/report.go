package funnel

import (
	"time"

	"github.com/google/uuid"
)

// ReportSchemaVersion identifies the layout of Report. Bump it when a section changes shape.
const ReportSchemaVersion = "gridfunnel/v1"

// AdmissionSection mirrors the gate decision that preceded a run.
// It is filled by callers from funnel/gate so this package stays independent of it.
type AdmissionSection struct {
	Action            string  `json:"action"`
	Reason            string  `json:"reason,omitempty"`
	EstimatedBytes    int64   `json:"estimated_bytes"`
	BudgetBytes       int64   `json:"budget_bytes"`
	EstimatedOps      int64   `json:"estimated_ops"`
	EstimatedSeconds  float64 `json:"estimated_seconds"`
	OriginalSubsample float64 `json:"original_subsample"`
	FinalSubsample    float64 `json:"final_subsample"`
	EffectiveParams   int64   `json:"effective_params"`
}

// SummarySection holds population-level counts of Stage 0.
type SummarySection struct {
	Rows        int     `json:"rows"`
	Rejected    int     `json:"rejected"`
	K           int     `json:"k"`
	Selected    int     `json:"selected"`
	Confirmed   int     `json:"confirmed"`
	BestProxy   float64 `json:"best_proxy,omitempty"`
	CutoffProxy float64 `json:"cutoff_proxy,omitempty"`
}

// RankedEntry joins the Stage-0 and Stage-2 view of one Top-K member.
type RankedEntry struct {
	Rank      int                `json:"rank"` // 1-based
	ParamID   int                `json:"param_id"`
	SourceRow int                `json:"source_row"` // row in the full grid before subsampling
	Params    []float64          `json:"params"`
	Proxy     float64            `json:"proxy_value"`
	Meta      *RowMeta           `json:"meta,omitempty"`
	Confirm   map[string]float64 `json:"confirm,omitempty"`
}

// Report is the self-describing, size-bounded result of a run handed to artifact
// writers. Its size depends on k, never on the grid or series length, and it carries
// no per-bar arrays.
type Report struct {
	SchemaVersion string            `json:"schema_version"`
	RunID         string            `json:"run_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Admission     *AdmissionSection `json:"admission,omitempty"`
	Summary       SummarySection    `json:"summary"`
	TopK          []RankedEntry     `json:"topk"`
}

// ReportOptions carries context the Output does not know about.
type ReportOptions struct {
	Admission  *AdmissionSection
	Matrix     *ParameterMatrix // when set, each entry carries its parameter row
	SourceRows []int            // subsample mapping from ApplySubsample; nil means identity
}

// Report builds the bounded Report for this output.
func (o *Output) Report(opts ReportOptions) *Report {
	rep := &Report{
		SchemaVersion: ReportSchemaVersion,
		RunID:         uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Admission:     opts.Admission,
		Summary: SummarySection{
			Rows:      len(o.Stage0),
			Rejected:  countRejected(o.Stage0),
			K:         o.K,
			Selected:  len(o.TopK),
			Confirmed: len(o.Stage2),
		},
		TopK: make([]RankedEntry, 0, len(o.TopK)),
	}

	confirmed := make(map[int]map[string]float64, len(o.Stage2))
	for _, s := range o.Stage2 {
		confirmed[s.ParamID] = s.Metrics
	}

	for i, id := range o.TopK {
		r := o.Stage0[id]
		entry := RankedEntry{
			Rank:      i + 1,
			ParamID:   id,
			SourceRow: id,
			Proxy:     r.ProxyValue,
			Meta:      r.Meta,
			Confirm:   confirmed[id],
		}
		if opts.SourceRows != nil && id < len(opts.SourceRows) {
			entry.SourceRow = opts.SourceRows[id]
		}
		if opts.Matrix != nil && id < opts.Matrix.Rows() {
			entry.Params = append([]float64(nil), opts.Matrix.Row(id)...)
		}
		rep.TopK = append(rep.TopK, entry)
	}

	if len(o.TopK) > 0 {
		rep.Summary.BestProxy = o.Stage0[o.TopK[0]].ProxyValue
		rep.Summary.CutoffProxy = o.Stage0[o.TopK[len(o.TopK)-1]].ProxyValue
	}
	return rep
}
