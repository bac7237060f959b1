package funnel

import "math"

// RejectedProxy is the sentinel proxy value of a row that could not be scored
// (for example a window length outside (0, bars)). It ranks below every real score.
var RejectedProxy = math.Inf(-1)

// RowMeta is informational output of a scorer. The selector never reads it.
type RowMeta struct {
	FastLen    int    `json:"fast_len"`
	SlowLen    int    `json:"slow_len"`
	ActiveBars int    `json:"active_bars"` // bars contributing after warmup
	Path       string `json:"path,omitempty"`
}

// Stage0Result is the cheap proxy score of one parameter row.
// ProxyValue is the only field Top-K selection may read.
type Stage0Result struct {
	ParamID    int      `json:"param_id"`
	ProxyValue float64  `json:"proxy_value"`
	WarmupOK   bool     `json:"warmup_ok"`
	Meta       *RowMeta `json:"meta,omitempty"`
}

// Rejected reports whether the row carries the hard-reject sentinel.
func (r Stage0Result) Rejected() bool {
	return math.IsInf(r.ProxyValue, -1) || math.IsNaN(r.ProxyValue)
}

// Stage2Result holds the confirmation metrics of one Top-K member.
type Stage2Result struct {
	ParamID int                `json:"param_id"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// ConfirmFunc is the expensive Stage-2 scorer. The funnel calls it exactly once per
// Top-K member, in Top-K order, and returns its first error without modification.
type ConfirmFunc func(paramID int) (Stage2Result, error)

// ProxyScorer computes one Stage0Result per matrix row, in row order.
// Implementations return an error only for malformed inputs (caller bugs); per-row
// degeneracy is encoded as RejectedProxy.
type ProxyScorer interface {
	Score(prices PriceSeries, m ParameterMatrix) ([]Stage0Result, error)
}

// ScorerConfig selects and tunes a ProxyScorer.
type ScorerConfig struct {
	Path    string  // kernel path: "batch" (default) or "portable"
	Workers int     // >1 scores row chunks concurrently; results are identical to sequential
	Epsilon float64 // added to the return std; 0 selects the scorer default
}

// DefaultScorerConfig returns the sequential batch-path configuration.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{Path: "batch", Workers: 1}
}

// NewProxyScorerFunc is the factory for the default ProxyScorer.
// Set by funnel/proxy's init(); import that package (possibly blank) before
// calling RunFunnel.
var NewProxyScorerFunc func(cfg ScorerConfig) (ProxyScorer, error)
