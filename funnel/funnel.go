package funnel

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridfunnel/gridfunnel/funnel/trace"
)

// Stage names used by observers and traces.
const (
	StageProxy   = "stage0"
	StageSelect  = "topk"
	StageConfirm = "stage2"
)

// Observer receives per-stage timings. funnel/metrics provides a Prometheus implementation.
type Observer interface {
	ObserveStage(stage string, items int, elapsed time.Duration)
}

// Output is the composed result of one funnel run.
// Stage0 has one entry per input row; TopK and Stage2 are bounded by k.
type Output struct {
	Stage0 []Stage0Result
	TopK   []int
	Stage2 []Stage2Result
	K      int
}

// Funnel wires a ProxyScorer to Top-K selection and a Stage-2 callback.
// A Funnel holds no per-run state and may be reused.
type Funnel struct {
	scorer   ProxyScorer
	observer Observer
	trace    *trace.FunnelTrace
}

// Option configures a Funnel.
type Option func(*Funnel)

// WithObserver attaches a stage timing observer.
func WithObserver(o Observer) Option {
	return func(f *Funnel) { f.observer = o }
}

// WithTrace records the selection of every run into t.
func WithTrace(t *trace.FunnelTrace) Option {
	return func(f *Funnel) { f.trace = t }
}

// New creates a Funnel around an explicit scorer.
func New(scorer ProxyScorer, opts ...Option) *Funnel {
	f := &Funnel{scorer: scorer}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RunFunnel runs the pipeline with the default scorer registered in NewProxyScorerFunc.
func RunFunnel(prices PriceSeries, m ParameterMatrix, k int, confirm ConfirmFunc) (*Output, error) {
	if NewProxyScorerFunc == nil {
		return nil, errors.New("funnel: no proxy scorer registered; import github.com/gridfunnel/gridfunnel/funnel/proxy")
	}
	scorer, err := NewProxyScorerFunc(DefaultScorerConfig())
	if err != nil {
		return nil, err
	}
	return New(scorer).Run(prices, m, k, confirm)
}

// Run scores every row, selects the k best and confirms them in order.
// Validation errors from the scorer are returned before any confirmation happens.
// Rows carrying RejectedProxy never reach Stage 2, so len(TopK) may be below k.
// An error from confirm is returned as is and ends the run.
func (f *Funnel) Run(prices PriceSeries, m ParameterMatrix, k int, confirm ConfirmFunc) (*Output, error) {
	if f.scorer == nil {
		return nil, errors.New("funnel: nil proxy scorer")
	}
	if confirm == nil {
		return nil, errors.New("funnel: nil confirm callback")
	}

	start := time.Now()
	stage0, err := f.scorer.Score(prices, m)
	if err != nil {
		return nil, err
	}
	if err := checkStage0(stage0, m.Rows()); err != nil {
		return nil, err
	}
	f.observe(StageProxy, len(stage0), time.Since(start))

	start = time.Now()
	ranked := SelectTopK(stage0, k)
	topk := make([]int, 0, len(ranked))
	for _, id := range ranked {
		if !stage0[id].Rejected() {
			topk = append(topk, id)
		}
	}
	f.observe(StageSelect, len(topk), time.Since(start))

	rejected := countRejected(stage0)
	logrus.Debugf("funnel: scored %d rows (%d rejected), selected %d of k=%d", len(stage0), rejected, len(topk), k)
	if rejected > 0 && rejected == len(stage0) {
		logrus.Warnf("funnel: all %d parameter rows were rejected by the proxy scorer", rejected)
	}

	start = time.Now()
	stage2 := make([]Stage2Result, 0, len(topk))
	for _, id := range topk {
		res, err := confirm(id)
		if err != nil {
			return nil, err
		}
		res.ParamID = id
		stage2 = append(stage2, res)
	}
	f.observe(StageConfirm, len(stage2), time.Since(start))

	if f.trace != nil {
		f.trace.RecordSelection(selectionRecord(stage0, topk, k, rejected))
	}

	return &Output{Stage0: stage0, TopK: topk, Stage2: stage2, K: k}, nil
}

func (f *Funnel) observe(stage string, items int, elapsed time.Duration) {
	if f.observer != nil {
		f.observer.ObserveStage(stage, items, elapsed)
	}
}

// checkStage0 enforces the scorer contract: one result per row, param_id == row index.
func checkStage0(stage0 []Stage0Result, rows int) error {
	if len(stage0) != rows {
		return fmt.Errorf("funnel: scorer returned %d results for %d rows", len(stage0), rows)
	}
	for i, r := range stage0 {
		if r.ParamID != i {
			return fmt.Errorf("funnel: scorer result %d carries param_id %d", i, r.ParamID)
		}
	}
	return nil
}

func countRejected(stage0 []Stage0Result) int {
	n := 0
	for _, r := range stage0 {
		if r.Rejected() {
			n++
		}
	}
	return n
}

func selectionRecord(stage0 []Stage0Result, topk []int, k, rejected int) trace.SelectionRecord {
	rec := trace.SelectionRecord{
		Rows:     len(stage0),
		Rejected: rejected,
		K:        k,
		Selected: append([]int(nil), topk...),
	}
	if len(topk) > 0 {
		rec.BestProxy = stage0[topk[0]].ProxyValue
		rec.CutoffProxy = stage0[topk[len(topk)-1]].ProxyValue
	}
	return rec
}
