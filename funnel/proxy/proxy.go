// Package proxy provides the Stage-0 directional-efficiency scorer.
//
// For each parameter row (fast_len, slow_len, ...) the scorer measures how well
// the sign of the fast-minus-slow moving-average spread lines up with the
// close-to-close return of the same bar, normalised by the population std of returns:
//
//	proxy = Σ_{t=w}^{n-1} sign(fast[t] - slow[t]) · ret[t-1] / (std(ret) + ε)
//
// with ret = diff(close) 0-based, so ret[t-1] = close[t] - close[t-1], and warmup
// start w = max(fast_len, slow_len).
package proxy

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gridfunnel/gridfunnel/funnel"
	"github.com/gridfunnel/gridfunnel/funnel/kernels"
)

// DefaultEpsilon keeps the normaliser positive on flat price series.
const DefaultEpsilon = 1e-12

// minChunkRows is the smallest row block handed to one worker.
const minChunkRows = 256

// Scorer computes directional-efficiency proxy values.
// The kernel path is fixed at construction, so batch and portable scorers can
// coexist in one process.
type Scorer struct {
	path    kernels.Path
	workers int
	epsilon float64
}

// NewScorer creates a Scorer from cfg. Returns error for an unknown path or a
// negative/non-finite epsilon.
func NewScorer(cfg funnel.ScorerConfig) (*Scorer, error) {
	path, err := kernels.ParsePath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	eps := cfg.Epsilon
	if eps == 0 {
		eps = DefaultEpsilon
	}
	if eps < 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
		return nil, fmt.Errorf("proxy: epsilon must be a positive finite number, got %v", cfg.Epsilon)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Scorer{path: path, workers: workers, epsilon: eps}, nil
}

// Path returns the kernel path this scorer uses.
func (s *Scorer) Path() kernels.Path { return s.path }

// series is the per-call read-only state shared by all rows.
type series struct {
	closes []float64
	ret    []float64
	prefix []float64 // batch path only
	denom  float64
}

// Score returns one Stage0Result per row of m, in row order.
// Malformed inputs (fewer than 2 bars, ragged price arrays, fewer than 2 matrix
// columns) return an error before any row is scored. Rows with an unusable
// window length get funnel.RejectedProxy and never cause an error.
func (s *Scorer) Score(prices funnel.PriceSeries, m funnel.ParameterMatrix) ([]funnel.Stage0Result, error) {
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	sr := s.prepare(prices.Close)
	results := make([]funnel.Stage0Result, m.Rows())

	if s.workers == 1 || m.Rows() < 2*minChunkRows {
		s.scoreRange(sr, m, results, 0, m.Rows())
	} else {
		chunk := max(minChunkRows, (m.Rows()+s.workers-1)/s.workers)
		var g errgroup.Group
		g.SetLimit(s.workers)
		for lo := 0; lo < m.Rows(); lo += chunk {
			lo, hi := lo, min(lo+chunk, m.Rows())
			g.Go(func() error {
				// Each worker owns results[lo:hi]; sr and m are read-only.
				s.scoreRange(sr, m, results, lo, hi)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	logrus.Debugf("proxy: scored %d rows over %d bars on %s path with %d worker(s) in %v",
		m.Rows(), prices.Bars(), s.path, s.workers, time.Since(start))
	return results, nil
}

func (s *Scorer) prepare(closes []float64) *series {
	sr := &series{closes: closes, ret: kernels.Diff(closes)}
	switch s.path {
	case kernels.PathPortable:
		sr.denom = kernels.PopStd(sr.ret) + s.epsilon
	default:
		sr.denom = kernels.PopStdBatch(sr.ret) + s.epsilon
		sr.prefix = kernels.PrefixSums(closes)
	}
	return sr
}

func (s *Scorer) scoreRange(sr *series, m funnel.ParameterMatrix, out []funnel.Stage0Result, lo, hi int) {
	for i := lo; i < hi; i++ {
		out[i] = s.scoreRow(sr, i, m.Row(i))
	}
}

// scoreRow never fails: any row it cannot score gets the reject sentinel.
func (s *Scorer) scoreRow(sr *series, id int, row []float64) funnel.Stage0Result {
	n := len(sr.closes)
	fast, fastOK := windowLength(row[0], n)
	slow, slowOK := windowLength(row[1], n)
	res := funnel.Stage0Result{
		ParamID:    id,
		ProxyValue: funnel.RejectedProxy,
		Meta:       &funnel.RowMeta{FastLen: fast, SlowLen: slow, Path: string(s.path)},
	}
	if !fastOK || !slowOK {
		return res
	}

	warmup := max(fast, slow)
	var sum float64
	switch s.path {
	case kernels.PathPortable:
		fastMA := kernels.RollingMean(sr.closes, fast)
		slowMA := kernels.RollingMean(sr.closes, slow)
		for t := warmup; t < n; t++ {
			sum += kernels.Sign(fastMA[t]-slowMA[t]) * sr.ret[t-1]
		}
	default:
		for t := warmup; t < n; t++ {
			spread := kernels.WindowMean(sr.prefix, fast, t) - kernels.WindowMean(sr.prefix, slow, t)
			sum += kernels.Sign(spread) * sr.ret[t-1]
		}
	}

	value := sum / sr.denom
	if math.IsNaN(value) {
		return res
	}
	res.ProxyValue = value
	res.WarmupOK = true
	res.Meta.ActiveBars = n - warmup
	return res
}

// windowLength truncates a matrix value to a window length and reports whether it
// is usable over n bars.
func windowLength(v float64, n int) (int, bool) {
	if math.IsNaN(v) || v < 1 || v >= float64(n) {
		if v > math.MinInt32 && v < math.MaxInt32 {
			return int(v), false
		}
		return 0, false
	}
	l := int(v)
	return l, kernels.ValidWindow(l, n)
}
