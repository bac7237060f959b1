package proxy

import (
	"fmt"
	"math"

	"github.com/gridfunnel/gridfunnel/funnel"
	"github.com/gridfunnel/gridfunnel/funnel/kernels"
)

// Confirmer is a diagnostic Stage-2 callback. It re-derives the row's moving
// average signal on the portable path and reports how the signal behaved bar by
// bar. It is meant for dry runs and tests where the real confirmation engine is
// not wired in; it does not simulate trades.
type Confirmer struct {
	prices funnel.PriceSeries
	matrix funnel.ParameterMatrix
	ret    []float64
	denom  float64
}

// NewConfirmer validates prices and m and prepares a Confirmer over them.
func NewConfirmer(prices funnel.PriceSeries, m funnel.ParameterMatrix) (*Confirmer, error) {
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	ret := kernels.Diff(prices.Close)
	return &Confirmer{
		prices: prices,
		matrix: m,
		ret:    ret,
		denom:  kernels.PopStd(ret) + DefaultEpsilon,
	}, nil
}

// Confirm computes diagnostics for one param_id. Metrics:
//   - proxy_portable: the proxy value recomputed on the portable path
//   - hit_ratio: share of non-flat calls whose sign matched the bar return
//   - sign_flips: number of spread sign changes after warmup
//   - active_bars: bars after warmup
//   - mean_abs_spread: mean |fast - slow| relative to close
func (c *Confirmer) Confirm(paramID int) (funnel.Stage2Result, error) {
	if paramID < 0 || paramID >= c.matrix.Rows() {
		return funnel.Stage2Result{}, fmt.Errorf("proxy: param_id %d out of range [0, %d)", paramID, c.matrix.Rows())
	}
	closes := c.prices.Close
	n := len(closes)
	row := c.matrix.Row(paramID)
	fast, fastOK := windowLength(row[0], n)
	slow, slowOK := windowLength(row[1], n)
	if !fastOK || !slowOK {
		return funnel.Stage2Result{}, fmt.Errorf("proxy: param_id %d has unusable windows fast=%d slow=%d", paramID, fast, slow)
	}

	fastMA := kernels.RollingMean(closes, fast)
	slowMA := kernels.RollingMean(closes, slow)
	warmup := max(fast, slow)

	var sum, spreadSum float64
	var calls, hits, flips int
	prev := 0.0
	for t := warmup; t < n; t++ {
		spread := fastMA[t] - slowMA[t]
		sign := kernels.Sign(spread)
		sum += sign * c.ret[t-1]
		if closes[t] != 0 {
			spreadSum += math.Abs(spread / closes[t])
		}
		if sign != 0 {
			calls++
			if kernels.Sign(c.ret[t-1]) == sign {
				hits++
			}
			if prev != 0 && sign != prev {
				flips++
			}
			prev = sign
		}
	}

	active := n - warmup
	metrics := map[string]float64{
		"proxy_portable":  sum / c.denom,
		"active_bars":     float64(active),
		"sign_flips":      float64(flips),
		"hit_ratio":       0,
		"mean_abs_spread": spreadSum / float64(active),
	}
	if calls > 0 {
		metrics["hit_ratio"] = float64(hits) / float64(calls)
	}
	return funnel.Stage2Result{ParamID: paramID, Metrics: metrics}, nil
}
