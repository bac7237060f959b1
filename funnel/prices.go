package funnel

import (
	"errors"
	"fmt"
)

var (
	// ErrTooFewBars is returned when a price series cannot produce a single return.
	ErrTooFewBars = errors.New("funnel: price series needs at least 2 bars")
	// ErrRaggedPrices is returned when OHLC(V) arrays differ in length.
	ErrRaggedPrices = errors.New("funnel: price arrays have different lengths")
)

// MinBars is the shortest series a scorer accepts.
const MinBars = 2

// PriceSeries holds equal-length OHLC arrays plus optional volume. Read-only.
type PriceSeries struct {
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64 // optional; nil when the feed has no volume
}

// NewPriceSeries widens OHLC(V) arrays of either float precision into a validated PriceSeries.
// volume may be nil.
func NewPriceSeries[T float32 | float64](open, high, low, closes, volume []T) (PriceSeries, error) {
	ps := PriceSeries{
		Open:   toFloat64(open),
		High:   toFloat64(high),
		Low:    toFloat64(low),
		Close:  toFloat64(closes),
		Volume: toFloat64(volume),
	}
	if err := ps.Validate(); err != nil {
		return PriceSeries{}, err
	}
	return ps, nil
}

// CloseOnly builds a series where open/high/low mirror close. Useful when a feed only carries closes.
func CloseOnly(closes []float64) PriceSeries {
	return PriceSeries{Open: closes, High: closes, Low: closes, Close: closes}
}

// Bars returns the number of bars in the series.
func (p PriceSeries) Bars() int { return len(p.Close) }

// Validate checks array lengths. Missing open/high/low (nil) are tolerated; present
// arrays must match Close.
func (p PriceSeries) Validate() error {
	n := len(p.Close)
	if n < MinBars {
		return fmt.Errorf("%w: got %d", ErrTooFewBars, n)
	}
	optional := []struct {
		name string
		arr  []float64
	}{{"open", p.Open}, {"high", p.High}, {"low", p.Low}, {"volume", p.Volume}}
	for _, o := range optional {
		if o.arr != nil && len(o.arr) != n {
			return fmt.Errorf("%w: %s has %d bars, close has %d", ErrRaggedPrices, o.name, len(o.arr), n)
		}
	}
	return nil
}
