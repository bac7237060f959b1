// Package feed loads OHLCV bar files into a funnel.PriceSeries.
//
// Supported formats are chosen by file extension: .parquet and .csv.
package feed

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gridfunnel/gridfunnel/funnel"
)

// ErrUnknownFormat is returned by Load for an unrecognized file extension.
var ErrUnknownFormat = errors.New("feed: unknown file format")

// Bar is one OHLCV bar.
type Bar struct {
	Timestamp int64   `json:"t" parquet:"t"` // Unix milliseconds
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	Volume    float64 `json:"v" parquet:"v"`
}

// Load reads the bar file at path and converts it to a PriceSeries.
func Load(path string) (funnel.PriceSeries, error) {
	var (
		bars []Bar
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		bars, err = LoadParquet(path)
	case ".csv":
		bars, err = LoadCSV(path)
	default:
		return funnel.PriceSeries{}, fmt.Errorf("%w: %q (valid: .parquet, .csv)", ErrUnknownFormat, ext)
	}
	if err != nil {
		return funnel.PriceSeries{}, err
	}
	logrus.Debugf("feed: loaded %d bars from %s", len(bars), path)
	return ToPriceSeries(bars)
}

// ToPriceSeries orders bars by timestamp and splits them into columns.
// The input slice is not modified.
func ToPriceSeries(bars []Bar) (funnel.PriceSeries, error) {
	sorted := append([]Bar(nil), bars...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	n := len(sorted)
	ps := funnel.PriceSeries{
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	for i, b := range sorted {
		if i > 0 && b.Timestamp == sorted[i-1].Timestamp {
			return funnel.PriceSeries{}, fmt.Errorf("feed: duplicate bar at timestamp %d", b.Timestamp)
		}
		ps.Open[i], ps.High[i], ps.Low[i], ps.Close[i], ps.Volume[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}
	if err := ps.Validate(); err != nil {
		return funnel.PriceSeries{}, err
	}
	return ps, nil
}
