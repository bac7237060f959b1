package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// headerAliases maps accepted CSV header names to Bar columns.
var headerAliases = map[string]string{
	"t": "t", "time": "t", "timestamp": "t",
	"o": "o", "open": "o",
	"h": "h", "high": "h",
	"l": "l", "low": "l",
	"c": "c", "close": "c",
	"v": "v", "volume": "v",
}

// LoadCSV reads bars from a CSV file with a header row.
func LoadCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading csv bars: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses bars from r. The header names the columns (case-insensitive, long or
// one-letter form); close is required, the rest are optional and default to close
// (prices) or zero (timestamp, volume). A missing timestamp column keeps file order.
func ReadCSV(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing csv bars: empty file")
		}
		return nil, fmt.Errorf("parsing csv bars: %w", err)
	}
	idx := map[string]int{}
	for i, name := range header {
		if col, ok := headerAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			idx[col] = i
		}
	}
	if _, ok := idx["c"]; !ok {
		return nil, fmt.Errorf("parsing csv bars: no close column in header %v", header)
	}

	var bars []Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing csv bars: %w", err)
		}
		field := func(col string) (float64, bool, error) {
			i, ok := idx[col]
			if !ok {
				return 0, false, nil
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return 0, false, fmt.Errorf("parsing csv bars: line %d column %q: %w", line, header[i], err)
			}
			return v, true, nil
		}

		var b Bar
		c, _, err := field("c")
		if err != nil {
			return nil, err
		}
		b.Close, b.Open, b.High, b.Low = c, c, c, c
		for _, col := range []struct {
			name string
			dst  *float64
		}{{"o", &b.Open}, {"h", &b.High}, {"l", &b.Low}, {"v", &b.Volume}} {
			v, ok, err := field(col.name)
			if err != nil {
				return nil, err
			}
			if ok {
				*col.dst = v
			}
		}
		ts, ok, err := field("t")
		if err != nil {
			return nil, err
		}
		if ok {
			b.Timestamp = int64(ts)
		} else {
			b.Timestamp = int64(len(bars))
		}
		bars = append(bars, b)
	}
	return bars, nil
}
