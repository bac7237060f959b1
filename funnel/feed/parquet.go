package feed

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// LoadParquet reads every row of a Parquet file of Bar records.
func LoadParquet(path string) ([]Bar, error) {
	bars, err := parquet.ReadFile[Bar](path)
	if err != nil {
		return nil, fmt.Errorf("reading parquet bars: %w", err)
	}
	return bars, nil
}

// WriteParquet writes bars to path as a Parquet file.
func WriteParquet(path string, bars []Bar) error {
	if err := parquet.WriteFile(path, bars); err != nil {
		return fmt.Errorf("writing parquet bars: %w", err)
	}
	return nil
}
