// Package grid expands a declarative parameter-grid file into a funnel.ParameterMatrix.
//
// A grid file is YAML, parsed strictly so that a misspelled key is an error:
//
//	version: "1"
//	fast: {min: 2, max: 30, step: 2}
//	slow: {min: 10, max: 200, step: 10}
//	extra:
//	  - name: stop_loss
//	    values: [0.01, 0.02, 0.05]
//	fast_below_slow: true
//
// Columns are fast, slow, then each extra dimension in file order. Rows enumerate the
// cartesian product with the last column varying fastest.
package grid

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxRows bounds the expanded grid so a typo in a step cannot exhaust memory before the
// admission gate ever sees the workload.
const MaxRows = 50_000_000

// ErrTooLarge is returned when a spec expands beyond MaxRows.
var ErrTooLarge = errors.New("grid: expanded grid exceeds MaxRows")

// Dimension is one axis of the grid: either an explicit value list or an inclusive
// min..max range walked in step increments.
type Dimension struct {
	Name   string    `yaml:"name,omitempty"`
	Min    float64   `yaml:"min,omitempty"`
	Max    float64   `yaml:"max,omitempty"`
	Step   float64   `yaml:"step,omitempty"`
	Values []float64 `yaml:"values,omitempty"`
}

// Spec is the top-level grid file.
type Spec struct {
	Version       string      `yaml:"version"`
	Fast          Dimension   `yaml:"fast"`
	Slow          Dimension   `yaml:"slow"`
	Extra         []Dimension `yaml:"extra,omitempty"`
	FastBelowSlow bool        `yaml:"fast_below_slow,omitempty"` // drop rows with fast >= slow
}

// Load reads and parses a grid file. Unknown keys are rejected.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grid spec: %w", err)
	}
	return Parse(data)
}

// Parse decodes a grid spec from YAML and validates it.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing grid spec: %w", err)
	}
	if spec.Version == "" {
		spec.Version = "1"
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks every dimension and the version.
func (s *Spec) Validate() error {
	if s.Version != "1" {
		return fmt.Errorf("grid: unsupported version %q; valid: 1", s.Version)
	}
	if err := s.Fast.validate("fast"); err != nil {
		return err
	}
	if err := s.Slow.validate("slow"); err != nil {
		return err
	}
	for i := range s.Extra {
		d := &s.Extra[i]
		if d.Name == "" {
			return fmt.Errorf("grid: extra[%d]: name is required", i)
		}
		if err := d.validate("extra." + d.Name); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dimension) validate(name string) error {
	if len(d.Values) > 0 {
		if d.Step != 0 || d.Min != 0 || d.Max != 0 {
			return fmt.Errorf("grid: %s: values and min/max/step are mutually exclusive", name)
		}
		for _, v := range d.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("grid: %s: values must be finite, got %f", name, v)
			}
		}
		return nil
	}
	for _, v := range []float64{d.Min, d.Max, d.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("grid: %s: min, max and step must be finite numbers, got %f", name, v)
		}
	}
	if d.Step <= 0 {
		return fmt.Errorf("grid: %s: step must be positive, got %f", name, d.Step)
	}
	if d.Max < d.Min {
		return fmt.Errorf("grid: %s: max %g is below min %g", name, d.Max, d.Min)
	}
	if (d.Max-d.Min)/d.Step >= MaxRows {
		return fmt.Errorf("%w: %s has more than %d points", ErrTooLarge, name, MaxRows)
	}
	return nil
}

// Points returns the values of the dimension in order.
// Range points are min + i×step, so long ranges do not accumulate drift.
func (d Dimension) Points() []float64 {
	if len(d.Values) > 0 {
		return append([]float64(nil), d.Values...)
	}
	// tolerate max landing a rounding error past the last step
	n := int(math.Floor((d.Max-d.Min)/d.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Min + float64(i)*d.Step
	}
	return out
}
