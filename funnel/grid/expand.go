package grid

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gridfunnel/gridfunnel/funnel"
)

// Columns returns the column names in matrix order.
func (s *Spec) Columns() []string {
	cols := []string{"fast", "slow"}
	for _, d := range s.Extra {
		cols = append(cols, d.Name)
	}
	return cols
}

// windowPairs returns the (fast, slow) pairs kept after the fast_below_slow filter.
func (s *Spec) windowPairs() [][2]float64 {
	fasts, slows := s.Fast.Points(), s.Slow.Points()
	pairs := make([][2]float64, 0, len(fasts)*len(slows))
	for _, f := range fasts {
		for _, sl := range slows {
			if s.FastBelowSlow && f >= sl {
				continue
			}
			pairs = append(pairs, [2]float64{f, sl})
		}
	}
	return pairs
}

func (s *Spec) pairCount() int64 {
	fasts, slows := s.Fast.Points(), s.Slow.Points()
	if !s.FastBelowSlow {
		return int64(len(fasts)) * int64(len(slows))
	}
	var n int64
	for _, f := range fasts {
		for _, sl := range slows {
			if f < sl {
				n++
			}
		}
	}
	return n
}

// Count returns the number of rows Expand would produce without allocating them,
// so the admission gate can size the workload first. Counts beyond MaxRows return ErrTooLarge.
func (s *Spec) Count() (int64, error) {
	n := s.pairCount()
	for _, d := range s.Extra {
		n *= int64(len(d.Points()))
		if n > MaxRows {
			break
		}
	}
	if n > MaxRows {
		return 0, fmt.Errorf("%w: %d rows", ErrTooLarge, n)
	}
	return n, nil
}

// Expand materializes the grid as a row-major ParameterMatrix.
func (s *Spec) Expand() (funnel.ParameterMatrix, error) {
	n, err := s.Count()
	if err != nil {
		return funnel.ParameterMatrix{}, err
	}
	pairs := s.windowPairs()
	extras := make([][]float64, len(s.Extra))
	for i, d := range s.Extra {
		extras[i] = d.Points()
	}
	cols := 2 + len(extras)

	data := make([]float64, 0, int(n)*cols)
	row := make([]float64, cols)
	for _, p := range pairs {
		row[0], row[1] = p[0], p[1]
		data = appendProduct(data, row, extras, 0)
	}
	logrus.Debugf("grid: expanded %d rows x %d columns", n, cols)
	return funnel.NewParameterMatrixFlat(data, cols)
}

// ExpandSample materializes only the rows funnel.ApplySubsample would keep from
// Expand() at the same rate and seed. Chosen indices are decoded in place, so memory
// is proportional to the sample rather than the full grid.
// sourceRows maps each result row back to its index in the full grid.
func (s *Spec) ExpandSample(rate float64, seed int64) (m funnel.ParameterMatrix, sourceRows []int, err error) {
	n, err := s.Count()
	if err != nil {
		return funnel.ParameterMatrix{}, nil, err
	}
	keep := funnel.EffectiveRows(int(n), rate)
	if int64(keep) >= n {
		m, err = s.Expand()
		if err != nil {
			return funnel.ParameterMatrix{}, nil, err
		}
		_, sourceRows = funnel.ApplySubsample(m, 1, seed)
		return m, sourceRows, nil
	}

	pairs := s.windowPairs()
	extras := make([][]float64, len(s.Extra))
	block := 1
	for i, d := range s.Extra {
		extras[i] = d.Points()
		block *= len(extras[i])
	}
	cols := 2 + len(extras)

	sourceRows = funnel.SampleRows(int(n), keep, seed)
	data := make([]float64, 0, keep*cols)
	row := make([]float64, cols)
	for _, idx := range sourceRows {
		p := pairs[idx/block]
		row[0], row[1] = p[0], p[1]
		rem := idx % block
		for d := len(extras) - 1; d >= 0; d-- {
			row[2+d] = extras[d][rem%len(extras[d])]
			rem /= len(extras[d])
		}
		data = append(data, row...)
	}
	logrus.Debugf("grid: sampled %d of %d rows x %d columns", keep, n, cols)
	m, err = funnel.NewParameterMatrixFlat(data, cols)
	return m, sourceRows, err
}

// appendProduct appends every combination of extras[depth:] behind row[:2+depth].
func appendProduct(data, row []float64, extras [][]float64, depth int) []float64 {
	if depth == len(extras) {
		return append(data, row...)
	}
	for _, v := range extras[depth] {
		row[2+depth] = v
		data = appendProduct(data, row, extras, depth+1)
	}
	return data
}
