package funnel

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var (
	// ErrTooFewColumns is returned when a parameter matrix has fewer than MinColumns columns.
	ErrTooFewColumns = errors.New("funnel: parameter matrix needs at least 2 columns")
	// ErrRaggedMatrix is returned when parameter rows differ in length.
	ErrRaggedMatrix = errors.New("funnel: parameter rows have different lengths")
)

// MinColumns is the number of leading columns every scorer may rely on (fast, slow window).
const MinColumns = 2

// ParameterMatrix is a dense, row-major grid of candidate parameters.
// It is immutable once built; Row returns a read-only view into shared storage.
type ParameterMatrix struct {
	rows int
	cols int
	data []float64
}

// NewParameterMatrix copies rows into a ParameterMatrix.
// Returns ErrTooFewColumns or ErrRaggedMatrix for malformed input. Zero rows is valid.
func NewParameterMatrix(rows [][]float64) (ParameterMatrix, error) {
	if len(rows) == 0 {
		return ParameterMatrix{cols: MinColumns}, nil
	}
	cols := len(rows[0])
	if cols < MinColumns {
		return ParameterMatrix{}, fmt.Errorf("%w: got %d", ErrTooFewColumns, cols)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return ParameterMatrix{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrRaggedMatrix, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return ParameterMatrix{rows: len(rows), cols: cols, data: data}, nil
}

// NewParameterMatrix32 is NewParameterMatrix for single-precision grids.
// Values are widened to float64 so downstream scores are always float64.
func NewParameterMatrix32(rows [][]float32) (ParameterMatrix, error) {
	wide := make([][]float64, len(rows))
	for i, r := range rows {
		wide[i] = toFloat64(r)
	}
	return NewParameterMatrix(wide)
}

// NewParameterMatrixFlat wraps an existing row-major buffer without copying.
// The caller must not modify data afterwards.
func NewParameterMatrixFlat(data []float64, cols int) (ParameterMatrix, error) {
	if cols < MinColumns {
		return ParameterMatrix{}, fmt.Errorf("%w: got %d", ErrTooFewColumns, cols)
	}
	if len(data)%cols != 0 {
		return ParameterMatrix{}, fmt.Errorf("%w: %d values is not a multiple of %d columns", ErrRaggedMatrix, len(data), cols)
	}
	return ParameterMatrix{rows: len(data) / cols, cols: cols, data: data}, nil
}

// Rows returns the number of parameter rows.
func (m ParameterMatrix) Rows() int { return m.rows }

// Cols returns the number of columns per row.
func (m ParameterMatrix) Cols() int { return m.cols }

// Row returns row i. The slice aliases the matrix storage and must not be modified.
func (m ParameterMatrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// Validate checks the structural invariants scorers depend on.
func (m ParameterMatrix) Validate() error {
	if m.cols < MinColumns {
		return fmt.Errorf("%w: got %d", ErrTooFewColumns, m.cols)
	}
	if len(m.data) != m.rows*m.cols {
		return fmt.Errorf("%w: storage holds %d values for %dx%d", ErrRaggedMatrix, len(m.data), m.rows, m.cols)
	}
	return nil
}

// EffectiveRows returns max(1, floor(total*rate)) for a non-empty grid, the row count an
// admission decision at that rate permits. An empty grid stays empty.
// An unset rate (NaN, <= 0) means the full grid, as in the gate; rates >= 1 cap at total.
func EffectiveRows(total int, rate float64) int {
	if total <= 0 {
		return 0
	}
	if math.IsNaN(rate) || rate <= 0 || rate >= 1 {
		return total
	}
	n := int(float64(total) * rate)
	if n < 1 {
		n = 1
	}
	return n
}

// SampleRows draws n distinct indices from [0, total) with Floyd's algorithm and
// returns them ascending. Memory is proportional to n, not total, so a small sample of
// a huge grid never allocates a permutation of the whole grid.
// n is clamped to [0, total]; the same seed always yields the same indices.
func SampleRows(total, n int, seed int64) []int {
	if total <= 0 || n <= 0 {
		return []int{}
	}
	if n >= total {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	rng := rand.New(rand.NewSource(seed))
	chosen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for j := total - n; j < total; j++ {
		t := rng.Intn(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// ApplySubsample returns a new matrix holding EffectiveRows(m.Rows(), rate) rows drawn
// without replacement by SampleRows, kept in their original relative order.
// sourceRows[i] is the row of m that became row i of the result, so param_ids of
// the subsampled run can be mapped back to the full grid.
// A rate >= 1 or an unset rate returns m unchanged with the identity mapping.
func ApplySubsample(m ParameterMatrix, rate float64, seed int64) (sub ParameterMatrix, sourceRows []int) {
	n := EffectiveRows(m.rows, rate)
	if n >= m.rows {
		sourceRows = make([]int, m.rows)
		for i := range sourceRows {
			sourceRows[i] = i
		}
		return m, sourceRows
	}
	sourceRows = SampleRows(m.rows, n, seed)

	data := make([]float64, 0, n*m.cols)
	for _, r := range sourceRows {
		data = append(data, m.Row(r)...)
	}
	return ParameterMatrix{rows: n, cols: m.cols, data: data}, sourceRows
}

func toFloat64[T float32 | float64](x []T) []float64 {
	if x == nil {
		return nil
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}
