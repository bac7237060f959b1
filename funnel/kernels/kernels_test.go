package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_ShortInput_Empty(t *testing.T) {
	assert.Empty(t, Diff(nil))
	assert.Empty(t, Diff([]float64{1}))
}

func TestDiff_ConsecutiveDifferences(t *testing.T) {
	assert.Equal(t, []float64{1, -2, 4}, Diff([]float64{1, 2, 0, 4}))
}

func TestSign_AllCases(t *testing.T) {
	assert.Equal(t, 1.0, Sign(0.5))
	assert.Equal(t, -1.0, Sign(-3))
	assert.Equal(t, 0.0, Sign(0))
	assert.Equal(t, 0.0, Sign(math.NaN()), "NaN must never vote")
}

func TestRollingMean_WarmupIndicesAreNaN(t *testing.T) {
	// GIVEN a window of 3 over 5 samples
	got := RollingMean([]float64{1, 2, 3, 4, 5}, 3)

	// THEN indices 0 and 1 are invalid, the rest are trailing means
	require.Len(t, got, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-12)
	assert.InDelta(t, 3.0, got[3], 1e-12)
	assert.InDelta(t, 4.0, got[4], 1e-12)
}

func TestRollingMean_InvalidWindow_AllNaN(t *testing.T) {
	for _, w := range []int{0, -1, 6} {
		got := RollingMean([]float64{1, 2, 3, 4, 5}, w)
		for i, v := range got {
			assert.Truef(t, math.IsNaN(v), "window=%d index=%d: expected NaN, got %v", w, i, v)
		}
	}
}

func TestRollingMeanBatch_AgreesWithPortable(t *testing.T) {
	// GIVEN a noisy series
	x := make([]float64, 500)
	v := 100.0
	for i := range x {
		v += math.Sin(float64(i)*0.37) * 1.3
		x[i] = v
	}

	for _, w := range []int{1, 2, 7, 50, 499} {
		// WHEN both paths compute the rolling mean
		a := RollingMean(x, w)
		b := RollingMeanBatch(x, w)

		// THEN they agree within float noise and share the same invalid prefix
		for i := range x {
			if i < w-1 {
				assert.True(t, math.IsNaN(a[i]) && math.IsNaN(b[i]))
				continue
			}
			assert.InDeltaf(t, a[i], b[i], 1e-9, "window=%d index=%d", w, i)
		}
	}
}

func TestWindowMean_BeforeWarmup_NaN(t *testing.T) {
	p := PrefixSums([]float64{1, 2, 3})
	assert.Equal(t, []float64{0, 1, 3, 6}, p)
	assert.True(t, math.IsNaN(WindowMean(p, 3, 1)))
	assert.InDelta(t, 2.0, WindowMean(p, 3, 2), 1e-12)
	assert.True(t, math.IsNaN(WindowMean(p, 2, 3)), "t beyond series end")
}

func TestPopStd_KnownValues(t *testing.T) {
	// population std of {2,4,4,4,5,5,7,9} is exactly 2
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, PopStd(x), 1e-12)
	assert.InDelta(t, 2.0, PopStdBatch(x), 1e-12)
	assert.Equal(t, 0.0, PopStd(nil))
	assert.Equal(t, 0.0, PopStdBatch(nil))
}

func TestPopStd_LargeOffset_StaysStable(t *testing.T) {
	// GIVEN values with a huge common offset (single-pass formulas lose all precision here)
	x := []float64{1e9 + 4, 1e9 + 7, 1e9 + 13, 1e9 + 16}

	// THEN the two-pass result matches the offset-free answer
	want := PopStd([]float64{4, 7, 13, 16})
	assert.InDelta(t, want, PopStd(x), 1e-6)
	assert.InDelta(t, want, PopStdBatch(x), 1e-6)
}

func TestParsePath_KnownAndUnknown(t *testing.T) {
	p, err := ParsePath("")
	require.NoError(t, err)
	assert.Equal(t, PathBatch, p)

	p, err = ParsePath(" Portable ")
	require.NoError(t, err)
	assert.Equal(t, PathPortable, p)

	_, err = ParsePath("simd")
	assert.Error(t, err)
	assert.False(t, IsValidPath("simd"))
	assert.True(t, IsValidPath("batch"))
}

func TestValidWindow_Bounds(t *testing.T) {
	assert.False(t, ValidWindow(0, 10))
	assert.False(t, ValidWindow(10, 10))
	assert.True(t, ValidWindow(9, 10))
	assert.True(t, ValidWindow(1, 10))
}
