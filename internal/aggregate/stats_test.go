package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHarmonicMean(t *testing.T) {
	t.Parallel()

	t.Run("single pair returns the value", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 0.13, HarmonicMean([]float64{0.13}, []float64{10}), 1e-12)
	})

	t.Run("dominated by the low value", func(t *testing.T) {
		t.Parallel()
		// Sand over Clay, equal thickness: the tight layer governs.
		hm := HarmonicMean([]float64{4.74, 0.01}, []float64{1, 1})
		am := ArithmeticMean([]float64{4.74, 0.01}, []float64{1, 1})
		assert.Less(t, hm, 0.2)
		assert.Less(t, hm, am)
	})

	t.Run("skips non-positive values and weights", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 2.0, HarmonicMean([]float64{2, 0, 5}, []float64{1, 1, 0}), 1e-12)
	})

	t.Run("no valid pairs yields NaN", func(t *testing.T) {
		t.Parallel()
		assert.True(t, math.IsNaN(HarmonicMean([]float64{0, -1}, []float64{1, 1})))
		assert.True(t, math.IsNaN(HarmonicMean(nil, nil)))
	})
}

func TestArithmeticMean(t *testing.T) {
	t.Parallel()

	t.Run("single pair returns the value", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 3.5, ArithmeticMean([]float64{3.5}, []float64{4}), 1e-12)
	})

	t.Run("weighted", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 2.5, ArithmeticMean([]float64{1, 3}, []float64{1, 3}), 1e-12)
	})

	t.Run("NaN values keep their weight in the denominator", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 1.0, ArithmeticMean([]float64{2, math.NaN()}, []float64{1, 1}), 1e-12)
	})

	t.Run("zero total weight yields NaN", func(t *testing.T) {
		t.Parallel()
		assert.True(t, math.IsNaN(ArithmeticMean([]float64{1, 2}, []float64{0, 0})))
	})
}

func TestGuardedMean(t *testing.T) {
	t.Parallel()

	t.Run("weighted when weights exist", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 2.5, GuardedMean([]float64{1, 3}, []float64{1, 3}), 1e-12)
	})

	t.Run("falls back to plain mean with zero weights", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 2.0, GuardedMean([]float64{1, 3}, []float64{0, 0}), 1e-12)
	})

	t.Run("ignores NaN values in fallback", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 3.0, GuardedMean([]float64{math.NaN(), 3}, []float64{0, 0}), 1e-12)
	})

	t.Run("all missing yields NaN", func(t *testing.T) {
		t.Parallel()
		assert.True(t, math.IsNaN(GuardedMean([]float64{math.NaN()}, []float64{1})))
	})
}
