// Package aggregate reduces horizon records to component parameter sets
// and component parameter sets to map-unit parameter sets using
// thickness- and composition-weighted statistics.
package aggregate

import "math"

// HarmonicMean computes the weighted harmonic mean over parallel value
// and weight slices, considering only pairs where both value and weight
// are positive. Returns NaN when no pair qualifies. The harmonic mean
// reflects flow resistance through layered media in series.
func HarmonicMean(values, weights []float64) float64 {
	var weightSum, ratioSum float64
	for i, v := range values {
		w := weights[i]
		if !(v > 0) || !(w > 0) {
			continue
		}
		weightSum += w
		ratioSum += w / v
	}
	if weightSum == 0 || ratioSum == 0 {
		return math.NaN()
	}
	return weightSum / ratioSum
}

// ArithmeticMean computes the weighted arithmetic mean over parallel
// value and weight slices. NaN values contribute nothing to the
// numerator but their weights still count in the denominator. Returns
// NaN when the total weight is not positive.
func ArithmeticMean(values, weights []float64) float64 {
	var total, sum float64
	for i, v := range values {
		total += weights[i]
		if !math.IsNaN(v) {
			sum += weights[i] * v
		}
	}
	if total <= 0 {
		return math.NaN()
	}
	return sum / total
}

// GuardedMean computes a weighted mean over pairs with a non-NaN value
// and positive weight, falling back to the plain mean of non-NaN values
// when no weight qualifies. Returns NaN only when every value is
// missing. Used for measured horizon properties where weights can be
// wholly absent.
func GuardedMean(values, weights []float64) float64 {
	var weightSum, weighted float64
	for i, v := range values {
		w := weights[i]
		if math.IsNaN(v) || !(w > 0) {
			continue
		}
		weightSum += w
		weighted += w * v
	}
	if weightSum > 0 {
		return weighted / weightSum
	}

	var n int
	var sum float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		n++
		sum += v
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
