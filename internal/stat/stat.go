// Package stat holds the small numeric aggregates the model reports on:
// medians, means, Gini coefficients and clamping. Empty inputs return 0
// rather than failing.
package stat

import (
	"slices"

	"golang.org/x/exp/constraints"
	gonumstat "gonum.org/v1/gonum/stat"
)

// Number is any integer or floating point type.
type Number interface {
	constraints.Integer | constraints.Float
}

func floats[T Number](xs []T) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

// Median returns the median of xs, averaging the two middle values for even
// lengths. xs is not modified. Returns 0 for an empty slice.
func Median[T Number](xs []T) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := floats(xs)
	slices.Sort(sorted)
	if n%2 == 1 {
		return gonumstat.Quantile(0.5, gonumstat.Empirical, sorted, nil)
	}
	return gonumstat.Mean(sorted[n/2-1:n/2+1], nil)
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean[T Number](xs []T) float64 {
	if len(xs) == 0 {
		return 0
	}
	return gonumstat.Mean(floats(xs), nil)
}

// Gini returns the Gini coefficient of xs using the Lorenz-curve
// approximation, which is accurate only for large samples.
// Returns 0 when xs is empty or sums to zero.
func Gini[T Number](xs []T) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)

	total := 0.0
	for _, x := range sorted {
		total += float64(x)
	}
	if total == 0 {
		return 0
	}

	sumSoFar := 0.0
	gini := 0.0
	for i, x := range sorted {
		sumSoFar += float64(x)
		gini += float64(i+1)/float64(n) - sumSoFar/total
	}
	return 2 * gini / float64(n)
}

// Clamp limits x to [lo, hi].
func Clamp[T constraints.Ordered](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
