package stat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median([]float64{}))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]int{4, 1, 3, 2}))

	xs := []float64{3, 1, 2}
	Median(xs)
	assert.Equal(t, []float64{3, 1, 2}, xs, "input must not be reordered")
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean([]float64(nil)))
	assert.Equal(t, 2.0, Mean([]int{1, 2, 3}))
}

func TestGini(t *testing.T) {
	assert.Equal(t, 0.0, Gini([]float64{}))
	assert.Equal(t, 0.0, Gini([]float64{0, 0}))
	assert.InDelta(t, 0.0, Gini([]float64{10, 10, 10, 10}), 1e-12)

	// One holder of everything among n: 2/n * sum_{i<n} i/n = (n-1)/n.
	assert.InDelta(t, 0.75, Gini([]float64{0, 0, 0, 100}), 1e-12)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.3, Clamp(0.1, 0.3, 3.0))
	assert.Equal(t, 3.0, Clamp(7.0, 0.3, 3.0))
	assert.Equal(t, 1.2, Clamp(1.2, 0.3, 3.0))
	assert.Equal(t, 2, Clamp(2, 1, 5))
}

func TestMedian_MatchesMiddleOfSorted(t *testing.T) {
	assert.Equal(t, 7.0, Median([]int{9, 7, 7, 1, 8}))
	assert.Equal(t, 4.0, Median([]float64{10, 0, 3, 5}))
	assert.Equal(t, 42.0, Median([]int{42}))
}
