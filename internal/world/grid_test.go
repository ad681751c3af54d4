package world

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_PlaceMoveRemove(t *testing.T) {
	g := NewGrid[int](5, 5)
	assert.True(t, g.HasEmpty())

	g.Place(1, Pos{X: 1, Y: 1})
	g.Place(2, Pos{X: 1, Y: 1})
	assert.Equal(t, []int{1, 2}, g.At(Pos{X: 1, Y: 1}))
	assert.False(t, g.IsEmpty(Pos{X: 1, Y: 1}))

	g.Move(1, Pos{X: 6, Y: -1}) // wraps to (1, 4)
	p, ok := g.PosOf(1)
	require.True(t, ok)
	assert.Equal(t, Pos{X: 1, Y: 4}, p)
	assert.Equal(t, []int{2}, g.At(Pos{X: 1, Y: 1}))

	g.Remove(2)
	g.Remove(2)
	assert.True(t, g.IsEmpty(Pos{X: 1, Y: 1}))
	assert.Equal(t, 1, g.Len())
}

func TestGrid_HasEmptyAndRandomEmpty(t *testing.T) {
	g := NewGrid[int](2, 2)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 3; i++ {
		p, ok := g.RandomEmpty(rng)
		require.True(t, ok)
		assert.True(t, g.IsEmpty(p))
		g.Place(i, p)
	}
	assert.True(t, g.HasEmpty())

	p, ok := g.RandomEmpty(rng)
	require.True(t, ok)
	g.Place(99, p)

	assert.False(t, g.HasEmpty())
	_, ok = g.RandomEmpty(rng)
	assert.False(t, ok)
}

func TestGrid_NeighborsWrapAndExcludeCenter(t *testing.T) {
	g := NewGrid[int](10, 10)
	g.Place(1, Pos{X: 0, Y: 0})
	g.Place(2, Pos{X: 9, Y: 9}) // diagonal neighbour across both edges
	g.Place(3, Pos{X: 2, Y: 0}) // two cells away
	g.Place(4, Pos{X: 5, Y: 5})

	near := g.Neighbors(Pos{X: 0, Y: 0}, 1)
	assert.ElementsMatch(t, []int{2}, near)

	wider := g.Neighbors(Pos{X: 0, Y: 0}, 2)
	assert.ElementsMatch(t, []int{2, 3}, wider)
}

func TestGrid_NeighborsRadiusLargerThanGrid(t *testing.T) {
	g := NewGrid[int](3, 3)
	g.Place(1, Pos{X: 0, Y: 0})
	g.Place(2, Pos{X: 1, Y: 1})
	g.Place(3, Pos{X: 2, Y: 2})

	// Every cell visited once, so no duplicates.
	assert.ElementsMatch(t, []int{2, 3}, g.Neighbors(Pos{X: 0, Y: 0}, 5))
}

func TestGrid_DistanceIsToroidal(t *testing.T) {
	g := NewGrid[int](10, 10)
	assert.InDelta(t, 0, g.Distance(Pos{X: 3, Y: 3}, Pos{X: 3, Y: 3}), 1e-12)
	assert.InDelta(t, 5, g.Distance(Pos{X: 0, Y: 0}, Pos{X: 3, Y: 4}), 1e-12)
	assert.InDelta(t, math.Sqrt2, g.Distance(Pos{X: 0, Y: 0}, Pos{X: 9, Y: 9}), 1e-12)
	assert.InDelta(t, 5, g.Distance(Pos{X: 0, Y: 0}, Pos{X: 5, Y: 0}), 1e-12)
}

func TestGrid_DistanceSymmetricAcrossEdges(t *testing.T) {
	g := NewGrid[int](7, 5)
	pts := []Pos{{0, 0}, {6, 4}, {3, 2}, {1, 4}, {6, 0}}
	for _, a := range pts {
		for _, b := range pts {
			d := g.Distance(a, b)
			assert.InDelta(t, d, g.Distance(b, a), 1e-12)
			assert.LessOrEqual(t, d, math.Hypot(3, 2)+1e-12, "no pair is further apart than half the torus")
		}
	}
	assert.InDelta(t, math.Hypot(1, 1), g.Distance(Pos{X: 6, Y: 4}, Pos{X: 0, Y: 0}), 1e-12)
}

func TestPos_Point(t *testing.T) {
	p := Pos{X: 4, Y: -2}.Point()
	assert.Equal(t, 4.0, p.X())
	assert.Equal(t, -2.0, p.Y())
}

func TestIncomeField(t *testing.T) {
	a, b := NewIncomeField(11), NewIncomeField(11)
	for x := 0; x < 20; x++ {
		p := Pos{X: x, Y: 2 * x}
		v := a.At(p)
		assert.Equal(t, v, b.At(p))
		assert.GreaterOrEqual(t, v, 0.5)
		assert.LessOrEqual(t, v, 1.5)
	}
	assert.Equal(t, 1.0, GradientFactor(Pos{X: 0, Y: 0}))
	assert.Equal(t, 2.0, GradientFactor(Pos{X: 20, Y: 30}))
}
