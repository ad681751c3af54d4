// Package world provides the toroidal grid the agents live on: cell
// occupancy, neighbourhood queries, placement and distances.
package world

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Pos is a cell position on the grid.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point returns the position as a planar point.
func (p Pos) Point() orb.Point {
	return orb.Point{float64(p.X), float64(p.Y)}
}

// Intner is the part of a random source the grid needs.
type Intner interface {
	Intn(n int) int
}

// Grid is a toroidal multi-occupancy grid. Several agents may share a cell
// (a house and its owner, for example); a cell is empty only when nobody is
// placed on it.
type Grid[ID comparable] struct {
	Width  int
	Height int

	cells    [][]ID // indexed by y*Width + x, in placement order
	where    map[ID]Pos
	occupied int // number of non-empty cells
}

// NewGrid creates an empty width×height torus.
func NewGrid[ID comparable](width, height int) *Grid[ID] {
	return &Grid[ID]{
		Width:  width,
		Height: height,
		cells:  make([][]ID, width*height),
		where:  make(map[ID]Pos),
	}
}

// Wrap maps any position onto the torus.
func (g *Grid[ID]) Wrap(p Pos) Pos {
	x := p.X % g.Width
	if x < 0 {
		x += g.Width
	}
	y := p.Y % g.Height
	if y < 0 {
		y += g.Height
	}
	return Pos{X: x, Y: y}
}

func (g *Grid[ID]) index(p Pos) int {
	return p.Y*g.Width + p.X
}

// Place puts id on the cell at p. An agent already on the grid is moved.
func (g *Grid[ID]) Place(id ID, p Pos) {
	if _, ok := g.where[id]; ok {
		g.Remove(id)
	}
	p = g.Wrap(p)
	i := g.index(p)
	if len(g.cells[i]) == 0 {
		g.occupied++
	}
	g.cells[i] = append(g.cells[i], id)
	g.where[id] = p
}

// Move relocates id to p, placing it if it was not on the grid.
func (g *Grid[ID]) Move(id ID, p Pos) {
	g.Place(id, p)
}

// Remove takes id off the grid. Removing an absent agent is a no-op.
func (g *Grid[ID]) Remove(id ID) {
	p, ok := g.where[id]
	if !ok {
		return
	}
	delete(g.where, id)
	i := g.index(p)
	cell := g.cells[i]
	for k, other := range cell {
		if other == id {
			g.cells[i] = append(cell[:k], cell[k+1:]...)
			break
		}
	}
	if len(g.cells[i]) == 0 {
		g.occupied--
	}
}

// PosOf reports where id is placed.
func (g *Grid[ID]) PosOf(id ID) (Pos, bool) {
	p, ok := g.where[id]
	return p, ok
}

// At returns the agents on the cell at p, in placement order.
func (g *Grid[ID]) At(p Pos) []ID {
	return g.cells[g.index(g.Wrap(p))]
}

// IsEmpty reports whether nobody is placed at p.
func (g *Grid[ID]) IsEmpty(p Pos) bool {
	return len(g.At(p)) == 0
}

// HasEmpty reports whether at least one cell is free.
func (g *Grid[ID]) HasEmpty() bool {
	return g.occupied < len(g.cells)
}

// RandomEmpty picks a uniformly random free cell. ok is false when the grid
// is full.
func (g *Grid[ID]) RandomEmpty(rng Intner) (p Pos, ok bool) {
	free := len(g.cells) - g.occupied
	if free <= 0 {
		return Pos{}, false
	}
	target := rng.Intn(free)
	for i, cell := range g.cells {
		if len(cell) != 0 {
			continue
		}
		if target == 0 {
			return Pos{X: i % g.Width, Y: i / g.Width}, true
		}
		target--
	}
	return Pos{}, false
}

// Neighbors returns the agents in the Moore neighbourhood of p within
// radius cells, excluding p's own cell. Cells are scanned row by row and
// each cell is visited once even when the radius wraps past the grid edge.
func (g *Grid[ID]) Neighbors(p Pos, radius int) []ID {
	p = g.Wrap(p)
	seen := map[int]bool{g.index(p): true}
	var out []ID
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			i := g.index(g.Wrap(Pos{X: p.X + dx, Y: p.Y + dy}))
			if seen[i] {
				continue
			}
			seen[i] = true
			out = append(out, g.cells[i]...)
		}
	}
	return out
}

// Distance is the Euclidean distance between a and b, taking the shorter
// way around the torus on each axis.
func (g *Grid[ID]) Distance(a, b Pos) float64 {
	// b's nearest image relative to a.
	near := Pos{X: a.X + torusDelta(b.X-a.X, g.Width), Y: a.Y + torusDelta(b.Y-a.Y, g.Height)}
	return planar.Distance(a.Point(), near.Point())
}

func torusDelta(d, size int) int {
	if d < 0 {
		d = -d
	}
	d %= size
	if size-d < d {
		return size - d
	}
	return d
}

// Len returns the number of placed agents.
func (g *Grid[ID]) Len() int {
	return len(g.where)
}

// String returns a summary of the grid.
func (g *Grid[ID]) String() string {
	return fmt.Sprintf("Grid(%dx%d, occupied=%d, agents=%d)", g.Width, g.Height, g.occupied, len(g.where))
}
