package tilegraph

import (
	"fmt"

	"github.com/albert-improbable/hpax/graphstore"
)

// Graph wraps a dense graphstore.Store over every tile of a width×height
// grid. Construct with Build; the zero value is not usable.
type Graph struct {
	Width, Height int
	TileType      TileType

	store *graphstore.Store[ConcreteID, TileInfo, StepInfo]
}

// offset is one neighbour displacement (dx, dy).
type offset struct{ dx, dy int }

var cardinalOffsets = []offset{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} // N, S, W, E

var diagonalOffsets = []offset{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} // NW, NE, SW, SE

// Build constructs the concrete grid graph (component C2).
//
// Algorithm (spec §4.2):
//  1. Create width*height nodes in row-major order, querying the oracle
//     for (Obstacle, Cost) at each tile.
//  2. For every tile, add edges to the in-bounds neighbours its TileType
//     implies, skipping out-of-bounds neighbours silently.
//
// Complexity: O(width*height) nodes, O(width*height*d) edges where d is the
// per-tile neighbour count (4, 6, or 8).
func Build(width, height int, tileType TileType, passable PassabilityFunc) (*Graph, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tilegraph: Build(%d,%d): %w", width, height, ErrBadDimensions)
	}
	if passable == nil {
		return nil, fmt.Errorf("tilegraph: Build: %w", ErrNilOracle)
	}

	g := &Graph{
		Width:    width,
		Height:   height,
		TileType: tileType,
		store:    graphstore.NewWithCapacity[ConcreteID, TileInfo, StepInfo](width * height),
	}

	// 1) Create all nodes, row-major, querying the oracle once per tile.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pos := Position{X: x, Y: y}
			passableTile, cost := passable(pos)
			id := g.ID(pos)
			if err := g.store.AddNode(id, TileInfo{Position: pos, Obstacle: !passableTile, Cost: cost}); err != nil {
				return nil, fmt.Errorf("tilegraph: AddNode(%v): %w", pos, err)
			}
		}
	}

	// 2) Wire edges per TileType's connectivity rule.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if err := g.addNeighborEdges(x, y); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// addNeighborEdges adds every in-bounds, tile-type-appropriate outgoing
// edge from (x,y), per spec §4.2 step 2.
func (g *Graph) addNeighborEdges(x, y int) error {
	src := g.ID(Position{X: x, Y: y})

	addTo := func(nx, ny int, diagonal bool) error {
		if !g.InBounds(nx, ny) {
			return nil
		}
		dst := g.ID(Position{X: nx, Y: ny})
		info, err := g.store.Node(dst)
		if err != nil {
			return err
		}
		cost := info.Cost
		if diagonal && g.TileType == Octile {
			cost = uint32((uint64(cost) * octileDiagonalNumerator) / octileDiagonalDenominator)
		}
		return g.store.AddEdge(src, dst, StepInfo{Cost: cost})
	}

	for _, o := range cardinalOffsets {
		if err := addTo(x+o.dx, y+o.dy, false); err != nil {
			return err
		}
	}

	switch g.TileType {
	case Tile4:
		// cardinal only
	case Octile, OctileUniform:
		for _, o := range diagonalOffsets {
			if err := addTo(x+o.dx, y+o.dy, g.TileType == Octile); err != nil {
				return err
			}
		}
	case Hex:
		// Pointy-top, odd-q layout: even columns step to (x±1, y-1);
		// odd columns step to (x±1, y+1). See spec §4.2, §9 Design Notes.
		dy := -1
		if x%2 != 0 {
			dy = 1
		}
		if err := addTo(x-1, y+dy, false); err != nil {
			return err
		}
		if err := addTo(x+1, y+dy, false); err != nil {
			return err
		}
	}
	return nil
}

// ID maps a Position to its dense row-major ConcreteID.
// Complexity: O(1).
func (g *Graph) ID(p Position) ConcreteID {
	return ConcreteID(p.Y*g.Width + p.X)
}

// Coordinate converts a ConcreteID back to its Position.
// Complexity: O(1).
func (g *Graph) Coordinate(id ConcreteID) Position {
	return Position{X: int(id) % g.Width, Y: int(id) / g.Width}
}

// InBounds reports whether (x,y) lies within [0,Width)×[0,Height).
// Complexity: O(1).
func (g *Graph) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Tile returns the payload stored at id.
// Complexity: O(1).
func (g *Graph) Tile(id ConcreteID) (TileInfo, error) {
	return g.store.Node(id)
}

// TileAt returns the payload at the given Position. Panics-free: an
// out-of-bounds Position simply yields ErrIDOutOfRange from the store.
// Complexity: O(1).
func (g *Graph) TileAt(p Position) (TileInfo, error) {
	if !g.InBounds(p.X, p.Y) {
		return TileInfo{}, fmt.Errorf("tilegraph: TileAt(%v): %w", p, graphstore.ErrIDOutOfRange)
	}
	return g.store.Node(g.ID(p))
}

// Neighbors returns the outgoing edges from id (exposed for external
// collaborators — renderers, benchmarking harnesses — per SPEC_FULL.md §12).
// Complexity: O(1).
func (g *Graph) Neighbors(id ConcreteID) ([]graphstore.Edge[ConcreteID, StepInfo], error) {
	return g.store.Edges(id)
}

// Store exposes the underlying dense store for packages within this module
// that need to run a generic search over it (abstract, hpa).
// Not intended for use outside the module's own packages.
func (g *Graph) Store() *graphstore.Store[ConcreteID, TileInfo, StepInfo] {
	return g.store
}

// NodeCount returns width*height.
// Complexity: O(1).
func (g *Graph) NodeCount() int {
	return g.store.Len()
}
