// Package tilegraph builds the concrete grid graph (component C2 of the
// hierarchical pathfinder): a dense graphstore.Store over every tile of a
// width×height grid, wired up according to a TileType's connectivity and
// diagonal-cost rule, using an injected passability oracle.
//
// Obstacle filtering happens at search time, not build time: the graph
// stays topology-complete (every tile, passable or not, gets a node and
// the edges its geometry implies), and callers that need to avoid
// obstacles pass a filter predicate to astar.Search (see hpa.Map.FindPath).
package tilegraph

import "errors"

// Sentinel errors for tilegraph construction.
var (
	// ErrBadDimensions indicates width or height <= 0.
	ErrBadDimensions = errors.New("tilegraph: width and height must be positive")

	// ErrNilOracle indicates a nil PassabilityFunc was supplied to Build.
	ErrNilOracle = errors.New("tilegraph: passability oracle must not be nil")
)

// Position is an integer grid coordinate, 0 <= X < width, 0 <= Y < height.
type Position struct {
	X, Y int
}

// TileType selects the grid's connectivity and diagonal-cost rule. Fixed
// for the life of a map (spec §3).
type TileType int

const (
	// Tile4 connects only the four cardinal neighbours (N, S, E, W).
	Tile4 TileType = iota
	// Octile connects the four cardinal neighbours plus the four diagonals;
	// diagonal edge cost approximates √2 via (neighbourCost*34)/24.
	Octile
	// OctileUniform connects all eight neighbours with uniform per-neighbour
	// cost (no diagonal surcharge).
	OctileUniform
	// Hex connects N, S, E, W plus two parity-dependent diagonal neighbours,
	// per a "pointy-top, odd-q" layout (see Graph.addNeighborEdges).
	Hex
)

// String renders a TileType for diagnostics and error messages.
func (t TileType) String() string {
	switch t {
	case Tile4:
		return "Tile4"
	case Octile:
		return "Octile"
	case OctileUniform:
		return "OctileUniform"
	case Hex:
		return "Hex"
	default:
		return "TileType(unknown)"
	}
}

// ConcreteID identifies one tile node, dense and row-major: y*width+x.
// Distinct from abstract.ID at the type level, per graphstore's
// phantom-tag convention.
type ConcreteID int

// TileInfo is the per-node payload of the concrete graph.
type TileInfo struct {
	Position  Position
	Obstacle  bool
	Cost      uint32 // movement cost; meaningful only when !Obstacle
}

// StepInfo is the per-edge payload of the concrete graph: the cost of one
// local move (cardinal, diagonal, or hex-diagonal step).
type StepInfo struct {
	Cost uint32
}

// PassabilityFunc is the injected passability oracle (spec §6). It must be
// pure and total over [0,width)×[0,height).
type PassabilityFunc func(Position) (passable bool, cost uint32)

// octileDiagonalNumerator/Denominator realize the (targetCost*34)/24
// integer approximation of √2 used by Octile diagonal edges (spec §3).
const (
	octileDiagonalNumerator   = 34
	octileDiagonalDenominator = 24
)
