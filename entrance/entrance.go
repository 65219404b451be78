// Package entrance scans cluster borders for maximal passable tile-pairs
// (component C4) and emits one or two transition points per border run,
// according to the configured EntranceStyle.
package entrance

import (
	"github.com/albert-improbable/hpax/cluster"
	"github.com/albert-improbable/hpax/tilegraph"
)

// MaxEntranceWidth is the run-length threshold above which EndEntrance
// style emits two transitions instead of one (spec §4.4).
const MaxEntranceWidth = 6

// Orientation classifies the shared border line between two adjacent
// clusters: Horizontal borders run between vertically stacked clusters
// (the walk is along x); Vertical borders run between side-by-side
// clusters (the walk is along y).
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// Style selects how many transitions a passable border run contributes.
type Style int

const (
	// Middle emits exactly one transition per run, at its midpoint.
	Middle Style = iota
	// End emits two transitions (at the run's two ends) when the run is
	// longer than MaxEntranceWidth tiles; otherwise falls back to Middle.
	End
)

// Entrance is one transition point between two adjacent clusters.
type Entrance struct {
	ID                     int
	ClusterA, ClusterB     cluster.ID
	Orientation            Orientation
	CoordinateOnSharedAxis int // the border line's fixed coordinate (y for Horizontal, x for Vertical)
	OffsetAlongBorder      int // the transition's position along the walked axis (x for Horizontal, y for Vertical)
	NodeA, NodeB           tilegraph.ConcreteID
}

// Detect scans every pair of adjacent clusters in dec and emits their
// entrances, in deterministic (row, col, borderDirection) order — clusters
// visited row-major, and for each cluster its border to the cluster below
// (Horizontal) is scanned before its border to the cluster on the right
// (Vertical). This fixes AbstractNode/AbstractEdge id assignment for a
// given input (spec §5).
//
// Complexity: O(gridWidth*gridHeight) total across all borders (each tile
// pair is visited at most once per shared border).
func Detect(cg *tilegraph.Graph, dec *cluster.Decomposition, style Style) []Entrance {
	var out []Entrance
	nextID := 0

	for _, c := range dec.All() {
		if below, ok := dec.Neighbor(c.ID, 1, 0); ok {
			out = scanHorizontalBorder(cg, dec, c, dec.Cluster(below), style, out, &nextID)
		}
		if right, ok := dec.Neighbor(c.ID, 0, 1); ok {
			out = scanVerticalBorder(cg, dec, c, dec.Cluster(right), style, out, &nextID)
		}
	}

	return out
}

// scanHorizontalBorder scans the border between cluster `top` (row r-1) and
// cluster `bottom` (row r), which share the same column range. j is the
// first row of `bottom`; the border lies between y=j-1 and y=j.
func scanHorizontalBorder(cg *tilegraph.Graph, dec *cluster.Decomposition, top, bottom cluster.Cluster, style Style, out []Entrance, nextID *int) []Entrance {
	start := top.OriginX
	end := top.OriginX + top.Width // half-open
	j := bottom.OriginY
	runStart := -1

	flush := func(rs, re int) {
		if rs < 0 || re < rs {
			return
		}
		for _, off := range transitions(rs, re, style) {
			a := cg.ID(tilegraph.Position{X: off, Y: j - 1})
			b := cg.ID(tilegraph.Position{X: off, Y: j})
			out = append(out, Entrance{
				ID:                     *nextID,
				ClusterA:               top.ID,
				ClusterB:               bottom.ID,
				Orientation:            Horizontal,
				CoordinateOnSharedAxis: j,
				OffsetAlongBorder:      off,
				NodeA:                  a,
				NodeB:                  b,
			})
			*nextID++
		}
	}

	for x := start; x < end; x++ {
		pair := isPairPassable(cg, x, j-1, x, j)
		if pair {
			if runStart < 0 {
				runStart = x
			}
			// Documented quirk (spec §9 Open Questions): the reference
			// detector's inner walk tests `i >= end` before confirming the
			// border tile at the cluster's right/bottom edge, so a run
			// that touches that edge is recorded one tile short of the
			// true boundary. Preserved here for output fidelity.
			if x == end-1 {
				flush(runStart, x-1)
				runStart = -1
			}
			continue
		}
		if runStart >= 0 {
			flush(runStart, x-1)
			runStart = -1
		}
	}
	// Note: the x==end-1 branch above always closes any open run before
	// the loop exits, so there is nothing left to flush here.

	return out
}

// scanVerticalBorder is the Vertical-orientation symmetric counterpart of
// scanHorizontalBorder: `left` and `right` share the same row range; i is
// the first column of `right`.
func scanVerticalBorder(cg *tilegraph.Graph, dec *cluster.Decomposition, left, right cluster.Cluster, style Style, out []Entrance, nextID *int) []Entrance {
	start := left.OriginY
	end := left.OriginY + left.Height
	i := right.OriginX
	runStart := -1

	flush := func(rs, re int) {
		if rs < 0 || re < rs {
			return
		}
		for _, off := range transitions(rs, re, style) {
			a := cg.ID(tilegraph.Position{X: i - 1, Y: off})
			b := cg.ID(tilegraph.Position{X: i, Y: off})
			out = append(out, Entrance{
				ID:                     *nextID,
				ClusterA:               left.ID,
				ClusterB:               right.ID,
				Orientation:            Vertical,
				CoordinateOnSharedAxis: i,
				OffsetAlongBorder:      off,
				NodeA:                  a,
				NodeB:                  b,
			})
			*nextID++
		}
	}

	for y := start; y < end; y++ {
		pair := isPairPassable(cg, i-1, y, i, y)
		if pair {
			if runStart < 0 {
				runStart = y
			}
			if y == end-1 {
				flush(runStart, y-1)
				runStart = -1
			}
			continue
		}
		if runStart >= 0 {
			flush(runStart, y-1)
			runStart = -1
		}
	}
	// Note: the y==end-1 branch above always closes any open run before
	// the loop exits, so there is nothing left to flush here.

	return out
}

func isPairPassable(cg *tilegraph.Graph, ax, ay, bx, by int) bool {
	ta, err := cg.TileAt(tilegraph.Position{X: ax, Y: ay})
	if err != nil || ta.Obstacle {
		return false
	}
	tb, err := cg.TileAt(tilegraph.Position{X: bx, Y: by})
	if err != nil || tb.Obstacle {
		return false
	}
	return true
}

// transitions computes the offsets (inclusive range [start,end]) at which a
// passable run should emit a transition, per the configured Style.
func transitions(start, end int, style Style) []int {
	if end < start {
		return nil
	}
	runLength := end - start + 1
	mid := (start + end) / 2 // floor((start+end)/2)

	if style == End && runLength > MaxEntranceWidth {
		return []int{start, end}
	}
	return []int{mid}
}
