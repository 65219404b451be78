package hpa_test

import (
	"testing"

	"github.com/albert-improbable/hpax/astar"
	"github.com/albert-improbable/hpax/hpa"
	"github.com/albert-improbable/hpax/tilegraph"
)

func openPassable(tilegraph.Position) (bool, uint32) { return true, 1 }

// TestFindPath_OpenOctileDiagonal covers spec scenario 1: an open 8x8
// Octile grid yields a length-8 diagonal path from corner to corner.
func TestFindPath_OpenOctileDiagonal(t *testing.T) {
	cg, err := hpa.BuildConcreteGraph(8, 8, tilegraph.Octile, openPassable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(4))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	path, err := m.FindPath(tilegraph.Position{X: 0, Y: 0}, tilegraph.Position{X: 7, Y: 7})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(path) != 8 {
		t.Fatalf("path length = %d; want 8 (%v)", len(path), path)
	}
	if path[0] != (tilegraph.Position{X: 0, Y: 0}) || path[len(path)-1] != (tilegraph.Position{X: 7, Y: 7}) {
		t.Fatalf("path endpoints = %v, %v; want (0,0),(7,7)", path[0], path[len(path)-1])
	}
}

// TestFindPath_WallGapRouting covers spec scenario 2: a vertical wall at
// column 7 with a single gap at y=5 forces the path through that gap.
func TestFindPath_WallGapRouting(t *testing.T) {
	passable := func(p tilegraph.Position) (bool, uint32) {
		if p.X == 7 && p.Y != 5 {
			return false, 0
		}
		return true, 1
	}
	cg, err := hpa.BuildConcreteGraph(16, 16, tilegraph.Tile4, passable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(4))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	path, err := m.FindPath(tilegraph.Position{X: 0, Y: 0}, tilegraph.Position{X: 15, Y: 15})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	found := false
	for _, p := range path {
		if p.X == 7 && p.Y == 5 {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("path does not pass through the wall gap (7,5): %v", path)
	}
}

// TestFindPath_SameTileNoOp covers spec scenario 3: start==goal returns a
// single-tile path with cost 0 (no search performed).
func TestFindPath_SameTileNoOp(t *testing.T) {
	cg, err := hpa.BuildConcreteGraph(10, 1, tilegraph.Tile4, openPassable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(4))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	path, err := m.FindPath(tilegraph.Position{X: 3, Y: 0}, tilegraph.Position{X: 3, Y: 0})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(path) != 1 || path[0] != (tilegraph.Position{X: 3, Y: 0}) {
		t.Fatalf("path = %v; want single tile (3,0)", path)
	}
}

// TestFindPath_StartOnObstacle covers spec scenario 4: an obstacle start
// yields an empty path and no error.
func TestFindPath_StartOnObstacle(t *testing.T) {
	passable := func(p tilegraph.Position) (bool, uint32) {
		if p == (tilegraph.Position{X: 0, Y: 0}) {
			return false, 0
		}
		return true, 1
	}
	cg, err := hpa.BuildConcreteGraph(8, 8, tilegraph.Tile4, passable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(4))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	path, err := m.FindPath(tilegraph.Position{X: 0, Y: 0}, tilegraph.Position{X: 7, Y: 7})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path != nil {
		t.Fatalf("path = %v; want nil for obstacle start", path)
	}
}

// TestFindPath_FullyBlocked covers spec scenario 5: a 4x4 grid blocked
// everywhere but the two endpoints yields an empty path.
func TestFindPath_FullyBlocked(t *testing.T) {
	start := tilegraph.Position{X: 0, Y: 0}
	goal := tilegraph.Position{X: 3, Y: 3}
	passable := func(p tilegraph.Position) (bool, uint32) {
		if p == start || p == goal {
			return true, 1
		}
		return false, 0
	}
	cg, err := hpa.BuildConcreteGraph(4, 4, tilegraph.Tile4, passable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(4))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	path, err := m.FindPath(start, goal)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path != nil {
		t.Fatalf("path = %v; want nil (fully blocked)", path)
	}
}

// TestFindPath_OutOfBounds checks the InvalidArgument error path.
func TestFindPath_OutOfBounds(t *testing.T) {
	cg, err := hpa.BuildConcreteGraph(4, 4, tilegraph.Tile4, openPassable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(4))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	if _, err := m.FindPath(tilegraph.Position{X: -1, Y: 0}, tilegraph.Position{X: 2, Y: 2}); err == nil {
		t.Fatalf("expected ErrOutOfBounds for negative start")
	}
}

// TestFindPath_RestoresAbstractGraph covers spec §8 invariant 4 through
// Stats: the abstract node count (and the other Stats sizes) are the same
// before and after a query. Edge lists are not compared.
func TestFindPath_RestoresAbstractGraph(t *testing.T) {
	cg, err := hpa.BuildConcreteGraph(16, 16, tilegraph.Octile, openPassable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(4))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	before := m.Stats()
	if _, err := m.FindPath(tilegraph.Position{X: 1, Y: 1}, tilegraph.Position{X: 14, Y: 14}); err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	after := m.Stats()
	if before != after {
		t.Fatalf("Stats changed across query: before=%+v after=%+v", before, after)
	}
	// run a second, unrelated query to double-check rollback is robust to
	// repeated use, not just a single call.
	if _, err := m.FindPath(tilegraph.Position{X: 2, Y: 3}, tilegraph.Position{X: 10, Y: 9}); err != nil {
		t.Fatalf("FindPath (second): %v", err)
	}
	if got := m.Stats(); got != before {
		t.Fatalf("Stats changed after second query: before=%+v got=%+v", before, got)
	}
}

// TestFindPath_Deterministic covers the determinism law: identical inputs
// produce identical outputs.
func TestFindPath_Deterministic(t *testing.T) {
	cg, err := hpa.BuildConcreteGraph(16, 16, tilegraph.Octile, openPassable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(4))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	p1, err := m.FindPath(tilegraph.Position{X: 0, Y: 0}, tilegraph.Position{X: 15, Y: 15})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	p2, err := m.FindPath(tilegraph.Position{X: 0, Y: 0}, tilegraph.Position{X: 15, Y: 15})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(p1) != len(p2) {
		t.Fatalf("path lengths differ across identical queries: %d vs %d", len(p1), len(p2))
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("paths differ at step %d: %v vs %v", i, p1[i], p2[i])
		}
	}
}

// TestFindPath_SegmentsAreConcreteEdges covers spec §8 invariant 5: every
// consecutive pair in a returned path is connected by a concrete edge and
// no tile is an obstacle.
func TestFindPath_SegmentsAreConcreteEdges(t *testing.T) {
	passable := func(p tilegraph.Position) (bool, uint32) {
		if p.X == 7 && p.Y != 5 {
			return false, 0
		}
		return true, 1
	}
	cg, err := hpa.BuildConcreteGraph(16, 16, tilegraph.Tile4, passable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(4))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	path, err := m.FindPath(tilegraph.Position{X: 0, Y: 0}, tilegraph.Position{X: 15, Y: 15})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(path) == 0 {
		t.Fatalf("expected a non-empty path")
	}
	for i, p := range path {
		tile, err := cg.TileAt(p)
		if err != nil {
			t.Fatalf("TileAt(%v): %v", p, err)
		}
		if tile.Obstacle {
			t.Fatalf("path tile %v is an obstacle", p)
		}
		if i == 0 {
			continue
		}
		prev := path[i-1]
		edges, err := cg.Neighbors(cg.ID(prev))
		if err != nil {
			t.Fatalf("Neighbors(%v): %v", prev, err)
		}
		connected := false
		for _, e := range edges {
			if e.Target == cg.ID(p) {
				connected = true
				break
			}
		}
		if !connected {
			t.Fatalf("no concrete edge between consecutive path tiles %v -> %v", prev, p)
		}
	}
}

// TestFindPath_WithinBoundOfDirectSearch covers scenario 6's spirit at
// small scale: the HPA path cost never falls below the unrestricted
// concrete search's cost (optimality bound, lower-bounded by the true
// shortest path) and is never wildly above it.
func TestFindPath_WithinBoundOfDirectSearch(t *testing.T) {
	passable := func(p tilegraph.Position) (bool, uint32) {
		// deterministic pseudo-obstacles, no randomness: the test stays
		// reproducible without a seeded RNG dependency.
		if (p.X*31+p.Y*17)%7 == 0 && !(p.X == 0 && p.Y == 0) && !(p.X == 31 && p.Y == 31) {
			return false, 0
		}
		return true, 1
	}
	cg, err := hpa.BuildConcreteGraph(32, 32, tilegraph.Tile4, passable)
	if err != nil {
		t.Fatalf("BuildConcreteGraph: %v", err)
	}
	m, err := hpa.BuildAbstraction(cg, hpa.WithClusterSize(8))
	if err != nil {
		t.Fatalf("BuildAbstraction: %v", err)
	}
	start := tilegraph.Position{X: 0, Y: 0}
	goal := tilegraph.Position{X: 31, Y: 31}

	hpaPath, err := m.FindPath(start, goal)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}

	filter := func(id tilegraph.ConcreteID) bool {
		tile, err := cg.Tile(id)
		return err == nil && !tile.Obstacle
	}
	cost := func(s tilegraph.StepInfo) int64 { return int64(s.Cost) }
	direct := astar.Search[tilegraph.ConcreteID, tilegraph.TileInfo, tilegraph.StepInfo](
		cg.Store(), cg.ID(start), cg.ID(goal), cost, nil, filter)

	if len(hpaPath) == 0 {
		if direct.Found {
			t.Fatalf("HPA found no path but a direct concrete path exists")
		}
		return
	}
	if !direct.Found {
		t.Fatalf("HPA found a path but no direct concrete path exists")
	}

	hpaCost := int64(len(hpaPath) - 1)
	if hpaCost < direct.Cost {
		t.Fatalf("HPA path cost %d is below the optimal concrete cost %d", hpaCost, direct.Cost)
	}
	if float64(hpaCost) > float64(direct.Cost)*1.5+4 {
		t.Fatalf("HPA path cost %d far exceeds optimal concrete cost %d", hpaCost, direct.Cost)
	}
}
