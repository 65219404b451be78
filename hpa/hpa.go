// Package hpa assembles the concrete grid, cluster decomposition,
// entrance detection, and abstract graph into a single hierarchical
// pathfinder (component C6 plus the module's public facade).
//
// A Map is built once (BuildConcreteGraph, then BuildAbstraction) and
// queried many times with FindPath. A Map is single-threaded per
// instance: FindPath mutates the abstract graph internally to splice in
// and roll back temporary query endpoints, so concurrent FindPath calls
// on the same Map are forbidden (spec §5); Map offers no clone, so
// concurrent queries need separately built Maps.
package hpa

import (
	"errors"
	"fmt"

	"github.com/albert-improbable/hpax/abstract"
	"github.com/albert-improbable/hpax/astar"
	"github.com/albert-improbable/hpax/cluster"
	"github.com/albert-improbable/hpax/entrance"
	"github.com/albert-improbable/hpax/tilegraph"
)

// Sentinel errors. See also tilegraph.ErrBadDimensions,
// cluster.ErrBadClusterSize, abstract.ErrBadMaxLevel, graphstore.ErrIDOutOfRange
// and graphstore.ErrUnknownNode, which FindPath and BuildAbstraction may
// also surface wrapped.
var (
	// ErrOutOfBounds indicates a FindPath endpoint lies outside the grid.
	ErrOutOfBounds = errors.New("hpa: position out of bounds")
)

// config collects the options BuildAbstraction accepts.
type config struct {
	clusterSize   int
	entranceStyle entrance.Style
	maxLevel      int
}

// Option configures BuildAbstraction.
type Option func(*config)

// WithClusterSize sets the cluster decomposition's ClusterSize (default 10).
func WithClusterSize(n int) Option {
	return func(c *config) { c.clusterSize = n }
}

// WithEntranceStyle selects MiddleEntrance or EndEntrance detection
// (default entrance.Middle).
func WithEntranceStyle(s entrance.Style) Option {
	return func(c *config) { c.entranceStyle = s }
}

// WithMaxLevel sets the hierarchy level recorded on abstract nodes/edges
// (default 1; see abstract.WithMaxLevel).
func WithMaxLevel(n int) Option {
	return func(c *config) { c.maxLevel = n }
}

// Map is a fully built hierarchical pathfinder over one concrete grid.
type Map struct {
	concrete      *tilegraph.Graph
	decomposition *cluster.Decomposition
	entrances     []entrance.Entrance
	abstractGraph *abstract.Graph
	cfg           config
}

// BuildConcreteGraph constructs the concrete grid graph (spec §4.2) —
// thin re-export of tilegraph.Build so callers building a Map only need
// to import this package.
func BuildConcreteGraph(width, height int, tileType tilegraph.TileType, passable tilegraph.PassabilityFunc) (*tilegraph.Graph, error) {
	return tilegraph.Build(width, height, tileType, passable)
}

// BuildAbstraction decomposes cg into clusters, detects entrances, and
// builds the abstract graph, producing a ready-to-query Map (spec §4.3,
// §4.4, §4.5).
//
// Complexity: O(width*height) for decomposition and entrance scanning,
// plus abstract.Build's cost for the hierarchy graph.
func BuildAbstraction(cg *tilegraph.Graph, opts ...Option) (*Map, error) {
	cfg := config{clusterSize: 10, entranceStyle: entrance.Middle, maxLevel: 1}
	for _, o := range opts {
		o(&cfg)
	}

	dec, err := cluster.Build(cg.Width, cg.Height, cfg.clusterSize)
	if err != nil {
		return nil, fmt.Errorf("hpa: BuildAbstraction: %w", err)
	}
	ents := entrance.Detect(cg, dec, cfg.entranceStyle)
	ag, err := abstract.Build(cg, dec, ents, abstract.WithMaxLevel(cfg.maxLevel))
	if err != nil {
		return nil, fmt.Errorf("hpa: BuildAbstraction: %w", err)
	}

	return &Map{
		concrete:      cg,
		decomposition: dec,
		entrances:     ents,
		abstractGraph: ag,
		cfg:           cfg,
	}, nil
}

// Stats is a diagnostic snapshot of a Map's built structures.
type Stats struct {
	Width, Height int
	ClusterCount  int
	EntranceCount int
	AbstractNodes int
}

// Stats reports the sizes of the Map's built structures, for callers that
// embed this engine without the excluded CLI/benchmark harness.
func (m *Map) Stats() Stats {
	return Stats{
		Width:         m.concrete.Width,
		Height:        m.concrete.Height,
		ClusterCount:  m.decomposition.Count(),
		EntranceCount: len(m.entrances),
		AbstractNodes: m.abstractGraph.NodeCount(),
	}
}

// FindPath runs the insert/search/refine/rollback protocol of spec §4.6.
// It returns (nil, nil) for any of the documented NoPath cases: either
// endpoint is an obstacle, either endpoint's cluster has no passable
// connection to a transition node, or the abstract search itself fails.
// A non-nil error indicates InvalidArgument (out-of-bounds endpoint) or
// an InternalInvariantViolation.
//
// FindPath is not safe to call concurrently on the same Map (spec §5):
// it mutates the abstract graph internally, restoring it to a
// byte-identical pre-query state before returning (spec §4.6 step 4, §8
// invariant 4).
func (m *Map) FindPath(start, goal tilegraph.Position) ([]tilegraph.Position, error) {
	if !m.concrete.InBounds(start.X, start.Y) {
		return nil, fmt.Errorf("hpa: FindPath start=%v: %w", start, ErrOutOfBounds)
	}
	if !m.concrete.InBounds(goal.X, goal.Y) {
		return nil, fmt.Errorf("hpa: FindPath goal=%v: %w", goal, ErrOutOfBounds)
	}

	startTile, err := m.concrete.TileAt(start)
	if err != nil {
		return nil, fmt.Errorf("hpa: FindPath: %w", err)
	}
	goalTile, err := m.concrete.TileAt(goal)
	if err != nil {
		return nil, fmt.Errorf("hpa: FindPath: %w", err)
	}
	if startTile.Obstacle || goalTile.Obstacle {
		return nil, nil
	}

	startConcrete := m.concrete.ID(start)
	goalConcrete := m.concrete.ID(goal)
	if startConcrete == goalConcrete {
		return []tilegraph.Position{start}, nil
	}

	ins, err := m.insertTemporaryEndpoint(startConcrete)
	if err != nil {
		return nil, fmt.Errorf("hpa: FindPath: %w", err)
	}
	defer ins.rollback(m)

	insGoal, err := m.insertTemporaryEndpoint(goalConcrete)
	if err != nil {
		return nil, fmt.Errorf("hpa: FindPath: %w", err)
	}
	defer insGoal.rollback(m)

	startEdges, err := m.abstractGraph.Store().Edges(ins.node)
	if err != nil {
		return nil, fmt.Errorf("hpa: FindPath: %w", err)
	}
	goalEdges, err := m.abstractGraph.Store().Edges(insGoal.node)
	if err != nil {
		return nil, fmt.Errorf("hpa: FindPath: %w", err)
	}
	if len(startEdges) == 0 || len(goalEdges) == 0 {
		return nil, nil
	}

	cost := func(e abstract.EdgeInfo) int64 { return int64(e.Cost) }
	heuristic := func(id abstract.ID) int64 {
		info, err := m.abstractGraph.Node(id)
		if err != nil {
			return 0
		}
		return octileHeuristic(info.Position, goal)
	}

	res := astar.Search[abstract.ID, abstract.NodeInfo, abstract.EdgeInfo](
		m.abstractGraph.Store(), ins.node, insGoal.node, cost, heuristic, nil)
	if !res.Found {
		return nil, nil
	}

	return m.refine(res.Path)
}

// octileHeuristic is the admissible Chebyshev-like estimate of spec §4.6
// step 2: max(|dx|,|dy|) + (sqrt2-1)*min(|dx|,|dy|), scaled to the same
// integer units as tilegraph's (cost*34)/24 diagonal-cost approximation.
func octileHeuristic(from, to tilegraph.Position) int64 {
	dx := abs(from.X - to.X)
	dy := abs(from.Y - to.Y)
	hi, lo := dx, dy
	if lo > hi {
		hi, lo = lo, hi
	}
	// (sqrt2-1) ~= 10/24 in the same 24-denominator fixed-point scale that
	// tilegraph uses for octile diagonal costs, so the estimate stays
	// admissible against StepInfo.Cost-weighted edges.
	return int64(hi) + int64(lo*10)/24
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// insertedEndpoint tracks what FindPath added to the abstract graph for
// one temporary query endpoint, so it can be rolled back precisely. A
// coalesced lookup (the endpoint already had an AbstractNode from
// entrance detection) adds nothing and sets inserted=false.
type insertedEndpoint struct {
	node     abstract.ID
	inserted bool
	peers    []abstract.ID // pre-existing nodes this endpoint gained an edge to/from
}

// insertTemporaryEndpoint appends a new AbstractNode bound to concrete,
// wires intra-edges to every pre-existing AbstractNode in the same
// cluster (spec §4.6 step 1 / §4.5 step 3), and returns a record for
// rollback.
func (m *Map) insertTemporaryEndpoint(concrete tilegraph.ConcreteID) (*insertedEndpoint, error) {
	if existing, ok := m.abstractGraph.NodeFor(concrete); ok {
		return &insertedEndpoint{node: existing, inserted: false}, nil
	}

	pos := m.concrete.Coordinate(concrete)
	clusterID := m.decomposition.At(pos.X, pos.Y)
	c := m.decomposition.Cluster(clusterID)

	node, err := m.abstractGraph.AddTemporaryNode(clusterID, concrete, pos, m.cfg.maxLevel)
	if err != nil {
		return nil, err
	}

	filter := func(id tilegraph.ConcreteID) bool {
		p := m.concrete.Coordinate(id)
		if !c.Contains(p.X, p.Y) {
			return false
		}
		tile, err := m.concrete.Tile(id)
		return err == nil && !tile.Obstacle
	}
	cost := func(s tilegraph.StepInfo) int64 { return int64(s.Cost) }

	var peers []abstract.ID
	for _, peer := range m.abstractGraph.NodesInCluster(clusterID) {
		if peer == node {
			continue
		}
		peerInfo, err := m.abstractGraph.Node(peer)
		if err != nil {
			return nil, err
		}
		res := astar.Search[tilegraph.ConcreteID, tilegraph.TileInfo, tilegraph.StepInfo](
			m.concrete.Store(), concrete, peerInfo.ConcreteID, cost, nil, filter)
		if !res.Found {
			continue
		}
		if err := m.abstractGraph.AddTemporaryEdge(node, peer, uint32(res.Cost), m.cfg.maxLevel, res.Path); err != nil {
			return nil, err
		}
		peers = append(peers, peer)
	}

	return &insertedEndpoint{node: node, inserted: true, peers: peers}, nil
}

// rollback undoes one insertTemporaryEndpoint call. A coalesced lookup
// adds nothing and rolls back nothing.
func (e *insertedEndpoint) rollback(m *Map) {
	if !e.inserted {
		return
	}
	m.abstractGraph.RemoveTemporaryNode(e.node, e.peers)
}

// refine expands an abstract node-id path into concrete positions (spec
// §4.6 step 3): each consecutive pair's edge is either an Inter edge
// (expands to its two endpoints) or an Intra edge (expands via its cached
// path, or a fresh restricted search if the cache was disabled).
func (m *Map) refine(path []abstract.ID) ([]tilegraph.Position, error) {
	if len(path) == 0 {
		return nil, nil
	}
	first, err := m.abstractGraph.Node(path[0])
	if err != nil {
		return nil, err
	}
	out := []tilegraph.Position{first.Position}

	for i := 0; i+1 < len(path); i++ {
		fromInfo, err := m.abstractGraph.Node(path[i])
		if err != nil {
			return nil, err
		}
		toInfo, err := m.abstractGraph.Node(path[i+1])
		if err != nil {
			return nil, err
		}

		edge, ok := m.abstractGraph.FindEdge(path[i], path[i+1])
		if !ok {
			return nil, fmt.Errorf("hpa: refine: no abstract edge %d->%d", path[i], path[i+1])
		}

		var segment []tilegraph.ConcreteID
		switch edge.Kind {
		case abstract.Inter:
			segment = []tilegraph.ConcreteID{fromInfo.ConcreteID, toInfo.ConcreteID}
		case abstract.Intra:
			if edge.Path != nil {
				segment = edge.Path
				// Both directions of an Intra edge share one cached path;
				// walk it backwards when it starts at the other endpoint.
				if segment[0] != fromInfo.ConcreteID {
					rev := make([]tilegraph.ConcreteID, len(segment))
					for k, id := range segment {
						rev[len(segment)-1-k] = id
					}
					segment = rev
				}
			} else {
				clusterID := fromInfo.ClusterID
				c := m.decomposition.Cluster(clusterID)
				filter := func(id tilegraph.ConcreteID) bool {
					p := m.concrete.Coordinate(id)
					if !c.Contains(p.X, p.Y) {
						return false
					}
					tile, err := m.concrete.Tile(id)
					return err == nil && !tile.Obstacle
				}
				cost := func(s tilegraph.StepInfo) int64 { return int64(s.Cost) }
				res := astar.Search[tilegraph.ConcreteID, tilegraph.TileInfo, tilegraph.StepInfo](
					m.concrete.Store(), fromInfo.ConcreteID, toInfo.ConcreteID, cost, nil, filter)
				if !res.Found {
					return nil, fmt.Errorf("hpa: refine: intra edge %d->%d has no concrete path", path[i], path[i+1])
				}
				segment = res.Path
			}
		}

		for _, cid := range segment[1:] {
			out = append(out, m.concrete.Coordinate(cid))
		}
	}

	return out, nil
}
