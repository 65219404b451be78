// Package abstract builds the hierarchy graph (component C5) over a
// concrete grid's entrances: one AbstractNode per distinct transition
// endpoint, an Inter edge per entrance (connecting the two clusters it
// joins), and an Intra edge per pair of transition nodes reachable within
// the same cluster.
//
// Intra-edge discovery is the one phase of this module not bound by the
// single-threaded-per-map query contract (spec §5): each cluster's internal
// connectivity is independent of every other cluster's, so Build fans the
// per-cluster searches out across goroutines with golang.org/x/sync/errgroup
// and merges the results back in deterministic cluster-id order.
package abstract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/albert-improbable/hpax/astar"
	"github.com/albert-improbable/hpax/cluster"
	"github.com/albert-improbable/hpax/entrance"
	"github.com/albert-improbable/hpax/graphstore"
	"github.com/albert-improbable/hpax/tilegraph"
)

// ErrBadMaxLevel indicates a MaxLevel option value < 1 was requested.
var ErrBadMaxLevel = errors.New("abstract: MaxLevel must be >= 1")

// ID identifies one AbstractNode, distinct at the type level from
// tilegraph.ConcreteID and cluster.ID.
type ID int

// EdgeKind distinguishes an entrance-derived edge from a searched
// within-cluster edge.
type EdgeKind int

const (
	Inter EdgeKind = iota // crosses a cluster boundary via one Entrance
	Intra                 // stays within one cluster, found by a restricted search
)

// NodeInfo is the payload carried by every AbstractNode.
type NodeInfo struct {
	ClusterID  cluster.ID
	Level      int
	ConcreteID tilegraph.ConcreteID
	Position   tilegraph.Position
}

// EdgeInfo is the payload carried by every AbstractEdge.
type EdgeInfo struct {
	Cost uint32
	Level int
	Kind EdgeKind
	// Path caches the concrete-tile route this edge represents (nil for
	// Inter edges, whose path is always the two endpoints; populated for
	// Intra edges so FindPath can splice it in without re-searching). The
	// two directed edges of one Intra pair share the same Path, ordered from
	// the endpoint the search started at.
	Path []tilegraph.ConcreteID
}

// Graph is the abstract hierarchy graph over one concrete grid's entrances.
type Graph struct {
	store          *graphstore.Store[ID, NodeInfo, EdgeInfo]
	concreteToNode map[tilegraph.ConcreteID]ID
	byCluster      map[cluster.ID][]ID
	maxLevel       int
}

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	maxLevel   int
	cachePaths bool
}

// WithMaxLevel sets the hierarchy level recorded on every node and edge
// produced by this build. Reserved for future multi-level hierarchies
// (spec §9 Open Questions); a single-level build uses MaxLevel=1.
func WithMaxLevel(n int) Option {
	return func(c *buildConfig) { c.maxLevel = n }
}

// WithCachePaths controls whether Intra edges retain their concrete-tile
// Path (default true). Disabling this trades FindPath's refinement speed
// for lower memory use on very large maps.
func WithCachePaths(enabled bool) Option {
	return func(c *buildConfig) { c.cachePaths = enabled }
}

// Build constructs the abstract graph from a concrete grid's entrances
// (spec §4.5).
//
// Algorithm:
//  1. Node creation: each Entrance contributes up to two AbstractNodes, one
//     per concrete endpoint, coalesced by (cluster, concrete id) so a tile
//     touched by multiple entrances gets exactly one AbstractNode.
//  2. Inter edges: one bidirectional edge per Entrance, cost taken from the
//     concrete edge between its two endpoints.
//  3. Intra edges: for every cluster, a restricted A* search between every
//     pair of that cluster's AbstractNodes, confined to tiles inside the
//     cluster; reachable pairs get a bidirectional Intra edge. Clusters are
//     searched concurrently; results are merged in cluster-id order so two
//     builds over the same input always produce byte-identical output
//     (spec §8 invariant 4).
//
// Complexity: O(E) for nodes and inter edges (E = len(entrances)), plus
// O(clusters * k^2 * clusterArea) for intra edges, where k is the average
// entrance count per cluster.
func Build(cg *tilegraph.Graph, dec *cluster.Decomposition, ents []entrance.Entrance, opts ...Option) (*Graph, error) {
	cfg := buildConfig{maxLevel: 1, cachePaths: true}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.maxLevel < 1 {
		return nil, fmt.Errorf("abstract: Build: %w", ErrBadMaxLevel)
	}

	g := &Graph{
		store:          graphstore.New[ID, NodeInfo, EdgeInfo](),
		concreteToNode: make(map[tilegraph.ConcreteID]ID),
		byCluster:      make(map[cluster.ID][]ID),
		maxLevel:       cfg.maxLevel,
	}

	type endpoint struct {
		clusterID cluster.ID
		concrete  tilegraph.ConcreteID
	}
	nodeOf := func(ep endpoint) (ID, error) {
		if id, ok := g.concreteToNode[ep.concrete]; ok {
			return id, nil
		}
		id := ID(g.store.Len())
		info := NodeInfo{
			ClusterID:  ep.clusterID,
			Level:      cfg.maxLevel,
			ConcreteID: ep.concrete,
			Position:   cg.Coordinate(ep.concrete),
		}
		if err := g.store.AddNode(id, info); err != nil {
			return 0, err
		}
		g.concreteToNode[ep.concrete] = id
		g.byCluster[ep.clusterID] = append(g.byCluster[ep.clusterID], id)
		return id, nil
	}

	for _, e := range ents {
		nodeA, err := nodeOf(endpoint{clusterID: e.ClusterA, concrete: e.NodeA})
		if err != nil {
			return nil, fmt.Errorf("abstract: Build: node for entrance %d side A: %w", e.ID, err)
		}
		nodeB, err := nodeOf(endpoint{clusterID: e.ClusterB, concrete: e.NodeB})
		if err != nil {
			return nil, fmt.Errorf("abstract: Build: node for entrance %d side B: %w", e.ID, err)
		}

		stepCost, err := interEdgeCost(cg, e.NodeA, e.NodeB)
		if err != nil {
			return nil, fmt.Errorf("abstract: Build: entrance %d: %w", e.ID, err)
		}
		if err := g.store.AddEdge(nodeA, nodeB, EdgeInfo{Cost: stepCost, Level: cfg.maxLevel, Kind: Inter}); err != nil {
			return nil, err
		}
		if err := g.store.AddEdge(nodeB, nodeA, EdgeInfo{Cost: stepCost, Level: cfg.maxLevel, Kind: Inter}); err != nil {
			return nil, err
		}
	}

	intraByCluster, err := computeIntraEdges(cg, dec, g, cfg)
	if err != nil {
		return nil, err
	}
	clusterIDs := make([]cluster.ID, 0, len(intraByCluster))
	for id := range intraByCluster {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Slice(clusterIDs, func(i, j int) bool { return clusterIDs[i] < clusterIDs[j] })
	for _, cid := range clusterIDs {
		for _, e := range intraByCluster[cid] {
			if err := g.store.AddEdge(e.from, e.to, e.info); err != nil {
				return nil, err
			}
			if err := g.store.AddEdge(e.to, e.from, e.info); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// interEdgeCost looks up the concrete step cost between two adjacent
// concrete tiles (an entrance's endpoints are always cardinal neighbours).
func interEdgeCost(cg *tilegraph.Graph, a, b tilegraph.ConcreteID) (uint32, error) {
	edges, err := cg.Neighbors(a)
	if err != nil {
		return 0, err
	}
	for _, e := range edges {
		if e.Target == b {
			return e.Info.Cost, nil
		}
	}
	return 0, fmt.Errorf("abstract: no concrete edge %d->%d for entrance endpoints", a, b)
}

type intraEdge struct {
	from, to ID
	info     EdgeInfo
}

// computeIntraEdges runs one restricted search per AbstractNode pair within
// each cluster, fanning clusters out across goroutines (this phase runs
// once at build time, not per query, so it is exempt from the
// single-threaded-per-map contract — spec §5, §9).
func computeIntraEdges(cg *tilegraph.Graph, dec *cluster.Decomposition, g *Graph, cfg buildConfig) (map[cluster.ID][]intraEdge, error) {
	results := make(map[cluster.ID][]intraEdge, len(g.byCluster))
	var mu sync.Mutex
	grp, _ := errgroup.WithContext(context.Background())

	for cid, nodes := range g.byCluster {
		cid, nodes := cid, nodes
		if len(nodes) < 2 {
			continue
		}
		grp.Go(func() error {
			c := dec.Cluster(cid)
			filter := func(id tilegraph.ConcreteID) bool {
				p := cg.Coordinate(id)
				if !c.Contains(p.X, p.Y) {
					return false
				}
				tile, err := cg.Tile(id)
				return err == nil && !tile.Obstacle
			}
			cost := func(s tilegraph.StepInfo) int64 { return int64(s.Cost) }

			var edges []intraEdge
			for i := 0; i < len(nodes); i++ {
				for j := i + 1; j < len(nodes); j++ {
					infoI, err := g.store.Node(nodes[i])
					if err != nil {
						return err
					}
					infoJ, err := g.store.Node(nodes[j])
					if err != nil {
						return err
					}
					res := astar.Search[tilegraph.ConcreteID, tilegraph.TileInfo, tilegraph.StepInfo](
						cg.Store(), infoI.ConcreteID, infoJ.ConcreteID, cost, nil, filter)
					if !res.Found {
						continue
					}
					var path []tilegraph.ConcreteID
					if cfg.cachePaths {
						path = res.Path
					}
					edges = append(edges, intraEdge{
						from: nodes[i],
						to:   nodes[j],
						info: EdgeInfo{Cost: uint32(res.Cost), Level: cfg.maxLevel, Kind: Intra, Path: path},
					})
				}
			}
			mu.Lock()
			results[cid] = edges
			mu.Unlock()
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("abstract: computeIntraEdges: %w", err)
	}
	return results, nil
}

// Store exposes the underlying dense store for hpa's query search.
func (g *Graph) Store() *graphstore.Store[ID, NodeInfo, EdgeInfo] {
	return g.store
}

// NodeFor returns the AbstractNode coalesced onto concrete tile id, and
// whether one exists (a tile is only promoted to an AbstractNode if some
// Entrance touches it).
func (g *Graph) NodeFor(concrete tilegraph.ConcreteID) (ID, bool) {
	id, ok := g.concreteToNode[concrete]
	return id, ok
}

// NodesInCluster returns every AbstractNode id belonging to cid. The
// returned slice aliases internal storage and must not be mutated.
func (g *Graph) NodesInCluster(cid cluster.ID) []ID {
	return g.byCluster[cid]
}

// Node returns the NodeInfo stored at id.
func (g *Graph) Node(id ID) (NodeInfo, error) {
	return g.store.Node(id)
}

// NodeCount returns the number of AbstractNodes.
func (g *Graph) NodeCount() int {
	return g.store.Len()
}

// FindEdge returns the edge info from a to b, if one exists.
func (g *Graph) FindEdge(a, b ID) (EdgeInfo, bool) {
	edges, err := g.store.Edges(a)
	if err != nil {
		return EdgeInfo{}, false
	}
	for _, e := range edges {
		if e.Target == b {
			return e.Info, true
		}
	}
	return EdgeInfo{}, false
}

// AddTemporaryNode appends a new AbstractNode bound to concrete, for a
// query-time endpoint insertion (spec §4.6 step 1). The node is
// registered in NodesInCluster(clusterID) so a second temporary endpoint
// inserted into the same cluster can find it as an intra-edge peer.
func (g *Graph) AddTemporaryNode(clusterID cluster.ID, concrete tilegraph.ConcreteID, pos tilegraph.Position, level int) (ID, error) {
	id := ID(g.store.Len())
	info := NodeInfo{ClusterID: clusterID, Level: level, ConcreteID: concrete, Position: pos}
	if err := g.store.AddNode(id, info); err != nil {
		return 0, err
	}
	g.concreteToNode[concrete] = id
	g.byCluster[clusterID] = append(g.byCluster[clusterID], id)
	return id, nil
}

// AddTemporaryEdge adds a bidirectional Intra edge between a temporary
// node and a pre-existing peer in the same cluster.
func (g *Graph) AddTemporaryEdge(a, b ID, cost uint32, level int, path []tilegraph.ConcreteID) error {
	info := EdgeInfo{Cost: cost, Level: level, Kind: Intra, Path: path}
	if err := g.store.AddEdge(a, b, info); err != nil {
		return err
	}
	return g.store.AddEdge(b, a, info)
}

// RemoveTemporaryNode undoes AddTemporaryNode/AddTemporaryEdge: it drops
// the incoming edge each peer holds back to node, clears node's own
// outgoing edges, removes node from the coalescing and cluster indexes,
// and pops it from the store. Callers must roll back the
// most-recently-inserted temporary node first (LIFO), since
// RemoveLastNode requires node to be the highest id in the store.
func (g *Graph) RemoveTemporaryNode(node ID, peers []ID) {
	for _, peer := range peers {
		_ = g.store.RemoveEdge(peer, node)
	}
	_ = g.store.RemoveEdgesFrom(node)
	if info, err := g.store.Node(node); err == nil {
		delete(g.concreteToNode, info.ConcreteID)
		list := g.byCluster[info.ClusterID]
		for i, id := range list {
			if id == node {
				g.byCluster[info.ClusterID] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	_ = g.store.RemoveLastNode()
}
