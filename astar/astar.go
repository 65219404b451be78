// Package astar implements the shared A*/Dijkstra search primitive
// (component C7) used by every search in this module: the restricted
// intra-cluster searches of abstract.Build, the query-time abstract-graph
// search of hpa.Map.FindPath, and the concrete-path refinement fallback
// when a cached intra path is unavailable.
//
// Search runs over any graphstore.Store[Id, N, E] without materializing a
// sub-graph: a FilterFunc restricts which nodes may be expanded (used to
// skip obstacles, or to confine a search to one cluster), and a
// HeuristicFunc of nil degrades the algorithm to plain Dijkstra.
//
// Complexity: O((V+E) log V) per search, using a binary-heap open set
// (container/heap) and a flat []bool closed set indexed by node id, per
// spec §4.7.
package astar

import (
	"container/heap"

	"github.com/albert-improbable/hpax/graphstore"
)

// CostFunc extracts the traversal cost of one edge's payload.
type CostFunc[E any] func(info E) int64

// HeuristicFunc estimates the remaining cost from id to the search goal.
// Must be admissible (never overestimate) for A*'s optimality guarantee to
// hold; pass nil to run plain Dijkstra (h always 0).
type HeuristicFunc[Id ~int] func(id Id) int64

// FilterFunc reports whether id may be expanded. Pass nil to allow every
// node (used for the unrestricted abstract-graph search).
type FilterFunc[Id ~int] func(id Id) bool

// Result is the outcome of a Search call.
type Result[Id ~int] struct {
	Path  []Id  // start..goal inclusive, empty if !Found
	Cost  int64 // total path cost, 0 if !Found
	Found bool
}

// Search runs A* (or Dijkstra, if heuristic is nil) from start to goal over
// store, expanding only nodes for which filter(id) is true (or every node,
// if filter is nil). Ties in the open set break on lower h, then lower id,
// per spec §4.7.
//
// Complexity: O((V+E) log V) where V, E are bounded by the reachable,
// filter-passing subgraph.
func Search[Id ~int, N any, E any](
	store *graphstore.Store[Id, N, E],
	start, goal Id,
	cost CostFunc[E],
	heuristic HeuristicFunc[Id],
	filter FilterFunc[Id],
) Result[Id] {
	if filter != nil && (!filter(start) || !filter(goal)) {
		return Result[Id]{}
	}
	if start == goal {
		return Result[Id]{Path: []Id{start}, Cost: 0, Found: true}
	}

	h := func(id Id) int64 {
		if heuristic == nil {
			return 0
		}
		return heuristic(id)
	}

	n := store.Len()
	closed := make([]bool, n)
	gScore := make([]int64, n)
	prev := make([]Id, n)
	hasPrev := make([]bool, n)
	for i := range gScore {
		gScore[i] = -1
	}

	open := &openHeap[Id]{}
	heap.Init(open)
	gScore[start] = 0
	heap.Push(open, &openItem[Id]{id: start, g: 0, h: h(start)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*openItem[Id])
		if closed[cur.id] {
			continue
		}
		if cur.id == goal {
			return Result[Id]{Path: reconstruct(prev, hasPrev, start, goal), Cost: cur.g, Found: true}
		}
		closed[cur.id] = true

		edges, err := store.Edges(cur.id)
		if err != nil {
			continue
		}
		for _, e := range edges {
			if filter != nil && !filter(e.Target) {
				continue
			}
			if int(e.Target) < 0 || int(e.Target) >= n || closed[e.Target] {
				continue
			}
			candidate := cur.g + cost(e.Info)
			if gScore[e.Target] < 0 || candidate < gScore[e.Target] {
				gScore[e.Target] = candidate
				prev[e.Target] = cur.id
				hasPrev[e.Target] = true
				heap.Push(open, &openItem[Id]{id: e.Target, g: candidate, h: h(e.Target)})
			}
		}
	}

	return Result[Id]{}
}

func reconstruct[Id ~int](prev []Id, hasPrev []bool, start, goal Id) []Id {
	var path []Id
	for at := goal; ; {
		path = append(path, at)
		if at == start {
			break
		}
		if !hasPrev[at] {
			break
		}
		at = prev[at]
	}
	// reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// openItem is one entry in the open-set heap.
type openItem[Id ~int] struct {
	id    Id
	g, h  int64
	index int
}

// openHeap is a binary min-heap ordered by f=g+h, tie-broken by lower h
// then lower id (spec §4.7).
type openHeap[Id ~int] []*openItem[Id]

func (oh openHeap[Id]) Len() int { return len(oh) }

func (oh openHeap[Id]) Less(i, j int) bool {
	fi, fj := oh[i].g+oh[i].h, oh[j].g+oh[j].h
	if fi != fj {
		return fi < fj
	}
	if oh[i].h != oh[j].h {
		return oh[i].h < oh[j].h
	}
	return oh[i].id < oh[j].id
}

func (oh openHeap[Id]) Swap(i, j int) {
	oh[i], oh[j] = oh[j], oh[i]
	oh[i].index = i
	oh[j].index = j
}

func (oh *openHeap[Id]) Push(x interface{}) {
	item := x.(*openItem[Id])
	item.index = len(*oh)
	*oh = append(*oh, item)
}

func (oh *openHeap[Id]) Pop() interface{} {
	old := *oh
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*oh = old[:n-1]
	return item
}
