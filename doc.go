// Package hpax is a hierarchical pathfinding engine for grid maps: a
// concrete tile graph, a cluster decomposition, entrance detection between
// clusters, an abstract hierarchy graph over those entrances, and a
// query-time search that threads an abstract path back down to concrete
// tiles.
//
// # What is hpax?
//
// A pure, embeddable library — no CLI, no wire protocol, no persistence —
// organized under one subpackage per pipeline stage:
//
//	graphstore/ — generic dense node/edge store shared by every graph kind
//	tilegraph/  — concrete grid graph: tiles, connectivity, passability
//	cluster/    — fixed-size cluster decomposition over a grid
//	entrance/   — transition-point detection between adjacent clusters
//	abstract/   — hierarchy graph: transition nodes, inter/intra edges
//	astar/      — generic A*/Dijkstra search primitive
//	hpa/        — the public facade: Map, BuildAbstraction, FindPath
//
// # Why hierarchical pathfinding?
//
// Plain A* on a large grid re-explores the same open areas on every query.
// hpax precomputes a coarse "highway" graph over a map's clusters once, then
// a query searches that small graph first and only refines the winning
// route down to individual tiles — trading a one-time build cost for much
// cheaper repeated queries.
//
// Quick usage:
//
//	cg, _ := hpa.BuildConcreteGraph(w, h, tilegraph.Octile, passabilityFn)
//	m, _ := hpa.BuildAbstraction(cg, hpa.WithClusterSize(10))
//	path, _ := m.FindPath(start, goal)
//
// A Map is single-threaded per instance (see hpa.Map.FindPath); distinct
// Map instances are fully independent.
package hpax
