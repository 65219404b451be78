// Package cluster partitions a concrete grid into fixed-size,
// axis-aligned clusters (component C3), numbering them densely in
// row-major order and providing constant-time lookups in both directions
// between (row,col), clusterId, and tile Position.
//
// The last row/column of clusters is truncated to fit the grid exactly,
// per spec §4.3; no cluster ever extends past the grid boundary.
package cluster

import (
	"errors"
	"fmt"

	"github.com/albert-improbable/hpax/tilegraph"
)

// ErrBadClusterSize indicates a ClusterSize <= 1 was requested (spec §7:
// InvalidArgument, "clusterSize <= 1").
var ErrBadClusterSize = errors.New("cluster: clusterSize must be > 1")

// ID identifies one cluster, dense: row*clusterCols+col. Distinct from
// tilegraph.ConcreteID and abstract.ID at the type level.
type ID int

// Cluster describes one rectangle of the decomposition.
type Cluster struct {
	ID            ID
	Row, Col      int
	OriginX, OriginY int // top-left tile, inclusive
	Width, Height int    // extent in tiles; truncated at the grid's right/bottom edge
}

// Contains reports whether (x,y) lies inside this cluster's rectangle.
func (c Cluster) Contains(x, y int) bool {
	return x >= c.OriginX && x < c.OriginX+c.Width &&
		y >= c.OriginY && y < c.OriginY+c.Height
}

// Decomposition is the full tiling of a width×height grid into
// ClusterSize×ClusterSize clusters (spec §4.3).
type Decomposition struct {
	ClusterSize           int
	GridWidth, GridHeight int
	Rows, Cols            int // cluster grid extent
	clusters              []Cluster
}

// Build tiles a width×height grid with clusterSize×clusterSize clusters in
// row-major order, producing ceil(height/clusterSize)*ceil(width/clusterSize)
// clusters with truncated extents at the right/bottom.
// Complexity: O(rows*cols) = O(gridWidth*gridHeight/clusterSize^2).
func Build(gridWidth, gridHeight, clusterSize int) (*Decomposition, error) {
	if clusterSize <= 1 {
		return nil, fmt.Errorf("cluster: Build(clusterSize=%d): %w", clusterSize, ErrBadClusterSize)
	}
	if gridWidth <= 0 || gridHeight <= 0 {
		return nil, fmt.Errorf("cluster: Build(%d,%d): %w", gridWidth, gridHeight, tilegraph.ErrBadDimensions)
	}

	cols := ceilDiv(gridWidth, clusterSize)
	rows := ceilDiv(gridHeight, clusterSize)

	d := &Decomposition{
		ClusterSize: clusterSize,
		GridWidth:   gridWidth,
		GridHeight:  gridHeight,
		Rows:        rows,
		Cols:        cols,
		clusters:    make([]Cluster, 0, rows*cols),
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			originX := c * clusterSize
			originY := r * clusterSize
			width := clusterSize
			if originX+width > gridWidth {
				width = gridWidth - originX
			}
			height := clusterSize
			if originY+height > gridHeight {
				height = gridHeight - originY
			}
			d.clusters = append(d.clusters, Cluster{
				ID:      ID(r*cols + c),
				Row:     r,
				Col:     c,
				OriginX: originX,
				OriginY: originY,
				Width:   width,
				Height:  height,
			})
		}
	}

	return d, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// At returns the ID of the cluster containing tile (x,y).
// Complexity: O(1).
func (d *Decomposition) At(x, y int) ID {
	return ID((y/d.ClusterSize)*d.Cols + x/d.ClusterSize)
}

// RowCol returns the (row,col) of a cluster id.
// Complexity: O(1).
func (d *Decomposition) RowCol(id ID) (row, col int) {
	return int(id) / d.Cols, int(id) % d.Cols
}

// Cluster returns the Cluster record for id.
// Complexity: O(1).
func (d *Decomposition) Cluster(id ID) Cluster {
	return d.clusters[id]
}

// Count returns the total number of clusters.
func (d *Decomposition) Count() int {
	return len(d.clusters)
}

// All returns every Cluster in dense id order. The returned slice aliases
// internal storage and must not be mutated.
func (d *Decomposition) All() []Cluster {
	return d.clusters
}

// Neighbor returns the adjacent cluster's id sharing a border with id in
// the given direction, and whether that neighbor exists (false at the
// grid's outer edge — spec §4.4: "a cluster has no border at the outer
// edges of the grid").
func (d *Decomposition) Neighbor(id ID, dr, dc int) (ID, bool) {
	row, col := d.RowCol(id)
	nr, nc := row+dr, col+dc
	if nr < 0 || nr >= d.Rows || nc < 0 || nc >= d.Cols {
		return 0, false
	}
	return ID(nr*d.Cols + nc), true
}
