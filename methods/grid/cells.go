package grid

import (
	"math"

	"github.com/aukilabs/mapclusterer/models"
)

// CellKey identifies a grid cell.
type CellKey struct {
	X int64
	Y int64
}

// CellKeyOf returns the key of the cell that contains the given world
// coordinates.
func CellKeyOf(world models.WorldCoordinates, cellSize float64) CellKey {
	return CellKey{
		X: int64(math.Floor(world.X / cellSize)),
		Y: int64(math.Floor(world.Y / cellSize)),
	}
}

// Cluster accumulates the features that fall in a cell during a render pass.
type Cluster struct {
	SumX     float64
	SumY     float64
	Objects  []models.ClustererObject
	Features []models.Feature
}

func (c *Cluster) add(o models.ClustererObject) {
	c.SumX += o.World.X
	c.SumY += o.World.Y
	c.Objects = append(c.Objects, o)
	c.Features = append(c.Features, o.Features[0])
}

// Centroid returns the average position of the cluster members.
func (c *Cluster) Centroid() models.WorldCoordinates {
	n := float64(len(c.Objects))
	return models.WorldCoordinates{
		X: c.SumX / n,
		Y: c.SumY / n,
	}
}

// Collection contains the clusters of a render pass by cell key. Keys are
// kept in the order cells were first encountered.
type Collection struct {
	clusters map[CellKey]*Cluster
	keys     []CellKey
}

func newCollection() *Collection {
	return &Collection{
		clusters: make(map[CellKey]*Cluster),
	}
}

func (c *Collection) add(key CellKey, o models.ClustererObject) {
	cluster, ok := c.clusters[key]
	if !ok {
		cluster = &Cluster{}
		c.clusters[key] = cluster
		c.keys = append(c.keys, key)
	}
	cluster.add(o)
}

// Get returns the cluster of the given cell.
func (c *Collection) Get(key CellKey) (*Cluster, bool) {
	cluster, ok := c.clusters[key]
	return cluster, ok
}

// Keys returns the keys of the non-empty cells, in first encounter order.
func (c *Collection) Keys() []CellKey {
	return c.keys
}

// Len returns the number of non-empty cells.
func (c *Collection) Len() int {
	return len(c.keys)
}

// Clusterize groups the given features by the cell they fall in at the given
// zoom.
func (m *Method) Clusterize(projection models.Projection, features []models.Feature, targetZoom int) *Collection {
	collection := newCollection()
	cellSize := m.CellSize(targetZoom)

	for _, f := range features {
		o := models.ClustererObject{
			World:    projection.ToWorldCoordinates(f.Coordinates),
			LngLat:   f.Coordinates,
			Features: []models.Feature{f},
		}

		collection.add(CellKeyOf(o.World, cellSize), o)
	}

	return collection
}

// CellRange is a rectangular set of cells. Bounds are inclusive.
type CellRange struct {
	MinX int64
	MaxX int64
	MinY int64
	MaxY int64
}

// Contains reports whether the given cell is in the range.
func (r CellRange) Contains(key CellKey) bool {
	return key.X >= r.MinX && key.X <= r.MaxX &&
		key.Y >= r.MinY && key.Y <= r.MaxY
}

// Len returns the number of cells in the range.
func (r CellRange) Len() int {
	if r.MaxX < r.MinX || r.MaxY < r.MinY {
		return 0
	}
	return int((r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1))
}

// Keys returns all the cells in the range.
func (r CellRange) Keys() []CellKey {
	keys := make([]CellKey, 0, r.Len())
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			keys = append(keys, CellKey{X: x, Y: y})
		}
	}
	return keys
}

// VisibleCells returns the cells that intersect a viewport of the given pixel
// size centered on the given world coordinates, expanded by the screen
// offset.
func (m *Method) VisibleCells(size models.PixelSize, targetZoom int, center models.WorldCoordinates) CellRange {
	viewportSize := models.PixelSizeToWorldSize(size, targetZoom)
	halfX := viewportSize.X / 2
	halfY := viewportSize.Y / 2

	offset := models.PixelSizeToWorldSize(models.PixelSize{X: m.opts.ScreenOffset}, targetZoom).X

	// World y grows upward while pixel y grows downward: halfY is negative so
	// top is the lowest y value.
	top := center.Y + halfY - offset
	bottom := center.Y - halfY + offset
	left := center.X - halfX - offset
	right := center.X + halfX + offset

	cellSize := m.CellSize(targetZoom)

	return CellRange{
		MinX: int64(math.Floor(left / cellSize)),
		MaxX: int64(math.Ceil(right / cellSize)),
		MinY: int64(math.Floor(top / cellSize)),
		MaxY: int64(math.Ceil(bottom / cellSize)),
	}
}
