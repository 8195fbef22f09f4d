// Package grid implements clustering by grid.
//
// The world is sub-divided into a uniform grid of square cells whose size is
// a fixed number of screen pixels at the current zoom. The features falling
// in the same cell are grouped in a cluster placed at their centroid, and
// features alone in their cell are rendered as they are. The grid is rebuilt on
// every render pass: there is no index kept between passes.
package grid

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/mapclusterer/methods"
	"github.com/aukilabs/mapclusterer/models"
)

const (
	// The default size of a cell, in pixels.
	DefaultGridSize = 128

	// The default margin, in pixels, added around the viewport when selecting
	// visible cells. It avoids clusters popping in at the viewport edges.
	DefaultScreenOffset = 100

	ErrTypeInvalidGridSize     = "invalid_grid_size"
	ErrTypeInvalidScreenOffset = "invalid_screen_offset"
)

// IDMode describes how cluster ids are built from their member features.
type IDMode int

const (
	// Member tokens are sorted before being joined. A cluster keeps the same
	// id as long as its membership does not change, whatever the order the
	// features are given in.
	IDCanonical IDMode = iota

	// Member tokens are joined in the order the features were added to the
	// cluster. The same members given in a different order produce a
	// different id.
	IDInsertionOrder
)

func (m IDMode) String() string {
	switch m {
	case IDCanonical:
		return "canonical"
	case IDInsertionOrder:
		return "insertion_order"
	default:
		return "unknown"
	}
}

// Options configures a grid method.
type Options struct {
	// The size of a cell, in pixels. Must be greater than 0.
	GridSize float64

	// The margin, in pixels, added around the viewport when selecting visible
	// cells. Must not be negative.
	ScreenOffset float64

	// How cluster ids are built.
	IDMode IDMode
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		GridSize:     DefaultGridSize,
		ScreenOffset: DefaultScreenOffset,
		IDMode:       IDCanonical,
	}
}

// Method is a clustering method that groups features by grid cells.
//
// A Method is not safe for concurrent use: it owns the tokens assigned to the
// features it has seen and is meant to be driven by a single clusterer.
type Method struct {
	opts   Options
	tokens models.FeatureTokens
}

// New creates a grid method with the given options.
func New(opts Options) (*Method, error) {
	if !(opts.GridSize > 0) || math.IsInf(opts.GridSize, 0) {
		return nil, errors.New("grid size must be a positive number").
			WithType(ErrTypeInvalidGridSize).
			WithTag("grid_size", opts.GridSize)
	}

	if !(opts.ScreenOffset >= 0) || math.IsInf(opts.ScreenOffset, 0) {
		return nil, errors.New("screen offset must be a positive number or zero").
			WithType(ErrTypeInvalidScreenOffset).
			WithTag("screen_offset", opts.ScreenOffset)
	}

	return &Method{opts: opts}, nil
}

func (m *Method) Name() string {
	return "grid"
}

// Options returns the options the method was created with.
func (m *Method) Options() Options {
	return m.opts
}

func (m *Method) Render(props methods.RenderProps) []models.ClustererObject {
	targetZoom := props.Viewport.TargetZoom()

	visibleCells := m.VisibleCells(
		props.Viewport.Size,
		targetZoom,
		props.Projection.ToWorldCoordinates(props.Viewport.Center),
	)

	collection := m.Clusterize(props.Projection, props.Features, targetZoom)

	objects := make([]models.ClustererObject, 0, collection.Len())
	for _, key := range collection.Keys() {
		if !visibleCells.Contains(key) {
			continue
		}

		cluster, _ := collection.Get(key)
		if len(cluster.Objects) == 1 {
			object := cluster.Objects[0]
			object.ClusterID = cluster.Features[0].ID
			objects = append(objects, object)
			continue
		}

		world := cluster.Centroid()
		objects = append(objects, models.ClustererObject{
			World:     world,
			LngLat:    props.Projection.FromWorldCoordinates(world),
			ClusterID: m.ClusterID(cluster.Features),
			Features:  cluster.Features,
		})
	}

	return objects
}

// CellSize returns the size of a cell in world units at the given zoom.
func (m *Method) CellSize(zoom int) float64 {
	return CellSize(m.opts.GridSize, zoom)
}

// CellSize returns the size in world units of a cell of gridSize pixels at
// the given zoom.
func CellSize(gridSize float64, zoom int) float64 {
	return models.PixelSizeToWorldSize(models.PixelSize{X: gridSize}, zoom).X
}
