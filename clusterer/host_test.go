package clusterer

import (
	"fmt"
	"time"

	"github.com/aukilabs/mapclusterer/methods/grid"
	"github.com/aukilabs/mapclusterer/models"
	"github.com/aukilabs/mapclusterer/projection"
	"github.com/aukilabs/mapclusterer/throttle"
)

type testEntity struct {
	ClusterID string
	Cluster   bool
	Count     int
}

type testHost struct {
	*throttle.ManualClock

	viewport    models.Viewport
	hasViewport bool

	children map[Entity]struct{}
	ops      []string
	invalid  []string
}

func newTestHost(viewport models.Viewport) *testHost {
	return &testHost{
		ManualClock: throttle.NewManualClock(time.Unix(1700000000, 0)),
		viewport:    viewport,
		hasViewport: true,
		children:    make(map[Entity]struct{}),
	}
}

func (h *testHost) Viewport() (models.Viewport, models.Projection, bool) {
	return h.viewport, projection.WebMercator, h.hasViewport
}

func (h *testHost) AddChild(e Entity) {
	if _, ok := h.children[e]; ok {
		h.invalid = append(h.invalid, "add "+e.(*testEntity).ClusterID)
	}
	h.children[e] = struct{}{}
	h.ops = append(h.ops, "add "+e.(*testEntity).ClusterID)
}

func (h *testHost) RemoveChild(e Entity) {
	if _, ok := h.children[e]; !ok {
		h.invalid = append(h.invalid, "remove "+e.(*testEntity).ClusterID)
	}
	delete(h.children, e)
	h.ops = append(h.ops, "remove "+e.(*testEntity).ClusterID)
}

func (h *testHost) resetOps() {
	h.ops = nil
}

func (h *testHost) counts() (markers, clusters int) {
	for e := range h.children {
		if e.(*testEntity).Cluster {
			clusters++
		} else {
			markers++
		}
	}
	return markers, clusters
}

type testFactories struct {
	markers  int
	clusters int
	err      error
}

func (f *testFactories) marker(feature models.Feature) (Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.markers++
	return &testEntity{ClusterID: feature.ID, Count: 1}, nil
}

func (f *testFactories) cluster(coordinates models.LngLat, features []models.Feature) (Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.clusters++

	ids := models.FeatureIDs(features)
	return &testEntity{
		ClusterID: fmt.Sprint(ids),
		Cluster:   true,
		Count:     len(features),
	}, nil
}

var moscow = models.LngLat{37.62, 55.75}

// twoCells describes two adjacent cells of 128 pixels at zoom 8 near Moscow,
// each one containing 5 features that are in distinct cells at zoom 10.
type twoCells struct {
	cellSize float64
	origin   grid.CellKey
	features []models.Feature
}

func newTwoCells() twoCells {
	cellSize := grid.CellSize(grid.DefaultGridSize, 8)
	c := twoCells{
		cellSize: cellSize,
		origin:   grid.CellKeyOf(projection.WebMercator.ToWorldCoordinates(moscow), cellSize),
	}

	fractions := [][2]float64{
		{0.1, 0.1},
		{0.6, 0.1},
		{0.1, 0.6},
		{0.6, 0.6},
		{0.35, 0.35},
	}

	for cell := int64(0); cell < 2; cell++ {
		for i, f := range fractions {
			c.features = append(c.features, models.Feature{
				ID:          fmt.Sprintf("%d-%d", cell, i),
				Coordinates: c.at(float64(cell)+f[0], f[1]),
				Properties:  map[string]any{"cell": cell},
			})
		}
	}
	return c
}

// at returns the coordinates of a point located in cell units from the
// bottom left corner of the first cell.
func (c twoCells) at(x, y float64) models.LngLat {
	return projection.WebMercator.FromWorldCoordinates(models.WorldCoordinates{
		X: (float64(c.origin.X) + x) * c.cellSize,
		Y: (float64(c.origin.Y) + y) * c.cellSize,
	})
}

// viewport returns a viewport centered on the edge shared by both cells.
func (c twoCells) viewport(zoom float64) models.Viewport {
	return models.Viewport{
		Zoom:   zoom,
		Center: c.at(1, 0.5),
		Size:   models.PixelSize{X: 1350, Y: 856},
	}
}
