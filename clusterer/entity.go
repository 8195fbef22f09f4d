package clusterer

import (
	"github.com/aukilabs/mapclusterer/models"
	"github.com/aukilabs/mapclusterer/throttle"
)

// Entity is a renderable created by a factory and placed in a host
// container. The clusterer never looks inside it.
type Entity any

// MarkerFactory creates the entity of a feature that is alone in its
// cluster.
type MarkerFactory func(f models.Feature) (Entity, error)

// ClusterFactory creates the entity of a cluster located at the given
// coordinates.
type ClusterFactory func(coordinates models.LngLat, features []models.Feature) (Entity, error)

// Container receives the entities to display.
type Container interface {
	AddChild(e Entity)
	RemoveChild(e Entity)
}

// Host is what a clusterer is attached to.
type Host interface {
	Container
	throttle.Clock

	// Returns the current viewport and the projection to use with it. The
	// boolean is false when no viewport is available yet.
	Viewport() (models.Viewport, models.Projection, bool)
}
