package websocket

import (
	"github.com/aukilabs/mapclusterer/clusterer"
	"github.com/aukilabs/mapclusterer/models"
	"github.com/aukilabs/mapclusterer/projection"
	"github.com/aukilabs/mapclusterer/throttle"
	"github.com/google/uuid"
)

const (
	entityKindMarker  = "marker"
	entityKindCluster = "cluster"
)

// entity is what is displayed on a client map for a cluster.
type entity struct {
	ID          string
	Kind        string
	ClusterID   string
	Coordinates models.LngLat
	FeatureIDs  []string
	Properties  map[string]any
}

func newMarker(f models.Feature) (clusterer.Entity, error) {
	return &entity{
		ID:          uuid.NewString(),
		Kind:        entityKindMarker,
		ClusterID:   f.ID,
		Coordinates: f.Coordinates,
		FeatureIDs:  []string{f.ID},
		Properties:  f.Properties,
	}, nil
}

func newCluster(coordinates models.LngLat, features []models.Feature) (clusterer.Entity, error) {
	return &entity{
		ID:          uuid.NewString(),
		Kind:        entityKindCluster,
		Coordinates: coordinates,
		FeatureIDs:  models.FeatureIDs(features),
	}, nil
}

func (e *entity) toEntityAdd() EntityAdd {
	return EntityAdd{
		EntityID:    e.ID,
		Kind:        e.Kind,
		ClusterID:   e.ClusterID,
		Coordinates: e.Coordinates,
		Count:       len(e.FeatureIDs),
		FeatureIDs:  e.FeatureIDs,
		Properties:  e.Properties,
	}
}

// host is the server side representation of a client map. Entities added to
// it are forwarded to the client.
type host struct {
	throttle.Clock

	respond     ResponseSender
	viewport    models.Viewport
	hasViewport bool
	closed      bool
}

func (h *host) Viewport() (models.Viewport, models.Projection, bool) {
	return h.viewport, projection.WebMercator, h.hasViewport
}

func (h *host) SetViewport(v Viewport) error {
	viewport, err := toModelViewport(v)
	if err != nil {
		return err
	}

	h.viewport = viewport
	h.hasViewport = true
	return nil
}

func (h *host) AddChild(e clusterer.Entity) {
	if h.closed {
		return
	}
	h.respond.Send(MsgTypeEntityAdd, e.(*entity).toEntityAdd())
}

func (h *host) RemoveChild(e clusterer.Entity) {
	if h.closed {
		return
	}
	h.respond.Send(MsgTypeEntityRemove, EntityRemove{
		EntityID: e.(*entity).ID,
	})
}

func toModelViewport(v Viewport) (models.Viewport, error) {
	viewport := models.Viewport{
		Zoom:   v.Zoom,
		Center: models.LngLat{v.Center[0], v.Center[1]},
		Size:   models.PixelSize{X: v.Width, Y: v.Height},
	}
	if err := viewport.Validate(); err != nil {
		return models.Viewport{}, err
	}

	viewport.Bounds = projection.ViewportBounds(projection.WebMercator, viewport.Center, viewport.Size, viewport.Zoom)
	return viewport, nil
}
