// Package passthrough implements a clustering method that does not cluster:
// every feature is rendered as its own object.
package passthrough

import (
	"github.com/aukilabs/mapclusterer/methods"
	"github.com/aukilabs/mapclusterer/models"
)

type Method struct{}

func New() *Method {
	return &Method{}
}

func (m *Method) Name() string {
	return "passthrough"
}

func (m *Method) Render(props methods.RenderProps) []models.ClustererObject {
	objects := make([]models.ClustererObject, len(props.Features))
	for i, f := range props.Features {
		objects[i] = models.ClustererObject{
			World:     props.Projection.ToWorldCoordinates(f.Coordinates),
			LngLat:    f.Coordinates,
			ClusterID: f.ID,
			Features:  []models.Feature{f},
		}
	}
	return objects
}
