package passthrough

import (
	"testing"

	"github.com/aukilabs/mapclusterer/methods"
	"github.com/aukilabs/mapclusterer/models"
	"github.com/aukilabs/mapclusterer/projection"
	"github.com/stretchr/testify/require"
)

func TestMethodRender(t *testing.T) {
	features := []models.Feature{
		{ID: "a", Coordinates: models.LngLat{37.64, 55.76}},
		{ID: "b", Coordinates: models.LngLat{37.64, 55.76}},
		{ID: "c", Coordinates: models.LngLat{40.52, 58.57}},
	}

	m := New()
	objects := m.Render(methods.RenderProps{
		Viewport:   models.Viewport{Zoom: 3},
		Projection: projection.WebMercator,
		Features:   features,
	})

	require.Len(t, objects, len(features))
	for i, o := range objects {
		require.Equal(t, features[i].ID, o.ClusterID)
		require.Equal(t, features[i].Coordinates, o.LngLat)
		require.Len(t, o.Features, 1)
		require.False(t, o.IsCluster())
	}
}

func TestMethodRenderNoFeatures(t *testing.T) {
	objects := New().Render(methods.RenderProps{Projection: projection.WebMercator})
	require.Empty(t, objects)
}
