package projection

import (
	"testing"

	"github.com/aukilabs/mapclusterer/models"
	"github.com/stretchr/testify/require"
)

func TestWebMercatorToWorldCoordinates(t *testing.T) {
	t.Run("origin", func(t *testing.T) {
		w := WebMercator.ToWorldCoordinates(models.LngLat{0, 0})
		require.InDelta(t, 0, w.X, 1e-12)
		require.InDelta(t, 0, w.Y, 1e-12)
	})

	t.Run("antimeridian", func(t *testing.T) {
		w := WebMercator.ToWorldCoordinates(models.LngLat{180, 0})
		require.InDelta(t, 1, w.X, 1e-12)

		w = WebMercator.ToWorldCoordinates(models.LngLat{-180, 0})
		require.InDelta(t, -1, w.X, 1e-12)
	})

	t.Run("north is up", func(t *testing.T) {
		w := WebMercator.ToWorldCoordinates(models.LngLat{37.6, 55.7})
		require.Greater(t, w.Y, 0.0)
		require.Greater(t, w.X, 0.0)
	})
}

func TestWebMercatorRoundTrip(t *testing.T) {
	points := []models.LngLat{
		{37.64, 55.76},
		{-73.95, 40.71},
		{151.2, -33.86},
		{0, 0},
	}

	for _, p := range points {
		back := WebMercator.FromWorldCoordinates(WebMercator.ToWorldCoordinates(p))
		require.InDelta(t, p[0], back[0], 1e-9)
		require.InDelta(t, p[1], back[1], 1e-9)
	}
}

func TestViewportBounds(t *testing.T) {
	center := models.LngLat{37.6, 55.7}
	b := ViewportBounds(WebMercator, center, models.PixelSize{X: 1350, Y: 856}, 9)

	require.True(t, b.Contains(center))
	require.Less(t, b.Min[0], center[0])
	require.Greater(t, b.Max[0], center[0])
	require.Less(t, b.Min[1], center[1])
	require.Greater(t, b.Max[1], center[1])

	wider := ViewportBounds(WebMercator, center, models.PixelSize{X: 1350, Y: 856}, 8)
	require.Greater(t, wider.Max[0]-wider.Min[0], b.Max[0]-b.Min[0])
}
