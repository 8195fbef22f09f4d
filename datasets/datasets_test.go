package datasets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

const pointsGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"id": "moscow",
			"geometry": {"type": "Point", "coordinates": [37.62, 55.75]},
			"properties": {"name": "Moscow"}
		},
		{
			"type": "Feature",
			"id": 42,
			"geometry": {"type": "Point", "coordinates": [30.31, 59.94]},
			"properties": {"name": "Saint Petersburg"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]},
			"properties": {}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [49.11, 55.79]},
			"properties": null
		}
	]
}`

func writeTestFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "points.geojson")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)
	return path
}

func TestParseGeoJSON(t *testing.T) {
	t.Run("points are loaded", func(t *testing.T) {
		d, err := ParseGeoJSON("cities", []byte(pointsGeoJSON))
		require.NoError(t, err)
		require.Equal(t, "cities", d.Name)
		require.Equal(t, 1, d.Skipped)
		require.Len(t, d.Features, 3)

		require.Equal(t, "moscow", d.Features[0].ID)
		require.Equal(t, orb.Point{37.62, 55.75}, d.Features[0].Coordinates)
		require.Equal(t, "Moscow", d.Features[0].Properties["name"])

		require.Equal(t, "42", d.Features[1].ID)
		require.Equal(t, "cities-3", d.Features[2].ID)

		require.Equal(t, orb.Point{30.31, 55.75}, d.Bounds.Min)
		require.Equal(t, orb.Point{49.11, 59.94}, d.Bounds.Max)
	})

	t.Run("invalid json returns an error", func(t *testing.T) {
		_, err := ParseGeoJSON("broken", []byte(`{"type":`))
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidData))
	})

	t.Run("out of range points are skipped", func(t *testing.T) {
		d, err := ParseGeoJSON("broken", []byte(`{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature", "id": "north", "geometry": {"type": "Point", "coordinates": [10, 95]}},
				{"type": "Feature", "id": "east", "geometry": {"type": "Point", "coordinates": [200, 10]}},
				{"type": "Feature", "id": "pole", "geometry": {"type": "Point", "coordinates": [-180, -90]}}
			]
		}`))
		require.NoError(t, err)
		require.Equal(t, 2, d.Skipped)
		require.Len(t, d.Features, 1)
		require.Equal(t, "pole", d.Features[0].ID)
		require.Equal(t, orb.Point{-180, -90}, d.Bounds.Min)
	})

	t.Run("empty collection", func(t *testing.T) {
		d, err := ParseGeoJSON("empty", []byte(`{"type": "FeatureCollection", "features": []}`))
		require.NoError(t, err)
		require.Empty(t, d.Features)
		require.Equal(t, orb.Bound{}, d.Bounds)
	})
}

func TestLoadGeoJSONFile(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		d, err := LoadGeoJSONFile("cities", writeTestFile(t, pointsGeoJSON))
		require.NoError(t, err)
		require.Len(t, d.Features, 3)
	})

	t.Run("missing file returns an error", func(t *testing.T) {
		_, err := LoadGeoJSONFile("cities", filepath.Join(t.TempDir(), "missing.geojson"))
		require.Error(t, err)
	})
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected Source
		err      bool
	}{
		{
			name:     "name and path",
			source:   "cities=/data/cities.geojson",
			expected: Source{Name: "cities", Path: "/data/cities.geojson"},
		},
		{
			name:     "spaces are trimmed",
			source:   " cities = cities.geojson ",
			expected: Source{Name: "cities", Path: "cities.geojson"},
		},
		{
			name:   "missing separator",
			source: "cities.geojson",
			err:    true,
		},
		{
			name:   "missing name",
			source: "=cities.geojson",
			err:    true,
		},
		{
			name:   "missing path",
			source: "cities=",
			err:    true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			source, err := ParseSource(test.source)
			if test.err {
				require.Error(t, err)
				require.True(t, errors.IsType(err, ErrTypeInvalidSource))
				return
			}

			require.NoError(t, err)
			require.Equal(t, test.expected, source)
		})
	}
}

func TestStore(t *testing.T) {
	t.Run("load and get", func(t *testing.T) {
		s := NewStore()
		err := s.Load("cities=" + writeTestFile(t, pointsGeoJSON))
		require.NoError(t, err)
		require.Equal(t, 1, s.Len())
		require.Equal(t, []string{"cities"}, s.Names())

		d, err := s.Get("cities")
		require.NoError(t, err)
		require.Len(t, d.Features, 3)
	})

	t.Run("get unknown dataset returns an error", func(t *testing.T) {
		s := NewStore()
		_, err := s.Get("unknown")
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeNotFound))
	})

	t.Run("add replaces datasets with the same name", func(t *testing.T) {
		s := NewStore()
		s.Add(&Dataset{Name: "b"})
		s.Add(&Dataset{Name: "a"})
		s.Add(&Dataset{Name: "a", Skipped: 3})

		require.Equal(t, []string{"a", "b"}, s.Names())
		d, err := s.Get("a")
		require.NoError(t, err)
		require.Equal(t, 3, d.Skipped)
	})

	t.Run("invalid source returns an error", func(t *testing.T) {
		s := NewStore()
		err := s.Load("cities")
		require.Error(t, err)
		require.Zero(t, s.Len())
	})
}
