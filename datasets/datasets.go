// Package datasets loads the point features served to clients.
package datasets

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/mapclusterer/models"
	"github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
)

const (
	ErrTypeNotFound      = "dataset_not_found"
	ErrTypeInvalidSource = "invalid_dataset_source"
	ErrTypeInvalidData   = "invalid_dataset_data"
)

// Dataset is a named set of point features.
type Dataset struct {
	Name     string
	Features []models.Feature

	// The number of features that were not points or whose coordinates were
	// out of range.
	Skipped int

	// The bounds of the features. Zero when there are no features.
	Bounds orb.Bound
}

// LoadGeoJSONFile loads a dataset from a GeoJSON feature collection file.
func LoadGeoJSONFile(name, path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading dataset file failed").
			WithTag("dataset", name).
			WithTag("path", path).
			Wrap(err)
	}

	return ParseGeoJSON(name, data)
}

// ParseGeoJSON creates a dataset from a GeoJSON feature collection. Only the
// features with a point geometry are kept. Feature ids are converted to
// strings and the features without one are named after the dataset and their
// position in the collection.
func ParseGeoJSON(name string, data []byte) (*Dataset, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.New("parsing geojson failed").
			WithType(ErrTypeInvalidData).
			WithTag("dataset", name).
			Wrap(err)
	}

	d := Dataset{
		Name:     name,
		Features: make([]models.Feature, 0, len(fc.Features)),
	}

	for i, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsPoint() || len(f.Geometry.Point) < 2 {
			d.Skipped++
			continue
		}

		coordinates := models.LngLat{f.Geometry.Point[0], f.Geometry.Point[1]}
		if !validCoordinates(coordinates) {
			d.Skipped++
			continue
		}
		if len(d.Features) == 0 {
			d.Bounds = coordinates.Bound()
		} else {
			d.Bounds = d.Bounds.Extend(coordinates)
		}

		d.Features = append(d.Features, models.Feature{
			ID:          featureID(name, i, f.ID),
			Coordinates: coordinates,
			Properties:  f.Properties,
		})
	}

	return &d, nil
}

func validCoordinates(p models.LngLat) bool {
	lng, lat := p.Lon(), p.Lat()
	if math.IsNaN(lng) || math.IsNaN(lat) || math.IsInf(lng, 0) || math.IsInf(lat, 0) {
		return false
	}
	return math.Abs(lng) <= 180 && math.Abs(lat) <= 90
}

func featureID(dataset string, index int, id any) string {
	switch id := id.(type) {
	case nil:
		return fmt.Sprintf("%s-%d", dataset, index)

	case string:
		return id

	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)

	default:
		return fmt.Sprint(id)
	}
}

// Source is the location of a dataset file.
type Source struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// ParseSource parses a source formatted as name=path.
func ParseSource(s string) (Source, error) {
	name, path, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)

	if !ok || name == "" || path == "" {
		return Source{}, errors.New("dataset source must be formatted as name=path").
			WithType(ErrTypeInvalidSource).
			WithTag("source", s)
	}

	return Source{Name: name, Path: path}, nil
}

// Store contains datasets by name. It is safe for concurrent use.
type Store struct {
	mutex    sync.RWMutex
	datasets map[string]*Dataset
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		datasets: make(map[string]*Dataset),
	}
}

// Add adds a dataset, replacing the one with the same name.
func (s *Store) Add(d *Dataset) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.datasets[d.Name] = d
}

// Get returns the dataset with the given name.
func (s *Store) Get(name string) (*Dataset, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	d, ok := s.datasets[name]
	if !ok {
		return nil, errors.New("dataset not found").
			WithType(ErrTypeNotFound).
			WithTag("dataset", name)
	}
	return d, nil
}

// Names returns the sorted names of the datasets.
func (s *Store) Names() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of datasets.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.datasets)
}

// Load parses the given name=path sources and adds the datasets they point
// to.
func (s *Store) Load(sources ...string) error {
	parsed := make([]Source, 0, len(sources))
	for _, source := range sources {
		src, err := ParseSource(source)
		if err != nil {
			return err
		}
		parsed = append(parsed, src)
	}

	return s.LoadSources(parsed...)
}

// LoadSources adds the datasets the given sources point to.
func (s *Store) LoadSources(sources ...Source) error {
	for _, src := range sources {
		d, err := LoadGeoJSONFile(src.Name, src.Path)
		if err != nil {
			return err
		}
		s.Add(d)

		logs.WithTag("dataset", d.Name).
			WithTag("path", src.Path).
			WithTag("features", len(d.Features)).
			WithTag("skipped", d.Skipped).
			Info("dataset loaded")
	}

	return nil
}
