package datasets

import (
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Manifest lists dataset sources in a TOML file:
//
//	[[dataset]]
//	name = "cities"
//	path = "cities.geojson"
//
// Relative paths are resolved from the directory of the manifest.
type Manifest struct {
	Datasets []Source `toml:"dataset"`
}

// LoadManifest reads the manifest at the given path and returns its sources.
func LoadManifest(path string) ([]Source, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, errors.New("decoding dataset manifest failed").
			WithType(ErrTypeInvalidSource).
			WithTag("path", path).
			Wrap(err)
	}

	return m.sources(filepath.Dir(path))
}

// ParseManifest parses a manifest. Relative paths are resolved from dir.
func ParseManifest(data, dir string) ([]Source, error) {
	var m Manifest
	if _, err := toml.Decode(data, &m); err != nil {
		return nil, errors.New("decoding dataset manifest failed").
			WithType(ErrTypeInvalidSource).
			Wrap(err)
	}

	return m.sources(dir)
}

func (m Manifest) sources(dir string) ([]Source, error) {
	sources := make([]Source, len(m.Datasets))
	for i, src := range m.Datasets {
		if src.Name == "" || src.Path == "" {
			return nil, errors.New("dataset manifest entries must have a name and a path").
				WithType(ErrTypeInvalidSource).
				WithTag("index", i)
		}

		if !filepath.IsAbs(src.Path) {
			src.Path = filepath.Join(dir, src.Path)
		}
		sources[i] = src
	}
	return sources, nil
}
