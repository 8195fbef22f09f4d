package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/mapclusterer/datasets"
	"github.com/aukilabs/mapclusterer/methods"
	"github.com/aukilabs/mapclusterer/methods/registry"
	"github.com/aukilabs/mapclusterer/models"
	"github.com/aukilabs/mapclusterer/projection"
	"github.com/go-chi/chi/v5"
)

const (
	// URLParamDataset is the route parameter that holds the dataset name.
	URLParamDataset = "dataset"

	ErrTypeInvalidQuery = "invalid_query"

	errCodeBadRequest = "bad_request"
	errCodeNotFound   = "not_found"
)

// ClusterObject is a cluster or a single feature visible in a viewport.
type ClusterObject struct {
	ClusterID   string         `json:"cluster_id"`
	Coordinates models.LngLat  `json:"coordinates"`
	Count       int            `json:"count"`
	FeatureIDs  []string       `json:"feature_ids"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// ClustersResponse is the body returned by the clusters endpoint.
type ClustersResponse struct {
	Dataset    string          `json:"dataset"`
	Method     string          `json:"method"`
	Zoom       int             `json:"zoom"`
	Objects    []ClusterObject `json:"objects"`
	DurationMS float64         `json:"duration_ms"`
}

// HandleClusters returns a handler that renders a dataset for the viewport
// described in the query string and responds with the visible objects.
//
// The dataset is read from the route parameter. The query must contain zoom,
// lng, lat, width and height. The method and grid_size parameters are
// optional.
func HandleClusters(store *datasets.Store, methodRegistry registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataset, err := store.Get(chi.URLParam(r, URLParamDataset))
		if err != nil {
			writeError(w, http.StatusNotFound, errCodeNotFound, err)
			return
		}

		query, err := parseClustersQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, err)
			return
		}

		method, err := methodRegistry.New(query.method, query.gridSize)
		if err != nil {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, err)
			return
		}

		start := time.Now()
		objects := method.Render(methods.RenderProps{
			Viewport:   query.viewport,
			Projection: projection.WebMercator,
			Features:   dataset.Features,
		})

		res := ClustersResponse{
			Dataset:    dataset.Name,
			Method:     method.Name(),
			Zoom:       query.viewport.TargetZoom(),
			Objects:    make([]ClusterObject, len(objects)),
			DurationMS: float64(time.Since(start)) / float64(time.Millisecond),
		}
		for i, o := range objects {
			res.Objects[i] = toClusterObject(o)
		}

		writeJSON(w, http.StatusOK, res)
	}
}

type clustersQuery struct {
	viewport models.Viewport
	method   string
	gridSize float64
}

func parseClustersQuery(r *http.Request) (clustersQuery, error) {
	values := r.URL.Query()

	var parseErr error
	parse := func(key string, required bool) float64 {
		raw := values.Get(key)
		if raw == "" {
			if required && parseErr == nil {
				parseErr = errors.New("missing query parameter").
					WithType(ErrTypeInvalidQuery).
					WithTag("parameter", key)
			}
			return 0
		}

		v, err := strconv.ParseFloat(raw, 64)
		if err != nil && parseErr == nil {
			parseErr = errors.New("invalid query parameter").
				WithType(ErrTypeInvalidQuery).
				WithTag("parameter", key).
				Wrap(err)
		}
		return v
	}

	viewport := models.Viewport{
		Zoom:   parse("zoom", true),
		Center: models.LngLat{parse("lng", true), parse("lat", true)},
		Size: models.PixelSize{
			X: parse("width", true),
			Y: parse("height", true),
		},
	}
	gridSize := parse("grid_size", false)
	if parseErr != nil {
		return clustersQuery{}, parseErr
	}

	if err := viewport.Validate(); err != nil {
		return clustersQuery{}, err
	}
	viewport.Bounds = projection.ViewportBounds(projection.WebMercator, viewport.Center, viewport.Size, viewport.Zoom)

	return clustersQuery{
		viewport: viewport,
		method:   values.Get("method"),
		gridSize: gridSize,
	}, nil
}

func toClusterObject(o models.ClustererObject) ClusterObject {
	obj := ClusterObject{
		ClusterID:   o.ClusterID,
		Coordinates: o.LngLat,
		Count:       len(o.Features),
		FeatureIDs:  models.FeatureIDs(o.Features),
	}
	if !o.IsCluster() {
		obj.Properties = o.Features[0].Properties
	}
	return obj
}
