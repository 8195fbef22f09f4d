package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/mapclusterer/datasets"
	"github.com/aukilabs/mapclusterer/methods/registry"
	"github.com/segmentio/encoding/json"
)

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func HandleReadyCheck(readinessCheck func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !readinessCheck() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}

// DatasetInfo describes a dataset that clients can attach to.
type DatasetInfo struct {
	Name     string     `json:"name"`
	Features int        `json:"features"`
	Skipped  int        `json:"skipped,omitempty"`
	Bounds   [4]float64 `json:"bounds"`
}

// DatasetsResponse is the body returned by the datasets endpoint.
type DatasetsResponse struct {
	Datasets []DatasetInfo `json:"datasets"`
	Methods  []string      `json:"methods"`
}

// HandleDatasets lists the loaded datasets and the available clustering
// methods.
func HandleDatasets(store *datasets.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := DatasetsResponse{
			Datasets: []DatasetInfo{},
			Methods:  registry.Names(),
		}

		for _, name := range store.Names() {
			d, err := store.Get(name)
			if err != nil {
				continue
			}

			res.Datasets = append(res.Datasets, DatasetInfo{
				Name:     d.Name,
				Features: len(d.Features),
				Skipped:  d.Skipped,
				Bounds: [4]float64{
					d.Bounds.Min.Lon(),
					d.Bounds.Min.Lat(),
					d.Bounds.Max.Lon(),
					d.Bounds.Max.Lat(),
				},
			})
		}

		writeJSON(w, http.StatusOK, res)
	}
}

// ErrorResponse is the body returned when a request fails.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Warn(err)
	}
}
