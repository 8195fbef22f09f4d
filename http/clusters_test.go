package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aukilabs/mapclusterer/methods/grid"
	"github.com/aukilabs/mapclusterer/methods/registry"
	"github.com/go-chi/chi/v5"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func newClustersRouter(t *testing.T) http.Handler {
	r := chi.NewRouter()
	r.Get("/datasets/{"+URLParamDataset+"}/clusters", HandleClusters(newTestStore(t), registry.Registry{
		GridOptions: grid.DefaultOptions(),
	}))
	return r
}

func getClusters(t *testing.T, h http.Handler, dataset string, query url.Values) (*httptest.ResponseRecorder, ClustersResponse) {
	req := httptest.NewRequest(http.MethodGet, "/datasets/"+dataset+"/clusters?"+query.Encode(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var res ClustersResponse
	if w.Code == http.StatusOK {
		err := json.Unmarshal(w.Body.Bytes(), &res)
		require.NoError(t, err)
	}
	return w, res
}

func moscowQuery(zoom string) url.Values {
	return url.Values{
		"zoom":   {zoom},
		"lng":    {"37.62"},
		"lat":    {"55.75"},
		"width":  {"1350"},
		"height": {"856"},
	}
}

func TestHandleClusters(t *testing.T) {
	h := newClustersRouter(t)

	t.Run("nearby features are clustered", func(t *testing.T) {
		w, res := getClusters(t, h, "cities", moscowQuery("5"))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "cities", res.Dataset)
		require.Equal(t, registry.MethodGrid, res.Method)
		require.Equal(t, 5, res.Zoom)
		require.Len(t, res.Objects, 1)

		o := res.Objects[0]
		require.Equal(t, 2, o.Count)
		require.ElementsMatch(t, []string{"moscow", "kremlin"}, o.FeatureIDs)
		require.Regexp(t, `^cluster-[0-9a-z]+\.[0-9a-z]+$`, o.ClusterID)
		require.Nil(t, o.Properties)
	})

	t.Run("features are split when zooming in", func(t *testing.T) {
		w, res := getClusters(t, h, "cities", moscowQuery("18"))
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, res.Objects, 1)
		require.Equal(t, "moscow", res.Objects[0].ClusterID)
		require.Equal(t, "Moscow", res.Objects[0].Properties["name"])
	})

	t.Run("fractional zoom is rounded", func(t *testing.T) {
		w, res := getClusters(t, h, "cities", moscowQuery("4.6"))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 5, res.Zoom)
	})

	t.Run("passthrough method", func(t *testing.T) {
		q := moscowQuery("5")
		q.Set("method", registry.MethodPassthrough)

		w, res := getClusters(t, h, "cities", q)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, registry.MethodPassthrough, res.Method)
		require.Len(t, res.Objects, 3)
	})

	t.Run("empty dataset", func(t *testing.T) {
		w, res := getClusters(t, h, "empty", moscowQuery("5"))
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, res.Objects)
	})

	t.Run("unknown dataset", func(t *testing.T) {
		w, _ := getClusters(t, h, "unknown", moscowQuery("5"))
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Contains(t, w.Body.String(), errCodeNotFound)
	})

	t.Run("missing parameter", func(t *testing.T) {
		q := moscowQuery("5")
		q.Del("width")

		w, _ := getClusters(t, h, "cities", q)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), errCodeBadRequest)
	})

	t.Run("invalid parameter", func(t *testing.T) {
		q := moscowQuery("five")

		w, _ := getClusters(t, h, "cities", q)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid viewport", func(t *testing.T) {
		q := moscowQuery("5")
		q.Set("lat", "89")

		w, _ := getClusters(t, h, "cities", q)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown method", func(t *testing.T) {
		q := moscowQuery("5")
		q.Set("method", "kmeans")

		w, _ := getClusters(t, h, "cities", q)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid grid size", func(t *testing.T) {
		q := moscowQuery("5")
		q.Set("grid_size", "-4")

		w, _ := getClusters(t, h, "cities", q)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
