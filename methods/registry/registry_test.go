package registry

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/mapclusterer/featureflag"
	"github.com/aukilabs/mapclusterer/methods/grid"
	"github.com/stretchr/testify/require"
)

func TestRegistryNew(t *testing.T) {
	r := Registry{GridOptions: grid.DefaultOptions()}

	t.Run("default method is grid", func(t *testing.T) {
		m, err := r.New("", 0)
		require.NoError(t, err)
		require.Equal(t, MethodGrid, m.Name())
	})

	t.Run("grid", func(t *testing.T) {
		m, err := r.New(MethodGrid, 0)
		require.NoError(t, err)
		require.Equal(t, MethodGrid, m.Name())
	})

	t.Run("passthrough", func(t *testing.T) {
		m, err := r.New(MethodPassthrough, 0)
		require.NoError(t, err)
		require.Equal(t, MethodPassthrough, m.Name())
	})

	t.Run("unknown method", func(t *testing.T) {
		m, err := r.New("kmeans", 0)
		require.Error(t, err)
		require.Nil(t, m)
		require.True(t, errors.IsType(err, ErrTypeUnknownMethod))
	})

	t.Run("invalid grid size", func(t *testing.T) {
		_, err := r.New(MethodGrid, -1)
		require.Error(t, err)
		require.True(t, errors.IsType(err, grid.ErrTypeInvalidGridSize))
	})

	t.Run("order sensitive ids", func(t *testing.T) {
		r := Registry{
			GridOptions:  grid.DefaultOptions(),
			FeatureFlags: featureflag.New([]string{string(featureflag.FlagOrderSensitiveClusterIDs)}),
		}

		m, err := r.New(MethodGrid, 64)
		require.NoError(t, err)
		require.Equal(t, grid.IDInsertionOrder, m.(*grid.Method).Options().IDMode)
		require.Equal(t, float64(64), m.(*grid.Method).Options().GridSize)
	})
}

func TestNames(t *testing.T) {
	require.Equal(t, []string{MethodGrid, MethodPassthrough}, Names())
}
