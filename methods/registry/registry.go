// Package registry builds clustering methods from their names.
package registry

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/mapclusterer/featureflag"
	"github.com/aukilabs/mapclusterer/methods"
	"github.com/aukilabs/mapclusterer/methods/grid"
	"github.com/aukilabs/mapclusterer/methods/passthrough"
)

const (
	MethodGrid        = "grid"
	MethodPassthrough = "passthrough"

	ErrTypeUnknownMethod = "unknown_method"
)

// Registry creates methods from a name and the defaults of the running
// server.
type Registry struct {
	// The grid options used when a request does not override them.
	GridOptions grid.Options

	FeatureFlags featureflag.FeatureFlag
}

// Names returns the names of the available methods.
func Names() []string {
	return []string{MethodGrid, MethodPassthrough}
}

// New creates the method with the given name. An empty name selects the grid
// method. A non zero grid size overrides the default one.
func (r Registry) New(name string, gridSize float64) (methods.Method, error) {
	switch name {
	case "", MethodGrid:
		opts := r.GridOptions
		if gridSize != 0 {
			opts.GridSize = gridSize
		}

		r.FeatureFlags.IfSet(featureflag.FlagOrderSensitiveClusterIDs, func() {
			opts.IDMode = grid.IDInsertionOrder
		})
		m, err := grid.New(opts)
		if err != nil {
			return nil, err
		}
		return m, nil

	case MethodPassthrough:
		return passthrough.New(), nil

	default:
		return nil, errors.New("unknown clustering method").
			WithType(ErrTypeUnknownMethod).
			WithTag("method", name)
	}
}
