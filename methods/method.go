package methods

import (
	"github.com/aukilabs/mapclusterer/models"
)

// Method is the interface that describes a clustering method.
type Method interface {
	// Returns the method name.
	Name() string

	// Computes the objects to display for the given viewport and features.
	//
	// Render is called once per render pass and must run to completion
	// synchronously. The returned objects only contain what is visible in
	// the viewport.
	Render(RenderProps) []models.ClustererObject
}

// RenderProps contains the inputs of a render pass.
type RenderProps struct {
	// The viewport to render.
	Viewport models.Viewport

	// The projection used to convert geographic coordinates to world
	// coordinates.
	Projection models.Projection

	// The features to clusterize.
	Features []models.Feature
}
