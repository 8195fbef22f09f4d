package models

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/paulmach/orb"
)

const (
	// WorldPixelSize is the size in pixels of the whole world at zoom 0.
	WorldPixelSize = 256

	// MaxZoom is the highest zoom a viewport can have.
	MaxZoom = 30

	// MaxLatitude is the highest latitude covered by web mercator maps.
	MaxLatitude = 85.0511287798066

	ErrTypeInvalidViewport = "invalid_viewport"
)

// WorldCoordinates is a position in the planar world space. Both axes range
// from -1 to 1 and y grows toward the north.
type WorldCoordinates struct {
	X float64
	Y float64
}

// PixelSize is a size in screen pixels.
type PixelSize struct {
	X float64
	Y float64
}

// Projection converts geographic coordinates to world coordinates and back.
// Both directions must be near-inverse and consistent within a render pass.
type Projection interface {
	ToWorldCoordinates(LngLat) WorldCoordinates
	FromWorldCoordinates(WorldCoordinates) LngLat
}

// Viewport is a snapshot of the map state a render pass is computed for.
type Viewport struct {
	// The current zoom. It may be fractional during zoom animations.
	Zoom float64

	// The geographic center of the viewport.
	Center LngLat

	// The size of the viewport in pixels.
	Size PixelSize

	// The geographic bounds of the viewport. Optional.
	Bounds orb.Bound
}

// TargetZoom returns the integer zoom clustering cells are computed for. Zooms
// are rounded half up so cell membership stays stable while a fractional zoom
// animates.
func (v Viewport) TargetZoom() int {
	return RoundZoom(v.Zoom)
}

// Validate returns an error when the viewport can't be rendered.
func (v Viewport) Validate() error {
	if !isFinite(v.Zoom) || v.Zoom < 0 || v.Zoom > MaxZoom {
		return errors.New("viewport zoom is out of range").
			WithType(ErrTypeInvalidViewport).
			WithTag("zoom", v.Zoom)
	}

	if !isFinite(v.Size.X) || !isFinite(v.Size.Y) || v.Size.X <= 0 || v.Size.Y <= 0 {
		return errors.New("viewport size must be positive").
			WithType(ErrTypeInvalidViewport).
			WithTag("width", v.Size.X).
			WithTag("height", v.Size.Y)
	}

	lng, lat := v.Center.Lon(), v.Center.Lat()
	if !isFinite(lng) || !isFinite(lat) || math.Abs(lng) > 180 || math.Abs(lat) > MaxLatitude {
		return errors.New("viewport center is out of range").
			WithType(ErrTypeInvalidViewport).
			WithTag("center", v.Center)
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
