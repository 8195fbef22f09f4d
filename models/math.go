package models

import (
	"math"
)

// RoundZoom rounds the given zoom to the nearest integer, halves going up.
func RoundZoom(zoom float64) int {
	return int(math.Floor(zoom + 0.5))
}

// WorldScale returns the number of pixels covering one world unit at the given
// zoom.
func WorldScale(zoom int) float64 {
	return math.Exp2(float64(zoom)) / 2 * WorldPixelSize
}

// PixelSizeToWorldSize converts a size in pixels to a size in world units at
// the given zoom. The y component is negated since pixels grow downward and
// world coordinates grow upward.
func PixelSizeToWorldSize(size PixelSize, zoom int) WorldCoordinates {
	scale := WorldScale(zoom)
	return WorldCoordinates{
		X: size.X / scale,
		Y: size.Y / -scale,
	}
}
