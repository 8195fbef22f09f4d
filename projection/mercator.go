// Package projection provides the coordinate projections used to place
// features in the world space clustering methods work in.
package projection

import (
	"math"

	"github.com/aukilabs/mapclusterer/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Half of the earth circumference at the equator, in meters. Mercator meters
// are divided by it to get world coordinates in the [-1, 1] range.
const earthHalfCircumference = orb.EarthRadius * math.Pi

// WebMercator is the spherical pseudo-mercator projection used by most web
// maps.
var WebMercator models.Projection = webMercator{}

type webMercator struct{}

func (webMercator) ToWorldCoordinates(lnglat models.LngLat) models.WorldCoordinates {
	p := project.WGS84.ToMercator(lnglat)
	return models.WorldCoordinates{
		X: p[0] / earthHalfCircumference,
		Y: p[1] / earthHalfCircumference,
	}
}

func (webMercator) FromWorldCoordinates(world models.WorldCoordinates) models.LngLat {
	return project.Mercator.ToWGS84(orb.Point{
		world.X * earthHalfCircumference,
		world.Y * earthHalfCircumference,
	})
}

// ViewportBounds returns the geographic bounds of a viewport of the given
// pixel size centered on center at the given, possibly fractional, zoom.
func ViewportBounds(p models.Projection, center models.LngLat, size models.PixelSize, zoom float64) orb.Bound {
	scale := math.Exp2(zoom) / 2 * models.WorldPixelSize
	c := p.ToWorldCoordinates(center)

	halfX := size.X / scale / 2
	halfY := size.Y / scale / 2

	sw := p.FromWorldCoordinates(models.WorldCoordinates{X: c.X - halfX, Y: c.Y - halfY})
	ne := p.FromWorldCoordinates(models.WorldCoordinates{X: c.X + halfX, Y: c.Y + halfY})
	return orb.Bound{Min: sw, Max: ne}
}
