package models

import (
	"github.com/paulmach/orb"
)

// LngLat is a geographic coordinate. Index 0 is the longitude and index 1 the
// latitude, both in degrees.
type LngLat = orb.Point

// Feature is a point to clusterize.
//
// Features are owned by the caller. Clustering methods only read their
// coordinates and ids. Ids must be unique within the lifetime of a clusterer.
type Feature struct {
	ID          string
	Coordinates LngLat
	Properties  map[string]any
}

// FeatureIDs returns the ids of the given features, in order.
func FeatureIDs(features []Feature) []string {
	ids := make([]string, len(features))
	for i, f := range features {
		ids[i] = f.ID
	}
	return ids
}

// ClustererObject represents an object on a map: either a single feature or a
// cluster of features.
type ClustererObject struct {
	// The position in world coordinates.
	World WorldCoordinates

	// The position in geographic coordinates.
	LngLat LngLat

	// The identifier of the object. It is the feature id when the object has
	// a single feature.
	ClusterID string

	// The features represented by the object.
	Features []Feature
}

// IsCluster reports whether the object groups more than one feature.
func (o ClustererObject) IsCluster() bool {
	return len(o.Features) > 1
}
