package grid

import (
	"slices"
	"strings"

	"github.com/aukilabs/mapclusterer/models"
)

// ClusterIDPrefix prefixes the ids of clusters with more than one feature.
const ClusterIDPrefix = "cluster-"

// ClusterID returns the id of a cluster made of the given features. Features
// seen for the first time are assigned a token that is kept for the lifetime
// of the method.
func (m *Method) ClusterID(features []models.Feature) string {
	if len(features) == 1 {
		return features[0].ID
	}

	indexes := make([]uint64, len(features))
	for i, f := range features {
		indexes[i] = m.tokens.Index(f.ID)
	}

	if m.opts.IDMode == IDCanonical {
		slices.Sort(indexes)
	}

	var b strings.Builder
	b.WriteString(ClusterIDPrefix)
	for i, idx := range indexes {
		if i != 0 {
			b.WriteByte('.')
		}
		b.WriteString(models.FormatToken(idx))
	}
	return b.String()
}

// TokenCount returns the number of features that were assigned a token.
func (m *Method) TokenCount() int {
	return m.tokens.Len()
}
