package models

import (
	"strconv"
)

// FeatureTokens assigns a compact token to every feature id the first time it
// is seen. A token never changes once assigned.
//
// FeatureTokens is not safe for concurrent use. It is meant to be owned by a
// single clustering method.
type FeatureTokens struct {
	next    uint64
	indexes map[string]uint64
}

// Index returns the sequential index assigned to the given feature id.
func (t *FeatureTokens) Index(featureID string) uint64 {
	if t.indexes == nil {
		t.indexes = make(map[string]uint64)
	}

	if idx, ok := t.indexes[featureID]; ok {
		return idx
	}

	idx := t.next
	t.next++
	t.indexes[featureID] = idx
	return idx
}

// Token returns the token assigned to the given feature id.
func (t *FeatureTokens) Token(featureID string) string {
	return FormatToken(t.Index(featureID))
}

// Len returns the number of feature ids that have been assigned a token.
func (t *FeatureTokens) Len() int {
	return len(t.indexes)
}

// FormatToken formats a token index.
func FormatToken(idx uint64) string {
	return strconv.FormatUint(idx, 36)
}
