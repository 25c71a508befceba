package engine

import "github.com/inamate/draftview/internal/geom"

// DefaultLODThreshold is the smallest screen extent, in pixels, that is drawn
// when level-of-detail culling is on.
const DefaultLODThreshold = 0.5

// LODFilter culls entities that are too small to see at the current scale.
type LODFilter struct {
	Enabled   bool
	Threshold float64 // pixels; zero means DefaultLODThreshold
}

// ShouldCull reports whether an entity with the given screen bounds should be
// skipped. Selected entities and entities without bounds are never culled.
func (f LODFilter) ShouldCull(screen geom.BoundingBox, selected bool) bool {
	if !f.Enabled || selected || screen.IsEmpty() {
		return false
	}
	threshold := f.Threshold
	if threshold <= 0 {
		threshold = DefaultLODThreshold
	}
	return screen.MaxExtent() < threshold
}
