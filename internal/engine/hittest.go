package engine

import (
	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/geom"
)

// HitTestEntry is an entity and its screen-space bounds.
type HitTestEntry struct {
	Entity document.Entity
	Bounds geom.BoundingBox
}

// HitTestIndex maps screen points back to entities. It is rebuilt on every
// render; later-recorded entries win on overlap, matching what is drawn on top.
type HitTestIndex struct {
	entries []HitTestEntry
	live    map[document.Entity]int
}

func NewHitTestIndex() *HitTestIndex {
	return &HitTestIndex{live: make(map[document.Entity]int)}
}

// Record stores screen bounds for e. Recording the same entity again replaces
// its previous entry and makes it the newest. Empty bounds are ignored.
func (h *HitTestIndex) Record(e document.Entity, bounds geom.BoundingBox) {
	if e == nil || bounds.IsEmpty() {
		return
	}
	if h.live == nil {
		h.live = make(map[document.Entity]int)
	}
	if i, ok := h.live[e]; ok {
		h.entries[i].Entity = nil
	}
	h.entries = append(h.entries, HitTestEntry{Entity: e, Bounds: bounds})
	h.live[e] = len(h.entries) - 1
}

// Pick returns the most recently recorded entity whose bounds contain p.
func (h *HitTestIndex) Pick(p geom.Point) (document.Entity, bool) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		entry := h.entries[i]
		if entry.Entity != nil && entry.Bounds.Contains(p) {
			return entry.Entity, true
		}
	}
	return nil, false
}

// Bounds returns the recorded bounds of e.
func (h *HitTestIndex) Bounds(e document.Entity) (geom.BoundingBox, bool) {
	i, ok := h.live[e]
	if !ok {
		return geom.Empty(), false
	}
	return h.entries[i].Bounds, true
}

// Entries returns the live entries in recording order.
func (h *HitTestIndex) Entries() []HitTestEntry {
	out := make([]HitTestEntry, 0, len(h.live))
	for _, entry := range h.entries {
		if entry.Entity != nil {
			out = append(out, entry)
		}
	}
	return out
}

// Len is the number of distinct entities recorded.
func (h *HitTestIndex) Len() int { return len(h.live) }

func (h *HitTestIndex) Reset() {
	h.entries = h.entries[:0]
	clear(h.live)
}
