package engine

import (
	"sort"

	"github.com/inamate/draftview/internal/document"
)

// LayerSet is a set of drawable layer names.
type LayerSet map[string]struct{}

// VisibleLayers returns the layers that are visible and not frozen. The default
// layer is always included.
func VisibleLayers(doc *document.Document) LayerSet {
	set := LayerSet{document.DefaultLayer: {}}
	if doc == nil {
		return set
	}
	for name, l := range doc.Layers {
		if l != nil && l.Visible && !l.Frozen {
			set[name] = struct{}{}
		}
	}
	return set
}

// IsVisible reports whether the entity's layer permits drawing. Entities with no
// layer or on layer "0" are always visible.
func IsVisible(e document.Entity, visible LayerSet) bool {
	h := e.Head()
	if h.OnDefaultLayer() {
		return true
	}
	return visible.Has(h.Layer)
}

func (s LayerSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Set adds or removes a layer. The default layer cannot be removed.
func (s LayerSet) Set(name string, visible bool) {
	if visible {
		s[name] = struct{}{}
		return
	}
	if name == document.DefaultLayer {
		return
	}
	delete(s, name)
}

func (s LayerSet) Clone() LayerSet {
	out := make(LayerSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Names returns the layer names sorted.
func (s LayerSet) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
