package document

import (
	"errors"
	"sync"

	"github.com/inamate/draftview/internal/geom"
)

// ErrUnknownBlock is returned when an Insert names a block the document lacks.
var ErrUnknownBlock = errors.New("unknown block")

// Space selects one of the two top-level entity lists.
type Space string

const (
	ModelSpace Space = "model"
	PaperSpace Space = "paper"
)

// Document is a loaded CAD drawing. It is treated as immutable once published:
// hosts replace the whole value instead of editing it while a render is running.
type Document struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Units      string            `json:"units,omitempty"`
	Layers     map[string]*Layer `json:"layers"`
	Blocks     map[string]*Block `json:"blocks"`
	ModelSpace EntityList        `json:"modelSpace"`
	PaperSpace EntityList        `json:"paperSpace,omitempty"`

	mu    sync.Mutex
	index map[string]Entity
}

// Layer is a named visibility and colour grouping.
type Layer struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Frozen  bool   `json:"frozen,omitempty"`
	Color   string `json:"color,omitempty"`
}

// Block is a named, reusable list of entities placed by Inserts.
type Block struct {
	Name     string     `json:"name"`
	Base     geom.Point `json:"base"`
	Entities EntityList `json:"entities"`
}

// New returns an empty document with the default layer.
func New(id, name string) *Document {
	return &Document{
		ID:   id,
		Name: name,
		Layers: map[string]*Layer{
			DefaultLayer: {Name: DefaultLayer, Visible: true, Color: "#ffffff"},
		},
		Blocks: map[string]*Block{},
	}
}

// Entities returns the ordered entity list of a space. Anything other than
// PaperSpace selects model space.
func (d *Document) Entities(space Space) []Entity {
	if space == PaperSpace {
		return d.PaperSpace
	}
	return d.ModelSpace
}

// Block looks up a block by name.
func (d *Document) Block(name string) (*Block, error) {
	b, ok := d.Blocks[name]
	if !ok || b == nil {
		return nil, ErrUnknownBlock
	}
	return b, nil
}

// Layer looks up a layer by name.
func (d *Document) Layer(name string) (*Layer, bool) {
	l, ok := d.Layers[name]
	return l, ok && l != nil
}

// Lookup finds any entity by ID, including entities inside blocks.
// The index is built on first use and is safe for concurrent readers.
func (d *Document) Lookup(id string) (Entity, bool) {
	if id == "" {
		return nil, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.index == nil {
		d.reindex()
	}
	e, ok := d.index[id]
	return e, ok
}

func (d *Document) reindex() {
	d.index = make(map[string]Entity)
	add := func(list []Entity) {
		for _, e := range list {
			if e == nil {
				continue
			}
			if id := EntityID(e); id != "" {
				if _, dup := d.index[id]; !dup {
					d.index[id] = e
				}
			}
		}
	}
	add(d.ModelSpace)
	add(d.PaperSpace)
	for _, b := range d.Blocks {
		if b != nil {
			add(b.Entities)
		}
	}
}

func (d *Document) invalidate() {
	d.mu.Lock()
	d.index = nil
	d.mu.Unlock()
}

// Add appends entities to model space.
func (d *Document) Add(entities ...Entity) {
	d.ModelSpace = append(d.ModelSpace, entities...)
	d.invalidate()
}

// AddLayer registers a layer, replacing any layer with the same name.
func (d *Document) AddLayer(l *Layer) {
	if d.Layers == nil {
		d.Layers = map[string]*Layer{}
	}
	d.Layers[l.Name] = l
}

// AddBlock registers a block, replacing any block with the same name.
func (d *Document) AddBlock(b *Block) {
	if d.Blocks == nil {
		d.Blocks = map[string]*Block{}
	}
	d.Blocks[b.Name] = b
	d.invalidate()
}

// Stats counts entities per kind across all spaces and blocks.
func (d *Document) Stats() map[Kind]int {
	counts := make(map[Kind]int)
	count := func(list []Entity) {
		for _, e := range list {
			if e != nil {
				counts[e.Kind()]++
			}
		}
	}
	count(d.ModelSpace)
	count(d.PaperSpace)
	for _, b := range d.Blocks {
		if b != nil {
			count(b.Entities)
		}
	}
	return counts
}

// EntityID returns the ID of e, or "" for nil and typed-nil entities.
func EntityID(e Entity) (id string) {
	defer func() { _ = recover() }()
	return e.Head().ID
}
