package document

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/inamate/draftview/internal/geom"
)

// EntityList is an ordered entity sequence. On the wire every entity is an
// envelope {id, type, layer, color, lineWeight, data} with the geometry in data.
type EntityList []Entity

type envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Layer      string          `json:"layer,omitempty"`
	Color      string          `json:"color,omitempty"`
	LineWeight LineWeight      `json:"lineWeight,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func newEntity(kind Kind) Entity {
	switch kind {
	case KindLine:
		return &Line{}
	case KindArc:
		return &Arc{}
	case KindCircle:
		return &Circle{}
	case KindEllipse:
		return &Ellipse{}
	case KindPolyline:
		return &Polyline{}
	case KindText:
		return &Text{}
	case KindPoint:
		return &Point{}
	case KindInsert:
		return &Insert{}
	case KindHatch:
		return &Hatch{}
	case KindDimension:
		return &Dimension{}
	default:
		return nil
	}
}

// MarshalEntity encodes one entity as an envelope.
func MarshalEntity(e Entity) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("marshal entity: nil entity")
	}
	h := e.Head()
	env := envelope{
		ID:         h.ID,
		Type:       string(e.Kind()),
		Layer:      h.Layer,
		Color:      h.Color,
		LineWeight: h.LineWeight,
	}
	if u, ok := e.(*Unknown); ok {
		if u.TypeName != "" {
			env.Type = u.TypeName
		}
		if len(u.Raw) > 0 {
			env.Data = json.RawMessage(u.Raw)
			return json.Marshal(env)
		}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s %q: %w", e.Kind(), h.ID, err)
	}
	env.Data = data
	return json.Marshal(env)
}

// UnmarshalEntity decodes one envelope. Unrecognised types become *Unknown
// holding the raw data.
func UnmarshalEntity(raw []byte) (Entity, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("unmarshal entity %q: missing type", env.ID)
	}

	e := newEntity(Kind(env.Type))
	if e == nil {
		u := &Unknown{TypeName: env.Type, Raw: []byte(env.Data)}
		if len(env.Data) > 0 {
			var hint struct {
				Extent geom.BoundingBox `json:"extent"`
				Anchor *geom.Point      `json:"anchor"`
			}
			// The hint is optional; payloads of foreign types are kept verbatim either way.
			if json.Unmarshal(env.Data, &hint) == nil {
				u.Extent = hint.Extent
				u.Anchor = hint.Anchor
			}
		}
		e = u
	} else if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, e); err != nil {
			return nil, fmt.Errorf("unmarshal %s %q: %w", env.Type, env.ID, err)
		}
	}

	h := e.Head()
	h.ID = env.ID
	h.Layer = env.Layer
	h.Color = env.Color
	h.LineWeight = env.LineWeight
	return e, nil
}

func (l EntityList) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(l))
	for _, e := range l {
		data, err := MarshalEntity(e)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return json.Marshal(out)
}

func (l *EntityList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	list := make(EntityList, 0, len(raws))
	for i, raw := range raws {
		e, err := UnmarshalEntity(raw)
		if err != nil {
			return fmt.Errorf("entity %d: %w", i, err)
		}
		list = append(list, e)
	}
	*l = list
	return nil
}

// Unmarshal parses a document. Layer and block names default to their map keys
// and the default layer is added when absent. Block references are not resolved.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.normalize()
	return &doc, nil
}

// Decode reads a document from r.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Unmarshal(data)
}

// Marshal encodes a document.
func Marshal(doc *Document) ([]byte, error) {
	return json.Marshal(doc)
}

// Encode writes an indented document to w.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (d *Document) normalize() {
	if d.Layers == nil {
		d.Layers = map[string]*Layer{}
	}
	for name, l := range d.Layers {
		if l == nil {
			delete(d.Layers, name)
			continue
		}
		if l.Name == "" {
			l.Name = name
		}
	}
	if _, ok := d.Layers[DefaultLayer]; !ok {
		d.Layers[DefaultLayer] = &Layer{Name: DefaultLayer, Visible: true}
	}
	if d.Blocks == nil {
		d.Blocks = map[string]*Block{}
	}
	for name, b := range d.Blocks {
		if b == nil {
			delete(d.Blocks, name)
			continue
		}
		if b.Name == "" {
			b.Name = name
		}
	}
}
