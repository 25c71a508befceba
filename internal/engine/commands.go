package engine

import (
	"encoding/json"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/geom"
)

// DrawCommand is a single drawing operation for a Canvas2D frontend.
type DrawCommand struct {
	Op          string        `json:"op"`                 // "stroke", "fill", "text"
	EntityID    string        `json:"entityId,omitempty"` // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`
	Path        []PathCommand `json:"path,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	Dash        []float64     `json:"dash,omitempty"`
	Text        string        `json:"text,omitempty"`
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
	FontSize    float64       `json:"fontSize,omitempty"`
	Rotation    float64       `json:"rotation,omitempty"`
}

// Recorder is a Surface that records draw commands instead of drawing.
// Commands come out in painter's order (back to front).
type Recorder struct {
	transform geom.Matrix2D
	entityID  string
	commands  []DrawCommand
}

func NewRecorder() *Recorder {
	return &Recorder{transform: geom.Identity()}
}

func (r *Recorder) SetTransform(m geom.Matrix2D) { r.transform = m }

func (r *Recorder) BeginEntity(e document.Entity) {
	r.entityID = ""
	if e != nil {
		r.entityID = e.Head().ID
	}
}

func (r *Recorder) StrokePath(p *Path, style Style) error {
	if p.IsEmpty() {
		return nil
	}
	r.commands = append(r.commands, DrawCommand{
		Op:          "stroke",
		EntityID:    r.entityID,
		Transform:   r.transform.ToSlice(),
		Path:        p.Canvas(),
		Stroke:      style.Stroke,
		StrokeWidth: style.Width,
		Dash:        style.Dash,
	})
	return nil
}

func (r *Recorder) FillPath(p *Path, style Style) error {
	if p.IsEmpty() {
		return nil
	}
	r.commands = append(r.commands, DrawCommand{
		Op:        "fill",
		EntityID:  r.entityID,
		Transform: r.transform.ToSlice(),
		Path:      p.Canvas(),
		Fill:      style.Fill,
	})
	return nil
}

func (r *Recorder) DrawText(s string, at geom.Point, size, rotation float64, style Style) error {
	r.commands = append(r.commands, DrawCommand{
		Op:        "text",
		EntityID:  r.entityID,
		Transform: r.transform.ToSlice(),
		Text:      s,
		X:         at.X,
		Y:         at.Y,
		FontSize:  size,
		Rotation:  rotation,
		Fill:      style.Stroke,
	})
	return nil
}

// Commands returns everything recorded since the last Reset.
func (r *Recorder) Commands() []DrawCommand { return r.commands }

func (r *Recorder) Reset() {
	r.commands = nil
	r.entityID = ""
	r.transform = geom.Identity()
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
