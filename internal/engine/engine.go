package engine

import (
	"log/slog"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/geom"
)

// Options tunes an Engine. Zero fields fall back to the package defaults.
type Options struct {
	Style           Style
	Highlight       Style
	LODThreshold    float64
	Viewport        ViewportConfig
	EllipseSegments int
	PointRadius     float64
	// MaxEntities bounds how many entities a document may expand to through
	// block Inserts. Zero means DefaultMaxEntities, negative means no limit.
	MaxEntities int
	Logger      *slog.Logger
	// OnInvalidate is called whenever the view changes and a redraw is due.
	OnInvalidate func()
}

// Engine owns one viewing session of a document: viewport, selection, layer
// overrides and the hit-test index of the last render. It is not safe for
// concurrent use; hosts serialise calls the way a UI thread would.
type Engine struct {
	opts Options

	// Document state
	doc       *document.Document
	space     document.Space
	bounds    geom.BoundingBox
	visible   LayerSet
	overrides map[string]bool

	// View state
	viewport *ViewportController
	lod      LODFilter

	// Selection state (the engine owns this)
	selection document.Entity

	// Hit index of the last render; stale once the view changes.
	hits      *HitTestIndex
	hitsValid bool
	stack     *TransformStack
	stats     RenderStats
}

// DefaultMaxEntities is the expansion budget used when Options leaves it unset.
const DefaultMaxEntities = 250_000

// EntityBudget resolves MaxEntities to a limit for document.CheckExpansion,
// where 0 means unlimited.
func (o Options) EntityBudget() int {
	switch {
	case o.MaxEntities == 0:
		return DefaultMaxEntities
	case o.MaxEntities < 0:
		return 0
	}
	return o.MaxEntities
}

// NewEngine creates an engine with no document loaded.
func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := &Engine{
		opts:      opts,
		space:     document.ModelSpace,
		bounds:    DefaultBounds,
		visible:   LayerSet{document.DefaultLayer: {}},
		overrides: make(map[string]bool),
		lod:       LODFilter{Threshold: opts.LODThreshold},
		hits:      NewHitTestIndex(),
		stack:     NewTransformStack(geom.Identity()),
	}
	e.viewport = NewViewportController(opts.Viewport, e.invalidate)
	return e
}

// --- Commands ---

// LoadDocument replaces the document, recomputes layer visibility and bounds,
// clears the selection and fits the view if the viewport size is known. A
// document that expands past the entity budget is refused with
// document.ErrTooComplex and the previous one stays loaded.
func (e *Engine) LoadDocument(doc *document.Document) error {
	if doc == nil {
		return ErrNilDocument
	}
	if err := doc.CheckExpansion(e.opts.EntityBudget()); err != nil {
		return err
	}
	e.doc = doc
	e.selection = nil
	clear(e.overrides)
	e.recomputeLayers()
	e.bounds = ComputeBounds(doc.Entities(e.space))
	e.hits.Reset()
	e.hitsValid = false
	if size := e.viewport.Size(); !size.IsDegenerate() {
		e.viewport.FitToView(e.bounds, size)
	}
	e.invalidate()
	return nil
}

// LoadDocumentJSON decodes and loads a document.
func (e *Engine) LoadDocumentJSON(data []byte) error {
	doc, err := document.Unmarshal(data)
	if err != nil {
		return err
	}
	return e.LoadDocument(doc)
}

// UpdateDocument swaps in a new snapshot of the same drawing, keeping the view,
// the layer overrides and the selection if its ID still exists.
func (e *Engine) UpdateDocument(doc *document.Document) error {
	if doc == nil {
		return ErrNilDocument
	}
	if err := doc.CheckExpansion(e.opts.EntityBudget()); err != nil {
		return err
	}
	var selectedID string
	if e.selection != nil {
		selectedID = e.selection.Head().ID
	}
	e.doc = doc
	e.recomputeLayers()
	e.bounds = ComputeBounds(doc.Entities(e.space))
	e.selection = nil
	if selectedID != "" {
		e.selection, _ = doc.Lookup(selectedID)
	}
	e.invalidate()
	return nil
}

// SetSpace switches between model and paper space and refits.
func (e *Engine) SetSpace(space document.Space) {
	if space != document.PaperSpace {
		space = document.ModelSpace
	}
	e.space = space
	if e.doc != nil {
		e.bounds = ComputeBounds(e.doc.Entities(space))
		if size := e.viewport.Size(); !size.IsDegenerate() {
			e.viewport.FitToView(e.bounds, size)
		}
	}
	e.invalidate()
}

// SetSelection selects an entity, or clears the selection with nil.
func (e *Engine) SetSelection(entity document.Entity) {
	e.selection = entity
	e.invalidate()
}

// SelectByID selects the entity with the given ID. An empty or unknown ID
// clears the selection and returns false.
func (e *Engine) SelectByID(id string) bool {
	if e.doc == nil {
		e.SetSelection(nil)
		return false
	}
	entity, ok := e.doc.Lookup(id)
	e.SetSelection(entity)
	return ok
}

// SetLayerVisible overrides a layer's visibility. Layer "0" stays visible.
func (e *Engine) SetLayerVisible(name string, visible bool) {
	e.overrides[name] = visible
	e.visible.Set(name, visible)
	e.invalidate()
}

func (e *Engine) recomputeLayers() {
	e.visible = VisibleLayers(e.doc)
	for name, v := range e.overrides {
		e.visible.Set(name, v)
	}
}

func (e *Engine) SetLevelOfDetailEnabled(enabled bool) {
	e.lod.Enabled = enabled
	e.invalidate()
}

// SetViewportSize records the output size; the first time it is known the
// document is fitted.
func (e *Engine) SetViewportSize(size geom.Size) {
	first := e.viewport.Size().IsDegenerate()
	e.viewport.SetSize(size)
	if first && e.doc != nil {
		e.viewport.FitToView(e.bounds, size)
	}
}

// FitToView fits the document bounds into a viewport of the given size.
func (e *Engine) FitToView(size geom.Size) bool {
	return e.viewport.FitToView(e.bounds, size)
}

func (e *Engine) ResetView()             { e.viewport.ResetView() }
func (e *Engine) ZoomBy(factor float64)  { e.viewport.ZoomBy(factor) }
func (e *Engine) PanBy(delta geom.Point) { e.viewport.PanBy(delta) }

func (e *Engine) PointerDown(b Button, p geom.Point) { e.viewport.PointerDown(b, p) }
func (e *Engine) PointerMove(p geom.Point)           { e.viewport.PointerMove(p) }
func (e *Engine) PointerUp()                         { e.viewport.PointerUp() }
func (e *Engine) FocusLost()                         { e.viewport.FocusLost() }

// Wheel zooms by notches keeping the screen point p fixed.
func (e *Engine) Wheel(p geom.Point, notches int) { e.viewport.WheelAt(p, notches) }

// --- Queries ---

// Render draws the current document onto surface and rebuilds the hit index.
func (e *Engine) Render(surface Surface) (RenderStats, error) {
	if e.doc == nil {
		return RenderStats{}, ErrNilDocument
	}
	if surface == nil {
		return RenderStats{}, ErrNilSurface
	}
	e.stack.Reset(e.viewport.ViewTransform())
	rc := &RenderContext{
		Surface:         surface,
		Stack:           e.stack,
		Hits:            e.hits,
		Visible:         e.visible,
		Selection:       e.selection,
		LOD:             e.lod,
		Space:           e.space,
		Style:           e.opts.Style,
		Highlight:       e.opts.Highlight,
		EllipseSegments: e.opts.EllipseSegments,
		PointRadius:     e.opts.PointRadius,
		Logger:          e.opts.Logger,
	}
	stats, err := Render(e.doc, rc)
	if err != nil {
		return stats, err
	}
	e.stats = stats
	e.hitsValid = true
	return stats, nil
}

// RenderCommands renders into a Recorder and returns its draw commands.
func (e *Engine) RenderCommands() ([]DrawCommand, RenderStats, error) {
	rec := NewRecorder()
	stats, err := e.Render(rec)
	if err != nil {
		return nil, stats, err
	}
	return rec.Commands(), stats, nil
}

// RenderJSON renders and serializes the draw commands.
func (e *Engine) RenderJSON() (string, error) {
	cmds, _, err := e.RenderCommands()
	if err != nil {
		return "[]", err
	}
	return DrawCommandsToJSON(cmds)
}

// Pick returns the topmost entity under a screen point. It finds nothing once
// the view has changed since the last render.
func (e *Engine) Pick(p geom.Point) (document.Entity, bool) {
	if !e.hitsValid {
		return nil, false
	}
	return e.hits.Pick(p)
}

// PickID is Pick returning the entity ID, or "".
func (e *Engine) PickID(p geom.Point) string {
	entity, ok := e.Pick(p)
	if !ok {
		return ""
	}
	return entity.Head().ID
}

func (e *Engine) Document() *document.Document  { return e.doc }
func (e *Engine) Selection() document.Entity    { return e.selection }
func (e *Engine) Bounds() geom.BoundingBox      { return e.bounds }
func (e *Engine) Viewport() *ViewportController { return e.viewport }
func (e *Engine) VisibleLayers() LayerSet       { return e.visible.Clone() }
func (e *Engine) LevelOfDetailEnabled() bool    { return e.lod.Enabled }
func (e *Engine) LastStats() RenderStats        { return e.stats }
func (e *Engine) Logger() *slog.Logger          { return e.opts.Logger }
func (e *Engine) Space() document.Space         { return e.space }

// SelectionID returns the selected entity's ID, or "".
func (e *Engine) SelectionID() string {
	if e.selection == nil {
		return ""
	}
	return e.selection.Head().ID
}

// ScreenToDocument maps a screen point into document coordinates.
func (e *Engine) ScreenToDocument(p geom.Point) geom.Point {
	return e.viewport.ScreenToDocument(p)
}

func (e *Engine) invalidate() {
	e.hitsValid = false
	if e.opts.OnInvalidate != nil {
		e.opts.OnInvalidate()
	}
}
