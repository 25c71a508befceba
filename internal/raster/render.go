package raster

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

// Options controls a one-shot render of a document to an image.
type Options struct {
	Width      int
	Height     int
	Background string
	Space      document.Space
	// HideLayers are switched off on top of the document's own visibility.
	HideLayers []string
	SelectID   string
	LOD        bool
	Font       *text.FontSource
	Engine     engine.Options
}

// Result is what a render produced besides the pixels.
type Result struct {
	Stats  engine.RenderStats
	Bounds geom.BoundingBox
	Zoom   float64
}

// SetLogger routes the rasterizer's own diagnostics to l.
func SetLogger(l *slog.Logger) {
	gg.SetLogger(l)
}

// Render draws doc fitted into a fresh surface. The caller owns the surface.
func Render(doc *document.Document, opts Options) (*Surface, Result, error) {
	if doc == nil {
		return nil, Result{}, engine.ErrNilDocument
	}
	surface, err := NewSurface(opts.Width, opts.Height, opts.Background, opts.Font)
	if err != nil {
		return nil, Result{}, err
	}

	eng := engine.NewEngine(opts.Engine)
	if opts.Space != "" {
		eng.SetSpace(opts.Space)
	}
	if err := eng.LoadDocument(doc); err != nil {
		surface.Close()
		return nil, Result{}, fmt.Errorf("load document: %w", err)
	}
	for _, name := range opts.HideLayers {
		eng.SetLayerVisible(name, false)
	}
	eng.SetLevelOfDetailEnabled(opts.LOD)
	if opts.SelectID != "" && !eng.SelectByID(opts.SelectID) {
		eng.Logger().Warn("selection not found", "entity", opts.SelectID)
	}
	eng.SetViewportSize(geom.Size{Width: float64(opts.Width), Height: float64(opts.Height)})

	stats, err := eng.Render(surface)
	if err != nil {
		surface.Close()
		return nil, Result{}, fmt.Errorf("render: %w", err)
	}
	return surface, Result{Stats: stats, Bounds: eng.Bounds(), Zoom: eng.Viewport().Scale()}, nil
}

// RenderPNG renders doc and writes the PNG encoding to w.
func RenderPNG(w io.Writer, doc *document.Document, opts Options) (Result, error) {
	surface, res, err := Render(doc, opts)
	if err != nil {
		return res, err
	}
	defer surface.Close()
	if err := surface.EncodePNG(w); err != nil {
		return res, fmt.Errorf("encode png: %w", err)
	}
	return res, nil
}

// PNG is RenderPNG into a byte slice.
func PNG(doc *document.Document, opts Options) ([]byte, Result, error) {
	var buf bytes.Buffer
	res, err := RenderPNG(&buf, doc, opts)
	if err != nil {
		return nil, res, err
	}
	return buf.Bytes(), res, nil
}
