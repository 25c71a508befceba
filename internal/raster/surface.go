// Package raster draws render passes into an anti-aliased RGBA image using
// the gg software rasterizer.
package raster

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

// DefaultBackground is the canvas colour behind the drawing.
const DefaultBackground = "#1e1e1e"

// minTextPixels is the size below which text is not drawn at all.
const minTextPixels = 1.0

var (
	defaultFontOnce sync.Once
	defaultFont     *text.FontSource
	defaultFontErr  error
)

// DefaultFont returns the embedded Go Regular font source.
func DefaultFont() (*text.FontSource, error) {
	defaultFontOnce.Do(func() {
		defaultFont, defaultFontErr = text.NewFontSource(goregular.TTF)
	})
	return defaultFont, defaultFontErr
}

// LoadFont reads a TrueType or OpenType font from disk. An empty path returns
// the embedded default.
func LoadFont(path string) (*text.FontSource, error) {
	if path == "" {
		return DefaultFont()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	font, err := text.NewFontSource(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return font, nil
}

// Surface implements engine.Surface on top of a gg.Context. Paths are flattened
// into device space before they reach the context, so the context matrix is
// never touched.
type Surface struct {
	ctx       *gg.Context
	transform geom.Matrix2D
	font      *text.FontSource
	faces     map[int]text.Face

	strokes int
	fills   int
	texts   int
}

// NewSurface creates a width x height surface cleared to background.
// A nil font selects the embedded default.
func NewSurface(width, height int, background string, font *text.FontSource) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	if font == nil {
		var err error
		if font, err = DefaultFont(); err != nil {
			return nil, fmt.Errorf("load default font: %w", err)
		}
	}
	if background == "" {
		background = DefaultBackground
	}

	ctx := gg.NewContext(width, height)
	ctx.ClearWithColor(gg.Hex(background))
	ctx.SetLineCap(gg.LineCapRound)
	ctx.SetLineJoin(gg.LineJoinRound)

	return &Surface{
		ctx:       ctx,
		transform: geom.Identity(),
		font:      font,
		faces:     make(map[int]text.Face),
	}, nil
}

func (s *Surface) SetTransform(m geom.Matrix2D) { s.transform = m }

func (s *Surface) BeginEntity(document.Entity) {}

func (s *Surface) StrokePath(p *engine.Path, style engine.Style) error {
	if !s.tracePath(p) {
		return nil
	}
	s.ctx.SetHexColor(style.Stroke)
	s.ctx.SetLineWidth(style.Width)
	if len(style.Dash) > 0 {
		s.ctx.SetDash(style.Dash...)
	} else {
		s.ctx.ClearDash()
	}
	s.strokes++
	return s.ctx.Stroke()
}

func (s *Surface) FillPath(p *engine.Path, style engine.Style) error {
	if !s.tracePath(p) {
		return nil
	}
	s.ctx.SetHexColor(style.Fill)
	s.fills++
	return s.ctx.Fill()
}

// DrawText draws s with its baseline at the device position of at. The font
// renderer has no transform, so rotation is not applied.
func (s *Surface) DrawText(str string, at geom.Point, size, _ float64, style engine.Style) error {
	if str == "" || size < minTextPixels || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil
	}
	pt := s.transform.Apply(at)
	if !pt.IsFinite() {
		return fmt.Errorf("text anchor not finite: %v", pt)
	}
	s.ctx.SetFont(s.face(size))
	s.ctx.SetHexColor(style.Stroke)
	s.ctx.DrawString(str, pt.X, pt.Y)
	s.texts++
	return nil
}

// face caches faces by whole pixel size.
func (s *Surface) face(size float64) text.Face {
	key := int(math.Round(size))
	if key < 1 {
		key = 1
	}
	f, ok := s.faces[key]
	if !ok {
		f = s.font.Face(float64(key))
		s.faces[key] = f
	}
	return f
}

func (s *Surface) tracePath(p *engine.Path) bool {
	if p == nil || p.IsEmpty() {
		return false
	}
	traced := false
	for _, sub := range p.Flatten(s.transform) {
		if len(sub) < 2 {
			continue
		}
		for i, pt := range sub {
			if !pt.IsFinite() {
				s.ctx.ClearPath()
				return false
			}
			if i == 0 {
				s.ctx.MoveTo(pt.X, pt.Y)
			} else {
				s.ctx.LineTo(pt.X, pt.Y)
			}
		}
		traced = true
	}
	return traced
}

// Calls returns the number of stroke, fill and text calls that reached the context.
func (s *Surface) Calls() (strokes, fills, texts int) {
	return s.strokes, s.fills, s.texts
}

func (s *Surface) Image() image.Image { return s.ctx.Image() }

func (s *Surface) EncodePNG(w io.Writer) error {
	return s.ctx.EncodePNG(w)
}

func (s *Surface) Close() error { return s.ctx.Close() }
