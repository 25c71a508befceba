// Package termview renders documents into a terminal and drives the viewport
// from keyboard and mouse events.
package termview

import (
	"math"
	"slices"

	"github.com/gdamore/tcell/v2"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

const (
	upperHalf = '▀'
	lowerHalf = '▄'
	fullBlock = '█'
)

type textRun struct {
	col, row int
	text     string
	color    tcell.Color
}

// Surface rasterises into a pixel grid two pixels tall per terminal cell, so
// pixels come out roughly square. Flush copies it to a screen.
type Surface struct {
	cols, rows int
	width      int // pixels
	height     int // pixels
	pix        []tcell.Color
	transform  geom.Matrix2D
	texts      []textRun
	colors     map[string]tcell.Color
}

// NewSurface creates a surface covering cols x rows terminal cells.
func NewSurface(cols, rows int) *Surface {
	s := &Surface{colors: make(map[string]tcell.Color)}
	s.Resize(cols, rows)
	return s
}

// Resize changes the cell size and clears the surface.
func (s *Surface) Resize(cols, rows int) {
	cols, rows = max(cols, 0), max(rows, 0)
	s.cols, s.rows = cols, rows
	s.width, s.height = cols, rows*2
	s.pix = make([]tcell.Color, s.width*s.height)
	s.Clear()
}

// PixelSize is the viewport size the engine should render for.
func (s *Surface) PixelSize() geom.Size {
	return geom.Size{Width: float64(s.width), Height: float64(s.height)}
}

func (s *Surface) Clear() {
	for i := range s.pix {
		s.pix[i] = tcell.ColorDefault
	}
	s.texts = s.texts[:0]
	s.transform = geom.Identity()
}

// At returns the colour of a pixel, or ColorDefault where nothing was drawn.
func (s *Surface) At(x, y int) tcell.Color {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return tcell.ColorDefault
	}
	return s.pix[y*s.width+x]
}

func (s *Surface) SetTransform(m geom.Matrix2D) { s.transform = m }

func (s *Surface) BeginEntity(document.Entity) {}

func (s *Surface) StrokePath(p *engine.Path, style engine.Style) error {
	c := s.color(style.Stroke)
	for _, sub := range p.Flatten(s.transform) {
		var d dasher
		if len(style.Dash) > 0 {
			d = dasher{pattern: style.Dash}
		}
		for i := 1; i < len(sub); i++ {
			s.line(sub[i-1], sub[i], c, &d)
		}
		if len(sub) == 1 {
			s.plot(int(math.Floor(sub[0].X)), int(math.Floor(sub[0].Y)), c)
		}
	}
	return nil
}

// FillPath fills with the even-odd rule, sampling pixel centres.
func (s *Surface) FillPath(p *engine.Path, style engine.Style) error {
	c := s.color(style.Fill)
	polys := p.Flatten(s.transform)
	box := geom.Empty()
	for _, poly := range polys {
		for _, pt := range poly {
			box = box.Extend(pt)
		}
	}
	if box.IsEmpty() {
		return nil
	}
	y0 := max(int(math.Floor(box.Min.Y)), 0)
	y1 := min(int(math.Ceil(box.Max.Y)), s.height-1)
	filled := false
	for y := y0; y <= y1; y++ {
		cy := float64(y) + 0.5
		var xs []float64
		for _, poly := range polys {
			for i := 0; i < len(poly); i++ {
				a, b := poly[i], poly[(i+1)%len(poly)]
				if (a.Y <= cy) != (b.Y <= cy) {
					xs = append(xs, a.X+(cy-a.Y)*(b.X-a.X)/(b.Y-a.Y))
				}
			}
		}
		slices.Sort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(math.Ceil(xs[i] - 0.5)); float64(x)+0.5 <= xs[i+1]; x++ {
				s.plot(x, y, c)
				filled = true
			}
		}
	}
	// Shapes smaller than a pixel still leave a mark.
	if !filled {
		ctr := box.Center()
		s.plot(int(math.Floor(ctr.X)), int(math.Floor(ctr.Y)), c)
	}
	return nil
}

// DrawText places text in the cell containing the anchor. Terminal text cannot
// scale or rotate, so labels under one cell tall are dropped.
func (s *Surface) DrawText(str string, at geom.Point, size, _ float64, style engine.Style) error {
	if str == "" || size < 2 {
		return nil
	}
	pt := s.transform.Apply(at)
	if !pt.IsFinite() {
		return nil
	}
	s.texts = append(s.texts, textRun{
		col:   int(math.Floor(pt.X)),
		row:   int(math.Floor(pt.Y)) / 2,
		text:  str,
		color: s.color(style.Stroke),
	})
	return nil
}

// Flush writes the surface into the top-left of screen.
func (s *Surface) Flush(screen tcell.Screen, base tcell.Style) {
	for row := 0; row < s.rows; row++ {
		for col := 0; col < s.cols; col++ {
			top := s.pix[(row*2)*s.width+col]
			bottom := s.pix[(row*2+1)*s.width+col]
			r, st := ' ', base
			switch {
			case top != tcell.ColorDefault && top == bottom:
				r, st = fullBlock, base.Foreground(top)
			case top != tcell.ColorDefault && bottom != tcell.ColorDefault:
				r, st = upperHalf, base.Foreground(top).Background(bottom)
			case top != tcell.ColorDefault:
				r, st = upperHalf, base.Foreground(top)
			case bottom != tcell.ColorDefault:
				r, st = lowerHalf, base.Foreground(bottom)
			}
			screen.SetContent(col, row, r, nil, st)
		}
	}
	for _, t := range s.texts {
		if t.row < 0 || t.row >= s.rows {
			continue
		}
		col := t.col
		for _, r := range t.text {
			if col >= s.cols {
				break
			}
			if col >= 0 {
				screen.SetContent(col, t.row, r, nil, base.Foreground(t.color))
			}
			col++
		}
	}
}

func (s *Surface) color(hex string) tcell.Color {
	if hex == "" {
		hex = engine.DefaultStyle.Stroke
	}
	c, ok := s.colors[hex]
	if !ok {
		c = tcell.GetColor(hex)
		if c == tcell.ColorDefault {
			c = tcell.ColorWhite
		}
		s.colors[hex] = c
	}
	return c
}

func (s *Surface) plot(x, y int, c tcell.Color) {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return
	}
	s.pix[y*s.width+x] = c
}

// line draws a clipped segment with Bresenham's algorithm.
func (s *Surface) line(a, b geom.Point, c tcell.Color, d *dasher) {
	if !a.IsFinite() || !b.IsFinite() {
		return
	}
	a, b, ok := clip(a, b, float64(s.width), float64(s.height))
	if !ok {
		return
	}

	x0, y0 := int(math.Floor(a.X)), int(math.Floor(a.Y))
	x1, y1 := int(math.Floor(b.X)), int(math.Floor(b.Y))
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if d.on() {
			s.plot(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// dasher walks a dash pattern one pixel at a time. The zero value draws solid.
type dasher struct {
	pattern []float64
	index   int
	left    float64
}

func (d *dasher) on() bool {
	if len(d.pattern) == 0 {
		return true
	}
	if d.left <= 0 {
		d.left = math.Max(d.pattern[d.index%len(d.pattern)], 1)
	}
	draw := d.index%2 == 0
	d.left--
	if d.left <= 0 {
		d.index++
	}
	return draw
}

// clip trims a segment to the pixel grid plus a one pixel margin
// (Liang-Barsky).
func clip(a, b geom.Point, w, h float64) (geom.Point, geom.Point, bool) {
	t0, t1 := 0.0, 1.0
	d := b.Sub(a)
	edges := [4][2]float64{
		{-d.X, a.X + 1},
		{d.X, w + 1 - a.X},
		{-d.Y, a.Y + 1},
		{d.Y, h + 1 - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return a, b, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return a, b, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return a.Add(d.Mul(t0)), a.Add(d.Mul(t1)), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
