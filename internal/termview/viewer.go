package termview

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

// panStep is how far the arrow keys move the view, in pixels.
const panStep = 4

// Viewer draws an engine into a tcell screen and turns terminal input into
// viewport operations. The bottom row is a status line.
type Viewer struct {
	screen  tcell.Screen
	eng     *engine.Engine
	surface *Surface
	base    tcell.Style
	logger  *slog.Logger

	pressed bool
	press   geom.Point
	moved   bool
	message string
}

// NewViewer wraps an initialised screen. The engine should already hold a
// document; Reload can replace it later.
func NewViewer(screen tcell.Screen, eng *engine.Engine, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = eng.Logger()
	}
	return &Viewer{
		screen:  screen,
		eng:     eng,
		surface: NewSurface(0, 0),
		base:    tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite),
		logger:  logger,
	}
}

// Run processes events until the user quits, the screen is finalised or ctx
// is cancelled.
func (v *Viewer) Run(ctx context.Context) error {
	v.screen.EnableMouse()
	v.screen.EnableFocus()
	v.Resize()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = v.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
		case <-stop:
		}
	}()

	for {
		if err := v.Draw(); err != nil {
			return err
		}
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if !v.HandleEvent(ev) {
			return nil
		}
	}
}

// Reload swaps in a new revision of the document from another goroutine.
func (v *Viewer) Reload(doc *document.Document) error {
	return v.screen.PostEvent(tcell.NewEventInterrupt(doc))
}

// Resize matches the surface and viewport to the screen size.
func (v *Viewer) Resize() {
	cols, rows := v.screen.Size()
	v.surface.Resize(cols, max(rows-1, 0))
	v.eng.SetViewportSize(v.surface.PixelSize())
}

// HandleEvent applies one event and reports whether the viewer keeps running.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
		v.Resize()
	case *tcell.EventKey:
		return v.handleKey(ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	case *tcell.EventFocus:
		if !ev.Focused {
			v.pressed = false
			v.eng.FocusLost()
		}
	case *tcell.EventInterrupt:
		switch data := ev.Data().(type) {
		case error:
			return false
		case *document.Document:
			if err := v.eng.UpdateDocument(data); err != nil {
				v.logger.Error("reload failed", "error", err)
				v.message = "reload failed"
				break
			}
			v.message = "reloaded"
		}
	}
	return true
}

func (v *Viewer) handleKey(ev *tcell.EventKey) bool {
	step := v.eng.Viewport().Config().ZoomStep
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		v.eng.PanBy(geom.Pt(panStep, 0))
	case tcell.KeyRight:
		v.eng.PanBy(geom.Pt(-panStep, 0))
	case tcell.KeyUp:
		v.eng.PanBy(geom.Pt(0, panStep))
	case tcell.KeyDown:
		v.eng.PanBy(geom.Pt(0, -panStep))
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'f':
			v.eng.FitToView(v.surface.PixelSize())
		case 'r':
			v.eng.ResetView()
		case 'l':
			v.eng.SetLevelOfDetailEnabled(!v.eng.LevelOfDetailEnabled())
		case '+', '=':
			v.eng.ZoomBy(step)
		case '-':
			v.eng.ZoomBy(1 / step)
		case 'p':
			if v.eng.Space() == document.PaperSpace {
				v.eng.SetSpace(document.ModelSpace)
			} else {
				v.eng.SetSpace(document.PaperSpace)
			}
		case 'x':
			v.eng.SetSelection(nil)
		}
	}
	return true
}

// handleMouse pans while the primary or middle button is held and selects on
// a click that did not move.
func (v *Viewer) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	p := cellCenter(x, y)
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.WheelUp != 0:
		v.eng.Wheel(p, 1)
		return
	case buttons&tcell.WheelDown != 0:
		v.eng.Wheel(p, -1)
		return
	}

	held := buttons & (tcell.Button1 | tcell.Button3)
	switch {
	case held != 0 && !v.pressed:
		b := engine.ButtonPrimary
		if held&tcell.Button1 == 0 {
			b = engine.ButtonMiddle
		}
		v.pressed, v.press, v.moved = true, p, false
		v.eng.PointerDown(b, p)
	case held != 0:
		if p != v.press {
			v.moved = true
		}
		v.eng.PointerMove(p)
	case v.pressed:
		v.pressed = false
		v.eng.PointerUp()
		if !v.moved {
			v.pick(p)
		}
	}
}

func (v *Viewer) pick(p geom.Point) {
	// Hits from the last frame are stale after any view change.
	if _, ok := v.eng.Pick(p); !ok {
		if err := v.render(); err != nil {
			v.logger.Error("render failed", "error", err)
			return
		}
	}
	entity, ok := v.eng.Pick(p)
	if !ok {
		v.eng.SetSelection(nil)
		v.message = ""
		return
	}
	v.eng.SetSelection(entity)
	h := entity.Head()
	v.message = fmt.Sprintf("%s %s on %s", entity.Kind(), h.ID, layerName(h))
}

// Draw renders a frame and shows it.
func (v *Viewer) Draw() error {
	v.screen.Fill(' ', v.base)
	if err := v.render(); err != nil {
		return err
	}
	v.surface.Flush(v.screen, v.base)
	v.drawStatus()
	v.screen.Show()
	return nil
}

func (v *Viewer) render() error {
	v.surface.Clear()
	if v.eng.Document() == nil || v.surface.PixelSize().IsDegenerate() {
		return nil
	}
	_, err := v.eng.Render(v.surface)
	return err
}

func (v *Viewer) drawStatus() {
	cols, rows := v.screen.Size()
	if rows == 0 {
		return
	}
	line := v.Status()
	style := v.base.Reverse(true)
	col := 0
	for _, r := range line {
		if col >= cols {
			break
		}
		v.screen.SetContent(col, rows-1, r, nil, style)
		col++
	}
	for ; col < cols; col++ {
		v.screen.SetContent(col, rows-1, ' ', nil, style)
	}
}

// Status is the text of the status line.
func (v *Viewer) Status() string {
	if v.eng.Document() == nil {
		return " no document"
	}
	lod := "off"
	if v.eng.LevelOfDetailEnabled() {
		lod = "on"
	}
	stats := v.eng.LastStats()
	s := fmt.Sprintf(" %s  zoom %.2f  lod %s  drawn %d culled %d",
		v.eng.Space(), v.eng.Viewport().State().Zoom, lod, stats.Drawn, stats.Culled)
	if v.message != "" {
		s += "  | " + v.message
	}
	return s
}

// cellCenter maps a cell to the pixel at its centre.
func cellCenter(x, y int) geom.Point {
	return geom.Pt(float64(x)+0.5, float64(y*2)+1)
}

func layerName(h *document.Header) string {
	if h.OnDefaultLayer() {
		return document.DefaultLayer
	}
	return h.Layer
}
