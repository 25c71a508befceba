package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/inamate/draftview/internal/engine"
)

// Profile holds the render tunables shared by the server and the CLI.
//
//	background = "#1e1e1e"
//	stroke = "#ffffff"
//	highlight = "#00a8ff"
//	highlight_width = 3.0
//	lod_threshold = 0.5
//	ellipse_segments = 64
//	point_radius = 2.0
//	max_entities = 250000
//
//	[viewport]
//	zoom_step = 1.1
//	zoom_min = 0.1
//	zoom_max = 10.0
//	fit_padding = 0.9
type Profile struct {
	Background      string                `toml:"background"`
	Stroke          string                `toml:"stroke"`
	StrokeWidth     float64               `toml:"stroke_width"`
	Highlight       string                `toml:"highlight"`
	HighlightWidth  float64               `toml:"highlight_width"`
	LODThreshold    float64               `toml:"lod_threshold"`
	EllipseSegments int                   `toml:"ellipse_segments"`
	PointRadius     float64               `toml:"point_radius"`
	MaxEntities     int                   `toml:"max_entities"`
	Viewport        engine.ViewportConfig `toml:"viewport"`
}

// DefaultProfile returns the built-in tunables.
func DefaultProfile() Profile {
	return Profile{
		Background:      "#1e1e1e",
		Stroke:          engine.DefaultStyle.Stroke,
		StrokeWidth:     engine.DefaultStyle.Width,
		Highlight:       engine.DefaultHighlight.Stroke,
		HighlightWidth:  engine.DefaultHighlight.Width,
		LODThreshold:    engine.DefaultLODThreshold,
		EllipseSegments: engine.DefaultEllipseSegments,
		PointRadius:     engine.DefaultPointRadius,
		MaxEntities:     engine.DefaultMaxEntities,
		Viewport:        engine.DefaultViewportConfig(),
	}
}

// LoadProfile reads a TOML profile over the defaults. An empty path returns the
// defaults unchanged.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes TOML over the defaults and rejects unknown keys.
func ParseProfile(data []byte) (Profile, error) {
	p := DefaultProfile()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return p, fmt.Errorf("profile: %s", strict.String())
		}
		return p, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func (p Profile) Validate() error {
	for name, c := range map[string]string{"background": p.Background, "stroke": p.Stroke, "highlight": p.Highlight} {
		if c != "" && !isHexColor(c) {
			return fmt.Errorf("profile: %s %q is not a hex colour", name, c)
		}
	}
	if p.LODThreshold < 0 {
		return fmt.Errorf("profile: lod_threshold must not be negative")
	}
	if p.Viewport.ZoomMin > 0 && p.Viewport.ZoomMax > 0 && p.Viewport.ZoomMin > p.Viewport.ZoomMax {
		return fmt.Errorf("profile: zoom_min %g exceeds zoom_max %g", p.Viewport.ZoomMin, p.Viewport.ZoomMax)
	}
	return nil
}

// Encode writes the profile as TOML.
func (p Profile) Encode() ([]byte, error) {
	return toml.Marshal(p)
}

// EngineOptions maps the profile onto engine options.
func (p Profile) EngineOptions(logger *slog.Logger) engine.Options {
	return engine.Options{
		Style:           engine.Style{Stroke: p.Stroke, Width: p.StrokeWidth},
		Highlight:       engine.Style{Stroke: p.Highlight, Width: p.HighlightWidth},
		LODThreshold:    p.LODThreshold,
		Viewport:        p.Viewport,
		EllipseSegments: p.EllipseSegments,
		PointRadius:     p.PointRadius,
		MaxEntities:     p.MaxEntities,
		Logger:          logger,
	}
}

func isHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	s = s[1:]
	if len(s) != 3 && len(s) != 6 && len(s) != 8 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
