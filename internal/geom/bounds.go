package geom

import (
	"encoding/json"
	"math"
)

// BoundingBox is an axis-aligned box. The zero value is the empty box, which
// is the identity for Merge and contains no point.
type BoundingBox struct {
	Min   Point
	Max   Point
	valid bool
}

// Empty returns the empty box.
func Empty() BoundingBox {
	return BoundingBox{}
}

// Box returns the smallest box containing a and b.
func Box(a, b Point) BoundingBox {
	return BoundingBox{
		Min:   Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max:   Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
		valid: true,
	}
}

// BoxOf returns the smallest box containing every point, or Empty for none.
func BoxOf(points ...Point) BoundingBox {
	var b BoundingBox
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// IsEmpty reports whether the box holds no extent at all.
// A degenerate box (a single point) is not empty.
func (b BoundingBox) IsEmpty() bool {
	return !b.valid
}

// Extend returns the box grown to include p.
func (b BoundingBox) Extend(p Point) BoundingBox {
	if !b.valid {
		return BoundingBox{Min: p, Max: p, valid: true}
	}
	return BoundingBox{
		Min:   Point{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y)},
		Max:   Point{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y)},
		valid: true,
	}
}

// Merge returns the component-wise union of two boxes.
func (b BoundingBox) Merge(other BoundingBox) BoundingBox {
	if !other.valid {
		return b
	}
	if !b.valid {
		return other
	}
	return b.Extend(other.Min).Extend(other.Max)
}

// Width returns the horizontal extent (0 for Empty).
func (b BoundingBox) Width() float64 {
	if !b.valid {
		return 0
	}
	return b.Max.X - b.Min.X
}

// Height returns the vertical extent (0 for Empty).
func (b BoundingBox) Height() float64 {
	if !b.valid {
		return 0
	}
	return b.Max.Y - b.Min.Y
}

// MaxExtent returns max(width, height).
func (b BoundingBox) MaxExtent() float64 {
	return math.Max(b.Width(), b.Height())
}

// Center returns the center point of the box.
func (b BoundingBox) Center() Point {
	return Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// Contains checks if a point is inside the box (edges included).
func (b BoundingBox) Contains(p Point) bool {
	return b.valid && p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Corners returns the four corners counter-clockwise from Min.
func (b BoundingBox) Corners() [4]Point {
	return [4]Point{
		b.Min,
		{X: b.Max.X, Y: b.Min.Y},
		b.Max,
		{X: b.Min.X, Y: b.Max.Y},
	}
}

// Transform maps the box through m and returns the axis-aligned box of the
// four transformed corners.
func (b BoundingBox) Transform(m Matrix2D) BoundingBox {
	if !b.valid {
		return b
	}
	var out BoundingBox
	for _, c := range b.Corners() {
		out = out.Extend(m.Apply(c))
	}
	return out
}

type boxJSON struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// MarshalJSON encodes Empty as null.
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	if !b.valid {
		return []byte("null"), nil
	}
	return json.Marshal(boxJSON{Min: b.Min, Max: b.Max})
}

// UnmarshalJSON decodes null as Empty and normalizes min/max.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = BoundingBox{}
		return nil
	}
	var raw boxJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Box(raw.Min, raw.Max)
	return nil
}
