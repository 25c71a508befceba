package geom

import "math"

// Matrix2D is an affine transform stored column-major as [a b c d e f]:
//
//	x' = a*x + c*y + e
//	y' = b*x + d*y + f
//
// The zero value is not the identity; use Identity.
type Matrix2D [6]float64

func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Rotate turns counter-clockwise by the angle in radians (in a Y-up frame).
func Rotate(radians float64) Matrix2D {
	sin, cos := math.Sincos(radians)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// Multiply returns m·n: n is applied first, then m.
func (m Matrix2D) Multiply(n Matrix2D) Matrix2D {
	var out Matrix2D
	out[0] = m[0]*n[0] + m[2]*n[1]
	out[1] = m[1]*n[0] + m[3]*n[1]
	out[2] = m[0]*n[2] + m[2]*n[3]
	out[3] = m[1]*n[2] + m[3]*n[3]
	out[4] = m[0]*n[4] + m[2]*n[5] + m[4]
	out[5] = m[1]*n[4] + m[3]*n[5] + m[5]
	return out
}

// Apply maps a point through the matrix.
func (m Matrix2D) Apply(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// ApplyVector maps a displacement through the linear part only.
func (m Matrix2D) ApplyVector(v Point) Point {
	return Point{
		X: m[0]*v.X + m[2]*v.Y,
		Y: m[1]*v.X + m[3]*v.Y,
	}
}

func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// ScaleFactor is the geometric mean of the axis scales, sqrt(|det|).
// Used to size text and markers that do not distort with the transform.
func (m Matrix2D) ScaleFactor() float64 {
	return math.Sqrt(math.Abs(m.Determinant()))
}

// Invert reports false for singular or non-finite matrices.
func (m Matrix2D) Invert() (Matrix2D, bool) {
	det := m.Determinant()
	if det == 0 || !IsFinite(det) {
		return Identity(), false
	}
	a, b, c, d, e, f := m[0]/det, m[1]/det, m[2]/det, m[3]/det, m[4], m[5]
	return Matrix2D{d, -b, -c, a, c*f - d*e, b*e - a*f}, true
}

// Placement composes Translate(pos) * Rotate(r) * Scale(sx, sy) * Translate(-base).
// This is the transform of a block instance inserted at pos.
func Placement(pos Point, sx, sy, radians float64, base Point) Matrix2D {
	return Translate(pos.X, pos.Y).
		Multiply(Rotate(radians)).
		Multiply(Scale(sx, sy)).
		Multiply(Translate(-base.X, -base.Y))
}

// ToSlice is the JSON form used by draw commands.
func (m Matrix2D) ToSlice() []float64 {
	return m[:]
}

// IsIdentity compares against the identity with a small tolerance.
func (m Matrix2D) IsIdentity() bool {
	id := Identity()
	for i := range m {
		if math.Abs(m[i]-id[i]) > 1e-10 {
			return false
		}
	}
	return true
}
