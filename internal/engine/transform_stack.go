package engine

import "github.com/inamate/draftview/internal/geom"

// TransformStack composes nested placement transforms on top of a base (view)
// transform. Current is base·t1·t2·…·tn for pushes t1..tn.
type TransformStack struct {
	base   geom.Matrix2D
	frames []geom.Matrix2D
	pushes int
	pops   int
}

func NewTransformStack(base geom.Matrix2D) *TransformStack {
	return &TransformStack{base: base}
}

// Push composes m onto the current transform.
func (s *TransformStack) Push(m geom.Matrix2D) {
	s.frames = append(s.frames, s.Current().Multiply(m))
	s.pushes++
}

// Pop restores the transform saved by the matching Push. It returns false on
// an empty stack and leaves the stack unchanged.
func (s *TransformStack) Pop() bool {
	if len(s.frames) == 0 {
		return false
	}
	s.frames = s.frames[:len(s.frames)-1]
	s.pops++
	return true
}

// With runs fn with m pushed and pops afterwards, also when fn panics.
func (s *TransformStack) With(m geom.Matrix2D, fn func()) {
	s.Push(m)
	defer s.Pop()
	fn()
}

func (s *TransformStack) Current() geom.Matrix2D {
	if n := len(s.frames); n > 0 {
		return s.frames[n-1]
	}
	return s.base
}

func (s *TransformStack) Depth() int { return len(s.frames) }

// Counts returns the number of pushes and successful pops since the last Reset.
func (s *TransformStack) Counts() (pushes, pops int) { return s.pushes, s.pops }

// Balanced reports whether every push was popped.
func (s *TransformStack) Balanced() bool {
	return s.pushes == s.pops && len(s.frames) == 0
}

// Reset drops all frames and counters and installs a new base.
func (s *TransformStack) Reset(base geom.Matrix2D) {
	s.base = base
	s.frames = s.frames[:0]
	s.pushes, s.pops = 0, 0
}
