package document

import (
	"errors"
	"fmt"
)

// ErrTooComplex is returned when a document expands to more entities than a
// caller is willing to render.
var ErrTooComplex = errors.New("document expands to too many entities")

// ExpandedCount counts the entities a render of space visits, following every
// Insert into its block. A block already on the current Insert path is not
// entered again, and unknown blocks count only their Insert. Counting stops as
// soon as the total passes limit, in which case ok is false. A limit <= 0
// counts everything.
func (d *Document) ExpandedCount(space Space, limit int) (n int, ok bool) {
	x := expansion{doc: d, limit: limit, path: make(map[string]bool)}
	x.walk(d.Entities(space))
	return x.n, !x.over
}

// CheckExpansion returns ErrTooComplex when either space expands to more than
// limit entities.
func (d *Document) CheckExpansion(limit int) error {
	if limit <= 0 {
		return nil
	}
	for _, space := range []Space{ModelSpace, PaperSpace} {
		if _, ok := d.ExpandedCount(space, limit); !ok {
			return fmt.Errorf("%w: %s space exceeds %d", ErrTooComplex, space, limit)
		}
	}
	return nil
}

type expansion struct {
	doc   *Document
	limit int
	path  map[string]bool
	n     int
	over  bool
}

func (x *expansion) walk(list []Entity) {
	for _, e := range list {
		if x.over {
			return
		}
		x.n++
		if x.limit > 0 && x.n > x.limit {
			x.over = true
			return
		}
		ins, ok := e.(*Insert)
		if !ok || ins == nil {
			continue
		}
		b, err := x.doc.Block(ins.Block)
		if err != nil || x.path[b.Name] {
			continue
		}
		x.path[b.Name] = true
		x.walk(b.Entities)
		delete(x.path, b.Name)
	}
}
