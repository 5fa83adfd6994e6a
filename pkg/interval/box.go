package interval

import (
	"fmt"
	"math"
	"strings"
)

// Box is an axis-aligned hyper-rectangle: an ordered tuple of intervals, one
// per variable. The dimension is fixed at construction.
//
// Emptiness is canonical: a Box is empty iff any component is empty, and
// every mutator that produces an empty component empties the whole box.
//
// A Box holds a slice, so copies made by assignment share components. Use
// Clone for an independent copy.
type Box struct {
	itv []Interval
}

// NewBox returns the n-dimensional box (-∞, +∞)ⁿ.
func NewBox(n int) Box {
	b := Box{itv: make([]Interval, n)}
	for i := range b.itv {
		b.itv[i] = Entire()
	}
	return b
}

// EmptyBox returns an empty box of dimension n.
func EmptyBox(n int) Box {
	b := Box{itv: make([]Interval, n)}
	b.SetEmpty()
	return b
}

// BoxOf builds a box from its components.
func BoxOf(components ...Interval) Box {
	b := Box{itv: make([]Interval, len(components))}
	copy(b.itv, components)
	b.canonicalize()
	return b
}

// BoxFromBounds builds a box from parallel slices of bounds.
func BoxFromBounds(lo, hi []float64) (Box, error) {
	if len(lo) != len(hi) {
		return Box{}, fmt.Errorf("interval: %d lower bounds for %d upper bounds", len(lo), len(hi))
	}
	b := Box{itv: make([]Interval, len(lo))}
	for i := range lo {
		b.itv[i] = New(lo[i], hi[i])
	}
	b.canonicalize()
	return b, nil
}

// PointBox returns the degenerate box at x.
func PointBox(x []float64) Box {
	b := Box{itv: make([]Interval, len(x))}
	for i, v := range x {
		b.itv[i] = Point(v)
	}
	b.canonicalize()
	return b
}

func (b *Box) canonicalize() {
	for _, x := range b.itv {
		if x.IsEmpty() {
			b.SetEmpty()
			return
		}
	}
}

// Size returns the dimension.
func (b Box) Size() int { return len(b.itv) }

// At returns the i-th component.
func (b Box) At(i int) Interval { return b.itv[i] }

// Set replaces the i-th component. Setting an empty interval empties b.
func (b *Box) Set(i int, x Interval) {
	if x.IsEmpty() {
		b.SetEmpty()
		return
	}
	b.itv[i] = x
}

// SetEmpty empties every component.
func (b *Box) SetEmpty() {
	for i := range b.itv {
		b.itv[i] = Empty()
	}
}

// CopyFrom overwrites b with the components of o (same dimension).
func (b *Box) CopyFrom(o Box) {
	copy(b.itv, o.itv)
}

// Components returns a copy of the components.
func (b Box) Components() []Interval {
	out := make([]Interval, len(b.itv))
	copy(out, b.itv)
	return out
}

// IsEmpty reports whether b is empty.
func (b Box) IsEmpty() bool {
	return len(b.itv) > 0 && b.itv[0].IsEmpty()
}

// IsUnbounded reports whether some component is unbounded.
func (b Box) IsUnbounded() bool {
	for _, x := range b.itv {
		if x.IsUnbounded() {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (b Box) Clone() Box {
	c := Box{itv: make([]Interval, len(b.itv))}
	copy(c.itv, b.itv)
	return c
}

// Equal reports component-wise set equality.
func (b Box) Equal(o Box) bool {
	if len(b.itv) != len(o.itv) {
		return false
	}
	if b.IsEmpty() || o.IsEmpty() {
		return b.IsEmpty() && o.IsEmpty()
	}
	for i := range b.itv {
		if !b.itv[i].Equal(o.itv[i]) {
			return false
		}
	}
	return true
}

// Lo returns the lower corner.
func (b Box) Lo() []float64 {
	out := make([]float64, len(b.itv))
	for i, x := range b.itv {
		out[i] = x.Lo()
	}
	return out
}

// Hi returns the upper corner.
func (b Box) Hi() []float64 {
	out := make([]float64, len(b.itv))
	for i, x := range b.itv {
		out[i] = x.Hi()
	}
	return out
}

// Mid returns a point close to the center of b.
func (b Box) Mid() []float64 {
	out := make([]float64, len(b.itv))
	for i, x := range b.itv {
		out[i] = x.Mid()
	}
	return out
}

// Diam returns the diameter of each component.
func (b Box) Diam() []float64 {
	out := make([]float64, len(b.itv))
	for i, x := range b.itv {
		out[i] = x.Diam()
	}
	return out
}

// MaxDiam returns the largest component diameter.
func (b Box) MaxDiam() float64 {
	m := 0.0
	for _, x := range b.itv {
		m = math.Max(m, x.Diam())
	}
	return m
}

// MinDiam returns the smallest component diameter.
func (b Box) MinDiam() float64 {
	if len(b.itv) == 0 {
		return 0
	}
	m := posInf
	for _, x := range b.itv {
		m = math.Min(m, x.Diam())
	}
	return m
}

// ArgMaxDiam returns the index of the widest component (the first one on
// ties), or -1 for a zero-dimensional box.
func (b Box) ArgMaxDiam() int {
	best, bestDiam := -1, -1.0
	for i, x := range b.itv {
		if d := x.Diam(); d > bestDiam {
			best, bestDiam = i, d
		}
	}
	return best
}

// Volume returns the product of diameters (0 when empty).
func (b Box) Volume() float64 {
	if b.IsEmpty() {
		return 0
	}
	v := 1.0
	for _, x := range b.itv {
		v *= x.Diam()
	}
	return v
}

// Contains reports whether the point x lies in b.
func (b Box) Contains(x []float64) bool {
	if len(x) != len(b.itv) || b.IsEmpty() {
		return false
	}
	for i, v := range x {
		if !b.itv[i].Contains(v) {
			return false
		}
	}
	return true
}

// Subset reports whether b ⊆ o.
func (b Box) Subset(o Box) bool {
	if b.IsEmpty() {
		return true
	}
	if len(b.itv) != len(o.itv) || o.IsEmpty() {
		return false
	}
	for i := range b.itv {
		if !b.itv[i].Subset(o.itv[i]) {
			return false
		}
	}
	return true
}

// InteriorSubset reports whether b lies in the interior of o.
func (b Box) InteriorSubset(o Box) bool {
	if b.IsEmpty() {
		return true
	}
	if len(b.itv) != len(o.itv) || o.IsEmpty() {
		return false
	}
	for i := range b.itv {
		if !b.itv[i].InteriorSubset(o.itv[i]) {
			return false
		}
	}
	return true
}

// Overlaps reports whether b ∩ o is non-empty.
func (b Box) Overlaps(o Box) bool {
	return !b.Intersect(o).IsEmpty()
}

// Intersect returns b ∩ o as a new box.
func (b Box) Intersect(o Box) Box {
	c := b.Clone()
	c.IntersectWith(o)
	return c
}

// IntersectWith narrows b to b ∩ o in place and reports whether the result
// is non-empty.
func (b *Box) IntersectWith(o Box) bool {
	if b.IsEmpty() {
		return false
	}
	if o.IsEmpty() {
		b.SetEmpty()
		return false
	}
	for i := range b.itv {
		x := b.itv[i].Intersect(o.itv[i])
		if x.IsEmpty() {
			b.SetEmpty()
			return false
		}
		b.itv[i] = x
	}
	return true
}

// Hull returns the smallest box containing b ∪ o.
func (b Box) Hull(o Box) Box {
	if b.IsEmpty() {
		return o.Clone()
	}
	if o.IsEmpty() {
		return b.Clone()
	}
	c := b.Clone()
	for i := range c.itv {
		c.itv[i] = c.itv[i].Hull(o.itv[i])
	}
	return c
}

// Diff returns boxes whose union is the closure of b \ o. The returned boxes
// have pairwise intersections of zero volume. Zero-width slivers of
// non-degenerate components are dropped.
func (b Box) Diff(o Box) []Box {
	if b.IsEmpty() {
		return nil
	}
	if !b.Overlaps(o) {
		return []Box{b.Clone()}
	}
	var out []Box
	cur := b.Clone()
	for i := range cur.itv {
		for _, piece := range cur.itv[i].Diff(o.itv[i]) {
			if piece.Diam() == 0 && cur.itv[i].Diam() > 0 {
				continue
			}
			nb := cur.Clone()
			nb.itv[i] = piece
			out = append(out, nb)
		}
		cur.itv[i] = cur.itv[i].Intersect(o.itv[i])
	}
	return out
}

// Bisect splits component i at ratio. The two halves share the split point
// on component i and equal b elsewhere. ok is false when component i has no
// interior point.
func (b Box) Bisect(i int, ratio float64) (left, right Box, ok bool) {
	l, r, ok := b.itv[i].Bisect(ratio)
	if !ok {
		return Box{}, Box{}, false
	}
	left, right = b.Clone(), b.Clone()
	left.itv[i] = l
	right.itv[i] = r
	return left, right, true
}

// Reduction returns the largest relative width reduction between b and
// after (see Interval.Reduction). It returns 1 when after is empty.
func (b Box) Reduction(after Box) float64 {
	if after.IsEmpty() {
		return 1
	}
	m := 0.0
	for i := range b.itv {
		m = math.Max(m, b.itv[i].Reduction(after.itv[i]))
	}
	return m
}

// Inflate applies Interval.Inflate to every component.
func (b Box) Inflate(delta, chi float64) Box {
	c := b.Clone()
	for i := range c.itv {
		c.itv[i] = c.itv[i].Inflate(delta, chi)
	}
	return c
}

// Gather returns the sub-box made of the given components, in order.
func (b Box) Gather(indices []int) Box {
	c := Box{itv: make([]Interval, len(indices))}
	for k, i := range indices {
		c.itv[k] = b.itv[i]
	}
	return c
}

// Scatter writes the components of sub into b at the given indices.
func (b *Box) Scatter(indices []int, sub Box) {
	if sub.IsEmpty() {
		b.SetEmpty()
		return
	}
	for k, i := range indices {
		b.itv[i] = sub.itv[k]
	}
}

// String formats b as "([lo, hi] ; [lo, hi] ; ...)".
func (b Box) String() string {
	if b.IsEmpty() {
		return "∅"
	}
	parts := make([]string, len(b.itv))
	for i, x := range b.itv {
		parts[i] = x.String()
	}
	return "(" + strings.Join(parts, " ; ") + ")"
}
