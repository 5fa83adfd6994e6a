// Package interval provides outward-rounded interval arithmetic over float64.
//
// An Interval is a closed set [lo, hi] of reals, possibly unbounded, or the
// distinguished empty set. Every operation returns an enclosure of the exact
// mathematical result: for any reals drawn from the operands, the true result
// lies in the returned interval even though each endpoint was computed in
// floating point.
//
// Two families of operations are provided:
//   - forward operations (Add, Mul, Sqr, Exp, ...) which compute an enclosure
//     of op(x) from an enclosure of x;
//   - backward projections (BwdAdd, BwdMul, ...) which, given an enclosure y
//     of an operator's output, narrow the enclosures of its inputs to the
//     points still compatible with y.
//
// The empty interval propagates through every operation.
package interval

import (
	"fmt"
	"math"
)

// Interval is a closed real interval. The zero value is the degenerate
// interval [0, 0]; use Empty for the empty set.
type Interval struct {
	lo, hi float64
}

// New returns [lo, hi], or the empty interval when lo > hi or either bound
// is NaN. Bounds may be infinite.
func New(lo, hi float64) Interval {
	if !(lo <= hi) || math.IsInf(lo, 1) || math.IsInf(hi, -1) {
		return Empty()
	}
	return Interval{lo: lo, hi: hi}
}

// Point returns the degenerate interval [x, x].
func Point(x float64) Interval {
	return New(x, x)
}

// Empty returns the empty interval.
func Empty() Interval {
	return Interval{lo: posInf, hi: negInf}
}

// Entire returns (-∞, +∞).
func Entire() Interval {
	return Interval{lo: negInf, hi: posInf}
}

// Pos returns [0, +∞).
func Pos() Interval {
	return Interval{lo: 0, hi: posInf}
}

// NegHalf returns (-∞, 0].
func NegHalf() Interval {
	return Interval{lo: negInf, hi: 0}
}

// Pi returns an enclosure of π.
func Pi() Interval {
	return Interval{lo: prev(math.Pi), hi: next(math.Pi)}
}

// Around returns an enclosure of the real number nearest to x, widened by one
// ulp on each side. It is the right constructor for decimal literals that
// are not exactly representable.
func Around(x float64) Interval {
	if x == math.Trunc(x) && math.Abs(x) <= 1<<53 {
		return Point(x)
	}
	return New(prev(x), next(x))
}

// Lo returns the lower bound (+∞ for the empty interval).
func (x Interval) Lo() float64 { return x.lo }

// Hi returns the upper bound (-∞ for the empty interval).
func (x Interval) Hi() float64 { return x.hi }

// IsEmpty reports whether x is the empty set.
func (x Interval) IsEmpty() bool {
	return !(x.lo <= x.hi)
}

// IsEntire reports whether x is (-∞, +∞).
func (x Interval) IsEntire() bool {
	return math.IsInf(x.lo, -1) && math.IsInf(x.hi, 1)
}

// IsUnbounded reports whether one of the bounds is infinite.
func (x Interval) IsUnbounded() bool {
	return !x.IsEmpty() && (math.IsInf(x.lo, -1) || math.IsInf(x.hi, 1))
}

// IsDegenerate reports whether x is a single point.
func (x Interval) IsDegenerate() bool {
	return !x.IsEmpty() && x.lo == x.hi
}

// Contains reports whether v ∈ x.
func (x Interval) Contains(v float64) bool {
	return !x.IsEmpty() && x.lo <= v && v <= x.hi
}

// InteriorContains reports whether v lies strictly inside x.
func (x Interval) InteriorContains(v float64) bool {
	return !x.IsEmpty() && x.lo < v && v < x.hi
}

// Subset reports whether x ⊆ y. The empty set is a subset of everything.
func (x Interval) Subset(y Interval) bool {
	if x.IsEmpty() {
		return true
	}
	return !y.IsEmpty() && y.lo <= x.lo && x.hi <= y.hi
}

// InteriorSubset reports whether x is included in the interior of y.
// Infinite bounds of y are considered open.
func (x Interval) InteriorSubset(y Interval) bool {
	if x.IsEmpty() {
		return true
	}
	if y.IsEmpty() {
		return false
	}
	loOK := y.lo < x.lo || math.IsInf(y.lo, -1)
	hiOK := x.hi < y.hi || math.IsInf(y.hi, 1)
	return loOK && hiOK
}

// Overlaps reports whether x ∩ y is non-empty.
func (x Interval) Overlaps(y Interval) bool {
	return !x.Intersect(y).IsEmpty()
}

// Equal reports whether x and y denote the same set.
func (x Interval) Equal(y Interval) bool {
	if x.IsEmpty() || y.IsEmpty() {
		return x.IsEmpty() && y.IsEmpty()
	}
	return x.lo == y.lo && x.hi == y.hi
}

// Intersect returns x ∩ y.
func (x Interval) Intersect(y Interval) Interval {
	if x.IsEmpty() || y.IsEmpty() {
		return Empty()
	}
	return New(math.Max(x.lo, y.lo), math.Min(x.hi, y.hi))
}

// Hull returns the smallest interval containing x ∪ y.
func (x Interval) Hull(y Interval) Interval {
	if x.IsEmpty() {
		return y
	}
	if y.IsEmpty() {
		return x
	}
	return Interval{lo: math.Min(x.lo, y.lo), hi: math.Max(x.hi, y.hi)}
}

// Diff returns the closure of x \ y as at most two intervals. Pieces share
// their endpoints with y.
func (x Interval) Diff(y Interval) []Interval {
	inter := x.Intersect(y)
	if inter.IsEmpty() {
		if x.IsEmpty() {
			return nil
		}
		return []Interval{x}
	}
	var out []Interval
	if x.lo < inter.lo {
		out = append(out, Interval{lo: x.lo, hi: inter.lo})
	}
	if inter.hi < x.hi {
		out = append(out, Interval{lo: inter.hi, hi: x.hi})
	}
	return out
}

// Diam returns an upper bound of hi - lo, +∞ when unbounded and 0 when empty.
func (x Interval) Diam() float64 {
	if x.IsEmpty() {
		return 0
	}
	if x.IsUnbounded() {
		return posInf
	}
	return subUp(x.hi, x.lo)
}

// Rad returns an upper bound of the radius.
func (x Interval) Rad() float64 {
	d := x.Diam()
	if math.IsInf(d, 1) {
		return d
	}
	return divUp(d, 2)
}

// Mid returns a finite point of x close to its midpoint. For unbounded
// intervals it returns 0 when contained, or the finite bound's side
// ±MaxFloat64. It returns NaN for the empty interval.
func (x Interval) Mid() float64 {
	switch {
	case x.IsEmpty():
		return math.NaN()
	case x.IsEntire():
		return 0
	case math.IsInf(x.lo, -1):
		if x.hi >= 0 {
			return math.Min(0, x.hi)
		}
		return -math.MaxFloat64
	case math.IsInf(x.hi, 1):
		if x.lo <= 0 {
			return math.Max(0, x.lo)
		}
		return math.MaxFloat64
	}
	m := x.lo/2 + x.hi/2
	if m < x.lo {
		return x.lo
	}
	if m > x.hi {
		return x.hi
	}
	return m
}

// Mag returns max |v| for v ∈ x.
func (x Interval) Mag() float64 {
	if x.IsEmpty() {
		return math.NaN()
	}
	return math.Max(math.Abs(x.lo), math.Abs(x.hi))
}

// Mig returns min |v| for v ∈ x.
func (x Interval) Mig() float64 {
	if x.IsEmpty() {
		return math.NaN()
	}
	if x.lo <= 0 && 0 <= x.hi {
		return 0
	}
	return math.Min(math.Abs(x.lo), math.Abs(x.hi))
}

// IsBisectable reports whether at least one float lies strictly inside x.
func (x Interval) IsBisectable() bool {
	if x.IsEmpty() {
		return false
	}
	return next(x.lo) < x.hi
}

// Bisect splits x at lo + ratio·diam into two closed intervals sharing the
// split point. The split point is always strictly inside x; ok is false when
// no such point exists. Unbounded intervals are split at a finite point.
func (x Interval) Bisect(ratio float64) (left, right Interval, ok bool) {
	if !x.IsBisectable() {
		return Empty(), Empty(), false
	}
	if !(ratio > 0 && ratio < 1) {
		ratio = 0.5
	}
	var p float64
	switch {
	case x.IsEntire():
		p = 0
	case math.IsInf(x.lo, -1):
		p = x.hi - math.Max(1, 2*math.Abs(x.hi))
		if math.IsInf(p, -1) {
			p = -math.MaxFloat64
		}
	case math.IsInf(x.hi, 1):
		p = x.lo + math.Max(1, 2*math.Abs(x.lo))
		if math.IsInf(p, 1) {
			p = math.MaxFloat64
		}
	default:
		p = x.lo + ratio*(x.hi-x.lo)
		if math.IsInf(p, 0) || math.IsNaN(p) {
			p = x.Mid()
		}
	}
	if !(x.lo < p && p < x.hi) {
		p = x.Mid()
		if !(x.lo < p && p < x.hi) {
			p = next(x.lo)
		}
	}
	return Interval{lo: x.lo, hi: p}, Interval{lo: p, hi: x.hi}, true
}

// Inflate returns mid + delta·(x - mid) + [-chi, chi], an enclosure that
// strictly contains x whenever delta > 1 or chi > 0.
func (x Interval) Inflate(delta, chi float64) Interval {
	if x.IsEmpty() || x.IsUnbounded() {
		return x
	}
	m := x.Mid()
	r := mulUp(x.Rad(), delta)
	r = addUp(r, chi)
	return New(subDown(m, r), addUp(m, r)).Hull(x)
}

// Reduction measures how much after ⊆ x shrank compared with x: 0 when they
// are equal, 1 when after is empty or an infinite bound became finite, and
// the relative loss of width otherwise.
func (x Interval) Reduction(after Interval) float64 {
	if x.Equal(after) {
		return 0
	}
	if after.IsEmpty() {
		return 1
	}
	d := x.Diam()
	if math.IsInf(d, 1) {
		if (math.IsInf(x.lo, -1) && !math.IsInf(after.lo, -1)) ||
			(math.IsInf(x.hi, 1) && !math.IsInf(after.hi, 1)) {
			return 1
		}
		return 0
	}
	if d == 0 {
		return 0
	}
	r := (d - after.Diam()) / d
	if r < 0 {
		return 0
	}
	return r
}

// String formats x as "[lo, hi]" or "∅".
func (x Interval) String() string {
	if x.IsEmpty() {
		return "∅"
	}
	return fmt.Sprintf("[%g, %g]", x.lo, x.hi)
}
