package interval

import "math"

// backward.go: backward projections (inverse contractors) of the forward
// operations. Each BwdOp narrows its argument enclosures in place to an
// enclosure of the points still compatible with y = op(args), and returns
// false as soon as one argument becomes empty. On false every argument is
// set to the empty interval.

func fail(xs ...*Interval) bool {
	for _, x := range xs {
		*x = Empty()
	}
	return false
}

// BwdAdd projects y = x1 + x2.
func BwdAdd(y Interval, x1, x2 *Interval) bool {
	*x1 = x1.Intersect(Sub(y, *x2))
	if x1.IsEmpty() {
		return fail(x1, x2)
	}
	*x2 = x2.Intersect(Sub(y, *x1))
	if x2.IsEmpty() {
		return fail(x1, x2)
	}
	return true
}

// BwdSub projects y = x1 - x2.
func BwdSub(y Interval, x1, x2 *Interval) bool {
	*x1 = x1.Intersect(Add(y, *x2))
	if x1.IsEmpty() {
		return fail(x1, x2)
	}
	*x2 = x2.Intersect(Sub(*x1, y))
	if x2.IsEmpty() {
		return fail(x1, x2)
	}
	return true
}

// intersectQuotient returns x ∩ (num / den) keeping the two pieces of a
// generalized division apart before taking the hull.
func intersectQuotient(x, num, den Interval) Interval {
	a, b := Div2(num, den)
	return x.Intersect(a).Hull(x.Intersect(b))
}

// BwdMul projects y = x1 × x2.
func BwdMul(y Interval, x1, x2 *Interval) bool {
	*x1 = intersectQuotient(*x1, y, *x2)
	if x1.IsEmpty() {
		return fail(x1, x2)
	}
	*x2 = intersectQuotient(*x2, y, *x1)
	if x2.IsEmpty() {
		return fail(x1, x2)
	}
	return true
}

// BwdDiv projects y = x1 / x2.
func BwdDiv(y Interval, x1, x2 *Interval) bool {
	*x1 = x1.Intersect(Mul(y, *x2))
	if x1.IsEmpty() {
		return fail(x1, x2)
	}
	*x2 = intersectQuotient(*x2, *x1, y)
	if x2.IsEmpty() {
		return fail(x1, x2)
	}
	return true
}

// BwdNeg projects y = -x.
func BwdNeg(y Interval, x *Interval) bool {
	*x = x.Intersect(Neg(y))
	if x.IsEmpty() {
		return fail(x)
	}
	return true
}

// evenPreimage intersects x with {v : |v| ∈ r} where r ⊆ [0, +∞).
func evenPreimage(x, r Interval) Interval {
	if r.IsEmpty() {
		return r
	}
	return x.Intersect(Neg(r)).Hull(x.Intersect(r))
}

// BwdSqr projects y = x².
func BwdSqr(y Interval, x *Interval) bool {
	*x = evenPreimage(*x, Sqrt(y))
	if x.IsEmpty() {
		return fail(x)
	}
	return true
}

// BwdSqrt projects y = √x.
func BwdSqrt(y Interval, x *Interval) bool {
	y = y.Intersect(Pos())
	*x = x.Intersect(Sqr(y)).Intersect(Pos())
	if x.IsEmpty() {
		return fail(x)
	}
	return true
}

// BwdPow projects y = xⁿ.
func BwdPow(y Interval, x *Interval, n int) bool {
	switch {
	case n == 0:
		if !y.Contains(1) {
			return fail(x)
		}
		return true
	case n < 0:
		// y = 1 / x^|n|  ⇔  x^|n| = 1 / y
		return BwdPow(Div(Point(1), y), x, -n)
	case n%2 == 0:
		*x = evenPreimage(*x, Root(y, n))
	default:
		*x = x.Intersect(Root(y, n))
	}
	if x.IsEmpty() {
		return fail(x)
	}
	return true
}

// BwdExp projects y = eˣ.
func BwdExp(y Interval, x *Interval) bool {
	*x = x.Intersect(Log(y))
	if x.IsEmpty() {
		return fail(x)
	}
	return true
}

// BwdLog projects y = ln x.
func BwdLog(y Interval, x *Interval) bool {
	*x = x.Intersect(Exp(y)).Intersect(Pos())
	if x.IsEmpty() {
		return fail(x)
	}
	return true
}

// BwdAbs projects y = |x|.
func BwdAbs(y Interval, x *Interval) bool {
	*x = evenPreimage(*x, y.Intersect(Pos()))
	if x.IsEmpty() {
		return fail(x)
	}
	return true
}

// BwdMin projects y = min(x1, x2).
func BwdMin(y Interval, x1, x2 *Interval) bool {
	y = y.Intersect(Min(*x1, *x2))
	if y.IsEmpty() {
		return fail(x1, x2)
	}
	// Both arguments are at least min.
	floor := New(y.lo, posInf)
	*x1 = x1.Intersect(floor)
	*x2 = x2.Intersect(floor)
	if x1.IsEmpty() || x2.IsEmpty() {
		return fail(x1, x2)
	}
	// The argument that must realize the minimum is bounded by y.hi.
	ceil := New(negInf, y.hi)
	if x2.lo > y.hi {
		*x1 = x1.Intersect(ceil)
	}
	if x1.lo > y.hi {
		*x2 = x2.Intersect(ceil)
	}
	if x1.IsEmpty() || x2.IsEmpty() {
		return fail(x1, x2)
	}
	return true
}

// BwdMax projects y = max(x1, x2).
func BwdMax(y Interval, x1, x2 *Interval) bool {
	n1, n2 := Neg(*x1), Neg(*x2)
	if !BwdMin(Neg(y), &n1, &n2) {
		return fail(x1, x2)
	}
	*x1, *x2 = Neg(n1), Neg(n2)
	return true
}

// BwdSin projects y = sin(x). The preimage of y is the union over k of
// [asin(y.lo), asin(y.hi)] + 2kπ and [π - asin(y.hi), π - asin(y.lo)] + 2kπ;
// x is narrowed to the hull of its intersection with those pieces.
func BwdSin(y Interval, x *Interval) bool {
	y = y.Intersect(Sin(*x))
	if y.IsEmpty() {
		return fail(x)
	}
	a, b := prevN(math.Asin(y.lo), 2), nextN(math.Asin(y.hi), 2)
	return bwdPeriodic(x, [2][2]float64{{a, b}, {math.Pi - b, math.Pi - a}})
}

// BwdCos projects y = cos(x), whose preimage is ±[acos(y.hi), acos(y.lo)]
// + 2kπ. See BwdSin.
func BwdCos(y Interval, x *Interval) bool {
	y = y.Intersect(Cos(*x))
	if y.IsEmpty() {
		return fail(x)
	}
	a, b := prevN(math.Acos(y.hi), 2), nextN(math.Acos(y.lo), 2)
	return bwdPeriodic(x, [2][2]float64{{a, b}, {-b, -a}})
}

// periodicLimit is the magnitude above which 2kπ shifts are too coarse to
// narrow anything.
const periodicLimit = 1e15

// bwdPeriodic narrows x to the hull of its intersection with the pieces
// shifted by every multiple of 2π. The pieces lie within [-2π, 2π] and
// are widened by a margin covering the rounding of the shifts. Only the
// first and the last period met by x are searched for.
func bwdPeriodic(x *Interval, pieces [2][2]float64) bool {
	if x.IsUnbounded() || math.Abs(x.lo) > periodicLimit || math.Abs(x.hi) > periodicLimit {
		return true
	}
	twoPi := 2 * math.Pi
	meet := func(k float64) Interval {
		shift := k * twoPi
		margin := 1e-12 * (1 + math.Abs(shift))
		h := Empty()
		for _, p := range pieces {
			h = h.Hull(x.Intersect(New(p[0]+shift-margin, p[1]+shift+margin)))
		}
		return h
	}
	kMin := math.Floor(x.lo/twoPi) - 1
	kMax := math.Ceil(x.hi/twoPi) + 1
	lo := Empty()
	for k := kMin; k <= kMax; k++ {
		if lo = meet(k); !lo.IsEmpty() {
			break
		}
	}
	if lo.IsEmpty() {
		return fail(x)
	}
	hi := lo
	for k := kMax; k >= kMin; k-- {
		if hi = meet(k); !hi.IsEmpty() {
			break
		}
	}
	*x = New(lo.lo, hi.hi)
	return true
}
