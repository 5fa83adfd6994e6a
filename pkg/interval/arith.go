package interval

import "math"

// Add returns x + y.
func Add(x, y Interval) Interval {
	if x.IsEmpty() || y.IsEmpty() {
		return Empty()
	}
	return New(addDown(x.lo, y.lo), addUp(x.hi, y.hi))
}

// Sub returns x - y.
func Sub(x, y Interval) Interval {
	if x.IsEmpty() || y.IsEmpty() {
		return Empty()
	}
	return New(subDown(x.lo, y.hi), subUp(x.hi, y.lo))
}

// Neg returns -x.
func Neg(x Interval) Interval {
	if x.IsEmpty() {
		return x
	}
	return Interval{lo: -x.hi, hi: -x.lo}
}

// Scale returns a·x for a real scalar a.
func Scale(a float64, x Interval) Interval {
	return Mul(Point(a), x)
}

// Shift returns x + a for a real scalar a.
func Shift(x Interval, a float64) Interval {
	return Add(x, Point(a))
}

// Mul returns x × y.
func Mul(x, y Interval) Interval {
	if x.IsEmpty() || y.IsEmpty() {
		return Empty()
	}
	lo := math.Min(
		math.Min(mulDown(x.lo, y.lo), mulDown(x.lo, y.hi)),
		math.Min(mulDown(x.hi, y.lo), mulDown(x.hi, y.hi)),
	)
	hi := math.Max(
		math.Max(mulUp(x.lo, y.lo), mulUp(x.lo, y.hi)),
		math.Max(mulUp(x.hi, y.lo), mulUp(x.hi, y.hi)),
	)
	return New(lo, hi)
}

// Div returns an enclosure of {a/b : a ∈ x, b ∈ y, b ≠ 0}. When 0 lies
// strictly inside y the hull of the two resulting half-lines is returned;
// use Div2 to keep them apart.
func Div(x, y Interval) Interval {
	a, b := Div2(x, y)
	return a.Hull(b)
}

// Div2 returns the generalized quotient x / y as at most two intervals
// (the second may be empty).
func Div2(x, y Interval) (Interval, Interval) {
	if x.IsEmpty() || y.IsEmpty() {
		return Empty(), Empty()
	}
	if y.lo == 0 && y.hi == 0 {
		return Empty(), Empty()
	}
	if y.lo > 0 || y.hi < 0 {
		return divNonZero(x, y), Empty()
	}
	if x.lo <= 0 && 0 <= x.hi {
		return Entire(), Empty()
	}
	// 0 ∈ y, 0 ∉ x.
	switch {
	case y.lo == 0:
		return divNonZero(x, Interval{lo: 0, hi: y.hi}), Empty()
	case y.hi == 0:
		return divNonZero(x, Interval{lo: y.lo, hi: 0}), Empty()
	}
	neg := divNonZero(x, Interval{lo: y.lo, hi: 0})
	pos := divNonZero(x, Interval{lo: 0, hi: y.hi})
	if neg.lo > pos.lo {
		neg, pos = pos, neg
	}
	return neg, pos
}

// divNonZero divides by an interval that does not contain 0 in its interior.
// A zero bound of y is treated as the limit 0⁺ or 0⁻.
func divNonZero(x, y Interval) Interval {
	switch {
	case y.lo >= 0 && y.hi > 0: // y ⊆ [0, +∞)
		if y.lo == 0 {
			switch {
			case x.lo >= 0:
				return New(divDown(x.lo, y.hi), posInf)
			case x.hi <= 0:
				return New(negInf, divUp(x.hi, y.hi))
			}
			return Entire()
		}
		switch {
		case x.lo >= 0:
			return New(divDown(x.lo, y.hi), divUp(x.hi, y.lo))
		case x.hi <= 0:
			return New(divDown(x.lo, y.lo), divUp(x.hi, y.hi))
		}
		return New(divDown(x.lo, y.lo), divUp(x.hi, y.lo))
	default: // y ⊆ (-∞, 0]
		if y.hi == 0 {
			switch {
			case x.lo >= 0:
				return New(negInf, divUp(x.lo, y.lo))
			case x.hi <= 0:
				return New(divDown(x.hi, y.lo), posInf)
			}
			return Entire()
		}
		switch {
		case x.lo >= 0:
			return New(divDown(x.hi, y.hi), divUp(x.lo, y.lo))
		case x.hi <= 0:
			return New(divDown(x.hi, y.lo), divUp(x.lo, y.hi))
		}
		return New(divDown(x.hi, y.hi), divUp(x.lo, y.hi))
	}
}

// Sqr returns x².
func Sqr(x Interval) Interval {
	if x.IsEmpty() {
		return x
	}
	mig, mag := x.Mig(), x.Mag()
	return New(mulDown(mig, mig), mulUp(mag, mag))
}

// Sqrt returns √(x ∩ [0, +∞)).
func Sqrt(x Interval) Interval {
	x = x.Intersect(Pos())
	if x.IsEmpty() {
		return x
	}
	return New(sqrtDown(x.lo), sqrtUp(x.hi))
}

// Pow returns xⁿ for an integer exponent n.
func Pow(x Interval, n int) Interval {
	if x.IsEmpty() {
		return x
	}
	switch {
	case n == 0:
		return Point(1)
	case n == 1:
		return x
	case n == 2:
		return Sqr(x)
	case n < 0:
		return Div(Point(1), Pow(x, -n))
	}
	if n%2 == 0 {
		mig, mag := x.Mig(), x.Mag()
		return New(powDown(mig, n), powUp(mag, n))
	}
	return New(oddPowDown(x.lo, n), oddPowUp(x.hi, n))
}

func oddPowDown(v float64, n int) float64 {
	if v >= 0 {
		return powDown(v, n)
	}
	return -powUp(-v, n)
}

func oddPowUp(v float64, n int) float64 {
	if v >= 0 {
		return powUp(v, n)
	}
	return -powDown(-v, n)
}

// Root returns the real n-th root of x (n ≥ 1). For even n only x ∩ [0, +∞)
// is considered.
func Root(x Interval, n int) Interval {
	if x.IsEmpty() || n <= 0 {
		return Empty()
	}
	if n == 1 {
		return x
	}
	if n%2 == 0 {
		x = x.Intersect(Pos())
		if x.IsEmpty() {
			return x
		}
		return New(rootDown(x.lo, n), rootUp(x.hi, n))
	}
	lo := rootDown(x.lo, n)
	if x.lo < 0 {
		lo = -rootUp(-x.lo, n)
	}
	hi := rootUp(x.hi, n)
	if x.hi < 0 {
		hi = -rootDown(-x.hi, n)
	}
	return New(lo, hi)
}

// Exp returns eˣ.
func Exp(x Interval) Interval {
	if x.IsEmpty() {
		return x
	}
	lo := math.Max(0, prevN(math.Exp(x.lo), 2))
	hi := nextN(math.Exp(x.hi), 2)
	if math.IsInf(x.hi, 1) {
		hi = posInf
	}
	return New(lo, hi)
}

// Log returns ln(x ∩ (0, +∞)).
func Log(x Interval) Interval {
	x = x.Intersect(Pos())
	if x.IsEmpty() || x.hi == 0 {
		return Empty()
	}
	lo := negInf
	if x.lo > 0 {
		lo = prevN(math.Log(x.lo), 2)
	}
	hi := nextN(math.Log(x.hi), 2)
	return New(lo, hi)
}

// Abs returns |x|.
func Abs(x Interval) Interval {
	if x.IsEmpty() {
		return x
	}
	return Interval{lo: x.Mig(), hi: x.Mag()}
}

// Min returns {min(a, b) : a ∈ x, b ∈ y}.
func Min(x, y Interval) Interval {
	if x.IsEmpty() || y.IsEmpty() {
		return Empty()
	}
	return Interval{lo: math.Min(x.lo, y.lo), hi: math.Min(x.hi, y.hi)}
}

// Max returns {max(a, b) : a ∈ x, b ∈ y}.
func Max(x, y Interval) Interval {
	if x.IsEmpty() || y.IsEmpty() {
		return Empty()
	}
	return Interval{lo: math.Max(x.lo, y.lo), hi: math.Max(x.hi, y.hi)}
}

// Sin returns sin(x).
func Sin(x Interval) Interval {
	return periodic(x, math.Sin, math.Pi/2, 3*math.Pi/2)
}

// Cos returns cos(x).
func Cos(x Interval) Interval {
	return periodic(x, math.Cos, 0, math.Pi)
}

// periodic evaluates a 2π-periodic function f bounded by [-1, 1] whose
// maxima sit at maxAt + 2kπ and minima at minAt + 2kπ. Membership of a
// critical point is decided with a small safety margin, which can only
// enlarge the result.
func periodic(x Interval, f func(float64) float64, maxAt, minAt float64) Interval {
	if x.IsEmpty() {
		return x
	}
	if x.IsUnbounded() || x.Diam() >= 2*math.Pi {
		return New(-1, 1)
	}
	a, b := f(x.lo), f(x.hi)
	lo := math.Max(-1, prevN(math.Min(a, b), 2))
	hi := math.Min(1, nextN(math.Max(a, b), 2))
	if hitsCritical(x, maxAt) {
		hi = 1
	}
	if hitsCritical(x, minAt) {
		lo = -1
	}
	return New(lo, hi)
}

func hitsCritical(x Interval, c float64) bool {
	const margin = 1e-9
	twoPi := 2 * math.Pi
	kMin := math.Ceil((x.lo-c)/twoPi - margin)
	kMax := math.Floor((x.hi-c)/twoPi + margin)
	return kMin <= kMax
}
