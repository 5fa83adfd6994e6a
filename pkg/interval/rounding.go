package interval

// rounding.go: directed rounding on top of round-to-nearest hardware.
//
// Go exposes no control over the FPU rounding mode, so every primitive below
// computes the nearest result and then recovers the sign of the rounding
// error with an error-free transformation (TwoSum for addition, FMA for
// multiplication, division and square root). When the error is non-zero the
// result is moved one ulp in the requested direction. This yields the exact
// directed-rounded value in the common case and a one-ulp-wider enclosure
// otherwise, which is all soundness requires.

import "math"

// tiny is the magnitude below which error-free transformations may lose
// exactness because of gradual underflow. Results this small are widened
// unconditionally.
const tiny = 0x1p-969

var (
	posInf = math.Inf(1)
	negInf = math.Inf(-1)
)

func prev(x float64) float64 {
	if math.IsInf(x, -1) {
		return x
	}
	return math.Nextafter(x, negInf)
}

func next(x float64) float64 {
	if math.IsInf(x, 1) {
		return x
	}
	return math.Nextafter(x, posInf)
}

// prevN and nextN move n ulps. Used for library functions (exp, log, sin...)
// whose results are faithful but not correctly rounded.
func prevN(x float64, n int) float64 {
	for i := 0; i < n; i++ {
		x = prev(x)
	}
	return x
}

func nextN(x float64, n int) float64 {
	for i := 0; i < n; i++ {
		x = next(x)
	}
	return x
}

func bothFinite(a, b float64) bool {
	return !math.IsInf(a, 0) && !math.IsInf(b, 0)
}

// twoSumErr returns the rounding error of s = a + b (true sum minus s).
func twoSumErr(a, b, s float64) float64 {
	bb := s - a
	return (a - (s - bb)) + (b - bb)
}

func addDown(a, b float64) float64 {
	s := a + b
	if math.IsInf(s, 0) {
		if s > 0 && bothFinite(a, b) {
			return math.MaxFloat64
		}
		return s
	}
	if e := twoSumErr(a, b, s); e < 0 || e != e {
		return prev(s)
	}
	return s
}

func addUp(a, b float64) float64 {
	s := a + b
	if math.IsInf(s, 0) {
		if s < 0 && bothFinite(a, b) {
			return -math.MaxFloat64
		}
		return s
	}
	if e := twoSumErr(a, b, s); e > 0 || e != e {
		return next(s)
	}
	return s
}

func subDown(a, b float64) float64 { return addDown(a, -b) }
func subUp(a, b float64) float64   { return addUp(a, -b) }

// mulDown and mulUp use the interval convention 0 × ∞ = 0.
func mulDown(a, b float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if math.IsInf(p, 0) {
		if p > 0 && bothFinite(a, b) {
			return math.MaxFloat64
		}
		return p
	}
	if math.Abs(p) < tiny {
		return prev(p)
	}
	if e := math.FMA(a, b, -p); e < 0 || e != e {
		return prev(p)
	}
	return p
}

func mulUp(a, b float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if math.IsInf(p, 0) {
		if p < 0 && bothFinite(a, b) {
			return -math.MaxFloat64
		}
		return p
	}
	if math.Abs(p) < tiny {
		return next(p)
	}
	if e := math.FMA(a, b, -p); e > 0 || e != e {
		return next(p)
	}
	return p
}

// divErrSign reports the sign of (a/b - q) where q is the rounded quotient.
func divErrSign(a, b, q float64) float64 {
	r := math.FMA(-q, b, a) // a - q*b, exact away from underflow
	if r != r {
		return math.NaN()
	}
	if b < 0 {
		return -r
	}
	return r
}

// divDown and divUp require b != 0. A zero numerator yields 0.
func divDown(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	q := a / b
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return q
	}
	if math.IsInf(q, 0) {
		if q > 0 {
			return math.MaxFloat64
		}
		return q
	}
	if math.Abs(q) < tiny || math.Abs(a) < tiny {
		return prev(q)
	}
	if e := divErrSign(a, b, q); e < 0 || e != e {
		return prev(q)
	}
	return q
}

func divUp(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	q := a / b
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return q
	}
	if math.IsInf(q, 0) {
		if q < 0 {
			return -math.MaxFloat64
		}
		return q
	}
	if math.Abs(q) < tiny || math.Abs(a) < tiny {
		return next(q)
	}
	if e := divErrSign(a, b, q); e > 0 || e != e {
		return next(q)
	}
	return q
}

func sqrtDown(x float64) float64 {
	if x <= 0 {
		return 0
	}
	s := math.Sqrt(x)
	if math.IsInf(s, 0) {
		return s
	}
	if e := math.FMA(-s, s, x); e < 0 || e != e {
		return prev(s)
	}
	return s
}

func sqrtUp(x float64) float64 {
	if x <= 0 {
		return 0
	}
	s := math.Sqrt(x)
	if math.IsInf(s, 0) {
		return s
	}
	if e := math.FMA(-s, s, x); e > 0 || e != e {
		return next(s)
	}
	return s
}

// powDown and powUp compute x^n for x >= 0 and n >= 1 by repeated
// multiplication under directed rounding.
func powDown(x float64, n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r = mulDown(r, x)
	}
	return r
}

func powUp(x float64, n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r = mulUp(r, x)
	}
	return r
}

// rootPad is the relative padding applied around math.Pow(y, 1/n), which
// carries the representation error of 1/n on top of the libm error.
const rootPad = 1e-12

func rootDown(y float64, n int) float64 {
	if y <= 0 {
		return 0
	}
	if n == 2 {
		return sqrtDown(y)
	}
	r := math.Pow(y, 1/float64(n))
	if math.IsInf(r, 0) {
		return math.MaxFloat64
	}
	return prev(r * (1 - rootPad))
}

func rootUp(y float64, n int) float64 {
	if y <= 0 {
		return 0
	}
	if math.IsInf(y, 1) {
		return y
	}
	if n == 2 {
		return sqrtUp(y)
	}
	r := math.Pow(y, 1/float64(n))
	return next(r * (1 + rootPad))
}
