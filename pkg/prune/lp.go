package prune

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

// DefaultLPMargin is the relative slack added to the cuts and to the
// bounds read back from the simplex.
const DefaultLPMargin = 1e-8

// Linearizer relaxes constraints over a box into linear inequalities
// A·x ≤ rhs that hold at every point of the box satisfying the
// constraints. A nil matrix means no cut could be built for that box.
type Linearizer interface {
	Linearize(b interval.Box) (a *mat.Dense, rhs []float64)
	Dim() int
}

// CornerLinearizer bounds every constraint by its mean-value expansions at
// the lower and the upper corner of the box, using the interval gradient
// over the whole box as slope. On the lower corner x - lo ≥ 0, so
//
//	f(x) ≥ f(lo) + Σ inf(∂f/∂x_j)·(x_j - lo_j)
//
// and symmetrically on the upper corner. Each side of a constraint that
// must hold gives one cut per corner. Right-hand sides are rounded upward.
type CornerLinearizer struct {
	cons []expr.Constraint
	dim  int
}

// NewCornerLinearizer returns the linearizer of the constraints of sys.
func NewCornerLinearizer(sys *expr.System) (*CornerLinearizer, error) {
	if sys == nil || len(sys.Constraints) == 0 {
		return nil, fmt.Errorf("prune: linearizer without constraints: %w", ErrInvalidParameter)
	}
	return &CornerLinearizer{cons: sys.Constraints, dim: sys.Dim()}, nil
}

func (l *CornerLinearizer) Dim() int { return l.dim }

// Linearize implements Linearizer.
func (l *CornerLinearizer) Linearize(b interval.Box) (*mat.Dense, []float64) {
	if b.IsEmpty() || b.IsUnbounded() {
		return nil, nil
	}
	lo, hi := b.Lo(), b.Hi()
	var (
		data []float64
		rhs  []float64
	)
	add := func(slope, corner []float64, fAt float64) {
		bound, ok := cutBound(slope, corner, fAt)
		if !ok {
			return
		}
		data = append(data, slope...)
		rhs = append(rhs, bound)
	}

	for _, c := range l.cons {
		g := c.F.Gradient(b)
		fLo, fHi := c.F.EvalPoint(lo), c.F.EvalPoint(hi)
		if fLo.IsEmpty() || fHi.IsEmpty() {
			continue
		}
		gLo, gHi := make([]float64, l.dim), make([]float64, l.dim)
		for j, gj := range g {
			gLo[j], gHi[j] = gj.Lo(), gj.Hi()
		}
		if c.Op != expr.GEQ && c.Op != expr.GT {
			// f ≤ 0
			add(gLo, lo, fLo.Lo())
			add(gHi, hi, fHi.Lo())
		}
		if c.Op != expr.LEQ && c.Op != expr.LT {
			// -f ≤ 0
			add(negate(gHi), lo, -fLo.Hi())
			add(negate(gLo), hi, -fHi.Hi())
		}
	}
	if len(rhs) == 0 {
		return nil, nil
	}
	return mat.NewDense(len(rhs), l.dim, data), rhs
}

// cutBound returns an upper bound of Σ slope_j·corner_j - fAt, the
// right-hand side of the cut slope·x ≤ rhs obtained from g(x) ≥ fAt +
// slope·(x - corner).
func cutBound(slope, corner []float64, fAt float64) (float64, bool) {
	if math.IsInf(fAt, 0) || math.IsNaN(fAt) {
		return 0, false
	}
	sum := interval.Point(-fAt)
	for j, s := range slope {
		if math.IsInf(s, 0) || math.IsNaN(s) {
			return 0, false
		}
		sum = interval.Add(sum, interval.Mul(interval.Point(s), interval.Point(corner[j])))
	}
	if sum.IsEmpty() || math.IsInf(sum.Hi(), 0) {
		return 0, false
	}
	return sum.Hi(), true
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}

// LPContractor narrows a box to the bounds of a linear relaxation. Every
// variable is minimized and maximized under the cuts of a Linearizer and
// the box bounds with the simplex method; the bounds read back are widened
// by a margin before being intersected into the box. An infeasible
// relaxation empties the box.
//
// Unbounded boxes, and relaxations the simplex fails on for numerical
// reasons, are left unchanged.
type LPContractor struct {
	lin    Linearizer
	n      int
	margin float64
	input  VarSet
}

// NewLPContractor returns the LP contractor of lin.
func NewLPContractor(lin Linearizer, margin float64) (*LPContractor, error) {
	if lin == nil {
		return nil, fmt.Errorf("prune: lp contractor needs a linearizer: %w", ErrInvalidParameter)
	}
	if !(margin >= 0) {
		return nil, fmt.Errorf("prune: lp margin %g: %w", margin, ErrInvalidParameter)
	}
	return &LPContractor{lin: lin, n: lin.Dim(), margin: margin, input: AllVars(lin.Dim())}, nil
}

// Contract implements Contractor.
func (c *LPContractor) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	if b.IsEmpty() {
		return Empty
	}
	if b.IsUnbounded() {
		return Contracted
	}
	A, rhs := c.lin.Linearize(*b)
	if A == nil {
		return Contracted
	}
	std, bound := c.standardForm(A, rhs, *b)

	n := c.n
	lo, hi := b.Lo(), b.Hi()
	cost := make([]float64, std.RawMatrix().Cols)
	next := make([]interval.Interval, n)
	for j := 0; j < n; j++ {
		zmin, err := simplexBound(cost, std, bound, j, 1)
		if errors.Is(err, lp.ErrInfeasible) {
			b.SetEmpty()
			return Empty
		}
		if err != nil {
			return Contracted
		}
		zmax, err := simplexBound(cost, std, bound, j, -1)
		if errors.Is(err, lp.ErrInfeasible) {
			b.SetEmpty()
			return Empty
		}
		if err != nil {
			return Contracted
		}
		slack := c.margin * (1 + hi[j] - lo[j])
		next[j] = b.At(j).Intersect(interval.New(lo[j]+zmin-slack, lo[j]+zmax+slack))
	}
	for j, x := range next {
		b.Set(j, x)
	}
	return result(b)
}

// standardForm writes the cuts over z = x - lo ≥ 0 with slacks s, t ≥ 0:
//
//	A·z + s = rhs - A·lo
//	    z + t = hi - lo
//
// Right-hand sides are rounded upward and relaxed by the margin.
func (c *LPContractor) standardForm(A *mat.Dense, rhs []float64, b interval.Box) (*mat.Dense, []float64) {
	m, n := A.Dims()
	lo, hi := b.Lo(), b.Hi()
	std := mat.NewDense(m+n, n+m+n, nil)
	bound := make([]float64, m+n)
	for i := 0; i < m; i++ {
		r := interval.Point(rhs[i])
		scale := 0.0
		for j := 0; j < n; j++ {
			a := A.At(i, j)
			std.Set(i, j, a)
			r = interval.Sub(r, interval.Mul(interval.Point(a), interval.Point(lo[j])))
			scale += math.Abs(a) * (hi[j] - lo[j])
		}
		std.Set(i, n+i, 1)
		bound[i] = r.Hi() + c.margin*(1+math.Abs(r.Hi())+scale)
	}
	for j := 0; j < n; j++ {
		std.Set(m+j, j, 1)
		std.Set(m+j, n+m+j, 1)
		bound[m+j] = interval.Sub(interval.Point(hi[j]), interval.Point(lo[j])).Hi()
	}
	return std, bound
}

// simplexBound minimizes sign·z_j and returns the optimum of z_j.
func simplexBound(cost []float64, A *mat.Dense, b []float64, j int, sign float64) (float64, error) {
	for k := range cost {
		cost[k] = 0
	}
	cost[j] = sign
	f, _, err := lp.Simplex(cost, A, b, 0, nil)
	if err != nil {
		return 0, err
	}
	return sign * f, nil
}

func (c *LPContractor) Input() VarSet  { return c.input }
func (c *LPContractor) Output() VarSet { return c.input }
func (c *LPContractor) Dim() int       { return c.n }
