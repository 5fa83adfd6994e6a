package prune

import (
	"fmt"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

// DefaultNewtonCeil is the box width above which Newton does nothing.
const DefaultNewtonCeil = 0.01

// Newton is the interval Newton contractor of a square system of equations
// F(x) = 0, using a Gauss-Seidel sweep preconditioned by the inverse of the
// midpoint Jacobian.
//
// The step is only attempted on boxes whose width is at most ceil, where
// the linearization is tight enough to pay off. A singular or
// ill-conditioned midpoint Jacobian leaves the box unchanged.
type Newton struct {
	fs    []*expr.Function
	n     int
	ceil  float64
	vars  []int
	input VarSet
}

// NewNewton returns the Newton contractor of eqs, which must be equations
// in number equal to their dimension.
func NewNewton(eqs []expr.Constraint, ceil float64) (*Newton, error) {
	if len(eqs) == 0 {
		return nil, fmt.Errorf("prune: newton without equations: %w", ErrInvalidParameter)
	}
	if !(ceil > 0) {
		return nil, fmt.Errorf("prune: newton ceiling %g: %w", ceil, ErrInvalidParameter)
	}
	n := eqs[0].F.NumVars()
	if len(eqs) != n {
		return nil, fmt.Errorf("prune: newton needs a square system, got %d equations in %d variables: %w", len(eqs), n, ErrDimensionMismatch)
	}
	c := &Newton{n: n, ceil: ceil, input: AllVars(n)}
	for i, e := range eqs {
		if !e.IsEquality() {
			return nil, fmt.Errorf("prune: newton constraint %d is not an equation: %w", i, ErrInvalidParameter)
		}
		if e.F.NumVars() != n {
			return nil, fmt.Errorf("prune: newton equation %d: %w", i, ErrDimensionMismatch)
		}
		c.fs = append(c.fs, e.F)
	}
	for i := 0; i < n; i++ {
		c.vars = append(c.vars, i)
	}
	return c, nil
}

// Contract implements Contractor.
func (c *Newton) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	if b.IsEmpty() {
		return Empty
	}
	if b.MaxDiam() > c.ceil {
		return Contracted
	}
	J := jacobian(c.fs, *b, c.vars)
	C, err := midInverse(J)
	if err != nil {
		return Contracted
	}
	mid := b.Mid()
	fc := make([]interval.Interval, c.n)
	pt := interval.PointBox(mid)
	for i, f := range c.fs {
		fc[i] = f.Eval(pt)
	}
	A := precondition(C, J)
	r := applyPoint(C, fc)
	y := make([]interval.Interval, c.n)
	for j := range y {
		y[j] = interval.Sub(b.At(j), interval.Point(mid[j]))
	}
	// Solve A·y = -r for y ∈ b - mid, one row at a time.
	for i := 0; i < c.n; i++ {
		s := interval.Neg(r[i])
		for j := 0; j < c.n; j++ {
			if j != i {
				s = interval.Sub(s, interval.Mul(A[i][j], y[j]))
			}
		}
		lo, hi := interval.Div2(s, A[i][i])
		yi := y[i].Intersect(lo).Hull(y[i].Intersect(hi))
		if yi.IsEmpty() {
			b.SetEmpty()
			return Empty
		}
		y[i] = yi
	}
	for j := range y {
		x := b.At(j).Intersect(interval.Add(interval.Point(mid[j]), y[j]))
		if x.IsEmpty() {
			b.SetEmpty()
			return Empty
		}
		b.Set(j, x)
	}
	return Contracted
}

func (c *Newton) Input() VarSet  { return c.input }
func (c *Newton) Output() VarSet { return c.input }
func (c *Newton) Dim() int       { return c.n }
