package prune

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

// Certificate is a proof that a box contains a solution of a system of
// equations.
type Certificate struct {
	// Existence contains a solution.
	Existence interval.Box
	// Unicity contains no other solution than the one in Existence, for
	// the parameters fixed at their value in Existence.
	Unicity interval.Box
	// Params lists the variables fixed at the midpoint of the certified
	// box. It is empty for square systems.
	Params VarSet
}

// Certifier proves the existence of solutions of m equations in n ≥ m
// variables with the Krawczyk operator
//
//	K(y) = c - C·F(c) + (I - C·J(y))·(y - c)
//
// where c = mid(y), J is the interval Jacobian and C the inverse of its
// midpoint. K(y) ⊆ int(y) proves that y contains exactly one zero, and that
// it lies in K(y). The search for such a y starts at the midpoint of the
// box and inflates the current candidate at each step.
//
// When m < n, m variables are chosen by pivoting on the midpoint Jacobian
// and the other n - m are fixed at their midpoint.
type Certifier struct {
	fs      []*expr.Function
	n       int
	delta   float64
	chi     float64
	maxIter int
	log     zerolog.Logger
}

// NewCertifier returns a certifier for the equations eqs over n variables.
func NewCertifier(eqs []expr.Constraint, n int, cfg Config) (*Certifier, error) {
	if len(eqs) == 0 {
		return nil, fmt.Errorf("prune: certifier without equations: %w", ErrInvalidParameter)
	}
	if len(eqs) > n {
		return nil, fmt.Errorf("prune: certifier for %d equations in %d variables: %w", len(eqs), n, ErrDimensionMismatch)
	}
	c := &Certifier{
		n:       n,
		delta:   cfg.CertifyDelta,
		chi:     cfg.CertifyChi,
		maxIter: cfg.CertifyMaxIter,
		log:     cfg.Logger.With().Str("component", "certifier").Logger(),
	}
	for i, e := range eqs {
		if !e.IsEquality() {
			return nil, fmt.Errorf("prune: certifier constraint %d is not an equation: %w", i, ErrInvalidParameter)
		}
		if e.F.NumVars() != n {
			return nil, fmt.Errorf("prune: certifier equation %d: %w", i, ErrDimensionMismatch)
		}
		c.fs = append(c.fs, e.F)
	}
	return c, nil
}

// Square reports whether there are as many equations as variables.
func (c *Certifier) Square() bool { return len(c.fs) == c.n }

// Certify tries to prove that b contains a solution. ok is false when no
// proof was found, which says nothing about b.
func (c *Certifier) Certify(b interval.Box) (cert Certificate, ok bool) {
	if b.IsEmpty() || b.IsUnbounded() {
		return Certificate{}, false
	}
	m := len(c.fs)
	cols := make([]int, 0, c.n)
	params := NewVarSet()
	if m == c.n {
		for j := 0; j < c.n; j++ {
			cols = append(cols, j)
		}
	} else {
		all := make([]int, c.n)
		for j := range all {
			all[j] = j
		}
		var err error
		cols, err = pivotColumns(jacobian(c.fs, b, all))
		if err != nil {
			c.log.Debug().Stringer("box", b).Msg("no regular sub-jacobian")
			return Certificate{}, false
		}
		params = AllVars(c.n)
		for _, j := range cols {
			params.Remove(j)
		}
	}

	mid := b.Mid()
	base := b.Clone()
	for _, p := range params.Indices() {
		base.Set(p, interval.Point(mid[p]))
	}

	y := interval.PointBox(mid).Gather(cols)
	for it := 0; it < c.maxIter; it++ {
		y1 := y.Inflate(c.delta, c.chi)
		k, err := c.krawczyk(base, cols, y1)
		if err != nil {
			c.log.Debug().Err(err).Int("iter", it).Stringer("box", b).Msg("certification aborted")
			return Certificate{}, false
		}
		if k.IsEmpty() || k.IsUnbounded() {
			break
		}
		if k.InteriorSubset(y1) {
			cert.Existence = base.Clone()
			cert.Existence.Scatter(cols, k)
			cert.Unicity = base.Clone()
			cert.Unicity.Scatter(cols, y1)
			cert.Params = params
			return cert, true
		}
		y = k
	}
	c.log.Debug().Stringer("box", b).Msg("certification did not converge")
	return Certificate{}, false
}

// krawczyk evaluates K(y) for the variables cols, the others being taken
// from base.
func (c *Certifier) krawczyk(base interval.Box, cols []int, y interval.Box) (interval.Box, error) {
	full := base.Clone()
	full.Scatter(cols, y)
	J := jacobian(c.fs, full, cols)
	C, err := midInverse(J)
	if err != nil {
		return interval.Box{}, err
	}

	mid := y.Mid()
	center := base.Clone()
	for k, j := range cols {
		center.Set(j, interval.Point(mid[k]))
	}
	fc := make([]interval.Interval, len(c.fs))
	for i, f := range c.fs {
		fc[i] = f.Eval(center)
	}
	cfc := applyPoint(C, fc)

	// I - C·J
	R := precondition(C, J)
	for i := range R {
		for j := range R[i] {
			d := interval.Point(0)
			if i == j {
				d = interval.Point(1)
			}
			R[i][j] = interval.Sub(d, R[i][j])
		}
	}
	dy := make([]interval.Interval, len(cols))
	for k := range dy {
		dy[k] = interval.Sub(y.At(k), interval.Point(mid[k]))
	}
	rdy := R.apply(dy)

	out := make([]interval.Interval, len(cols))
	for k := range out {
		out[k] = interval.Add(interval.Sub(interval.Point(mid[k]), cfc[k]), rdy[k])
	}
	return interval.BoxOf(out...), nil
}
