package prune

import (
	"fmt"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// Compo applies contractors in order and stops at the first Empty.
type Compo struct {
	ctcs   []Contractor
	n      int
	input  VarSet
	output VarSet
}

// NewCompo returns the sequential composition of ctcs.
func NewCompo(ctcs ...Contractor) (*Compo, error) {
	if len(ctcs) == 0 {
		return nil, fmt.Errorf("prune: empty composition: %w", ErrInvalidParameter)
	}
	n := ctcs[0].Dim()
	if err := sameDim(n, ctcs); err != nil {
		return nil, err
	}
	c := &Compo{ctcs: ctcs, n: n, input: NewVarSet(), output: NewVarSet()}
	for _, k := range ctcs {
		c.input = c.input.Union(k.Input())
		c.output = c.output.Union(k.Output())
	}
	return c, nil
}

// Contract implements Contractor.
func (c *Compo) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	if b.IsEmpty() {
		return Empty
	}
	for _, k := range c.ctcs {
		if k.Contract(b) == Empty {
			return Empty
		}
	}
	return Contracted
}

func (c *Compo) Input() VarSet  { return c.input }
func (c *Compo) Output() VarSet { return c.output }
func (c *Compo) Dim() int       { return c.n }

// Fixpoint reapplies a contractor until one application shrinks the box by
// no more than ratio (see interval.Box.Reduction), the box becomes empty,
// or maxIter applications have run.
type Fixpoint struct {
	ctc     Contractor
	ratio   float64
	maxIter int
}

// NewFixpoint wraps ctc. ratio must lie in [0, 1) and maxIter be positive;
// the iteration cap bounds the loop for contractors without a monotone
// convergence guarantee.
func NewFixpoint(ctc Contractor, ratio float64, maxIter int) (*Fixpoint, error) {
	if ctc == nil {
		return nil, fmt.Errorf("prune: fixpoint of nil contractor: %w", ErrInvalidParameter)
	}
	if ratio < 0 || ratio >= 1 {
		return nil, fmt.Errorf("prune: fixpoint ratio %g not in [0, 1): %w", ratio, ErrInvalidParameter)
	}
	if maxIter <= 0 {
		return nil, fmt.Errorf("prune: fixpoint iteration limit %d: %w", maxIter, ErrInvalidParameter)
	}
	return &Fixpoint{ctc: ctc, ratio: ratio, maxIter: maxIter}, nil
}

// Contract implements Contractor.
func (c *Fixpoint) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	if b.IsEmpty() {
		return Empty
	}
	before := b.Clone()
	for it := 0; it < c.maxIter; it++ {
		before.CopyFrom(*b)
		if c.ctc.Contract(b) == Empty {
			return Empty
		}
		if before.Reduction(*b) <= c.ratio {
			break
		}
	}
	return Contracted
}

func (c *Fixpoint) Input() VarSet  { return c.ctc.Input() }
func (c *Fixpoint) Output() VarSet { return c.ctc.Output() }
func (c *Fixpoint) Dim() int       { return c.ctc.Dim() }

// Union keeps the hull of the results of alternative contractors: the box
// is narrowed to what at least one of them retains. It models a
// disjunction of constraints.
type Union struct {
	ctcs   []Contractor
	n      int
	input  VarSet
	output VarSet
}

// NewUnion returns the disjunction of ctcs.
func NewUnion(ctcs ...Contractor) (*Union, error) {
	if len(ctcs) == 0 {
		return nil, fmt.Errorf("prune: empty union: %w", ErrInvalidParameter)
	}
	n := ctcs[0].Dim()
	if err := sameDim(n, ctcs); err != nil {
		return nil, err
	}
	u := &Union{ctcs: ctcs, n: n, input: NewVarSet(), output: NewVarSet()}
	for _, k := range ctcs {
		u.input = u.input.Union(k.Input())
		u.output = u.output.Union(k.Output())
	}
	return u, nil
}

// Contract implements Contractor.
func (c *Union) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	if b.IsEmpty() {
		return Empty
	}
	hull := interval.EmptyBox(c.n)
	for _, k := range c.ctcs {
		tmp := b.Clone()
		if k.Contract(&tmp) == Empty {
			continue
		}
		hull = hull.Hull(tmp)
		if b.Subset(hull) {
			return Contracted
		}
	}
	if hull.IsEmpty() {
		b.SetEmpty()
		return Empty
	}
	b.CopyFrom(hull)
	return Contracted
}

func (c *Union) Input() VarSet  { return c.input }
func (c *Union) Output() VarSet { return c.output }
func (c *Union) Dim() int       { return c.n }
