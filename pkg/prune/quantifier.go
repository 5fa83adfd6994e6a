package prune

import (
	"fmt"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// quantified holds what Exist and ForAll share: a contractor over all
// variables, the block of quantified ones and their range.
type quantified struct {
	ctc    Contractor
	params []int
	free   []int
	domain interval.Box
	eps    float64
	input  VarSet
	output VarSet
}

func newQuantified(ctc Contractor, params VarSet, domain interval.Box, eps float64) (quantified, error) {
	if ctc == nil {
		return quantified{}, fmt.Errorf("prune: quantifier over nil contractor: %w", ErrInvalidParameter)
	}
	idx := params.Indices()
	if len(idx) == 0 {
		return quantified{}, fmt.Errorf("prune: quantifier without parameters: %w", ErrInvalidParameter)
	}
	if idx[len(idx)-1] >= ctc.Dim() {
		return quantified{}, fmt.Errorf("prune: parameter %d outside %d variables: %w", idx[len(idx)-1], ctc.Dim(), ErrDimensionMismatch)
	}
	if domain.Size() != len(idx) {
		return quantified{}, fmt.Errorf("prune: parameter domain of dimension %d for %d parameters: %w", domain.Size(), len(idx), ErrDimensionMismatch)
	}
	if domain.IsEmpty() || domain.IsUnbounded() {
		return quantified{}, fmt.Errorf("prune: parameter domain %v must be bounded and non-empty: %w", domain, ErrInvalidParameter)
	}
	if !(eps > 0) {
		return quantified{}, fmt.Errorf("prune: quantifier precision %g: %w", eps, ErrInvalidParameter)
	}
	q := quantified{ctc: ctc, params: idx, domain: domain.Clone(), eps: eps}
	free := NewVarSet()
	for i := 0; i < ctc.Dim(); i++ {
		if !params.Has(i) {
			q.free = append(q.free, i)
			free.Add(i)
		}
	}
	q.input = ctc.Input().Intersect(free)
	q.output = ctc.Output().Intersect(free)
	return q, nil
}

// withParams returns a copy of b whose parameter components are y.
func (q *quantified) withParams(b interval.Box, y interval.Box) interval.Box {
	full := b.Clone()
	full.Scatter(q.params, y)
	return full
}

// freeSubset reports whether the free components of a lie in those of b.
func (q *quantified) freeSubset(a, b interval.Box) bool {
	if a.IsEmpty() {
		return true
	}
	if b.IsEmpty() {
		return false
	}
	for _, i := range q.free {
		if !a.At(i).Subset(b.At(i)) {
			return false
		}
	}
	return true
}

func (q *quantified) Input() VarSet  { return q.input }
func (q *quantified) Output() VarSet { return q.output }
func (q *quantified) Dim() int       { return q.ctc.Dim() }

// Exist narrows the free variables to the points x for which the wrapped
// constraint holds for some value of the parameters in their range:
//
//	{x : ∃y ∈ Y, c(x, y)}
//
// The parameter range is bisected down to a width eps; the result is the
// hull of the contractions of every surviving parameter sub-box. Parameter
// components of the contracted box are left unchanged.
type Exist struct {
	quantified
}

// NewExist quantifies the variables params of ctc existentially over
// domain, at precision eps.
func NewExist(ctc Contractor, params VarSet, domain interval.Box, eps float64) (*Exist, error) {
	q, err := newQuantified(ctc, params, domain, eps)
	if err != nil {
		return nil, err
	}
	return &Exist{quantified: q}, nil
}

// Contract implements Contractor.
func (c *Exist) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	if b.IsEmpty() {
		return Empty
	}
	hull := interval.EmptyBox(b.Size())
	stack := []interval.Box{c.domain.Clone()}
	for len(stack) > 0 {
		y := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		full := c.withParams(*b, y)
		if c.ctc.Contract(&full) == Empty {
			continue
		}
		if c.freeSubset(full, hull) {
			continue
		}
		cur := full.Gather(c.params)
		i := cur.ArgMaxDiam()
		if cur.MaxDiam() <= c.eps {
			hull = hull.Hull(full)
		} else if l, r, ok := cur.Bisect(i, 0.5); ok {
			stack = append(stack, r, l)
		} else {
			hull = hull.Hull(full)
		}
		if c.freeSubset(*b, hull) {
			return Contracted
		}
	}
	if hull.IsEmpty() {
		b.SetEmpty()
		return Empty
	}
	for _, i := range c.free {
		b.Set(i, hull.At(i))
	}
	return Contracted
}

// ForAll narrows the free variables to an enclosure of the points x for
// which the wrapped constraint holds for every parameter value:
//
//	{x : ∀y ∈ Y, c(x, y)}
//
// Every parameter sub-box, and its midpoint, must accept x; the free box is
// intersected with each contraction while the parameter range is bisected
// down to a width eps.
type ForAll struct {
	quantified
}

// NewForAll quantifies the variables params of ctc universally over domain,
// at precision eps.
func NewForAll(ctc Contractor, params VarSet, domain interval.Box, eps float64) (*ForAll, error) {
	q, err := newQuantified(ctc, params, domain, eps)
	if err != nil {
		return nil, err
	}
	return &ForAll{quantified: q}, nil
}

// Contract implements Contractor.
func (c *ForAll) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	if b.IsEmpty() {
		return Empty
	}
	x := b.Clone()
	stack := []interval.Box{c.domain.Clone()}
	for len(stack) > 0 {
		y := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		full := c.withParams(x, y)
		if c.ctc.Contract(&full) == Empty {
			b.SetEmpty()
			return Empty
		}
		mid := c.withParams(full, interval.PointBox(y.Mid()))
		if c.ctc.Contract(&mid) == Empty {
			b.SetEmpty()
			return Empty
		}
		for _, i := range c.free {
			x.Set(i, mid.At(i))
		}
		if y.MaxDiam() <= c.eps {
			continue
		}
		if l, r, ok := y.Bisect(y.ArgMaxDiam(), 0.5); ok {
			stack = append(stack, r, l)
		}
	}
	for _, i := range c.free {
		b.Set(i, x.At(i))
	}
	return Contracted
}
