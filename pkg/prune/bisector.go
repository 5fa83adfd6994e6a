package prune

import (
	"fmt"
)

// DefaultRatio places split points at 45% of the width. An off-center
// split keeps symmetric problems from producing solutions exactly on a
// split boundary.
const DefaultRatio = 0.45

// Bisector splits a cell in two along one variable. ok is false when no
// variable is worth splitting, which makes the cell a leaf of the search.
type Bisector interface {
	Bisect(c *Cell) (left, right *Cell, ok bool)
}

// BisectPolicy chooses the variable to split.
type BisectPolicy int

const (
	// LargestFirst splits the widest variable.
	LargestFirst BisectPolicy = iota
	// RoundRobin cycles through the variables, starting after the one
	// split last.
	RoundRobin
)

func (p BisectPolicy) String() string {
	if p == RoundRobin {
		return "round-robin"
	}
	return "largest-first"
}

// ParseBisectPolicy maps "largest-first" and "round-robin" to a policy.
func ParseBisectPolicy(s string) (BisectPolicy, error) {
	switch s {
	case "", "largest-first", "largest":
		return LargestFirst, nil
	case "round-robin", "rr":
		return RoundRobin, nil
	}
	return 0, fmt.Errorf("prune: unknown bisection policy %q: %w", s, ErrInvalidParameter)
}

// PolicyBisector implements Bisector for a BisectPolicy. A variable is
// splittable while its width is at least its precision and a float lies
// strictly inside it.
type PolicyBisector struct {
	policy BisectPolicy
	prec   []float64
	ratio  float64
}

// NewBisector returns a bisector with one precision per variable. ratio
// must lie in (0, 1).
func NewBisector(policy BisectPolicy, prec []float64, ratio float64) (*PolicyBisector, error) {
	if !(ratio > 0 && ratio < 1) {
		return nil, fmt.Errorf("prune: bisection ratio %g not in (0, 1): %w", ratio, ErrInvalidParameter)
	}
	for i, p := range prec {
		if p < 0 {
			return nil, fmt.Errorf("prune: negative precision %g for variable %d: %w", p, i, ErrInvalidParameter)
		}
	}
	return &PolicyBisector{policy: policy, prec: append([]float64(nil), prec...), ratio: ratio}, nil
}

// NewUniformBisector uses the same precision for n variables.
func NewUniformBisector(policy BisectPolicy, n int, prec, ratio float64) (*PolicyBisector, error) {
	p := make([]float64, n)
	for i := range p {
		p[i] = prec
	}
	return NewBisector(policy, p, ratio)
}

func (b *PolicyBisector) splittable(c *Cell, i int) bool {
	x := c.Box.At(i)
	return x.Diam() >= b.prec[i] && x.IsBisectable()
}

// choose returns the variable to split, or -1.
func (b *PolicyBisector) choose(c *Cell) int {
	n := c.Box.Size()
	switch b.policy {
	case RoundRobin:
		start := c.LastVar + 1
		for k := 0; k < n; k++ {
			i := (start + k) % n
			if b.splittable(c, i) {
				return i
			}
		}
		return -1
	default:
		best, width := -1, -1.0
		for i := 0; i < n; i++ {
			if !b.splittable(c, i) {
				continue
			}
			if d := c.Box.At(i).Diam(); d > width {
				best, width = i, d
			}
		}
		return best
	}
}

// Bisect implements Bisector.
func (b *PolicyBisector) Bisect(c *Cell) (left, right *Cell, ok bool) {
	if c.Box.Size() != len(b.prec) {
		panic(fmt.Errorf("prune: bisecting a box of dimension %d with %d precisions: %w", c.Box.Size(), len(b.prec), ErrDimensionMismatch))
	}
	if c.Box.IsEmpty() {
		return nil, nil, false
	}
	i := b.choose(c)
	if i < 0 {
		return nil, nil, false
	}
	l, r, ok := c.Box.Bisect(i, b.ratio)
	if !ok {
		return nil, nil, false
	}
	left, right = c.split(l, r, i)
	return left, right, true
}
