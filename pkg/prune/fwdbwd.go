package prune

import (
	"fmt"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

// Fwdbwd is the forward-backward revision of one constraint f(x) ∈ target
// (HC4Revise).
//
// A call evaluates every node of f bottom-up, intersects the root with the
// target, then walks the nodes top-down projecting each node's interval
// onto its arguments. Variable leaves are finally intersected into the box.
// Nodes shared by several parents accumulate the intersection of all the
// projections they receive.
//
// One call is a single sweep: repeated occurrences of a variable may leave
// room for further narrowing, so Fwdbwd is usually wrapped in a Fixpoint
// or a Propagation.
type Fwdbwd struct {
	f      *expr.Function
	target interval.Interval
	input  VarSet
}

// NewFwdbwd returns the revision contractor of a constraint.
func NewFwdbwd(c expr.Constraint) *Fwdbwd {
	return NewFwdbwdTarget(c.F, c.Target())
}

// NewFwdbwdTarget returns the revision contractor of f(x) ∈ target.
func NewFwdbwdTarget(f *expr.Function, target interval.Interval) *Fwdbwd {
	return &Fwdbwd{f: f, target: target, input: NewVarSet(f.Input()...)}
}

// FwdbwdAll returns one revision contractor per constraint of s.
func FwdbwdAll(s *expr.System) []Contractor {
	out := make([]Contractor, len(s.Constraints))
	for i, c := range s.Constraints {
		out[i] = NewFwdbwd(c)
	}
	return out
}

// Target returns the set f is constrained to.
func (c *Fwdbwd) Target() interval.Interval { return c.target }

// SetTarget replaces the target set. The optimizer uses it to tighten the
// objective cut f(x) ≤ loup as better points are found.
func (c *Fwdbwd) SetTarget(y interval.Interval) { c.target = y }

// Contract implements Contractor.
func (c *Fwdbwd) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	if b.IsEmpty() {
		return Empty
	}
	f := c.f
	tr := make(expr.Trace, f.Len())
	f.ForwardInto(*b, tr)

	last := f.Len() - 1
	tr[last] = tr[last].Intersect(c.target)
	if tr[last].IsEmpty() {
		b.SetEmpty()
		return Empty
	}

	var buf [2]interval.Interval
	for i := last; i >= 0; i-- {
		pos := f.ArgPositions(i)
		if len(pos) == 0 {
			continue
		}
		args := buf[:len(pos)]
		for k, p := range pos {
			args[k] = tr[p]
		}
		if !f.Node(i).Backward(tr[i], args) {
			b.SetEmpty()
			return Empty
		}
		for k, p := range pos {
			tr[p] = tr[p].Intersect(args[k])
			if tr[p].IsEmpty() {
				b.SetEmpty()
				return Empty
			}
		}
	}

	for i := 0; i <= last; i++ {
		n := f.Node(i)
		if n.Op() != expr.OpVar {
			continue
		}
		x := b.At(n.Index()).Intersect(tr[i])
		if x.IsEmpty() {
			b.SetEmpty()
			return Empty
		}
		b.Set(n.Index(), x)
	}
	return Contracted
}

func (c *Fwdbwd) Input() VarSet  { return c.input }
func (c *Fwdbwd) Output() VarSet { return c.input }
func (c *Fwdbwd) Dim() int       { return c.f.NumVars() }

func (c *Fwdbwd) String() string {
	return fmt.Sprintf("fwdbwd(%v ∈ %v)", c.f, c.target)
}
