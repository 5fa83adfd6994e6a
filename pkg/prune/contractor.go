// Package prune implements the contractor algebra and the branch-and-prune
// search engines built on top of it.
//
// A Contractor narrows a box without losing any point that satisfies the
// constraint it stands for:
//
//	{x ∈ box : constraint(x)} ⊆ Contract(box) ⊆ box
//
// Contractors compose: Compo applies a sequence, Fixpoint iterates until the
// box stops shrinking, Propagation schedules many contractors by the
// variables they read and write, Exist and ForAll quantify a block of
// parameters, QInter tolerates outliers among m contractors and Newton
// applies a preconditioned interval Newton step to square systems.
//
// The search side is made of Cells (a box plus per-search bookkeeping), a
// Bisector that splits them, a CellBuffer that orders pending cells, and two
// engines: Solver, which encloses every solution of a system of equations
// and inequalities, and Optimizer, which brackets the global minimum of an
// objective between a proven lower bound and the value at a proven-feasible
// point.
//
// Infeasibility is not an error: Contract reports an Outcome, and cells
// proven empty are silently discarded. Only configuration mistakes (returned
// by constructors) and resource limits (reported as a status) reach the
// caller.
package prune

import (
	"errors"
	"fmt"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

var (
	// ErrDimensionMismatch reports a contractor, box or system of
	// inconsistent dimensions.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidParameter reports an out-of-range numeric setting.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Outcome is the result of a contraction.
type Outcome int

const (
	// Contracted means the box was narrowed (possibly not at all) and is
	// not empty.
	Contracted Outcome = iota
	// Empty means the box was proven to contain no solution. The box has
	// been set to the empty box.
	Empty
)

func (o Outcome) String() string {
	if o == Empty {
		return "empty"
	}
	return "contracted"
}

// Contractor narrows boxes soundly.
//
// Contract must never remove a point that satisfies the constraint the
// contractor represents and never enlarge the box. It returns Empty, with
// the box emptied, once infeasibility is proven. Contract panics with
// ErrDimensionMismatch when the box does not have Dim() components.
//
// Input and Output list the variables the contractor reads and may narrow;
// schedulers use them to decide what to run again after a change.
type Contractor interface {
	Contract(b *interval.Box) Outcome
	Input() VarSet
	Output() VarSet
	Dim() int
}

func checkDim(c Contractor, b *interval.Box) {
	if b.Size() != c.Dim() {
		panic(fmt.Errorf("prune: %T on a box of dimension %d, want %d: %w", c, b.Size(), c.Dim(), ErrDimensionMismatch))
	}
}

// result turns the emptiness of b into an Outcome.
func result(b *interval.Box) Outcome {
	if b.IsEmpty() {
		return Empty
	}
	return Contracted
}

// sameDim checks that every contractor has dimension n.
func sameDim(n int, cs []Contractor) error {
	for i, c := range cs {
		if c == nil {
			return fmt.Errorf("prune: contractor %d is nil: %w", i, ErrInvalidParameter)
		}
		if c.Dim() != n {
			return fmt.Errorf("prune: contractor %d has dimension %d, want %d: %w", i, c.Dim(), n, ErrDimensionMismatch)
		}
	}
	return nil
}

// Identity leaves every box unchanged.
type Identity struct {
	n int
}

// NewIdentity returns the identity contractor on n variables.
func NewIdentity(n int) *Identity { return &Identity{n: n} }

// Contract implements Contractor.
func (c *Identity) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	return result(b)
}

func (c *Identity) Input() VarSet  { return NewVarSet() }
func (c *Identity) Output() VarSet { return NewVarSet() }
func (c *Identity) Dim() int       { return c.n }
