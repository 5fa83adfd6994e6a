package prune

import (
	"fmt"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// OutputKind classifies a box reported by the Solver.
type OutputKind uint8

const (
	// Solution: the box contains a solution. For systems with equations,
	// Existence encloses one and, when Params is not empty, it exists for
	// the parameters fixed at their value in Existence.
	Solution OutputKind = iota
	// Boundary: the box contains a solution of the equations that may lie
	// on the boundary of an inequality.
	Boundary
	// Unknown: the box reached the precision without being decided.
	Unknown
	// Pending: the box was still in the buffer when the search stopped.
	Pending
)

func (k OutputKind) String() string {
	switch k {
	case Solution:
		return "solution"
	case Boundary:
		return "boundary"
	case Unknown:
		return "unknown"
	case Pending:
		return "pending"
	}
	return fmt.Sprintf("OutputKind(%d)", int(k))
}

// ParseOutputKind is the inverse of OutputKind.String.
func ParseOutputKind(s string) (OutputKind, error) {
	for k := Solution; k <= Pending; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("prune: unknown output kind %q: %w", s, ErrInvalidParameter)
}

// Output is a box reported by the Solver.
type Output struct {
	Kind OutputKind
	Box  interval.Box
	// Existence is the box proven to contain a solution. It is only set on
	// certified outputs of systems with equations.
	Existence interval.Box
	// Params lists the variables fixed to prove existence in an
	// under-determined system.
	Params VarSet
}

// Certified reports whether the output carries an existence proof.
func (o Output) Certified() bool { return o.Existence.Size() > 0 && !o.Existence.IsEmpty() }

func (o Output) String() string {
	s := fmt.Sprintf("%v %v", o.Kind, o.Box)
	if o.Certified() && !o.Existence.Equal(o.Box) {
		s += fmt.Sprintf(" exists in %v", o.Existence)
	}
	if !o.Params.Empty() {
		s += fmt.Sprintf(" params %v", o.Params)
	}
	return s
}

// Status is the termination status of a Solver run.
type Status int

const (
	// Success: the search completed and every output is a solution or a
	// boundary box.
	Success Status = iota
	// InfeasibleProblem: the search completed without any output.
	InfeasibleProblem
	// NotAllValidated: the search completed with unknown boxes.
	NotAllValidated
	// Timeout: Config.Timeout elapsed.
	Timeout
	// CellOverflow: Config.CellLimit cells were created.
	CellOverflow
	// SolutionLimit: Config.SolutionLimit solutions were found.
	SolutionLimit
	// Cancelled: the context was cancelled.
	Cancelled
	// Running: the search has not terminated.
	Running
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case InfeasibleProblem:
		return "infeasible"
	case NotAllValidated:
		return "not-all-validated"
	case Timeout:
		return "timeout"
	case CellOverflow:
		return "cell-overflow"
	case SolutionLimit:
		return "solution-limit"
	case Cancelled:
		return "cancelled"
	case Running:
		return "running"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Complete reports whether the search explored the whole initial box.
func (s Status) Complete() bool {
	return s == Success || s == InfeasibleProblem || s == NotAllValidated
}
