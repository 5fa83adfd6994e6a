package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// CmpOp is the relation of a constraint F(x) op 0.
type CmpOp int

const (
	EQ CmpOp = iota
	LEQ
	GEQ
	LT
	GT
)

func (c CmpOp) String() string {
	switch c {
	case EQ:
		return "="
	case LEQ:
		return "<="
	case GEQ:
		return ">="
	case LT:
		return "<"
	case GT:
		return ">"
	}
	return fmt.Sprintf("CmpOp(%d)", int(c))
}

// Constraint states F(x) op 0.
type Constraint struct {
	F  *Function
	Op CmpOp
}

// Target returns the set of values of F allowed by the constraint. Strict
// inequalities are relaxed to their closure.
func (c Constraint) Target() interval.Interval {
	switch c.Op {
	case LEQ, LT:
		return interval.NegHalf()
	case GEQ, GT:
		return interval.Pos()
	}
	return interval.Point(0)
}

// IsEquality reports whether c is an equation.
func (c Constraint) IsEquality() bool { return c.Op == EQ }

// Holds evaluates c over b: certainly true when F(b) lies within the target
// (strictly for strict inequalities), possibly true when they meet.
func (c Constraint) Holds(b interval.Box) (certain, possible bool) {
	y := c.F.Eval(b)
	if y.IsEmpty() {
		return false, false
	}
	t := c.Target()
	possible = y.Overlaps(t)
	switch c.Op {
	case LT:
		certain = y.Hi() < 0
	case GT:
		certain = y.Lo() > 0
	default:
		certain = y.Subset(t)
	}
	return certain, possible
}

func (c Constraint) String() string {
	return fmt.Sprintf("%v %v 0", c.F, c.Op)
}

// System is a numerical problem: variables with an initial box, constraints
// and an optional objective to minimize.
type System struct {
	Vars        []string
	Box         interval.Box
	Constraints []Constraint
	Goal        *Function
}

// Dim returns the number of variables.
func (s *System) Dim() int { return len(s.Vars) }

// Equalities returns the equations of s in order.
func (s *System) Equalities() []Constraint {
	var out []Constraint
	for _, c := range s.Constraints {
		if c.IsEquality() {
			out = append(out, c)
		}
	}
	return out
}

// Inequalities returns the inequalities of s in order.
func (s *System) Inequalities() []Constraint {
	var out []Constraint
	for _, c := range s.Constraints {
		if !c.IsEquality() {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that every function is defined on s.Dim() variables and
// that the initial box has the right dimension.
func (s *System) Validate() error {
	n := s.Dim()
	if n == 0 {
		return errors.New("expr: system has no variables")
	}
	if s.Box.Size() != n {
		return fmt.Errorf("expr: initial box of dimension %d for %d variables", s.Box.Size(), n)
	}
	for i, c := range s.Constraints {
		if c.F == nil {
			return fmt.Errorf("expr: constraint %d has no function", i)
		}
		if c.F.NumVars() != n {
			return fmt.Errorf("expr: constraint %d defined on %d variables, system has %d", i, c.F.NumVars(), n)
		}
	}
	if s.Goal != nil && s.Goal.NumVars() != n {
		return fmt.Errorf("expr: objective defined on %d variables, system has %d", s.Goal.NumVars(), n)
	}
	return nil
}

func (s *System) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "variables %s in %v\n", strings.Join(s.Vars, ", "), s.Box)
	if s.Goal != nil {
		fmt.Fprintf(&sb, "minimize %v\n", s.Goal)
	}
	for _, c := range s.Constraints {
		fmt.Fprintf(&sb, "  %v\n", c)
	}
	return sb.String()
}
