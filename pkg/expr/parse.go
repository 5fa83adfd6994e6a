package expr

import (
	"errors"
	"fmt"
	"math/big"

	"go.starlark.net/syntax"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("syntax error")

// Parse reads an arithmetic expression over the named variables. The
// grammar is the expression subset of Starlark restricted to:
//
//	+ - * /, unary minus, parentheses, numeric literals, pi,
//	sqr(e) sqrt(e) pow(e, n) exp(e) log(e) sin(e) cos(e) abs(e)
//	min(e, e) max(e, e)
//
// where n is an integer literal. Decimal literals are enclosed outward.
func Parse(src string, vars []string) (*Node, error) {
	e, err := syntax.ParseExpr("expr", src, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return newBuilder(vars).build(e)
}

// ParseFunction parses and compiles an expression.
func ParseFunction(src string, vars []string) (*Function, error) {
	n, err := Parse(src, vars)
	if err != nil {
		return nil, err
	}
	return Compile(n, len(vars))
}

// ParseConstraint reads "lhs op rhs" with op one of == <= >= < > and
// returns the constraint lhs - rhs op 0.
func ParseConstraint(src string, vars []string) (Constraint, error) {
	e, err := syntax.ParseExpr("constraint", src, 0)
	if err != nil {
		return Constraint{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	bin, ok := e.(*syntax.BinaryExpr)
	if !ok {
		return Constraint{}, syntaxErr(e, "constraint needs a comparison")
	}
	var op CmpOp
	switch bin.Op {
	case syntax.EQL:
		op = EQ
	case syntax.LE:
		op = LEQ
	case syntax.GE:
		op = GEQ
	case syntax.LT:
		op = LT
	case syntax.GT:
		op = GT
	default:
		return Constraint{}, syntaxErr(e, "constraint needs a comparison, got %v", bin.Op)
	}
	b := newBuilder(vars)
	lhs, err := b.build(bin.X)
	if err != nil {
		return Constraint{}, err
	}
	rhs, err := b.build(bin.Y)
	if err != nil {
		return Constraint{}, err
	}
	f := lhs
	if !isZero(rhs) {
		f = Sub(lhs, rhs)
	}
	fn, err := Compile(f, len(vars))
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{F: fn, Op: op}, nil
}

// ParseSystem builds a System from textual constraints and an optional
// objective ("" for none).
func ParseSystem(vars []string, box interval.Box, constraints []string, goal string) (*System, error) {
	s := &System{Vars: vars, Box: box}
	for _, src := range constraints {
		c, err := ParseConstraint(src, vars)
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", src, err)
		}
		s.Constraints = append(s.Constraints, c)
	}
	if goal != "" {
		g, err := ParseFunction(goal, vars)
		if err != nil {
			return nil, fmt.Errorf("objective %q: %w", goal, err)
		}
		s.Goal = g
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func isZero(n *Node) bool {
	return n.op == OpConst && n.value.IsDegenerate() && n.value.Lo() == 0
}

func syntaxErr(e syntax.Expr, format string, args ...any) error {
	start, _ := e.Span()
	return fmt.Errorf("%w: %d:%d: %s", ErrSyntax, start.Line, start.Col, fmt.Sprintf(format, args...))
}

type builder struct {
	index map[string]int
	nodes map[string]*Node
}

func newBuilder(vars []string) *builder {
	b := &builder{index: make(map[string]int, len(vars)), nodes: make(map[string]*Node)}
	for i, v := range vars {
		b.index[v] = i
	}
	return b
}

var unaryFuncs = map[string]func(*Node) *Node{
	"sqr":  Sqr,
	"sqrt": Sqrt,
	"exp":  Exp,
	"log":  Log,
	"sin":  Sin,
	"cos":  Cos,
	"abs":  Abs,
}

var binaryFuncs = map[string]func(*Node, *Node) *Node{
	"min": Min,
	"max": Max,
}

func (b *builder) build(e syntax.Expr) (*Node, error) {
	switch e := e.(type) {
	case *syntax.ParenExpr:
		return b.build(e.X)
	case *syntax.Literal:
		switch v := e.Value.(type) {
		case int64:
			return Const(float64(v)), nil
		case float64:
			return Const(v), nil
		case *big.Int:
			f, _ := new(big.Float).SetInt(v).Float64()
			return Const(f), nil
		}
		return nil, syntaxErr(e, "unsupported literal %s", e.Raw)
	case *syntax.Ident:
		if n, ok := b.nodes[e.Name]; ok {
			return n, nil
		}
		if i, ok := b.index[e.Name]; ok {
			n := Var(i)
			b.nodes[e.Name] = n
			return n, nil
		}
		if e.Name == "pi" {
			return ConstInterval(interval.Pi()), nil
		}
		return nil, syntaxErr(e, "unknown identifier %q", e.Name)
	case *syntax.UnaryExpr:
		x, err := b.build(e.X)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case syntax.MINUS:
			return Neg(x), nil
		case syntax.PLUS:
			return x, nil
		}
		return nil, syntaxErr(e, "unsupported operator %v", e.Op)
	case *syntax.BinaryExpr:
		x, err := b.build(e.X)
		if err != nil {
			return nil, err
		}
		y, err := b.build(e.Y)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case syntax.PLUS:
			return Add(x, y), nil
		case syntax.MINUS:
			return Sub(x, y), nil
		case syntax.STAR:
			return Mul(x, y), nil
		case syntax.SLASH:
			return Div(x, y), nil
		}
		return nil, syntaxErr(e, "unsupported operator %v", e.Op)
	case *syntax.CallExpr:
		return b.call(e)
	}
	return nil, syntaxErr(e, "unsupported expression")
}

func (b *builder) call(e *syntax.CallExpr) (*Node, error) {
	fn, ok := e.Fn.(*syntax.Ident)
	if !ok {
		return nil, syntaxErr(e, "call of a non-function")
	}
	name := fn.Name
	switch {
	case unaryFuncs[name] != nil:
		if len(e.Args) != 1 {
			return nil, syntaxErr(e, "%s takes 1 argument, got %d", name, len(e.Args))
		}
		x, err := b.build(e.Args[0])
		if err != nil {
			return nil, err
		}
		return unaryFuncs[name](x), nil
	case binaryFuncs[name] != nil:
		if len(e.Args) != 2 {
			return nil, syntaxErr(e, "%s takes 2 arguments, got %d", name, len(e.Args))
		}
		x, err := b.build(e.Args[0])
		if err != nil {
			return nil, err
		}
		y, err := b.build(e.Args[1])
		if err != nil {
			return nil, err
		}
		return binaryFuncs[name](x, y), nil
	case name == "pow":
		if len(e.Args) != 2 {
			return nil, syntaxErr(e, "pow takes 2 arguments, got %d", len(e.Args))
		}
		n, ok := intLiteral(e.Args[1])
		if !ok {
			return nil, syntaxErr(e.Args[1], "pow exponent must be an integer literal")
		}
		x, err := b.build(e.Args[0])
		if err != nil {
			return nil, err
		}
		return Pow(x, n), nil
	}
	return nil, syntaxErr(e, "unknown function %q", name)
}

func intLiteral(e syntax.Expr) (int, bool) {
	switch e := e.(type) {
	case *syntax.Literal:
		v, ok := e.Value.(int64)
		return int(v), ok
	case *syntax.UnaryExpr:
		if e.Op == syntax.MINUS {
			v, ok := intLiteral(e.X)
			return -v, ok
		}
	case *syntax.ParenExpr:
		return intLiteral(e.X)
	}
	return 0, false
}
