// Package expr provides the numeric expression graph consumed by the
// contractors of package prune.
//
// Expressions are directed acyclic graphs of Nodes built with the
// constructors of this package. Sub-expressions may be shared: building
// Add(s, Mul(s, s)) with the same s evaluates s once per pass.
//
// A graph is compiled into a Function, which fixes a topological order of
// its nodes. A Function offers the two contracts the propagation engine
// relies on:
//   - Forward evaluates every node over a box, bottom-up, and returns the
//     per-node intervals as a Trace;
//   - Node.Backward projects a target interval of one node onto the
//     intervals of its arguments.
//
// Interval gradients are computed by forward-mode differentiation over the
// same order. Constraints and whole systems (variables, initial box,
// constraints and an optional objective) are described by Constraint and
// System, and can be parsed from text with Parse.
package expr

import (
	"fmt"
	"strconv"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// Op identifies the operator of a Node.
type Op int

const (
	OpConst Op = iota
	OpVar
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpSqr
	OpSqrt
	OpPow
	OpExp
	OpLog
	OpSin
	OpCos
	OpAbs
	OpMin
	OpMax
)

var opNames = [...]string{
	OpConst: "const",
	OpVar:   "var",
	OpAdd:   "+",
	OpSub:   "-",
	OpMul:   "*",
	OpDiv:   "/",
	OpNeg:   "neg",
	OpSqr:   "sqr",
	OpSqrt:  "sqrt",
	OpPow:   "pow",
	OpExp:   "exp",
	OpLog:   "log",
	OpSin:   "sin",
	OpCos:   "cos",
	OpAbs:   "abs",
	OpMin:   "min",
	OpMax:   "max",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// Arity returns the number of arguments taken by the operator.
func (o Op) Arity() int {
	switch o {
	case OpConst, OpVar:
		return 0
	case OpAdd, OpSub, OpMul, OpDiv, OpMin, OpMax:
		return 2
	default:
		return 1
	}
}

// Node is a vertex of an expression graph. Nodes are immutable once built.
type Node struct {
	op    Op
	args  []*Node
	value interval.Interval // OpConst
	lit   string            // OpConst built from a literal
	index int               // OpVar
	exp   int               // OpPow
}

// Op returns the operator of n.
func (n *Node) Op() Op { return n.op }

// Args returns the argument nodes of n.
func (n *Node) Args() []*Node { return n.args }

// Index returns the variable index of a variable node.
func (n *Node) Index() int { return n.index }

// Value returns the enclosure held by a constant node.
func (n *Node) Value() interval.Interval { return n.value }

// Exponent returns the integer exponent of a power node.
func (n *Node) Exponent() int { return n.exp }

// Var returns the variable with index i.
func Var(i int) *Node {
	return &Node{op: OpVar, index: i}
}

// Vars returns the variables 0..n-1.
func Vars(n int) []*Node {
	out := make([]*Node, n)
	for i := range out {
		out[i] = Var(i)
	}
	return out
}

// Const returns a constant node. Non-integral values are enclosed by one ulp
// on each side, so that Const(0.1) contains the real 0.1.
func Const(v float64) *Node {
	return &Node{op: OpConst, value: interval.Around(v), lit: strconv.FormatFloat(v, 'g', -1, 64)}
}

// ConstInterval returns a constant node holding an interval.
func ConstInterval(x interval.Interval) *Node {
	return &Node{op: OpConst, value: x}
}

// Operator constructors.

func unary(op Op, x *Node) *Node        { return &Node{op: op, args: []*Node{x}} }
func binary(op Op, x, y *Node) *Node    { return &Node{op: op, args: []*Node{x, y}} }
func Add(x, y *Node) *Node              { return binary(OpAdd, x, y) }
func Sub(x, y *Node) *Node              { return binary(OpSub, x, y) }
func Mul(x, y *Node) *Node              { return binary(OpMul, x, y) }
func Div(x, y *Node) *Node              { return binary(OpDiv, x, y) }
func Min(x, y *Node) *Node              { return binary(OpMin, x, y) }
func Max(x, y *Node) *Node              { return binary(OpMax, x, y) }
func Neg(x *Node) *Node                 { return unary(OpNeg, x) }
func Sqr(x *Node) *Node                 { return unary(OpSqr, x) }
func Sqrt(x *Node) *Node                { return unary(OpSqrt, x) }
func Exp(x *Node) *Node                 { return unary(OpExp, x) }
func Log(x *Node) *Node                 { return unary(OpLog, x) }
func Sin(x *Node) *Node                 { return unary(OpSin, x) }
func Cos(x *Node) *Node                 { return unary(OpCos, x) }
func Abs(x *Node) *Node                 { return unary(OpAbs, x) }
func Pow(x *Node, n int) *Node          { return &Node{op: OpPow, args: []*Node{x}, exp: n} }
func AddConst(x *Node, c float64) *Node { return Add(x, Const(c)) }

// Sum folds terms with Add. Sum() is the constant 0.
func Sum(terms ...*Node) *Node {
	if len(terms) == 0 {
		return Const(0)
	}
	s := terms[0]
	for _, t := range terms[1:] {
		s = Add(s, t)
	}
	return s
}

// Forward evaluates the operator of n over the intervals of its arguments.
// Constant and variable nodes are leaves and are not evaluated here.
func (n *Node) Forward(args []interval.Interval) interval.Interval {
	switch n.op {
	case OpConst:
		return n.value
	case OpAdd:
		return interval.Add(args[0], args[1])
	case OpSub:
		return interval.Sub(args[0], args[1])
	case OpMul:
		return interval.Mul(args[0], args[1])
	case OpDiv:
		return interval.Div(args[0], args[1])
	case OpMin:
		return interval.Min(args[0], args[1])
	case OpMax:
		return interval.Max(args[0], args[1])
	case OpNeg:
		return interval.Neg(args[0])
	case OpSqr:
		return interval.Sqr(args[0])
	case OpSqrt:
		return interval.Sqrt(args[0])
	case OpPow:
		return interval.Pow(args[0], n.exp)
	case OpExp:
		return interval.Exp(args[0])
	case OpLog:
		return interval.Log(args[0])
	case OpSin:
		return interval.Sin(args[0])
	case OpCos:
		return interval.Cos(args[0])
	case OpAbs:
		return interval.Abs(args[0])
	}
	panic(fmt.Sprintf("expr: forward evaluation of %v", n.op))
}

// Backward narrows args in place to the values still compatible with
// n(args) ∈ y. It returns false, with every argument empty, when no value
// is left.
func (n *Node) Backward(y interval.Interval, args []interval.Interval) bool {
	switch n.op {
	case OpConst, OpVar:
		return !y.IsEmpty()
	case OpAdd:
		return interval.BwdAdd(y, &args[0], &args[1])
	case OpSub:
		return interval.BwdSub(y, &args[0], &args[1])
	case OpMul:
		return interval.BwdMul(y, &args[0], &args[1])
	case OpDiv:
		return interval.BwdDiv(y, &args[0], &args[1])
	case OpMin:
		return interval.BwdMin(y, &args[0], &args[1])
	case OpMax:
		return interval.BwdMax(y, &args[0], &args[1])
	case OpNeg:
		return interval.BwdNeg(y, &args[0])
	case OpSqr:
		return interval.BwdSqr(y, &args[0])
	case OpSqrt:
		return interval.BwdSqrt(y, &args[0])
	case OpPow:
		return interval.BwdPow(y, &args[0], n.exp)
	case OpExp:
		return interval.BwdExp(y, &args[0])
	case OpLog:
		return interval.BwdLog(y, &args[0])
	case OpSin:
		return interval.BwdSin(y, &args[0])
	case OpCos:
		return interval.BwdCos(y, &args[0])
	case OpAbs:
		return interval.BwdAbs(y, &args[0])
	}
	panic(fmt.Sprintf("expr: backward projection of %v", n.op))
}

// String renders n in infix form with variables named x0, x1, ...
func (n *Node) String() string {
	return n.format(func(i int) string { return "x" + strconv.Itoa(i) })
}

func (n *Node) format(name func(int) string) string {
	switch n.op {
	case OpConst:
		if n.lit != "" {
			return n.lit
		}
		if n.value.Equal(interval.Pi()) {
			return "pi"
		}
		return n.value.String()
	case OpVar:
		return name(n.index)
	case OpAdd, OpSub, OpMul, OpDiv:
		return "(" + n.args[0].format(name) + " " + n.op.String() + " " + n.args[1].format(name) + ")"
	case OpNeg:
		return "-" + n.args[0].format(name)
	case OpPow:
		return "pow(" + n.args[0].format(name) + ", " + strconv.Itoa(n.exp) + ")"
	case OpMin, OpMax:
		return n.op.String() + "(" + n.args[0].format(name) + ", " + n.args[1].format(name) + ")"
	}
	return n.op.String() + "(" + n.args[0].format(name) + ")"
}
