package expr

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// ErrVariableRange is returned by Compile when a variable index lies
// outside [0, nvars).
var ErrVariableRange = errors.New("variable index out of range")

// Function is a compiled expression graph over nvars variables. Nodes are
// stored in topological order with the root last; argument references are
// positions in that order. A Function is read-only after Compile and may be
// shared by concurrent callers.
type Function struct {
	nodes []*Node
	args  [][]int
	nvars int
	input []int
	root  *Node
}

// Trace holds the interval computed for each node of a Function, indexed
// by position.
type Trace []interval.Interval

// Root returns the interval of the root node.
func (t Trace) Root() interval.Interval { return t[len(t)-1] }

// Compile orders the DAG rooted at root. Shared sub-expressions are visited
// once.
func Compile(root *Node, nvars int) (*Function, error) {
	if root == nil {
		return nil, errors.New("expr: nil expression")
	}
	f := &Function{nvars: nvars, root: root}
	pos := make(map[*Node]int)
	used := make(map[int]bool)

	// Iterative post-order DFS.
	type frame struct {
		n    *Node
		next int
	}
	stack := []frame{{n: root}}
	onStack := map[*Node]bool{root: true}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.n.args) {
			child := top.n.args[top.next]
			top.next++
			if _, done := pos[child]; done {
				continue
			}
			if onStack[child] {
				return nil, errors.New("expr: cyclic expression")
			}
			onStack[child] = true
			stack = append(stack, frame{n: child})
			continue
		}
		n := top.n
		stack = stack[:len(stack)-1]
		delete(onStack, n)
		if n.op.Arity() != len(n.args) {
			return nil, fmt.Errorf("expr: %v expects %d arguments, got %d", n.op, n.op.Arity(), len(n.args))
		}
		if n.op == OpVar {
			if n.index < 0 || n.index >= nvars {
				return nil, fmt.Errorf("expr: x%d with %d variables: %w", n.index, nvars, ErrVariableRange)
			}
			used[n.index] = true
		}
		argPos := make([]int, len(n.args))
		for i, a := range n.args {
			argPos[i] = pos[a]
		}
		pos[n] = len(f.nodes)
		f.nodes = append(f.nodes, n)
		f.args = append(f.args, argPos)
	}
	for i := range used {
		f.input = append(f.input, i)
	}
	sort.Ints(f.input)
	return f, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// examples with literal expressions.
func MustCompile(root *Node, nvars int) *Function {
	f, err := Compile(root, nvars)
	if err != nil {
		panic(err)
	}
	return f
}

// NumVars returns the dimension of the boxes f is evaluated on.
func (f *Function) NumVars() int { return f.nvars }

// Len returns the number of nodes.
func (f *Function) Len() int { return len(f.nodes) }

// Node returns the node at position i.
func (f *Function) Node(i int) *Node { return f.nodes[i] }

// ArgPositions returns the positions of the arguments of node i.
func (f *Function) ArgPositions(i int) []int { return f.args[i] }

// Root returns the root node.
func (f *Function) Root() *Node { return f.root }

// Input returns the sorted indices of the variables read by f.
func (f *Function) Input() []int { return f.input }

func (f *Function) String() string { return f.root.String() }

// Forward evaluates every node over b. When b is empty the whole trace is
// empty.
func (f *Function) Forward(b interval.Box) Trace {
	t := make(Trace, len(f.nodes))
	f.ForwardInto(b, t)
	return t
}

// ForwardInto is Forward writing into a caller-provided trace of length
// Len().
func (f *Function) ForwardInto(b interval.Box, t Trace) {
	if b.IsEmpty() {
		for i := range t {
			t[i] = interval.Empty()
		}
		return
	}
	var buf [2]interval.Interval
	for i, n := range f.nodes {
		switch n.op {
		case OpVar:
			t[i] = b.At(n.index)
		case OpConst:
			t[i] = n.value
		default:
			in := buf[:len(f.args[i])]
			for k, p := range f.args[i] {
				in[k] = t[p]
			}
			t[i] = n.Forward(in)
		}
	}
}

// Eval returns an enclosure of the range of f over b.
func (f *Function) Eval(b interval.Box) interval.Interval {
	return f.Forward(b).Root()
}

// EvalPoint returns an enclosure of f(x).
func (f *Function) EvalPoint(x []float64) interval.Interval {
	return f.Eval(interval.PointBox(x))
}

// Gradient returns an enclosure of the gradient of f over b, one interval
// per variable; components for variables f does not read are [0, 0].
// Non-smooth operators (abs, min, max) contribute the hull of their
// one-sided derivatives.
func (f *Function) Gradient(b interval.Box) []interval.Interval {
	grad := make([]interval.Interval, f.nvars)
	for i := range grad {
		grad[i] = interval.Point(0)
	}
	if b.IsEmpty() {
		for i := range grad {
			grad[i] = interval.Empty()
		}
		return grad
	}
	nin := len(f.input)
	slot := make(map[int]int, nin)
	for k, v := range f.input {
		slot[v] = k
	}
	val := f.Forward(b)
	der := make([][]interval.Interval, len(f.nodes))
	zero := interval.Point(0)
	for i, n := range f.nodes {
		d := make([]interval.Interval, nin)
		switch n.op {
		case OpConst:
			for k := range d {
				d[k] = zero
			}
		case OpVar:
			for k := range d {
				d[k] = zero
			}
			d[slot[n.index]] = interval.Point(1)
		default:
			a := f.args[i]
			x := val[a[0]]
			dx := der[a[0]]
			var y interval.Interval
			var dy []interval.Interval
			if len(a) == 2 {
				y, dy = val[a[1]], der[a[1]]
			}
			for k := range d {
				d[k] = chain(n, x, y, val[i], dx[k], pick(dy, k))
			}
		}
		der[i] = d
	}
	for k, v := range f.input {
		grad[v] = der[len(der)-1][k]
	}
	return grad
}

func pick(d []interval.Interval, k int) interval.Interval {
	if d == nil {
		return interval.Point(0)
	}
	return d[k]
}

// chain applies the derivative rule of n: given argument values x, y, the
// node value v and argument derivatives dx, dy, it returns dv.
func chain(n *Node, x, y, v, dx, dy interval.Interval) interval.Interval {
	switch n.op {
	case OpAdd:
		return interval.Add(dx, dy)
	case OpSub:
		return interval.Sub(dx, dy)
	case OpMul:
		return interval.Add(interval.Mul(dx, y), interval.Mul(x, dy))
	case OpDiv:
		return interval.Div(interval.Sub(dx, interval.Mul(v, dy)), y)
	case OpNeg:
		return interval.Neg(dx)
	case OpSqr:
		return interval.Mul(interval.Scale(2, x), dx)
	case OpSqrt:
		return interval.Div(dx, interval.Scale(2, v))
	case OpPow:
		return interval.Mul(interval.Scale(float64(n.exp), interval.Pow(x, n.exp-1)), dx)
	case OpExp:
		return interval.Mul(v, dx)
	case OpLog:
		return interval.Div(dx, x)
	case OpSin:
		return interval.Mul(interval.Cos(x), dx)
	case OpCos:
		return interval.Neg(interval.Mul(interval.Sin(x), dx))
	case OpAbs:
		return interval.Mul(sign(x), dx)
	case OpMin:
		return selectDeriv(x, y, dx, dy)
	case OpMax:
		return selectDeriv(interval.Neg(x), interval.Neg(y), dx, dy)
	}
	panic(fmt.Sprintf("expr: derivative of %v", n.op))
}

func sign(x interval.Interval) interval.Interval {
	switch {
	case x.Lo() > 0:
		return interval.Point(1)
	case x.Hi() < 0:
		return interval.Point(-1)
	}
	return interval.New(-1, 1)
}

// selectDeriv is the derivative of min(x, y).
func selectDeriv(x, y, dx, dy interval.Interval) interval.Interval {
	switch {
	case x.Hi() < y.Lo():
		return dx
	case y.Hi() < x.Lo():
		return dy
	}
	return dx.Hull(dy)
}
