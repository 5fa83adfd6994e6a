package expr

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

func box(bounds ...float64) interval.Box {
	itv := make([]interval.Interval, len(bounds)/2)
	for i := range itv {
		itv[i] = interval.New(bounds[2*i], bounds[2*i+1])
	}
	return interval.BoxOf(itv...)
}

func TestCompileOrdersSharedNodes(t *testing.T) {
	x, y := Var(0), Var(1)
	s := Add(x, y)
	f, err := Compile(Mul(s, s), 2)
	require.NoError(t, err)
	// x, y, s, s*s
	assert.Equal(t, 4, f.Len())
	assert.Equal(t, OpMul, f.Node(f.Len()-1).Op())
	assert.Equal(t, []int{2, 2}, f.ArgPositions(3))
	assert.Equal(t, []int{0, 1}, f.Input())
}

func TestCompileRejectsOutOfRangeVariable(t *testing.T) {
	_, err := Compile(Add(Var(0), Var(3)), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVariableRange)
}

func TestForwardTrace(t *testing.T) {
	f := MustCompile(Sub(Sqr(Var(0)), Var(1)), 2)
	tr := f.Forward(box(1, 2, 0, 1))
	assert.True(t, tr.Root().Equal(interval.New(0, 4)), "got %v", tr.Root())

	empty := f.Forward(interval.EmptyBox(2))
	assert.True(t, empty.Root().IsEmpty())
}

func TestEvalPoint(t *testing.T) {
	f, err := ParseFunction("x*y + exp(0) - pow(x, 3)", []string{"x", "y"})
	require.NoError(t, err)
	v := f.EvalPoint([]float64{2, 5})
	assert.True(t, v.Contains(2*5+1-8), "got %v", v)
	assert.Less(t, v.Diam(), 1e-12)
}

func TestGradient(t *testing.T) {
	vars := []string{"x", "y", "z"}
	tests := []struct {
		src  string
		pt   []float64
		want []float64
	}{
		{"x*y + sin(x)", []float64{0.5, 2, 0}, []float64{2 + math.Cos(0.5), 0.5, 0}},
		{"sqr(x) / y", []float64{3, 2, 0}, []float64{3, -9.0 / 4, 0}},
		{"exp(x) * log(z)", []float64{0, 0, 2}, []float64{math.Log(2), 0, 0.5}},
		{"pow(x, 3) - sqrt(z)", []float64{2, 0, 4}, []float64{12, 0, -0.25}},
		{"cos(y) + abs(x)", []float64{-1, 1, 0}, []float64{-1, -math.Sin(1), 0}},
		{"min(x, y) + max(x, z)", []float64{1, 2, 3}, []float64{1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := ParseFunction(tt.src, vars)
			require.NoError(t, err)
			g := f.Gradient(interval.PointBox(tt.pt))
			require.Len(t, g, 3)
			for i, w := range tt.want {
				assert.True(t, g[i].Contains(w), "∂%d: %v ∌ %g", i, g[i], w)
				assert.Less(t, g[i].Diam(), 1e-9)
			}
		})
	}
}

// TestGradientEnclosesFiniteDifferences compares the interval gradient over
// a small box with central differences at its center.
func TestGradientEnclosesFiniteDifferences(t *testing.T) {
	f, err := ParseFunction("sqr(x) + x*y - exp(y/4)", []string{"x", "y"})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(5))
	for k := 0; k < 50; k++ {
		c := []float64{rng.Float64()*4 - 2, rng.Float64()*4 - 2}
		b := box(c[0]-0.01, c[0]+0.01, c[1]-0.01, c[1]+0.01)
		g := f.Gradient(b)
		const h = 1e-6
		for i := range c {
			up := append([]float64(nil), c...)
			dn := append([]float64(nil), c...)
			up[i] += h
			dn[i] -= h
			fd := (f.EvalPoint(up).Mid() - f.EvalPoint(dn).Mid()) / (2 * h)
			assert.True(t, g[i].Contains(fd), "∂%d at %v: %v ∌ %g", i, c, g[i], fd)
		}
	}
}

func TestBackwardNarrowsArguments(t *testing.T) {
	n := Add(Var(0), Var(1))
	args := []interval.Interval{interval.New(0, 10), interval.New(0, 10)}
	require.True(t, n.Backward(interval.New(0, 1), args))
	assert.True(t, args[0].Equal(interval.New(0, 1)))
	assert.True(t, args[1].Equal(interval.New(0, 1)))

	assert.False(t, n.Backward(interval.New(30, 40), args))
	assert.True(t, args[0].IsEmpty())
}

func TestParse(t *testing.T) {
	vars := []string{"x", "y"}
	tests := []struct {
		src  string
		pt   []float64
		want float64
	}{
		{"x + 2*y", []float64{1, 3}, 7},
		{"-(x - y) / 2", []float64{1, 3}, 1},
		{"sqr(x) + sqrt(y)", []float64{3, 4}, 11},
		{"pow(x, -2)", []float64{2, 0}, 0.25},
		{"2 * pi", []float64{0, 0}, 2 * math.Pi},
		{"min(x, y) * max(x, y)", []float64{2, 3}, 6},
		{"0.1 * 10", []float64{0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := ParseFunction(tt.src, vars)
			require.NoError(t, err)
			v := f.EvalPoint(tt.pt)
			assert.True(t, v.Contains(tt.want), "%v ∌ %g", v, tt.want)
		})
	}
}

func TestParseErrors(t *testing.T) {
	vars := []string{"x"}
	for _, src := range []string{
		"x +",
		"y * 2",
		"foo(x)",
		"pow(x, 1.5)",
		"sqrt(x, x)",
		"x % 2",
		"'text'",
	} {
		_, err := Parse(src, vars)
		assert.ErrorIs(t, err, ErrSyntax, src)
	}
}

func TestParseConstraint(t *testing.T) {
	vars := []string{"x", "y"}
	c, err := ParseConstraint("sqr(x) + sqr(y) == 1", vars)
	require.NoError(t, err)
	assert.Equal(t, EQ, c.Op)
	assert.True(t, c.Target().Equal(interval.Point(0)))

	c, err = ParseConstraint("x <= y", vars)
	require.NoError(t, err)
	assert.Equal(t, LEQ, c.Op)
	certain, possible := c.Holds(box(0, 1, 2, 3))
	assert.True(t, certain)
	assert.True(t, possible)
	certain, possible = c.Holds(box(0, 3, 2, 3))
	assert.False(t, certain)
	assert.True(t, possible)
	_, possible = c.Holds(box(5, 6, 2, 3))
	assert.False(t, possible)

	c, err = ParseConstraint("x > 0", vars)
	require.NoError(t, err)
	certain, _ = c.Holds(box(0, 1, 0, 0))
	assert.False(t, certain)

	_, err = ParseConstraint("x + y", vars)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseSystem(t *testing.T) {
	b := box(-10, 10, -10, 10)
	s, err := ParseSystem([]string{"x", "y"}, b,
		[]string{"sqr(x) + sqr(y) == 1", "x >= 0"}, "x + y")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Dim())
	assert.Len(t, s.Equalities(), 1)
	assert.Len(t, s.Inequalities(), 1)
	require.NotNil(t, s.Goal)
	assert.Contains(t, s.String(), "minimize")

	_, err = ParseSystem([]string{"x"}, b, nil, "")
	assert.Error(t, err)
}

func TestNodeString(t *testing.T) {
	n, err := Parse("sqr(x) + 0.5*pow(y, 3)", []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, "(sqr(x0) + (0.5 * pow(x1, 3)))", n.String())
}
