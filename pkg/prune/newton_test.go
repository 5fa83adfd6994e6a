package prune

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

func equations(t *testing.T, srcs ...string) []expr.Constraint {
	t.Helper()
	out := make([]expr.Constraint, len(srcs))
	for i, src := range srcs {
		c, err := expr.ParseConstraint(src, xy)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

var circles = []string{"sqr(x) + sqr(y) == 1", "sqr(x - 1) + sqr(y) == 1"}

func TestNewtonSolvesLinearSystem(t *testing.T) {
	n, err := NewNewton(equations(t, "x - y - 1 == 0", "x + y - 5 == 0"), 100)
	require.NoError(t, err)
	b := box(1, 5, 0, 4)
	require.Equal(t, Contracted, n.Contract(&b))
	assert.True(t, b.Contains([]float64{3, 2}))
	assert.Less(t, b.MaxDiam(), 1e-9, "%v", b)
}

func TestNewtonConvergesQuadratically(t *testing.T) {
	n, err := NewNewton(equations(t, circles...), DefaultNewtonCeil)
	require.NoError(t, err)
	sol := []float64{0.5, math.Sqrt(3) / 2}
	b := box(sol[0]-0.003, sol[0]+0.002, sol[1]-0.002, sol[1]+0.003)
	require.Equal(t, Contracted, n.Contract(&b))
	assert.True(t, b.Contains(sol), "%v", b)
	assert.Less(t, b.MaxDiam(), 1e-4)

	require.Equal(t, Contracted, n.Contract(&b))
	assert.True(t, b.Contains(sol))
	assert.Less(t, b.MaxDiam(), 1e-8)
}

func TestNewtonProvesEmpty(t *testing.T) {
	n, err := NewNewton(equations(t, circles...), DefaultNewtonCeil)
	require.NoError(t, err)
	b := box(0.6, 0.605, 0.6, 0.605)
	assert.Equal(t, Empty, n.Contract(&b))
}

func TestNewtonSkipsWideAndSingularBoxes(t *testing.T) {
	n, err := NewNewton(equations(t, circles...), DefaultNewtonCeil)
	require.NoError(t, err)
	wide := box(0, 1, 0, 1)
	require.Equal(t, Contracted, n.Contract(&wide))
	assert.True(t, wide.Equal(box(0, 1, 0, 1)))

	tangent, err := NewNewton(equations(t, "sqr(x) + sqr(y) == 1", "sqr(x - 2) + sqr(y) == 1"), DefaultNewtonCeil)
	require.NoError(t, err)
	b := box(0.999, 1.001, -0.001, 0.001)
	require.Equal(t, Contracted, tangent.Contract(&b))
	assert.True(t, b.Equal(box(0.999, 1.001, -0.001, 0.001)))
}

func TestNewtonRejectsNonSquareSystems(t *testing.T) {
	_, err := NewNewton(equations(t, "x + y == 1"), 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = NewNewton(equations(t, "x + y == 1", "x - y <= 0"), 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewNewton(nil, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestCertifierSquare(t *testing.T) {
	c, err := NewCertifier(equations(t, circles...), 2, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, c.Square())

	sol := []float64{0.5, -math.Sqrt(3) / 2}
	b := box(sol[0]-1e-6, sol[0]+1e-6, sol[1]-1e-6, sol[1]+1e-6)
	cert, ok := c.Certify(b)
	require.True(t, ok)
	assert.True(t, cert.Existence.Inflate(1, 1e-15).Contains(sol), "%v", cert.Existence)
	assert.True(t, cert.Existence.Subset(cert.Unicity))
	assert.True(t, cert.Params.Empty())
	assert.Less(t, cert.Existence.MaxDiam(), 1e-9)
}

func TestCertifierFailsOnSingularJacobian(t *testing.T) {
	c, err := NewCertifier(equations(t, "sqr(x) + sqr(y) == 1", "sqr(x - 2) + sqr(y) == 1"), 2, DefaultConfig())
	require.NoError(t, err)
	_, ok := c.Certify(box(1, 1, 0, 0))
	assert.False(t, ok)
	_, ok = c.Certify(interval.NewBox(2))
	assert.False(t, ok)
}

func TestCertifierUnderdetermined(t *testing.T) {
	c, err := NewCertifier(equations(t, "sqr(x) + sqr(y) == 1"), 2, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, c.Square())

	// Near (0.6, 0.8) the Jacobian (1.2, 1.6) pivots on y: x is fixed.
	b := box(0.6-1e-7, 0.6+1e-7, 0.8-1e-7, 0.8+1e-7)
	cert, ok := c.Certify(b)
	require.True(t, ok)
	assert.Equal(t, []int{0}, cert.Params.Indices())
	assert.True(t, cert.Existence.At(0).IsDegenerate())
	assert.True(t, cert.Existence.Subset(b), "%v", cert.Existence)
}

func TestPivotColumns(t *testing.T) {
	A := imatrix{
		{interval.Point(1), interval.Point(5), interval.Point(0)},
		{interval.Point(2), interval.Point(1), interval.Point(0)},
	}
	cols, err := pivotColumns(A)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, cols)

	_, err = pivotColumns(imatrix{{interval.Point(1), interval.Point(2)}, {interval.Point(2), interval.Point(4)}})
	assert.Error(t, err)
}
