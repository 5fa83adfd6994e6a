package prune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

func TestExist(t *testing.T) {
	// ∃y ∈ [2, 3] : x = y
	eq := fwdbwd(t, xy, "x - y == 0")
	ex, err := NewExist(eq, NewVarSet(1), box(2, 3), 0.01)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ex.Input().Indices())

	b := box(0, 10, -100, 100)
	require.Equal(t, Contracted, ex.Contract(&b))
	assert.True(t, box(2, 3).Subset(b.Gather([]int{0})), "%v", b)
	assert.True(t, b.At(0).Subset(interval.New(1.99, 3.01)), "%v", b)
	assert.True(t, b.At(1).Equal(interval.New(-100, 100)), "parameters are left alone")

	b = box(5, 10, 0, 0)
	assert.Equal(t, Empty, ex.Contract(&b))
}

func TestExistStopsWhenNothingToGain(t *testing.T) {
	// Every x in [0, 1] has a witness: the box cannot shrink.
	le := fwdbwd(t, xy, "x - y <= 0")
	ex, err := NewExist(le, NewVarSet(1), box(0, 5), 0.01)
	require.NoError(t, err)
	b := box(0, 1, 0, 0)
	require.Equal(t, Contracted, ex.Contract(&b))
	assert.True(t, b.At(0).Equal(interval.New(0, 1)))
}

func TestForAll(t *testing.T) {
	// ∀y ∈ [2, 3] : x ≥ y
	ge := fwdbwd(t, xy, "x - y >= 0")
	fa, err := NewForAll(ge, NewVarSet(1), box(2, 3), 0.01)
	require.NoError(t, err)

	b := box(0, 10, 0, 0)
	require.Equal(t, Contracted, fa.Contract(&b))
	x := b.At(0)
	assert.True(t, interval.New(3, 10).Subset(x), "%v", x)
	assert.GreaterOrEqual(t, x.Lo(), 2.9)

	b = box(0, 2.5, 0, 0)
	assert.Equal(t, Empty, fa.Contract(&b))
}

func TestQuantifierValidation(t *testing.T) {
	eq := fwdbwd(t, xy, "x - y == 0")
	_, err := NewExist(eq, NewVarSet(), box(0, 1), 0.1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewExist(eq, NewVarSet(2), box(0, 1), 0.1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = NewForAll(eq, NewVarSet(1), box(0, 1, 0, 1), 0.1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = NewForAll(eq, NewVarSet(1), interval.NewBox(1), 0.1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewForAll(eq, NewVarSet(1), box(0, 1), 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
