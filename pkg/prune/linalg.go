package prune

// linalg.go: interval matrices and the point-matrix preconditioning shared
// by the Newton contractor and the certifier. Point matrices are gonum
// Dense matrices; interval matrices are plain row-major slices.

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

// errSingular reports a preconditioner that could not be computed. It
// never leaves the package: callers degrade to "no contraction" or
// "not certified".
var errSingular = errors.New("singular midpoint matrix")

// maxCondition is the condition number above which a midpoint inverse is
// not trusted.
const maxCondition = 1e12

type imatrix [][]interval.Interval

// jacobian returns the interval Jacobian of fs over b restricted to the
// columns cols.
func jacobian(fs []*expr.Function, b interval.Box, cols []int) imatrix {
	J := make(imatrix, len(fs))
	for i, f := range fs {
		g := f.Gradient(b)
		row := make([]interval.Interval, len(cols))
		for k, j := range cols {
			row[k] = g[j]
		}
		J[i] = row
	}
	return J
}

// midDense returns the matrix of midpoints of A.
func (A imatrix) midDense() *mat.Dense {
	m, n := len(A), len(A[0])
	d := mat.NewDense(m, n, nil)
	for i := range A {
		for j, x := range A[i] {
			v := x.Mid()
			if math.IsNaN(v) {
				v = 0
			}
			d.Set(i, j, v)
		}
	}
	return d
}

// midInverse returns an approximate inverse of mid(A) for a square A.
func midInverse(A imatrix) (*mat.Dense, error) {
	M := A.midDense()
	var inv mat.Dense
	if err := inv.Inverse(M); err != nil {
		return nil, errSingular
	}
	if c := mat.Cond(M, 1); math.IsInf(c, 0) || math.IsNaN(c) || c > maxCondition {
		return nil, errSingular
	}
	return &inv, nil
}

// precondition returns C·A for a point matrix C.
func precondition(C *mat.Dense, A imatrix) imatrix {
	r, _ := C.Dims()
	n := len(A[0])
	out := make(imatrix, r)
	for i := 0; i < r; i++ {
		row := make([]interval.Interval, n)
		for j := 0; j < n; j++ {
			s := interval.Point(0)
			for k := range A {
				s = interval.Add(s, interval.Scale(C.At(i, k), A[k][j]))
			}
			row[j] = s
		}
		out[i] = row
	}
	return out
}

// applyPoint returns C·v for a point matrix C and an interval vector v.
func applyPoint(C *mat.Dense, v []interval.Interval) []interval.Interval {
	r, c := C.Dims()
	out := make([]interval.Interval, r)
	for i := 0; i < r; i++ {
		s := interval.Point(0)
		for k := 0; k < c; k++ {
			s = interval.Add(s, interval.Scale(C.At(i, k), v[k]))
		}
		out[i] = s
	}
	return out
}

// apply returns A·v for interval A and v.
func (A imatrix) apply(v []interval.Interval) []interval.Interval {
	out := make([]interval.Interval, len(A))
	for i, row := range A {
		s := interval.Point(0)
		for j, a := range row {
			s = interval.Add(s, interval.Mul(a, v[j]))
		}
		out[i] = s
	}
	return out
}

// pivotColumns picks m linearly independent columns of the m×n matrix
// mid(A) by Gaussian elimination with complete pivoting, greedily taking
// the largest remaining entry. It fails when a pivot vanishes.
func pivotColumns(A imatrix) ([]int, error) {
	M := mat.DenseCopyOf(A.midDense())
	m, n := M.Dims()
	if m > n {
		return nil, errSingular
	}
	usedRow := make([]bool, m)
	usedCol := make([]bool, n)
	cols := make([]int, 0, m)
	for step := 0; step < m; step++ {
		pi, pj, best := -1, -1, 0.0
		for i := 0; i < m; i++ {
			if usedRow[i] {
				continue
			}
			for j := 0; j < n; j++ {
				if usedCol[j] {
					continue
				}
				if a := math.Abs(M.At(i, j)); a > best {
					pi, pj, best = i, j, a
				}
			}
		}
		if pi < 0 || best < 1e-12 {
			return nil, errSingular
		}
		usedRow[pi], usedCol[pj] = true, true
		cols = append(cols, pj)
		p := M.At(pi, pj)
		for i := 0; i < m; i++ {
			if usedRow[i] {
				continue
			}
			f := M.At(i, pj) / p
			for j := 0; j < n; j++ {
				M.Set(i, j, M.At(i, j)-f*M.At(pi, j))
			}
		}
	}
	return cols, nil
}
