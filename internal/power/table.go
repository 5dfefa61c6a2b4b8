// Package power holds tabulated matter power spectra over a
// (scale factor, wavenumber) grid and the interpolation used to evaluate
// and combine them.
package power

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var ErrBadGrid = errors.New("malformed spectrum grid")

// Table is a tabulated power spectrum: rows follow the ascending scale
// factor axis A, columns the ascending LogK axis (natural log of the
// wavenumber). Tables are produced fresh by every computation; callers may
// mutate their own copy freely.
type Table struct {
	A      []float64
	LogK   []float64
	Values *mat.Dense
}

// New validates the axes against the value grid and wraps them in a Table.
// Both axes must be strictly ascending and non-empty.
func New(a, logk []float64, values *mat.Dense) (*Table, error) {
	if len(a) < 2 || len(logk) < 2 {
		return nil, fmt.Errorf("%w: each axis needs at least two points", ErrBadGrid)
	}
	if !ascending(a) {
		return nil, fmt.Errorf("%w: scale factor axis not strictly ascending", ErrBadGrid)
	}
	if !ascending(logk) {
		return nil, fmt.Errorf("%w: log-k axis not strictly ascending", ErrBadGrid)
	}
	if values == nil {
		return nil, fmt.Errorf("%w: nil values", ErrBadGrid)
	}
	rows, cols := values.Dims()
	if rows != len(a) || cols != len(logk) {
		return nil, fmt.Errorf("%w: values %dx%d, axes %dx%d",
			ErrBadGrid, rows, cols, len(a), len(logk))
	}
	return &Table{A: a, LogK: logk, Values: values}, nil
}

// FromFunc tabulates f(a, k) over the given axes.
func FromFunc(a, logk []float64, f func(a, k float64) float64) (*Table, error) {
	values := mat.NewDense(len(a), len(logk), nil)
	for i, av := range a {
		for j, lk := range logk {
			values.Set(i, j, f(av, math.Exp(lk)))
		}
	}
	return New(a, logk, values)
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	values := mat.DenseCopyOf(t.Values)
	a := make([]float64, len(t.A))
	copy(a, t.A)
	logk := make([]float64, len(t.LogK))
	copy(logk, t.LogK)
	return &Table{A: a, LogK: logk, Values: values}
}

// Eval interpolates the table at (a, k), linear in scale factor and linear
// in log k, clamping to the tabulated domain at the edges.
func (t *Table) Eval(a, k float64) float64 {
	i, wa := locate(t.A, a)
	j, wk := locate(t.LogK, math.Log(k))

	v00 := t.Values.At(i, j)
	v01 := t.Values.At(i, j+1)
	v10 := t.Values.At(i+1, j)
	v11 := t.Values.At(i+1, j+1)

	lo := v00 + wk*(v01-v00)
	hi := v10 + wk*(v11-v10)
	return lo + wa*(hi-lo)
}

// MulBoost returns a fresh table with boost applied pointwise on the
// receiver's grid. A boost tabulated on different axes is first regridded
// by the same bilinear rule. The receiver is left unmodified.
func (t *Table) MulBoost(boost *Table) *Table {
	out := t.Clone()
	if floats.Equal(t.A, boost.A) && floats.Equal(t.LogK, boost.LogK) {
		out.Values.MulElem(out.Values, boost.Values)
		return out
	}
	for i, av := range out.A {
		for j, lk := range out.LogK {
			out.Values.Set(i, j, out.Values.At(i, j)*boost.Eval(av, math.Exp(lk)))
		}
	}
	return out
}

// locate returns the lower bracket index and the interpolation weight for x
// on a strictly ascending axis, clamped so the bracket stays in range. NaN
// (a negative wavenumber after the log) clamps to the lower edge like any
// other out-of-domain input.
func locate(axis []float64, x float64) (int, float64) {
	n := len(axis)
	switch {
	case math.IsNaN(x) || x <= axis[0]:
		return 0, 0
	case x >= axis[n-1]:
		return n - 2, 1
	}
	i := sort.SearchFloat64s(axis, x)
	if axis[i] > x {
		i--
	}
	w := (x - axis[i]) / (axis[i+1] - axis[i])
	return i, w
}

func ascending(axis []float64) bool {
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			return false
		}
	}
	return true
}
