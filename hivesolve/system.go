/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the in-memory representation of the system. The matrix is
held in one contiguous row-major buffer with an explicit row stride rather
than a slice of row slices, which keeps row blocks transferable as single
ranges.
*/
package hivesolve

import (
	"fmt"
	"math"
)

// DiagEpsilon is the smallest diagonal magnitude the Jacobi update will
// divide by. Anything below it makes the system ill-posed for this method.
const DiagEpsilon = 1e-20

// LinearSystem holds a dense N x N system Ax=b. Loaded once by the
// coordinator and never mutated afterwards.
type LinearSystem struct {
	N int
	A []float64 // N x N, row-major, stride N
	B []float64
}

// NewLinearSystem allocates an empty n x n system.
func NewLinearSystem(n int) (*LinearSystem, error) {
	if n <= 0 {
		return nil, NewConfigurationError(fmt.Sprintf("invalid matrix size %d", n))
	}
	a, err := allocFloats(n * n)
	if err != nil {
		return nil, err
	}
	b, err := allocFloats(n)
	if err != nil {
		return nil, err
	}
	return &LinearSystem{N: n, A: a, B: b}, nil
}

// Row returns matrix row i as a slice into the shared buffer.
func (sys *LinearSystem) Row(i int) []float64 {
	return sys.A[i*sys.N : (i+1)*sys.N]
}

// CheckDiagonal verifies every diagonal entry has magnitude at least
// DiagEpsilon. Checked once at load/scatter time; the coefficients are fixed
// for the whole run so the check is never repeated per iteration.
func (sys *LinearSystem) CheckDiagonal() error {
	for i := 0; i < sys.N; i++ {
		if math.Abs(sys.A[i*sys.N+i]) < DiagEpsilon {
			return NewConfigurationError(fmt.Sprintf("zero diagonal element at row %d", i))
		}
	}
	return nil
}

// LocalBlock is one worker's private copy of its owned rows. Created once at
// scatter time and immutable afterwards.
type LocalBlock struct {
	Range RowRange
	N     int
	ARows []float64 // Range.Count x N, row-major, stride N
	BRows []float64
}

// Row returns local row li (0 <= li < Range.Count) as a slice.
func (blk *LocalBlock) Row(li int) []float64 {
	return blk.ARows[li*blk.N : (li+1)*blk.N]
}

// allocFloats converts the runtime's allocation panic for absurd sizes into
// a ResourceError so the group can be aborted with a diagnosable message.
func allocFloats(n int) (buf []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewResourceError(fmt.Sprintf("cannot allocate %d float64 buffer: %v", n, r))
		}
	}()
	buf = make([]float64, n)
	return buf, nil
}
