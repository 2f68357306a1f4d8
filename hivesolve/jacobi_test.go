/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the unit tests for the Jacobi update, the local error
term, and the serial reference solver.
*/
package hivesolve

import (
	"math"
	"testing"
)

// testSystem3 builds the fixed 3x3 diagonally dominant system whose solution
// is (0.5, 1, 0.5).
func testSystem3(t *testing.T) *LinearSystem {
	t.Helper()
	sys, err := NewLinearSystem(3)
	if err != nil {
		t.Fatalf("[TEST] NewLinearSystem failed: %s", err.Error())
	}
	copy(sys.A, []float64{
		4, 1, 2,
		3, 5, 1,
		1, 1, 3,
	})
	copy(sys.B, []float64{4, 7, 3})
	return sys
}

func TestUpdateRowsFirstSweep(t *testing.T) {
	sys := testSystem3(t)
	blk := &LocalBlock{
		Range: RowRange{Start: 0, Count: 3},
		N:     3,
		ARows: sys.A,
		BRows: sys.B,
	}
	xOld := []float64{0, 0, 0}
	xNew := make([]float64, 3)
	UpdateRows(blk, xOld, xNew)

	// With a zero guess the first sweep is just b[i]/A[i][i].
	want := []float64{1, 7.0 / 5.0, 1}
	for i := range want {
		if xNew[i] != want[i] {
			t.Errorf("[TEST] UpdateRows: x[%d] got %v expected %v", i, xNew[i], want[i])
		}
	}
	for i := range xOld {
		if xOld[i] != 0 {
			t.Errorf("[TEST] UpdateRows must not mutate xOld, entry %d is %v", i, xOld[i])
		}
	}
}

func TestUpdateRowsPartialBlock(t *testing.T) {
	sys := testSystem3(t)
	// Rank 1 of 2 owns row 2 only.
	blk := &LocalBlock{
		Range: RowRange{Start: 2, Count: 1},
		N:     3,
		ARows: sys.A[6:9],
		BRows: sys.B[2:3],
	}
	xOld := []float64{1, 1, 1}
	xNew := make([]float64, 1)
	UpdateRows(blk, xOld, xNew)

	want := (3.0 - (1*1 + 1*1)) / 3.0
	if xNew[0] != want {
		t.Errorf("[TEST] UpdateRows partial block: got %v expected %v", xNew[0], want)
	}
}

func TestLocalError(t *testing.T) {
	xNew := []float64{1, 2, 3, 4}
	xOld := []float64{1, 1, 5, 4}
	got := LocalError(RowRange{Start: 1, Count: 2}, xNew, xOld)
	if got != 3 {
		t.Errorf("[TEST] LocalError got %v expected 3", got)
	}
	if LocalError(RowRange{Start: 2, Count: 0}, xNew, xOld) != 0 {
		t.Errorf("[TEST] LocalError of an empty range must be exactly 0")
	}
}

func TestSolveSerialKnownSystem(t *testing.T) {
	sys := testSystem3(t)
	res, err := SolveSerial(sys, DefaultParams())
	if err != nil {
		t.Fatalf("[TEST] SolveSerial failed: %s", err.Error())
	}
	if res.State != StateConverged {
		t.Fatalf("[TEST] SolveSerial stopped in state %s expected converged", res.State)
	}
	want := []float64{0.5, 1, 0.5}
	for i := range want {
		if math.Abs(res.X[i]-want[i]) > 1e-5 {
			t.Errorf("[TEST] SolveSerial: x[%d] got %v expected %v within 1e-5", i, res.X[i], want[i])
		}
	}
	if res.Iterations <= 0 || res.Iterations > DefaultParams().MaxIterations {
		t.Errorf("[TEST] SolveSerial: implausible iteration count %d", res.Iterations)
	}
}

func TestSolveSerialOneByOne(t *testing.T) {
	sys, err := NewLinearSystem(1)
	if err != nil {
		t.Fatalf("[TEST] NewLinearSystem failed: %s", err.Error())
	}
	sys.A[0] = 4
	sys.B[0] = 8
	res, err := SolveSerial(sys, DefaultParams())
	if err != nil {
		t.Fatalf("[TEST] SolveSerial failed: %s", err.Error())
	}
	// The exact value lands on the first sweep; the second sweep observes a
	// zero delta and stops.
	if res.X[0] != 2 {
		t.Errorf("[TEST] SolveSerial N=1: got %v expected exactly 2", res.X[0])
	}
	if res.State != StateConverged || res.Iterations != 2 {
		t.Errorf("[TEST] SolveSerial N=1: state %s after %d iterations, expected converged after 2",
			res.State, res.Iterations)
	}
}

func TestSolveSerialIterationCap(t *testing.T) {
	sys := testSystem3(t)
	res, err := SolveSerial(sys, Params{MaxIterations: 1, Tolerance: 1e-12})
	if err != nil {
		t.Fatalf("[TEST] SolveSerial failed: %s", err.Error())
	}
	if res.State != StateMaxIter || res.Iterations != 1 {
		t.Errorf("[TEST] SolveSerial cap: state %s after %d iterations, expected max-iterations after 1",
			res.State, res.Iterations)
	}
	if !res.State.Terminal() {
		t.Errorf("[TEST] max-iterations must be a terminal state")
	}
}

func TestSolveSerialRejectsZeroDiagonal(t *testing.T) {
	sys := testSystem3(t)
	sys.A[4] = 0 // A[1][1]
	if _, err := SolveSerial(sys, DefaultParams()); err == nil {
		t.Errorf("[TEST] SolveSerial with zero diagonal should fail")
	}
}
