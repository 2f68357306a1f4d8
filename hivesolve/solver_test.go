/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the end-to-end tests for the distributed iteration
controller, run with every worker as a goroutine over the tipc mesh.
*/
package hivesolve

import (
	"errors"
	"math"
	"testing"
)

type distResult struct {
	res *Result
	err error
}

// runDistributed solves sys with nrProc workers over a fresh mesh and returns
// one outcome per rank.
func runDistributed(t *testing.T, sys *LinearSystem, nrProc uint8, params Params) []distResult {
	t.Helper()
	hss := startWorkers(t, nrProc)
	outs := make([]distResult, nrProc)
	runAll(t, hss, func(hs *HS) {
		p := hs.GetProcID()
		var input *LinearSystem
		if p == Coordinator {
			input = sys
		}
		solver, err := NewSolver(hs, params)
		if err != nil {
			outs[p] = distResult{err: err}
			return
		}
		res, err := solver.Run(input)
		outs[p] = distResult{res: res, err: err}
		hs.Exit()
	})
	return outs
}

func TestSolverMatchesKnownSolution(t *testing.T) {
	want := []float64{0.5, 1, 0.5}
	for _, nrProc := range []uint8{1, 2, 3} {
		outs := runDistributed(t, testSystem3(t), nrProc, DefaultParams())
		for p, out := range outs {
			if out.err != nil {
				t.Fatalf("[TEST] P=%d rank %d failed: %s", nrProc, p, out.err.Error())
			}
			if out.res.State != StateConverged {
				t.Fatalf("[TEST] P=%d rank %d stopped in state %s expected converged", nrProc, p, out.res.State)
			}
		}
		x := outs[Coordinator].res.X
		for i := range want {
			if math.Abs(x[i]-want[i]) > 1e-5 {
				t.Errorf("[TEST] P=%d: x[%d] got %v expected %v within 1e-5", nrProc, i, x[i], want[i])
			}
		}
		for p := 1; p < int(nrProc); p++ {
			if outs[p].res.X != nil {
				t.Errorf("[TEST] P=%d: solution must live on the coordinator only, rank %d has it", nrProc, p)
			}
		}
	}
}

func TestSolverAllRanksAgreeOnOutcome(t *testing.T) {
	outs := runDistributed(t, testSystem3(t), 3, DefaultParams())
	ref := outs[0].res
	for p := 1; p < 3; p++ {
		res := outs[p].res
		if res.Iterations != ref.Iterations {
			t.Errorf("[TEST] rank %d saw %d iterations, coordinator saw %d", p, res.Iterations, ref.Iterations)
		}
		if res.Error != ref.Error {
			t.Errorf("[TEST] rank %d saw final error %v, coordinator saw %v", p, res.Error, ref.Error)
		}
		if res.State != ref.State {
			t.Errorf("[TEST] rank %d stopped in state %s, coordinator in %s", p, res.State, ref.State)
		}
	}
}

// A single distributed worker computes in the same order as the serial
// reference, so the results must be bit-identical, not just close.
func TestSolverSingleWorkerMatchesSerialExactly(t *testing.T) {
	serial, err := SolveSerial(testSystem3(t), DefaultParams())
	if err != nil {
		t.Fatalf("[TEST] SolveSerial failed: %s", err.Error())
	}
	outs := runDistributed(t, testSystem3(t), 1, DefaultParams())
	if outs[0].err != nil {
		t.Fatalf("[TEST] distributed run failed: %s", outs[0].err.Error())
	}
	res := outs[0].res
	if res.Iterations != serial.Iterations {
		t.Errorf("[TEST] P=1 took %d iterations, serial took %d", res.Iterations, serial.Iterations)
	}
	for i := range serial.X {
		if res.X[i] != serial.X[i] {
			t.Errorf("[TEST] P=1: x[%d] is %v, serial computed %v", i, res.X[i], serial.X[i])
		}
	}
}

func TestSolverMoreWorkersThanRows(t *testing.T) {
	// Two of the five workers own zero rows but must still take part in every
	// collective without wedging the group.
	outs := runDistributed(t, testSystem3(t), 5, DefaultParams())
	for p, out := range outs {
		if out.err != nil {
			t.Fatalf("[TEST] rank %d failed: %s", p, out.err.Error())
		}
		if out.res.State != StateConverged {
			t.Errorf("[TEST] rank %d stopped in state %s expected converged", p, out.res.State)
		}
	}
	want := []float64{0.5, 1, 0.5}
	x := outs[Coordinator].res.X
	for i := range want {
		if math.Abs(x[i]-want[i]) > 1e-5 {
			t.Errorf("[TEST] x[%d] got %v expected %v within 1e-5", i, x[i], want[i])
		}
	}
}

// Two runs with the same worker count must agree bit for bit: the reduce
// manager folds contributions in rank order, never arrival order.
func TestSolverDeterministicForFixedWorkerCount(t *testing.T) {
	first := runDistributed(t, testSystem3(t), 3, DefaultParams())
	second := runDistributed(t, testSystem3(t), 3, DefaultParams())
	a, b := first[Coordinator].res, second[Coordinator].res
	if a.Iterations != b.Iterations {
		t.Fatalf("[TEST] repeated run took %d iterations, first took %d", b.Iterations, a.Iterations)
	}
	if a.Error != b.Error {
		t.Errorf("[TEST] repeated run final error %v differs from %v", b.Error, a.Error)
	}
	for i := range a.X {
		if a.X[i] != b.X[i] {
			t.Errorf("[TEST] repeated run x[%d] is %v, first run computed %v", i, b.X[i], a.X[i])
		}
	}
}

func TestSolverIterationCap(t *testing.T) {
	outs := runDistributed(t, testSystem3(t), 2, Params{MaxIterations: 1, Tolerance: 1e-12})
	for p, out := range outs {
		if out.err != nil {
			t.Fatalf("[TEST] rank %d failed: %s", p, out.err.Error())
		}
		if out.res.State != StateMaxIter || out.res.Iterations != 1 {
			t.Errorf("[TEST] rank %d: state %s after %d iterations, expected max-iterations after 1",
				p, out.res.State, out.res.Iterations)
		}
	}
}

func TestSolverZeroDiagonalAbortsGroup(t *testing.T) {
	sys := testSystem3(t)
	sys.A[0] = 0
	outs := runDistributed(t, sys, 3, DefaultParams())

	var cfgErr *ConfigurationError
	if !errors.As(outs[Coordinator].err, &cfgErr) {
		t.Errorf("[TEST] coordinator got %v expected ConfigurationError", outs[Coordinator].err)
	}
	var abErr *GroupAbortError
	for p := 1; p < 3; p++ {
		if !errors.As(outs[p].err, &abErr) {
			t.Errorf("[TEST] rank %d got %v expected GroupAbortError", p, outs[p].err)
		}
	}
}

func TestSolverRejectsBadParams(t *testing.T) {
	hss := startWorkers(t, 1)
	if _, err := NewSolver(hss[0], Params{MaxIterations: 0, Tolerance: 1e-5}); err == nil {
		t.Errorf("[TEST] NewSolver should reject a zero iteration cap")
	}
	if _, err := NewSolver(hss[0], Params{MaxIterations: 100, Tolerance: 0}); err == nil {
		t.Errorf("[TEST] NewSolver should reject a zero tolerance")
	}
	hss[0].Exit()
}
