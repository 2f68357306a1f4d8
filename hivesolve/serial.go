/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the single-process reference solver. It applies the same
update and L1 stopping rule as the distributed path and exists as ground
truth for tests and as the one-worker baseline for benchmarks.
*/
package hivesolve

import (
	"math"
	"time"
)

// SolveSerial runs the Jacobi iteration in-process on the full system.
func SolveSerial(sys *LinearSystem, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := sys.CheckDiagonal(); err != nil {
		return nil, err
	}

	n := sys.N
	xOld, err := allocFloats(n)
	if err != nil {
		return nil, err
	}
	xNew, err := allocFloats(n)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	iter := 0
	errSum := 0.0
	state := StateIterating
	for {
		for i := 0; i < n; i++ {
			row := sys.Row(i)
			sum := 0.0
			for j := 0; j < n; j++ {
				if j != i {
					sum += row[j] * xOld[j]
				}
			}
			xNew[i] = (sys.B[i] - sum) / row[i]
		}

		errSum = 0.0
		for i := 0; i < n; i++ {
			errSum += math.Abs(xNew[i] - xOld[i])
		}

		xOld, xNew = xNew, xOld
		iter++

		if errSum <= params.Tolerance {
			state = StateConverged
			break
		}
		if iter >= params.MaxIterations {
			state = StateMaxIter
			break
		}
	}

	// After the swap the latest estimate lives in xOld.
	return &Result{
		X:          xOld,
		Iterations: iter,
		Error:      errSum,
		State:      state,
		Elapsed:    time.Since(start),
	}, nil
}
