/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the result reporter, run on the coordinator only.
*/
package hivesolve

import (
	"fmt"
	"io"
)

// reportPrintLimit caps how many leading solution entries the summary shows.
const reportPrintLimit = 5

// Report writes the coordinator's run summary: the leading solution entries,
// the iteration count, the final global L1 error, the stopping reason and the
// elapsed wall time.
func Report(w io.Writer, res *Result, n int, nrProc uint8) {
	printSize := n
	if printSize > reportPrintLimit {
		printSize = reportPrintLimit
	}
	fmt.Fprintf(w, "Solving system using HiveSolve Jacobi method (size=%d, workers=%d)\n", n, nrProc)
	fmt.Fprintf(w, "===========================================================\n\n")
	fmt.Fprintf(w, "Solution (first %d elements):\n", printSize)
	for i := 0; i < printSize; i++ {
		fmt.Fprintf(w, "x%d = %.5f\n", i, res.X[i])
	}
	fmt.Fprintf(w, "\nIterations: %d\n", res.Iterations)
	fmt.Fprintf(w, "Final L1 error: %.6e\n", res.Error)
	fmt.Fprintf(w, "Stopped: %s\n", res.State)
	fmt.Fprintf(w, "Elapsed: %s\n", res.Elapsed)
}
