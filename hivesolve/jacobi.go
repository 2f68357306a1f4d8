/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the per-worker computational core: the Jacobi row update
and the local convergence contribution.
*/
package hivesolve

import "math"

// UpdateRows computes the new value for every row this worker owns:
//
//	xLocal[li] = (b[i] - sum_{j != i} A[i][j]*xOld[j]) / A[i][i]
//
// The diagonal term is excluded inside the summation, not zeroed after the
// fact, so the update never references the row's own unknown. xOld is the
// previous round's broadcast vector and is never written; xLocal must have
// length Range.Count and distinct storage from xOld.
func UpdateRows(blk *LocalBlock, xOld, xLocal []float64) {
	for li := 0; li < blk.Range.Count; li++ {
		i := blk.Range.Start + li
		row := blk.Row(li)
		sum := 0.0
		for j := 0; j < blk.N; j++ {
			if j != i {
				sum += row[j] * xOld[j]
			}
		}
		xLocal[li] = (blk.BRows[li] - sum) / row[i]
	}
}

// LocalError returns this worker's contribution to the global L1 convergence
// term: the sum of |xNew[i]-xOld[i]| over its owned rows. A worker that owns
// zero rows contributes exactly 0 but still joins the reduction.
func LocalError(r RowRange, xNew, xOld []float64) float64 {
	e := 0.0
	for i := r.Start; i < r.Start+r.Count; i++ {
		e += math.Abs(xNew[i] - xOld[i])
	}
	return e
}
