/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the row partitioner. Ranges are derived deterministically
from N and the worker count alone, so every worker computes its own range
independently and the coordinator's scatter bookkeeping always agrees with it.
*/
package hivesolve

import "fmt"

// RowRange is the half-open row interval [Start, Start+Count) owned by one
// worker.
type RowRange struct {
	Start int
	Count int
}

// PartitionRows assigns every row index in [0,n) to exactly one of nrProc
// workers. Ranges are contiguous and rank-ordered, sizes differ by at most
// one, and lower ranks receive the extra row when n is not divisible by
// nrProc. Workers beyond n receive an empty range.
func PartitionRows(n, nrProc int) ([]RowRange, error) {
	if n <= 0 {
		return nil, NewConfigurationError(fmt.Sprintf("invalid matrix size %d", n))
	}
	if nrProc <= 0 {
		return nil, NewConfigurationError(fmt.Sprintf("invalid worker count %d", nrProc))
	}
	base, rem := n/nrProc, n%nrProc
	ranges := make([]RowRange, nrProc)
	start := 0
	for p := 0; p < nrProc; p++ {
		count := base
		if p < rem {
			count++
		}
		ranges[p] = RowRange{Start: start, Count: count}
		start += count
	}
	return ranges, nil
}

// OwnedRange returns the range rank pid owns under PartitionRows(n, nrProc).
func OwnedRange(n, nrProc, pid int) (RowRange, error) {
	if pid < 0 || pid >= nrProc {
		return RowRange{}, NewConfigurationError(fmt.Sprintf("rank %d out of range for %d workers", pid, nrProc))
	}
	ranges, err := PartitionRows(n, nrProc)
	if err != nil {
		return RowRange{}, err
	}
	return ranges[pid], nil
}
