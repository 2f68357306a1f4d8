/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the matrix loader, run on the coordinating worker only.
The text format is: line 1 holds the integer size N, the next N lines hold N
whitespace-separated reals each (one matrix row), and the final line holds the
N entries of b. Parsing is whitespace-driven, so line breaks are cosmetic.
*/
package hivesolve

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// LoadSystem reads a system from the named data file.
func LoadSystem(path string) (*LinearSystem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewIOError(fmt.Sprintf("cannot open %q: %v", path, err))
	}
	defer f.Close()
	return ReadSystem(f)
}

// ReadSystem parses a system from r and validates its diagonal. Any
// truncation or malformed token aborts the load before distribution starts.
func ReadSystem(r io.Reader) (*LinearSystem, error) {
	br := bufio.NewReader(r)

	var n int
	if _, err := fmt.Fscan(br, &n); err != nil {
		return nil, NewIOError("failed to read matrix size")
	}
	if n <= 0 {
		return nil, NewConfigurationError(fmt.Sprintf("invalid matrix size %d", n))
	}

	sys, err := NewLinearSystem(n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n*n; i++ {
		if _, err := fmt.Fscan(br, &sys.A[i]); err != nil {
			return nil, NewIOError(fmt.Sprintf("failed to read A at row %d col %d", i/n, i%n))
		}
	}
	for i := 0; i < n; i++ {
		if _, err := fmt.Fscan(br, &sys.B[i]); err != nil {
			return nil, NewIOError(fmt.Sprintf("failed to read b at row %d", i))
		}
	}

	if err := sys.CheckDiagonal(); err != nil {
		return nil, err
	}
	return sys, nil
}
