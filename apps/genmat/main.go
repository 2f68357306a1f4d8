/*
Command genmat writes a synthetic diagonally dominant system in the solver's
text data format: N on the first line, N matrix rows, then the b vector. Each
diagonal entry exceeds the sum of the absolute off-diagonal entries in its
row, which guarantees Jacobi convergence on the generated system.

	genmat -out matrix_data.txt -n 1000 -seed 42
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
)

func main() {
	out := flag.String("out", "matrix_data.txt", "output file")
	n := flag.Int("n", 100, "matrix size")
	seed := flag.Int64("seed", 0, "random seed, 0 derives one from the clock")
	flag.Parse()

	if *n <= 0 {
		fmt.Fprintln(os.Stderr, "matrix size must be a positive integer")
		os.Exit(1)
	}
	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	} else {
		rng = rand.New(rand.NewSource(int64(os.Getpid())))
	}

	if err := generate(*out, *n, rng); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Successfully generated data file '%s' with N=%d\n", *out, *n)
}

func generate(path string, n int, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "%d\n", n)

	row := make([]float64, n)
	for i := 0; i < n; i++ {
		rowSum := 0.0
		for j := 0; j < n; j++ {
			if j != i {
				row[j] = float64(rng.Intn(10))
				rowSum += row[j]
			}
		}
		// The diagonal gets the row sum plus a positive margin so dominance
		// holds even when every off-diagonal draw is zero.
		row[i] = rowSum + float64(rng.Intn(10)) + 1.0
		for j := 0; j < n; j++ {
			fmt.Fprintf(w, "%f ", row[j])
		}
		fmt.Fprintln(w)
	}

	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%f ", float64(rng.Intn(100)))
	}
	fmt.Fprintln(w)

	return w.Flush()
}
