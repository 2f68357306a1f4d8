/*
Command jacobi runs the distributed Jacobi solver locally: every worker is a
goroutine and the frames travel over the in-process tipc mesh. Useful for
trying out data files and worker counts without a cluster.

	jacobi -file matrix_data.txt -workers 4
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dashaylan/HiveSolve/hivesolve"
	"github.com/dashaylan/HiveSolve/tipc"
)

func main() {
	file := flag.String("file", "matrix_data.txt", "system data file")
	workers := flag.Int("workers", 2, "number of workers")
	maxIter := flag.Int("max-iterations", 1000, "iteration cap")
	tol := flag.Float64("tolerance", 1e-5, "L1 convergence tolerance")
	debug := flag.Int("debug", 0, "debug level 0..4")
	gvec := flag.String("gvec", "", "vector clock log prefix, empty disables")
	flag.Parse()

	if *workers <= 0 || *workers > 255 {
		fmt.Fprintf(os.Stderr, "invalid worker count %d\n", *workers)
		os.Exit(1)
	}
	params := hivesolve.Params{MaxIterations: *maxIter, Tolerance: *tol}
	if err := params.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sys, err := hivesolve.LoadSystem(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	nrProc := uint8(*workers)
	mesh, err := tipc.NewMesh(nrProc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	go hivesolve.DumpLog()

	done := make(chan int, nrProc)
	var p uint8
	for p = 0; p < nrProc; p++ {
		go drone(p, nrProc, mesh, sys, params, *debug, *gvec, done)
	}
	for i := 0; i < int(nrProc); i++ {
		<-done
	}
}

// drone is the per-worker control program. Only rank 0 consumes the loaded
// system; the rest receive their block at scatter time.
func drone(id, nrProc uint8, mesh *tipc.Mesh, sys *hivesolve.LinearSystem,
	params hivesolve.Params, debug int, gvec string, done chan<- int) {

	hs, err := hivesolve.NewHiveSolve(id, nrProc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	hs.SetDebug(debug)
	if err := hs.StartupTipc(mesh, gvec); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	solver, err := hivesolve.NewSolver(hs, params)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var input *hivesolve.LinearSystem
	if id == hivesolve.Coordinator {
		input = sys
	}
	res, err := solver.Run(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[%d] %v\n", id, err)
		os.Exit(1)
	}

	if id == hivesolve.Coordinator {
		hivesolve.Report(os.Stdout, res, sys.N, nrProc)
	}
	hs.Exit()
	done <- int(id)
}
