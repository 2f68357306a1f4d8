/*
Command jacobid is the distributed worker binary. Every machine runs the
identical program; rank 0 is the coordinator, which loads the system, deploys
and starts the other ranks over SSH, and reports the result.

Coordinator:

	jacobid -config config.json -rank 0 -deploy

Workers are normally started by the coordinator's deployment step and just
join the mesh:

	jacobid -config config.json -rank 2
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dashaylan/HiveSolve/configs"
	"github.com/dashaylan/HiveSolve/hivesolve"
	"github.com/dashaylan/HiveSolve/ipc"
)

func main() {
	confPath := flag.String("config", "config.json", "run configuration file")
	rank := flag.Int("rank", 0, "this worker's rank")
	deploy := flag.Bool("deploy", false, "deploy and start the remote workers first (coordinator only)")
	flag.Parse()

	conf, err := configs.ReadConfig(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *rank < 0 || *rank >= len(conf.Workers) {
		fmt.Fprintf(os.Stderr, "rank %d out of range for %d workers\n", *rank, len(conf.Workers))
		os.Exit(1)
	}
	pid := uint8(*rank)
	nrProc := uint8(len(conf.Workers))
	coordinator := pid == hivesolve.Coordinator

	var sys *hivesolve.LinearSystem
	if coordinator {
		sys, err = hivesolve.LoadSystem(conf.MatrixFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if *deploy {
			bin, err := os.Executable()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			started, err := ipc.StartWorkers(conf.Remotes, bin, *confPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "deployment failed after %d workers: %v\n", started, err)
				os.Exit(1)
			}
			fmt.Printf("Deployed %d remote workers\n", started)
		}
	}

	go hivesolve.DumpLog()

	hs, err := hivesolve.NewHiveSolve(pid, nrProc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	hs.SetDebug(conf.DebugLevel)
	if err := hs.Startup(conf.Workers, conf.GoVecPrefix); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	params := hivesolve.Params{MaxIterations: conf.MaxIterations, Tolerance: conf.Tolerance}
	solver, err := hivesolve.NewSolver(hs, params)
	if err != nil {
		hs.Abort(err.Error())
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	res, err := solver.Run(sys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[%d] %v\n", pid, err)
		os.Exit(1)
	}

	if coordinator {
		hivesolve.Report(os.Stdout, res, sys.N, nrProc)
	}
	hs.Exit()
}
