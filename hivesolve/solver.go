/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the iteration controller. Every worker runs the identical
loop: local update, gather, broadcast, local error, global reduce. The
controller is a one-way state machine; it never returns to an earlier state.
*/
package hivesolve

import (
	"fmt"
	"time"
)

// State is the iteration controller's position in its lifecycle.
type State int

const (
	StateInit State = iota
	StateScattered
	StateIterating
	StateConverged
	StateMaxIter
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateScattered:
		return "scattered"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateMaxIter:
		return "max-iterations-reached"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the controller has stopped. Reaching the iteration
// cap is a terminal state, not an error; the run still exits zero.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateMaxIter
}

// Params are the run tunables, externalized instead of compiled in.
type Params struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultParams returns the stock iteration cap and L1 tolerance.
func DefaultParams() Params {
	return Params{MaxIterations: 1000, Tolerance: 1e-5}
}

func (p Params) Validate() error {
	if p.MaxIterations <= 0 {
		return NewConfigurationError(fmt.Sprintf("max iterations must be positive, got %d", p.MaxIterations))
	}
	if p.Tolerance <= 0 {
		return NewConfigurationError(fmt.Sprintf("tolerance must be positive, got %g", p.Tolerance))
	}
	return nil
}

// Result is the terminal outcome of a run, identical on every worker except
// for X, which is populated on the coordinator only.
type Result struct {
	X          []float64
	Iterations int
	Error      float64
	State      State
	Elapsed    time.Duration
}

// Solver drives the distributed iteration over a Communicator.
type Solver struct {
	comm    Communicator
	params  Params
	state   State
	iter    int
	lastErr float64
}

func NewSolver(comm Communicator, params Params) (*Solver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Solver{comm: comm, params: params, state: StateInit}, nil
}

// State returns the controller's current state.
func (s *Solver) State() State {
	return s.state
}

// Run executes the full solve on this worker. The system is consumed on the
// coordinator only; every other rank passes nil. All ranks receive the
// terminal state, iteration count and final error; the assembled solution is
// returned on the coordinator alone.
//
// The solution vector starts as all zeros on every worker. Each round reads a
// broadcast-consistent xOld that reflects exactly the previous round's
// gathered result; the new and old vectors never share storage.
func (s *Solver) Run(sys *LinearSystem) (*Result, error) {
	start := time.Now()
	coordinator := s.comm.GetProcID() == Coordinator

	if coordinator {
		if sys == nil {
			err := NewConfigurationError("coordinator started without a system")
			s.comm.Abort(err.Error())
			return nil, err
		}
		// One-time validation before any distribution. A bad diagonal must
		// stop the whole group before the first iteration.
		if err := sys.CheckDiagonal(); err != nil {
			s.comm.Abort(err.Error())
			return nil, err
		}
	}

	blk, err := s.comm.ScatterRows(sys)
	if err != nil {
		return nil, err
	}
	s.state = StateScattered

	n := blk.N
	xOld, err := allocFloats(n) // neutral all-zero starting guess
	if err != nil {
		s.comm.Abort(err.Error())
		return nil, err
	}
	xLocal, err := allocFloats(blk.Range.Count)
	if err != nil {
		s.comm.Abort(err.Error())
		return nil, err
	}

	var x []float64
	s.state = StateIterating
	for {
		UpdateRows(blk, xOld, xLocal)

		full, err := s.comm.GatherVector(xLocal)
		if err != nil {
			return nil, err
		}
		if coordinator {
			x = full
		}

		x, err = s.comm.BroadcastVector(x)
		if err != nil {
			return nil, err
		}

		local := LocalError(blk.Range, x, xOld)
		global, err := s.comm.ReduceSum(local)
		if err != nil {
			return nil, err
		}

		s.iter++
		s.lastErr = global
		copy(xOld, x)

		// Termination is evaluated only after a full round, never mid-round.
		if global <= s.params.Tolerance {
			s.state = StateConverged
			break
		}
		if s.iter >= s.params.MaxIterations {
			s.state = StateMaxIter
			break
		}
	}

	res := &Result{
		Iterations: s.iter,
		Error:      s.lastErr,
		State:      s.state,
		Elapsed:    time.Since(start),
	}
	if coordinator {
		res.X = x
	}
	return res, nil
}
