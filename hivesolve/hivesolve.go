/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the collective messaging core shared by every worker. Each
worker runs the identical control program in lock-step; rank 0 acts as the
coordinator (it loads and scatters the system and assembles gathered vectors)
and as the manager for barriers and reductions. All inter-worker traffic is a
3-byte [dest, src, msgID] header followed by a gob encoded payload, carried by
either the ipc (TCP) or tipc (in-process test) transport.
*/
package hivesolve

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/DistributedClocks/GoVector/govec"
	"github.com/dashaylan/HiveSolve/configs"
	"github.com/dashaylan/HiveSolve/ipc"
	"github.com/dashaylan/HiveSolve/tipc"
)

// Coordinator is the rank that loads the system, assembles gathered vectors
// and manages barriers and reductions.
const Coordinator uint8 = 0

// List of Message IDs sent between the workers
const (
	ROWBLK  = 10 /* Coordinator     ->     Worker      : scattered row block  */
	GATHSEG = 20 /* Worker          ->     Coordinator : solution segment     */
	GATHACK = 21 /* Coordinator     ->     Worker      : gather complete      */
	VECBCST = 30 /* Coordinator     ->     Worker      : full solution vector */
	REDUREQ = 40 /* Reduce Client   ->     Reduce Manager                     */
	REDURSP = 41 /* Reduce Manager  ->     Reduce Client                      */
	BARRREQ = 50 /* Barrier Client  ->     Barrier Manager                    */
	BARRRSP = 51 /* Barrier Manager ->     Barrier Client                     */
	ABORTMSG = 60 /* Any            ->     All         : fatal group shutdown */
)

var msgName = map[uint8]string{
	ROWBLK: "ROWBLK", GATHSEG: "GATHSEG", GATHACK: "GATHACK", VECBCST: "VECBCST",
	REDUREQ: "REDUREQ", REDURSP: "REDURSP", BARRREQ: "BARRREQ", BARRRSP: "BARRRSP",
	ABORTMSG: "ABORTMSG",
}

// Define the list of structures used for Request/Response handlers
type RowBlockMsg struct {
	Start int
	Count int
	N     int
	ARows []float64 // Count x N, row-major
	BRows []float64
}

type SegmentMsg struct {
	Seg []float64
}

type GatherAck struct {
	N int
}

type VectorMsg struct {
	X []float64
}

type ScalarMsg struct {
	Value float64
}

type BarrierRequest struct {
	BarrierID uint8
}

type BarrierResponse struct {
	BarrierID uint8
}

type AbortMsg struct {
	Reason string
}

// Communicator is the synchronous group-communication surface the iteration
// controller drives. Every operation is a rendezvous: no worker returns from
// one until all workers have entered it. A worker that owns zero rows still
// participates in every operation.
type Communicator interface {
	// GetNProcs gets the number of workers configured for this run
	GetNProcs() uint8

	// GetProcID gets the rank of this worker
	GetProcID() uint8

	// ScatterRows splits the system per the row partition and delivers each
	// worker its private block. Only the coordinator supplies sys; all other
	// workers pass nil.
	ScatterRows(sys *LinearSystem) (*LocalBlock, error)

	// GatherVector collects one segment per worker and assembles the full
	// vector in rank order. The assembled vector is returned on the
	// coordinator only; other workers receive nil.
	GatherVector(seg []float64) ([]float64, error)

	// BroadcastVector replicates the coordinator's vector to every worker.
	BroadcastVector(x []float64) ([]float64, error)

	// ReduceSum combines one scalar per worker by addition, in rank order,
	// and delivers the identical result to every worker.
	ReduceSum(v float64) (float64, error)

	// Barrier blocks the calling worker until all workers arrive
	Barrier(b uint8) error

	// Abort signals a fatal error to every other worker. The whole group
	// terminates; there is no recovery path.
	Abort(reason string)
}

// HS encapsulates the per-worker messaging state
type HS struct {
	pid      uint8         // this worker's rank
	nrProc   uint8         // number of workers in the run
	txChan   chan<- []byte // channel to send messages to the transport
	rxChan   <-chan []byte // channel to receive messages from the transport
	ipc      *ipc.Ipc      // production transport handle, nil under tipc
	waitChan chan bool     // blocks the main thread until the matching event arrives
	halt     chan bool     // closed when the messaging core shuts down

	// Collective assembly state. Only the rxMsgHandler goroutine writes these
	// fields; the blocking caller reads them after its waitChan receive, so
	// the channel transfer orders the accesses.
	recvBlock  *LocalBlock
	recvVector []float64
	recvSum    float64
	gathSegs   [][]float64 // per-rank segments, coordinator only
	gathCnt    uint8
	redTerms   []float64 // per-rank reduce contributions, manager only
	redSeen    []bool
	redCnt     uint8
	barrCnt    uint8 // barrier requests received, manager only

	abMu        sync.Mutex
	aborted     bool
	abortReason string
	abortFn     func(reason string)

	debugLevel int
	start      time.Time // time when the messaging core is started
	vecLog     *govec.GoLog
	logOpts    govec.GoLogOptions
}

// Compile-time check that HS provides the full collective surface.
var _ Communicator = (*HS)(nil)

// NewHiveSolve creates a new instance of the HS struct and initializes the
// collective bookkeeping for a run of nrProc workers.
func NewHiveSolve(pid, nrProc uint8) (*HS, error) {
	if nrProc == 0 {
		return nil, NewConfigurationError("worker count must be positive")
	}
	if pid >= nrProc {
		return nil, NewConfigurationError(fmt.Sprintf("rank %d out of range for %d workers", pid, nrProc))
	}
	hs := new(HS)
	hs.pid = pid
	hs.nrProc = nrProc
	hs.waitChan = make(chan bool, 2)
	hs.gathSegs = make([][]float64, nrProc)
	hs.redTerms = make([]float64, nrProc)
	hs.redSeen = make([]bool, nrProc)
	hs.abortFn = func(reason string) {
		fmt.Fprintf(os.Stderr, "[%d] fatal: %s\n", pid, reason)
		os.Exit(1)
	}
	hs.start = time.Now()
	return hs, nil
}

// Startup connects this worker to its peers over the production TCP transport
// and starts the background receive handler. Every worker in the list must be
// reachable; a missing peer is fatal.
func (hs *HS) Startup(workers []configs.WorkerConfig, gvec string) error {
	conn, rx, tx, err := ipc.Init(hs.pid, workers)
	if err != nil {
		return err
	}
	hs.ipc = conn
	hs.rxChan, hs.txChan = rx, tx
	hs.initVecLog(gvec)
	hs.halt = make(chan bool)
	go hs.rxMsgHandler()
	return nil
}

// StartupTipc starts the worker on the in-process test transport. Used by
// unit tests and the local demo app, where all workers are goroutines in one
// process.
func (hs *HS) StartupTipc(mesh *tipc.Mesh, gvec string) error {
	rx, tx, err := mesh.Connect(hs.pid)
	if err != nil {
		return err
	}
	hs.rxChan, hs.txChan = rx, tx
	hs.initVecLog(gvec)
	hs.halt = make(chan bool)
	go hs.rxMsgHandler()
	return nil
}

func (hs *HS) initVecLog(gvec string) {
	if gvec != "" {
		process := gvec + strconv.Itoa(int(hs.pid))
		hs.vecLog = govec.InitGoVector(process, process, govec.GetDefaultConfig())
		hs.logOpts = govec.GetDefaultLogOptions()
	}
}

// Exit shuts down the messaging core. It should be the last call on this
// worker; collective operations must not be used afterwards.
func (hs *HS) Exit() {
	elapsed := time.Since(hs.start)
	hs.LogInfo("Elapsed Time: %s", elapsed)
	close(hs.halt)
	if hs.ipc != nil {
		hs.ipc.Close()
	}
}

// GetNProcs gets the number of workers configured for this run
func (hs *HS) GetNProcs() uint8 {
	return hs.nrProc
}

// GetProcID gets the rank of this worker
func (hs *HS) GetProcID() uint8 {
	return hs.pid
}

// SetAbortHandler replaces the reaction to a group abort. The default handler
// prints the reason and exits with a non-zero status; tests install a no-op
// so that blocked collectives return GroupAbortError instead.
func (hs *HS) SetAbortHandler(fn func(reason string)) {
	hs.abortFn = fn
}

func (hs *HS) setAborted(reason string) {
	hs.abMu.Lock()
	if !hs.aborted {
		hs.aborted = true
		hs.abortReason = reason
	}
	hs.abMu.Unlock()
}

func (hs *HS) isAborted() bool {
	hs.abMu.Lock()
	defer hs.abMu.Unlock()
	return hs.aborted
}

func (hs *HS) abortErr() error {
	hs.abMu.Lock()
	defer hs.abMu.Unlock()
	return NewGroupAbortError(hs.abortReason)
}

/*---------------------------------------------------------------------*/
/*------------------------Messaging Functions--------------------------*/

// send encodes the message and puts it on the transport Tx channel
func (hs *HS) send(dest, msgID uint8, msg interface{}) {
	var buf bytes.Buffer
	e := gob.NewEncoder(&buf)
	if err := e.Encode(msg); err != nil {
		panic(err)
	}

	var mbuf []byte
	if hs.vecLog != nil {
		event := "Tx " + msgName[msgID]
		gobuf := hs.vecLog.PrepareSend(event, buf.Bytes(), hs.logOpts)
		mbuf = make([]byte, 3+len(gobuf))
		mbuf[0], mbuf[1], mbuf[2] = dest, hs.pid, msgID
		copy(mbuf[3:], gobuf)
	} else {
		mbuf = make([]byte, 3+buf.Len())
		mbuf[0], mbuf[1], mbuf[2] = dest, hs.pid, msgID
		buf.Read(mbuf[3:])
	}
	hs.LogMsg("Send[%d]:Msg[%s]", dest, msgName[msgID])
	hs.txChan <- mbuf
}

// rxMsgHandler is the goroutine which handles incoming messages from the
// other workers. It is the only writer of the collective assembly state.
func (hs *HS) rxMsgHandler() {
	for {
		var mbuf []byte
		select {
		case mbuf = <-hs.rxChan:
		case <-hs.halt:
			return
		}
		if len(mbuf) < 3 {
			hs.LogError("Recv: malformed frame of %d bytes", len(mbuf))
			continue
		}
		srcID, msgID := mbuf[1], mbuf[2]
		var payload []byte
		if hs.vecLog != nil {
			event := "Rx " + msgName[msgID]
			hs.vecLog.UnpackReceive(event, mbuf[3:], &payload, hs.logOpts)
		} else {
			payload = mbuf[3:]
		}

		d := gob.NewDecoder(bytes.NewReader(payload))
		hs.LogMsg("Recv[%d]:Msg[%s]", srcID, msgName[msgID])
		switch msgID {
		case ROWBLK:
			var r RowBlockMsg
			if err := d.Decode(&r); err != nil {
				panic(err)
			}
			hs.handleRowBlock(srcID, &r)
		case GATHSEG:
			var r SegmentMsg
			if err := d.Decode(&r); err != nil {
				panic(err)
			}
			hs.handleGatherSegment(srcID, &r)
		case GATHACK:
			var r GatherAck
			if err := d.Decode(&r); err != nil {
				panic(err)
			}
			hs.handleGatherAck(srcID, &r)
		case VECBCST:
			var r VectorMsg
			if err := d.Decode(&r); err != nil {
				panic(err)
			}
			hs.handleVector(srcID, &r)
		case REDUREQ:
			var r ScalarMsg
			if err := d.Decode(&r); err != nil {
				panic(err)
			}
			hs.handleReduceRequest(srcID, &r)
		case REDURSP:
			var r ScalarMsg
			if err := d.Decode(&r); err != nil {
				panic(err)
			}
			hs.handleReduceResponse(srcID, &r)
		case BARRREQ:
			var r BarrierRequest
			if err := d.Decode(&r); err != nil {
				panic(err)
			}
			hs.handleBarrierRequest(srcID, &r)
		case BARRRSP:
			var r BarrierResponse
			if err := d.Decode(&r); err != nil {
				panic(err)
			}
			hs.handleBarrierResponse(srcID, &r)
		case ABORTMSG:
			var r AbortMsg
			if err := d.Decode(&r); err != nil {
				panic(err)
			}
			hs.handleAbort(srcID, &r)
		}
	}
}

func (hs *HS) handleAbort(srcID uint8, msg *AbortMsg) {
	hs.LogError("Abort from [%d]: %s", srcID, msg.Reason)
	hs.setAborted(msg.Reason)
	hs.waitChan <- true
	hs.abortFn(msg.Reason)
}
