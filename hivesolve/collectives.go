/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the collective operations and their message handlers.
Scatter, gather, broadcast, reduce and barrier all follow the same protocol
shape: every worker posts its contribution, a manager (rank 0) collects one
message per worker, and no worker proceeds until the manager has released the
whole group. Messages a worker addresses to itself are looped back by the
transport, so the coordinator participates in every operation exactly like
any other worker.
*/
package hivesolve

// Barrier IDs reserved for the rendezvous step inside scatter and broadcast.
// Application barriers should stay below these.
const (
	barrScatter   uint8 = 254
	barrBroadcast uint8 = 253
)

// Barrier blocks the calling worker until all other workers arrive at the
// barrier
func (hs *HS) Barrier(b uint8) error {
	hs.LogDebug("Barrier(%d)..Start", b)
	hs.send(Coordinator, BARRREQ, BarrierRequest{BarrierID: b})
	<-hs.waitChan
	if hs.isAborted() {
		return hs.abortErr()
	}
	hs.LogDebug("Barrier(%d)..Done", b)
	return nil
}

// ScatterRows splits the coordinator's system per the row partition and
// delivers each worker its private block. The coordinator sends its own block
// through the transport loopback, so it holds a block exactly like any other
// worker. A trailing barrier gives the operation its rendezvous property.
func (hs *HS) ScatterRows(sys *LinearSystem) (*LocalBlock, error) {
	if hs.pid == Coordinator {
		if sys == nil {
			return nil, NewConfigurationError("coordinator has no system to scatter")
		}
		ranges, err := PartitionRows(sys.N, int(hs.nrProc))
		if err != nil {
			return nil, err
		}
		var p uint8
		for p = 0; p < hs.nrProc; p++ {
			r := ranges[p]
			msg := RowBlockMsg{
				Start: r.Start,
				Count: r.Count,
				N:     sys.N,
				ARows: sys.A[r.Start*sys.N : (r.Start+r.Count)*sys.N],
				BRows: sys.B[r.Start : r.Start+r.Count],
			}
			hs.send(p, ROWBLK, msg)
		}
	}
	<-hs.waitChan
	if hs.isAborted() {
		return nil, hs.abortErr()
	}
	blk := hs.recvBlock
	hs.recvBlock = nil
	if err := hs.Barrier(barrScatter); err != nil {
		return nil, err
	}
	hs.LogDebug("ScatterRows: rows [%d,%d)", blk.Range.Start, blk.Range.Start+blk.Range.Count)
	return blk, nil
}

// GatherVector contributes this worker's segment and blocks until the
// coordinator has assembled the full vector from every worker. The assembled
// vector is returned on the coordinator only.
func (hs *HS) GatherVector(seg []float64) ([]float64, error) {
	hs.send(Coordinator, GATHSEG, SegmentMsg{Seg: seg})
	<-hs.waitChan
	if hs.isAborted() {
		return nil, hs.abortErr()
	}
	if hs.pid != Coordinator {
		return nil, nil
	}
	full := hs.recvVector
	hs.recvVector = nil
	return full, nil
}

// BroadcastVector replicates the coordinator's vector to every worker,
// replacing each worker's stale copy. Only the coordinator supplies x.
func (hs *HS) BroadcastVector(x []float64) ([]float64, error) {
	if hs.pid == Coordinator {
		var p uint8
		for p = 0; p < hs.nrProc; p++ {
			hs.send(p, VECBCST, VectorMsg{X: x})
		}
	}
	<-hs.waitChan
	if hs.isAborted() {
		return nil, hs.abortErr()
	}
	vec := hs.recvVector
	hs.recvVector = nil
	if err := hs.Barrier(barrBroadcast); err != nil {
		return nil, err
	}
	return vec, nil
}

// ReduceSum combines one scalar from every worker by addition and delivers
// the identical result to all of them. The manager sums contributions in rank
// order, so a run with a fixed worker count is bit-reproducible.
func (hs *HS) ReduceSum(v float64) (float64, error) {
	hs.send(Coordinator, REDUREQ, ScalarMsg{Value: v})
	<-hs.waitChan
	if hs.isAborted() {
		return 0, hs.abortErr()
	}
	return hs.recvSum, nil
}

// Abort broadcasts a fatal shutdown to every other worker. The caller is
// expected to stop on its own error path; peers stop through their abort
// handler.
func (hs *HS) Abort(reason string) {
	hs.LogError("Abort: %s", reason)
	hs.setAborted(reason)
	var p uint8
	for p = 0; p < hs.nrProc; p++ {
		if p != hs.pid {
			hs.send(p, ABORTMSG, AbortMsg{Reason: reason})
		}
	}
}

/*---------------------------------------------------------------------*/
/*------------------------Message Handlers-----------------------------*/

func (hs *HS) handleRowBlock(srcID uint8, msg *RowBlockMsg) {
	hs.recvBlock = &LocalBlock{
		Range: RowRange{Start: msg.Start, Count: msg.Count},
		N:     msg.N,
		ARows: msg.ARows,
		BRows: msg.BRows,
	}
	hs.waitChan <- true
}

// handleGatherSegment runs on the coordinator only. It saves each worker's
// segment, and once all have arrived concatenates them in rank order (row
// ranges are contiguous and rank-ordered, so concatenation rebuilds the full
// vector) and releases the group.
func (hs *HS) handleGatherSegment(srcID uint8, msg *SegmentMsg) {
	hs.gathSegs[srcID] = msg.Seg
	hs.gathCnt++
	if hs.gathCnt < hs.nrProc {
		return
	}
	hs.gathCnt = 0

	total := 0
	for _, seg := range hs.gathSegs {
		total += len(seg)
	}
	full := make([]float64, 0, total)
	var p uint8
	for p = 0; p < hs.nrProc; p++ {
		full = append(full, hs.gathSegs[p]...)
		hs.gathSegs[p] = nil
	}
	hs.recvVector = full

	for p = 0; p < hs.nrProc; p++ {
		if p != hs.pid {
			hs.send(p, GATHACK, GatherAck{N: total})
		}
	}
	hs.waitChan <- true
}

func (hs *HS) handleGatherAck(srcID uint8, msg *GatherAck) {
	hs.waitChan <- true
}

func (hs *HS) handleVector(srcID uint8, msg *VectorMsg) {
	hs.recvVector = msg.X
	hs.waitChan <- true
}

// handleReduceRequest runs on the manager only. Contributions are stored per
// rank and summed 0..P-1 once complete; arrival order never affects the
// floating point result.
func (hs *HS) handleReduceRequest(srcID uint8, msg *ScalarMsg) {
	if !hs.redSeen[srcID] {
		hs.redSeen[srcID] = true
		hs.redTerms[srcID] = msg.Value
		hs.redCnt++
	}
	if hs.redCnt < hs.nrProc {
		return
	}
	hs.redCnt = 0

	sum := 0.0
	for p := range hs.redTerms {
		sum += hs.redTerms[p]
		hs.redSeen[p] = false
	}
	hs.recvSum = sum

	var p uint8
	for p = 0; p < hs.nrProc; p++ {
		if p != hs.pid {
			hs.send(p, REDURSP, ScalarMsg{Value: sum})
		}
	}
	hs.waitChan <- true
}

func (hs *HS) handleReduceResponse(srcID uint8, msg *ScalarMsg) {
	hs.recvSum = msg.Value
	hs.waitChan <- true
}

// handleBarrierRequest handles incoming barrier requests. Only the manager
// for the barrier receives requests; it waits until one has arrived from
// every worker before releasing the group.
func (hs *HS) handleBarrierRequest(srcID uint8, req *BarrierRequest) {
	hs.barrCnt++
	if hs.barrCnt < hs.nrProc {
		return
	}
	hs.barrCnt = 0

	var p uint8
	for p = 0; p < hs.nrProc; p++ {
		if p != hs.pid {
			hs.send(p, BARRRSP, BarrierResponse{BarrierID: req.BarrierID})
		}
	}
	hs.waitChan <- true
}

func (hs *HS) handleBarrierResponse(srcID uint8, rsp *BarrierResponse) {
	hs.waitChan <- true
}
