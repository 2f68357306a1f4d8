/*
Package tipc implements the test inter-worker messaging layer.

This is an in-process channel mesh carrying the same [dest, src, msgID] framed
messages as the production ipc package. It exists so that multi-worker runs
can execute deterministically as goroutines inside one process, for unit
tests and the local demo app. Frames a worker addresses to itself are looped
back, matching the production transport.
*/
package tipc

import (
	"errors"
	"fmt"
)

// how many frames to buffer per worker in each direction
const meshBufSize = 64

// Mesh connects nrPeer in-process workers. Each worker gets a send channel
// and a receive channel; one router goroutine per worker moves frames from
// its send queue to the destination's receive queue.
type Mesh struct {
	nrPeer uint8
	rx     []chan []byte
	tx     []chan []byte
}

// NewMesh creates a mesh for nrPeer workers and starts its routers.
func NewMesh(nrPeer uint8) (*Mesh, error) {
	if nrPeer == 0 {
		return nil, errors.New("tipc: peer count must be positive")
	}
	m := &Mesh{
		nrPeer: nrPeer,
		rx:     make([]chan []byte, nrPeer),
		tx:     make([]chan []byte, nrPeer),
	}
	var i uint8
	for i = 0; i < nrPeer; i++ {
		m.rx[i] = make(chan []byte, meshBufSize)
		m.tx[i] = make(chan []byte, meshBufSize)
	}
	for i = 0; i < nrPeer; i++ {
		go m.routeTask(i)
	}
	return m, nil
}

// Connect returns worker id's receive and send channels.
func (m *Mesh) Connect(id uint8) (<-chan []byte, chan<- []byte, error) {
	if id >= m.nrPeer {
		return nil, nil, fmt.Errorf("tipc: id %d exceeds configured limit %d", id, m.nrPeer)
	}
	return m.rx[id], m.tx[id], nil
}

// Close tears the mesh down. No worker may send after Close.
func (m *Mesh) Close() {
	for _, c := range m.tx {
		close(c)
	}
}

// routeTask delivers frames from one worker's send queue to the destination
// worker's receive queue. Frames with an out-of-range destination are
// dropped.
func (m *Mesh) routeTask(id uint8) {
	for msg := range m.tx[id] {
		if len(msg) == 0 {
			continue
		}
		dest := msg[0]
		if dest >= m.nrPeer {
			continue
		}
		m.rx[dest] <- msg
	}
}
