/*
Package ipc implements the production inter-worker messaging layer.

This file contains the TCP transport: reliable point-to-point connections
between this worker and every peer in the run, carrying length-prefixed
frames whose first three bytes are [dest, src, msgID]. Each worker listens on
its configured address and dials every peer's listener; the outbound
connection is used for sends to that peer and accepted connections are used
for receives. Frames a worker addresses to itself never touch the network.
*/
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dashaylan/HiveSolve/configs"
)

// how many ipc messages to buffer
const ipcBufSize int = 64

// how long Init keeps redialing an unreachable peer before giving up
const connectTimeout = 30 * time.Second

// Ipc structure defines the properties of an Ipc instance
type Ipc struct {
	pid      uint8
	listener *net.TCPListener
	peermap  PeerMap
	rxChan   chan []byte
	txChan   chan []byte
	halt     chan struct{}
}

// Peer is one remote worker and the connection used to send to it.
type Peer struct {
	Conn    net.Conn
	Address string
	Pid     uint8
}

// PeerMap is a mutex-protected rank-to-peer table.
type PeerMap struct {
	mut      *sync.RWMutex
	internal map[uint8]Peer
}

// InitPeerMap initializes an empty PeerMap
func InitPeerMap() PeerMap {
	return PeerMap{mut: new(sync.RWMutex), internal: make(map[uint8]Peer)}
}

// AddPeer adds a peer and its connection to the map
func (pm *PeerMap) AddPeer(pid uint8, peer Peer) {
	pm.mut.Lock()
	pm.internal[pid] = peer
	pm.mut.Unlock()
}

// GetPeer returns a peer, and its existence
func (pm *PeerMap) GetPeer(pid uint8) (Peer, bool) {
	pm.mut.RLock()
	peer, exist := pm.internal[pid]
	pm.mut.RUnlock()
	return peer, exist
}

// GetPeerConn returns the conn of a peer, and its existence
func (pm *PeerMap) GetPeerConn(pid uint8) (net.Conn, bool) {
	pm.mut.RLock()
	peer, exist := pm.internal[pid]
	pm.mut.RUnlock()
	if !exist {
		return nil, false
	}
	return peer.Conn, true
}

// RemovePeer removes a peer and its connection from the map
func (pm *PeerMap) RemovePeer(pid uint8) {
	pm.mut.Lock()
	delete(pm.internal, pid)
	pm.mut.Unlock()
}

// NumPeers returns the number of peers in the map
func (pm *PeerMap) NumPeers() int {
	pm.mut.RLock()
	numPeers := len(pm.internal)
	pm.mut.RUnlock()
	return numPeers
}

// Init starts the transport for rank pid: it listens on this worker's
// configured address, dials every peer (retrying until the deadline so start
// order does not matter), and returns the receive and send channels. A peer
// that never comes up is fatal; the run cannot proceed with a partial group.
func Init(pid uint8, workers []configs.WorkerConfig) (*Ipc, <-chan []byte, chan<- []byte, error) {
	var self *configs.WorkerConfig
	for i := range workers {
		if workers[i].PID == pid {
			self = &workers[i]
			break
		}
	}
	if self == nil {
		return nil, nil, nil, fmt.Errorf("ipc: rank %d not present in worker list", pid)
	}

	ipc := &Ipc{
		pid:     pid,
		peermap: InitPeerMap(),
		rxChan:  make(chan []byte, ipcBufSize),
		txChan:  make(chan []byte, ipcBufSize),
		halt:    make(chan struct{}),
	}

	_, port, err := net.SplitHostPort(self.Address)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ipc: bad listen address %q: %v", self.Address, err)
	}
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ipc: cannot listen on %q: %v", self.Address, err)
	}
	ipc.listener = listener.(*net.TCPListener)

	go ipc.listenTask()
	go ipc.sendTask()

	deadline := time.Now().Add(connectTimeout)
	for _, w := range workers {
		if w.PID == pid {
			continue
		}
		var conn net.Conn
		for {
			conn, err = net.DialTimeout("tcp", w.Address, 5*time.Second)
			if err == nil {
				break
			}
			if time.Now().After(deadline) {
				ipc.Close()
				return nil, nil, nil, fmt.Errorf("ipc: cannot reach worker %d at %s: %v", w.PID, w.Address, err)
			}
			time.Sleep(200 * time.Millisecond)
		}
		ipc.peermap.AddPeer(w.PID, Peer{Conn: conn, Address: w.Address, Pid: w.PID})
	}
	return ipc, ipc.rxChan, ipc.txChan, nil
}

// Close shuts the transport down: the listener stops accepting and every
// peer connection is closed.
func (ipc *Ipc) Close() {
	close(ipc.halt)
	ipc.listener.Close()
	ipc.peermap.mut.Lock()
	for _, p := range ipc.peermap.internal {
		if p.Conn != nil {
			p.Conn.Close()
		}
	}
	ipc.peermap.mut.Unlock()
}

// sendTask routes outgoing frames either back to the Rx channel (self) or to
// the destination peer's connection.
func (ipc *Ipc) sendTask() {
	for {
		var msg []byte
		select {
		case msg = <-ipc.txChan:
		case <-ipc.halt:
			return
		}
		if len(msg) == 0 {
			continue
		}
		dest := msg[0]
		if dest == ipc.pid {
			ipc.rxChan <- msg
			continue
		}
		conn, ok := ipc.peermap.GetPeerConn(dest)
		if !ok {
			fmt.Printf("[IPC] sendTask: no connection for rank %d, frame dropped\n", dest)
			continue
		}
		if err := writeFrame(conn, msg); err != nil {
			fmt.Printf("[IPC] sendTask: write to rank %d failed: %v\n", dest, err)
		}
	}
}

// listenTask accepts inbound connections and starts a receive loop for each.
func (ipc *Ipc) listenTask() {
	for {
		conn, err := ipc.listener.AcceptTCP()
		if err != nil {
			select {
			case <-ipc.halt:
				return
			default:
			}
			fmt.Printf("[IPC] listenTask: accept failed: %v\n", err)
			continue
		}
		go ipc.receiveTask(conn)
	}
}

// receiveTask reads frames from one connection and puts them on the rx
// channel until the connection drops.
func (ipc *Ipc) receiveTask(conn *net.TCPConn) {
	for {
		msg, err := readFrame(conn)
		if err != nil {
			return
		}
		select {
		case ipc.rxChan <- msg:
		case <-ipc.halt:
			return
		}
	}
}

// Frames on the wire are a 4-byte BigEndian length followed by the payload.
func writeFrame(conn net.Conn, data []byte) error {
	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, uint32(len(data)))
	if _, err := conn.Write(hdr); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

func readFrame(conn net.Conn) ([]byte, error) {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr)
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
