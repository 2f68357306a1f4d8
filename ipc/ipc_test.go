/*
Package ipc implements the production inter-worker messaging layer.

This file contains the unit tests for the TCP transport, run with both
workers inside the test process on loopback ports.
*/
package ipc

import (
	"testing"
	"time"

	"github.com/dashaylan/HiveSolve/configs"
)

func testWorkers() []configs.WorkerConfig {
	return []configs.WorkerConfig{
		{Address: "127.0.0.1:39181", PID: 0},
		{Address: "127.0.0.1:39182", PID: 1},
	}
}

func recvFrame(t *testing.T, rx <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-rx:
		return msg
	case <-time.After(10 * time.Second):
		t.Fatalf("[TEST] timed out waiting for a frame")
		return nil
	}
}

type endpoint struct {
	ipc *Ipc
	rx  <-chan []byte
	tx  chan<- []byte
	err error
}

// startPair brings up both ranks concurrently, the way real workers start:
// neither listener is guaranteed to be up before the other dials.
func startPair(t *testing.T) (endpoint, endpoint) {
	t.Helper()
	workers := testWorkers()
	results := make([]endpoint, 2)
	done := make(chan uint8, 2)
	var pid uint8
	for pid = 0; pid < 2; pid++ {
		go func(pid uint8) {
			ep := endpoint{}
			ep.ipc, ep.rx, ep.tx, ep.err = Init(pid, workers)
			results[pid] = ep
			done <- pid
		}(pid)
	}
	<-done
	<-done
	for pid = 0; pid < 2; pid++ {
		if results[pid].err != nil {
			t.Fatalf("[TEST] Init for rank %d failed: %s", pid, results[pid].err.Error())
		}
	}
	return results[0], results[1]
}

func TestIpcPeerToPeerFrames(t *testing.T) {
	ep0, ep1 := startPair(t)
	defer ep0.ipc.Close()
	defer ep1.ipc.Close()

	ep0.tx <- []byte{1, 0, 42, 0xDE, 0xAD}
	msg := recvFrame(t, ep1.rx)
	if len(msg) != 5 || msg[0] != 1 || msg[1] != 0 || msg[2] != 42 || msg[3] != 0xDE {
		t.Fatalf("[TEST] frame arrived mangled: %v", msg)
	}

	ep1.tx <- []byte{0, 1, 43}
	msg = recvFrame(t, ep0.rx)
	if msg[1] != 1 || msg[2] != 43 {
		t.Fatalf("[TEST] reply frame arrived mangled: %v", msg)
	}
}

func TestIpcSelfLoopback(t *testing.T) {
	ep0, ep1 := startPair(t)
	defer ep0.ipc.Close()
	defer ep1.ipc.Close()

	ep0.tx <- []byte{0, 0, 7}
	msg := recvFrame(t, ep0.rx)
	if msg[1] != 0 || msg[2] != 7 {
		t.Errorf("[TEST] loopback frame arrived mangled: %v", msg)
	}
}

func TestIpcOrderedDelivery(t *testing.T) {
	ep0, ep1 := startPair(t)
	defer ep0.ipc.Close()
	defer ep1.ipc.Close()

	for i := 0; i < 20; i++ {
		ep0.tx <- []byte{1, 0, uint8(i)}
	}
	for i := 0; i < 20; i++ {
		msg := recvFrame(t, ep1.rx)
		if msg[2] != uint8(i) {
			t.Fatalf("[TEST] frame %d arrived out of order as %d", i, msg[2])
		}
	}
}

func TestIpcRejectsUnknownRank(t *testing.T) {
	if _, _, _, err := Init(5, testWorkers()); err == nil {
		t.Errorf("[TEST] Init with a rank missing from the worker list should fail")
	}
}

func TestPeerMap(t *testing.T) {
	pm := InitPeerMap()
	if pm.NumPeers() != 0 {
		t.Fatalf("[TEST] fresh PeerMap has %d peers", pm.NumPeers())
	}
	pm.AddPeer(3, Peer{Address: "127.0.0.1:9999", Pid: 3})
	if p, ok := pm.GetPeer(3); !ok || p.Address != "127.0.0.1:9999" {
		t.Errorf("[TEST] GetPeer(3) got %+v, %v", p, ok)
	}
	if _, ok := pm.GetPeer(4); ok {
		t.Errorf("[TEST] GetPeer(4) should not exist")
	}
	pm.RemovePeer(3)
	if pm.NumPeers() != 0 {
		t.Errorf("[TEST] RemovePeer left %d peers", pm.NumPeers())
	}
}
