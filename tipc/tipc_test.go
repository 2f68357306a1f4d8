/*
Package tipc implements the test inter-worker messaging layer.

This file contains the unit tests for the in-process mesh.
*/
package tipc

import (
	"testing"
	"time"
)

func recvFrame(t *testing.T, rx <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-rx:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatalf("[TEST] timed out waiting for a frame")
		return nil
	}
}

func TestMeshRoutesByDestination(t *testing.T) {
	m, err := NewMesh(3)
	if err != nil {
		t.Fatalf("[TEST] NewMesh failed: %s", err.Error())
	}
	defer m.Close()

	rx1, _, err := m.Connect(1)
	if err != nil {
		t.Fatalf("[TEST] Connect(1) failed: %s", err.Error())
	}
	_, tx0, err := m.Connect(0)
	if err != nil {
		t.Fatalf("[TEST] Connect(0) failed: %s", err.Error())
	}

	tx0 <- []byte{1, 0, 42, 0xAA}
	msg := recvFrame(t, rx1)
	if msg[1] != 0 || msg[2] != 42 || msg[3] != 0xAA {
		t.Errorf("[TEST] frame arrived mangled: %v", msg)
	}
}

func TestMeshSelfLoopback(t *testing.T) {
	m, err := NewMesh(2)
	if err != nil {
		t.Fatalf("[TEST] NewMesh failed: %s", err.Error())
	}
	defer m.Close()

	rx0, tx0, err := m.Connect(0)
	if err != nil {
		t.Fatalf("[TEST] Connect(0) failed: %s", err.Error())
	}
	tx0 <- []byte{0, 0, 7}
	msg := recvFrame(t, rx0)
	if msg[2] != 7 {
		t.Errorf("[TEST] loopback frame arrived mangled: %v", msg)
	}
}

func TestMeshDropsOutOfRangeDestination(t *testing.T) {
	m, err := NewMesh(2)
	if err != nil {
		t.Fatalf("[TEST] NewMesh failed: %s", err.Error())
	}
	defer m.Close()

	rx1, _, _ := m.Connect(1)
	_, tx0, _ := m.Connect(0)
	tx0 <- []byte{9, 0, 1} // no such worker, must be dropped
	tx0 <- []byte{1, 0, 2}
	msg := recvFrame(t, rx1)
	if msg[2] != 2 {
		t.Errorf("[TEST] expected the second frame only, got %v", msg)
	}
}

func TestMeshRejectsBadIDs(t *testing.T) {
	if _, err := NewMesh(0); err == nil {
		t.Errorf("[TEST] NewMesh(0) should fail")
	}
	m, err := NewMesh(2)
	if err != nil {
		t.Fatalf("[TEST] NewMesh failed: %s", err.Error())
	}
	defer m.Close()
	if _, _, err := m.Connect(2); err == nil {
		t.Errorf("[TEST] Connect past the peer count should fail")
	}
}
