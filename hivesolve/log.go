/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the leveled logging helpers. All workers write formatted
lines to the global LogChan; DumpLog pumps them to stdout from a single
goroutine so output from concurrent workers does not interleave mid-line.
*/
package hivesolve

import "fmt"

var LogChan chan string = make(chan string, 100)

// SetDebug sets the debug message level. Lower levels are included in
// higher levels
// 0 - disable all output
// 1 - Enable Error messages
// 2 - Enable Info messages
// 3 - Enables transport message trace
// 4 - Enable Debug messages
func (hs *HS) SetDebug(level int) {
	hs.debugLevel = level
}

// LogError used to log any error messages
func (hs *HS) LogError(f string, a ...interface{}) {
	if hs.debugLevel > 0 {
		hs.Log(f, a...)
	}
}

// LogInfo used to log any info messages
func (hs *HS) LogInfo(f string, a ...interface{}) {
	if hs.debugLevel > 1 {
		hs.Log(f, a...)
	}
}

// LogMsg used to log messages sent to and received from the transport
func (hs *HS) LogMsg(f string, a ...interface{}) {
	if hs.debugLevel > 2 {
		hs.Log(f, a...)
	}
}

// LogDebug used to log verbose debug info useful for debugging the system
func (hs *HS) LogDebug(f string, a ...interface{}) {
	if hs.debugLevel > 3 {
		hs.Log(f, a...)
	}
}

// Log is called by all of the log functions and formats the messages and puts
// them on the global Log channel
func (hs *HS) Log(f string, a ...interface{}) {
	s := fmt.Sprintf("[%d]-", hs.pid) + fmt.Sprintf(f, a...) + "\n"
	LogChan <- s
}

func DumpLog() {
	for s := range LogChan {
		fmt.Print(s)
	}
}
