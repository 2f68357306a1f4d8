/*
Package hivesolve implements a distributed Jacobi solver for dense linear
systems Ax=b.

This file contains the error taxonomy. Every error class is fatal: the
detecting worker aborts the whole group and each worker exits non-zero. There
is no retry and no degraded mode, since a partial result for an unconverged or
malformed linear system is meaningless.
*/
package hivesolve

// ConfigurationError covers invalid run parameters: a non-positive matrix
// size, a bad worker count, or a zero/near-zero diagonal entry.
type ConfigurationError struct {
	Reason string
}

func NewConfigurationError(reason string) *ConfigurationError {
	return &ConfigurationError{Reason: reason}
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ResourceError covers buffer allocation failures for matrix and vector
// storage.
type ResourceError struct {
	Reason string
}

func NewResourceError(reason string) *ResourceError {
	return &ResourceError{Reason: reason}
}

func (e *ResourceError) Error() string {
	return "resource error: " + e.Reason
}

// IOError covers malformed or truncated input data on the loading worker.
type IOError struct {
	Reason string
}

func NewIOError(reason string) *IOError {
	return &IOError{Reason: reason}
}

func (e *IOError) Error() string {
	return "i/o error: " + e.Reason
}

// GroupAbortError is returned from a blocked collective when another worker
// signalled a fatal shutdown.
type GroupAbortError struct {
	Reason string
}

func NewGroupAbortError(reason string) *GroupAbortError {
	return &GroupAbortError{Reason: reason}
}

func (e *GroupAbortError) Error() string {
	return "group aborted: " + e.Reason
}
