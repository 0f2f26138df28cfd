// Package dbpool implements the database connection lifecycle: a bounded pool
// of connection handles with liveness-checked handout (pre-ping), age-based
// recycling, and guaranteed release. This file centralizes the pool-level
// error values surfaced to callers.
package dbpool

import "errors"

var (
	// ErrConnectionUnavailable is returned when the liveness probe failed on
	// every acquisition attempt, including freshly dialed replacements.
	ErrConnectionUnavailable = errors.New("connection unavailable: liveness probe failed repeatedly")

	// ErrPoolExhausted is returned when the bounded wait for a free
	// connection slot expires.
	ErrPoolExhausted = errors.New("pool exhausted: timed out waiting for a free connection")

	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrHandleReleased is returned when a handle is released twice.
	// Releasing exactly once per acquisition is the caller's contract;
	// a double release is a programming error and is never silent.
	ErrHandleReleased = errors.New("handle already released")
)
