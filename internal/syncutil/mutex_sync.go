//go:build !deadlock

// Package syncutil provides the mutexes used across the module. Building with
// -tags=deadlock swaps in go-deadlock so lock-order bugs between the engine
// worker, transports and polling sessions are reported.
package syncutil

import "sync"

// DeadlockDetection reports whether lock tracking is compiled in.
const DeadlockDetection = false

// Mutex is a plain sync.Mutex.
type Mutex struct {
	sync.Mutex
}

// RWMutex is a plain sync.RWMutex.
type RWMutex struct {
	sync.RWMutex
}
