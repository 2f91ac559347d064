//go:build deadlock

// Package syncutil provides the mutexes used across the module. Building with
// -tags=deadlock swaps in go-deadlock so lock-order bugs between the engine
// worker, transports and polling sessions are reported.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockDetection reports whether lock tracking is compiled in.
const DeadlockDetection = true

// A polling round holds its lock for at most one detect timeout plus an
// exchange, well under this.
func init() {
	deadlock.Opts.DeadlockTimeout = 10 * time.Second
}

// Mutex is a deadlock-tracked mutex.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a deadlock-tracked read/write mutex.
type RWMutex struct {
	deadlock.RWMutex
}
