// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package platform holds the capability table the protocol engine reaches
// the host through, and the fixed set of entry points the engine calls.
//
// The table is installed once at start-of-day. Every entry point in this
// package dispatches into the installed table on the caller's goroutine and
// panics when no table has been installed: that is a broken integration,
// not a runtime condition to recover from.
package platform

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ZaparooProject/go-rfal/internal/syncutil"
)

// Installation errors. ErrNotInstalled is also the panic value of every entry
// point used before Install.
var (
	ErrAlreadyInstalled = errors.New("platform: capability table already installed")
	ErrIncompleteTable  = errors.New("platform: capability table incomplete")
	ErrNotInstalled     = errors.New("platform: capability table not installed")
)

// SPIBus is the chip-select transport variant: assert, exchange, deassert.
type SPIBus interface {
	Select()
	Deselect()
	// TxRx clocks out tx while reading len(rx) bytes. tx and rx have the
	// same length; a nil tx sends dummy bytes.
	TxRx(tx, rx []byte) error
}

// CommandBus is the framed command/response transport variant used by
// front-ends such as the ST25R95.
type CommandBus interface {
	// PollSend reports whether the front-end is ready to accept a command.
	PollSend() bool
	Reset() error
	// SendCommand writes one command frame. sod prefixes the payload with
	// the NFCIP1 start-of-data byte.
	SendCommand(cmd byte, data []byte, sod bool) error
	// Read reads one response frame into data and returns the result code
	// and the payload length announced by the front-end.
	Read(data []byte) (code byte, n uint16, err error)
	ReadEcho() bool
	Flush() error
}

// GPIO is digital pin access addressed by port and pin number.
type GPIO interface {
	Set(port, pin uint32, high bool)
	Get(port, pin uint32) bool
}

// IRQ drives the front-end interrupt lines.
type IRQ interface {
	// PulseInLow pulses IRQ_IN low to wake the front-end.
	PulseInLow()
	// WaitOutFallingEdge waits up to timeoutMs for IRQ_OUT to fall and
	// reports whether it did.
	WaitOutFallingEdge(timeoutMs uint32) bool
}

// Pins names the interrupt lines the engine drives through GPIO.
type Pins struct {
	IRQOutPort uint32
	IRQOutPin  uint32
	IRQInPort  uint32
	IRQInPin   uint32
}

// Clock is the millisecond tick source and delay.
type Clock interface {
	TicksMs() uint32
	DelayMs(ms uint32)
}

// Diagnostics receives engine error reports and log lines.
type Diagnostics interface {
	HandleError(file string, line int)
	Log(msg string, value uint)
}

// Table is the set of platform functions supplied by the integrator.
// Clock, Diagnostics and at least one of SPI or Command are mandatory.
type Table struct {
	SPI         SPIBus
	Command     CommandBus
	GPIO        GPIO
	IRQ         IRQ
	Clock       Clock
	Diagnostics Diagnostics
	Pins        Pins
}

// Validate checks that t provides every mandatory slot.
func (t *Table) Validate() error {
	if t == nil {
		return ErrIncompleteTable
	}
	if t.Clock == nil {
		return fmt.Errorf("%w: missing clock", ErrIncompleteTable)
	}
	if t.Diagnostics == nil {
		return fmt.Errorf("%w: missing diagnostics", ErrIncompleteTable)
	}
	if t.SPI == nil && t.Command == nil {
		return fmt.Errorf("%w: missing transport", ErrIncompleteTable)
	}
	return nil
}

var (
	installMu syncutil.Mutex
	installed atomic.Pointer[Table]
)

// Install makes t the active capability table. It succeeds exactly once; a
// second call fails with ErrAlreadyInstalled and leaves the first table in
// place. The table is copied, so later changes to t have no effect.
func Install(t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}

	installMu.Lock()
	defer installMu.Unlock()

	if installed.Load() != nil {
		return ErrAlreadyInstalled
	}
	cp := *t
	installed.Store(&cp)
	return nil
}

// Uninstall removes the active table. It exists for session reset only;
// every entry point panics until the next Install.
func Uninstall() {
	installMu.Lock()
	defer installMu.Unlock()
	installed.Store(nil)
}

// Installed reports whether a table is active.
func Installed() bool {
	return installed.Load() != nil
}

func table() *Table {
	t := installed.Load()
	if t == nil {
		panic(ErrNotInstalled)
	}
	return t
}
