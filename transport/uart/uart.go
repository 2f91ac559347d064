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

// Package uart drives an ST25R95 front-end over a go.bug.st/serial port and
// serves the command bus and IRQ slots of the capability table.
package uart

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/internal/frame"
	"github.com/ZaparooProject/go-rfal/internal/syncutil"
	"github.com/ZaparooProject/go-rfal/platform"
	"go.bug.st/serial"
)

// DefaultBaudRate is the front-end's UART speed after power-up.
const DefaultBaudRate = 57600

// wakeByte holds the RX line low for a start bit plus eight data bits, which
// the front-end sees as an IRQ_IN pulse.
const wakeByte = 0x00

// Transport drives an ST25R95 over UART.
type Transport struct {
	port     serial.Port
	portName string
	peek     []byte
	timeout  time.Duration
	mu       syncutil.Mutex
	closed   bool
}

// isWindows returns true if running on Windows
func isWindows() bool {
	return runtime.GOOS == "windows"
}

// defaultTimeout returns the per-response read timeout. Windows serial
// drivers deliver bytes later than Linux and macOS.
func defaultTimeout() time.Duration {
	if isWindows() {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// New opens portName at baud, or DefaultBaudRate when baud is zero.
func New(portName string, baud int) (*Transport, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	t, err := newTransport(port, portName, defaultTimeout())
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

func newTransport(port serial.Port, portName string, timeout time.Duration) (*Transport, error) {
	if err := port.SetReadTimeout(pollTimeout(timeout)); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	return &Transport{port: port, portName: portName, timeout: timeout}, nil
}

// pollTimeout is how long one port.Read may block inside a response read.
func pollTimeout(timeout time.Duration) time.Duration {
	return min(timeout, 10*time.Millisecond)
}

// Table returns a capability table whose command bus and IRQ slots are
// served by t.
func (t *Transport) Table(clock platform.Clock, diag platform.Diagnostics) *platform.Table {
	return &platform.Table{
		Command:     t,
		IRQ:         t,
		Clock:       clock,
		Diagnostics: diag,
	}
}

func (t *Transport) String() string {
	return "UART " + t.portName
}

// Close closes the serial port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry performs port drain with retry logic for interrupted system calls
func (t *Transport) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := range maxRetries {
		err := t.port.Drain()
		if err == nil {
			return nil
		}
		if !isInterruptedSystemCall(err) || attempt == maxRetries-1 {
			return fmt.Errorf("UART %s drain failed: %w", operation, err)
		}
		time.Sleep(baseDelay << attempt)
	}
	return nil
}

func (t *Transport) write(op string, p []byte) error {
	if t.closed {
		return rfal.NewTransportError(op, t.portName, rfal.ErrTransportClosed)
	}
	n, err := t.port.Write(p)
	if err != nil {
		return rfal.NewTransportError(op, t.portName, err)
	}
	if n != len(p) {
		return rfal.NewTransportError(op, t.portName, fmt.Errorf("short write: %d of %d bytes", n, len(p)))
	}
	return t.drainWithRetry(op)
}

// readFull fills buf from the look-ahead buffer and then the port, giving up
// once the response timeout passes without the bytes arriving.
func (t *Transport) readFull(op string, buf []byte) error {
	if t.closed {
		return rfal.NewTransportError(op, t.portName, rfal.ErrTransportClosed)
	}
	got := copy(buf, t.peek)
	t.peek = t.peek[got:]

	deadline := time.Now().Add(t.timeout)
	for got < len(buf) {
		n, err := t.port.Read(buf[got:])
		if err != nil {
			return rfal.NewTransportError(op, t.portName, err)
		}
		got += n
		if n == 0 && time.Now().After(deadline) {
			return rfal.NewTransportError(op, t.portName, rfal.ErrTransportTimeout)
		}
	}
	return nil
}

// PollSend reports whether the port is open. UART has no ready flag; the
// front-end accepts a command whenever it is not answering one.
func (t *Transport) PollSend() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Reset drops buffered bytes in both directions and wakes the front-end.
func (t *Transport) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return rfal.NewTransportError("reset", t.portName, rfal.ErrTransportClosed)
	}
	t.peek = nil
	if err := t.port.ResetInputBuffer(); err != nil {
		return rfal.NewTransportError("reset", t.portName, err)
	}
	if err := t.port.ResetOutputBuffer(); err != nil {
		return rfal.NewTransportError("reset", t.portName, err)
	}
	return t.write("reset", []byte{wakeByte})
}

// SendCommand writes one command frame.
func (t *Transport) SendCommand(cmd byte, data []byte, sod bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf, err := frame.EncodeCommand(cmd, data, sod)
	if err != nil {
		return rfal.NewTransportError("send", t.portName, err)
	}
	return t.write("send", buf)
}

// Read reads one response and copies its payload into data. n is the length
// announced by the front-end, which may exceed len(data).
func (t *Transport) Read(data []byte) (code byte, n uint16, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hdr := frame.GetBuffer(frame.HeaderLength)
	defer frame.PutBuffer(hdr)
	if err := t.readFull("read", hdr[:1]); err != nil {
		return 0, 0, err
	}
	if hdr[0] == frame.ResultEcho {
		return frame.ResultEcho, 0, nil
	}
	if err := t.readFull("read", hdr[1:2]); err != nil {
		return 0, 0, err
	}

	result, size := frame.ParseHeader(hdr[0], hdr[1])
	if err := frame.ValidateLength(size, "read", t.portName); err != nil {
		return 0, 0, err //nolint:wrapcheck // already a transport error
	}
	payload := frame.GetBuffer(size)
	defer frame.PutBuffer(payload)
	if err := t.readFull("read", payload); err != nil {
		return 0, 0, err
	}
	copy(data, payload)
	return result, uint16(size), nil //nolint:gosec // bounded by ValidateLength
}

// ReadEcho reports whether the next byte is the echo answer.
func (t *Transport) ReadEcho() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := []byte{0}
	if err := t.readFull("echo", b); err != nil {
		rfal.Debugf("uart: echo: %v", err)
		return false
	}
	return b[0] == frame.ResultEcho
}

// Flush discards received bytes that were not read.
func (t *Transport) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return rfal.NewTransportError("flush", t.portName, rfal.ErrTransportClosed)
	}
	t.peek = nil
	if err := t.port.ResetInputBuffer(); err != nil {
		return rfal.NewTransportError("flush", t.portName, err)
	}
	return nil
}

// PulseInLow sends the wake byte.
func (t *Transport) PulseInLow() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.write("wake", []byte{wakeByte}); err != nil {
		rfal.Debugf("uart: wake: %v", err)
	}
}

// WaitOutFallingEdge waits for the first byte of a response, which starts
// with the front-end pulling its TX line low. The byte is kept for the next
// read.
func (t *Transport) WaitOutFallingEdge(timeoutMs uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.peek) > 0 {
		return true
	}
	if t.closed {
		return false
	}

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	b := make([]byte, 1)
	for {
		n, err := t.port.Read(b)
		if err != nil {
			rfal.Debugf("uart: wait for response: %v", err)
			return false
		}
		if n == 1 {
			t.peek = append(t.peek, b[0])
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
	}
}
