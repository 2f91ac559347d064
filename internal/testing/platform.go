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

// Package testing provides fake platform capabilities for tests: a manual
// clock, a recording diagnostics sink and loopback transports.
package testing

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ZaparooProject/go-rfal/internal/syncutil"
	"github.com/ZaparooProject/go-rfal/platform"
)

// EchoCommand is the front-end echo command code.
const EchoCommand = 0x55

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected transport fault")

// Clock is a manual millisecond clock. DelayMs advances it instead of
// sleeping, so code that polls with delays runs instantly in tests.
type Clock struct {
	ticks  atomic.Uint32
	delays atomic.Uint32
}

// TicksMs returns the current tick count.
func (c *Clock) TicksMs() uint32 {
	return c.ticks.Load()
}

// DelayMs advances the clock by ms.
func (c *Clock) DelayMs(ms uint32) {
	c.delays.Add(1)
	c.ticks.Add(ms)
}

// Advance moves the clock forward without counting a delay.
func (c *Clock) Advance(ms uint32) {
	c.ticks.Add(ms)
}

// Delays returns how many times DelayMs was called.
func (c *Clock) Delays() int {
	return int(c.delays.Load())
}

// ErrorReport is one HandleError call.
type ErrorReport struct {
	File string
	Line int
}

// LogLine is one Log call.
type LogLine struct {
	Msg   string
	Value uint
}

// Diagnostics records everything the engine reports.
type Diagnostics struct {
	errors []ErrorReport
	logs   []LogLine
	mu     syncutil.Mutex
}

// HandleError records an error report.
func (d *Diagnostics) HandleError(file string, line int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, ErrorReport{File: file, Line: line})
}

// Log records a log line.
func (d *Diagnostics) Log(msg string, value uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logs = append(d.logs, LogLine{Msg: msg, Value: value})
}

// Errors returns a copy of the recorded error reports.
func (d *Diagnostics) Errors() []ErrorReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ErrorReport(nil), d.errors...)
}

// Logs returns a copy of the recorded log lines.
func (d *Diagnostics) Logs() []LogLine {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]LogLine(nil), d.logs...)
}

// LoopbackSPI echoes every transmitted byte back as the received byte.
type LoopbackSPI struct {
	Fail     error
	frames   [][]byte
	mu       syncutil.Mutex
	selected bool
}

// Select asserts chip select.
func (s *LoopbackSPI) Select() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = true
}

// Deselect releases chip select.
func (s *LoopbackSPI) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = false
}

// TxRx copies tx into rx and records tx.
func (s *LoopbackSPI) TxRx(tx, rx []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	if !s.selected {
		return fmt.Errorf("txrx without chip select: %w", ErrInjected)
	}
	copy(rx, tx)
	s.frames = append(s.frames, append([]byte(nil), tx...))
	return nil
}

// Frames returns the frames transmitted so far.
func (s *LoopbackSPI) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

// Frame is one command sent over a CommandBus.
type Frame struct {
	Data []byte
	Cmd  byte
	SOD  bool
}

// Response is one queued CommandBus reply.
type Response struct {
	Data []byte
	Code byte
}

// CommandBus is a scripted command/response front-end. It answers the echo
// command on its own; other replies come from the queue.
type CommandBus struct {
	Fail      error
	sent      []Frame
	responses []Response
	mu        syncutil.Mutex
	lastCmd   byte
	resets    int
}

// Queue appends replies returned by subsequent Read calls.
func (b *CommandBus) Queue(responses ...Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses = append(b.responses, responses...)
}

// PollSend always reports ready.
func (*CommandBus) PollSend() bool { return true }

// Reset counts the reset and forgets the last command.
func (b *CommandBus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets++
	b.lastCmd = 0
	return b.Fail
}

// SendCommand records the frame.
func (b *CommandBus) SendCommand(cmd byte, data []byte, sod bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Fail != nil {
		return b.Fail
	}
	b.lastCmd = cmd
	b.sent = append(b.sent, Frame{Cmd: cmd, Data: append([]byte(nil), data...), SOD: sod})
	return nil
}

// Read pops the next queued reply into data.
func (b *CommandBus) Read(data []byte) (code byte, n uint16, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Fail != nil {
		return 0, 0, b.Fail
	}
	if len(b.responses) == 0 {
		return 0, 0, nil
	}
	r := b.responses[0]
	b.responses = b.responses[1:]
	copy(data, r.Data)
	return r.Code, uint16(len(r.Data)), nil //nolint:gosec // test replies are short
}

// ReadEcho reports whether the last command was an echo.
func (b *CommandBus) ReadEcho() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Fail == nil && b.lastCmd == EchoCommand
}

// Flush drops queued replies.
func (b *CommandBus) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses = nil
	return b.Fail
}

// Sent returns the frames sent so far.
func (b *CommandBus) Sent() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Frame(nil), b.sent...)
}

// Resets returns how many times Reset was called.
func (b *CommandBus) Resets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resets
}

// GPIO is an in-memory pin bank.
type GPIO struct {
	pins map[[2]uint32]bool
	mu   syncutil.Mutex
}

// Set drives port/pin.
func (g *GPIO) Set(port, pin uint32, high bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pins == nil {
		g.pins = make(map[[2]uint32]bool)
	}
	g.pins[[2]uint32{port, pin}] = high
}

// Get samples port/pin; unset pins read low.
func (g *GPIO) Get(port, pin uint32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pins[[2]uint32{port, pin}]
}

// IRQ counts wake pulses and reports a falling edge when Edge is set.
type IRQ struct {
	pulses atomic.Int32
	Edge   atomic.Bool
}

// PulseInLow counts a wake pulse.
func (i *IRQ) PulseInLow() {
	i.pulses.Add(1)
}

// WaitOutFallingEdge returns Edge without waiting.
func (i *IRQ) WaitOutFallingEdge(uint32) bool {
	return i.Edge.Load()
}

// Pulses returns how many wake pulses were sent.
func (i *IRQ) Pulses() int {
	return int(i.pulses.Load())
}

// Platform bundles one set of fakes.
type Platform struct {
	Clock       *Clock
	Diagnostics *Diagnostics
	SPI         *LoopbackSPI
	Command     *CommandBus
	GPIO        *GPIO
	IRQ         *IRQ
}

// NewPlatform returns a fresh set of fakes.
func NewPlatform() *Platform {
	return &Platform{
		Clock:       &Clock{},
		Diagnostics: &Diagnostics{},
		SPI:         &LoopbackSPI{},
		Command:     &CommandBus{},
		GPIO:        &GPIO{},
		IRQ:         &IRQ{},
	}
}

// Table returns a capability table wired to the fakes.
func (p *Platform) Table() *platform.Table {
	return &platform.Table{
		SPI:         p.SPI,
		Command:     p.Command,
		GPIO:        p.GPIO,
		IRQ:         p.IRQ,
		Clock:       p.Clock,
		Diagnostics: p.Diagnostics,
		Pins: platform.Pins{
			IRQOutPort: 1,
			IRQOutPin:  2,
			IRQInPort:  1,
			IRQInPin:   3,
		},
	}
}
