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

// Package spi connects an ST25R95 front-end on a periph.io SPI port to the
// capability table: the raw chip-select bus, the framed command bus, the IRQ
// lines and pin access all come from one Transport.
package spi

import (
	"errors"
	"fmt"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/internal/frame"
	"github.com/ZaparooProject/go-rfal/platform"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// Default SPI settings
	defaultFreq = 2 * physic.MegaHertz
	mode        = spi.Mode0

	defaultTimeout = 50 * time.Millisecond
	pollInterval   = time.Millisecond
	// IRQ_IN must stay low for at least 10us to wake the front-end.
	irqPulse = 100 * time.Microsecond
)

// ErrPinNotFound is returned when a configured GPIO name is unknown.
var ErrPinNotFound = errors.New("gpio pin not found")

// DefaultPins are the engine-side addresses of the IRQ lines. Table maps
// them onto the configured GPIOs.
var DefaultPins = platform.Pins{
	IRQOutPort: 0,
	IRQOutPin:  1,
	IRQInPort:  0,
	IRQInPin:   2,
}

// Config selects the SPI port and the GPIO lines wired to the front-end.
// Pin names are resolved with gpioreg; an empty name leaves the line unused.
type Config struct {
	Port       string
	ChipSelect string
	IRQIn      string
	IRQOut     string
	Frequency  physic.Frequency
	Timeout    time.Duration
}

// Transport drives an ST25R95 over SPI.
//
// Without a ChipSelect pin the port's hardware chip select frames every
// transfer, so each response is read in one maximum-size transfer. With a
// ChipSelect pin the header is read first and only the announced payload
// follows.
type Transport struct {
	port     spi.PortCloser
	conn     spi.Conn
	cs       gpio.PinOut
	irqIn    gpio.PinOut
	irqOut   gpio.PinIn
	gpio     *GPIO
	portName string
	timeout  time.Duration
	closed   bool
}

// New opens the SPI port and the configured GPIO lines.
func New(cfg Config) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	cs, err := lookupPin(cfg.ChipSelect)
	if err != nil {
		return nil, err
	}
	irqIn, err := lookupPin(cfg.IRQIn)
	if err != nil {
		return nil, err
	}
	irqOut, err := lookupPin(cfg.IRQOut)
	if err != nil {
		return nil, err
	}

	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", cfg.Port, err)
	}

	freq := cfg.Frequency
	if freq == 0 {
		freq = defaultFreq
	}
	connMode := mode
	if cs != nil {
		connMode |= spi.NoCS
	}
	conn, err := port.Connect(freq, connMode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	t, err := newTransport(conn, cs, irqIn, irqOut, cfg.Port, cfg.Timeout)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	t.port = port
	return t, nil
}

func lookupPin(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, nil //nolint:nilnil // an unset line is not an error
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return p, nil
}

func newTransport(
	conn spi.Conn, cs, irqIn gpio.PinOut, irqOut gpio.PinIn, portName string, timeout time.Duration,
) (*Transport, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	t := &Transport{
		conn:     conn,
		cs:       cs,
		irqIn:    irqIn,
		irqOut:   irqOut,
		gpio:     NewGPIO(),
		portName: portName,
		timeout:  timeout,
	}

	for _, p := range []gpio.PinOut{cs, irqIn} {
		if p == nil {
			continue
		}
		if err := p.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("failed to drive %s high: %w", p, err)
		}
	}
	if irqOut != nil {
		if err := irqOut.In(gpio.PullUp, gpio.FallingEdge); err != nil {
			return nil, fmt.Errorf("failed to configure IRQ_OUT: %w", err)
		}
	}
	return t, nil
}

// Table returns a capability table whose transport, IRQ and GPIO slots are
// served by t.
func (t *Transport) Table(clock platform.Clock, diag platform.Diagnostics) *platform.Table {
	if in, ok := t.irqIn.(gpio.PinIO); ok {
		t.gpio.Map(DefaultPins.IRQInPort, DefaultPins.IRQInPin, in)
	}
	if out, ok := t.irqOut.(gpio.PinIO); ok {
		t.gpio.Map(DefaultPins.IRQOutPort, DefaultPins.IRQOutPin, out)
	}
	return &platform.Table{
		SPI:         t,
		Command:     t,
		GPIO:        t.gpio,
		IRQ:         t,
		Clock:       clock,
		Diagnostics: diag,
		Pins:        DefaultPins,
	}
}

// GPIO returns the pin map behind the table's GPIO slot.
func (t *Transport) GPIO() *GPIO {
	return t.gpio
}

func (t *Transport) String() string {
	return "SPI " + t.portName
}

// Close releases the SPI port.
func (t *Transport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.port == nil {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port: %w", err)
	}
	return nil
}

func (t *Transport) setCS(level gpio.Level) {
	if t.cs == nil {
		return
	}
	if err := t.cs.Out(level); err != nil {
		rfal.Debugf("spi: chip select %s: %v", level, err)
	}
}

// Select asserts chip select.
func (t *Transport) Select() {
	t.setCS(gpio.Low)
}

// Deselect releases chip select.
func (t *Transport) Deselect() {
	t.setCS(gpio.High)
}

// TxRx clocks tx out while reading rx. A nil tx sends zeros.
func (t *Transport) TxRx(tx, rx []byte) error {
	if t.closed {
		return rfal.NewTransportError("txrx", t.portName, rfal.ErrTransportClosed)
	}
	if tx == nil {
		tx = frame.GetBuffer(len(rx))
		defer frame.PutBuffer(tx)
	}
	if len(tx) != len(rx) {
		return fmt.Errorf("txrx: tx is %d bytes, rx is %d", len(tx), len(rx))
	}
	if err := t.conn.Tx(tx, rx); err != nil {
		return rfal.NewTransportError("txrx", t.portName, err)
	}
	return nil
}

// transfer runs one chip-select framed transfer.
func (t *Transport) transfer(op string, w, r []byte) error {
	if t.closed {
		return rfal.NewTransportError(op, t.portName, rfal.ErrTransportClosed)
	}
	t.setCS(gpio.Low)
	defer t.setCS(gpio.High)
	if err := t.conn.Tx(w, r); err != nil {
		return rfal.NewTransportError(op, t.portName, err)
	}
	return nil
}

func (t *Transport) pollFlags() (byte, error) {
	r := frame.GetBuffer(2)
	defer frame.PutBuffer(r)
	if err := t.transfer("poll", []byte{frame.ControlPoll, 0x00}, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

// waitFlag polls until flag is raised or timeout passes.
func (t *Transport) waitFlag(op string, flag byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		flags, err := t.pollFlags()
		if err != nil {
			return err
		}
		if flags&flag != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return rfal.NewTransportError(op, t.portName, rfal.ErrTransportTimeout)
		}
		time.Sleep(pollInterval)
	}
}

// PollSend reports whether the front-end accepts a command.
func (t *Transport) PollSend() bool {
	flags, err := t.pollFlags()
	if err != nil {
		rfal.Debugf("spi: poll: %v", err)
		return false
	}
	return flags&frame.FlagCanSend != 0
}

// Reset sends the reset control byte and wakes the front-end again.
func (t *Transport) Reset() error {
	if err := t.transfer("reset", []byte{frame.ControlReset}, make([]byte, 1)); err != nil {
		return err
	}
	t.PulseInLow()
	return nil
}

// SendCommand writes one command frame behind the send control byte.
func (t *Transport) SendCommand(cmd byte, data []byte, sod bool) error {
	buf, err := frame.EncodeCommand(cmd, data, sod)
	if err != nil {
		return rfal.NewTransportError("send", t.portName, err)
	}
	w := append([]byte{frame.ControlSend}, buf...)
	r := frame.GetBuffer(len(w))
	defer frame.PutBuffer(r)
	return t.transfer("send", w, r)
}

// Read waits for a response and copies its payload into data. n is the
// length announced by the front-end, which may exceed len(data).
func (t *Transport) Read(data []byte) (code byte, n uint16, err error) {
	if err := t.waitFlag("read", frame.FlagCanRead, t.timeout); err != nil {
		return 0, 0, err
	}
	if t.cs == nil {
		return t.readWhole(data)
	}
	return t.readSplit(data)
}

// readWhole reads a response in one hardware framed transfer.
func (t *Transport) readWhole(data []byte) (byte, uint16, error) {
	size := 1 + frame.FrameBufferSize
	w := frame.GetBuffer(size)
	defer frame.PutBuffer(w)
	r := frame.GetBuffer(size)
	defer frame.PutBuffer(r)

	w[0] = frame.ControlRead
	if err := t.transfer("read", w, r); err != nil {
		return 0, 0, err
	}
	result, n := frame.ParseHeader(r[1], r[2])
	if err := frame.ValidateLength(n, "read", t.portName); err != nil {
		return 0, 0, err //nolint:wrapcheck // already a transport error
	}
	copy(data, r[1+frame.HeaderLength:1+frame.HeaderLength+n])
	return result, uint16(n), nil //nolint:gosec // bounded by ValidateLength
}

// readSplit reads the header, then exactly the announced payload, under one
// software chip select.
func (t *Transport) readSplit(data []byte) (byte, uint16, error) {
	t.setCS(gpio.Low)
	defer t.setCS(gpio.High)

	hdr := frame.GetBuffer(1 + frame.HeaderLength)
	defer frame.PutBuffer(hdr)
	if err := t.conn.Tx([]byte{frame.ControlRead, 0x00, 0x00}, hdr); err != nil {
		return 0, 0, rfal.NewTransportError("read", t.portName, err)
	}
	result, n := frame.ParseHeader(hdr[1], hdr[2])
	if err := frame.ValidateLength(n, "read", t.portName); err != nil {
		return 0, 0, err //nolint:wrapcheck // already a transport error
	}
	if n == 0 {
		return result, 0, nil
	}

	w := frame.GetBuffer(n)
	defer frame.PutBuffer(w)
	payload := frame.GetBuffer(n)
	defer frame.PutBuffer(payload)
	if err := t.conn.Tx(w, payload); err != nil {
		return 0, 0, rfal.NewTransportError("read", t.portName, err)
	}
	copy(data, payload)
	return result, uint16(n), nil //nolint:gosec // bounded by ValidateLength
}

// ReadEcho reports whether the front-end answered the echo command.
func (t *Transport) ReadEcho() bool {
	if err := t.waitFlag("echo", frame.FlagCanRead, t.timeout); err != nil {
		rfal.Debugf("spi: echo: %v", err)
		return false
	}
	r := frame.GetBuffer(2)
	defer frame.PutBuffer(r)
	if err := t.transfer("echo", []byte{frame.ControlRead, 0x00}, r); err != nil {
		rfal.Debugf("spi: echo: %v", err)
		return false
	}
	return r[1] == frame.ResultEcho
}

// maxFlushReads bounds Flush against a front-end stuck reporting data.
const maxFlushReads = 4

// Flush reads and drops responses the front-end still holds.
func (t *Transport) Flush() error {
	scratch := frame.GetBuffer(frame.MaxDataLength)
	defer frame.PutBuffer(scratch)
	for range maxFlushReads {
		flags, err := t.pollFlags()
		if err != nil {
			return err
		}
		if flags&frame.FlagCanRead == 0 {
			return nil
		}
		if _, _, err := t.Read(scratch); err != nil {
			return err
		}
	}
	return nil
}

// PulseInLow pulses IRQ_IN low to wake the front-end.
func (t *Transport) PulseInLow() {
	if t.irqIn == nil {
		return
	}
	if err := t.irqIn.Out(gpio.Low); err != nil {
		rfal.Debugf("spi: IRQ_IN low: %v", err)
		return
	}
	time.Sleep(irqPulse)
	if err := t.irqIn.Out(gpio.High); err != nil {
		rfal.Debugf("spi: IRQ_IN high: %v", err)
	}
}

// WaitOutFallingEdge waits for IRQ_OUT to fall. Without an IRQ_OUT line it
// polls the read flag instead.
func (t *Transport) WaitOutFallingEdge(timeoutMs uint32) bool {
	timeout := time.Duration(timeoutMs) * time.Millisecond
	if t.irqOut == nil {
		return t.waitFlag("irq", frame.FlagCanRead, timeout) == nil
	}
	if t.irqOut.Read() == gpio.Low {
		return true
	}
	return t.irqOut.WaitForEdge(timeout)
}
