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

package spi

import (
	"errors"
	"testing"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/engine/sim"
	"github.com/ZaparooProject/go-rfal/internal/frame"
	testutil "github.com/ZaparooProject/go-rfal/internal/testing"
	"github.com/ZaparooProject/go-rfal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"
)

var errBus = errors.New("bus fault")

// mockFrontEnd implements spi.Conn and answers like an ST25R95 behind the
// SPI control byte.
type mockFrontEnd struct {
	fail    error
	cs      *gpiotest.Pin
	replies map[byte][]byte
	pending []byte
	rest    []byte
	sent    [][]byte
	resets  int
	busy    int
}

func newMockFrontEnd() *mockFrontEnd {
	return &mockFrontEnd{replies: make(map[byte][]byte)}
}

func (*mockFrontEnd) String() string {
	return "mock-st25r95"
}

func (*mockFrontEnd) Duplex() conn.Duplex {
	return conn.Full
}

func (m *mockFrontEnd) TxPackets(p []spi.Packet) error {
	for _, pkt := range p {
		if err := m.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockFrontEnd) Tx(w, r []byte) error {
	if m.fail != nil {
		return m.fail
	}
	if len(w) != len(r) {
		return errors.New("mock: transfer is not full duplex")
	}
	// Second half of a split read continues the response stream.
	if m.rest != nil {
		copy(r, m.rest)
		m.rest = nil
		return nil
	}

	switch w[0] {
	case frame.ControlSend:
		m.command(w[1:])
	case frame.ControlPoll:
		flags := byte(frame.FlagCanSend)
		if m.pending != nil {
			if m.busy > 0 {
				m.busy--
			} else {
				flags |= frame.FlagCanRead
			}
		}
		r[1] = flags
	case frame.ControlRead:
		n := copy(r[1:], m.pending)
		if m.cs != nil && n < len(m.pending) {
			m.rest = m.pending[n:]
		}
		m.pending = nil
	case frame.ControlReset:
		m.resets++
		m.pending = nil
	}
	return nil
}

func (m *mockFrontEnd) command(f []byte) {
	m.sent = append(m.sent, append([]byte(nil), f...))
	if f[0] == frame.CmdEcho {
		m.pending = []byte{frame.ResultEcho}
		return
	}
	if reply, ok := m.replies[f[0]]; ok {
		m.pending = reply
		return
	}
	m.pending = []byte{frame.ResultOK, 0x00}
}

type fixture struct {
	t      *Transport
	fe     *mockFrontEnd
	irqIn  *gpiotest.Pin
	irqOut *gpiotest.Pin
}

func newFixture(t *testing.T, softCS bool) *fixture {
	t.Helper()
	f := &fixture{
		fe:     newMockFrontEnd(),
		irqIn:  &gpiotest.Pin{N: "IRQ_IN", Num: 2},
		irqOut: &gpiotest.Pin{N: "IRQ_OUT", Num: 1, EdgesChan: make(chan gpio.Level, 1)},
	}
	var cs gpio.PinOut
	if softCS {
		f.fe.cs = &gpiotest.Pin{N: "CS", Num: 8}
		cs = f.fe.cs
	}

	tr, err := newTransport(f.fe, cs, f.irqIn, f.irqOut, "mock0", 5*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	f.t = tr
	return f
}

func TestNewTransport_InitialLevels(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	assert.Equal(t, gpio.High, f.fe.cs.Read())
	assert.Equal(t, gpio.High, f.irqIn.Read())
	assert.Equal(t, gpio.PullUp, f.irqOut.Pull())
	assert.Equal(t, "SPI mock0", f.t.String())
}

func TestTransport_Echo(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	require.NoError(t, f.t.SendCommand(frame.CmdEcho, nil, false))
	assert.True(t, f.t.ReadEcho())
	assert.Equal(t, [][]byte{{frame.CmdEcho, 0x00}}, f.fe.sent)

	assert.False(t, f.t.ReadEcho(), "nothing left to read")
}

func TestTransport_SendCommandWithStartByte(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	require.NoError(t, f.t.SendCommand(frame.CmdSendRecv, []byte{0x30, 0x04}, true))
	assert.Equal(t, []byte{0x04, 0x03, frame.SOD, 0x30, 0x04}, f.fe.sent[0])

	err := f.t.SendCommand(frame.CmdSendRecv, make([]byte, 300), false)
	require.ErrorIs(t, err, rfal.ErrFrameCorrupted)
}

func TestTransport_Read(t *testing.T) {
	t.Parallel()

	long := make([]byte, 2+260)
	long[0], long[1] = 0xA0, 0x04
	for i := range 260 {
		long[2+i] = byte(i)
	}

	tests := []struct {
		name     string
		reply    []byte
		wantData []byte
		bufLen   int
		wantN    uint16
		wantCode byte
		softCS   bool
	}{
		{name: "short", reply: []byte{0x80, 0x03, 'a', 'b', 'c'}, bufLen: 8, wantCode: 0x80, wantN: 3, wantData: []byte("abc")},
		{name: "short soft cs", reply: []byte{0x80, 0x03, 'a', 'b', 'c'}, bufLen: 8, softCS: true, wantCode: 0x80, wantN: 3, wantData: []byte("abc")},
		{name: "status only", reply: []byte{0x00, 0x00}, bufLen: 8, wantCode: 0x00},
		{name: "error code", reply: []byte{0x87, 0x00}, bufLen: 8, softCS: true, wantCode: 0x87},
		{name: "extended length", reply: long, bufLen: 300, wantCode: 0x80, wantN: 260, wantData: long[2:]},
		{name: "extended length soft cs", reply: long, bufLen: 300, softCS: true, wantCode: 0x80, wantN: 260, wantData: long[2:]},
		{name: "truncated", reply: []byte{0x80, 0x04, 1, 2, 3, 4}, bufLen: 2, wantCode: 0x80, wantN: 4, wantData: []byte{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.softCS)
			f.fe.replies[frame.CmdSendRecv] = tt.reply
			f.fe.busy = 2
			require.NoError(t, f.t.SendCommand(frame.CmdSendRecv, []byte{0x26, 0x07}, false))

			buf := make([]byte, tt.bufLen)
			code, n, err := f.t.Read(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantN, n)
			if len(tt.wantData) > 0 {
				assert.Equal(t, tt.wantData, buf[:len(tt.wantData)])
			}
			if tt.softCS {
				assert.Equal(t, gpio.High, f.fe.cs.Read(), "chip select released")
			}
		})
	}
}

func TestTransport_ReadTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	_, _, err := f.t.Read(make([]byte, 4))
	require.ErrorIs(t, err, rfal.ErrTransportTimeout)
	assert.True(t, rfal.IsTransient(err))
	assert.Contains(t, err.Error(), "read mock0")
}

func TestTransport_BusFault(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.fe.fail = errBus

	assert.False(t, f.t.PollSend())
	require.ErrorIs(t, f.t.SendCommand(frame.CmdEcho, nil, false), errBus)
	require.ErrorIs(t, f.t.Reset(), errBus)
	assert.False(t, f.t.ReadEcho())
}

func TestTransport_ResetAndPoll(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	assert.True(t, f.t.PollSend())

	require.NoError(t, f.t.SendCommand(frame.CmdIDN, nil, false))
	require.NoError(t, f.t.Reset())
	assert.Equal(t, 1, f.fe.resets)
	assert.Nil(t, f.fe.pending, "reset drops the response")
	assert.Equal(t, gpio.High, f.irqIn.Read(), "IRQ_IN back high after the wake pulse")
}

func TestTransport_Flush(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	require.NoError(t, f.t.SendCommand(frame.CmdIDN, nil, false))
	require.NoError(t, f.t.Flush())
	assert.Nil(t, f.fe.pending)
	require.NoError(t, f.t.Flush())
}

func TestTransport_TxRx(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.t.Select()
	assert.Equal(t, gpio.Low, f.fe.cs.Read())

	rx := make([]byte, 2)
	require.NoError(t, f.t.TxRx(nil, rx))
	require.Error(t, f.t.TxRx([]byte{1}, rx))

	f.t.Deselect()
	assert.Equal(t, gpio.High, f.fe.cs.Read())
}

func TestTransport_Closed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	require.NoError(t, f.t.Close())
	require.NoError(t, f.t.Close())

	require.ErrorIs(t, f.t.SendCommand(frame.CmdEcho, nil, false), rfal.ErrTransportClosed)
	require.ErrorIs(t, f.t.TxRx([]byte{0}, []byte{0}), rfal.ErrTransportClosed)
}

func TestTransport_WaitOutFallingEdge(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	assert.False(t, f.t.WaitOutFallingEdge(1))

	f.irqOut.EdgesChan <- gpio.Low
	assert.True(t, f.t.WaitOutFallingEdge(100))
	assert.True(t, f.t.WaitOutFallingEdge(0), "line already low")
}

func TestTransport_WaitOutFallingEdgeWithoutLine(t *testing.T) {
	t.Parallel()

	fe := newMockFrontEnd()
	tr, err := newTransport(fe, nil, nil, nil, "mock1", 5*time.Millisecond)
	require.NoError(t, err)

	assert.False(t, tr.WaitOutFallingEdge(2))
	require.NoError(t, tr.SendCommand(frame.CmdEcho, nil, false))
	assert.True(t, tr.WaitOutFallingEdge(2))
}

func TestGPIO(t *testing.T) {
	t.Parallel()

	g := NewGPIO()
	led := &gpiotest.Pin{N: "LED", Num: 17}
	g.Map(1, 17, led)

	g.Set(1, 17, true)
	assert.Equal(t, gpio.High, led.Read())
	assert.True(t, g.Get(1, 17))
	g.Set(1, 17, false)
	assert.False(t, g.Get(1, 17))

	assert.False(t, g.Get(9, 9))
	assert.NotPanics(t, func() { g.Set(9, 9, true) })
}

func TestTransport_Table(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	fakes := testutil.NewPlatform()
	tbl := f.t.Table(fakes.Clock, fakes.Diagnostics)
	require.NoError(t, tbl.Validate())
	assert.Equal(t, DefaultPins, tbl.Pins)

	assert.True(t, tbl.GPIO.Get(DefaultPins.IRQOutPort, DefaultPins.IRQOutPin), "IRQ_OUT idles high")
	tbl.GPIO.Set(DefaultPins.IRQInPort, DefaultPins.IRQInPin, false)
	assert.Equal(t, gpio.Low, f.irqIn.Read())
}

//nolint:paralleltest // installs the capability table
func TestTransport_DrivesEngine(t *testing.T) {
	f := newFixture(t, false)
	fakes := testutil.NewPlatform()
	require.NoError(t, platform.Install(f.t.Table(fakes.Clock, fakes.Diagnostics)))
	t.Cleanup(platform.Uninstall)

	r, err := rfal.New(sim.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	assert.Equal(t, 1, f.fe.resets)
	require.NotEmpty(t, f.fe.sent)
	assert.Equal(t, []byte{frame.CmdEcho, 0x00}, f.fe.sent[len(f.fe.sent)-1])
	assert.True(t, r.NFC.Initialized())
}
