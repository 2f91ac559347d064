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

package uart

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
	"go.bug.st/serial"
)

var errPort = errors.New("port fault")

// mockSerialPort implements serial.Port and answers like an ST25R95 on its
// UART interface.
type mockSerialPort struct {
	readErr    error
	writeErr   error
	drainErrs  []error
	replies    map[byte][]byte
	rx         []byte
	sent       [][]byte
	wakes      int
	inputReset int
	closed     bool
}

func newMockSerialPort() *mockSerialPort {
	return &mockSerialPort{replies: make(map[byte][]byte)}
}

func (*mockSerialPort) SetMode(*serial.Mode) error {
	return nil
}

func (m *mockSerialPort) Read(p []byte) (int, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	if len(m.rx) == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(p, m.rx)
	m.rx = m.rx[n:]
	return n, nil
}

func (m *mockSerialPort) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	if len(p) == 1 && p[0] == wakeByte {
		m.wakes++
		return 1, nil
	}
	m.sent = append(m.sent, append([]byte(nil), p...))
	if p[0] == frame.CmdEcho {
		m.rx = append(m.rx, frame.ResultEcho)
		return len(p), nil
	}
	if reply, ok := m.replies[p[0]]; ok {
		m.rx = append(m.rx, reply...)
	} else {
		m.rx = append(m.rx, frame.ResultOK, 0x00)
	}
	return len(p), nil
}

func (m *mockSerialPort) Drain() error {
	if len(m.drainErrs) > 0 {
		err := m.drainErrs[0]
		m.drainErrs = m.drainErrs[1:]
		return err
	}
	return nil
}

func (m *mockSerialPort) ResetInputBuffer() error {
	m.inputReset++
	m.rx = nil
	return nil
}

func (*mockSerialPort) ResetOutputBuffer() error {
	return nil
}

func (*mockSerialPort) SetDTR(bool) error {
	return nil
}

func (*mockSerialPort) SetRTS(bool) error {
	return nil
}

func (*mockSerialPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (*mockSerialPort) SetReadTimeout(time.Duration) error {
	return nil
}

func (*mockSerialPort) Break(time.Duration) error {
	return nil
}

func (m *mockSerialPort) Close() error {
	m.closed = true
	return nil
}

var _ serial.Port = (*mockSerialPort)(nil)

func newTestTransport(t *testing.T) (*Transport, *mockSerialPort) {
	t.Helper()
	port := newMockSerialPort()
	tr, err := newTransport(port, "ttyTEST", 5*time.Millisecond)
	require.NoError(t, err)
	return tr, port
}

func TestTransport_Echo(t *testing.T) {
	t.Parallel()

	tr, port := newTestTransport(t)
	assert.True(t, tr.PollSend())
	require.NoError(t, tr.SendCommand(frame.CmdEcho, nil, false))
	assert.True(t, tr.ReadEcho())
	assert.Equal(t, [][]byte{{frame.CmdEcho, 0x00}}, port.sent)
}

func TestTransport_SendCommand(t *testing.T) {
	t.Parallel()

	tr, port := newTestTransport(t)
	require.NoError(t, tr.SendCommand(frame.CmdProtocolSelect, []byte{0x02, 0x00}, true))
	assert.Equal(t, []byte{frame.CmdProtocolSelect, 0x03, frame.SOD, 0x02, 0x00}, port.sent[0])

	err := tr.SendCommand(frame.CmdSendRecv, make([]byte, frame.MaxCommandData+1), false)
	require.ErrorIs(t, err, rfal.ErrFrameCorrupted)
}

func TestTransport_Read(t *testing.T) {
	t.Parallel()

	extended := make([]byte, 260)
	for i := range extended {
		extended[i] = byte(i)
	}

	tests := []struct {
		name     string
		wantErr  error
		reply    []byte
		want     []byte
		wantCode byte
		wantLen  uint16
	}{
		{name: "status only", reply: []byte{frame.ResultOK, 0x00}, wantCode: frame.ResultOK},
		{
			name:     "data",
			reply:    []byte{frame.ResultData, 0x03, 0x04, 0x00, 0x28},
			want:     []byte{0x04, 0x00, 0x28},
			wantCode: frame.ResultData,
			wantLen:  3,
		},
		{
			name:     "extended length",
			reply:    append([]byte{frame.ResultData | 0x20, 0x04}, extended...),
			want:     extended,
			wantCode: frame.ResultData,
			wantLen:  260,
		},
		{name: "truncated", reply: []byte{frame.ResultData, 0x05, 0x01}, wantErr: rfal.ErrTransportTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr, port := newTestTransport(t)
			port.replies[frame.CmdSendRecv] = tt.reply
			require.NoError(t, tr.SendCommand(frame.CmdSendRecv, []byte{0x26, 0x07}, false))

			buf := make([]byte, frame.MaxDataLength)
			code, n, err := tr.Read(buf)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantLen, n)
			if len(tt.want) == 0 {
				assert.Zero(t, n)
				return
			}
			assert.Equal(t, tt.want, buf[:n])
		})
	}
}

// jitteryPort delivers the mock's replies in random fragments.
type jitteryPort struct {
	*mockSerialPort
	conn *testutil.JitteryConnection
}

func (p *jitteryPort) Read(b []byte) (int, error) {
	return p.conn.Read(b) //nolint:wrapcheck // test
}

func (p *jitteryPort) Write(b []byte) (int, error) {
	return p.conn.Write(b) //nolint:wrapcheck // test
}

func TestTransport_ReadFragmented(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	mock := newMockSerialPort()
	mock.replies[frame.CmdSendRecv] = append([]byte{frame.ResultData | 0x20, 0x2C}, payload...)
	cfg := testutil.DefaultJitterConfig()
	cfg.MaxLatencyMs = 1
	cfg.Seed = 99
	port := &jitteryPort{mockSerialPort: mock, conn: testutil.NewJitteryConnection(mock, cfg)}

	tr, err := newTransport(port, "ttyJITTER", 200*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, tr.SendCommand(frame.CmdEcho, nil, false))
	assert.True(t, tr.ReadEcho())

	require.NoError(t, tr.SendCommand(frame.CmdSendRecv, []byte{0x30, 0x00}, false))
	buf := make([]byte, frame.MaxDataLength)
	code, n, err := tr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(frame.ResultData), code)
	assert.Equal(t, uint16(len(payload)), n)
	assert.Equal(t, payload, buf[:n])
}

func TestTransport_ReadShortBuffer(t *testing.T) {
	t.Parallel()

	tr, port := newTestTransport(t)
	port.replies[frame.CmdIDN] = []byte{frame.ResultData, 0x04, 'N', 'F', 'C', 0x00}
	require.NoError(t, tr.SendCommand(frame.CmdIDN, nil, false))

	buf := make([]byte, 2)
	_, n, err := tr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), n)
	assert.Equal(t, []byte{'N', 'F'}, buf)
	assert.Empty(t, port.rx, "whole frame consumed")
}

func TestTransport_ReadTimeout(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTransport(t)
	_, _, err := tr.Read(make([]byte, 8))
	require.ErrorIs(t, err, rfal.ErrTransportTimeout)

	var te *rfal.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "read", te.Op)
	assert.Equal(t, "ttyTEST", te.Port)
}

func TestTransport_PortFaults(t *testing.T) {
	t.Parallel()

	tr, port := newTestTransport(t)
	port.writeErr = errPort
	require.ErrorIs(t, tr.SendCommand(frame.CmdEcho, nil, false), errPort)

	port.writeErr = nil
	port.readErr = errPort
	_, _, err := tr.Read(make([]byte, 4))
	require.ErrorIs(t, err, errPort)
	assert.False(t, tr.ReadEcho())
	assert.False(t, tr.WaitOutFallingEdge(5))
}

func TestTransport_DrainRetry(t *testing.T) {
	t.Parallel()

	tr, port := newTestTransport(t)
	port.drainErrs = []error{errors.New("interrupted system call")}
	require.NoError(t, tr.SendCommand(frame.CmdEcho, nil, false))

	port.drainErrs = []error{errPort}
	err := tr.SendCommand(frame.CmdEcho, nil, false)
	require.ErrorIs(t, err, errPort)
	assert.Contains(t, err.Error(), "drain failed")
}

func TestIsInterruptedSystemCall(t *testing.T) {
	t.Parallel()

	assert.False(t, isInterruptedSystemCall(nil))
	assert.True(t, isInterruptedSystemCall(errors.New("read: Interrupted System Call")))
	assert.True(t, isInterruptedSystemCall(errors.New("EINTR")))
	assert.False(t, isInterruptedSystemCall(errPort))
}

func TestDefaultTimeout(t *testing.T) {
	t.Parallel()

	if isWindows() {
		assert.Equal(t, 100*time.Millisecond, defaultTimeout())
	} else {
		assert.Equal(t, 50*time.Millisecond, defaultTimeout())
	}
	assert.Equal(t, 5*time.Millisecond, pollTimeout(5*time.Millisecond))
	assert.Equal(t, 10*time.Millisecond, pollTimeout(time.Second))
}

func TestTransport_ResetAndFlush(t *testing.T) {
	t.Parallel()

	tr, port := newTestTransport(t)
	port.rx = []byte{0xAA, 0xBB}
	require.NoError(t, tr.Reset())
	assert.Equal(t, 1, port.wakes)
	assert.Empty(t, port.rx)

	tr.PulseInLow()
	assert.Equal(t, 2, port.wakes)

	port.rx = []byte{0xCC}
	require.True(t, tr.WaitOutFallingEdge(5))
	require.NoError(t, tr.Flush())
	assert.Equal(t, 2, port.inputReset)
	assert.False(t, tr.WaitOutFallingEdge(2), "look-ahead dropped by flush")
}

func TestTransport_WaitOutFallingEdgeKeepsByte(t *testing.T) {
	t.Parallel()

	tr, port := newTestTransport(t)
	assert.False(t, tr.WaitOutFallingEdge(2))

	require.NoError(t, tr.SendCommand(frame.CmdEcho, nil, false))
	require.True(t, tr.WaitOutFallingEdge(5))
	assert.Empty(t, port.rx)
	assert.True(t, tr.WaitOutFallingEdge(0), "byte still buffered")
	assert.True(t, tr.ReadEcho())
}

func TestTransport_Closed(t *testing.T) {
	t.Parallel()

	tr, port := newTestTransport(t)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.True(t, port.closed)

	assert.False(t, tr.PollSend())
	require.ErrorIs(t, tr.SendCommand(frame.CmdEcho, nil, false), rfal.ErrTransportClosed)
	require.ErrorIs(t, tr.Reset(), rfal.ErrTransportClosed)
	require.ErrorIs(t, tr.Flush(), rfal.ErrTransportClosed)
	_, _, err := tr.Read(make([]byte, 4))
	require.ErrorIs(t, err, rfal.ErrTransportClosed)
	assert.False(t, tr.WaitOutFallingEdge(1))
}

func TestTransport_Table(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTransport(t)
	fakes := testutil.NewPlatform()
	table := tr.Table(fakes.Clock, fakes.Diagnostics)
	require.NoError(t, table.Validate())
	assert.Same(t, tr, table.Command)
	assert.Same(t, tr, table.IRQ)
	assert.Nil(t, table.SPI)
	assert.Equal(t, "UART ttyTEST", tr.String())
}

//nolint:paralleltest // installs the process-wide capability table
func TestTransport_DrivesEngine(t *testing.T) {
	tr, port := newTestTransport(t)
	fakes := testutil.NewPlatform()
	require.NoError(t, platform.Install(tr.Table(fakes.Clock, fakes.Diagnostics)))
	t.Cleanup(platform.Uninstall)

	r, err := rfal.New(sim.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	assert.Equal(t, 2, port.wakes, "IRQ_IN pulse plus reset")
	require.NotEmpty(t, port.sent)
	assert.Equal(t, []byte{frame.CmdEcho, 0x00}, port.sent[len(port.sent)-1])
	assert.True(t, r.NFC.Initialized())
}
