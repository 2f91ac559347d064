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

package frame

import (
	"testing"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want []byte
		cmd  byte
		sod  bool
	}{
		{name: "echo", cmd: CmdEcho, want: []byte{0x55, 0x00}},
		{name: "protocol select", cmd: CmdProtocolSelect, data: []byte{0x02, 0x00}, want: []byte{0x02, 0x02, 0x02, 0x00}},
		{name: "send with start byte", cmd: CmdSendRecv, data: []byte{0x30, 0x04}, sod: true, want: []byte{0x04, 0x03, 0xF0, 0x30, 0x04}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := EncodeCommand(tt.cmd, tt.data, tt.sod)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeCommand_TooLong(t *testing.T) {
	t.Parallel()

	_, err := EncodeCommand(CmdSendRecv, make([]byte, MaxCommandData), false)
	require.NoError(t, err)

	_, err = EncodeCommand(CmdSendRecv, make([]byte, MaxCommandData), true)
	require.ErrorIs(t, err, rfal.ErrFrameCorrupted)
}

func TestParseHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		code       byte
		length     byte
		wantResult byte
		wantN      int
	}{
		{name: "ok", code: 0x00, length: 0x00, wantResult: ResultOK, wantN: 0},
		{name: "data", code: 0x80, length: 0x12, wantResult: ResultData, wantN: 0x12},
		{name: "extended length", code: 0xA0, length: 0x10, wantResult: ResultData, wantN: 0x110},
		{name: "both length bits", code: 0xE0, length: 0x01, wantResult: ResultData, wantN: 0x301},
		{name: "echo ignores length", code: 0x55, length: 0x99, wantResult: ResultEcho, wantN: 0},
		{name: "error code", code: 0x87, length: 0x00, wantResult: 0x87, wantN: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, n := ParseHeader(tt.code, tt.length)
			assert.Equal(t, tt.wantResult, result)
			assert.Equal(t, tt.wantN, n)
		})
	}
}

func TestValidateLength(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateLength(0, "read", "spi0"))
	require.NoError(t, ValidateLength(MaxDataLength, "read", "spi0"))

	err := ValidateLength(MaxDataLength+1, "read", "spi0")
	require.ErrorIs(t, err, rfal.ErrFrameCorrupted)
	assert.Contains(t, err.Error(), "read spi0")
}

func TestIsError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsError(ResultOK))
	assert.False(t, IsError(ResultData))
	assert.False(t, IsError(ResultEcho))
	assert.True(t, IsError(0x82))
	assert.True(t, IsError(0x8E))
}

func TestBufferPool(t *testing.T) {
	t.Parallel()

	p := NewBufferPool()
	small := p.GetBuffer(3)
	assert.Len(t, small, 3)
	assert.Equal(t, SmallBufferSize, cap(small))
	small[0] = 0xAA
	p.PutBuffer(small)

	again := p.GetBuffer(SmallBufferSize)
	assert.Len(t, again, SmallBufferSize)
	assert.Zero(t, again[0], "returned buffers are cleared")

	big := p.GetBuffer(FrameBufferSize)
	assert.Equal(t, FrameBufferSize, cap(big))
	p.PutBuffer(big)

	huge := p.GetBuffer(FrameBufferSize + 1)
	assert.Len(t, huge, FrameBufferSize+1)
	p.PutBuffer(huge)
}
