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

// Front-end commands.
const (
	CmdIDN            = 0x01
	CmdProtocolSelect = 0x02
	CmdSendRecv       = 0x04
	CmdIdle           = 0x07
	CmdReadReg        = 0x08
	CmdWriteReg       = 0x09
	CmdEcho           = 0x55
)

// Result codes in the first byte of a response.
const (
	ResultOK   = 0x00
	ResultData = 0x80
	ResultEcho = 0x55
)

// SPI control bytes, sent ahead of every SPI transfer.
const (
	ControlSend  = 0x00
	ControlReset = 0x01
	ControlRead  = 0x02
	ControlPoll  = 0x03
)

// Poll flags returned while ControlPoll is active.
const (
	FlagCanSend = 0x04
	FlagCanRead = 0x08
)

// SOD is the NFCIP-1 start byte prepended to 106 kbps frames.
const SOD = 0xF0

// Frame size limits
const (
	MaxCommandData = 255 // LEN is one byte on the command side
	MaxDataLength  = 528 // front-end buffer size
	HeaderLength   = 2   // result code + length
)
