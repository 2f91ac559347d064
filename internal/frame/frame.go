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

// Package frame encodes ST25R95 command frames and decodes response headers.
// The same layout runs over SPI (behind a control byte) and UART.
package frame

import (
	"fmt"

	rfal "github.com/ZaparooProject/go-rfal"
)

// extLenMask selects the result code bits that carry length bits 9:8 of a
// data response.
const extLenMask = 0x60

// EncodeCommand builds CMD LEN [SOD] DATA. With sod set the start byte is
// counted in LEN.
func EncodeCommand(cmd byte, data []byte, sod bool) ([]byte, error) {
	n := len(data)
	if sod {
		n++
	}
	if n > MaxCommandData {
		return nil, fmt.Errorf("command 0x%02X with %d data bytes: %w", cmd, n, rfal.ErrFrameCorrupted)
	}

	buf := make([]byte, 0, HeaderLength+n)
	buf = append(buf, cmd, byte(n))
	if sod {
		buf = append(buf, SOD)
	}
	return append(buf, data...), nil
}

// ParseHeader splits a response header into the result code and the payload
// length. Data responses longer than 255 bytes borrow two result code bits
// for the length; those are folded back in. An echo has no length byte, so
// length is ignored for it.
func ParseHeader(code, length byte) (result byte, n int) {
	switch {
	case code == ResultEcho:
		return ResultEcho, 0
	case code&^extLenMask == ResultData:
		return ResultData, int(code&extLenMask)<<3 | int(length)
	default:
		return code, int(length)
	}
}

// ValidateLength rejects payload lengths the front-end cannot produce.
func ValidateLength(n int, op, port string) error {
	if n < 0 || n > MaxDataLength {
		return rfal.NewTransportError(op, port, fmt.Errorf("%w: length %d", rfal.ErrFrameCorrupted, n))
	}
	return nil
}

// IsError reports whether a result code signals a front-end error. Codes
// 0x00, 0x80 and the echo are successes.
func IsError(result byte) bool {
	return result != ResultOK && result != ResultData && result != ResultEcho
}
