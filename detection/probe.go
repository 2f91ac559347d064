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

package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-rfal/internal/frame"
	"github.com/ZaparooProject/go-rfal/platform"
)

// ErrNotFrontEnd is returned by Probe when the device does not answer like
// an ST25R95.
var ErrNotFrontEnd = errors.New("device is not an ST25R95")

// idnPrefix starts the IDN string of every ST25R95 firmware.
const idnPrefix = "NFC FS2JAST"

// Probe checks that bus is served by an ST25R95. Safe mode resets the
// front-end and sends the echo command; Full mode also reads the IDN string
// and returns it. Passive mode never touches the bus.
func Probe(ctx context.Context, bus platform.CommandBus, mode Mode) (string, error) {
	if mode == Passive {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("probe: %w", err)
	}
	if err := bus.Reset(); err != nil {
		return "", fmt.Errorf("probe reset: %w", err)
	}
	if err := bus.SendCommand(frame.CmdEcho, nil, false); err != nil {
		return "", fmt.Errorf("probe echo: %w", err)
	}
	if !bus.ReadEcho() {
		return "", fmt.Errorf("%w: no echo", ErrNotFrontEnd)
	}
	if mode != Full {
		return "", nil
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("probe: %w", err)
	}
	if err := bus.SendCommand(frame.CmdIDN, nil, false); err != nil {
		return "", fmt.Errorf("probe IDN: %w", err)
	}
	buf := frame.GetBuffer(frame.SmallBufferSize + 2)
	defer frame.PutBuffer(buf)
	code, n, err := bus.Read(buf)
	if err != nil {
		return "", fmt.Errorf("probe IDN: %w", err)
	}
	if frame.IsError(code) || n == 0 || int(n) > len(buf) {
		return "", fmt.Errorf("%w: IDN result 0x%02X, %d bytes", ErrNotFrontEnd, code, n)
	}
	// The string is NUL-terminated and followed by the ROM CRC.
	raw := buf[:n]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	idn := string(raw)
	if !strings.HasPrefix(idn, idnPrefix) {
		return "", fmt.Errorf("%w: IDN %q", ErrNotFrontEnd, idn)
	}
	return idn, nil
}
