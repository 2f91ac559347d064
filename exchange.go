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

package rfal

import (
	"fmt"

	"github.com/ZaparooProject/go-rfal/engine"
)

// DataExchange runs one transceive against the active device at a time.
//
// Start returns as soon as the engine accepted the frame; bytes move during
// later NFC.Worker calls. The caller keeps calling Worker and Status until
// Status returns something other than an in-progress error.
type DataExchange struct {
	eng     engine.Engine
	rx      []byte
	n       int
	started bool
}

func newDataExchange(eng engine.Engine) *DataExchange {
	return &DataExchange{eng: eng}
}

// Start begins a transceive. tx may be nil for receive-only. rx receives the
// response once Status reports success. fwt is the frame wait time in
// engine units, or FWTNone for no timeout.
// A rejected Start leaves a transceive that is still running untouched.
func (x *DataExchange) Start(tx, rx []byte, fwt uint32) error {
	if err := check("exchange start", x.eng.ExchangeStart(tx, fwt)); err != nil {
		return err
	}
	x.invalidate()
	x.rx = rx
	x.started = true
	return nil
}

// Status polls the running transceive. It returns nil when the response has
// been copied into the receive buffer, an error satisfying IsInProgress while
// the engine is still working, and any other error when the transceive failed.
func (x *DataExchange) Status() error {
	if !x.started {
		return ErrExchangeNotStarted
	}

	rc := x.eng.ExchangeStatus()
	if rc == engine.RCBusy {
		return check("exchange status", rc)
	}
	x.started = false
	if err := check("exchange status", rc); err != nil {
		return err
	}

	data := x.eng.ExchangeData()
	if len(data) > len(x.rx) {
		return fmt.Errorf("%w: response is %d bytes, buffer holds %d", ErrRxBufferTooSmall, len(data), len(x.rx))
	}
	x.n = copy(x.rx, data)
	return nil
}

// Pending reports whether a transceive was started and has not finished.
func (x *DataExchange) Pending() bool {
	return x.started
}

// Received returns the part of the receive buffer filled by the last
// successful transceive.
func (x *DataExchange) Received() []byte {
	return x.rx[:x.n]
}

func (x *DataExchange) invalidate() {
	x.rx = nil
	x.n = 0
	x.started = false
}
