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

// Package engine describes the boundary to the vendor protocol engine.
//
// The engine performs RF discovery, anticollision and bit framing. It is
// treated as an opaque, stateful, single-threaded component reached only
// through the fixed entry points of the Engine interface. While it runs it
// calls back into the host through the platform package trampoline.
//
// Everything the engine hands out (device lists, the active device record,
// received exchange data) is engine-owned and valid only until the next call
// into the engine. Callers must copy.
package engine

// ReturnCode is the engine's 16-bit status code. Zero means success.
type ReturnCode uint16

// Codes the driver itself needs to recognise. The full named set lives in the
// root package's error translator.
const (
	RCNone       ReturnCode = 0
	RCNoMem      ReturnCode = 1
	RCBusy       ReturnCode = 2
	RCIO         ReturnCode = 3
	RCTimeout    ReturnCode = 4
	RCRequest    ReturnCode = 5
	RCParam      ReturnCode = 7
	RCCRC        ReturnCode = 21
	RCNotFound   ReturnCode = 22
	RCNotSupp    ReturnCode = 24
	RCWrite      ReturnCode = 25
	RCWrongState ReturnCode = 33
	RCLinkLoss   ReturnCode = 37
)

// DeactivateType selects how the session ends after a device was activated.
type DeactivateType int

const (
	// DeactivateIdle returns the engine to idle.
	DeactivateIdle DeactivateType = iota
	// DeactivateSleep puts the device to sleep; it can be woken later.
	DeactivateSleep
	// DeactivateDiscovery restarts discovery immediately.
	DeactivateDiscovery
)

func (d DeactivateType) String() string {
	switch d {
	case DeactivateIdle:
		return "idle"
	case DeactivateSleep:
		return "sleep"
	case DeactivateDiscovery:
		return "discovery"
	default:
		return "unknown"
	}
}

// FWTNone disables the frame wait time bound of a data exchange.
const FWTNone uint32 = 0xFFFFFFFF

// Engine is the fixed set of entry points exposed by a protocol engine.
//
// Implementations are not re-entrant and must only be driven from one
// goroutine. Slices and pointers returned by DevicesFound, ActiveDevice and
// ExchangeData alias engine memory and are invalidated by the next call.
type Engine interface {
	// Initialize brings up the RF layer.
	Initialize() ReturnCode
	// NFCInitialize brings up the NFC session layer on top of the RF layer.
	NFCInitialize() ReturnCode
	// Deinitialize turns the field off and releases the RF layer.
	Deinitialize() ReturnCode

	// Worker advances the internal state machine by one step. It never blocks.
	Worker()
	// State reports the session state without side effects.
	State() State

	// Discover starts discovery with the given parameters. The engine copies
	// what it needs; params is not retained.
	Discover(params *DiscoverParams) ReturnCode
	// DevicesFound returns the engine-owned device list and the count the
	// engine reports. The count may differ from len(list).
	DevicesFound() (list []Device, count uint8, rc ReturnCode)
	// Select activates the device at index.
	Select(index uint8) ReturnCode
	// ActiveDevice returns the engine-owned record of the active device.
	ActiveDevice() (*Device, ReturnCode)
	// Deactivate ends the current activation.
	Deactivate(kind DeactivateType) ReturnCode

	// ExchangeStart starts one transceive. tx may be nil for receive-only.
	ExchangeStart(tx []byte, fwt uint32) ReturnCode
	// ExchangeStatus polls the pending transceive. RCBusy means in progress.
	ExchangeStatus() ReturnCode
	// ExchangeData returns the engine-owned receive buffer of the last
	// completed transceive.
	ExchangeData() []byte

	// NDEFContextInit binds ctx to dev.
	NDEFContextInit(ctx *NDEFContext, dev *Device) ReturnCode
	// NDEFDetect probes for an NDEF application and fills info.
	NDEFDetect(ctx *NDEFContext, info *NDEFInfo) ReturnCode
	// NDEFReadRawMessage reads the raw message into buf and stores the
	// received length in n.
	NDEFReadRawMessage(ctx *NDEFContext, buf []byte, n *uint32, single bool) ReturnCode
	// NDEFWriteRawMessage writes msg as the tag's raw message.
	NDEFWriteRawMessage(ctx *NDEFContext, msg []byte) ReturnCode
	// NDEFTagFormat writes a fresh capability container.
	NDEFTagFormat(ctx *NDEFContext, cc CapabilityContainer, option uint32) ReturnCode
}
