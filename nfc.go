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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-rfal/engine"
)

// Device is a caller-owned copy of a device record reported by the engine.
// It stays valid after the engine moves on.
type Device struct {
	raw engine.Device
}

// NewDevice wraps an engine device record. The record is copied.
func NewDevice(raw engine.Device) Device {
	return Device{raw: raw}
}

// Type returns the technology the device was found on.
func (d Device) Type() DevType {
	return d.raw.Type
}

// ID returns a copy of the device identifier, or nil if it has none.
func (d Device) ID() []byte {
	n := int(d.raw.NFCIDLen)
	if n == 0 {
		return nil
	}
	if n > engine.MaxNFCIDLen {
		n = engine.MaxNFCIDLen
	}
	id := make([]byte, n)
	copy(id, d.raw.NFCID[:n])
	return id
}

// IDString returns the identifier as upper-case hex.
func (d Device) IDString() string {
	return strings.ToUpper(hex.EncodeToString(d.ID()))
}

// NFCA returns the NFC-A payload; ok is false for other technologies.
func (d Device) NFCA() (info engine.NFCAInfo, ok bool) {
	return d.raw.NFCA, d.raw.Type == engine.DevTypeListenNFCA
}

// NFCB returns the NFC-B payload; ok is false for other technologies.
func (d Device) NFCB() (info engine.NFCBInfo, ok bool) {
	return d.raw.NFCB, d.raw.Type == engine.DevTypeListenNFCB
}

// NFCF returns the NFC-F payload; ok is false for other technologies.
func (d Device) NFCF() (info engine.NFCFInfo, ok bool) {
	return d.raw.NFCF, d.raw.Type == engine.DevTypeListenNFCF
}

// NFCV returns the NFC-V payload; ok is false for other technologies.
func (d Device) NFCV() (info engine.NFCVInfo, ok bool) {
	return d.raw.NFCV, d.raw.Type == engine.DevTypeListenNFCV
}

// ST25TB returns the ST25TB payload; ok is false for other technologies.
func (d Device) ST25TB() (info engine.ST25TBInfo, ok bool) {
	return d.raw.ST25TB, d.raw.Type == engine.DevTypeListenST25TB
}

// Raw returns a copy of the engine record.
func (d Device) Raw() engine.Device {
	return d.raw
}

func (d Device) String() string {
	if id := d.IDString(); id != "" {
		return fmt.Sprintf("%s %s", d.raw.Type, id)
	}
	return d.raw.Type.String()
}

// NFC drives the engine session state machine. Nothing happens unless the
// caller keeps calling Worker; every other method is a single engine call
// that returns immediately.
//
// Deactivation invalidates any bound NDEF context and pending data exchange.
type NFC struct {
	eng          engine.Engine
	onDeactivate []func()
	initialized  bool
}

func newNFC(eng engine.Engine) *NFC {
	return &NFC{eng: eng}
}

// Initialize brings up the engine NFC layer. It must run once after the
// capability table is installed and before any other engine call; a failure
// is terminal for the session.
func (n *NFC) Initialize() error {
	if err := check("nfc initialize", n.eng.NFCInitialize()); err != nil {
		return err
	}
	n.initialized = true
	return nil
}

// Initialized reports whether Initialize succeeded.
func (n *NFC) Initialized() bool {
	return n.initialized
}

// Worker advances the engine by one step. It never blocks.
func (n *NFC) Worker() {
	n.eng.Worker()
}

// State returns the engine session state.
func (n *NFC) State() State {
	return n.eng.State()
}

// DevicesFound returns copies of every device the engine reports.
func (n *NFC) DevicesFound() ([]Device, error) {
	list, err := n.reported()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, len(list))
	for i := range list {
		devices[i] = Device{raw: list[i]}
	}
	return devices, nil
}

// DevicesFoundInto copies reported devices into dst and returns how many were
// copied. Devices beyond len(dst) are not enumerable.
func (n *NFC) DevicesFoundInto(dst []Device) (int, error) {
	list, err := n.reported()
	if err != nil {
		return 0, err
	}
	count := min(len(list), len(dst))
	for i := range count {
		dst[i] = Device{raw: list[i]}
	}
	if len(list) > count {
		Debugf("nfc: %d devices reported, %d enumerable", len(list), count)
	}
	return count, nil
}

// reported returns the engine's device list truncated to the count it
// reports. The slice is engine-owned and must not outlive the caller.
func (n *NFC) reported() ([]engine.Device, error) {
	list, count, rc := n.eng.DevicesFound()
	if err := check("devices found", rc); err != nil {
		return nil, err
	}
	if int(count) < len(list) {
		list = list[:count]
	}
	return list, nil
}

// Select activates the device at index in the reported list.
func (n *NFC) Select(index uint8) error {
	_, count, rc := n.eng.DevicesFound()
	if err := check("select", rc); err != nil {
		return err
	}
	if index >= count {
		return fmt.Errorf("%w: index %d, %d devices", ErrDeviceIndexOutOfRange, index, count)
	}
	return check("select", n.eng.Select(index))
}

// ActiveDevice returns a copy of the active device.
func (n *NFC) ActiveDevice() (Device, error) {
	dev, rc := n.eng.ActiveDevice()
	if err := check("active device", rc); err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrNoActiveDevice, err)
	}
	if dev == nil {
		return Device{}, ErrNoActiveDevice
	}
	return Device{raw: *dev}, nil
}

// DeactivateAndIdle ends the session and leaves the field off.
func (n *NFC) DeactivateAndIdle() error {
	return n.deactivate(engine.DeactivateIdle)
}

// DeactivateAndSleep puts the tag to sleep; it answers again after a wake-up.
func (n *NFC) DeactivateAndSleep() error {
	return n.deactivate(engine.DeactivateSleep)
}

// DeactivateAndDiscovery restarts discovery immediately with the last
// parameters, so the same tag may be found again right away.
func (n *NFC) DeactivateAndDiscovery() error {
	return n.deactivate(engine.DeactivateDiscovery)
}

func (n *NFC) deactivate(kind engine.DeactivateType) error {
	Debugf("nfc: deactivate %s from %s", kind, n.eng.State())
	for _, fn := range n.onDeactivate {
		fn()
	}
	return check("deactivate", n.eng.Deactivate(kind))
}
