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
	"testing"

	"github.com/ZaparooProject/go-rfal/engine"
	"github.com/ZaparooProject/go-rfal/engine/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeTags returns a reader waiting for selection among three NFC-A tags.
func threeTags(t *testing.T) (*Reader, *sim.Engine) {
	t.Helper()
	r, eng := newReader(t, sim.WithTags(
		sim.NewNTAG213([]byte{0x04, 1, 1, 1, 1, 1, 1}),
		sim.NewNTAG213([]byte{0x04, 2, 2, 2, 2, 2, 2}),
		sim.NewType4([]byte{0x08, 3, 3, 3}, 128),
	))
	r.Discover.WithTechs(engine.TechPollA, engine.TechNone).WithDeviceLimit(3)
	require.NoError(t, r.Discover.Start())
	for !r.NFC.State().HasDevices() {
		r.NFC.Worker()
	}
	require.Equal(t, engine.StatePollSelect, r.NFC.State())
	return r, eng
}

func TestNFC_Initialized(t *testing.T) {
	t.Parallel()

	r, _ := newReader(t)
	assert.True(t, r.NFC.Initialized())
	assert.Equal(t, engine.StateIdle, r.NFC.State())

	require.NoError(t, r.Close())
	assert.False(t, r.NFC.Initialized())
}

func TestNFC_DevicesFoundBeforeDiscovery(t *testing.T) {
	t.Parallel()

	r, _ := newReader(t)
	_, err := r.NFC.DevicesFound()
	require.ErrorIs(t, err, ErrWrongState)

	n, err := r.NFC.DevicesFoundInto(make([]Device, 4))
	require.ErrorIs(t, err, ErrWrongState)
	assert.Zero(t, n)
}

func TestNFC_DevicesFound(t *testing.T) {
	t.Parallel()

	r, _ := threeTags(t)
	devices, err := r.NFC.DevicesFound()
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "04010101010101", devices[0].IDString())
	assert.Equal(t, "08030303", devices[2].IDString())
}

func TestNFC_DevicesFoundInto(t *testing.T) {
	t.Parallel()

	r, _ := threeTags(t)

	dst := make([]Device, 2)
	n, err := r.NFC.DevicesFoundInto(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "04020202020202", dst[1].IDString())

	dst = make([]Device, 8)
	n, err = r.NFC.DevicesFoundInto(dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, dst[3].ID())
}

func TestNFC_ReportedCountBoundsEnumeration(t *testing.T) {
	t.Parallel()

	r, eng := threeTags(t)
	eng.SetReportedCount(1)

	devices, err := r.NFC.DevicesFound()
	require.NoError(t, err)
	assert.Len(t, devices, 1)

	err = r.NFC.Select(1)
	require.ErrorIs(t, err, ErrDeviceIndexOutOfRange)
	assert.Equal(t, engine.StatePollSelect, r.NFC.State(), "engine not called")
}

func TestNFC_Select(t *testing.T) {
	t.Parallel()

	r, _ := threeTags(t)
	require.ErrorIs(t, r.NFC.Select(3), ErrDeviceIndexOutOfRange)

	require.NoError(t, r.NFC.Select(2))
	for !r.NFC.State().IsActivated() {
		r.NFC.Worker()
	}

	dev, err := r.NFC.ActiveDevice()
	require.NoError(t, err)
	assert.Equal(t, "08030303", dev.IDString())
	info, ok := dev.NFCA()
	require.True(t, ok)
	assert.Equal(t, engine.NFCAT4T, info.Type)
}

func TestNFC_ActiveDeviceBeforeActivation(t *testing.T) {
	t.Parallel()

	r, _ := threeTags(t)
	_, err := r.NFC.ActiveDevice()
	require.ErrorIs(t, err, ErrNoActiveDevice)
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestNFC_ActiveDeviceIsACopy(t *testing.T) {
	t.Parallel()

	r, eng, dev := activeReader(t, sim.NewNTAG213(nil))
	require.NoError(t, r.NFC.DeactivateAndIdle())
	for range 3 {
		eng.Worker()
	}
	assert.Equal(t, "04123456789ABC", dev.IDString())
}

func TestNFC_Deactivate(t *testing.T) {
	t.Parallel()

	t.Run("idle", func(t *testing.T) {
		t.Parallel()

		r, _, _ := activeReader(t, sim.NewNTAG213(nil))
		require.NoError(t, r.NFC.DeactivateAndIdle())
		assert.Equal(t, engine.StateIdle, r.NFC.State())
	})

	t.Run("sleep", func(t *testing.T) {
		t.Parallel()

		tag := sim.NewNTAG213(nil)
		r, _, _ := activeReader(t, tag)
		require.NoError(t, r.NFC.DeactivateAndSleep())
		assert.True(t, tag.Asleep)
	})

	t.Run("discovery", func(t *testing.T) {
		t.Parallel()

		r, _, _ := activeReader(t, sim.NewNTAG213(nil))
		require.NoError(t, r.NFC.DeactivateAndDiscovery())
		assert.True(t, r.NFC.State().IsDiscovering())
	})

	t.Run("engine failure still invalidates", func(t *testing.T) {
		t.Parallel()

		r, eng, dev := activeReader(t, sim.NewNTAG213(nil))
		require.NoError(t, r.NDEF.Initialize(dev))
		eng.FailNext(sim.OpDeactivate, engine.RCIO)

		require.ErrorIs(t, r.NFC.DeactivateAndIdle(), ErrIO)
		assert.False(t, r.NDEF.Bound())
	})
}

func TestDevice_Accessors(t *testing.T) {
	t.Parallel()

	raw := engine.Device{Type: engine.DevTypeListenNFCV, NFCIDLen: 3}
	copy(raw.NFCID[:], []byte{0xE0, 0x0a, 0xFF})
	dev := NewDevice(raw)

	assert.Equal(t, engine.DevTypeListenNFCV, dev.Type())
	assert.Equal(t, "E00AFF", dev.IDString())
	assert.Equal(t, "NFC-V E00AFF", dev.String())

	id := dev.ID()
	id[0] = 0
	assert.Equal(t, []byte{0xE0, 0x0A, 0xFF}, dev.ID(), "ID returns a copy")

	_, ok := dev.NFCV()
	assert.True(t, ok)
	_, ok = dev.NFCA()
	assert.False(t, ok)
	_, ok = dev.NFCB()
	assert.False(t, ok)
	_, ok = dev.NFCF()
	assert.False(t, ok)
	_, ok = dev.ST25TB()
	assert.False(t, ok)
	assert.Equal(t, raw, dev.Raw())

	empty := NewDevice(engine.Device{Type: engine.DevTypeListenNFCB})
	assert.Nil(t, empty.ID())
	assert.Equal(t, "NFC-B", empty.String())
}
