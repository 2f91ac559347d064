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

package sim

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-rfal/engine"
)

// Kind is the tag platform a virtual tag emulates.
type Kind int

const (
	KindT2T Kind = iota
	KindT3T
	KindT4T
	KindT5T
	KindST25TB
)

func (k Kind) String() string {
	switch k {
	case KindT2T:
		return "T2T"
	case KindT3T:
		return "T3T"
	case KindT4T:
		return "T4T"
	case KindT5T:
		return "T5T"
	case KindST25TB:
		return "ST25TB"
	default:
		return "unknown"
	}
}

// Default UIDs used by the constructors when nil is passed.
var (
	DefaultNTAG213UID = []byte{0x04, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}
	DefaultType4UID   = []byte{0x08, 0x11, 0x22, 0x33}
	DefaultFeliCaIDm  = []byte{0x01, 0x2E, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	DefaultType5UID   = []byte{0xE0, 0x02, 0x08, 0x01, 0x23, 0x45, 0x67, 0x89}
	DefaultST25TBUID  = []byte{0xD0, 0x02, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
)

// Tag is a virtual tag in the simulated field. Fields may be changed between
// engine calls; the engine reads them when it polls. Asleep tags were put to
// sleep by a deactivation and ignore polling until Wake or Insert.
type Tag struct {
	UID       []byte
	message   []byte
	Kind      Kind
	AreaLen   int
	Present   bool
	ReadOnly  bool
	Asleep    bool
	formatted bool
}

func newTag(kind Kind, uid, fallback []byte, areaLen int) *Tag {
	if uid == nil {
		uid = fallback
	}
	id := make([]byte, len(uid))
	copy(id, uid)
	return &Tag{
		UID:       id,
		Kind:      kind,
		AreaLen:   areaLen,
		Present:   true,
		formatted: kind != KindST25TB,
	}
}

// NewNTAG213 creates a formatted, empty NTAG213 with a 144 byte data area.
func NewNTAG213(uid []byte) *Tag {
	return newTag(KindT2T, uid, DefaultNTAG213UID, 144)
}

// NewNTAG215 creates a formatted, empty NTAG215 with a 504 byte data area.
func NewNTAG215(uid []byte) *Tag {
	return newTag(KindT2T, uid, DefaultNTAG213UID, 504)
}

// NewType4 creates a formatted Type 4 tag whose NDEF file holds size bytes.
func NewType4(uid []byte, size int) *Tag {
	return newTag(KindT4T, uid, DefaultType4UID, size)
}

// NewFeliCa creates a formatted Type 3 tag with the given number of 16 byte
// blocks.
func NewFeliCa(idm []byte, blocks int) *Tag {
	return newTag(KindT3T, idm, DefaultFeliCaIDm, blocks*16)
}

// NewType5 creates a formatted Type 5 tag with the given number of 4 byte
// blocks, the first of which holds the capability container.
func NewType5(uid []byte, blocks int) *Tag {
	return newTag(KindT5T, uid, DefaultType5UID, (blocks-1)*4)
}

// NewST25TB creates an ST25TB tag. It has no NDEF application.
func NewST25TB(uid []byte) *Tag {
	return newTag(KindST25TB, uid, DefaultST25TBUID, 0)
}

// Blank erases the tag, leaving no capability container.
func (t *Tag) Blank() *Tag {
	t.formatted = false
	t.message = nil
	return t
}

// Formatted reports whether the tag carries a capability container.
func (t *Tag) Formatted() bool {
	return t.formatted
}

// Remove takes the tag out of the field.
func (t *Tag) Remove() {
	t.Present = false
}

// Insert puts the tag back into the field, awake.
func (t *Tag) Insert() {
	t.Present = true
	t.Asleep = false
}

// Wake clears the sleep flag set by a sleep deactivation.
func (t *Tag) Wake() {
	t.Asleep = false
}

// UIDString returns the UID as upper-case hex.
func (t *Tag) UIDString() string {
	return strings.ToUpper(hex.EncodeToString(t.UID))
}

// Message returns a copy of the stored raw NDEF message.
func (t *Tag) Message() []byte {
	if t.message == nil {
		return nil
	}
	msg := make([]byte, len(t.message))
	copy(msg, t.message)
	return msg
}

// SetMessage stores msg as the tag's raw NDEF message.
func (t *Tag) SetMessage(msg []byte) error {
	if !t.formatted {
		return fmt.Errorf("%s %s is not formatted", t.Kind, t.UIDString())
	}
	if len(msg) > t.Capacity() {
		return fmt.Errorf("message of %d bytes exceeds capacity %d", len(msg), t.Capacity())
	}
	t.message = make([]byte, len(msg))
	copy(t.message, msg)
	return nil
}

// Capacity is the longest message the data area can hold once framing is
// taken off.
func (t *Tag) Capacity() int {
	var c int
	switch t.Kind {
	case KindT2T, KindT5T:
		// NDEF TLV with a one byte length plus the terminator TLV, or a
		// three byte length once the message reaches 0xFF.
		c = t.AreaLen - 3
		if c >= 0xFF {
			c = t.AreaLen - 5
		}
	case KindT4T:
		c = t.AreaLen - 2
	case KindT3T:
		c = t.AreaLen
	default:
		return 0
	}
	return max(c, 0)
}

// messageOffset is where the message starts inside the data area.
func (t *Tag) messageOffset() uint32 {
	switch t.Kind {
	case KindT2T, KindT5T:
		if len(t.message) >= 0xFF {
			return 4
		}
		return 2
	case KindT4T:
		return 2
	default:
		return 0
	}
}

// TLV encodes the message the way a Type 2 or Type 5 tag stores it.
func (t *Tag) TLV() []byte {
	n := len(t.message)
	var out []byte
	if n < 0xFF {
		out = append(out, 0x03, byte(n))
	} else {
		out = append(out, 0x03, 0xFF, byte(n>>8), byte(n))
	}
	out = append(out, t.message...)
	return append(out, 0xFE)
}

// tech is the poll technology the tag answers to.
func (t *Tag) tech() engine.Tech {
	switch t.Kind {
	case KindT2T, KindT4T:
		return engine.TechPollA
	case KindT3T:
		return engine.TechPollF
	case KindT5T:
		return engine.TechPollV
	case KindST25TB:
		return engine.TechPollST25TB
	default:
		return engine.TechNone
	}
}

func (t *Tag) ndefType() engine.NDEFDeviceType {
	switch t.Kind {
	case KindT2T:
		return engine.NDEFDevT2T
	case KindT3T:
		return engine.NDEFDevT3T
	case KindT4T:
		return engine.NDEFDevT4T
	case KindT5T:
		return engine.NDEFDevT5T
	default:
		return engine.NDEFDevNone
	}
}

// record builds the device record the engine reports for the tag.
func (t *Tag) record() engine.Device {
	var dev engine.Device
	dev.NFCIDLen = uint8(copy(dev.NFCID[:], t.UID)) //nolint:gosec // bounded by MaxNFCIDLen
	switch t.Kind {
	case KindT2T:
		dev.Type = engine.DevTypeListenNFCA
		dev.NFCA = engine.NFCAInfo{SensRes: [2]byte{0x44, 0x00}, SelRes: 0x00, Type: engine.NFCAT2T}
	case KindT4T:
		dev.Type = engine.DevTypeListenNFCA
		dev.NFCA = engine.NFCAInfo{SensRes: [2]byte{0x04, 0x00}, SelRes: 0x20, Type: engine.NFCAT4T}
	case KindT3T:
		dev.Type = engine.DevTypeListenNFCF
		dev.NFCF.SensfRes[0] = 0x01
		copy(dev.NFCF.SensfRes[1:], t.UID)
		dev.NFCF.SensfResLen = 17
	case KindT5T:
		dev.Type = engine.DevTypeListenNFCV
	case KindST25TB:
		dev.Type = engine.DevTypeListenST25TB
		if len(t.UID) > 0 {
			dev.ST25TB.ChipID = t.UID[0]
		}
	}
	return dev
}

// matches reports whether dev is the record of this tag.
func (t *Tag) matches(dev *engine.Device) bool {
	n := int(dev.NFCIDLen)
	if n != len(t.UID) || n > engine.MaxNFCIDLen {
		return false
	}
	for i := range n {
		if dev.NFCID[i] != t.UID[i] {
			return false
		}
	}
	return true
}

// container returns the capability container the tag carries.
func (t *Tag) container() engine.CapabilityContainer {
	write := uint8(0x00)
	if t.ReadOnly {
		write = 0x0F
	}
	switch t.Kind {
	case KindT2T:
		return engine.CCT2T{
			MagicNumber:  0xE1,
			MajorVersion: 1,
			MinorVersion: 0,
			Size:         uint8(t.AreaLen / 8), //nolint:gosec // T2T areas are below 2 KiB
			WriteAccess:  write,
		}
	case KindT3T:
		rw := uint8(0x01)
		if t.ReadOnly {
			rw = 0x00
		}
		return engine.CCT3T{
			Ln:           uint32(len(t.message)), //nolint:gosec // bounded by AreaLen
			NMaxB:        uint16(t.AreaLen / 16), //nolint:gosec // bounded by AreaLen
			MajorVersion: 1,
			MinorVersion: 0,
			NbR:          4,
			NbW:          1,
			RWFlag:       rw,
		}
	case KindT4T:
		if t.ReadOnly {
			write = 0xFF
		}
		return engine.CCT4T{
			FileSize:    uint32(t.AreaLen), //nolint:gosec // bounded by AreaLen
			CCLen:       15,
			MLe:         0xFF,
			MLc:         0xFF,
			FileID:      [2]byte{0xE1, 0x04},
			VNo:         0x20,
			WriteAccess: write,
		}
	case KindT5T:
		if t.ReadOnly {
			write = 0x03
		}
		return engine.CCT5T{
			MemoryLen:         uint16(t.AreaLen / 8), //nolint:gosec // bounded by AreaLen
			MagicNumber:       0xE1,
			MajorVersion:      1,
			MinorVersion:      0,
			WriteAccess:       write,
			MultipleBlockRead: true,
		}
	default:
		return nil
	}
}

// ccBytes serializes cc into the staging buffer layout.
func ccBytes(cc engine.CapabilityContainer) []byte {
	switch c := cc.(type) {
	case engine.CCT2T:
		return []byte{c.MagicNumber, c.MajorVersion<<4 | c.MinorVersion, c.Size, c.ReadAccess<<4 | c.WriteAccess}
	case engine.CCT5T:
		return []byte{c.MagicNumber, c.MajorVersion<<6 | c.MinorVersion<<4 | c.ReadAccess<<2 | c.WriteAccess, byte(c.MemoryLen), 0x01}
	case engine.CCT4T:
		return []byte{
			byte(c.CCLen >> 8), byte(c.CCLen), c.VNo,
			byte(c.MLe >> 8), byte(c.MLe), byte(c.MLc >> 8), byte(c.MLc),
			0x04, 0x06, c.FileID[0], c.FileID[1],
			byte(c.FileSize >> 8), byte(c.FileSize), c.ReadAccess, c.WriteAccess,
		}
	case engine.CCT3T:
		return []byte{
			c.MajorVersion<<4 | c.MinorVersion, c.NbR, c.NbW,
			byte(c.NMaxB >> 8), byte(c.NMaxB), 0, 0, 0, 0,
			c.WriteFlag, c.RWFlag, byte(c.Ln >> 16), byte(c.Ln >> 8), byte(c.Ln),
		}
	default:
		return nil
	}
}

// image is the Type 2 memory map: UID and lock pages, capability container,
// then the data area.
func (t *Tag) image() []byte {
	img := make([]byte, 16+t.AreaLen)
	copy(img, t.UID)
	if t.formatted {
		copy(img[12:16], ccBytes(t.container()))
		copy(img[16:], t.TLV())
	}
	return img
}
