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

package engine

// NDEFDeviceType is the NFC Forum tag type an NDEF context is bound to.
type NDEFDeviceType int

const (
	NDEFDevNone NDEFDeviceType = iota
	NDEFDevT1T
	NDEFDevT2T
	NDEFDevT3T
	NDEFDevT4T
	NDEFDevT5T
)

func (t NDEFDeviceType) String() string {
	switch t {
	case NDEFDevT1T:
		return "T1T"
	case NDEFDevT2T:
		return "T2T"
	case NDEFDevT3T:
		return "T3T"
	case NDEFDevT4T:
		return "T4T"
	case NDEFDevT5T:
		return "T5T"
	default:
		return "None"
	}
}

// NDEFState is the NDEF lifecycle state of a tag.
type NDEFState int

const (
	NDEFStateInvalid NDEFState = iota
	NDEFStateInitialized
	NDEFStateReadWrite
	NDEFStateReadOnly
)

func (s NDEFState) String() string {
	switch s {
	case NDEFStateInitialized:
		return "initialized"
	case NDEFStateReadWrite:
		return "read-write"
	case NDEFStateReadOnly:
		return "read-only"
	default:
		return "invalid"
	}
}

// NDEFInfo is what NDEFDetect reports.
type NDEFInfo struct {
	AreaLen               uint32
	AreaAvailableSpaceLen uint32
	MessageLen            uint32
	State                 NDEFState
	MajorVersion          uint8
	MinorVersion          uint8
}

// CCBufLen is the size of the on-tag capability container staging buffer.
const CCBufLen = 17

// CapabilityContainer is one of CCT1T, CCT2T, CCT3T, CCT4T or CCT5T.
type CapabilityContainer interface {
	// DeviceType reports the tag type the container belongs to.
	DeviceType() NDEFDeviceType
}

// CCT1T is the Type 1 Tag capability container.
type CCT1T struct {
	TagMemorySize uint16
	MagicNumber   uint8
	MajorVersion  uint8
	MinorVersion  uint8
	ReadAccess    uint8
	WriteAccess   uint8
}

// CCT2T is the Type 2 Tag capability container.
type CCT2T struct {
	MagicNumber  uint8
	MajorVersion uint8
	MinorVersion uint8
	Size         uint8
	ReadAccess   uint8
	WriteAccess  uint8
}

// CCT3T is the Type 3 Tag attribute information block.
type CCT3T struct {
	Ln           uint32
	NMaxB        uint16
	MajorVersion uint8
	MinorVersion uint8
	NbR          uint8
	NbW          uint8
	WriteFlag    uint8
	RWFlag       uint8
}

// CCT4T is the Type 4 Tag capability container.
type CCT4T struct {
	FileSize    uint32
	CCLen       uint16
	MLe         uint16
	MLc         uint16
	FileID      [2]byte
	VNo         uint8
	ReadAccess  uint8
	WriteAccess uint8
}

// CCT5T is the Type 5 Tag capability container.
type CCT5T struct {
	MemoryLen         uint16
	MagicNumber       uint8
	MajorVersion      uint8
	MinorVersion      uint8
	ReadAccess        uint8
	WriteAccess       uint8
	SpecialFrame      bool
	LockBlock         bool
	MultipleBlockRead bool
	MLenOverflow      bool
}

func (CCT1T) DeviceType() NDEFDeviceType { return NDEFDevT1T }
func (CCT2T) DeviceType() NDEFDeviceType { return NDEFDevT2T }
func (CCT3T) DeviceType() NDEFDeviceType { return NDEFDevT3T }
func (CCT4T) DeviceType() NDEFDeviceType { return NDEFDevT4T }
func (CCT5T) DeviceType() NDEFDeviceType { return NDEFDevT5T }

// NDEFContext is the per-tag state shared between the driver and the engine
// NDEF poller. The driver owns it; the engine updates it in place during a
// call. CC is nil until detection or formatting fills it.
type NDEFContext struct {
	CC            CapabilityContainer
	Device        Device
	MessageLen    uint32
	MessageOffset uint32
	AreaLen       uint32
	Type          NDEFDeviceType
	State         NDEFState
	CCBuf         [CCBufLen]byte
}
