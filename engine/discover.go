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

// ComplianceMode selects which standard the engine follows during discovery.
type ComplianceMode int

const (
	ComplianceNFC ComplianceMode = iota
	ComplianceEMV
	ComplianceISO
)

// BitRate is an RF bit rate.
type BitRate uint8

const (
	BitRate106   BitRate = 0
	BitRate212   BitRate = 1
	BitRate424   BitRate = 2
	BitRate848   BitRate = 3
	BitRate1695  BitRate = 4
	BitRate3390  BitRate = 5
	BitRate6780  BitRate = 6
	BitRate13560 BitRate = 7
	BitRate52p97 BitRate = 0xEB
	BitRate26p48 BitRate = 0xEC
	BitRate1p66  BitRate = 0xED
	BitRateKeep  BitRate = 0xFF
)

// IsoDepFSxI is the ISO-DEP frame size integer.
type IsoDepFSxI uint8

const (
	FSxI16   IsoDepFSxI = 0
	FSxI24   IsoDepFSxI = 1
	FSxI32   IsoDepFSxI = 2
	FSxI40   IsoDepFSxI = 3
	FSxI48   IsoDepFSxI = 4
	FSxI64   IsoDepFSxI = 5
	FSxI96   IsoDepFSxI = 6
	FSxI128  IsoDepFSxI = 7
	FSxI256  IsoDepFSxI = 8
	FSxI512  IsoDepFSxI = 9
	FSxI1024 IsoDepFSxI = 10
	FSxI2048 IsoDepFSxI = 11
	FSxI4096 IsoDepFSxI = 12
)

// NFC-DEP length reduction values.
const (
	NFCDepLR64  uint8 = 0
	NFCDepLR128 uint8 = 1
	NFCDepLR192 uint8 = 2
	NFCDepLR254 uint8 = 3
)

// Tech is a bitmask of poll and listen technologies.
type Tech uint16

const (
	TechNone       Tech = 0x0000
	TechPollA      Tech = 0x0001
	TechPollB      Tech = 0x0002
	TechPollF      Tech = 0x0004
	TechPollV      Tech = 0x0008
	TechPollAP2P   Tech = 0x0010
	TechPollST25TB Tech = 0x0020
	TechPollProp   Tech = 0x0040
	TechListenA    Tech = 0x1000
	TechListenB    Tech = 0x2000
	TechListenF    Tech = 0x4000
	TechListenAP2P Tech = 0x8000
	TechPollAll    Tech = TechPollA | TechPollB | TechPollF | TechPollV | TechPollAP2P | TechPollST25TB
	TechListenAll  Tech = TechListenA | TechListenB | TechListenF | TechListenAP2P
)

// WakeUpPeriod is the interval between wake-up measurements.
type WakeUpPeriod uint8

const (
	WakeUp10ms WakeUpPeriod = iota
	WakeUp20ms
	WakeUp30ms
	WakeUp40ms
	WakeUp50ms
	WakeUp60ms
	WakeUp70ms
	WakeUp80ms
	WakeUp100ms
	WakeUp200ms
	WakeUp300ms
	WakeUp400ms
	WakeUp500ms
	WakeUp600ms
	WakeUp700ms
	WakeUp800ms
)

// NFCIDLen is the listen-mode NFCID1 length.
type NFCIDLen uint8

const (
	NFCIDLen4  NFCIDLen = 4
	NFCIDLen7  NFCIDLen = 7
	NFCIDLen10 NFCIDLen = 10
)

// AmplitudeConfig is the amplitude-measurement part of the wake-up block.
type AmplitudeConfig struct {
	Delta     uint8
	Reference uint8
	Enabled   bool
}

// WakeUpConfig is the wake-up sub-block of the discovery parameters.
type WakeUpConfig struct {
	Amplitude AmplitudeConfig
	Period    WakeUpPeriod
}

// ListenConfigA configures NFC-A card emulation.
type ListenConfigA struct {
	NFCID    [MaxNFCIDLen]byte
	SensRes  [2]byte
	NFCIDLen NFCIDLen
	SelRes   byte
}

// ListenConfigF configures NFC-F card emulation.
type ListenConfigF struct {
	SensfRes [19]byte
	SC       [2]byte
}

// MaxGBLen is the size of the NFC-DEP general bytes buffer.
const MaxGBLen = 48

// DiscoverParams is the parameter block handed to Engine.Discover.
type DiscoverParams struct {
	ListenA             ListenConfigA
	ListenF             ListenConfigF
	GB                  [MaxGBLen]byte
	NFCID3              [MaxNFCIDLen]byte
	WakeUp              WakeUpConfig
	CompMode            ComplianceMode
	TotalDuration       uint16
	TechsToFind         Tech
	TechsToBail         Tech
	DevLimit            uint8
	NFCFBitRate         BitRate
	AP2PBitRate         BitRate
	MaxBitRate          BitRate
	IsoDepFS            IsoDepFSxI
	NFCDepLR            uint8
	GBLen               uint8
	WakeUpNPolls        uint8
	P2PNFCAPrio         bool
	WakeUpEnabled       bool
	WakeUpConfigDefault bool
	WakeUpPollBefore    bool
}
