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

// DevType tags an engine device record with the technology it was found on.
type DevType int

const (
	DevTypeListenNFCA   DevType = 0
	DevTypeListenNFCB   DevType = 1
	DevTypeListenNFCF   DevType = 2
	DevTypeListenNFCV   DevType = 3
	DevTypeListenST25TB DevType = 4
	DevTypeListenAP2P   DevType = 5
	DevTypeListenProp   DevType = 6
	DevTypePollNFCA     DevType = 10
	DevTypePollNFCF     DevType = 11
	DevTypePollAP2P     DevType = 15
)

func (t DevType) String() string {
	switch t {
	case DevTypeListenNFCA:
		return "NFC-A"
	case DevTypeListenNFCB:
		return "NFC-B"
	case DevTypeListenNFCF:
		return "NFC-F"
	case DevTypeListenNFCV:
		return "NFC-V"
	case DevTypeListenST25TB:
		return "ST25TB"
	case DevTypeListenAP2P:
		return "AP2P"
	case DevTypeListenProp:
		return "Proprietary"
	case DevTypePollNFCA:
		return "Poller NFC-A"
	case DevTypePollNFCF:
		return "Poller NFC-F"
	case DevTypePollAP2P:
		return "Poller AP2P"
	default:
		return "Unknown"
	}
}

// MaxNFCIDLen is the longest identifier a device record can carry.
const MaxNFCIDLen = 10

// NFCAType is the NFC-A platform type derived from SEL_RES.
type NFCAType int

const (
	NFCAT1T       NFCAType = 0x01
	NFCAT2T       NFCAType = 0x00
	NFCAT4T       NFCAType = 0x20
	NFCANFCDEP    NFCAType = 0x40
	NFCAT4TNFCDEP NFCAType = 0x60
)

// NFCAInfo is the NFC-A listen device payload.
type NFCAInfo struct {
	SensRes [2]byte
	SelRes  byte
	Type    NFCAType
	IsSleep bool
}

// NFCBInfo is the NFC-B listen device payload.
type NFCBInfo struct {
	SensbRes    [13]byte
	SensbResLen uint8
	IsSleep     bool
}

// NFCFInfo is the NFC-F listen device payload.
type NFCFInfo struct {
	SensfRes    [19]byte
	SensfResLen uint8
}

// NFCVInfo is the NFC-V listen device payload.
type NFCVInfo struct {
	DSFID   byte
	ResFlag byte
	IsSleep bool
}

// ST25TBInfo is the ST25TB listen device payload.
type ST25TBInfo struct {
	ChipID       byte
	IsDeselected bool
}

// Device is one engine device record. Only the payload matching Type is
// meaningful; the others are zero.
type Device struct {
	NFCA     NFCAInfo
	NFCB     NFCBInfo
	NFCF     NFCFInfo
	NFCV     NFCVInfo
	ST25TB   ST25TBInfo
	NFCID    [MaxNFCIDLen]byte
	Type     DevType
	NFCIDLen uint8
}
