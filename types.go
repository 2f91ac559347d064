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

import "github.com/ZaparooProject/go-rfal/engine"

// Engine types used throughout the public API.
type (
	State               = engine.State
	DevType             = engine.DevType
	DiscoverParams      = engine.DiscoverParams
	Tech                = engine.Tech
	BitRate             = engine.BitRate
	ComplianceMode      = engine.ComplianceMode
	NDEFInfo            = engine.NDEFInfo
	NDEFState           = engine.NDEFState
	NDEFDeviceType      = engine.NDEFDeviceType
	CapabilityContainer = engine.CapabilityContainer
)

// FWTNone disables the frame wait timeout of a data exchange.
const FWTNone = engine.FWTNone
