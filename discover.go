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

// Defaults for DefaultDiscoverParams.
const (
	DefaultTotalDuration = 1000 // ms
	DefaultWakeUpNPolls  = 1
	DefaultDeviceLimit   = 1
)

// DefaultDiscoverParams returns a parameter block for single-device discovery
// with NFC Forum timing and wake-up mode off. No technology is selected; set
// TechsToFind before starting.
func DefaultDiscoverParams() DiscoverParams {
	return DiscoverParams{
		CompMode:            engine.ComplianceNFC,
		DevLimit:            DefaultDeviceLimit,
		NFCFBitRate:         engine.BitRate212,
		AP2PBitRate:         engine.BitRate424,
		MaxBitRate:          engine.BitRateKeep,
		IsoDepFS:            engine.FSxI256,
		NFCDepLR:            engine.NFCDepLR254,
		WakeUpConfigDefault: true,
		WakeUpNPolls:        DefaultWakeUpNPolls,
		TotalDuration:       DefaultTotalDuration,
		TechsToFind:         engine.TechNone,
		TechsToBail:         engine.TechNone,
		ListenA: engine.ListenConfigA{
			NFCIDLen: engine.NFCIDLen4,
		},
		WakeUp: engine.WakeUpConfig{
			Period: engine.WakeUp300ms,
		},
	}
}

// Discover builds and submits discovery parameters. Params may be edited
// directly or through the With helpers; Start hands the engine a copy.
type Discover struct {
	eng    engine.Engine
	Params DiscoverParams
}

func newDiscover(eng engine.Engine) *Discover {
	return &Discover{eng: eng, Params: DefaultDiscoverParams()}
}

// WithTechs sets the technologies to look for and those that end discovery
// as soon as they are seen.
func (d *Discover) WithTechs(find, bail Tech) *Discover {
	d.Params.TechsToFind = find
	d.Params.TechsToBail = bail
	return d
}

// WithDeviceLimit sets how many devices discovery collects before stopping.
func (d *Discover) WithDeviceLimit(n uint8) *Discover {
	d.Params.DevLimit = n
	return d
}

// WithWakeUp enables low-power wake-up mode with the given measurement period.
func (d *Discover) WithWakeUp(period engine.WakeUpPeriod) *Discover {
	d.Params.WakeUpEnabled = true
	d.Params.WakeUp.Period = period
	return d
}

// WithListenA enables NFC-A card emulation with the given identity.
func (d *Discover) WithListenA(cfg engine.ListenConfigA) *Discover {
	d.Params.ListenA = cfg
	d.Params.TechsToFind |= engine.TechListenA
	return d
}

// Start submits the parameters and begins discovery. The engine reports
// conflicting or unsupported settings as an error.
func (d *Discover) Start() error {
	params := d.Params
	Debugf("discover: find=%#04x bail=%#04x limit=%d duration=%dms",
		uint16(params.TechsToFind), uint16(params.TechsToBail), params.DevLimit, params.TotalDuration)
	return check("discover", d.eng.Discover(&params))
}
