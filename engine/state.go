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

// State is the session state reported by the engine.
type State int

// Values match the engine's own numbering.
const (
	StateNotInit            State = 0
	StateIdle               State = 1
	StateStartDiscovery     State = 2
	StateWakeUpMode         State = 3
	StatePollTechDetect     State = 10
	StatePollColAvoidance   State = 11
	StatePollSelect         State = 12
	StatePollActivation     State = 13
	StateListenTechDetect   State = 20
	StateListenColAvoidance State = 21
	StateListenActivation   State = 22
	StateListenSleep        State = 23
	StateActivated          State = 30
	StateDataExchange       State = 31
	StateDataExchangeDone   State = 33
	StateDeactivation       State = 34
)

func (s State) String() string {
	switch s {
	case StateNotInit:
		return "NotInit"
	case StateIdle:
		return "Idle"
	case StateStartDiscovery:
		return "StartDiscovery"
	case StateWakeUpMode:
		return "WakeUpMode"
	case StatePollTechDetect:
		return "PollTechDetect"
	case StatePollColAvoidance:
		return "PollColAvoidance"
	case StatePollSelect:
		return "PollSelect"
	case StatePollActivation:
		return "PollActivation"
	case StateListenTechDetect:
		return "ListenTechDetect"
	case StateListenColAvoidance:
		return "ListenColAvoidance"
	case StateListenActivation:
		return "ListenActivation"
	case StateListenSleep:
		return "ListenSleep"
	case StateActivated:
		return "Activated"
	case StateDataExchange:
		return "DataExchange"
	case StateDataExchangeDone:
		return "DataExchangeDone"
	case StateDeactivation:
		return "Deactivation"
	default:
		return "Unknown"
	}
}

// IsDiscovering is true while the engine is polling or listening.
func (s State) IsDiscovering() bool {
	return s >= StateStartDiscovery && s < StateActivated
}

// IsActivated is true once a device is active, including during exchanges.
func (s State) IsActivated() bool {
	return s >= StateActivated && s < StateDeactivation
}

// HasDevices is true when devices can be enumerated: either one was
// activated automatically or the engine waits for the host to select one.
func (s State) HasDevices() bool {
	return s == StatePollSelect || s.IsActivated()
}
