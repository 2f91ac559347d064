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

package polling

import (
	"errors"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
)

// CardDetectionState is where the session is in a tag's lifetime.
type CardDetectionState int

const (
	// StateIdle: no tag in the field.
	StateIdle CardDetectionState = iota
	// StateTagDetected: a tag was seen and its callbacks have run.
	StateTagDetected
	// StateReading: callbacks for a tag are running.
	StateReading
)

func (s CardDetectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTagDetected:
		return "detected"
	case StateReading:
		return "reading"
	default:
		return "unknown"
	}
}

// ErrNoTagInPoll is returned by a poll round that found nothing.
var ErrNoTagInPoll = errors.New("no tag detected in polling cycle")

// CardState tracks the tag currently in the field.
type CardState struct {
	LastSeenTime   time.Time
	DetectedTime   time.Time
	LastUID        string
	LastType       rfal.DevType
	DetectionState CardDetectionState
	Present        bool
}

// TransitionToReading marks callbacks for the current tag as running. A tag
// being read is never reported removed.
func (cs *CardState) TransitionToReading() {
	cs.DetectionState = StateReading
}

// TransitionToDetected records dev as present and seen at now.
func (cs *CardState) TransitionToDetected(now time.Time, dev rfal.Device) {
	if !cs.Present || cs.LastUID != dev.IDString() {
		cs.DetectedTime = now
	}
	cs.DetectionState = StateTagDetected
	cs.Present = true
	cs.LastUID = dev.IDString()
	cs.LastType = dev.Type()
	cs.LastSeenTime = now
}

// TransitionToIdle forgets the tag.
func (cs *CardState) TransitionToIdle() {
	*cs = CardState{}
}

// Expired reports whether a present tag has gone unseen for longer than
// timeout.
func (cs *CardState) Expired(now time.Time, timeout time.Duration) bool {
	return cs.Present && cs.DetectionState != StateReading && now.Sub(cs.LastSeenTime) > timeout
}
