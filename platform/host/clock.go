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

// Package host provides capability table slots backed by the host OS.
package host

import "time"

// Clock is a millisecond tick source that starts at zero when created.
// Ticks wrap after about 49.7 days, like the engine's 32-bit counter.
type Clock struct {
	origin int64
}

// NewClock returns a clock whose tick counter starts now.
func NewClock() *Clock {
	return &Clock{origin: monotonicNanos()}
}

// TicksMs returns milliseconds elapsed since NewClock.
func (c *Clock) TicksMs() uint32 {
	return uint32((monotonicNanos() - c.origin) / int64(time.Millisecond)) //nolint:gosec // 32-bit tick counter wraps
}

// DelayMs sleeps for ms milliseconds.
func (*Clock) DelayMs(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
