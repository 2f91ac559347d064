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

package host

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsNearZero(t *testing.T) {
	t.Parallel()

	c := NewClock()
	assert.Less(t, c.TicksMs(), uint32(50))
}

func TestClock_DelayAdvancesTicks(t *testing.T) {
	t.Parallel()

	c := NewClock()
	before := c.TicksMs()
	c.DelayMs(20)
	after := c.TicksMs()

	assert.GreaterOrEqual(t, after-before, uint32(20))
	assert.Less(t, after-before, uint32(time.Second/time.Millisecond))
}

func TestClock_Monotonic(t *testing.T) {
	t.Parallel()

	c := NewClock()
	prev := c.TicksMs()
	for range 1000 {
		now := c.TicksMs()
		assert.GreaterOrEqual(t, now, prev)
		prev = now
	}
}
