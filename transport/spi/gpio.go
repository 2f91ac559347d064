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

package spi

import (
	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/internal/syncutil"
	"periph.io/x/conn/v3/gpio"
)

type pinAddr struct {
	port uint32
	pin  uint32
}

// GPIO maps the engine's port/pin addresses onto periph pins. Unmapped pins
// read low and ignore writes.
type GPIO struct {
	pins map[pinAddr]gpio.PinIO
	mu   syncutil.RWMutex
}

// NewGPIO returns an empty pin map.
func NewGPIO() *GPIO {
	return &GPIO{pins: make(map[pinAddr]gpio.PinIO)}
}

// Map binds port/pin to p.
func (g *GPIO) Map(port, pin uint32, p gpio.PinIO) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pins[pinAddr{port, pin}] = p
}

func (g *GPIO) lookup(port, pin uint32) gpio.PinIO {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pins[pinAddr{port, pin}]
}

// Set drives port/pin.
func (g *GPIO) Set(port, pin uint32, high bool) {
	p := g.lookup(port, pin)
	if p == nil {
		rfal.Debugf("spi: set of unmapped pin %d/%d", port, pin)
		return
	}
	if err := p.Out(gpio.Level(high)); err != nil {
		rfal.Debugf("spi: set %s: %v", p, err)
	}
}

// Get samples port/pin.
func (g *GPIO) Get(port, pin uint32) bool {
	p := g.lookup(port, pin)
	if p == nil {
		return false
	}
	return p.Read() == gpio.High
}
