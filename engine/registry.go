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

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ZaparooProject/go-rfal/internal/syncutil"
)

// ErrUnknownEngine is returned by Open for a name nobody registered.
var ErrUnknownEngine = errors.New("unknown engine")

// Factory creates a fresh engine instance.
type Factory func() (Engine, error)

var (
	registryMu syncutil.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an engine available by name. Engine bindings call it from
// init so that a blank import is enough to enable them. Registering the same
// name twice panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("engine: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("engine: Register called twice for engine " + name)
	}
	registry[name] = factory
}

// Open creates an engine registered under name.
func Open(name string) (Engine, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownEngine, name, Engines())
	}
	eng, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to open engine %q: %w", name, err)
	}
	return eng, nil
}

// Engines returns the sorted names of registered engines.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
