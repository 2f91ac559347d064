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

// Package detection finds ST25R95 front-ends attached to the host.
//
// Transport-specific detectors register themselves from init, so a blank
// import of detection/uart or detection/spi enables them:
//
//	import _ "github.com/ZaparooProject/go-rfal/detection/uart"
//
//	opts := detection.DefaultOptions()
//	devices, err := detection.DetectAll(ctx, &opts)
package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-rfal/internal/syncutil"
)

// Mode controls how invasive detection is.
type Mode int

const (
	// Passive only looks at device descriptors and never opens a port.
	Passive Mode = iota
	// Safe resets the front-end and checks that it answers the echo command.
	Safe
	// Full also reads the IDN string and requires it to name an ST25R95.
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Confidence is how sure a detector is that a device is a front-end.
type Confidence int

const (
	// Low: the device exists, nothing else is known.
	Low Confidence = iota
	// Medium: the descriptor matches a known board or bridge.
	Medium
	// High: the device answered a probe.
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo describes one detected device.
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s device at %s (confidence: %s)", d.Transport, d.Path, d.Confidence)
}

// Options configures DetectAll.
type Options struct {
	// USB VID:PID pairs never to probe, e.g. "0483:374B".
	Blocklist []string
	// Device paths to skip, e.g. "/dev/ttyUSB0" or "COM3".
	IgnorePaths []string
	// Transports to check; empty means all registered detectors.
	Transports  []string
	CacheTTL    time.Duration
	Timeout     time.Duration
	Mode        Mode
	EnableCache bool
}

// DefaultOptions returns safe-mode detection with a 30 second cache.
func DefaultOptions() Options {
	return Options{
		Mode:        Safe,
		Timeout:     5 * time.Second,
		Blocklist:   DefaultBlocklist(),
		EnableCache: true,
		CacheTTL:    30 * time.Second,
	}
}

// Detector searches one transport for front-ends.
type Detector interface {
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	Transport() string
}

var (
	// ErrNoDevicesFound is returned when no detector found a device.
	ErrNoDevicesFound = errors.New("no ST25R95 devices found")
	// ErrDetectionTimeout is returned when the detection deadline passes.
	ErrDetectionTimeout = errors.New("detection timeout")
	// ErrNoDetectors is returned when no detector serves the requested transports.
	ErrNoDetectors = errors.New("no detectors available for specified transports")
)

var (
	registryMu syncutil.RWMutex
	registry   []Detector
)

// RegisterDetector adds d to the detectors DetectAll runs.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, d)
}

func getDetectors(transports []string) []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if len(transports) == 0 {
		return append([]Detector(nil), registry...)
	}

	var filtered []Detector
	for _, d := range registry {
		for _, t := range transports {
			if d.Transport() == t {
				filtered = append(filtered, d)
				break
			}
		}
	}
	return filtered
}

type detectionResult struct {
	err     error
	devices []DeviceInfo
}

// DetectAll runs the selected detectors in parallel and merges what they
// find. Devices are returned even if some detectors failed.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	detectors := getDetectors(opts.Transports)
	if len(detectors) == 0 {
		return nil, ErrNoDetectors
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results := make(chan detectionResult, len(detectors))
	for _, d := range detectors {
		go func(d Detector) {
			results <- runDetector(ctx, d, opts)
		}(d)
	}

	var devices []DeviceInfo
	var errs []error
	for range detectors {
		select {
		case res := <-results:
			if res.err != nil {
				errs = append(errs, res.err)
				continue
			}
			devices = append(devices, res.devices...)
		case <-ctx.Done():
			return nil, ErrDetectionTimeout
		}
	}

	if len(devices) > 0 {
		return devices, nil
	}
	for _, err := range errs {
		if !errors.Is(err, ErrNoDevicesFound) {
			return nil, err
		}
	}
	return nil, ErrNoDevicesFound
}

func runDetector(ctx context.Context, d Detector, opts *Options) detectionResult {
	transport := d.Transport()
	if opts.EnableCache {
		if cached, ok := defaultCache.get(transport, opts.CacheTTL); ok {
			return detectionResult{devices: filterDevices(cached, opts)}
		}
	}

	devices, err := d.Detect(ctx, opts)
	if err != nil {
		return detectionResult{err: fmt.Errorf("%s detection: %w", transport, err)}
	}
	if opts.EnableCache {
		if len(devices) > 0 {
			defaultCache.set(transport, devices)
		} else {
			defaultCache.clear(transport)
		}
	}
	return detectionResult{devices: devices}
}

// ClearDetectionCache removes all cached detection results.
func ClearDetectionCache() {
	defaultCache.clearAll()
}

// ClearDetectionCacheForTransport removes cached results for one transport.
func ClearDetectionCacheForTransport(transport string) {
	defaultCache.clear(transport)
}
