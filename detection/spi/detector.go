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

// Package spi detects ST25R95 front-ends on the host's SPI ports. Importing
// it registers the detector with the detection package.
//
// SPI carries no descriptors, so every port is a candidate. The chip select
// and IRQ lines used while probing come from RFAL_SPI_CS, RFAL_SPI_IRQ_IN and
// RFAL_SPI_IRQ_OUT; RFAL_SPI_PORT limits detection to one port.
package spi

import (
	"context"
	"fmt"
	"os"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/detection"
	"github.com/ZaparooProject/go-rfal/transport/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const probeTimeout = 2 * time.Second

// Environment variables read by the detector.
const (
	EnvPort   = "RFAL_SPI_PORT"
	EnvCS     = "RFAL_SPI_CS"
	EnvIRQIn  = "RFAL_SPI_IRQ_IN"
	EnvIRQOut = "RFAL_SPI_IRQ_OUT"
)

// listPorts and probePort are replaced in tests.
var (
	listPorts = registeredPorts
	probePort = probeDevice
)

type detector struct{}

// New returns the SPI port detector.
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

func (*detector) Transport() string {
	return "spi"
}

// candidates returns the ports to check with the pins to probe them with.
func candidates() ([]spi.Config, error) {
	pins := spi.Config{
		ChipSelect: os.Getenv(EnvCS),
		IRQIn:      os.Getenv(EnvIRQIn),
		IRQOut:     os.Getenv(EnvIRQOut),
	}
	if port := os.Getenv(EnvPort); port != "" {
		pins.Port = port
		return []spi.Config{pins}, nil
	}

	names, err := listPorts()
	if err != nil {
		return nil, err
	}
	configs := make([]spi.Config, 0, len(names))
	for _, name := range names {
		cfg := pins
		cfg.Port = name
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	configs, err := candidates()
	if err != nil {
		return nil, fmt.Errorf("failed to list SPI ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, cfg := range configs {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if detection.IsPathIgnored(cfg.Port, opts.IgnorePaths) {
			continue
		}

		device := newDeviceInfo(cfg)
		if opts.Mode != detection.Passive {
			idn, err := probeWithTimeout(ctx, cfg, opts.Mode)
			if err != nil {
				rfal.Debugf("spi: %s: %v", cfg.Port, err)
				continue
			}
			device.Confidence = detection.High
			if idn != "" {
				device.Metadata["idn"] = idn
			}
		}
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func newDeviceInfo(cfg spi.Config) detection.DeviceInfo {
	device := detection.DeviceInfo{
		Transport:  "spi",
		Path:       cfg.Port,
		Name:       "SPI port " + cfg.Port,
		Confidence: detection.Low,
		Metadata:   make(map[string]string),
	}
	for key, pin := range map[string]string{"cs": cfg.ChipSelect, "irq_in": cfg.IRQIn, "irq_out": cfg.IRQOut} {
		if pin != "" {
			device.Metadata[key] = pin
		}
	}
	return device
}

func probeWithTimeout(ctx context.Context, cfg spi.Config, mode detection.Mode) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return probePort(probeCtx, cfg, mode)
}

// registeredPorts returns the names of the SPI ports periph knows about.
func registeredPorts() ([]string, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	refs := spireg.All()
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names, nil
}

func probeDevice(ctx context.Context, cfg spi.Config, mode detection.Mode) (string, error) {
	t, err := spi.New(cfg)
	if err != nil {
		return "", err //nolint:wrapcheck // already names the port
	}
	defer func() { _ = t.Close() }()
	return detection.Probe(ctx, t, mode) //nolint:wrapcheck // probe errors name the step
}
