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

// Package uart detects ST25R95 front-ends on serial ports. Importing it
// registers the detector with the detection package.
package uart

import (
	"context"
	"fmt"
	"strings"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/detection"
	"github.com/ZaparooProject/go-rfal/transport/uart"
	"go.bug.st/serial/enumerator"
)

const probeTimeout = 2 * time.Second

// knownBoards are USB IDs of boards that carry an ST25R95 behind a serial
// bridge.
var knownBoards = []string{
	"0483:374B", // ST-LINK/V2-1 VCP on Nucleo boards with an X-NUCLEO-NFC03A1
	"0483:374E", // ST-LINK/V3E VCP
	"0483:5740", // STM32 virtual COM port firmware
}

// knownBridges are USB-UART bridges commonly wired to ST25R95 modules.
var knownBridges = []string{
	"0403:6001", // FTDI FT232R
	"10C4:EA60", // Silicon Labs CP210x
	"1A86:7523", // QinHeng CH340
	"067B:2303", // Prolific PL2303
}

var productKeywords = []string{"st25r95", "cr95hf", "nfc", "rfid", "13.56"}

type serialPort struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
	IsUSB        bool
}

// listPorts and probePort are replaced in tests.
var (
	listPorts = enumeratePorts
	probePort = probeDevice
)

type detector struct{}

// New returns the serial port detector.
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

func (*detector) Transport() string {
	return "uart"
}

func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for i := range ports {
		if ctx.Err() != nil {
			break
		}
		port := &ports[i]
		if detection.IsBlocked(port.VIDPID, opts.Blocklist) || detection.IsPathIgnored(port.Path, opts.IgnorePaths) {
			continue
		}
		if device, ok := d.processPort(ctx, port, opts); ok {
			devices = append(devices, device)
		}
	}
	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// processPort decides whether port is reported. Passive mode reports known
// boards and bridges without opening them. Other modes open every port and
// report only those that pass the probe.
func (*detector) processPort(
	ctx context.Context,
	port *serialPort,
	opts *detection.Options,
) (detection.DeviceInfo, bool) {
	confidence, likely := classify(port)
	if opts.Mode == detection.Passive {
		if !likely {
			return detection.DeviceInfo{}, false
		}
		return newDeviceInfo(port, confidence), true
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	idn, err := probePort(probeCtx, port.Path, opts.Mode)
	if err != nil {
		rfal.Debugf("uart: %s: %v", port.Path, err)
		return detection.DeviceInfo{}, false
	}
	device := newDeviceInfo(port, detection.High)
	if idn != "" {
		device.Metadata["idn"] = idn
	}
	return device, true
}

// classify rates a port from its descriptor alone.
func classify(port *serialPort) (detection.Confidence, bool) {
	vidpid := strings.ToUpper(port.VIDPID)
	for _, known := range knownBoards {
		if vidpid == known {
			return detection.Medium, true
		}
	}
	product := strings.ToLower(port.Product)
	for _, keyword := range productKeywords {
		if strings.Contains(product, keyword) {
			return detection.Medium, true
		}
	}
	for _, known := range knownBridges {
		if vidpid == known {
			return detection.Low, true
		}
	}
	return detection.Low, false
}

func newDeviceInfo(port *serialPort, confidence detection.Confidence) detection.DeviceInfo {
	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       port.Path,
		Name:       port.Product,
		Confidence: confidence,
		Metadata:   make(map[string]string),
	}
	if device.Name == "" {
		device.Name = "Serial port " + port.Path
	}
	if port.VIDPID != "" {
		device.Metadata["vidpid"] = port.VIDPID
	}
	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}
	return device
}

func enumeratePorts() ([]serialPort, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by Detect
	}
	ports := make([]serialPort, 0, len(details))
	for _, d := range details {
		port := serialPort{Path: d.Name, IsUSB: d.IsUSB}
		if d.IsUSB {
			port.VIDPID = detection.FormatVIDPID(d.VID, d.PID)
			port.Product = d.Product
			port.SerialNumber = d.SerialNumber
		}
		ports = append(ports, port)
	}
	return ports, nil
}

func probeDevice(ctx context.Context, path string, mode detection.Mode) (string, error) {
	t, err := uart.New(path, 0)
	if err != nil {
		return "", err //nolint:wrapcheck // already names the port
	}
	defer func() { _ = t.Close() }()
	return detection.Probe(ctx, t, mode) //nolint:wrapcheck // probe errors name the step
}
