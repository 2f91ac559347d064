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

// Package config loads the rfalctl configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/engine"
	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportLoopback = "loopback"
	TransportSPI      = "spi"
	TransportUART     = "uart"
)

// PortAuto asks the CLI to find the port with the detection package.
const PortAuto = "auto"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

var techNames = map[string]engine.Tech{
	"nfca":        engine.TechPollA,
	"nfcb":        engine.TechPollB,
	"nfcf":        engine.TechPollF,
	"nfcv":        engine.TechPollV,
	"ap2p":        engine.TechPollAP2P,
	"st25tb":      engine.TechPollST25TB,
	"proprietary": engine.TechPollProp,
	"listen-a":    engine.TechListenA,
	"listen-b":    engine.TechListenB,
	"listen-f":    engine.TechListenF,
	"poll-all":    engine.TechPollAll,
}

type Config struct {
	Engine       string          `yaml:"engine"`
	Transport    TransportConfig `yaml:"transport"`
	Discovery    DiscoveryConfig `yaml:"discovery"`
	PollInterval time.Duration   `yaml:"poll_interval"`
	Debug        bool            `yaml:"debug"`
}

type TransportConfig struct {
	Kind       string `yaml:"kind"`
	Port       string `yaml:"port"`
	ChipSelect string `yaml:"chip_select"`
	IRQIn      string `yaml:"irq_in"`
	IRQOut     string `yaml:"irq_out"`
	Baud       int    `yaml:"baud"`
	Frequency  int64  `yaml:"frequency_hz"`
}

type DiscoveryConfig struct {
	Techs         []string `yaml:"techs"`
	BailTechs     []string `yaml:"bail_techs"`
	DeviceLimit   uint8    `yaml:"device_limit"`
	TotalDuration uint16   `yaml:"total_duration_ms"`
}

// Default returns the configuration used when no file is given: the
// simulated engine behind a loopback front-end, polling for NFC-A.
func Default() *Config {
	return &Config{
		Engine:       "sim",
		Transport:    TransportConfig{Kind: TransportLoopback},
		PollInterval: rfal.DefaultPollInterval,
		Discovery: DiscoveryConfig{
			Techs:         []string{"nfca"},
			DeviceLimit:   rfal.DefaultDeviceLimit,
			TotalDuration: rfal.DefaultTotalDuration,
		},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(content)
}

// Parse decodes YAML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(content []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	cfg := Default()
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Engine) == "" {
		return fmt.Errorf("%w: engine is required", ErrInvalid)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll_interval must be >= 0", ErrInvalid)
	}

	switch c.Transport.Kind {
	case TransportLoopback:
	case TransportSPI, TransportUART:
		if strings.TrimSpace(c.Transport.Port) == "" {
			return fmt.Errorf("%w: transport.port is required for %s", ErrInvalid, c.Transport.Kind)
		}
	default:
		return fmt.Errorf("%w: transport.kind must be one of %s, %s, %s",
			ErrInvalid, TransportLoopback, TransportSPI, TransportUART)
	}
	if c.Transport.Baud < 0 {
		return fmt.Errorf("%w: transport.baud must be >= 0", ErrInvalid)
	}
	if c.Transport.Frequency < 0 {
		return fmt.Errorf("%w: transport.frequency_hz must be >= 0", ErrInvalid)
	}

	if len(c.Discovery.Techs) == 0 {
		return fmt.Errorf("%w: discovery.techs is required", ErrInvalid)
	}
	if _, err := parseTechs(c.Discovery.Techs); err != nil {
		return err
	}
	if _, err := parseTechs(c.Discovery.BailTechs); err != nil {
		return err
	}
	if c.Discovery.DeviceLimit == 0 {
		return fmt.Errorf("%w: discovery.device_limit must be > 0", ErrInvalid)
	}
	if c.Discovery.TotalDuration == 0 {
		return fmt.Errorf("%w: discovery.total_duration_ms must be > 0", ErrInvalid)
	}
	return nil
}

func parseTechs(names []string) (engine.Tech, error) {
	var techs engine.Tech
	for _, name := range names {
		tech, ok := techNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("%w: unknown technology %q", ErrInvalid, name)
		}
		techs |= tech
	}
	return techs, nil
}

// DiscoverParams applies the discovery section to the default parameter
// block. The config must be valid.
func (c *Config) DiscoverParams() rfal.DiscoverParams {
	params := rfal.DefaultDiscoverParams()
	params.TechsToFind, _ = parseTechs(c.Discovery.Techs)
	params.TechsToBail, _ = parseTechs(c.Discovery.BailTechs)
	params.DevLimit = c.Discovery.DeviceLimit
	params.TotalDuration = c.Discovery.TotalDuration
	return params
}
