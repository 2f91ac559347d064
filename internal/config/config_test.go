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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rfal.yaml")
	content := `
engine: sim-spi
debug: true
poll_interval: 2ms
transport:
  kind: spi
  port: /dev/spidev0.0
  chip_select: GPIO8
  irq_in: GPIO25
  irq_out: GPIO24
  frequency_hz: 1000000
discovery:
  techs: [nfca, NFCF]
  bail_techs: [nfcf]
  device_limit: 2
  total_duration_ms: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sim-spi", cfg.Engine)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, TransportConfig{
		Kind:       TransportSPI,
		Port:       "/dev/spidev0.0",
		ChipSelect: "GPIO8",
		IRQIn:      "GPIO25",
		IRQOut:     "GPIO24",
		Frequency:  1000000,
	}, cfg.Transport)

	params := cfg.DiscoverParams()
	assert.Equal(t, engine.TechPollA|engine.TechPollF, params.TechsToFind)
	assert.Equal(t, engine.TechPollF, params.TechsToBail)
	assert.Equal(t, uint8(2), params.DevLimit)
	assert.Equal(t, uint16(500), params.TotalDuration)
	assert.Equal(t, rfal.DefaultDiscoverParams().IsoDepFS, params.IsoDepFS)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestParse_EmptyKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, engine.TechPollA, cfg.DiscoverParams().TechsToFind)
}

func TestParse_PartialOverride(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("transport:\n  kind: uart\n  port: /dev/ttyUSB0\n"))
	require.NoError(t, err)
	assert.Equal(t, "sim", cfg.Engine)
	assert.Equal(t, TransportUART, cfg.Transport.Kind)
	assert.Equal(t, rfal.DefaultPollInterval, cfg.PollInterval)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("engine: sim\nreader_index: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config yaml")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate  func(*Config)
		name    string
		wantMsg string
	}{
		{name: "empty engine", mutate: func(c *Config) { c.Engine = " " }, wantMsg: "engine is required"},
		{name: "negative poll", mutate: func(c *Config) { c.PollInterval = -time.Millisecond }, wantMsg: "poll_interval"},
		{name: "unknown kind", mutate: func(c *Config) { c.Transport.Kind = "i2c" }, wantMsg: "transport.kind"},
		{name: "spi without port", mutate: func(c *Config) { c.Transport.Kind = TransportSPI }, wantMsg: "transport.port"},
		{name: "negative baud", mutate: func(c *Config) { c.Transport.Baud = -1 }, wantMsg: "baud"},
		{name: "negative frequency", mutate: func(c *Config) { c.Transport.Frequency = -1 }, wantMsg: "frequency_hz"},
		{name: "no techs", mutate: func(c *Config) { c.Discovery.Techs = nil }, wantMsg: "discovery.techs"},
		{name: "unknown tech", mutate: func(c *Config) { c.Discovery.Techs = []string{"nfcz"} }, wantMsg: `"nfcz"`},
		{name: "unknown bail tech", mutate: func(c *Config) { c.Discovery.BailTechs = []string{"x"} }, wantMsg: `"x"`},
		{name: "zero device limit", mutate: func(c *Config) { c.Discovery.DeviceLimit = 0 }, wantMsg: "device_limit"},
		{name: "zero duration", mutate: func(c *Config) { c.Discovery.TotalDuration = 0 }, wantMsg: "total_duration_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	require.NoError(t, Default().Validate())
}
