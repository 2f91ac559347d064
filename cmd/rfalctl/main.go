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

// Command rfalctl discovers a tag through an RFAL engine and reads or writes
// its NDEF message.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/detection"
	_ "github.com/ZaparooProject/go-rfal/detection/spi"
	_ "github.com/ZaparooProject/go-rfal/detection/uart"
	"github.com/ZaparooProject/go-rfal/engine"
	_ "github.com/ZaparooProject/go-rfal/engine/sim"
	"github.com/ZaparooProject/go-rfal/internal/config"
	testutil "github.com/ZaparooProject/go-rfal/internal/testing"
	"github.com/ZaparooProject/go-rfal/platform"
	"github.com/ZaparooProject/go-rfal/platform/host"
	"github.com/ZaparooProject/go-rfal/polling"
	"github.com/ZaparooProject/go-rfal/transport/spi"
	"github.com/ZaparooProject/go-rfal/transport/uart"
	"periph.io/x/conn/v3/physic"
)

type options struct {
	configPath string
	engineName string
	writeText  string
	transceive string
	timeout    time.Duration
	debug      bool
	watch      bool
}

// Package-level flag variables
var (
	flagConfig  string
	flagEngine  string
	flagWrite   string
	flagTx      string
	flagTimeout time.Duration
	flagDebug   bool
	flagWatch   bool
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "YAML configuration file")
	flag.StringVar(&flagEngine, "engine", "", "Engine name, overrides the config file (default sim)")
	flag.StringVar(&flagWrite, "write", "", "Text to write to the discovered tag")
	flag.StringVar(&flagTx, "transceive", "", "Hex frame to send to the tag before reading NDEF")
	flag.DurationVar(&flagTimeout, "timeout", 30*time.Second, "How long to wait for a tag")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
	flag.BoolVar(&flagWatch, "watch", false, "Keep polling and report tags as they come and go")
}

func parseOptions() options {
	return options{
		configPath: flagConfig,
		engineName: flagEngine,
		writeText:  flagWrite,
		transceive: flagTx,
		timeout:    flagTimeout,
		debug:      flagDebug,
		watch:      flagWatch,
	}
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if opts.engineName != "" {
		cfg.Engine = opts.engineName
	}
	if opts.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// detectPort replaces the "auto" port with the best front-end found on the
// configured transport.
func detectPort(ctx context.Context, w io.Writer, cfg *config.Config) error {
	if cfg.Transport.Port != config.PortAuto {
		return nil
	}
	opts := detection.DefaultOptions()
	opts.Transports = []string{cfg.Transport.Kind}
	devices, err := detection.DetectAll(ctx, &opts)
	if err != nil {
		return fmt.Errorf("failed to detect %s front-end: %w", cfg.Transport.Kind, err)
	}
	best := devices[0]
	for _, d := range devices[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	_, _ = fmt.Fprintf(w, "Using %s\n", best)
	cfg.Transport.Port = best.Path
	return nil
}

// newTable builds the capability table for the configured transport. The
// returned closer releases the hardware.
func newTable(cfg *config.Config) (*platform.Table, io.Closer, error) {
	clock := host.NewClock()
	diag := rfal.DebugDiagnostics{}

	switch cfg.Transport.Kind {
	case config.TransportSPI:
		t, err := spi.New(spi.Config{
			Port:       cfg.Transport.Port,
			ChipSelect: cfg.Transport.ChipSelect,
			IRQIn:      cfg.Transport.IRQIn,
			IRQOut:     cfg.Transport.IRQOut,
			Frequency:  physic.Frequency(cfg.Transport.Frequency) * physic.Hertz,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return t.Table(clock, diag), t, nil
	case config.TransportUART:
		t, err := uart.New(cfg.Transport.Port, cfg.Transport.Baud)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return t.Table(clock, diag), t, nil
	default:
		table := testutil.NewPlatform().Table()
		table.Clock = clock
		table.Diagnostics = diag
		return table, io.NopCloser(nil), nil
	}
}

func openReader(cfg *config.Config) (*rfal.Reader, error) {
	eng, err := engine.Open(cfg.Engine)
	if err != nil {
		return nil, err //nolint:wrapcheck // already names the engine
	}
	reader, err := rfal.New(eng,
		rfal.WithPollInterval(cfg.PollInterval),
		rfal.WithDiscoverParams(cfg.DiscoverParams()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open reader: %w", err)
	}
	return reader, nil
}

// waitForTag starts discovery and returns the first activated device.
func waitForTag(ctx context.Context, w io.Writer, reader *rfal.Reader) (rfal.Device, error) {
	if err := reader.Discover.Start(); err != nil {
		return rfal.Device{}, fmt.Errorf("failed to start discovery: %w", err)
	}
	devices, err := reader.WaitForDevices(ctx)
	if err != nil {
		return rfal.Device{}, fmt.Errorf("no tag found: %w", err)
	}
	for i, dev := range devices {
		_, _ = fmt.Fprintf(w, "Device %d: %s\n", i, dev)
	}
	dev, err := reader.Activate(ctx, 0)
	if err != nil {
		return rfal.Device{}, fmt.Errorf("failed to activate tag: %w", err)
	}
	return dev, nil
}

// transceiveFWT is the frame wait time for -transceive, 20 ms in carrier
// cycles.
const transceiveFWT = 20 * 13560

func transceive(ctx context.Context, w io.Writer, reader *rfal.Reader, txHex string) error {
	tx, err := hex.DecodeString(txHex)
	if err != nil || len(tx) == 0 {
		return fmt.Errorf("invalid -transceive frame %q", txHex)
	}
	resp, err := reader.TransceiveWithRetry(ctx, tx, make([]byte, 256), transceiveFWT)
	if err != nil {
		return fmt.Errorf("transceive failed: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Response: %X\n", resp)
	return nil
}

func readTag(w io.Writer, reader *rfal.Reader) error {
	info, err := reader.NDEF.Detect()
	if err != nil {
		return fmt.Errorf("NDEF detect failed: %w", err)
	}
	_, _ = fmt.Fprintf(w, "NDEF: state %s, %d/%d bytes\n", info.State, info.MessageLen, info.AreaAvailableSpaceLen)
	if info.MessageLen == 0 {
		_, _ = fmt.Fprintln(w, "NDEF message is empty")
		return nil
	}

	msg, err := reader.NDEF.ReadMessage()
	if err != nil {
		return fmt.Errorf("NDEF read failed: %w", err)
	}
	for i, rec := range msg.Records {
		payload, err := rec.Payload()
		if err != nil {
			return fmt.Errorf("NDEF record %d payload: %w", i, err)
		}
		_, _ = fmt.Fprintf(w, "Record %d: type %q, %d bytes\n", i, rec.Type(), len(payload.Marshal()))
	}
	if text, err := rfal.TextFromMessage(msg); err == nil {
		_, _ = fmt.Fprintf(w, "Text: %q\n", text)
	}
	return nil
}

func run(ctx context.Context, w io.Writer, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.Debug {
		rfal.SetDebugEnabled(true)
	}

	if err := detectPort(ctx, w, cfg); err != nil {
		return err
	}
	table, closer, err := newTable(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close transport: %v\n", err)
		}
	}()
	if err := platform.Install(table); err != nil {
		return fmt.Errorf("failed to install platform: %w", err)
	}
	defer platform.Uninstall()

	reader, err := openReader(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	if opts.watch {
		return watch(ctx, w, reader)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	_, _ = fmt.Fprintf(w, "Waiting for a tag on %s...\n", cfg.Engine)
	dev, err := waitForTag(ctx, w, reader)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Tag detected: %s\n", dev)

	if opts.transceive != "" {
		if err := transceive(ctx, w, reader, opts.transceive); err != nil {
			return err
		}
	}
	if err := reader.NDEF.Initialize(dev); err != nil {
		return fmt.Errorf("NDEF initialize failed: %w", err)
	}
	if opts.writeText != "" {
		if err := reader.NDEF.WriteText(opts.writeText, "en"); err != nil {
			return fmt.Errorf("failed to write text: %w", err)
		}
		_, _ = fmt.Fprintf(w, "Successfully wrote text to tag: %q\n", opts.writeText)
	}
	if err := readTag(w, reader); err != nil {
		return err
	}

	if err := reader.NFC.DeactivateAndSleep(); err != nil {
		return fmt.Errorf("failed to deactivate tag: %w", err)
	}
	return nil
}

// watch reports tags entering and leaving the field until ctx ends.
func watch(ctx context.Context, w io.Writer, reader *rfal.Reader) error {
	session := polling.NewSession(reader, polling.DefaultConfig())
	defer func() { _ = session.Close() }()

	report := func(event string) func(rfal.Device) error {
		return func(dev rfal.Device) error {
			_, _ = fmt.Fprintf(w, "%s: %s\n", event, dev)
			if err := reader.NDEF.Initialize(dev); err != nil {
				_, _ = fmt.Fprintf(w, "No NDEF support: %v\n", err)
				return nil
			}
			if err := readTag(w, reader); err != nil {
				_, _ = fmt.Fprintf(w, "Read failed: %v\n", err)
			}
			return nil
		}
	}
	session.OnCardDetected = report("Tag detected")
	session.OnCardChanged = report("Tag changed")
	session.OnCardRemoved = func() {
		_, _ = fmt.Fprintln(w, "Tag removed")
	}

	_, _ = fmt.Fprintln(w, "Watching for tags, press Ctrl+C to stop")
	err := session.Start(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err //nolint:wrapcheck // callback errors already name the callback
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	opts := parseOptions()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, os.Stdout, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
