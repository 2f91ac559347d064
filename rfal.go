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

package rfal

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-rfal/engine"
	"github.com/ZaparooProject/go-rfal/platform"
)

// DefaultPollInterval is the delay between worker ticks in the blocking helpers.
const DefaultPollInterval = 5 * time.Millisecond

// Option configures a Reader.
type Option func(*Reader) error

// WithRetryConfig sets the retry policy of TransceiveWithRetry.
func WithRetryConfig(cfg *RetryConfig) Option {
	return func(r *Reader) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil retry config", ErrInvalidOption)
		}
		r.retry = cfg
		return nil
	}
}

// WithPollInterval sets the delay between worker ticks in the blocking
// helpers. It is rounded down to whole milliseconds; zero polls back to back.
func WithPollInterval(d time.Duration) Option {
	return func(r *Reader) error {
		if d < 0 {
			return fmt.Errorf("%w: negative poll interval %v", ErrInvalidOption, d)
		}
		r.pollMs = uint32(d / time.Millisecond) //nolint:gosec // checked non-negative
		return nil
	}
}

// WithDiscoverParams replaces the default discovery parameters.
func WithDiscoverParams(params DiscoverParams) Option {
	return func(r *Reader) error {
		r.Discover.Params = params
		return nil
	}
}

// Reader is one protocol engine session: discovery, the NFC state machine,
// data exchange and NDEF access against the active device.
//
// Thread Safety: Reader is NOT thread-safe. The engine it drives is single
// threaded and not re-entrant, so all methods, including those of Discover,
// NFC, Exchange and NDEF, must be called from one goroutine.
type Reader struct {
	eng      engine.Engine
	Discover *Discover
	NFC      *NFC
	Exchange *DataExchange
	NDEF     *NDEF
	retry    *RetryConfig
	pollMs   uint32
	closed   bool
}

// New initializes eng and returns a session around it. The capability table
// must already be installed: New panics otherwise, as any engine call would.
func New(eng engine.Engine, opts ...Option) (*Reader, error) {
	if !platform.Installed() {
		panic(platform.ErrNotInstalled)
	}

	r := &Reader{
		eng:      eng,
		Discover: newDiscover(eng),
		NFC:      newNFC(eng),
		Exchange: newDataExchange(eng),
		NDEF:     newNDEF(eng),
		retry:    DefaultRetryConfig(),
		pollMs:   uint32(DefaultPollInterval / time.Millisecond),
	}
	r.NFC.onDeactivate = []func(){r.NDEF.invalidate, r.Exchange.invalidate}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if err := r.start(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) start() error {
	if err := check("initialize", r.eng.Initialize()); err != nil {
		return err
	}
	if err := r.NFC.Initialize(); err != nil {
		return err
	}
	Debugf("reader: engine initialized, state %s", r.eng.State())
	return nil
}

// teardown deactivates and deinitializes the engine. Failures are logged;
// the engine is going away either way.
func (r *Reader) teardown() {
	r.NDEF.invalidate()
	r.Exchange.invalidate()

	if r.NFC.initialized && r.eng.State() > engine.StateIdle {
		if err := check("deactivate", r.eng.Deactivate(engine.DeactivateIdle)); err != nil {
			Debugf("reader: deactivate during teardown: %v", err)
		}
	}
	if err := check("deinitialize", r.eng.Deinitialize()); err != nil {
		Debugf("reader: deinitialize during teardown: %v", err)
	}
	r.NFC.initialized = false
}

// Reset tears the session down, replaces the capability table with t and
// initializes the engine again. It is the only way to change the installed
// table. Discovery parameters are kept; NDEF bindings and pending exchanges
// are dropped.
func (r *Reader) Reset(t *platform.Table) error {
	if r.closed {
		return ErrReaderClosed
	}
	if err := t.Validate(); err != nil {
		return err //nolint:wrapcheck // already carries the platform prefix
	}

	r.teardown()
	platform.Uninstall()
	if err := platform.Install(t); err != nil {
		return fmt.Errorf("failed to install capability table: %w", err)
	}
	Debugln("reader: capability table replaced")
	return r.start()
}

// Close deactivates and deinitializes the engine. The capability table stays
// installed.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.teardown()
	r.closed = true
	return nil
}

// PollInterval returns the delay between worker ticks in the blocking helpers.
func (r *Reader) PollInterval() time.Duration {
	return time.Duration(r.pollMs) * time.Millisecond
}

func (r *Reader) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // callers wrap
	}
	platform.DelayMs(r.pollMs)
	return nil
}

// WaitForDevices ticks the worker until the engine reports devices and returns
// them. Discovery must have been started.
func (r *Reader) WaitForDevices(ctx context.Context) ([]Device, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	for {
		r.NFC.Worker()
		state := r.NFC.State()
		if state.HasDevices() {
			return r.NFC.DevicesFound()
		}
		if !state.IsDiscovering() {
			return nil, fmt.Errorf("%w (state %s)", ErrDiscoveryNotRunning, state)
		}
		if err := r.wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for devices: %w", err)
		}
	}
}

// Activate selects the device at index when the engine waits for the host
// to choose, then ticks the worker until a device is active and returns it.
func (r *Reader) Activate(ctx context.Context, index uint8) (Device, error) {
	if r.closed {
		return Device{}, ErrReaderClosed
	}
	if r.NFC.State() == engine.StatePollSelect {
		if err := r.NFC.Select(index); err != nil {
			return Device{}, err
		}
	}
	for {
		r.NFC.Worker()
		state := r.NFC.State()
		if state.IsActivated() {
			return r.NFC.ActiveDevice()
		}
		if state != engine.StatePollActivation {
			return Device{}, fmt.Errorf("%w (state %s)", ErrNoActiveDevice, state)
		}
		if err := r.wait(ctx); err != nil {
			return Device{}, fmt.Errorf("activate: %w", err)
		}
	}
}

// Transceive sends tx to the active device and blocks until the response is
// in rx or the exchange fails. It returns the filled part of rx. Cancelling
// ctx abandons the exchange; bytes already moved are not guaranteed.
func (r *Reader) Transceive(ctx context.Context, tx, rx []byte, fwt uint32) ([]byte, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	if err := r.Exchange.Start(tx, rx, fwt); err != nil {
		return nil, err
	}
	for {
		r.NFC.Worker()
		err := r.Exchange.Status()
		if err == nil {
			return r.Exchange.Received(), nil
		}
		if !IsInProgress(err) {
			return nil, err
		}
		if err := r.wait(ctx); err != nil {
			r.Exchange.invalidate()
			return nil, fmt.Errorf("transceive abandoned: %w", err)
		}
	}
}

// TransceiveWithRetry is Transceive retried on transient failures according
// to the reader's retry configuration.
func (r *Reader) TransceiveWithRetry(ctx context.Context, tx, rx []byte, fwt uint32) ([]byte, error) {
	var resp []byte
	err := RetryWithConfig(ctx, r.retry, func() error {
		var err error
		resp, err = r.Transceive(ctx, tx, rx, fwt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
