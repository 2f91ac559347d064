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

// Package polling watches the field for tags and reports when they arrive,
// change and leave.
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	rfal "github.com/ZaparooProject/go-rfal"
	"github.com/ZaparooProject/go-rfal/engine"
	"github.com/ZaparooProject/go-rfal/internal/syncutil"
)

// ErrRecoveryFailed is returned when discovery cannot be restarted after a
// host sleep.
var ErrRecoveryFailed = errors.New("sleep recovery failed")

// Session runs discovery rounds on a reader and tracks the tag in the field.
// Discovery parameters must be set on the reader before Start.
//
// Callbacks run on the polling goroutine while the tag is active, so they may
// use Reader() to exchange data with it. The tag is put back into discovery
// when they return.
type Session struct {
	lastPoll       time.Time
	reader         *rfal.Reader
	config         *Config
	OnCardDetected func(rfal.Device) error
	OnCardChanged  func(rfal.Device) error
	OnCardRemoved  func()
	state          CardState
	mu             syncutil.Mutex
	stateMutex     syncutil.RWMutex
	closed         atomic.Bool
}

// NewSession creates a session on reader. A nil config uses DefaultConfig.
func NewSession(reader *rfal.Reader, config *Config) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	return &Session{reader: reader, config: config}
}

// Reader returns the reader the session drives.
func (s *Session) Reader() *rfal.Reader {
	return s.reader
}

// GetState returns a copy of the tracked tag state.
func (s *Session) GetState() CardState {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.state
}

// Start polls until ctx ends, the session is closed or a callback fails.
func (s *Session) Start(ctx context.Context) error {
	if s.reader.Discover.Params.TechsToFind == engine.TechNone {
		return errors.New("polling: no technologies to discover")
	}
	ticker := time.NewTicker(max(s.config.PollInterval, time.Millisecond))
	defer ticker.Stop()

	for !s.closed.Load() {
		if err := s.pollCycle(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck // cancellation is returned as-is
		case <-ticker.C:
		}
	}
	return nil
}

// Close stops Start after its current round.
func (s *Session) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Session) pollCycle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if !s.lastPoll.IsZero() && s.config.SleepRecovery.DetectSleep(now.Sub(s.lastPoll), s.config.PollInterval) {
		rfal.Debugf("polling: %v since last round, recovering", now.Sub(s.lastPoll))
		if err := s.recoverFromSleep(ctx); err != nil {
			return err
		}
	}
	s.lastPoll = now

	dev, err := s.poll(ctx)
	switch {
	case err == nil:
		return s.processPollingResults(dev)
	case errors.Is(err, ErrNoTagInPoll):
		s.checkRemoval(time.Now())
		return nil
	case ctx.Err() != nil:
		return ctx.Err() //nolint:wrapcheck // cancellation is returned as-is
	default:
		s.handlePollingError(err)
		return nil
	}
}

// poll runs one round of discovery and activates the first device found.
func (s *Session) poll(ctx context.Context) (rfal.Device, error) {
	state := s.reader.NFC.State()
	if !state.IsDiscovering() && !state.HasDevices() {
		if err := s.reader.Discover.Start(); err != nil {
			return rfal.Device{}, fmt.Errorf("start discovery: %w", err)
		}
	}

	roundCtx, cancel := context.WithTimeout(ctx, s.config.DetectTimeout)
	defer cancel()
	if _, err := s.reader.WaitForDevices(roundCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return rfal.Device{}, ErrNoTagInPoll
		}
		return rfal.Device{}, err //nolint:wrapcheck // already names the step
	}
	return s.reader.Activate(ctx, 0) //nolint:wrapcheck // already names the step
}

// rediscover puts the active tag back into discovery so the next round can
// see it again.
func (s *Session) rediscover() {
	if err := s.reader.NFC.DeactivateAndDiscovery(); err != nil {
		rfal.Debugf("polling: restart discovery: %v", err)
	}
}

func (s *Session) handlePollingError(err error) {
	rfal.Debugf("polling: %v", err)
	s.handleCardRemoval()
	if err := s.reader.NFC.DeactivateAndIdle(); err != nil {
		rfal.Debugf("polling: deactivate after error: %v", err)
	}
}

func (s *Session) checkRemoval(now time.Time) {
	s.stateMutex.RLock()
	expired := s.state.Expired(now, s.config.CardRemovalTimeout)
	s.stateMutex.RUnlock()
	if expired {
		s.handleCardRemoval()
	}
}

func (s *Session) handleCardRemoval() {
	s.stateMutex.Lock()
	wasPresent := s.state.Present
	s.state.TransitionToIdle()
	onRemoved := s.OnCardRemoved
	s.stateMutex.Unlock()

	if wasPresent && onRemoved != nil {
		onRemoved()
	}
}

func (s *Session) processPollingResults(dev rfal.Device) error {
	defer s.rediscover()

	s.stateMutex.Lock()
	wasPresent := s.state.Present
	changed := wasPresent && s.state.LastUID != dev.IDString()
	s.state.TransitionToReading()
	onDetected, onChanged := s.OnCardDetected, s.OnCardChanged
	s.stateMutex.Unlock()

	var err error
	switch {
	case !wasPresent && onDetected != nil:
		err = safeCallCallback(onDetected, dev, "OnCardDetected")
	case changed && onChanged != nil:
		err = safeCallCallback(onChanged, dev, "OnCardChanged")
	}

	s.stateMutex.Lock()
	s.state.TransitionToDetected(time.Now(), dev)
	s.stateMutex.Unlock()
	return err
}

func safeCallCallback(callback func(rfal.Device) error, dev rfal.Device, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s callback panicked: %v", name, r)
		}
	}()
	if cbErr := callback(dev); cbErr != nil {
		return fmt.Errorf("%s callback failed: %w", name, cbErr)
	}
	return nil
}

// recoverFromSleep drops the tracked tag and restarts discovery from idle.
func (s *Session) recoverFromSleep(ctx context.Context) error {
	s.handleCardRemoval()

	cfg := s.config.SleepRecovery
	attempts := max(cfg.MaxRecoveryAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = s.reader.NFC.DeactivateAndIdle()
		if lastErr == nil {
			lastErr = s.reader.Discover.Start()
		}
		if lastErr == nil {
			return nil
		}
		rfal.Debugf("polling: recovery attempt %d: %v", attempt, lastErr)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck // cancellation is returned as-is
		case <-time.After(cfg.RecoveryBackoff):
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRecoveryFailed, attempts, lastErr)
}

// WriteToNextTag waits up to timeout for a tag and runs fn while it is
// active. It may run alongside Start; rounds are serialized.
func (s *Session) WriteToNextTag(
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context, *rfal.Reader, rfal.Device) error,
) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		done, err := s.tryWrite(ctx, fn)
		if done {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("no tag to write: %w", ctx.Err())
		case <-time.After(s.config.PollInterval):
		}
	}
}

func (s *Session) tryWrite(ctx context.Context, fn func(context.Context, *rfal.Reader, rfal.Device) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dev, err := s.poll(ctx)
	if errors.Is(err, ErrNoTagInPoll) {
		return false, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return true, fmt.Errorf("no tag to write: %w", ctx.Err())
		}
		return true, err
	}
	defer s.rediscover()

	s.stateMutex.Lock()
	s.state.TransitionToReading()
	s.stateMutex.Unlock()
	defer func() {
		s.stateMutex.Lock()
		s.state.TransitionToDetected(time.Now(), dev)
		s.stateMutex.Unlock()
	}()

	if err := fn(ctx, s.reader, dev); err != nil {
		return true, fmt.Errorf("write to tag %s: %w", dev.IDString(), err)
	}
	return true, nil
}
