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
	"math/rand/v2"
	"time"
)

// RetryConfig is the policy TransceiveWithRetry follows when an exchange
// fails with a transient error (timeout, CRC, framing, parity, collision).
type RetryConfig struct {
	// MaxAttempts counts the first try; 0 disables retrying.
	MaxAttempts int
	// InitialBackoff is the pause after the first failure.
	InitialBackoff time.Duration
	// MaxBackoff caps the pause.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the pause after each failure.
	BackoffMultiplier float64
	// Jitter adds up to this fraction of the pause at random.
	Jitter float64
	// RetryTimeout bounds all attempts together.
	RetryTimeout time.Duration
}

// DefaultRetryConfig retries a failed exchange twice. The first pause is a
// few frame wait times so a tag that just browned out can recover.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
		RetryTimeout:      2 * time.Second,
	}
}

// RetryWithConfig runs op until it succeeds, returns an error IsTransient
// rejects, or the policy runs out. The last error from op is returned.
func RetryWithConfig(ctx context.Context, config *RetryConfig, op func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts <= 0 {
		return op()
	}
	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("retry not started: %w", err)
	}

	pause := config.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !IsTransient(err) || attempt >= config.MaxAttempts {
			return err
		}
		Debugf("retry: attempt %d/%d failed: %v", attempt, config.MaxAttempts, err)

		timer := time.NewTimer(jittered(pause, config.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		pause = nextBackoff(pause, config)
	}
}

func nextBackoff(pause time.Duration, config *RetryConfig) time.Duration {
	return min(time.Duration(float64(pause)*config.BackoffMultiplier), config.MaxBackoff)
}

func jittered(pause time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return pause
	}
	return pause + time.Duration(rand.Float64()*factor*float64(pause)) //nolint:gosec // timing only
}
