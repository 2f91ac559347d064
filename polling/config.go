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

package polling

import "time"

// SleepRecoveryConfig controls recovery after the host was suspended. A poll
// round that starts much later than scheduled means the front-end may have
// lost power, so the session restarts discovery from idle.
type SleepRecoveryConfig struct {
	// Enabled turns sleep detection on.
	Enabled bool

	// TimeDiscontinuityThreshold is how late a poll round may start before
	// it counts as a sleep. Default: 2 seconds
	TimeDiscontinuityThreshold time.Duration

	// MaxRecoveryAttempts is how often discovery is restarted before the
	// session gives up. Default: 3
	MaxRecoveryAttempts int

	// RecoveryBackoff is the delay between recovery attempts.
	RecoveryBackoff time.Duration
}

// DefaultSleepRecoveryConfig returns sleep recovery with default thresholds.
func DefaultSleepRecoveryConfig() SleepRecoveryConfig {
	return SleepRecoveryConfig{
		Enabled:                    true,
		TimeDiscontinuityThreshold: 2 * time.Second,
		MaxRecoveryAttempts:        3,
		RecoveryBackoff:            500 * time.Millisecond,
	}
}

// DetectSleep reports whether elapsed since the last round exceeds the poll
// interval by more than the threshold.
func (cfg SleepRecoveryConfig) DetectSleep(elapsed, pollInterval time.Duration) bool {
	if !cfg.Enabled {
		return false
	}
	return elapsed > pollInterval+cfg.TimeDiscontinuityThreshold
}

// Config controls a polling session.
type Config struct {
	// PollInterval is the pause between poll rounds.
	PollInterval time.Duration
	// DetectTimeout bounds one round of discovery.
	DetectTimeout time.Duration
	// CardRemovalTimeout is how long a tag may go unseen before it is
	// reported removed.
	CardRemovalTimeout time.Duration
	SleepRecovery      SleepRecoveryConfig
}

// DefaultConfig returns the polling defaults.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:       100 * time.Millisecond,
		DetectTimeout:      300 * time.Millisecond,
		CardRemovalTimeout: 600 * time.Millisecond,
		SleepRecovery:      DefaultSleepRecoveryConfig(),
	}
}
