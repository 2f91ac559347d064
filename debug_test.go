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

//nolint:paralleltest // Tests modify package-level debug state, cannot run in parallel
package rfal

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDebug routes debug output into a buffer for the rest of the test.
func captureDebug(t *testing.T) *bytes.Buffer {
	t.Helper()
	origEnabled, origWriter := debugEnabled, sessionLogWriter
	t.Cleanup(func() {
		debugEnabled = origEnabled
		sessionLogWriter = origWriter
	})

	var buf bytes.Buffer
	sessionLogWriter = &buf
	debugEnabled = false
	return &buf
}

func TestDebugf_WritesTimestampedLine(t *testing.T) {
	buf := captureDebug(t)

	Debugf("int: %d, hex: %02X", 42, 0xAB)

	line := buf.String()
	assert.Regexp(t, regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3} DEBUG: int: 42, hex: AB\n$`), line)
}

func TestDebugln_ConcatenatesArgs(t *testing.T) {
	buf := captureDebug(t)

	Debugln("value", 42, true)

	assert.Contains(t, buf.String(), "DEBUG: value42 true")
}

func TestDebug_MultipleMessages(t *testing.T) {
	buf := captureDebug(t)

	for _, msg := range []string{"one", "two", "three"} {
		Debugf("message %s", msg)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "message three")
}

func TestDebug_NilSessionWriter(t *testing.T) {
	_ = captureDebug(t)
	sessionLogWriter = nil

	assert.NotPanics(t, func() {
		Debugf("dropped %d", 1)
		Debugln("dropped")
	})
}

func TestSetDebugEnabled(t *testing.T) {
	_ = captureDebug(t)

	SetDebugEnabled(true)
	assert.True(t, debugEnabled)
	SetDebugEnabled(false)
	assert.False(t, debugEnabled)
}

func TestDebugDiagnostics(t *testing.T) {
	buf := captureDebug(t)

	var diag DebugDiagnostics
	diag.HandleError("sim.go", 120)
	diag.Log("sim: state", 11)

	out := buf.String()
	assert.Contains(t, out, "engine error at sim.go:120")
	assert.Contains(t, out, "engine: sim: state 11 (0xb)")
}
