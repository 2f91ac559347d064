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

//nolint:paralleltest // Tests modify package-level session log state, cannot run in parallel
package rfal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanupSessionLog ensures session log state is clean after tests.
func cleanupSessionLog(t *testing.T) {
	t.Helper()
	if sessionLogFile != nil {
		_ = sessionLogFile.Close()
	}
	sessionLogFile = nil
	sessionLogPath = ""
	sessionLogWriter = nil
	sessionID = ""
}

// openSessionLog starts a session log in a temporary directory.
func openSessionLog(t *testing.T) (dir, path string) {
	t.Helper()
	t.Cleanup(func() { cleanupSessionLog(t) })

	dir = t.TempDir()
	path, err := InitSessionLog(dir)
	require.NoError(t, err)
	return dir, path
}

func TestInitSessionLog_CreatesFile(t *testing.T) {
	dir, path := openSessionLog(t)

	_, err := os.Stat(path)
	require.NoError(t, err, "log file should exist")
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, `^rfal_\d{8}_\d{6}_[0-9a-f]{8}\.log$`, filepath.Base(path))

	assert.Equal(t, path, GetSessionLogPath())
	require.Len(t, GetSessionID(), 36)
	assert.Contains(t, filepath.Base(path), GetSessionID()[:8])
}

func TestSessionLog_HeaderMessagesFooter(t *testing.T) {
	_, path := openSessionLog(t)
	id := GetSessionID()

	Debugf("reader: engine initialized, state %s", "idle")
	require.NoError(t, CloseSessionLog())

	content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
	require.NoError(t, err)
	text := string(content)

	assert.True(t, strings.HasPrefix(text, "=== RFAL Debug Session Log ==="))
	assert.Contains(t, text, "Session: "+id)
	assert.Contains(t, text, "PID:")
	assert.Contains(t, text, "Go Version:")
	assert.Contains(t, text, "DEBUG: reader: engine initialized, state idle")
	assert.Contains(t, text, "=== Session "+id+" ended ===")
}

func TestCloseSessionLog_ResetsState(t *testing.T) {
	_, _ = openSessionLog(t)
	require.NoError(t, CloseSessionLog())

	assert.Empty(t, GetSessionLogPath())
	assert.Empty(t, GetSessionID())
	assert.Nil(t, sessionLogFile)
	assert.Nil(t, sessionLogWriter)
}

func TestCloseSessionLog_NoFile(t *testing.T) {
	cleanupSessionLog(t)
	assert.NoError(t, CloseSessionLog())
}

func TestInitSessionLog_MissingDirectory(t *testing.T) {
	t.Cleanup(func() { cleanupSessionLog(t) })

	_, err := InitSessionLog(filepath.Join(t.TempDir(), "missing", "dir"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create session log")
	assert.Empty(t, GetSessionLogPath())
}

func TestSessionLog_MultipleCycles(t *testing.T) {
	t.Cleanup(func() { cleanupSessionLog(t) })
	dir := t.TempDir()

	paths := make([]string, 0, 3)
	for i := range 3 {
		path, err := InitSessionLog(dir)
		require.NoError(t, err, "init cycle %d", i)
		paths = append(paths, path)
		Debugf("cycle %d", i)
		require.NoError(t, CloseSessionLog(), "close cycle %d", i)
	}

	for i, path := range paths {
		content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
		require.NoError(t, err)
		assert.Contains(t, string(content), "cycle", "log %d", i)
	}
	assert.NotEqual(t, paths[0], paths[1])
}

func TestWriteSessionHeader(t *testing.T) {
	var buf strings.Builder
	writeSessionHeader(&buf, "abc")

	content := buf.String()
	assert.True(t, strings.HasPrefix(content, "=== RFAL Debug Session Log ==="))
	assert.Contains(t, content, "Session: abc\n")
	assert.Contains(t, content, "OS:")
	assert.Contains(t, content, "Command Line:")
	assert.Contains(t, content, "Deadlock Detection:")
}
