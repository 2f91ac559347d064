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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns USB devices that are never probed.
func DefaultBlocklist() []string {
	return []string{
		"1366:0105", // SEGGER J-Link CDC: probing disturbs an attached debug session
	}
}

// FormatVIDPID joins USB vendor and product IDs as upper-case "VVVV:PPPP".
// It returns "" unless both are set.
func FormatVIDPID(vid, pid string) string {
	vid = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(vid)), "0X")
	pid = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(pid)), "0X")
	if vid == "" || pid == "" {
		return ""
	}
	return vid + ":" + pid
}

// IsBlocked reports whether vidpid is on blocklist, ignoring case and
// surrounding space.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// IsPathIgnored reports whether devicePath names one of ignorePaths. Paths
// are compared cleaned and case-insensitively so that "COM3" matches "com3".
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizePath(devicePath)
	for _, p := range ignorePaths {
		if p != "" && normalizePath(p) == device {
			return true
		}
	}
	return false
}

func normalizePath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}

// filterDevices applies IgnorePaths and Blocklist to devices that did not go
// through a detector, such as cached results.
func filterDevices(devices []DeviceInfo, opts *Options) []DeviceInfo {
	if len(opts.IgnorePaths) == 0 && len(opts.Blocklist) == 0 {
		return devices
	}
	filtered := devices[:0:0]
	for _, d := range devices {
		if IsPathIgnored(d.Path, opts.IgnorePaths) || IsBlocked(d.Metadata["vidpid"], opts.Blocklist) {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}
