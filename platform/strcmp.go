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

package platform

// Strcmp compares two NUL-terminated byte strings the way the C library
// does. Bytes compare unsigned; the end of a slice counts as a terminator.
// The result is the difference of the first differing bytes, or 0.
func Strcmp(a, b []byte) int {
	for i := 0; ; i++ {
		ca, cb := at(a, i), at(b, i)
		if d := int(ca) - int(cb); d != 0 || ca == 0 {
			return d
		}
	}
}

func at(s []byte, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}
