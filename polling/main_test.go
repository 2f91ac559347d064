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

import (
	"os"
	"testing"

	testutil "github.com/ZaparooProject/go-rfal/internal/testing"
	"github.com/ZaparooProject/go-rfal/platform"
)

func TestMain(m *testing.M) {
	if err := platform.Install(testutil.NewPlatform().Table()); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
