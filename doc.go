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

// Package rfal drives a contactless reader front-end through a vendor protocol
// engine.
//
// The engine does RF discovery, anticollision and bit framing. This package is
// the layer around it: it translates the engine's status codes into errors,
// builds discovery parameters, drives the session state machine one
// non-blocking tick at a time, runs data exchanges and reads and writes NDEF
// content. The engine reaches the host only through the capability table in
// package platform, which has to be installed before anything else:
//
//	if err := platform.Install(&platform.Table{
//		Command:     st25r95,
//		Clock:       host.NewClock(),
//		Diagnostics: rfal.DebugDiagnostics{},
//	}); err != nil {
//		return err
//	}
//
//	eng, err := engine.Open("sim")
//	if err != nil {
//		return err
//	}
//	reader, err := rfal.New(eng)
//	if err != nil {
//		return err
//	}
//	defer reader.Close()
//
//	reader.Discover.WithTechs(engine.TechPollA|engine.TechPollV, engine.TechNone)
//	if err := reader.Discover.Start(); err != nil {
//		return err
//	}
//	for !reader.NFC.State().HasDevices() {
//		reader.NFC.Worker()
//	}
//
// Nothing runs in the background. Every operation that moves bytes makes
// progress only while the caller keeps calling NFC.Worker; the blocking
// helpers on Reader do exactly that.
package rfal
