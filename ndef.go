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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-rfal/engine"
	"github.com/hsanjuan/go-ndef"
)

// NDEFReadBufferLen is the size of the staging buffer raw messages are read
// into. Longer messages fail with ErrNoMem.
const NDEFReadBufferLen = 256

// ErrNoTextRecord is returned by ReadText when the message has no text record.
var ErrNoTextRecord = errors.New("no text record in NDEF message")

// NDEF reads, writes and formats NDEF content on the active device. It must
// be bound to a device with Initialize first; until then, and after a
// deactivation, every other method fails with ErrNotInitialized without
// calling the engine.
type NDEF struct {
	eng engine.Engine
	ctx *engine.NDEFContext
	buf [NDEFReadBufferLen]byte
}

func newNDEF(eng engine.Engine) *NDEF {
	return &NDEF{eng: eng}
}

// Initialize binds a fresh context to dev, which must be the active device.
// Any previous binding is dropped first, so a failure leaves it unbound.
func (n *NDEF) Initialize(dev Device) error {
	n.ctx = nil

	ctx := &engine.NDEFContext{}
	raw := dev.raw
	if err := check("ndef context init", n.eng.NDEFContextInit(ctx, &raw)); err != nil {
		return err
	}
	n.ctx = ctx
	Debugf("ndef: bound to %s as %s", dev, ctx.Type)
	return nil
}

// Bound reports whether a context is bound.
func (n *NDEF) Bound() bool {
	return n.ctx != nil
}

// Type returns the NDEF device type of the bound context.
func (n *NDEF) Type() (NDEFDeviceType, bool) {
	if n.ctx == nil {
		return engine.NDEFDevNone, false
	}
	return n.ctx.Type, true
}

// State returns the NDEF state of the bound context.
func (n *NDEF) State() (NDEFState, bool) {
	if n.ctx == nil {
		return engine.NDEFStateInvalid, false
	}
	return n.ctx.State, true
}

// CapabilityContainer returns the container read by Detect or written by
// TagFormat, or nil.
func (n *NDEF) CapabilityContainer() CapabilityContainer {
	if n.ctx == nil {
		return nil
	}
	return n.ctx.CC
}

// Detect probes the tag for an NDEF application.
func (n *NDEF) Detect() (NDEFInfo, error) {
	if n.ctx == nil {
		return NDEFInfo{}, ErrNotInitialized
	}
	var info NDEFInfo
	if err := check("ndef detect", n.eng.NDEFDetect(n.ctx, &info)); err != nil {
		return NDEFInfo{}, err
	}
	Debugf("ndef: detect v%d.%d state=%s message=%d area=%d free=%d",
		info.MajorVersion, info.MinorVersion, info.State, info.MessageLen, info.AreaLen, info.AreaAvailableSpaceLen)
	return info, nil
}

// ReadRawMessage reads the NDEF message without its TLV framing. The returned
// slice is a view of an internal buffer and is only valid until the next read.
func (n *NDEF) ReadRawMessage() ([]byte, error) {
	if n.ctx == nil {
		return nil, ErrNotInitialized
	}
	var received uint32
	if err := check("ndef read", n.eng.NDEFReadRawMessage(n.ctx, n.buf[:], &received, true)); err != nil {
		return nil, err
	}
	if received > NDEFReadBufferLen {
		return nil, &EngineError{Op: "ndef read", Code: ErrNoMem}
	}
	return n.buf[:received], nil
}

// WriteRawMessage writes msg as the tag's NDEF message. The engine fails with
// ErrNoMem when the tag area is too small and ErrWrongState when the tag is
// read-only.
func (n *NDEF) WriteRawMessage(msg []byte) error {
	if n.ctx == nil {
		return ErrNotInitialized
	}
	return check("ndef write", n.eng.NDEFWriteRawMessage(n.ctx, msg))
}

// TagFormat writes cc to a blank tag. option selects vendor specific
// formatting variants and is passed through unchanged.
func (n *NDEF) TagFormat(cc CapabilityContainer, option uint32) error {
	if n.ctx == nil {
		return ErrNotInitialized
	}
	return check("ndef format", n.eng.NDEFTagFormat(n.ctx, cc, option))
}

// ReadMessage reads and decodes the tag's NDEF message.
func (n *NDEF) ReadMessage() (*ndef.Message, error) {
	raw, err := n.ReadRawMessage()
	if err != nil {
		return nil, err
	}
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("failed to parse NDEF message: %w", err)
	}
	return msg, nil
}

// WriteMessage encodes msg and writes it to the tag.
func (n *NDEF) WriteMessage(msg *ndef.Message) error {
	if n.ctx == nil {
		return ErrNotInitialized
	}
	data, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal NDEF message: %w", err)
	}
	return n.WriteRawMessage(data)
}

// ReadText returns the text of the first text record on the tag.
func (n *NDEF) ReadText() (string, error) {
	msg, err := n.ReadMessage()
	if err != nil {
		return "", err
	}
	return TextFromMessage(msg)
}

// TextFromMessage returns the text of the first text record in msg.
func TextFromMessage(msg *ndef.Message) (string, error) {
	for _, rec := range msg.Records {
		if rec.TNF() != ndef.NFCForumWellKnownType || rec.Type() != "T" {
			continue
		}
		payload, err := rec.Payload()
		if err != nil {
			return "", fmt.Errorf("failed to get NDEF record payload: %w", err)
		}
		return decodeTextPayload(payload.Marshal())
	}
	return "", ErrNoTextRecord
}

// WriteText replaces the tag's message with a single text record.
func (n *NDEF) WriteText(text, lang string) error {
	return n.WriteMessage(ndef.NewMessageFromRecords(ndef.NewTextRecord(text, lang)))
}

// WriteURI replaces the tag's message with a single URI record.
func (n *NDEF) WriteURI(uri string) error {
	return n.WriteMessage(ndef.NewMessageFromRecords(ndef.NewURIRecord(uri)))
}

// decodeTextPayload strips the status byte and language code of a text
// record payload.
func decodeTextPayload(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", errors.New("text payload too short")
	}
	langLen := int(payload[0] & 0x3F)
	if len(payload) < 1+langLen {
		return "", errors.New("invalid text payload length")
	}
	return string(payload[1+langLen:]), nil
}

func (n *NDEF) invalidate() {
	n.ctx = nil
}
