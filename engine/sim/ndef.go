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

package sim

import "github.com/ZaparooProject/go-rfal/engine"

// NDEFContextInit binds ctx to dev, which must be the active device.
func (e *Engine) NDEFContextInit(ctx *engine.NDEFContext, dev *engine.Device) engine.ReturnCode {
	if rc, failed := e.fault(OpNDEFContextInit); failed {
		return rc
	}
	if ctx == nil || dev == nil {
		return engine.RCParam
	}
	tag := e.activeTag()
	if tag == nil {
		return engine.RCWrongState
	}
	if !tag.matches(dev) {
		return engine.RCParam
	}
	typ := tag.ndefType()
	if typ == engine.NDEFDevNone {
		return engine.RCNotSupp
	}

	*ctx = engine.NDEFContext{
		Device: *dev,
		Type:   typ,
		State:  engine.NDEFStateInvalid,
	}
	return engine.RCNone
}

// boundTag returns the active tag ctx was initialized for.
func (e *Engine) boundTag(ctx *engine.NDEFContext) (*Tag, engine.ReturnCode) {
	if ctx == nil || ctx.Type == engine.NDEFDevNone {
		return nil, engine.RCParam
	}
	tag := e.activeTag()
	if tag == nil || !tag.matches(&ctx.Device) {
		return nil, engine.RCWrongState
	}
	if !tag.Present {
		return nil, engine.RCTimeout
	}
	return tag, engine.RCNone
}

// NDEFDetect reads the capability container and the message length.
func (e *Engine) NDEFDetect(ctx *engine.NDEFContext, info *engine.NDEFInfo) engine.ReturnCode {
	if rc, failed := e.fault(OpNDEFDetect); failed {
		return rc
	}
	tag, rc := e.boundTag(ctx)
	if rc != engine.RCNone {
		return rc
	}
	ctx.State = engine.NDEFStateInvalid
	if !tag.formatted {
		return engine.RCRequest
	}

	e.load(ctx, tag)
	if info != nil {
		cc := ctx.CC
		*info = engine.NDEFInfo{
			AreaLen:               ctx.AreaLen,
			AreaAvailableSpaceLen: uint32(tag.Capacity()), //nolint:gosec // bounded by AreaLen
			MessageLen:            ctx.MessageLen,
			State:                 ctx.State,
		}
		info.MajorVersion, info.MinorVersion = version(cc)
	}
	return engine.RCNone
}

// load copies the tag's container and message layout into ctx.
func (*Engine) load(ctx *engine.NDEFContext, tag *Tag) {
	ctx.CC = tag.container()
	ctx.CCBuf = [engine.CCBufLen]byte{}
	copy(ctx.CCBuf[:], ccBytes(ctx.CC))
	ctx.AreaLen = uint32(tag.AreaLen)         //nolint:gosec // tag areas are small
	ctx.MessageLen = uint32(len(tag.message)) //nolint:gosec // bounded by AreaLen
	ctx.MessageOffset = tag.messageOffset()
	switch {
	case tag.ReadOnly:
		ctx.State = engine.NDEFStateReadOnly
	case len(tag.message) == 0:
		ctx.State = engine.NDEFStateInitialized
	default:
		ctx.State = engine.NDEFStateReadWrite
	}
}

func version(cc engine.CapabilityContainer) (major, minor uint8) {
	switch c := cc.(type) {
	case engine.CCT1T:
		return c.MajorVersion, c.MinorVersion
	case engine.CCT2T:
		return c.MajorVersion, c.MinorVersion
	case engine.CCT3T:
		return c.MajorVersion, c.MinorVersion
	case engine.CCT4T:
		return c.VNo >> 4, c.VNo & 0x0F
	case engine.CCT5T:
		return c.MajorVersion, c.MinorVersion
	default:
		return 0, 0
	}
}

// NDEFReadRawMessage copies the message into buf. A message longer than buf
// fails with RCNoMem and still reports its length in n.
func (e *Engine) NDEFReadRawMessage(ctx *engine.NDEFContext, buf []byte, n *uint32, _ bool) engine.ReturnCode {
	if rc, failed := e.fault(OpNDEFRead); failed {
		return rc
	}
	if n == nil {
		return engine.RCParam
	}
	tag, rc := e.boundTag(ctx)
	if rc != engine.RCNone {
		return rc
	}
	if ctx.State == engine.NDEFStateInvalid {
		if !tag.formatted {
			return engine.RCRequest
		}
		e.load(ctx, tag)
	}

	*n = uint32(len(tag.message)) //nolint:gosec // bounded by AreaLen
	if len(tag.message) > len(buf) {
		return engine.RCNoMem
	}
	copy(buf, tag.message)
	return engine.RCNone
}

// NDEFWriteRawMessage stores msg on the tag.
func (e *Engine) NDEFWriteRawMessage(ctx *engine.NDEFContext, msg []byte) engine.ReturnCode {
	if rc, failed := e.fault(OpNDEFWrite); failed {
		return rc
	}
	tag, rc := e.boundTag(ctx)
	if rc != engine.RCNone {
		return rc
	}
	if ctx.State == engine.NDEFStateInvalid {
		if !tag.formatted {
			return engine.RCRequest
		}
		e.load(ctx, tag)
	}
	if ctx.State == engine.NDEFStateReadOnly {
		return engine.RCWrongState
	}
	if len(msg) > tag.Capacity() {
		return engine.RCNoMem
	}

	tag.message = append(tag.message[:0], msg...)
	e.load(ctx, tag)
	return engine.RCNone
}

// NDEFTagFormat writes cc, or the tag's default container when cc is nil,
// and leaves an empty message.
func (e *Engine) NDEFTagFormat(ctx *engine.NDEFContext, cc engine.CapabilityContainer, option uint32) engine.ReturnCode {
	if rc, failed := e.fault(OpNDEFFormat); failed {
		return rc
	}
	tag, rc := e.boundTag(ctx)
	if rc != engine.RCNone {
		return rc
	}
	if cc != nil && cc.DeviceType() != ctx.Type {
		return engine.RCParam
	}
	if tag.ReadOnly {
		return engine.RCWrongState
	}

	e.formatOption = option
	tag.formatted = true
	tag.message = nil
	e.load(ctx, tag)
	if cc != nil {
		ctx.CC = cc
		ctx.CCBuf = [engine.CCBufLen]byte{}
		copy(ctx.CCBuf[:], ccBytes(cc))
	}
	return engine.RCNone
}
