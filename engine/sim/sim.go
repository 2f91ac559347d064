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

// Package sim is a protocol engine that emulates a reader front-end and a
// field of virtual tags in memory.
//
// It follows the session state machine of a real engine closely enough to
// drive the whole driver: discovery, selection, data exchange with a
// configurable number of in-progress polls, NDEF detection, reads, writes and
// formatting. Like a real engine it reaches the host only through the
// platform trampoline: it probes the transport during Initialize, times
// discovery and frame wait times on the platform clock and reports state
// changes and faults through the diagnostics slot.
//
// Importing the package registers two engines: "sim", which talks to a
// command-oriented front-end, and "sim-spi", which talks to a raw SPI bus.
package sim

import (
	"runtime"

	"github.com/ZaparooProject/go-rfal/engine"
	"github.com/ZaparooProject/go-rfal/platform"
)

func init() {
	engine.Register("sim", func() (engine.Engine, error) {
		return New(WithTags(NewNTAG213(nil))), nil
	})
	engine.Register("sim-spi", func() (engine.Engine, error) {
		return New(WithTransport(TransportSPI), WithTags(NewNTAG213(nil))), nil
	})
}

// Transport selects how Initialize probes the front-end.
type Transport int

const (
	// TransportCommand resets the front-end and sends the echo command.
	TransportCommand Transport = iota
	// TransportSPI clocks the echo byte through the SPI bus.
	TransportSPI
)

const echoCommand = 0x55

// fcPerMs converts frame wait times from carrier cycles to milliseconds.
const fcPerMs = 13560

// maxFrameLen is the longest frame the emulated front-end buffers.
const maxFrameLen = 256

// Responder produces the reply of tag to the frame tx.
type Responder func(tag *Tag, tx []byte) ([]byte, engine.ReturnCode)

// Op names an engine entry point for fault injection.
type Op string

const (
	OpInitialize      Op = "initialize"
	OpNFCInitialize   Op = "nfc initialize"
	OpDeinitialize    Op = "deinitialize"
	OpDiscover        Op = "discover"
	OpSelect          Op = "select"
	OpDeactivate      Op = "deactivate"
	OpExchangeStart   Op = "exchange start"
	OpExchange        Op = "exchange"
	OpNDEFContextInit Op = "ndef context init"
	OpNDEFDetect      Op = "ndef detect"
	OpNDEFRead        Op = "ndef read"
	OpNDEFWrite       Op = "ndef write"
	OpNDEFFormat      Op = "ndef format"
)

// Option configures an Engine.
type Option func(*Engine)

// WithTags puts tags into the field.
func WithTags(tags ...*Tag) Option {
	return func(e *Engine) {
		e.tags = append(e.tags, tags...)
	}
}

// WithTransport selects the front-end probe used by Initialize.
func WithTransport(t Transport) Option {
	return func(e *Engine) {
		e.transport = t
	}
}

// WithExchangeLatency sets how many worker ticks a transceive stays in
// progress before it completes.
func WithExchangeLatency(polls int) Option {
	return func(e *Engine) {
		e.latency = max(polls, 0)
	}
}

// WithResponder replaces the default tag behaviour during data exchange.
func WithResponder(fn Responder) Option {
	return func(e *Engine) {
		e.responder = fn
	}
}

// Engine is the simulated protocol engine. Like any engine it is not safe for
// concurrent use.
type Engine struct {
	responder    Responder
	faults       map[Op]engine.ReturnCode
	tags         []*Tag
	found        []engine.Device
	foundTags    []*Tag
	tx           []byte
	rx           []byte
	params       engine.DiscoverParams
	state        engine.State
	transport    Transport
	reported     int
	active       int
	latency      int
	busy         int
	ticks        int
	result       engine.ReturnCode
	fwtTimer     uint32
	discoverEnd  uint32
	formatOption uint32
	fwtArmed     bool
	ready        bool
	exchanged    bool
}

// New returns an engine with an empty field unless tags are given.
func New(opts ...Option) *Engine {
	e := &Engine{
		faults:    make(map[Op]engine.ReturnCode),
		responder: DefaultResponder,
		reported:  -1,
		active:    -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddTag puts tag into the field.
func (e *Engine) AddTag(tag *Tag) {
	e.tags = append(e.tags, tag)
}

// Tags returns the tags in the field.
func (e *Engine) Tags() []*Tag {
	return e.tags
}

// FailNext makes the next call of op return rc. OpExchange fails the next
// transceive when it completes rather than when it starts.
func (e *Engine) FailNext(op Op, rc engine.ReturnCode) {
	e.faults[op] = rc
}

// SetReportedCount overrides the device count DevicesFound reports; a
// negative value reports the real count again.
func (e *Engine) SetReportedCount(n int) {
	e.reported = n
}

// Ticks returns how many times Worker ran.
func (e *Engine) Ticks() int {
	return e.ticks
}

// LastFormatOption returns the option passed to the last NDEFTagFormat.
func (e *Engine) LastFormatOption() uint32 {
	return e.formatOption
}

// fault consumes an injected failure of op.
func (e *Engine) fault(op Op) (engine.ReturnCode, bool) {
	rc, ok := e.faults[op]
	if !ok {
		return engine.RCNone, false
	}
	delete(e.faults, op)
	e.raise()
	return rc, true
}

// raise reports an error at the caller's location.
func (*Engine) raise() {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "sim", 0
	}
	platform.HandleError(file, line)
}

func (e *Engine) setState(s engine.State) {
	if e.state == s {
		return
	}
	e.state = s
	platform.Log("sim: state", uint(s))
}

// Initialize probes the front-end through the installed transport.
func (e *Engine) Initialize() engine.ReturnCode {
	if rc, failed := e.fault(OpInitialize); failed {
		return rc
	}
	if !e.probe() {
		platform.Log("sim: front-end did not echo", echoCommand)
		e.raise()
		return engine.RCIO
	}
	e.ready = true
	return engine.RCNone
}

func (e *Engine) probe() bool {
	if e.transport == TransportSPI {
		rx := []byte{0}
		platform.SPISelect()
		platform.SPITxRx([]byte{echoCommand}, rx)
		platform.SPIDeselect()
		return rx[0] == echoCommand
	}

	platform.IRQInPulseLow()
	platform.SPIReset()
	platform.SPISendCommand(echoCommand, nil, false)
	return platform.SPIReadEcho()
}

// NFCInitialize moves a probed engine to idle.
func (e *Engine) NFCInitialize() engine.ReturnCode {
	if rc, failed := e.fault(OpNFCInitialize); failed {
		return rc
	}
	if !e.ready {
		return engine.RCWrongState
	}
	e.clearSession()
	e.setState(engine.StateIdle)
	return engine.RCNone
}

// Deinitialize drops the session and the probe result.
func (e *Engine) Deinitialize() engine.ReturnCode {
	if rc, failed := e.fault(OpDeinitialize); failed {
		return rc
	}
	e.clearSession()
	e.ready = false
	e.setState(engine.StateNotInit)
	return engine.RCNone
}

func (e *Engine) clearSession() {
	e.found = nil
	e.foundTags = nil
	e.active = -1
	e.clearExchange()
}

func (e *Engine) clearExchange() {
	e.tx = nil
	e.rx = nil
	e.busy = 0
	e.fwtArmed = false
	e.exchanged = false
	e.result = engine.RCNone
}

// State reports the session state.
func (e *Engine) State() engine.State {
	return e.state
}

// Discover validates params and starts a discovery cycle.
func (e *Engine) Discover(params *engine.DiscoverParams) engine.ReturnCode {
	if rc, failed := e.fault(OpDiscover); failed {
		return rc
	}
	if e.state != engine.StateIdle {
		return engine.RCWrongState
	}
	if params == nil || params.DevLimit == 0 || params.TechsToFind == engine.TechNone {
		return engine.RCParam
	}
	if params.TechsToBail&^params.TechsToFind != 0 {
		return engine.RCParam
	}
	if params.TechsToFind&engine.TechListenA != 0 {
		switch params.ListenA.NFCIDLen {
		case engine.NFCIDLen4, engine.NFCIDLen7, engine.NFCIDLen10:
		default:
			return engine.RCParam
		}
	}

	e.params = *params
	e.clearSession()
	e.startCycle()
	return engine.RCNone
}

func (e *Engine) startCycle() {
	e.discoverEnd = platform.TimerCreate(uint32(e.params.TotalDuration))
	e.setState(engine.StateStartDiscovery)
}

// Worker advances the state machine by one step.
func (e *Engine) Worker() {
	e.ticks++
	switch e.state {
	case engine.StateStartDiscovery:
		if e.params.WakeUpEnabled {
			e.setState(engine.StateWakeUpMode)
			return
		}
		e.setState(engine.StatePollTechDetect)
	case engine.StateWakeUpMode:
		if len(e.inField()) > 0 {
			e.setState(engine.StatePollTechDetect)
		}
	case engine.StatePollTechDetect:
		if len(e.inField()) > 0 {
			e.setState(engine.StatePollColAvoidance)
			return
		}
		if platform.TimerIsExpired(e.discoverEnd) {
			e.startCycle()
		}
	case engine.StatePollColAvoidance:
		e.resolve()
	case engine.StatePollActivation:
		e.activate()
	case engine.StateDataExchange:
		e.advanceExchange()
	default:
	}
}

// inField returns the tags that answer the configured technologies.
func (e *Engine) inField() []*Tag {
	var tags []*Tag
	for _, t := range e.tags {
		if t.Present && !t.Asleep && t.tech()&e.params.TechsToFind != 0 {
			tags = append(tags, t)
		}
	}
	return tags
}

// resolve runs collision resolution over the tags in the field.
func (e *Engine) resolve() {
	tags := e.inField()
	if len(tags) == 0 {
		e.setState(engine.StatePollTechDetect)
		return
	}

	e.found = e.found[:0]
	e.foundTags = e.foundTags[:0]
	for _, t := range tags {
		if len(e.found) >= int(e.params.DevLimit) {
			break
		}
		e.found = append(e.found, t.record())
		e.foundTags = append(e.foundTags, t)
		if t.tech()&e.params.TechsToBail != 0 {
			break
		}
	}
	platform.Log("sim: devices found", uint(len(e.found)))

	if len(e.found) > 1 {
		e.setState(engine.StatePollSelect)
		return
	}
	e.active = 0
	e.setState(engine.StatePollActivation)
}

func (e *Engine) activate() {
	if e.active < 0 || e.active >= len(e.foundTags) || !e.foundTags[e.active].Present {
		e.active = -1
		e.setState(engine.StatePollTechDetect)
		return
	}
	e.setState(engine.StateActivated)
}

// DevicesFound returns the engine-owned device list.
func (e *Engine) DevicesFound() ([]engine.Device, uint8, engine.ReturnCode) {
	if !e.state.HasDevices() {
		return nil, 0, engine.RCWrongState
	}
	n := len(e.found)
	if e.reported >= 0 {
		n = e.reported
	}
	return e.found, uint8(min(n, 0xFF)), engine.RCNone //nolint:gosec // clamped
}

// Select activates the device at index while the engine waits for a choice.
func (e *Engine) Select(index uint8) engine.ReturnCode {
	if rc, failed := e.fault(OpSelect); failed {
		return rc
	}
	if e.state != engine.StatePollSelect {
		return engine.RCWrongState
	}
	if int(index) >= len(e.found) {
		return engine.RCParam
	}
	e.active = int(index)
	e.setState(engine.StatePollActivation)
	return engine.RCNone
}

// ActiveDevice returns the engine-owned record of the active device.
func (e *Engine) ActiveDevice() (*engine.Device, engine.ReturnCode) {
	if !e.state.IsActivated() || e.active < 0 {
		return nil, engine.RCWrongState
	}
	return &e.found[e.active], engine.RCNone
}

func (e *Engine) activeTag() *Tag {
	if !e.state.IsActivated() || e.active < 0 || e.active >= len(e.foundTags) {
		return nil
	}
	return e.foundTags[e.active]
}

// Deactivate ends the current activation. Sleep puts the active tag to sleep
// and returns to selection; discovery restarts the cycle with the last
// parameters.
func (e *Engine) Deactivate(kind engine.DeactivateType) engine.ReturnCode {
	if rc, failed := e.fault(OpDeactivate); failed {
		return rc
	}
	if e.state == engine.StateNotInit {
		return engine.RCWrongState
	}

	tag := e.activeTag()
	e.clearExchange()
	e.active = -1

	switch kind {
	case engine.DeactivateSleep:
		if tag != nil {
			tag.Asleep = true
			markAsleep(&e.found[e.indexOf(tag)])
		}
		if len(e.found) > 0 {
			e.setState(engine.StatePollSelect)
			return engine.RCNone
		}
		e.setState(engine.StateIdle)
	case engine.DeactivateDiscovery:
		e.found = nil
		e.foundTags = nil
		e.startCycle()
	default:
		e.found = nil
		e.foundTags = nil
		e.setState(engine.StateIdle)
	}
	return engine.RCNone
}

func markAsleep(dev *engine.Device) {
	switch dev.Type {
	case engine.DevTypeListenNFCA:
		dev.NFCA.IsSleep = true
	case engine.DevTypeListenNFCB:
		dev.NFCB.IsSleep = true
	case engine.DevTypeListenNFCV:
		dev.NFCV.IsSleep = true
	case engine.DevTypeListenST25TB:
		dev.ST25TB.IsDeselected = true
	default:
	}
}

func (e *Engine) indexOf(tag *Tag) int {
	for i, t := range e.foundTags {
		if t == tag {
			return i
		}
	}
	return 0
}

// ExchangeStart queues tx for the active device.
func (e *Engine) ExchangeStart(tx []byte, fwt uint32) engine.ReturnCode {
	if rc, failed := e.fault(OpExchangeStart); failed {
		return rc
	}
	if e.state != engine.StateActivated && e.state != engine.StateDataExchangeDone {
		return engine.RCWrongState
	}
	if len(tx) > maxFrameLen {
		return engine.RCParam
	}

	e.clearExchange()
	e.tx = append([]byte(nil), tx...)
	e.busy = e.latency
	e.exchanged = true
	if fwt != engine.FWTNone {
		e.fwtTimer = platform.TimerCreate(fwt/fcPerMs + 1)
		e.fwtArmed = true
	}
	e.setState(engine.StateDataExchange)
	return engine.RCNone
}

func (e *Engine) advanceExchange() {
	tag := e.activeTag()
	switch {
	case tag == nil || !tag.Present:
		// Nothing answers; the frame wait time decides when to give up.
		if !e.fwtArmed || !platform.TimerIsExpired(e.fwtTimer) {
			return
		}
		e.finishExchange(nil, engine.RCTimeout)
	case e.busy > 0:
		e.busy--
	default:
		if rc, failed := e.fault(OpExchange); failed {
			e.finishExchange(nil, rc)
			return
		}
		resp, rc := e.responder(tag, e.tx)
		e.finishExchange(resp, rc)
	}
}

func (e *Engine) finishExchange(resp []byte, rc engine.ReturnCode) {
	e.rx = resp
	e.result = rc
	e.fwtArmed = false
	e.setState(engine.StateDataExchangeDone)
}

// ExchangeStatus reports the pending transceive.
func (e *Engine) ExchangeStatus() engine.ReturnCode {
	switch {
	case !e.exchanged:
		return engine.RCWrongState
	case e.state == engine.StateDataExchange:
		return engine.RCBusy
	case e.state == engine.StateDataExchangeDone:
		return e.result
	default:
		return engine.RCLinkLoss
	}
}

// ExchangeData returns the engine-owned response of the last transceive.
func (e *Engine) ExchangeData() []byte {
	return e.rx
}

// DefaultResponder answers Type 2 READ commands from the tag memory and
// echoes every other frame.
func DefaultResponder(tag *Tag, tx []byte) ([]byte, engine.ReturnCode) {
	if tag.Kind == KindT2T && len(tx) == 2 && tx[0] == 0x30 {
		img := tag.image()
		resp := make([]byte, 16)
		for i := range resp {
			resp[i] = img[(int(tx[1])*4+i)%len(img)]
		}
		return resp, engine.RCNone
	}
	return append([]byte(nil), tx...), engine.RCNone
}
