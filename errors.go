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
)

// Driver errors raised before the engine is called.
var (
	ErrNotInitialized        = errors.New("not initialized")
	ErrDeviceIndexOutOfRange = errors.New("device index out of range")
	ErrNoActiveDevice        = errors.New("no active device")
	ErrExchangeNotStarted    = errors.New("data exchange not started")
	ErrRxBufferTooSmall      = errors.New("receive buffer too small")
	ErrReaderClosed          = errors.New("reader is closed")
	ErrDiscoveryNotRunning   = errors.New("discovery not running")
	ErrInvalidOption         = errors.New("invalid option")
)

// Front-end transport errors. The trampoline logs these instead of returning
// them to the engine; they surface directly only to code driving a transport.
var (
	ErrTransportTimeout  = errors.New("transport timeout")
	ErrTransportClosed   = errors.New("transport is closed")
	ErrTransportNotReady = errors.New("transport not ready")
	ErrFrameCorrupted    = errors.New("frame corrupted")
)

// TransportError wraps a front-end transport failure with the operation and
// the port it happened on.
type TransportError struct {
	Err  error
	Op   string
	Port string
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError tags err with the transport operation and port.
func NewTransportError(op, port string, err error) *TransportError {
	return &TransportError{Op: op, Port: port, Err: err}
}

// ErrorCode is a non-zero status code reported by the protocol engine. The
// named codes form a closed set; any other value is kept as-is and reported
// as unknown.
type ErrorCode uint16

// Engine status codes. 39 and 41..47 are reserved by the engine.
const (
	ErrNoMem          ErrorCode = 1
	ErrBusy           ErrorCode = 2
	ErrIO             ErrorCode = 3
	ErrTimeout        ErrorCode = 4
	ErrRequest        ErrorCode = 5
	ErrNoMsg          ErrorCode = 6
	ErrParam          ErrorCode = 7
	ErrSystem         ErrorCode = 8
	ErrFraming        ErrorCode = 9
	ErrOverrun        ErrorCode = 10
	ErrProto          ErrorCode = 11
	ErrInternal       ErrorCode = 12
	ErrAgain          ErrorCode = 13
	ErrMemCorrupt     ErrorCode = 14
	ErrNotImplemented ErrorCode = 15
	ErrPCCorrupt      ErrorCode = 16
	ErrSend           ErrorCode = 17
	ErrIgnore         ErrorCode = 18
	ErrSemantic       ErrorCode = 19
	ErrSyntax         ErrorCode = 20
	ErrCRC            ErrorCode = 21
	ErrNotFound       ErrorCode = 22
	ErrNotUnique      ErrorCode = 23
	ErrNotSupported   ErrorCode = 24
	ErrWrite          ErrorCode = 25
	ErrFIFO           ErrorCode = 26
	ErrParity         ErrorCode = 27
	ErrDone           ErrorCode = 28
	ErrRFCollision    ErrorCode = 29
	ErrHWOverrun      ErrorCode = 30
	ErrReleaseReq     ErrorCode = 31
	ErrSleepReq       ErrorCode = 32
	ErrWrongState     ErrorCode = 33
	ErrMaxReruns      ErrorCode = 34
	ErrDisabled       ErrorCode = 35
	ErrHWMismatch     ErrorCode = 36
	ErrLinkLoss       ErrorCode = 37
	ErrInvalidHandle  ErrorCode = 38
	ErrIncompleteByte ErrorCode = 40
)

// Kind groups error codes by what went wrong.
type Kind int

const (
	KindUnknown Kind = iota
	KindResource
	KindIO
	KindTiming
	KindProtocol
	KindCollision
	KindState
	KindContent
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindResource:
		return "resource"
	case KindIO:
		return "io"
	case KindTiming:
		return "timing"
	case KindProtocol:
		return "protocol"
	case KindCollision:
		return "collision"
	case KindState:
		return "state"
	case KindContent:
		return "content"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

type codeInfo struct {
	meaning string
	kind    Kind
}

var codeTable = map[ErrorCode]codeInfo{
	ErrNoMem:          {"not enough memory", KindResource},
	ErrBusy:           {"device or resource busy", KindResource},
	ErrIO:             {"generic IO error", KindIO},
	ErrTimeout:        {"timeout", KindTiming},
	ErrRequest:        {"invalid request", KindState},
	ErrNoMsg:          {"no message of desired type", KindState},
	ErrParam:          {"parameter error", KindState},
	ErrSystem:         {"system error", KindResource},
	ErrFraming:        {"framing error", KindProtocol},
	ErrOverrun:        {"lost received bytes", KindIO},
	ErrProto:          {"protocol error", KindProtocol},
	ErrInternal:       {"internal error", KindResource},
	ErrAgain:          {"call again", KindTiming},
	ErrMemCorrupt:     {"memory corruption", KindResource},
	ErrNotImplemented: {"not implemented", KindState},
	ErrPCCorrupt:      {"program counter corrupted", KindResource},
	ErrSend:           {"error sending", KindIO},
	ErrIgnore:         {"error to be ignored", KindState},
	ErrSemantic:       {"unexpected command", KindState},
	ErrSyntax:         {"unknown command", KindState},
	ErrCRC:            {"CRC error", KindProtocol},
	ErrNotFound:       {"transponder not found", KindContent},
	ErrNotUnique:      {"transponder not unique", KindContent},
	ErrNotSupported:   {"operation not supported", KindContent},
	ErrWrite:          {"write error", KindIO},
	ErrFIFO:           {"FIFO over or underflow", KindIO},
	ErrParity:         {"parity error", KindProtocol},
	ErrDone:           {"transfer already finished", KindState},
	ErrRFCollision:    {"RF collision", KindCollision},
	ErrHWOverrun:      {"hardware overrun", KindIO},
	ErrReleaseReq:     {"device requested release", KindLink},
	ErrSleepReq:       {"device requested sleep", KindLink},
	ErrWrongState:     {"wrong state for operation", KindState},
	ErrMaxReruns:      {"maximum reruns reached", KindTiming},
	ErrDisabled:       {"disabled by configuration", KindState},
	ErrHWMismatch:     {"hardware mismatch", KindIO},
	ErrLinkLoss:       {"link loss", KindLink},
	ErrInvalidHandle:  {"invalid device handle", KindLink},
	ErrIncompleteByte: {"incomplete byte received", KindProtocol},
}

func (c ErrorCode) Error() string {
	if info, ok := codeTable[c]; ok {
		return info.meaning
	}
	return fmt.Sprintf("unknown engine error %d", uint16(c))
}

// Known reports whether c is one of the named codes.
func (c ErrorCode) Known() bool {
	_, ok := codeTable[c]
	return ok
}

// Kind returns the category of c, KindUnknown for unnamed codes.
func (c ErrorCode) Kind() Kind {
	return codeTable[c].kind
}

// Translate maps an engine return code to an error. It returns nil for
// success and an ErrorCode, named or not, for anything else.
func Translate(rc engine.ReturnCode) error {
	if rc == engine.RCNone {
		return nil
	}
	return ErrorCode(rc)
}

// EngineError is a failed engine call.
type EngineError struct {
	Op   string
	Code ErrorCode
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v (%d)", e.Op, e.Code, uint16(e.Code))
}

func (e *EngineError) Unwrap() error {
	return e.Code
}

// check funnels an engine return code through Translate and tags failures
// with the operation that produced them.
func check(op string, rc engine.ReturnCode) error {
	if rc == engine.RCNone {
		return nil
	}
	return &EngineError{Op: op, Code: ErrorCode(rc)}
}

// CodeOf extracts the engine error code from err.
func CodeOf(err error) (ErrorCode, bool) {
	var code ErrorCode
	if errors.As(err, &code) {
		return code, true
	}
	return 0, false
}

// IsInProgress reports whether err means an operation has not finished yet.
func IsInProgress(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsTransient reports whether the failed operation is worth retrying:
// RF noise, timing and bus faults rather than state or content problems.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrCRC),
		errors.Is(err, ErrFraming),
		errors.Is(err, ErrParity),
		errors.Is(err, ErrIncompleteByte),
		errors.Is(err, ErrRFCollision),
		errors.Is(err, ErrAgain),
		errors.Is(err, ErrIO),
		errors.Is(err, ErrSend),
		errors.Is(err, ErrOverrun),
		errors.Is(err, ErrHWOverrun),
		errors.Is(err, ErrFIFO),
		errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrFrameCorrupted):
		return true
	default:
		return false
	}
}

// IsLinkLost reports whether the active device is gone and the session has to
// go back to discovery.
func IsLinkLost(err error) bool {
	code, ok := CodeOf(err)
	return ok && code.Kind() == KindLink
}

// IsNotInitialized reports whether err is the driver's precondition failure.
func IsNotInitialized(err error) bool {
	return errors.Is(err, ErrNotInitialized)
}
