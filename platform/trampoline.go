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

// Entry points called by the protocol engine. They run synchronously on the
// engine caller's goroutine and must never call back into the engine.
//
// Transport faults have nowhere to go on the engine side, so they are reported
// through Diagnostics.Log and the call returns a zero result.

// DelayMs blocks for ms milliseconds.
func DelayMs(ms uint32) {
	table().Clock.DelayMs(ms)
}

// TicksMs returns the free-running millisecond tick counter.
func TicksMs() uint32 {
	return table().Clock.TicksMs()
}

// TimerCreate returns a timer that expires t milliseconds from now.
func TimerCreate(t uint32) uint32 {
	return TicksMs() + t
}

// TimerIsExpired reports whether the tick counter has reached timer. The
// comparison survives the counter wrapping as long as timers stay under
// 2^31 ms.
func TimerIsExpired(timer uint32) bool {
	return int32(TicksMs()-timer) >= 0 //nolint:gosec // wrap-around difference
}

// HandleError reports an engine error raised at file:line.
func HandleError(file string, line int) {
	table().Diagnostics.HandleError(file, line)
}

// Log forwards an engine log line with its value.
func Log(msg string, value uint) {
	table().Diagnostics.Log(msg, value)
}

func spiBus() SPIBus {
	t := table()
	if t.SPI == nil {
		panic("platform: table has no SPI bus")
	}
	return t.SPI
}

// SPISelect asserts chip select.
func SPISelect() {
	spiBus().Select()
}

// SPIDeselect releases chip select.
func SPIDeselect() {
	spiBus().Deselect()
}

// SPITxRx performs one full-duplex exchange of len(rx) bytes.
func SPITxRx(tx, rx []byte) {
	if err := spiBus().TxRx(tx, rx); err != nil {
		clear(rx)
		reportFault("spi txrx: "+err.Error(), uint(len(rx)))
	}
}

func commandBus() CommandBus {
	t := table()
	if t.Command == nil {
		panic("platform: table has no command bus")
	}
	return t.Command
}

// SPIPollSend reports whether the front-end accepts a command.
func SPIPollSend() bool {
	return commandBus().PollSend()
}

// SPIReset resets the front-end command interface.
func SPIReset() {
	if err := commandBus().Reset(); err != nil {
		reportFault("command reset: "+err.Error(), 0)
	}
}

// SPISendCommand writes one command frame.
func SPISendCommand(cmd byte, data []byte, sod bool) {
	if err := commandBus().SendCommand(cmd, data, sod); err != nil {
		reportFault("command send: "+err.Error(), uint(cmd))
	}
}

// SPIRead reads one response frame into data, storing the result code in
// code and returning the announced payload length.
func SPIRead(code *byte, data []byte) uint16 {
	c, n, err := commandBus().Read(data)
	if err != nil {
		reportFault("command read: "+err.Error(), uint(len(data)))
		*code = 0
		return 0
	}
	*code = c
	return n
}

// SPIReadEcho reports whether the front-end answered an echo command.
func SPIReadEcho() bool {
	return commandBus().ReadEcho()
}

// SPIFlush discards any pending response bytes.
func SPIFlush() {
	if err := commandBus().Flush(); err != nil {
		reportFault("command flush: "+err.Error(), 0)
	}
}

func gpio() GPIO {
	t := table()
	if t.GPIO == nil {
		panic("platform: table has no GPIO")
	}
	return t.GPIO
}

// GPIOSet drives port/pin.
func GPIOSet(port, pin uint32, high bool) {
	gpio().Set(port, pin, high)
}

// GPIOGet samples port/pin.
func GPIOGet(port, pin uint32) bool {
	return gpio().Get(port, pin)
}

// GPIOToggle inverts port/pin.
func GPIOToggle(port, pin uint32) {
	g := gpio()
	g.Set(port, pin, !g.Get(port, pin))
}

// IRQOutPort returns the port of the front-end's IRQ_OUT line.
func IRQOutPort() uint32 { return table().Pins.IRQOutPort }

// IRQOutPin returns the pin of the front-end's IRQ_OUT line.
func IRQOutPin() uint32 { return table().Pins.IRQOutPin }

// IRQInPort returns the port of the front-end's IRQ_IN line.
func IRQInPort() uint32 { return table().Pins.IRQInPort }

// IRQInPin returns the pin of the front-end's IRQ_IN line.
func IRQInPin() uint32 { return table().Pins.IRQInPin }

func irq() IRQ {
	t := table()
	if t.IRQ == nil {
		panic("platform: table has no IRQ lines")
	}
	return t.IRQ
}

// IRQInPulseLow pulses IRQ_IN low.
func IRQInPulseLow() {
	irq().PulseInLow()
}

// WaitIRQOutFallingEdge waits up to timeoutMs for IRQ_OUT to fall.
func WaitIRQOutFallingEdge(timeoutMs uint32) bool {
	return irq().WaitOutFallingEdge(timeoutMs)
}

func reportFault(msg string, value uint) {
	table().Diagnostics.Log(msg, value)
}
