// go-twi
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-twi.
//
// go-twi is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-twi is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-twi; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package twi

import "time"

// Peripheral is the register-level capability set of one TWI master block.
// Implementations are the only code that knows the register layout; the
// engine drives them strictly in protocol order and never concurrently.
type Peripheral interface {
	// WriteAddress loads the address register, which starts (or restarts)
	// a transaction with the composed address byte.
	WriteAddress(b byte)

	// WriteData loads the data register, which shifts out one data byte.
	WriteData(b byte)

	// ReadData returns the last received byte.
	ReadData() byte

	// Status returns a fresh status snapshot.
	Status() Status

	// Command issues a bus command.
	Command(c Command)

	// Configure sets the baud divider, acknowledge polarity and inactive
	// timeout. The bus state is forced to idle when the timeout is disabled
	// and to unknown otherwise.
	Configure(c PeripheralConfig)

	// Enable turns the master block on.
	Enable()

	// Disable turns the master block off.
	Disable()
}

// PeripheralConfig is the raw configuration handed to a Peripheral.
type PeripheralConfig struct {
	Baud    uint8
	Ack     AckPolicy
	Timeout InactiveTimeout
}

// PollTimer translates wall-clock timeouts into poll counts. Peripherals
// that implement it control how long the engine waits for a flag.
type PollTimer interface {
	// Polls returns how many status polls fit in timeout.
	Polls(timeout time.Duration) int

	// Pause waits one poll interval.
	Pause()
}

// StateForcer is implemented by peripherals that allow software to
// overwrite the bus state, e.g. to recover from an unknown state.
type StateForcer interface {
	ForceState(s BusState)
}

// FaultReporter is implemented by peripherals that reach the hardware over
// a link that can fail. Fault returns the last link error, if any, and
// clears it.
type FaultReporter interface {
	Fault() error
}

// SpinTimer is the default PollTimer: one poll per Interval, paused by
// spinning on the monotonic clock like a calibrated delay loop.
type SpinTimer struct {
	Interval time.Duration
}

// DefaultPollInterval matches a one-microsecond delay loop.
const DefaultPollInterval = time.Microsecond

// Polls implements PollTimer.
func (t SpinTimer) Polls(timeout time.Duration) int {
	iv := t.interval()
	if timeout <= 0 {
		return 1
	}
	n := int((timeout + iv - 1) / iv)
	if n < 1 {
		n = 1
	}
	return n
}

// Pause implements PollTimer.
func (t SpinTimer) Pause() {
	deadline := time.Now().Add(t.interval())
	for time.Now().Before(deadline) {
	}
}

func (t SpinTimer) interval() time.Duration {
	if t.Interval <= 0 {
		return DefaultPollInterval
	}
	return t.Interval
}
