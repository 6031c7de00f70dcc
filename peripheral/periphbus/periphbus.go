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

// Package periphbus drives a periph.io i2c.Bus through the twi capability
// interface, so the transaction engine can run on Linux /dev/i2c-* buses,
// FTDI bridges and anything else periph.io supports.
//
// A periph.io bus moves whole transfers, not single bytes. The adapter
// therefore buffers the write phase and flushes it with one Tx at the
// repeated start or the stop, and reads one byte per Tx. Address and data
// bytes of the write phase are acknowledged optimistically; a failed flush
// is reported through twi.FaultReporter and surfaces as a nack of the
// composite that issued the stop. A write phase without data bytes is sent
// as a one-byte read so that probes reach the slave. Reads past the first
// byte start a new read transfer, so the slave must keep its register
// pointer between transfers.
package periphbus

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	twi "github.com/ZaparooProject/go-twi"
)

// Adapter is a twi.Peripheral backed by an i2c.Bus.
type Adapter struct {
	bus     i2c.Bus
	log     *zap.Logger
	fault   error
	wbuf    []byte
	sysclk  physic.Frequency
	mu      sync.Mutex
	addr    uint16
	state   twi.BusState
	dir     twi.Direction
	data    byte
	wif     bool
	rif     bool
	nack    bool
	pending bool
}

var (
	_ twi.Peripheral    = (*Adapter)(nil)
	_ twi.FaultReporter = (*Adapter)(nil)
	_ twi.StateForcer   = (*Adapter)(nil)
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// WithSystemClock sets the clock the engine's baud divider refers to, so
// Configure can turn it back into a bus speed.
func WithSystemClock(f physic.Frequency) Option {
	return func(a *Adapter) {
		if f > 0 {
			a.sysclk = f
		}
	}
}

// New wraps bus.
func New(bus i2c.Bus, opts ...Option) *Adapter {
	a := &Adapter{
		bus:    bus,
		log:    zap.NewNop(),
		sysclk: twi.DefaultConfig().SystemClock,
		state:  twi.BusIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// String returns the name of the underlying bus.
func (a *Adapter) String() string {
	return a.bus.String()
}

// WriteAddress implements twi.Peripheral.
func (a *Adapter) WriteAddress(b byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := uint16(b >> 1)
	dir := twi.Direction(b & 1)
	a.wif, a.rif, a.nack = false, false, false
	a.state = twi.BusOwner

	if dir == twi.Write {
		// a write after a write: the first one completes now
		a.flushLocked()
		a.addr, a.dir, a.pending = addr, dir, true
		a.wbuf = a.wbuf[:0]
		a.wif = true
		return
	}

	var w []byte
	if a.pending && a.addr == addr {
		w = a.wbuf
	} else {
		a.flushLocked()
	}
	a.addr, a.dir, a.pending = addr, dir, false

	var r [1]byte
	if err := a.bus.Tx(addr, w, r[:]); err != nil {
		// like the hardware, a refused read address raises the write flag
		a.log.Debug("read transfer failed", zap.Uint16("addr", addr), zap.Error(err))
		a.wif, a.nack = true, true
		return
	}
	a.data, a.rif = r[0], true
}

// WriteData implements twi.Peripheral.
func (a *Adapter) WriteData(b byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.wif, a.rif, a.nack = false, false, false
	if !a.pending {
		a.wif, a.nack = true, true
		return
	}
	a.wbuf = append(a.wbuf, b)
	a.wif = true
}

// ReadData implements twi.Peripheral.
func (a *Adapter) ReadData() byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.data
}

// Status implements twi.Peripheral.
func (a *Adapter) Status() twi.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return twi.Status{
		WriteComplete: a.wif,
		ReadComplete:  a.rif,
		Nack:          a.nack,
		State:         a.state,
	}
}

// Command implements twi.Peripheral.
func (a *Adapter) Command(c twi.Command) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch c {
	case twi.CmdStop, twi.CmdNackStop:
		a.flushLocked()
		a.wif, a.rif, a.nack = false, false, false
		a.state = twi.BusIdle
	case twi.CmdContinue:
		if a.state != twi.BusOwner || a.dir != twi.Read {
			return
		}
		a.rif = false
		var r [1]byte
		if err := a.bus.Tx(a.addr, nil, r[:]); err != nil {
			a.fault = fmt.Errorf("read from 0x%02X on %s: %w", a.addr, a.bus, err)
			return
		}
		a.data, a.rif = r[0], true
	case twi.CmdNone:
	}
}

// flushLocked sends a buffered write phase. An address-only write, as sent
// by a probe, becomes a one-byte read: i2c-dev drivers complete an empty
// transfer without touching the bus.
func (a *Adapter) flushLocked() {
	if !a.pending {
		return
	}
	a.pending = false
	defer func() { a.wbuf = a.wbuf[:0] }()

	if len(a.wbuf) == 0 {
		var r [1]byte
		if err := a.bus.Tx(a.addr, nil, r[:]); err != nil {
			a.fault = fmt.Errorf("address 0x%02X on %s: %w", a.addr, a.bus, err)
		}
		return
	}
	if err := a.bus.Tx(a.addr, a.wbuf, nil); err != nil {
		a.fault = fmt.Errorf("write %d bytes to 0x%02X on %s: %w", len(a.wbuf), a.addr, a.bus, err)
	}
}

// Configure implements twi.Peripheral. The baud divider is turned back into
// a speed for i2c.Bus.SetSpeed; buses that cannot change speed keep theirs.
func (a *Adapter) Configure(c twi.PeripheralConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()

	speed := a.sysclk / physic.Frequency(2*(int64(c.Baud)+5))
	if err := a.bus.SetSpeed(speed); err != nil {
		a.log.Debug("bus speed unchanged",
			zap.Stringer("bus", a.bus),
			zap.Stringer("speed", speed),
			zap.Error(err))
	}
	a.state = twi.BusIdle
}

// Enable implements twi.Peripheral.
func (*Adapter) Enable() {}

// Disable implements twi.Peripheral. A buffered write phase is dropped.
func (a *Adapter) Disable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = false
	a.wbuf = a.wbuf[:0]
	a.state = twi.BusUnknown
}

// ForceState implements twi.StateForcer.
func (a *Adapter) ForceState(s twi.BusState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// Fault implements twi.FaultReporter.
func (a *Adapter) Fault() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.fault
	a.fault = nil
	return err
}
