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

// Package xmega drives the master block of the AVR XMEGA TWI module and of
// the tinyAVR/megaAVR 0- and 1-series TWI0, which share the status and
// command encoding but place the registers differently.
package xmega

import "sync"

// Registers is 8-bit access to one TWI module, addressed by offset from the
// module base.
type Registers interface {
	Load(off uintptr) uint8
	Store(off uintptr, v uint8)
}

// Layout places the master registers of one TWI variant.
type Layout struct {
	Name string
	// Enable is the register holding the ENABLE bit.
	Enable    uintptr
	EnableBit uint8
	// Timeout is the register holding the 2-bit inactive timeout at
	// TimeoutShift.
	Timeout      uintptr
	TimeoutShift uint8
	// Command holds ACKACT and the 2-bit command field.
	Command uintptr
	Status  uintptr
	Baud    uintptr
	Addr    uintptr
	Data    uintptr
	// TimeoutShared is set when Timeout shares its register with other
	// settings and must be updated read-modify-write.
	TimeoutShared bool
}

// XMEGA is the TWIx.MASTER block of the ATxmega families, one byte past
// the module's CTRL register.
var XMEGA = Layout{
	Name:         "xmega",
	Enable:       0x01, // MASTER.CTRLA
	EnableBit:    1 << 3,
	Timeout:      0x02, // MASTER.CTRLB
	TimeoutShift: 2,
	Command:      0x03, // MASTER.CTRLC
	Status:       0x04,
	Baud:         0x05,
	Addr:         0x06,
	Data:         0x07,
}

// TinyAVR is TWI0 of the tinyAVR and megaAVR 0/1-series.
var TinyAVR = Layout{
	Name:          "tinyavr",
	Enable:        0x03, // MCTRLA
	EnableBit:     1 << 0,
	Timeout:       0x03, // MCTRLA
	TimeoutShift:  2,
	TimeoutShared: true,
	Command:       0x04, // MCTRLB
	Status:        0x05, // MSTATUS
	Baud:          0x06, // MBAUD
	Addr:          0x07, // MADDR
	Data:          0x08, // MDATA
}

// Status register bits, common to both layouts.
const (
	StatusRIF      = 1 << 7
	StatusWIF      = 1 << 6
	StatusClkHold  = 1 << 5
	StatusRXAck    = 1 << 4
	StatusArbLost  = 1 << 3
	StatusBusErr   = 1 << 2
	StatusBusState = 0x03
)

// Command register bits.
const (
	CmdAckAct    = 1 << 2
	CmdNoAct     = 0x00
	CmdRepStart  = 0x01
	CmdRecvTrans = 0x02
	CmdStop      = 0x03
)

// Module base addresses in the data space.
const (
	TWIC uintptr = 0x0480
	TWID uintptr = 0x0490
	TWIE uintptr = 0x04A0
	TWIF uintptr = 0x04B0
	// TWI0 of the tinyAVR 1-series; megaAVR 0-series parts map it at 0x08A0.
	TWI0 uintptr = 0x0810
)

// Memory is a plain register file. Stores land as written; it has none of
// the hardware's side effects.
type Memory struct {
	regs [16]uint8
	mu   sync.Mutex
}

// Load implements Registers.
func (m *Memory) Load(off uintptr) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[off]
}

// Store implements Registers.
func (m *Memory) Store(off uintptr, v uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[off] = v
}
