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

package xmega

import (
	twi "github.com/ZaparooProject/go-twi"
)

// Master implements twi.Peripheral and twi.StateForcer on the registers of
// one TWI module.
type Master struct {
	regs    Registers
	layout  Layout
	cfg     twi.PeripheralConfig
	enabled bool
}

var (
	_ twi.Peripheral  = (*Master)(nil)
	_ twi.StateForcer = (*Master)(nil)
)

// New returns the master block of the module behind regs.
func New(regs Registers, layout Layout) *Master {
	return &Master{regs: regs, layout: layout}
}

// Layout returns the register layout in use.
func (m *Master) Layout() Layout {
	return m.layout
}

// WriteAddress implements twi.Peripheral.
func (m *Master) WriteAddress(b byte) {
	m.regs.Store(m.layout.Addr, b)
}

// WriteData implements twi.Peripheral.
func (m *Master) WriteData(b byte) {
	m.regs.Store(m.layout.Data, b)
}

// ReadData implements twi.Peripheral.
func (m *Master) ReadData() byte {
	return m.regs.Load(m.layout.Data)
}

// Status implements twi.Peripheral. The bus state is taken straight from
// the BUSSTATE field.
func (m *Master) Status() twi.Status {
	return DecodeStatus(m.regs.Load(m.layout.Status))
}

// DecodeStatus decodes a raw status register value.
func DecodeStatus(v uint8) twi.Status {
	return twi.Status{
		WriteComplete: v&StatusWIF != 0,
		ReadComplete:  v&StatusRIF != 0,
		Nack:          v&StatusRXAck != 0,
		State:         twi.BusState(v & StatusBusState),
	}
}

// EncodeStatus is the inverse of DecodeStatus.
func EncodeStatus(s twi.Status) uint8 {
	v := uint8(s.State) & StatusBusState
	if s.WriteComplete {
		v |= StatusWIF
	}
	if s.ReadComplete {
		v |= StatusRIF
	}
	if s.Nack {
		v |= StatusRXAck
	}
	return v
}

// Command implements twi.Peripheral.
func (m *Master) Command(c twi.Command) {
	m.regs.Store(m.layout.Command, EncodeCommand(c))
}

// EncodeCommand returns the command register value for c.
func EncodeCommand(c twi.Command) uint8 {
	switch c {
	case twi.CmdStop:
		return CmdStop
	case twi.CmdContinue:
		return CmdRecvTrans
	case twi.CmdNackStop:
		return CmdAckAct | CmdStop
	default:
		return CmdNoAct
	}
}

// Configure implements twi.Peripheral. It writes the baud divider and the
// acknowledge action; the timeout is written now if the block is enabled
// and otherwise right after enabling, as the state it forces only sticks on
// a running block.
func (m *Master) Configure(c twi.PeripheralConfig) {
	m.cfg = c
	m.regs.Store(m.layout.Baud, c.Baud)
	if c.Ack == twi.Ack {
		m.regs.Store(m.layout.Command, 0)
	} else {
		m.regs.Store(m.layout.Command, CmdAckAct)
	}
	if m.enabled {
		m.applyTimeout()
	}
}

// Enable implements twi.Peripheral.
func (m *Master) Enable() {
	l := m.layout
	m.regs.Store(l.Enable, m.regs.Load(l.Enable)|l.EnableBit)
	m.enabled = true
	m.applyTimeout()
}

// Disable implements twi.Peripheral.
func (m *Master) Disable() {
	l := m.layout
	m.regs.Store(l.Enable, m.regs.Load(l.Enable)&^l.EnableBit)
	m.enabled = false
}

// ForceState implements twi.StateForcer.
func (m *Master) ForceState(s twi.BusState) {
	m.regs.Store(m.layout.Status, uint8(s)&StatusBusState)
}

func (m *Master) applyTimeout() {
	l := m.layout
	field := (uint8(m.cfg.Timeout) & 0x03) << l.TimeoutShift
	if l.TimeoutShared {
		v := m.regs.Load(l.Timeout) &^ (0x03 << l.TimeoutShift)
		m.regs.Store(l.Timeout, v|field)
	} else {
		m.regs.Store(l.Timeout, field)
	}

	if m.cfg.Timeout == twi.TimeoutDisabled {
		m.ForceState(twi.BusIdle)
	} else {
		m.ForceState(twi.BusUnknown)
	}
}
