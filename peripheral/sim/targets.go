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

package sim

import (
	"sync"

	twi "github.com/ZaparooProject/go-twi"
)

// Memory is a 256-register slave. The first byte written after a write
// address sets the register pointer; further writes store and reads load at
// the pointer, which auto-increments and wraps.
type Memory struct {
	addr       twi.Addr
	regs       [256]byte
	mu         sync.Mutex
	ptr        byte
	expectPtr  bool
	Addressed  int
	NackWrites bool
}

// NewMemory returns a zeroed register file answering at addr.
func NewMemory(addr twi.Addr) *Memory {
	return &Memory{addr: addr}
}

// Addr implements Target.
func (m *Memory) Addr() twi.Addr { return m.addr }

// Begin implements Target.
func (m *Memory) Begin(dir twi.Direction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Addressed++
	m.expectPtr = dir == twi.Write
	return true
}

// Write implements Target.
func (m *Memory) Write(b byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expectPtr {
		m.ptr, m.expectPtr = b, false
		return true
	}
	if m.NackWrites {
		return false
	}
	m.regs[m.ptr] = b
	m.ptr++
	return true
}

// Read implements Target.
func (m *Memory) Read() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.regs[m.ptr]
	m.ptr++
	return b
}

// End implements Target.
func (*Memory) End() {}

// Reg returns register r.
func (m *Memory) Reg(r byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[r]
}

// SetReg sets register r.
func (m *Memory) SetReg(r, v byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[r] = v
}

// EEPROM simulates a 24Cxx serial EEPROM with one-byte word addresses.
// Parts larger than 256 bytes answer on consecutive slave addresses, one per
// 256-byte block, so Banks returns one Target per block. Page writes wrap
// inside the page, and after each write the part ignores its address for
// WriteCycle addressing attempts.
type EEPROM struct {
	mem        []byte
	staged     map[int]byte
	mu         sync.Mutex
	base       twi.Addr
	pageSize   int
	busy       int
	WriteCycle int
	ptr        int
	pageStart  int
	writing    bool
	expectPtr  bool
}

// NewEEPROM returns an erased (0xFF) part of size bytes at base.
func NewEEPROM(base twi.Addr, size, pageSize int) *EEPROM {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &EEPROM{mem: mem, base: base, pageSize: pageSize, WriteCycle: 3}
}

// Banks returns the targets to attach to a Block.
func (e *EEPROM) Banks() []Target {
	n := (len(e.mem) + 255) / 256
	banks := make([]Target, n)
	for i := range banks {
		banks[i] = &eepromBank{e: e, block: i}
	}
	return banks
}

// Bytes returns a copy of the memory array.
func (e *EEPROM) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.mem...)
}

type eepromBank struct {
	e     *EEPROM
	block int
}

func (b *eepromBank) Addr() twi.Addr { return b.e.base + twi.Addr(b.block) }

func (b *eepromBank) Begin(dir twi.Direction) bool {
	e := b.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy > 0 {
		e.busy--
		return false
	}
	e.expectPtr = dir == twi.Write
	e.writing = false
	return true
}

func (b *eepromBank) Write(v byte) bool {
	e := b.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.expectPtr {
		e.ptr = b.block<<8 | int(v)
		e.pageStart = e.ptr &^ (e.pageSize - 1)
		e.expectPtr = false
		return true
	}
	if !e.writing {
		e.writing = true
		e.staged = make(map[int]byte)
	}
	e.staged[e.ptr] = v
	e.ptr = e.pageStart | (e.ptr+1)&(e.pageSize-1)
	return true
}

func (b *eepromBank) Read() byte {
	e := b.e
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.mem[e.ptr]
	e.ptr = (e.ptr + 1) % len(e.mem)
	return v
}

// End commits a page write and starts the write cycle.
func (b *eepromBank) End() {
	e := b.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.writing {
		return
	}
	for addr, v := range e.staged {
		e.mem[addr] = v
	}
	e.staged = nil
	e.writing = false
	e.busy = e.WriteCycle
}
