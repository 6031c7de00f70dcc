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

// Package sim provides a simulated TWI master block with attachable
// simulated slaves. It implements twi.Peripheral together with the
// PollTimer and StateForcer capabilities, so a twi.Bus can run complete
// transactions against it without hardware.
//
// Time is simulated: each Pause advances the block's clock by one poll
// interval, which drives the inactive timeout and keeps tests deterministic.
package sim

import (
	"fmt"
	"sync"
	"time"

	twi "github.com/ZaparooProject/go-twi"
)

// Target is a simulated slave.
type Target interface {
	// Addr returns the 7-bit address the target answers to.
	Addr() twi.Addr
	// Begin is called when the target is addressed; it returns the ack.
	Begin(dir twi.Direction) bool
	// Write receives one byte and returns the ack.
	Write(b byte) bool
	// Read returns the next byte for the master.
	Read() byte
	// End is called on stop.
	End()
}

// EventKind names a register access seen by the block.
type EventKind uint8

// Register accesses recorded in the event log.
const (
	EventAddress EventKind = iota
	EventData
	EventCommand
	EventConfigure
	EventEnable
	EventDisable
	EventForce
)

func (k EventKind) String() string {
	switch k {
	case EventAddress:
		return "address"
	case EventData:
		return "data"
	case EventCommand:
		return "command"
	case EventConfigure:
		return "configure"
	case EventEnable:
		return "enable"
	case EventDisable:
		return "disable"
	case EventForce:
		return "force"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is one entry of the block's event log.
type Event struct {
	Kind    EventKind
	Value   byte
	Command twi.Command
	State   twi.BusState
}

func (e Event) String() string {
	switch e.Kind {
	case EventAddress, EventData:
		return fmt.Sprintf("%s 0x%02X", e.Kind, e.Value)
	case EventCommand:
		return fmt.Sprintf("%s %s", e.Kind, e.Command)
	case EventForce:
		return fmt.Sprintf("%s %s", e.Kind, e.State)
	default:
		return e.Kind.String()
	}
}

// DefaultInterval is the simulated time one poll takes.
const DefaultInterval = time.Microsecond

// Block is a simulated TWI master block.
type Block struct {
	targets      map[twi.Addr]Target
	active       Target
	events       []Event
	cfg          twi.PeripheralConfig
	interval     time.Duration
	clock        time.Duration
	unknownSince time.Duration
	latency      int
	pending      int
	statusReads  int
	mu           sync.Mutex
	state        twi.BusState
	dir          twi.Direction
	data         byte
	wif          bool
	rif          bool
	rxnack       bool
	hang         bool
	enabled      bool
}

// New returns an enabled block with an idle bus and the given targets
// attached.
func New(targets ...Target) *Block {
	b := &Block{
		targets:  make(map[twi.Addr]Target),
		interval: DefaultInterval,
		state:    twi.BusIdle,
		enabled:  true,
	}
	for _, t := range targets {
		b.targets[t.Addr()] = t
	}
	return b
}

// Attach adds targets, replacing any already answering the same address.
func (b *Block) Attach(targets ...Target) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range targets {
		b.targets[t.Addr()] = t
	}
}

// Detach removes the target at addr.
func (b *Block) Detach(addr twi.Addr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.targets, addr)
}

// SetHang makes the block stop raising completion flags, as if SCL were
// held low forever.
func (b *Block) SetHang(hang bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hang = hang
}

// SetLatency sets how many status reads pass before a completion flag
// becomes visible.
func (b *Block) SetLatency(polls int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = polls
}

// SetInterval sets the simulated time per poll.
func (b *Block) SetInterval(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d > 0 {
		b.interval = d
	}
}

// Events returns a copy of the event log.
func (b *Block) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// StatusReads returns how many times the status register was read.
func (b *Block) StatusReads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusReads
}

// Elapsed returns the simulated time.
func (b *Block) Elapsed() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock
}

// ResetLog clears the event log and the status read counter.
func (b *Block) ResetLog() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
	b.statusReads = 0
}

// Config returns the configuration last written.
func (b *Block) Config() twi.PeripheralConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

func (b *Block) log(e Event) {
	b.events = append(b.events, e)
}

func (b *Block) clearFlags() {
	b.wif, b.rif, b.rxnack = false, false, false
}

// WriteAddress implements twi.Peripheral.
func (b *Block) WriteAddress(v byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log(Event{Kind: EventAddress, Value: v})
	if !b.enabled {
		return
	}

	b.clearFlags()
	b.state = twi.BusOwner
	b.pending = b.latency
	if b.hang {
		return
	}

	addr := twi.Addr(v >> 1)
	b.dir = twi.Direction(v & 1)

	t := b.targets[addr]
	if t == nil || !t.Begin(b.dir) {
		b.active = nil
		b.wif, b.rxnack = true, true
		return
	}

	b.active = t
	if b.dir == twi.Write {
		b.wif = true
		return
	}
	b.data = t.Read()
	b.rif = true
}

// WriteData implements twi.Peripheral.
func (b *Block) WriteData(v byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log(Event{Kind: EventData, Value: v})
	if !b.enabled || b.state != twi.BusOwner {
		return
	}

	b.clearFlags()
	b.pending = b.latency
	if b.hang {
		return
	}

	ack := b.active != nil && b.dir == twi.Write && b.active.Write(v)
	b.wif, b.rxnack = true, !ack
}

// ReadData implements twi.Peripheral.
func (b *Block) ReadData() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Status implements twi.Peripheral. Completion flags stay hidden for the
// configured latency after each transfer.
func (b *Block) Status() twi.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusReads++

	if b.state == twi.BusUnknown && b.cfg.Timeout != twi.TimeoutDisabled {
		limit := time.Duration(b.cfg.Timeout.Micros()) * time.Microsecond
		if b.clock-b.unknownSince >= limit {
			b.state = twi.BusIdle
		}
	}

	if b.pending > 0 {
		b.pending--
		return twi.Status{State: b.state}
	}
	return twi.Status{
		WriteComplete: b.wif,
		ReadComplete:  b.rif,
		Nack:          b.rxnack,
		State:         b.state,
	}
}

// Command implements twi.Peripheral.
func (b *Block) Command(c twi.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log(Event{Kind: EventCommand, Command: c})
	if !b.enabled {
		return
	}

	switch c {
	case twi.CmdStop, twi.CmdNackStop:
		b.stop()
	case twi.CmdContinue:
		if b.state != twi.BusOwner || b.active == nil || b.dir != twi.Read {
			return
		}
		b.clearFlags()
		b.pending = b.latency
		if b.hang {
			return
		}
		b.data = b.active.Read()
		b.rif = true
	case twi.CmdNone:
	}
}

func (b *Block) stop() {
	if b.active != nil {
		b.active.End()
		b.active = nil
	}
	b.clearFlags()
	b.pending = 0
	if b.state == twi.BusOwner {
		b.state = twi.BusIdle
	}
}

// Configure implements twi.Peripheral. Like the hardware, writing the
// timeout forces the bus state: idle when disabled, unknown otherwise.
func (b *Block) Configure(c twi.PeripheralConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log(Event{Kind: EventConfigure})
	b.cfg = c
	if c.Timeout == twi.TimeoutDisabled {
		b.state = twi.BusIdle
		return
	}
	b.state = twi.BusUnknown
	b.unknownSince = b.clock
}

// Enable implements twi.Peripheral.
func (b *Block) Enable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log(Event{Kind: EventEnable})
	b.enabled = true
}

// Disable implements twi.Peripheral. A disabled block reports an unknown
// bus and ignores transfers.
func (b *Block) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log(Event{Kind: EventDisable})
	if b.active != nil {
		b.active.End()
		b.active = nil
	}
	b.clearFlags()
	b.enabled = false
	b.state = twi.BusUnknown
	b.unknownSince = b.clock
}

// ForceState implements twi.StateForcer. Forcing BusBusy simulates another
// master holding the bus.
func (b *Block) ForceState(s twi.BusState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log(Event{Kind: EventForce, State: s})
	b.state = s
	if s == twi.BusUnknown {
		b.unknownSince = b.clock
	}
}

// Polls implements twi.PollTimer.
func (b *Block) Polls(timeout time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := int((timeout + b.interval - 1) / b.interval)
	if n < 1 {
		n = 1
	}
	return n
}

// Pause implements twi.PollTimer by advancing the simulated clock.
func (b *Block) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock += b.interval
}

// Count returns how many events of kind k (and, for commands, of command
// c) are in the log.
func (b *Block) Count(k EventKind, c twi.Command) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Kind == k && (k != EventCommand || e.Command == c) {
			n++
		}
	}
	return n
}
