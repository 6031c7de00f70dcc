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

import "fmt"

// Direction is the transfer direction encoded into bit 0 of the address byte.
type Direction uint8

const (
	// Write transfers bytes from master to slave.
	Write Direction = 0
	// Read transfers bytes from slave to master.
	Read Direction = 1
)

// Valid reports whether d is Write or Read.
func (d Direction) Valid() bool {
	return d == Write || d == Read
}

func (d Direction) String() string {
	switch d {
	case Write:
		return "write"
	case Read:
		return "read"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// AckPolicy selects what the master answers after a received byte.
type AckPolicy uint8

const (
	// Ack asks the slave for another byte.
	Ack AckPolicy = iota
	// Nack ends the read and, in ReceiveByte, the transaction.
	Nack
)

func (a AckPolicy) String() string {
	if a == Nack {
		return "nack"
	}
	return "ack"
}

// BusState is the bus ownership as reported by the peripheral.
// It is never cached: other masters can change it at any time.
type BusState uint8

const (
	// BusUnknown is reported after reset or while the inactive timeout has
	// not yet expired.
	BusUnknown BusState = iota
	// BusIdle means no master holds the bus.
	BusIdle
	// BusOwner means this master issued a start and no stop yet.
	BusOwner
	// BusBusy means another master holds the bus.
	BusBusy
)

func (s BusState) String() string {
	switch s {
	case BusUnknown:
		return "unknown"
	case BusIdle:
		return "idle"
	case BusOwner:
		return "owner"
	case BusBusy:
		return "busy"
	default:
		return fmt.Sprintf("busstate(%d)", uint8(s))
	}
}

// Addr is a 7-bit slave address.
type Addr uint8

// MaxAddr is the highest 7-bit address.
const MaxAddr Addr = 0x7F

// Compose returns the address byte put on the wire: the address shifted
// left by one with the direction in bit 0.
func (a Addr) Compose(dir Direction) byte {
	return byte(a&MaxAddr)<<1 | byte(dir&1)
}

// Valid reports whether a fits in seven bits.
func (a Addr) Valid() bool {
	return a <= MaxAddr
}

// Reserved reports whether a falls in the 0000xxx or 1111xxx blocks set
// aside for general call, CBUS, high-speed master codes and 10-bit addressing.
func (a Addr) Reserved() bool {
	return a&0x78 == 0 || a&0x78 == 0x78
}

func (a Addr) String() string {
	return fmt.Sprintf("0x%02X", uint8(a))
}

// Command is an action requested from the peripheral's command field.
type Command uint8

const (
	// CmdNone leaves the bus as it is.
	CmdNone Command = iota
	// CmdStop issues a stop condition.
	CmdStop
	// CmdContinue acknowledges the last byte and receives the next one.
	CmdContinue
	// CmdNackStop answers the last byte with a nack and issues a stop.
	CmdNackStop
)

func (c Command) String() string {
	switch c {
	case CmdNone:
		return "none"
	case CmdStop:
		return "stop"
	case CmdContinue:
		return "continue"
	case CmdNackStop:
		return "nack+stop"
	default:
		return fmt.Sprintf("command(%d)", uint8(c))
	}
}

// Status is one snapshot of the peripheral's status register.
type Status struct {
	// WriteComplete is set when an address or data byte has been shifted
	// out, and also when a read address was not acknowledged.
	WriteComplete bool
	// ReadComplete is set when a received byte is waiting in the data register.
	ReadComplete bool
	// Nack is set when the last transmitted byte was not acknowledged.
	Nack bool
	// State is the bus ownership.
	State BusState
}

// complete reports whether the phase started in direction dir has finished.
// A read address that is not acknowledged raises the write flag instead of
// the read flag, so both count as completion for reads.
func (s Status) complete(dir Direction) bool {
	if dir == Read {
		return s.ReadComplete || s.WriteComplete
	}
	return s.WriteComplete
}

// InactiveTimeout is the peripheral's bus inactivity timeout after which an
// unknown bus is considered idle. Single-master setups keep it disabled.
type InactiveTimeout uint8

const (
	// TimeoutDisabled forces the bus state to idle on configuration.
	TimeoutDisabled InactiveTimeout = iota
	// Timeout50us waits 50µs of inactivity.
	Timeout50us
	// Timeout100us waits 100µs of inactivity.
	Timeout100us
	// Timeout200us waits 200µs of inactivity.
	Timeout200us
)

func (t InactiveTimeout) String() string {
	switch t {
	case TimeoutDisabled:
		return "disabled"
	case Timeout50us:
		return "50us"
	case Timeout100us:
		return "100us"
	case Timeout200us:
		return "200us"
	default:
		return fmt.Sprintf("timeout(%d)", uint8(t))
	}
}

// Micros returns the timeout length in microseconds, 0 when disabled.
func (t InactiveTimeout) Micros() int {
	switch t {
	case Timeout50us:
		return 50
	case Timeout100us:
		return 100
	case Timeout200us:
		return 200
	default:
		return 0
	}
}
