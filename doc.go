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

/*
Package twi drives the master side of a TWI/I2C bus one phase at a time.

A Bus owns one Peripheral, the register-level view of a TWI master block,
and turns the bus state machine (start, repeated start, address, data,
acknowledge, stop) into blocking calls with bounded flag polling. Every
failure is reported as a *BusError carrying an Outcome: Nack, BusBusy,
InvalidDirection, SendTimeout or ReceiveTimeout.

Peripherals:
  - peripheral/xmega: the AVR XMEGA and tinyAVR TWI master registers
  - peripheral/sim: a simulated block with attachable slaves
  - peripheral/periphbus: any periph.io i2c.Bus, such as Linux /dev/i2c-N
  - peripheral/serialbridge: a block behind a serial register proxy

Basic Usage:

	block := sim.New(sim.NewMemory(0x48))
	bus, err := twi.New(block, twi.WithTimeout(time.Millisecond))
	if err != nil {
	    return err
	}
	if err := bus.Enable(twi.DefaultConfig()); err != nil {
	    return err
	}

	if err := bus.WriteRegister(ctx, 0x48, 0x01, 0x60); err != nil {
	    return err
	}
	v, err := bus.ReadRegister(ctx, 0x48, 0x01)

Phases can also be driven directly:

	if err := bus.Start(ctx, 0x50, twi.Write); err != nil {
	    return err
	}
	if err := bus.SendByte(ctx, 0x00); err != nil {
	    bus.Stop()
	    return err
	}
	if err := bus.RepeatedStart(ctx, 0x50, twi.Read); err != nil {
	    bus.Stop()
	    return err
	}
	b, err := bus.ReceiveByte(ctx, twi.Nack)

Timing:

Each flag wait is bounded by the bus timeout (DefaultTimeout, 1ms). The
peripheral converts it into a number of status polls through PollTimer;
peripherals without one get a 1µs SpinTimer. A wait that runs out fails
with SendTimeout or ReceiveTimeout.

Error Handling:

	switch twi.OutcomeOf(err) {
	case twi.OutcomeNack:
	    // no slave at this address
	case twi.OutcomeBusBusy:
	    // another master holds the bus
	}

	if twi.IsRetryable(err) {
	    // busy bus or timeout
	}

Interop:

*Bus implements periph.io's i2c.Bus and TinyGo's drivers.I2C, so existing
device drivers can run on any Peripheral.

Thread Safety:

A Bus is not safe for concurrent use. Callers sharing one must serialize
access themselves.
*/
package twi
