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

import (
	"context"
	"errors"
	"fmt"
)

// WriteRegister writes data into register reg of the slave at addr:
// start(write), register, data, stop.
func (b *Bus) WriteRegister(ctx context.Context, addr Addr, reg, data byte) error {
	if err := b.write(ctx, addr, reg, data); err != nil {
		return fmt.Errorf("write register 0x%02X: %w", reg, err)
	}
	return nil
}

// WriteRegisters writes data into consecutive registers starting at reg,
// relying on the slave's address auto-increment.
func (b *Bus) WriteRegisters(ctx context.Context, addr Addr, reg byte, data []byte) error {
	seq := make([]byte, 0, len(data)+1)
	seq = append(seq, reg)
	seq = append(seq, data...)
	if err := b.write(ctx, addr, seq...); err != nil {
		return fmt.Errorf("write registers 0x%02X+%d: %w", reg, len(data), err)
	}
	return nil
}

// SendTo writes a single byte to the slave at addr: start(write), data, stop.
func (b *Bus) SendTo(ctx context.Context, addr Addr, data byte) error {
	if err := b.write(ctx, addr, data); err != nil {
		return fmt.Errorf("send to %s: %w", addr, err)
	}
	return nil
}

// ReadRegister reads register reg of the slave at addr: start(write),
// register, repeated start(read), one byte answered with nack and stop.
func (b *Bus) ReadRegister(ctx context.Context, addr Addr, reg byte) (byte, error) {
	var buf [1]byte
	if err := b.readRegisters(ctx, addr, reg, buf[:]); err != nil {
		return 0, fmt.Errorf("read register 0x%02X: %w", reg, err)
	}
	return buf[0], nil
}

// ReadRegisters fills buf from consecutive registers starting at reg.
// Every byte but the last is acknowledged.
func (b *Bus) ReadRegisters(ctx context.Context, addr Addr, reg byte, buf []byte) error {
	if err := b.readRegisters(ctx, addr, reg, buf); err != nil {
		return fmt.Errorf("read registers 0x%02X+%d: %w", reg, len(buf), err)
	}
	return nil
}

// ReceiveFrom reads a single byte from the slave at addr: start(read),
// one byte answered with nack and stop.
func (b *Bus) ReceiveFrom(ctx context.Context, addr Addr) (byte, error) {
	if err := b.start(ctx, addr, Read); err != nil {
		return 0, fmt.Errorf("receive from %s: %w", addr, err)
	}
	data, err := b.ReceiveByte(ctx, Nack)
	if err != nil {
		b.release()
		return 0, fmt.Errorf("receive from %s: %w", addr, err)
	}
	return data, nil
}

// Probe addresses addr for writing and stops. It returns nil when the
// slave acknowledged.
func (b *Bus) Probe(ctx context.Context, addr Addr) error {
	return b.write(ctx, addr)
}

// Scan probes every non-reserved address and returns those that answered.
// A nack moves on to the next address; any other failure ends the scan and
// is returned with the addresses found so far.
func (b *Bus) Scan(ctx context.Context) ([]Addr, error) {
	var found []Addr
	for a := Addr(0); a <= MaxAddr; a++ {
		if a.Reserved() {
			continue
		}
		err := b.Probe(ctx, a)
		switch {
		case err == nil:
			found = append(found, a)
		case OutcomeOf(err) == OutcomeNack:
		default:
			return found, fmt.Errorf("scan: %w", err)
		}
	}
	return found, nil
}

// write runs start(write), data..., stop.
func (b *Bus) write(ctx context.Context, addr Addr, data ...byte) error {
	if err := b.start(ctx, addr, Write); err != nil {
		return err
	}
	for _, c := range data {
		if err := b.SendByte(ctx, c); err != nil {
			b.release()
			return err
		}
	}
	b.Stop()
	return b.flushed(addr)
}

func (b *Bus) readRegisters(ctx context.Context, addr Addr, reg byte, buf []byte) error {
	if len(buf) == 0 {
		return b.write(ctx, addr, reg)
	}
	if err := b.start(ctx, addr, Write); err != nil {
		return err
	}
	if err := b.SendByte(ctx, reg); err != nil {
		b.release()
		return err
	}
	if err := b.RepeatedStart(ctx, addr, Read); err != nil {
		b.release()
		return err
	}
	return b.receive(ctx, buf)
}

// start runs Start for a composite. An address phase that timed out has
// already taken the bus, so it is released before the error is returned.
func (b *Bus) start(ctx context.Context, addr Addr, dir Direction) error {
	err := b.Start(ctx, addr, dir)
	if OutcomeOf(err) == OutcomeSendTimeout {
		b.release()
	}
	return err
}

// receive fills buf on an owned bus, acknowledging all but the last byte.
// The final nack ends the transaction.
func (b *Bus) receive(ctx context.Context, buf []byte) error {
	for i := range buf {
		policy := Ack
		if i == len(buf)-1 {
			policy = Nack
		}
		data, err := b.ReceiveByte(ctx, policy)
		if err != nil {
			b.release()
			return err
		}
		buf[i] = data
	}
	return nil
}

// release stops the bus if a failed composite left it owned. A fault raised
// by that stop belongs to the failed composite and is dropped.
func (b *Bus) release() {
	if b.p.Status().State == BusOwner {
		b.Stop()
		_ = b.fault()
	}
}

// flushed reports a fault raised by adapters that defer the transfer to
// the stop condition.
func (b *Bus) flushed(addr Addr) error {
	fault := b.fault()
	if fault == nil {
		return nil
	}
	return b.failAt(opStop, addr, true, OutcomeNack, b.p.Status().State, fault)
}

// TxContext runs a write-then-read transaction in the shape used by
// periph.io and TinyGo: w is written, then a repeated start reads r.
// With both empty it probes addr.
func (b *Bus) TxContext(ctx context.Context, addr uint16, w, r []byte) error {
	if addr > uint16(MaxAddr) {
		return fmt.Errorf("tx 0x%X: %w", addr, ErrInvalidAddress)
	}
	a := Addr(addr)

	if len(r) == 0 {
		if err := b.write(ctx, a, w...); err != nil {
			return fmt.Errorf("tx %s: %w", a, err)
		}
		return nil
	}

	if err := b.txRead(ctx, a, w, r); err != nil {
		return fmt.Errorf("tx %s: %w", a, err)
	}
	return nil
}

func (b *Bus) txRead(ctx context.Context, a Addr, w, r []byte) error {
	if len(w) == 0 {
		if err := b.start(ctx, a, Read); err != nil {
			return err
		}
		return b.receive(ctx, r)
	}

	if err := b.start(ctx, a, Write); err != nil {
		return err
	}
	for _, c := range w {
		if err := b.SendByte(ctx, c); err != nil {
			b.release()
			return err
		}
	}
	if err := b.RepeatedStart(ctx, a, Read); err != nil {
		b.release()
		return err
	}
	return b.receive(ctx, r)
}

// IsNack reports whether err is a slave nack, the usual answer of an
// absent device.
func IsNack(err error) bool {
	return errors.Is(err, ErrNack)
}
