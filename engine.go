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

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-twi/internal/poll"
)

const (
	opStart         = "start"
	opRepeatedStart = "repeated start"
	opSend          = "send"
	opReceive       = "receive"
	opStop          = "stop"
)

// Start issues a start condition and addresses addr in direction dir.
//
// The bus must read idle; otherwise Start fails with OutcomeBusBusy carrying
// the observed state and touches nothing. An invalid direction fails with
// OutcomeInvalidDirection, also without touching the peripheral. If the slave
// does not acknowledge, Start issues a stop, so the bus is idle again, and
// fails with OutcomeNack. On success the bus is owned by this master.
func (b *Bus) Start(ctx context.Context, addr Addr, dir Direction) error {
	b.target, b.addressed = addr, true

	if state := b.p.Status().State; state != BusIdle {
		return b.fail(opStart, OutcomeBusBusy, state, b.fault())
	}
	if !dir.Valid() {
		return b.fail(opStart, OutcomeInvalidDirection, BusIdle, nil)
	}

	return b.address(ctx, opStart, addr, dir, true)
}

// RepeatedStart re-addresses while keeping the bus. The bus must be owned
// by this master; otherwise it fails with OutcomeBusBusy carrying the
// observed state. A nack is reported without a stop: the caller still owns
// the bus and decides whether to retry or Stop.
func (b *Bus) RepeatedStart(ctx context.Context, addr Addr, dir Direction) error {
	b.target, b.addressed = addr, true

	if state := b.p.Status().State; state != BusOwner {
		return b.fail(opRepeatedStart, OutcomeBusBusy, state, b.fault())
	}
	if !dir.Valid() {
		return b.fail(opRepeatedStart, OutcomeInvalidDirection, BusOwner, nil)
	}

	return b.address(ctx, opRepeatedStart, addr, dir, false)
}

// Stop issues a stop condition unconditionally. Errors of later phases no
// longer name the stopped transaction's address.
func (b *Bus) Stop() {
	b.p.Command(CmdStop)
	b.addressed = false
	b.log.Debug(opStop, zap.String("bus", b.name))
}

// SendByte shifts out one data byte on an owned bus.
func (b *Bus) SendByte(ctx context.Context, data byte) error {
	if state := b.p.Status().State; state != BusOwner {
		return b.fail(opSend, OutcomeBusBusy, state, b.fault())
	}

	b.p.WriteData(data)
	st, polls, err := b.await(ctx, func(s Status) bool { return s.WriteComplete })
	if err != nil {
		return b.fail(opSend, OutcomeSendTimeout, st.State, err)
	}
	if st.Nack {
		return b.fail(opSend, OutcomeNack, st.State, nil)
	}

	b.log.Debug(opSend, zap.Uint8("data", data), zap.Int("polls", polls))
	return nil
}

// ReceiveByte waits for a byte on an owned bus and answers it according to
// policy. Ack asks the slave for the next byte. Nack answers the final byte
// and issues the stop in the same command, so the transaction is over when
// ReceiveByte returns; any further ReceiveByte fails until a new Start.
func (b *Bus) ReceiveByte(ctx context.Context, policy AckPolicy) (byte, error) {
	if state := b.p.Status().State; state != BusOwner {
		return 0, b.fail(opReceive, OutcomeBusBusy, state, b.fault())
	}

	st, polls, err := b.await(ctx, func(s Status) bool { return s.ReadComplete })
	if err != nil {
		return 0, b.fail(opReceive, OutcomeReceiveTimeout, st.State, err)
	}

	data := b.p.ReadData()
	if policy == Ack {
		b.p.Command(CmdContinue)
	} else {
		b.p.Command(CmdNackStop)
	}

	b.log.Debug(opReceive,
		zap.Uint8("data", data),
		zap.Stringer("ack", policy),
		zap.Int("polls", polls))
	return data, nil
}

func (b *Bus) address(ctx context.Context, op string, addr Addr, dir Direction, stopOnNack bool) error {
	b.p.WriteAddress(addr.Compose(dir))

	st, polls, err := b.await(ctx, func(s Status) bool { return s.complete(dir) })
	if err != nil {
		return b.fail(op, OutcomeSendTimeout, st.State, err)
	}
	if st.Nack {
		if stopOnNack {
			b.p.Command(CmdStop)
		}
		return b.fail(op, OutcomeNack, st.State, nil)
	}

	b.log.Debug(op,
		zap.Stringer("addr", addr),
		zap.Stringer("dir", dir),
		zap.Int("polls", polls))
	return nil
}

// errPollTimeout marks an exhausted wait that has no adapter fault behind it.
var errPollTimeout = errors.New("flag not raised within timeout")

// await polls the status until done accepts it. On failure the
// error is the context error, the adapter fault, or errPollTimeout; callers
// turn it into the phase's timeout outcome.
func (b *Bus) await(ctx context.Context, done func(Status) bool) (Status, int, error) {
	var st Status
	polls, err := poll.Until(ctx, poll.Config{
		Budget: b.timer.Polls(b.timeout),
		Pause:  b.timer.Pause,
	}, func() bool {
		st = b.p.Status()
		return done(st)
	})
	if err == nil {
		return st, polls, nil
	}
	if errors.Is(err, poll.ErrExhausted) {
		if fault := b.fault(); fault != nil {
			return st, polls, fault
		}
		return st, polls, errPollTimeout
	}
	return st, polls, err
}
