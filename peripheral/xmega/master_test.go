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

package xmega_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twi "github.com/ZaparooProject/go-twi"
	"github.com/ZaparooProject/go-twi/peripheral/sim"
	"github.com/ZaparooProject/go-twi/peripheral/xmega"
)

// simRegs routes the data, address, command and status registers of a
// layout to a simulated block, so the register encoding is exercised end to
// end.
type simRegs struct {
	mem    xmega.Memory
	block  *sim.Block
	layout xmega.Layout
}

func (r *simRegs) Load(off uintptr) uint8 {
	switch off {
	case r.layout.Status:
		return xmega.EncodeStatus(r.block.Status())
	case r.layout.Data:
		return r.block.ReadData()
	default:
		return r.mem.Load(off)
	}
}

func (r *simRegs) Store(off uintptr, v uint8) {
	switch off {
	case r.layout.Addr:
		r.block.WriteAddress(v)
	case r.layout.Data:
		r.block.WriteData(v)
	case r.layout.Status:
		r.block.ForceState(xmega.DecodeStatus(v).State)
	case r.layout.Command:
		r.mem.Store(off, v)
		switch v & 0x03 {
		case xmega.CmdStop:
			if v&xmega.CmdAckAct != 0 {
				r.block.Command(twi.CmdNackStop)
			} else {
				r.block.Command(twi.CmdStop)
			}
		case xmega.CmdRecvTrans:
			r.block.Command(twi.CmdContinue)
		}
	default:
		r.mem.Store(off, v)
	}
}

func TestEnable_Registers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		layout     xmega.Layout
		timeout    twi.InactiveTimeout
		ack        twi.AckPolicy
		wantEnable uint8
		wantCmd    uint8
		wantStatus uint8
		wantTmo    uint8
	}{
		{
			name:       "xmega single master",
			layout:     xmega.XMEGA,
			timeout:    twi.TimeoutDisabled,
			ack:        twi.Ack,
			wantEnable: 0x08,
			wantCmd:    0x00,
			wantStatus: 0x01,
			wantTmo:    0x00,
		},
		{
			name:       "xmega 200us nack",
			layout:     xmega.XMEGA,
			timeout:    twi.Timeout200us,
			ack:        twi.Nack,
			wantEnable: 0x08,
			wantCmd:    0x04,
			wantStatus: 0x00,
			wantTmo:    0x0C,
		},
		{
			name:       "tinyavr 100us shares MCTRLA",
			layout:     xmega.TinyAVR,
			timeout:    twi.Timeout100us,
			ack:        twi.Ack,
			wantEnable: 0x09,
			wantCmd:    0x00,
			wantStatus: 0x00,
			wantTmo:    0x09,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			regs := &xmega.Memory{}
			bus, err := twi.New(xmega.New(regs, tt.layout))
			require.NoError(t, err)

			cfg := twi.DefaultConfig()
			cfg.Timeout = tt.timeout
			cfg.Ack = tt.ack
			require.NoError(t, bus.Enable(cfg))

			l := tt.layout
			assert.Equal(t, uint8(5), regs.Load(l.Baud))
			assert.Equal(t, tt.wantEnable, regs.Load(l.Enable))
			assert.Equal(t, tt.wantCmd, regs.Load(l.Command))
			assert.Equal(t, tt.wantStatus, regs.Load(l.Status))
			assert.Equal(t, tt.wantTmo, regs.Load(l.Timeout))

			bus.Disable()
			assert.Zero(t, regs.Load(l.Enable)&l.EnableBit)
		})
	}
}

func TestDecodeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  uint8
		want twi.Status
	}{
		{raw: 0x00, want: twi.Status{State: twi.BusUnknown}},
		{raw: 0x01, want: twi.Status{State: twi.BusIdle}},
		{raw: 0x42, want: twi.Status{WriteComplete: true, State: twi.BusOwner}},
		{raw: 0x52, want: twi.Status{WriteComplete: true, Nack: true, State: twi.BusOwner}},
		{raw: 0x82, want: twi.Status{ReadComplete: true, State: twi.BusOwner}},
		{raw: 0x03, want: twi.Status{State: twi.BusBusy}},
		// clock hold and error bits are not part of the snapshot
		{raw: 0x2E, want: twi.Status{State: twi.BusOwner}},
	}

	for _, tt := range tests {
		got := xmega.DecodeStatus(tt.raw)
		assert.Equal(t, tt.want, got, "raw 0x%02X", tt.raw)
		assert.Equal(t, tt.raw&0xD3, xmega.EncodeStatus(got))
	}
}

func TestEncodeCommand(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(0x00), xmega.EncodeCommand(twi.CmdNone))
	assert.Equal(t, uint8(0x03), xmega.EncodeCommand(twi.CmdStop))
	assert.Equal(t, uint8(0x02), xmega.EncodeCommand(twi.CmdContinue))
	assert.Equal(t, uint8(0x07), xmega.EncodeCommand(twi.CmdNackStop))
}

func TestMaster_Transactions(t *testing.T) {
	t.Parallel()

	for _, layout := range []xmega.Layout{xmega.XMEGA, xmega.TinyAVR} {
		t.Run(layout.Name, func(t *testing.T) {
			t.Parallel()

			block := sim.New(sim.NewMemory(0x1D))
			regs := &simRegs{block: block, layout: layout}
			bus, err := twi.New(xmega.New(regs, layout), twi.WithPollTimer(block))
			require.NoError(t, err)
			require.NoError(t, bus.Enable(twi.DefaultConfig()))

			ctx := context.Background()
			require.NoError(t, bus.WriteRegister(ctx, 0x1D, 0x2A, 0x97))
			got, err := bus.ReadRegister(ctx, 0x1D, 0x2A)
			require.NoError(t, err)
			assert.Equal(t, byte(0x97), got)

			err = bus.WriteRegister(ctx, 0x1E, 0x00, 0x00)
			assert.True(t, twi.IsNack(err))
			assert.Equal(t, twi.BusIdle, bus.State())

			require.NoError(t, bus.ForceState(twi.BusBusy))
			assert.Equal(t, twi.OutcomeBusBusy, twi.OutcomeOf(bus.Probe(ctx, 0x1D)))
		})
	}
}
