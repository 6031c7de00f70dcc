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

package twi_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	twi "github.com/ZaparooProject/go-twi"
	"github.com/ZaparooProject/go-twi/peripheral/sim"
)

const slave twi.Addr = 0x50

func newSimBus(t *testing.T, targets ...sim.Target) (*twi.Bus, *sim.Block) {
	t.Helper()
	block := sim.New(targets...)
	bus, err := twi.New(block, twi.WithName("sim"))
	require.NoError(t, err)
	return bus, block
}

func TestStart_IdleBus(t *testing.T) {
	t.Parallel()

	t.Run("present slave owns the bus", func(t *testing.T) {
		t.Parallel()

		bus, _ := newSimBus(t, sim.NewMemory(slave))
		require.NoError(t, bus.Start(context.Background(), slave, twi.Write))
		assert.Equal(t, twi.BusOwner, bus.State())
		bus.Stop()
		assert.Equal(t, twi.BusIdle, bus.State())
	})

	t.Run("absent slave leaves the bus idle", func(t *testing.T) {
		t.Parallel()

		bus, block := newSimBus(t)
		err := bus.Start(context.Background(), slave, twi.Read)
		assert.Equal(t, twi.OutcomeNack, twi.OutcomeOf(err))
		assert.Equal(t, twi.BusIdle, bus.State())
		assert.Equal(t, 1, block.Count(sim.EventCommand, twi.CmdStop))
	})
}

func TestStart_NonIdleBus(t *testing.T) {
	t.Parallel()

	for _, state := range []twi.BusState{twi.BusBusy, twi.BusOwner, twi.BusUnknown} {
		t.Run(state.String(), func(t *testing.T) {
			t.Parallel()

			bus, block := newSimBus(t, sim.NewMemory(slave))
			require.NoError(t, bus.ForceState(state))
			block.ResetLog()

			err := bus.Start(context.Background(), slave, twi.Write)
			var be *twi.BusError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, twi.OutcomeBusBusy, be.Outcome)
			assert.Equal(t, state, be.State)
			assert.Empty(t, block.Events(), "no register writes")
		})
	}
}

func TestRegister_Echo(t *testing.T) {
	t.Parallel()

	mem := sim.NewMemory(slave)
	bus, _ := newSimBus(t, mem)
	ctx := context.Background()

	for _, v := range []byte{0x00, 0x5A, 0xFF} {
		require.NoError(t, bus.WriteRegister(ctx, slave, 0x10, v))
		got, err := bus.ReadRegister(ctx, slave, 0x10)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, twi.BusIdle, bus.State())
	}
	assert.Equal(t, byte(0xFF), mem.Reg(0x10))
}

func TestStart_HungBusTimesOut(t *testing.T) {
	t.Parallel()

	for _, timeout := range []time.Duration{time.Millisecond, 250 * time.Microsecond} {
		t.Run(timeout.String(), func(t *testing.T) {
			t.Parallel()

			block := sim.New(sim.NewMemory(slave))
			block.SetHang(true)
			bus, err := twi.New(block, twi.WithTimeout(timeout))
			require.NoError(t, err)

			err = bus.Start(context.Background(), slave, twi.Write)
			assert.Equal(t, twi.OutcomeSendTimeout, twi.OutcomeOf(err))
			assert.True(t, twi.IsRetryable(err))

			polls := block.Polls(timeout)
			assert.Equal(t, 1+polls, block.StatusReads(), "precondition read plus the poll budget")
			assert.Equal(t, timeout, block.Elapsed())
		})
	}
}

func TestWriteRegister_HungSlaveReleasesBus(t *testing.T) {
	t.Parallel()

	mem := sim.NewMemory(slave)
	bus, block := newSimBus(t, mem)
	ctx := context.Background()

	block.SetHang(true)
	err := bus.WriteRegister(ctx, slave, 0x02, 0x11)
	assert.Equal(t, twi.OutcomeSendTimeout, twi.OutcomeOf(err))
	assert.Equal(t, twi.BusIdle, bus.State())
	assert.Equal(t, 1, block.Count(sim.EventCommand, twi.CmdStop))

	block.SetHang(false)
	require.NoError(t, bus.WriteRegister(ctx, slave, 0x02, 0x22))
	assert.Equal(t, byte(0x22), mem.Reg(0x02))

	found, err := bus.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []twi.Addr{slave}, found)
}

func TestReadRegister_HungSlaveReleasesBus(t *testing.T) {
	t.Parallel()

	mem := sim.NewMemory(slave)
	mem.SetReg(0x05, 0x3C)
	bus, block := newSimBus(t, mem)
	ctx := context.Background()

	block.SetHang(true)
	_, err := bus.ReadRegister(ctx, slave, 0x05)
	assert.Equal(t, twi.OutcomeSendTimeout, twi.OutcomeOf(err))
	assert.True(t, twi.IsRetryable(err))
	assert.Equal(t, twi.BusIdle, bus.State())

	block.SetHang(false)
	got, err := bus.ReadRegister(ctx, slave, 0x05)
	require.NoError(t, err)
	assert.Equal(t, byte(0x3C), got)
}

func TestWriteRegister_AddressNack(t *testing.T) {
	t.Parallel()

	bus, _ := newSimBus(t, sim.NewMemory(0x51))
	err := bus.WriteRegister(context.Background(), slave, 0x00, 0x01)
	require.ErrorIs(t, err, twi.ErrNack)
	assert.Equal(t, twi.OutcomeNack, twi.OutcomeOf(err))
	assert.Equal(t, twi.BusIdle, bus.State())
}

func TestWriteRegister_DataNackReleasesBus(t *testing.T) {
	t.Parallel()

	mem := sim.NewMemory(slave)
	mem.NackWrites = true
	bus, block := newSimBus(t, mem)

	err := bus.WriteRegister(context.Background(), slave, 0x00, 0x01)
	assert.Equal(t, twi.OutcomeNack, twi.OutcomeOf(err))
	assert.Equal(t, twi.BusIdle, bus.State())
	assert.Equal(t, 1, block.Count(sim.EventCommand, twi.CmdStop))
}

func TestReceiveByte_NackStopsOnce(t *testing.T) {
	t.Parallel()

	mem := sim.NewMemory(slave)
	mem.SetReg(0, 0x77)
	bus, block := newSimBus(t, mem)
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx, slave, twi.Read))
	got, err := bus.ReceiveByte(ctx, twi.Nack)
	require.NoError(t, err)
	assert.Equal(t, byte(0x77), got)
	assert.Equal(t, 1, block.Count(sim.EventCommand, twi.CmdNackStop))

	_, err = bus.ReceiveByte(ctx, twi.Nack)
	assert.Equal(t, twi.OutcomeBusBusy, twi.OutcomeOf(err))
	assert.Equal(t, 1, block.Count(sim.EventCommand, twi.CmdNackStop))
}

func TestRegisters_AutoIncrement(t *testing.T) {
	t.Parallel()

	bus, block := newSimBus(t, sim.NewMemory(slave))
	block.SetLatency(3)
	ctx := context.Background()

	require.NoError(t, bus.WriteRegisters(ctx, slave, 0xFE, []byte{1, 2, 3, 4}))

	buf := make([]byte, 4)
	require.NoError(t, bus.ReadRegisters(ctx, slave, 0xFE, buf))
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
	assert.Equal(t, 3, block.Count(sim.EventCommand, twi.CmdContinue))
	assert.Equal(t, 1, block.Count(sim.EventCommand, twi.CmdNackStop))
}

func TestSendTo_ReceiveFrom(t *testing.T) {
	t.Parallel()

	mem := sim.NewMemory(slave)
	mem.SetReg(0x33, 0xC3)
	bus, _ := newSimBus(t, mem)
	ctx := context.Background()

	// a lone byte sets the register pointer
	require.NoError(t, bus.SendTo(ctx, slave, 0x33))
	got, err := bus.ReceiveFrom(ctx, slave)
	require.NoError(t, err)
	assert.Equal(t, byte(0xC3), got)
}

func TestScan(t *testing.T) {
	t.Parallel()

	bus, _ := newSimBus(t, sim.NewMemory(0x20), sim.NewMemory(0x50), sim.NewMemory(0x03))
	found, err := bus.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []twi.Addr{0x20, 0x50}, found, "reserved addresses are skipped")
}

func TestScan_StopsOnBusyBus(t *testing.T) {
	t.Parallel()

	bus, _ := newSimBus(t, sim.NewMemory(0x50))
	require.NoError(t, bus.ForceState(twi.BusBusy))

	found, err := bus.Scan(context.Background())
	assert.Empty(t, found)
	assert.Equal(t, twi.OutcomeBusBusy, twi.OutcomeOf(err))
}

func TestInactiveTimeout(t *testing.T) {
	t.Parallel()

	bus, block := newSimBus(t, sim.NewMemory(slave))
	cfg := twi.DefaultConfig()
	cfg.Timeout = twi.Timeout50us
	require.NoError(t, bus.Enable(cfg))
	assert.Equal(t, twi.BusUnknown, bus.State())

	err := bus.Start(context.Background(), slave, twi.Write)
	assert.Equal(t, twi.OutcomeBusBusy, twi.OutcomeOf(err))

	for range 50 {
		block.Pause()
	}
	assert.Equal(t, twi.BusIdle, bus.State())
	require.NoError(t, bus.Probe(context.Background(), slave))

	bus.SetInactiveTimeout(twi.TimeoutDisabled)
	assert.Equal(t, twi.BusIdle, bus.State())
}

func TestTx_PeriphDev(t *testing.T) {
	t.Parallel()

	bus, _ := newSimBus(t, sim.NewMemory(slave))
	rec := &i2ctest.Record{Bus: bus}
	dev := &i2c.Dev{Bus: rec, Addr: uint16(slave)}

	require.NoError(t, dev.Tx([]byte{0x40, 0xDE, 0xAD}, nil))
	r := make([]byte, 2)
	require.NoError(t, dev.Tx([]byte{0x40}, r))
	assert.Equal(t, []byte{0xDE, 0xAD}, r)

	require.Len(t, rec.Ops, 2)
	assert.Equal(t, []byte{0x40}, rec.Ops[1].W)
	assert.Equal(t, []byte{0xDE, 0xAD}, rec.Ops[1].R)

	// empty transfers probe
	require.NoError(t, bus.Tx(uint16(slave), nil, nil))
	require.ErrorIs(t, bus.Tx(0x10, nil, nil), twi.ErrNack)
}

func TestSetSpeed(t *testing.T) {
	t.Parallel()

	bus, block := newSimBus(t)
	require.NoError(t, bus.Enable(twi.DefaultConfig()))
	require.NoError(t, bus.SetSpeed(200*physic.KiloHertz))
	assert.Equal(t, uint8(0), block.Config().Baud)

	require.ErrorIs(t, bus.SetSpeed(physic.KiloHertz), twi.ErrBaudOverflow)
}
