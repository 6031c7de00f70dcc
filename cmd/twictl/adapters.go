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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	twi "github.com/ZaparooProject/go-twi"
	"github.com/ZaparooProject/go-twi/detection"
	"github.com/ZaparooProject/go-twi/detection/uart"
	"github.com/ZaparooProject/go-twi/internal/config"
	"github.com/ZaparooProject/go-twi/peripheral/periphbus"
	"github.com/ZaparooProject/go-twi/peripheral/serialbridge"
	"github.com/ZaparooProject/go-twi/peripheral/sim"
)

// Addresses of the slaves on the simulated bus.
const (
	simMemoryAddr twi.Addr = 0x48
	simEEPROMAddr twi.Addr = 0x50
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newSimPeripheral returns a simulated block with a register file and a
// 24C02 EEPROM attached.
func newSimPeripheral() *sim.Block {
	block := sim.New(sim.NewMemory(simMemoryAddr))
	block.Attach(sim.NewEEPROM(simEEPROMAddr, 256, 8).Banks()...)
	return block
}

// openPeripheral opens the configured adapter.
func (a *app) openPeripheral(ctx context.Context) (twi.Peripheral, io.Closer, error) {
	bc := a.cfg.Bus
	switch bc.Adapter {
	case config.AdapterSim:
		return newSimPeripheral(), nopCloser{}, nil

	case config.AdapterPeriph:
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize periph host: %w", err)
		}
		name := periphBusName(bc.Device)
		bus, err := i2creg.Open(name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open I2C bus %q: %w", name, err)
		}
		p := periphbus.New(bus,
			periphbus.WithLogger(a.log),
			periphbus.WithSystemClock(physic.Frequency(bc.SystemClockHz)*physic.Hertz))
		return p, bus, nil

	case config.AdapterSerial:
		path := bc.Device
		if path == "" {
			found, err := a.detectSerial(ctx)
			if err != nil {
				return nil, nil, err
			}
			path = found
		}
		bridge, err := serialbridge.Open(path, a.cfg.Serial.BaudRate,
			serialbridge.WithLogger(a.log),
			serialbridge.WithRoundTrip(a.cfg.Serial.RoundTrip))
		if err != nil {
			return nil, nil, err
		}
		return bridge, bridge, nil

	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", bc.Adapter)
	}
}

// periphBusName maps /dev/i2c-N to the bus number periph registers it
// under. Other names pass through; empty opens the first bus.
func periphBusName(device string) string {
	if n, ok := strings.CutPrefix(device, "/dev/i2c-"); ok {
		return n
	}
	return device
}

func (a *app) detectSerial(ctx context.Context) (string, error) {
	opts := detection.DefaultOptions()
	infos, err := detection.Detect(ctx, &opts, uart.New())
	if err != nil {
		return "", fmt.Errorf("no serial bridge port: %w", err)
	}
	a.log.Info("using detected serial port", zap.String("port", infos[0].Path))
	return infos[0].Path, nil
}

// busConfig turns the configuration into engine settings.
func busConfig(bc config.BusConfig) (twi.Config, error) {
	cfg := twi.Config{
		SystemClock: physic.Frequency(bc.SystemClockHz) * physic.Hertz,
		Speed:       physic.Frequency(bc.SpeedHz) * physic.Hertz,
		Ack:         twi.Ack,
	}
	switch strings.ToLower(bc.InactiveTimeout) {
	case "", "disabled":
		cfg.Timeout = twi.TimeoutDisabled
	case "50us":
		cfg.Timeout = twi.Timeout50us
	case "100us":
		cfg.Timeout = twi.Timeout100us
	case "200us":
		cfg.Timeout = twi.Timeout200us
	default:
		return cfg, fmt.Errorf("inactive timeout %q: %w", bc.InactiveTimeout, config.ErrInvalid)
	}
	return cfg, nil
}

// openBus opens the adapter and enables the bus on it.
func (a *app) openBus(ctx context.Context) (*twi.Bus, io.Closer, error) {
	p, closer, err := a.open(ctx)
	if err != nil {
		return nil, nil, err
	}

	bus, err := twi.New(p,
		twi.WithLogger(a.log),
		twi.WithTimeout(a.cfg.Bus.Timeout),
		twi.WithName(a.cfg.Bus.Adapter))
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	cfg, err := busConfig(a.cfg.Bus)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	if err := bus.Enable(cfg); err != nil {
		_ = closer.Close()
		return nil, nil, fmt.Errorf("enable bus: %w", err)
	}

	// an enabled inactive timeout leaves the state unknown until the bus
	// has been quiet for the timeout
	if bus.State() == twi.BusUnknown {
		if err := bus.ForceState(twi.BusIdle); err != nil && !errors.Is(err, twi.ErrNotSupported) {
			_ = closer.Close()
			return nil, nil, err
		}
	}
	return bus, closer, nil
}
