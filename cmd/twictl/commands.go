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
	"strconv"
	"strings"

	"github.com/hsanjuan/go-ndef"
	"go.bug.st/serial"
	"go.uber.org/zap"

	twi "github.com/ZaparooProject/go-twi"
	"github.com/ZaparooProject/go-twi/detection"
	// Import all detectors to register them
	_ "github.com/ZaparooProject/go-twi/detection/i2c"
	_ "github.com/ZaparooProject/go-twi/detection/uart"
	"github.com/ZaparooProject/go-twi/devices/eeprom"
	"github.com/ZaparooProject/go-twi/internal/config"
	"github.com/ZaparooProject/go-twi/peripheral/serialbridge"
	"github.com/ZaparooProject/go-twi/polling"
)

var errUsage = errors.New("usage")

type app struct {
	cfg        *config.Config
	log        *zap.Logger
	out        io.Writer
	open       func(ctx context.Context) (twi.Peripheral, io.Closer, error)
	eepromSize int
}

func newApp(cfg *config.Config, logger *zap.Logger, out io.Writer) *app {
	a := &app{cfg: cfg, log: logger, out: out, eepromSize: 256}
	a.open = a.openPeripheral
	return a
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *app) run(ctx context.Context, args []string) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "list":
		return a.list(ctx)
	case "serve":
		return a.serve(ctx, args)
	case "watch":
		return a.withBus(ctx, func(ctx context.Context, bus *twi.Bus) error {
			return a.watch(ctx, bus, args)
		})
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var fn func(context.Context, *twi.Bus) error
	switch cmd {
	case "scan":
		fn = a.scan
	case "read":
		fn = func(ctx context.Context, bus *twi.Bus) error { return a.read(ctx, bus, args) }
	case "write":
		fn = func(ctx context.Context, bus *twi.Bus) error { return a.write(ctx, bus, args) }
	case "dump":
		fn = func(ctx context.Context, bus *twi.Bus) error { return a.dump(ctx, bus, args) }
	case "ndef":
		fn = func(ctx context.Context, bus *twi.Bus) error { return a.ndef(ctx, bus, args) }
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return a.withBus(ctx, fn)
}

func (a *app) withBus(ctx context.Context, fn func(context.Context, *twi.Bus) error) error {
	bus, closer, err := a.openBus(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	defer bus.Disable()
	return fn(ctx, bus)
}

func parseAddr(s string) (twi.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil || !twi.Addr(v).Valid() {
		return 0, fmt.Errorf("%w: address %q", errUsage, s)
	}
	return twi.Addr(v), nil
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: byte %q", errUsage, s)
	}
	return byte(v), nil
}

func (a *app) list(ctx context.Context) error {
	opts := detection.DefaultOptions()
	infos, err := detection.DetectAll(ctx, &opts)
	if errors.Is(err, detection.ErrNoDevicesFound) {
		a.printf("no buses found\n")
		return nil
	}
	for _, info := range infos {
		a.printf("%-7s %-16s %s\n", info.Transport, info.Path, info.Name)
	}
	return err
}

func (a *app) scan(ctx context.Context, bus *twi.Bus) error {
	found, err := bus.Scan(ctx)
	for _, addr := range found {
		a.printf("%s\n", addr)
	}
	if err != nil {
		return err
	}
	if len(found) == 0 {
		a.printf("no slaves answered\n")
	}
	return nil
}

func (a *app) read(ctx context.Context, bus *twi.Bus, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: read <addr> <reg> [count]", errUsage)
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	reg, err := parseByte(args[1])
	if err != nil {
		return err
	}
	count := 1
	if len(args) == 3 {
		if count, err = strconv.Atoi(args[2]); err != nil || count < 1 || count > 256 {
			return fmt.Errorf("%w: count %q", errUsage, args[2])
		}
	}

	buf := make([]byte, count)
	if err := bus.ReadRegisters(ctx, addr, reg, buf); err != nil {
		return err
	}
	a.printf("% X\n", buf)
	return nil
}

func (a *app) write(ctx context.Context, bus *twi.Bus, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: write <addr> <reg> <byte>...", errUsage)
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	reg, err := parseByte(args[1])
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(args)-2)
	for _, s := range args[2:] {
		b, err := parseByte(s)
		if err != nil {
			return err
		}
		data = append(data, b)
	}
	return bus.WriteRegisters(ctx, addr, reg, data)
}

func (a *app) dump(ctx context.Context, bus *twi.Bus, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: dump <addr>", errUsage)
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}

	buf := make([]byte, 256)
	if err := bus.ReadRegisters(ctx, addr, 0x00, buf); err != nil {
		return err
	}
	a.printf("    ")
	for col := 0; col < 16; col++ {
		a.printf(" %x ", col)
	}
	a.printf("\n")
	for row := 0; row < 256; row += 16 {
		a.printf("%02x: % x\n", row, buf[row:row+16])
	}
	return nil
}

// parseWatch parses addr[:reg[:len]]; a register without a length reads one
// byte.
func parseWatch(s string) (polling.Watch, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return polling.Watch{}, fmt.Errorf("%w: watch %q", errUsage, s)
	}
	addr, err := parseAddr(parts[0])
	if err != nil {
		return polling.Watch{}, err
	}
	w := polling.Watch{Addr: addr}
	if len(parts) > 1 {
		if w.Reg, err = parseByte(parts[1]); err != nil {
			return polling.Watch{}, err
		}
		w.Len = 1
	}
	if len(parts) > 2 {
		if w.Len, err = strconv.Atoi(parts[2]); err != nil || w.Len < 1 || w.Len > 256 {
			return polling.Watch{}, fmt.Errorf("%w: length %q", errUsage, parts[2])
		}
	}
	return w, nil
}

func (a *app) watch(ctx context.Context, bus *twi.Bus, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: watch <addr>[:reg[:len]]...", errUsage)
	}
	watches := make([]polling.Watch, 0, len(args))
	for _, s := range args {
		w, err := parseWatch(s)
		if err != nil {
			return err
		}
		watches = append(watches, w)
	}

	m := polling.NewMonitor(bus, nil, watches...)
	m.SetLogger(a.log)
	m.OnDeviceDetected = func(w polling.Watch, value []byte) {
		a.printf("+ %s % X\n", w, value)
	}
	m.OnDeviceRemoved = func(w polling.Watch) {
		a.printf("- %s\n", w)
	}
	m.OnValueChanged = func(w polling.Watch, old, value []byte) {
		a.printf("~ %s % X -> % X\n", w, old, value)
	}

	err := m.Start(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (a *app) ndef(ctx context.Context, bus *twi.Bus, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: ndef read|write [text]", errUsage)
	}
	cfg := eeprom.Conf24C02
	cfg.Size = a.eepromSize
	if cfg.Size > 256 {
		cfg.PageSize = 16
	}
	part, err := eeprom.New(bus, eeprom.DefaultBase, cfg)
	if err != nil {
		return err
	}

	switch args[0] {
	case "read":
		msg, err := part.ReadNDEF(ctx)
		if err != nil {
			return err
		}
		a.printf("%s\n", msg)
		return nil
	case "write":
		if len(args) != 2 {
			return fmt.Errorf("%w: ndef write <text>", errUsage)
		}
		return part.WriteNDEF(ctx, ndef.NewTextMessage(args[1], "en"))
	default:
		return fmt.Errorf("%w: ndef %q", errUsage, args[0])
	}
}

func (a *app) serve(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: serve <port>", errUsage)
	}
	if a.cfg.Bus.Adapter == config.AdapterSerial {
		return errors.New("serve needs a local adapter, not serial")
	}

	p, closer, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	port, err := serial.Open(args[0], &serial.Mode{
		BaudRate: a.cfg.Serial.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer func() { _ = port.Close() }()

	a.log.Info("serving bus", zap.String("port", args[0]), zap.String("adapter", a.cfg.Bus.Adapter))
	err = serialbridge.Serve(ctx, port, p, a.log)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
