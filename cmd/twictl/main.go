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

// Command twictl drives a TWI/I2C bus from the command line: it lists host
// buses, scans for slaves, reads and writes registers, watches slaves,
// stores NDEF messages in 24Cxx EEPROMs, and serves a local peripheral to a
// remote host over the serial register bridge.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-twi/internal/config"
	"github.com/ZaparooProject/go-twi/internal/logging"
)

const usage = `usage: twictl [flags] <command> [args]

commands:
  list                          list host I2C buses and serial ports
  scan                          probe every non-reserved address
  read <addr> <reg> [count]     read registers
  write <addr> <reg> <byte>...  write registers
  dump <addr>                   read all 256 registers
  watch <addr>[:reg[:len]]...   report slaves appearing, leaving, changing
  ndef read|write [text]        NDEF message in a 24Cxx EEPROM
  serve <port>                  serve the local bus to a serial bridge host

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("twictl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "config file (default ./twictl.yaml or ~/.twictl/twictl.yaml)")
	adapter := fs.String("adapter", "", "bus adapter: sim, periph or serial")
	device := fs.String("device", "", "periph bus name or serial bridge port; empty auto-detects")
	speed := fs.Int64("speed", 0, "SCL frequency in Hz")
	timeout := fs.Duration("timeout", 0, "flag wait timeout per phase")
	eepromSize := fs.Int("eeprom-size", 256, "EEPROM size in bytes for ndef")
	debug := fs.Bool("debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "twictl: %v\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "adapter":
			cfg.Bus.Adapter = *adapter
		case "device":
			cfg.Bus.Device = *device
		case "speed":
			cfg.Bus.SpeedHz = *speed
		case "timeout":
			cfg.Bus.Timeout = *timeout
		case "debug":
			if *debug {
				cfg.Log.Level = "debug"
			}
		}
	})

	logger, err := logging.New(cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "twictl: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, logger, stdout)
	a.eepromSize = *eepromSize
	if err := a.run(ctx, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		logger.Error("command failed", zap.String("command", fs.Arg(0)), zap.Error(err))
		return 1
	}
	return 0
}

// commandTimeout bounds one-shot commands.
const commandTimeout = 30 * time.Second
