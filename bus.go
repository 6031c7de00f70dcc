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
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
)

// DefaultTimeout bounds every flag wait; it matches a thousand
// one-microsecond polls.
const DefaultTimeout = time.Millisecond

// Config is the bus configuration applied by Enable.
type Config struct {
	// SystemClock is the peripheral clock the baud divider is derived from.
	SystemClock physic.Frequency
	// Speed is the SCL frequency.
	Speed physic.Frequency
	// Timeout is the peripheral's bus inactivity timeout.
	Timeout InactiveTimeout
	// Ack is the default acknowledge action after received bytes.
	Ack AckPolicy
}

// DefaultConfig returns a 100kHz single-master configuration for a 2MHz
// system clock.
func DefaultConfig() Config {
	return Config{
		SystemClock: 2 * physic.MegaHertz,
		Speed:       100 * physic.KiloHertz,
		Timeout:     TimeoutDisabled,
		Ack:         Ack,
	}
}

// Baud returns the master baud divider for speed:
// systemClock / (2 × speed) − 5.
func Baud(systemClock, speed physic.Frequency) (uint8, error) {
	if speed <= 0 {
		return 0, fmt.Errorf("speed %s: %w", speed, ErrBaudOverflow)
	}
	div := int64(systemClock) / (2 * int64(speed))
	baud := div - 5
	if baud < 0 {
		return 0, fmt.Errorf("%s at %s: %w", speed, systemClock, ErrBaudUnderflow)
	}
	if baud > 0xFF {
		return 0, fmt.Errorf("%s at %s: %w", speed, systemClock, ErrBaudOverflow)
	}
	return uint8(baud), nil
}

// Bus is the handle of one TWI master peripheral. It drives the transaction
// state machine on top of the Peripheral it exclusively owns.
//
// Thread Safety: Bus is NOT thread-safe and holds no locks. Every method
// must be called from a single goroutine or under external synchronization;
// transactions on the same peripheral must never interleave.
type Bus struct {
	p       Peripheral
	timer   PollTimer
	log     *zap.Logger
	name    string
	cfg     Config
	pcfg    PeripheralConfig
	timeout time.Duration
	target  Addr
	enabled bool
	// addressed is true once a start or repeated start named target.
	addressed bool
}

// New creates a Bus handle for p. The peripheral is not touched until
// Enable or the first transaction.
func New(p Peripheral, opts ...Option) (*Bus, error) {
	if p == nil {
		return nil, errors.New("nil peripheral")
	}

	b := &Bus{
		p:       p,
		log:     zap.NewNop(),
		name:    "twi",
		cfg:     DefaultConfig(),
		timeout: DefaultTimeout,
	}
	if t, ok := p.(PollTimer); ok {
		b.timer = t
	} else {
		b.timer = SpinTimer{}
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Peripheral returns the underlying peripheral.
func (b *Bus) Peripheral() Peripheral {
	return b.p
}

// Config returns the configuration last applied or requested.
func (b *Bus) Config() Config {
	return b.cfg
}

// Timeout returns the flag wait timeout.
func (b *Bus) Timeout() time.Duration {
	return b.timeout
}

// Enable computes the baud divider, configures acknowledge polarity and
// inactive timeout, and turns the peripheral on.
func (b *Bus) Enable(cfg Config) error {
	baud, err := Baud(cfg.SystemClock, cfg.Speed)
	if err != nil {
		return fmt.Errorf("enable %s: %w", b.name, err)
	}

	b.cfg = cfg
	b.pcfg = PeripheralConfig{Baud: baud, Ack: cfg.Ack, Timeout: cfg.Timeout}
	b.p.Configure(b.pcfg)
	b.p.Enable()
	b.enabled = true

	b.log.Debug("bus enabled",
		zap.String("bus", b.name),
		zap.Stringer("speed", cfg.Speed),
		zap.Uint8("baud", baud),
		zap.Stringer("inactive_timeout", cfg.Timeout))
	return nil
}

// Disable turns the peripheral off.
func (b *Bus) Disable() {
	b.p.Disable()
	b.enabled = false
	b.addressed = false
	b.log.Debug("bus disabled", zap.String("bus", b.name))
}

// Enabled reports whether Enable succeeded and Disable was not called since.
func (b *Bus) Enabled() bool {
	return b.enabled
}

// SetAcknowledge changes the default acknowledge action.
func (b *Bus) SetAcknowledge(a AckPolicy) {
	b.cfg.Ack = a
	b.pcfg.Ack = a
	if b.enabled {
		b.p.Configure(b.pcfg)
	}
}

// SetInactiveTimeout changes the bus inactivity timeout. Like any
// configuration it resets the bus state: idle when disabled, unknown otherwise.
func (b *Bus) SetInactiveTimeout(t InactiveTimeout) {
	b.cfg.Timeout = t
	b.pcfg.Timeout = t
	if b.enabled {
		b.p.Configure(b.pcfg)
	}
}

// ForceState overwrites the bus state in the peripheral.
func (b *Bus) ForceState(s BusState) error {
	f, ok := b.p.(StateForcer)
	if !ok {
		return fmt.Errorf("force bus state: %w", ErrNotSupported)
	}
	f.ForceState(s)
	return nil
}

// State reads the current bus state from the peripheral.
func (b *Bus) State() BusState {
	return b.p.Status().State
}

func (b *Bus) fault() error {
	if f, ok := b.p.(FaultReporter); ok {
		return f.Fault()
	}
	return nil
}

func (b *Bus) fail(op string, outcome Outcome, state BusState, cause error) error {
	return b.failAt(op, b.target, b.addressed, outcome, state, cause)
}

func (b *Bus) failAt(op string, addr Addr, hasAddr bool, outcome Outcome, state BusState, cause error) error {
	err := &BusError{
		Op:      op,
		Bus:     b.name,
		Addr:    addr,
		HasAddr: hasAddr,
		Outcome: outcome,
		State:   state,
		Err:     cause,
	}
	b.log.Debug("bus phase failed",
		zap.String("op", op),
		zap.Stringer("outcome", outcome),
		zap.Stringer("state", state),
		zap.Error(cause))
	return err
}
