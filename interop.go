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
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

var (
	_ i2c.Bus     = (*Bus)(nil)
	_ drivers.I2C = (*Bus)(nil)
)

// Tx implements i2c.Bus and drivers.I2C. It is TxContext without a
// cancellation context.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.TxContext(context.Background(), addr, w, r)
}

// SetSpeed implements i2c.Bus. It recomputes the baud divider and, on an
// enabled bus, reconfigures the peripheral.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	baud, err := Baud(b.cfg.SystemClock, f)
	if err != nil {
		return fmt.Errorf("set speed on %s: %w", b.name, err)
	}
	b.cfg.Speed = f
	b.pcfg.Baud = baud
	if b.enabled {
		b.p.Configure(b.pcfg)
	}
	return nil
}

// String implements i2c.Bus.
func (b *Bus) String() string {
	return b.name
}
