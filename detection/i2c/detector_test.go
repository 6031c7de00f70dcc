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

package i2c

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZaparooProject/go-twi/detection"
)

func TestDetector_Registered(t *testing.T) {
	t.Parallel()

	var found bool
	for _, d := range detection.Detectors() {
		if d.Transport() == "i2c" {
			found = true
		}
	}
	assert.True(t, found, "i2c detector registers itself on import")
}

func TestBusInfo(t *testing.T) {
	t.Parallel()

	info := busInfo("/dev/i2c-1", 1, 0x0EFF0009, []uint16{0x50})
	assert.Equal(t, "i2c", info.Transport)
	assert.Equal(t, "/dev/i2c-1", info.Path)
	assert.Equal(t, "I2C1", info.Name)
	assert.Equal(t, []uint16{0x50}, info.Addresses)
	assert.Equal(t, "1", info.Metadata["number"])
	assert.Equal(t, "0x0EFF0009", info.Metadata["funcs"])
}
