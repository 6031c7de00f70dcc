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

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksums(t *testing.T) {
	t.Parallel()

	// configure request: opcode 0x0C, baud 5, ack, timeout disabled
	configure := []byte{0x0C, 0x05, 0x00, 0x00}

	tests := []struct {
		name string
		got  byte
		want byte
	}{
		{name: "sum empty", got: CalculateChecksum(nil), want: 0x00},
		{name: "sum wraps", got: CalculateChecksum([]byte{0xFF, 0x01}), want: 0x00},
		{name: "sum request", got: CalculateChecksum(append([]byte{HostToProxy}, configure...)), want: 0xE5},
		{name: "dcs request", got: CalculateDataChecksum(HostToProxy, configure), want: 0x1B},
		{name: "dcs status response", got: CalculateDataChecksum(ProxyToHost, []byte{0x09, 0x01}), want: 0x21},
		{name: "dcs no data", got: CalculateDataChecksum(HostToProxy, nil), want: 0x2C},
		{name: "lcs 5", got: CalculateLengthChecksum(0x05), want: 0xFB},
		{name: "lcs 0", got: CalculateLengthChecksum(0x00), want: 0x00},
		{name: "lcs 255", got: CalculateLengthChecksum(0xFF), want: 0x01},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got, tt.name)
	}
}

func TestValidateChecksum(t *testing.T) {
	t.Parallel()

	assert.False(t, ValidateChecksum([]byte{0xD4, 0x0C, 0x05, 0x00, 0x00, 0x1B}), "request with its DCS")
	assert.False(t, ValidateChecksum(nil), "empty sums to zero")
	assert.True(t, ValidateChecksum([]byte{0xD4, 0x0C, 0x05, 0x00, 0x00, 0x1C}), "corrupted DCS")
}
