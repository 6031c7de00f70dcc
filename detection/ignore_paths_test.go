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

package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		want        bool
	}{
		{name: "nothing ignored", devicePath: "/dev/i2c-1"},
		{name: "empty path", devicePath: "", ignorePaths: []string{""}},
		{name: "exact i2c adapter", devicePath: "/dev/i2c-1", ignorePaths: []string{"/dev/i2c-1"}, want: true},
		{name: "other adapter", devicePath: "/dev/i2c-10", ignorePaths: []string{"/dev/i2c-1"}},
		{name: "cleaned path", devicePath: "/dev/../dev/ttyACM0", ignorePaths: []string{"/dev/ttyACM0"}, want: true},
		{name: "com port case", devicePath: "com3", ignorePaths: []string{"COM3"}, want: true},
		{name: "blank entries skipped", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"", "/dev/ttyUSB0"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestDefaultOptions_NoIgnoredPaths(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.Nil(t, opts.IgnorePaths)
	assert.Equal(t, Passive, opts.Mode)
	assert.NotEmpty(t, opts.Blocklist)
}
