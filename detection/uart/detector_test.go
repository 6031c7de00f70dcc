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

package uart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/ZaparooProject/go-twi/detection"
)

func TestFilterPorts(t *testing.T) {
	t.Parallel()

	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "1366", PID: "0105", Product: "J-Link"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A1", Product: "FT232R"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "0403", PID: "6001"},
	}
	opts := detection.DefaultOptions()
	opts.IgnorePaths = []string{"/dev/ttyUSB1"}

	infos := filterPorts(ports, &opts)
	require.Len(t, infos, 2)
	assert.Equal(t, "/dev/ttyS0", infos[0].Name)
	assert.Equal(t, "FT232R", infos[1].Name)
	assert.Equal(t, "0403:6001", infos[1].Metadata["vidpid"])
	assert.Equal(t, "A1", infos[1].Metadata["serial_number"])
}

//nolint:paralleltest // replaces the package-level port lister
func TestDetect_Errors(t *testing.T) {
	orig := listPorts
	t.Cleanup(func() { listPorts = orig })
	opts := detection.DefaultOptions()

	listPorts = func() ([]*enumerator.PortDetails, error) { return nil, nil }
	_, err := New().Detect(context.Background(), &opts)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)

	boom := errors.New("boom")
	listPorts = func() ([]*enumerator.PortDetails, error) { return nil, boom }
	_, err = New().Detect(context.Background(), &opts)
	require.ErrorIs(t, err, boom)
}
