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

// Package i2c detects host I2C adapters exposed as /dev/i2c-N.
package i2c

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ZaparooProject/go-twi/detection"
)

// detector implements detection.Detector for i2c-dev adapters
type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "i2c"
}

// Detect lists the i2c-dev adapters that support plain I2C transfers, and
// in active mode the slaves answering on each.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.Info, error) {
	if runtime.GOOS != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}
	return detectLinux(ctx, opts)
}

// busInfo describes adapter number n at path.
func busInfo(path string, n int, funcs uint64, addrs []uint16) detection.Info {
	return detection.Info{
		Transport: "i2c",
		Path:      path,
		Name:      fmt.Sprintf("I2C%d", n),
		Addresses: addrs,
		Metadata: map[string]string{
			"number": fmt.Sprintf("%d", n),
			"funcs":  fmt.Sprintf("0x%08X", funcs),
		},
	}
}
