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

// Package uart detects serial ports that may carry a register bridge.
package uart

import (
	"context"
	"fmt"

	"go.bug.st/serial/enumerator"

	"github.com/ZaparooProject/go-twi/detection"
)

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

type detector struct{}

// New creates a new serial port detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "serial"
}

// Detect lists serial ports, skipping ignored paths and blocklisted USB
// devices. Ports are never opened.
func (*detector) Detect(_ context.Context, opts *detection.Options) ([]detection.Info, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	infos := filterPorts(ports, opts)
	if len(infos) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return infos, nil
}

func filterPorts(ports []*enumerator.PortDetails, opts *detection.Options) []detection.Info {
	infos := make([]detection.Info, 0, len(ports))
	for _, p := range ports {
		if detection.IsPathIgnored(p.Name, opts.IgnorePaths) {
			continue
		}

		info := detection.Info{
			Transport: "serial",
			Path:      p.Name,
			Name:      p.Name,
			Metadata:  map[string]string{},
		}
		if p.IsUSB {
			vidpid := detection.VIDPID(p.VID, p.PID)
			if detection.IsBlocked(vidpid, opts.Blocklist) {
				continue
			}
			info.Metadata["vidpid"] = vidpid
			info.Metadata["serial_number"] = p.SerialNumber
			if p.Product != "" {
				info.Name = p.Product
			}
		}
		infos = append(infos, info)
	}
	return infos
}
