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

// Package detection finds the buses twictl can drive: host I2C adapters
// and serial ports that may carry a register bridge. Detectors register
// themselves on import, e.g.
//
//	import _ "github.com/ZaparooProject/go-twi/detection/i2c"
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no devices found")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	ErrDetectionTimeout    = errors.New("detection timed out")
)

// Mode controls how intrusive detection is.
type Mode int

const (
	// Passive only lists buses and ports.
	Passive Mode = iota
	// Active also addresses every non-reserved slave on each I2C bus.
	Active
)

// Info describes one detected bus.
type Info struct {
	Metadata map[string]string
	// Transport is "i2c" or "serial".
	Transport string
	// Path opens the bus, e.g. /dev/i2c-1 or /dev/ttyUSB0.
	Path string
	Name string
	// Addresses lists the slaves that answered in Active mode.
	Addresses []uint16
}

// Options configures detection.
type Options struct {
	// IgnorePaths are skipped without being opened.
	IgnorePaths []string
	// Blocklist holds VID:PID pairs of USB serial devices to skip.
	Blocklist []string
	Timeout   time.Duration
	Mode      Mode
}

// DefaultOptions returns passive detection with a 5 second timeout.
func DefaultOptions() Options {
	return Options{
		Mode:      Passive,
		Timeout:   5 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds buses of one transport.
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]Info, error)
}

var (
	registryMu sync.RWMutex
	registry   []Detector
)

// RegisterDetector adds d to the detectors DetectAll runs.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, d)
}

// Detectors returns the registered detectors.
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]Detector(nil), registry...)
}

// DetectAll runs every registered detector.
func DetectAll(ctx context.Context, opts *Options) ([]Info, error) {
	return Detect(ctx, opts, Detectors()...)
}

// Detect runs detectors in turn and merges their results sorted by
// transport and path. A detector reporting no devices or an unsupported
// platform is skipped; any other failure is returned with what was found.
func Detect(ctx context.Context, opts *Options, detectors ...Detector) ([]Info, error) {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var found []Info
	for _, d := range detectors {
		infos, err := d.Detect(ctx, opts)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoDevicesFound), errors.Is(err, ErrUnsupportedPlatform):
			continue
		case errors.Is(err, context.DeadlineExceeded):
			return sorted(found), ErrDetectionTimeout
		default:
			return sorted(found), fmt.Errorf("%s detection: %w", d.Transport(), err)
		}
		for _, info := range infos {
			if !IsPathIgnored(info.Path, opts.IgnorePaths) {
				found = append(found, info)
			}
		}
	}

	if len(found) == 0 {
		return nil, ErrNoDevicesFound
	}
	return sorted(found), nil
}

func sorted(infos []Info) []Info {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Transport != infos[j].Transport {
			return infos[i].Transport < infos[j].Transport
		}
		return infos[i].Path < infos[j].Path
	})
	return infos
}
