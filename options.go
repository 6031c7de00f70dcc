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
	"time"

	"go.uber.org/zap"
)

// Option configures a Bus at construction time.
type Option func(*Bus) error

// WithLogger sets the logger. Phases are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) error {
		if logger == nil {
			return errors.New("nil logger")
		}
		b.log = logger
		return nil
	}
}

// WithTimeout sets how long each flag wait may take before the phase fails
// with a send or receive timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(b *Bus) error {
		if timeout <= 0 {
			return errors.New("timeout must be positive")
		}
		b.timeout = timeout
		return nil
	}
}

// WithPollTimer overrides the peripheral's own PollTimer, or the default
// SpinTimer when it has none.
func WithPollTimer(timer PollTimer) Option {
	return func(b *Bus) error {
		if timer == nil {
			return errors.New("nil poll timer")
		}
		b.timer = timer
		return nil
	}
}

// WithName names the bus in errors, logs and String.
func WithName(name string) Option {
	return func(b *Bus) error {
		b.name = name
		return nil
	}
}
