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

// Package poll provides the bounded busy-poll loop used to wait for
// peripheral flags.
package poll

import (
	"context"
	"errors"
)

// ErrExhausted is returned when the poll budget ran out before the
// condition held.
var ErrExhausted = errors.New("poll budget exhausted")

// Condition is checked once per poll. It returns true when the wait is over.
type Condition func() bool

// Config bounds one wait.
type Config struct {
	// Pause is called after every failed check. Nil means no pause.
	Pause func()
	// Budget is the number of checks; values below one mean one check.
	Budget int
}

// Until checks cond up to cfg.Budget times, pausing after every failed check.
// It returns the number of checks made and nil, ErrExhausted, or the context
// error when ctx is done before a check.
func Until(ctx context.Context, cfg Config, cond Condition) (int, error) {
	budget := cfg.Budget
	if budget < 1 {
		budget = 1
	}

	for polls := 0; polls < budget; polls++ {
		if err := ctx.Err(); err != nil {
			return polls, err
		}

		if cond() {
			return polls + 1, nil
		}

		if cfg.Pause != nil {
			cfg.Pause()
		}
	}

	return budget, ErrExhausted
}
