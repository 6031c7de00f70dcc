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

package polling

import (
	"bytes"
	"time"
)

// DetectionState is the per-slave presence state.
type DetectionState int

const (
	StateAbsent DetectionState = iota
	StatePresent
	// StateMissing means the slave stopped answering but has not yet been
	// gone for the removal timeout.
	StateMissing
)

func (s DetectionState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	case StateMissing:
		return "missing"
	default:
		return "invalid"
	}
}

// SlaveState tracks one watched slave.
type SlaveState struct {
	LastSeen       time.Time
	Value          []byte
	Misses         int
	DetectionState DetectionState
}

// Present reports whether the slave is considered attached.
func (s *SlaveState) Present() bool {
	return s.DetectionState != StateAbsent
}

// TransitionToPresent records an answer and reports whether the value
// differs from the previous one.
func (s *SlaveState) TransitionToPresent(now time.Time, value []byte) (changed bool) {
	changed = s.DetectionState != StateAbsent && !bytes.Equal(s.Value, value)
	s.DetectionState = StatePresent
	s.LastSeen = now
	s.Misses = 0
	s.Value = append(s.Value[:0], value...)
	return changed
}

// TransitionToMissing records a miss and reports whether the slave has now
// been gone for at least timeout.
func (s *SlaveState) TransitionToMissing(now time.Time, timeout time.Duration) (removed bool) {
	if s.DetectionState == StateAbsent {
		return false
	}
	s.Misses++
	if now.Sub(s.LastSeen) >= timeout {
		s.TransitionToAbsent()
		return true
	}
	s.DetectionState = StateMissing
	return false
}

// TransitionToAbsent resets the state.
func (s *SlaveState) TransitionToAbsent() {
	s.DetectionState = StateAbsent
	s.LastSeen = time.Time{}
	s.Value = nil
	s.Misses = 0
}
