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
	"fmt"
	"strings"
)

// Outcome is the result vocabulary of every bus operation.
type Outcome uint8

const (
	// OutcomeOK means the phase completed and was acknowledged.
	OutcomeOK Outcome = iota
	// OutcomeNack means the slave did not acknowledge.
	OutcomeNack
	// OutcomeBusBusy means the bus was not in the state the operation requires.
	OutcomeBusBusy
	// OutcomeInvalidDirection means the direction was neither Write nor Read.
	OutcomeInvalidDirection
	// OutcomeSendTimeout means an address or data byte did not complete in time.
	OutcomeSendTimeout
	// OutcomeReceiveTimeout means no byte arrived in time.
	OutcomeReceiveTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNack:
		return "nack"
	case OutcomeBusBusy:
		return "bus busy"
	case OutcomeInvalidDirection:
		return "invalid direction"
	case OutcomeSendTimeout:
		return "send timeout"
	case OutcomeReceiveTimeout:
		return "receive timeout"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Outcome errors. A *BusError matches the one for its outcome with errors.Is.
var (
	ErrNack             = errors.New("nack received")
	ErrBusBusy          = errors.New("bus busy")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrSendTimeout      = errors.New("send timeout")
	ErrReceiveTimeout   = errors.New("receive timeout")
)

// Configuration errors
var (
	ErrBaudUnderflow  = errors.New("bus speed too high for system clock")
	ErrBaudOverflow   = errors.New("bus speed too low for system clock")
	ErrInvalidAddress = errors.New("invalid 7-bit address")
	ErrNotSupported   = errors.New("not supported by peripheral")
)

func (o Outcome) sentinel() error {
	switch o {
	case OutcomeNack:
		return ErrNack
	case OutcomeBusBusy:
		return ErrBusBusy
	case OutcomeInvalidDirection:
		return ErrInvalidDirection
	case OutcomeSendTimeout:
		return ErrSendTimeout
	case OutcomeReceiveTimeout:
		return ErrReceiveTimeout
	default:
		return nil
	}
}

// BusError reports a failed bus phase. It always carries a non-OK outcome
// and the bus state observed when the failure was detected.
type BusError struct {
	// Err is the underlying cause, if any: a cancelled context or an
	// adapter fault.
	Err     error
	Op      string
	Bus     string
	Addr    Addr
	Outcome Outcome
	State   BusState
	// HasAddr is false for operations that do not address a slave.
	HasAddr bool
}

func (e *BusError) Error() string {
	var b strings.Builder
	_, _ = b.WriteString(e.Op)
	if e.Bus != "" {
		_, _ = fmt.Fprintf(&b, " on %s", e.Bus)
	}
	if e.HasAddr {
		_, _ = fmt.Fprintf(&b, " at %s", e.Addr)
	}
	_, _ = fmt.Fprintf(&b, ": %s", e.Outcome)
	if e.Outcome == OutcomeBusBusy {
		_, _ = fmt.Fprintf(&b, " (bus %s)", e.State)
	}
	if e.Err != nil {
		_, _ = fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the outcome sentinel and the cause.
func (e *BusError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Outcome.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// OutcomeOf returns the outcome carried by err. Errors that wrap none of the
// outcome sentinels, nil included, report OutcomeOK.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var be *BusError
	if errors.As(err, &be) {
		return be.Outcome
	}
	for _, o := range []Outcome{
		OutcomeNack, OutcomeBusBusy, OutcomeInvalidDirection, OutcomeSendTimeout, OutcomeReceiveTimeout,
	} {
		if errors.Is(err, o.sentinel()) {
			return o
		}
	}
	return OutcomeOK
}

// IsRetryable reports whether repeating the operation can succeed without
// the caller changing anything: a busy bus and timeouts are transient,
// a nack or an invalid direction are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch OutcomeOf(err) {
	case OutcomeBusBusy, OutcomeSendTimeout, OutcomeReceiveTimeout:
		return true
	default:
		return false
	}
}
