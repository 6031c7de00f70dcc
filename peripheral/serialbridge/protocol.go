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

// Package serialbridge forwards the twi capability calls over a serial
// link. Bridge is the host side and implements twi.Peripheral; Serve is the
// register proxy that runs next to the real peripheral and answers it.
//
// Each call is one request frame from host to proxy and one response frame
// back, framed as 00 00 FF LEN LCS TFI OP ARGS... DCS 00 with TFI 0xD4 for
// requests and 0xD5 for responses. A response carries OP+1 followed by the
// result, or OpError and a reason code.
package serialbridge

import (
	"errors"
	"fmt"
)

// Request opcodes.
const (
	OpWriteAddress byte = 0x02
	OpWriteData    byte = 0x04
	OpReadData     byte = 0x06
	OpStatus       byte = 0x08
	OpCommand      byte = 0x0A
	OpConfigure    byte = 0x0C
	OpEnable       byte = 0x0E
	OpDisable      byte = 0x10
	OpForceState   byte = 0x12
	OpError        byte = 0x7F
)

// Reason codes of an OpError response.
const (
	ReasonUnknownOp   byte = 0x01
	ReasonBadLength   byte = 0x02
	ReasonUnsupported byte = 0x03
)

// Protocol errors
var (
	ErrProxy            = errors.New("register proxy error")
	ErrUnexpectedAnswer = errors.New("unexpected response from register proxy")
)

// argCount is the number of argument bytes each request carries.
var argCount = map[byte]int{
	OpWriteAddress: 1,
	OpWriteData:    1,
	OpReadData:     0,
	OpStatus:       0,
	OpCommand:      1,
	OpConfigure:    3,
	OpEnable:       0,
	OpDisable:      0,
	OpForceState:   1,
}

// ProxyError is an OpError response.
type ProxyError struct {
	Op     byte
	Reason byte
}

func (e *ProxyError) Error() string {
	var reason string
	switch e.Reason {
	case ReasonUnknownOp:
		reason = "unknown opcode"
	case ReasonBadLength:
		reason = "bad argument length"
	case ReasonUnsupported:
		reason = "not supported by peripheral"
	default:
		reason = fmt.Sprintf("reason 0x%02X", e.Reason)
	}
	return fmt.Sprintf("op 0x%02X: %s", e.Op, reason)
}

func (*ProxyError) Unwrap() error {
	return ErrProxy
}
