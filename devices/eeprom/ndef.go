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

package eeprom

import (
	"context"
	"errors"
	"fmt"

	"github.com/hsanjuan/go-ndef"
)

// TLV block types, as laid out on NFC Forum type 2 tags.
const (
	tlvNull       byte = 0x00
	tlvNDEF       byte = 0x03
	tlvTerminator byte = 0xFE
)

// NDEF errors
var (
	ErrNoNDEF       = errors.New("no NDEF message found")
	ErrNDEFTooLarge = errors.New("NDEF message does not fit")
	ErrBadTLV       = errors.New("malformed TLV block")
)

// ReadNDEF walks the TLV blocks from the start of memory and decodes the
// first NDEF message.
func (e *EEPROM) ReadNDEF(ctx context.Context) (*ndef.Message, error) {
	var off int64
	hdr := make([]byte, 4)
	for off < e.Size() {
		n, err := e.ReadAtContext(ctx, hdr, off)
		if n == 0 {
			return nil, fmt.Errorf("read TLV at 0x%03X: %w", off, err)
		}
		h := hdr[:n]

		switch h[0] {
		case tlvNull:
			off++
			continue
		case tlvTerminator, 0xFF:
			return nil, ErrNoNDEF
		}

		length, hdrLen, err := parseLength(h)
		if err != nil {
			return nil, fmt.Errorf("TLV at 0x%03X: %w", off, err)
		}
		if h[0] != tlvNDEF {
			off += int64(hdrLen + length)
			continue
		}
		if length == 0 {
			return nil, ErrNoNDEF
		}

		raw := make([]byte, length)
		if _, err := e.ReadAtContext(ctx, raw, off+int64(hdrLen)); err != nil {
			return nil, fmt.Errorf("read NDEF message: %w", err)
		}
		msg := &ndef.Message{}
		if _, err := msg.Unmarshal(raw); err != nil {
			return nil, fmt.Errorf("decode NDEF message: %w", err)
		}
		return msg, nil
	}
	return nil, ErrNoNDEF
}

// WriteNDEF stores msg as an NDEF TLV followed by a terminator at the start
// of memory.
func (e *EEPROM) WriteNDEF(ctx context.Context, msg *ndef.Message) error {
	raw, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("encode NDEF message: %w", err)
	}

	tlv := make([]byte, 0, len(raw)+5)
	tlv = append(tlv, tlvNDEF)
	if len(raw) < 0xFF {
		tlv = append(tlv, byte(len(raw)))
	} else {
		tlv = append(tlv, 0xFF, byte(len(raw)>>8), byte(len(raw)))
	}
	tlv = append(tlv, raw...)
	tlv = append(tlv, tlvTerminator)

	if int64(len(tlv)) > e.Size() {
		return fmt.Errorf("%w: %d bytes in %d", ErrNDEFTooLarge, len(tlv), e.Size())
	}
	if _, err := e.WriteAtContext(ctx, tlv, 0); err != nil {
		return fmt.Errorf("write NDEF message: %w", err)
	}
	return nil
}

// parseLength decodes the length field of the TLV header h (type byte
// first) and returns the value length and the header length.
func parseLength(h []byte) (length, hdrLen int, err error) {
	if len(h) < 2 {
		return 0, 0, ErrBadTLV
	}
	if h[1] != 0xFF {
		return int(h[1]), 2, nil
	}
	if len(h) < 4 {
		return 0, 0, ErrBadTLV
	}
	return int(h[2])<<8 | int(h[3]), 4, nil
}
