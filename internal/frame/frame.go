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

package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Frame errors
var (
	ErrDataTooLarge     = errors.New("frame data too large")
	ErrFrameCorrupted   = errors.New("frame corrupted")
	ErrChecksumMismatch = errors.New("frame checksum mismatch")
)

// Encode builds 00 00 FF LEN LCS TFI DATA... DCS 00.
func Encode(tfi byte, data []byte) ([]byte, error) {
	if len(data) > MaxFrameDataLength-1 {
		return nil, fmt.Errorf("%d bytes: %w", len(data), ErrDataTooLarge)
	}

	length := byte(len(data) + 1)
	out := make([]byte, 0, MinFrameLength+len(data))
	out = append(out, Preamble, StartCode1, StartCode2, length, CalculateLengthChecksum(length), tfi)
	out = append(out, data...)
	out = append(out, CalculateDataChecksum(tfi, data), Postamble)
	return out, nil
}

// Reader decodes frames from a byte stream, skipping noise before the
// start code.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Read returns the TFI and data of the next frame.
func (fr *Reader) Read() (byte, []byte, error) {
	if err := fr.sync(); err != nil {
		return 0, nil, err
	}

	var hdr [2]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return 0, nil, err
	}
	length, lcs := hdr[0], hdr[1]
	if length+lcs != 0 {
		return 0, nil, fmt.Errorf("length 0x%02X lcs 0x%02X: %w", length, lcs, ErrChecksumMismatch)
	}
	if length == 0 {
		return 0, nil, fmt.Errorf("empty frame: %w", ErrFrameCorrupted)
	}

	body := make([]byte, int(length)+2) // TFI, data, DCS, postamble
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return 0, nil, err
	}
	if ValidateChecksum(body[:len(body)-1]) {
		return 0, nil, fmt.Errorf("data: %w", ErrChecksumMismatch)
	}
	if body[len(body)-1] != Postamble {
		return 0, nil, fmt.Errorf("postamble 0x%02X: %w", body[len(body)-1], ErrFrameCorrupted)
	}

	return body[0], body[1 : len(body)-2], nil
}

// sync consumes bytes up to and including the 00 FF start code.
func (fr *Reader) sync() error {
	prev := byte(0xFF)
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return err
		}
		if prev == StartCode1 && b == StartCode2 {
			return nil
		}
		prev = b
	}
}
