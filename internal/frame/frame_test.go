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
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	got, err := Encode(HostToProxy, []byte{0x04})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x04, 0x28, 0x00}, got)

	_, err = Encode(HostToProxy, make([]byte, MaxFrameDataLength))
	require.ErrorIs(t, err, ErrDataTooLarge)
}

func TestReader(t *testing.T) {
	t.Parallel()

	a, err := Encode(ProxyToHost, []byte{0x01, 0x42})
	require.NoError(t, err)
	b, err := Encode(HostToProxy, nil)
	require.NoError(t, err)

	// line noise before the first frame is skipped
	stream := append([]byte{0x55, 0xFF, 0x13}, a...)
	stream = append(stream, b...)
	fr := NewReader(bytes.NewReader(stream))

	tfi, data, err := fr.Read()
	require.NoError(t, err)
	assert.Equal(t, byte(ProxyToHost), tfi)
	assert.Equal(t, []byte{0x01, 0x42}, data)

	tfi, data, err = fr.Read()
	require.NoError(t, err)
	assert.Equal(t, byte(HostToProxy), tfi)
	assert.Empty(t, data)

	_, _, err = fr.Read()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_Corrupted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func([]byte)
		wantErr error
	}{
		{name: "length checksum", mutate: func(f []byte) { f[4]++ }, wantErr: ErrChecksumMismatch},
		{name: "data checksum", mutate: func(f []byte) { f[6] ^= 0x01 }, wantErr: ErrChecksumMismatch},
		{name: "postamble", mutate: func(f []byte) { f[len(f)-1] = 0x55 }, wantErr: ErrFrameCorrupted},
		{name: "truncated", mutate: nil, wantErr: io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := Encode(HostToProxy, []byte{0x10, 0x20})
			require.NoError(t, err)
			if tt.mutate != nil {
				tt.mutate(f)
			} else {
				f = f[:len(f)-3]
			}

			_, _, err = NewReader(bytes.NewReader(f)).Read()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
