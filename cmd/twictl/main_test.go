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

package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	twi "github.com/ZaparooProject/go-twi"
	"github.com/ZaparooProject/go-twi/internal/config"
	"github.com/ZaparooProject/go-twi/polling"
)

// newTestApp returns an app on a fresh simulated bus.
func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	a := newApp(config.Default(), zap.NewNop(), out)
	block := newSimPeripheral()
	a.open = func(context.Context) (twi.Peripheral, io.Closer, error) {
		return block, nopCloser{}, nil
	}
	return a, out
}

func TestRun_Scan(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-adapter", "sim", "scan"}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Equal(t, "0x48\n0x50\n", out.String())
}

func TestRun_Usage(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 2, run(nil, &out, &errOut))
	assert.Contains(t, errOut.String(), "usage: twictl")

	errOut.Reset()
	assert.Equal(t, 2, run([]string{"-adapter", "sim", "frobnicate"}, &out, &errOut))
	assert.Contains(t, errOut.String(), "usage: twictl")
}

func TestApp_WriteThenRead(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"write", "0x48", "0x10", "0xDE", "0xAD"}))
	require.NoError(t, a.run(ctx, []string{"read", "0x48", "0x10", "2"}))
	assert.Equal(t, "DE AD\n", out.String())
}

func TestApp_Dump(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t)
	require.NoError(t, a.run(context.Background(), []string{"dump", "0x50"}))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 17)
	assert.Equal(t, "00: ff ff ff ff ff ff ff ff ff ff ff ff ff ff ff ff", lines[1])
	assert.True(t, strings.HasPrefix(lines[16], "f0: "))
}

func TestApp_NDEF(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"ndef", "write", "hello"}))
	require.NoError(t, a.run(ctx, []string{"ndef", "read"}))
	assert.Contains(t, out.String(), "hello")
}

func TestApp_AbsentSlave(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t)
	err := a.run(context.Background(), []string{"read", "0x21", "0x00"})
	assert.True(t, twi.IsNack(err))
}

func TestApp_BadArguments(t *testing.T) {
	t.Parallel()

	tests := [][]string{
		{"read", "0x48"},
		{"read", "0x80", "0x00"},
		{"read", "0x48", "0x00", "0"},
		{"write", "0x48", "0x00", "0x100"},
		{"dump"},
		{"ndef", "erase"},
		{"watch"},
		{"serve"},
	}
	for _, args := range tests {
		a, _ := newTestApp(t)
		err := a.run(context.Background(), args)
		assert.ErrorIs(t, err, errUsage, "%v", args)
	}
}

func TestParseWatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    polling.Watch
		wantErr bool
	}{
		{in: "0x48", want: polling.Watch{Addr: 0x48}},
		{in: "0x48:0x10", want: polling.Watch{Addr: 0x48, Reg: 0x10, Len: 1}},
		{in: "72:16:4", want: polling.Watch{Addr: 0x48, Reg: 0x10, Len: 4}},
		{in: "0x48:0x10:0", wantErr: true},
		{in: "0x48:1:2:3", wantErr: true},
		{in: "zz", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseWatch(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, errUsage, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBusConfig(t *testing.T) {
	t.Parallel()

	bc := config.Default().Bus
	bc.InactiveTimeout = "100us"
	cfg, err := busConfig(bc)
	require.NoError(t, err)
	assert.Equal(t, twi.Timeout100us, cfg.Timeout)
	baud, err := twi.Baud(cfg.SystemClock, cfg.Speed)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), baud)

	bc.InactiveTimeout = "1ms"
	_, err = busConfig(bc)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestPeriphBusName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1", periphBusName("/dev/i2c-1"))
	assert.Equal(t, "I2C0", periphBusName("I2C0"))
	assert.Empty(t, periphBusName(""))
}
