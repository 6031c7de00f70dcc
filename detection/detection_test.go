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

package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	err       error
	transport string
	infos     []Info
	block     bool
}

func (f *fakeDetector) Transport() string { return f.transport }

func (f *fakeDetector) Detect(ctx context.Context, _ *Options) ([]Info, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.infos, f.err
}

func TestDetect_MergesAndSorts(t *testing.T) {
	t.Parallel()

	serial := &fakeDetector{transport: "serial", infos: []Info{
		{Transport: "serial", Path: "/dev/ttyUSB1"},
		{Transport: "serial", Path: "/dev/ttyUSB0"},
	}}
	i2c := &fakeDetector{transport: "i2c", infos: []Info{{Transport: "i2c", Path: "/dev/i2c-1"}}}
	none := &fakeDetector{transport: "spi", err: ErrUnsupportedPlatform}

	opts := DefaultOptions()
	opts.IgnorePaths = []string{"/dev/ttyUSB1"}
	got, err := Detect(context.Background(), &opts, serial, none, i2c)
	require.NoError(t, err)

	paths := make([]string, 0, len(got))
	for _, info := range got {
		paths = append(paths, info.Path)
	}
	assert.Equal(t, []string{"/dev/i2c-1", "/dev/ttyUSB0"}, paths)
}

func TestDetect_Failures(t *testing.T) {
	t.Parallel()

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()
		_, err := Detect(context.Background(), nil, &fakeDetector{transport: "i2c", err: ErrNoDevicesFound})
		require.ErrorIs(t, err, ErrNoDevicesFound)
	})

	t.Run("detector error keeps earlier results", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		ok := &fakeDetector{transport: "i2c", infos: []Info{{Transport: "i2c", Path: "/dev/i2c-0"}}}
		got, err := Detect(context.Background(), nil, ok, &fakeDetector{transport: "serial", err: boom})
		require.ErrorIs(t, err, boom)
		assert.Len(t, got, 1)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		opts := Options{Timeout: time.Millisecond}
		_, err := Detect(context.Background(), &opts, &fakeDetector{transport: "i2c", block: true})
		require.ErrorIs(t, err, ErrDetectionTimeout)
	})
}

func TestBlocklist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		vid, pid string
		want     string
		blocked  bool
	}{
		{vid: "1366", pid: "0105", want: "1366:0105", blocked: true},
		{vid: "0d28", pid: "0204", want: "0D28:0204", blocked: true},
		{vid: "0x403", pid: "6001", want: "0403:6001"},
		{vid: "FT23", pid: "R", want: ""},
		{vid: "", pid: "6001", want: ""},
	}

	for _, tt := range tests {
		got := VIDPID(tt.vid, tt.pid)
		assert.Equal(t, tt.want, got, "%s:%s", tt.vid, tt.pid)
		assert.Equal(t, tt.blocked, IsBlocked(got, DefaultBlocklist()), "%s:%s", tt.vid, tt.pid)
	}

	assert.True(t, IsBlocked("0d28:0204", []string{"0D28:0204"}))
	assert.False(t, IsBlocked("0D28:0204", []string{"bogus"}))
}
