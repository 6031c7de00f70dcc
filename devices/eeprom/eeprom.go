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

// Package eeprom drives 24Cxx serial EEPROMs with one-byte word addresses
// (24C01 to 24C16) on a twi bus. Parts larger than 256 bytes answer on one
// slave address per 256-byte block, starting at the base address.
package eeprom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	twi "github.com/ZaparooProject/go-twi"
)

// DefaultBase is the usual slave address of a 24Cxx with its address pins
// tied low.
const DefaultBase twi.Addr = 0x50

// ackPollInterval separates two probes while waiting for a write cycle.
const ackPollInterval = 100 * time.Microsecond

// Errors
var (
	ErrInvalidConfig = errors.New("invalid eeprom configuration")
	ErrInvalidWhence = errors.New("invalid whence")
	ErrNegativeSeek  = errors.New("negative position")
	ErrSeekRange     = errors.New("position beyond end of memory")
	ErrWriteTimeout  = errors.New("write cycle did not finish in time")
)

// Config describes a part.
type Config struct {
	// Size is the memory size in bytes.
	Size int
	// PageSize is the page write buffer size in bytes, a power of two.
	PageSize int
	// WriteTimeout bounds the wait for a write cycle to finish.
	WriteTimeout time.Duration
}

// Common parts.
var (
	Conf24C01 = Config{Size: 128, PageSize: 8, WriteTimeout: 10 * time.Millisecond}
	Conf24C02 = Config{Size: 256, PageSize: 8, WriteTimeout: 10 * time.Millisecond}
	Conf24C04 = Config{Size: 512, PageSize: 16, WriteTimeout: 10 * time.Millisecond}
	Conf24C08 = Config{Size: 1024, PageSize: 16, WriteTimeout: 10 * time.Millisecond}
	Conf24C16 = Config{Size: 2048, PageSize: 16, WriteTimeout: 10 * time.Millisecond}
)

// Validate checks that c describes a part this package can drive.
func (c Config) Validate() error {
	switch {
	case c.Size <= 0 || c.Size > 2048:
		return fmt.Errorf("%w: size %d", ErrInvalidConfig, c.Size)
	case c.PageSize <= 0 || c.PageSize&(c.PageSize-1) != 0 || c.PageSize > 256:
		return fmt.Errorf("%w: page size %d", ErrInvalidConfig, c.PageSize)
	case c.WriteTimeout <= 0:
		return fmt.Errorf("%w: write timeout %v", ErrInvalidConfig, c.WriteTimeout)
	}
	return nil
}

// Bus is the part of *twi.Bus the driver uses.
type Bus interface {
	ReadRegisters(ctx context.Context, addr twi.Addr, reg byte, buf []byte) error
	WriteRegisters(ctx context.Context, addr twi.Addr, reg byte, data []byte) error
	Probe(ctx context.Context, addr twi.Addr) error
}

// EEPROM is a 24Cxx part. It implements io.ReadWriteSeeker over a file
// position, and io.ReaderAt / io.WriterAt. It is not safe for concurrent use.
type EEPROM struct {
	bus  Bus
	cfg  Config
	pos  int64
	base twi.Addr
}

var (
	_ io.ReadWriteSeeker = (*EEPROM)(nil)
	_ io.ReaderAt        = (*EEPROM)(nil)
	_ io.WriterAt        = (*EEPROM)(nil)
)

// New returns the part at base on bus.
func New(bus Bus, base twi.Addr, cfg Config) (*EEPROM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	blocks := twi.Addr((cfg.Size + 255) / 256)
	if !base.Valid() || base+blocks-1 > twi.MaxAddr {
		return nil, fmt.Errorf("%w: base %s", twi.ErrInvalidAddress, base)
	}
	return &EEPROM{bus: bus, cfg: cfg, base: base}, nil
}

// Size returns the memory size in bytes.
func (e *EEPROM) Size() int64 {
	return int64(e.cfg.Size)
}

// locate returns the slave address and word address of off.
func (e *EEPROM) locate(off int64) (addr twi.Addr, word byte) {
	return e.base + twi.Addr(off>>8), byte(off)
}

// Read implements io.Reader.
func (e *EEPROM) Read(p []byte) (int, error) {
	n, err := e.ReadAtContext(context.Background(), p, e.pos)
	e.pos += int64(n)
	return n, err
}

// Write implements io.Writer.
func (e *EEPROM) Write(p []byte) (int, error) {
	n, err := e.WriteAtContext(context.Background(), p, e.pos)
	e.pos += int64(n)
	return n, err
}

// Seek implements io.Seeker. Positions outside [0, Size] are rejected.
func (e *EEPROM) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = e.pos + offset
	case io.SeekEnd:
		next = e.Size() + offset
	default:
		return e.pos, ErrInvalidWhence
	}

	if next < 0 {
		return e.pos, ErrNegativeSeek
	}
	if next > e.Size() {
		return e.pos, ErrSeekRange
	}
	e.pos = next
	return next, nil
}

// ReadAt implements io.ReaderAt.
func (e *EEPROM) ReadAt(p []byte, off int64) (int, error) {
	return e.ReadAtContext(context.Background(), p, off)
}

// WriteAt implements io.WriterAt.
func (e *EEPROM) WriteAt(p []byte, off int64) (int, error) {
	return e.WriteAtContext(context.Background(), p, off)
}

// ReadAtContext reads len(p) bytes at off, one transaction per 256-byte
// block. Reading at or past the end returns io.EOF.
func (e *EEPROM) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeSeek
	}
	if off >= e.Size() {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	var n int
	for n < len(p) && off < e.Size() {
		chunk := min(len(p)-n, 256-int(off&0xFF), int(e.Size()-off))
		addr, word := e.locate(off)
		if err := e.bus.ReadRegisters(ctx, addr, word, p[n:n+chunk]); err != nil {
			return n, fmt.Errorf("read %d bytes at 0x%03X: %w", chunk, off, err)
		}
		n += chunk
		off += int64(chunk)
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAtContext writes p at off one page at a time, waiting for each write
// cycle to finish by polling the part's address. Writing past the end
// stores what fits and returns io.ErrShortWrite.
func (e *EEPROM) WriteAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeSeek
	}

	var n int
	for n < len(p) && off < e.Size() {
		page := int64(e.cfg.PageSize)
		chunk := min(len(p)-n, int(page-off%page), int(e.Size()-off))
		addr, word := e.locate(off)
		if err := e.bus.WriteRegisters(ctx, addr, word, p[n:n+chunk]); err != nil {
			return n, fmt.Errorf("write %d bytes at 0x%03X: %w", chunk, off, err)
		}
		if err := e.awaitWriteCycle(ctx, addr); err != nil {
			return n, fmt.Errorf("write %d bytes at 0x%03X: %w", chunk, off, err)
		}
		n += chunk
		off += int64(chunk)
	}

	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// awaitWriteCycle probes addr until the part acknowledges again. The part
// ignores its address while the internal write cycle runs.
func (e *EEPROM) awaitWriteCycle(ctx context.Context, addr twi.Addr) error {
	deadline := time.Now().Add(e.cfg.WriteTimeout)
	for {
		err := e.bus.Probe(ctx, addr)
		if err == nil || !twi.IsNack(err) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %w", ErrWriteTimeout, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ackPollInterval):
		}
	}
}
