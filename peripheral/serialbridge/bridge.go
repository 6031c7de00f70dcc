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

package serialbridge

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	twi "github.com/ZaparooProject/go-twi"
	"github.com/ZaparooProject/go-twi/internal/frame"
	"github.com/ZaparooProject/go-twi/peripheral/xmega"
)

// DefaultRoundTrip is the assumed duration of one request/response pair,
// used to turn engine timeouts into poll counts.
const DefaultRoundTrip = time.Millisecond

// Bridge is a twi.Peripheral whose registers live behind a serial proxy.
// Link errors are reported through twi.FaultReporter; the call that failed
// returns a neutral value (an unknown bus, a zero byte). A failed status
// poll stays reported only until a later poll succeeds.
type Bridge struct {
	rw        io.ReadWriter
	closer    io.Closer
	fr        *frame.Reader
	log       *zap.Logger
	fault     error
	// pollFault is the link error of the last status poll, cleared by the
	// next poll that gets through.
	pollFault error
	name      string
	roundTrip time.Duration
	mu        sync.Mutex
}

var (
	_ twi.Peripheral    = (*Bridge)(nil)
	_ twi.PollTimer     = (*Bridge)(nil)
	_ twi.StateForcer   = (*Bridge)(nil)
	_ twi.FaultReporter = (*Bridge)(nil)
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Frames are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// WithRoundTrip sets the assumed round-trip time of one call.
func WithRoundTrip(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.roundTrip = d
		}
	}
}

// WithName names the link in errors.
func WithName(name string) Option {
	return func(b *Bridge) {
		b.name = name
	}
}

// New returns a Bridge talking over rw. If rw is an io.Closer, Close
// closes it.
func New(rw io.ReadWriter, opts ...Option) *Bridge {
	b := &Bridge{
		rw:        rw,
		fr:        frame.NewReader(rw),
		log:       zap.NewNop(),
		name:      "serialbridge",
		roundTrip: DefaultRoundTrip,
	}
	if c, ok := rw.(io.Closer); ok {
		b.closer = c
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open opens the serial port at path (8N1) and returns a Bridge on it.
func Open(path string, baud int, opts ...Option) (*Bridge, error) {
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(time.Second); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", path, err)
	}

	return New(&timeoutPort{Port: port}, append([]Option{WithName(path)}, opts...)...), nil
}

// timeoutPort turns the (0, nil) result go.bug.st/serial returns on a read
// timeout into an error, so a silent proxy cannot stall a frame read.
type timeoutPort struct {
	serial.Port
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil {
		return 0, errReadTimeout
	}
	return n, err
}

var errReadTimeout = fmt.Errorf("read timeout: %w", io.ErrNoProgress)

// Close closes the underlying link.
func (b *Bridge) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// String returns the link name.
func (b *Bridge) String() string {
	return b.name
}

// call sends one request and returns the response payload after the
// response code.
func (b *Bridge) call(op byte, args ...byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	req, err := frame.Encode(frame.HostToProxy, append([]byte{op}, args...))
	if err != nil {
		return nil, err
	}
	if _, err := b.rw.Write(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	tfi, resp, err := b.fr.Read()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	b.log.Debug("bridge call",
		zap.String("link", b.name),
		zap.Binary("request", req),
		zap.Binary("response", resp))

	switch {
	case tfi != frame.ProxyToHost || len(resp) == 0:
		return nil, fmt.Errorf("tfi 0x%02X: %w", tfi, ErrUnexpectedAnswer)
	case resp[0] == OpError && len(resp) >= 3:
		return nil, &ProxyError{Op: resp[1], Reason: resp[2]}
	case resp[0] != op+1:
		return nil, fmt.Errorf("response 0x%02X to op 0x%02X: %w", resp[0], op, ErrUnexpectedAnswer)
	}
	return resp[1:], nil
}

// exchange runs a call and checks the response length.
func (b *Bridge) exchange(op byte, want int, args ...byte) ([]byte, error) {
	resp, err := b.call(op, args...)
	if err == nil && len(resp) < want {
		err = fmt.Errorf("short response to op 0x%02X: %w", op, ErrUnexpectedAnswer)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	return resp, nil
}

// do runs a call and keeps its error as the pending fault.
func (b *Bridge) do(op byte, want int, args ...byte) []byte {
	resp, err := b.exchange(op, want, args...)
	if err != nil {
		b.mu.Lock()
		b.fault = err
		b.mu.Unlock()
		return nil
	}
	return resp
}

// WriteAddress implements twi.Peripheral.
func (b *Bridge) WriteAddress(v byte) { b.do(OpWriteAddress, 0, v) }

// WriteData implements twi.Peripheral.
func (b *Bridge) WriteData(v byte) { b.do(OpWriteData, 0, v) }

// ReadData implements twi.Peripheral.
func (b *Bridge) ReadData() byte {
	resp := b.do(OpReadData, 1)
	if resp == nil {
		return 0
	}
	return resp[0]
}

// Status implements twi.Peripheral. The proxy answers with the raw XMEGA
// status register encoding.
func (b *Bridge) Status() twi.Status {
	resp, err := b.exchange(OpStatus, 1)
	b.mu.Lock()
	b.pollFault = err
	b.mu.Unlock()
	if err != nil {
		return twi.Status{State: twi.BusUnknown}
	}
	return xmega.DecodeStatus(resp[0])
}

// Command implements twi.Peripheral.
func (b *Bridge) Command(c twi.Command) { b.do(OpCommand, 0, xmega.EncodeCommand(c)) }

// Configure implements twi.Peripheral.
func (b *Bridge) Configure(c twi.PeripheralConfig) {
	b.do(OpConfigure, 0, c.Baud, byte(c.Ack), byte(c.Timeout))
}

// Enable implements twi.Peripheral.
func (b *Bridge) Enable() { b.do(OpEnable, 0) }

// Disable implements twi.Peripheral.
func (b *Bridge) Disable() { b.do(OpDisable, 0) }

// ForceState implements twi.StateForcer.
func (b *Bridge) ForceState(s twi.BusState) { b.do(OpForceState, 0, byte(s)) }

// Polls implements twi.PollTimer. Every status poll is a round trip.
func (b *Bridge) Polls(timeout time.Duration) int {
	n := int((timeout + b.roundTrip - 1) / b.roundTrip)
	if n < 1 {
		n = 1
	}
	return n
}

// Pause implements twi.PollTimer. The round trip of the next poll is the
// pause.
func (*Bridge) Pause() {}

// Fault implements twi.FaultReporter.
func (b *Bridge) Fault() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.fault
	if err == nil {
		err = b.pollFault
	}
	b.fault, b.pollFault = nil, nil
	return err
}
