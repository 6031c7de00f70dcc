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

// Package polling watches slaves on a twi bus and reports arrivals,
// removals, and register value changes.
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	twi "github.com/ZaparooProject/go-twi"
)

// Bus is the part of *twi.Bus the monitor uses.
type Bus interface {
	Probe(ctx context.Context, addr twi.Addr) error
	ReadRegisters(ctx context.Context, addr twi.Addr, reg byte, buf []byte) error
}

// Config controls polling.
type Config struct {
	// PollInterval separates two cycles while some slave is present.
	PollInterval time.Duration
	// IdleInterval separates two cycles once nothing has answered for
	// IdleAfter.
	IdleInterval time.Duration
	IdleAfter    time.Duration
	// RemovalTimeout is how long a slave may stop answering before it is
	// reported removed. Zero removes it on the first miss.
	RemovalTimeout time.Duration
}

// DefaultConfig returns the default polling configuration.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:   50 * time.Millisecond,
		IdleInterval:   250 * time.Millisecond,
		IdleAfter:      5 * time.Second,
		RemovalTimeout: 200 * time.Millisecond,
	}
}

// Watch names what to poll. A zero Len only probes the address.
type Watch struct {
	Addr twi.Addr
	Reg  byte
	Len  int
}

func (w Watch) String() string {
	if w.Len == 0 {
		return w.Addr.String()
	}
	return fmt.Sprintf("%s reg 0x%02X+%d", w.Addr, w.Reg, w.Len)
}

// Metrics counts polling activity.
type Metrics struct {
	PollCycles      int64
	PollErrors      int64
	Detections      int64
	LastPollLatency time.Duration
}

// Monitor polls a fixed set of watches. Callbacks run on the polling
// goroutine.
type Monitor struct {
	bus              Bus
	config           *Config
	log              *zap.Logger
	OnDeviceDetected func(w Watch, value []byte)
	OnDeviceRemoved  func(w Watch)
	OnValueChanged   func(w Watch, old, value []byte)
	states           map[Watch]*SlaveState
	watches          []Watch
	now              func() time.Time
	lastSeen         time.Time
	mu               sync.Mutex
	pollCycles       atomic.Int64
	pollErrors       atomic.Int64
	detections       atomic.Int64
	lastPollLatency  atomic.Int64
}

// NewMonitor creates a monitor for watches on bus. A nil config uses
// DefaultConfig.
func NewMonitor(bus Bus, config *Config, watches ...Watch) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	m := &Monitor{
		bus:     bus,
		config:  config,
		log:     zap.NewNop(),
		watches: watches,
		states:  make(map[Watch]*SlaveState, len(watches)),
		now:     time.Now,
	}
	for _, w := range watches {
		m.states[w] = &SlaveState{}
	}
	m.lastSeen = m.now()
	return m
}

// SetLogger sets the logger used for polling errors.
func (m *Monitor) SetLogger(l *zap.Logger) {
	if l != nil {
		m.log = l
	}
}

// Start polls until ctx is done and returns ctx.Err().
func (m *Monitor) Start(ctx context.Context) error {
	for {
		if err := m.Poll(ctx); err != nil && ctx.Err() == nil {
			m.log.Debug("poll cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.Interval()):
		}
	}
}

// Interval returns the wait before the next cycle: PollInterval, or
// IdleInterval once nothing has answered for IdleAfter.
func (m *Monitor) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.IdleInterval > 0 && m.now().Sub(m.lastSeen) > m.config.IdleAfter {
		return m.config.IdleInterval
	}
	return m.config.PollInterval
}

// Poll runs one cycle over every watch. A nack counts as a miss; other bus
// failures leave the watch's state unchanged and are returned joined.
func (m *Monitor) Poll(ctx context.Context) error {
	start := m.now()
	defer func() {
		m.pollCycles.Add(1)
		m.lastPollLatency.Store(int64(m.now().Sub(start)))
	}()

	var errs []error
	for _, w := range m.watches {
		if err := ctx.Err(); err != nil {
			return err
		}

		value, err := m.read(ctx, w)
		switch {
		case err == nil:
			m.seen(w, value)
		case twi.IsNack(err):
			m.missed(w)
		default:
			m.pollErrors.Add(1)
			errs = append(errs, fmt.Errorf("poll %s: %w", w, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Monitor) read(ctx context.Context, w Watch) ([]byte, error) {
	if w.Len == 0 {
		return nil, m.bus.Probe(ctx, w.Addr)
	}
	buf := make([]byte, w.Len)
	if err := m.bus.ReadRegisters(ctx, w.Addr, w.Reg, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (m *Monitor) seen(w Watch, value []byte) {
	m.mu.Lock()
	st := m.states[w]
	wasPresent := st.Present()
	old := append([]byte(nil), st.Value...)
	now := m.now()
	changed := st.TransitionToPresent(now, value)
	m.lastSeen = now
	m.mu.Unlock()

	switch {
	case !wasPresent:
		m.detections.Add(1)
		if m.OnDeviceDetected != nil {
			m.OnDeviceDetected(w, value)
		}
	case changed && m.OnValueChanged != nil:
		m.OnValueChanged(w, old, value)
	}
}

func (m *Monitor) missed(w Watch) {
	m.mu.Lock()
	removed := m.states[w].TransitionToMissing(m.now(), m.config.RemovalTimeout)
	m.mu.Unlock()

	if removed && m.OnDeviceRemoved != nil {
		m.OnDeviceRemoved(w)
	}
}

// GetState returns a copy of the state of w.
func (m *Monitor) GetState(w Watch) (SlaveState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[w]
	if !ok {
		return SlaveState{}, false
	}
	cp := *st
	cp.Value = append([]byte(nil), st.Value...)
	return cp, true
}

// GetMetrics returns the current counters.
func (m *Monitor) GetMetrics() Metrics {
	return Metrics{
		PollCycles:      m.pollCycles.Load(),
		PollErrors:      m.pollErrors.Load(),
		Detections:      m.detections.Load(),
		LastPollLatency: time.Duration(m.lastPollLatency.Load()),
	}
}
