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
	"fmt"
	"sync"
	"time"
)

// MockOp is one register access recorded by MockPeripheral.
type MockOp struct {
	Kind   string
	Value  byte
	Cmd    Command
	Config PeripheralConfig
}

func (o MockOp) String() string {
	switch o.Kind {
	case "cmd":
		return "cmd " + o.Cmd.String()
	case "configure":
		return fmt.Sprintf("configure baud=%d ack=%s timeout=%s", o.Config.Baud, o.Config.Ack, o.Config.Timeout)
	case "enable", "disable":
		return o.Kind
	default:
		return fmt.Sprintf("%s 0x%02X", o.Kind, o.Value)
	}
}

// MockPeripheral is a scripted Peripheral for exercising the engine
// register by register. Status answers come from Script, one per read, and
// fall back to Steady once the script is exhausted. Every write is recorded.
// It implements PollTimer with a fixed Budget and counts pauses instead of
// waiting.
type MockPeripheral struct {
	FaultErr    error
	Script      []Status
	Data        []byte
	Ops         []MockOp
	Steady      Status
	Budget      int
	StatusReads int
	Pauses      int
	mu          sync.Mutex
}

// NewMockPeripheral returns a mock whose bus reads idle until scripted
// otherwise, with a budget of ten polls.
func NewMockPeripheral() *MockPeripheral {
	return &MockPeripheral{
		Steady: Status{State: BusIdle},
		Budget: 10,
	}
}

// Queue appends status answers to the script.
func (m *MockPeripheral) Queue(s ...Status) *MockPeripheral {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Script = append(m.Script, s...)
	return m
}

// Recorded returns a copy of the recorded register traffic.
func (m *MockPeripheral) Recorded() []MockOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockOp(nil), m.Ops...)
}

// Reset clears the recorded traffic and counters but keeps the script.
func (m *MockPeripheral) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = nil
	m.StatusReads = 0
	m.Pauses = 0
}

func (m *MockPeripheral) record(op MockOp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, op)
}

// WriteAddress implements Peripheral.
func (m *MockPeripheral) WriteAddress(b byte) { m.record(MockOp{Kind: "addr", Value: b}) }

// WriteData implements Peripheral.
func (m *MockPeripheral) WriteData(b byte) { m.record(MockOp{Kind: "data", Value: b}) }

// ReadData implements Peripheral. It pops the next queued byte, 0xFF when
// none is left.
func (m *MockPeripheral) ReadData() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Data) == 0 {
		return 0xFF
	}
	b := m.Data[0]
	m.Data = m.Data[1:]
	return b
}

// Status implements Peripheral.
func (m *MockPeripheral) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusReads++
	if len(m.Script) == 0 {
		return m.Steady
	}
	s := m.Script[0]
	m.Script = m.Script[1:]
	return s
}

// Command implements Peripheral.
func (m *MockPeripheral) Command(c Command) { m.record(MockOp{Kind: "cmd", Cmd: c}) }

// Configure implements Peripheral.
func (m *MockPeripheral) Configure(c PeripheralConfig) {
	m.record(MockOp{Kind: "configure", Config: c})
}

// Enable implements Peripheral.
func (m *MockPeripheral) Enable() { m.record(MockOp{Kind: "enable"}) }

// Disable implements Peripheral.
func (m *MockPeripheral) Disable() { m.record(MockOp{Kind: "disable"}) }

// Polls implements PollTimer.
func (m *MockPeripheral) Polls(time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Budget
}

// Pause implements PollTimer.
func (m *MockPeripheral) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pauses++
}

// ForceState implements StateForcer.
func (m *MockPeripheral) ForceState(s BusState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Steady.State = s
}

// Fault implements FaultReporter.
func (m *MockPeripheral) Fault() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.FaultErr
	m.FaultErr = nil
	return err
}
