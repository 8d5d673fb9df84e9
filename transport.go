// Copyright 2026 The OpenGalaxy Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package galaxy7

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Transport is the byte-level connection to the keypad bus. The engine
// never blocks on it: Write sends a complete frame, ReadAvailable returns
// whatever inbound bytes have accumulated (possibly none), and Now supplies
// the monotonic clock every engine deadline is computed against. Supplying
// the clock through the transport lets a simulated bus control time in
// tests.
type Transport interface {
	// Write sends raw bytes on the bus.
	Write(data []byte) error

	// ReadAvailable drains and returns any buffered inbound bytes without
	// blocking. An empty slice with a nil error means nothing has arrived.
	ReadAvailable() ([]byte, error)

	// Now returns the transport's monotonic clock reading.
	Now() time.Time

	// Close closes the transport connection
	Close() error

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TransportWithRetry wraps a Transport and retries failed writes. Retries
// sleep between attempts, so a wrapped transport trades tick cadence for
// delivery; the engine's deadlines are re-read each tick and absorb the
// stretch. Intended for flaky USB RS485 adapters.
type TransportWithRetry struct {
	transport Transport
	config    *RetryConfig
}

// NewTransportWithRetry creates a new transport wrapper with retry logic
func NewTransportWithRetry(transport Transport, config *RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransportWithRetry{
		transport: transport,
		config:    config,
	}
}

// Write sends bytes with retry on transient failures.
func (t *TransportWithRetry) Write(data []byte) error {
	return RetryWithConfig(context.Background(), t.config, func() error {
		if err := t.transport.Write(data); err != nil {
			return &TransportError{
				Op:        "Write",
				Err:       err,
				Type:      errorTypeOf(err),
				Retryable: IsRetryable(err),
			}
		}
		return nil
	})
}

// errorTypeOf classifies an error for wrapping purposes.
func errorTypeOf(err error) ErrorType {
	if IsFatal(err) {
		return ErrorTypePermanent
	}
	return ErrorTypeTransient
}

// ReadAvailable drains the underlying transport. Reads are not retried: a
// failed drain just means no bytes this tick.
func (t *TransportWithRetry) ReadAvailable() ([]byte, error) {
	data, err := t.transport.ReadAvailable()
	if err != nil {
		return nil, fmt.Errorf("read through retry wrapper: %w", err)
	}
	return data, nil
}

// Now returns the underlying transport's clock.
func (t *TransportWithRetry) Now() time.Time {
	return t.transport.Now()
}

// Close closes the transport connection
func (t *TransportWithRetry) Close() error {
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transport: %w", err)
	}
	return nil
}

// Type returns the transport type
func (t *TransportWithRetry) Type() TransportType {
	return t.transport.Type()
}

// SetRetryConfig updates the retry configuration
func (t *TransportWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}

// MockTransport provides a mock implementation of Transport for testing.
// It owns a manual clock: deadlines only move when the test calls Advance.
// Replies configured per opcode are queued for ReadAvailable whenever a
// frame with that opcode is written, mimicking the keypad answering a poll.
type MockTransport struct {
	now       time.Time
	replies   map[byte][]byte
	callCount map[byte]int
	writeErr  error
	readErr   error
	sent      [][]byte
	queued    [][]byte
	pending   []byte
	mu        sync.RWMutex
	connected bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		connected: true,
		now:       time.Now(),
		replies:   make(map[byte][]byte),
		callCount: make(map[byte]int),
	}
}

// Write implements Transport interface
func (m *MockTransport) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("mock write: %w", ErrTransportClosed)
	}
	if m.writeErr != nil {
		return m.writeErr
	}

	frame := make([]byte, len(data))
	copy(frame, data)
	m.sent = append(m.sent, frame)

	var opcode byte
	if len(data) >= 2 {
		opcode = data[1]
	}
	m.callCount[opcode]++

	// Queued replies win over per-opcode replies
	if len(m.queued) > 0 {
		m.pending = append(m.pending, m.queued[0]...)
		m.queued = m.queued[1:]
		return nil
	}
	if reply, ok := m.replies[opcode]; ok {
		m.pending = append(m.pending, reply...)
	}
	return nil
}

// ReadAvailable implements Transport interface
func (m *MockTransport) ReadAvailable() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, fmt.Errorf("mock read: %w", ErrTransportClosed)
	}
	if m.readErr != nil {
		return nil, m.readErr
	}
	if len(m.pending) == 0 {
		return nil, nil
	}
	out := m.pending
	m.pending = nil
	return out, nil
}

// Now implements Transport interface
func (m *MockTransport) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Close implements Transport interface
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// Type implements Transport interface
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Test helper methods

// Advance moves the mock clock forward
func (m *MockTransport) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// SetReply configures the reply delivered after every frame carrying the
// given opcode
func (m *MockTransport) SetReply(opcode byte, reply []byte) {
	m.mu.Lock()
	m.replies[opcode] = append([]byte(nil), reply...)
	m.mu.Unlock()
}

// ClearReply removes the configured reply for an opcode
func (m *MockTransport) ClearReply(opcode byte) {
	m.mu.Lock()
	delete(m.replies, opcode)
	m.mu.Unlock()
}

// QueueReply queues a one-shot reply consumed by the next write, whatever
// its opcode
func (m *MockTransport) QueueReply(reply []byte) {
	m.mu.Lock()
	m.queued = append(m.queued, append([]byte(nil), reply...))
	m.mu.Unlock()
}

// InjectBytes makes bytes available to the next ReadAvailable without any
// write having happened (unsolicited bus noise)
func (m *MockTransport) InjectBytes(data []byte) {
	m.mu.Lock()
	m.pending = append(m.pending, data...)
	m.mu.Unlock()
}

// SetWriteError configures Write to fail; pass nil to clear
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// SetReadError configures ReadAvailable to fail; pass nil to clear
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// SentFrames returns a copy of every frame written so far
func (m *MockTransport) SentFrames() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.sent))
	for i, f := range m.sent {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// LastSent returns the most recently written frame, or nil
func (m *MockTransport) LastSent() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.sent) == 0 {
		return nil
	}
	return append([]byte(nil), m.sent[len(m.sent)-1]...)
}

// CallCount returns how many frames carried the given opcode
func (m *MockTransport) CallCount(opcode byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount[opcode]
}

// Reset clears recorded frames, counts and pending bytes
func (m *MockTransport) Reset() {
	m.mu.Lock()
	m.sent = nil
	m.queued = nil
	m.pending = nil
	m.callCount = make(map[byte]int)
	m.connected = true
	m.writeErr = nil
	m.readErr = nil
	m.mu.Unlock()
}

// Verify interface implementation
var (
	_ Transport = (*MockTransport)(nil)
	_ Transport = (*TransportWithRetry)(nil)
)
