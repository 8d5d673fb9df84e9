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

// Package uart implements the serial transport for the Galaxy keypad bus.
// The bus is RS485 half-duplex at a fixed 9600 baud; transceiver direction
// is keyed either by the kernel RS485 driver mode or by a GPIO TX enable
// pin.
package uart

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/OpenGalaxyProject/go-galaxy7"
)

// Galaxy keypads talk 9600 baud, 8 data bits, no parity, one stop bit.
// Other rates are not negotiable on the Mk7 bus.
const busBaudRate = 9600

// readBufferSize comfortably holds the largest frame on the bus plus
// whatever noise precedes it
const readBufferSize = 256

// Transport implements the galaxy7.Transport interface for an RS485
// serial port
type Transport struct {
	port     serial.Port
	txEnable *txEnablePin
	portName string
	mu       sync.Mutex
	closed   bool
}

type config struct {
	readTimeout time.Duration
	txEnablePin string
	kernelRS485 bool
}

// Option configures the transport at open time
type Option func(*config)

// WithReadTimeout overrides how long a read waits for bus bytes before
// returning empty. The default sits well under the engine tick interval.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.readTimeout = timeout
	}
}

// WithTXEnablePin drives the RS485 transceiver's DE/RE pair from the
// named GPIO line around every write, for transceivers the UART cannot
// key itself.
func WithTXEnablePin(name string) Option {
	return func(c *config) {
		c.txEnablePin = name
	}
}

// WithKernelRS485 puts the tty driver in RS485 half-duplex mode before
// opening, with RTS keying the transceiver. Linux only.
func WithKernelRS485() Option {
	return func(c *config) {
		c.kernelRS485 = true
	}
}

// defaultReadTimeout returns the serial read timeout. Reads poll the OS
// buffer once per engine tick; Windows drivers need a longer grace.
func defaultReadTimeout() time.Duration {
	if runtime.GOOS == "windows" {
		return 10 * time.Millisecond
	}
	return 5 * time.Millisecond
}

// New opens the named serial port for the keypad bus
func New(portName string, opts ...Option) (*Transport, error) {
	cfg := config{readTimeout: defaultReadTimeout()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.kernelRS485 {
		if err := configureKernelRS485(portName); err != nil {
			return nil, err
		}
	}

	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: busBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(cfg.readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	t := &Transport{
		port:     port,
		portName: portName,
	}

	if cfg.txEnablePin != "" {
		pin, pinErr := openTXEnablePin(cfg.txEnablePin)
		if pinErr != nil {
			_ = port.Close()
			return nil, pinErr
		}
		t.txEnable = pin
	}

	return t, nil
}

// Write puts one frame on the bus. With a TX enable pin configured, the
// transceiver is keyed for the duration of the write and released only
// after the driver drained, so the last stop bit leaves the wire before
// the bus turns around.
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return galaxy7.ErrTransportClosed
	}

	if t.txEnable != nil {
		if err := t.txEnable.assert(); err != nil {
			return err
		}
	}

	n, err := t.port.Write(data)
	if err != nil {
		return fmt.Errorf("serial write on %s failed: %w", t.portName, err)
	}
	if n != len(data) {
		return galaxy7.NewTransportWriteError("Write", t.portName)
	}

	if err := t.drainWithRetry("write"); err != nil {
		return err
	}

	if t.txEnable != nil {
		return t.txEnable.release()
	}
	return nil
}

// ReadAvailable returns whatever reply bytes the OS buffer holds,
// waiting at most the configured read timeout. An empty return is not an
// error; keypad silence is a protocol condition, not a fault.
func (t *Transport) ReadAvailable() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, galaxy7.ErrTransportClosed
	}

	buf := make([]byte, readBufferSize)
	n, err := t.port.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("serial read on %s failed: %w", t.portName, err)
	}
	if n == 0 {
		return nil, nil
	}
	return buf[:n], nil
}

// Now returns the wall clock; the engine schedules everything off the
// transport's notion of time
func (*Transport) Now() time.Time {
	return time.Now()
}

// Close releases the port and the TX enable pin. Safe to call twice.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.txEnable != nil {
		_ = t.txEnable.release()
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("serial close on %s failed: %w", t.portName, err)
	}
	return nil
}

// Type returns the transport type
func (*Transport) Type() galaxy7.TransportType {
	return galaxy7.TransportUART
}

// isInterruptedSystemCall checks if an error is caused by an interrupted
// system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry flushes the driver's transmit buffer, retrying drains
// interrupted by signals. USB serial bridges on busy hosts hit EINTR
// often enough to matter.
func (t *Transport) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := t.port.Drain()
		if err == nil {
			return nil
		}

		if isInterruptedSystemCall(err) {
			if attempt < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<attempt) // 2ms, 4ms, 8ms
				time.Sleep(delay)
				continue
			}
		}

		return fmt.Errorf("serial %s drain on %s failed: %w", operation, t.portName, err)
	}

	return fmt.Errorf("serial %s drain on %s failed after %d retries", operation, t.portName, maxRetries)
}

// Ensure Transport implements galaxy7.Transport
var _ galaxy7.Transport = (*Transport)(nil)
