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

//go:build !prod

package galaxy7

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/OpenGalaxyProject/go-galaxy7/internal/frame"
)

// testConfig returns a configuration with compressed timings so engine
// tests drive the schedule with small clock advances. The relative
// ordering constraints of the real timings are preserved: the activity
// cadence plus the reply window stays inside the offline timeout, and the
// dedupe window sits between consecutive polls.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.SecondPollDelay = 200 * time.Millisecond
	cfg.PeriodicPollInterval = 1 * time.Second
	cfg.ActivityPollInterval = 50 * time.Millisecond
	cfg.ReplyWindow = 20 * time.Millisecond
	cfg.KeyDedupeWindow = 30 * time.Millisecond
	cfg.OfflineTimeout = 100 * time.Millisecond
	cfg.CodeSinkClearDelay = 40 * time.Millisecond
	cfg.BacklightTimeout = 500 * time.Millisecond
	return cfg
}

// newTestDevice creates an engine on a fresh mock transport with the
// compressed test timings
func newTestDevice(t *testing.T, opts ...Option) (*Device, *MockTransport) {
	t.Helper()
	mock := NewMockTransport()
	opts = append([]Option{WithConfig(testConfig())}, opts...)
	device, err := New(mock, opts...)
	require.NoError(t, err)
	return device, mock
}

// ackFrame is the generic acknowledgement the keypad sends for polls,
// accepted screens, beep and backlight commands
func ackFrame() []byte {
	return []byte{KeypadIdentity, replyAck, replyAckBody}
}

// keyFrame is a checksummed key status report as the keypad sends it
func keyFrame(code byte) []byte {
	return frame.Append([]byte{KeypadIdentity, replyKeyEvent, code})
}

// busAwaiting reports whether a command is still awaiting its reply
func busAwaiting(d *Device) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bus == busAwaitingReply
}

// runExchange runs one full bus cycle: a tick that may transmit, the reply
// window elapsing, and the tick that interprets whatever arrived. Returns
// with the bus idle, so state assertions see a settled engine.
func runExchange(t *testing.T, d *Device, mock *MockTransport) {
	t.Helper()
	require.NoError(t, d.Tick())
	mock.Advance(d.config.ReplyWindow)
	require.NoError(t, d.Tick())
	if busAwaiting(d) {
		// The second tick transmitted; close that window as well
		mock.Advance(d.config.ReplyWindow)
		require.NoError(t, d.Tick())
	}
}

// runUntil drives exchange cycles until pred holds, failing the test if it
// never does
func runUntil(t *testing.T, d *Device, mock *MockTransport, pred func() bool, msg string) {
	t.Helper()
	for range 200 {
		if pred() {
			return
		}
		runExchange(t, d, mock)
	}
	t.Fatalf("condition never reached: %s", msg)
}

// bringOnline walks a fresh device through the two-stage poll, the initial
// screen push and the beep exchange, leaving a quiet running link with the
// keypad acknowledging every command kind.
func bringOnline(t *testing.T, d *Device, mock *MockTransport) {
	t.Helper()

	mock.SetReply(opPollInit, ackFrame())
	mock.SetReply(opActivityPoll, ackFrame())
	mock.SetReply(opScreenUpdate, ackFrame())
	mock.SetReply(opBeepConfig, ackFrame())
	mock.SetReply(opBacklightSet, ackFrame())

	require.NoError(t, d.Start())
	mock.Advance(d.config.ReplyWindow)
	require.NoError(t, d.Tick())

	runUntil(t, d, mock, func() bool {
		return mock.CallCount(opPollInit) >= 2 &&
			mock.CallCount(opScreenUpdate) >= 1 &&
			mock.CallCount(opBeepConfig) >= 1
	}, "link setup did not complete")

	require.True(t, d.PanelOnline())
}
