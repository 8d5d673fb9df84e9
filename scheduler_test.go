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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// framesWithOpcode filters the sent frames down to one command kind
func framesWithOpcode(mock *MockTransport, opcode byte) [][]byte {
	var out [][]byte
	for _, f := range mock.SentFrames() {
		if len(f) >= 2 && f[1] == opcode {
			out = append(out, f)
		}
	}
	return out
}

func TestStartSendsOpeningPoll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		slot  int
		frame []byte
	}{
		{"slot_2", 2, []byte{0x20, 0x00, 0x0E, 0xD8}},
		{"slot_1", 1, []byte{0x10, 0x00, 0x0E, 0xC8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, mock := newTestDevice(t, WithScreenSlot(tt.slot))
			require.NoError(t, d.Start())

			assert.Equal(t, tt.frame, mock.LastSent())
			assert.True(t, busAwaiting(d))
			assert.Equal(t, uint64(1), d.Metrics().FramesSent)
		})
	}
}

func TestSecondPollUsesSecondStageCode(t *testing.T) {
	t.Parallel()
	d, mock := newTestDevice(t)

	bringOnline(t, d, mock)

	polls := framesWithOpcode(mock, opPollInit)
	require.GreaterOrEqual(t, len(polls), 2)
	assert.Equal(t, []byte{0x20, 0x00, 0x0E, 0xD8}, polls[0])
	assert.Equal(t, []byte{0x20, 0x00, 0x0F, 0xD9}, polls[1])
}

func TestSingleCommandOutstanding(t *testing.T) {
	t.Parallel()
	d, mock := newTestDevice(t)
	require.NoError(t, d.Start())

	// Silent keypad, frozen clock: the opening poll stays in flight and
	// nothing else may transmit
	for range 5 {
		require.NoError(t, d.Tick())
	}
	assert.Len(t, mock.SentFrames(), 1)

	// Closing the reply window frees the bus but sends nothing by itself
	mock.Advance(d.config.ReplyWindow)
	require.NoError(t, d.Tick())
	require.NoError(t, d.Tick())
	assert.Len(t, mock.SentFrames(), 1)
	assert.False(t, busAwaiting(d))
	assert.Equal(t, uint64(1), d.Metrics().ReplyTimeouts)

	// The next due command is the activity poll
	mock.Advance(d.config.ActivityPollInterval)
	require.NoError(t, d.Tick())
	require.Len(t, mock.SentFrames(), 2)
	assert.Equal(t, []byte{0x20, 0x19, 0x01, 0xE4}, mock.LastSent())
}

func TestActivityPollCadence(t *testing.T) {
	t.Parallel()
	d, mock := newTestDevice(t)
	bringOnline(t, d, mock)

	before := mock.CallCount(opActivityPoll)
	for range 10 {
		runExchange(t, d, mock)
	}
	after := mock.CallCount(opActivityPoll)

	// Ten exchanges move the clock at least 200ms, enough for several
	// 50ms key-scan polls
	assert.GreaterOrEqual(t, after-before, 3)
}

func TestScreenPushedWhenDirty(t *testing.T) {
	t.Parallel()
	d, mock := newTestDevice(t)
	bringOnline(t, d, mock)

	before := mock.CallCount(opScreenUpdate)
	d.SetDisplayText("Area 1|Unset")
	runUntil(t, d, mock, func() bool {
		return mock.CallCount(opScreenUpdate) > before
	}, "dirty screen never pushed")

	screens := framesWithOpcode(mock, opScreenUpdate)
	last := screens[len(screens)-1]
	require.Len(t, last, 39)
	assert.Equal(t, []byte("Area 1          "), last[4:20])
	assert.Equal(t, []byte("Unset           "), last[21:37])
}

func TestScreenOutranksBeep(t *testing.T) {
	t.Parallel()
	d, mock := newTestDevice(t)
	bringOnline(t, d, mock)

	mark := len(mock.SentFrames())
	d.SetBeep(true, 0x01, 0x02)
	d.SetDisplayText("Door open|Check")

	runExchange(t, d, mock)
	frames := mock.SentFrames()
	require.Greater(t, len(frames), mark)
	assert.Equal(t, opScreenUpdate, frames[mark][1], "screen goes first")

	runUntil(t, d, mock, func() bool {
		return mock.CallCount(opBeepConfig) >= 2
	}, "beep config never followed")
}

func TestBeepSentOnceThenOnDemand(t *testing.T) {
	t.Parallel()
	d, mock := newTestDevice(t)
	bringOnline(t, d, mock)

	require.Equal(t, 1, mock.CallCount(opBeepConfig))
	for range 6 {
		runExchange(t, d, mock)
	}
	assert.Equal(t, 1, mock.CallCount(opBeepConfig), "quiet link re-sends no beep config")

	d.SetBeep(true, 0x02, 0x03)
	runUntil(t, d, mock, func() bool {
		return mock.CallCount(opBeepConfig) >= 2
	}, "updated beep config never sent")

	beeps := framesWithOpcode(mock, opBeepConfig)
	assert.Equal(t, []byte{0x20, 0x0C, 0x01, 0x02, 0x03, 0xDC}, beeps[len(beeps)-1])
}

func TestPeriodicPollResyncsScreenSequence(t *testing.T) {
	t.Parallel()
	d, mock := newTestDevice(t)
	bringOnline(t, d, mock)

	// Two more pushes walk the alternating sequence bit off its initial
	// value
	push := func(text string) {
		before := mock.CallCount(opScreenUpdate)
		d.SetDisplayText(text)
		runUntil(t, d, mock, func() bool {
			return mock.CallCount(opScreenUpdate) > before
		}, "screen push missing")
	}
	push("two|two")
	push("three|three")

	// Wait out the keep-alive poll, which resets the alternation
	polls := mock.CallCount(opPollInit)
	runUntil(t, d, mock, func() bool {
		return mock.CallCount(opPollInit) > polls
	}, "periodic poll never sent")

	push("four|four")

	screens := framesWithOpcode(mock, opScreenUpdate)
	require.GreaterOrEqual(t, len(screens), 4)
	mods := make([]byte, 0, 4)
	for _, f := range screens[len(screens)-4:] {
		mods = append(mods, f[2]&modifierSeqBit)
	}
	assert.Equal(t, []byte{modifierSeqBit, 0x00, modifierSeqBit, modifierSeqBit}, mods,
		"sequence restarts high after a keep-alive poll")
}

func TestReinitOutranksEverything(t *testing.T) {
	t.Parallel()
	d, mock := newTestDevice(t)
	bringOnline(t, d, mock)

	d.mu.Lock()
	d.phase = phaseReinit
	d.screen.dirty = true
	d.beepSent = false
	d.backlight.pending = true
	d.mu.Unlock()

	mark := len(mock.SentFrames())
	runExchange(t, d, mock)

	frames := mock.SentFrames()
	require.Greater(t, len(frames), mark)
	assert.Equal(t, []byte{0x20, 0x00, 0x0F, 0xD9}, frames[mark],
		"recovery poll preempts pending screen, beep and backlight")
	assert.Equal(t, uint64(1), d.Metrics().Reinits)

	d.mu.Lock()
	phase := d.phase
	dirty := d.screen.dirty
	d.mu.Unlock()
	assert.Equal(t, phaseRunning, phase)
	assert.True(t, dirty, "the rejected screen content is re-pushed after recovery")
}

func TestBacklightFollowsKeyActivity(t *testing.T) {
	t.Parallel()
	d, mock := newTestDevice(t)
	bringOnline(t, d, mock)

	// One key press lights the backlight
	mock.SetReply(opActivityPoll, keyFrame(0x01))
	runUntil(t, d, mock, func() bool {
		return d.Metrics().KeysAccepted >= 1
	}, "key press never accepted")
	mock.SetReply(opActivityPoll, ackFrame())

	runUntil(t, d, mock, func() bool {
		return mock.CallCount(opBacklightSet) >= 1
	}, "backlight never switched on")
	lights := framesWithOpcode(mock, opBacklightSet)
	assert.Equal(t, []byte{0x20, 0x0D, 0x01, 0xD8}, lights[0])

	// A quiet half second later it goes dark again and the abandoned
	// input buffer is wiped
	runUntil(t, d, mock, func() bool {
		return mock.CallCount(opBacklightSet) >= 2
	}, "backlight never timed out")
	lights = framesWithOpcode(mock, opBacklightSet)
	assert.Equal(t, []byte{0x20, 0x0D, 0x00, 0xD7}, lights[len(lights)-1])

	d.mu.Lock()
	input := d.screen.input
	d.mu.Unlock()
	assert.Empty(t, input)
}
