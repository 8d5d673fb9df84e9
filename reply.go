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

import "github.com/OpenGalaxyProject/go-galaxy7/internal/frame"

// handleReply interprets the bytes that accumulated during one reply
// window, in the context of the command they answer. Unrecognized shapes
// are dropped without touching protocol state. Runs with the engine lock
// held.
func (d *Device) handleReply(buf []byte) {
	if len(buf) == 0 || buf[0] != KeypadIdentity {
		return
	}

	d.lastReplyAt = d.now
	if !d.online {
		// Back after a dropout: whatever beep and screen state the keypad
		// held can no longer be trusted, push both again.
		d.setOnline(true)
		d.beepSent = false
		d.screen.dirty = true
	}

	var opcode byte
	if len(buf) >= 2 {
		opcode = buf[1]
	}

	switch {
	// Quiet activity poll: no key, no tamper change
	case d.lastCmd == CmdActivityPoll && opcode == replyAck && len(buf) >= 3 && buf[2] == replyAckBody:
		return

	// Screen rejected. The keypad still considers the last key un-acked,
	// so the acknowledgement bookkeeping survives; resync the link and
	// retry the same logical screen.
	case d.lastCmd == CmdScreenUpdate && opcode == replyRejected:
		Debugf("keypad rejected screen frame, scheduling re-init")
		d.metrics.Rejections++
		d.phase = phaseReinit
		d.screen.dirty = true
		return

	// Screen accepted
	case d.lastCmd == CmdScreenUpdate && opcode == replyAck && len(buf) >= 3 && buf[2] == replyAckBody:
		d.setTamper(false, "cleared after screen accept")
		return

	// Beep or backlight acknowledged
	case (d.lastCmd == CmdBeepConfig || d.lastCmd == CmdBacklightSet) &&
		opcode == replyAck && len(buf) >= 3 && buf[2] == replyAckBody:
		return

	// Key or tamper event, any context
	case opcode == replyKeyEvent && len(buf) == 4:
		d.handleKeyReply(buf)
	}
}

// handleKeyReply processes a checksummed F4 status report. Tamper updates
// apply in every command context; key events only count after an activity
// poll.
func (d *Device) handleKeyReply(buf []byte) {
	code := buf[2]
	if frame.Checksum([]byte{KeypadIdentity, replyKeyEvent, code}) != buf[3] {
		Debugf("bad checksum on key report %02X", code)
		d.metrics.ChecksumFailures++
		return
	}

	name, tamper := DecodeKey(code)
	tamperOnly := name == "" && tamper

	d.setTamper(tamper, "key report")

	if d.lastCmd == CmdScreenUpdate {
		if code == tamperSentinel {
			// The keypad has seen our acknowledgement; stop carrying it.
			d.ack = ackIdle
			d.ackCode = 0x00
		}
		// Any other code here is an incidental observation; a screen
		// exchange is not a key-event exchange.
		return
	}

	if d.lastCmd == CmdActivityPoll {
		if tamperOnly {
			return
		}
		if name == "" && !tamper {
			Debugf("unmapped key code %02X", code)
			return
		}

		duplicateTime := name == d.lastKeyName && tamper == d.lastKeyTamper &&
			d.now.Sub(d.lastKeyAt) <= d.config.KeyDedupeWindow
		duplicateResend := d.ack != ackIdle && code == d.ackCode

		if !duplicateTime && !duplicateResend {
			d.lastKeyName = name
			d.lastKeyTamper = tamper
			d.lastKeyAt = d.now
			d.metrics.KeysAccepted++
			d.handleKeypress(name, tamper)
		} else {
			d.metrics.KeysDeduped++
			Debugf("duplicate key %s suppressed", name)
		}

		// Even a duplicate owes the keypad an acknowledgement, or it
		// keeps repeating the key on every poll.
		d.ack = ackOwed
		d.ackCode = code
		d.screen.dirty = true
		return
	}

	// Poll, beep or backlight context: tamper already tracked above,
	// nothing further to act on.
}
