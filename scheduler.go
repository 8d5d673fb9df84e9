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

import "time"

// selectAndSend picks at most one outgoing command by fixed priority and
// transmits it. Exactly one command is ever in flight; the reply window
// must close before the next selection. Runs with the engine lock held and
// the bus idle.
func (d *Device) selectAndSend(now time.Time) error {
	// Recovery from a rejected screen outranks everything: resync with a
	// poll, return the alternating bits to the phase the keypad now
	// expects, and push a fresh screen on the following cycle. The key
	// acknowledgement bookkeeping survives untouched; the keypad still
	// considers that key un-acked.
	if d.phase == phaseReinit {
		Debugf("re-init poll after rejection")
		if err := d.send(CmdPollInit, []byte{d.address, opPollInit, pollSecondStage}); err != nil {
			return err
		}
		d.lastInitPollAt = now
		d.screen.resetSync()
		d.phase = phaseRunning
		d.screen.dirty = true
		d.metrics.Reinits++
		return nil
	}

	cmd := CmdNone
	switch {
	// Confirming stage-two poll once after the opening delay
	case d.phase == phaseFirstPoll && now.Sub(d.lastInitPollAt) >= d.config.SecondPollDelay:
		cmd = CmdPollInit

	// Screen updates go out as soon as the content is dirty
	case d.phase == phaseRunning && d.screen.dirty:
		cmd = CmdScreenUpdate

	// Periodic keep-alive poll. The keypad treats any poll as a resync
	// point, so the alternating bits reset here as well.
	case now.Sub(d.lastInitPollAt) >= d.config.PeriodicPollInterval:
		cmd = CmdPollInit
		d.screen.resetSync()

	// Sounder configuration once after link setup, again on demand
	case d.phase == phaseRunning && !d.beepSent:
		cmd = CmdBeepConfig

	case d.backlight.pending:
		cmd = CmdBacklightSet

	case now.Sub(d.lastActivityAt) >= d.config.ActivityPollInterval:
		cmd = CmdActivityPoll
	}

	switch cmd {
	case CmdNone:
		return nil

	case CmdPollInit:
		if err := d.send(CmdPollInit, []byte{d.address, opPollInit, pollSecondStage}); err != nil {
			return err
		}
		if d.phase == phaseFirstPoll {
			d.phase = phaseRunning
		}
		d.lastInitPollAt = now

	case CmdScreenUpdate:
		carryAck := d.ack == ackOwed
		payload := d.screen.buildPayload(d.address, carryAck)
		if err := d.send(CmdScreenUpdate, payload); err != nil {
			return err
		}
		if carryAck {
			d.ack = ackSent
		}
		d.lastScreenPushAt = now
		d.screen.dirty = false

	case CmdBeepConfig:
		mode := byte(0x00)
		if d.config.BeepEnabled {
			mode = 0x01
		}
		payload := []byte{d.address, opBeepConfig, mode, d.config.BeepPeriod, d.config.BeepQuietPeriod}
		if err := d.send(CmdBeepConfig, payload); err != nil {
			return err
		}
		d.beepSent = true

	case CmdBacklightSet:
		val := byte(0x00)
		if d.backlight.target {
			val = 0x01
		}
		if err := d.send(CmdBacklightSet, []byte{d.address, opBacklightSet, val}); err != nil {
			return err
		}
		d.backlight.on = d.backlight.target
		d.backlight.pending = false

	case CmdActivityPoll:
		if err := d.send(CmdActivityPoll, []byte{d.address, opActivityPoll, activityBody}); err != nil {
			return err
		}
		d.lastActivityAt = now
	}

	return nil
}
