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

// backlightState tracks the keypad backlight and its off-deadline. The
// state the keypad is believed to be in (on) is only updated when the
// BacklightSet command actually goes out.
type backlightState struct {
	offAt   time.Time
	on      bool
	target  bool
	pending bool
}

// bump extends the off-deadline and, when the light is currently off,
// requests a power-on command. A zero timeout means no deadline: the light
// stays on once bumped.
func (b *backlightState) bump(now time.Time, timeout time.Duration) {
	if timeout > 0 {
		b.offAt = now.Add(timeout)
	} else {
		b.offAt = time.Time{}
	}
	if !b.on {
		b.target = true
		b.pending = true
	}
}

// timedOut reports whether the light is on and past its deadline
func (b *backlightState) timedOut(now time.Time) bool {
	return b.on && !b.offAt.IsZero() && !now.Before(b.offAt)
}

// checkBacklight turns the light off once its deadline passes. Masked
// digits must not linger on a dark screen, so an abandoned input buffer is
// wiped at the same moment. Runs with the engine lock held.
func (d *Device) checkBacklight(now time.Time) {
	if !d.backlight.timedOut(now) {
		return
	}
	d.backlight.target = false
	d.backlight.pending = true

	if d.screen.input != "" {
		d.screen.input = ""
		d.screen.dirty = true
		Debugf("backlight timeout cleared input buffer")
	}
}
