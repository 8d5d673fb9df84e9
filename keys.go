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

// Key names reported by the keypad
const (
	KeyEnter  = "ENT"
	KeyEscape = "ESC"
	KeyStar   = "*"
	KeyHash   = "#"
	KeyA      = "A"
	KeyB      = "B"
)

// keyNames maps the low nibble of an F4 status code to its key cap. The
// 0x0A/0x0B slots really are B then A on the Mk7 matrix.
var keyNames = [16]string{
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	KeyB, KeyA, KeyEnter, KeyEscape, KeyStar, KeyHash,
}

// DecodeKey translates a raw F4 status code into a key name and tamper
// flag. The tamper sentinel 0x7F carries no key at all.
func DecodeKey(code byte) (name string, tamper bool) {
	if code == tamperSentinel {
		return "", true
	}
	return keyNames[code&0x0F], code&tamperBit != 0
}

// handleKeypress applies an accepted, non-duplicate key press. ESC wipes
// the masked input buffer, ENT submits it, everything bufferable appends.
// Runs with the engine lock held.
func (d *Device) handleKeypress(name string, tamper bool) {
	now := d.now
	d.backlight.bump(now, d.config.BacklightTimeout)

	if cb := d.onKey; cb != nil {
		d.emit(func() { cb(name, tamper) })
	}

	switch name {
	case KeyEscape:
		if d.screen.input != "" {
			d.screen.input = ""
			Debugf("input buffer cleared (ESC)")
		}
		d.screen.dirty = true

	case KeyEnter:
		if d.screen.input == "" {
			Debugf("ENT with no buffered digits")
			// Push a screen anyway so the keypad sees its ACK
			d.screen.dirty = true
			return
		}
		code := d.screen.input
		d.screen.input = ""
		d.screen.dirty = true
		d.metrics.CodesSubmitted++
		Debugf("code entered: %d digits", len(code))
		if cb := d.onCodeEntered; cb != nil {
			d.emit(func() { cb(code) })
		}
		// Clear the published value shortly after so the same code
		// entered twice still produces two distinct events.
		d.tasks.schedule(now.Add(d.config.CodeSinkClearDelay), func() {
			if cb := d.onCodeEntered; cb != nil {
				d.emit(func() { cb("") })
			}
		})

	default:
		if isBufferable(name) {
			d.screen.input += name
			d.screen.dirty = true
		}
	}
}

// isBufferable reports whether a key appends to the masked input buffer
func isBufferable(name string) bool {
	if len(name) != 1 {
		return false
	}
	c := name[0]
	return (c >= '0' && c <= '9') || c == '*' || c == '#' || c == 'A' || c == 'B'
}
