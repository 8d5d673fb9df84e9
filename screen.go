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

import "strings"

// DefaultBanner is shown when the host supplies empty display text
const DefaultBanner = "Galaxy 7|Initializing"

// screenState holds the two display lines, the masked input buffer and the
// alternating bits the keypad uses to tell fresh screens from retransmits.
type screenState struct {
	line1     string
	line2     string
	input     string
	seqBit    byte
	ackToggle byte
	dirty     bool
}

func newScreenState() screenState {
	return screenState{
		ackToggle: modifierAckBit,
		dirty:     true,
	}
}

// setText replaces the display content. Text is split at the first '|' into
// the two lines; empty text falls back to the default banner.
func (s *screenState) setText(text string) {
	if text == "" {
		text = DefaultBanner
	}
	if i := strings.IndexByte(text, '|'); i >= 0 {
		s.line1 = text[:i]
		s.line2 = text[i+1:]
	} else {
		s.line1 = text
		s.line2 = ""
	}
	s.dirty = true
}

// resetSync returns the alternating bits to their post-poll phase. The
// keypad expects the first screen after a poll to carry sequence bit 0x80
// and, when acknowledging, ACK toggle bit 0x02.
func (s *screenState) resetSync() {
	s.seqBit = 0x00
	s.ackToggle = modifierAckBit
}

// buildPayload renders the screen update payload, flipping the sequence bit.
// With carryAck set, the modifier also carries the key acknowledgement bits
// and the ACK toggle flips for the next acknowledgement. The checksum is not
// included; frame.Append adds it at send time.
func (s *screenState) buildPayload(addr byte, carryAck bool) []byte {
	modifier := byte(modifierBase)

	if s.seqBit == 0x00 {
		s.seqBit = modifierSeqBit
	} else {
		s.seqBit = 0x00
	}
	modifier |= s.seqBit

	if carryAck {
		modifier |= modifierAckFlag | s.ackToggle
		if s.ackToggle == 0x00 {
			s.ackToggle = modifierAckBit
		} else {
			s.ackToggle = 0x00
		}
	}

	line2 := s.line2
	if s.input != "" {
		line2 = strings.Repeat("*", min(len(s.input), ScreenColumns))
	}

	payload := make([]byte, 0, 4+2*ScreenColumns+2)
	payload = append(payload, addr, opScreenUpdate, modifier, screenCursorHome)
	payload = appendPadded(payload, s.line1)
	payload = append(payload, screenCursorLine2)
	payload = appendPadded(payload, line2)
	payload = append(payload, screenCursorHide)
	return payload
}

// appendPadded appends line space-padded or truncated to exactly the
// display width.
func appendPadded(dst []byte, line string) []byte {
	if len(line) > ScreenColumns {
		line = line[:ScreenColumns]
	}
	dst = append(dst, line...)
	for i := len(line); i < ScreenColumns; i++ {
		dst = append(dst, ' ')
	}
	return dst
}
