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

// KeypadIdentity is the fixed address the physical keypad stamps on every
// reply. Inbound frames from any other address are ignored.
const KeypadIdentity byte = 0x11

// Outbound opcodes
const (
	opPollInit     byte = 0x00
	opScreenUpdate byte = 0x07
	opBeepConfig   byte = 0x0C
	opBacklightSet byte = 0x0D
	opActivityPoll byte = 0x19
)

// Init poll sub-codes. The first-stage poll is sent exactly once at
// startup; every later poll (second-stage, periodic, re-init) uses the
// second-stage sub-code.
const (
	pollFirstStage  byte = 0x0E
	pollSecondStage byte = 0x0F
)

// activityBody is the single parameter byte of an activity poll
const activityBody byte = 0x01

// Screen frame control bytes
const (
	screenCursorHome  byte = 0x17 // reset display, cursor to 0x00
	screenCursorLine2 byte = 0x02 // cursor to 0x40 (second line)
	screenCursorHide  byte = 0x07
)

// Screen modifier bits
const (
	modifierBase    byte = 0x01
	modifierAckFlag byte = 0x10 // this screen acknowledges a key
	modifierAckBit  byte = 0x02 // ACK toggle, alternates per acknowledged key
	modifierSeqBit  byte = 0x80 // sequence bit, alternates per screen push
)

// Inbound reply opcodes
const (
	replyAck      byte = 0xFE // followed by 0xBA
	replyAckBody  byte = 0xBA
	replyRejected byte = 0xF2
	replyKeyEvent byte = 0xF4
)

// Key event status code layout
const (
	tamperSentinel byte = 0x7F // tamper-only event, no key attached
	tamperBit      byte = 0x40
)

// ScreenColumns is the width of each display line in characters.
const ScreenColumns = 16

// Command identifies one kind of bus exchange. The scheduler keeps at most
// one command awaiting a reply; the reply interpreter attributes inbound
// bytes to the last command sent.
type Command int

// Commands, in no particular order (priority lives in the scheduler).
const (
	CmdNone Command = iota
	CmdPollInit
	CmdActivityPoll
	CmdScreenUpdate
	CmdBeepConfig
	CmdBacklightSet
)

// String returns a short name for logging.
func (c Command) String() string {
	switch c {
	case CmdNone:
		return "none"
	case CmdPollInit:
		return "poll-init"
	case CmdActivityPoll:
		return "activity-poll"
	case CmdScreenUpdate:
		return "screen-update"
	case CmdBeepConfig:
		return "beep-config"
	case CmdBacklightSet:
		return "backlight-set"
	default:
		return "unknown"
	}
}

// SlotAddress returns the bus device address for a screen slot. Four slots
// exist on the bus, addressed 0x10 through 0x40.
func SlotAddress(slot int) (byte, error) {
	if slot < 1 || slot > 4 {
		return 0, ErrInvalidScreenSlot
	}
	return byte(slot) * 0x10, nil
}
