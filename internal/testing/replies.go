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

package testing

import "github.com/OpenGalaxyProject/go-galaxy7/internal/frame"

// BuildAckReply creates the quiet acknowledgement a keypad sends when it
// has nothing to report
func BuildAckReply() []byte {
	return frame.Append([]byte{keypadIdentity, replyAck, replyAckBody})
}

// BuildRejectReply creates the reply a keypad sends when it refuses a
// screen update and wants the link re-initialized
func BuildRejectReply() []byte {
	return frame.Append([]byte{keypadIdentity, replyRejected, 0x00})
}

// BuildKeyReply creates a checksummed key report for the given wire code
func BuildKeyReply(code byte) []byte {
	return frame.Append([]byte{keypadIdentity, replyKeyEvent, code})
}

// BuildTamperReply creates the report a keypad sends when its lid opens
func BuildTamperReply() []byte {
	return BuildKeyReply(tamperSentinel)
}

// BuildPollFrame creates the engine's link poll for the given stage code
func BuildPollFrame(addr, stage byte) []byte {
	return frame.Append([]byte{addr, opPollInit, stage})
}

// BuildActivityFrame creates the engine's activity poll
func BuildActivityFrame(addr byte) []byte {
	return frame.Append([]byte{addr, opActivityPoll, 0x01})
}

// BuildBeepFrame creates the engine's sounder configuration command
func BuildBeepFrame(addr, mode, period, quietPeriod byte) []byte {
	return frame.Append([]byte{addr, opBeepConfig, mode, period, quietPeriod})
}

// BuildBacklightFrame creates the engine's backlight command
func BuildBacklightFrame(addr byte, on bool) []byte {
	val := byte(0x00)
	if on {
		val = 0x01
	}
	return frame.Append([]byte{addr, opBacklightSet, val})
}

// BuildScreenFrame creates a full engine screen update. Lines longer than
// the display width are truncated, shorter ones space-padded, matching
// what the engine puts on the wire.
func BuildScreenFrame(addr, modifier byte, line1, line2 string) []byte {
	payload := make([]byte, 0, screenFrameLength-1)
	payload = append(payload, addr, opScreenUpdate, modifier, 0x17)
	payload = appendPadded(payload, line1)
	payload = append(payload, 0x02)
	payload = appendPadded(payload, line2)
	payload = append(payload, 0x07)
	return frame.Append(payload)
}

func appendPadded(dst []byte, line string) []byte {
	if len(line) > screenColumns {
		line = line[:screenColumns]
	}
	dst = append(dst, line...)
	for i := len(line); i < screenColumns; i++ {
		dst = append(dst, ' ')
	}
	return dst
}
