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

// Package testing provides a virtual Galaxy keypad for exercising the
// engine and the serial transports without hardware on the bus.
//
// VirtualKeypad implements the keypad side of the wire protocol as an
// io.ReadWriter: frames the engine writes are parsed and answered the way
// a CP038 keypad answers them, and the replies are read back byte for
// byte. Tests drive key presses, lid tamper and fault injection through
// its methods and assert on the captured display, sounder and backlight
// state.
package testing

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/OpenGalaxyProject/go-galaxy7/internal/frame"
	"github.com/OpenGalaxyProject/go-galaxy7/internal/syncutil"
)

// Wire constants mirrored from the engine. The simulator keeps local
// copies so it stays importable from every package, the root included.
const (
	keypadIdentity = 0x11

	opPollInit     = 0x00
	opScreenUpdate = 0x07
	opBeepConfig   = 0x0C
	opBacklightSet = 0x0D
	opActivityPoll = 0x19

	pollFirstStage  = 0x0E
	pollSecondStage = 0x0F

	replyAck      = 0xFE
	replyAckBody  = 0xBA
	replyRejected = 0xF2
	replyKeyEvent = 0xF4

	modifierAckFlag = 0x10

	tamperSentinel = 0x7F
	tamperBit      = 0x40

	screenFrameLength = 39
	screenColumns     = 16
)

// DefaultEngineAddress is the bus address of an engine on screen slot 2,
// the factory default the simulator answers to unless told otherwise.
const DefaultEngineAddress = 0x20

// keyCodes maps the printed key legends to their wire codes
var keyCodes = map[string]byte{
	"0": 0x00, "1": 0x01, "2": 0x02, "3": 0x03, "4": 0x04,
	"5": 0x05, "6": 0x06, "7": 0x07, "8": 0x08, "9": 0x09,
	"B": 0x0A, "A": 0x0B,
	"ENT": 0x0C, "ESC": 0x0D,
	"*": 0x0E, "#": 0x0F,
}

// ScreenCapture records one screen update as the keypad saw it
type ScreenCapture struct {
	Line1    string
	Line2    string
	Modifier byte
}

// BeepCapture records one sounder configuration command
type BeepCapture struct {
	Mode        byte
	Period      byte
	QuietPeriod byte
}

// CommandRecord is one valid frame received from the engine
type CommandRecord struct {
	At      time.Time
	Payload []byte
	Opcode  byte
}

// VirtualKeypad emulates a Galaxy keypad at the wire level.
//
// The zero value is not usable; construct with NewVirtualKeypad. All
// methods are safe for concurrent use.
type VirtualKeypad struct {
	mu syncutil.Mutex

	// rxBuffer accumulates engine bytes until a complete frame parses
	rxBuffer bytes.Buffer
	// txBuffer holds replies waiting for the engine to read
	txBuffer bytes.Buffer

	address byte

	// captured state, newest last
	screens       []ScreenCapture
	beeps         []BeepCapture
	backlightOn   bool
	backlightLog  []bool
	commandLog    []CommandRecord

	// key delivery. A pressed key is reported on the next activity poll
	// and repeats on every poll after that until a screen update carrying
	// the acknowledgement flag arrives, exactly like the hardware.
	keyQueue     []byte
	repeatKey    byte
	repeatActive bool

	// lid state. An open lid is announced with the tamper sentinel on the
	// next activity poll, and re-announced after any screen exchange while
	// it stays open.
	tamperOpen        bool
	tamperNeedsReport bool

	firstPolls    int
	secondPolls   int
	activityPolls int
	badChecksums  int
	noiseBytes    int

	// fault injection, each consumed as replies go out
	rejectScreens  int
	dropReplies    int
	corruptReplies int
	silent         bool
}

// NewVirtualKeypad returns a keypad listening on the default engine
// address with the lid closed and no keys pending.
func NewVirtualKeypad() *VirtualKeypad {
	return &VirtualKeypad{address: DefaultEngineAddress}
}

// SetAddress changes the engine address the keypad answers to. Frames for
// any other address are treated as bus noise.
func (v *VirtualKeypad) SetAddress(addr byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.address = addr
}

// Write accepts bytes from the engine. Complete, well-formed frames are
// processed immediately; partial frames wait in the receive buffer for
// the rest to arrive.
func (v *VirtualKeypad) Write(data []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rxBuffer.Write(data)
	v.processFrames()
	return len(data), nil
}

// Read drains pending reply bytes. Returns 0, nil when the keypad has
// nothing to say, matching non-blocking serial reads.
func (v *VirtualKeypad) Read(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.txBuffer.Len() == 0 {
		return 0, nil
	}
	return v.txBuffer.Read(p) //nolint:wrapcheck // In-memory buffer cannot fail
}

// processFrames consumes as many complete frames as the receive buffer
// holds. Bytes that cannot start a frame for our address are dropped one
// at a time; diagnostic writes share the bus and must not wedge the
// parser.
func (v *VirtualKeypad) processFrames() {
	for {
		buf := v.rxBuffer.Bytes()
		if len(buf) < 2 {
			return
		}
		if buf[0] != v.address {
			v.rxBuffer.Next(1)
			v.noiseBytes++
			continue
		}
		length, known := commandLength(buf[1])
		if !known {
			v.rxBuffer.Next(1)
			v.noiseBytes++
			continue
		}
		if len(buf) < length {
			return
		}

		f := make([]byte, length)
		copy(f, buf[:length])
		v.rxBuffer.Next(length)

		if !frame.Valid(f) {
			// A real keypad stays quiet on a corrupt frame and lets the
			// engine time out.
			v.badChecksums++
			continue
		}
		v.handleFrame(f)
	}
}

// commandLength returns the on-wire length, checksum included, of the
// engine command starting with the given opcode.
func commandLength(opcode byte) (int, bool) {
	switch opcode {
	case opPollInit, opActivityPoll, opBacklightSet:
		return 4, true
	case opBeepConfig:
		return 6, true
	case opScreenUpdate:
		return screenFrameLength, true
	default:
		return 0, false
	}
}

// handleFrame reacts to one validated engine frame
func (v *VirtualKeypad) handleFrame(f []byte) {
	payload := make([]byte, len(f))
	copy(payload, f)
	v.commandLog = append(v.commandLog, CommandRecord{
		At:      time.Now(),
		Opcode:  f[1],
		Payload: payload,
	})

	switch f[1] {
	case opPollInit:
		if f[2] == pollFirstStage {
			v.firstPolls++
		} else {
			v.secondPolls++
		}
		v.reply(BuildAckReply())

	case opActivityPoll:
		v.activityPolls++
		v.reply(v.activityReply())

	case opScreenUpdate:
		v.handleScreen(f)

	case opBeepConfig:
		v.beeps = append(v.beeps, BeepCapture{
			Mode:        f[2],
			Period:      f[3],
			QuietPeriod: f[4],
		})
		v.reply(BuildAckReply())

	case opBacklightSet:
		v.backlightOn = f[2] != 0x00
		v.backlightLog = append(v.backlightLog, v.backlightOn)
		v.reply(BuildAckReply())
	}
}

// handleScreen captures a display update and answers it. A screen update
// carrying the acknowledgement flag confirms receipt of the last reported
// key: the keypad stops repeating the key and answers with the tamper
// sentinel instead of the plain accept.
func (v *VirtualKeypad) handleScreen(f []byte) {
	modifier := f[2]
	v.screens = append(v.screens, ScreenCapture{
		Modifier: modifier,
		Line1:    string(f[4 : 4+screenColumns]),
		Line2:    string(f[5+screenColumns : 5+2*screenColumns]),
	})

	if v.rejectScreens > 0 {
		v.rejectScreens--
		v.reply(BuildRejectReply())
		return
	}

	if modifier&modifierAckFlag != 0 && v.repeatActive {
		v.repeatActive = false
		v.reply(BuildKeyReply(tamperSentinel))
		return
	}

	// An accepted screen tells the engine all is well, so an open lid has
	// to be announced again.
	if v.tamperOpen {
		v.tamperNeedsReport = true
	}
	v.reply(BuildAckReply())
}

// activityReply picks the answer to an activity poll. An un-acked key
// outranks a fresh one, a fresh key outranks the tamper announcement, and
// with nothing to report the keypad answers the quiet acknowledgement.
func (v *VirtualKeypad) activityReply() []byte {
	if v.repeatActive {
		return BuildKeyReply(v.withTamper(v.repeatKey))
	}
	if len(v.keyQueue) > 0 {
		v.repeatKey = v.keyQueue[0]
		v.keyQueue = v.keyQueue[1:]
		v.repeatActive = true
		return BuildKeyReply(v.withTamper(v.repeatKey))
	}
	if v.tamperNeedsReport {
		v.tamperNeedsReport = false
		return BuildKeyReply(tamperSentinel)
	}
	return BuildAckReply()
}

// withTamper folds the current lid state into a key code
func (v *VirtualKeypad) withTamper(code byte) byte {
	if v.tamperOpen {
		return code | tamperBit
	}
	return code
}

// reply queues a response for the engine, applying any pending fault
// injection first.
func (v *VirtualKeypad) reply(data []byte) {
	if v.silent {
		return
	}
	if v.dropReplies > 0 {
		v.dropReplies--
		return
	}
	if v.corruptReplies > 0 {
		v.corruptReplies--
		corrupted := make([]byte, len(data))
		copy(corrupted, data)
		corrupted[len(corrupted)-1] ^= 0xFF
		data = corrupted
	}
	v.txBuffer.Write(data)
}

// PressKey queues a key press by its printed legend ("0" through "9",
// "A", "B", "ENT", "ESC", "*", "#"). The key is reported on the next
// activity poll and repeats until the engine acknowledges it.
func (v *VirtualKeypad) PressKey(name string) error {
	code, ok := keyCodes[name]
	if !ok {
		return fmt.Errorf("unknown key %q", name)
	}
	v.PressKeyCode(code)
	return nil
}

// PressKeyCode queues a raw key code, bypassing the legend table
func (v *VirtualKeypad) PressKeyCode(code byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keyQueue = append(v.keyQueue, code)
}

// SetTamper opens or closes the lid. Opening schedules the tamper
// sentinel for the next activity poll; closing simply stops the reports,
// as the hardware carries no clear message.
func (v *VirtualKeypad) SetTamper(open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tamperOpen = open
	v.tamperNeedsReport = open
}

// RejectNextScreen makes the keypad answer the next screen update with
// the reject code, forcing the engine through its re-init path. Calling
// repeatedly queues further rejections.
func (v *VirtualKeypad) RejectNextScreen() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rejectScreens++
}

// DropNextReply swallows the next reply so the engine sees a silent
// window. Calling repeatedly drops further replies.
func (v *VirtualKeypad) DropNextReply() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropReplies++
}

// CorruptNextReply flips the checksum byte of the next reply
func (v *VirtualKeypad) CorruptNextReply() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.corruptReplies++
}

// GoSilent stops all replies, simulating a powered-off or disconnected
// keypad, until Resume is called.
func (v *VirtualKeypad) GoSilent() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent = true
}

// Resume undoes GoSilent
func (v *VirtualKeypad) Resume() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent = false
}

// Display returns the two lines currently shown, trailing padding
// stripped. Empty strings before the first screen update arrives.
func (v *VirtualKeypad) Display() (line1, line2 string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.screens) == 0 {
		return "", ""
	}
	last := v.screens[len(v.screens)-1]
	return strings.TrimRight(last.Line1, " "), strings.TrimRight(last.Line2, " ")
}

// LastScreen returns the newest screen capture, raw and unpadded
func (v *VirtualKeypad) LastScreen() (ScreenCapture, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.screens) == 0 {
		return ScreenCapture{}, false
	}
	return v.screens[len(v.screens)-1], true
}

// ScreenCount returns how many screen updates arrived
func (v *VirtualKeypad) ScreenCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.screens)
}

// LastBeep returns the newest sounder configuration
func (v *VirtualKeypad) LastBeep() (BeepCapture, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.beeps) == 0 {
		return BeepCapture{}, false
	}
	return v.beeps[len(v.beeps)-1], true
}

// BacklightOn reports the commanded backlight state
func (v *VirtualKeypad) BacklightOn() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.backlightOn
}

// BacklightLog returns every backlight state commanded so far
func (v *VirtualKeypad) BacklightLog() []bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	log := make([]bool, len(v.backlightLog))
	copy(log, v.backlightLog)
	return log
}

// FirstStagePolls returns how many opening polls arrived
func (v *VirtualKeypad) FirstStagePolls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.firstPolls
}

// SecondStagePolls returns how many confirming or periodic polls arrived
func (v *VirtualKeypad) SecondStagePolls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.secondPolls
}

// ActivityPolls returns how many activity polls arrived
func (v *VirtualKeypad) ActivityPolls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.activityPolls
}

// ChecksumFailures returns how many frames failed checksum validation
func (v *VirtualKeypad) ChecksumFailures() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.badChecksums
}

// NoiseBytes returns how many bytes were skipped while hunting for a
// frame boundary
func (v *VirtualKeypad) NoiseBytes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.noiseBytes
}

// KeyPending reports whether a reported key still awaits the engine's
// acknowledgement
func (v *VirtualKeypad) KeyPending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.repeatActive
}

// HasCommand checks if a command with the given opcode was received
func (v *VirtualKeypad) HasCommand(opcode byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, rec := range v.commandLog {
		if rec.Opcode == opcode {
			return true
		}
	}
	return false
}

// GetCommandCount returns the number of times a command was received
func (v *VirtualKeypad) GetCommandCount(opcode byte) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	count := 0
	for _, rec := range v.commandLog {
		if rec.Opcode == opcode {
			count++
		}
	}
	return count
}

// Commands returns a copy of the received command log, oldest first
func (v *VirtualKeypad) Commands() []CommandRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	log := make([]CommandRecord, len(v.commandLog))
	copy(log, v.commandLog)
	return log
}

// ClearCommandLog clears the received command log
func (v *VirtualKeypad) ClearCommandLog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.commandLog = nil
}

// Reset returns the keypad to its power-on state, keeping the address
func (v *VirtualKeypad) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rxBuffer.Reset()
	v.txBuffer.Reset()
	v.screens = nil
	v.beeps = nil
	v.backlightOn = false
	v.backlightLog = nil
	v.commandLog = nil
	v.keyQueue = nil
	v.repeatKey = 0x00
	v.repeatActive = false
	v.tamperOpen = false
	v.tamperNeedsReport = false
	v.firstPolls = 0
	v.secondPolls = 0
	v.activityPolls = 0
	v.badChecksums = 0
	v.noiseBytes = 0
	v.rejectScreens = 0
	v.dropReplies = 0
	v.corruptReplies = 0
	v.silent = false
}
