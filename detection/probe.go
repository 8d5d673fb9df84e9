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

package detection

import (
	"context"
	"strings"
	"time"

	"github.com/OpenGalaxyProject/go-galaxy7"
	"github.com/OpenGalaxyProject/go-galaxy7/internal/frame"
	"github.com/OpenGalaxyProject/go-galaxy7/transport/uart"
)

// Wire bytes of the stage-one init poll the Safe probe sends
const (
	pollOpcode     byte = 0x00
	pollFirstStage byte = 0x0E
)

// knownAdapters lists VID:PIDs of the USB-serial bridges that RS485
// dongles are commonly built around
var knownAdapters = []string{
	"0403:6001", // FTDI FT232
	"10C4:EA60", // Silicon Labs CP210x
	"1A86:7523", // QinHeng CH340
	"067B:2303", // Prolific PL2303
}

// likelyBusAdapter checks whether a port's descriptors suggest an RS485
// interface. Built-in Pi UARTs count; a bare transceiver board on the
// primary UART is the usual wiring for a keypad bus.
func likelyBusAdapter(port *portInfo) bool {
	upperVIDPID := strings.ToUpper(port.VIDPID)
	for _, known := range knownAdapters {
		if upperVIDPID == known {
			return true
		}
	}

	lowerProduct := strings.ToLower(port.Product)
	lowerManuf := strings.ToLower(port.Manufacturer)
	keywords := []string{"rs485", "rs-485", "usbserial", "uart"}
	for _, keyword := range keywords {
		if strings.Contains(lowerProduct, keyword) || strings.Contains(lowerManuf, keyword) {
			return true
		}
	}

	lowerName := strings.ToLower(port.Name)
	return strings.HasPrefix(lowerName, "ttyama") || lowerName == "serial0"
}

// probeKeypad checks whether a keypad answers on the given port.
//
// Single attempt per port, no retries. Auto-detection pokes hardware
// that may be anything at all, and hammering an unknown device with
// repeated polls risks confusing it. Retries belong at the device
// level once the bus is known.
func probeKeypad(ctx context.Context, path string, slot int, mode Mode) bool {
	transport, err := uart.New(path)
	if err != nil {
		return false
	}
	defer func() { _ = transport.Close() }()

	switch mode {
	case Passive:
		return false
	case Safe:
		return pollOnce(ctx, transport, slot)
	case Full:
		return bringUp(ctx, transport, slot)
	default:
		return false
	}
}

// pollOnce sends one stage-one poll and listens briefly for the
// keypad's acknowledgement
func pollOnce(ctx context.Context, transport *uart.Transport, slot int) bool {
	addr, err := galaxy7.SlotAddress(slot)
	if err != nil {
		return false
	}
	if err := transport.Write(frame.Append([]byte{addr, pollOpcode, pollFirstStage})); err != nil {
		return false
	}

	var rx []byte
	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		data, err := transport.ReadAvailable()
		if err != nil {
			return false
		}
		rx = append(rx, data...)
		if containsKeypadReply(rx) {
			return true
		}
		if len(data) == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
	return false
}

// containsKeypadReply scans accumulated bytes for a checksummed frame
// from the keypad identity, at any offset; line noise may precede it
func containsKeypadReply(rx []byte) bool {
	for i := 0; i+4 <= len(rx); i++ {
		if rx[i] == galaxy7.KeypadIdentity && frame.Valid(rx[i:i+4]) {
			return true
		}
	}
	return false
}

// bringUp runs the full engine start sequence and waits for the keypad
// to come online
func bringUp(ctx context.Context, transport *uart.Transport, slot int) bool {
	device, err := galaxy7.New(transport, galaxy7.WithScreenSlot(slot))
	if err != nil {
		return false
	}
	defer func() { _ = device.Close() }()

	if err := device.Start(); err != nil {
		return false
	}

	tickInterval := galaxy7.DefaultConfig().TickInterval
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if err := device.Tick(); err != nil {
			return false
		}
		if device.PanelOnline() {
			return true
		}
		time.Sleep(tickInterval)
	}
	return false
}
