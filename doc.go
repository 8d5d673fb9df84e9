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

/*
Package galaxy7 drives Honeywell Galaxy Mk7 security keypads over their
RS485 bus, playing the panel side of the protocol.

A Galaxy keypad never speaks first: the panel polls it, pushes screen
content to it and acknowledges every key report. This library implements
that panel role so a keypad becomes a general-purpose input and display
device, wired to a serial adapter instead of an alarm panel.

Features:
  - Two-stage bus initialization, keep-alive and activity polling
  - 2x16 character display updates with cursor control and input masking
  - Key decoding, duplicate suppression and code entry (digits + ENT/ESC)
  - Tamper reporting, sounder and backlight control
  - Pluggable Transport with an RS485-aware UART implementation
  - Liveness tracking with automatic re-initialization after rejection

Basic Usage:

	import (
	    galaxy7 "github.com/OpenGalaxyProject/go-galaxy7"
	    "github.com/OpenGalaxyProject/go-galaxy7/transport/uart"
	)

	transport, err := uart.New("/dev/ttyAMA0")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := galaxy7.New(transport,
	    galaxy7.WithDisplayText("Front door|Enter code"),
	    galaxy7.WithBacklightTimeout(30*time.Second),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	device.SetOnCodeEntered(func(code string) {
	    fmt.Printf("code entered: %s\n", code)
	})

	if err := device.Start(); err != nil {
	    log.Fatal(err)
	}
	if err := device.Run(ctx); err != nil {
	    log.Fatal(err)
	}

Run drives the engine until the context is cancelled. Hosts that want to
own the loop can call Tick themselves at the configured cadence instead.

Timing:

The protocol is timing-sensitive. Keypads expect the cadence a real
panel drives them at; the defaults in DefaultConfig reproduce it and
rarely need changing beyond the screen slot.

Error Handling:

Transport failures surface as wrapped sentinel errors:

	if errors.Is(err, galaxy7.ErrTransportWrite) {
	    // adapter unplugged, wiring fault, ...
	}

Thread Safety:

All Device methods are safe for concurrent use. Callbacks run on the
goroutine that called Tick or Run, after the engine lock is released, so
they may call back into the Device.
*/
package galaxy7
