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

package uart

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// txEnablePin drives the DE/RE pair of an RS485 transceiver from a GPIO
// line. Raised for the duration of a transmit, low otherwise so the
// receiver hears the keypad.
type txEnablePin struct {
	pin  gpio.PinIO
	name string
}

// openTXEnablePin resolves the named GPIO line and parks it in receive
// mode. Pin names follow the periph registry, e.g. "GPIO17" on a
// Raspberry Pi.
func openTXEnablePin(name string) (*txEnablePin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("TX enable pin %q not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to configure TX enable pin %s: %w", name, err)
	}

	return &txEnablePin{pin: pin, name: name}, nil
}

// assert keys the transceiver for transmit
func (p *txEnablePin) assert() error {
	if err := p.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to raise TX enable pin %s: %w", p.name, err)
	}
	return nil
}

// release returns the transceiver to receive mode
func (p *txEnablePin) release() error {
	if err := p.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to drop TX enable pin %s: %w", p.name, err)
	}
	return nil
}
