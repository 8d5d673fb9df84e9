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

// Option represents a functional option for New
type Option func(*Device) error

// WithConfig replaces the entire engine configuration
func WithConfig(config *Config) Option {
	return func(d *Device) error {
		if config == nil {
			return ErrNilConfig
		}
		if err := config.Validate(); err != nil {
			return err
		}
		d.config = config
		return nil
	}
}

// WithScreenSlot selects the screen address the engine claims (1-4)
func WithScreenSlot(slot int) Option {
	return func(d *Device) error {
		if _, err := SlotAddress(slot); err != nil {
			return err
		}
		d.config.ScreenSlot = slot
		return nil
	}
}

// WithDisplayText sets the initial display content, lines separated by '|'
func WithDisplayText(text string) Option {
	return func(d *Device) error {
		d.config.DisplayText = text
		return nil
	}
}

// WithBeep configures the keypad sounder pushed after link setup
func WithBeep(enabled bool, period, quietPeriod byte) Option {
	return func(d *Device) error {
		d.config.BeepEnabled = enabled
		d.config.BeepPeriod = period
		d.config.BeepQuietPeriod = quietPeriod
		return nil
	}
}

// WithBacklightTimeout sets how long after the last key press the backlight
// turns off. Zero keeps it always on.
func WithBacklightTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout < 0 {
			return ErrNegativeTimeout
		}
		d.config.BacklightTimeout = timeout
		return nil
	}
}

// WithRetryConfig sets the retry policy used for raw transport writes
func WithRetryConfig(config *RetryConfig) Option {
	return func(d *Device) error {
		if config == nil {
			return ErrNilRetryConfig
		}
		d.config.RetryConfig = config
		return nil
	}
}

// WithTrace enables the rolling TX/RX trace buffer. Traced transfers are
// attached to transport errors for diagnostics.
func WithTrace() Option {
	return func(d *Device) error {
		d.trace = NewTraceBuffer(string(d.transport.Type()), "", defaultTraceSize)
		return nil
	}
}
