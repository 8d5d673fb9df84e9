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

import (
	"fmt"
	"time"
)

// Config holds keypad engine configuration options. The timing defaults
// match the cadence a Galaxy panel drives its keypads at; deviating far
// from them tends to make real keypads drop off the bus.
type Config struct {
	// RetryConfig configures retry behavior for raw transport writes
	RetryConfig *RetryConfig

	// DisplayText is the initial screen content. Lines are separated by
	// '|'; each line is truncated to the 16-column display width.
	DisplayText string

	// ScreenSlot selects which of the four screen addresses the engine
	// claims on the bus (1-4). Slot 2 is the conventional single-keypad
	// address.
	ScreenSlot int

	// TickInterval is the cadence Run drives the engine at. Ticks are
	// cheap; the interval only needs to sit well under ReplyWindow and
	// ActivityPollInterval.
	TickInterval time.Duration

	// SecondPollDelay is how long after the opening poll the confirming
	// second poll goes out
	SecondPollDelay time.Duration

	// PeriodicPollInterval is the keep-alive poll cadence once the link
	// is established
	PeriodicPollInterval time.Duration

	// ActivityPollInterval is the key-scan poll cadence
	ActivityPollInterval time.Duration

	// ReplyWindow is how long inbound bytes settle before the engine
	// interprets them as a complete reply. Keypad replies are short, so
	// one window comfortably covers a frame at 9600 baud.
	ReplyWindow time.Duration

	// KeyDedupeWindow suppresses a repeated report of the same key
	// within this span. Keypads re-send an unacknowledged key on every
	// activity poll.
	KeyDedupeWindow time.Duration

	// OfflineTimeout marks the keypad offline when no valid reply has
	// arrived within this span
	OfflineTimeout time.Duration

	// CodeSinkClearDelay is how long after a submitted code the empty
	// clearing value is published
	CodeSinkClearDelay time.Duration

	// BacklightTimeout turns the backlight off this long after the last
	// key press. Zero disables the timeout and leaves the backlight on.
	BacklightTimeout time.Duration

	// BeepPeriod is the sounder on-time in keypad units (0x00-0x7F)
	BeepPeriod byte

	// BeepQuietPeriod is the sounder off-time between beeps
	BeepQuietPeriod byte

	// BeepEnabled turns the keypad sounder on at startup
	BeepEnabled bool
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		RetryConfig:          DefaultRetryConfig(),
		DisplayText:          DefaultBanner,
		ScreenSlot:           2,
		TickInterval:         10 * time.Millisecond,
		SecondPollDelay:      5 * time.Second,
		PeriodicPollInterval: 5 * time.Second,
		ActivityPollInterval: 150 * time.Millisecond,
		ReplyWindow:          100 * time.Millisecond,
		KeyDedupeWindow:      100 * time.Millisecond,
		OfflineTimeout:       300 * time.Millisecond,
		CodeSinkClearDelay:   200 * time.Millisecond,
		BacklightTimeout:     15 * time.Second,
		BeepEnabled:          false,
		BeepPeriod:           0x00,
		BeepQuietPeriod:      0x00,
	}
}

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	if _, err := SlotAddress(c.ScreenSlot); err != nil {
		return err
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"TickInterval", c.TickInterval},
		{"SecondPollDelay", c.SecondPollDelay},
		{"PeriodicPollInterval", c.PeriodicPollInterval},
		{"ActivityPollInterval", c.ActivityPollInterval},
		{"ReplyWindow", c.ReplyWindow},
		{"OfflineTimeout", c.OfflineTimeout},
	} {
		if d.value <= 0 {
			return fmt.Errorf("config %s must be positive, got %v", d.name, d.value)
		}
	}
	if c.KeyDedupeWindow < 0 {
		return fmt.Errorf("config KeyDedupeWindow must not be negative, got %v", c.KeyDedupeWindow)
	}
	if c.CodeSinkClearDelay < 0 {
		return fmt.Errorf("config CodeSinkClearDelay must not be negative, got %v", c.CodeSinkClearDelay)
	}
	if c.BacklightTimeout < 0 {
		return fmt.Errorf("config BacklightTimeout must not be negative, got %v", c.BacklightTimeout)
	}
	return nil
}
