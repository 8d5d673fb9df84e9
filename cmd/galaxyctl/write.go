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

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	galaxy7 "github.com/OpenGalaxyProject/go-galaxy7"
)

func writeCommand() *cobra.Command {
	var (
		noBacklight bool
		timeout     time.Duration
		settle      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "write TEXT",
		Short: "Put text on the keypad display and exit",
		Long: "Put text on the keypad display and exit. Lines are joined by '|',\n" +
			"e.g. galaxyctl write \"Door open|Close within 30s\".",
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return writeDisplay(args[0], noBacklight, timeout, settle)
		},
	}
	cmd.Flags().BoolVar(&noBacklight, "no-backlight", false,
		"Update the text without waking the backlight")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second,
		"How long to wait for the keypad to come online")
	cmd.Flags().DurationVar(&settle, "settle", 2*time.Second,
		"How long to keep driving the bus after the update")

	return cmd
}

func writeDisplay(text string, noBacklight bool, timeout, settle time.Duration) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	device, path, err := openDevice(ctx, s)
	if err != nil {
		return err
	}
	defer closeDevice(device, s.logger)

	if err := device.Start(); err != nil {
		return fmt.Errorf("engine start: %w", err)
	}
	if err := awaitOnline(ctx, device, timeout); err != nil {
		return err
	}

	if noBacklight {
		device.SetDisplayTextNoBacklight(text)
	} else {
		device.SetDisplayText(text)
	}

	// Keep ticking so the screen frame actually goes out and gets acked
	if err := runFor(ctx, device, settle); err != nil {
		return err
	}

	line1, line2 := device.DisplayText()
	s.logger.Info("display updated",
		zap.String("device", path),
		zap.String("line1", line1),
		zap.String("line2", line2))
	return nil
}

// runFor drives the engine for a fixed span
func runFor(ctx context.Context, device *galaxy7.Device, span time.Duration) error {
	interval := galaxy7.DefaultConfig().TickInterval
	deadline := time.Now().Add(span)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := device.Tick(); err != nil {
			return fmt.Errorf("engine tick: %w", err)
		}
		time.Sleep(interval)
	}
	return nil
}
