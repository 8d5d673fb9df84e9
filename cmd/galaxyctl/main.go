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

// Command galaxyctl drives a Honeywell Galaxy keypad from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	galaxy7 "github.com/OpenGalaxyProject/go-galaxy7"
	"github.com/OpenGalaxyProject/go-galaxy7/detection"
	"github.com/OpenGalaxyProject/go-galaxy7/transport/uart"
)

// Package-level flag variables shared by all subcommands
var (
	flagConfig    string
	flagDevice    string
	flagSlot      int
	flagLogLevel  string
	flagLogFormat string
	flagDebug     bool
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			// User requested shutdown, exit cleanly
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "galaxyctl",
		Short:         "Drive a Honeywell Galaxy keypad over its RS485 bus",
		Args:          cobra.ExactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file (default galaxyctl.yaml in . or /etc/galaxyctl)")
	cmd.PersistentFlags().StringVar(&flagDevice, "device", "",
		"Serial device path (auto-detect if empty)")
	cmd.PersistentFlags().IntVar(&flagSlot, "slot", 0,
		"Keypad screen slot 1-4 (0 uses the configured slot)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "",
		"Log format: console or json")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable wire-level protocol debug output")

	cmd.AddCommand(runCommand())
	cmd.AddCommand(portsCommand())
	cmd.AddCommand(writeCommand())
	cmd.AddCommand(rawCommand())
	cmd.AddCommand(soakCommand())

	return cmd
}

// session bundles the merged configuration and logger every subcommand
// starts from
type session struct {
	cfg    *cliConfig
	logger *zap.Logger
	id     string
}

func newSession() (*session, error) {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg)

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	if flagDebug {
		galaxy7.SetDebugEnabled(true)
	}

	return &session{cfg: cfg, logger: logger, id: newSessionID()}, nil
}

// applyFlagOverrides lets command-line flags win over file and
// environment values
func applyFlagOverrides(cfg *cliConfig) {
	if flagDevice != "" {
		cfg.Device.Path = flagDevice
	}
	if flagSlot != 0 {
		cfg.Device.Slot = flagSlot
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}
}

// newSessionID tags log lines from one invocation so interleaved runs on
// a shared bench host stay separable
func newSessionID() string {
	return "galaxyctl-" + uuid.New().String()[:8]
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// openDevice opens the configured serial port, auto-detecting one when no
// path is set, and builds the keypad engine on top of it
func openDevice(ctx context.Context, s *session) (*galaxy7.Device, string, error) {
	path := s.cfg.Device.Path
	if path == "" {
		detected, err := detectBusAdapter(ctx, s)
		if err != nil {
			return nil, "", err
		}
		path = detected
	}

	var uartOpts []uart.Option
	if s.cfg.Device.TXEnablePin != "" {
		uartOpts = append(uartOpts, uart.WithTXEnablePin(s.cfg.Device.TXEnablePin))
	}
	if s.cfg.Device.KernelRS485 {
		uartOpts = append(uartOpts, uart.WithKernelRS485())
	}

	transport, err := uart.New(path, uartOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
	}

	opts := []galaxy7.Option{
		galaxy7.WithScreenSlot(s.cfg.Device.Slot),
		galaxy7.WithBacklightTimeout(s.cfg.Display.BacklightTimeout),
	}
	if s.cfg.Display.Text != "" {
		opts = append(opts, galaxy7.WithDisplayText(s.cfg.Display.Text))
	}
	if s.cfg.Beep.Enabled {
		opts = append(opts, galaxy7.WithBeep(true, byte(s.cfg.Beep.Period), byte(s.cfg.Beep.Quiet)))
	}

	device, err := galaxy7.New(transport, opts...)
	if err != nil {
		_ = transport.Close()
		return nil, "", fmt.Errorf("failed to create keypad device: %w", err)
	}
	return device, path, nil
}

func detectBusAdapter(ctx context.Context, s *session) (string, error) {
	s.logger.Info("auto-detecting keypad bus adapter")

	opts := detection.DefaultOptions()
	opts.ProbeSlot = s.cfg.Device.Slot

	devices, err := detection.Detect(ctx, &opts)
	if err != nil {
		return "", fmt.Errorf("bus detection: %w", err)
	}

	best := pickDevice(devices)
	s.logger.Info("using detected adapter",
		zap.String("path", best.Path),
		zap.Stringer("confidence", best.Confidence))
	return best.Path, nil
}

// pickDevice selects the candidate a human would: proven ports first.
// Callers guarantee a non-empty list.
func pickDevice(devices []detection.DeviceInfo) detection.DeviceInfo {
	best := devices[0]
	for _, device := range devices[1:] {
		if device.Confidence > best.Confidence {
			best = device
		}
	}
	return best
}

// awaitOnline drives the engine until the keypad answers or the deadline
// passes
func awaitOnline(ctx context.Context, device *galaxy7.Device, timeout time.Duration) error {
	interval := galaxy7.DefaultConfig().TickInterval
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for keypad: %w", ctx.Err())
		default:
		}

		if err := device.Tick(); err != nil {
			return fmt.Errorf("engine tick: %w", err)
		}
		if device.PanelOnline() {
			return nil
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("keypad did not answer within %s", timeout)
}

func closeDevice(device *galaxy7.Device, logger *zap.Logger) {
	if err := device.Close(); err != nil {
		logger.Warn("failed to close device", zap.Error(err))
	}
}
