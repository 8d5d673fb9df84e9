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
	"encoding/hex"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenGalaxyProject/go-galaxy7/internal/frame"
)

func rawCommand() *cobra.Command {
	var withChecksum bool

	cmd := &cobra.Command{
		Use:   "raw HEX [HEX...]",
		Short: "Write raw bytes to the bus, outside the protocol engine",
		Long: "Write raw bytes to the bus, outside the protocol engine. Arguments\n" +
			"are hex, spaces and colons ignored: galaxyctl raw --checksum 20 00 0E.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return writeRawBytes(args, withChecksum)
		},
	}
	cmd.Flags().BoolVar(&withChecksum, "checksum", false,
		"Append the bus checksum to the payload before sending")

	return cmd
}

func writeRawBytes(args []string, withChecksum bool) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	// Raw writes poke whatever is on the other end, so the port must be
	// named explicitly rather than auto-detected
	if s.cfg.Device.Path == "" {
		return errors.New("raw requires an explicit device path (--device or config)")
	}

	data, err := parseRawBytes(args)
	if err != nil {
		return err
	}
	if withChecksum {
		data = frame.Append(data)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	device, path, err := openDevice(ctx, s)
	if err != nil {
		return err
	}
	defer closeDevice(device, s.logger)

	if err := device.WriteRaw(ctx, data); err != nil {
		return fmt.Errorf("raw write: %w", err)
	}

	s.logger.Info("raw bytes written",
		zap.String("device", path),
		zap.String("data", strings.ToUpper(hex.EncodeToString(data))),
		zap.Int("bytes", len(data)))
	return nil
}

// parseRawBytes joins the hex arguments, tolerating space and colon
// separators
func parseRawBytes(args []string) ([]byte, error) {
	joined := strings.Join(args, "")
	joined = strings.ReplaceAll(joined, ":", "")
	joined = strings.ReplaceAll(joined, " ", "")

	if joined == "" {
		return nil, errors.New("no hex bytes given")
	}
	data, err := hex.DecodeString(joined)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", joined, err)
	}
	return data, nil
}
