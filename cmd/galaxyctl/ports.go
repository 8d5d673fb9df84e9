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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenGalaxyProject/go-galaxy7/detection"
)

func portsCommand() *cobra.Command {
	var (
		probe    string
		timeout  time.Duration
		asJSON   bool
		useCache bool
	)

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Scan serial ports for keypad bus adapters",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			return scanPorts(probe, timeout, asJSON, useCache)
		},
	}
	cmd.Flags().StringVar(&probe, "probe", "safe",
		"Probe depth: passive (descriptors only), safe (one poll) or full (engine bring-up)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Overall scan deadline")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	cmd.Flags().BoolVar(&useCache, "cached", false, "Reuse results from a recent scan")

	return cmd
}

// portReport is the JSON form of one detected candidate
type portReport struct {
	Metadata   map[string]string `json:"metadata,omitempty"`
	Path       string            `json:"path"`
	Name       string            `json:"name,omitempty"`
	Confidence string            `json:"confidence"`
}

func scanPorts(probe string, timeout time.Duration, asJSON, useCache bool) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	mode, err := parseProbeMode(probe)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := detection.DefaultOptions()
	opts.Mode = mode
	opts.Timeout = timeout
	opts.ProbeSlot = s.cfg.Device.Slot
	opts.EnableCache = useCache

	devices, err := detection.Detect(ctx, &opts)
	if err != nil {
		return fmt.Errorf("port scan: %w", err)
	}

	if asJSON {
		return printPortsJSON(devices)
	}
	printPortsTable(devices)
	return nil
}

func parseProbeMode(probe string) (detection.Mode, error) {
	switch probe {
	case "passive":
		return detection.Passive, nil
	case "safe":
		return detection.Safe, nil
	case "full":
		return detection.Full, nil
	default:
		return detection.Passive, fmt.Errorf("unknown probe depth %q (want passive, safe or full)", probe)
	}
}

func printPortsJSON(devices []detection.DeviceInfo) error {
	reports := make([]portReport, 0, len(devices))
	for _, device := range devices {
		reports = append(reports, portReport{
			Path:       device.Path,
			Name:       device.Name,
			Confidence: device.Confidence.String(),
			Metadata:   device.Metadata,
		})
	}

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal port report: %w", err)
	}
	_, _ = fmt.Fprintln(os.Stdout, string(data))
	return nil
}

func printPortsTable(devices []detection.DeviceInfo) {
	_, _ = fmt.Printf("%-20s %-10s %s\n", "PATH", "CONFIDENCE", "DETAIL")
	for _, device := range devices {
		_, _ = fmt.Printf("%-20s %-10s %s\n",
			device.Path, device.Confidence, portDetail(&device))
	}
}

func portDetail(device *detection.DeviceInfo) string {
	if product, ok := device.Metadata["product"]; ok {
		if vidpid, ok := device.Metadata["vidpid"]; ok {
			return fmt.Sprintf("%s [%s]", product, vidpid)
		}
		return product
	}
	if vidpid, ok := device.Metadata["vidpid"]; ok {
		return vidpid
	}
	return "built-in UART"
}
