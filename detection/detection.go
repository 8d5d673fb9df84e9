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

// Package detection locates the serial port a Galaxy keypad bus hangs
// off. It enumerates candidate adapters from the host, filters them by
// descriptor, and optionally probes each one by polling for a keypad.
package detection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Mode represents the level of invasiveness for bus detection
type Mode int

const (
	// Passive mode only inspects port descriptors, nothing touches the wire
	Passive Mode = iota
	// Safe mode sends a single init poll per port and listens for a keypad
	Safe
	// Full mode runs the complete engine bring-up against each port
	Full
)

// Confidence represents the confidence level of bus detection
type Confidence int

const (
	// Low confidence - port exists but nothing marks it as a keypad bus
	Low Confidence = iota
	// Medium confidence - port descriptors match a known bus adapter
	Medium
	// High confidence - a keypad answered a poll on this port
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo describes one detected keypad bus candidate
type DeviceInfo struct {
	// Additional metadata (e.g., VID:PID for USB adapters)
	Metadata map[string]string
	// Connection path (e.g., "/dev/ttyUSB0", "/dev/ttyAMA0")
	Path string
	// Human-readable port name
	Name string
	// Detection confidence level
	Confidence Confidence
}

// String returns a human-readable representation of the candidate
func (d DeviceInfo) String() string {
	return fmt.Sprintf("keypad bus at %s (confidence: %s)", d.Path, d.Confidence)
}

// Options configures the detection behavior
type Options struct {
	// USB VID:PID pairs to skip (e.g., ["1234:5678", "ABCD:EF01"])
	Blocklist []string
	// Device paths to explicitly ignore (e.g., ["/dev/ttyUSB0", "COM2"])
	IgnorePaths []string
	// Cache TTL duration
	CacheTTL time.Duration
	// Maximum time to wait for detection
	Timeout time.Duration
	// Screen slot the probe polls as (1-4)
	ProbeSlot int
	// Detection invasiveness level
	Mode Mode
	// Enable result caching
	EnableCache bool
}

// DefaultOptions returns sensible default detection options
func DefaultOptions() Options {
	return Options{
		Mode:        Safe,
		Timeout:     5 * time.Second,
		ProbeSlot:   2,
		Blocklist:   DefaultBlocklist(),
		EnableCache: true,
		CacheTTL:    30 * time.Second,
	}
}

// Errors
var (
	// ErrNoDevicesFound indicates no keypad bus candidates were detected
	ErrNoDevicesFound = errors.New("no keypad bus adapters found")
	// ErrDetectionTimeout indicates detection timed out
	ErrDetectionTimeout = errors.New("detection timeout")
)

// Detect searches the host for keypad bus adapters. In Safe and Full
// modes each surviving candidate is probed on the wire, so detection
// takes real bus time per port.
func Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	} else if opts.ProbeSlot == 0 {
		scratch := *opts
		scratch.ProbeSlot = 2
		opts = &scratch
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if opts.EnableCache {
		if cached, found := getCached(opts.CacheTTL); found {
			// Cached results bypassed the filters below, so apply them
			// here; the ignore list may have changed since the scan.
			return filterDevices(cached, opts), nil
		}
	}

	ports, err := listSerialPorts(ctx)
	if err != nil {
		return nil, err
	}

	candidates := filterPorts(ports, opts)
	devices := probeCandidates(ctx, candidates, opts)

	if opts.EnableCache {
		if len(devices) > 0 {
			setCached(devices)
		} else {
			// Clear stale entries when nothing answered, or a cached
			// result for an unplugged adapter survives until TTL expiry.
			clearCache()
		}
	}

	if len(devices) == 0 {
		if ctx.Err() != nil {
			return nil, ErrDetectionTimeout
		}
		return nil, ErrNoDevicesFound
	}
	return devices, nil
}

// portInfo is one enumerated serial port with whatever descriptors the
// platform exposes for it
type portInfo struct {
	Path         string
	Name         string
	VIDPID       string
	Manufacturer string
	Product      string
	SerialNumber string
}

// filterPorts drops blocked and ignored ports. Likelihood scoring does
// not happen here; an anonymous built-in UART can still carry the bus,
// so it stays in until the mode decides what to do with it.
func filterPorts(ports []portInfo, opts *Options) []portInfo {
	var filtered []portInfo
	for _, port := range ports {
		if port.VIDPID != "" && IsBlocked(port.VIDPID, opts.Blocklist) {
			continue
		}
		if IsPathIgnored(port.Path, opts.IgnorePaths) {
			continue
		}
		filtered = append(filtered, port)
	}
	return filtered
}

// probeCandidates converts surviving ports to device infos, probing
// where the mode calls for it
func probeCandidates(ctx context.Context, ports []portInfo, opts *Options) []DeviceInfo {
	var devices []DeviceInfo
	for i := range ports {
		select {
		case <-ctx.Done():
			return devices
		default:
		}

		device, include := processPort(ctx, &ports[i], opts)
		if include {
			devices = append(devices, device)
		}
	}
	return devices
}

// processPort handles a single port's detection logic
func processPort(ctx context.Context, port *portInfo, opts *Options) (DeviceInfo, bool) {
	likely := likelyBusAdapter(port)

	if opts.Mode == Passive {
		if !likely {
			return DeviceInfo{}, false
		}
		return newDeviceInfo(port, Medium), true
	}

	confidence := Low
	if likely {
		confidence = Medium
	}
	device := newDeviceInfo(port, confidence)

	if probeKeypad(ctx, port.Path, opts.ProbeSlot, opts.Mode) {
		device.Confidence = High
		return device, true
	}
	if opts.Mode == Safe && !likely {
		// Nothing answered and nothing marks this port as a bus
		// adapter; listing it would just be noise.
		return DeviceInfo{}, false
	}
	return device, true
}

// newDeviceInfo builds a DeviceInfo from port data
func newDeviceInfo(port *portInfo, confidence Confidence) DeviceInfo {
	device := DeviceInfo{
		Path:       port.Path,
		Name:       port.Name,
		Confidence: confidence,
		Metadata:   make(map[string]string),
	}
	if port.VIDPID != "" {
		device.Metadata["vidpid"] = port.VIDPID
	}
	if port.Manufacturer != "" {
		device.Metadata["manufacturer"] = port.Manufacturer
	}
	if port.Product != "" {
		device.Metadata["product"] = port.Product
	}
	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}
	return device
}

// filterDevices applies IgnorePaths and Blocklist filtering to a device
// list, so cached results respect the same filtering as a fresh scan
func filterDevices(devices []DeviceInfo, opts *Options) []DeviceInfo {
	if len(opts.IgnorePaths) == 0 && len(opts.Blocklist) == 0 {
		return devices
	}

	var filtered []DeviceInfo
	for _, device := range devices {
		if IsPathIgnored(device.Path, opts.IgnorePaths) {
			continue
		}
		if vidpid, ok := device.Metadata["vidpid"]; ok && IsBlocked(vidpid, opts.Blocklist) {
			continue
		}
		filtered = append(filtered, device)
	}
	return filtered
}

// ClearDetectionCache removes all cached detection results
func ClearDetectionCache() {
	clearCache()
}
