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

//go:build linux

package detection

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// listSerialPorts returns the serial ports present on a Linux host. USB
// adapters come with their sysfs descriptors attached; built-in UARTs
// carry a path and name only.
func listSerialPorts(_ context.Context) ([]portInfo, error) {
	var ports []portInfo

	usbPorts, err := usbSerialPorts()
	if err == nil {
		ports = append(ports, usbPorts...)
	}
	ports = append(ports, builtinSerialPorts()...)

	if len(ports) == 0 {
		return globSerialPorts()
	}
	return ports, nil
}

// usbSerialPorts walks /sys/class/tty looking for tty devices that hang
// off the USB bus
func usbSerialPorts() ([]portInfo, error) {
	const ttyDir = "/sys/class/tty"
	entries, err := os.ReadDir(ttyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", ttyDir, err)
	}

	var ports []portInfo
	for _, entry := range entries {
		if port, ok := usbPortFromEntry(ttyDir, entry); ok {
			ports = append(ports, port)
		}
	}
	return ports, nil
}

// usbPortFromEntry resolves one tty class entry to a USB port, if it is one
func usbPortFromEntry(ttyDir string, entry os.DirEntry) (portInfo, bool) {
	if entry.IsDir() {
		return portInfo{}, false
	}

	devicePath := filepath.Join(ttyDir, entry.Name(), "device")
	if _, err := os.Stat(devicePath); err != nil {
		return portInfo{}, false
	}
	resolved, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		return portInfo{}, false
	}
	if !strings.Contains(resolved, "/usb") {
		return portInfo{}, false
	}

	port := portInfo{
		Path: "/dev/" + entry.Name(),
		Name: entry.Name(),
	}
	readUSBAttributes(&port, resolved)
	return port, true
}

// readUSBAttributes walks up the sysfs device tree until it finds the
// USB device node carrying the identifiers
func readUSBAttributes(port *portInfo, devicePath string) {
	current := devicePath
	for range 10 { // Limit iterations to prevent infinite loops
		if readUSBIdentifiers(port, current) {
			return
		}
		current = filepath.Dir(current)
		if current == "/" || current == "." {
			return
		}
	}
}

// readUSBIdentifiers reads vendor/product IDs and descriptors from a
// sysfs USB device node
func readUSBIdentifiers(port *portInfo, path string) bool {
	cleanPath := filepath.Clean(path)
	if !strings.HasPrefix(cleanPath, "/sys/") {
		return false
	}

	// #nosec G304 -- Path is validated to be under /sys/
	vidBytes, vidErr := os.ReadFile(filepath.Join(cleanPath, "idVendor"))
	if vidErr != nil {
		return false
	}
	// #nosec G304 -- Path is validated to be under /sys/
	pidBytes, pidErr := os.ReadFile(filepath.Join(cleanPath, "idProduct"))
	if pidErr != nil {
		return false
	}

	vid := strings.TrimSpace(string(vidBytes))
	pid := strings.TrimSpace(string(pidBytes))
	port.VIDPID = strings.ToUpper(vid + ":" + pid)

	// #nosec G304 -- Path is validated to be under /sys/
	if mfgBytes, err := os.ReadFile(filepath.Join(cleanPath, "manufacturer")); err == nil {
		port.Manufacturer = strings.TrimSpace(string(mfgBytes))
	}
	// #nosec G304 -- Path is validated to be under /sys/
	if prodBytes, err := os.ReadFile(filepath.Join(cleanPath, "product")); err == nil {
		port.Product = strings.TrimSpace(string(prodBytes))
	}
	// #nosec G304 -- Path is validated to be under /sys/
	if serialBytes, err := os.ReadFile(filepath.Join(cleanPath, "serial")); err == nil {
		port.SerialNumber = strings.TrimSpace(string(serialBytes))
	}
	return true
}

// builtinSerialPorts returns the host's non-USB UARTs. On a Pi the
// primary UART (ttyAMA0 or serial0) is where an RS485 transceiver board
// usually lands.
func builtinSerialPorts() []portInfo {
	var ports []portInfo
	patterns := []string{"/dev/ttyAMA*", "/dev/serial*", "/dev/ttyS*"}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			if _, err := os.Stat(path); err == nil {
				ports = append(ports, portInfo{
					Path: path,
					Name: filepath.Base(path),
				})
			}
		}
	}
	return ports
}

// globSerialPorts is the metadata-free fallback when sysfs gave nothing
func globSerialPorts() ([]portInfo, error) {
	var ports []portInfo
	patterns := []string{
		"/dev/ttyUSB*",
		"/dev/ttyACM*",
		"/dev/ttyAMA*",
		"/dev/ttyS*",
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			if _, err := os.Stat(path); err == nil {
				ports = append(ports, portInfo{
					Path: path,
					Name: filepath.Base(path),
				})
			}
		}
	}
	return ports, nil
}
