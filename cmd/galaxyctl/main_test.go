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

//nolint:paralleltest // Test file - tests mutate package-level flag state
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	galaxy7 "github.com/OpenGalaxyProject/go-galaxy7"
	"github.com/OpenGalaxyProject/go-galaxy7/detection"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()

	want := map[string]bool{
		"run":   false,
		"ports": false,
		"write": false,
		"raw":   false,
		"soak":  false,
	}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galaxyctl.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Device.Path != "" {
		t.Errorf("expected empty device path, got %q", cfg.Device.Path)
	}
	if cfg.Device.Slot != 2 {
		t.Errorf("expected default slot 2, got %d", cfg.Device.Slot)
	}
	if cfg.Display.BacklightTimeout != 15*time.Second {
		t.Errorf("expected 15s backlight timeout, got %v", cfg.Display.BacklightTimeout)
	}
	if cfg.Beep.Enabled {
		t.Error("expected beep disabled by default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	content := `device:
  path: /dev/ttyUSB3
  slot: 3
  txEnablePin: GPIO17
  kernelRS485: true
display:
  text: "Front door|Enter code"
  backlightTimeout: 30s
beep:
  enabled: true
  period: 4
  quiet: 6
logging:
  level: debug
  format: json
`
	path := filepath.Join(t.TempDir(), "galaxyctl.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Device.Path != "/dev/ttyUSB3" || cfg.Device.Slot != 3 {
		t.Errorf("unexpected device config: %+v", cfg.Device)
	}
	if cfg.Device.TXEnablePin != "GPIO17" || !cfg.Device.KernelRS485 {
		t.Errorf("unexpected RS485 config: %+v", cfg.Device)
	}
	if cfg.Display.Text != "Front door|Enter code" {
		t.Errorf("unexpected display text %q", cfg.Display.Text)
	}
	if cfg.Display.BacklightTimeout != 30*time.Second {
		t.Errorf("expected 30s backlight timeout, got %v", cfg.Display.BacklightTimeout)
	}
	if !cfg.Beep.Enabled || cfg.Beep.Period != 4 || cfg.Beep.Quiet != 6 {
		t.Errorf("unexpected beep config: %+v", cfg.Beep)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := loadConfig("/nonexistent/galaxyctl.yaml")
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	defer func() {
		flagDevice = ""
		flagSlot = 0
		flagLogLevel = ""
		flagLogFormat = ""
	}()

	cfg := &cliConfig{
		Device:  deviceConfig{Path: "/dev/ttyAMA0", Slot: 2},
		Logging: loggingConfig{Level: "info", Format: "console"},
	}

	flagDevice = "/dev/ttyUSB0"
	flagSlot = 4
	flagLogLevel = "debug"
	flagLogFormat = "json"
	applyFlagOverrides(cfg)

	if cfg.Device.Path != "/dev/ttyUSB0" || cfg.Device.Slot != 4 {
		t.Errorf("flag overrides not applied: %+v", cfg.Device)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging overrides not applied: %+v", cfg.Logging)
	}

	// Zero-valued flags leave the config alone
	flagDevice = ""
	flagSlot = 0
	cfg.Device = deviceConfig{Path: "/dev/ttyAMA0", Slot: 2}
	applyFlagOverrides(cfg)
	if cfg.Device.Path != "/dev/ttyAMA0" || cfg.Device.Slot != 2 {
		t.Errorf("zero flags should not override: %+v", cfg.Device)
	}
}

func TestNewSessionID(t *testing.T) {
	id := newSessionID()
	if !strings.HasPrefix(id, "galaxyctl-") {
		t.Errorf("unexpected session ID prefix: %q", id)
	}
	if len(id) != len("galaxyctl-")+8 {
		t.Errorf("unexpected session ID length: %q", id)
	}
	if id == newSessionID() {
		t.Error("session IDs should be unique")
	}
}

func TestPickDevice(t *testing.T) {
	devices := []detection.DeviceInfo{
		{Path: "/dev/ttyS0", Confidence: detection.Low},
		{Path: "/dev/ttyUSB0", Confidence: detection.High},
		{Path: "/dev/ttyAMA0", Confidence: detection.Medium},
	}

	best := pickDevice(devices)
	if best.Path != "/dev/ttyUSB0" {
		t.Errorf("expected the high-confidence port, got %q", best.Path)
	}

	// First wins among equals
	equal := []detection.DeviceInfo{
		{Path: "/dev/ttyUSB0", Confidence: detection.Medium},
		{Path: "/dev/ttyUSB1", Confidence: detection.Medium},
	}
	if got := pickDevice(equal).Path; got != "/dev/ttyUSB0" {
		t.Errorf("expected first port among equals, got %q", got)
	}
}

func TestParseProbeMode(t *testing.T) {
	tests := []struct {
		input   string
		want    detection.Mode
		wantErr bool
	}{
		{"passive", detection.Passive, false},
		{"safe", detection.Safe, false},
		{"full", detection.Full, false},
		{"aggressive", detection.Passive, true},
		{"", detection.Passive, true},
	}

	for _, tc := range tests {
		mode, err := parseProbeMode(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseProbeMode(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseProbeMode(%q): %v", tc.input, err)
			continue
		}
		if mode != tc.want {
			t.Errorf("parseProbeMode(%q) = %v, want %v", tc.input, mode, tc.want)
		}
	}
}

func TestParseRawBytes(t *testing.T) {
	data, err := parseRawBytes([]string{"20", "00", "0E"})
	if err != nil {
		t.Fatalf("parseRawBytes failed: %v", err)
	}
	if !bytes.Equal(data, []byte{0x20, 0x00, 0x0E}) {
		t.Errorf("unexpected bytes: %X", data)
	}

	data, err = parseRawBytes([]string{"20:00:0e"})
	if err != nil {
		t.Fatalf("parseRawBytes with colons failed: %v", err)
	}
	if !bytes.Equal(data, []byte{0x20, 0x00, 0x0E}) {
		t.Errorf("unexpected bytes: %X", data)
	}

	if _, err := parseRawBytes([]string{"GG"}); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := parseRawBytes([]string{"::"}); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, err := parseRawBytes([]string{"200"}); err == nil {
		t.Error("expected error for odd-length hex")
	}
}

func TestSoakPattern(t *testing.T) {
	// Line cycle exercises the full sixteen columns on both lines
	full := soakPattern(1)
	lines := strings.SplitN(full, "|", 2)
	if len(lines) != 2 || len(lines[0]) != galaxy7.ScreenColumns || len(lines[1]) != galaxy7.ScreenColumns {
		t.Errorf("pattern 1 should fill both lines: %q", full)
	}

	if soakPattern(3) != "" {
		t.Errorf("pattern 3 should be the empty banner, got %q", soakPattern(3))
	}
	if soakPattern(0) == soakPattern(4) {
		t.Error("cycle counter should appear in the rotating pattern")
	}
}

func TestMetricsDelta(t *testing.T) {
	baseline := galaxy7.Metrics{FramesSent: 100, ReplyTimeouts: 2, KeysAccepted: 5}
	final := galaxy7.Metrics{FramesSent: 250, ReplyTimeouts: 3, KeysAccepted: 9}

	delta := metricsDelta(baseline, final)
	if delta.FramesSent != 150 || delta.ReplyTimeouts != 1 || delta.KeysAccepted != 4 {
		t.Errorf("unexpected delta: %+v", delta)
	}
	if delta.ChecksumFailures != 0 {
		t.Errorf("untouched counter should be zero, got %d", delta.ChecksumFailures)
	}
}

func TestBuildSoakReport(t *testing.T) {
	device, err := galaxy7.New(galaxy7.NewMockTransport())
	if err != nil {
		t.Fatalf("failed to create device: %v", err)
	}
	defer func() { _ = device.Close() }()

	started := time.Now().Add(-3 * time.Second)
	report := buildSoakReport("galaxyctl-test", "/dev/null", started, 7,
		galaxy7.Metrics{}, device, nil)

	if report.Cycles != 7 || report.SessionID != "galaxyctl-test" {
		t.Errorf("unexpected report: %+v", report)
	}
	// No replies ever arrived, so the keypad is offline and the run fails
	if report.OnlineAtEnd || report.Passed {
		t.Errorf("offline device should fail the soak: %+v", report)
	}

	report = buildSoakReport("galaxyctl-test", "/dev/null", started, 7,
		galaxy7.Metrics{}, device, errors.New("bus fell over"))
	if report.Error != "bus fell over" || report.Passed {
		t.Errorf("run error should be recorded and fail the soak: %+v", report)
	}
}

func TestWriteSoakReport(t *testing.T) {
	report := &SoakReport{
		Timestamp: time.Now(),
		SessionID: "galaxyctl-test",
		Device:    "/dev/ttyUSB0",
		Duration:  "1m0s",
		Cycles:    30,
		Passed:    true,
	}

	path := filepath.Join(t.TempDir(), "soak.json")
	written, err := writeSoakReport(report, path)
	if err != nil {
		t.Fatalf("writeSoakReport failed: %v", err)
	}
	if written != path {
		t.Errorf("expected report at %q, got %q", path, written)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var decoded SoakReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Cycles != 30 || !decoded.Passed {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}
}

func TestPortDetail(t *testing.T) {
	withProduct := detection.DeviceInfo{Metadata: map[string]string{
		"product": "USB-RS485 Converter",
		"vidpid":  "0403:6001",
	}}
	if got := portDetail(&withProduct); got != "USB-RS485 Converter [0403:6001]" {
		t.Errorf("unexpected detail: %q", got)
	}

	vidOnly := detection.DeviceInfo{Metadata: map[string]string{"vidpid": "1A86:7523"}}
	if got := portDetail(&vidOnly); got != "1A86:7523" {
		t.Errorf("unexpected detail: %q", got)
	}

	bare := detection.DeviceInfo{Metadata: map[string]string{}}
	if got := portDetail(&bare); got != "built-in UART" {
		t.Errorf("unexpected detail: %q", got)
	}
}
