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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	galaxy7 "github.com/OpenGalaxyProject/go-galaxy7"
)

// SoakReport holds the outcome of one soak run for the bench log
type SoakReport struct {
	Timestamp   time.Time       `json:"timestamp"`
	SessionID   string          `json:"session_id"`
	Device      string          `json:"device"`
	Duration    string          `json:"duration"`
	Error       string          `json:"error,omitempty"`
	Counters    galaxy7.Metrics `json:"counters"`
	Cycles      int             `json:"cycles"`
	OnlineAtEnd bool            `json:"online_at_end"`
	Passed      bool            `json:"passed"`
}

func soakCommand() *cobra.Command {
	var (
		duration   time.Duration
		cycle      time.Duration
		beepEvery  int
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "soak",
		Short: "Cycle display and sounder traffic against a live keypad",
		Long: "Cycle display and sounder traffic against a live keypad and watch\n" +
			"the engine counters for link trouble. Intended for bench-testing\n" +
			"wiring, transceivers and keypads before an install.",
		Args: cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSoak(duration, cycle, beepEvery, reportPath)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", time.Minute, "How long to soak")
	cmd.Flags().DurationVar(&cycle, "cycle", 2*time.Second, "Delay between display updates")
	cmd.Flags().IntVar(&beepEvery, "beep-every", 5,
		"Pulse the sounder every N cycles (0 disables)")
	cmd.Flags().StringVar(&reportPath, "report", "",
		"Write a JSON report to this path (failures always write one)")

	return cmd
}

func runSoak(duration, cycle time.Duration, beepEvery int, reportPath string) error {
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

	printSoakBanner(path, duration)

	if err := device.Start(); err != nil {
		return fmt.Errorf("engine start: %w", err)
	}
	if err := awaitOnline(ctx, device, 10*time.Second); err != nil {
		return err
	}
	_, _ = fmt.Println("Keypad online, soaking... (Press Ctrl+C to stop early)")

	baseline := device.Metrics()
	started := time.Now()

	soakCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	g, gctx := errgroup.WithContext(soakCtx)
	g.Go(func() error {
		return device.Run(gctx)
	})

	cycles := 0
loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case <-time.After(cycle):
		}

		device.SetDisplayText(soakPattern(cycles))
		if beepEvery > 0 {
			switch cycles % beepEvery {
			case 0:
				device.SetBeep(true, 0x02, 0x03)
			case 1:
				device.SetBeep(false, 0x00, 0x00)
			}
		}
		cycles++
	}

	runErr := g.Wait()

	report := buildSoakReport(s.id, path, started, cycles, baseline, device, runErr)
	printSoakSummary(&report)

	if !report.Passed || reportPath != "" {
		filename, writeErr := writeSoakReport(&report, reportPath)
		if writeErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to write soak report: %v\n", writeErr)
		} else {
			_, _ = fmt.Printf("Report written to %s\n", filename)
		}
	}

	if runErr != nil {
		return fmt.Errorf("soak run: %w", runErr)
	}
	if !report.Passed {
		return errors.New("soak failed")
	}
	return nil
}

// soakPattern rotates through display contents that exercise the full
// column width, both lines and the empty-text banner path
func soakPattern(cycle int) string {
	switch cycle % 4 {
	case 0:
		return fmt.Sprintf("SOAK CYCLE %04d|SEGMENTS ABCDEF", cycle)
	case 1:
		return "0123456789ABCDEF|FEDCBA9876543210"
	case 2:
		return "################|################"
	default:
		return ""
	}
}

func buildSoakReport(
	sessionID, path string,
	started time.Time,
	cycles int,
	baseline galaxy7.Metrics,
	device *galaxy7.Device,
	runErr error,
) SoakReport {
	final := device.Metrics()
	delta := metricsDelta(baseline, final)
	online := device.PanelOnline()

	report := SoakReport{
		Timestamp:   time.Now(),
		SessionID:   sessionID,
		Device:      path,
		Duration:    time.Since(started).Round(time.Millisecond).String(),
		Cycles:      cycles,
		Counters:    delta,
		OnlineAtEnd: online,
		Passed: runErr == nil && online &&
			delta.OfflineTransitions == 0 && delta.ChecksumFailures == 0,
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	return report
}

func metricsDelta(baseline, final galaxy7.Metrics) galaxy7.Metrics {
	return galaxy7.Metrics{
		FramesSent:         final.FramesSent - baseline.FramesSent,
		RepliesHandled:     final.RepliesHandled - baseline.RepliesHandled,
		ReplyTimeouts:      final.ReplyTimeouts - baseline.ReplyTimeouts,
		ChecksumFailures:   final.ChecksumFailures - baseline.ChecksumFailures,
		Rejections:         final.Rejections - baseline.Rejections,
		Reinits:            final.Reinits - baseline.Reinits,
		KeysAccepted:       final.KeysAccepted - baseline.KeysAccepted,
		KeysDeduped:        final.KeysDeduped - baseline.KeysDeduped,
		CodesSubmitted:     final.CodesSubmitted - baseline.CodesSubmitted,
		OnlineTransitions:  final.OnlineTransitions - baseline.OnlineTransitions,
		OfflineTransitions: final.OfflineTransitions - baseline.OfflineTransitions,
	}
}

func printSoakBanner(path string, duration time.Duration) {
	_, _ = fmt.Println("================================================================================")
	_, _ = fmt.Println("                          Galaxy Keypad Bus Soak Test")
	_, _ = fmt.Println("================================================================================")
	_, _ = fmt.Printf("Device: %s  Duration: %s\n", path, duration)
}

func printSoakSummary(report *SoakReport) {
	status := "PASS"
	if !report.Passed {
		status = "FAIL"
	}

	_, _ = fmt.Println("================================================================================")
	_, _ = fmt.Printf("[%s] %d cycles in %s\n", status, report.Cycles, report.Duration)
	_, _ = fmt.Printf("  Frames sent:       %d\n", report.Counters.FramesSent)
	_, _ = fmt.Printf("  Replies handled:   %d\n", report.Counters.RepliesHandled)
	_, _ = fmt.Printf("  Reply timeouts:    %d\n", report.Counters.ReplyTimeouts)
	_, _ = fmt.Printf("  Checksum failures: %d\n", report.Counters.ChecksumFailures)
	_, _ = fmt.Printf("  Screen rejections: %d\n", report.Counters.Rejections)
	_, _ = fmt.Printf("  Offline drops:     %d\n", report.Counters.OfflineTransitions)
	if !report.OnlineAtEnd {
		_, _ = fmt.Println("  Keypad was OFFLINE at the end of the run")
	}
	_, _ = fmt.Println("================================================================================")
}

func writeSoakReport(report *SoakReport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("soak_%s.json", report.Timestamp.Format("20060102_150405"))
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal soak report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write soak report: %w", err)
	}
	return path, nil
}
