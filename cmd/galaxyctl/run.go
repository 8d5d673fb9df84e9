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
	"golang.org/x/sync/errgroup"

	galaxy7 "github.com/OpenGalaxyProject/go-galaxy7"
)

func runCommand() *cobra.Command {
	var (
		text            string
		showCodes       bool
		metricsInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the keypad engine and log events until interrupted",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			return runEngine(text, showCodes, metricsInterval)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "Initial display text, lines joined by '|'")
	cmd.Flags().BoolVar(&showCodes, "show-codes", false,
		"Log entered codes in full instead of just the digit count")
	cmd.Flags().DurationVar(&metricsInterval, "metrics-interval", time.Minute,
		"How often to log engine counters (0 disables)")

	return cmd
}

func runEngine(text string, showCodes bool, metricsInterval time.Duration) error {
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

	if text != "" {
		device.SetDisplayText(text)
	}

	log := s.logger.With(zap.String("session", s.id))
	registerEventLogging(device, log, showCodes)

	if err := device.Start(); err != nil {
		return fmt.Errorf("engine start: %w", err)
	}
	log.Info("engine running",
		zap.String("device", path),
		zap.Int("slot", s.cfg.Device.Slot))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return device.Run(gctx)
	})
	if metricsInterval > 0 {
		g.Go(func() error {
			reportMetrics(gctx, device, log, metricsInterval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logMetrics(log, device.Metrics())
	log.Info("shutdown complete")
	return nil
}

// registerEventLogging wires the engine callbacks to the logger. Codes
// are PINs, so by default only their length is logged.
func registerEventLogging(device *galaxy7.Device, log *zap.Logger, showCodes bool) {
	device.SetOnCodeEntered(func(code string) {
		if code == "" {
			return
		}
		if showCodes {
			log.Info("code entered", zap.String("code", code))
			return
		}
		log.Info("code entered", zap.Int("digits", len(code)))
	})
	device.SetOnKey(func(name string, tamper bool) {
		log.Debug("key", zap.String("name", name), zap.Bool("tamper", tamper))
	})
	device.SetOnTamperChanged(func(tampered bool) {
		if tampered {
			log.Warn("tamper raised")
			return
		}
		log.Info("tamper cleared")
	})
	device.SetOnOnlineChanged(func(online bool) {
		if online {
			log.Info("keypad online")
			return
		}
		log.Warn("keypad offline")
	})
}

func reportMetrics(ctx context.Context, device *galaxy7.Device, log *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logMetrics(log, device.Metrics())
		}
	}
}

func logMetrics(log *zap.Logger, m galaxy7.Metrics) {
	log.Info("engine counters",
		zap.Uint64("framesSent", m.FramesSent),
		zap.Uint64("repliesHandled", m.RepliesHandled),
		zap.Uint64("replyTimeouts", m.ReplyTimeouts),
		zap.Uint64("checksumFailures", m.ChecksumFailures),
		zap.Uint64("rejections", m.Rejections),
		zap.Uint64("keysAccepted", m.KeysAccepted),
		zap.Uint64("keysDeduped", m.KeysDeduped),
		zap.Uint64("codesSubmitted", m.CodesSubmitted),
		zap.Uint64("offlineTransitions", m.OfflineTransitions))
}
