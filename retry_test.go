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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callTracker is a helper for counting function calls in tests
type callTracker struct {
	calls int
}

// fastRetryConfig returns a config with microsecond backoffs so retry
// tests complete quickly.
func fastRetryConfig(maxAttempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       maxAttempts,
		InitialBackoff:    1 * time.Microsecond,
		MaxBackoff:        10 * time.Microsecond,
		BackoffMultiplier: 2.0,
		Jitter:            0.0,
		RetryTimeout:      100 * time.Millisecond,
	}
}

func TestRetryConfig_DefaultRetryConfig(t *testing.T) {
	t.Parallel()

	config := DefaultRetryConfig()

	assert.NotNil(t, config)
	assert.Positive(t, config.MaxAttempts)
	assert.Greater(t, config.InitialBackoff, time.Duration(0))
	assert.Greater(t, config.MaxBackoff, config.InitialBackoff)
	assert.Greater(t, config.BackoffMultiplier, 1.0)
	assert.GreaterOrEqual(t, config.Jitter, 0.0)
	assert.LessOrEqual(t, config.Jitter, 1.0)
	assert.Greater(t, config.RetryTimeout, time.Duration(0))
}

// TestCalculateNextBackoff tests exponential backoff calculation
func TestCalculateNextBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		config         *RetryConfig
		name           string
		currentBackoff time.Duration
		expected       time.Duration
	}{
		{
			name:           "Normal exponential growth",
			currentBackoff: 100 * time.Millisecond,
			config: &RetryConfig{
				BackoffMultiplier: 2.0,
				MaxBackoff:        5 * time.Second,
			},
			expected: 200 * time.Millisecond,
		},
		{
			name:           "Hits maximum backoff limit",
			currentBackoff: 3 * time.Second,
			config: &RetryConfig{
				BackoffMultiplier: 2.0,
				MaxBackoff:        5 * time.Second,
			},
			expected: 5 * time.Second,
		},
		{
			name:           "Fractional multiplier",
			currentBackoff: 200 * time.Millisecond,
			config: &RetryConfig{
				BackoffMultiplier: 1.5,
				MaxBackoff:        10 * time.Second,
			},
			expected: 300 * time.Millisecond,
		},
		{
			name:           "Large backoff capped at maximum",
			currentBackoff: 10 * time.Second,
			config: &RetryConfig{
				BackoffMultiplier: 3.0,
				MaxBackoff:        15 * time.Second,
			},
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := calculateNextBackoff(tt.currentBackoff, tt.config)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestCalculateJitteredSleep tests jitter application to backoff
func TestCalculateJitteredSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		baseSleep    time.Duration
		jitterFactor float64
		iterations   int
	}{
		{
			name:         "No jitter",
			baseSleep:    100 * time.Millisecond,
			jitterFactor: 0.0,
			iterations:   10,
		},
		{
			name:         "Small jitter",
			baseSleep:    100 * time.Millisecond,
			jitterFactor: 0.1,
			iterations:   100,
		},
		{
			name:         "Large jitter",
			baseSleep:    1 * time.Second,
			jitterFactor: 0.5,
			iterations:   100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			maxExpected := tt.baseSleep + time.Duration(float64(tt.baseSleep)*tt.jitterFactor)
			for range tt.iterations {
				result := calculateJitteredSleep(tt.baseSleep, tt.jitterFactor)

				// Jitter only adds on top of the base sleep
				assert.GreaterOrEqual(t, result, tt.baseSleep)
				assert.LessOrEqual(t, result, maxExpected)

				if tt.jitterFactor == 0.0 {
					assert.Equal(t, tt.baseSleep, result)
				}
			}
		})
	}
}

// TestRetryWithConfig tests the main retry logic
func TestRetryWithConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		config        *RetryConfig
		setupFunc     func() (RetryableFunc, *callTracker)
		name          string
		expectedError string
		expectedCalls int
	}{
		{
			name:   "Success on first attempt",
			config: fastRetryConfig(3),
			setupFunc: func() (RetryableFunc, *callTracker) {
				tracker := &callTracker{}
				fn := func() error {
					tracker.calls++
					return nil
				}
				return fn, tracker
			},
			expectedCalls: 1,
		},
		{
			name:   "Success after retries",
			config: fastRetryConfig(3),
			setupFunc: func() (RetryableFunc, *callTracker) {
				tracker := &callTracker{}
				fn := func() error {
					tracker.calls++
					if tracker.calls < 3 {
						return NewTransportWriteError("Write", "/dev/ttyUSB0")
					}
					return nil
				}
				return fn, tracker
			},
			expectedCalls: 3,
		},
		{
			name:   "Non-retryable error fails immediately",
			config: fastRetryConfig(3),
			setupFunc: func() (RetryableFunc, *callTracker) {
				tracker := &callTracker{}
				fn := func() error {
					tracker.calls++
					return NewTransportClosedError("Write", "/dev/ttyUSB0")
				}
				return fn, tracker
			},
			expectedError: "transport is closed",
			expectedCalls: 1,
		},
		{
			name:   "Retryable error exhausts attempts",
			config: fastRetryConfig(2),
			setupFunc: func() (RetryableFunc, *callTracker) {
				tracker := &callTracker{}
				fn := func() error {
					tracker.calls++
					return NewTransportReadError("Read", "/dev/ttyUSB0")
				}
				return fn, tracker
			},
			expectedError: "transport read failed",
			expectedCalls: 2,
		},
		{
			name:   "Zero max attempts runs once without retry",
			config: fastRetryConfig(0),
			setupFunc: func() (RetryableFunc, *callTracker) {
				tracker := &callTracker{}
				fn := func() error {
					tracker.calls++
					return NewTransportReadError("Read", "/dev/ttyUSB0")
				}
				return fn, tracker
			},
			expectedError: "transport read failed",
			expectedCalls: 1,
		},
		{
			name:   "Nil config uses defaults",
			config: nil,
			setupFunc: func() (RetryableFunc, *callTracker) {
				tracker := &callTracker{}
				fn := func() error {
					tracker.calls++
					return nil
				}
				return fn, tracker
			},
			expectedCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fn, tracker := tt.setupFunc()

			err := RetryWithConfig(context.Background(), tt.config, fn)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.expectedCalls, tracker.calls)
		})
	}
}

// TestRetryWithConfig_ContextCancellation tests context cancellation behavior
func TestRetryWithConfig_ContextCancellation(t *testing.T) {
	t.Parallel()

	config := &RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    20 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            0.0,
		RetryTimeout:      0, // No overall timeout, only the caller's context
	}

	tracker := &callTracker{}
	fn := func() error {
		tracker.calls++
		return NewTransportReadError("Read", "/dev/ttyUSB0")
	}

	// Cancel while the retry loop is sleeping between attempts
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := RetryWithConfig(ctx, config, fn)

	// The last transport error surfaces, not the context error
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportRead)

	// Cancellation lands during the first backoff sleep
	assert.GreaterOrEqual(t, tracker.calls, 1)
	assert.Less(t, tracker.calls, 5)
}

// BenchmarkCalculateJitteredSleep benchmarks jitter calculation performance
func BenchmarkCalculateJitteredSleep(b *testing.B) {
	baseSleep := 100 * time.Millisecond
	jitterFactor := 0.1

	b.ResetTimer()
	for range b.N {
		calculateJitteredSleep(baseSleep, jitterFactor)
	}
}

// BenchmarkCalculateNextBackoff benchmarks backoff calculation performance
func BenchmarkCalculateNextBackoff(b *testing.B) {
	config := &RetryConfig{
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Second,
	}
	backoff := 100 * time.Millisecond

	b.ResetTimer()
	for range b.N {
		calculateNextBackoff(backoff, config)
	}
}
