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

package testing

import (
	"io"
	"math/rand/v2"
	"time"
)

// JitterConfig configures the behavior of JitteryLink
type JitterConfig struct {
	// MaxLatency bounds the random delay added before each read
	MaxLatency time.Duration
	// FragmentMinBytes is the smallest read a fragmented link returns
	FragmentMinBytes int
	// Seed makes the fragmentation reproducible when non-zero
	Seed uint64
	// FragmentReads splits buffered data into random-sized reads
	FragmentReads bool
}

// DefaultJitterConfig returns single-byte fragmentation with a small
// random latency, the worst case a USB-RS485 bridge serves up.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatency:       20 * time.Millisecond,
		FragmentReads:    true,
		FragmentMinBytes: 1,
	}
}

// JitteryLink wraps an io.ReadWriter to deliver reads the way a real
// serial link does: late and in fragments. A keypad reply that left the
// wire as one frame can arrive at the engine over several reads, and the
// frame reassembly on the receiving side has to cope.
//
// Reads are buffered so fragmentation never loses data; writes pass
// through untouched.
type JitteryLink struct {
	backend io.ReadWriter
	rng     *rand.Rand
	readBuf []byte
	config  JitterConfig
}

// NewJitteryLink wraps a backend with jitter simulation
func NewJitteryLink(backend io.ReadWriter, config JitterConfig) *JitteryLink {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Test code, not crypto
	}

	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}

	return &JitteryLink{
		backend: backend,
		rng:     rng,
		config:  config,
		readBuf: make([]byte, 0, 256),
	}
}

// Write passes writes through to the backend without modification.
// Jitter only affects reads; the engine owns the transmit timing.
func (j *JitteryLink) Write(data []byte) (int, error) {
	return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
}

// Read returns buffered backend data with simulated latency and
// fragmentation
func (j *JitteryLink) Read(buf []byte) (int, error) {
	if j.config.MaxLatency > 0 {
		delay := time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1))
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	if len(j.readBuf) == 0 {
		tempBuf := make([]byte, 256)
		bytesRead, err := j.backend.Read(tempBuf)
		if err != nil {
			return 0, err //nolint:wrapcheck // Pass-through wrapper
		}
		if bytesRead == 0 {
			return 0, nil
		}
		j.readBuf = append(j.readBuf, tempBuf[:bytesRead]...)
	}

	toReturn := min(len(j.readBuf), len(buf))

	if j.config.FragmentReads && toReturn > j.config.FragmentMinBytes {
		minReturn := j.config.FragmentMinBytes
		toReturn = minReturn + j.rng.IntN(toReturn-minReturn+1)
	}

	copy(buf, j.readBuf[:toReturn])
	j.readBuf = j.readBuf[toReturn:]
	return toReturn, nil
}

// ClearBuffer drops any buffered read data
func (j *JitteryLink) ClearBuffer() {
	j.readBuf = j.readBuf[:0]
}
