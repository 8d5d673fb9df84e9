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

// Package frame implements the Galaxy keypad bus frame format: a payload of
// {address, opcode, params...} followed by a single trailing checksum byte.
package frame

// Checksum computes the bus checksum for a payload. The accumulator starts
// at 0xAA and sums every payload byte; the four byte lanes of the 32-bit
// result are added together and truncated to one byte. The lane sum is
// folded exactly once, so a lane sum above 0xFF wraps rather than folding
// again.
func Checksum(payload []byte) byte {
	acc := uint32(0xAA)
	for _, b := range payload {
		acc += uint32(b)
	}
	return byte((acc>>24)&0xFF + (acc>>16)&0xFF + (acc>>8)&0xFF + acc&0xFF)
}
