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

package frame

// MinFrameLength is the smallest frame that can carry a checksum: one
// payload byte plus the checksum itself.
const MinFrameLength = 2

// Append returns the payload with its checksum byte appended. The input
// slice is not modified. Any byte sequence is encodable; there is no error
// path.
func Append(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, payload...)
	return append(out, Checksum(payload))
}

// Valid reports whether the trailing byte of the frame matches the checksum
// of the bytes before it. Frames shorter than MinFrameLength are never
// valid.
func Valid(frame []byte) bool {
	if len(frame) < MinFrameLength {
		return false
	}
	return frame[len(frame)-1] == Checksum(frame[:len(frame)-1])
}
