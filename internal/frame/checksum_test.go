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

import "testing"

func TestChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		payload []byte
		want    byte
	}{
		{
			name:    "empty payload",
			payload: []byte{},
			want:    0xAA, // seed alone
		},
		{
			name:    "first init poll",
			payload: []byte{0x10, 0x00, 0x0E},
			want:    0xC8, // captured from a live bus
		},
		{
			name:    "activity poll",
			payload: []byte{0x10, 0x19, 0x01},
			want:    0xD4, // captured from a live bus
		},
		{
			name:    "key event reply body",
			payload: []byte{0x11, 0xF4, 0x01},
			want:    0xB1,
		},
		{
			name:    "tamper sentinel reply body",
			payload: []byte{0x11, 0xF4, 0x7F},
			want:    0x30,
		},
		{
			name:    "lane sum wraps past 0xFF",
			payload: []byte{0xFF, 0x56},
			want:    0x00, // acc 0x1FF, lanes 0x01+0xFF truncate to 0x00
		},
		{
			name:    "accumulator above 0x2FF",
			payload: []byte{0xFF, 0xFF, 0xFF},
			want:    0xAA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Checksum(tt.payload); got != tt.want {
				t.Errorf("Checksum() = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}

func TestChecksumStable(t *testing.T) {
	t.Parallel()
	payload := []byte{0x20, 0x07, 0x81, 0x17}
	first := Checksum(payload)
	for i := 0; i < 100; i++ {
		if got := Checksum(payload); got != first {
			t.Fatalf("Checksum() not stable: 0x%02X then 0x%02X", first, got)
		}
	}
}
