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

import (
	"bytes"
	"testing"
)

func TestAppend(t *testing.T) {
	t.Parallel()
	payload := []byte{0x20, 0x00, 0x0F}
	got := Append(payload)

	if len(got) != len(payload)+1 {
		t.Fatalf("Append() length = %d, want %d", len(got), len(payload)+1)
	}
	if !bytes.Equal(got[:len(payload)], payload) {
		t.Errorf("Append() altered payload bytes: % X", got)
	}
	if got[len(got)-1] != Checksum(payload) {
		t.Errorf("Append() trailing byte = 0x%02X, want 0x%02X",
			got[len(got)-1], Checksum(payload))
	}
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	payload := []byte{0x11, 0xF4, 0x0C}
	saved := append([]byte(nil), payload...)
	_ = Append(payload)
	if !bytes.Equal(payload, saved) {
		t.Errorf("Append() mutated input: % X", payload)
	}
}

func TestValid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		frame []byte
		want  bool
	}{
		{
			name:  "valid init poll",
			frame: []byte{0x10, 0x00, 0x0E, 0xC8},
			want:  true,
		},
		{
			name:  "valid key event",
			frame: []byte{0x11, 0xF4, 0x01, 0xB1},
			want:  true,
		},
		{
			name:  "corrupted checksum",
			frame: []byte{0x10, 0x00, 0x0E, 0xC9},
			want:  false,
		},
		{
			name:  "corrupted payload byte",
			frame: []byte{0x10, 0x01, 0x0E, 0xC8},
			want:  false,
		},
		{
			name:  "empty",
			frame: []byte{},
			want:  false,
		},
		{
			name:  "single byte",
			frame: []byte{0xAA},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Valid(tt.frame); got != tt.want {
				t.Errorf("Valid(% X) = %v, want %v", tt.frame, got, tt.want)
			}
		})
	}
}

func TestAppendValidRoundTrip(t *testing.T) {
	t.Parallel()
	payloads := [][]byte{
		{},
		{0x20, 0x19, 0x01},
		{0x20, 0x0C, 0x01, 0x03, 0x01},
		{0x20, 0x0D, 0x00},
		bytes.Repeat([]byte{0xFF}, 40),
	}
	for _, p := range payloads {
		if !Valid(Append(p)) {
			t.Errorf("Valid(Append(% X)) = false, want true", p)
		}
	}
}
