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

// Metrics is a snapshot of engine activity counters. Counters only ever
// increase; hosts that want rates diff successive snapshots.
type Metrics struct {
	// FramesSent counts every frame the scheduler put on the bus
	FramesSent uint64
	// RepliesHandled counts reply windows that closed with bytes present
	RepliesHandled uint64
	// ReplyTimeouts counts reply windows that closed silent
	ReplyTimeouts uint64
	// ChecksumFailures counts F4 replies discarded for a bad checksum
	ChecksumFailures uint64
	// Rejections counts F2 screen rejections from the keypad
	Rejections uint64
	// Reinits counts recovery polls sent after a rejection
	Reinits uint64
	// KeysAccepted counts key events that passed dedupe
	KeysAccepted uint64
	// KeysDeduped counts key events suppressed as duplicates
	KeysDeduped uint64
	// CodesSubmitted counts ENT submissions with a non-empty buffer
	CodesSubmitted uint64
	// OnlineTransitions counts offline-to-online recoveries
	OnlineTransitions uint64
	// OfflineTransitions counts liveness timeouts
	OfflineTransitions uint64
}
