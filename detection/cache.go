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

package detection

import (
	"time"

	"github.com/OpenGalaxyProject/go-galaxy7/internal/syncutil"
)

// detectionCache holds the last scan result. Probing ports takes real
// bus time, so repeated lookups within the TTL reuse it.
type detectionCache struct {
	scannedAt time.Time
	devices   []DeviceInfo
	valid     bool
	mu        syncutil.RWMutex
}

var cache = &detectionCache{}

// getCached returns the cached devices if present and not expired
func getCached(ttl time.Duration) ([]DeviceInfo, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	if !cache.valid || time.Since(cache.scannedAt) > ttl {
		return nil, false
	}

	// Return a copy to prevent modification
	devices := make([]DeviceInfo, len(cache.devices))
	copy(devices, cache.devices)
	return devices, true
}

// setCached stores a scan result
func setCached(devices []DeviceInfo) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	devicesCopy := make([]DeviceInfo, len(devices))
	copy(devicesCopy, devices)

	cache.devices = devicesCopy
	cache.scannedAt = time.Now()
	cache.valid = true
}

// clearCache drops the cached scan result
func clearCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.devices = nil
	cache.valid = false
}
