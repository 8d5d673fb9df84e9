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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskQueueDrainDue(t *testing.T) {
	t.Parallel()

	var q taskQueue
	base := time.Now()
	var ran []string

	q.schedule(base.Add(10*time.Millisecond), func() { ran = append(ran, "a") })
	q.schedule(base.Add(30*time.Millisecond), func() { ran = append(ran, "b") })
	q.schedule(base.Add(20*time.Millisecond), func() { ran = append(ran, "c") })

	assert.Empty(t, q.drainDue(base), "nothing due yet")
	assert.Equal(t, 3, q.pending())

	for _, run := range q.drainDue(base.Add(20 * time.Millisecond)) {
		run()
	}
	assert.Equal(t, []string{"a", "c"}, ran)
	assert.Equal(t, 1, q.pending())

	for _, run := range q.drainDue(base.Add(time.Second)) {
		run()
	}
	assert.Equal(t, []string{"a", "c", "b"}, ran)
	assert.Zero(t, q.pending())
}

func TestTaskQueueDeadlineInclusive(t *testing.T) {
	t.Parallel()

	var q taskQueue
	base := time.Now()
	fired := false

	q.schedule(base.Add(50*time.Millisecond), func() { fired = true })

	for _, run := range q.drainDue(base.Add(50 * time.Millisecond)) {
		run()
	}
	assert.True(t, fired, "a task due exactly now must run")
}

func TestTaskQueueEmptyDrain(t *testing.T) {
	t.Parallel()

	var q taskQueue
	assert.Nil(t, q.drainDue(time.Now()))
}
