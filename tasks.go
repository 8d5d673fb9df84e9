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

import "time"

// scheduledTask is a deferred action owned by the engine and executed from
// the tick loop once its deadline passes. Tasks are fire-and-forget: they
// cannot be cancelled, so they must be idempotent against state that moved
// on since scheduling.
type scheduledTask struct {
	at  time.Time
	run func()
}

// taskQueue holds the engine's pending deferred actions. The engine only
// ever has a handful in flight, so a plain slice scanned each tick is
// plenty.
type taskQueue struct {
	tasks []scheduledTask
}

// schedule queues fn to run at the first tick at or after the deadline
func (q *taskQueue) schedule(at time.Time, run func()) {
	q.tasks = append(q.tasks, scheduledTask{at: at, run: run})
}

// drainDue removes every task whose deadline has passed and returns their
// actions in scheduling order.
func (q *taskQueue) drainDue(now time.Time) []func() {
	if len(q.tasks) == 0 {
		return nil
	}
	var due []func()
	rest := q.tasks[:0]
	for _, t := range q.tasks {
		if t.at.After(now) {
			rest = append(rest, t)
		} else {
			due = append(due, t.run)
		}
	}
	q.tasks = rest
	return due
}

// pending returns the number of queued tasks
func (q *taskQueue) pending() int {
	return len(q.tasks)
}
