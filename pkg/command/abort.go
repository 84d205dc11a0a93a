/*
Copyright 2023 The Qovery Engine Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package command

import "sync/atomic"

// AbortStatus is the cancellation state of a running task. It is monotonic
// under Merge: once force-requested, it never weakens.
type AbortStatus int32

const (
	// AbortStatusNone means no cancellation was requested.
	AbortStatusNone AbortStatus = iota
	// AbortStatusRequested means graceful cancellation: no new external
	// command is spawned, in-flight commands finish their current atomic
	// step.
	AbortStatusRequested
	// AbortStatusUserForceRequested means in-flight commands are killed
	// after the per-tool grace period.
	AbortStatusUserForceRequested
)

func (s AbortStatus) String() string {
	switch s {
	case AbortStatusRequested:
		return "requested"
	case AbortStatusUserForceRequested:
		return "user-force-requested"
	default:
		return "none"
	}
}

// Merge returns the stronger of two abort statuses. Merge is commutative
// and UserForceRequested absorbs everything.
func Merge(a, b AbortStatus) AbortStatus {
	if a >= b {
		return a
	}
	return b
}

// AbortHandle is shared between the transaction and every spawned command.
// Setting a status is monotonic; Status never goes back to a weaker value.
type AbortHandle struct {
	status atomic.Int32
}

// NewAbortHandle returns a handle in the None state.
func NewAbortHandle() *AbortHandle {
	return &AbortHandle{}
}

// Request upgrades the handle to at least the given status.
func (h *AbortHandle) Request(status AbortStatus) {
	for {
		cur := h.status.Load()
		merged := Merge(AbortStatus(cur), status)
		if merged == AbortStatus(cur) || h.status.CompareAndSwap(cur, int32(merged)) {
			return
		}
	}
}

// Status returns the current cancellation state.
func (h *AbortHandle) Status() AbortStatus {
	if h == nil {
		return AbortStatusNone
	}
	return AbortStatus(h.status.Load())
}

// ShouldBeKilled reports whether in-flight commands must be terminated.
func (h *AbortHandle) ShouldBeKilled() bool {
	return h.Status() == AbortStatusUserForceRequested
}

// IsRequested reports whether any level of cancellation was requested.
func (h *AbortHandle) IsRequested() bool {
	return h.Status() != AbortStatusNone
}
