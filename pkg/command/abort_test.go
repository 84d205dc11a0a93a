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

import "testing"

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		a, b AbortStatus
		want AbortStatus
	}{
		{"none with none", AbortStatusNone, AbortStatusNone, AbortStatusNone},
		{"none with requested", AbortStatusNone, AbortStatusRequested, AbortStatusRequested},
		{"requested with force", AbortStatusRequested, AbortStatusUserForceRequested, AbortStatusUserForceRequested},
		{"force with none", AbortStatusUserForceRequested, AbortStatusNone, AbortStatusUserForceRequested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.a, tt.b); got != tt.want {
				t.Errorf("Merge(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Merge must be commutative.
			if got := Merge(tt.b, tt.a); got != tt.want {
				t.Errorf("Merge(%v, %v) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestAbortHandleIsMonotonic(t *testing.T) {
	h := NewAbortHandle()
	if h.IsRequested() {
		t.Fatal("fresh handle must not be requested")
	}

	h.Request(AbortStatusUserForceRequested)
	// A weaker request never downgrades the handle.
	h.Request(AbortStatusRequested)
	h.Request(AbortStatusNone)

	if got := h.Status(); got != AbortStatusUserForceRequested {
		t.Errorf("Status() = %v, want %v", got, AbortStatusUserForceRequested)
	}
	if !h.ShouldBeKilled() {
		t.Error("ShouldBeKilled() = false after force request")
	}
}

func TestAbortHandleNilStatus(t *testing.T) {
	var h *AbortHandle
	if got := h.Status(); got != AbortStatusNone {
		t.Errorf("nil handle Status() = %v, want None", got)
	}
}
