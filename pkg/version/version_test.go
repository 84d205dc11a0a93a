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

package version

import (
	"runtime/debug"
	"testing"
)

func buildInfo(version string, settings map[string]string) func() (*debug.BuildInfo, bool) {
	bi := &debug.BuildInfo{}
	bi.Main.Version = version
	for k, v := range settings {
		bi.Settings = append(bi.Settings, debug.BuildSetting{Key: k, Value: v})
	}
	return func() (*debug.BuildInfo, bool) { return bi, true }
}

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		read func() (*debug.BuildInfo, bool)
		want string
	}{
		{
			name: "tagged module version wins",
			read: buildInfo("v1.4.2", map[string]string{"vcs.revision": "abc123"}),
			want: "v1.4.2",
		},
		{
			name: "devel falls back to revision",
			read: buildInfo("(devel)", map[string]string{"vcs.revision": "abc123"}),
			want: "abc123",
		},
		{
			name: "dirty revision is marked",
			read: buildInfo("", map[string]string{"vcs.revision": "abc123", "vcs.modified": "true"}),
			want: "abc123-dirty",
		},
		{
			name: "no metadata at all",
			read: func() (*debug.BuildInfo, bool) { return nil, false },
			want: "dev",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := get(tt.read).String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
