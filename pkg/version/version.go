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

// Package version exposes the engine build identity, read from the Go
// build metadata embedded in the binary.
package version

import "runtime/debug"

// Info is the build identity logged at startup and attached to reports.
type Info struct {
	ModuleVersion string
	Revision      string
	Dirty         bool
}

// Get reads the build metadata. Missing metadata yields a dev identity.
func Get() Info {
	return get(debug.ReadBuildInfo)
}

func get(read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Revision: "unknown"}
	bi, ok := read()
	if !ok {
		return info
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.ModuleVersion = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.modified":
			info.Dirty = setting.Value == "true"
		}
	}
	return info
}

// String renders the module version when tagged, the VCS revision
// otherwise, and "dev" when the binary carries no metadata at all.
func (i Info) String() string {
	if i.ModuleVersion != "" {
		return i.ModuleVersion
	}
	if i.Revision == "unknown" {
		return "dev"
	}
	if i.Dirty {
		return i.Revision + "-dirty"
	}
	return i.Revision
}
