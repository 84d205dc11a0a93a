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

package cluster

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestResolveAddonVersions(t *testing.T) {
	version := semver.MustParse("1.30.2")
	got, err := ResolveAddonVersions(version, AddonOverrides{})
	if err != nil {
		t.Fatalf("ResolveAddonVersions() error: %v", err)
	}
	if got.KubeProxy != "v1.30.0-eksbuild.3" {
		t.Errorf("KubeProxy = %q, want v1.30.0-eksbuild.3", got.KubeProxy)
	}
	if got.CoreDNS == "" || got.VPCCNI == "" || got.EBSCSI == "" {
		t.Errorf("resolved versions must all be pinned: %+v", got)
	}
}

func TestResolveAddonVersionsOverride(t *testing.T) {
	version := semver.MustParse("1.29.0")
	got, err := ResolveAddonVersions(version, AddonOverrides{CoreDNS: "v1.11.1-eksbuild.9"})
	if err != nil {
		t.Fatalf("ResolveAddonVersions() error: %v", err)
	}
	if got.CoreDNS != "v1.11.1-eksbuild.9" {
		t.Errorf("CoreDNS override not applied: %q", got.CoreDNS)
	}
	// Other addons keep their per-minor defaults.
	if got.KubeProxy != "v1.29.0-eksbuild.3" {
		t.Errorf("KubeProxy = %q, want default", got.KubeProxy)
	}
}

func TestResolveAddonVersionsUnsupportedMinor(t *testing.T) {
	for _, raw := range []string{"1.22.0", "1.34.0"} {
		if _, err := ResolveAddonVersions(semver.MustParse(raw), AddonOverrides{}); err == nil {
			t.Errorf("ResolveAddonVersions(%s) must fail on unsupported minor", raw)
		}
	}
}

func TestAddonCoverageIsContiguous(t *testing.T) {
	for minor := uint64(23); minor <= 33; minor++ {
		if _, ok := addonVersionsByMinor[minor]; !ok {
			t.Errorf("minor 1.%d has no pinned addon versions", minor)
		}
	}
}
