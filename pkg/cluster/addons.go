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
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Addon names pinned per Kubernetes minor version on EKS.
type Addon string

const (
	AddonVPCCNI    Addon = "vpc-cni"
	AddonKubeProxy Addon = "kube-proxy"
	AddonCoreDNS   Addon = "coredns"
	AddonEBSCSI    Addon = "aws-ebs-csi-driver"
)

// AddonVersions holds the pinned default version of each addon for one
// Kubernetes minor version.
type AddonVersions struct {
	VPCCNI    string
	KubeProxy string
	CoreDNS   string
	EBSCSI    string
}

// addonVersionsByMinor pins addon defaults for every supported Kubernetes
// minor version. Overrides are applied on top per cluster.
var addonVersionsByMinor = map[uint64]AddonVersions{
	23: {VPCCNI: "v1.12.6-eksbuild.2", KubeProxy: "v1.23.17-eksbuild.2", CoreDNS: "v1.8.7-eksbuild.4", EBSCSI: "v1.19.0-eksbuild.2"},
	24: {VPCCNI: "v1.13.4-eksbuild.1", KubeProxy: "v1.24.17-eksbuild.2", CoreDNS: "v1.9.3-eksbuild.5", EBSCSI: "v1.21.0-eksbuild.1"},
	25: {VPCCNI: "v1.14.1-eksbuild.1", KubeProxy: "v1.25.14-eksbuild.2", CoreDNS: "v1.9.3-eksbuild.7", EBSCSI: "v1.23.0-eksbuild.1"},
	26: {VPCCNI: "v1.15.0-eksbuild.2", KubeProxy: "v1.26.9-eksbuild.2", CoreDNS: "v1.9.3-eksbuild.9", EBSCSI: "v1.24.0-eksbuild.1"},
	27: {VPCCNI: "v1.15.4-eksbuild.1", KubeProxy: "v1.27.6-eksbuild.2", CoreDNS: "v1.10.1-eksbuild.4", EBSCSI: "v1.25.0-eksbuild.1"},
	28: {VPCCNI: "v1.16.0-eksbuild.1", KubeProxy: "v1.28.4-eksbuild.1", CoreDNS: "v1.10.1-eksbuild.6", EBSCSI: "v1.26.1-eksbuild.1"},
	29: {VPCCNI: "v1.16.4-eksbuild.2", KubeProxy: "v1.29.0-eksbuild.3", CoreDNS: "v1.11.1-eksbuild.6", EBSCSI: "v1.28.0-eksbuild.1"},
	30: {VPCCNI: "v1.18.1-eksbuild.3", KubeProxy: "v1.30.0-eksbuild.3", CoreDNS: "v1.11.1-eksbuild.9", EBSCSI: "v1.31.0-eksbuild.1"},
	31: {VPCCNI: "v1.18.3-eksbuild.3", KubeProxy: "v1.31.0-eksbuild.5", CoreDNS: "v1.11.3-eksbuild.1", EBSCSI: "v1.35.0-eksbuild.1"},
	32: {VPCCNI: "v1.19.2-eksbuild.1", KubeProxy: "v1.32.0-eksbuild.2", CoreDNS: "v1.11.4-eksbuild.2", EBSCSI: "v1.38.1-eksbuild.1"},
	33: {VPCCNI: "v1.19.5-eksbuild.1", KubeProxy: "v1.33.0-eksbuild.2", CoreDNS: "v1.12.1-eksbuild.2", EBSCSI: "v1.43.0-eksbuild.1"},
}

// AddonOverrides lets a cluster pin a specific addon version instead of the
// per-minor default. Empty fields keep the default.
type AddonOverrides struct {
	VPCCNI    string
	KubeProxy string
	CoreDNS   string
	EBSCSI    string
}

// ResolveAddonVersions returns the addon versions to deploy for the given
// Kubernetes version, with overrides applied.
func ResolveAddonVersions(version *semver.Version, overrides AddonOverrides) (AddonVersions, error) {
	pinned, ok := addonVersionsByMinor[version.Minor()]
	if !ok {
		return AddonVersions{}, fmt.Errorf("unsupported kubernetes version %s: no pinned addon versions", version)
	}
	if overrides.VPCCNI != "" {
		pinned.VPCCNI = overrides.VPCCNI
	}
	if overrides.KubeProxy != "" {
		pinned.KubeProxy = overrides.KubeProxy
	}
	if overrides.CoreDNS != "" {
		pinned.CoreDNS = overrides.CoreDNS
	}
	if overrides.EBSCSI != "" {
		pinned.EBSCSI = overrides.EBSCSI
	}
	return pinned, nil
}
