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
	"path/filepath"

	"github.com/qovery/engine-go/pkg/engine"
	"github.com/qovery/engine-go/pkg/helm"
)

// ChartWave is an ordered group of charts deployed together; a wave only
// starts once the previous wave converged.
type ChartWave struct {
	Name   string
	Charts []helm.ChartInfo
}

// waveNames in deployment order.
var waveNames = []string{
	"storage-and-cni",
	"cert-manager",
	"ingress-and-dns",
	"observability",
	"qovery-agents",
}

// BootstrapChartWaves assembles the in-cluster stack for one cluster. Later
// waves depend on earlier ones: certificates need storage, ingress needs
// certificates, agents need everything below them.
func BootstrapChartWaves(ic *engine.InfraContext, c *Cluster) []ChartWave {
	libCharts := func(name string) string {
		return filepath.Join(ic.Context.LibRoot, "common", "bootstrap", "charts", name)
	}
	clusterValues := [][2]string{
		{"clusterId", c.ID.String()},
		{"clusterShortId", c.ID.Short()},
		{"organizationId", ic.Context.OrganizationID.String()},
		{"region", c.Region},
	}

	waves := []ChartWave{
		{
			Name: waveNames[0],
			Charts: []helm.ChartInfo{
				{Name: "q-storageclass", Path: libCharts("q-storageclass"), Namespace: "kube-system", Values: clusterValues},
			},
		},
		{
			Name: waveNames[1],
			Charts: []helm.ChartInfo{
				{Name: "cert-manager", Path: libCharts("cert-manager"), Namespace: "cert-manager", CreateNamespace: true, AllowClusterWideResources: true},
				{Name: "cert-manager-configs", Path: libCharts("cert-manager-configs"), Namespace: "cert-manager", Values: clusterValues},
				{Name: "qovery-webhook", Path: libCharts("qovery-webhook"), Namespace: "qovery", CreateNamespace: true, Values: clusterValues},
			},
		},
		{
			Name: waveNames[2],
			Charts: []helm.ChartInfo{
				{Name: "ingress-nginx", Path: libCharts("ingress-nginx"), Namespace: "nginx-ingress", CreateNamespace: true, Values: append(clusterValues,
					[2]string{"controller.loadBalancerSize", c.AdvancedSettings.LoadBalancerSize})},
				{Name: "external-dns", Path: libCharts("external-dns"), Namespace: "kube-system", Values: clusterValues},
			},
		},
		{
			Name: waveNames[3],
			Charts: []helm.ChartInfo{
				{Name: "loki", Path: libCharts("loki"), Namespace: "logging", CreateNamespace: true, Values: append(clusterValues,
					[2]string{"config.table_manager.retention_period", fmt.Sprintf("%dw", c.AdvancedSettings.LokiLogRetentionInWeek)})},
				{Name: "promtail", Path: libCharts("promtail"), Namespace: "logging"},
				{Name: "k8s-event-logger", Path: libCharts("k8s-event-logger"), Namespace: "qovery"},
			},
		},
	}

	if ic.Context.HasFeature(engine.FeatureMetricsHistory) {
		waves[3].Charts = append(waves[3].Charts,
			helm.ChartInfo{Name: "metrics-server", Path: libCharts("metrics-server"), Namespace: "kube-system"},
			helm.ChartInfo{Name: "prometheus-adapter", Path: libCharts("prometheus-adapter"), Namespace: "kube-system"},
		)
	}

	agents := ChartWave{
		Name: waveNames[4],
		Charts: []helm.ChartInfo{
			{Name: "qovery-cluster-agent", Path: libCharts("qovery-cluster-agent"), Namespace: "qovery", Values: clusterValues},
			{Name: "qovery-shell-agent", Path: libCharts("qovery-shell-agent"), Namespace: "qovery", Values: clusterValues},
		},
	}
	if c.EngineLocation == EngineLocationClientSide {
		agents.Charts = append(agents.Charts,
			helm.ChartInfo{Name: "qovery-engine", Path: libCharts("qovery-engine"), Namespace: "qovery", Values: clusterValues})
	}
	waves = append(waves, agents)

	if c.UsesKarpenter() {
		for i := range waves {
			for j := range waves[i].Charts {
				waves[i].Charts[j].Values = append(waves[i].Charts[j].Values, StablePoolPinValues(false)...)
			}
		}
	}
	return waves
}
