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
	"strings"
	"testing"

	"github.com/qovery/engine-go/pkg/cloudprovider/types"
	"github.com/qovery/engine-go/pkg/models"
)

func validCluster() Cluster {
	return Cluster{
		ID:      models.NewRandomQoveryIdentifier(),
		Name:    "prod",
		Region:  "eu-west-3",
		Version: "1.30",
		Kind:    types.KindAWS,
		NodeGroups: []NodeGroup{
			{Name: "default", InstanceType: "t3.large", MinNodes: 3, MaxNodes: 10, DiskSizeInGiB: 50},
		},
		VPCMode:          VPCModeAutomatic,
		EngineLocation:   EngineLocationClientSide,
		AdvancedSettings: NewAdvancedSettings(),
	}
}

func TestClusterValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Cluster)
		wantErr bool
	}{
		{"valid", func(c *Cluster) {}, false},
		{"zero id", func(c *Cluster) { c.ID = models.QoveryIdentifier{} }, true},
		{"empty region", func(c *Cluster) { c.Region = "" }, true},
		{"bad version", func(c *Cluster) { c.Version = "not-semver" }, true},
		{"no node groups", func(c *Cluster) { c.NodeGroups = nil }, true},
		{"min below one", func(c *Cluster) { c.NodeGroups[0].MinNodes = 0 }, true},
		{"max below min", func(c *Cluster) { c.NodeGroups[0].MaxNodes = 1 }, true},
		{
			name: "karpenter on aws",
			mutate: func(c *Cluster) {
				c.NodeGroups = nil
				c.Karpenter = &KarpenterParameters{MaxNodeDiskSizeInGiB: 50}
			},
			wantErr: false,
		},
		{
			name: "karpenter elsewhere",
			mutate: func(c *Cluster) {
				c.Kind = types.KindGCP
				c.NodeGroups = nil
				c.Karpenter = &KarpenterParameters{MaxNodeDiskSizeInGiB: 50}
			},
			wantErr: true,
		},
		{
			name: "on-premise without node groups",
			mutate: func(c *Cluster) {
				c.Kind = types.KindOnPremise
				c.NodeGroups = nil
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCluster()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClusterKubeName(t *testing.T) {
	c := validCluster()
	name := c.KubeName()
	if !strings.HasPrefix(name, "qovery-") {
		t.Errorf("KubeName() = %q, want qovery- prefix", name)
	}
	if len(name) != len("qovery-")+8 {
		t.Errorf("KubeName() = %q, want 8-char short id suffix", name)
	}
}

func TestClusterParsedVersion(t *testing.T) {
	c := validCluster()
	v, err := c.ParsedVersion()
	if err != nil {
		t.Fatalf("ParsedVersion() error: %v", err)
	}
	if v.Minor() != 30 {
		t.Errorf("Minor() = %d, want 30", v.Minor())
	}
}
