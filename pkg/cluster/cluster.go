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

// Package cluster implements the cluster lifecycle state machine:
// bootstrap, pause, resume, upgrade and delete, driven by terraform for the
// control plane and ordered helm chart waves for the in-cluster stack.
package cluster

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/qovery/engine-go/pkg/cloudprovider/types"
	"github.com/qovery/engine-go/pkg/models"
)

// State of a cluster in its lifecycle.
type State string

const (
	StateAbsent        State = "Absent"
	StateBootstrapping State = "Bootstrapping"
	StateRunning       State = "Running"
	StatePaused        State = "Paused"
	StateUpgrading     State = "Upgrading"
	StateDeleting      State = "Deleting"
)

// VPCMode selects who owns the network the cluster lives in.
type VPCMode string

const (
	VPCModeAutomatic    VPCMode = "automatic"
	VPCModeUserProvided VPCMode = "user-provided"
)

// EngineLocation states where the engine itself runs for this cluster.
type EngineLocation string

const (
	EngineLocationClientSide EngineLocation = "ClientSide"
	EngineLocationQoverySide EngineLocation = "QoverySide"
)

// NodeGroup is a statically sized pool of worker nodes.
type NodeGroup struct {
	Name          string `json:"name"`
	InstanceType  string `json:"instance_type"`
	MinNodes      int    `json:"min_nodes"`
	MaxNodes      int    `json:"max_nodes"`
	DiskSizeInGiB int    `json:"disk_size_in_gib"`
}

// KarpenterParameters replaces NodeGroups when node provisioning is
// delegated to the Karpenter controller (AWS/EKS only).
type KarpenterParameters struct {
	SpotEnabled                bool                   `json:"spot_enabled"`
	MaxNodeDiskSizeInGiB       int                    `json:"disk_size_in_gib"`
	DefaultServiceArchitecture models.CPUArchitecture `json:"default_service_architecture"`
	QoveryNodePools            []string               `json:"qovery_node_pools,omitempty"`
}

// Cluster is the desired state of one Kubernetes cluster.
type Cluster struct {
	ID      models.QoveryIdentifier `json:"long_id"`
	Name    string                  `json:"name"`
	Region  string                  `json:"region"`
	Version string                  `json:"kubernetes_version"`

	Kind types.Kind `json:"cloud_provider"`

	NodeGroups []NodeGroup          `json:"node_groups,omitempty"`
	Karpenter  *KarpenterParameters `json:"karpenter,omitempty"`

	VPCMode     VPCMode  `json:"vpc_mode"`
	VPCCidr     string   `json:"vpc_cidr,omitempty"`
	SubnetCIDRs []string `json:"subnet_cidrs,omitempty"`

	EngineLocation EngineLocation `json:"engine_location"`

	AdvancedSettings AdvancedSettings `json:"advanced_settings"`
}

// KubeName is the cloud-side resource name of the cluster.
func (c *Cluster) KubeName() string {
	return fmt.Sprintf("qovery-%s", c.ID.Short())
}

// ParsedVersion returns the target Kubernetes version as semver.
func (c *Cluster) ParsedVersion() (*semver.Version, error) {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid kubernetes version %q: %w", c.Version, err)
	}
	return v, nil
}

// UsesKarpenter reports whether node provisioning is delegated to
// Karpenter instead of static node groups.
func (c *Cluster) UsesKarpenter() bool {
	return c.Karpenter != nil
}

// Validate rejects structurally impossible clusters before any cloud call.
func (c *Cluster) Validate() error {
	if c.ID.IsZero() {
		return fmt.Errorf("cluster id is empty")
	}
	if c.Region == "" {
		return fmt.Errorf("cluster region is empty")
	}
	if _, err := c.ParsedVersion(); err != nil {
		return err
	}
	if c.UsesKarpenter() && c.Kind != types.KindAWS {
		return fmt.Errorf("karpenter node management is only supported on AWS")
	}
	if !c.UsesKarpenter() && len(c.NodeGroups) == 0 && c.Kind != types.KindOnPremise {
		return fmt.Errorf("cluster has no node groups")
	}
	for _, ng := range c.NodeGroups {
		if ng.MinNodes < 1 || ng.MaxNodes < ng.MinNodes {
			return fmt.Errorf("node group %s has invalid bounds [%d, %d]", ng.Name, ng.MinNodes, ng.MaxNodes)
		}
	}
	return nil
}
