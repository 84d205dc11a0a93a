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

// Package engine holds the per-commit execution context. A Context is
// created at request ingress, threaded by value through every call, and
// destroyed once the commit returns; there is no process-global state.
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	dockerclient "github.com/docker/docker/client"

	"github.com/qovery/engine-go/pkg/models"
)

// Feature flags toggled per cluster.
type Feature string

const (
	FeatureLogsHistory    Feature = "LOGS_HISTORY"
	FeatureMetricsHistory Feature = "METRICS_HISTORY"
	FeatureGrafana        Feature = "GRAFANA"
)

// Metadata carries per-commit behavior knobs.
type Metadata struct {
	DryRunDeploy                bool
	ForcedUpgrade               bool
	DisablePleco                bool
	ResourceExpirationInSeconds int64
}

// Context is the immutable process-wide state scoped to one commit.
type Context struct {
	OrganizationID models.QoveryIdentifier
	ClusterID      models.QoveryIdentifier
	ExecutionID    string

	// WorkspaceRoot is the scratch directory for generated files; owned by
	// exactly one transaction at a time.
	WorkspaceRoot string
	// LibRoot holds the chart and terraform templates tree.
	LibRoot string

	Features []Feature
	Metadata Metadata

	// DockerSocket overrides DOCKER_HOST when set.
	DockerSocket string
	// Docker is the daemon handle; nil when no build is required.
	Docker dockerclient.APIClient
}

// NewContext validates identifiers and materializes the workspace.
func NewContext(organizationID, clusterID models.QoveryIdentifier, executionID, workspaceRoot, libRoot string, features []Feature, metadata Metadata) (*Context, error) {
	if executionID == "" {
		return nil, fmt.Errorf("execution id cannot be empty")
	}
	if workspaceRoot == "" {
		return nil, fmt.Errorf("workspace root cannot be empty")
	}
	if err := os.MkdirAll(workspaceRoot, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create workspace %q: %w", workspaceRoot, err)
	}
	return &Context{
		OrganizationID: organizationID,
		ClusterID:      clusterID,
		ExecutionID:    executionID,
		WorkspaceRoot:  workspaceRoot,
		LibRoot:        libRoot,
		Features:       features,
		Metadata:       metadata,
	}, nil
}

// HasFeature reports whether the cluster has the given feature enabled.
func (c *Context) HasFeature(f Feature) bool {
	for _, have := range c.Features {
		if have == f {
			return true
		}
	}
	return false
}

// TerraformDir returns the scratch directory holding generated .tf files
// for the cluster.
func (c *Context) TerraformDir() string {
	return filepath.Join(c.WorkspaceRoot, "terraform", c.ClusterID.Short())
}

// ChartsDir returns the scratch directory holding rendered values files for
// a chart wave.
func (c *Context) ChartsDir(wave string) string {
	return filepath.Join(c.WorkspaceRoot, "charts", c.ClusterID.Short(), wave)
}

// KubeconfigPath is where the cluster kubeconfig is materialized for
// external tools.
func (c *Context) KubeconfigPath() string {
	return filepath.Join(c.WorkspaceRoot, fmt.Sprintf("%s.yaml", c.ClusterID.Short()))
}
