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

package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/compute/v1"
	"google.golang.org/api/container/v1"
	"google.golang.org/api/option"

	"github.com/qovery/engine-go/pkg/cloudprovider/types"
)

type provider struct {
	creds types.Credentials
}

// New returns a GCP provider.
func New(creds types.Credentials) types.Provider {
	return &provider{creds: creds}
}

func (p *provider) Kind() types.Kind { return types.KindGCP }

func (p *provider) ManagedKubernetesName() string { return "GKE" }

func (p *provider) SupportsPause() bool { return true }

func (p *provider) ProtectedTerraformResources() []string {
	return []string{"google_container_cluster"}
}

func (p *provider) CredentialEnvironmentVariables(region string) [][2]string {
	return [][2]string{
		{"GOOGLE_CREDENTIALS", p.creds.GoogleCredentialsJSON},
		{"GOOGLE_PROJECT", p.creds.GoogleProject},
		{"GOOGLE_REGION", region},
	}
}

func (p *provider) Login(_ context.Context) error {
	// GCP tools authenticate straight from the environment.
	return nil
}

func (p *provider) clientOptions() []option.ClientOption {
	return []option.ClientOption{option.WithCredentialsJSON([]byte(p.creds.GoogleCredentialsJSON))}
}

func (p *provider) ValidateCredentials(ctx context.Context, region string) error {
	svc, err := container.NewService(ctx, p.clientOptions()...)
	if err != nil {
		return fmt.Errorf("GCP credentials rejected: %w", err)
	}
	name := fmt.Sprintf("projects/%s/locations/%s", p.creds.GoogleProject, region)
	if _, err := svc.Projects.Locations.GetServerConfig(name).Context(ctx).Do(); err != nil {
		return fmt.Errorf("GCP credentials rejected: %w", err)
	}
	return nil
}

func (p *provider) ValidateInstanceType(ctx context.Context, region, instanceType string) error {
	svc, err := compute.NewService(ctx, p.clientOptions()...)
	if err != nil {
		return err
	}
	// Machine types are zonal; a region offers the type when any of its
	// zones does.
	zones, err := svc.Zones.List(p.creds.GoogleProject).Filter(fmt.Sprintf("name=%s-*", region)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to list zones of region %q: %w", region, err)
	}
	for _, z := range zones.Items {
		if _, err := svc.MachineTypes.Get(p.creds.GoogleProject, z.Name, instanceType).Context(ctx).Do(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("instance type %q is not offered in region %q", instanceType, region)
}

func (p *provider) FetchKubeconfig(ctx context.Context, clusterName, region string) ([]byte, error) {
	svc, err := container.NewService(ctx, p.clientOptions()...)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("projects/%s/locations/%s/clusters/%s", p.creds.GoogleProject, region, clusterName)
	cluster, err := svc.Projects.Locations.Clusters.Get(name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get GKE cluster %q: %w", clusterName, err)
	}
	if cluster.Endpoint == "" || cluster.MasterAuth == nil || cluster.MasterAuth.ClusterCaCertificate == "" {
		return nil, fmt.Errorf("GKE cluster %q has no reachable endpoint yet", clusterName)
	}
	return renderKubeconfig(clusterName, cluster.Endpoint, cluster.MasterAuth.ClusterCaCertificate), nil
}

// renderKubeconfig emits an exec-auth kubeconfig resolved by the GKE auth
// plugin, which reads GOOGLE_CREDENTIALS from the environment.
func renderKubeconfig(clusterName, endpoint, caData string) []byte {
	return []byte(fmt.Sprintf(`apiVersion: v1
kind: Config
clusters:
- name: %[1]s
  cluster:
    server: https://%[2]s
    certificate-authority-data: %[3]s
contexts:
- name: %[1]s
  context:
    cluster: %[1]s
    user: %[1]s
current-context: %[1]s
users:
- name: %[1]s
  user:
    exec:
      apiVersion: client.authentication.k8s.io/v1beta1
      command: gke-gcloud-auth-plugin
      provideClusterInfo: true
`, clusterName, endpoint, caData))
}
