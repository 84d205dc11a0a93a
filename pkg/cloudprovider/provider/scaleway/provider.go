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

package scaleway

import (
	"context"
	"fmt"

	"github.com/scaleway/scaleway-sdk-go/api/instance/v1"
	"github.com/scaleway/scaleway-sdk-go/api/k8s/v1"
	"github.com/scaleway/scaleway-sdk-go/scw"

	"github.com/qovery/engine-go/pkg/cloudprovider/types"
)

type provider struct {
	creds types.Credentials
}

// New returns a Scaleway provider.
func New(creds types.Credentials) types.Provider {
	return &provider{creds: creds}
}

func (p *provider) Kind() types.Kind { return types.KindScaleway }

func (p *provider) ManagedKubernetesName() string { return "Kapsule" }

func (p *provider) SupportsPause() bool { return true }

func (p *provider) ProtectedTerraformResources() []string {
	return []string{"scaleway_k8s_cluster"}
}

func (p *provider) CredentialEnvironmentVariables(_ string) [][2]string {
	return [][2]string{
		{"SCW_ACCESS_KEY", p.creds.AccessKeyID},
		{"SCW_SECRET_KEY", p.creds.SecretAccessKey},
		{"SCW_DEFAULT_PROJECT_ID", p.creds.ScalewayProjectID},
	}
}

func (p *provider) Login(_ context.Context) error {
	// Scaleway tools authenticate straight from the environment.
	return nil
}

func (p *provider) client(region string) (*scw.Client, error) {
	opts := []scw.ClientOption{
		scw.WithAuth(p.creds.AccessKeyID, p.creds.SecretAccessKey),
		scw.WithDefaultProjectID(p.creds.ScalewayProjectID),
		scw.WithUserAgent("qovery/engine"),
	}
	if region != "" {
		r, err := scw.ParseRegion(region)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scw.WithDefaultRegion(r))
	}
	client, err := scw.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize the scaleway client: %w", err)
	}
	return client, nil
}

func (p *provider) ValidateCredentials(ctx context.Context, region string) error {
	client, err := p.client(region)
	if err != nil {
		return err
	}
	api := k8s.NewAPI(client)
	if _, err := api.ListClusters(&k8s.ListClustersRequest{}, scw.WithContext(ctx)); err != nil {
		return fmt.Errorf("scaleway credentials rejected: %w", err)
	}
	return nil
}

func (p *provider) ValidateInstanceType(ctx context.Context, region, instanceType string) error {
	client, err := p.client(region)
	if err != nil {
		return err
	}
	r, err := scw.ParseRegion(region)
	if err != nil {
		return err
	}
	api := instance.NewAPI(client)
	for _, zone := range r.GetZones() {
		res, err := api.ListServersTypes(&instance.ListServersTypesRequest{Zone: zone}, scw.WithContext(ctx))
		if err != nil {
			continue
		}
		if _, found := res.Servers[instanceType]; found {
			return nil
		}
	}
	return fmt.Errorf("instance type %q is not offered in region %q", instanceType, region)
}

// FetchKubeconfig resolves the Kapsule cluster by name and downloads its
// kubeconfig.
func (p *provider) FetchKubeconfig(ctx context.Context, clusterName, region string) ([]byte, error) {
	client, err := p.client(region)
	if err != nil {
		return nil, err
	}
	api := k8s.NewAPI(client)
	clusters, err := api.ListClusters(&k8s.ListClustersRequest{Name: &clusterName}, scw.WithContext(ctx), scw.WithAllPages())
	if err != nil {
		return nil, fmt.Errorf("failed to list Kapsule clusters: %w", err)
	}
	var clusterID string
	for _, c := range clusters.Clusters {
		if c.Name == clusterName {
			clusterID = c.ID
			break
		}
	}
	if clusterID == "" {
		return nil, fmt.Errorf("Kapsule cluster %q not found in region %q", clusterName, region)
	}
	kubeconfig, err := api.GetClusterKubeConfig(&k8s.GetClusterKubeConfigRequest{ClusterID: clusterID}, scw.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig of Kapsule cluster %q: %w", clusterName, err)
	}
	return kubeconfig.GetRaw(), nil
}
