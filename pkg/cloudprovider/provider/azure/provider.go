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

package azure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/compute/mgmt/2022-03-01/compute"
	"github.com/Azure/azure-sdk-for-go/services/containerservice/mgmt/2022-01-01/containerservice"
	"github.com/Azure/go-autorest/autorest"
	"github.com/Azure/go-autorest/autorest/azure/auth"

	"github.com/qovery/engine-go/pkg/cloudprovider/types"
)

// loginRetries and loginRetryDelay absorb Azure IAM propagation delays:
// a freshly granted service principal can be rejected for a short while.
const (
	loginRetries    = 10
	loginRetryDelay = 5 * time.Second
)

type provider struct {
	creds types.Credentials
}

// New returns an Azure provider.
func New(creds types.Credentials) types.Provider {
	return &provider{creds: creds}
}

func (p *provider) Kind() types.Kind { return types.KindAzure }

func (p *provider) ManagedKubernetesName() string { return "AKS" }

func (p *provider) SupportsPause() bool { return true }

func (p *provider) ProtectedTerraformResources() []string {
	return []string{"azurerm_kubernetes_cluster"}
}

func (p *provider) CredentialEnvironmentVariables(_ string) [][2]string {
	// ARM_* is the azurerm terraform provider convention; secrets stay off
	// every argv.
	return [][2]string{
		{"ARM_CLIENT_ID", p.creds.AzureClientID},
		{"ARM_CLIENT_SECRET", p.creds.AzureClientSecret},
		{"ARM_TENANT_ID", p.creds.AzureTenantID},
		{"ARM_SUBSCRIPTION_ID", p.creds.AzureSubscriptionID},
	}
}

func (p *provider) authorizer() (autorest.Authorizer, error) {
	cfg := auth.NewClientCredentialsConfig(p.creds.AzureClientID, p.creds.AzureClientSecret, p.creds.AzureTenantID)
	return cfg.Authorizer()
}

// Login acquires a token for the service principal, retrying to absorb IAM
// propagation delays after credential creation.
func (p *provider) Login(ctx context.Context) error {
	var lastErr error
	for i := 0; i < loginRetries; i++ {
		if lastErr = p.ValidateCredentials(ctx, ""); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(loginRetryDelay):
		}
	}
	return fmt.Errorf("azure login failed after %d attempts: %w", loginRetries, lastErr)
}

func (p *provider) ValidateCredentials(ctx context.Context, _ string) error {
	authorizer, err := p.authorizer()
	if err != nil {
		return fmt.Errorf("azure credentials rejected: %w", err)
	}
	client := containerservice.NewManagedClustersClient(p.creds.AzureSubscriptionID)
	client.Authorizer = authorizer
	if _, err := client.List(ctx); err != nil {
		return fmt.Errorf("azure credentials rejected: %w", err)
	}
	return nil
}

func (p *provider) ValidateInstanceType(ctx context.Context, region, instanceType string) error {
	authorizer, err := p.authorizer()
	if err != nil {
		return err
	}
	client := compute.NewVirtualMachineSizesClient(p.creds.AzureSubscriptionID)
	client.Authorizer = authorizer
	sizes, err := client.List(ctx, region)
	if err != nil {
		return fmt.Errorf("failed to list VM sizes in %q: %w", region, err)
	}
	if sizes.Value != nil {
		for _, s := range *sizes.Value {
			if s.Name != nil && strings.EqualFold(*s.Name, instanceType) {
				return nil
			}
		}
	}
	return fmt.Errorf("instance type %q is not offered in region %q", instanceType, region)
}

// FetchKubeconfig pulls the cluster admin kubeconfig. The terraform module
// creates the cluster inside a resource group named after the cluster.
func (p *provider) FetchKubeconfig(ctx context.Context, clusterName, _ string) ([]byte, error) {
	authorizer, err := p.authorizer()
	if err != nil {
		return nil, err
	}
	client := containerservice.NewManagedClustersClient(p.creds.AzureSubscriptionID)
	client.Authorizer = authorizer

	creds, err := client.ListClusterAdminCredentials(ctx, clusterName, clusterName, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get AKS credentials for %q: %w", clusterName, err)
	}
	if creds.Kubeconfigs == nil || len(*creds.Kubeconfigs) == 0 {
		return nil, fmt.Errorf("AKS cluster %q returned no kubeconfig", clusterName)
	}
	kc := (*creds.Kubeconfigs)[0]
	if kc.Value == nil {
		return nil, fmt.Errorf("AKS cluster %q returned an empty kubeconfig", clusterName)
	}
	return *kc.Value, nil
}
