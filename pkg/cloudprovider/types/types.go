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

// Package types exposes the closed set of supported clouds behind a small
// capability interface. Only the handful of operations that actually differ
// per cloud live here; everything else is generic orchestration.
package types

import "context"

// Kind is the closed tagged variant of supported clouds.
type Kind string

const (
	KindAWS       Kind = "aws"
	KindAzure     Kind = "azure"
	KindGCP       Kind = "gcp"
	KindScaleway  Kind = "scw"
	KindOnPremise Kind = "on-premise"
)

// Credentials carries the raw cloud credentials of a cluster. Unused fields
// stay empty depending on the kind.
type Credentials struct {
	// AWS + Scaleway (S3-compatible object storage reuses these names).
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// GCP: the service-account JSON blob and project.
	GoogleCredentialsJSON string
	GoogleProject         string

	// Azure service principal.
	AzureClientID       string
	AzureClientSecret   string
	AzureTenantID       string
	AzureSubscriptionID string

	// Scaleway.
	ScalewayProjectID string
}

// Provider is the capability trait implemented per cloud.
type Provider interface {
	// Kind returns the cloud tag.
	Kind() Kind

	// ManagedKubernetesName names the managed offering (EKS, AKS, GKE,
	// Kapsule) or "self-managed".
	ManagedKubernetesName() string

	// CredentialEnvironmentVariables returns the environment variables
	// external tools (terraform, helm providers) need to authenticate.
	// Credentials travel through the environment only, never on argv.
	CredentialEnvironmentVariables(region string) [][2]string

	// Login performs any interactive-session bootstrap the cloud requires
	// before terraform can run (az login for Azure); a no-op elsewhere.
	Login(ctx context.Context) error

	// ValidateCredentials performs a cheap authenticated call to reject bad
	// credentials before any terraform run.
	ValidateCredentials(ctx context.Context, region string) error

	// ValidateInstanceType rejects instance types the region does not
	// offer.
	ValidateInstanceType(ctx context.Context, region, instanceType string) error

	// FetchKubeconfig retrieves the kubeconfig of a provisioned cluster
	// from the cloud control plane.
	FetchKubeconfig(ctx context.Context, clusterName, region string) ([]byte, error)

	// SupportsPause reports whether node groups can be scaled to zero while
	// the control plane keeps running.
	SupportsPause() bool

	// ProtectedTerraformResources lists the terraform resource prefixes a
	// cluster upgrade plan must never destroy or replace.
	ProtectedTerraformResources() []string
}
