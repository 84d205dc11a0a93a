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

package onpremise

import (
	"context"
	"errors"

	"github.com/qovery/engine-go/pkg/cloudprovider/types"
)

// ErrKubeconfigMustBeProvided is returned when the engine is asked to fetch
// a kubeconfig for a self-managed cluster; the caller supplies it instead.
var ErrKubeconfigMustBeProvided = errors.New("self-managed clusters require a user-provided kubeconfig")

type provider struct{}

// New returns the on-premise / self-managed provider.
func New() types.Provider {
	return &provider{}
}

func (p *provider) Kind() types.Kind { return types.KindOnPremise }

func (p *provider) ManagedKubernetesName() string { return "self-managed" }

// SupportsPause is false: the engine does not own the node lifecycle of a
// self-managed cluster.
func (p *provider) SupportsPause() bool { return false }

func (p *provider) ProtectedTerraformResources() []string { return nil }

func (p *provider) CredentialEnvironmentVariables(_ string) [][2]string { return nil }

func (p *provider) Login(_ context.Context) error { return nil }

func (p *provider) ValidateCredentials(_ context.Context, _ string) error { return nil }

func (p *provider) ValidateInstanceType(_ context.Context, _, _ string) error {
	// Node shapes are whatever the user racked.
	return nil
}

func (p *provider) FetchKubeconfig(_ context.Context, _, _ string) ([]byte, error) {
	return nil, ErrKubeconfigMustBeProvided
}
