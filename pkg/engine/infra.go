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

package engine

import (
	"fmt"

	kubeclient "k8s.io/client-go/kubernetes"

	"github.com/qovery/engine-go/pkg/build"
	"github.com/qovery/engine-go/pkg/cloudprovider/types"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/helm"
	"github.com/qovery/engine-go/pkg/objectstorage"
	"github.com/qovery/engine-go/pkg/registry"
)

// InfraContext owns every external-facing leaf for one cluster: cloud
// provider, kube client, tool runners, registry and object storage. It is
// assembled once per transaction and passed down by reference; leaves never
// reach back into it.
type InfraContext struct {
	Context  *Context
	Provider types.Provider
	// Region the cluster lives in; passed to every provider call.
	Region string

	Kube   kubeclient.Interface
	Helm   *helm.Helm
	Docker *build.Docker
	Skopeo *registry.Skopeo

	Registry      registry.ContainerRegistry
	ObjectStorage objectstorage.Bucket

	Logger *events.Logger
}

// Validate checks the wiring needed by any action; build-only leaves are
// checked by the steps that use them.
func (ic *InfraContext) Validate() error {
	if ic.Context == nil {
		return fmt.Errorf("infra context: missing engine context")
	}
	if ic.Provider == nil {
		return fmt.Errorf("infra context: missing cloud provider")
	}
	if ic.Logger == nil {
		return fmt.Errorf("infra context: missing logger")
	}
	return nil
}
