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

package cloudprovider

import (
	"errors"

	"github.com/qovery/engine-go/pkg/cloudprovider/provider/aws"
	"github.com/qovery/engine-go/pkg/cloudprovider/provider/azure"
	"github.com/qovery/engine-go/pkg/cloudprovider/provider/gcp"
	"github.com/qovery/engine-go/pkg/cloudprovider/provider/onpremise"
	"github.com/qovery/engine-go/pkg/cloudprovider/provider/scaleway"
	"github.com/qovery/engine-go/pkg/cloudprovider/types"
)

// ErrProviderNotFound tells that the requested cloud provider is not part
// of the supported set.
var ErrProviderNotFound = errors.New("cloudprovider not found")

var providers = map[types.Kind]func(creds types.Credentials) types.Provider{
	types.KindAWS: func(creds types.Credentials) types.Provider {
		return aws.New(creds)
	},
	types.KindAzure: func(creds types.Credentials) types.Provider {
		return azure.New(creds)
	},
	types.KindGCP: func(creds types.Credentials) types.Provider {
		return gcp.New(creds)
	},
	types.KindScaleway: func(creds types.Credentials) types.Provider {
		return scaleway.New(creds)
	},
	types.KindOnPremise: func(creds types.Credentials) types.Provider {
		return onpremise.New()
	},
}

// ForProvider returns the provider actuator for the requested cloud.
func ForProvider(kind types.Kind, creds types.Credentials) (types.Provider, error) {
	if p, found := providers[kind]; found {
		return p(creds), nil
	}
	return nil, ErrProviderNotFound
}
