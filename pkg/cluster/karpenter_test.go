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
	"testing"

	"github.com/go-test/deep"
)

func TestStablePoolPinValues(t *testing.T) {
	base := [][2]string{
		{"nodeAffinity.karpenter.sh/nodepool", "stable"},
		{"tolerations[0].key", "nodepool/stable"},
		{"tolerations[0].operator", "Exists"},
		{"tolerations[0].effect", "NoSchedule"},
	}

	if diff := deep.Equal(StablePoolPinValues(false), base); diff != nil {
		t.Error(diff)
	}

	withCapacity := append(append([][2]string{}, base...),
		[2]string{"nodeAffinity.karpenter.sh/capacity-type", "on-demand"})
	if diff := deep.Equal(StablePoolPinValues(true), withCapacity); diff != nil {
		t.Error(diff)
	}
}
