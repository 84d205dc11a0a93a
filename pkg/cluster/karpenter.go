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

// Karpenter label and taint keys used to pin singleton and stateful
// workloads to the stable node pool, keeping them clear of consolidation.
const (
	karpenterNodePoolLabel     = "karpenter.sh/nodepool"
	karpenterCapacityTypeLabel = "karpenter.sh/capacity-type"
	stableNodePool             = "stable"
	stablePoolTaintKey         = "nodepool/stable"
	onDemandCapacity           = "on-demand"
)

// StablePoolPinValues renders the chart overrides that pin a workload to
// the stable Karpenter node pool: a node affinity on the pool label and a
// toleration for the pool taint. StatefulSets additionally require
// on-demand capacity so consolidation never evicts them mid-write.
func StablePoolPinValues(statefulSet bool) [][2]string {
	values := [][2]string{
		{"nodeAffinity." + karpenterNodePoolLabel, stableNodePool},
		{"tolerations[0].key", stablePoolTaintKey},
		{"tolerations[0].operator", "Exists"},
		{"tolerations[0].effect", "NoSchedule"},
	}
	if statefulSet {
		values = append(values, [2]string{"nodeAffinity." + karpenterCapacityTypeLabel, onDemandCapacity})
	}
	return values
}
