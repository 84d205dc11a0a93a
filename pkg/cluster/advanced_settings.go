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

// AdvancedSettings are the persisted per-cluster options. Zero values are
// replaced by defaults through NewAdvancedSettings; partial overrides come
// from the API as JSON.
type AdvancedSettings struct {
	LoadBalancerSize               string   `json:"load_balancer.size"`
	RegistryImageRetentionSeconds  int64    `json:"registry.image_retention_time"`
	PlecoResourcesTTL              int64    `json:"pleco.resources_ttl"`
	LokiLogRetentionInWeek         int      `json:"loki.log_retention_in_week"`
	CloudwatchEksLogsRetentionDays int      `json:"aws.cloudwatch.eks_logs_retention_days"`
	DatabaseDenyPublicAccess       bool     `json:"database.deny_public_access"`
	DatabaseAllowedCIDRs           []string `json:"database.allowed_cidrs"`
}

// NewAdvancedSettings returns the documented defaults.
func NewAdvancedSettings() AdvancedSettings {
	return AdvancedSettings{
		LoadBalancerSize:               "lb-s",
		RegistryImageRetentionSeconds:  31_536_000,
		PlecoResourcesTTL:              -1,
		LokiLogRetentionInWeek:         12,
		CloudwatchEksLogsRetentionDays: 90,
		DatabaseDenyPublicAccess:       false,
		DatabaseAllowedCIDRs:           []string{"0.0.0.0/0"},
	}
}

// cloudwatchValidRetentionDays is the closed set CloudWatch accepts for log
// group retention; any other value is rejected by the AWS API.
var cloudwatchValidRetentionDays = map[int]struct{}{
	0: {}, 1: {}, 3: {}, 5: {}, 7: {}, 14: {}, 30: {}, 60: {}, 90: {},
	120: {}, 150: {}, 180: {}, 365: {}, 400: {}, 545: {}, 731: {},
	1827: {}, 2192: {}, 2557: {}, 2922: {}, 3288: {}, 3653: {},
}

// IsValidCloudwatchRetention reports whether days is accepted by
// CloudWatch. Zero means never-expire and is valid.
func IsValidCloudwatchRetention(days int) bool {
	_, ok := cloudwatchValidRetentionDays[days]
	return ok
}
