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
	"encoding/json"
	"testing"

	"github.com/go-test/deep"
)

func TestIsValidCloudwatchRetention(t *testing.T) {
	tests := []struct {
		days int
		want bool
	}{
		{0, true},
		{1, true},
		{2, false},
		{90, true},
		{91, false},
		{3653, true},
		{-1, false},
	}

	for _, tt := range tests {
		if got := IsValidCloudwatchRetention(tt.days); got != tt.want {
			t.Errorf("IsValidCloudwatchRetention(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestNewAdvancedSettingsDefaults(t *testing.T) {
	settings := NewAdvancedSettings()
	want := AdvancedSettings{
		LoadBalancerSize:               "lb-s",
		RegistryImageRetentionSeconds:  31_536_000,
		PlecoResourcesTTL:              -1,
		LokiLogRetentionInWeek:         12,
		CloudwatchEksLogsRetentionDays: 90,
		DatabaseDenyPublicAccess:       false,
		DatabaseAllowedCIDRs:           []string{"0.0.0.0/0"},
	}
	if diff := deep.Equal(settings, want); diff != nil {
		t.Error(diff)
	}
	if !IsValidCloudwatchRetention(settings.CloudwatchEksLogsRetentionDays) {
		t.Error("default cloudwatch retention must be valid")
	}
}

func TestAdvancedSettingsPartialOverride(t *testing.T) {
	settings := NewAdvancedSettings()
	payload := `{"load_balancer.size": "lb-l", "loki.log_retention_in_week": 4}`
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		t.Fatalf("cannot apply override: %v", err)
	}
	if settings.LoadBalancerSize != "lb-l" {
		t.Errorf("LoadBalancerSize = %q, want lb-l", settings.LoadBalancerSize)
	}
	if settings.LokiLogRetentionInWeek != 4 {
		t.Errorf("LokiLogRetentionInWeek = %d, want 4", settings.LokiLogRetentionInWeek)
	}
	// Untouched fields keep their defaults.
	if settings.CloudwatchEksLogsRetentionDays != 90 {
		t.Errorf("CloudwatchEksLogsRetentionDays = %d, want 90", settings.CloudwatchEksLogsRetentionDays)
	}
}
