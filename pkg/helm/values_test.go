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

package helm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"
)

const sampleValuesYAML = `
service:
  id: ""
  name: ""
resources:
  cpuLimitInMilli: 500m
  ramLimitInMib: 512Mi
tolerations: []
autoscaler:
  minReplicas: 1
`

func writeValuesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFlattenValuesKeys(t *testing.T) {
	keys, err := FlattenValuesKeys([]byte(sampleValuesYAML))
	if err != nil {
		t.Fatalf("FlattenValuesKeys() error: %v", err)
	}
	for _, want := range []string{"service", "service.id", "resources.ramLimitInMib", "tolerations", "autoscaler.minReplicas"} {
		if _, ok := keys[want]; !ok {
			t.Errorf("key %q missing from flattened set", want)
		}
	}
	if _, ok := keys["service.id.nested"]; ok {
		t.Error("leaf keys must not grow phantom children")
	}
}

func TestValidateOverrides(t *testing.T) {
	path := writeValuesFile(t, sampleValuesYAML)

	tests := []struct {
		name        string
		overrides   [][2]string
		wantMissing []string
	}{
		{
			name: "all keys declared",
			overrides: [][2]string{
				{"service.id", "z1234"},
				{"resources.cpuLimitInMilli", "250m"},
			},
		},
		{
			name:      "list index validates against list declaration",
			overrides: [][2]string{{"tolerations[0].key", "nodepool/stable"}},
		},
		{
			name: "undeclared keys rejected",
			overrides: [][2]string{
				{"service.id", "z1234"},
				{"hidden.knob", "oops"},
				{"another.one", "oops"},
			},
			wantMissing: []string{"another.one", "hidden.knob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOverrides(path, tt.overrides)
			if tt.wantMissing == nil {
				if err != nil {
					t.Fatalf("ValidateOverrides() error: %v", err)
				}
				return
			}
			var missingErr *MissingOverrideKeysError
			if !errors.As(err, &missingErr) {
				t.Fatalf("error = %v, want MissingOverrideKeysError", err)
			}
			if diff := deep.Equal(missingErr.Keys, tt.wantMissing); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestValidateOverridesMissingFile(t *testing.T) {
	err := ValidateOverrides(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err == nil {
		t.Error("ValidateOverrides() must fail when the values file is missing")
	}
}
