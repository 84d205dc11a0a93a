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
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MissingOverrideKeysError reports runtime overrides that have no
// counterpart in the static values file. Every knob the engine sets must be
// declared there; hidden knobs are rejected before deployment.
type MissingOverrideKeysError struct {
	ValuesFile string
	Keys       []string
}

func (e *MissingOverrideKeysError) Error() string {
	return fmt.Sprintf("override keys %v not declared in values file %s", e.Keys, e.ValuesFile)
}

// ValidateOverrides checks that every override key path exists in the
// static values file.
func ValidateOverrides(valuesFile string, overrides [][2]string) error {
	data, err := os.ReadFile(valuesFile)
	if err != nil {
		return fmt.Errorf("cannot read values file %s: %w", valuesFile, err)
	}
	declared, err := FlattenValuesKeys(data)
	if err != nil {
		return fmt.Errorf("cannot parse values file %s: %w", valuesFile, err)
	}

	var missing []string
	for _, kv := range overrides {
		if _, ok := declared[normalizeKey(kv[0])]; !ok {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingOverrideKeysError{ValuesFile: valuesFile, Keys: missing}
	}
	return nil
}

// FlattenValuesKeys parses YAML and returns the set of dotted key paths,
// including every intermediate path.
func FlattenValuesKeys(data []byte) (map[string]struct{}, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	keys := map[string]struct{}{}
	flattenInto("", doc, keys)
	return keys, nil
}

func flattenInto(prefix string, node map[string]interface{}, out map[string]struct{}) {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		out[path] = struct{}{}
		if child, ok := v.(map[string]interface{}); ok {
			flattenInto(path, child, out)
		}
	}
}

// normalizeKey strips helm --set list indexes so "tolerations[0].key"
// validates against the "tolerations" declaration.
func normalizeKey(key string) string {
	if i := strings.IndexByte(key, '['); i >= 0 {
		return key[:i]
	}
	return key
}
