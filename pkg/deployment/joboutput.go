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

package deployment

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Job output keys become environment variable names downstream, so they
// are held to env-var naming rules.
var jobOutputKeyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// JobOutputVariable is one entry of the JSON blob a job emits on success.
type JobOutputVariable struct {
	Value       string
	Sensitive   bool
	Description string
}

// OutputVariableValidationError reports a job output key that cannot be
// used as a variable name.
type OutputVariableValidationError struct {
	Key string
}

func (e *OutputVariableValidationError) Error() string {
	return fmt.Sprintf("job output variable %q is invalid: keys must match %s", e.Key, jobOutputKeyRe.String())
}

// ParseJobOutput decodes the final JSON blob of a job. Non-string values
// are coerced to their JSON stringification, sensitive defaults to false
// and description to empty.
func ParseJobOutput(raw []byte) (map[string]JobOutputVariable, error) {
	var decoded map[string]struct {
		Value       json.RawMessage `json:"value"`
		Sensitive   *bool           `json:"sensitive"`
		Description *string         `json:"description"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("cannot decode job output: %w", err)
	}

	out := make(map[string]JobOutputVariable, len(decoded))
	for key, entry := range decoded {
		if !jobOutputKeyRe.MatchString(key) {
			return nil, &OutputVariableValidationError{Key: key}
		}
		variable := JobOutputVariable{Value: stringifyJSONValue(entry.Value)}
		if entry.Sensitive != nil {
			variable.Sensitive = *entry.Sensitive
		}
		if entry.Description != nil {
			variable.Description = *entry.Description
		}
		out[key] = variable
	}
	return out, nil
}

func stringifyJSONValue(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	return strings.TrimSpace(string(raw))
}
