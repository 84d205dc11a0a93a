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

// Package terraform drives the terraform binary for cluster-level
// infrastructure. State is remote, scoped per cluster, and locked by the
// backend; the engine never implements its own locking.
package terraform

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/qovery/engine-go/pkg/command"
)

// killGracePeriod leaves terraform time to release the state lock after a
// termination request.
const killGracePeriod = 60 * time.Second

// Terraform runs the terraform binary inside one cluster workspace
// directory.
type Terraform struct {
	WorkDir string
	// Envs carry cloud credentials; they never appear on argv.
	Envs    [][2]string
	Timeout time.Duration

	// Stdout and Stderr receive interleaved output lines.
	Stdout func(string)
	Stderr func(string)
}

// New returns a runner for the given workspace directory.
func New(workDir string, envs [][2]string, stdout, stderr func(string)) *Terraform {
	return &Terraform{
		WorkDir: workDir,
		Envs:    envs,
		Timeout: 1 * time.Hour,
		Stdout:  stdout,
		Stderr:  stderr,
	}
}

func (t *Terraform) run(abort *command.AbortHandle, args ...string) (string, error) {
	var output strings.Builder
	stdout := func(l string) {
		output.WriteString(l)
		output.WriteString("\n")
		if t.Stdout != nil {
			t.Stdout(l)
		}
	}
	stderr := func(l string) {
		output.WriteString(l)
		output.WriteString("\n")
		if t.Stderr != nil {
			t.Stderr(l)
		}
	}

	cmd := &command.Command{
		Binary:          "terraform",
		Args:            append([]string{"-chdir=" + t.WorkDir}, args...),
		Envs:            append([][2]string{{"TF_IN_AUTOMATION", "true"}}, t.Envs...),
		Timeout:         t.Timeout,
		KillGracePeriod: killGracePeriod,
	}
	err := cmd.Exec(stdout, stderr, abort)
	return output.String(), err
}

// Init runs terraform init with plugin upgrades allowed.
func (t *Terraform) Init(abort *command.AbortHandle) (string, error) {
	return t.run(abort, "init", "-no-color", "-upgrade")
}

// Plan writes the plan to planFile and returns the textual output.
func (t *Terraform) Plan(planFile string, abort *command.AbortHandle) (string, error) {
	return t.run(abort, "plan", "-no-color", "-input=false", "-out="+planFile)
}

// Apply applies a previously produced plan file, or the configuration
// directly when planFile is empty.
func (t *Terraform) Apply(planFile string, abort *command.AbortHandle) (string, error) {
	args := []string{"apply", "-no-color", "-input=false", "-auto-approve"}
	if planFile != "" {
		args = append(args, planFile)
	}
	return t.run(abort, args...)
}

// Destroy tears the configuration down.
func (t *Terraform) Destroy(abort *command.AbortHandle) (string, error) {
	return t.run(abort, "destroy", "-no-color", "-input=false", "-auto-approve")
}

// StateList returns the resource addresses present in the state. An empty
// list with a missing state file is not an error.
func (t *Terraform) StateList(abort *command.AbortHandle) ([]string, error) {
	out, err := t.run(abort, "state", "list", "-no-color")
	if err != nil {
		// terraform exits non-zero when the state is empty or absent.
		if strings.Contains(out, "No state file was found") {
			return nil, nil
		}
		return nil, err
	}
	var resources []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			resources = append(resources, l)
		}
	}
	return resources, nil
}

// OutputValue is one terraform output entry: { "value": <T> }.
type OutputValue struct {
	Value     json.RawMessage `json:"value"`
	Sensitive bool            `json:"sensitive,omitempty"`
}

// Outputs runs terraform output -json and decodes { <key>: { value: <T> } }.
func (t *Terraform) Outputs(abort *command.AbortHandle) (map[string]OutputValue, error) {
	out, err := t.run(abort, "output", "-no-color", "-json")
	if err != nil {
		return nil, err
	}
	// Output lines may be preceded by warnings; decode from the first '{'.
	idx := strings.Index(out, "{")
	if idx < 0 {
		return nil, fmt.Errorf("terraform output returned no JSON document")
	}
	outputs := map[string]OutputValue{}
	if err := json.Unmarshal([]byte(out[idx:]), &outputs); err != nil {
		return nil, fmt.Errorf("cannot decode terraform outputs: %w", err)
	}
	return outputs, nil
}

// OutputString extracts a single string-typed output.
func (t *Terraform) OutputString(key string, abort *command.AbortHandle) (string, error) {
	outputs, err := t.Outputs(abort)
	if err != nil {
		return "", err
	}
	v, ok := outputs[key]
	if !ok {
		return "", fmt.Errorf("terraform output %q not found", key)
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return "", fmt.Errorf("terraform output %q is not a string: %w", key, err)
	}
	return s, nil
}

// WriteVarFile serializes tfvars in JSON form into the workspace.
func (t *Terraform) WriteVarFile(name string, vars map[string]interface{}) error {
	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fmt.Sprintf("%s/%s.tfvars.json", t.WorkDir, name), data, 0o600)
}
