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

// Package helm drives the helm binary for chart deployment. Applies are
// atomic with a timeout so a failed upgrade rolls itself back.
package helm

import (
	"fmt"
	"strings"
	"time"

	"github.com/qovery/engine-go/pkg/command"
)

// killGracePeriod leaves helm time to record the release state after a
// termination request.
const killGracePeriod = 60 * time.Second

// defaultTimeout applies when a chart does not set one.
const defaultTimeout = 10 * time.Minute

// ChartInfo describes one chart deployment.
type ChartInfo struct {
	Name      string
	Namespace string
	// Path is the chart directory (or packaged chart).
	Path string
	// ValuesFiles are layered in order; later files win.
	ValuesFiles []string
	// Values are --set-string overrides applied on top of the files.
	Values [][2]string
	// Atomic upgrades roll back on failure.
	Atomic  bool
	Timeout time.Duration
	// CreateNamespace makes helm create the target namespace.
	CreateNamespace bool
	// AllowClusterWideResources gates charts that install CRDs or other
	// cluster-scoped objects.
	AllowClusterWideResources bool
	// ExtraArgs are appended verbatim (user-supplied helm arguments).
	ExtraArgs []string
}

// Helm runs the helm binary against one cluster.
type Helm struct {
	KubeconfigPath string
	// Envs carry cloud credentials for charts that reach cloud APIs.
	Envs [][2]string

	Stdout func(string)
	Stderr func(string)
}

// New returns a helm runner bound to a kubeconfig.
func New(kubeconfigPath string, envs [][2]string, stdout, stderr func(string)) *Helm {
	return &Helm{KubeconfigPath: kubeconfigPath, Envs: envs, Stdout: stdout, Stderr: stderr}
}

func (h *Helm) run(timeout time.Duration, abort *command.AbortHandle, args ...string) (string, error) {
	var output strings.Builder
	record := func(sink func(string)) func(string) {
		return func(l string) {
			output.WriteString(l)
			output.WriteString("\n")
			if sink != nil {
				sink(l)
			}
		}
	}
	cmd := &command.Command{
		Binary:          "helm",
		Args:            args,
		Envs:            append([][2]string{{"KUBECONFIG", h.KubeconfigPath}}, h.Envs...),
		Timeout:         timeout,
		KillGracePeriod: killGracePeriod,
	}
	err := cmd.Exec(record(h.Stdout), record(h.Stderr), abort)
	return output.String(), err
}

func (c *ChartInfo) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c *ChartInfo) applyArgs() []string {
	args := []string{
		"upgrade", "--install", c.Name, c.Path,
		"--namespace", c.Namespace,
		"--timeout", fmt.Sprintf("%ds", int(c.timeout().Seconds())),
	}
	if c.CreateNamespace {
		args = append(args, "--create-namespace")
	}
	if c.Atomic {
		args = append(args, "--atomic")
	}
	for _, f := range c.ValuesFiles {
		args = append(args, "-f", f)
	}
	for _, kv := range c.Values {
		args = append(args, "--set-string", fmt.Sprintf("%s=%s", kv[0], kv[1]))
	}
	args = append(args, c.ExtraArgs...)
	return args
}

// UpgradeInstall deploys the chart (helm upgrade --install).
func (h *Helm) UpgradeInstall(chart *ChartInfo, abort *command.AbortHandle) (string, error) {
	// The command timeout exceeds helm's own so helm handles its rollback.
	return h.run(chart.timeout()+5*time.Minute, abort, chart.applyArgs()...)
}

// Template renders the chart with --validate as a pre-flight check.
func (h *Helm) Template(chart *ChartInfo, abort *command.AbortHandle) (string, error) {
	args := []string{
		"template", chart.Name, chart.Path,
		"--namespace", chart.Namespace,
		"--validate",
	}
	for _, f := range chart.ValuesFiles {
		args = append(args, "-f", f)
	}
	for _, kv := range chart.Values {
		args = append(args, "--set-string", fmt.Sprintf("%s=%s", kv[0], kv[1]))
	}
	return h.run(chart.timeout(), abort, args...)
}

// Uninstall removes the release; a missing release is not an error.
func (h *Helm) Uninstall(name, namespace string, abort *command.AbortHandle) error {
	out, err := h.run(defaultTimeout, abort, "uninstall", name, "--namespace", namespace)
	if err != nil && strings.Contains(out, "release: not found") {
		return nil
	}
	return err
}

// GetValues returns the user-supplied values of a deployed release in YAML.
func (h *Helm) GetValues(name, namespace string, abort *command.AbortHandle) (string, error) {
	return h.run(defaultTimeout, abort, "get", "values", name, "--namespace", namespace, "--output", "yaml")
}

// ListReleases returns release names deployed in a namespace.
func (h *Helm) ListReleases(namespace string, abort *command.AbortHandle) ([]string, error) {
	out, err := h.run(defaultTimeout, abort, "list", "--namespace", namespace, "--short")
	if err != nil {
		return nil, err
	}
	var releases []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			releases = append(releases, l)
		}
	}
	return releases, nil
}
