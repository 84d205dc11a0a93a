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

package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/qovery/engine-go/pkg/command"
	"github.com/qovery/engine-go/pkg/utils"
)

// skopeo gets no kill grace period: it holds no locks and leaves no
// half-committed state worth waiting for.
const skopeoKillGracePeriod = 0 * time.Second

const skopeoTimeout = 15 * time.Minute

// RegistryAuth carries one side of a mirror operation. Credentials travel
// on the environment, not argv.
type RegistryAuth struct {
	Login    string
	Password string
}

func (a RegistryAuth) isZero() bool { return a.Login == "" && a.Password == "" }

// Skopeo wraps the skopeo binary.
type Skopeo struct {
	Stdout func(string)
	Stderr func(string)
}

// NewSkopeo returns a runner streaming output to the given sinks.
func NewSkopeo(stdout, stderr func(string)) *Skopeo {
	return &Skopeo{Stdout: stdout, Stderr: stderr}
}

func (s *Skopeo) run(args []string, envs [][2]string, abort *command.AbortHandle) (string, error) {
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
		Binary:          "skopeo",
		Args:            args,
		Envs:            envs,
		Timeout:         skopeoTimeout,
		KillGracePeriod: skopeoKillGracePeriod,
	}
	err := cmd.Exec(record(s.Stdout), record(s.Stderr), abort)
	return output.String(), err
}

// Copy mirrors an image between registries, retrying transient failures on
// the standard Fibonacci schedule (5 attempts).
func (s *Skopeo) Copy(srcImage, dstImage string, srcAuth, dstAuth RegistryAuth, allArchitectures bool, abort *command.AbortHandle) error {
	args := []string{"copy", "--retry-times", "0"}
	if allArchitectures {
		args = append(args, "--all")
	}
	var envs [][2]string
	if !srcAuth.isZero() {
		args = append(args, "--src-username", srcAuth.Login, "--src-password-env", "SKOPEO_SRC_PASSWORD")
		envs = append(envs, [2]string{"SKOPEO_SRC_PASSWORD", srcAuth.Password})
	}
	if !dstAuth.isZero() {
		args = append(args, "--dest-username", dstAuth.Login, "--dest-password-env", "SKOPEO_DEST_PASSWORD")
		envs = append(envs, [2]string{"SKOPEO_DEST_PASSWORD", dstAuth.Password})
	}
	args = append(args, "docker://"+srcImage, "docker://"+dstImage)

	return utils.RetryTransient(func() error {
		_, err := s.run(args, envs, abort)
		return err
	})
}

// ListTags enumerates the tags of a repository.
func (s *Skopeo) ListTags(repository string, auth RegistryAuth, abort *command.AbortHandle) ([]string, error) {
	args := []string{"list-tags"}
	var envs [][2]string
	if !auth.isZero() {
		args = append(args, "--username", auth.Login, "--password-env", "SKOPEO_PASSWORD")
		envs = append(envs, [2]string{"SKOPEO_PASSWORD", auth.Password})
	}
	args = append(args, "docker://"+repository)

	out, err := s.run(args, envs, abort)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Tags []string `json:"Tags"`
	}
	if idx := strings.Index(out, "{"); idx >= 0 {
		out = out[idx:]
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		return nil, fmt.Errorf("cannot decode skopeo list-tags output: %w", err)
	}
	return decoded.Tags, nil
}

// ManifestDigests inspects a tag with --raw and returns every manifest
// digest it carries; a multi-arch tag lists one digest per architecture.
func (s *Skopeo) ManifestDigests(image string, auth RegistryAuth, abort *command.AbortHandle) ([]string, error) {
	args := []string{"inspect", "--raw"}
	var envs [][2]string
	if !auth.isZero() {
		args = append(args, "--username", auth.Login, "--password-env", "SKOPEO_PASSWORD")
		envs = append(envs, [2]string{"SKOPEO_PASSWORD", auth.Password})
	}
	args = append(args, "docker://"+image)

	out, err := s.run(args, envs, abort)
	if err != nil {
		return nil, err
	}
	var manifest struct {
		Manifests []struct {
			Digest string `json:"digest"`
		} `json:"manifests"`
	}
	if idx := strings.Index(out, "{"); idx >= 0 {
		out = out[idx:]
	}
	if err := json.Unmarshal([]byte(out), &manifest); err != nil {
		return nil, fmt.Errorf("cannot decode skopeo inspect output: %w", err)
	}
	var digests []string
	for _, m := range manifest.Manifests {
		digests = append(digests, m.Digest)
	}
	return digests, nil
}

// Delete removes one image tag from its registry.
func (s *Skopeo) Delete(image string, auth RegistryAuth, abort *command.AbortHandle) error {
	args := []string{"delete"}
	var envs [][2]string
	if !auth.isZero() {
		args = append(args, "--username", auth.Login, "--password-env", "SKOPEO_PASSWORD")
		envs = append(envs, [2]string{"SKOPEO_PASSWORD", auth.Password})
	}
	args = append(args, "docker://"+image)
	_, err := s.run(args, envs, abort)
	return err
}
