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

package build

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qovery/engine-go/pkg/command"
)

const (
	dockerBuildTimeout = 30 * time.Minute
	dockerPushTimeout  = 15 * time.Minute
)

// BuildRequest describes one image build.
type BuildRequest struct {
	// ImageName is the fully qualified target image, registry included.
	ImageName string
	Tag       string
	// DockerfilePath is relative to ContextDir.
	DockerfilePath string
	ContextDir     string
	// BuildArgs are the env pairs already matched against the Dockerfile
	// ARGs; unmatched pairs must not reach the builder.
	BuildArgs [][2]string
}

// Docker wraps the docker CLI with registry credentials kept in a
// per-execution config directory instead of argv or the user's home.
type Docker struct {
	// ConfigDir holds the docker config.json with registry auth entries.
	ConfigDir string
	Stdout    func(string)
	Stderr    func(string)
}

// NewDocker prepares a docker runner with an isolated config directory
// under the workspace.
func NewDocker(workspaceDir string, stdout, stderr func(string)) (*Docker, error) {
	configDir := filepath.Join(workspaceDir, ".docker")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create docker config dir: %w", err)
	}
	return &Docker{ConfigDir: configDir, Stdout: stdout, Stderr: stderr}, nil
}

// Login records registry credentials in the isolated config file. Auth is
// written directly so the password never transits argv.
func (d *Docker) Login(registryURL, login, password string) error {
	configPath := filepath.Join(d.ConfigDir, "config.json")

	config := struct {
		Auths map[string]struct {
			Auth string `json:"auth"`
		} `json:"auths"`
	}{}
	if raw, err := os.ReadFile(configPath); err == nil {
		_ = json.Unmarshal(raw, &config)
	}
	if config.Auths == nil {
		config.Auths = map[string]struct {
			Auth string `json:"auth"`
		}{}
	}
	config.Auths[registryURL] = struct {
		Auth string `json:"auth"`
	}{Auth: base64.StdEncoding.EncodeToString([]byte(login + ":" + password))}

	raw, err := json.Marshal(config)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, raw, 0o600); err != nil {
		return fmt.Errorf("cannot write docker config: %w", err)
	}
	return nil
}

func (d *Docker) run(args []string, timeout time.Duration, abort *command.AbortHandle) error {
	cmd := &command.Command{
		Binary: "docker",
		Args:   args,
		Envs: [][2]string{
			{"DOCKER_CONFIG", d.ConfigDir},
			{"DOCKER_BUILDKIT", "1"},
		},
		Timeout: timeout,
	}
	return cmd.Exec(d.Stdout, d.Stderr, abort)
}

// Build runs docker build with the matched build args.
func (d *Docker) Build(req BuildRequest, abort *command.AbortHandle) error {
	args := []string{
		"build",
		"--network", "host",
		"-f", filepath.Join(req.ContextDir, req.DockerfilePath),
		"-t", req.ImageName + ":" + req.Tag,
	}
	for _, kv := range req.BuildArgs {
		args = append(args, "--build-arg", kv[0]+"="+kv[1])
	}
	args = append(args, req.ContextDir)
	return d.run(args, dockerBuildTimeout, abort)
}

// Push uploads the built image to its registry.
func (d *Docker) Push(imageName, tag string, abort *command.AbortHandle) error {
	return d.run([]string{"push", imageName + ":" + tag}, dockerPushTimeout, abort)
}

// Pull fetches an image, used to warm the local cache before a mirror.
func (d *Docker) Pull(imageName, tag string, abort *command.AbortHandle) error {
	return d.run([]string{"pull", imageName + ":" + tag}, dockerPushTimeout, abort)
}
