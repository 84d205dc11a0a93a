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
	"context"
	"fmt"

	"github.com/qovery/engine-go/pkg/command"
)

// Remote is a registry adapter for docker-v2 registries that create
// repositories implicitly on first push (Harbor, GitLab, generic v2).
// Tag inspection goes through skopeo.
type Remote struct {
	name     string
	url      string
	login    string
	password string
	skopeo   *Skopeo
	abort    *command.AbortHandle
}

// NewRemote returns an adapter for the registry at url.
func NewRemote(name, url, login, password string, skopeo *Skopeo, abort *command.AbortHandle) *Remote {
	return &Remote{name: name, url: url, login: login, password: password, skopeo: skopeo, abort: abort}
}

func (r *Remote) Name() string { return r.name }
func (r *Remote) URL() string  { return r.url }

func (r *Remote) Credentials() (string, string) { return r.login, r.password }

func (r *Remote) auth() RegistryAuth {
	return RegistryAuth{Login: r.login, Password: r.password}
}

// CreateRepository is a no-op beyond reporting: docker-v2 registries
// materialize the repository on first push. Tags are recorded by the
// control plane, not the registry.
func (r *Remote) CreateRepository(ctx context.Context, name string, tags RepositoryTags) (RepositoryInfo, error) {
	return RepositoryInfo{
		Name:    name,
		URL:     fmt.Sprintf("%s/%s", r.url, name),
		Created: false,
	}, nil
}

// DeleteRepository removes every tag of the repository.
func (r *Remote) DeleteRepository(ctx context.Context, name string) error {
	repo := fmt.Sprintf("%s/%s", r.url, name)
	tags, err := r.skopeo.ListTags(repo, r.auth(), r.abort)
	if err != nil {
		return fmt.Errorf("cannot list tags of %s: %w", repo, err)
	}
	for _, tag := range tags {
		if err := r.skopeo.Delete(fmt.Sprintf("%s:%s", repo, tag), r.auth(), r.abort); err != nil {
			return fmt.Errorf("cannot delete %s:%s: %w", repo, tag, err)
		}
	}
	return nil
}

// ImageExists probes the tag list of the repository.
func (r *Remote) ImageExists(ctx context.Context, name, tag string) bool {
	tags, err := r.skopeo.ListTags(fmt.Sprintf("%s/%s", r.url, name), r.auth(), r.abort)
	if err != nil {
		return false
	}
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
