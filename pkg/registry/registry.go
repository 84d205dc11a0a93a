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

// Package registry abstracts the cluster-attached container registry and
// implements registry-to-registry mirroring through skopeo. The concrete
// per-cloud registry clients (ECR, ACR, GCR, Scaleway CR) are external
// adapters satisfying ContainerRegistry.
package registry

import (
	"context"
	"time"
)

// RepositoryTags are applied on repository creation so the TTL cleaner can
// reason about ownership and expiry.
type RepositoryTags struct {
	CreationDate  time.Time
	TTL           time.Duration
	EnvironmentID string
	ProjectID     string
	ClusterID     string
}

// RepositoryInfo describes a created or pre-existing repository.
type RepositoryInfo struct {
	Name string
	URL  string
	// Created is false when the repository already existed; creation is
	// idempotent.
	Created bool
}

// ContainerRegistry is the capability set of a cluster-attached registry.
type ContainerRegistry interface {
	// Name identifies the registry for logs.
	Name() string
	// URL is the registry endpoint images are pushed to.
	URL() string
	// Credentials used by docker login and skopeo.
	Credentials() (login, password string)
	// CreateRepository idempotently ensures the repository exists with the
	// given tags.
	CreateRepository(ctx context.Context, name string, tags RepositoryTags) (RepositoryInfo, error)
	// DeleteRepository removes the repository and its images.
	DeleteRepository(ctx context.Context, name string) error
	// ImageExists reports whether the image:tag is already present.
	ImageExists(ctx context.Context, name, tag string) bool
}
