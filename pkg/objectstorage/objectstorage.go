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

// Package objectstorage stores cluster artifacts (kubeconfigs, terraform
// state backups) in the provider's object store.
package objectstorage

import (
	"context"
	"fmt"
)

// Bucket is the minimal object-store capability the engine needs.
type Bucket interface {
	// CreateBucket idempotently ensures the bucket exists.
	CreateBucket(ctx context.Context, name string) error
	// DeleteBucket removes the bucket; with hardDelete the contents are
	// purged first.
	DeleteBucket(ctx context.Context, name string, hardDelete bool) error
	// PutObject uploads content under key.
	PutObject(ctx context.Context, bucket, key string, content []byte) error
	// GetObject downloads the object; a missing key is an error.
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	// DeleteObject removes one object; missing is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error
}

// KubeconfigBucketName is where a cluster's kubeconfig lives.
func KubeconfigBucketName(clusterID string) string {
	return fmt.Sprintf("qovery-kubeconfigs-%s", clusterID)
}

// KubeconfigObjectKey is the object key inside the kubeconfig bucket.
func KubeconfigObjectKey(clusterID string) string {
	return fmt.Sprintf("%s.yaml", clusterID)
}

// PutKubeconfig uploads the kubeconfig to its canonical location.
func PutKubeconfig(ctx context.Context, store Bucket, clusterID string, kubeconfig []byte) error {
	bucket := KubeconfigBucketName(clusterID)
	if err := store.CreateBucket(ctx, bucket); err != nil {
		return err
	}
	return store.PutObject(ctx, bucket, KubeconfigObjectKey(clusterID), kubeconfig)
}

// GetKubeconfig downloads the kubeconfig from its canonical location.
func GetKubeconfig(ctx context.Context, store Bucket, clusterID string) ([]byte, error) {
	return store.GetObject(ctx, KubeconfigBucketName(clusterID), KubeconfigObjectKey(clusterID))
}
