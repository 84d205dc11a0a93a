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

package objectstorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// GCSBucket stores objects in Google Cloud Storage.
type GCSBucket struct {
	service *storage.Service
	project string
	region  string
}

// NewGCSBucket builds a client from a service-account JSON key.
func NewGCSBucket(ctx context.Context, project, region string, credentialsJSON []byte) (*GCSBucket, error) {
	service, err := storage.NewService(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("cannot build gcs client: %w", err)
	}
	return &GCSBucket{service: service, project: project, region: region}, nil
}

func isGoogleStatus(err error, status int) bool {
	apiErr, ok := err.(*googleapi.Error)
	return ok && apiErr.Code == status
}

func (b *GCSBucket) CreateBucket(ctx context.Context, name string) error {
	_, err := b.service.Buckets.Insert(b.project, &storage.Bucket{
		Name:     name,
		Location: b.region,
	}).Context(ctx).Do()
	if isGoogleStatus(err, http.StatusConflict) {
		return nil
	}
	return err
}

func (b *GCSBucket) DeleteBucket(ctx context.Context, name string, hardDelete bool) error {
	if hardDelete {
		if err := b.purge(ctx, name); err != nil {
			return err
		}
	}
	err := b.service.Buckets.Delete(name).Context(ctx).Do()
	if isGoogleStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

func (b *GCSBucket) purge(ctx context.Context, name string) error {
	call := b.service.Objects.List(name)
	return call.Pages(ctx, func(page *storage.Objects) error {
		for _, object := range page.Items {
			if err := b.service.Objects.Delete(name, object.Name).Context(ctx).Do(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *GCSBucket) PutObject(ctx context.Context, bucket, key string, content []byte) error {
	_, err := b.service.Objects.Insert(bucket, &storage.Object{Name: key}).
		Media(bytes.NewReader(content)).
		Context(ctx).Do()
	return err
}

func (b *GCSBucket) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := b.service.Objects.Get(bucket, key).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (b *GCSBucket) DeleteObject(ctx context.Context, bucket, key string) error {
	err := b.service.Objects.Delete(bucket, key).Context(ctx).Do()
	if isGoogleStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}
