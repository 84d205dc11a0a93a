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

package kubernetes

import (
	"context"
	"errors"
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func pvcFixture(name, serviceID string, sizeGi int64) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "z-env",
			Labels:    map[string]string{AppLabelKey: serviceID},
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: *resource.NewQuantity(sizeGi*1024*1024*1024, resource.BinarySI),
				},
			},
		},
	}
}

func TestFindInvalidPVCs(t *testing.T) {
	client := fake.NewSimpleClientset(
		pvcFixture("data-0", "svc-1", 10),
		pvcFixture("data-1", "svc-1", 20),
		pvcFixture("other", "svc-2", 5),
	)

	invalid, err := FindInvalidPVCs(context.Background(), client, "z-env", "svc-1", 20)
	if err != nil {
		t.Fatalf("FindInvalidPVCs() error: %v", err)
	}
	if len(invalid) != 1 {
		t.Fatalf("got %d invalid PVCs, want 1: %v", len(invalid), invalid)
	}
	if invalid[0].Name != "data-0" || invalid[0].CurrentSizeGi != 10 || invalid[0].DesiredSizeGi != 20 {
		t.Errorf("invalid PVC = %+v", invalid[0])
	}
}

func TestFindInvalidPVCsRejectsShrink(t *testing.T) {
	client := fake.NewSimpleClientset(pvcFixture("data-0", "svc-1", 50))

	_, err := FindInvalidPVCs(context.Background(), client, "z-env", "svc-1", 20)
	var shrink *ShrinkNotAllowedError
	if !errors.As(err, &shrink) {
		t.Fatalf("error = %v, want ShrinkNotAllowedError", err)
	}
	if shrink.CurrentSizeGi != 50 || shrink.DesiredSizeGi != 20 {
		t.Errorf("shrink error = %+v", shrink)
	}
}

func TestGrowPVC(t *testing.T) {
	client := fake.NewSimpleClientset(pvcFixture("data-0", "svc-1", 10))

	err := GrowPVC(context.Background(), client, "z-env", InvalidPVC{Name: "data-0", CurrentSizeGi: 10, DesiredSizeGi: 30})
	if err != nil {
		t.Fatalf("GrowPVC() error: %v", err)
	}

	patched, err := client.CoreV1().PersistentVolumeClaims("z-env").Get(context.Background(), "data-0", metav1.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := sizeInGi(patched); got != 30 {
		t.Errorf("patched size = %dGi, want 30Gi", got)
	}
}
