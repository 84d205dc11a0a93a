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
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	apitypes "k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
)

// InvalidPVC is a claim whose bound size is below the declared desired
// size; a resize candidate.
type InvalidPVC struct {
	Name          string
	CurrentSizeGi int64
	DesiredSizeGi int64
}

// ShrinkNotAllowedError rejects any attempt to declare a size below what a
// claim already holds. Volumes only grow.
type ShrinkNotAllowedError struct {
	PVCName       string
	CurrentSizeGi int64
	DesiredSizeGi int64
}

func (e *ShrinkNotAllowedError) Error() string {
	return fmt.Sprintf("PVC %s holds %dGi, shrinking to %dGi is not allowed", e.PVCName, e.CurrentSizeGi, e.DesiredSizeGi)
}

// sizeInGi reads the bound storage request in whole Gi.
func sizeInGi(pvc *corev1.PersistentVolumeClaim) int64 {
	q, ok := pvc.Spec.Resources.Requests[corev1.ResourceStorage]
	if !ok {
		return 0
	}
	return q.Value() / (1024 * 1024 * 1024)
}

// FindInvalidPVCs lists the claims of a service and returns those whose
// size is below desiredSizeGi. A claim above the desired size yields a
// ShrinkNotAllowedError instead: observed storage is monotonic.
func FindInvalidPVCs(ctx context.Context, client kubernetes.Interface, namespace, serviceLongID string, desiredSizeGi int64) ([]InvalidPVC, error) {
	selector := fmt.Sprintf("%s=%s", AppLabelKey, serviceLongID)
	pvcs, err := client.CoreV1().PersistentVolumeClaims(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("cannot list PVCs of service %s: %w", serviceLongID, err)
	}

	var invalid []InvalidPVC
	for i := range pvcs.Items {
		pvc := &pvcs.Items[i]
		current := sizeInGi(pvc)
		if current > desiredSizeGi {
			return nil, &ShrinkNotAllowedError{PVCName: pvc.Name, CurrentSizeGi: current, DesiredSizeGi: desiredSizeGi}
		}
		if current < desiredSizeGi {
			invalid = append(invalid, InvalidPVC{Name: pvc.Name, CurrentSizeGi: current, DesiredSizeGi: desiredSizeGi})
		}
	}
	return invalid, nil
}

// GrowPVC patches spec.resources.requests.storage to the desired size.
func GrowPVC(ctx context.Context, client kubernetes.Interface, namespace string, pvc InvalidPVC) error {
	desired := resource.NewQuantity(pvc.DesiredSizeGi*1024*1024*1024, resource.BinarySI)
	patch := []byte(fmt.Sprintf(`{"spec":{"resources":{"requests":{"storage":"%s"}}}}`, desired.String()))
	_, err := client.CoreV1().PersistentVolumeClaims(namespace).Patch(ctx, pvc.Name, apitypes.MergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("cannot grow PVC %s to %dGi: %w", pvc.Name, pvc.DesiredSizeGi, err)
	}
	return nil
}
