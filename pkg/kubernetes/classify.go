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
	corev1 "k8s.io/api/core/v1"
)

// ObjectState is the coarse state every observed object is classified into.
type ObjectState string

const (
	StateStarting    ObjectState = "Starting"
	StateReady       ObjectState = "Ready"
	StateTerminating ObjectState = "Terminating"
	StateFailing     ObjectState = "Failing"
)

// podErrorReasons are container waiting/terminated reasons that flag a pod
// as failing rather than still starting.
var podErrorReasons = map[string]struct{}{
	"OOMKilled":                  {},
	"Error":                      {},
	"CrashLoopBackOff":           {},
	"ErrImagePull":               {},
	"ImagePullBackOff":           {},
	"CreateContainerConfigError": {},
	"InvalidImageName":           {},
	"CreateContainerError":       {},
	"ContainerCannotRun":         {},
	"DeadlineExceeded":           {},
}

// IsPodInError reports whether the pod is in a terminal failure state, and
// which reason put it there.
func IsPodInError(pod *corev1.Pod) (bool, string) {
	statuses := append([]corev1.ContainerStatus{}, pod.Status.InitContainerStatuses...)
	statuses = append(statuses, pod.Status.ContainerStatuses...)
	for i := range statuses {
		st := &statuses[i]
		if st.State.Waiting != nil {
			if _, bad := podErrorReasons[st.State.Waiting.Reason]; bad {
				return true, st.State.Waiting.Reason
			}
		}
		if st.State.Terminated != nil {
			if _, bad := podErrorReasons[st.State.Terminated.Reason]; bad {
				return true, st.State.Terminated.Reason
			}
		}
	}
	if pod.Status.Phase == corev1.PodFailed {
		return true, pod.Status.Reason
	}
	return false, ""
}

// IsPodStarting reports whether the pod has not converged yet: pending, or
// any condition still false.
func IsPodStarting(pod *corev1.Pod) bool {
	if pod.Status.Phase == corev1.PodPending {
		return true
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Status == corev1.ConditionFalse {
			return true
		}
	}
	return false
}

// PodState folds the error/starting checks into one state.
func PodState(pod *corev1.Pod) ObjectState {
	if pod.DeletionTimestamp != nil {
		return StateTerminating
	}
	if failed, _ := IsPodInError(pod); failed {
		return StateFailing
	}
	if IsPodStarting(pod) {
		return StateStarting
	}
	return StateReady
}

// ServiceState classifies a kubernetes Service. A LoadBalancer is ready
// once an ingress has been allocated; a ClusterIP-class service once it
// holds at least one IP.
func ServiceState(svc *corev1.Service) ObjectState {
	if svc.DeletionTimestamp != nil {
		return StateTerminating
	}
	if svc.Spec.Type == corev1.ServiceTypeLoadBalancer {
		if len(svc.Status.LoadBalancer.Ingress) > 0 {
			return StateReady
		}
		return StateStarting
	}
	if svc.Spec.ClusterIP != "" || len(svc.Spec.ClusterIPs) > 0 {
		return StateReady
	}
	return StateStarting
}

// PVCState classifies a persistent volume claim by phase.
func PVCState(pvc *corev1.PersistentVolumeClaim) ObjectState {
	if pvc.DeletionTimestamp != nil {
		return StateTerminating
	}
	switch pvc.Status.Phase {
	case corev1.ClaimBound:
		return StateReady
	case corev1.ClaimPending:
		return StateStarting
	case corev1.ClaimLost:
		return StateFailing
	}
	return StateStarting
}
