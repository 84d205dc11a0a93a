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

// Package kubernetes observes deployment state: pods, services, PVCs and
// the events bound to them, classified and rendered for progress reports.
package kubernetes

import (
	"context"
	"fmt"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	apitypes "k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
)

// AppLabelKey selects the objects belonging to one service; the value is
// the service long id.
const AppLabelKey = "appId"

// eventWindow is how far back bound events may reach.
const eventWindow = 2 * time.Minute

// eventsPerObject caps how many recent events are attached per object.
const eventsPerObject = 2

// AppDeploymentInfo is the raw observation of one service deployment.
type AppDeploymentInfo struct {
	Pods     []corev1.Pod
	Services []corev1.Service
	PVCs     []corev1.PersistentVolumeClaim
	Events   []corev1.Event
}

// Observer polls one namespace through a typed clientset.
type Observer struct {
	client    kubernetes.Interface
	namespace string
}

// NewObserver returns an observer bound to a namespace.
func NewObserver(client kubernetes.Interface, namespace string) *Observer {
	return &Observer{client: client, namespace: namespace}
}

// GetAppDeploymentInfo lists the objects of a service and the namespace
// events, in one pass.
func (o *Observer) GetAppDeploymentInfo(ctx context.Context, serviceLongID string) (*AppDeploymentInfo, error) {
	selector := fmt.Sprintf("%s=%s", AppLabelKey, serviceLongID)
	listOpts := metav1.ListOptions{LabelSelector: selector}

	pods, err := o.client.CoreV1().Pods(o.namespace).List(ctx, listOpts)
	if err != nil {
		return nil, fmt.Errorf("cannot list pods for service %s: %w", serviceLongID, err)
	}
	services, err := o.client.CoreV1().Services(o.namespace).List(ctx, listOpts)
	if err != nil {
		return nil, fmt.Errorf("cannot list services for service %s: %w", serviceLongID, err)
	}
	pvcs, err := o.client.CoreV1().PersistentVolumeClaims(o.namespace).List(ctx, listOpts)
	if err != nil {
		return nil, fmt.Errorf("cannot list PVCs for service %s: %w", serviceLongID, err)
	}
	events, err := o.client.CoreV1().Events(o.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("cannot list events: %w", err)
	}

	return &AppDeploymentInfo{
		Pods:     pods.Items,
		Services: services.Items,
		PVCs:     pvcs.Items,
		Events:   events.Items,
	}, nil
}

// BoundEvents returns the last events involving the object with the given
// UID, newest first, within the event window, capped at eventsPerObject.
func BoundEvents(events []corev1.Event, uid apitypes.UID, now time.Time) []corev1.Event {
	var matched []corev1.Event
	for _, ev := range events {
		if ev.InvolvedObject.UID != uid {
			continue
		}
		ts := ev.LastTimestamp.Time
		if ts.IsZero() {
			ts = ev.FirstTimestamp.Time
		}
		if ts.IsZero() || now.Sub(ts) > eventWindow {
			continue
		}
		matched = append(matched, ev)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].LastTimestamp.Time.After(matched[j].LastTimestamp.Time)
	})
	if len(matched) > eventsPerObject {
		matched = matched[:eventsPerObject]
	}
	return matched
}
