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
	"strings"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	apitypes "k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes/fake"
)

func eventFixture(name string, uid apitypes.UID, eventType, message string, age time.Duration, now time.Time) corev1.Event {
	return corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: name, Namespace: "z-env"},
		InvolvedObject: corev1.ObjectReference{UID: uid},
		Type:           eventType,
		Message:        message,
		LastTimestamp:  metav1.NewTime(now.Add(-age)),
	}
}

func TestBoundEvents(t *testing.T) {
	now := time.Now()
	uid := apitypes.UID("pod-uid")
	events := []corev1.Event{
		eventFixture("recent", uid, corev1.EventTypeWarning, "BackOff", 10*time.Second, now),
		eventFixture("older", uid, corev1.EventTypeWarning, "Failed", 30*time.Second, now),
		eventFixture("oldest-in-window", uid, corev1.EventTypeNormal, "Pulled", time.Minute, now),
		eventFixture("expired", uid, corev1.EventTypeWarning, "Ancient", 5*time.Minute, now),
		eventFixture("other-object", apitypes.UID("other"), corev1.EventTypeWarning, "Unrelated", 5*time.Second, now),
	}

	got := BoundEvents(events, uid, now)
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 (cap): %v", len(got), got)
	}
	// Newest first, expired and foreign events excluded.
	if got[0].Message != "BackOff" || got[1].Message != "Failed" {
		t.Errorf("events = [%s, %s], want newest first", got[0].Message, got[1].Message)
	}
}

func TestBoundEventsFallsBackToFirstTimestamp(t *testing.T) {
	now := time.Now()
	uid := apitypes.UID("pod-uid")
	ev := corev1.Event{
		InvolvedObject: corev1.ObjectReference{UID: uid},
		FirstTimestamp: metav1.NewTime(now.Add(-20 * time.Second)),
	}

	if got := BoundEvents([]corev1.Event{ev}, uid, now); len(got) != 1 {
		t.Errorf("got %d events, want 1 via FirstTimestamp fallback", len(got))
	}
}

func TestGetAppDeploymentInfo(t *testing.T) {
	client := fake.NewSimpleClientset(
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{
			Name: "app-0", Namespace: "z-env",
			Labels: map[string]string{AppLabelKey: "svc-1"},
		}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{
			Name: "foreign", Namespace: "z-env",
			Labels: map[string]string{AppLabelKey: "svc-2"},
		}},
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{
			Name: "app", Namespace: "z-env",
			Labels: map[string]string{AppLabelKey: "svc-1"},
		}},
	)

	info, err := NewObserver(client, "z-env").GetAppDeploymentInfo(context.Background(), "svc-1")
	if err != nil {
		t.Fatalf("GetAppDeploymentInfo() error: %v", err)
	}
	if len(info.Pods) != 1 || info.Pods[0].Name != "app-0" {
		t.Errorf("pods = %v, want only app-0", info.Pods)
	}
	if len(info.Services) != 1 {
		t.Errorf("services = %v, want 1", info.Services)
	}
}

func TestRenderReport(t *testing.T) {
	now := time.Now()
	podUID := apitypes.UID("pod-uid")
	info := &AppDeploymentInfo{
		Pods: []corev1.Pod{{
			ObjectMeta: metav1.ObjectMeta{Name: "app-0", UID: podUID},
			Status: corev1.PodStatus{
				ContainerStatuses: []corev1.ContainerStatus{
					{State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"}}},
				},
			},
		}},
		Events: []corev1.Event{
			eventFixture("warn", podUID, corev1.EventTypeWarning, "Back-off restarting failed container", 10*time.Second, now),
		},
	}

	report := RenderReport(info, now)
	for _, want := range []string{
		"Pod app-0 is FAILING (CrashLoopBackOff)",
		"Back-off restarting failed container",
		"Recap:",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRenderReportDeduplicatesWarnings(t *testing.T) {
	now := time.Now()
	uid1, uid2 := apitypes.UID("p1"), apitypes.UID("p2")
	info := &AppDeploymentInfo{
		Pods: []corev1.Pod{
			{ObjectMeta: metav1.ObjectMeta{Name: "app-0", UID: uid1}},
			{ObjectMeta: metav1.ObjectMeta{Name: "app-1", UID: uid2}},
		},
		Events: []corev1.Event{
			eventFixture("w1", uid1, corev1.EventTypeWarning, "ImagePullBackOff", 5*time.Second, now),
			eventFixture("w2", uid2, corev1.EventTypeWarning, "ImagePullBackOff", 5*time.Second, now),
		},
	}

	report := RenderReport(info, now)
	if !strings.Contains(report, "ImagePullBackOff (x2)") {
		t.Errorf("report must aggregate repeated warnings:\n%s", report)
	}
}
