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
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// event markers by event type.
const (
	markerNormal  = "ℹ️"
	markerWarning = "⚠️"
	markerError   = "💢"
)

func eventMarker(ev *corev1.Event) string {
	switch ev.Type {
	case corev1.EventTypeNormal:
		return markerNormal
	case corev1.EventTypeWarning:
		return markerWarning
	default:
		return markerError
	}
}

// RenderReport produces the deterministic textual progress report of one
// service deployment: per-object state lines with their recent events, and
// a recap deduplicating repeated warnings.
func RenderReport(info *AppDeploymentInfo, now time.Time) string {
	var b strings.Builder
	warnings := map[string]int{}
	var warningOrder []string

	recordWarnings := func(evs []corev1.Event) {
		for _, ev := range evs {
			if ev.Type == corev1.EventTypeNormal {
				continue
			}
			if _, seen := warnings[ev.Message]; !seen {
				warningOrder = append(warningOrder, ev.Message)
			}
			warnings[ev.Message]++
		}
	}

	for i := range info.Pods {
		pod := &info.Pods[i]
		state := PodState(pod)
		line := fmt.Sprintf("Pod %s is %s", pod.Name, strings.ToUpper(string(state)))
		if failed, reason := IsPodInError(pod); failed && reason != "" {
			line += fmt.Sprintf(" (%s)", reason)
		}
		b.WriteString(line)
		b.WriteString("\n")
		evs := BoundEvents(info.Events, pod.UID, now)
		for _, ev := range evs {
			fmt.Fprintf(&b, "  %s %s\n", eventMarker(&ev), ev.Message)
		}
		recordWarnings(evs)
	}

	for i := range info.Services {
		svc := &info.Services[i]
		fmt.Fprintf(&b, "Service %s is %s\n", svc.Name, strings.ToUpper(string(ServiceState(svc))))
		evs := BoundEvents(info.Events, svc.UID, now)
		for _, ev := range evs {
			fmt.Fprintf(&b, "  %s %s\n", eventMarker(&ev), ev.Message)
		}
		recordWarnings(evs)
	}

	for i := range info.PVCs {
		pvc := &info.PVCs[i]
		fmt.Fprintf(&b, "Persistent volume claim %s is %s\n", pvc.Name, strings.ToUpper(string(PVCState(pvc))))
		evs := BoundEvents(info.Events, pvc.UID, now)
		for _, ev := range evs {
			fmt.Fprintf(&b, "  %s %s\n", eventMarker(&ev), ev.Message)
		}
		recordWarnings(evs)
	}

	if len(warningOrder) > 0 {
		b.WriteString("Recap:\n")
		for _, msg := range warningOrder {
			if n := warnings[msg]; n > 1 {
				fmt.Fprintf(&b, "  %s %s (x%d)\n", markerWarning, msg, n)
			} else {
				fmt.Fprintf(&b, "  %s %s\n", markerWarning, msg)
			}
		}
	}

	return b.String()
}
