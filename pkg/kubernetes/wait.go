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
	"time"
)

// convergencePollInterval paces the readiness poll between reports.
const convergencePollInterval = 5 * time.Second

// PodFailedError reports a pod that entered a terminal failure state while
// waiting for convergence.
type PodFailedError struct {
	PodName string
	Reason  string
}

func (e *PodFailedError) Error() string {
	return fmt.Sprintf("pod %s failed: %s", e.PodName, e.Reason)
}

// WaitUntilServiceReady polls until every pod of the service is ready, a
// pod fails terminally, or the context expires. At least one pod must
// exist before readiness counts, so a not-yet-scheduled workload does not
// pass vacuously.
func (o *Observer) WaitUntilServiceReady(ctx context.Context, serviceLongID string) error {
	ticker := time.NewTicker(convergencePollInterval)
	defer ticker.Stop()

	for {
		info, err := o.GetAppDeploymentInfo(ctx, serviceLongID)
		if err == nil {
			ready := len(info.Pods) > 0
			for i := range info.Pods {
				pod := &info.Pods[i]
				if failed, reason := IsPodInError(pod); failed {
					return &PodFailedError{PodName: pod.Name, Reason: reason}
				}
				if PodState(pod) != StateReady {
					ready = false
				}
			}
			if ready {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("service %s did not converge: %w", serviceLongID, ctx.Err())
		case <-ticker.C:
		}
	}
}
