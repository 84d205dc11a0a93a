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
	"sync"
	"time"
)

// reportInterval is the cadence of deployment progress reports.
const reportInterval = 10 * time.Second

// DeploymentMonitor produces periodic progress reports for one service
// while a long task runs. Start it before the task and Stop it exactly once
// when the task completes; Stop is safe to call from a defer.
type DeploymentMonitor struct {
	observer      *Observer
	serviceLongID string
	report        func(string)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewDeploymentMonitor wires a monitor; report receives each rendered
// report.
func NewDeploymentMonitor(observer *Observer, serviceLongID string, report func(string)) *DeploymentMonitor {
	return &DeploymentMonitor{
		observer:      observer,
		serviceLongID: serviceLongID,
		report:        report,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the monitor worker.
func (m *DeploymentMonitor) Start(ctx context.Context) {
	go m.loop(ctx)
}

func (m *DeploymentMonitor) loop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := m.observer.GetAppDeploymentInfo(ctx, m.serviceLongID)
			if err != nil {
				// Observation is best effort; the deployment itself decides
				// success or failure.
				continue
			}
			m.report(RenderReport(info, time.Now()))
		}
	}
}

// Stop signals the worker and waits for it to exit.
func (m *DeploymentMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}
