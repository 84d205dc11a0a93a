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

// Package deployment drives the per-service pipelines: build, mirror,
// deploy, observe.
package deployment

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// StepName identifies one unit of pipeline work.
type StepName string

const (
	StepProvisionBuilder         StepName = "ProvisionBuilder"
	StepRegistryCreateRepository StepName = "RegistryCreateRepository"
	StepGitClone                 StepName = "GitClone"
	StepBuildQueueing            StepName = "BuildQueueing"
	StepBuild                    StepName = "Build"
	StepMirrorImage              StepName = "MirrorImage"
	StepDeploymentQueueing       StepName = "DeploymentQueueing"
	StepDeployment               StepName = "Deployment"
)

// StepStatus is the terminal status of a step.
type StepStatus string

const (
	StepStatusSuccess   StepStatus = "Success"
	StepStatusError     StepStatus = "Error"
	StepStatusCancelled StepStatus = "Cancelled"
	StepStatusSkip      StepStatus = "Skip"
	// StepStatusNotSet marks a handle that was dropped without an explicit
	// stop; it signals a programming error in the pipeline.
	StepStatusNotSet StepStatus = "NotSet"
)

// StepRecord is one measured step execution.
type StepRecord struct {
	ServiceLongID string
	Step          StepName
	Status        StepStatus
	Duration      time.Duration
}

// StepRecorder measures every pipeline step of one execution. It is safe
// for concurrent use by parallel service pipelines.
type StepRecorder struct {
	log      *zap.Logger
	duration *prometheus.HistogramVec

	mu      sync.Mutex
	records []StepRecord
	open    map[*StepRecordHandle]struct{}
}

// NewStepRecorder registers the step duration metric on the given
// registerer and returns a fresh recorder.
func NewStepRecorder(log *zap.Logger, reg prometheus.Registerer) *StepRecorder {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "engine",
		Subsystem: "deployment",
		Name:      "step_duration_seconds",
		Help:      "Duration of deployment pipeline steps.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"step", "status"})
	if reg != nil {
		reg.MustRegister(duration)
	}
	return &StepRecorder{
		log:      log,
		duration: duration,
		open:     map[*StepRecordHandle]struct{}{},
	}
}

// StepRecordHandle tracks one in-flight step. Stop it exactly once.
type StepRecordHandle struct {
	recorder      *StepRecorder
	serviceLongID string
	step          StepName
	startedAt     time.Time
	stopped       bool
}

// StartStep opens a handle for a step about to run.
func (r *StepRecorder) StartStep(serviceLongID string, step StepName) *StepRecordHandle {
	h := &StepRecordHandle{
		recorder:      r,
		serviceLongID: serviceLongID,
		step:          step,
		startedAt:     time.Now(),
	}
	r.mu.Lock()
	r.open[h] = struct{}{}
	r.mu.Unlock()
	return h
}

// Stop closes the handle with the given status. Later calls are no-ops.
func (h *StepRecordHandle) Stop(status StepStatus) {
	h.recorder.mu.Lock()
	defer h.recorder.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	delete(h.recorder.open, h)
	h.recorder.recordLocked(h, status)
}

func (r *StepRecorder) recordLocked(h *StepRecordHandle, status StepStatus) {
	elapsed := time.Since(h.startedAt)
	r.records = append(r.records, StepRecord{
		ServiceLongID: h.serviceLongID,
		Step:          h.step,
		Status:        status,
		Duration:      elapsed,
	})
	r.duration.WithLabelValues(string(h.step), string(status)).Observe(elapsed.Seconds())
}

// CloseOpenHandles records NotSet for every handle never stopped and logs
// a warning per leak. Called once when the transaction finishes.
func (r *StepRecorder) CloseOpenHandles() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h := range r.open {
		h.stopped = true
		delete(r.open, h)
		r.recordLocked(h, StepStatusNotSet)
		if r.log != nil {
			r.log.Warn("deployment step handle dropped without stop",
				zap.String("service_id", h.serviceLongID),
				zap.String("step", string(h.step)),
			)
		}
	}
}

// Records returns a copy of everything recorded so far.
func (r *StepRecorder) Records() []StepRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StepRecord, len(r.records))
	copy(out, r.records)
	return out
}
