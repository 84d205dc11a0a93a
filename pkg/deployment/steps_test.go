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

package deployment

import (
	"testing"

	"go.uber.org/zap"
)

func TestStepRecorderStop(t *testing.T) {
	recorder := NewStepRecorder(zap.NewNop(), nil)

	h := recorder.StartStep("svc-1", StepBuild)
	h.Stop(StepStatusSuccess)
	// A second stop must not record a duplicate.
	h.Stop(StepStatusError)

	records := recorder.Records()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Step != StepBuild || records[0].Status != StepStatusSuccess {
		t.Errorf("record = %+v, want Build/Success", records[0])
	}
}

func TestStepRecorderClosesLeakedHandles(t *testing.T) {
	recorder := NewStepRecorder(zap.NewNop(), nil)

	recorder.StartStep("svc-1", StepGitClone).Stop(StepStatusSuccess)
	recorder.StartStep("svc-2", StepDeployment) // dropped without Stop

	recorder.CloseOpenHandles()

	records := recorder.Records()
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	var notSet int
	for _, r := range records {
		if r.Status == StepStatusNotSet {
			notSet++
			if r.Step != StepDeployment {
				t.Errorf("leaked step = %v, want Deployment", r.Step)
			}
		}
	}
	if notSet != 1 {
		t.Errorf("got %d NotSet records, want 1", notSet)
	}
}

func TestStepRecorderConcurrentUse(t *testing.T) {
	recorder := NewStepRecorder(zap.NewNop(), nil)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				recorder.StartStep("svc", StepMirrorImage).Stop(StepStatusSuccess)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if got := len(recorder.Records()); got != 400 {
		t.Errorf("got %d records, want 400", got)
	}
}
