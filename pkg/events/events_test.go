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

package events

import "testing"

func TestEventDetailsValidate(t *testing.T) {
	valid := NewEventDetails("aws", "org-1", "cluster-1", "exec-1", "eu-west-3",
		NewEnvironmentStage(EnvironmentStepDeploy), NewTransmitter(TransmitterKindEngine))

	tests := []struct {
		name    string
		mutate  func(d EventDetails) EventDetails
		wantErr bool
	}{
		{"complete envelope", func(d EventDetails) EventDetails { return d }, false},
		{"missing organization", func(d EventDetails) EventDetails { d.OrganizationID = ""; return d }, true},
		{"missing cluster", func(d EventDetails) EventDetails { d.ClusterID = ""; return d }, true},
		{"missing execution", func(d EventDetails) EventDetails { d.ExecutionID = ""; return d }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(valid).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStageString(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		want  string
	}{
		{"infrastructure", NewInfrastructureStage(InfrastructureStepCreate), "infrastructure(create)"},
		{"environment", NewEnvironmentStage(EnvironmentStepPause), "environment(pause)"},
		{"general", Stage{}, "general"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("%s: String() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestTransmitterString(t *testing.T) {
	tests := []struct {
		name string
		tr   Transmitter
		want string
	}{
		{"singleton", NewTransmitter(TransmitterKindEngine), "engine"},
		{"service", NewServiceTransmitter(TransmitterKindApplication, "id-1", "backend"), "application(id-1, backend)"},
		{"database", NewDatabaseTransmitter("id-2", "postgresql", "main-db"), "database(id-2, postgresql, main-db)"},
	}
	for _, tt := range tests {
		if got := tt.tr.String(); got != tt.want {
			t.Errorf("%s: String() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNewEventMessage(t *testing.T) {
	svc := NewObfuscationService([]string{"s3cret"})
	msg := NewEventMessage("connecting with s3cret", svc)
	if msg.Raw != "connecting with s3cret" {
		t.Errorf("Raw = %q", msg.Raw)
	}
	if msg.Safe != "connecting with xxx" {
		t.Errorf("Safe = %q", msg.Safe)
	}

	plain := NewEventMessage("no service", nil)
	if plain.Safe != plain.Raw {
		t.Error("nil obfuscation service must keep the message intact")
	}
}
