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

// Package events defines the structured envelope carried by every log line,
// error and metric emitted by the engine. No anonymous messages: each event
// names the provider, organization, cluster, execution, stage and the
// subsystem (transmitter) it originated from.
package events

import "fmt"

// Level of an emitted event.
type Level string

const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// InfrastructureStep within a cluster lifecycle stage.
type InfrastructureStep string

const (
	InfrastructureStepInstantiate       InfrastructureStep = "instantiate"
	InfrastructureStepCreate            InfrastructureStep = "create"
	InfrastructureStepPause             InfrastructureStep = "pause"
	InfrastructureStepResume            InfrastructureStep = "resume"
	InfrastructureStepUpgrade           InfrastructureStep = "upgrade"
	InfrastructureStepDelete            InfrastructureStep = "delete"
	InfrastructureStepValidateAPIInput  InfrastructureStep = "validate-api-input"
	InfrastructureStepLoadConfiguration InfrastructureStep = "load-configuration"
)

// EnvironmentStep within an environment stage.
type EnvironmentStep string

const (
	EnvironmentStepBuild   EnvironmentStep = "build"
	EnvironmentStepDeploy  EnvironmentStep = "deploy"
	EnvironmentStepPause   EnvironmentStep = "pause"
	EnvironmentStepDelete  EnvironmentStep = "delete"
	EnvironmentStepRestart EnvironmentStep = "restart"
)

// Stage is either an infrastructure stage or an environment stage.
type Stage struct {
	Infrastructure InfrastructureStep
	Environment    EnvironmentStep
}

// NewInfrastructureStage returns a Stage for a cluster lifecycle step.
func NewInfrastructureStage(step InfrastructureStep) Stage {
	return Stage{Infrastructure: step}
}

// NewEnvironmentStage returns a Stage for an environment step.
func NewEnvironmentStage(step EnvironmentStep) Stage {
	return Stage{Environment: step}
}

// String renders the stage for log output.
func (s Stage) String() string {
	if s.Infrastructure != "" {
		return fmt.Sprintf("infrastructure(%s)", s.Infrastructure)
	}
	if s.Environment != "" {
		return fmt.Sprintf("environment(%s)", s.Environment)
	}
	return "general"
}

// TransmitterKind names the subsystem class a message came from.
type TransmitterKind string

const (
	TransmitterKindEngine            TransmitterKind = "engine"
	TransmitterKindBuildPlatform     TransmitterKind = "build-platform"
	TransmitterKindContainerRegistry TransmitterKind = "container-registry"
	TransmitterKindCloudProvider     TransmitterKind = "cloud-provider"
	TransmitterKindKubernetes        TransmitterKind = "kubernetes"
	TransmitterKindDNSProvider       TransmitterKind = "dns-provider"
	TransmitterKindObjectStorage     TransmitterKind = "object-storage"
	TransmitterKindEnvironment       TransmitterKind = "environment"
	TransmitterKindDatabase          TransmitterKind = "database"
	TransmitterKindApplication       TransmitterKind = "application"
	TransmitterKindContainer         TransmitterKind = "container"
	TransmitterKindRouter            TransmitterKind = "router"
	TransmitterKindJob               TransmitterKind = "job"
	TransmitterKindHelmChart         TransmitterKind = "helm-chart"
)

// Transmitter identifies the concrete subsystem emitting an event. ID and
// Name are empty for singleton transmitters such as the engine itself.
type Transmitter struct {
	Kind TransmitterKind
	ID   string
	Name string
	// Type carries extra detail for databases (engine type).
	Type string
}

// NewTransmitter returns a transmitter without per-instance identity.
func NewTransmitter(kind TransmitterKind) Transmitter {
	return Transmitter{Kind: kind}
}

// NewServiceTransmitter returns a transmitter for an identified service.
func NewServiceTransmitter(kind TransmitterKind, id, name string) Transmitter {
	return Transmitter{Kind: kind, ID: id, Name: name}
}

// NewDatabaseTransmitter returns a transmitter for a database service.
func NewDatabaseTransmitter(id, dbType, name string) Transmitter {
	return Transmitter{Kind: TransmitterKindDatabase, ID: id, Name: name, Type: dbType}
}

func (t Transmitter) String() string {
	if t.ID == "" {
		return string(t.Kind)
	}
	if t.Type != "" {
		return fmt.Sprintf("%s(%s, %s, %s)", t.Kind, t.ID, t.Type, t.Name)
	}
	return fmt.Sprintf("%s(%s, %s)", t.Kind, t.ID, t.Name)
}

// EventDetails is the complete envelope attached to every event.
type EventDetails struct {
	ProviderKind   string
	OrganizationID string
	ClusterID      string
	ExecutionID    string
	Region         string
	Stage          Stage
	Transmitter    Transmitter
}

// NewEventDetails assembles an envelope. All identifier fields are expected
// to be non-empty; Validate reports violations.
func NewEventDetails(providerKind, organizationID, clusterID, executionID, region string, stage Stage, transmitter Transmitter) EventDetails {
	return EventDetails{
		ProviderKind:   providerKind,
		OrganizationID: organizationID,
		ClusterID:      clusterID,
		ExecutionID:    executionID,
		Region:         region,
		Stage:          stage,
		Transmitter:    transmitter,
	}
}

// Validate enforces the no-anonymous-messages invariant.
func (d EventDetails) Validate() error {
	if d.OrganizationID == "" {
		return fmt.Errorf("event details: organization id is empty")
	}
	if d.ClusterID == "" {
		return fmt.Errorf("event details: cluster id is empty")
	}
	if d.ExecutionID == "" {
		return fmt.Errorf("event details: execution id is empty")
	}
	return nil
}

// WithStage returns a copy of the details with another stage.
func (d EventDetails) WithStage(stage Stage) EventDetails {
	d.Stage = stage
	return d
}

// WithTransmitter returns a copy of the details with another transmitter.
func (d EventDetails) WithTransmitter(t Transmitter) EventDetails {
	d.Transmitter = t
	return d
}

// EventMessage carries a raw form, which may contain secrets, and a safe
// form with secrets replaced. Only the safe form may reach user-visible
// sinks; the raw form is reserved for the audit channel.
type EventMessage struct {
	Raw  string
	Safe string
}

// NewEventMessage obfuscates raw through svc to produce the safe form. A nil
// service means no registered secrets.
func NewEventMessage(raw string, svc *ObfuscationService) EventMessage {
	safe := raw
	if svc != nil {
		safe = svc.Obfuscate(raw)
	}
	return EventMessage{Raw: raw, Safe: safe}
}
