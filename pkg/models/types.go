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

package models

// Action is the high-level verb attached to an environment or service.
type Action string

const (
	ActionCreate  Action = "create"
	ActionPause   Action = "pause"
	ActionDelete  Action = "delete"
	ActionRestart Action = "restart"
	ActionNothing Action = "nothing"
)

// StorageClass kinds supported across clouds; the concrete class name is
// resolved per provider at chart rendering time.
type StorageType string

const (
	StorageTypeFastSSD StorageType = "fast-ssd"
	StorageTypeSSD     StorageType = "ssd"
	StorageTypeHDD     StorageType = "hdd"
)

// Storage is a persistent volume attached to a service.
type Storage struct {
	ID                      string      `json:"id"`
	Name                    string      `json:"name"`
	Type                    StorageType `json:"type"`
	SizeInGiB               int64       `json:"size_in_gib"`
	MountPoint              string      `json:"mount_point"`
	SnapshotRetentionInDays int         `json:"snapshot_retention_in_days,omitempty"`
}

// Protocol of an exposed port.
type Protocol string

const (
	ProtocolHTTP Protocol = "HTTP"
	ProtocolGRPC Protocol = "GRPC"
	ProtocolTCP  Protocol = "TCP"
	ProtocolUDP  Protocol = "UDP"
)

// Port exposed by a service.
type Port struct {
	ID                 string   `json:"id"`
	Port               int32    `json:"port"`
	IsDefault          bool     `json:"is_default"`
	Name               string   `json:"name"`
	PubliclyAccessible bool     `json:"publicly_accessible"`
	Protocol           Protocol `json:"protocol"`
}

// ProbeType selects the probing mechanism.
type ProbeType string

const (
	ProbeTypeHTTP ProbeType = "HTTP"
	ProbeTypeTCP  ProbeType = "TCP"
	ProbeTypeExec ProbeType = "EXEC"
)

// Probe is a liveness or readiness probe definition.
type Probe struct {
	Type                ProbeType `json:"type"`
	Port                int32     `json:"port,omitempty"`
	Path                string    `json:"path,omitempty"`
	Command             []string  `json:"command,omitempty"`
	InitialDelaySeconds int32     `json:"initial_delay_seconds"`
	PeriodSeconds       int32     `json:"period_seconds"`
	TimeoutSeconds      int32     `json:"timeout_seconds"`
	SuccessThreshold    int32     `json:"success_threshold"`
	FailureThreshold    int32     `json:"failure_threshold"`
}

// EnvironmentVariable is a key/value pair injected into a service. Secret
// values feed the per-service obfuscation matcher.
type EnvironmentVariable struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	IsSecret bool   `json:"is_secret"`
}

// MountedFile is materialized as a Kubernetes Secret mounted at MountPath.
// FileContentB64 is base64 and gets decoded at rendering time.
type MountedFile struct {
	ID             string `json:"id"`
	LongID         string `json:"long_id"`
	MountPath      string `json:"mount_path"`
	FileContentB64 string `json:"file_content_b64"`
}

// CPUArchitecture of built images and nodes.
type CPUArchitecture string

const (
	CPUArchitectureAMD64 CPUArchitecture = "AMD64"
	CPUArchitectureARM64 CPUArchitecture = "ARM64"
)
