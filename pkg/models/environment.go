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

import (
	"fmt"
	"time"
)

// Environment is a set of services deployed together into a single
// Kubernetes namespace.
type Environment struct {
	LongID         QoveryIdentifier `json:"long_id"`
	ProjectLongID  QoveryIdentifier `json:"project_long_id"`
	OrganizationID string           `json:"organization_id"`
	Namespace      string           `json:"kube_name"`
	Action         Action           `json:"action"`
	MaxParallelism int              `json:"max_parallelism"`

	Applications []Application `json:"applications"`
	Containers   []Container   `json:"containers"`
	Databases    []Database    `json:"databases"`
	Routers      []Router      `json:"routers"`
	Jobs         []Job         `json:"jobs"`
	HelmCharts   []HelmChart   `json:"helms"`
}

// ServiceCount returns the number of services of any kind.
func (e *Environment) ServiceCount() int {
	return len(e.Applications) + len(e.Containers) + len(e.Databases) +
		len(e.Routers) + len(e.Jobs) + len(e.HelmCharts)
}

// Validate enforces that a service id is unique within one environment.
func (e *Environment) Validate() error {
	seen := map[string]string{}
	check := func(id QoveryIdentifier, kind string) error {
		if prev, ok := seen[id.String()]; ok {
			return fmt.Errorf("duplicate service id %s: used by %s and %s", id, prev, kind)
		}
		seen[id.String()] = kind
		return nil
	}
	for i := range e.Applications {
		if err := check(e.Applications[i].LongID, "application"); err != nil {
			return err
		}
	}
	for i := range e.Containers {
		if err := check(e.Containers[i].LongID, "container"); err != nil {
			return err
		}
	}
	for i := range e.Databases {
		if err := check(e.Databases[i].LongID, "database"); err != nil {
			return err
		}
	}
	for i := range e.Routers {
		if err := check(e.Routers[i].LongID, "router"); err != nil {
			return err
		}
	}
	for i := range e.Jobs {
		if err := check(e.Jobs[i].LongID, "job"); err != nil {
			return err
		}
	}
	for i := range e.HelmCharts {
		if err := check(e.HelmCharts[i].LongID, "helm chart"); err != nil {
			return err
		}
	}
	return nil
}

// ServiceCommon carries the fields shared by every runnable service.
type ServiceCommon struct {
	LongID   QoveryIdentifier `json:"long_id"`
	Name     string           `json:"name"`
	KubeName string           `json:"kube_name"`
	Action   Action           `json:"action"`

	CPURequestInMilli int64 `json:"cpu_request_in_milli"`
	CPULimitInMilli   int64 `json:"cpu_limit_in_milli"`
	RAMRequestInMiB   int64 `json:"ram_request_in_mib"`
	RAMLimitInMiB     int64 `json:"ram_limit_in_mib"`

	MinInstances int32 `json:"min_instances"`
	MaxInstances int32 `json:"max_instances"`

	Ports                []Port                `json:"ports"`
	Storages             []Storage             `json:"storages"`
	EnvironmentVariables []EnvironmentVariable `json:"environment_vars"`
	MountedFiles         []MountedFile         `json:"mounted_files"`

	ReadinessProbe *Probe `json:"readiness_probe,omitempty"`
	LivenessProbe  *Probe `json:"liveness_probe,omitempty"`
}

// Secrets returns the values of all secret environment variables, used to
// seed the obfuscation matcher of the service.
func (s *ServiceCommon) Secrets() []string {
	var out []string
	for _, ev := range s.EnvironmentVariables {
		if ev.IsSecret {
			out = append(out, ev.Value)
		}
	}
	return out
}

// Application is a git-sourced service built by the engine.
type Application struct {
	ServiceCommon

	GitURL         string            `json:"git_url"`
	GitCredentials *GitCredentials   `json:"git_credentials,omitempty"`
	Branch         string            `json:"branch"`
	CommitID       string            `json:"commit_id"`
	DockerfilePath string            `json:"dockerfile_path"`
	BuildContext   string            `json:"root_path"`
	Architectures  []CPUArchitecture `json:"architectures"`

	PublicDomain string `json:"public_domain"`
}

// GitCredentials used for cloning private repositories.
type GitCredentials struct {
	Login       string `json:"login"`
	AccessToken string `json:"access_token"`
}

// Container is a registry-image-sourced service; same runtime shape as an
// application minus git/build info.
type Container struct {
	ServiceCommon

	Registry ContainerSource `json:"registry"`
	Image    string          `json:"image"`
	Tag      string          `json:"tag"`

	PublicDomain string `json:"public_domain"`
}

// ContainerSource points at the registry holding the image of a container.
type ContainerSource struct {
	URL      string `json:"url"`
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`
}

// DatabaseType enumerates supported engines.
type DatabaseType string

const (
	DatabaseTypePostgreSQL DatabaseType = "POSTGRESQL"
	DatabaseTypeMySQL      DatabaseType = "MYSQL"
	DatabaseTypeMongoDB    DatabaseType = "MONGODB"
	DatabaseTypeRedis      DatabaseType = "REDIS"
)

// DatabaseMode selects between an in-cluster container and a managed cloud
// service.
type DatabaseMode string

const (
	DatabaseModeContainer DatabaseMode = "CONTAINER"
	DatabaseModeManaged   DatabaseMode = "MANAGED"
)

// Database service.
type Database struct {
	LongID   QoveryIdentifier `json:"long_id"`
	Name     string           `json:"name"`
	KubeName string           `json:"kube_name"`
	Action   Action           `json:"action"`

	Type    DatabaseType `json:"type"`
	Mode    DatabaseMode `json:"mode"`
	Version string       `json:"version"`

	FQDN     string `json:"fqdn"`
	Port     int32  `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`

	CPURequestInMilli int64 `json:"cpu_request_in_milli"`
	CPULimitInMilli   int64 `json:"cpu_limit_in_milli"`
	RAMRequestInMiB   int64 `json:"ram_request_in_mib"`
	RAMLimitInMiB     int64 `json:"ram_limit_in_mib"`

	DiskSizeInGiB      int64  `json:"disk_size_in_gib"`
	InstanceType       string `json:"database_instance_type,omitempty"`
	PubliclyAccessible bool   `json:"publicly_accessible"`
	HighAvailability   bool   `json:"activate_high_availability"`
	BackupsEnabled     bool   `json:"activate_backups"`
}

// Route maps a path prefix to a service.
type Route struct {
	Path          string           `json:"path"`
	ServiceLongID QoveryIdentifier `json:"service_long_id"`
}

// Router exposes services under a domain.
type Router struct {
	LongID        QoveryIdentifier `json:"long_id"`
	Name          string           `json:"name"`
	KubeName      string           `json:"kube_name"`
	Action        Action           `json:"action"`
	DefaultDomain string           `json:"default_domain"`
	CustomDomains []string         `json:"custom_domains"`
	Routes        []Route          `json:"routes"`
}

// JobSchedule describes when a job runs.
type JobSchedule struct {
	// Cron expression in standard 5-field form; empty for on-demand jobs.
	Cron string `json:"cronjob,omitempty"`
	// OnStart/OnPause/OnDelete trigger lifecycle-event jobs.
	OnStart  bool `json:"on_start"`
	OnPause  bool `json:"on_pause"`
	OnDelete bool `json:"on_delete"`
}

// Job is a one-shot or scheduled workload.
type Job struct {
	ServiceCommon

	Schedule     JobSchedule   `json:"schedule"`
	MaxNbRestart int32         `json:"max_nb_restart"`
	MaxDuration  time.Duration `json:"max_duration_in_sec"`
	ForceTrigger bool          `json:"force_trigger"`
	Entrypoint   string        `json:"entrypoint,omitempty"`
	Arguments    []string      `json:"command_args,omitempty"`

	// Source: either git (built like an application) or a registry image.
	GitURL         string           `json:"git_url,omitempty"`
	GitCredentials *GitCredentials  `json:"git_credentials,omitempty"`
	CommitID       string           `json:"commit_id,omitempty"`
	DockerfilePath string           `json:"dockerfile_path,omitempty"`
	Registry       *ContainerSource `json:"registry,omitempty"`
	Image          string           `json:"image,omitempty"`
	Tag            string           `json:"tag,omitempty"`

	// OutputVariableValidationPattern-conformant JSON emitted by the job is
	// collected as output variables.
	EmitsOutput bool `json:"output_variables_enabled"`
}

// HelmChart is a pre-built chart deployed as part of the environment.
type HelmChart struct {
	LongID   QoveryIdentifier `json:"long_id"`
	Name     string           `json:"name"`
	KubeName string           `json:"kube_name"`
	Action   Action           `json:"action"`

	ChartSource          HelmChartSource       `json:"chart_source"`
	ValuesFiles          []string              `json:"values_files"`
	SetValues            [][2]string           `json:"set_values"`
	Arguments            []string              `json:"helm_arguments"`
	AllowCluster         bool                  `json:"allow_cluster_wide_resources"`
	Timeout              time.Duration         `json:"timeout_sec"`
	EnvironmentVariables []EnvironmentVariable `json:"environment_vars"`
}

// HelmChartSource points at a chart repository or a git tree.
type HelmChartSource struct {
	RepositoryURL string `json:"repository,omitempty"`
	ChartName     string `json:"chart_name,omitempty"`
	ChartVersion  string `json:"chart_version,omitempty"`
	GitURL        string `json:"git_url,omitempty"`
	CommitID      string `json:"commit_id,omitempty"`
	RootPath      string `json:"root_path,omitempty"`
	Skip          bool   `json:"skip_tls_verify,omitempty"`
}
