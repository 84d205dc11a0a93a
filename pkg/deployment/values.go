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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qovery/engine-go/pkg/models"
)

// Canonical chart directories, one per service type, under
// <lib_root>/common/charts.
const (
	chartApplication = "q-application"
	chartContainer   = "q-container"
	chartDatabase    = "q-database"
	chartRouter      = "q-router"
	chartJob         = "q-job"
)

func chartPath(libRoot, chartName string) string {
	return filepath.Join(libRoot, "common", "charts", chartName)
}

// chartValuesFile is the static defaults file of a chart. Every runtime
// override must be declared in it.
func chartValuesFile(libRoot, chartName string) string {
	return filepath.Join(libRoot, "chart_values", chartName+".yaml")
}

// commonServiceValues renders the override pairs shared by every runnable
// service: identity, resources, scaling, ports, storages, env vars.
func commonServiceValues(s *models.ServiceCommon, image, tag string) [][2]string {
	values := [][2]string{
		{"service.id", s.LongID.String()},
		{"service.shortId", s.LongID.Short()},
		{"service.name", s.KubeName},
		{"image.name", image},
		{"image.tag", tag},
		{"resources.requests.cpu", fmt.Sprintf("%dm", s.CPURequestInMilli)},
		{"resources.limits.cpu", fmt.Sprintf("%dm", s.CPULimitInMilli)},
		{"resources.requests.memory", fmt.Sprintf("%dMi", s.RAMRequestInMiB)},
		{"resources.limits.memory", fmt.Sprintf("%dMi", s.RAMLimitInMiB)},
		{"autoscaler.minReplicas", fmt.Sprintf("%d", s.MinInstances)},
		{"autoscaler.maxReplicas", fmt.Sprintf("%d", s.MaxInstances)},
	}
	for i, p := range s.Ports {
		prefix := fmt.Sprintf("ports[%d]", i)
		values = append(values,
			[2]string{prefix + ".name", p.Name},
			[2]string{prefix + ".port", fmt.Sprintf("%d", p.Port)},
			[2]string{prefix + ".protocol", string(p.Protocol)},
			[2]string{prefix + ".public", fmt.Sprintf("%t", p.PubliclyAccessible)},
		)
	}
	for i, st := range s.Storages {
		prefix := fmt.Sprintf("storages[%d]", i)
		values = append(values,
			[2]string{prefix + ".name", st.Name},
			[2]string{prefix + ".storageClass", string(st.Type)},
			[2]string{prefix + ".size", fmt.Sprintf("%dGi", st.SizeInGiB)},
			[2]string{prefix + ".mountPoint", st.MountPoint},
		)
	}
	for i, ev := range s.EnvironmentVariables {
		prefix := fmt.Sprintf("environmentVariables[%d]", i)
		values = append(values,
			[2]string{prefix + ".key", ev.Key},
			[2]string{prefix + ".value", ev.Value},
			[2]string{prefix + ".secret", fmt.Sprintf("%t", ev.IsSecret)},
		)
	}
	for i, mf := range s.MountedFiles {
		prefix := fmt.Sprintf("mountedFiles[%d]", i)
		values = append(values,
			[2]string{prefix + ".secretName", mountedFileSecretName(s.LongID.Short(), mf.ID)},
			[2]string{prefix + ".mountPath", mf.MountPath},
		)
	}
	return values
}

func mountedFileSecretName(serviceShortID, fileID string) string {
	return fmt.Sprintf("mounted-file-%s-%s", serviceShortID, strings.ToLower(fileID))
}

// databaseValues renders overrides for a container-mode database.
func databaseValues(db *models.Database) [][2]string {
	return [][2]string{
		{"service.id", db.LongID.String()},
		{"service.name", db.KubeName},
		{"database.type", string(db.Type)},
		{"database.version", db.Version},
		{"database.port", fmt.Sprintf("%d", db.Port)},
		{"database.username", db.Username},
		{"database.password", db.Password},
		{"resources.requests.cpu", fmt.Sprintf("%dm", db.CPURequestInMilli)},
		{"resources.limits.cpu", fmt.Sprintf("%dm", db.CPULimitInMilli)},
		{"resources.requests.memory", fmt.Sprintf("%dMi", db.RAMRequestInMiB)},
		{"resources.limits.memory", fmt.Sprintf("%dMi", db.RAMLimitInMiB)},
		{"storage.size", fmt.Sprintf("%dGi", db.DiskSizeInGiB)},
		{"publiclyAccessible", fmt.Sprintf("%t", db.PubliclyAccessible)},
	}
}

// routerValues renders overrides for a router.
func routerValues(r *models.Router) [][2]string {
	values := [][2]string{
		{"service.id", r.LongID.String()},
		{"service.name", r.KubeName},
		{"hosts.defaultDomain", r.DefaultDomain},
	}
	for i, d := range r.CustomDomains {
		values = append(values, [2]string{fmt.Sprintf("hosts.customDomains[%d]", i), d})
	}
	for i, route := range r.Routes {
		prefix := fmt.Sprintf("routes[%d]", i)
		values = append(values,
			[2]string{prefix + ".path", route.Path},
			[2]string{prefix + ".serviceId", route.ServiceLongID.String()},
		)
	}
	return values
}

// jobValues renders overrides specific to jobs on top of the common set.
func jobValues(j *models.Job, image, tag string) [][2]string {
	values := commonServiceValues(&j.ServiceCommon, image, tag)
	values = append(values,
		[2]string{"job.cronSchedule", j.Schedule.Cron},
		[2]string{"job.maxNbRestart", fmt.Sprintf("%d", j.MaxNbRestart)},
		[2]string{"job.maxDurationSeconds", fmt.Sprintf("%d", int(j.MaxDuration.Seconds()))},
	)
	if j.Entrypoint != "" {
		values = append(values, [2]string{"job.entrypoint", j.Entrypoint})
	}
	for i, arg := range j.Arguments {
		values = append(values, [2]string{fmt.Sprintf("job.args[%d]", i), arg})
	}
	return values
}
