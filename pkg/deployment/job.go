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
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/robfig/cron"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/qovery/engine-go/pkg/errors"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/kubernetes"
	"github.com/qovery/engine-go/pkg/models"
)

func (p *Pipeline) deployJob(ctx context.Context, job *models.Job) error {
	transmitter := events.NewServiceTransmitter(events.TransmitterKindJob, job.LongID.String(), job.Name)

	switch job.Action {
	case models.ActionNothing:
		return nil
	case models.ActionDelete:
		return p.deleteService(transmitter, job.KubeName)
	case models.ActionPause:
		// A paused cron job simply stops being scheduled.
		return p.deleteService(transmitter, job.KubeName)
	}

	if job.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(job.Schedule.Cron); err != nil {
			return p.engineError(transmitter, errors.TagInvalidEngineAPIInput,
				fmt.Sprintf("invalid cron expression %q for job %s", job.Schedule.Cron, job.Name), err)
		}
	}

	image, tag, err := p.resolveJobImage(ctx, transmitter, job)
	if err != nil {
		return err
	}

	err = p.helmDeploy(ctx, deployTarget{
		transmitter:  transmitter,
		longID:       job.LongID,
		kubeName:     job.KubeName,
		chartName:    chartJob,
		values:       jobValues(job, image, tag),
		mountedFiles: job.MountedFiles,
		timeout:      job.MaxDuration,
		// Jobs converge on completion, not on readiness; helm --atomic
		// already waits for the run when the chart hooks it.
		waitReady: false,
	})
	if err != nil {
		return err
	}

	if job.EmitsOutput && job.Schedule.Cron == "" {
		return p.collectJobOutput(ctx, transmitter, job)
	}
	return nil
}

// resolveJobImage builds the job image from git or mirrors it from its
// source registry.
func (p *Pipeline) resolveJobImage(ctx context.Context, transmitter events.Transmitter, job *models.Job) (string, string, error) {
	if job.GitURL != "" {
		app := &models.Application{
			ServiceCommon:  job.ServiceCommon,
			GitURL:         job.GitURL,
			GitCredentials: job.GitCredentials,
			CommitID:       job.CommitID,
			DockerfilePath: job.DockerfilePath,
		}
		return p.buildApplicationImage(ctx, transmitter, app)
	}
	if job.Registry == nil {
		return "", "", p.engineError(transmitter, errors.TagInvalidEngineAPIInput,
			fmt.Sprintf("job %s has neither a git source nor a registry image", job.Name), nil)
	}
	return p.mirrorImage(ctx, transmitter, job.LongID, job.Registry, job.Image, job.Tag)
}

// collectJobOutput reads the final JSON blob from the terminated job pod's
// logs, validates it and persists it as a namespace secret for downstream
// services.
func (p *Pipeline) collectJobOutput(ctx context.Context, transmitter events.Transmitter, job *models.Job) error {
	pods, err := p.infra.Kube.CoreV1().Pods(p.env.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", kubernetes.AppLabelKey, job.LongID.String()),
	})
	if err != nil {
		return p.engineError(transmitter, errors.TagK8sServiceError, "cannot list job pods", err)
	}

	var logs string
	for i := range pods.Items {
		pod := &pods.Items[i]
		if pod.Status.Phase != corev1.PodSucceeded {
			continue
		}
		stream, err := p.infra.Kube.CoreV1().Pods(p.env.Namespace).
			GetLogs(pod.Name, &corev1.PodLogOptions{}).Stream(ctx)
		if err != nil {
			return p.engineError(transmitter, errors.TagK8sServiceError,
				fmt.Sprintf("cannot read logs of job pod %s", pod.Name), err)
		}
		raw, readErr := io.ReadAll(stream)
		stream.Close()
		if readErr != nil {
			return p.engineError(transmitter, errors.TagK8sServiceError,
				fmt.Sprintf("cannot read logs of job pod %s", pod.Name), readErr)
		}
		logs = string(raw)
		break
	}
	if logs == "" {
		return p.engineError(transmitter, errors.TagInvalidJobOutputCannotBeSerialized,
			fmt.Sprintf("job %s emitted no output", job.Name), nil)
	}

	blob := lastJSONObject(logs)
	if blob == "" {
		return p.engineError(transmitter, errors.TagInvalidJobOutputCannotBeSerialized,
			fmt.Sprintf("job %s logs contain no JSON output", job.Name), nil)
	}
	output, err := ParseJobOutput([]byte(blob))
	if err != nil {
		tag := errors.TagInvalidJobOutputCannotBeSerialized
		var validation *OutputVariableValidationError
		if stderrors.As(err, &validation) {
			tag = errors.TagJobOutputVariableValidationError
		}
		return p.engineError(transmitter, tag, fmt.Sprintf("job %s output is invalid", job.Name), err)
	}

	for _, variable := range output {
		if variable.Sensitive {
			p.obf.AddSecret(variable.Value)
		}
	}

	serialized, err := json.Marshal(outputToSecretPayload(output))
	if err != nil {
		return p.engineError(transmitter, errors.TagInvalidJobOutputCannotBeSerialized, "cannot serialize job output", err)
	}
	secretFile := models.MountedFile{
		ID:             "output",
		MountPath:      "/qovery-output/qovery-output.json",
		FileContentB64: base64Encode(serialized),
	}
	if err := kubernetes.UpsertMountedFileSecret(ctx, p.infra.Kube, p.env.Namespace,
		fmt.Sprintf("qovery-output-job-%s", job.LongID.Short()), secretFile, map[string]string{
			kubernetes.AppLabelKey: job.LongID.String(),
		}); err != nil {
		return p.engineError(transmitter, errors.TagK8sServiceError, "cannot persist job output", err)
	}
	p.logInfo(transmitter, "collected %d output variables from job %s", len(output), job.Name)
	return nil
}

func outputToSecretPayload(output map[string]JobOutputVariable) map[string]map[string]interface{} {
	payload := make(map[string]map[string]interface{}, len(output))
	for key, v := range output {
		payload[key] = map[string]interface{}{
			"value":       v.Value,
			"sensitive":   v.Sensitive,
			"description": v.Description,
		}
	}
	return payload
}

// lastJSONObject returns the last balanced top-level JSON object found in
// the text, scanning line by line from the end.
func lastJSONObject(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(lines[i])
		if strings.HasPrefix(candidate, "{") && json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return ""
}

func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
