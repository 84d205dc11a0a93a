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
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/qovery/engine-go/pkg/command"
	"github.com/qovery/engine-go/pkg/engine"
	"github.com/qovery/engine-go/pkg/errors"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/kubernetes"
	"github.com/qovery/engine-go/pkg/models"
)

// Pipeline deploys one environment on one cluster. Databases deploy first,
// then workloads in parallel, then routers, then user helm charts.
type Pipeline struct {
	infra    *engine.InfraContext
	env      *models.Environment
	recorder *StepRecorder
	abort    *command.AbortHandle
	obf      *events.ObfuscationService
	details  events.EventDetails
}

// NewPipeline validates the environment and seeds the obfuscation matcher
// with every secret the environment carries.
func NewPipeline(infra *engine.InfraContext, env *models.Environment, recorder *StepRecorder, abort *command.AbortHandle) (*Pipeline, error) {
	if err := infra.Validate(); err != nil {
		return nil, err
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	details := events.NewEventDetails(
		string(infra.Provider.Kind()),
		env.OrganizationID,
		infra.Context.ClusterID.String(),
		infra.Context.ExecutionID,
		infra.Region,
		events.NewEnvironmentStage(events.EnvironmentStepDeploy),
		events.NewServiceTransmitter(events.TransmitterKindEnvironment, env.LongID.String(), env.Namespace),
	)
	if err := details.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		infra:    infra,
		env:      env,
		recorder: recorder,
		abort:    abort,
		obf:      events.NewObfuscationService(environmentSecrets(env)),
		details:  details,
	}, nil
}

func environmentSecrets(env *models.Environment) []string {
	var secrets []string
	for i := range env.Applications {
		secrets = append(secrets, env.Applications[i].Secrets()...)
	}
	for i := range env.Containers {
		secrets = append(secrets, env.Containers[i].Secrets()...)
		secrets = append(secrets, env.Containers[i].Registry.Password)
	}
	for i := range env.Jobs {
		secrets = append(secrets, env.Jobs[i].Secrets()...)
	}
	for i := range env.Databases {
		secrets = append(secrets, env.Databases[i].Password)
	}
	return secrets
}

func (p *Pipeline) logInfo(transmitter events.Transmitter, format string, args ...interface{}) {
	p.infra.Logger.Emit(
		events.LevelInfo,
		p.details.WithTransmitter(transmitter),
		events.NewEventMessage(fmt.Sprintf(format, args...), p.obf),
	)
}

// checkpoint refuses to start a new step once cancellation was requested.
func (p *Pipeline) checkpoint(transmitter events.Transmitter) error {
	if p.abort.IsRequested() {
		return errors.New(
			p.details.WithTransmitter(transmitter),
			errors.TagCancelled,
			events.NewEventMessage("deployment cancelled by user request", nil),
		)
	}
	return nil
}

// namespaceLabels mark the namespace as engine-owned for the TTL cleaner.
func (p *Pipeline) namespaceLabels() map[string]string {
	return map[string]string{
		"qovery.com/environment-id":  p.env.LongID.String(),
		"qovery.com/project-id":      p.env.ProjectLongID.String(),
		"qovery.com/organization-id": p.env.OrganizationID,
	}
}

// DeployEnvironment runs the full environment deployment. Failures of
// individual services do not stop siblings; they are collected and returned
// together.
func (p *Pipeline) DeployEnvironment(ctx context.Context) error {
	p.logInfo(p.details.Transmitter, "deploying environment %s (%d services)", p.env.Namespace, p.env.ServiceCount())

	if err := kubernetes.EnsureNamespace(ctx, p.infra.Kube, p.env.Namespace, p.namespaceLabels()); err != nil {
		return errors.NewFromError(p.details, errors.TagK8sServiceError, "cannot create environment namespace", err, p.obf)
	}

	// Databases first: workloads may depend on them at boot.
	var tasks []func(context.Context) error
	for i := range p.env.Databases {
		db := &p.env.Databases[i]
		tasks = append(tasks, func(ctx context.Context) error { return p.deployDatabase(ctx, db) })
	}
	if err := p.runParallel(ctx, tasks); err != nil {
		return err
	}

	tasks = tasks[:0]
	for i := range p.env.Applications {
		app := &p.env.Applications[i]
		tasks = append(tasks, func(ctx context.Context) error { return p.deployApplication(ctx, app) })
	}
	for i := range p.env.Containers {
		c := &p.env.Containers[i]
		tasks = append(tasks, func(ctx context.Context) error { return p.deployContainer(ctx, c) })
	}
	for i := range p.env.Jobs {
		j := &p.env.Jobs[i]
		tasks = append(tasks, func(ctx context.Context) error { return p.deployJob(ctx, j) })
	}
	if err := p.runParallel(ctx, tasks); err != nil {
		return err
	}

	tasks = tasks[:0]
	for i := range p.env.Routers {
		r := &p.env.Routers[i]
		tasks = append(tasks, func(ctx context.Context) error { return p.deployRouter(ctx, r) })
	}
	if err := p.runParallel(ctx, tasks); err != nil {
		return err
	}

	tasks = tasks[:0]
	for i := range p.env.HelmCharts {
		hc := &p.env.HelmCharts[i]
		tasks = append(tasks, func(ctx context.Context) error { return p.deployHelmChart(ctx, hc) })
	}
	return p.runParallel(ctx, tasks)
}

// runParallel executes tasks bounded by the environment's MaxParallelism,
// collecting every failure.
func (p *Pipeline) runParallel(ctx context.Context, tasks []func(context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}
	parallelism := p.env.MaxParallelism
	if parallelism < 1 {
		parallelism = 1
	}

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var result *multierror.Error

	for _, task := range tasks {
		task := task
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := task(ctx); err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return result.ErrorOrNil()
}

// PauseEnvironment scales every workload to zero without touching releases
// or data.
func (p *Pipeline) PauseEnvironment(ctx context.Context) error {
	p.details = p.details.WithStage(events.NewEnvironmentStage(events.EnvironmentStepPause))
	p.logInfo(p.details.Transmitter, "pausing environment %s", p.env.Namespace)

	var result *multierror.Error
	scale := func(longID models.QoveryIdentifier, kubeName string) {
		if err := kubernetes.ScaleWorkloadsToZero(ctx, p.infra.Kube, p.env.Namespace, longID.String()); err != nil {
			result = multierror.Append(result, errors.NewFromError(
				p.details, errors.TagK8sServiceError,
				fmt.Sprintf("cannot pause service %s", kubeName), err, p.obf))
		}
	}
	for i := range p.env.Applications {
		scale(p.env.Applications[i].LongID, p.env.Applications[i].KubeName)
	}
	for i := range p.env.Containers {
		scale(p.env.Containers[i].LongID, p.env.Containers[i].KubeName)
	}
	for i := range p.env.Databases {
		if p.env.Databases[i].Mode == models.DatabaseModeContainer {
			scale(p.env.Databases[i].LongID, p.env.Databases[i].KubeName)
		}
	}
	return result.ErrorOrNil()
}

// DeleteEnvironment uninstalls every release then removes the namespace.
func (p *Pipeline) DeleteEnvironment(ctx context.Context) error {
	p.details = p.details.WithStage(events.NewEnvironmentStage(events.EnvironmentStepDelete))
	p.logInfo(p.details.Transmitter, "deleting environment %s", p.env.Namespace)

	releases, err := p.infra.Helm.ListReleases(p.env.Namespace, p.abort)
	if err != nil {
		return errors.NewFromError(p.details, errors.TagHelmError, "cannot list releases to delete", err, p.obf)
	}
	var result *multierror.Error
	for _, release := range releases {
		if err := p.infra.Helm.Uninstall(release, p.env.Namespace, p.abort); err != nil {
			result = multierror.Append(result, errors.NewFromError(
				p.details, errors.TagHelmError,
				fmt.Sprintf("cannot uninstall release %s", release), err, p.obf))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	if err := kubernetes.DeleteNamespace(ctx, p.infra.Kube, p.env.Namespace); err != nil {
		return errors.NewFromError(p.details, errors.TagK8sServiceError, "cannot delete environment namespace", err, p.obf)
	}
	return nil
}

// RestartEnvironment rolls every workload without changing its definition.
func (p *Pipeline) RestartEnvironment(ctx context.Context) error {
	p.details = p.details.WithStage(events.NewEnvironmentStage(events.EnvironmentStepRestart))
	p.logInfo(p.details.Transmitter, "restarting environment %s", p.env.Namespace)

	var result *multierror.Error
	restart := func(kubeName string) {
		if err := kubernetes.RestartDeployment(ctx, p.infra.Kube, p.env.Namespace, kubeName); err != nil {
			result = multierror.Append(result, errors.NewFromError(
				p.details, errors.TagCannotRestartService,
				fmt.Sprintf("cannot restart service %s", kubeName), err, p.obf))
		}
	}
	for i := range p.env.Applications {
		restart(p.env.Applications[i].KubeName)
	}
	for i := range p.env.Containers {
		restart(p.env.Containers[i].KubeName)
	}
	return result.ErrorOrNil()
}
