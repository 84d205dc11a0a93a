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
	"os"
	"path/filepath"
	"time"

	"github.com/qovery/engine-go/pkg/build"
	"github.com/qovery/engine-go/pkg/errors"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/helm"
	"github.com/qovery/engine-go/pkg/kubernetes"
	"github.com/qovery/engine-go/pkg/models"
	"github.com/qovery/engine-go/pkg/registry"
)

// serviceConvergenceTimeout caps how long one service may take to reach
// Ready after its helm upgrade returned.
const serviceConvergenceTimeout = 10 * time.Minute

func (p *Pipeline) engineError(transmitter events.Transmitter, tag errors.Tag, message string, underlying error) *errors.EngineError {
	return errors.NewFromError(p.details.WithTransmitter(transmitter), tag, message, underlying, p.obf)
}

// runStep measures fn under the given step name and maps its outcome to a
// step status.
func (p *Pipeline) runStep(serviceLongID string, step StepName, fn func() error) error {
	handle := p.recorder.StartStep(serviceLongID, step)
	err := fn()
	switch {
	case err == nil:
		handle.Stop(StepStatusSuccess)
	case errors.IsTag(err, errors.TagCancelled):
		handle.Stop(StepStatusCancelled)
	default:
		handle.Stop(StepStatusError)
	}
	return err
}

// createRepository idempotently ensures the target repository, tagged for
// the TTL cleaner.
func (p *Pipeline) createRepository(ctx context.Context, transmitter events.Transmitter, serviceLongID, repoName string) (registry.RepositoryInfo, error) {
	var info registry.RepositoryInfo
	err := p.runStep(serviceLongID, StepRegistryCreateRepository, func() error {
		if err := p.checkpoint(transmitter); err != nil {
			return err
		}
		tags := registry.RepositoryTags{
			CreationDate:  time.Now(),
			TTL:           time.Duration(p.infra.Context.Metadata.ResourceExpirationInSeconds) * time.Second,
			EnvironmentID: p.env.LongID.String(),
			ProjectID:     p.env.ProjectLongID.String(),
			ClusterID:     p.infra.Context.ClusterID.String(),
		}
		var err error
		info, err = p.infra.Registry.CreateRepository(ctx, repoName, tags)
		if err != nil {
			return p.engineError(transmitter, errors.TagContainerRegistryError,
				fmt.Sprintf("cannot create repository %s", repoName), err)
		}
		return nil
	})
	return info, err
}

func (p *Pipeline) deployApplication(ctx context.Context, app *models.Application) error {
	transmitter := events.NewServiceTransmitter(events.TransmitterKindApplication, app.LongID.String(), app.Name)

	switch app.Action {
	case models.ActionNothing:
		return nil
	case models.ActionPause:
		return p.pauseService(ctx, transmitter, app.LongID, app.KubeName)
	case models.ActionDelete:
		return p.deleteService(transmitter, app.KubeName)
	case models.ActionRestart:
		return p.restartService(ctx, transmitter, app.KubeName)
	}

	image, tag, err := p.buildApplicationImage(ctx, transmitter, app)
	if err != nil {
		return err
	}

	values := commonServiceValues(&app.ServiceCommon, image, tag)
	return p.helmDeploy(ctx, deployTarget{
		transmitter:  transmitter,
		longID:       app.LongID,
		kubeName:     app.KubeName,
		chartName:    chartApplication,
		values:       values,
		mountedFiles: app.MountedFiles,
		storages:     app.Storages,
		waitReady:    true,
	})
}

// buildApplicationImage runs ProvisionBuilder, GitClone and Build, and
// returns the pushed image reference.
func (p *Pipeline) buildApplicationImage(ctx context.Context, transmitter events.Transmitter, app *models.Application) (string, string, error) {
	serviceLongID := app.LongID.String()

	err := p.runStep(serviceLongID, StepProvisionBuilder, func() error {
		if p.infra.Docker == nil {
			return p.engineError(transmitter, errors.TagDockerError, "no docker build environment available", nil)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}

	repoName := app.LongID.Short()
	repo, err := p.createRepository(ctx, transmitter, serviceLongID, repoName)
	if err != nil {
		return "", "", err
	}
	image := fmt.Sprintf("%s/%s", p.infra.Registry.URL(), repo.Name)
	tag := app.CommitID

	if p.infra.Registry.ImageExists(ctx, repo.Name, tag) {
		p.logInfo(transmitter, "image %s:%s already built, skipping build", image, tag)
		return image, tag, nil
	}

	cloneDir := filepath.Join(p.infra.Context.WorkspaceRoot, "build", app.LongID.Short())
	err = p.runStep(serviceLongID, StepGitClone, func() error {
		if err := p.checkpoint(transmitter); err != nil {
			return err
		}
		if err := os.RemoveAll(cloneDir); err != nil {
			return p.engineError(transmitter, errors.TagGitError, "cannot clean build directory", err)
		}
		p.logInfo(transmitter, "cloning %s at %s", app.GitURL, app.CommitID)
		if err := build.GitClone(app.GitURL, app.CommitID, cloneDir, app.GitCredentials, p.stderrSink(transmitter), p.abort); err != nil {
			return p.engineError(transmitter, errors.TagGitError,
				fmt.Sprintf("cannot clone %s at commit %s", app.GitURL, app.CommitID), err)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}

	if err := p.runStep(serviceLongID, StepBuildQueueing, func() error {
		return p.checkpoint(transmitter)
	}); err != nil {
		return "", "", err
	}

	err = p.runStep(serviceLongID, StepBuild, func() error {
		contextDir := filepath.Join(cloneDir, app.BuildContext)
		dockerfile, err := os.ReadFile(filepath.Join(contextDir, app.DockerfilePath))
		if err != nil {
			return p.engineError(transmitter, errors.TagBuildError,
				fmt.Sprintf("cannot read Dockerfile %s", app.DockerfilePath), err)
		}
		env := make([][2]string, 0, len(app.EnvironmentVariables))
		for _, ev := range app.EnvironmentVariables {
			env = append(env, [2]string{ev.Key, ev.Value})
		}
		buildArgs := build.MatchUsedEnvVarArgs(env, string(dockerfile))

		login, password := p.infra.Registry.Credentials()
		if err := p.infra.Docker.Login(p.infra.Registry.URL(), login, password); err != nil {
			return p.engineError(transmitter, errors.TagDockerError, "cannot authenticate against registry", err)
		}
		p.logInfo(transmitter, "building image %s:%s (%d build args)", image, tag, len(buildArgs))
		if err := p.infra.Docker.Build(build.BuildRequest{
			ImageName:      image,
			Tag:            tag,
			DockerfilePath: app.DockerfilePath,
			ContextDir:     contextDir,
			BuildArgs:      buildArgs,
		}, p.abort); err != nil {
			return p.engineError(transmitter, errors.TagBuildError,
				fmt.Sprintf("cannot build image %s:%s", image, tag), err)
		}
		if err := p.infra.Docker.Push(image, tag, p.abort); err != nil {
			return p.engineError(transmitter, errors.TagDockerError,
				fmt.Sprintf("cannot push image %s:%s", image, tag), err)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return image, tag, nil
}

func (p *Pipeline) deployContainer(ctx context.Context, c *models.Container) error {
	transmitter := events.NewServiceTransmitter(events.TransmitterKindContainer, c.LongID.String(), c.Name)

	switch c.Action {
	case models.ActionNothing:
		return nil
	case models.ActionPause:
		return p.pauseService(ctx, transmitter, c.LongID, c.KubeName)
	case models.ActionDelete:
		return p.deleteService(transmitter, c.KubeName)
	case models.ActionRestart:
		return p.restartService(ctx, transmitter, c.KubeName)
	}

	image, tag, err := p.mirrorImage(ctx, transmitter, c.LongID, &c.Registry, c.Image, c.Tag)
	if err != nil {
		return err
	}

	values := commonServiceValues(&c.ServiceCommon, image, tag)
	return p.helmDeploy(ctx, deployTarget{
		transmitter:  transmitter,
		longID:       c.LongID,
		kubeName:     c.KubeName,
		chartName:    chartContainer,
		values:       values,
		mountedFiles: c.MountedFiles,
		storages:     c.Storages,
		waitReady:    true,
	})
}

// mirrorImage copies the source image into the cluster-attached registry so
// deployments survive source-registry outages and rate limits.
func (p *Pipeline) mirrorImage(ctx context.Context, transmitter events.Transmitter, longID models.QoveryIdentifier, source *models.ContainerSource, sourceImage, tag string) (string, string, error) {
	repoName := longID.Short()
	repo, err := p.createRepository(ctx, transmitter, longID.String(), repoName)
	if err != nil {
		return "", "", err
	}
	mirrored := fmt.Sprintf("%s/%s", p.infra.Registry.URL(), repo.Name)

	err = p.runStep(longID.String(), StepMirrorImage, func() error {
		if err := p.checkpoint(transmitter); err != nil {
			return err
		}
		if p.infra.Registry.ImageExists(ctx, repo.Name, tag) {
			p.logInfo(transmitter, "image %s:%s already mirrored, skipping", mirrored, tag)
			return nil
		}
		login, password := p.infra.Registry.Credentials()
		p.logInfo(transmitter, "mirroring %s:%s to %s:%s", sourceImage, tag, mirrored, tag)
		err := p.infra.Skopeo.Copy(
			fmt.Sprintf("%s:%s", sourceImage, tag),
			fmt.Sprintf("%s:%s", mirrored, tag),
			registry.RegistryAuth{Login: source.Login, Password: source.Password},
			registry.RegistryAuth{Login: login, Password: password},
			true,
			p.abort,
		)
		if err != nil {
			return p.engineError(transmitter, errors.TagContainerRegistryError,
				fmt.Sprintf("cannot mirror image %s:%s", sourceImage, tag), err)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return mirrored, tag, nil
}

// deployTarget bundles what helmDeploy needs for one service.
type deployTarget struct {
	transmitter  events.Transmitter
	longID       models.QoveryIdentifier
	kubeName     string
	chartName    string
	values       [][2]string
	mountedFiles []models.MountedFile
	storages     []models.Storage
	timeout      time.Duration
	waitReady    bool
}

// helmDeploy runs the Deployment step: validate overrides, materialize
// mounted files, upgrade the release under a progress monitor, apply the
// storage-growth protocol, and wait for convergence.
func (p *Pipeline) helmDeploy(ctx context.Context, target deployTarget) error {
	serviceLongID := target.longID.String()

	if err := p.runStep(serviceLongID, StepDeploymentQueueing, func() error {
		return p.checkpoint(target.transmitter)
	}); err != nil {
		return err
	}

	return p.runStep(serviceLongID, StepDeployment, func() error {
		staticValues := chartValuesFile(p.infra.Context.LibRoot, target.chartName)
		if err := helm.ValidateOverrides(staticValues, target.values); err != nil {
			return p.engineError(target.transmitter, errors.TagHelmError, "chart override validation failed", err)
		}

		for _, mf := range target.mountedFiles {
			secretName := mountedFileSecretName(target.longID.Short(), mf.ID)
			if err := kubernetes.UpsertMountedFileSecret(ctx, p.infra.Kube, p.env.Namespace, secretName, mf, map[string]string{
				kubernetes.AppLabelKey: serviceLongID,
			}); err != nil {
				return p.engineError(target.transmitter, errors.TagK8sServiceError,
					fmt.Sprintf("cannot materialize mounted file %s", mf.ID), err)
			}
		}

		chart := &helm.ChartInfo{
			Name:        target.kubeName,
			Namespace:   p.env.Namespace,
			Path:        chartPath(p.infra.Context.LibRoot, target.chartName),
			ValuesFiles: []string{staticValues},
			Values:      target.values,
			Atomic:      true,
			Timeout:     target.timeout,
		}

		observer := kubernetes.NewObserver(p.infra.Kube, p.env.Namespace)
		monitor := kubernetes.NewDeploymentMonitor(observer, serviceLongID, func(report string) {
			p.logInfo(target.transmitter, "%s", report)
		})
		monitor.Start(ctx)
		defer monitor.Stop()

		if _, err := p.infra.Helm.UpgradeInstall(chart, p.abort); err != nil {
			return p.engineError(target.transmitter, errors.TagHelmError,
				fmt.Sprintf("helm upgrade of %s failed", target.kubeName), err)
		}

		if err := p.growStorages(ctx, target, chart); err != nil {
			return err
		}

		if target.waitReady {
			waitCtx, cancel := context.WithTimeout(ctx, serviceConvergenceTimeout)
			defer cancel()
			if err := observer.WaitUntilServiceReady(waitCtx, serviceLongID); err != nil {
				return p.engineError(target.transmitter, errors.TagK8sServiceError,
					fmt.Sprintf("service %s did not become ready", target.kubeName), err)
			}
		}
		return nil
	})
}

// growStorages applies the grow-only resize protocol: patch undersized PVCs
// then re-run the upgrade so the chart and the claims agree.
func (p *Pipeline) growStorages(ctx context.Context, target deployTarget, chart *helm.ChartInfo) error {
	resized := false
	for _, st := range target.storages {
		invalid, err := kubernetes.FindInvalidPVCs(ctx, p.infra.Kube, p.env.Namespace, target.longID.String(), st.SizeInGiB)
		if err != nil {
			if _, shrink := err.(*kubernetes.ShrinkNotAllowedError); shrink {
				return p.engineError(target.transmitter, errors.TagStorageShrinkNotAllowed, "storage cannot shrink", err)
			}
			return p.engineError(target.transmitter, errors.TagK8sServiceError, "cannot inspect PVCs", err)
		}
		for _, pvc := range invalid {
			p.logInfo(target.transmitter, "growing PVC %s from %dGi to %dGi", pvc.Name, pvc.CurrentSizeGi, pvc.DesiredSizeGi)
			if err := kubernetes.GrowPVC(ctx, p.infra.Kube, p.env.Namespace, pvc); err != nil {
				return p.engineError(target.transmitter, errors.TagK8sServiceError, "cannot grow PVC", err)
			}
			resized = true
		}
	}
	if resized {
		if _, err := p.infra.Helm.UpgradeInstall(chart, p.abort); err != nil {
			return p.engineError(target.transmitter, errors.TagHelmError, "helm upgrade after storage resize failed", err)
		}
	}
	return nil
}

func (p *Pipeline) pauseService(ctx context.Context, transmitter events.Transmitter, longID models.QoveryIdentifier, kubeName string) error {
	if err := kubernetes.ScaleWorkloadsToZero(ctx, p.infra.Kube, p.env.Namespace, longID.String()); err != nil {
		return p.engineError(transmitter, errors.TagK8sServiceError,
			fmt.Sprintf("cannot pause service %s", kubeName), err)
	}
	return nil
}

func (p *Pipeline) deleteService(transmitter events.Transmitter, kubeName string) error {
	if err := p.infra.Helm.Uninstall(kubeName, p.env.Namespace, p.abort); err != nil {
		return p.engineError(transmitter, errors.TagHelmError,
			fmt.Sprintf("cannot uninstall service %s", kubeName), err)
	}
	return nil
}

func (p *Pipeline) restartService(ctx context.Context, transmitter events.Transmitter, kubeName string) error {
	if err := kubernetes.RestartDeployment(ctx, p.infra.Kube, p.env.Namespace, kubeName); err != nil {
		return p.engineError(transmitter, errors.TagCannotRestartService,
			fmt.Sprintf("cannot restart service %s", kubeName), err)
	}
	return nil
}

// stderrSink forwards tool output lines as obfuscated info events.
func (p *Pipeline) stderrSink(transmitter events.Transmitter) func(string) {
	return func(line string) {
		p.logInfo(transmitter, "%s", line)
	}
}
