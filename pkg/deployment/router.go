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

	"github.com/qovery/engine-go/pkg/build"
	"github.com/qovery/engine-go/pkg/errors"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/helm"
	"github.com/qovery/engine-go/pkg/models"
)

func (p *Pipeline) deployRouter(ctx context.Context, r *models.Router) error {
	transmitter := events.NewServiceTransmitter(events.TransmitterKindRouter, r.LongID.String(), r.Name)

	switch r.Action {
	case models.ActionNothing, models.ActionPause:
		return nil
	case models.ActionDelete:
		return p.deleteService(transmitter, r.KubeName)
	}

	return p.helmDeploy(ctx, deployTarget{
		transmitter: transmitter,
		longID:      r.LongID,
		kubeName:    r.KubeName,
		chartName:   chartRouter,
		values:      routerValues(r),
		// Ingress objects become ready when the controller wires them; the
		// router has no pods of its own to wait for.
		waitReady: false,
	})
}

// deployHelmChart deploys a user-supplied chart. User charts bypass the
// override validator: their values are the user's own contract.
func (p *Pipeline) deployHelmChart(ctx context.Context, hc *models.HelmChart) error {
	transmitter := events.NewServiceTransmitter(events.TransmitterKindHelmChart, hc.LongID.String(), hc.Name)

	switch hc.Action {
	case models.ActionNothing, models.ActionPause:
		return nil
	case models.ActionDelete:
		return p.deleteService(transmitter, hc.KubeName)
	}

	return p.runStep(hc.LongID.String(), StepDeployment, func() error {
		if err := p.checkpoint(transmitter); err != nil {
			return err
		}

		path, extraArgs, err := p.resolveHelmChartSource(transmitter, hc)
		if err != nil {
			return err
		}

		chart := &helm.ChartInfo{
			Name:                      hc.KubeName,
			Namespace:                 p.env.Namespace,
			Path:                      path,
			ValuesFiles:               hc.ValuesFiles,
			Values:                    hc.SetValues,
			Atomic:                    true,
			Timeout:                   hc.Timeout,
			CreateNamespace:           false,
			AllowClusterWideResources: hc.AllowCluster,
			ExtraArgs:                 append(extraArgs, hc.Arguments...),
		}
		if _, err := p.infra.Helm.UpgradeInstall(chart, p.abort); err != nil {
			return p.engineError(transmitter, errors.TagHelmError,
				fmt.Sprintf("helm upgrade of chart %s failed", hc.Name), err)
		}
		return nil
	})
}

// resolveHelmChartSource turns the chart source into something the helm CLI
// can install: a cloned git tree or a repository reference.
func (p *Pipeline) resolveHelmChartSource(transmitter events.Transmitter, hc *models.HelmChart) (string, []string, error) {
	src := hc.ChartSource
	if src.GitURL != "" {
		cloneDir := filepath.Join(p.infra.Context.WorkspaceRoot, "helm", hc.LongID.Short())
		if err := os.RemoveAll(cloneDir); err != nil {
			return "", nil, p.engineError(transmitter, errors.TagGitError, "cannot clean helm clone directory", err)
		}
		if err := build.GitClone(src.GitURL, src.CommitID, cloneDir, nil, p.stderrSink(transmitter), p.abort); err != nil {
			return "", nil, p.engineError(transmitter, errors.TagGitError,
				fmt.Sprintf("cannot clone chart repository %s", src.GitURL), err)
		}
		return filepath.Join(cloneDir, src.RootPath), nil, nil
	}

	extraArgs := []string{"--repo", src.RepositoryURL}
	if src.ChartVersion != "" {
		extraArgs = append(extraArgs, "--version", src.ChartVersion)
	}
	if src.Skip {
		extraArgs = append(extraArgs, "--insecure-skip-tls-verify")
	}
	return src.ChartName, extraArgs, nil
}
