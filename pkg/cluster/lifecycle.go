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

package cluster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qovery/engine-go/pkg/cloudprovider/types"
	"github.com/qovery/engine-go/pkg/command"
	"github.com/qovery/engine-go/pkg/engine"
	"github.com/qovery/engine-go/pkg/errors"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/objectstorage"
	"github.com/qovery/engine-go/pkg/template"
	"github.com/qovery/engine-go/pkg/terraform"
)

const planFileName = "tf_plan"

// Manager drives one cluster through its lifecycle transitions.
type Manager struct {
	infra   *engine.InfraContext
	cluster *Cluster
	abort   *command.AbortHandle
	obf     *events.ObfuscationService
	details events.EventDetails

	// TasksRunning reports whether any deployment task is in flight for
	// this cluster; Pause refuses while one is.
	TasksRunning func() bool
}

// NewManager validates the cluster record and assembles a manager.
func NewManager(infra *engine.InfraContext, c *Cluster, abort *command.AbortHandle, tasksRunning func() bool) (*Manager, error) {
	if err := infra.Validate(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if tasksRunning == nil {
		tasksRunning = func() bool { return false }
	}
	details := events.NewEventDetails(
		string(c.Kind),
		infra.Context.OrganizationID.String(),
		c.ID.String(),
		infra.Context.ExecutionID,
		c.Region,
		events.NewInfrastructureStage(events.InfrastructureStepInstantiate),
		events.NewTransmitter(events.TransmitterKindCloudProvider),
	)
	if err := details.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		infra:        infra,
		cluster:      c,
		abort:        abort,
		obf:          events.NewObfuscationService(credentialSecrets(infra)),
		details:      details,
		TasksRunning: tasksRunning,
	}, nil
}

// credentialSecrets seeds the obfuscator with every credential value the
// provider exports; terraform output must never leak them.
func credentialSecrets(infra *engine.InfraContext) []string {
	var secrets []string
	for _, kv := range infra.Provider.CredentialEnvironmentVariables("") {
		secrets = append(secrets, kv[1])
	}
	return secrets
}

func (m *Manager) stage(step events.InfrastructureStep) events.EventDetails {
	return m.details.WithStage(events.NewInfrastructureStage(step))
}

func (m *Manager) logInfo(step events.InfrastructureStep, format string, args ...interface{}) {
	m.infra.Logger.Emit(events.LevelInfo, m.stage(step),
		events.NewEventMessage(fmt.Sprintf(format, args...), m.obf))
}

func (m *Manager) sink(step events.InfrastructureStep) func(string) {
	return func(line string) { m.logInfo(step, "%s", line) }
}

// terraformRunner stages the provider's bootstrap templates into the
// cluster workspace and returns a runner with variables written.
func (m *Manager) terraformRunner(step events.InfrastructureStep, extraVars map[string]interface{}) (*terraform.Terraform, error) {
	workDir := m.infra.Context.TerraformDir()
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, err
	}
	templateDir := filepath.Join(m.infra.Context.LibRoot, string(m.cluster.Kind), "bootstrap")
	if err := template.StageTree(templateDir, workDir, m.templateData()); err != nil {
		return nil, fmt.Errorf("cannot stage bootstrap templates: %w", err)
	}

	tf := terraform.New(workDir,
		m.infra.Provider.CredentialEnvironmentVariables(m.cluster.Region),
		m.sink(step), m.sink(step))

	vars := map[string]interface{}{
		"cluster_id":                         m.cluster.ID.String(),
		"cluster_name":                       m.cluster.KubeName(),
		"organization_id":                    m.infra.Context.OrganizationID.String(),
		"region":                             m.cluster.Region,
		"kubernetes_version":                 m.cluster.Version,
		"vpc_mode":                           string(m.cluster.VPCMode),
		"vpc_cidr":                           m.cluster.VPCCidr,
		"subnet_cidrs":                       m.cluster.SubnetCIDRs,
		"cloudwatch_eks_logs_retention_days": m.cluster.AdvancedSettings.CloudwatchEksLogsRetentionDays,
	}
	if m.cluster.UsesKarpenter() {
		vars["karpenter_enabled"] = true
		vars["karpenter_spot_enabled"] = m.cluster.Karpenter.SpotEnabled
		vars["karpenter_disk_size_in_gib"] = m.cluster.Karpenter.MaxNodeDiskSizeInGiB
	} else {
		groups := make([]map[string]interface{}, 0, len(m.cluster.NodeGroups))
		for _, ng := range m.cluster.NodeGroups {
			groups = append(groups, map[string]interface{}{
				"name":             ng.Name,
				"instance_type":    ng.InstanceType,
				"min_nodes":        ng.MinNodes,
				"max_nodes":        ng.MaxNodes,
				"disk_size_in_gib": ng.DiskSizeInGiB,
			})
		}
		vars["node_groups"] = groups
	}
	for k, v := range extraVars {
		vars[k] = v
	}
	if err := tf.WriteVarFile("qovery.auto", vars); err != nil {
		return nil, fmt.Errorf("cannot write terraform variables: %w", err)
	}
	return tf, nil
}

func (m *Manager) terraformError(step events.InfrastructureStep, rawOutput string, underlying error) *errors.EngineError {
	extracted := terraform.ExtractErrors(rawOutput)
	if len(extracted) == 0 && underlying != nil {
		extracted = []string{underlying.Error()}
	}
	return errors.NewTerraformError(m.stage(step), terraform.ClassifyError(rawOutput),
		strings.Join(extracted, "\n"), m.obf)
}

// validateAPIInput rejects caller mistakes before any cloud call.
func (m *Manager) validateAPIInput(ctx context.Context) error {
	details := m.stage(events.InfrastructureStepValidateAPIInput)

	if m.cluster.Kind == types.KindAWS &&
		!IsValidCloudwatchRetention(m.cluster.AdvancedSettings.CloudwatchEksLogsRetentionDays) {
		return errors.New(details, errors.TagAwsWrongCloudwatchRetentionConfig,
			events.NewEventMessage(fmt.Sprintf(
				"cloudwatch retention of %d days is not accepted by AWS",
				m.cluster.AdvancedSettings.CloudwatchEksLogsRetentionDays), nil))
	}

	for _, ng := range m.cluster.NodeGroups {
		if err := m.infra.Provider.ValidateInstanceType(ctx, m.cluster.Region, ng.InstanceType); err != nil {
			return errors.NewFromError(details, errors.TagUnsupportedInstanceType,
				fmt.Sprintf("instance type %s is not available in %s", ng.InstanceType, m.cluster.Region), err, m.obf)
		}
	}
	return nil
}

// Create bootstraps the cluster: terraform control plane, kubeconfig
// retrieval and the ordered chart waves.
func (m *Manager) Create(ctx context.Context) error {
	step := events.InfrastructureStepCreate
	m.logInfo(step, "creating cluster %s (%s %s)", m.cluster.Name, m.cluster.Kind, m.cluster.Version)

	if err := m.validateAPIInput(ctx); err != nil {
		return err
	}
	if err := m.infra.Provider.Login(ctx); err != nil {
		return errors.NewFromError(m.stage(step), errors.TagCannotGetCluster, "cloud login failed", err, m.obf)
	}
	if err := m.infra.Provider.ValidateCredentials(ctx, m.cluster.Region); err != nil {
		return errors.NewFromError(m.stage(step), errors.TagCannotGetCluster, "cloud credentials rejected", err, m.obf)
	}

	tf, err := m.terraformRunner(step, nil)
	if err != nil {
		return errors.NewFromError(m.stage(step), errors.TagTerraformError, "cannot prepare terraform workspace", err, m.obf)
	}
	if out, err := tf.Init(m.abort); err != nil {
		return m.terraformError(step, out, err)
	}
	if out, err := tf.Plan(planFileName, m.abort); err != nil {
		return m.terraformError(step, out, err)
	}
	if out, err := tf.Apply(planFileName, m.abort); err != nil {
		return m.terraformError(step, out, err)
	}

	if err := m.fetchAndStoreKubeconfig(ctx, step); err != nil {
		return err
	}
	return m.deployChartWaves(step)
}

// fetchAndStoreKubeconfig materializes the kubeconfig in the workspace for
// external tools and uploads it to its canonical object storage location.
func (m *Manager) fetchAndStoreKubeconfig(ctx context.Context, step events.InfrastructureStep) error {
	kubeconfig, err := m.infra.Provider.FetchKubeconfig(ctx, m.cluster.KubeName(), m.cluster.Region)
	if err != nil {
		return errors.NewFromError(m.stage(step), errors.TagCannotFetchKubeconfig,
			"cannot retrieve cluster kubeconfig", err, m.obf)
	}
	if err := os.WriteFile(m.infra.Context.KubeconfigPath(), kubeconfig, 0o600); err != nil {
		return errors.NewFromError(m.stage(step), errors.TagCannotFetchKubeconfig,
			"cannot write kubeconfig to workspace", err, m.obf)
	}
	if m.infra.ObjectStorage != nil {
		if err := objectstorage.PutKubeconfig(ctx, m.infra.ObjectStorage, m.cluster.ID.String(), kubeconfig); err != nil {
			return errors.NewFromError(m.stage(step), errors.TagObjectStorageError,
				"cannot upload kubeconfig to object storage", err, m.obf)
		}
	}
	return nil
}

// deployChartWaves installs the in-cluster stack wave by wave.
func (m *Manager) deployChartWaves(step events.InfrastructureStep) error {
	for _, wave := range BootstrapChartWaves(m.infra, m.cluster) {
		m.logInfo(step, "deploying chart wave %s (%d charts)", wave.Name, len(wave.Charts))
		for i := range wave.Charts {
			chart := wave.Charts[i]
			if _, err := m.infra.Helm.UpgradeInstall(&chart, m.abort); err != nil {
				return errors.NewFromError(m.stage(step), errors.TagHelmError,
					fmt.Sprintf("chart %s of wave %s failed", chart.Name, wave.Name), err, m.obf)
			}
		}
	}
	return nil
}

// Pause scales node groups to zero while the control plane keeps running.
func (m *Manager) Pause(ctx context.Context) error {
	step := events.InfrastructureStepPause
	details := m.stage(step)

	if !m.infra.Provider.SupportsPause() {
		return errors.New(details, errors.TagInvalidEngineAPIInput,
			events.NewEventMessage(fmt.Sprintf("%s clusters cannot be paused", m.cluster.Kind), nil))
	}
	if m.TasksRunning() {
		return errors.New(details, errors.TagCannotPauseClusterTasksAreRunning,
			events.NewEventMessage("deployment tasks are running for this cluster, retry once they complete", nil))
	}

	m.logInfo(step, "pausing cluster %s", m.cluster.Name)
	tf, err := m.terraformRunner(step, map[string]interface{}{"node_groups_paused": true})
	if err != nil {
		return errors.NewFromError(details, errors.TagTerraformError, "cannot prepare terraform workspace", err, m.obf)
	}
	if out, err := tf.Init(m.abort); err != nil {
		return m.terraformError(step, out, err)
	}
	if out, err := tf.Apply("", m.abort); err != nil {
		return m.terraformError(step, out, err)
	}
	return nil
}

// Resume restores the node groups of a paused cluster.
func (m *Manager) Resume(ctx context.Context) error {
	step := events.InfrastructureStepResume
	m.logInfo(step, "resuming cluster %s", m.cluster.Name)

	tf, err := m.terraformRunner(step, map[string]interface{}{"node_groups_paused": false})
	if err != nil {
		return errors.NewFromError(m.stage(step), errors.TagTerraformError, "cannot prepare terraform workspace", err, m.obf)
	}
	if out, err := tf.Init(m.abort); err != nil {
		return m.terraformError(step, out, err)
	}
	if out, err := tf.Apply("", m.abort); err != nil {
		return m.terraformError(step, out, err)
	}
	return nil
}

// Upgrade moves the cluster to a new Kubernetes version. The plan is
// screened for destructive changes on protected resources; apply never runs
// when one is found.
func (m *Manager) Upgrade(ctx context.Context, targetVersion string) error {
	step := events.InfrastructureStepUpgrade
	details := m.stage(step)

	m.cluster.Version = targetVersion
	version, err := m.cluster.ParsedVersion()
	if err != nil {
		return errors.NewFromError(details, errors.TagUnsupportedVersion,
			fmt.Sprintf("invalid target version %q", targetVersion), err, m.obf)
	}
	addons, err := ResolveAddonVersions(version, AddonOverrides{})
	if err != nil {
		return errors.NewFromError(details, errors.TagUnsupportedVersion,
			fmt.Sprintf("kubernetes %s is not supported", targetVersion), err, m.obf)
	}
	m.logInfo(step, "upgrading cluster %s to kubernetes %s", m.cluster.Name, targetVersion)

	tf, err := m.terraformRunner(step, map[string]interface{}{
		"addon_vpc_cni_version":    addons.VPCCNI,
		"addon_kube_proxy_version": addons.KubeProxy,
		"addon_coredns_version":    addons.CoreDNS,
		"addon_ebs_csi_version":    addons.EBSCSI,
	})
	if err != nil {
		return errors.NewFromError(details, errors.TagTerraformError, "cannot prepare terraform workspace", err, m.obf)
	}
	if out, err := tf.Init(m.abort); err != nil {
		return m.terraformError(step, out, err)
	}
	planOutput, err := tf.Plan(planFileName, m.abort)
	if err != nil {
		return m.terraformError(step, planOutput, err)
	}
	if err := terraform.ValidateNoDestructiveChanges(planOutput, m.infra.Provider.ProtectedTerraformResources()); err != nil {
		return errors.NewFromError(details, errors.TagTerraformError,
			"upgrade plan would destroy a protected resource, aborting before apply", err, m.obf)
	}
	if out, err := tf.Apply(planFileName, m.abort); err != nil {
		return m.terraformError(step, out, err)
	}
	return nil
}

// Delete tears the cluster down. A non-empty terraform state is refused
// without force: losing state while resources exist means leaking them.
func (m *Manager) Delete(ctx context.Context, force bool) error {
	step := events.InfrastructureStepDelete
	details := m.stage(step)
	m.logInfo(step, "deleting cluster %s (force=%t)", m.cluster.Name, force)

	tf, err := m.terraformRunner(step, nil)
	if err != nil {
		return errors.NewFromError(details, errors.TagTerraformError, "cannot prepare terraform workspace", err, m.obf)
	}
	if out, err := tf.Init(m.abort); err != nil {
		return m.terraformError(step, out, err)
	}

	resources, err := tf.StateList(m.abort)
	if err != nil {
		return errors.NewFromError(details, errors.TagTerraformError, "cannot inspect terraform state", err, m.obf)
	}
	if len(resources) > 0 && !force {
		return errors.New(details, errors.TagCannotDeleteClusterNonEmptyState,
			events.NewEventMessage(fmt.Sprintf(
				"cluster state still holds %d resources, pass force to delete anyway", len(resources)), nil))
	}

	if out, err := tf.Destroy(m.abort); err != nil {
		return m.terraformError(step, out, err)
	}
	if m.infra.ObjectStorage != nil {
		if err := m.infra.ObjectStorage.DeleteBucket(ctx,
			objectstorage.KubeconfigBucketName(m.cluster.ID.String()), true); err != nil {
			return errors.NewFromError(details, errors.TagObjectStorageError,
				"cannot delete kubeconfig bucket", err, m.obf)
		}
	}
	return nil
}

// templateData is the context available to .tmpl files in the bootstrap
// tree. Values that templates inline directly; everything else travels
// through the terraform var file.
func (m *Manager) templateData() map[string]interface{} {
	return map[string]interface{}{
		"ClusterID":      m.cluster.ID.String(),
		"ClusterName":    m.cluster.KubeName(),
		"OrganizationID": m.infra.Context.OrganizationID.String(),
		"Region":         m.cluster.Region,
		"Version":        m.cluster.Version,
		"VPCMode":        string(m.cluster.VPCMode),
		"SubnetCIDRs":    m.cluster.SubnetCIDRs,
	}
}
