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
	"strings"

	"github.com/sethvargo/go-password/password"

	"github.com/qovery/engine-go/pkg/errors"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/models"
	"github.com/qovery/engine-go/pkg/template"
	"github.com/qovery/engine-go/pkg/terraform"
)

func (p *Pipeline) deployDatabase(ctx context.Context, db *models.Database) error {
	transmitter := events.NewDatabaseTransmitter(db.LongID.String(), string(db.Type), db.Name)

	if db.Action == models.ActionCreate {
		if err := p.ensureDatabasePassword(transmitter, db); err != nil {
			return err
		}
	}

	switch db.Action {
	case models.ActionNothing:
		return nil
	case models.ActionPause:
		if db.Mode == models.DatabaseModeContainer {
			return p.pauseService(ctx, transmitter, db.LongID, db.KubeName)
		}
		// Managed databases cannot scale to zero; pausing them is a no-op.
		return nil
	case models.ActionDelete:
		if db.Mode == models.DatabaseModeContainer {
			return p.deleteService(transmitter, db.KubeName)
		}
		return p.destroyManagedDatabase(transmitter, db)
	case models.ActionRestart:
		if db.Mode == models.DatabaseModeContainer {
			return p.restartService(ctx, transmitter, db.KubeName)
		}
		return nil
	}

	if db.Mode == models.DatabaseModeManaged {
		return p.deployManagedDatabase(transmitter, db)
	}

	return p.helmDeploy(ctx, deployTarget{
		transmitter: transmitter,
		longID:      db.LongID,
		kubeName:    db.KubeName,
		chartName:   databaseChartName(db.Type),
		values:      databaseValues(db),
		waitReady:   true,
	})
}

func databaseChartName(t models.DatabaseType) string {
	return fmt.Sprintf("%s-%s", chartDatabase, strings.ToLower(string(t)))
}

// ensureDatabasePassword generates a credential when the control plane sent
// none. Letters and digits only: the value ends up in connection strings.
func (p *Pipeline) ensureDatabasePassword(transmitter events.Transmitter, db *models.Database) error {
	if db.Password != "" {
		return nil
	}
	generated, err := password.Generate(32, 10, 0, false, true)
	if err != nil {
		return p.engineError(transmitter, errors.TagDatabaseError, "cannot generate database password", err)
	}
	db.Password = generated
	p.obf.AddSecret(generated)
	return nil
}

// managedDatabaseTerraform returns a runner rooted in the per-database
// terraform workspace, with the provider templates copied in.
func (p *Pipeline) managedDatabaseTerraform(transmitter events.Transmitter, db *models.Database) (*terraform.Terraform, error) {
	workDir := filepath.Join(p.infra.Context.WorkspaceRoot, "terraform", "databases", db.LongID.Short())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, err
	}
	templateDir := filepath.Join(p.infra.Context.LibRoot,
		string(p.infra.Provider.Kind()), "services", strings.ToLower(string(db.Type)))
	templateData := map[string]interface{}{
		"DatabaseID":   db.LongID.String(),
		"DatabaseName": db.KubeName,
		"ClusterID":    p.infra.Context.ClusterID.String(),
		"Region":       p.infra.Region,
	}
	if err := template.StageTree(templateDir, workDir, templateData); err != nil {
		return nil, fmt.Errorf("cannot stage terraform templates for %s: %w", db.Name, err)
	}

	tf := terraform.New(workDir,
		p.infra.Provider.CredentialEnvironmentVariables(p.infra.Region),
		p.stderrSink(transmitter), p.stderrSink(transmitter))
	if err := tf.WriteVarFile("qovery.auto", map[string]interface{}{
		"database_id":         db.LongID.String(),
		"database_name":       db.KubeName,
		"database_version":    db.Version,
		"database_port":       db.Port,
		"database_username":   db.Username,
		"database_password":   db.Password,
		"disk_size_in_gib":    db.DiskSizeInGiB,
		"instance_type":       db.InstanceType,
		"publicly_accessible": db.PubliclyAccessible,
		"high_availability":   db.HighAvailability,
		"backups_enabled":     db.BackupsEnabled,
		"cluster_id":          p.infra.Context.ClusterID.String(),
		"region":              p.infra.Region,
	}); err != nil {
		return nil, fmt.Errorf("cannot write terraform variables for %s: %w", db.Name, err)
	}
	return tf, nil
}

// deployManagedDatabase provisions the cloud-managed instance through
// terraform inside the Deployment step.
func (p *Pipeline) deployManagedDatabase(transmitter events.Transmitter, db *models.Database) error {
	return p.runStep(db.LongID.String(), StepDeployment, func() error {
		if err := p.checkpoint(transmitter); err != nil {
			return err
		}
		tf, err := p.managedDatabaseTerraform(transmitter, db)
		if err != nil {
			return p.engineError(transmitter, errors.TagDatabaseError, "cannot prepare managed database workspace", err)
		}
		if out, err := tf.Init(p.abort); err != nil {
			return p.terraformError(transmitter, "terraform init failed", out, err)
		}
		planFile := "tf_plan"
		if out, err := tf.Plan(planFile, p.abort); err != nil {
			return p.terraformError(transmitter, "terraform plan failed", out, err)
		}
		if out, err := tf.Apply(planFile, p.abort); err != nil {
			return p.terraformError(transmitter, "terraform apply failed", out, err)
		}
		return nil
	})
}

func (p *Pipeline) destroyManagedDatabase(transmitter events.Transmitter, db *models.Database) error {
	return p.runStep(db.LongID.String(), StepDeployment, func() error {
		if err := p.checkpoint(transmitter); err != nil {
			return err
		}
		tf, err := p.managedDatabaseTerraform(transmitter, db)
		if err != nil {
			return p.engineError(transmitter, errors.TagDatabaseError, "cannot prepare managed database workspace", err)
		}
		if out, err := tf.Init(p.abort); err != nil {
			return p.terraformError(transmitter, "terraform init failed", out, err)
		}
		if out, err := tf.Destroy(p.abort); err != nil {
			return p.terraformError(transmitter, "terraform destroy failed", out, err)
		}
		return nil
	})
}

// terraformError classifies raw terraform output and wraps it with both a
// safe and an audit form. The extracted Error: blocks become the message;
// the full raw output stays in the audit channel through the obfuscator.
func (p *Pipeline) terraformError(transmitter events.Transmitter, message, rawOutput string, underlying error) *errors.EngineError {
	extracted := terraform.ExtractErrors(rawOutput)
	if len(extracted) == 0 && underlying != nil {
		extracted = []string{underlying.Error()}
	}
	return errors.NewTerraformError(
		p.details.WithTransmitter(transmitter),
		terraform.ClassifyError(rawOutput),
		fmt.Sprintf("%s: %s", message, strings.Join(extracted, "\n")),
		p.obf,
	)
}
