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
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/go-test/deep"

	"github.com/qovery/engine-go/pkg/build"
	"github.com/qovery/engine-go/pkg/cloudprovider/provider/onpremise"
	"github.com/qovery/engine-go/pkg/command"
	"github.com/qovery/engine-go/pkg/engine"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/models"
	"github.com/qovery/engine-go/pkg/registry"
)

type fakeRegistry struct {
	created []string
}

func (f *fakeRegistry) Name() string                                     { return "fake" }
func (f *fakeRegistry) URL() string                                      { return "registry.local" }
func (f *fakeRegistry) Credentials() (string, string)                    { return "login", "secret" }
func (f *fakeRegistry) DeleteRepository(context.Context, string) error   { return nil }
func (f *fakeRegistry) ImageExists(context.Context, string, string) bool { return false }

func (f *fakeRegistry) CreateRepository(_ context.Context, name string, _ registry.RepositoryTags) (registry.RepositoryInfo, error) {
	f.created = append(f.created, name)
	return registry.RepositoryInfo{Name: name, Created: true}, nil
}

// gitFixture creates a local repository with one commit holding a Dockerfile
// and returns its path and commit id.
func gitFixture(t *testing.T) (string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := t.TempDir()
	run := func(args ...string) string {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@localhost",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@localhost",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
		return strings.TrimSpace(string(out))
	}

	run("init", "--quiet", ".")
	// The engine fetches the exact commit, not a ref.
	run("config", "uploadpack.allowAnySHA1InWant", "true")
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\nCOPY Dockerfile /\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "Dockerfile")
	run("commit", "--quiet", "-m", "initial")
	return dir, run("rev-parse", "HEAD")
}

func testBuildPipeline(t *testing.T, env *models.Environment, recorder *StepRecorder) *Pipeline {
	t.Helper()
	engineCtx, err := engine.NewContext(
		models.NewRandomQoveryIdentifier(),
		models.NewRandomQoveryIdentifier(),
		"exec-1", t.TempDir(), t.TempDir(), nil, engine.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	docker, err := build.NewDocker(engineCtx.WorkspaceRoot, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	infra := &engine.InfraContext{
		Context:  engineCtx,
		Provider: onpremise.New(),
		Docker:   docker,
		Registry: &fakeRegistry{},
		Logger:   events.NewLogger(zap.NewNop(), nil),
	}
	p, err := NewPipeline(infra, env, recorder, command.NewAbortHandle())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestBuildApplicationImageStepSequence(t *testing.T) {
	repoDir, commitID := gitFixture(t)

	app := models.Application{
		ServiceCommon: models.ServiceCommon{
			LongID:   models.NewRandomQoveryIdentifier(),
			Name:     "backend",
			KubeName: "backend",
			Action:   models.ActionCreate,
		},
		GitURL:         repoDir,
		CommitID:       commitID,
		DockerfilePath: "Dockerfile",
	}
	env := &models.Environment{
		LongID:         models.NewRandomQoveryIdentifier(),
		ProjectLongID:  models.NewRandomQoveryIdentifier(),
		OrganizationID: models.NewRandomQoveryIdentifier().String(),
		Namespace:      "z-env",
		Applications:   []models.Application{app},
	}
	recorder := NewStepRecorder(zap.NewNop(), nil)
	p := testBuildPipeline(t, env, recorder)

	transmitter := events.NewServiceTransmitter(events.TransmitterKindApplication, app.LongID.String(), app.Name)
	// The final Build step needs a docker daemon; only the step sequence up
	// to it is under test, so its error is not checked.
	_, _, _ = p.buildApplicationImage(context.Background(), transmitter, &env.Applications[0])

	var steps []StepName
	statuses := map[StepName]StepStatus{}
	for _, record := range recorder.Records() {
		if record.ServiceLongID != app.LongID.String() {
			continue
		}
		steps = append(steps, record.Step)
		statuses[record.Step] = record.Status
	}

	want := []StepName{
		StepProvisionBuilder,
		StepRegistryCreateRepository,
		StepGitClone,
		StepBuildQueueing,
		StepBuild,
	}
	if diff := deep.Equal(steps, want); diff != nil {
		t.Fatal(diff)
	}
	for _, step := range want[:4] {
		if statuses[step] != StepStatusSuccess {
			t.Errorf("step %s status = %s, want Success", step, statuses[step])
		}
	}
}
