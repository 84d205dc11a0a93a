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

// The engine binary runs one deployment request end to end: it assembles
// the infrastructure context for the target cluster, queues the requested
// actions on a transaction and commits it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	dockerclient "github.com/docker/docker/client"
	"github.com/heptiolabs/healthcheck"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/qovery/engine-go/pkg/build"
	"github.com/qovery/engine-go/pkg/cloudprovider"
	"github.com/qovery/engine-go/pkg/cloudprovider/types"
	"github.com/qovery/engine-go/pkg/command"
	"github.com/qovery/engine-go/pkg/deployment"
	"github.com/qovery/engine-go/pkg/engine"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/helm"
	"github.com/qovery/engine-go/pkg/log"
	"github.com/qovery/engine-go/pkg/models"
	"github.com/qovery/engine-go/pkg/registry"
	"github.com/qovery/engine-go/pkg/transaction"
	"github.com/qovery/engine-go/pkg/version"
)

type options struct {
	requestFile   string
	workspaceRoot string
	libRoot       string
	logJSON       bool
	logFile       string
	listenAddr    string
	dockerSocket  string
}

// request is the JSON payload describing what this run must do.
type request struct {
	OrganizationID string              `json:"organization_id"`
	ClusterID      string              `json:"cluster_id"`
	ExecutionID    string              `json:"execution_id"`
	Provider       string              `json:"cloud_provider"`
	Region         string              `json:"region"`
	Credentials    types.Credentials   `json:"credentials"`
	Features       []engine.Feature    `json:"features"`
	Metadata       engine.Metadata     `json:"metadata"`
	Environment    *models.Environment `json:"environment,omitempty"`

	Registry struct {
		Name     string `json:"name"`
		URL      string `json:"url"`
		Login    string `json:"login"`
		Password string `json:"password"`
	} `json:"container_registry"`
}

func main() {
	opts := options{}
	flag.StringVar(&opts.requestFile, "request", "", "path to the JSON deployment request")
	flag.StringVar(&opts.workspaceRoot, "workspace", "/var/lib/qovery-engine/workspace", "scratch directory for generated files")
	flag.StringVar(&opts.libRoot, "lib", "/var/lib/qovery-engine/lib", "chart and terraform templates directory")
	flag.BoolVar(&opts.logJSON, "log-json", true, "log in JSON format")
	flag.StringVar(&opts.logFile, "log-file", "", "optional engine.log file target")
	flag.StringVar(&opts.listenAddr, "listen-address", ":8080", "health and metrics listen address")
	flag.StringVar(&opts.dockerSocket, "docker-socket", "", "docker daemon socket override")
	flag.Parse()

	fileSink := log.NewSwappableFileSink()
	if opts.logFile != "" {
		if err := fileSink.Enable(opts.logFile); err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file: %v\n", err)
			os.Exit(1)
		}
	}
	logger := log.NewLogger(zapcore.InfoLevel, opts.logJSON, fileSink)
	defer logger.Sync()
	logger.Info("qovery engine starting", zap.String("version", version.Get().String()))

	if err := realMain(opts, logger, fileSink); err != nil {
		logger.Error("engine run failed", zap.Error(err))
		os.Exit(1)
	}
}

func realMain(opts options, logger *zap.Logger, fileSink *log.SwappableFileSink) error {
	req, err := loadRequest(opts.requestFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	abort := command.NewAbortHandle()
	registryMetrics := prometheus.NewRegistry()
	recorder := deployment.NewStepRecorder(logger, registryMetrics)

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("workspace-writable", func() error {
		return os.MkdirAll(opts.workspaceRoot, 0o755)
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registryMetrics, promhttp.HandlerOpts{}))
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)
	server := &http.Server{Addr: opts.listenAddr, Handler: mux}

	var group run.Group
	group.Add(func() error {
		return server.ListenAndServe()
	}, func(error) {
		_ = server.Shutdown(context.Background())
	})
	group.Add(func() error {
		return runTransaction(ctx, opts, logger, req, abort, recorder)
	}, func(error) {
		cancel()
	})
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		stop := make(chan struct{})
		group.Add(func() error {
			select {
			case s := <-sig:
				// First signal is graceful, a second one kills in-flight
				// commands after their grace period.
				logger.Info("cancellation requested", zap.String("signal", s.String()))
				abort.Request(command.AbortStatusRequested)
				select {
				case <-sig:
					abort.Request(command.AbortStatusUserForceRequested)
				case <-stop:
				}
				return nil
			case <-stop:
				return nil
			}
		}, func(error) {
			close(stop)
		})
	}
	return group.Run()
}

func loadRequest(path string) (*request, error) {
	if path == "" {
		return nil, fmt.Errorf("--request is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read request file: %w", err)
	}
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("cannot decode request: %w", err)
	}
	return &req, nil
}

func runTransaction(ctx context.Context, opts options, logger *zap.Logger, req *request, abort *command.AbortHandle, recorder *deployment.StepRecorder) error {
	organizationID, err := models.NewQoveryIdentifier(req.OrganizationID)
	if err != nil {
		return fmt.Errorf("invalid organization id: %w", err)
	}
	clusterID, err := models.NewQoveryIdentifier(req.ClusterID)
	if err != nil {
		return fmt.Errorf("invalid cluster id: %w", err)
	}

	engineCtx, err := engine.NewContext(organizationID, clusterID, req.ExecutionID,
		opts.workspaceRoot, opts.libRoot, req.Features, req.Metadata)
	if err != nil {
		return err
	}
	engineCtx.DockerSocket = opts.dockerSocket

	provider, err := cloudprovider.ForProvider(types.Kind(req.Provider), req.Credentials)
	if err != nil {
		return err
	}

	infra, err := assembleInfraContext(engineCtx, provider, req, logger, abort)
	if err != nil {
		return err
	}

	tx, err := transaction.New(infra, recorder, abort, abort.Status)
	if err != nil {
		return err
	}
	if req.Environment != nil {
		if err := queueEnvironmentAction(tx, req.Environment); err != nil {
			return err
		}
	}

	result := tx.Commit(ctx)
	switch result.Status {
	case transaction.StatusOk:
		logger.Info("transaction committed")
		return nil
	case transaction.StatusRollback:
		return fmt.Errorf("transaction rolled back: %w", result.Cause)
	default:
		return fmt.Errorf("transaction unrecoverable: %w (rollback: %v)", result.Cause, result.RollbackCause)
	}
}

func queueEnvironmentAction(tx *transaction.Transaction, env *models.Environment) error {
	switch env.Action {
	case models.ActionCreate:
		return tx.DeployEnvironment(env)
	case models.ActionPause:
		return tx.PauseEnvironment(env)
	case models.ActionDelete:
		return tx.DeleteEnvironment(env)
	case models.ActionRestart:
		return tx.RestartEnvironment(env)
	case models.ActionNothing:
		return nil
	default:
		return fmt.Errorf("unsupported environment action %q", env.Action)
	}
}

func assembleInfraContext(engineCtx *engine.Context, provider types.Provider, req *request, logger *zap.Logger, abort *command.AbortHandle) (*engine.InfraContext, error) {
	kubeconfig, err := clientcmd.BuildConfigFromFlags("", engineCtx.KubeconfigPath())
	if err != nil {
		return nil, fmt.Errorf("cannot load kubeconfig: %w", err)
	}
	kube, err := kubernetes.NewForConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("cannot build kube client: %w", err)
	}

	dockerOpts := []dockerclient.Opt{dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation()}
	if engineCtx.DockerSocket != "" {
		dockerOpts = append(dockerOpts, dockerclient.WithHost(engineCtx.DockerSocket))
	}
	dockerAPI, err := dockerclient.NewClientWithOpts(dockerOpts...)
	if err != nil {
		return nil, fmt.Errorf("cannot build docker client: %w", err)
	}
	engineCtx.Docker = dockerAPI

	eventLogger := events.NewLogger(logger, nil)
	sink := func(line string) { logger.Info(line) }

	docker, err := build.NewDocker(engineCtx.WorkspaceRoot, sink, sink)
	if err != nil {
		return nil, err
	}
	skopeo := registry.NewSkopeo(sink, sink)

	return &engine.InfraContext{
		Context:  engineCtx,
		Provider: provider,
		Region:   req.Region,
		Kube:     kube,
		Helm: helm.New(engineCtx.KubeconfigPath(),
			provider.CredentialEnvironmentVariables(req.Region), sink, sink),
		Docker: docker,
		Skopeo: skopeo,
		Registry: registry.NewRemote(req.Registry.Name, req.Registry.URL,
			req.Registry.Login, req.Registry.Password, skopeo, abort),
		Logger: eventLogger,
	}, nil
}
