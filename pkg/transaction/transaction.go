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

// Package transaction sequences cluster and environment actions and owns
// the commit/rollback contract: actions run in insertion order, a failure
// reverses previously committed actions in LIFO order, and a failing
// reversal surfaces as an unrecoverable error.
package transaction

import (
	"context"
	"fmt"

	"github.com/qovery/engine-go/pkg/cluster"
	"github.com/qovery/engine-go/pkg/command"
	"github.com/qovery/engine-go/pkg/deployment"
	"github.com/qovery/engine-go/pkg/engine"
	"github.com/qovery/engine-go/pkg/errors"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/models"
)

// CommitStatus is the terminal outcome of a transaction.
type CommitStatus string

const (
	StatusOk                 CommitStatus = "Ok"
	StatusRollback           CommitStatus = "Rollback"
	StatusUnrecoverableError CommitStatus = "UnrecoverableError"
)

// Result of a commit. Cause is set for Rollback and UnrecoverableError;
// RollbackCause only for UnrecoverableError.
type Result struct {
	Status        CommitStatus
	Cause         *errors.EngineError
	RollbackCause *errors.EngineError
}

// action is one queued unit of work with its optional inverse.
type action struct {
	name     string
	run      func(ctx context.Context) error
	rollback func(ctx context.Context) error
}

// Transaction queues actions against one cluster and commits them as a
// unit. A transaction is single-use: after Commit it is frozen.
type Transaction struct {
	infra    *engine.InfraContext
	recorder *deployment.StepRecorder
	abort    *command.AbortHandle

	// pollCancel is the user-issued cancellation predicate, polled between
	// actions and merged into the abort handle passed to every command.
	pollCancel func() command.AbortStatus

	actions   []action
	committed bool
}

// New assembles a transaction. pollCancel may be nil when the caller has no
// cancellation channel.
func New(infra *engine.InfraContext, recorder *deployment.StepRecorder, abort *command.AbortHandle, pollCancel func() command.AbortStatus) (*Transaction, error) {
	if err := infra.Validate(); err != nil {
		return nil, err
	}
	if abort == nil {
		abort = command.NewAbortHandle()
	}
	if pollCancel == nil {
		pollCancel = func() command.AbortStatus { return command.AbortStatusNone }
	}
	return &Transaction{
		infra:      infra,
		recorder:   recorder,
		abort:      abort,
		pollCancel: pollCancel,
	}, nil
}

func (t *Transaction) push(a action) error {
	if t.committed {
		return fmt.Errorf("transaction already committed, cannot queue %s", a.name)
	}
	t.actions = append(t.actions, a)
	return nil
}

// CreateKubernetes queues a cluster bootstrap. Creation has no automatic
// inverse: a half-created cluster is kept for inspection and retried, never
// silently destroyed.
func (t *Transaction) CreateKubernetes(c *cluster.Cluster, tasksRunning func() bool) error {
	manager, err := cluster.NewManager(t.infra, c, t.abort, tasksRunning)
	if err != nil {
		return err
	}
	return t.push(action{
		name: fmt.Sprintf("create cluster %s", c.Name),
		run:  manager.Create,
	})
}

// PauseKubernetes queues a cluster pause, reversed by a resume.
func (t *Transaction) PauseKubernetes(c *cluster.Cluster, tasksRunning func() bool) error {
	manager, err := cluster.NewManager(t.infra, c, t.abort, tasksRunning)
	if err != nil {
		return err
	}
	return t.push(action{
		name:     fmt.Sprintf("pause cluster %s", c.Name),
		run:      manager.Pause,
		rollback: manager.Resume,
	})
}

// UpgradeKubernetes queues a cluster upgrade. Downgrades are not supported
// by managed control planes, so there is no inverse.
func (t *Transaction) UpgradeKubernetes(c *cluster.Cluster, targetVersion string) error {
	manager, err := cluster.NewManager(t.infra, c, t.abort, nil)
	if err != nil {
		return err
	}
	return t.push(action{
		name: fmt.Sprintf("upgrade cluster %s to %s", c.Name, targetVersion),
		run: func(ctx context.Context) error {
			return manager.Upgrade(ctx, targetVersion)
		},
	})
}

// DeleteKubernetes queues a cluster deletion. Irreversible.
func (t *Transaction) DeleteKubernetes(c *cluster.Cluster, force bool) error {
	manager, err := cluster.NewManager(t.infra, c, t.abort, nil)
	if err != nil {
		return err
	}
	return t.push(action{
		name: fmt.Sprintf("delete cluster %s", c.Name),
		run: func(ctx context.Context) error {
			return manager.Delete(ctx, force)
		},
	})
}

func (t *Transaction) pipeline(env *models.Environment) (*deployment.Pipeline, error) {
	return deployment.NewPipeline(t.infra, env, t.recorder, t.abort)
}

// DeployEnvironment queues an environment deployment, reversed by deleting
// what this transaction deployed.
func (t *Transaction) DeployEnvironment(env *models.Environment) error {
	p, err := t.pipeline(env)
	if err != nil {
		return err
	}
	return t.push(action{
		name:     fmt.Sprintf("deploy environment %s", env.Namespace),
		run:      p.DeployEnvironment,
		rollback: p.DeleteEnvironment,
	})
}

// PauseEnvironment queues an environment pause, reversed by redeploying.
func (t *Transaction) PauseEnvironment(env *models.Environment) error {
	p, err := t.pipeline(env)
	if err != nil {
		return err
	}
	return t.push(action{
		name:     fmt.Sprintf("pause environment %s", env.Namespace),
		run:      p.PauseEnvironment,
		rollback: p.DeployEnvironment,
	})
}

// DeleteEnvironment queues an environment deletion. Irreversible.
func (t *Transaction) DeleteEnvironment(env *models.Environment) error {
	p, err := t.pipeline(env)
	if err != nil {
		return err
	}
	return t.push(action{
		name: fmt.Sprintf("delete environment %s", env.Namespace),
		run:  p.DeleteEnvironment,
	})
}

// RestartEnvironment queues a rolling restart of every workload.
func (t *Transaction) RestartEnvironment(env *models.Environment) error {
	p, err := t.pipeline(env)
	if err != nil {
		return err
	}
	return t.push(action{
		name: fmt.Sprintf("restart environment %s", env.Namespace),
		run:  p.RestartEnvironment,
	})
}

// Commit executes the queued actions in insertion order. On failure,
// previously succeeded actions are reversed in LIFO order; a failing
// reversal yields UnrecoverableError carrying both causes. The transaction
// is frozen afterwards.
func (t *Transaction) Commit(ctx context.Context) Result {
	if t.committed {
		// No rollback ran here; RollbackCause stays nil so callers can tell a
		// misused transaction apart from a failed reversal.
		cause := errors.NewFromError(t.details(), errors.TagUnknown,
			"transaction already committed", nil, nil)
		return Result{Status: StatusUnrecoverableError, Cause: cause}
	}
	t.committed = true
	if t.recorder != nil {
		defer t.recorder.CloseOpenHandles()
	}

	var done []action
	for _, a := range t.actions {
		// Propagate user cancellation before starting a new action.
		t.abort.Request(t.pollCancel())
		if t.abort.IsRequested() {
			cause := errors.New(t.details(), errors.TagCancelled,
				newCancelMessage(a.name))
			return t.rollback(ctx, done, cause)
		}

		if err := a.run(ctx); err != nil {
			return t.rollback(ctx, done, errors.AsEngineError(err, t.details()))
		}
		done = append(done, a)
	}
	return Result{Status: StatusOk}
}

// details builds the event envelope for transaction-level failures.
func (t *Transaction) details() events.EventDetails {
	return events.NewEventDetails(
		string(t.infra.Provider.Kind()),
		t.infra.Context.OrganizationID.String(),
		t.infra.Context.ClusterID.String(),
		t.infra.Context.ExecutionID,
		t.infra.Region,
		events.Stage{},
		events.NewTransmitter(events.TransmitterKindEngine),
	)
}

func newCancelMessage(actionName string) events.EventMessage {
	return events.NewEventMessage(
		fmt.Sprintf("cancellation requested before action %q started", actionName), nil)
}

func (t *Transaction) rollback(ctx context.Context, done []action, cause *errors.EngineError) Result {
	for i := len(done) - 1; i >= 0; i-- {
		a := done[i]
		if a.rollback == nil {
			continue
		}
		if err := a.rollback(ctx); err != nil {
			return Result{
				Status:        StatusUnrecoverableError,
				Cause:         cause,
				RollbackCause: errors.AsEngineError(err, t.details()),
			}
		}
	}
	return Result{Status: StatusRollback, Cause: cause}
}
