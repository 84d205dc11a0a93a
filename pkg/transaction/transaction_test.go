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

package transaction

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/go-test/deep"

	"github.com/qovery/engine-go/pkg/cloudprovider/provider/onpremise"
	"github.com/qovery/engine-go/pkg/command"
	"github.com/qovery/engine-go/pkg/deployment"
	"github.com/qovery/engine-go/pkg/engine"
	"github.com/qovery/engine-go/pkg/errors"
	"github.com/qovery/engine-go/pkg/events"
	"github.com/qovery/engine-go/pkg/models"
)

func testTransaction(t *testing.T, pollCancel func() command.AbortStatus) *Transaction {
	t.Helper()
	engineCtx, err := engine.NewContext(
		models.NewRandomQoveryIdentifier(),
		models.NewRandomQoveryIdentifier(),
		"exec-1", t.TempDir(), t.TempDir(), nil, engine.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	infra := &engine.InfraContext{
		Context:  engineCtx,
		Provider: onpremise.New(),
		Logger:   events.NewLogger(zap.NewNop(), nil),
	}
	tx, err := New(infra, deployment.NewStepRecorder(zap.NewNop(), nil), nil, pollCancel)
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestCommitRunsActionsInInsertionOrder(t *testing.T) {
	tx := testTransaction(t, nil)

	var trace []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		if err := tx.push(action{
			name: name,
			run: func(context.Context) error {
				trace = append(trace, name)
				return nil
			},
		}); err != nil {
			t.Fatal(err)
		}
	}

	result := tx.Commit(context.Background())
	if result.Status != StatusOk {
		t.Fatalf("Commit() status = %v, cause = %v", result.Status, result.Cause)
	}
	if diff := deep.Equal(trace, []string{"first", "second", "third"}); diff != nil {
		t.Error(diff)
	}
}

func TestCommitRollsBackCommittedActionsInReverseOrder(t *testing.T) {
	tx := testTransaction(t, nil)

	var trace []string
	record := func(event string) func(context.Context) error {
		return func(context.Context) error {
			trace = append(trace, event)
			return nil
		}
	}

	_ = tx.push(action{name: "a", run: record("run-a"), rollback: record("undo-a")})
	_ = tx.push(action{name: "b", run: record("run-b"), rollback: record("undo-b")})
	_ = tx.push(action{name: "c", run: func(context.Context) error {
		return fmt.Errorf("boom")
	}, rollback: record("undo-c")})

	result := tx.Commit(context.Background())
	if result.Status != StatusRollback {
		t.Fatalf("Commit() status = %v, want Rollback", result.Status)
	}
	if result.Cause == nil {
		t.Fatal("Rollback result must carry a cause")
	}
	// The failing action never committed; only a and b are reversed, last
	// first.
	want := []string{"run-a", "run-b", "undo-b", "undo-a"}
	if diff := deep.Equal(trace, want); diff != nil {
		t.Error(diff)
	}
}

func TestCommitSkipsActionsWithoutInverse(t *testing.T) {
	tx := testTransaction(t, nil)

	var trace []string
	_ = tx.push(action{name: "irreversible", run: func(context.Context) error {
		trace = append(trace, "run-a")
		return nil
	}})
	_ = tx.push(action{name: "failing", run: func(context.Context) error {
		return fmt.Errorf("boom")
	}})

	result := tx.Commit(context.Background())
	if result.Status != StatusRollback {
		t.Fatalf("Commit() status = %v, want Rollback", result.Status)
	}
	if diff := deep.Equal(trace, []string{"run-a"}); diff != nil {
		t.Error(diff)
	}
}

func TestCommitFailingRollbackIsUnrecoverable(t *testing.T) {
	tx := testTransaction(t, nil)

	_ = tx.push(action{
		name: "a",
		run:  func(context.Context) error { return nil },
		rollback: func(context.Context) error {
			return fmt.Errorf("reversal failed")
		},
	})
	_ = tx.push(action{name: "b", run: func(context.Context) error {
		return fmt.Errorf("boom")
	}})

	result := tx.Commit(context.Background())
	if result.Status != StatusUnrecoverableError {
		t.Fatalf("Commit() status = %v, want UnrecoverableError", result.Status)
	}
	if result.Cause == nil || result.RollbackCause == nil {
		t.Error("unrecoverable result must carry both causes")
	}
}

func TestCommitHonorsCancellationBetweenActions(t *testing.T) {
	var ranFirst bool
	// Cancellation arrives after the first action committed.
	poll := func() command.AbortStatus {
		if ranFirst {
			return command.AbortStatusRequested
		}
		return command.AbortStatusNone
	}
	tx := testTransaction(t, poll)

	var undone bool
	_ = tx.push(action{
		name: "a",
		run: func(context.Context) error {
			ranFirst = true
			return nil
		},
		rollback: func(context.Context) error {
			undone = true
			return nil
		},
	})
	_ = tx.push(action{name: "never-runs", run: func(context.Context) error {
		t.Error("second action must not run after cancellation")
		return nil
	}})

	result := tx.Commit(context.Background())
	if result.Status != StatusRollback {
		t.Fatalf("Commit() status = %v, want Rollback", result.Status)
	}
	if result.Cause.Tag != errors.TagCancelled {
		t.Errorf("cause tag = %v, want Cancelled", result.Cause.Tag)
	}
	if !undone {
		t.Error("committed action must be reversed on cancellation")
	}
}

func TestTransactionIsSingleUse(t *testing.T) {
	tx := testTransaction(t, nil)
	if result := tx.Commit(context.Background()); result.Status != StatusOk {
		t.Fatalf("empty Commit() status = %v", result.Status)
	}

	if err := tx.push(action{name: "late"}); err == nil {
		t.Error("push after commit must fail")
	}
	result := tx.Commit(context.Background())
	if result.Status != StatusUnrecoverableError {
		t.Errorf("second Commit() status = %v, want UnrecoverableError", result.Status)
	}
	if result.Cause == nil {
		t.Error("second Commit() must carry a cause")
	}
	// No reversal ran, so the result must not look like a failed rollback.
	if result.RollbackCause != nil {
		t.Errorf("second Commit() rollback cause = %v, want nil", result.RollbackCause)
	}
}
