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

// Package errors defines the engine's typed failure model. Errors never
// cross the transaction boundary as raw strings; every user-surfaced
// failure carries a stable tag, a one-line message, an optional hint and
// documentation link, and the obfuscated underlying output.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/qovery/engine-go/pkg/events"
)

// Tag is the stable machine-readable classification of an EngineError.
type Tag string

const (
	TagUnknown                            Tag = "Unknown"
	TagInvalidEngineAPIInput              Tag = "InvalidEngineApiInput"
	TagUnsupportedInstanceType            Tag = "UnsupportedInstanceType"
	TagUnsupportedRegion                  Tag = "UnsupportedRegion"
	TagUnsupportedVersion                 Tag = "UnsupportedVersion"
	TagCannotGetCluster                   Tag = "CannotGetCluster"
	TagCannotPauseClusterTasksAreRunning  Tag = "CannotPauseClusterTasksAreRunning"
	TagCannotDeleteClusterNonEmptyState   Tag = "CannotDeleteClusterNonEmptyState"
	TagAwsWrongCloudwatchRetentionConfig  Tag = "AwsWrongCloudwatchRetentionConfiguration"
	TagTerraformError                     Tag = "TerraformError"
	TagHelmError                          Tag = "HelmChartsUpgradeError"
	TagBuildError                         Tag = "BuilderError"
	TagContainerRegistryError             Tag = "ContainerRegistryError"
	TagObjectStorageError                 Tag = "ObjectStorageError"
	TagCannotFetchKubeconfig              Tag = "CannotRetrieveClusterKubeconfig"
	TagK8sServiceError                    Tag = "K8sServiceError"
	TagCannotRestartService               Tag = "CannotRestartService"
	TagDatabaseError                      Tag = "DatabaseError"
	TagJobOutputVariableValidationError   Tag = "JobOutputVariableValidationError"
	TagInvalidJobOutputCannotBeSerialized Tag = "InvalidJobOutputCannotBeSerialized"
	TagStorageShrinkNotAllowed            Tag = "CannotShrinkStorage"
	TagCancelled                          Tag = "TaskCancellationRequested"
	TagClusterHasNoWorkerNodes            Tag = "ClusterHasNoWorkerNodes"
	TagDockerError                        Tag = "DockerError"
	TagGitError                           Tag = "GitError"
	TagNotImplementedError                Tag = "NotImplementedError"
)

// EngineError is the single error type exchanged between components and the
// transaction.
type EngineError struct {
	Details     events.EventDetails
	Tag         Tag
	UserMessage events.EventMessage
	Hint        string
	Link        string
	Underlying  *events.EventMessage
}

// New builds an EngineError with an already-obfuscated message.
func New(details events.EventDetails, tag Tag, userMessage events.EventMessage) *EngineError {
	return &EngineError{Details: details, Tag: tag, UserMessage: userMessage}
}

// NewFromError wraps an arbitrary error.
func NewFromError(details events.EventDetails, tag Tag, message string, underlying error, obf *events.ObfuscationService) *EngineError {
	e := &EngineError{
		Details:     details,
		Tag:         tag,
		UserMessage: events.NewEventMessage(message, obf),
	}
	if underlying != nil {
		msg := events.NewEventMessage(underlying.Error(), obf)
		e.Underlying = &msg
	}
	return e
}

// WithHint attaches a user-visible hint.
func (e *EngineError) WithHint(hint string) *EngineError {
	e.Hint = hint
	return e
}

// WithLink attaches a documentation link.
func (e *EngineError) WithLink(link string) *EngineError {
	e.Link = link
	return e
}

// Error renders the safe form only; the raw form stays in the audit channel.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Tag, e.UserMessage.Safe)
	if e.Underlying != nil && e.Underlying.Safe != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Underlying.Safe)
	}
	return msg
}

// IsTag reports whether err is an EngineError with the given tag.
func IsTag(err error, tag Tag) bool {
	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee.Tag == tag
	}
	return false
}

// AsEngineError extracts an EngineError from err, wrapping unknown errors
// with the given details so no failure escapes without an envelope.
func AsEngineError(err error, details events.EventDetails) *EngineError {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee
	}
	return NewFromError(details, TagUnknown, "unexpected engine error", err, nil)
}
