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

package errors

import (
	"fmt"

	"github.com/qovery/engine-go/pkg/events"
)

// TerraformErrorKind classifies a terraform failure beyond the generic tag.
type TerraformErrorKind string

const (
	TerraformErrorKindUnknown            TerraformErrorKind = "Unknown"
	TerraformErrorKindInit               TerraformErrorKind = "Init"
	TerraformErrorKindPlan               TerraformErrorKind = "Plan"
	TerraformErrorKindApply              TerraformErrorKind = "Apply"
	TerraformErrorKindDestroy            TerraformErrorKind = "Destroy"
	TerraformErrorKindStateLock          TerraformErrorKind = "StateLocked"
	TerraformErrorKindQuotaExceeded      TerraformErrorKind = "QuotasExceeded"
	TerraformErrorKindInvalidCredentials TerraformErrorKind = "InvalidCredentials"
	TerraformErrorKindResourceDependency TerraformErrorKind = "ResourceDependencyViolation"
	TerraformErrorKindAlreadyExists      TerraformErrorKind = "AlreadyExistingResource"
)

// TerraformErrorDetails keeps the classified kind plus the raw and safe
// command output for a terraform failure.
type TerraformErrorDetails struct {
	Kind       TerraformErrorKind
	RawOutput  string
	SafeOutput string
}

// NewTerraformError wraps a terraform failure into an EngineError carrying
// the classified kind and the obfuscated output.
func NewTerraformError(details events.EventDetails, kind TerraformErrorKind, rawOutput string, obf *events.ObfuscationService) *EngineError {
	msg := events.NewEventMessage(rawOutput, obf)
	e := &EngineError{
		Details:     details,
		Tag:         TagTerraformError,
		UserMessage: events.NewEventMessage(fmt.Sprintf("terraform error (%s)", kind), nil),
		Underlying:  &msg,
	}
	switch kind {
	case TerraformErrorKindQuotaExceeded:
		e.Hint = "a cloud provider quota has been reached, request a quota increase before retrying"
	case TerraformErrorKindStateLock:
		e.Hint = "another operation holds the terraform state lock for this cluster, wait for it to complete"
	case TerraformErrorKindInvalidCredentials:
		e.Hint = "cloud provider credentials were rejected, check the credentials attached to this cluster"
	}
	return e
}
