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

package terraform

import (
	"regexp"
	"strings"

	engerrors "github.com/qovery/engine-go/pkg/errors"
)

// errorBlockRe extracts the message bodies of `Error: ...` blocks from
// terraform's textual output.
var errorBlockRe = regexp.MustCompile(`(?m)^Error: (.*)$`)

// ExtractErrors returns the individual error messages found in a terraform
// run output, in order of appearance.
func ExtractErrors(output string) []string {
	matches := errorBlockRe.FindAllStringSubmatch(output, -1)
	var errs []string
	for _, m := range matches {
		if msg := strings.TrimSpace(m[1]); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}

// ClassifyError maps a terraform run output to an error kind. The first
// recognized pattern wins; unrecognized failures stay Unknown so the raw
// output remains the source of truth.
func ClassifyError(output string) engerrors.TerraformErrorKind {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "error acquiring the state lock"):
		return engerrors.TerraformErrorKindStateLock
	case strings.Contains(lower, "quota") && (strings.Contains(lower, "exceeded") || strings.Contains(lower, "limit")):
		return engerrors.TerraformErrorKindQuotaExceeded
	case strings.Contains(lower, "invalidclienttokenid"),
		strings.Contains(lower, "authenticationfailed"),
		strings.Contains(lower, "invalid credentials"),
		strings.Contains(lower, "unauthorized"):
		return engerrors.TerraformErrorKindInvalidCredentials
	case strings.Contains(lower, "dependencyviolation"):
		return engerrors.TerraformErrorKindResourceDependency
	case strings.Contains(lower, "alreadyexists"), strings.Contains(lower, "already exists"):
		return engerrors.TerraformErrorKindAlreadyExists
	default:
		return engerrors.TerraformErrorKindUnknown
	}
}
