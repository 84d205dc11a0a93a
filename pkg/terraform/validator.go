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
	"fmt"
	"strings"
)

// destructiveMarkers are the plan phrases that flag a resource for
// destruction. Matching is on the textual plan output; a structured -json
// plan would be more robust but the semantics here follow the text form.
var destructiveMarkers = []string{
	"will be destroyed",
	"must be replaced",
}

// ForbiddenDestructiveChangeError reports that an upgrade plan wants to
// destroy or replace a protected resource.
type ForbiddenDestructiveChangeError struct {
	Resource string
	PlanLine string
}

func (e *ForbiddenDestructiveChangeError) Error() string {
	return fmt.Sprintf("terraform plan contains a forbidden destructive change on %q: %s", e.Resource, strings.TrimSpace(e.PlanLine))
}

// ValidateNoDestructiveChanges scans a textual plan output and fails when a
// line flags the destruction or replacement of any protected resource
// prefix. With an empty protected list every plan passes.
func ValidateNoDestructiveChanges(planOutput string, protectedResources []string) error {
	if len(protectedResources) == 0 {
		return nil
	}
	for _, line := range strings.Split(planOutput, "\n") {
		destructive := false
		for _, marker := range destructiveMarkers {
			if strings.Contains(line, marker) {
				destructive = true
				break
			}
		}
		if !destructive {
			continue
		}
		for _, resource := range protectedResources {
			if strings.Contains(line, resource) {
				return &ForbiddenDestructiveChangeError{Resource: resource, PlanLine: line}
			}
		}
	}
	return nil
}
