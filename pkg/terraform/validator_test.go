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
	"errors"
	"testing"
)

const destructivePlan = `
Terraform will perform the following actions:

  # aws_eks_cluster.eks_cluster will be destroyed
  - resource "aws_eks_cluster" "eks_cluster" {
    }

Plan: 0 to add, 0 to change, 1 to destroy.
`

const replacePlan = `
  # aws_eks_cluster.eks_cluster must be replaced
-/+ resource "aws_eks_cluster" "eks_cluster" {
    }
`

const safePlan = `
  # aws_eks_node_group.workers will be updated in-place
  ~ resource "aws_eks_node_group" "workers" {
    }

Plan: 0 to add, 1 to change, 0 to destroy.
`

func TestValidateNoDestructiveChanges(t *testing.T) {
	tests := []struct {
		name      string
		plan      string
		protected []string
		wantErr   bool
	}{
		{
			name:      "protected resource destroyed",
			plan:      destructivePlan,
			protected: []string{"aws_eks_cluster"},
			wantErr:   true,
		},
		{
			name:      "protected resource replaced",
			plan:      replacePlan,
			protected: []string{"aws_eks_cluster"},
			wantErr:   true,
		},
		{
			name:      "empty protected list passes everything",
			plan:      destructivePlan,
			protected: nil,
			wantErr:   false,
		},
		{
			name:      "unprotected resource destroyed",
			plan:      destructivePlan,
			protected: []string{"aws_rds_cluster"},
			wantErr:   false,
		},
		{
			name:      "in-place update on protected resource",
			plan:      safePlan,
			protected: []string{"aws_eks_node_group"},
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNoDestructiveChanges(tt.plan, tt.protected)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateNoDestructiveChanges() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var forbidden *ForbiddenDestructiveChangeError
				if !errors.As(err, &forbidden) {
					t.Fatalf("error type = %T, want ForbiddenDestructiveChangeError", err)
				}
				if forbidden.Resource != tt.protected[0] {
					t.Errorf("Resource = %q, want %q", forbidden.Resource, tt.protected[0])
				}
			}
		})
	}
}
