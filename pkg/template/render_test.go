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

package template

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRender(t *testing.T) {
	data := map[string]interface{}{
		"ClusterName": "qovery-1f3a6db1",
		"SubnetCIDRs": []string{"10.0.0.0/20", "10.0.16.0/20"},
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plain substitution",
			body: `cluster_name = "{{ .ClusterName }}"`,
			want: `cluster_name = "qovery-1f3a6db1"`,
		},
		{
			name: "terraform list helper",
			body: `subnets = {{ terraformStringList .SubnetCIDRs }}`,
			want: `subnets = ["10.0.0.0/20", "10.0.16.0/20"]`,
		},
		{
			name: "sprig function available",
			body: `{{ upper .ClusterName }}`,
			want: `QOVERY-1F3A6DB1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.name, tt.body, data)
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderRejectsMissingKey(t *testing.T) {
	if _, err := Render("t", "{{ .Absent }}", map[string]interface{}{}); err == nil {
		t.Error("Render() must fail on keys absent from the data")
	}
}

func TestStageTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	if err := os.MkdirAll(filepath.Join(src, "modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"main.tf.tmpl":   `name = "{{ .ClusterName }}"`,
		"variables.tf":   `variable "region" {}`,
		"modules/vpc.tf": `resource "aws_vpc" "main" {}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(src, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	err := StageTree(src, dst, map[string]interface{}{"ClusterName": "qovery-abc"})
	if err != nil {
		t.Fatalf("StageTree() error: %v", err)
	}

	rendered, err := os.ReadFile(filepath.Join(dst, "main.tf"))
	if err != nil {
		t.Fatalf("rendered file missing: %v", err)
	}
	if string(rendered) != `name = "qovery-abc"` {
		t.Errorf("rendered content = %q", rendered)
	}
	if _, err := os.Stat(filepath.Join(dst, "main.tf.tmpl")); !os.IsNotExist(err) {
		t.Error("template suffix must be stripped in the staged tree")
	}

	verbatim, err := os.ReadFile(filepath.Join(dst, "modules", "vpc.tf"))
	if err != nil {
		t.Fatalf("verbatim file missing: %v", err)
	}
	if string(verbatim) != files["modules/vpc.tf"] {
		t.Errorf("verbatim content changed: %q", verbatim)
	}
}
