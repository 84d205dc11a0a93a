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

package build

import (
	"testing"

	"github.com/go-test/deep"
)

const sampleDockerfile = `
FROM node

ARG foo
ARG bar=value
ARG  toto
ARGUMENT fake
ARG x
`

func TestExtractDockerfileArgs(t *testing.T) {
	tests := []struct {
		name       string
		dockerfile string
		want       []string
	}{
		{
			name:       "declared args without defaults or impostors",
			dockerfile: sampleDockerfile,
			want:       []string{"foo", "bar", "toto", "x"},
		},
		{
			name:       "no args",
			dockerfile: "FROM alpine\nRUN true\n",
			want:       nil,
		},
		{
			name:       "duplicates collapse to first occurrence",
			dockerfile: "ARG a\nARG b\nARG a=other\n",
			want:       []string{"a", "b"},
		},
		{
			name:       "tab after keyword",
			dockerfile: "ARG\tname\n",
			want:       []string{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDockerfileArgs(tt.dockerfile)
			if diff := deep.Equal(got, tt.want); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestMatchUsedEnvVarArgs(t *testing.T) {
	tests := []struct {
		name string
		env  [][2]string
		want int
	}{
		{
			name: "all declared args present",
			env: [][2]string{
				{"foo", "1"}, {"bar", "2"}, {"toto", "3"}, {"x", "4"},
			},
			want: 4,
		},
		{
			name: "subset plus unrelated vars",
			env: [][2]string{
				{"foo", "1"}, {"x", "4"}, {"HOME", "/root"}, {"fake", "no"},
			},
			want: 2,
		},
		{
			name: "nothing matches",
			env:  [][2]string{{"HOME", "/root"}, {"PATH", "/bin"}},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchUsedEnvVarArgs(tt.env, sampleDockerfile)
			if len(got) != tt.want {
				t.Errorf("MatchUsedEnvVarArgs() matched %d vars, want %d: %v", len(got), tt.want, got)
			}
			for _, kv := range got {
				if kv[0] == "fake" || kv[0] == "HOME" || kv[0] == "PATH" {
					t.Errorf("undeclared variable %q must not be forwarded", kv[0])
				}
			}
		})
	}
}
