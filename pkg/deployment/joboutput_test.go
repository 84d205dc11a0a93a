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

package deployment

import (
	"errors"
	"testing"

	"github.com/go-test/deep"
)

func TestParseJobOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]JobOutputVariable
	}{
		{
			name: "numbers stringified, sensitive defaults to false",
			raw:  `{"foo": {"value": 123, "sensitive": true}, "foo_2": {"value": 123.456}}`,
			want: map[string]JobOutputVariable{
				"foo":   {Value: "123", Sensitive: true},
				"foo_2": {Value: "123.456", Sensitive: false},
			},
		},
		{
			name: "strings kept verbatim with description",
			raw:  `{"url": {"value": "https://example.com", "description": "endpoint"}}`,
			want: map[string]JobOutputVariable{
				"url": {Value: "https://example.com", Description: "endpoint"},
			},
		},
		{
			name: "booleans and nested objects use their JSON form",
			raw:  `{"flag": {"value": true}, "blob": {"value": {"a": 1}}}`,
			want: map[string]JobOutputVariable{
				"flag": {Value: "true"},
				"blob": {Value: `{"a": 1}`},
			},
		},
		{
			name: "empty object",
			raw:  `{}`,
			want: map[string]JobOutputVariable{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJobOutput([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseJobOutput() error: %v", err)
			}
			if diff := deep.Equal(got, tt.want); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestParseJobOutputInvalidKey(t *testing.T) {
	for _, key := range []string{"---", "1starts-with-digit", "has space", "dash-ed"} {
		t.Run(key, func(t *testing.T) {
			_, err := ParseJobOutput([]byte(`{"` + key + `": {"value": 1}}`))
			var validationErr *OutputVariableValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("ParseJobOutput() error = %v, want OutputVariableValidationError", err)
			}
			if validationErr.Key != key {
				t.Errorf("error key = %q, want %q", validationErr.Key, key)
			}
		})
	}
}

func TestParseJobOutputMalformedJSON(t *testing.T) {
	if _, err := ParseJobOutput([]byte(`not json`)); err == nil {
		t.Error("ParseJobOutput() must fail on malformed JSON")
	}
}
