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

package events

import "testing"

func TestObfuscate(t *testing.T) {
	tests := []struct {
		name    string
		secrets []string
		input   string
		want    string
	}{
		{
			name:    "secret with regex metacharacters",
			secrets: []string{"/1234-a/bcd", "with"},
			input:   "a log with my password: /1234-a/bcd",
			want:    "a log xxx my password: xxx",
		},
		{
			name:    "no secrets leaves text untouched",
			secrets: nil,
			input:   "plain text",
			want:    "plain text",
		},
		{
			name:    "blank secrets are ignored",
			secrets: []string{"", "   ", "\t"},
			input:   "nothing to hide",
			want:    "nothing to hide",
		},
		{
			name:    "multiple occurrences all masked",
			secrets: []string{"tok-123"},
			input:   "tok-123 then tok-123 again",
			want:    "xxx then xxx again",
		},
		{
			name:    "dollar and dot are literal",
			secrets: []string{"pa$$.word"},
			input:   "login with pa$$.word here, paXX.word stays",
			want:    "login with xxx here, paXX.word stays",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewObfuscationService(tt.secrets)
			if got := svc.Obfuscate(tt.input); got != tt.want {
				t.Errorf("Obfuscate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObfuscateIsIdempotent(t *testing.T) {
	svc := NewObfuscationService([]string{"/1234-a/bcd", "with"})
	once := svc.Obfuscate("a log with my password: /1234-a/bcd")
	twice := svc.Obfuscate(once)
	if once != twice {
		t.Errorf("obfuscation is not idempotent: %q != %q", once, twice)
	}
}

func TestObfuscateNilService(t *testing.T) {
	var svc *ObfuscationService
	if got := svc.Obfuscate("text"); got != "text" {
		t.Errorf("nil service must pass text through, got %q", got)
	}
}

func TestAddSecret(t *testing.T) {
	svc := NewObfuscationService([]string{"first"})
	svc.AddSecret("second")
	if got := svc.Obfuscate("first and second"); got != "xxx and xxx" {
		t.Errorf("Obfuscate() after AddSecret = %q", got)
	}
}
