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

package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewQoveryIdentifier(t *testing.T) {
	const raw = "1f3a6db1-8f4a-4b31-a126-a74b3a2600d1"
	id, err := NewQoveryIdentifier(raw)
	if err != nil {
		t.Fatalf("NewQoveryIdentifier() error: %v", err)
	}
	if id.String() != raw {
		t.Errorf("String() = %q, want %q", id.String(), raw)
	}
	if id.Short() != "1f3a6db1" {
		t.Errorf("Short() = %q, want first 8 chars", id.Short())
	}
	if id.IsZero() {
		t.Error("parsed identifier must not be zero")
	}
}

func TestNewQoveryIdentifierRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-uuid", "1f3a6db1"} {
		if _, err := NewQoveryIdentifier(raw); err == nil {
			t.Errorf("NewQoveryIdentifier(%q) must fail", raw)
		}
	}
}

func TestQoveryIdentifierShortIsStable(t *testing.T) {
	id := NewRandomQoveryIdentifier()
	if id.Short() != id.Short() {
		t.Error("Short() must be stable")
	}
	if !strings.HasPrefix(id.String(), id.Short()) {
		t.Error("Short() must be a prefix of the long form")
	}
}

func TestQoveryIdentifierJSONRoundTrip(t *testing.T) {
	id := NewRandomQoveryIdentifier()
	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded QoveryIdentifier
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded.String() != id.String() {
		t.Errorf("round trip changed identifier: %s != %s", decoded, id)
	}
}

func TestQoveryIdentifierJSONRejectsInvalid(t *testing.T) {
	var id QoveryIdentifier
	if err := json.Unmarshal([]byte(`"oops"`), &id); err == nil {
		t.Error("Unmarshal must reject invalid identifiers")
	}
}
