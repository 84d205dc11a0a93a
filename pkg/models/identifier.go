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
	"fmt"

	"github.com/google/uuid"
)

// QoveryIdentifier wraps a UUID and exposes a short, stable prefix used in
// resource names that have length caps (load balancers, registries, buckets).
type QoveryIdentifier struct {
	uuid uuid.UUID
}

const shortLength = 8

// NewQoveryIdentifier parses s as a UUID.
func NewQoveryIdentifier(s string) (QoveryIdentifier, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return QoveryIdentifier{}, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	return QoveryIdentifier{uuid: u}, nil
}

// NewRandomQoveryIdentifier returns a fresh random identifier.
func NewRandomQoveryIdentifier() QoveryIdentifier {
	return QoveryIdentifier{uuid: uuid.New()}
}

// String returns the long form (full UUID).
func (q QoveryIdentifier) String() string {
	return q.uuid.String()
}

// Short returns the first 8 characters of the long form. The prefix is
// stable for a given identifier.
func (q QoveryIdentifier) Short() string {
	return q.uuid.String()[:shortLength]
}

// MarshalJSON encodes the identifier as its long form.
func (q QoveryIdentifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON decodes and validates the long form.
func (q *QoveryIdentifier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewQoveryIdentifier(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// IsZero reports whether the identifier is the zero UUID.
func (q QoveryIdentifier) IsZero() bool {
	return q.uuid == uuid.UUID{}
}
