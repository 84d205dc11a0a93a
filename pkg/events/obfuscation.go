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

import (
	"regexp"
	"strings"
	"sync"
)

// ObfuscationMask replaces every secret occurrence in safe output.
const ObfuscationMask = "xxx"

// ObfuscationService rewrites secrets out of emitted text. Each service
// instance compiles its own matcher; two services with different secret
// sets never share state. Safe for concurrent use: parallel service
// pipelines share one instance per environment.
type ObfuscationService struct {
	mu      sync.RWMutex
	secrets []string
	re      *regexp.Regexp
}

// NewObfuscationService builds a service for the given secrets. Empty and
// whitespace-only secrets are dropped; the remaining ones are escaped so
// regex metacharacters match literally, then joined into one alternation
// compiled once.
func NewObfuscationService(secrets []string) *ObfuscationService {
	o := &ObfuscationService{}
	for _, s := range secrets {
		o.addLocked(s)
	}
	o.compileLocked()
	return o
}

// AddSecret registers a secret discovered at runtime (e.g. a sensitive job
// output variable) and recompiles the matcher.
func (o *ObfuscationService) AddSecret(secret string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.addLocked(secret)
	o.compileLocked()
}

func (o *ObfuscationService) addLocked(secret string) {
	if strings.TrimSpace(secret) == "" {
		return
	}
	o.secrets = append(o.secrets, regexp.QuoteMeta(secret))
}

func (o *ObfuscationService) compileLocked() {
	if len(o.secrets) == 0 {
		o.re = nil
		return
	}
	o.re = regexp.MustCompile(strings.Join(o.secrets, "|"))
}

// Obfuscate replaces every occurrence of any registered secret with the
// mask. It is idempotent: obfuscating an already-safe string is a no-op
// unless the mask itself was registered as a secret.
func (o *ObfuscationService) Obfuscate(text string) string {
	if o == nil {
		return text
	}
	o.mu.RLock()
	re := o.re
	o.mu.RUnlock()
	if re == nil {
		return text
	}
	return re.ReplaceAllString(text, ObfuscationMask)
}
