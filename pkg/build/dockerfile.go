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

// Package build turns a git-sourced application into a pushed container
// image: clone, Dockerfile ARG resolution, docker build, docker push.
package build

import (
	"bufio"
	"strings"
)

// ExtractDockerfileArgs returns the names of every ARG instruction in the
// Dockerfile, in order of first appearance. A default value (ARG name=def)
// is stripped; only `ARG` followed by whitespace counts, so an unrelated
// instruction sharing the prefix does not match.
func ExtractDockerfileArgs(dockerfile string) []string {
	var args []string
	seen := map[string]struct{}{}
	scanner := bufio.NewScanner(strings.NewReader(dockerfile))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "ARG") {
			continue
		}
		rest := line[len("ARG"):]
		if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		name := strings.TrimSpace(rest)
		if idx := strings.IndexAny(name, "= \t"); idx >= 0 {
			name = name[:idx]
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		args = append(args, name)
	}
	return args
}

// MatchUsedEnvVarArgs intersects the supplied environment with the ARGs the
// Dockerfile declares. Only matched pairs reach the builder as --build-arg.
func MatchUsedEnvVarArgs(env [][2]string, dockerfile string) [][2]string {
	declared := map[string]struct{}{}
	for _, name := range ExtractDockerfileArgs(dockerfile) {
		declared[name] = struct{}{}
	}
	var matched [][2]string
	for _, kv := range env {
		if _, ok := declared[kv[0]]; ok {
			matched = append(matched, kv)
		}
	}
	return matched
}
