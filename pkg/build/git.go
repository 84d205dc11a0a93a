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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qovery/engine-go/pkg/command"
	"github.com/qovery/engine-go/pkg/models"
)

const gitTimeout = 10 * time.Minute

// askpass answers git credential prompts from the environment so tokens
// never appear on the command line or in the remote URL.
const askpassScript = `#!/bin/sh
case "$1" in
  Username*) printf '%s' "$GIT_CLONE_USERNAME" ;;
  *)         printf '%s' "$GIT_CLONE_PASSWORD" ;;
esac
`

// GitClone shallow-clones the repository at the exact commit into dest.
// The commit is fetched directly, so unrelated history is never downloaded.
func GitClone(repositoryURL, commitID, dest string, credentials *models.GitCredentials, stderr func(string), abort *command.AbortHandle) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("cannot create clone directory %s: %w", dest, err)
	}

	var envs [][2]string
	if credentials != nil {
		askpass := filepath.Join(dest, ".git-askpass")
		if err := os.WriteFile(askpass, []byte(askpassScript), 0o700); err != nil {
			return fmt.Errorf("cannot write askpass helper: %w", err)
		}
		defer os.Remove(askpass)
		envs = [][2]string{
			{"GIT_ASKPASS", askpass},
			{"GIT_CLONE_USERNAME", credentials.Login},
			{"GIT_CLONE_PASSWORD", credentials.AccessToken},
			{"GIT_TERMINAL_PROMPT", "0"},
		}
	}

	steps := [][]string{
		{"init", "--quiet", "."},
		{"remote", "add", "origin", repositoryURL},
		{"fetch", "--quiet", "--depth", "1", "origin", commitID},
		{"checkout", "--quiet", "FETCH_HEAD"},
	}
	for _, args := range steps {
		cmd := &command.Command{
			Binary:  "git",
			Args:    args,
			Envs:    envs,
			Dir:     dest,
			Timeout: gitTimeout,
		}
		if err := cmd.Exec(stderr, stderr, abort); err != nil {
			return fmt.Errorf("git %s failed for %s@%s: %w", args[0], repositoryURL, commitID, err)
		}
	}
	return nil
}
