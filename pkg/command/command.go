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

// Package command spawns external binaries (terraform, helm, kubectl,
// skopeo, docker, git) with timeout, user-abort and interleaved line
// streaming. Credentials are passed through the environment only; they
// never appear on the argv of a spawned command.
package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// ExitStatusError reports a non-zero exit code.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Code)
}

// TimeoutError reports that the command exceeded its allotted duration and
// was killed.
type TimeoutError struct {
	Msg string
}

func (e *TimeoutError) Error() string { return e.Msg }

// KilledError reports that the command was killed on user request.
type KilledError struct {
	Msg string
}

func (e *KilledError) Error() string { return e.Msg }

// ExecutionError wraps an I/O failure while spawning or driving the
// command.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string { return fmt.Sprintf("command execution error: %v", e.Err) }
func (e *ExecutionError) Unwrap() error { return e.Err }

// outerTick is the cadence at which the runner polls child exit status, the
// abort predicate and the elapsed time.
const outerTick = 1 * time.Second

// Command describes one external process invocation. The runner is
// single-threaded per command and never mutates shared state; callers spawn
// their own goroutines to drive multiple commands in parallel.
type Command struct {
	Binary  string
	Args    []string
	Envs    [][2]string
	Dir     string
	Timeout time.Duration
	// KillGracePeriod gates SIGKILL after a termination request. Zero means
	// immediate kill, which is what short-lived tools like skopeo get;
	// terraform and helm get a longer period so they can release locks.
	KillGracePeriod time.Duration
}

// NewCommand returns a command with no timeout and no grace period.
func NewCommand(binary string, args []string, envs [][2]string) *Command {
	return &Command{Binary: binary, Args: args, Envs: envs}
}

func (c *Command) String() string {
	return fmt.Sprintf("%s %s", c.Binary, strings.Join(c.Args, " "))
}

type line struct {
	text   string
	stderr bool
}

// Exec runs the command to completion, delivering stdout and stderr
// line-by-line to the callbacks, interleaved in arrival order. abort may be
// nil.
func (c *Command) Exec(stdout, stderr func(string), abort *AbortHandle) error {
	if stdout == nil {
		stdout = func(string) {}
	}
	if stderr == nil {
		stderr = func(string) {}
	}

	cmd := exec.Command(c.Binary, c.Args...)
	cmd.Env = os.Environ()
	for _, kv := range c.Envs {
		cmd.Env = append(cmd.Env, kv[0]+"="+kv[1])
	}
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// Own process group so a kill reaches terraform's and helm's children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return &ExecutionError{Err: err}
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return &ExecutionError{Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &ExecutionError{Err: err}
	}

	// Both pipes are drained by dedicated goroutines feeding one channel so
	// a stalled stream never starves the other. The buffer keeps readers
	// from blocking on a slow consumer between outer ticks.
	lines := make(chan line, 256)
	readerDone := make(chan struct{}, 2)
	go scanPipe(outPipe, false, lines, readerDone)
	go scanPipe(errPipe, true, lines, readerDone)
	pipesDone := make(chan struct{})
	go func() {
		<-readerDone
		<-readerDone
		close(pipesDone)
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	start := time.Now()
	ticker := time.NewTicker(outerTick)
	defer ticker.Stop()

	var waitErr error
	exited := false
	drained := false

	for {
		select {
		case l := <-lines:
			deliver(l, stdout, stderr)
			continue
		case err := <-waitCh:
			waitErr = err
			exited = true
			waitCh = nil
		case <-pipesDone:
			drained = true
			pipesDone = nil
		case <-ticker.C:
			if abort.ShouldBeKilled() {
				c.terminate(cmd)
				c.awaitExit(waitCh, lines, stdout, stderr)
				return &KilledError{Msg: fmt.Sprintf("command '%s' killed on user request", c)}
			}
			if c.Timeout > 0 && time.Since(start) > c.Timeout {
				c.terminate(cmd)
				c.awaitExit(waitCh, lines, stdout, stderr)
				return &TimeoutError{Msg: fmt.Sprintf("command '%s' terminated due to timeout after %s", c, c.Timeout)}
			}
		}
		if exited && drained {
			flushLines(lines, stdout, stderr)
			return exitResult(waitErr)
		}
	}
}

func deliver(l line, stdout, stderr func(string)) {
	if l.stderr {
		stderr(l.text)
	} else {
		stdout(l.text)
	}
}

// scanPipe delivers lines from one pipe until EOF.
func scanPipe(r io.Reader, isStderr bool, out chan<- line, done chan<- struct{}) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		out <- line{text: sc.Text(), stderr: isStderr}
	}
	done <- struct{}{}
}

// flushLines delivers whatever is still buffered without blocking.
func flushLines(lines chan line, stdout, stderr func(string)) {
	for {
		select {
		case l := <-lines:
			deliver(l, stdout, stderr)
		default:
			return
		}
	}
}

// awaitExit waits for the killed child to be reaped, flushing any remaining
// output on the way.
func (c *Command) awaitExit(waitCh chan error, lines chan line, stdout, stderr func(string)) {
	if waitCh != nil {
		for {
			select {
			case l := <-lines:
				deliver(l, stdout, stderr)
			case <-waitCh:
				flushLines(lines, stdout, stderr)
				return
			}
		}
	}
	flushLines(lines, stdout, stderr)
}

// terminate sends SIGTERM to the process group, waits for the grace period,
// then SIGKILLs whatever is left.
func (c *Command) terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid := -cmd.Process.Pid
	_ = syscall.Kill(pgid, syscall.SIGTERM)
	if c.KillGracePeriod > 0 {
		deadline := time.Now().Add(c.KillGracePeriod)
		for time.Now().Before(deadline) {
			if err := syscall.Kill(pgid, 0); err != nil {
				return
			}
			time.Sleep(200 * time.Millisecond)
		}
	}
	_ = syscall.Kill(pgid, syscall.SIGKILL)
}

func exitResult(waitErr error) error {
	if waitErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ExitStatusError{Code: exitErr.ExitCode()}
	}
	return &ExecutionError{Err: waitErr}
}
