// Copyright 2024 The chute Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gitutil is the gateway through which every git command is
// executed. Callers pick one of three capture modes: Run (fire and
// forget), RunScalar (single trimmed value) or RunLines (ordered line
// sequence).
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/chutedev/chute/internal/errors"
	"github.com/google/shlex"
	"k8s.io/klog/v2"
)

// GitOverrideEnv names the environment variable that overrides the git
// invocation, e.g. CHUTE_GIT="git -c protocol.version=2". The value is
// split shell-style.
const GitOverrideEnv = "CHUTE_GIT"

// TraceEnv names the environment variable that enables echoing of every
// git command line to stderr.
const TraceEnv = "CHUTE_TRACE"

// NewRunner returns a Runner pinned to the top-level directory of the
// repository containing dir. Every command it runs executes there, so
// relative paths in git output stay stable no matter where the caller
// happens to be.
func NewRunner(ctx context.Context, dir string) (*Runner, error) {
	const op errors.Op = "gitutil.NewRunner"
	r, err := newRunnerIn(dir)
	if err != nil {
		return nil, errors.E(op, errors.Git, err)
	}
	top, err := r.RunScalar(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, errors.E(op, errors.Git, err)
	}
	if top == "" {
		return nil, errors.E(op, errors.Git,
			fmt.Errorf("%s is not inside a git work tree", dir))
	}
	r.Dir = top
	return r, nil
}

// newRunnerIn returns a Runner that executes commands in dir as given,
// without resolving the top-level directory.
func newRunnerIn(dir string) (*Runner, error) {
	gitPath, baseArgs, err := resolveGit()
	if err != nil {
		return nil, err
	}
	return &Runner{
		gitPath:  gitPath,
		baseArgs: baseArgs,
		Dir:      dir,
		trace:    os.Getenv(TraceEnv) != "",
	}, nil
}

// resolveGit locates the git binary, honoring the CHUTE_GIT override.
func resolveGit() (string, []string, error) {
	if override := os.Getenv(GitOverrideEnv); override != "" {
		parts, err := shlex.Split(override)
		if err != nil {
			return "", nil, fmt.Errorf("%s %q must be valid: %w", GitOverrideEnv, override, err)
		}
		if len(parts) > 0 {
			p, err := exec.LookPath(parts[0])
			if err != nil {
				return "", nil, fmt.Errorf("no %q program on path: %w", parts[0], err)
			}
			return p, parts[1:], nil
		}
	}
	p, err := exec.LookPath("git")
	if err != nil {
		return "", nil, fmt.Errorf("no 'git' program on path: %w", err)
	}
	return p, nil, nil
}

// Runner runs git commands in a local git repo.
type Runner struct {
	// Path to the git executable.
	gitPath string

	// baseArgs are prepended to every command, from the CHUTE_GIT
	// override.
	baseArgs []string

	// Dir is the directory the commands are run in.
	Dir string

	// trace echoes each command line before running it.
	trace bool
}

// RunResult captures the output streams of one git command.
type RunResult struct {
	Stdout string
	Stderr string
}

// Run executes a git command to completion and discards its output.
// Omit the 'git' part of the command. A non-zero exit or signal
// termination fails with a *GitExecError carrying the exit status and
// the original command line.
func (g *Runner) Run(ctx context.Context, args ...string) error {
	const op errors.Op = "gitutil.Run"
	_, err := g.start(ctx, nil, args...)
	if err != nil {
		return errors.E(op, errors.Git, err)
	}
	return nil
}

// RunScalar executes a git command and returns its combined output as a
// single string with the trailing newline stripped. The exit status is
// deliberately not consulted: several git commands exit non-zero after
// writing usable partial output, so callers must apply their own
// validity checks to the returned value.
func (g *Runner) RunScalar(ctx context.Context, args ...string) (string, error) {
	const op errors.Op = "gitutil.RunScalar"
	rr, err := g.start(ctx, nil, args...)
	if err != nil {
		var execErr *GitExecError
		if !errors.As(err, &execErr) {
			// the command never ran; nothing to salvage
			return "", errors.E(op, errors.Git, err)
		}
		return strings.TrimSuffix(execErr.StdOut+execErr.StdErr, "\n"), nil
	}
	return strings.TrimSuffix(rr.Stdout+rr.Stderr, "\n"), nil
}

// RunLines executes a git command and returns its stdout split into
// lines, each stripped of trailing whitespace. A non-zero exit fails
// with a *GitExecError.
func (g *Runner) RunLines(ctx context.Context, args ...string) ([]string, error) {
	const op errors.Op = "gitutil.RunLines"
	rr, err := g.start(ctx, nil, args...)
	if err != nil {
		return nil, errors.E(op, errors.Git, err)
	}
	return splitLines(rr.Stdout), nil
}

// RunInput executes a git command feeding stdin from input, returning
// trimmed stdout. Used for plumbing such as `hash-object -w --stdin`.
// A non-zero exit fails with a *GitExecError.
func (g *Runner) RunInput(ctx context.Context, input string, args ...string) (string, error) {
	const op errors.Op = "gitutil.RunInput"
	rr, err := g.start(ctx, strings.NewReader(input), args...)
	if err != nil {
		return "", errors.E(op, errors.Git, err)
	}
	return strings.TrimSuffix(rr.Stdout, "\n"), nil
}

// Clone clones uri into dest. Unlike every other command, clone runs
// from the caller's original working directory because dest is
// interpreted relative to it and no enclosing work tree is required.
func Clone(ctx context.Context, uri, dest string) error {
	const op errors.Op = "gitutil.Clone"
	cwd, err := os.Getwd()
	if err != nil {
		return errors.E(op, err)
	}
	r, err := newRunnerIn(cwd)
	if err != nil {
		return errors.E(op, errors.Git, err)
	}
	if _, err := r.start(ctx, nil, "clone", uri, dest); err != nil {
		return errors.E(op, errors.Git, err)
	}
	return nil
}

// start runs the command and classifies any failure.
func (g *Runner) start(ctx context.Context, stdin *strings.Reader, args ...string) (RunResult, error) {
	full := append(append([]string{}, g.baseArgs...), args...)
	if g.trace || klog.V(2).Enabled() {
		klog.InfoS("exec", "cmd", "git "+strings.Join(full, " "), "dir", g.Dir)
	}

	cmd := exec.CommandContext(ctx, g.gitPath, full...)
	cmd.Dir = g.Dir
	cmd.Env = os.Environ()
	if stdin != nil {
		cmd.Stdin = stdin
	}

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	cmd.Stdout = cmdStdout
	cmd.Stderr = cmdStderr

	err := cmd.Run()
	if err != nil {
		execErr := &GitExecError{
			Args:   full,
			Err:    err,
			StdOut: cmdStdout.String(),
			StdErr: cmdStderr.String(),
			Type:   determineErrorType(cmdStderr.String()),
		}
		fillExitStatus(execErr, err)
		return RunResult{}, execErr
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// splitLines splits s into lines with trailing whitespace removed from
// each. A trailing newline does not produce an empty final element.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	raw := strings.Split(s, "\n")
	lines := make([]string, len(raw))
	for i := range raw {
		lines[i] = strings.TrimRight(raw[i], " \t\r")
	}
	return lines
}
