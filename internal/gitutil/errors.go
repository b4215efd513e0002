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

package gitutil

import (
	"os/exec"
	"regexp"
	"strings"
	"syscall"

	"github.com/chutedev/chute/internal/errors"
)

type GitExecErrorType int

const (
	Unknown GitExecErrorType = iota
	GitExecutableNotFound
	UnknownReference
	HTTPSAuthRequired
	RepositoryNotFound
	RepositoryUnavailable
)

// GitExecError is the command-failed error produced by the gateway. It
// carries the original command line and either the exit code or the
// terminating signal.
type GitExecError struct {
	Type   GitExecErrorType
	Args   []string
	Err    error
	Ref    string
	StdErr string
	StdOut string

	// ExitCode is the command's exit code, or -1 if it was signaled.
	ExitCode int

	// Signal names the terminating signal when the command did not
	// exit on its own.
	Signal string
}

func (e *GitExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString(e.Err.Error())
	b.WriteString(": ")
	b.WriteString(e.StdErr)
	return b.String()
}

// CommandLine reconstructs the command line that failed.
func (e *GitExecError) CommandLine() string {
	return "git " + strings.Join(e.Args, " ")
}

// AmendGitExecError lets a caller annotate a wrapped GitExecError, for
// example with the ref it was resolving.
func AmendGitExecError(err error, f func(e *GitExecError)) {
	var gitExecErr *GitExecError
	if errors.As(err, &gitExecErr) {
		f(gitExecErr)
	}
}

// fillExitStatus records the exit code or terminating signal on e.
func fillExitStatus(e *GitExecError, err error) {
	e.ExitCode = -1
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return
	}
	e.ExitCode = exitErr.ExitCode()
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		e.ExitCode = -1
		e.Signal = status.Signal().String()
	}
}

func determineErrorType(stdErr string) GitExecErrorType {
	switch {
	case strings.Contains(stdErr, "unknown revision or path not in the working tree"):
		return UnknownReference
	case strings.Contains(stdErr, "could not read Username"):
		return HTTPSAuthRequired
	case strings.Contains(stdErr, "Could not resolve host"):
		return RepositoryUnavailable
	case matches(`fatal: repository '.*' not found`, stdErr):
		return RepositoryNotFound
	}
	return Unknown
}

func matches(pattern, s string) bool {
	matched, err := regexp.Match(pattern, []byte(s))
	if err != nil {
		// This should only return an error if the pattern is invalid, so
		// we just panic if that happens.
		panic(err)
	}
	return matched
}
