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

// Package testutil creates scratch git repositories for tests by
// driving the real git binary inside t.TempDir().
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/otiai10/copy"
)

// TestRepo is a scratch git repository.
type TestRepo struct {
	T *testing.T

	// Dir is the repository work tree.
	Dir string
}

// NewRepo initializes a scratch repository with one commit on main.
func NewRepo(t *testing.T) *TestRepo {
	t.Helper()
	r := &TestRepo{T: t, Dir: t.TempDir()}
	r.Git("init", "--initial-branch=main")
	r.Git("config", "user.name", "chute-test")
	r.Git("config", "user.email", "chute-test@example.com")
	r.Commit("initial")
	return r
}

// NewBareRemote initializes a bare repository usable as a push target.
func NewBareRemote(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "--bare")
	return dir
}

// Clone copies the repository wholesale into a fresh temp dir, giving
// tests an identical second work tree.
func (r *TestRepo) Clone() *TestRepo {
	r.T.Helper()
	dest := r.T.TempDir()
	if err := copy.Copy(r.Dir, dest); err != nil {
		r.T.Fatalf("copying repo: %v", err)
	}
	return &TestRepo{T: r.T, Dir: dest}
}

// Git runs a git command in the repository, failing the test on a
// non-zero exit, and returns trimmed combined output.
func (r *TestRepo) Git(args ...string) string {
	r.T.Helper()
	return runGit(r.T, r.Dir, args...)
}

// Commit creates an empty commit and returns its id.
func (r *TestRepo) Commit(msg string) string {
	r.T.Helper()
	r.Git("commit", "--allow-empty", "-m", msg)
	return r.Git("rev-parse", "HEAD")
}

// CommitFile writes a file, commits it and returns the commit id.
func (r *TestRepo) CommitFile(name, content, msg string) string {
	r.T.Helper()
	path := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.T.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.T.Fatalf("writing %s: %v", name, err)
	}
	r.Git("add", name)
	r.Git("commit", "-m", msg)
	return r.Git("rev-parse", "HEAD")
}

// Branch creates a branch at HEAD and checks it out.
func (r *TestRepo) Branch(name string) {
	r.T.Helper()
	r.Git("checkout", "-b", name)
}

// Checkout switches to an existing ref.
func (r *TestRepo) Checkout(name string) {
	r.T.Helper()
	r.Git("checkout", name)
}

// Merge merges branch into the current branch with a merge commit and
// returns the merge commit id.
func (r *TestRepo) Merge(branch string) string {
	r.T.Helper()
	r.Git("merge", "--no-ff", "--no-edit", branch)
	return r.Git("rev-parse", "HEAD")
}

// Tag creates a tag at the given target.
func (r *TestRepo) Tag(name, target string) {
	r.T.Helper()
	r.Git("tag", name, target)
}

// RemoteBranch fabricates a remote-tracking ref without a real remote.
func (r *TestRepo) RemoteBranch(name, target string) {
	r.T.Helper()
	r.Git("update-ref", "refs/remotes/"+name, target)
}

// AddRemote registers dir as a named remote.
func (r *TestRepo) AddRemote(name, dir string) {
	r.T.Helper()
	r.Git("remote", "add", name, dir)
}

// Head returns the current HEAD commit id.
func (r *TestRepo) Head() string {
	r.T.Helper()
	return r.Git("rev-parse", "HEAD")
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Chdir changes the working directory for the duration of the test and
// restores the previous directory on cleanup. It mirrors t.Chdir from
// newer Go releases for toolchains that predate it.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("chdir %s: %v", old, err)
		}
	})
}
