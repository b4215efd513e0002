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

// Package decoration maintains the commit -> symbolic refs cache used
// by the branch-point resolver and the promotion graph. The cache is a
// snapshot: it is built once from ref storage and only mutated through
// Tag and Untag, never reconciled against concurrent external changes.
package decoration

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/gitutil"
	"github.com/chutedev/chute/internal/types"
)

// Cache maps commit identifiers to the set of ref names pointing at or
// annotating them, with an inverse name -> commit index.
type Cache struct {
	g      *gitutil.Runner
	gitDir string

	byCommit map[types.CommitID]map[string]bool
	byName   map[string]types.CommitID
}

// NewCache builds the cache by scanning packed and loose ref storage of
// the repository the runner is pinned to.
func NewCache(ctx context.Context, g *gitutil.Runner) (*Cache, error) {
	const op errors.Op = "decoration.NewCache"
	gitDir, err := g.RunScalar(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, errors.E(op, err)
	}
	if gitDir == "" {
		return nil, errors.E(op, errors.Git, fmt.Errorf("unable to locate git dir"))
	}
	c := &Cache{
		g:        g,
		gitDir:   gitDir,
		byCommit: make(map[types.CommitID]map[string]bool),
		byName:   make(map[string]types.CommitID),
	}
	if err := c.loadPacked(); err != nil {
		return nil, errors.E(op, err)
	}
	if err := c.loadLoose(); err != nil {
		return nil, errors.E(op, err)
	}
	return c, nil
}

// loadPacked parses the packed-refs store. Each non-comment line has the
// form "<commit> <refName>"; peel lines starting with '^' are skipped.
func (c *Cache) loadPacked() error {
	f, err := os.Open(filepath.Join(c.gitDir, "packed-refs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		c.record(shortName(fields[1]), types.CommitID(fields[0]))
	}
	return scanner.Err()
}

// loadLoose scans every file under the refs tree. A loose entry
// overrides a packed entry for the same name.
func (c *Cache) loadLoose() error {
	root := filepath.Join(c.gitDir, "refs")
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		id := strings.TrimSpace(string(content))
		if id == "" || strings.HasPrefix(id, "ref:") {
			return nil
		}
		rel, err := filepath.Rel(c.gitDir, path)
		if err != nil {
			return err
		}
		c.record(shortName(filepath.ToSlash(rel)), types.CommitID(id))
		return nil
	})
}

// record associates name with commit, displacing any previous
// association for the same name.
func (c *Cache) record(name string, commit types.CommitID) {
	if prev, ok := c.byName[name]; ok {
		delete(c.byCommit[prev], name)
		if len(c.byCommit[prev]) == 0 {
			delete(c.byCommit, prev)
		}
	}
	set := c.byCommit[commit]
	if set == nil {
		set = make(map[string]bool)
		c.byCommit[commit] = set
	}
	set[name] = true
	c.byName[name] = commit
}

// forget removes the association for name, if any.
func (c *Cache) forget(name string) {
	prev, ok := c.byName[name]
	if !ok {
		return
	}
	delete(c.byName, name)
	delete(c.byCommit[prev], name)
	if len(c.byCommit[prev]) == 0 {
		delete(c.byCommit, prev)
	}
}

// DecorationsOf returns the sorted set of ref names pointing at the
// commit. Unknown commits yield an empty set, not an error.
func (c *Cache) DecorationsOf(commit types.CommitID) []string {
	set := c.byCommit[commit]
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns every ref name in the snapshot, sorted. Callers scan
// it for marker families the cache does not index, such as demotion
// markers.
func (c *Cache) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommitOf returns the commit a ref name currently points at in the
// snapshot.
func (c *Cache) CommitOf(name string) (types.CommitID, bool) {
	id, ok := c.byName[name]
	return id, ok
}

// Tag creates a tag and updates the cache in place. Creating a tag is
// not complete until the cache reflects the new decoration, so that
// walks later in the same invocation see tags made by the ledger.
func (c *Cache) Tag(ctx context.Context, name string, target types.CommitID, force bool) error {
	const op errors.Op = "decoration.Tag"
	args := []string{"tag"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, name, string(target))
	if err := c.g.Run(ctx, args...); err != nil {
		return errors.E(op, err)
	}
	c.record(name, target)
	return nil
}

// Untag deletes a tag, first resolving it so the corresponding cache
// entry can be removed.
func (c *Cache) Untag(ctx context.Context, name string) error {
	const op errors.Op = "decoration.Untag"
	if _, ok := c.byName[name]; !ok {
		// tag may postdate the snapshot; resolve through git
		out, err := c.g.RunScalar(ctx, "rev-parse", "--verify", "--quiet", name)
		if err != nil {
			return errors.E(op, err)
		}
		if out != "" {
			c.record(name, types.CommitID(out))
		}
	}
	if err := c.g.Run(ctx, "tag", "-d", name); err != nil {
		return errors.E(op, err)
	}
	c.forget(name)
	return nil
}

// shortName strips the storage prefix from a full ref name, yielding the
// decoration form used throughout: tags and branches by bare name,
// remote branches as "<remote>/<branch>".
func shortName(name string) string {
	for _, p := range []string{"refs/tags/", "refs/heads/", "refs/remotes/"} {
		if strings.HasPrefix(name, p) {
			return strings.TrimPrefix(name, p)
		}
	}
	return name
}
