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

// Package branchpoint determines where a changeset branch diverged from
// its parent line. Topology alone cannot tell a sibling branch from
// upstream mainline when several branches fork from the same commit, so
// the walk also consults naming-convention decorations.
package branchpoint

import (
	"context"
	"strings"

	"github.com/chutedev/chute/internal/decoration"
	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/gitutil"
	"github.com/chutedev/chute/internal/ref"
	"github.com/chutedev/chute/internal/types"
)

// Resolver walks first-parent history of a changeset ref.
type Resolver struct {
	g     *gitutil.Runner
	cache *decoration.Cache

	// envs are the environments whose mainlines bound the walk.
	envs []string
}

// New returns a Resolver for the given environment list.
func New(g *gitutil.Runner, cache *decoration.Cache, envs []string) *Resolver {
	return &Resolver{g: g, cache: cache, envs: envs}
}

// BranchPoint returns the commit the given ref diverged from, or an
// empty commit id when the ancestry is unknown. An empty refName means
// the currently checked-out branch.
func (r *Resolver) BranchPoint(ctx context.Context, refName string) (types.CommitID, error) {
	const op errors.Op = "branchpoint.BranchPoint"
	if refName == "" {
		current, err := r.g.RunScalar(ctx, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return "", errors.E(op, err)
		}
		refName = current
	}
	cs := ref.Changeset(refName)

	args := []string{"rev-list", "--first-parent", "--topo-order", "--parents", refName}
	args = append(args, r.exclusions(cs)...)
	lines, err := r.g.RunLines(ctx, args...)
	if err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Ref = refName
		})
		return "", errors.E(op, cs, err)
	}

	// A changeset with no commits of its own produces an empty walk;
	// its branch point is the ref itself.
	if len(lines) == 0 {
		id, err := ref.ResolveRef(ctx, r.g, refName)
		if err != nil {
			return "", errors.E(op, cs, err)
		}
		return id, nil
	}

	var candidate types.CommitID
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		commit := types.CommitID(fields[0])
		parents := fields[1:]

		// A merge means this changeset absorbed its parent line here;
		// the merge source is the branch point no matter how much
		// further first-parent history extends.
		if len(parents) > 1 {
			return types.CommitID(parents[1]), nil
		}

		if r.decoratedByOther(commit, cs) {
			return commit, nil
		}

		if len(parents) == 1 {
			candidate = types.CommitID(parents[0])
		}
	}
	return candidate, nil
}

// exclusions builds the negative ranges bounding the walk: for each
// environment, everything at or before this changeset's promotion into
// it, or the environment mainline when the changeset was never promoted
// there. Environments without a mainline ref contribute no exclusion.
func (r *Resolver) exclusions(cs types.Changeset) []string {
	var excl []string
	for _, env := range r.envs {
		marker := ref.Promoted(cs, env)
		if _, ok := r.cache.CommitOf(marker); ok {
			excl = append(excl, "^"+marker+"~1")
			continue
		}
		mainline := "origin/" + env
		if _, ok := r.cache.CommitOf(mainline); ok {
			excl = append(excl, "^"+mainline)
		}
	}
	return excl
}

// decoratedByOther reports whether the commit carries the merged head
// or pending-review decoration of a different changeset.
func (r *Resolver) decoratedByOther(commit types.CommitID, cs types.Changeset) bool {
	for _, d := range r.cache.DecorationsOf(commit) {
		if other, ok := ref.ParseHead(d); ok && other != cs {
			return true
		}
		if other, ok := ref.ParsePendingReview(d); ok && other != cs {
			return true
		}
	}
	return false
}
