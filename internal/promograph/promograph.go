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

// Package promograph computes which changesets are reachable from one
// set of environment heads but not another, in dependency order.
package promograph

import (
	"context"

	"github.com/chutedev/chute/internal/decoration"
	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/gitutil"
	"github.com/chutedev/chute/internal/ref"
	"github.com/chutedev/chute/internal/types"
)

// Engine performs promotion-graph traversals.
type Engine struct {
	g     *gitutil.Runner
	cache *decoration.Cache

	// Backstop is a tag marking a shared ancestor used purely to bound
	// traversal cost. An unresolvable backstop leaves walks unbounded.
	Backstop string
}

// New returns an Engine.
func New(g *gitutil.Runner, cache *decoration.Cache, backstop string) *Engine {
	return &Engine{g: g, cache: cache, Backstop: backstop}
}

// ChangesetsIn walks first-parent history of refs, newest first, and
// returns the changesets whose markers decorate the visited commits.
// Each name is recorded at its first (newest) occurrence only, which
// makes the sequence list every changeset before anything it depends
// on.
func (e *Engine) ChangesetsIn(ctx context.Context, refs []string, backstop string) ([]types.Changeset, error) {
	const op errors.Op = "promograph.ChangesetsIn"
	if len(refs) == 0 {
		return nil, nil
	}
	args := []string{"rev-list", "--first-parent", "--topo-order"}
	args = append(args, refs...)
	if backstop != "" {
		if _, err := ref.ResolveRef(ctx, e.g, backstop); err == nil {
			args = append(args, "^"+backstop)
		}
	}
	lines, err := e.g.RunLines(ctx, args...)
	if err != nil {
		return nil, errors.E(op, err)
	}

	var order []types.Changeset
	seen := make(map[types.Changeset]bool)
	for _, line := range lines {
		cs, ok := e.changesetAt(types.CommitID(line))
		if !ok || seen[cs] {
			continue
		}
		seen[cs] = true
		order = append(order, cs)
	}
	return order, nil
}

// changesetAt inspects the commit's decorations against the three
// marker patterns in priority order: promoted-to-environment, merged
// head, pending review.
func (e *Engine) changesetAt(commit types.CommitID) (types.Changeset, bool) {
	decorations := e.cache.DecorationsOf(commit)
	for _, d := range decorations {
		if cs, _, ok := ref.ParsePromoted(d); ok {
			return cs, true
		}
	}
	for _, d := range decorations {
		if cs, ok := ref.ParseHead(d); ok {
			return cs, true
		}
	}
	for _, d := range decorations {
		if cs, ok := ref.ParsePendingReview(d); ok {
			return cs, true
		}
	}
	return "", false
}

// Unpromoted returns the changesets reachable from the "from" refs but
// not reflected in the "to" refs, preserving the "from" walk's order.
// Demotions are not visible through ancestry and must be appended by
// the caller if required.
func (e *Engine) Unpromoted(ctx context.Context, from, to []string) ([]types.Changeset, error) {
	const op errors.Op = "promograph.Unpromoted"
	fromSeq, err := e.ChangesetsIn(ctx, from, e.Backstop)
	if err != nil {
		return nil, errors.E(op, err)
	}
	toSeq, err := e.ChangesetsIn(ctx, to, e.Backstop)
	if err != nil {
		return nil, errors.E(op, err)
	}
	inTo := make(map[types.Changeset]bool, len(toSeq))
	for _, cs := range toSeq {
		inTo[cs] = true
	}
	var pending []types.Changeset
	for _, cs := range fromSeq {
		if !inTo[cs] {
			pending = append(pending, cs)
		}
	}
	return pending, nil
}
