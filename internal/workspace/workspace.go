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

// Package workspace ties the per-invocation state together: the git
// runner pinned to the repository, the decoration snapshot, the loaded
// configuration and the ledger. Commands construct one Workspace and
// pass it down instead of relying on ambient process state.
package workspace

import (
	"context"
	"os"

	"github.com/chutedev/chute/internal/branchpoint"
	"github.com/chutedev/chute/internal/config"
	"github.com/chutedev/chute/internal/decoration"
	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/gitutil"
	"github.com/chutedev/chute/internal/ledger"
	"github.com/chutedev/chute/internal/promograph"
	"github.com/chutedev/chute/internal/tracker"
)

// Workspace is the explicit context object shared by one invocation.
type Workspace struct {
	Git         *gitutil.Runner
	Decorations *decoration.Cache
	Config      *config.Config
	Ledger      *ledger.Ledger
}

// Open builds a Workspace from the caller's working directory.
func Open(ctx context.Context) (*Workspace, error) {
	const op errors.Op = "workspace.Open"
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.E(op, err)
	}
	return OpenAt(ctx, cwd)
}

// OpenAt builds a Workspace for the repository containing dir.
func OpenAt(ctx context.Context, dir string) (*Workspace, error) {
	const op errors.Op = "workspace.OpenAt"
	g, err := gitutil.NewRunner(ctx, dir)
	if err != nil {
		return nil, errors.E(op, err)
	}
	cache, err := decoration.NewCache(ctx, g)
	if err != nil {
		return nil, errors.E(op, err)
	}
	cfg, err := config.Load(g.Dir)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return &Workspace{
		Git:         g,
		Decorations: cache,
		Config:      cfg,
		Ledger:      ledger.New(g, cache),
	}, nil
}

// BranchPoints returns a branch-point resolver bound to the configured
// environment chain.
func (w *Workspace) BranchPoints() (*branchpoint.Resolver, error) {
	const op errors.Op = "workspace.BranchPoints"
	chain, err := w.Config.Chain()
	if err != nil {
		return nil, errors.E(op, err)
	}
	return branchpoint.New(w.Git, w.Decorations, chain), nil
}

// Graph returns a promotion graph engine bound to the configured
// backstop.
func (w *Workspace) Graph() *promograph.Engine {
	return promograph.New(w.Git, w.Decorations, w.Config.Backstop)
}

// Tracker returns the configured issue tracker handle.
func (w *Workspace) Tracker() (tracker.Tracker, error) {
	return tracker.New(w.Config.Tracker)
}
