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

package promograph_test

import (
	"context"
	"testing"

	"github.com/chutedev/chute/internal/decoration"
	"github.com/chutedev/chute/internal/gitutil"
	"github.com/chutedev/chute/internal/promograph"
	"github.com/chutedev/chute/internal/testutil"
	"github.com/chutedev/chute/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, repo *testutil.TestRepo, backstop string) *promograph.Engine {
	t.Helper()
	ctx := context.Background()
	g, err := gitutil.NewRunner(ctx, repo.Dir)
	require.NoError(t, err)
	cache, err := decoration.NewCache(ctx, g)
	require.NoError(t, err)
	return promograph.New(g, cache, backstop)
}

func TestChangesetsInOrder(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	base := repo.Head()
	older := repo.Commit("e1 landed")
	repo.Tag("cs/e1/head", older)
	newer := repo.Commit("e2 landed")
	repo.Tag("cs/e2/head", newer)
	repo.RemoteBranch("origin/dev", newer)
	repo.RemoteBranch("origin/qa", base)

	e := newEngine(t, repo, "")
	seq, err := e.ChangesetsIn(ctx, []string{"origin/dev"}, "")
	require.NoError(t, err)
	// newest first: a changeset always precedes the ones it builds on
	assert.Equal(t, []types.Changeset{"e2", "e1"}, seq)
}

func TestChangesetsInMarkerPriority(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	c := repo.Commit("shared commit")
	repo.Tag("cs/e1/head", c)
	repo.Tag("cs/e2/to-dev", c)
	repo.RemoteBranch("origin/dev", c)

	e := newEngine(t, repo, "")
	seq, err := e.ChangesetsIn(ctx, []string{"origin/dev"}, "")
	require.NoError(t, err)
	// the promotion marker outranks the head decoration
	assert.Equal(t, []types.Changeset{"e2"}, seq)
}

func TestChangesetsInEmptyRefs(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	e := newEngine(t, repo, "")
	seq, err := e.ChangesetsIn(ctx, nil, "")
	require.NoError(t, err)
	assert.Empty(t, seq)
}

func TestBackstopBoundsWalk(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	older := repo.Commit("e1 landed")
	repo.Tag("cs/e1/head", older)
	repo.Tag("backstop", older)
	newer := repo.Commit("e2 landed")
	repo.Tag("cs/e2/head", newer)
	repo.RemoteBranch("origin/dev", newer)

	e := newEngine(t, repo, "backstop")
	seq, err := e.ChangesetsIn(ctx, []string{"origin/dev"}, "backstop")
	require.NoError(t, err)
	assert.Equal(t, []types.Changeset{"e2"}, seq)
}

func TestUnresolvableBackstopIsIgnored(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	c := repo.Commit("e1 landed")
	repo.Tag("cs/e1/head", c)
	repo.RemoteBranch("origin/dev", c)

	e := newEngine(t, repo, "")
	seq, err := e.ChangesetsIn(ctx, []string{"origin/dev"}, "nosuchtag")
	require.NoError(t, err)
	assert.Equal(t, []types.Changeset{"e1"}, seq)
}

func TestUnpromoted(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	inBoth := repo.Commit("e1 landed")
	repo.Tag("cs/e1/head", inBoth)
	repo.RemoteBranch("origin/qa", inBoth)
	devOnly1 := repo.Commit("e2 landed")
	repo.Tag("cs/e2/head", devOnly1)
	devOnly2 := repo.Commit("e3 landed")
	repo.Tag("cs/e3/head", devOnly2)
	repo.RemoteBranch("origin/dev", devOnly2)

	e := newEngine(t, repo, "")
	pending, err := e.Unpromoted(ctx, []string{"origin/dev"}, []string{"origin/qa"})
	require.NoError(t, err)
	assert.Equal(t, []types.Changeset{"e3", "e2"}, pending)
}

func TestUnpromotedNothingPending(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	c := repo.Commit("e1 landed")
	repo.Tag("cs/e1/head", c)
	repo.RemoteBranch("origin/dev", c)
	repo.RemoteBranch("origin/qa", c)

	e := newEngine(t, repo, "")
	pending, err := e.Unpromoted(ctx, []string{"origin/dev"}, []string{"origin/qa"})
	require.NoError(t, err)
	assert.Empty(t, pending)
}
