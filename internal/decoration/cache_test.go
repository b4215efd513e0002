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

package decoration_test

import (
	"context"
	"testing"

	"github.com/chutedev/chute/internal/decoration"
	"github.com/chutedev/chute/internal/gitutil"
	"github.com/chutedev/chute/internal/testutil"
	"github.com/chutedev/chute/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, repo *testutil.TestRepo) *decoration.Cache {
	t.Helper()
	ctx := context.Background()
	g, err := gitutil.NewRunner(ctx, repo.Dir)
	require.NoError(t, err)
	c, err := decoration.NewCache(ctx, g)
	require.NoError(t, err)
	return c
}

func TestLooseRefs(t *testing.T) {
	repo := testutil.NewRepo(t)
	head := repo.Head()
	repo.Tag("cs/e1/head", head)
	repo.RemoteBranch("origin/dev", head)

	c := newCache(t, repo)

	decorations := c.DecorationsOf(types.CommitID(head))
	assert.Contains(t, decorations, "cs/e1/head")
	assert.Contains(t, decorations, "main")
	assert.Contains(t, decorations, "origin/dev")

	id, ok := c.CommitOf("cs/e1/head")
	require.True(t, ok)
	assert.Equal(t, types.CommitID(head), id)
}

func TestPackedRefs(t *testing.T) {
	repo := testutil.NewRepo(t)
	head := repo.Head()
	repo.Tag("meta/e1", head)
	repo.Git("pack-refs", "--all")

	c := newCache(t, repo)

	id, ok := c.CommitOf("meta/e1")
	require.True(t, ok)
	assert.Equal(t, types.CommitID(head), id)
}

func TestLooseOverridesPacked(t *testing.T) {
	repo := testutil.NewRepo(t)
	first := repo.Head()
	repo.Tag("meta/e1", first)
	repo.Git("pack-refs", "--all")
	second := repo.Commit("newer")
	repo.Git("tag", "-f", "meta/e1", second)

	c := newCache(t, repo)

	id, ok := c.CommitOf("meta/e1")
	require.True(t, ok)
	assert.Equal(t, types.CommitID(second), id)
	assert.NotContains(t, c.DecorationsOf(types.CommitID(first)), "meta/e1")
}

func TestDecorationsOfUnknownCommit(t *testing.T) {
	repo := testutil.NewRepo(t)
	c := newCache(t, repo)
	assert.Empty(t, c.DecorationsOf("0000000000000000000000000000000000000000"))
}

func TestTagUntag(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	head := repo.Head()
	c := newCache(t, repo)

	require.NoError(t, c.Tag(ctx, "meta/e2", types.CommitID(head), false))
	assert.Contains(t, c.DecorationsOf(types.CommitID(head)), "meta/e2")
	assert.Equal(t, head, repo.Git("rev-parse", "refs/tags/meta/e2"))

	require.NoError(t, c.Untag(ctx, "meta/e2"))
	assert.NotContains(t, c.DecorationsOf(types.CommitID(head)), "meta/e2")
	_, ok := c.CommitOf("meta/e2")
	assert.False(t, ok)
}

func TestUntagPostSnapshot(t *testing.T) {
	// a tag created behind the cache's back can still be untagged
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	c := newCache(t, repo)

	repo.Tag("meta/e3", repo.Head())
	require.NoError(t, c.Untag(ctx, "meta/e3"))
	assert.NotContains(t, repo.Git("tag", "-l"), "meta/e3")
}

func TestSnapshotOfCopiedRepo(t *testing.T) {
	// the cache is a snapshot of the repo it was built from; a wholesale
	// copy carries the same refs
	repo := testutil.NewRepo(t)
	repo.Tag("meta/e1", repo.Head())
	dup := repo.Clone()

	c := newCache(t, dup)
	id, ok := c.CommitOf("meta/e1")
	require.True(t, ok)
	assert.Equal(t, types.CommitID(repo.Head()), id)
}

func TestNames(t *testing.T) {
	repo := testutil.NewRepo(t)
	head := repo.Head()
	repo.Tag("cs/e1/rm-qa", head)
	repo.Tag("cs/e1/to-dev", head)

	c := newCache(t, repo)
	names := c.Names()
	assert.Contains(t, names, "cs/e1/rm-qa")
	assert.Contains(t, names, "cs/e1/to-dev")
	assert.Contains(t, names, "main")
	assert.IsIncreasing(t, names)
}
