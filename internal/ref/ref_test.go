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

package ref

import (
	"context"
	"testing"

	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/gitutil"
	"github.com/chutedev/chute/internal/testutil"
	"github.com/chutedev/chute/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilders(t *testing.T) {
	cs := types.Changeset("e7583")
	assert.Equal(t, "cs/e7583/head", Head(cs))
	assert.Equal(t, "cs/e7583/to-prod", Promoted(cs, "prod"))
	assert.Equal(t, "cs/e7583/rm-qa", Demoted(cs, "qa"))
	assert.Equal(t, "meta/e7583", Meta(cs))
	assert.Equal(t, "origin/pu/e7583", PendingReview(cs))
	assert.Equal(t, "version/rel-2/3.14", Version("rel-2", 3, 14))
}

func TestParsers(t *testing.T) {
	cs, ok := ParseHead("cs/e7583/head")
	require.True(t, ok)
	assert.Equal(t, types.Changeset("e7583"), cs)

	_, ok = ParseHead("cs/e7583/to-prod")
	assert.False(t, ok)

	cs, env, ok := ParsePromoted("cs/e7583/to-prod")
	require.True(t, ok)
	assert.Equal(t, types.Changeset("e7583"), cs)
	assert.Equal(t, "prod", env)

	cs, env, ok = ParseDemoted("cs/e7583/rm-qa")
	require.True(t, ok)
	assert.Equal(t, types.Changeset("e7583"), cs)
	assert.Equal(t, "qa", env)

	cs, ok = ParsePendingReview("origin/pu/e7583")
	require.True(t, ok)
	assert.Equal(t, types.Changeset("e7583"), cs)

	branch, v, ok := ParseVersion("version/rel-2/3.14")
	require.True(t, ok)
	assert.Equal(t, "rel-2", branch)
	assert.Equal(t, uint64(3), v.Major())
	assert.Equal(t, uint64(14), v.Minor())

	_, _, ok = ParseVersion("version/rel-2/3.14.1")
	assert.False(t, ok)
}

func TestChangeset(t *testing.T) {
	assert.Equal(t, types.Changeset("e1"), Changeset("cs/e1/head"))
	assert.Equal(t, types.Changeset("e1"), Changeset("origin/pu/e1"))
	assert.Equal(t, types.Changeset("e1"), Changeset("meta/e1"))
	assert.Equal(t, types.Changeset("e1"), Changeset("e1"))
}

func TestSort(t *testing.T) {
	in := []types.Changeset{"e7386", "e758", "e7583", "e7583a", "e7583c", "e758b", "e758c"}
	want := []types.Changeset{"e758", "e758b", "e758c", "e7386", "e7583", "e7583a", "e7583c"}
	Sort(in)
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestCompareNonNumeric(t *testing.T) {
	// names without a numeric core sort after all numeric ones
	assert.Positive(t, Compare("hotfix", "e9999"))
	assert.Negative(t, Compare("e1", "hotfix"))
	assert.Negative(t, Compare("alpha", "beta"))
	assert.Zero(t, Compare("e1", "e1"))
}

func TestResolvePriority(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	branchTip := repo.Commit("second")
	repo.Branch("e1")
	csTip := repo.Commit("work on e1")
	repo.Checkout("main")

	g, err := gitutil.NewRunner(ctx, repo.Dir)
	require.NoError(t, err)

	// only the branch exists
	id, matched, err := Resolve(ctx, g, "e1")
	require.NoError(t, err)
	assert.Equal(t, types.CommitID(csTip), id)
	assert.Equal(t, "e1", matched)

	// a pending-review ref outranks the branch
	repo.RemoteBranch("origin/pu/e1", branchTip)
	id, matched, err = Resolve(ctx, g, "e1")
	require.NoError(t, err)
	assert.Equal(t, types.CommitID(branchTip), id)
	assert.Equal(t, "origin/pu/e1", matched)

	// the merged head outranks both
	headTarget := repo.Commit("merged head")
	repo.Tag("cs/e1/head", headTarget)
	id, matched, err = Resolve(ctx, g, "e1")
	require.NoError(t, err)
	assert.Equal(t, types.CommitID(headTarget), id)
	assert.Equal(t, "cs/e1/head", matched)
}

func TestResolveUnknown(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	g, err := gitutil.NewRunner(ctx, repo.Dir)
	require.NoError(t, err)

	_, _, err = Resolve(ctx, g, "nosuch1")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.RefNotFound, err))
}

func TestResolveRef(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepo(t)
	g, err := gitutil.NewRunner(ctx, repo.Dir)
	require.NoError(t, err)

	id, err := ResolveRef(ctx, g, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, types.CommitID(repo.Head()), id)

	_, err = ResolveRef(ctx, g, "does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.RefNotFound, err))
}
