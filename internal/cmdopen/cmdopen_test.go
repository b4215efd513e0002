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

package cmdopen

import (
	"testing"

	"github.com/chutedev/chute/internal/printer/fake"
	"github.com/chutedev/chute/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	repo := testutil.NewRepo(t)
	remoteDir := testutil.NewBareRemote(t)
	repo.AddRemote("origin", remoteDir)
	remote := &testutil.TestRepo{T: t, Dir: remoteDir}
	testutil.Chdir(t, repo.Dir)

	cmd := NewCommand(fake.CtxWithNilPrinter())
	cmd.SetArgs([]string{"e1", "--reviewer", "bob"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, repo.Git("branch", "--list", "e1"), "e1")
	assert.Contains(t, repo.Git("tag", "-l"), "meta/e1")
	assert.Contains(t, remote.Git("tag", "-l"), "meta/e1")

	raw := repo.Git("cat-file", "blob", "refs/tags/meta/e1")
	assert.Contains(t, raw, "action: open")
	assert.Contains(t, raw, "reviewer: bob")
}

func TestOpenAtRef(t *testing.T) {
	repo := testutil.NewRepo(t)
	base := repo.Head()
	repo.Commit("later work")
	remoteDir := testutil.NewBareRemote(t)
	repo.AddRemote("origin", remoteDir)
	testutil.Chdir(t, repo.Dir)

	cmd := NewCommand(fake.CtxWithNilPrinter())
	cmd.SetArgs([]string{"e2", "--at", base})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, base, repo.Git("rev-parse", "refs/heads/e2"))
}

func TestOpenRollsBackOnLedgerFailure(t *testing.T) {
	// the remote does not exist, so publishing the opening event fails
	// and the already-created branch must be removed again
	repo := testutil.NewRepo(t)
	repo.AddRemote("origin", "/nonexistent/remote")
	testutil.Chdir(t, repo.Dir)

	cmd := NewCommand(fake.CtxWithNilPrinter())
	cmd.SetArgs([]string{"e1"})
	require.Error(t, cmd.Execute())

	assert.Empty(t, repo.Git("branch", "--list", "e1"))
}

func TestOpenExistingBranchFails(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.Git("branch", "e1")
	remoteDir := testutil.NewBareRemote(t)
	repo.AddRemote("origin", remoteDir)
	testutil.Chdir(t, repo.Dir)

	cmd := NewCommand(fake.CtxWithNilPrinter())
	cmd.SetArgs([]string{"e1"})
	require.Error(t, cmd.Execute())

	// nothing was recorded for the failed attempt
	assert.NotContains(t, repo.Git("tag", "-l"), "meta/e1")
}
