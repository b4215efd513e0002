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

package cmdpurge

import (
	"testing"

	"github.com/chutedev/chute/internal/cmdopen"
	"github.com/chutedev/chute/internal/printer/fake"
	"github.com/chutedev/chute/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurge(t *testing.T) {
	repo := testutil.NewRepo(t)
	remoteDir := testutil.NewBareRemote(t)
	repo.AddRemote("origin", remoteDir)
	remote := &testutil.TestRepo{T: t, Dir: remoteDir}
	testutil.Chdir(t, repo.Dir)

	open := cmdopen.NewCommand(fake.CtxWithNilPrinter())
	open.SetArgs([]string{"e1"})
	require.NoError(t, open.Execute())

	head := repo.Head()
	repo.Tag("cs/e1/head", head)
	repo.Tag("cs/e1/to-dev", head)
	repo.RemoteBranch("origin/pu/e1", head)

	cmd := NewCommand(fake.CtxWithNilPrinter())
	cmd.SetArgs([]string{"e1"})
	require.NoError(t, cmd.Execute())

	assert.Empty(t, repo.Git("branch", "--list", "e1"))
	tags := repo.Git("tag", "-l")
	assert.NotContains(t, tags, "meta/e1")
	assert.NotContains(t, tags, "cs/e1/head")
	assert.NotContains(t, tags, "cs/e1/to-dev")
	assert.NotContains(t, remote.Git("tag", "-l"), "meta/e1")
	assert.Empty(t, repo.Git("for-each-ref", "refs/remotes/origin/pu/e1"))
}

func TestPurgeNothingToDo(t *testing.T) {
	repo := testutil.NewRepo(t)
	remoteDir := testutil.NewBareRemote(t)
	repo.AddRemote("origin", remoteDir)
	testutil.Chdir(t, repo.Dir)

	cmd := NewCommand(fake.CtxWithNilPrinter())
	cmd.SetArgs([]string{"e9"})
	require.NoError(t, cmd.Execute())
}
