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

// Package cmdreleases contains the releases command.
package cmdreleases

import (
	"context"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/printer"
	"github.com/chutedev/chute/internal/ref"
	"github.com/chutedev/chute/internal/workspace"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const (
	shortMessage = "List the newest release version of each branch"
	longMessage  = `chute releases

Scans the version tags and prints, per branch, the highest version
released from it.
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	r.Command = &cobra.Command{
		Use:   "releases",
		Short: shortMessage,
		Long:  longMessage,
		Args:  cobra.NoArgs,
		RunE:  r.runE,
	}
	return r
}

// NewCommand returns a new cobra command.
func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdreleases.runE"
	pr := printer.FromContextOrDie(r.ctx)

	w, err := workspace.Open(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}

	newest := make(map[string]*semver.Version)
	for _, name := range w.Decorations.Names() {
		branch, v, ok := ref.ParseVersion(name)
		if !ok {
			continue
		}
		if cur, ok := newest[branch]; !ok || v.GreaterThan(cur) {
			newest[branch] = v
		}
	}
	if len(newest) == 0 {
		pr.Printf("no release tags\n")
		return nil
	}

	branches := make([]string, 0, len(newest))
	for branch := range newest {
		branches = append(branches, branch)
	}
	sort.Strings(branches)

	t := table.NewWriter()
	t.SetOutputMirror(pr.OutStream())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"BRANCH", "VERSION"})
	for _, branch := range branches {
		v := newest[branch]
		t.AppendRow(table.Row{branch, ref.Version(branch, v.Major(), v.Minor())})
	}
	t.Render()
	return nil
}
