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

// Package cmdunpromoted contains the unpromoted command.
package cmdunpromoted

import (
	"context"
	"fmt"

	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/printer"
	"github.com/chutedev/chute/internal/ref"
	"github.com/chutedev/chute/internal/types"
	"github.com/chutedev/chute/internal/workspace"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const (
	shortMessage = "List changesets present in one environment but not another"
	longMessage  = `chute unpromoted --from ENV --to ENV

Walks the promotion graph and lists, in dependency order, the changesets
reachable from the source environment's mainline that have not reached
the target environment. Changesets demoted out of the target are listed
after the graph results, in canonical name order.

Flags:
  --from:
    Source environment.
  --to:
    Target environment.
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:   "unpromoted --from ENV --to ENV",
		Short: shortMessage,
		Long:  longMessage,
		Args:  cobra.NoArgs,
		RunE:  r.runE,
	}
	c.Flags().StringVar(&r.from, "from", "", "source environment")
	c.Flags().StringVar(&r.to, "to", "", "target environment")
	r.Command = c
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

	from string
	to   string
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdunpromoted.runE"
	pr := printer.FromContextOrDie(r.ctx)

	w, err := workspace.Open(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}
	if err := r.validate(w); err != nil {
		return errors.E(op, err)
	}

	pending, err := w.Graph().Unpromoted(r.ctx,
		[]string{"origin/" + r.from}, []string{"origin/" + r.to})
	if err != nil {
		return errors.E(op, err)
	}

	// Demotions leave the target's ancestry untouched, so the graph
	// cannot see them. Collect them from their markers instead.
	pending = append(pending, r.demotions(w, pending)...)

	if len(pending) == 0 {
		pr.Printf("everything in %q has reached %q\n", r.from, r.to)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(pr.OutStream())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"CHANGESET", "STATUS", "OWNER"})
	for _, cs := range pending {
		status, err := w.Ledger.HistoryStatus(r.ctx, w.Config.Project, cs)
		if err != nil {
			return errors.E(op, cs, err)
		}
		owner, err := w.Ledger.HistoryOwner(r.ctx, w.Config.Project, cs)
		if err != nil {
			return errors.E(op, cs, err)
		}
		t.AppendRow(table.Row{string(cs), status, owner})
	}
	t.Render()
	return nil
}

func (r *Runner) validate(w *workspace.Workspace) error {
	if r.from == "" || r.to == "" {
		return errors.E(errors.MissingParam,
			fmt.Errorf("both --from and --to are required"))
	}
	for _, env := range []string{r.from, r.to} {
		if !w.Config.HasEnvironment(env) {
			return errors.E(errors.InvalidParam,
				fmt.Errorf("unknown environment %q", env))
		}
	}
	return nil
}

// demotions returns the changesets carrying a demotion marker for the
// target environment, canonically sorted, excluding those already listed.
func (r *Runner) demotions(w *workspace.Workspace, listed []types.Changeset) []types.Changeset {
	seen := make(map[types.Changeset]bool, len(listed))
	for _, cs := range listed {
		seen[cs] = true
	}
	var demoted []types.Changeset
	for _, name := range w.Decorations.Names() {
		cs, env, ok := ref.ParseDemoted(name)
		if !ok || env != r.to || seen[cs] {
			continue
		}
		seen[cs] = true
		demoted = append(demoted, cs)
	}
	ref.Sort(demoted)
	return demoted
}
