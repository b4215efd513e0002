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

// Package cmdhistory contains the history command.
package cmdhistory

import (
	"context"
	"time"

	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/printer"
	"github.com/chutedev/chute/internal/types"
	"github.com/chutedev/chute/internal/workspace"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	shortMessage = "Show the event history of a changeset"
	longMessage  = `chute history NAME [flags]

Renders the changeset's ledger, oldest event first.

Args:
  NAME:
    Name of the changeset.

Flags:
  --raw:
    Print the stored event objects as YAML instead of a table.
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:   "history NAME",
		Short: shortMessage,
		Long:  longMessage,
		Args:  cobra.ExactArgs(1),
		RunE:  r.runE,
	}
	c.Flags().BoolVar(&r.raw, "raw", false, "print the stored event objects as YAML")
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

	raw bool
}

func (r *Runner) runE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdhistory.runE"
	pr := printer.FromContextOrDie(r.ctx)
	cs := types.Changeset(args[0])

	w, err := workspace.Open(r.ctx)
	if err != nil {
		return errors.E(op, cs, err)
	}
	events, err := w.Ledger.History(r.ctx, w.Config.Project, cs)
	if err != nil {
		return errors.E(op, cs, err)
	}
	if len(events) == 0 {
		pr.OptPrintf(printer.NewOpt().Cs(cs), "no history\n")
		return nil
	}

	if r.raw {
		data, err := yaml.Marshal(events)
		if err != nil {
			return errors.E(op, cs, errors.Internal, err)
		}
		pr.Printf("%s", string(data))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(pr.OutStream())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "WHEN", "USER", "ACTION", "TARGET", "REVIEWER"})
	for _, ev := range events {
		t.AppendRow(table.Row{
			ev.ID,
			time.Unix(ev.Stamp, 0).Format("2006-01-02 15:04"),
			ev.User,
			ev.Action,
			ev.Target,
			ev.Reviewer,
		})
	}
	t.Render()
	return nil
}
